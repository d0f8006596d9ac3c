package usecases

import (
	"context"
	"sync"
	"time"

	"github.com/tamsal/storefront/internal/domain/entities"
	"github.com/tamsal/storefront/internal/domain/ports"
)

// mockGenerative implements ports.GenerativeService for testing
type mockGenerative struct {
	mu       sync.Mutex
	requests []*ports.GenerateRequest
	resp     *ports.GenerateResponse
	err      error
}

func (m *mockGenerative) Generate(ctx context.Context, req *ports.GenerateRequest) (*ports.GenerateResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	if m.resp != nil {
		return m.resp, nil
	}
	return &ports.GenerateResponse{Text: "mocked answer"}, nil
}

func (m *mockGenerative) lastRequest() *ports.GenerateRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return nil
	}
	return m.requests[len(m.requests)-1]
}

// recordingObserver implements ports.CallObserver for testing
type recordingObserver struct {
	calls []string
}

func (o *recordingObserver) ObserveCall(operation, outcome string, _ time.Duration) {
	o.calls = append(o.calls, operation+":"+outcome)
}

func text(en, ky, ru string) entities.LocalizedText {
	return entities.LocalizedText{entities.English: en, entities.Kyrgyz: ky, entities.Russian: ru}
}

func testProducts() []entities.Product {
	install := text("Installation Materials", "Орнотуу материалдары", "Материалы для монтажа")
	return []entities.Product{
		{
			ID:          "pvc-1",
			Name:        text("PVC Wall Panel - White Marble", "ПВХ дубал панели - Ак мрамор", "ПВХ панель для стен - Белый мрамор"),
			Category:    text("PVC Panels", "ПВХ панелдери", "ПВХ панели"),
			Unit:        text("pcs", "даана", "шт"),
			Description: text("Waterproof PVC panel, ideal for bathrooms and kitchens.", "Суу өткөрбөйт ПВХ панели.", "Влагостойкая ПВХ панель."),
			Price:       350,
			Stock:       400,
		},
		{
			ID:          "lam-1",
			Name:        text("Laminate Flooring - Natural Oak (32 Class)", "Ламинат - Табигый эмен (32-класс)", "Ламинат - Натуральный дуб (32 класс)"),
			Category:    text("Laminate", "Ламинат", "Ламинат"),
			Unit:        text("sq.m", "кв.м", "кв.м"),
			Description: text("Durable 8mm laminate with a natural wood texture.", "Бышык 8мм ламинат.", "Прочный ламинат 8мм."),
			Price:       850,
			Stock:       120,
		},
		{
			ID:          "lin-1",
			Name:        text("Semi-Commercial Linoleum - Grey Stone", "Линолеум - Боз таш", "Линолеум полукоммерческий - Серый камень"),
			Category:    text("Linoleum", "Линолеум", "Линолеум"),
			Unit:        text("sq.m", "кв.м", "кв.м"),
			Description: text("High-quality linoleum with felt backing.", "Жогорку сапаттагы линолеум.", "Качественный линолеум на войлочной основе."),
			Price:       420,
			Stock:       200,
		},
		{
			ID:          "acc-1",
			Name:        text("Laminate Underlayment (3mm)", "Ламинат астындагы төшөлмө (3мм)", "Подложка под ламинат (3мм)"),
			Category:    install,
			Unit:        text("sq.m", "кв.м", "кв.м"),
			Description: text("Extruded polystyrene foam underlayment for floor leveling.", "Пенополистирол төшөлмөсү.", "Подложка из пенополистирола."),
			Price:       65,
			Stock:       500,
		},
	}
}

func testCatalog() *Catalog {
	return NewCatalog(&ports.CatalogData{
		Products: testProducts(),
		Locations: []entities.StoreLocation{
			{
				Name:      text("Main Showroom - Asanaliev", "Башкы дүкөн - Асаналиев", "Главный шоурум - Асаналиева"),
				Address:   text("Asanaliev St, 16/7", "Асаналиев көчөсү, 16/7", "ул. Асаналиева, 16/7"),
				Coords:    entities.Coordinates{Lat: 42.8552, Lng: 74.5772},
				TwoGISURL: "https://2gis.kg/bishkek/search/Асаналиев%2016%2F7",
			},
		},
	})
}
