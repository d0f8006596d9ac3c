package http

import (
	"github.com/tamsal/storefront/internal/domain/entities"
	"github.com/tamsal/storefront/internal/domain/usecases"
)

var allCategoryLabels = entities.LocalizedText{
	entities.English: "All",
	entities.Kyrgyz:  "Баары",
	entities.Russian: "Все",
}

type productView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Unit        string `json:"unit"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	PriceLabel  string `json:"priceLabel"`
	Stock       int    `json:"stock"`
	Image       string `json:"image"`
}

func newProductView(p entities.Product, lang entities.Language) productView {
	return productView{
		ID:          p.ID,
		Name:        p.Name.In(lang),
		Category:    p.Category.In(lang),
		Unit:        p.Unit.In(lang),
		Description: p.Description.In(lang),
		Price:       p.Price,
		PriceLabel:  entities.FormatPrice(p.Price),
		Stock:       p.Stock,
		Image:       p.Image,
	}
}

func newProductViews(products []entities.Product, lang entities.Language) []productView {
	out := make([]productView, 0, len(products))
	for _, p := range products {
		out = append(out, newProductView(p, lang))
	}
	return out
}

type categoryView struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// categoryViews pairs each reference-language category with its display label,
// taken from the first product filed under it.
func categoryViews(catalog *usecases.Catalog, lang entities.Language) []categoryView {
	labels := make(map[string]string)
	for _, p := range catalog.Products() {
		ref := p.Category.In(entities.ReferenceLanguage)
		if _, ok := labels[ref]; !ok {
			labels[ref] = p.Category.In(lang)
		}
	}
	labels[entities.CategoryAll] = allCategoryLabels.In(lang)

	cats := catalog.Categories()
	out := make([]categoryView, 0, len(cats))
	for _, c := range cats {
		label, ok := labels[c]
		if !ok {
			label = c
		}
		out = append(out, categoryView{Value: c, Label: label})
	}
	return out
}

type cartView struct {
	Lines      []entities.CartLine `json:"lines"`
	Total      int64               `json:"total"`
	TotalLabel string              `json:"totalLabel"`
	ItemCount  int                 `json:"itemCount"`
}

func newCartView(cart *usecases.Cart) cartView {
	return cartView{
		Lines:      cart.Lines(),
		Total:      cart.Total(),
		TotalLabel: entities.FormatPrice(cart.Total()),
		ItemCount:  cart.ItemCount(),
	}
}

type shoppingLineView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Unit      string `json:"unit"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
	LineTotal int64  `json:"lineTotal"`
}

type estimateView struct {
	Result *entities.EstimationResult `json:"result"`
	Lines  []shoppingLineView         `json:"lines,omitempty"`
	Total  int64                      `json:"total,omitempty"`
}

func newEstimateView(catalog *usecases.Catalog, result *entities.EstimationResult, lang entities.Language) estimateView {
	view := estimateView{Result: result}
	if result == nil {
		return view
	}
	list := usecases.ResolveSuggestions(catalog, result)
	for _, l := range list.Lines {
		view.Lines = append(view.Lines, shoppingLineView{
			ID:        l.Product.ID,
			Name:      l.Product.Name.In(lang),
			Unit:      l.Product.Unit.In(lang),
			Price:     l.Product.Price,
			Quantity:  l.Quantity,
			LineTotal: l.LineTotal,
		})
	}
	view.Total = list.Total
	return view
}

type locationView struct {
	Name    string               `json:"name"`
	Address string               `json:"address"`
	Coords  entities.Coordinates `json:"coords"`
	Links   usecases.MapLinks    `json:"links"`
}

func newLocationViews(locs []entities.StoreLocation, lang entities.Language) []locationView {
	out := make([]locationView, 0, len(locs))
	for _, loc := range locs {
		out = append(out, locationView{
			Name:    loc.Name.In(lang),
			Address: loc.Address.In(lang),
			Coords:  loc.Coords,
			Links:   usecases.MapLinksFor(loc),
		})
	}
	return out
}
