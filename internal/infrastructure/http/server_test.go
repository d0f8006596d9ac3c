package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamsal/storefront/internal/adapters/loader"
	"github.com/tamsal/storefront/internal/adapters/metrics"
	"github.com/tamsal/storefront/internal/adapters/sessionstore"
	"github.com/tamsal/storefront/internal/domain/entities"
	"github.com/tamsal/storefront/internal/domain/ports"
	"github.com/tamsal/storefront/internal/domain/usecases"
)

type fakeGenerative struct {
	mu       sync.Mutex
	resp     *ports.GenerateResponse
	err      error
	requests []*ports.GenerateRequest
	started  chan struct{}
	release  chan struct{}
}

func (f *fakeGenerative) Generate(ctx context.Context, req *ports.GenerateRequest) (*ports.GenerateResponse, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	resp, err, started, release := f.resp, f.err, f.started, f.release
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if release != nil {
		<-release
	}
	return resp, err
}

// set swaps the reply and the hold channels seen by later calls.
func (f *fakeGenerative) set(resp *ports.GenerateResponse, started, release chan struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resp, f.started, f.release = resp, started, release
}

func (f *fakeGenerative) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

type testEnv struct {
	server   *httptest.Server
	client   *http.Client
	gen      *fakeGenerative
	sessions *sessionstore.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gen := &fakeGenerative{}
	store := usecases.NewCatalogStore(usecases.NewCatalog(loader.Default()))
	sessions, err := sessionstore.New(100, entities.English)
	require.NoError(t, err)

	reg := promclient.NewRegistry()
	observer, err := metrics.NewPrometheusObserver("test", reg)
	require.NoError(t, err)
	require.NoError(t, metrics.RegisterSessionGauge("test", reg, sessions.Len))

	srv := NewServer(Deps{
		Catalog:   store,
		Estimator: usecases.NewEstimationUseCase(gen, store, observer),
		Chat:      usecases.NewChatUseCase(gen, observer),
		Locator:   usecases.NewLocator(store),
		Sessions:  sessions,
		Metrics:   promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}, "")

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &testEnv{server: ts, client: &http.Client{Jar: jar}, gen: gen, sessions: sessions}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

type cartResponse struct {
	Lines     []entities.CartLine `json:"lines"`
	Total     int64               `json:"total"`
	ItemCount int                 `json:"itemCount"`
}

func TestServer_ProductsFilter(t *testing.T) {
	env := newTestEnv(t)

	var out struct {
		Products []productView `json:"products"`
		Count    int           `json:"count"`
	}
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/products?category=All&q=MARBLE&lang=en", nil, &out))
	require.Equal(t, 1, out.Count)
	assert.Equal(t, "pvc-1", out.Products[0].ID)
	assert.Equal(t, "350 KGS", out.Products[0].PriceLabel)

	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/products?category=Laminate&lang=ru", nil, &out))
	require.Equal(t, 1, out.Count)
	assert.Equal(t, "Ламинат - Натуральный дуб (32 класс)", out.Products[0].Name)

	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/products?q=no-such-thing", nil, &out))
	assert.Equal(t, 0, out.Count)
	assert.NotNil(t, out.Products)

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/products?lang=de", nil, nil))
}

func TestServer_CategoriesAndProduct(t *testing.T) {
	env := newTestEnv(t)

	var cats struct {
		Categories []categoryView `json:"categories"`
	}
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/categories?lang=ru", nil, &cats))
	require.Len(t, cats.Categories, 5)
	assert.Equal(t, categoryView{Value: "All", Label: "Все"}, cats.Categories[0])
	assert.Equal(t, categoryView{Value: "PVC Panels", Label: "ПВХ панели"}, cats.Categories[1])

	var p productView
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/products/lin-1?lang=en", nil, &p))
	assert.Equal(t, "Semi-Commercial Linoleum - Grey Stone", p.Name)

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/products/nope", nil, nil))
}

func TestServer_CartFlow(t *testing.T) {
	env := newTestEnv(t)
	var cart cartResponse

	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/cart/items", map[string]any{"id": "pvc-1", "quantity": 2}, &cart))
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/cart/items", map[string]any{"id": "lam-1"}, &cart))
	assert.Equal(t, int64(1550), cart.Total)
	assert.Equal(t, 3, cart.ItemCount)
	assert.Len(t, cart.Lines, 2)

	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/cart/items", map[string]any{"id": "pvc-1", "quantity": 1}, &cart))
	assert.Len(t, cart.Lines, 2)
	assert.Equal(t, 3, cart.Lines[0].Quantity)

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/api/cart/items", map[string]any{"id": "pvc-1", "quantity": 0}, nil))
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodPost, "/api/cart/items", map[string]any{"id": "ghost"}, nil))

	require.Equal(t, http.StatusOK, env.do(t, http.MethodDelete, "/api/cart/items/pvc-1", nil, &cart))
	require.Equal(t, http.StatusOK, env.do(t, http.MethodDelete, "/api/cart/items/pvc-1", nil, &cart))
	assert.Equal(t, int64(850), cart.Total)

	require.Equal(t, http.StatusOK, env.do(t, http.MethodDelete, "/api/cart", nil, &cart))
	assert.Empty(t, cart.Lines)
	assert.Zero(t, cart.Total)
}

func TestServer_CartsAreSessionScoped(t *testing.T) {
	env := newTestEnv(t)
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/cart/items", map[string]any{"id": "acc-1", "quantity": 4}, nil))

	stranger := &http.Client{}
	resp, err := stranger.Get(env.server.URL + "/api/cart")
	require.NoError(t, err)
	defer resp.Body.Close()

	var cart cartResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&cart))
	assert.Empty(t, cart.Lines)
}

func TestServer_EstimateAndApply(t *testing.T) {
	env := newTestEnv(t)
	env.gen.resp = &ports.GenerateResponse{
		Text: `{"text":"You need laminate and underlayment.","suggestedItems":[{"id":"lam-1","quantity":20},{"id":"acc-1","quantity":20},{"id":"ghost","quantity":3}]}`,
	}

	var est struct {
		Result *entities.EstimationResult `json:"result"`
		Lines  []shoppingLineView         `json:"lines"`
		Total  int64                      `json:"total"`
	}
	body := map[string]any{"projectType": "bedroom floor", "dimensions": "4m x 5m", "lang": "en"}
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/estimate", body, &est))
	require.NotNil(t, est.Result)
	assert.Equal(t, "You need laminate and underlayment.", est.Result.Text)
	assert.Len(t, est.Lines, 2)
	assert.Equal(t, int64(20*850+20*65), est.Total)

	var applied struct {
		Added int          `json:"added"`
		Cart  cartResponse `json:"cart"`
	}
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/estimate/apply", nil, &applied))
	assert.Equal(t, 2, applied.Added)
	assert.Equal(t, 40, applied.Cart.ItemCount)
}

func TestServer_EstimateMalformedReplyLeavesCartAlone(t *testing.T) {
	env := newTestEnv(t)
	env.gen.resp = &ports.GenerateResponse{Text: "Sure! You need about 20 square meters."}

	var est map[string]any
	body := map[string]any{"projectType": "bedroom floor", "dimensions": "4m x 5m"}
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/estimate", body, &est))
	assert.Contains(t, est, "result")
	assert.Nil(t, est["result"])

	assert.Equal(t, http.StatusConflict, env.do(t, http.MethodPost, "/api/estimate/apply", nil, nil))

	var cart cartResponse
	env.do(t, http.MethodGet, "/api/cart", nil, &cart)
	assert.Empty(t, cart.Lines)
}

func TestServer_EstimateRejectsEmptyInput(t *testing.T) {
	env := newTestEnv(t)

	status := env.do(t, http.MethodPost, "/api/estimate", map[string]any{"projectType": " ", "dimensions": "4x5"}, nil)

	assert.Equal(t, http.StatusBadRequest, status)
	assert.Zero(t, env.gen.calls())
}

func TestServer_ChatConversation(t *testing.T) {
	env := newTestEnv(t)
	env.gen.resp = &ports.GenerateResponse{
		Text: "Use a 3mm underlayment.",
		Citations: []entities.Citation{
			{Kind: entities.CitationWeb, Title: "Guide", URI: "https://example.com/guide"},
		},
	}

	var reply struct {
		Reply entities.ChatReply `json:"reply"`
	}
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/chat", map[string]any{"message": "Which underlayment?"}, &reply))
	assert.Equal(t, "Use a 3mm underlayment.", reply.Reply.Text)
	require.Len(t, reply.Reply.Citations, 1)

	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/chat", map[string]any{"message": "Thanks"}, &reply))
	second := env.gen.requests[1]
	require.Len(t, second.Contents, 3)
	assert.Equal(t, "Which underlayment?", second.Contents[0].Text)
	assert.Equal(t, entities.RoleAssistant, second.Contents[1].Role)

	var history struct {
		Messages []entities.ChatMessage `json:"messages"`
	}
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/chat", nil, &history))
	require.Len(t, history.Messages, 5)
	assert.Equal(t, usecases.WelcomeMessage(entities.English), history.Messages[0].Text)

	require.Equal(t, http.StatusOK, env.do(t, http.MethodDelete, "/api/chat", nil, &history))
	assert.Len(t, history.Messages, 1)
}

func TestServer_ChatFailureFallsBack(t *testing.T) {
	env := newTestEnv(t)
	env.gen.err = &ports.StatusError{StatusCode: http.StatusServiceUnavailable}

	var reply struct {
		Reply entities.ChatReply `json:"reply"`
	}
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/chat", map[string]any{"message": "hi"}, &reply))
	assert.Equal(t, usecases.FallbackReply, reply.Reply.Text)
	assert.Empty(t, reply.Reply.Citations)
}

func TestServer_ChatRejectsBlankMessage(t *testing.T) {
	env := newTestEnv(t)

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/api/chat", map[string]any{"message": "   "}, nil))
	assert.Zero(t, env.gen.calls())
}

func TestServer_ChatRejectsConcurrentRequest(t *testing.T) {
	env := newTestEnv(t)
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/session", nil, nil))

	env.gen.resp = &ports.GenerateResponse{Text: "ok"}
	env.gen.started = make(chan struct{}, 2)
	env.gen.release = make(chan struct{})

	done := make(chan int, 1)
	go func() {
		done <- env.do(t, http.MethodPost, "/api/chat", map[string]any{"message": "first"}, nil)
	}()
	<-env.gen.started

	second := make(chan int, 1)
	go func() {
		second <- env.do(t, http.MethodPost, "/api/chat", map[string]any{"message": "second"}, nil)
	}()
	select {
	case status := <-second:
		assert.Equal(t, http.StatusTooManyRequests, status)
	case <-env.gen.started:
		close(env.gen.release)
		t.Fatal("second chat reached the model while the first was pending")
	case <-time.After(5 * time.Second):
		close(env.gen.release)
		t.Fatal("second chat did not return")
	}

	close(env.gen.release)
	assert.Equal(t, http.StatusOK, <-done)
	assert.Equal(t, 1, env.gen.calls())
}

func TestServer_EstimateSupersededByNewerRequest(t *testing.T) {
	env := newTestEnv(t)
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/session", nil, nil))

	hold := make(chan struct{})
	env.gen.set(&ports.GenerateResponse{Text: `{"text":"old","suggestedItems":[{"id":"pvc-1","quantity":1}]}`}, make(chan struct{}, 1), hold)

	body := map[string]any{"projectType": "bathroom walls", "dimensions": "3m x 2.5m", "lang": "en"}
	first := make(chan int, 1)
	go func() {
		first <- env.do(t, http.MethodPost, "/api/estimate", body, nil)
	}()
	select {
	case <-env.gen.started:
	case <-time.After(5 * time.Second):
		t.Fatal("first estimate did not reach the model")
	}

	env.gen.set(&ports.GenerateResponse{Text: `{"text":"new","suggestedItems":[{"id":"lam-1","quantity":2}]}`}, nil, nil)
	var est struct {
		Result *entities.EstimationResult `json:"result"`
	}
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/estimate", body, &est))
	require.NotNil(t, est.Result)
	assert.Equal(t, "new", est.Result.Text)

	close(hold)
	assert.Equal(t, http.StatusConflict, <-first)

	var applied struct {
		Added int          `json:"added"`
		Cart  cartResponse `json:"cart"`
	}
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/estimate/apply", nil, &applied))
	require.Len(t, applied.Cart.Lines, 1)
	assert.Equal(t, "lam-1", applied.Cart.Lines[0].ProductID)
	assert.Equal(t, 2, applied.Cart.Lines[0].Quantity)
}

func TestServer_LanguageSwitchResetsConversation(t *testing.T) {
	env := newTestEnv(t)
	env.gen.resp = &ports.GenerateResponse{Text: "hello"}
	env.do(t, http.MethodPost, "/api/chat", map[string]any{"message": "hi"}, nil)
	env.do(t, http.MethodPost, "/api/cart/items", map[string]any{"id": "pvc-1"}, nil)

	var out struct {
		Language string                 `json:"language"`
		Messages []entities.ChatMessage `json:"messages"`
	}
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPut, "/api/session/language", map[string]any{"lang": "kg"}, &out))
	assert.Equal(t, "ky", out.Language)
	require.Len(t, out.Messages, 1)
	assert.Equal(t, usecases.WelcomeMessage(entities.Kyrgyz), out.Messages[0].Text)

	var cart cartResponse
	env.do(t, http.MethodGet, "/api/cart", nil, &cart)
	assert.Len(t, cart.Lines, 1)

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPut, "/api/session/language", map[string]any{"lang": "fr"}, nil))
}

func TestServer_EndSession(t *testing.T) {
	env := newTestEnv(t)
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/cart/items", map[string]any{"id": "pvc-1"}, nil))
	require.Equal(t, 1, env.sessions.Len())

	assert.Equal(t, http.StatusNoContent, env.do(t, http.MethodDelete, "/api/session", nil, nil))
	assert.Zero(t, env.sessions.Len())

	var cart cartResponse
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/cart", nil, &cart))
	assert.Empty(t, cart.Lines)
	assert.Equal(t, 1, env.sessions.Len())
}

func TestServer_Locations(t *testing.T) {
	env := newTestEnv(t)

	var out struct {
		Locations []locationView `json:"locations"`
	}
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/locations?lang=en", nil, &out))
	require.Len(t, out.Locations, 2)
	assert.Equal(t, "Main Showroom - Asanaliev", out.Locations[0].Name)
	assert.Equal(t, "https://www.google.com/maps/search/?api=1&query=42.8552,74.5772", out.Locations[0].Links.GoogleMaps)
}

func TestServer_HealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)
	env.gen.resp = &ports.GenerateResponse{Text: "ok"}
	env.do(t, http.MethodPost, "/api/chat", map[string]any{"message": "hi"}, nil)

	var health map[string]any
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/health", nil, &health))
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, float64(6), health["products"])

	resp, err := env.client.Get(env.server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	var buf bytes.Buffer
	buf.ReadFrom(resp.Body)
	assert.Contains(t, buf.String(), `test_genai_calls_total{operation="chat",outcome="success"} 1`)
	assert.Contains(t, buf.String(), "test_sessions_active 1")
}
