// Package http provides the HTTP server infrastructure.
// Clean Architecture: Framework/driver layer - outermost circle.
package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/tamsal/storefront/internal/adapters/sessionstore"
	"github.com/tamsal/storefront/internal/domain/entities"
	"github.com/tamsal/storefront/internal/domain/usecases"
)

const (
	sessionCookie = "tamsal_session"
	cookieMaxAge  = 60 * 60 * 24 * 30
	maxBodyBytes  = 64 << 10
)

// Deps are the collaborators the server routes requests to.
type Deps struct {
	Catalog   *usecases.CatalogStore
	Estimator *usecases.EstimationUseCase
	Chat      *usecases.ChatUseCase
	Locator   *usecases.Locator
	Sessions  *sessionstore.Store
	// Metrics serves /metrics. Defaults to the Prometheus default gatherer.
	Metrics http.Handler
	Log     logrus.FieldLogger
}

// Server is the HTTP server for the storefront API.
type Server struct {
	catalog   *usecases.CatalogStore
	estimator *usecases.EstimationUseCase
	chat      *usecases.ChatUseCase
	locator   *usecases.Locator
	sessions  *sessionstore.Store
	metrics   http.Handler
	log       logrus.FieldLogger
	addr      string
}

// NewServer creates a new HTTP server.
func NewServer(deps Deps, addr string) *Server {
	if deps.Metrics == nil {
		deps.Metrics = promhttp.Handler()
	}
	if deps.Log == nil {
		discard := logrus.New()
		discard.Out = io.Discard
		deps.Log = discard
	}
	return &Server{
		catalog:   deps.Catalog,
		estimator: deps.Estimator,
		chat:      deps.Chat,
		locator:   deps.Locator,
		sessions:  deps.Sessions,
		metrics:   deps.Metrics,
		log:       deps.Log.WithField("component", "http"),
		addr:      addr,
	}
}

// Handler builds the routed, instrumented handler.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/categories", s.handleCategories).Methods(http.MethodGet)
	r.HandleFunc("/api/products", s.handleProducts).Methods(http.MethodGet)
	r.HandleFunc("/api/products/{id}", s.handleProduct).Methods(http.MethodGet)

	r.HandleFunc("/api/cart", s.handleCart).Methods(http.MethodGet)
	r.HandleFunc("/api/cart", s.handleClearCart).Methods(http.MethodDelete)
	r.HandleFunc("/api/cart/items", s.handleAddToCart).Methods(http.MethodPost)
	r.HandleFunc("/api/cart/items/{id}", s.handleRemoveFromCart).Methods(http.MethodDelete)

	r.HandleFunc("/api/estimate", s.handleEstimate).Methods(http.MethodPost)
	r.HandleFunc("/api/estimate/apply", s.handleApplyEstimate).Methods(http.MethodPost)

	r.HandleFunc("/api/chat", s.handleChatHistory).Methods(http.MethodGet)
	r.HandleFunc("/api/chat", s.handleChat).Methods(http.MethodPost)
	r.HandleFunc("/api/chat", s.handleResetChat).Methods(http.MethodDelete)

	r.HandleFunc("/api/locations", s.handleLocations).Methods(http.MethodGet)
	r.HandleFunc("/api/session", s.handleSession).Methods(http.MethodGet)
	r.HandleFunc("/api/session", s.handleEndSession).Methods(http.MethodDelete)
	r.HandleFunc("/api/session/language", s.handleSetLanguage).Methods(http.MethodPut)

	r.Handle("/metrics", s.metrics).Methods(http.MethodGet)

	var handler http.Handler = r
	handler = &logHandler{log: s.log, next: handler}
	handler = otelhttp.NewHandler(handler, "storefront")
	return handler
}

// Start runs the HTTP server until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
		// Generative calls can take tens of seconds.
		WriteTimeout: 180 * time.Second,
	}

	s.log.WithField("addr", s.addr).Info("storefront server starting")

	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutting down")
	}
	if err := <-errCh; err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// session returns the caller's session, creating it and setting the cookie when needed.
func (s *Server) session(w http.ResponseWriter, r *http.Request) *sessionstore.Session {
	var id string
	if c, err := r.Cookie(sessionCookie); err == nil {
		id = c.Value
	}
	sess, created := s.sessions.GetOrCreate(id)
	if created {
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    sess.ID,
			Path:     "/",
			MaxAge:   cookieMaxAge,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return sess
}

// language resolves an explicit language code, falling back to the session's.
func language(sess *sessionstore.Session, code string) (entities.Language, error) {
	if code == "" {
		return sess.Language(), nil
	}
	return entities.ParseLanguage(code)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"products": s.catalog.Current().Len(),
	})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	lang, err := language(sess, r.URL.Query().Get("lang"))
	if err != nil {
		s.renderError(w, r, errors.Wrap(err, "invalid lang"), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"categories": categoryViews(s.catalog.Current(), lang),
	})
}

func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	q := r.URL.Query()
	lang, err := language(sess, q.Get("lang"))
	if err != nil {
		s.renderError(w, r, errors.Wrap(err, "invalid lang"), http.StatusBadRequest)
		return
	}

	products := usecases.FilterProducts(s.catalog.Current().Products(), usecases.ProductFilter{
		Category: q.Get("category"),
		Query:    q.Get("q"),
		Language: lang,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"products": newProductViews(products, lang),
		"count":    len(products),
	})
}

func (s *Server) handleProduct(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	lang, err := language(sess, r.URL.Query().Get("lang"))
	if err != nil {
		s.renderError(w, r, errors.Wrap(err, "invalid lang"), http.StatusBadRequest)
		return
	}

	id := mux.Vars(r)["id"]
	p, ok := s.catalog.Current().Find(id)
	if !ok {
		s.renderError(w, r, errors.Errorf("product %q not found", id), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, newProductView(p, lang))
}

func (s *Server) handleCart(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	var view cartView
	sess.Do(func(st *sessionstore.State) { view = newCartView(st.Cart) })
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleAddToCart(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	var req struct {
		ID       string `json:"id"`
		Quantity *int   `json:"quantity"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.renderError(w, r, err, http.StatusBadRequest)
		return
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}
	if quantity <= 0 {
		s.renderError(w, r, errors.Errorf("quantity must be positive, got %d", quantity), http.StatusBadRequest)
		return
	}

	p, ok := s.catalog.Current().Find(req.ID)
	if !ok {
		s.renderError(w, r, errors.Errorf("product %q not found", req.ID), http.StatusNotFound)
		return
	}

	var view cartView
	sess.Do(func(st *sessionstore.State) {
		st.Cart.AddItem(p, quantity, st.Language)
		view = newCartView(st.Cart)
	})
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleRemoveFromCart(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	id := mux.Vars(r)["id"]
	var view cartView
	sess.Do(func(st *sessionstore.State) {
		st.Cart.RemoveItem(id)
		view = newCartView(st.Cart)
	})
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleClearCart(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	var view cartView
	sess.Do(func(st *sessionstore.State) {
		st.Cart.Clear()
		view = newCartView(st.Cart)
	})
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	var req struct {
		ProjectType string `json:"projectType"`
		Dimensions  string `json:"dimensions"`
		Lang        string `json:"lang"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.renderError(w, r, err, http.StatusBadRequest)
		return
	}
	lang, err := language(sess, req.Lang)
	if err != nil {
		s.renderError(w, r, errors.Wrap(err, "invalid lang"), http.StatusBadRequest)
		return
	}
	estReq := usecases.EstimationRequest{ProjectType: req.ProjectType, Dimensions: req.Dimensions, Language: lang}
	if err := estReq.Validate(); err != nil {
		s.renderError(w, r, err, http.StatusBadRequest)
		return
	}

	token := sess.Estimates.Begin()
	outcome := s.estimator.EstimateOutcome(r.Context(), estReq)
	if outcome.Failure != usecases.FailureNone {
		s.log.WithFields(logrus.Fields{
			"failure": outcome.Failure.Label(),
			"session": sess.ID,
		}).WithError(outcome.Err).Warn("estimation failed")
	}

	committed := sess.Estimates.Commit(token, func() {
		sess.Do(func(st *sessionstore.State) { st.LastEstimate = outcome.Result })
	})
	if !committed {
		s.renderError(w, r, errors.New("estimate superseded by a newer request"), http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusOK, newEstimateView(s.catalog.Current(), outcome.Result, lang))
}

func (s *Server) handleApplyEstimate(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	catalog := s.catalog.Current()

	var (
		added int
		found bool
		view  cartView
	)
	sess.Do(func(st *sessionstore.State) {
		if st.LastEstimate == nil {
			return
		}
		found = true
		added = st.Cart.AddSuggestions(catalog, st.LastEstimate.SuggestedItems, st.Language)
		view = newCartView(st.Cart)
	})
	if !found {
		s.renderError(w, r, errors.New("no estimate to apply"), http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"added": added, "cart": view})
}

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	var msgs []entities.ChatMessage
	sess.Do(func(st *sessionstore.State) { msgs = st.Conversation.Messages() })
	writeJSON(w, http.StatusOK, map[string]any{
		"messages": msgs,
		"pending":  sess.Chats.Pending(),
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	var req struct {
		Message string `json:"message"`
		Lang    string `json:"lang"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.renderError(w, r, err, http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		s.renderError(w, r, errors.New("message is empty"), http.StatusBadRequest)
		return
	}
	lang, err := language(sess, req.Lang)
	if err != nil {
		s.renderError(w, r, errors.Wrap(err, "invalid lang"), http.StatusBadRequest)
		return
	}

	token, ok := sess.Chats.TryBegin()
	if !ok {
		s.renderError(w, r, errors.New("a reply is already pending"), http.StatusTooManyRequests)
		return
	}

	var history []entities.ChatMessage
	sess.Do(func(st *sessionstore.State) { history = st.Conversation.History() })

	outcome := s.chat.ReplyOutcome(r.Context(), usecases.ChatRequest{
		Message:  req.Message,
		History:  history,
		Language: lang,
	})
	if outcome.Failure != usecases.FailureNone {
		s.log.WithFields(logrus.Fields{
			"failure": outcome.Failure.Label(),
			"session": sess.ID,
		}).WithError(outcome.Err).Warn("chat reply failed")
	}

	message := strings.TrimSpace(req.Message)
	sess.Chats.Commit(token, func() {
		sess.Do(func(st *sessionstore.State) { st.Conversation.Record(message, outcome.Reply) })
	})
	writeJSON(w, http.StatusOK, map[string]any{"reply": outcome.Reply})
}

func (s *Server) handleResetChat(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	sess.Chats.Cancel()
	var msgs []entities.ChatMessage
	sess.Do(func(st *sessionstore.State) {
		st.Conversation.Reset(st.Language)
		msgs = st.Conversation.Messages()
	})
	writeJSON(w, http.StatusOK, map[string]any{"messages": msgs})
}

func (s *Server) handleLocations(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	lang, err := language(sess, r.URL.Query().Get("lang"))
	if err != nil {
		s.renderError(w, r, errors.Wrap(err, "invalid lang"), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"locations": newLocationViews(s.locator.Locations(), lang),
	})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	langs := make([]map[string]string, 0, len(entities.Languages))
	for _, l := range entities.Languages {
		langs = append(langs, map[string]string{"code": string(l), "name": l.DisplayName()})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"language":  sess.Language(),
		"languages": langs,
	})
}

// handleEndSession drops the caller's session and expires its cookie.
func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookie); err == nil {
		if sess, ok := s.sessions.Get(c.Value); ok {
			sess.Chats.Cancel()
			sess.Estimates.Cancel()
		}
		s.sessions.Delete(c.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetLanguage(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	var req struct {
		Lang string `json:"lang"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.renderError(w, r, err, http.StatusBadRequest)
		return
	}
	lang, err := entities.ParseLanguage(req.Lang)
	if err != nil {
		s.renderError(w, r, errors.Wrap(err, "invalid lang"), http.StatusBadRequest)
		return
	}

	sess.Chats.Cancel()
	sess.Estimates.Cancel()
	sess.SetLanguage(lang)

	var msgs []entities.ChatMessage
	sess.Do(func(st *sessionstore.State) { msgs = st.Conversation.Messages() })
	writeJSON(w, http.StatusOK, map[string]any{"language": lang, "messages": msgs})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(err, "invalid request body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, err error, code int) {
	entry := s.log.WithFields(logrus.Fields{
		"http.req.path":   r.URL.Path,
		"http.req.method": r.Method,
		"status":          code,
	}).WithError(err)
	if code >= http.StatusInternalServerError {
		entry.Error("request error")
	} else {
		entry.Debug("request rejected")
	}
	writeJSON(w, code, map[string]any{
		"error":  err.Error(),
		"status": http.StatusText(code),
	})
}
