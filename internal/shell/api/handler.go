// Package api provides HTTP handlers for the showroom API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/artpar/showroom/internal/core/auth"
	"github.com/artpar/showroom/internal/core/domain"
	"github.com/artpar/showroom/internal/core/editor"
	"github.com/artpar/showroom/internal/core/validation"
	authmw "github.com/artpar/showroom/internal/shell/api/middleware"
	"github.com/artpar/showroom/internal/shell/api/openapi"
	"github.com/artpar/showroom/internal/shell/store"
	"github.com/artpar/showroom/internal/shell/workflow"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// =============================================================================
// Dependencies
// =============================================================================

// ProductRepository is the product storage the API needs.
// *store.Products satisfies it.
type ProductRepository interface {
	workflow.ProductStore
	CreateProduct(ctx context.Context, product *domain.Product) error
	ListProducts(ctx context.Context, opts store.ListOptions) ([]domain.Product, error)
}

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config wires a Handler.
type Config struct {
	Products ProductRepository
	Sessions *workflow.Registry
	Health   Pinger
	Auth     authmw.AuthConfig
	Logger   *slog.Logger
}

// =============================================================================
// Handler
// =============================================================================

// Handler provides HTTP handlers for the API.
type Handler struct {
	products ProductRepository
	sessions *workflow.Registry
	health   Pinger
	auth     *authmw.AuthMiddleware
	docs     *openapi.Generator
	logger   *slog.Logger
}

// NewHandler creates a new API handler.
func NewHandler(cfg Config) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Auth.Logger == nil {
		cfg.Auth.Logger = cfg.Logger
	}

	docs := openapi.NewGenerator()
	docs.Register(apiRoutes()...)

	return &Handler{
		products: cfg.Products,
		sessions: cfg.Sessions,
		health:   cfg.Health,
		auth:     authmw.NewAuthMiddleware(cfg.Auth),
		docs:     docs,
		logger:   cfg.Logger,
	}
}

// Routes returns the router with all routes configured.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(h.jsonContentType)
	r.Use(h.requestIDHeader)

	r.Get("/health", h.handleHealth)
	r.Get("/ready", h.handleReady)
	r.Get("/openapi.json", h.docs.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(h.auth.Handler)

		r.Route("/products", func(r chi.Router) {
			r.With(authmw.RequireAuth(h.logger)).Post("/", h.handleCreateProduct)
			r.Get("/", h.handleListProducts)
			r.Get("/{id}", h.handleGetProduct)
			r.Post("/{id}/edit-sessions", h.handleOpenEditSession)
		})

		r.Route("/edit-sessions/{sid}", func(r chi.Router) {
			r.Get("/", h.handleGetEditSession)
			r.Delete("/", h.handleCloseEditSession)
			r.Put("/fields/{field}", h.handleEditField)
			r.Post("/submit", h.handleSubmit)
			r.Post("/retry", h.handleRetry)
		})
	})

	return r
}

// =============================================================================
// Middleware
// =============================================================================

// jsonContentType sets Content-Type header to application/json.
func (h *Handler) jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// requestIDHeader copies the request ID to the response header.
func (h *Handler) requestIDHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reqID := middleware.GetReqID(r.Context()); reqID != "" {
			w.Header().Set("X-Request-ID", reqID)
		}
		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// Health Handlers
// =============================================================================

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy"})
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{
		"edit_sessions": strconv.Itoa(h.sessions.Len()),
	}

	if h.health != nil {
		if err := h.health.Ping(r.Context()); err != nil {
			h.logger.Warn("readiness check failed", "error", err)
			checks["database"] = "failed"
			h.writeJSON(w, http.StatusServiceUnavailable, ReadyResponse{
				Status: "not_ready",
				Checks: checks,
			})
			return
		}
	}
	checks["database"] = "ok"

	h.writeJSON(w, http.StatusOK, ReadyResponse{
		Status: "ready",
		Checks: checks,
	})
}

// =============================================================================
// Product Handlers
// =============================================================================

func (h *Handler) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON", "invalid_json")
		return
	}

	fields := domain.ProductFields{
		Name:         req.Name,
		Organization: req.Organization,
		URL:          req.URL,
		Description:  req.Description,
	}
	if errs := validation.ValidateProduct(fields); len(errs) > 0 {
		h.writeFieldErrors(w, errs)
		return
	}

	actor := auth.FromContext(r.Context())
	product, err := domain.NewProduct(actor.UserID, fields)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error(), "validation_error")
		return
	}

	if err := h.products.CreateProduct(r.Context(), product); err != nil {
		h.logger.Error("failed to create product", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to create product", "internal_error")
		return
	}

	h.logger.Info("product created", "product_id", product.ID, "owner_id", product.OwnerID)
	h.writeJSON(w, http.StatusCreated, productToResponse(product))
}

func (h *Handler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	opts := store.ListOptions{
		Limit:  queryInt(r, "limit"),
		Offset: queryInt(r, "offset"),
	}.Normalize()

	products, err := h.products.ListProducts(r.Context(), opts)
	if err != nil {
		h.logger.Error("failed to list products", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to list products", "internal_error")
		return
	}

	resp := ListProductsResponse{
		Products: make([]ProductResponse, 0, len(products)),
		Limit:    opts.Limit,
		Offset:   opts.Offset,
	}
	for i := range products {
		resp.Products = append(resp.Products, productToResponse(&products[i]))
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	product, err := h.products.GetProduct(r.Context(), id)
	if err != nil {
		if store.IsNotFound(err) {
			h.writeError(w, http.StatusNotFound, "product not found", "not_found")
			return
		}
		h.logger.Error("failed to get product", "product_id", id, "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to get product", "internal_error")
		return
	}

	h.writeJSON(w, http.StatusOK, productToResponse(product))
}

// =============================================================================
// Edit Session Handlers
// =============================================================================

func (h *Handler) handleOpenEditSession(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "id")
	actor := auth.FromContext(r.Context())

	sess := h.sessions.Open(actor.UserID)
	err := sess.Workflow.Enter(r.Context(), productID)

	var terr *workflow.TransportError
	switch {
	case err == nil:
		h.writeSessionView(w, sess, http.StatusCreated)
	case errors.As(err, &terr):
		h.writeSessionView(w, sess, http.StatusAccepted)
	default:
		// Covers a session closed or reaped while its fetch was in flight.
		h.sessions.Remove(sess.ID)
		h.writeWorkflowError(w, sess, err)
	}
}

func (h *Handler) handleGetEditSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookupSession(w, r)
	if !ok {
		return
	}
	h.writeSessionView(w, sess, http.StatusOK)
}

func (h *Handler) handleCloseEditSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookupSession(w, r)
	if !ok {
		return
	}
	h.sessions.Remove(sess.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleEditField(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookupSession(w, r)
	if !ok {
		return
	}

	field := chi.URLParam(r, "field")
	if !domain.IsEditableField(field) {
		h.writeError(w, http.StatusBadRequest, domain.ErrUnknownField.Error(), "unknown_field")
		return
	}

	var req EditFieldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON", "invalid_json")
		return
	}

	if err := sess.Workflow.EditField(field, req.Value); err != nil {
		h.writeWorkflowError(w, sess, err)
		return
	}
	h.writeSessionView(w, sess, http.StatusOK)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookupSession(w, r)
	if !ok {
		return
	}
	h.writeOutcome(w, sess, sess.Workflow.Submit(r.Context()))
}

func (h *Handler) handleRetry(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookupSession(w, r)
	if !ok {
		return
	}
	h.writeOutcome(w, sess, sess.Workflow.Retry(r.Context()))
}

// lookupSession finds the caller's session. Unknown sessions, sessions owned
// by someone else and denied sessions all get the cannot-access response.
func (h *Handler) lookupSession(w http.ResponseWriter, r *http.Request) (*workflow.Session, bool) {
	actor := auth.FromContext(r.Context())
	sess, ok := h.sessions.Get(chi.URLParam(r, "sid"), actor.UserID)
	if !ok {
		h.writeCannotAccess(w)
		return nil, false
	}

	v, open := sess.Workflow.State()
	if !open || v.Denied() {
		h.sessions.Remove(sess.ID)
		h.writeCannotAccess(w)
		return nil, false
	}
	return sess, true
}

// writeOutcome renders the result of a store-backed session operation.
func (h *Handler) writeOutcome(w http.ResponseWriter, sess *workflow.Session, err error) {
	if err != nil {
		h.writeWorkflowError(w, sess, err)
		return
	}
	if redirect := sess.Redirect(); redirect != "" {
		h.writeJSON(w, http.StatusOK, SubmitResponse{
			Phase:    string(editor.PhaseDone),
			Redirect: redirect,
		})
		return
	}
	h.writeSessionView(w, sess, http.StatusOK)
}

func (h *Handler) writeWorkflowError(w http.ResponseWriter, sess *workflow.Session, err error) {
	var verr *editor.ValidationError
	var terr *workflow.TransportError

	switch {
	case errors.As(err, &verr):
		h.writeFieldErrors(w, verr.Fields)
	case errors.As(err, &terr):
		h.writeSessionView(w, sess, http.StatusAccepted)
	case errors.Is(err, workflow.ErrSubmitInFlight):
		h.writeError(w, http.StatusConflict, "a save is already in progress", "submit_in_flight")
	case errors.Is(err, workflow.ErrNotEditing):
		h.writeError(w, http.StatusConflict, "edit session is not accepting changes", "not_editing")
	case errors.Is(err, workflow.ErrNothingToRetry):
		h.writeError(w, http.StatusConflict, "nothing to retry", "nothing_to_retry")
	case errors.Is(err, workflow.ErrSessionClosed), errors.Is(err, workflow.ErrNoSession):
		h.writeCannotAccess(w)
	default:
		h.logger.Error("edit session operation failed", "session_id", sess.ID, "error", err)
		h.writeError(w, http.StatusInternalServerError, "edit session operation failed", "internal_error")
	}
}

// writeSessionView renders the session, or the cannot-access response if it
// is denied or gone. Denied sessions are dropped from the registry.
func (h *Handler) writeSessionView(w http.ResponseWriter, sess *workflow.Session, status int) {
	v, open := sess.Workflow.State()
	if !open || v.Denied() {
		h.sessions.Remove(sess.ID)
		h.writeCannotAccess(w)
		return
	}
	h.writeJSON(w, status, viewToResponse(sess.ID, v))
}

// =============================================================================
// Helpers
// =============================================================================

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode JSON", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message, code string) {
	h.writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

func (h *Handler) writeFieldErrors(w http.ResponseWriter, fields map[string]string) {
	h.writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
		Error:       "validation failed",
		Code:        "validation_error",
		FieldErrors: fields,
	})
}

func (h *Handler) writeCannotAccess(w http.ResponseWriter) {
	h.writeError(w, http.StatusNotFound, editor.CannotAccessMessage, "cannot_access")
}

// queryInt reads a non-negative integer query parameter; anything else is 0.
func queryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
