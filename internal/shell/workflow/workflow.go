// Package workflow runs the product edit session against real collaborators.
//
// A Workflow owns at most one editor.Session at a time. It performs the
// store I/O the pure state machine asks for, guards against a second submit
// while one is outstanding, and drops results that arrive for a session that
// has since been closed or replaced.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"

	"github.com/artpar/showroom/internal/core/auth"
	"github.com/artpar/showroom/internal/core/domain"
	"github.com/artpar/showroom/internal/core/editor"
	"github.com/artpar/showroom/internal/shell/store"
)

// HomePath is where the actor is sent after a successful save.
const HomePath = "/"

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrNoSession is returned when an operation needs an entered session.
	ErrNoSession = errors.New("no edit session")

	// ErrSessionClosed is returned when a result arrives for a session that was torn down.
	ErrSessionClosed = errors.New("edit session closed")

	// ErrNothingToRetry is returned by Retry when no store call is stalled.
	ErrNothingToRetry = errors.New("nothing to retry")

	// Re-exported so callers need only this package.
	ErrNotEditing     = editor.ErrNotEditing
	ErrSubmitInFlight = editor.ErrSubmitInFlight
)

// TransportError reports a failed store call. The session stalls in its
// current phase until Retry succeeds or the session is closed.
type TransportError struct {
	Op  string // "fetch" or "update"
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// =============================================================================
// Collaborators
// =============================================================================

// ProductStore loads and updates products.
// GetProduct must return an error wrapping store.ErrNotFound when the product is absent.
type ProductStore interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	UpdateProductFields(ctx context.Context, id string, fields domain.ProductFields) error
}

// IdentityProvider supplies the acting user. It is polled once per Enter.
type IdentityProvider interface {
	CurrentActor(ctx context.Context) auth.Context
}

// Navigator moves the UI elsewhere once a save completes.
type Navigator interface {
	GoTo(path string)
}

// IdentityFunc adapts a function to IdentityProvider.
type IdentityFunc func(ctx context.Context) auth.Context

func (f IdentityFunc) CurrentActor(ctx context.Context) auth.Context { return f(ctx) }

// StaticIdentity always reports the same actor.
func StaticIdentity(actor auth.Context) IdentityProvider {
	return IdentityFunc(func(context.Context) auth.Context { return actor })
}

// RequestIdentity reads the actor placed in the context by the auth middleware.
func RequestIdentity() IdentityProvider {
	return IdentityFunc(auth.FromContext)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(path string)

func (f NavigatorFunc) GoTo(path string) { f(path) }

// =============================================================================
// View
// =============================================================================

// View is a read-only copy of the session for rendering.
type View struct {
	ProductID   string
	Phase       editor.Phase
	Product     *domain.Product // nil unless the actor is authorized
	FieldErrors map[string]string
	InFlight    bool
	Stalled     bool
	LastError   string
}

// Denied reports whether the actor should see the "cannot access" view.
func (v View) Denied() bool {
	return v.Phase.Denied()
}

// =============================================================================
// Workflow
// =============================================================================

// Config wires a Workflow to its collaborators.
type Config struct {
	Store     ProductStore
	Identity  IdentityProvider
	Navigator Navigator
	Logger    *slog.Logger
}

// Workflow drives one UI instance's edit sessions.
type Workflow struct {
	store     ProductStore
	identity  IdentityProvider
	navigator Navigator
	logger    *slog.Logger

	mu      sync.Mutex
	session *activeSession
}

// activeSession is the live state plus the I/O bookkeeping around it.
type activeSession struct {
	state    editor.Session
	actor    auth.Context
	ctx      context.Context
	cancel   context.CancelFunc
	inFlight bool
	lastErr  error
}

// New creates a Workflow. Store and Identity are required.
func New(cfg Config) *Workflow {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Navigator == nil {
		cfg.Navigator = NavigatorFunc(func(string) {})
	}
	return &Workflow{
		store:     cfg.Store,
		identity:  cfg.Identity,
		navigator: cfg.Navigator,
		logger:    cfg.Logger.With("component", "edit_workflow"),
	}
}

// Enter opens a session for productID, replacing any current one, and loads
// the product. On return the session is Editing, Unauthorized or NotFound,
// or still Loading with a *TransportError if the fetch failed.
func (w *Workflow) Enter(ctx context.Context, productID string) error {
	actor := w.identity.CurrentActor(ctx)

	w.mu.Lock()
	w.closeLocked()
	sessCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s := &activeSession{
		state:  editor.NewSession(productID),
		actor:  actor,
		ctx:    sessCtx,
		cancel: cancel,
	}
	w.session = s
	w.mu.Unlock()

	w.logger.Debug("edit session opened", "product_id", productID, "user_id", actor.UserID)
	return w.fetch(ctx, s)
}

// fetch loads the product for s and resolves the Loading phase.
func (w *Workflow) fetch(ctx context.Context, s *activeSession) error {
	w.mu.Lock()
	if s.inFlight {
		w.mu.Unlock()
		return ErrSubmitInFlight
	}
	s.inFlight = true
	productID := s.state.ProductID
	w.mu.Unlock()

	callCtx, stop := mergeCancel(ctx, s.ctx)
	product, err := w.store.GetProduct(callCtx, productID)
	stop()

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.session != s {
		w.logger.Debug("discarding fetch result for closed session", "product_id", productID)
		return ErrSessionClosed
	}
	s.inFlight = false

	switch {
	case err == nil:
		next, terr := s.state.Loaded(*product, s.actor)
		if terr != nil {
			return terr
		}
		s.state, s.lastErr = next, nil
		if next.Phase.Denied() {
			w.logger.Info("edit access denied", "product_id", productID, "user_id", s.actor.UserID)
		}
		return nil

	case store.IsNotFound(err):
		next, terr := s.state.Missing()
		if terr != nil {
			return terr
		}
		s.state, s.lastErr = next, nil
		w.logger.Info("edit target not found", "product_id", productID, "user_id", s.actor.UserID)
		return nil

	default:
		s.lastErr = err
		w.logger.Error("failed to fetch product", "product_id", productID, "error", err)
		return &TransportError{Op: "fetch", Err: err}
	}
}

// EditField buffers a value for one of the editable fields.
func (w *Workflow) EditField(field, value string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.session == nil {
		return ErrNoSession
	}
	next, err := w.session.state.EditField(field, value)
	if err != nil {
		return err
	}
	w.session.state = next
	return nil
}

// Submit validates the buffered fields and, if they pass, persists them.
// Validation failures return *editor.ValidationError and make no store call.
// On success the session is Done and the navigator is sent to HomePath.
func (w *Workflow) Submit(ctx context.Context) error {
	w.mu.Lock()
	s := w.session
	if s == nil {
		w.mu.Unlock()
		return ErrNoSession
	}

	// A Submitting session (in flight or stalled) is rejected here and its
	// state is left alone; only a validation pass changes it.
	next, fields, err := s.state.Submit()
	var verr *editor.ValidationError
	if err != nil && !errors.As(err, &verr) {
		w.mu.Unlock()
		return err
	}
	s.state = next
	if err != nil {
		w.mu.Unlock()
		return err
	}
	s.inFlight = true
	productID := s.state.ProductID
	w.mu.Unlock()

	return w.update(ctx, s, productID, fields)
}

// update sends fields to the store for an in-flight Submitting session.
// productID is captured by the caller under the lock.
func (w *Workflow) update(ctx context.Context, s *activeSession, productID string, fields domain.ProductFields) error {
	callCtx, stop := mergeCancel(ctx, s.ctx)
	err := w.store.UpdateProductFields(callCtx, productID, fields)
	stop()

	w.mu.Lock()
	if w.session != s {
		w.mu.Unlock()
		w.logger.Debug("discarding update result for closed session", "product_id", productID)
		return ErrSessionClosed
	}
	s.inFlight = false

	if err != nil {
		s.lastErr = err
		w.mu.Unlock()
		w.logger.Error("failed to update product", "product_id", productID, "error", err)
		return &TransportError{Op: "update", Err: err}
	}

	next, terr := s.state.Persisted()
	if terr != nil {
		w.mu.Unlock()
		return terr
	}
	s.state, s.lastErr = next, nil
	w.mu.Unlock()

	w.logger.Info("product updated", "product_id", productID, "user_id", s.actor.UserID)
	w.navigator.GoTo(HomePath)
	return nil
}

// Retry re-issues a stalled fetch or update.
func (w *Workflow) Retry(ctx context.Context) error {
	w.mu.Lock()
	s := w.session
	if s == nil {
		w.mu.Unlock()
		return ErrNoSession
	}
	if s.inFlight {
		w.mu.Unlock()
		return ErrSubmitInFlight
	}
	if s.lastErr == nil {
		w.mu.Unlock()
		return ErrNothingToRetry
	}

	switch s.state.Phase {
	case editor.PhaseLoading:
		w.mu.Unlock()
		return w.fetch(ctx, s)
	case editor.PhaseSubmitting:
		s.inFlight = true
		productID, fields := s.state.ProductID, s.state.Fields()
		w.mu.Unlock()
		return w.update(ctx, s, productID, fields)
	default:
		w.mu.Unlock()
		return ErrNothingToRetry
	}
}

// Close tears down the current session. Results still in flight are dropped.
func (w *Workflow) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closeLocked()
}

func (w *Workflow) closeLocked() {
	if w.session == nil {
		return
	}
	w.session.cancel()
	w.logger.Debug("edit session closed", "product_id", w.session.state.ProductID)
	w.session = nil
}

// State returns a snapshot of the current session.
func (w *Workflow) State() (View, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	s := w.session
	if s == nil {
		return View{}, false
	}

	v := View{
		ProductID:   s.state.ProductID,
		Phase:       s.state.Phase,
		FieldErrors: maps.Clone(s.state.FieldErrors),
		InFlight:    s.inFlight,
		Stalled:     s.lastErr != nil,
	}
	if v.FieldErrors == nil {
		v.FieldErrors = map[string]string{}
	}
	if s.state.Phase.Authorized() {
		product := s.state.Snapshot
		v.Product = &product
	}
	if s.lastErr != nil {
		v.LastError = s.lastErr.Error()
	}
	return v, true
}

// mergeCancel returns a context that is done when either parent is done.
// Values come from the call context.
func mergeCancel(call, session context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(call)
	stop := context.AfterFunc(session, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
