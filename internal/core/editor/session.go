// Package editor holds the edit-session state machine for a single product.
// This is part of the Functional Core - transitions are pure functions that
// take a Session value and return the next one. I/O lives in shell/workflow.
package editor

import (
	"errors"
	"fmt"
	"maps"
	"sort"
	"strings"

	"github.com/artpar/showroom/internal/core/auth"
	"github.com/artpar/showroom/internal/core/domain"
	"github.com/artpar/showroom/internal/core/validation"
)

// CannotAccessMessage is shown both for products that do not exist and for
// products the actor does not own.
const CannotAccessMessage = "you cannot access this page"

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrNotEditing is returned when an operation needs the Editing phase.
	ErrNotEditing = errors.New("session is not editing")

	// ErrSubmitInFlight is returned when submit is attempted while an update is outstanding.
	ErrSubmitInFlight = errors.New("submit already in progress")

	// ErrInvalidTransition is returned for phase changes the state machine does not allow.
	ErrInvalidTransition = errors.New("invalid phase transition")
)

// ValidationError carries per-field messages from a failed submit.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("invalid fields: %s", strings.Join(names, ", "))
}

// =============================================================================
// Phase
// =============================================================================

// Phase is the position of a session in the edit state machine.
type Phase string

const (
	PhaseLoading      Phase = "loading"
	PhaseEditing      Phase = "editing"
	PhaseSubmitting   Phase = "submitting"
	PhaseDone         Phase = "done"
	PhaseUnauthorized Phase = "unauthorized"
	PhaseNotFound     Phase = "not_found"
)

// Authorized reports whether the actor was cleared to edit.
func (p Phase) Authorized() bool {
	switch p {
	case PhaseEditing, PhaseSubmitting, PhaseDone:
		return true
	default:
		return false
	}
}

// Denied reports whether the session ended in the "cannot access" view.
// Unauthorized and NotFound are deliberately indistinguishable to the actor.
func (p Phase) Denied() bool {
	return p == PhaseUnauthorized || p == PhaseNotFound
}

// Terminal reports whether no further transition is possible.
func (p Phase) Terminal() bool {
	return p.Denied() || p == PhaseDone
}

// validTransitions defines the allowed phase changes.
var validTransitions = map[Phase][]Phase{
	PhaseLoading:      {PhaseEditing, PhaseUnauthorized, PhaseNotFound},
	PhaseEditing:      {PhaseSubmitting},
	PhaseSubmitting:   {PhaseEditing, PhaseDone},
	PhaseDone:         {}, // Terminal
	PhaseUnauthorized: {}, // Terminal
	PhaseNotFound:     {}, // Terminal
}

// ValidateTransition checks if a phase transition is valid.
func ValidateTransition(from, to Phase) error {
	for _, p := range validTransitions[from] {
		if p == to {
			return nil
		}
	}
	return ErrInvalidTransition
}

// =============================================================================
// Session
// =============================================================================

// Session is the transient state of one edit attempt.
// The zero value is not useful; start with NewSession.
type Session struct {
	ProductID   string
	Phase       Phase
	Snapshot    domain.Product
	FieldErrors map[string]string
}

// NewSession opens a session for productID in the Loading phase.
func NewSession(productID string) Session {
	return Session{
		ProductID:   productID,
		Phase:       PhaseLoading,
		FieldErrors: map[string]string{},
	}
}

// Loaded resolves a Loading session with the fetched product and the actor.
// The snapshot is only kept when the actor owns the product.
func (s Session) Loaded(product domain.Product, actor auth.Context) (Session, error) {
	if !auth.CanEditProduct(actor, product) {
		return s.to(PhaseUnauthorized)
	}

	next, err := s.to(PhaseEditing)
	if err != nil {
		return s, err
	}
	next.Snapshot = product
	next.FieldErrors = map[string]string{}
	return next, nil
}

// Missing resolves a Loading session whose product does not exist.
func (s Session) Missing() (Session, error) {
	return s.to(PhaseNotFound)
}

// EditField buffers a new value for one editable field.
// No validation happens here; it runs on submit.
func (s Session) EditField(field, value string) (Session, error) {
	if s.Phase != PhaseEditing {
		return s, ErrNotEditing
	}
	if err := s.Snapshot.SetField(field, value); err != nil {
		return s, err
	}
	return s, nil
}

// Submit validates the buffered fields.
// On failure the session stays in Editing with FieldErrors populated and a
// *ValidationError is returned. On success the session moves to Submitting
// and the fields to persist are returned.
func (s Session) Submit() (Session, domain.ProductFields, error) {
	switch s.Phase {
	case PhaseEditing:
	case PhaseSubmitting:
		return s, domain.ProductFields{}, ErrSubmitInFlight
	default:
		return s, domain.ProductFields{}, ErrNotEditing
	}

	fields := s.Snapshot.Fields()
	if errs := validation.ValidateProduct(fields); len(errs) > 0 {
		s.FieldErrors = errs
		return s, domain.ProductFields{}, &ValidationError{Fields: maps.Clone(errs)}
	}

	next, err := s.to(PhaseSubmitting)
	if err != nil {
		return s, domain.ProductFields{}, err
	}
	next.FieldErrors = map[string]string{}
	return next, fields, nil
}

// Persisted completes a Submitting session.
func (s Session) Persisted() (Session, error) {
	return s.to(PhaseDone)
}

// Fields returns the buffered editable fields.
func (s Session) Fields() domain.ProductFields {
	return s.Snapshot.Fields()
}

func (s Session) to(phase Phase) (Session, error) {
	if err := ValidateTransition(s.Phase, phase); err != nil {
		return s, fmt.Errorf("%w: %s -> %s", err, s.Phase, phase)
	}
	s.Phase = phase
	return s, nil
}
