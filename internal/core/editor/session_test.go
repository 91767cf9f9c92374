package editor

import (
	"testing"

	"github.com/artpar/showroom/internal/core/auth"
	"github.com/artpar/showroom/internal/core/domain"
	"github.com/artpar/showroom/internal/core/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Test Helpers
// =============================================================================

func sampleProduct() domain.Product {
	return domain.Product{
		ID:           "p1",
		OwnerID:      "u1",
		Name:         "A",
		Organization: "B",
		URL:          "https://x.com",
		Description:  "d",
	}
}

func editingSession(t *testing.T) Session {
	t.Helper()
	s, err := NewSession("p1").Loaded(sampleProduct(), auth.ForUser("u1"))
	require.NoError(t, err)
	require.Equal(t, PhaseEditing, s.Phase)
	return s
}

// =============================================================================
// Phase Tests
// =============================================================================

func TestPhase_Predicates(t *testing.T) {
	assert.True(t, PhaseEditing.Authorized())
	assert.True(t, PhaseSubmitting.Authorized())
	assert.True(t, PhaseDone.Authorized())
	assert.False(t, PhaseLoading.Authorized())
	assert.False(t, PhaseUnauthorized.Authorized())

	assert.True(t, PhaseUnauthorized.Denied())
	assert.True(t, PhaseNotFound.Denied())
	assert.False(t, PhaseLoading.Denied())

	assert.True(t, PhaseDone.Terminal())
	assert.True(t, PhaseNotFound.Terminal())
	assert.False(t, PhaseSubmitting.Terminal())
}

func TestValidateTransition(t *testing.T) {
	tests := []struct {
		from, to Phase
		valid    bool
	}{
		{PhaseLoading, PhaseEditing, true},
		{PhaseLoading, PhaseUnauthorized, true},
		{PhaseLoading, PhaseNotFound, true},
		{PhaseEditing, PhaseSubmitting, true},
		{PhaseSubmitting, PhaseDone, true},
		{PhaseSubmitting, PhaseEditing, true},
		{PhaseEditing, PhaseDone, false},
		{PhaseLoading, PhaseDone, false},
		{PhaseUnauthorized, PhaseEditing, false},
		{PhaseNotFound, PhaseLoading, false},
		{PhaseDone, PhaseEditing, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			err := ValidateTransition(tt.from, tt.to)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidTransition)
			}
		})
	}
}

// =============================================================================
// Load Tests
// =============================================================================

func TestNewSession(t *testing.T) {
	s := NewSession("p1")

	assert.Equal(t, "p1", s.ProductID)
	assert.Equal(t, PhaseLoading, s.Phase)
	assert.Empty(t, s.FieldErrors)
}

func TestLoaded_OwnerReachesEditing(t *testing.T) {
	s := editingSession(t)

	assert.Equal(t, sampleProduct(), s.Snapshot)
	assert.Empty(t, s.FieldErrors)
}

func TestLoaded_OtherActorUnauthorized(t *testing.T) {
	s, err := NewSession("p1").Loaded(sampleProduct(), auth.ForUser("u2"))
	require.NoError(t, err)

	assert.Equal(t, PhaseUnauthorized, s.Phase)
	assert.Equal(t, domain.Product{}, s.Snapshot, "denied sessions must not hold the product")
}

func TestLoaded_AnonymousUnauthorized(t *testing.T) {
	s, err := NewSession("p1").Loaded(sampleProduct(), auth.Anonymous())
	require.NoError(t, err)

	assert.Equal(t, PhaseUnauthorized, s.Phase)
}

func TestMissing_NotFound(t *testing.T) {
	s, err := NewSession("missing").Missing()
	require.NoError(t, err)

	assert.Equal(t, PhaseNotFound, s.Phase)
	assert.True(t, s.Phase.Denied())
}

func TestLoaded_OnlyFromLoading(t *testing.T) {
	s := editingSession(t)

	_, err := s.Loaded(sampleProduct(), auth.ForUser("u1"))
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = s.Missing()
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

// =============================================================================
// Edit Tests
// =============================================================================

func TestEditField_BuffersValue(t *testing.T) {
	s := editingSession(t)

	next, err := s.EditField(domain.FieldName, "")
	require.NoError(t, err)

	assert.Equal(t, "", next.Snapshot.Name)
	assert.Equal(t, "A", s.Snapshot.Name, "previous session value is unchanged")
	assert.Equal(t, PhaseEditing, next.Phase)
	assert.Empty(t, next.FieldErrors, "no validation on edit")
}

func TestEditField_UnknownField(t *testing.T) {
	s := editingSession(t)

	_, err := s.EditField("owner_id", "u2")
	assert.ErrorIs(t, err, domain.ErrUnknownField)
}

func TestEditField_RequiresEditing(t *testing.T) {
	for _, s := range []Session{
		NewSession("p1"),
		{Phase: PhaseSubmitting},
		{Phase: PhaseDone},
		{Phase: PhaseUnauthorized},
		{Phase: PhaseNotFound},
	} {
		_, err := s.EditField(domain.FieldName, "x")
		assert.ErrorIs(t, err, ErrNotEditing, string(s.Phase))
	}
}

// =============================================================================
// Submit Tests
// =============================================================================

func TestSubmit_InvalidStaysEditing(t *testing.T) {
	s, err := editingSession(t).EditField(domain.FieldName, "")
	require.NoError(t, err)

	next, fields, err := s.Submit()

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, map[string]string{domain.FieldName: validation.MsgNameRequired}, verr.Fields)
	assert.Equal(t, PhaseEditing, next.Phase)
	assert.Equal(t, verr.Fields, next.FieldErrors)
	assert.Equal(t, domain.ProductFields{}, fields)
}

func TestSubmit_InvalidIsIdempotent(t *testing.T) {
	s, err := editingSession(t).EditField(domain.FieldURL, "nope")
	require.NoError(t, err)

	first, _, err1 := s.Submit()
	second, _, err2 := first.Submit()

	assert.Error(t, err1)
	assert.Error(t, err2)
	assert.Equal(t, first.FieldErrors, second.FieldErrors)
	assert.Equal(t, PhaseEditing, second.Phase)
}

func TestSubmit_ValidMovesToSubmitting(t *testing.T) {
	s, err := editingSession(t).EditField(domain.FieldName, "New name")
	require.NoError(t, err)

	next, fields, err := s.Submit()
	require.NoError(t, err)

	assert.Equal(t, PhaseSubmitting, next.Phase)
	assert.Equal(t, domain.ProductFields{
		Name:         "New name",
		Organization: "B",
		URL:          "https://x.com",
		Description:  "d",
	}, fields)
}

func TestSubmit_ClearsPreviousErrors(t *testing.T) {
	s, err := editingSession(t).EditField(domain.FieldName, "")
	require.NoError(t, err)
	s, _, _ = s.Submit()
	require.NotEmpty(t, s.FieldErrors)

	s, err = s.EditField(domain.FieldName, "fixed")
	require.NoError(t, err)
	s, _, err = s.Submit()
	require.NoError(t, err)

	assert.Empty(t, s.FieldErrors)
}

func TestSubmit_WhileSubmitting(t *testing.T) {
	s, _, err := editingSession(t).Submit()
	require.NoError(t, err)

	_, _, err = s.Submit()
	assert.ErrorIs(t, err, ErrSubmitInFlight)
}

func TestSubmit_RequiresEditing(t *testing.T) {
	_, _, err := NewSession("p1").Submit()
	assert.ErrorIs(t, err, ErrNotEditing)

	_, _, err = Session{Phase: PhaseNotFound}.Submit()
	assert.ErrorIs(t, err, ErrNotEditing)
}

func TestPersisted(t *testing.T) {
	s, _, err := editingSession(t).Submit()
	require.NoError(t, err)

	done, err := s.Persisted()
	require.NoError(t, err)
	assert.Equal(t, PhaseDone, done.Phase)

	_, err = editingSession(t).Persisted()
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestValidationError_Message(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{"url": "x", "name": "y"}}
	assert.Equal(t, "invalid fields: name, url", err.Error())
}
