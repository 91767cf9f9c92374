package productform

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/artpar/showroom/internal/core/auth"
	"github.com/artpar/showroom/internal/core/domain"
	"github.com/artpar/showroom/internal/core/editor"
	"github.com/artpar/showroom/internal/shell/store"
	"github.com/artpar/showroom/internal/shell/workflow"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Test Helpers
// =============================================================================

type memStore struct {
	products  map[string]domain.Product
	getErr    error
	updateErr error
	updates   int
}

func (s *memStore) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	p, ok := s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (s *memStore) UpdateProductFields(ctx context.Context, id string, fields domain.ProductFields) error {
	s.updates++
	if s.updateErr != nil {
		return s.updateErr
	}
	p := s.products[id]
	p.ApplyFields(fields)
	s.products[id] = p
	return nil
}

func newMemStore() *memStore {
	return &memStore{products: map[string]domain.Product{
		"p1": {
			ID:           "p1",
			OwnerID:      "u1",
			Name:         "A",
			Organization: "B",
			URL:          "https://x.com",
			Description:  "d",
		},
	}}
}

func newTestModel(s *memStore, userID, productID string) Model {
	wf := workflow.New(workflow.Config{
		Store:    s,
		Identity: workflow.StaticIdentity(auth.ForUser(userID)),
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return NewModel(Config{Workflow: wf, ProductID: productID})
}

// step feeds msg to the model and returns the updated model and command.
func step(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	require.True(t, ok)
	return nm, cmd
}

// loaded runs the initial load synchronously.
func loaded(t *testing.T, m Model) Model {
	t.Helper()
	m, _ = step(t, m, m.enter()())
	return m
}

func key(k tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: k}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

// =============================================================================
// Load Tests
// =============================================================================

func TestModel_LoadsOwnedProduct(t *testing.T) {
	m := loaded(t, newTestModel(newMemStore(), "u1", "p1"))

	assert.Equal(t, editor.PhaseEditing, m.view.Phase)
	assert.Equal(t, "A", m.inputs[focusName].Value())
	assert.Equal(t, "https://x.com", m.inputs[focusURL].Value())
	assert.Equal(t, "d", m.description.Value())
	assert.Equal(t, focusName, m.focus)
	assert.Contains(t, m.View(), "General information")
}

func TestModel_DeniedViewsMatch(t *testing.T) {
	other := loaded(t, newTestModel(newMemStore(), "u2", "p1"))
	missing := loaded(t, newTestModel(newMemStore(), "u1", "missing"))

	assert.True(t, other.view.Denied())
	assert.True(t, missing.view.Denied())
	assert.Contains(t, other.View(), editor.CannotAccessMessage)
	assert.Equal(t, other.View(), missing.View())
	assert.NotContains(t, other.View(), "https://x.com")
}

func TestModel_LoadingShowsSpinner(t *testing.T) {
	m := newTestModel(newMemStore(), "u1", "p1")

	assert.Contains(t, m.View(), "Loading...")
}

// =============================================================================
// Edit Tests
// =============================================================================

func TestModel_TypingBuffersIntoWorkflow(t *testing.T) {
	m := loaded(t, newTestModel(newMemStore(), "u1", "p1"))

	m, _ = step(t, m, runes("x"))

	assert.Equal(t, "Ax", m.inputs[focusName].Value())
	require.NotNil(t, m.view.Product)
	assert.Equal(t, "Ax", m.view.Product.Name)
}

func TestModel_TabCyclesFocus(t *testing.T) {
	m := loaded(t, newTestModel(newMemStore(), "u1", "p1"))

	for want := focusOrganization; want < focusCount; want++ {
		m, _ = step(t, m, key(tea.KeyTab))
		assert.Equal(t, want, m.focus)
	}
	m, _ = step(t, m, key(tea.KeyTab))
	assert.Equal(t, focusName, m.focus)

	m, _ = step(t, m, key(tea.KeyShiftTab))
	assert.Equal(t, focusSave, m.focus)
}

func TestModel_EmptyNameShowsFieldError(t *testing.T) {
	s := newMemStore()
	m := loaded(t, newTestModel(s, "u1", "p1"))

	m, _ = step(t, m, key(tea.KeyBackspace))
	require.Equal(t, "", m.view.Product.Name)

	m, cmd := step(t, m, key(tea.KeyCtrlS))
	require.NotNil(t, cmd)
	assert.True(t, m.busy)

	m, cmd = step(t, m, m.submit()())

	assert.Nil(t, cmd)
	assert.False(t, m.busy)
	assert.Equal(t, editor.PhaseEditing, m.view.Phase)
	assert.Equal(t, "name is required", m.view.FieldErrors[domain.FieldName])
	assert.Contains(t, m.View(), "name is required")
	assert.Equal(t, 0, s.updates)
}

// =============================================================================
// Save Tests
// =============================================================================

func TestModel_SaveQuits(t *testing.T) {
	s := newMemStore()
	m := loaded(t, newTestModel(s, "u1", "p1"))
	m, _ = step(t, m, runes("!"))

	m, cmd := step(t, m, m.submit()())

	assert.True(t, m.Saved())
	assert.True(t, isQuit(cmd))
	assert.Equal(t, "A!", s.products["p1"].Name)
	assert.Contains(t, m.View(), "Saved.")
}

func TestModel_SaveFailureOffersRetry(t *testing.T) {
	s := newMemStore()
	s.updateErr = errors.New("database is locked")
	m := loaded(t, newTestModel(s, "u1", "p1"))

	m, _ = step(t, m, m.submit()())

	assert.False(t, m.Saved())
	assert.True(t, m.view.Stalled)
	assert.Contains(t, m.View(), "Saving failed")
	assert.Contains(t, m.View(), "retry")

	s.updateErr = nil
	m, cmd := step(t, m, runes("r"))
	require.NotNil(t, cmd)
	m, cmd = step(t, m, cmd())

	assert.True(t, m.Saved())
	assert.True(t, isQuit(cmd))
	assert.Equal(t, 2, s.updates)
}

func TestModel_LoadFailureOffersRetry(t *testing.T) {
	s := newMemStore()
	s.getErr = errors.New("connection refused")
	m := loaded(t, newTestModel(s, "u1", "p1"))

	assert.True(t, m.view.Stalled)
	assert.Contains(t, m.View(), "Loading failed")

	s.getErr = nil
	m, cmd := step(t, m, runes("r"))
	require.NotNil(t, cmd)
	m, _ = step(t, m, cmd())

	assert.Equal(t, editor.PhaseEditing, m.view.Phase)
	assert.Equal(t, "A", m.inputs[focusName].Value())
}

func TestModel_EscQuits(t *testing.T) {
	m := loaded(t, newTestModel(newMemStore(), "u1", "p1"))

	_, cmd := step(t, m, key(tea.KeyEsc))

	assert.True(t, isQuit(cmd))
}
