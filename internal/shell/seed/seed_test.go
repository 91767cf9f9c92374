package seed

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/artpar/showroom/internal/core/domain"
	"github.com/artpar/showroom/internal/shell/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureYAML = `
products:
  - id: p1
    owner_id: u1
    name: Widget
    organization: Acme
    url: https://acme.example.com
    description: A widget
  - owner_id: u2
    name: Gadget
    organization: Globex
    url: https://globex.example.com
    description: A gadget
`

func newTestDB(t *testing.T) *store.SQLiteStore {
	t.Helper()
	db, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// failingCreates wraps a DocumentStore and fails the nth Create, counting
// creates made inside transactions too.
type failingCreates struct {
	store.DocumentStore
	failOn  int
	creates *int
}

func (s failingCreates) Create(ctx context.Context, collection string, doc *store.Document) error {
	*s.creates++
	if *s.creates == s.failOn {
		return errors.New("disk full")
	}
	return s.DocumentStore.Create(ctx, collection, doc)
}

func (s failingCreates) WithTx(ctx context.Context, fn func(store.DocumentStore) error) error {
	return s.DocumentStore.WithTx(ctx, func(tx store.DocumentStore) error {
		return fn(failingCreates{DocumentStore: tx, failOn: s.failOn, creates: s.creates})
	})
}

func TestParse(t *testing.T) {
	f, err := Parse([]byte(fixtureYAML))
	require.NoError(t, err)

	require.Len(t, f.Products, 2)
	assert.Equal(t, "p1", f.Products[0].ID)
	assert.Equal(t, "u1", f.Products[0].OwnerID)
	assert.Equal(t, "Widget", f.Products[0].Name)
	assert.Equal(t, "https://acme.example.com", f.Products[0].URL)
	assert.Empty(t, f.Products[1].ID)
}

func TestParse_Empty(t *testing.T) {
	f, err := Parse(nil)
	require.NoError(t, err)
	assert.Empty(t, f.Products)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown key", "products:\n  - id: p1\n    colour: red\n"},
		{"missing owner", "products:\n  - name: A\n    organization: B\n    url: https://x.com\n    description: d\n"},
		{"invalid url", "products:\n  - owner_id: u1\n    name: A\n    organization: B\n    url: x\n    description: d\n"},
		{"duplicate id", "products:\n" +
			"  - {id: p1, owner_id: u1, name: A, organization: B, url: 'https://x.com', description: d}\n" +
			"  - {id: p1, owner_id: u1, name: A, organization: B, url: 'https://x.com', description: d}\n"},
		{"not yaml", "products: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fixtureYAML), 0o644))

	f, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, f.Products, 2)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestApply(t *testing.T) {
	db := newTestDB(t)
	repo := store.NewProducts(db)
	ctx := context.Background()
	f, err := Parse([]byte(fixtureYAML))
	require.NoError(t, err)

	res, err := Apply(ctx, db, f, nil)
	require.NoError(t, err)
	assert.Equal(t, Result{Created: 2}, res)

	got, err := repo.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.OwnerID)
	assert.Equal(t, domain.ProductFields{
		Name:         "Widget",
		Organization: "Acme",
		URL:          "https://acme.example.com",
		Description:  "A widget",
	}, got.Fields())
}

func TestApply_SkipsExistingIDs(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	f, err := Parse([]byte(fixtureYAML))
	require.NoError(t, err)

	_, err = Apply(ctx, db, f, nil)
	require.NoError(t, err)

	res, err := Apply(ctx, db, f, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 1, res.Created, "fixtures without an id are always created")
}

func TestApply_FailureLeavesNothingBehind(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	f, err := Parse([]byte(fixtureYAML))
	require.NoError(t, err)

	creates := 0
	res, err := Apply(ctx, failingCreates{DocumentStore: db, failOn: 2, creates: &creates}, f, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, Result{}, res)
	assert.Equal(t, 2, creates)

	products, err := store.NewProducts(db).ListProducts(ctx, store.DefaultListOptions())
	require.NoError(t, err)
	assert.Empty(t, products)

	_, err = store.NewProducts(db).GetProduct(ctx, "p1")
	assert.True(t, store.IsNotFound(err))
}
