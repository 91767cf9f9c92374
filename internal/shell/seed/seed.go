// Package seed loads product fixtures from YAML into the store.
package seed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/artpar/showroom/internal/core/domain"
	"github.com/artpar/showroom/internal/core/validation"
	"github.com/artpar/showroom/internal/shell/store"
	"gopkg.in/yaml.v3"
)

// File is the top-level shape of a fixture file:
//
//	products:
//	  - id: p1
//	    owner_id: u1
//	    name: Widget
//	    organization: Acme
//	    url: https://acme.example.com
//	    description: A widget
type File struct {
	Products []ProductFixture `yaml:"products"`
}

// ProductFixture is one seeded product. ID is optional; a uuid is assigned when empty.
type ProductFixture struct {
	ID                   string `yaml:"id"`
	OwnerID              string `yaml:"owner_id"`
	domain.ProductFields `yaml:",inline"`
}

// Repository is the product storage the seeder writes to.
type Repository interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	CreateProduct(ctx context.Context, product *domain.Product) error
}

// Result counts what Apply did.
type Result struct {
	Created int
	Skipped int
}

// LoadFile reads and parses a fixture file.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return Parse(data)
}

// Parse decodes fixture YAML. Unknown keys are rejected.
func Parse(data []byte) (*File, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks every fixture with the same rules the edit form uses.
func (f *File) Validate() error {
	seen := make(map[string]bool)
	for i, p := range f.Products {
		if strings.TrimSpace(p.OwnerID) == "" {
			return fmt.Errorf("product %d: %w", i, domain.ErrOwnerRequired)
		}
		if p.ID != "" {
			if seen[p.ID] {
				return fmt.Errorf("product %d: duplicate id %q", i, p.ID)
			}
			seen[p.ID] = true
		}
		if errs := validation.ValidateProduct(p.ProductFields); len(errs) > 0 {
			return fmt.Errorf("product %d: %s", i, describe(errs))
		}
	}
	return nil
}

// Apply creates every fixture whose id is not already stored. All fixtures
// are written in one transaction, so a failed seed leaves nothing behind.
func Apply(ctx context.Context, docs store.DocumentStore, f *File, logger *slog.Logger) (Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "seed")

	var res Result
	err := docs.WithTx(ctx, func(tx store.DocumentStore) error {
		res = Result{}
		return apply(ctx, store.NewProducts(tx), f, logger, &res)
	})
	if err != nil {
		return Result{}, err
	}

	logger.Info("seed applied", "created", res.Created, "skipped", res.Skipped)
	return res, nil
}

func apply(ctx context.Context, repo Repository, f *File, logger *slog.Logger, res *Result) error {
	for _, fixture := range f.Products {
		if fixture.ID != "" {
			_, err := repo.GetProduct(ctx, fixture.ID)
			if err == nil {
				res.Skipped++
				continue
			}
			if !store.IsNotFound(err) {
				return fmt.Errorf("failed to check product %s: %w", fixture.ID, err)
			}
		}

		product, err := domain.NewProduct(fixture.OwnerID, fixture.ProductFields)
		if err != nil {
			return err
		}
		if fixture.ID != "" {
			product.ID = fixture.ID
		}

		if err := repo.CreateProduct(ctx, product); err != nil {
			return fmt.Errorf("failed to seed product %s: %w", product.ID, err)
		}
		logger.Debug("seeded product", "product_id", product.ID, "owner_id", product.OwnerID)
		res.Created++
	}
	return nil
}

// describe renders field errors in form order.
func describe(errs map[string]string) string {
	msgs := make([]string, 0, len(errs))
	for _, field := range domain.EditableFields {
		if msg, ok := errs[field]; ok {
			msgs = append(msgs, msg)
		}
	}
	return strings.Join(msgs, "; ")
}
