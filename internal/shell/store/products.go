package store

import (
	"context"

	"github.com/artpar/showroom/internal/core/domain"
)

// ProductsCollection is the collection holding product documents.
const ProductsCollection = "products"

// Document keys for product bodies.
const (
	keyOwnerID = "owner_id"
)

// =============================================================================
// Products
// =============================================================================

// Products maps domain.Product onto documents in the "products" collection.
type Products struct {
	docs DocumentStore
}

// NewProducts creates a product repository over docs.
func NewProducts(docs DocumentStore) *Products {
	return &Products{docs: docs}
}

// CreateProduct stores a new product.
func (p *Products) CreateProduct(ctx context.Context, product *domain.Product) error {
	doc := &Document{
		ID:        product.ID,
		Data:      productData(product),
		CreatedAt: product.CreatedAt,
		UpdatedAt: product.UpdatedAt,
	}
	if err := p.docs.Create(ctx, ProductsCollection, doc); err != nil {
		return err
	}
	product.CreatedAt = doc.CreatedAt
	product.UpdatedAt = doc.UpdatedAt
	return nil
}

// GetProduct loads one product. Returns an error wrapping ErrNotFound if absent.
func (p *Products) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	doc, err := p.docs.Get(ctx, ProductsCollection, id)
	if err != nil {
		return nil, err
	}
	return documentToProduct(doc), nil
}

// UpdateProductFields writes exactly the four editable fields.
// id and owner_id are never part of the payload.
func (p *Products) UpdateProductFields(ctx context.Context, id string, fields domain.ProductFields) error {
	return p.docs.UpdateFields(ctx, ProductsCollection, id, fieldsData(fields))
}

// ListProducts returns products in creation order.
func (p *Products) ListProducts(ctx context.Context, opts ListOptions) ([]domain.Product, error) {
	docs, err := p.docs.List(ctx, ProductsCollection, opts)
	if err != nil {
		return nil, err
	}

	products := make([]domain.Product, 0, len(docs))
	for i := range docs {
		products = append(products, *documentToProduct(&docs[i]))
	}
	return products, nil
}

// =============================================================================
// Mapping
// =============================================================================

func fieldsData(f domain.ProductFields) map[string]any {
	return map[string]any{
		domain.FieldName:         f.Name,
		domain.FieldOrganization: f.Organization,
		domain.FieldURL:          f.URL,
		domain.FieldDescription:  f.Description,
	}
}

func productData(product *domain.Product) map[string]any {
	data := fieldsData(product.Fields())
	data[keyOwnerID] = product.OwnerID
	return data
}

func documentToProduct(doc *Document) *domain.Product {
	return &domain.Product{
		ID:           doc.ID,
		OwnerID:      stringValue(doc.Data, keyOwnerID),
		Name:         stringValue(doc.Data, domain.FieldName),
		Organization: stringValue(doc.Data, domain.FieldOrganization),
		URL:          stringValue(doc.Data, domain.FieldURL),
		Description:  stringValue(doc.Data, domain.FieldDescription),
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
	}
}

// stringValue reads a string key; anything else reads as empty.
func stringValue(data map[string]any, key string) string {
	if s, ok := data[key].(string); ok {
		return s
	}
	return ""
}
