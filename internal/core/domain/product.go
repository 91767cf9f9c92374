// Package domain contains the core domain types.
// This is part of the Functional Core - all functions are pure with no I/O.
package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrUnknownField is returned when a field name is not one of the editable fields.
	ErrUnknownField = errors.New("unknown product field")

	// ErrOwnerRequired is returned when creating a product without an owner.
	ErrOwnerRequired = errors.New("owner is required")
)

// =============================================================================
// Field Names
// =============================================================================

const (
	FieldName         = "name"
	FieldOrganization = "organization"
	FieldURL          = "url"
	FieldDescription  = "description"
)

// EditableFields lists the mutable product fields in form order.
var EditableFields = []string{FieldName, FieldOrganization, FieldURL, FieldDescription}

// IsEditableField reports whether name is one of the editable product fields.
func IsEditableField(name string) bool {
	switch name {
	case FieldName, FieldOrganization, FieldURL, FieldDescription:
		return true
	default:
		return false
	}
}

// =============================================================================
// ProductFields
// =============================================================================

// ProductFields holds exactly the fields an owner may change.
// It is the only payload ever sent on update.
type ProductFields struct {
	Name         string `json:"name" yaml:"name"`
	Organization string `json:"organization" yaml:"organization"`
	URL          string `json:"url" yaml:"url"`
	Description  string `json:"description" yaml:"description"`
}

// Get returns the value of the named field.
func (f ProductFields) Get(field string) (string, error) {
	switch field {
	case FieldName:
		return f.Name, nil
	case FieldOrganization:
		return f.Organization, nil
	case FieldURL:
		return f.URL, nil
	case FieldDescription:
		return f.Description, nil
	default:
		return "", ErrUnknownField
	}
}

// With returns a copy of f with the named field set to value.
func (f ProductFields) With(field, value string) (ProductFields, error) {
	switch field {
	case FieldName:
		f.Name = value
	case FieldOrganization:
		f.Organization = value
	case FieldURL:
		f.URL = value
	case FieldDescription:
		f.Description = value
	default:
		return f, ErrUnknownField
	}
	return f, nil
}

// Map returns the fields keyed by field name.
func (f ProductFields) Map() map[string]string {
	return map[string]string{
		FieldName:         f.Name,
		FieldOrganization: f.Organization,
		FieldURL:          f.URL,
		FieldDescription:  f.Description,
	}
}

// FieldsFromMap builds ProductFields from a loosely typed map.
// Missing keys become empty strings; unrecognised keys are ignored.
func FieldsFromMap(m map[string]string) ProductFields {
	return ProductFields{
		Name:         m[FieldName],
		Organization: m[FieldOrganization],
		URL:          m[FieldURL],
		Description:  m[FieldDescription],
	}
}

// =============================================================================
// Product
// =============================================================================

// Product is the record an owner edits.
// ID and OwnerID are set at creation and never change afterwards.
type Product struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"owner_id"`
	Name         string    `json:"name"`
	Organization string    `json:"organization"`
	URL          string    `json:"url"`
	Description  string    `json:"description"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewProduct creates a product owned by ownerID with a fresh identifier.
// Field validation is the caller's concern; see package validation.
func NewProduct(ownerID string, fields ProductFields) (*Product, error) {
	if ownerID == "" {
		return nil, ErrOwnerRequired
	}

	now := time.Now().UTC()
	p := &Product{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	p.ApplyFields(fields)
	return p, nil
}

// Fields returns the editable part of the product.
func (p Product) Fields() ProductFields {
	return ProductFields{
		Name:         p.Name,
		Organization: p.Organization,
		URL:          p.URL,
		Description:  p.Description,
	}
}

// ApplyFields overwrites the editable fields. ID and OwnerID are untouched.
func (p *Product) ApplyFields(f ProductFields) {
	p.Name = f.Name
	p.Organization = f.Organization
	p.URL = f.URL
	p.Description = f.Description
}

// SetField sets one editable field by name.
func (p *Product) SetField(field, value string) error {
	f, err := p.Fields().With(field, value)
	if err != nil {
		return err
	}
	p.ApplyFields(f)
	return nil
}

// IsOwnedBy reports whether userID is the product's owner.
// An empty userID never owns anything.
func (p Product) IsOwnedBy(userID string) bool {
	return userID != "" && p.OwnerID == userID
}
