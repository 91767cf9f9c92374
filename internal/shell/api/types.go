package api

import (
	"time"

	"github.com/artpar/showroom/internal/core/domain"
	"github.com/artpar/showroom/internal/shell/workflow"
)

// =============================================================================
// Request Types
// =============================================================================

// CreateProductRequest is the request body for creating a product.
type CreateProductRequest struct {
	Name         string `json:"name"`
	Organization string `json:"organization"`
	URL          string `json:"url"`
	Description  string `json:"description"`
}

// EditFieldRequest is the request body for buffering one field value.
type EditFieldRequest struct {
	Value string `json:"value"`
}

// =============================================================================
// Response Types
// =============================================================================

// ProductResponse is the response for product operations.
type ProductResponse struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"owner_id"`
	Name         string    `json:"name"`
	Organization string    `json:"organization"`
	URL          string    `json:"url"`
	Description  string    `json:"description"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ListProductsResponse is the response for listing products.
type ListProductsResponse struct {
	Products []ProductResponse `json:"products"`
	Limit    int               `json:"limit"`
	Offset   int               `json:"offset"`
}

// EditSessionResponse describes an open edit session.
// Product is only present while the actor is authorized.
type EditSessionResponse struct {
	ID          string            `json:"id"`
	ProductID   string            `json:"product_id"`
	Phase       string            `json:"phase"`
	Product     *ProductResponse  `json:"product,omitempty"`
	FieldErrors map[string]string `json:"field_errors"`
	InFlight    bool              `json:"in_flight"`
	Stalled     bool              `json:"stalled"`
	LastError   string            `json:"last_error,omitempty"`
}

// SubmitResponse is returned once a submit completes.
type SubmitResponse struct {
	Phase    string `json:"phase"`
	Redirect string `json:"redirect"`
}

// ErrorResponse is the error response format.
type ErrorResponse struct {
	Error       string            `json:"error"`
	Code        string            `json:"code"`
	FieldErrors map[string]string `json:"field_errors,omitempty"`
}

// HealthResponse is the health check response.
type HealthResponse struct {
	Status string `json:"status"`
}

// ReadyResponse is the readiness check response.
type ReadyResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// =============================================================================
// Converters
// =============================================================================

func productToResponse(p *domain.Product) ProductResponse {
	return ProductResponse{
		ID:           p.ID,
		OwnerID:      p.OwnerID,
		Name:         p.Name,
		Organization: p.Organization,
		URL:          p.URL,
		Description:  p.Description,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func viewToResponse(sessionID string, v workflow.View) EditSessionResponse {
	resp := EditSessionResponse{
		ID:          sessionID,
		ProductID:   v.ProductID,
		Phase:       string(v.Phase),
		FieldErrors: v.FieldErrors,
		InFlight:    v.InFlight,
		Stalled:     v.Stalled,
		LastError:   v.LastError,
	}
	if resp.FieldErrors == nil {
		resp.FieldErrors = map[string]string{}
	}
	if v.Product != nil {
		p := productToResponse(v.Product)
		resp.Product = &p
	}
	return resp
}
