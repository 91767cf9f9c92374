package api

import (
	"net/http"

	"github.com/artpar/showroom/internal/shell/api/openapi"
)

// apiRoutes describes the routes served by Handler for the OpenAPI document.
func apiRoutes() []openapi.Route {
	const (
		products = "Products"
		sessions = "Edit Sessions"
	)

	return []openapi.Route{
		{
			Method: http.MethodGet, Path: "/health", OperationID: "health", Tag: "System",
			Responses: map[int]any{http.StatusOK: HealthResponse{}},
		},
		{
			Method: http.MethodGet, Path: "/ready", OperationID: "ready", Tag: "System",
			Responses: map[int]any{
				http.StatusOK:                 ReadyResponse{},
				http.StatusServiceUnavailable: ReadyResponse{},
			},
		},
		{
			Method: http.MethodPost, Path: "/api/v1/products", OperationID: "createProduct",
			Summary: "Create a product owned by the caller", Tag: products,
			Request: CreateProductRequest{},
			Responses: map[int]any{
				http.StatusCreated:             ProductResponse{},
				http.StatusBadRequest:          ErrorResponse{},
				http.StatusUnauthorized:        ErrorResponse{},
				http.StatusUnprocessableEntity: ErrorResponse{},
			},
		},
		{
			Method: http.MethodGet, Path: "/api/v1/products", OperationID: "listProducts",
			Summary: "List products", Tag: products,
			Responses: map[int]any{http.StatusOK: ListProductsResponse{}},
		},
		{
			Method: http.MethodGet, Path: "/api/v1/products/{id}", OperationID: "getProduct",
			Summary: "Get a product", Tag: products,
			Responses: map[int]any{
				http.StatusOK:       ProductResponse{},
				http.StatusNotFound: ErrorResponse{},
			},
		},
		{
			Method: http.MethodPost, Path: "/api/v1/products/{id}/edit-sessions", OperationID: "openEditSession",
			Summary: "Load a product for editing", Tag: sessions,
			Responses: map[int]any{
				http.StatusCreated:  EditSessionResponse{},
				http.StatusAccepted: EditSessionResponse{},
				http.StatusNotFound: ErrorResponse{},
			},
		},
		{
			Method: http.MethodGet, Path: "/api/v1/edit-sessions/{sid}", OperationID: "getEditSession",
			Summary: "Get an edit session", Tag: sessions,
			Responses: map[int]any{
				http.StatusOK:       EditSessionResponse{},
				http.StatusNotFound: ErrorResponse{},
			},
		},
		{
			Method: http.MethodDelete, Path: "/api/v1/edit-sessions/{sid}", OperationID: "closeEditSession",
			Summary: "Abandon an edit session", Tag: sessions,
			Responses: map[int]any{
				http.StatusNoContent: nil,
				http.StatusNotFound:  ErrorResponse{},
			},
		},
		{
			Method: http.MethodPut, Path: "/api/v1/edit-sessions/{sid}/fields/{field}", OperationID: "editField",
			Summary: "Buffer a field value", Tag: sessions,
			Request: EditFieldRequest{},
			Responses: map[int]any{
				http.StatusOK:         EditSessionResponse{},
				http.StatusBadRequest: ErrorResponse{},
				http.StatusNotFound:   ErrorResponse{},
				http.StatusConflict:   ErrorResponse{},
			},
		},
		{
			Method: http.MethodPost, Path: "/api/v1/edit-sessions/{sid}/submit", OperationID: "submitEditSession",
			Summary: "Validate and save the buffered fields", Tag: sessions,
			Responses: map[int]any{
				http.StatusOK:                  SubmitResponse{},
				http.StatusAccepted:            EditSessionResponse{},
				http.StatusNotFound:            ErrorResponse{},
				http.StatusConflict:            ErrorResponse{},
				http.StatusUnprocessableEntity: ErrorResponse{},
			},
		},
		{
			Method: http.MethodPost, Path: "/api/v1/edit-sessions/{sid}/retry", OperationID: "retryEditSession",
			Summary: "Re-issue a stalled load or save", Tag: sessions,
			Responses: map[int]any{
				http.StatusOK:       SubmitResponse{},
				http.StatusAccepted: EditSessionResponse{},
				http.StatusNotFound: ErrorResponse{},
				http.StatusConflict: ErrorResponse{},
			},
		},
	}
}
