package openapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widgetRequest struct {
	Name string `json:"name"`
}

type widgetResponse struct {
	ID        string            `json:"id"`
	Count     int               `json:"count"`
	Tags      []string          `json:"tags"`
	Labels    map[string]string `json:"labels"`
	CreatedAt time.Time         `json:"created_at"`
	Parent    *widgetRequest    `json:"parent,omitempty"`
	internal  string
	Skipped   string `json:"-"`
}

func testRoutes() []Route {
	return []Route{
		{
			Method:      http.MethodPost,
			Path:        "/api/v1/widgets",
			OperationID: "createWidget",
			Tag:         "Widgets",
			Request:     widgetRequest{},
			Responses:   map[int]any{http.StatusCreated: widgetResponse{}, http.StatusBadRequest: nil},
		},
		{
			Method:      http.MethodGet,
			Path:        "/api/v1/widgets/{id}",
			OperationID: "getWidget",
			Responses:   map[int]any{http.StatusOK: &widgetResponse{}},
		},
	}
}

func TestNewGenerator_Options(t *testing.T) {
	g := NewGenerator(WithTitle("Test"), WithVersion("2.0.0"), WithServer("http://localhost:1"))
	spec := g.Generate()

	assert.Equal(t, "Test", spec.Info.Title)
	assert.Equal(t, "2.0.0", spec.Info.Version)
	require.Len(t, spec.Servers, 1)
	assert.Equal(t, "http://localhost:1", spec.Servers[0].URL)
}

func TestGenerate_Routes(t *testing.T) {
	g := NewGenerator()
	g.Register(testRoutes()...)
	spec := g.Generate()

	create := spec.Paths.Value("/api/v1/widgets")
	require.NotNil(t, create)
	require.NotNil(t, create.Post)
	assert.Equal(t, "createWidget", create.Post.OperationID)
	assert.Equal(t, []string{"Widgets"}, create.Post.Tags)
	require.NotNil(t, create.Post.RequestBody)
	assert.NotNil(t, create.Post.Responses.Value("201"))
	assert.NotNil(t, create.Post.Responses.Value("400"))

	get := spec.Paths.Value("/api/v1/widgets/{id}")
	require.NotNil(t, get)
	require.NotNil(t, get.Get)
	require.Len(t, get.Parameters, 1)
	assert.Equal(t, "id", get.Parameters[0].Value.Name)
	assert.Equal(t, "path", get.Parameters[0].Value.In)
}

func TestGenerate_Schemas(t *testing.T) {
	g := NewGenerator()
	g.Register(testRoutes()...)
	spec := g.Generate()

	schema := spec.Components.Schemas["widgetResponse"]
	require.NotNil(t, schema)
	props := schema.Value.Properties
	assert.Contains(t, props, "id")
	assert.Contains(t, props, "count")
	assert.Contains(t, props, "tags")
	assert.Contains(t, props, "labels")
	assert.Equal(t, "date-time", props["created_at"].Value.Format)
	assert.True(t, props["parent"].Value.Nullable)
	assert.NotContains(t, props, "internal")
	assert.NotContains(t, props, "Skipped")

	assert.Contains(t, spec.Components.Schemas, "widgetRequest")
}

func TestGenerate_Cached(t *testing.T) {
	g := NewGenerator()
	g.Register(testRoutes()...)

	first := g.Generate()
	assert.Same(t, first, g.Generate())

	g.Register(Route{Method: http.MethodGet, Path: "/health", Responses: map[int]any{http.StatusOK: nil}})
	assert.NotSame(t, first, g.Generate())
}

func TestHandler_ServesJSON(t *testing.T) {
	g := NewGenerator()
	g.Register(testRoutes()...)

	rec := httptest.NewRecorder()
	g.Handler()(rec, httptest.NewRequest(http.MethodGet, "/openapi.json", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "3.0.3", doc["openapi"])
	assert.Contains(t, doc["paths"], "/api/v1/widgets")
}
