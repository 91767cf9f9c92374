// Package openapi generates the OpenAPI 3.0 document for the showroom API.
// Request and response schemas are derived from the Go types by reflection.
package openapi

import (
	"encoding/json"
	"net/http"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
)

// =============================================================================
// Generator
// =============================================================================

// Generator produces an OpenAPI 3.0 document from registered routes.
type Generator struct {
	title       string
	version     string
	description string
	servers     []string

	mu         sync.RWMutex
	routes     []Route
	cachedSpec *openapi3.T
}

// Route describes one HTTP operation.
type Route struct {
	Method      string
	Path        string // chi-style, e.g. /api/v1/products/{id}
	OperationID string
	Summary     string
	Tag         string
	Request     any         // request body model, nil for none
	Responses   map[int]any // status -> body model (nil for no body)
}

// Option configures the generator.
type Option func(*Generator)

// WithTitle sets the API title.
func WithTitle(title string) Option {
	return func(g *Generator) {
		g.title = title
	}
}

// WithVersion sets the API version.
func WithVersion(version string) Option {
	return func(g *Generator) {
		g.version = version
	}
}

// WithServer adds a server URL.
func WithServer(url string) Option {
	return func(g *Generator) {
		g.servers = append(g.servers, url)
	}
}

// NewGenerator creates a new OpenAPI generator.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		title:       "Showroom API",
		version:     "1.0.0",
		description: "Product listings and owner edit sessions",
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Register adds routes to the document.
func (g *Generator) Register(routes ...Route) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.routes = append(g.routes, routes...)
	g.cachedSpec = nil
}

// Generate produces the complete OpenAPI 3.0 document.
func (g *Generator) Generate() *openapi3.T {
	g.mu.RLock()
	if g.cachedSpec != nil {
		spec := g.cachedSpec
		g.mu.RUnlock()
		return spec
	}
	g.mu.RUnlock()

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.cachedSpec != nil {
		return g.cachedSpec
	}

	spec := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       g.title,
			Version:     g.version,
			Description: g.description,
		},
		Paths: &openapi3.Paths{},
		Components: &openapi3.Components{
			Schemas: make(openapi3.Schemas),
		},
	}
	for _, url := range g.servers {
		spec.Servers = append(spec.Servers, &openapi3.Server{URL: url})
	}

	for _, route := range g.routes {
		g.addRoute(spec, route)
	}

	g.cachedSpec = spec
	return spec
}

// Handler returns an HTTP handler that serves the document.
func (g *Generator) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		spec := g.Generate()

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(spec); err != nil {
			http.Error(w, "failed to encode OpenAPI document", http.StatusInternalServerError)
		}
	}
}

// =============================================================================
// Paths
// =============================================================================

func (g *Generator) addRoute(spec *openapi3.T, route Route) {
	item := spec.Paths.Value(route.Path)
	if item == nil {
		item = &openapi3.PathItem{Parameters: pathParameters(route.Path)}
		spec.Paths.Set(route.Path, item)
	}

	op := &openapi3.Operation{
		OperationID: route.OperationID,
		Summary:     route.Summary,
		Responses:   openapi3.NewResponses(),
	}
	if route.Tag != "" {
		op.Tags = []string{route.Tag}
	}

	if route.Request != nil {
		op.RequestBody = &openapi3.RequestBodyRef{
			Value: &openapi3.RequestBody{
				Required: true,
				Content:  jsonContent(g.schemaRef(spec, route.Request)),
			},
		}
	}

	statuses := make([]int, 0, len(route.Responses))
	for status := range route.Responses {
		statuses = append(statuses, status)
	}
	sort.Ints(statuses)
	for _, status := range statuses {
		desc := http.StatusText(status)
		resp := &openapi3.Response{Description: &desc}
		if model := route.Responses[status]; model != nil {
			resp.Content = jsonContent(g.schemaRef(spec, model))
		}
		op.Responses.Set(strconv.Itoa(status), &openapi3.ResponseRef{Value: resp})
	}

	item.SetOperation(route.Method, op)
}

// pathParameters declares every {name} segment as a required string parameter.
func pathParameters(path string) openapi3.Parameters {
	var params openapi3.Parameters
	for _, segment := range strings.Split(path, "/") {
		if !strings.HasPrefix(segment, "{") || !strings.HasSuffix(segment, "}") {
			continue
		}
		params = append(params, &openapi3.ParameterRef{
			Value: openapi3.NewPathParameter(strings.Trim(segment, "{}")).
				WithSchema(openapi3.NewStringSchema()),
		})
	}
	return params
}

func jsonContent(schema *openapi3.SchemaRef) openapi3.Content {
	return openapi3.Content{
		"application/json": &openapi3.MediaType{Schema: schema},
	}
}

// =============================================================================
// Schema Generation
// =============================================================================

// schemaRef registers the model under components/schemas and returns a $ref to it.
func (g *Generator) schemaRef(spec *openapi3.T, model any) *openapi3.SchemaRef {
	t := reflect.TypeOf(model)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return g.goTypeToSchema(t)
	}

	if _, ok := spec.Components.Schemas[t.Name()]; !ok {
		spec.Components.Schemas[t.Name()] = g.extractSchema(t)
	}
	return openapi3.NewSchemaRef("#/components/schemas/"+t.Name(), nil)
}

// extractSchema builds an object schema from a struct's json-tagged fields.
func (g *Generator) extractSchema(t reflect.Type) *openapi3.SchemaRef {
	schema := openapi3.NewObjectSchema()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		jsonTag := field.Tag.Get("json")
		if jsonTag == "-" {
			continue
		}

		name := field.Name
		parts := strings.Split(jsonTag, ",")
		if parts[0] != "" {
			name = parts[0]
		}

		schema.Properties[name] = g.goTypeToSchema(field.Type)
	}

	return &openapi3.SchemaRef{Value: schema}
}

// goTypeToSchema converts a Go type to an OpenAPI schema.
func (g *Generator) goTypeToSchema(t reflect.Type) *openapi3.SchemaRef {
	switch t.Kind() {
	case reflect.String:
		return openapi3.NewStringSchema().NewRef()

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return openapi3.NewIntegerSchema().NewRef()

	case reflect.Float32, reflect.Float64:
		return openapi3.NewFloat64Schema().NewRef()

	case reflect.Bool:
		return openapi3.NewBoolSchema().NewRef()

	case reflect.Slice, reflect.Array:
		return openapi3.NewArraySchema().WithItems(g.goTypeToSchema(t.Elem()).Value).NewRef()

	case reflect.Map:
		return openapi3.NewObjectSchema().WithAdditionalProperties(g.goTypeToSchema(t.Elem()).Value).NewRef()

	case reflect.Ptr:
		ref := g.goTypeToSchema(t.Elem())
		ref.Value.Nullable = true
		return ref

	case reflect.Struct:
		if t == reflect.TypeOf(time.Time{}) {
			return openapi3.NewDateTimeSchema().NewRef()
		}
		return g.extractSchema(t)

	default:
		return openapi3.NewObjectSchema().NewRef()
	}
}
