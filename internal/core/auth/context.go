// Package auth provides the actor identity carried with each request and
// the ownership checks built on it.
package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
)

// =============================================================================
// Context Key
// =============================================================================

type contextKey string

const authContextKey contextKey = "auth"

// =============================================================================
// Types
// =============================================================================

// Context is the identity of the actor making a request.
// It is extracted from gateway-injected headers and stored in the request context.
type Context struct {
	// UserID is the actor's identifier, compared against Product.OwnerID.
	UserID string

	// KeyID is the API key ID if API key authentication was used (from X-Key-ID header)
	KeyID string

	// Authenticated indicates whether the request carries an identity.
	Authenticated bool
}

// Anonymous returns the context of an actor with no identity.
func Anonymous() Context {
	return Context{Authenticated: false}
}

// ForUser returns an authenticated context for userID.
// An empty userID yields an anonymous context.
func ForUser(userID string) Context {
	if userID == "" {
		return Anonymous()
	}
	return Context{UserID: userID, Authenticated: true}
}

// Present reports whether the context identifies an actor.
func (c Context) Present() bool {
	return c.Authenticated && c.UserID != ""
}

// =============================================================================
// Header Constants
// =============================================================================

const (
	// HeaderUserID is the header containing the authenticated user's ID
	HeaderUserID = "X-User-ID"

	// HeaderKeyID is the header containing the API key ID
	HeaderKeyID = "X-Key-ID"

	// HeaderGatewaySecret is the header containing the shared secret for validation
	HeaderGatewaySecret = "X-Gateway-Secret"
)

// =============================================================================
// Context Extraction
// =============================================================================

// ExtractFromRequest extracts auth context from HTTP request headers.
func ExtractFromRequest(r *http.Request) Context {
	return ExtractFromHeaders(r.Header)
}

// HeaderGetter is an interface for getting header values.
// http.Header satisfies it.
type HeaderGetter interface {
	Get(key string) string
}

// ExtractFromHeaders extracts auth context from headers.
//
// Auth sources (checked in order):
//  1. X-User-ID header (injected by the gateway)
//  2. Authorization: Bearer {jwt}: decode payload, extract sub claim
//
// No signature verification is done here; the gateway has already validated the token.
func ExtractFromHeaders(headers HeaderGetter) Context {
	if userID := strings.TrimSpace(headers.Get(HeaderUserID)); userID != "" {
		return Context{
			UserID:        userID,
			KeyID:         headers.Get(HeaderKeyID),
			Authenticated: true,
		}
	}

	claims := parseBearer(headers.Get("Authorization"))
	if claims == nil || claims.Sub == "" {
		return Anonymous()
	}
	return ForUser(claims.Sub)
}

// jwtClaims holds the fields extracted from a JWT payload.
type jwtClaims struct {
	Sub string `json:"sub"`
}

// parseBearer extracts claims from a Bearer token by base64-decoding the payload.
func parseBearer(authHeader string) *jwtClaims {
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return nil
	}
	parts := strings.Split(authHeader[7:], ".")
	if len(parts) != 3 {
		return nil
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil
	}
	var claims jwtClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil
	}
	return &claims
}

// =============================================================================
// Context Storage
// =============================================================================

// WithContext stores the auth context in the request context.
func WithContext(ctx context.Context, authCtx Context) context.Context {
	return context.WithValue(ctx, authContextKey, authCtx)
}

// FromContext retrieves the auth context from the request context.
// If no auth context is found, returns an unauthenticated context.
func FromContext(ctx context.Context) Context {
	if authCtx, ok := ctx.Value(authContextKey).(Context); ok {
		return authCtx
	}
	return Anonymous()
}

// =============================================================================
// Helper Types for Testing
// =============================================================================

// MapHeaderGetter wraps a map to implement HeaderGetter interface.
type MapHeaderGetter map[string]string

func (m MapHeaderGetter) Get(key string) string {
	return m[key]
}
