package middleware

import (
	"context"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/upb/catering-erp/models"
	"github.com/upb/catering-erp/token"
)

// Context key type to avoid collisions
type contextKey string

const (
	// ClaimsKey is the context key for verified token claims
	ClaimsKey contextKey = "claims"

	// RefreshClaimsKey is the context key for the claims of an expired token
	// presented to the refresh endpoint
	RefreshClaimsKey contextKey = "refresh_claims"

	// PrincipalKey is the context key for the authenticated principal
	PrincipalKey contextKey = "principal"
)

// Principal is the authenticated user of a request
type Principal struct {
	User       *models.User
	TenantID   int64
	TenantCode string
}

// UserID returns the principal's user id
func (p *Principal) UserID() int64 {
	return p.User.ID
}

// Username returns the principal's login name
func (p *Principal) Username() string {
	return p.User.Username
}

// GetRequestIDFromContext retrieves the request ID set by chi's RequestID middleware
func GetRequestIDFromContext(ctx context.Context) string {
	return chimw.GetReqID(ctx)
}

// GetClaimsFromContext retrieves verified token claims from context
func GetClaimsFromContext(ctx context.Context) token.Claims {
	if claims, ok := ctx.Value(ClaimsKey).(token.Claims); ok {
		return claims
	}
	return nil
}

// WithClaims adds verified token claims to the context
func WithClaims(ctx context.Context, claims token.Claims) context.Context {
	return context.WithValue(ctx, ClaimsKey, claims)
}

// GetRefreshClaimsFromContext retrieves the claims of an expired token, set
// only on the refresh endpoint
func GetRefreshClaimsFromContext(ctx context.Context) token.Claims {
	if claims, ok := ctx.Value(RefreshClaimsKey).(token.Claims); ok {
		return claims
	}
	return nil
}

// WithRefreshClaims adds the claims of an expired token to the context
func WithRefreshClaims(ctx context.Context, claims token.Claims) context.Context {
	return context.WithValue(ctx, RefreshClaimsKey, claims)
}

// GetPrincipalFromContext retrieves the authenticated principal from context
func GetPrincipalFromContext(ctx context.Context) *Principal {
	if p, ok := ctx.Value(PrincipalKey).(*Principal); ok {
		return p
	}
	return nil
}

// WithPrincipal adds the authenticated principal to the context
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, PrincipalKey, p)
}
