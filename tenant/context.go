package tenant

import (
	"context"

	"github.com/upb/catering-erp/models"
)

// Context identifies the data store a request operates on
type Context struct {
	TenantID   int64
	UniqueCode string
	DataStore  string
}

// ControlPlane is the context used when no tenant has been established.
// Its empty DataStore selects the control-plane database.
var ControlPlane = Context{}

// IsControlPlane reports whether c selects the control-plane database
func (c Context) IsControlPlane() bool {
	return c.DataStore == ""
}

// ContextFor builds the request tenant context for t
func ContextFor(t *models.Tenant) Context {
	return Context{
		TenantID:   t.ID,
		UniqueCode: t.UniqueCode,
		DataStore:  t.DataStore,
	}
}

type contextKey struct{}

// WithContext returns a copy of ctx bound to tenant c
func WithContext(ctx context.Context, c Context) context.Context {
	return context.WithValue(ctx, contextKey{}, c)
}

// FromContext returns the tenant bound to ctx, or ControlPlane
func FromContext(ctx context.Context) Context {
	if c, ok := ctx.Value(contextKey{}).(Context); ok {
		return c
	}
	return ControlPlane
}
