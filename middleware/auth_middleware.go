package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/upb/catering-erp/models"
	"github.com/upb/catering-erp/services"
	"github.com/upb/catering-erp/tenant"
	"github.com/upb/catering-erp/token"
	"github.com/upb/catering-erp/utils"
	"go.uber.org/zap"
)

// TenantHeader carries the company code on login requests
const TenantHeader = "companyUniqueCode"

// TokenDecoder verifies session tokens
type TokenDecoder interface {
	Decode(tokenString string) (token.Claims, error)
}

// TenantResolver looks tenants up by company code or id
type TenantResolver interface {
	ByCode(ctx context.Context, code string) (*models.Tenant, error)
	ByID(ctx context.Context, id int64) (*models.Tenant, error)
}

// PrincipalResolver loads the user a verified token belongs to
type PrincipalResolver interface {
	ResolvePrincipal(ctx context.Context, claims token.Claims) (*models.User, error)
}

// AuthConfig names the paths the filter treats specially
type AuthConfig struct {
	LoginPaths  []string
	RefreshPath string
}

// DefaultAuthConfig returns the public route layout
func DefaultAuthConfig() AuthConfig {
	return AuthConfig{
		LoginPaths:  []string{"/authenticate", "/authenticate/forgot-password"},
		RefreshPath: "/refresh-token",
	}
}

// AuthMiddleware establishes the tenant and principal of every request
type AuthMiddleware struct {
	decoder    TokenDecoder
	tenants    TenantResolver
	principals PrincipalResolver
	config     AuthConfig
	logger     *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(decoder TokenDecoder, tenants TenantResolver, principals PrincipalResolver, config AuthConfig, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		decoder:    decoder,
		tenants:    tenants,
		principals: principals,
		config:     config,
		logger:     logger,
	}
}

// Authenticate runs once per request. It always starts from the control
// plane. Login paths are bound to the tenant named by the companyUniqueCode
// header and never look at a bearer token. Elsewhere a bearer token is
// verified and its principal installed; requests without one continue
// anonymously.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := tenant.WithContext(r.Context(), tenant.ControlPlane)
		requestID := GetRequestIDFromContext(ctx)

		if m.isLoginPath(r.URL.Path) {
			code := strings.TrimSpace(r.Header.Get(TenantHeader))
			t, err := m.loginTenant(ctx, code)
			if err != nil {
				if errors.Is(err, tenant.ErrUnresolvable) {
					m.logger.Warn("login tenant unresolvable",
						zap.String("request_id", requestID),
						zap.String("company_code", code))
					_ = utils.WriteBadRequest(w, services.ErrTenantUnresolvable.Message, nil)
					return
				}
				m.logger.Error("failed to resolve login tenant",
					zap.String("request_id", requestID),
					zap.Error(err))
				_ = utils.WriteInternalServerError(w, "")
				return
			}
			next.ServeHTTP(w, r.WithContext(tenant.WithContext(ctx, tenant.ContextFor(t))))
			return
		}

		raw, ok := utils.BearerToken(r)
		if !ok {
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		claims, err := m.decoder.Decode(raw)
		switch {
		case err == nil:
		case errors.Is(err, token.ErrTokenExpired):
			if r.URL.Path == m.config.RefreshPath && claims != nil {
				m.logger.Debug("expired token presented for refresh",
					zap.String("request_id", requestID),
					zap.String("username", claims.Username()))
				next.ServeHTTP(w, r.WithContext(WithRefreshClaims(ctx, claims)))
				return
			}
			_ = utils.WriteUnauthorized(w, services.ErrTokenExpired.Message)
			return
		case errors.Is(err, token.ErrTokenBadSignature), errors.Is(err, token.ErrTokenMalformed):
			m.logger.Warn("token rejected",
				zap.String("request_id", requestID),
				zap.Error(err))
			_ = utils.WriteUnauthorized(w, services.ErrTokenInvalid.Message)
			return
		default:
			m.logger.Error("token decode failed",
				zap.String("request_id", requestID),
				zap.Error(err))
			_ = utils.WriteInternalServerError(w, "")
			return
		}

		ctx = WithClaims(ctx, claims)

		tenantID, ok := claims.TenantID()
		if !ok || GetPrincipalFromContext(ctx) != nil {
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		t, err := m.tenants.ByID(ctx, tenantID)
		if err != nil {
			if errors.Is(err, tenant.ErrUnresolvable) {
				_ = utils.WriteUnauthorized(w, services.ErrTokenInvalid.Message)
				return
			}
			m.logger.Error("failed to resolve token tenant",
				zap.String("request_id", requestID),
				zap.Int64("tenant_id", tenantID),
				zap.Error(err))
			_ = utils.WriteInternalServerError(w, "")
			return
		}
		if !t.Active {
			m.writeError(w, requestID, services.ErrTenantInactive)
			return
		}
		ctx = tenant.WithContext(ctx, tenant.ContextFor(t))

		user, err := m.principals.ResolvePrincipal(ctx, claims)
		if err != nil {
			m.writeError(w, requestID, err)
			return
		}

		ctx = WithPrincipal(ctx, &Principal{
			User:       user,
			TenantID:   t.ID,
			TenantCode: t.UniqueCode,
		})

		m.logger.Debug("authentication successful",
			zap.String("request_id", requestID),
			zap.Int64("tenant_id", t.ID),
			zap.String("username", user.Username))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAuth rejects requests that carry no principal. Mount it after
// Authenticate.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetPrincipalFromContext(r.Context()) == nil {
			_ = utils.WriteUnauthorized(w, "")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m *AuthMiddleware) loginTenant(ctx context.Context, code string) (*models.Tenant, error) {
	if code == "" {
		return nil, tenant.ErrUnresolvable
	}
	return m.tenants.ByCode(ctx, code)
}

func (m *AuthMiddleware) isLoginPath(path string) bool {
	for _, p := range m.config.LoginPaths {
		if path == p {
			return true
		}
	}
	return false
}

func (m *AuthMiddleware) writeError(w http.ResponseWriter, requestID string, err error) {
	switch services.GetErrorType(err) {
	case services.ErrorTypeForbidden:
		m.logger.Warn("tenant inactive", zap.String("request_id", requestID))
		_ = utils.WriteForbidden(w, services.GetErrorMessage(err), services.GetErrorDetails(err))
	case services.ErrorTypeUnauthorized:
		m.logger.Warn("token does not match user",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteUnauthorized(w, services.ErrTokenInvalid.Message)
	default:
		m.logger.Error("failed to resolve principal",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteInternalServerError(w, "")
	}
}
