package middleware

import (
	"context"
	"net/http"

	"github.com/upb/catering-erp/services"
	"github.com/upb/catering-erp/services/rights"
	"github.com/upb/catering-erp/utils"
	"go.uber.org/zap"
)

// RightsChecker evaluates a rights requirement for a user
type RightsChecker interface {
	Check(ctx context.Context, userID int64, req rights.Requirement) (bool, error)
}

// RightsMiddleware guards handlers with declarative rights requirements
type RightsMiddleware struct {
	checker RightsChecker
	logger  *zap.Logger
}

// NewRightsMiddleware creates a new RightsMiddleware
func NewRightsMiddleware(checker RightsChecker, logger *zap.Logger) *RightsMiddleware {
	return &RightsMiddleware{
		checker: checker,
		logger:  logger,
	}
}

// Require rejects the request with 401 "access denied" before the handler
// runs unless the principal satisfies req. Mount it after Authenticate.
//
//	r.With(rm.Require(rights.Require("orders").WithModes(true, rights.ModeEdit))).Put("/orders/{id}", h)
func (m *RightsMiddleware) Require(req rights.Requirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := GetRequestIDFromContext(ctx)

			principal := GetPrincipalFromContext(ctx)
			if principal == nil {
				m.logger.Warn("rights check without principal",
					zap.String("request_id", requestID),
					zap.Strings("capabilities", req.Capabilities))
				_ = utils.WriteUnauthorized(w, services.ErrAccessDenied.Message)
				return
			}

			allowed, err := m.checker.Check(ctx, principal.UserID(), req)
			if err != nil {
				m.logger.Error("failed to evaluate rights",
					zap.String("request_id", requestID),
					zap.Int64("user_id", principal.UserID()),
					zap.Error(err))
				_ = utils.WriteInternalServerError(w, "")
				return
			}

			if !allowed {
				m.logger.Warn("access denied",
					zap.String("request_id", requestID),
					zap.Int64("tenant_id", principal.TenantID),
					zap.Int64("user_id", principal.UserID()),
					zap.Strings("capabilities", req.Capabilities))
				_ = utils.WriteUnauthorized(w, services.ErrAccessDenied.Message)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
