package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/upb/catering-erp/files"
	"github.com/upb/catering-erp/middleware"
	"github.com/upb/catering-erp/models"
	"github.com/upb/catering-erp/utils"
	"go.uber.org/zap"
)

// LoginHistory lists recorded login attempts
type LoginHistory interface {
	Recent(ctx context.Context, username string, limit int) ([]*models.LoginAttempt, error)
}

// ProfileResponse is the body of GET /api/v1/me
type ProfileResponse struct {
	ID          int64             `json:"id"`
	Username    string            `json:"username"`
	Names       map[string]string `json:"names"`
	Email       string            `json:"email,omitempty"`
	AvatarURL   string            `json:"avatarUrl"`
	Authorities []string          `json:"authorities"`
	UniqueCode  string            `json:"uniqueCode"`
}

// UserHandler serves the authenticated user's own resources
type UserHandler struct {
	history LoginHistory
	files   files.Locator
	logger  *zap.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(history LoginHistory, locator files.Locator, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		history: history,
		files:   locator,
		logger:  logger,
	}
}

// HandleMe handles GET /api/v1/me
func (h *UserHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipalFromContext(r.Context())
	if principal == nil {
		_ = utils.WriteUnauthorized(w, "")
		return
	}

	user := principal.User
	authorities := user.Roles
	if authorities == nil {
		authorities = []string{}
	}

	_ = utils.WriteOK(w, "", ProfileResponse{
		ID:          user.ID,
		Username:    user.Username,
		Names:       user.Names,
		Email:       user.Email,
		AvatarURL:   h.files.AvatarURL(user.AvatarPath),
		Authorities: authorities,
		UniqueCode:  principal.TenantCode,
	})
}

// HandleLoginAttempts handles GET /api/v1/me/login-attempts?limit=
func (h *UserHandler) HandleLoginAttempts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	principal := middleware.GetPrincipalFromContext(ctx)
	if principal == nil {
		_ = utils.WriteUnauthorized(w, "")
		return
	}

	limit := 10
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			_ = utils.WriteBadRequest(w, "limit must be a positive integer", nil)
			return
		}
		limit = n
	}

	attempts, err := h.history.Recent(ctx, principal.Username(), limit)
	if err != nil {
		h.logger.Error("failed to list login attempts",
			zap.String("request_id", requestID),
			zap.Int64("user_id", principal.UserID()),
			zap.Error(err))
		_ = utils.WriteInternalServerError(w, "")
		return
	}

	_ = utils.WriteOK(w, "", attempts)
}
