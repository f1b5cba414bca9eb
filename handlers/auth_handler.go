package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/upb/catering-erp/middleware"
	"github.com/upb/catering-erp/services"
	"github.com/upb/catering-erp/token"
	"github.com/upb/catering-erp/utils"
	"go.uber.org/zap"
)

// AuthService defines the authentication operations behind the public routes
type AuthService interface {
	Authenticate(ctx context.Context, req services.LoginRequest) (*services.LoginResult, error)
	ForgotPassword(ctx context.Context, username string) error
	ResetPassword(ctx context.Context, resetToken, newPassword string) error
	ValidateToken(ctx context.Context, resetToken string) bool
	RefreshToken(ctx context.Context, claims token.Claims) (string, error)
}

// ForgotPasswordRequest is the body of POST /authenticate/forgot-password
type ForgotPasswordRequest struct {
	Username string `json:"username" validate:"required,max=150"`
}

// ResetPasswordRequest carries the reset-password query or form values
type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=6,max=200"`
}

// ValidateTokenResponse is the body of GET /validate-token
type ValidateTokenResponse struct {
	IsExpired bool `json:"isExpired"`
}

// TokenResponse is the body of GET /refresh-token
type TokenResponse struct {
	Token string `json:"token"`
}

// AuthHandler handles the public authentication routes
type AuthHandler struct {
	service AuthService
	logger  *zap.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		logger:  logger,
	}
}

// HandleLogin handles POST /authenticate
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	var req services.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to parse request body",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteBadRequest(w, "invalid request body", nil)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}
	req.IPAddress = utils.ClientIP(r)

	result, err := h.service.Authenticate(ctx, req)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, "login successful", result)
}

// HandleForgotPassword handles POST /authenticate/forgot-password
func (h *AuthHandler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	var req ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to parse request body",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteBadRequest(w, "invalid request body", nil)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	if err := h.service.ForgotPassword(ctx, req.Username); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, "reset password email sent", nil)
}

// HandleResetPassword handles POST /reset-password. token and newPassword
// are read from the query string or a form body.
func (h *AuthHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	req := ResetPasswordRequest{
		Token:       r.FormValue("token"),
		NewPassword: r.FormValue("newPassword"),
	}
	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	if err := h.service.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, "password changed", nil)
}

// HandleValidateToken handles GET /validate-token
func (h *AuthHandler) HandleValidateToken(w http.ResponseWriter, r *http.Request) {
	expired := h.service.ValidateToken(r.Context(), r.URL.Query().Get("token"))
	_ = utils.WriteOK(w, "", ValidateTokenResponse{IsExpired: expired})
}

// HandleRefreshToken handles GET /refresh-token. Only an expired bearer token
// surfaced by the auth filter can be refreshed.
func (h *AuthHandler) HandleRefreshToken(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetRefreshClaimsFromContext(r.Context())

	refreshed, err := h.service.RefreshToken(r.Context(), claims)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, "token refreshed", TokenResponse{Token: refreshed})
}
