package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/upb/catering-erp/files"
	"github.com/upb/catering-erp/mail"
	"github.com/upb/catering-erp/models"
	"github.com/upb/catering-erp/repositories"
	"github.com/upb/catering-erp/tenant"
	"github.com/upb/catering-erp/token"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// TenantLookup resolves tenants; *tenant.Resolver implements it
type TenantLookup interface {
	ByCode(ctx context.Context, code string) (*models.Tenant, error)
	ByID(ctx context.Context, id int64) (*models.Tenant, error)
}

// LoginRecorder persists login attempts; *audit.AuditService implements it
type LoginRecorder interface {
	Record(ctx context.Context, attempt *models.LoginAttempt) error
}

// GrantInvalidator drops cached rights of a user in the tenant bound to ctx;
// *rights.Engine implements it
type GrantInvalidator interface {
	InvalidateUser(ctx context.Context, userID int64)
}

// LoginRequest is the body of POST /authenticate
type LoginRequest struct {
	Username  string `json:"username" validate:"required,max=150"`
	Password  string `json:"password" validate:"required,max=200"`
	IPAddress string `json:"-"`
}

// LoginResult is returned on a successful login
type LoginResult struct {
	Token       string            `json:"token"`
	Names       map[string]string `json:"names"`
	ID          int64             `json:"id"`
	UniqueCode  string            `json:"uniqueCode"`
	AvatarURL   string            `json:"avatarUrl"`
	Authorities []string          `json:"authorities"`
}

// AuthConfig holds token lifetimes
type AuthConfig struct {
	TokenTTL time.Duration
	ResetTTL time.Duration
}

// AuthService runs login, password recovery and token maintenance for the
// tenant bound to the request context
type AuthService struct {
	tenants  TenantLookup
	users    repositories.UserRepository
	txMgr    repositories.TransactionManager
	codec    *token.Codec
	recorder LoginRecorder
	mailer   mail.Mailer
	links    mail.Links
	files    files.Locator
	grants   GrantInvalidator
	config   AuthConfig
	logger   *zap.Logger
	now      func() time.Time
}

// AuthDeps groups the collaborators of AuthService
type AuthDeps struct {
	Tenants  TenantLookup
	Users    repositories.UserRepository
	TxMgr    repositories.TransactionManager
	Codec    *token.Codec
	Recorder LoginRecorder
	Mailer   mail.Mailer
	Links    mail.Links
	Files    files.Locator
	Grants   GrantInvalidator // optional
}

// NewAuthService creates a new AuthService
func NewAuthService(deps AuthDeps, config AuthConfig, logger *zap.Logger) *AuthService {
	if config.TokenTTL <= 0 {
		config.TokenTTL = 8 * time.Hour
	}
	if config.ResetTTL <= 0 {
		config.ResetTTL = 24 * time.Hour
	}
	return &AuthService{
		tenants:  deps.Tenants,
		users:    deps.Users,
		txMgr:    deps.TxMgr,
		codec:    deps.Codec,
		recorder: deps.Recorder,
		mailer:   deps.Mailer,
		links:    deps.Links,
		files:    deps.Files,
		grants:   deps.Grants,
		config:   config,
		logger:   logger,
		now:      time.Now,
	}
}

// Authenticate verifies credentials against the tenant bound to ctx and
// issues a session token. Once the tenant is known to be active, every call
// records exactly one login attempt.
func (s *AuthService) Authenticate(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	t, err := s.requestTenant(ctx)
	if err != nil {
		return nil, err
	}
	if !t.Active {
		s.logger.Warn("login rejected, tenant inactive",
			zap.Int64("tenant_id", t.ID),
			zap.String("username", req.Username))
		return nil, ErrTenantInactive
	}

	attempt := models.NewLoginAttempt(req.Username, req.IPAddress)

	user, err := s.users.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			s.record(ctx, attempt)
			s.logger.Warn("unsuccessful login, unknown username",
				zap.Int64("tenant_id", t.ID),
				zap.String("username", req.Username),
				zap.String("ip", req.IPAddress))
			return nil, ErrCredentialsInvalid
		}
		return nil, WrapInternal("failed to load user", err)
	}
	attempt.WithUser(user.ID)

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		s.record(ctx, attempt)
		s.logger.Warn("unsuccessful login, bad credentials",
			zap.Int64("tenant_id", t.ID),
			zap.String("username", req.Username),
			zap.String("ip", req.IPAddress))
		return nil, ErrCredentialsInvalid
	}

	if !user.Active {
		s.record(ctx, attempt)
		s.logger.Warn("unsuccessful login, user inactive",
			zap.Int64("tenant_id", t.ID),
			zap.Int64("user_id", user.ID))
		return nil, NewUserInactiveError(s.links.Reactivate(user.Username, t.UniqueCode))
	}

	signed, err := s.codec.Issue(token.Identity{
		Username:   user.Username,
		UserID:     user.ID,
		TenantID:   t.ID,
		TenantCode: t.UniqueCode,
	}, s.config.TokenTTL)
	if err != nil {
		return nil, WrapInternal("failed to issue token", err)
	}

	s.record(ctx, attempt.Succeeded())
	s.logger.Info("user logged in",
		zap.Int64("tenant_id", t.ID),
		zap.Int64("user_id", user.ID))

	authorities := user.Roles
	if authorities == nil {
		authorities = []string{}
	}
	return &LoginResult{
		Token:       signed,
		Names:       user.Names,
		ID:          user.ID,
		UniqueCode:  t.UniqueCode,
		AvatarURL:   s.files.AvatarURL(user.AvatarPath),
		Authorities: authorities,
	}, nil
}

// ForgotPassword stores a fresh reset token on the user, replacing any
// earlier one, and emails a link carrying it
func (s *AuthService) ForgotPassword(ctx context.Context, username string) error {
	t, err := s.requestTenant(ctx)
	if err != nil {
		return err
	}
	if !t.Active {
		return ErrTenantInactive
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrUserNotFound
		}
		return WrapInternal("failed to load user", err)
	}
	if !user.HasEmail() {
		return ErrEmailNotExist
	}

	resetToken, err := s.codec.Issue(token.Identity{
		Username:   user.Username,
		UserID:     user.ID,
		TenantID:   t.ID,
		TenantCode: t.UniqueCode,
		Purpose:    token.PurposeReset,
	}, s.config.ResetTTL)
	if err != nil {
		return WrapInternal("failed to issue reset token", err)
	}

	if err := s.users.UpdateResetToken(ctx, user.ID, resetToken); err != nil {
		return WrapInternal("failed to store reset token", err)
	}

	msg := mail.ResetPasswordMessage(user.Email, user.Username, s.links.ResetPassword(resetToken))
	if err := s.mailer.Send(ctx, msg); err != nil {
		return WrapInternal("failed to send reset email", err)
	}

	s.logger.Info("password reset requested",
		zap.Int64("tenant_id", t.ID),
		zap.Int64("user_id", user.ID))
	return nil
}

// ResetPassword replaces the password of the user the reset token was issued
// to. The token must be an unexpired reset token equal to the one stored on
// the user.
func (s *AuthService) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	claims, err := s.codec.Decode(resetToken)
	if err != nil {
		return ErrResetTokenInvalid.Wrap(err)
	}
	if !claims.IsReset() {
		return ErrResetTokenInvalid
	}

	ctx, err = s.tokenTenant(ctx, claims)
	if err != nil {
		if errors.Is(err, tenant.ErrUnresolvable) || errors.Is(err, ErrTenantUnresolvable) {
			return ErrResetTokenInvalid.Wrap(err)
		}
		return WrapInternal("failed to resolve tenant", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return WrapInternal("failed to hash password", err)
	}

	var userID int64
	err = WithTransaction(ctx, s.txMgr, func(ctx context.Context, tx repositories.Transaction) error {
		user, err := s.users.GetByUsername(ctx, claims.Username())
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return ErrResetTokenInvalid
			}
			return WrapInternal("failed to load user", err)
		}
		if !sameToken(user.ResetToken, resetToken) {
			return ErrResetTokenInvalid
		}
		userID = user.ID
		return s.users.UpdatePassword(ctx, user.ID, string(hash), s.now())
	})
	if err != nil {
		if GetErrorType(err) == "" {
			return WrapInternal("failed to reset password", err)
		}
		return err
	}

	if s.grants != nil {
		s.grants.InvalidateUser(ctx, userID)
	}

	s.logger.Info("password reset", zap.String("username", claims.Username()))
	return nil
}

// ValidateToken reports whether a reset token should be treated as expired.
// Any decode failure, a session token, and any token differing from the one
// stored on the user count as expired.
func (s *AuthService) ValidateToken(ctx context.Context, resetToken string) bool {
	claims, err := s.codec.Decode(resetToken)
	if err != nil || !claims.IsReset() {
		return true
	}

	ctx, err = s.tokenTenant(ctx, claims)
	if err != nil {
		return true
	}

	user, err := s.users.GetByUsername(ctx, claims.Username())
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			s.logger.Error("failed to load user for token validation", zap.Error(err))
		}
		return true
	}

	return !sameToken(user.ResetToken, resetToken)
}

// RefreshToken reissues an expired session token from its claims with a
// fresh expiry. claims is nil unless the request carried an expired token.
func (s *AuthService) RefreshToken(ctx context.Context, claims token.Claims) (string, error) {
	if claims == nil {
		return "", ErrTokenNotExpired
	}
	subject := claims.Username()
	if subject == "" || claims.IsReset() {
		return "", ErrTokenInvalid
	}

	signed, err := s.codec.IssueFromClaims(claims, subject, s.config.TokenTTL)
	if err != nil {
		return "", WrapInternal("failed to refresh token", err)
	}
	s.logger.Debug("token refreshed", zap.String("username", subject))
	return signed, nil
}

// ResolvePrincipal loads the user a valid session token was issued to and
// checks the token still applies: the tenant is active, the user is active,
// username and id match, and the token postdates the last password change.
// Reset tokens never resolve to a principal.
func (s *AuthService) ResolvePrincipal(ctx context.Context, claims token.Claims) (*models.User, error) {
	if claims.IsReset() {
		return nil, ErrTokenInvalid
	}
	tenantID, ok := claims.TenantID()
	if !ok {
		return nil, ErrTokenInvalid
	}
	t, err := s.tenants.ByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, tenant.ErrUnresolvable) {
			return nil, ErrTokenInvalid.Wrap(err)
		}
		return nil, WrapInternal("failed to resolve tenant", err)
	}
	if !t.Active {
		return nil, ErrTenantInactive
	}

	user, err := s.users.GetByUsername(ctx, claims.Username())
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrTokenInvalid.Wrap(err)
		}
		return nil, WrapInternal("failed to load user", err)
	}

	if userID, ok := claims.UserID(); !ok || userID != user.ID {
		return nil, ErrTokenInvalid
	}
	if !user.Active {
		return nil, ErrTokenInvalid
	}
	if iat, ok := claims.IssuedAt(); !ok || user.IssuedBeforePasswordChange(iat) {
		return nil, ErrTokenInvalid
	}

	return user, nil
}

// requestTenant returns the tenant established for this request from the
// companyUniqueCode header
func (s *AuthService) requestTenant(ctx context.Context) (*models.Tenant, error) {
	tc := tenant.FromContext(ctx)
	if tc.IsControlPlane() {
		return nil, ErrTenantUnresolvable
	}
	t, err := s.tenants.ByID(ctx, tc.TenantID)
	if err != nil {
		if errors.Is(err, tenant.ErrUnresolvable) {
			return nil, ErrTenantUnresolvable
		}
		return nil, WrapInternal("failed to resolve tenant", err)
	}
	return t, nil
}

// tokenTenant binds ctx to the tenant named by claims
func (s *AuthService) tokenTenant(ctx context.Context, claims token.Claims) (context.Context, error) {
	tenantID, ok := claims.TenantID()
	if !ok {
		return ctx, ErrTenantUnresolvable
	}
	t, err := s.tenants.ByID(ctx, tenantID)
	if err != nil {
		return ctx, err
	}
	return tenant.WithContext(ctx, tenant.ContextFor(t)), nil
}

func (s *AuthService) record(ctx context.Context, attempt *models.LoginAttempt) {
	if err := s.recorder.Record(ctx, attempt); err != nil {
		s.logger.Error("failed to record login attempt",
			zap.String("username", attempt.Username),
			zap.Error(err))
	}
}

func sameToken(stored, supplied string) bool {
	if stored == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(supplied)) == 1
}
