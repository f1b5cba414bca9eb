package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenExpired is returned when the signature is valid but exp has passed.
	// Decode still returns the claims alongside it.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenMalformed is returned when the token cannot be parsed or lacks required claims
	ErrTokenMalformed = errors.New("token malformed")

	// ErrTokenBadSignature is returned when the signature does not verify against the secret
	ErrTokenBadSignature = errors.New("token signature invalid")

	// ErrClaimNotFound is returned by Extract when the claim is absent
	ErrClaimNotFound = errors.New("claim not found")
)

// Identity is what a token binds together. Purpose is empty for session
// tokens.
type Identity struct {
	Username   string
	UserID     int64
	TenantID   int64
	TenantCode string
	Purpose    string
}

// Config holds configuration for Codec
type Config struct {
	Secret string
	Leeway time.Duration
	Now    func() time.Time // Defaults to time.Now
}

// Codec signs and verifies HS512 tokens with a single process-wide secret
type Codec struct {
	secret []byte
	leeway time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

// NewCodec creates a new token codec
func NewCodec(config Config) (*Codec, error) {
	if config.Secret == "" {
		return nil, errors.New("token secret is required")
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	c := &Codec{
		secret: []byte(config.Secret),
		leeway: config.Leeway,
		now:    config.Now,
	}
	c.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithLeeway(config.Leeway),
		jwt.WithTimeFunc(config.Now),
		jwt.WithExpirationRequired(),
	)
	return c, nil
}

// Issue creates a token for identity that expires after ttl
func (c *Codec) Issue(identity Identity, ttl time.Duration) (string, error) {
	now := c.now()
	claims := Claims{
		ClaimSubject:    identity.Username,
		ClaimTenantID:   identity.TenantID,
		ClaimTenantCode: identity.TenantCode,
		ClaimUserID:     identity.UserID,
		ClaimIssuedAt:   now.Unix(),
		ClaimExpiresAt:  now.Add(ttl).Unix(),
	}
	if identity.Purpose != "" {
		claims[ClaimPurpose] = identity.Purpose
	}
	return c.sign(claims)
}

// IssueFromClaims re-signs an existing claim set with subject bound and a fresh
// exp. All other claims are carried over unchanged.
func (c *Codec) IssueFromClaims(claims Claims, subject string, ttl time.Duration) (string, error) {
	if claims == nil {
		return "", fmt.Errorf("%w: no claims to reissue", ErrTokenMalformed)
	}
	next := claims.Clone()
	next[ClaimSubject] = subject
	next[ClaimExpiresAt] = c.now().Add(ttl).Unix()
	return c.sign(next)
}

// Decode verifies the signature and structure of tokenString.
// An expired token yields its claims together with ErrTokenExpired so callers
// can decide whether expiry is fatal.
func (c *Codec) Decode(tokenString string) (Claims, error) {
	parsed, err := c.parser.ParseWithClaims(tokenString, jwt.MapClaims{}, c.keyFunc)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
			return nil, fmt.Errorf("%w: %v", ErrTokenBadSignature, err)
		case errors.Is(err, jwt.ErrTokenExpired):
			// Claims are only validated after the signature checked out
			if parsed != nil {
				if mc, ok := parsed.Claims.(jwt.MapClaims); ok {
					return Claims(mc), ErrTokenExpired
				}
			}
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenRequiredClaimMissing), errors.Is(err, jwt.ErrTokenInvalidClaims):
			return nil, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
		default:
			return nil, fmt.Errorf("decode token: %w", err)
		}
	}

	mc, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenMalformed
	}
	return Claims(mc), nil
}

// Extract returns a single claim from tokenString. Expired tokens are accepted.
func (c *Codec) Extract(tokenString, field string) (interface{}, error) {
	claims, err := c.Decode(tokenString)
	if err != nil && !errors.Is(err, ErrTokenExpired) {
		return nil, err
	}
	value, ok := claims[field]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrClaimNotFound, field)
	}
	return value, nil
}

func (c *Codec) sign(claims Claims) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims(claims)).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (c *Codec) keyFunc(t *jwt.Token) (interface{}, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
	}
	return c.secret, nil
}
