package token

import (
	"encoding/json"
	"strconv"
	"time"
)

// Claim names carried by session tokens
const (
	ClaimSubject    = "sub"
	ClaimTenantID   = "tenantId"
	ClaimTenantCode = "companyUniqueCode"
	ClaimUserID     = "userId"
	ClaimIssuedAt   = "iat"
	ClaimExpiresAt  = "exp"
	ClaimPurpose    = "typ"
)

// PurposeReset marks a token that may only be spent on a password reset.
// Session tokens carry no purpose claim.
const PurposeReset = "reset"

// Claims is the decoded claim set of a token. Unknown claims are kept so that
// refresh can carry them forward.
type Claims map[string]interface{}

// Clone returns a shallow copy of the claim set
func (c Claims) Clone() Claims {
	out := make(Claims, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Username returns the sub claim
func (c Claims) Username() string {
	s, _ := c[ClaimSubject].(string)
	return s
}

// TenantCode returns the companyUniqueCode claim
func (c Claims) TenantCode() string {
	s, _ := c[ClaimTenantCode].(string)
	return s
}

// Purpose returns the typ claim, empty for session tokens
func (c Claims) Purpose() string {
	s, _ := c[ClaimPurpose].(string)
	return s
}

// IsReset reports whether the token was issued for a password reset
func (c Claims) IsReset() bool {
	return c.Purpose() == PurposeReset
}

// TenantID returns the tenantId claim, false when absent or not numeric
func (c Claims) TenantID() (int64, bool) {
	return asInt64(c[ClaimTenantID])
}

// UserID returns the userId claim, false when absent or not numeric
func (c Claims) UserID() (int64, bool) {
	return asInt64(c[ClaimUserID])
}

// IssuedAt returns the iat claim as a time
func (c Claims) IssuedAt() (time.Time, bool) {
	sec, ok := asInt64(c[ClaimIssuedAt])
	if !ok {
		return time.Time{}, false
	}
	return time.Unix(sec, 0), true
}

// ExpiresAt returns the exp claim as a time
func (c Claims) ExpiresAt() (time.Time, bool) {
	sec, ok := asInt64(c[ClaimExpiresAt])
	if !ok {
		return time.Time{}, false
	}
	return time.Unix(sec, 0), true
}

// asInt64 normalizes the numeric shapes a claim can take after a JSON roundtrip
func asInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	default:
		return 0, false
	}
}
