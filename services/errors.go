package services

import (
	"errors"
	"fmt"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypeUnauthorized ErrorType = "unauthorized"
	ErrorTypeForbidden    ErrorType = "forbidden"
	ErrorTypeInternal     ErrorType = "internal"
)

// Detail keys understood by the frontend
const (
	DetailTenantInactive   = "tenantInactive"
	DetailReactivationLink = "reactivationLink"
)

// DomainError represents a structured error with additional context.
// Code distinguishes errors sharing a Type; errors without a Code match any
// error of the same Type.
type DomainError struct {
	Type    ErrorType
	Code    string
	Message string
	Err     error
	Details map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	if e.Type != t.Type {
		return false
	}
	return t.Code == "" || e.Code == t.Code
}

// WithDetail adds a detail to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Wrap returns a copy of e carrying err as its cause. Sentinels stay untouched.
func (e *DomainError) Wrap(err error) *DomainError {
	c := e.copy()
	c.Err = err
	return c
}

func (e *DomainError) copy() *DomainError {
	c := *e
	c.Details = make(map[string]interface{}, len(e.Details))
	for k, v := range e.Details {
		c.Details[k] = v
	}
	return &c
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

func newCoded(errType ErrorType, code, message string) *DomainError {
	e := NewDomainError(errType, message, nil)
	e.Code = code
	return e
}

// Domain error variables. Treat them as read-only; use Wrap or the
// constructors below to attach context.

var (
	// Not Found Errors
	ErrUserNotFound   = newCoded(ErrorTypeNotFound, "user_not_found", "user not found")
	ErrTenantNotFound = newCoded(ErrorTypeNotFound, "tenant_not_found", "tenant not found")

	// Validation Errors
	ErrInvalidInput       = NewDomainError(ErrorTypeValidation, "invalid input", nil)
	ErrCredentialsInvalid = newCoded(ErrorTypeValidation, "credentials_invalid", "username or password incorrect")
	ErrTenantUnresolvable = newCoded(ErrorTypeValidation, "tenant_unresolvable", "username or password incorrect")
	ErrUserInactive       = newCoded(ErrorTypeValidation, "user_inactive", "user is inactive")
	ErrEmailNotExist      = newCoded(ErrorTypeValidation, "email_not_exist", "email not exist")
	ErrResetTokenInvalid  = newCoded(ErrorTypeValidation, "reset_token_invalid", "reset token invalid")
	ErrTokenNotExpired    = newCoded(ErrorTypeValidation, "token_not_expired", "token not expired yet")

	// Authorization Errors
	ErrUnauthorized = NewDomainError(ErrorTypeUnauthorized, "unauthorized", nil)
	ErrTokenInvalid = newCoded(ErrorTypeUnauthorized, "token_invalid", "token invalid")
	ErrTokenExpired = newCoded(ErrorTypeUnauthorized, "token_expired", "token expired")
	ErrAccessDenied = newCoded(ErrorTypeUnauthorized, "access_denied", "access denied")

	// Permission Errors
	ErrTenantInactive = newCoded(ErrorTypeForbidden, "tenant_inactive", "access denied").WithDetail(DetailTenantInactive, true)

	// Internal Errors
	ErrInternal          = NewDomainError(ErrorTypeInternal, "internal server error", nil)
	ErrTransactionFailed = NewDomainError(ErrorTypeInternal, "transaction failed", nil)
)

// NewUserInactiveError returns ErrUserInactive carrying the reactivation link
func NewUserInactiveError(reactivationLink string) *DomainError {
	return ErrUserInactive.copy().WithDetail(DetailReactivationLink, reactivationLink)
}

// Error type checking helper functions

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	return GetErrorType(err) == ErrorTypeNotFound
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return GetErrorType(err) == ErrorTypeValidation
}

// IsUnauthorizedError checks if an error is an unauthorized error
func IsUnauthorizedError(err error) bool {
	return GetErrorType(err) == ErrorTypeUnauthorized
}

// IsForbiddenError checks if an error is a forbidden error
func IsForbiddenError(err error) bool {
	return GetErrorType(err) == ErrorTypeForbidden
}

// IsInternalError checks if an error is an internal error
func IsInternalError(err error) bool {
	return GetErrorType(err) == ErrorTypeInternal
}

// GetErrorType returns the ErrorType of a domain error, or empty string if not a domain error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// GetErrorDetails returns the details map of a domain error, or nil if not a domain error
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}

// GetErrorMessage returns the client-facing message of a domain error
func GetErrorMessage(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return ErrInternal.Message
}

// WrapError wraps an error with additional context
func WrapError(errType ErrorType, message string, err error) error {
	return NewDomainError(errType, message, err)
}

// WrapInternal wraps an error as an internal error
func WrapInternal(message string, err error) error {
	return NewDomainError(ErrorTypeInternal, message, err)
}
