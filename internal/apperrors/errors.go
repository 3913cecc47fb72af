package apperrors

import (
	"errors"
	"net/http"
)

var (
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Credential rejections. All of them are reported to clients as 401
	ErrMalformedCredential = errors.New("malformed credential")
	ErrWrongCredentialType = errors.New("wrong credential type")
	ErrExpiredCredential   = errors.New("credential expired")
	ErrRevokedCredential   = errors.New("credential revoked")
	ErrUnknownPrincipal    = errors.New("unknown principal")

	ErrInsufficientRole = errors.New("insufficient role")

	// Store or identity service could not be reached in time
	// Must never be treated as "credential is invalid"
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	ErrAdmissionDenied = errors.New("admission denied")
)

// IsUnauthorized reports whether err is one of credential rejections
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrMalformedCredential) ||
		errors.Is(err, ErrWrongCredentialType) ||
		errors.Is(err, ErrExpiredCredential) ||
		errors.Is(err, ErrRevokedCredential) ||
		errors.Is(err, ErrUnknownPrincipal)
}

// HTTPStatus maps an error to exactly one response status
// Unknown errors are 500
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable
	case IsUnauthorized(err), errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, ErrInsufficientRole):
		return http.StatusForbidden
	case errors.Is(err, ErrAdmissionDenied):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrUserAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, ErrUserNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
