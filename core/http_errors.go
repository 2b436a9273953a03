package core

import "net/http"

// HTTPError pairs an HTTP status with a stable machine-readable code.
// The code is part of the API contract; callers branch on it.
type HTTPError struct {
	Status  int
	Code    string
	Message string
}

// Error implements the error interface.
func (e HTTPError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Code
}

var (
	// ErrValidation covers malformed input shape or an out-of-range enum.
	ErrValidation = HTTPError{Status: http.StatusBadRequest, Code: "VALIDATION_ERROR", Message: "invalid request"}

	// ErrNotFound covers a missing key or subscription on owner-facing
	// endpoints. The public verify endpoint never uses it.
	ErrNotFound = HTTPError{Status: http.StatusNotFound, Code: "NOT_FOUND", Message: "resource not found"}

	// ErrAuth covers a missing or invalid merchant session.
	ErrAuth = HTTPError{Status: http.StatusUnauthorized, Code: "AUTH_ERROR", Message: "authentication required"}

	// ErrSignature covers webhook signature failures. The event body must
	// not be processed.
	ErrSignature = HTTPError{Status: http.StatusUnauthorized, Code: "SIGNATURE_ERROR", Message: "signature verification failed"}

	// ErrPaymentFailed covers a renewal whose charge was declined by the
	// payment provider. No subscription state changes in that case.
	ErrPaymentFailed = HTTPError{Status: http.StatusPaymentRequired, Code: "PAYMENT_FAILED", Message: "payment failed"}

	// ErrTooManyRequests covers rate limit rejections.
	ErrTooManyRequests = HTTPError{Status: http.StatusTooManyRequests, Code: "RATE_LIMITED", Message: "too many requests"}

	// ErrInternal covers storage or transport failures. The caller gets
	// this generic message; details go to the logs only.
	ErrInternal = HTTPError{Status: http.StatusInternalServerError, Code: "INTERNAL_ERROR", Message: "internal server error"}
)

// ValidationError returns ErrValidation carrying a caller-facing message.
func ValidationError(message string) HTTPError {
	return HTTPError{Status: http.StatusBadRequest, Code: ErrValidation.Code, Message: message}
}

// NotFoundError returns ErrNotFound carrying a caller-facing message.
func NotFoundError(message string) HTTPError {
	return HTTPError{Status: http.StatusNotFound, Code: ErrNotFound.Code, Message: message}
}
