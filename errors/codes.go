package errors

import "net/http"

// Code classifies an error for transport mapping and retry decisions. The set
// mirrors the failure taxonomy used throughout the service: validation,
// authentication, authorization, missing records, uniqueness conflicts,
// throttling, and internal faults.
type Code int

const (
	// OK indicates no error. Returned by CodeOf(nil).
	OK Code = iota

	// Unknown is used for errors that have not been classified.
	Unknown

	// InvalidArgument indicates malformed or unacceptable input.
	InvalidArgument

	// Unauthenticated indicates a missing, invalid, or expired credential.
	Unauthenticated

	// PermissionDenied indicates an authenticated caller lacks access.
	PermissionDenied

	// NotFound indicates a referenced record does not exist.
	NotFound

	// AlreadyExists indicates a uniqueness conflict.
	AlreadyExists

	// ResourceExhausted indicates the caller has been throttled.
	ResourceExhausted

	// Internal indicates an unexpected server-side fault.
	Internal
)

func (c Code) String() string {
	switch c {
	case OK:
		return "ok"
	case InvalidArgument:
		return "invalid_argument"
	case Unauthenticated:
		return "unauthenticated"
	case PermissionDenied:
		return "permission_denied"
	case NotFound:
		return "not_found"
	case AlreadyExists:
		return "already_exists"
	case ResourceExhausted:
		return "resource_exhausted"
	case Internal:
		return "internal"
	default:
		return "unknown"
	}
}

// HTTPStatus returns the HTTP status code conventionally associated with c.
func (c Code) HTTPStatus() int {
	switch c {
	case OK:
		return http.StatusOK
	case InvalidArgument:
		return http.StatusBadRequest
	case Unauthenticated:
		return http.StatusUnauthorized
	case PermissionDenied:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case AlreadyExists:
		return http.StatusConflict
	case ResourceExhausted:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
