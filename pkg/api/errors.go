package api

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Error codes used in the ErrorResponse envelope.
const (
	ErrorCodeInvalidRequest = "invalid_request"
	ErrorCodeUnauthorized   = "unauthorized"
	ErrorCodeNotFound       = "not_found"
	ErrorCodeConflict       = "conflict"
	ErrorCodeUnknownTable   = "unknown_table"
	ErrorCodeServerError    = "server_error"
)

// Error is a wire-level error carrying the HTTP status and envelope fields.
// It implements the error interface so handlers and clients can share it.
type Error struct {
	StatusCode  int    `json:"-"`
	Code        string `json:"error"`
	Description string `json:"error_description"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// WriteError writes the error to an HTTP response with its status code.
func (e *Error) WriteError(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:            e.Code,
		ErrorDescription: e.Description,
	})
}

var (
	// ErrInvalidRequest is returned for malformed bodies or parameters.
	ErrInvalidRequest = &Error{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "the request is malformed or missing required parameters",
	}

	// ErrUnauthorized is the generic authentication failure. Token
	// verification failures deliberately all map here so the response does
	// not reveal which check failed.
	ErrUnauthorized = &Error{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeUnauthorized,
		Description: "authentication required",
	}

	// ErrNotFound is returned when the addressed resource does not exist.
	ErrNotFound = &Error{
		StatusCode:  http.StatusNotFound,
		Code:        ErrorCodeNotFound,
		Description: "resource not found",
	}

	// ErrConflict is returned when a uniqueness violation could not be
	// resolved by the single delete-and-retry pass.
	ErrConflict = &Error{
		StatusCode:  http.StatusConflict,
		Code:        ErrorCodeConflict,
		Description: "conflicting rows could not be replaced",
	}

	// ErrUnknownTable is returned for table names outside the known
	// family suffixes.
	ErrUnknownTable = &Error{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeUnknownTable,
		Description: "unrecognized table family",
	}

	// ErrServerError is the catch-all internal failure response.
	ErrServerError = &Error{
		StatusCode:  http.StatusInternalServerError,
		Code:        ErrorCodeServerError,
		Description: "internal server error",
	}
)

// NewError builds a custom wire error.
func NewError(statusCode int, code, description string) *Error {
	return &Error{StatusCode: statusCode, Code: code, Description: description}
}

// Unauthorized builds a 401 with a specific description, used by the auth
// entry points whose messages are part of the client contract.
func Unauthorized(description string) *Error {
	return NewError(http.StatusUnauthorized, ErrorCodeUnauthorized, description)
}
