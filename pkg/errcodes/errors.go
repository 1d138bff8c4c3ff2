package errcodes

import (
	"fmt"
	"net/http"
)

// Error is an error that maps onto an HTTP response. Services return these
// directly so handlers can pass them through untouched. Two errors are equal
// under errors.Is when status, code and message all match.
type Error struct {
	HTTPCode int
	Message  string
	Code     string
}

func newError(status int, code, msg string) error {
	return &Error{HTTPCode: status, Message: msg, Code: code}
}

func (err *Error) Error() string {
	return err.Message
}

func (err *Error) As(target interface{}) bool {
	if te, ok := target.(*Error); ok {
		*te = *err
		return true
	}
	return false
}

func (err *Error) Is(target error) bool {
	te, ok := target.(*Error)
	return ok && *te == *err
}

// Unauthorized is a 401. An empty message becomes a generic one.
func Unauthorized(msg string) error {
	if msg == "" {
		msg = "Authentication required."
	}
	return newError(http.StatusUnauthorized, "unauthorized", msg)
}

// Forbidden is a 403 for an action the caller's role may not perform.
func Forbidden(action string) error {
	return newError(http.StatusForbidden, "forbidden", action+" is not allowed.")
}

func NotFound(resource string) error {
	return newError(http.StatusNotFound, "not_found", resource+" not found.")
}

// Conflict is a 409, for duplicate keys as well as state conflicts like
// borrowing a book with no copies left.
func Conflict(msg string) error {
	return newError(http.StatusConflict, "conflict", msg)
}

func ValidationError(msg string) error {
	return newError(http.StatusUnprocessableEntity, "validation_error", msg)
}

func ValidationTypeError(msg string) error {
	return newError(http.StatusUnprocessableEntity, "validation_type_error", msg)
}

func UnknownParameter(param string) error {
	return newError(http.StatusUnprocessableEntity, "unknown_parameter", fmt.Sprintf("Unknown Parameter %q", param))
}

func MalformedPayload() error {
	return newError(http.StatusBadRequest, "malformed_payload", "Malformed Payload")
}

func EmptyRequestBody() error {
	return newError(http.StatusBadRequest, "empty_request_body", "Request body can't be empty.")
}

func UnsupportedMediaType() error {
	return newError(http.StatusUnsupportedMediaType, "unsupported_media_type", "Unsupported Media Type")
}
