// Package errs defines the error shapes the API sends to clients.
//
// Collaborator failures on the error-first candy and admin routes do not
// use these types; the handler package writes them as plain JSON strings.
// Everything else (unknown routes, invalid bodies, wallet conflicts,
// panics) is funnelled through HTTPError so clients get one consistent
// JSON error shape.
package errs

import "strings"

// FieldError represents a field-level validation error.
//
//	{ "field": "owner", "error": "is required" }
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// ActionType is a string-based enum describing what the client should do.
type ActionType string

const (
	// ActionTypeRedirect tells the client to go somewhere else; Value holds the target.
	ActionTypeRedirect ActionType = "redirect"

	// ActionTypeRetry tells the client the same request may succeed later.
	ActionTypeRetry ActionType = "retry"
)

// Action is an optional hint about what the client should do next.
type Action struct {
	Type    ActionType `json:"type"`
	Message string     `json:"message"`
	Value   string     `json:"value"`
}

// HTTPError is the main custom error type for API responses.
// It is serialized directly to JSON by the global error handler.
type HTTPError struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Status   int    `json:"status"`
	Override bool   `json:"override"`

	// Errors holds field-level validation errors.
	Errors []FieldError `json:"errors"`

	// Action is an optional client instruction.
	Action *Action `json:"action"`
}

func (e *HTTPError) Error() string {
	return e.Message
}

// Is reports whether target is an *HTTPError, regardless of its fields.
func (e *HTTPError) Is(target error) bool {
	_, ok := target.(*HTTPError)
	return ok
}

// WithMessage returns a copy of e with Message replaced.
func (e *HTTPError) WithMessage(message string) *HTTPError {
	return &HTTPError{
		Code:     e.Code,
		Message:  message,
		Status:   e.Status,
		Override: e.Override,
		Errors:   e.Errors,
		Action:   e.Action,
	}
}

// MakeUpperCaseWithUnderscores converts "Bad Request" into "BAD_REQUEST".
func MakeUpperCaseWithUnderscores(str string) string {
	return strings.ToUpper(strings.ReplaceAll(str, " ", "_"))
}
