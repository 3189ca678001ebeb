package errs

import (
	"net/http"
)

func statusCode(status int) string {
	return MakeUpperCaseWithUnderscores(http.StatusText(status))
}

// NewUnauthorizedError creates a 401 Unauthorized HTTPError.
func NewUnauthorizedError(message string, override bool) *HTTPError {
	return &HTTPError{
		Code:     statusCode(http.StatusUnauthorized),
		Message:  message,
		Status:   http.StatusUnauthorized,
		Override: override,
	}
}

// NewForbiddenError creates a 403 Forbidden HTTPError.
func NewForbiddenError(message string, override bool) *HTTPError {
	return &HTTPError{
		Code:     statusCode(http.StatusForbidden),
		Message:  message,
		Status:   http.StatusForbidden,
		Override: override,
	}
}

// NewBadRequestError creates a 400 Bad Request HTTPError.
//
// code overrides the default "BAD_REQUEST" when non-nil; errors and action
// are optional payload for form validation.
func NewBadRequestError(message string, override bool, code *string, errors []FieldError, action *Action) *HTTPError {
	formattedCode := statusCode(http.StatusBadRequest)
	if code != nil {
		formattedCode = *code
	}

	return &HTTPError{
		Code:     formattedCode,
		Message:  message,
		Status:   http.StatusBadRequest,
		Override: override,
		Errors:   errors,
		Action:   action,
	}
}

// NewNotFoundError creates a 404 Not Found HTTPError.
func NewNotFoundError(message string, override bool, code *string) *HTTPError {
	formattedCode := statusCode(http.StatusNotFound)
	if code != nil {
		formattedCode = *code
	}

	return &HTTPError{
		Code:     formattedCode,
		Message:  message,
		Status:   http.StatusNotFound,
		Override: override,
	}
}

// NewBadGatewayError creates a 502 Bad Gateway HTTPError for ledger or CA
// failures on routes outside the error-first contract.
func NewBadGatewayError(message string) *HTTPError {
	return &HTTPError{
		Code:     statusCode(http.StatusBadGateway),
		Message:  message,
		Status:   http.StatusBadGateway,
		Override: true,
		Action: &Action{
			Type:    ActionTypeRetry,
			Message: "The ledger did not accept the request",
		},
	}
}

// NewInternalServerError creates a 500 with the generic status text as message.
// The real cause stays in the logs.
func NewInternalServerError() *HTTPError {
	return &HTTPError{
		Code:     statusCode(http.StatusInternalServerError),
		Message:  http.StatusText(http.StatusInternalServerError),
		Status:   http.StatusInternalServerError,
		Override: false,
	}
}

// ValidationError converts a generic validation error into a 400 Bad Request HTTPError.
func ValidationError(err error) *HTTPError {
	return NewBadRequestError("Validation failed: "+err.Error(), false, nil, nil, nil)
}

// NewTooManyRequestsError creates a 429 HTTPError telling the client to retry.
func NewTooManyRequestsError(message string) *HTTPError {
	return &HTTPError{
		Code:    statusCode(http.StatusTooManyRequests),
		Message: message,
		Status:  http.StatusTooManyRequests,
		Action: &Action{
			Type:    ActionTypeRetry,
			Message: "Retry after a short wait",
		},
	}
}

// NewGatewayTimeoutError creates a 504 for a peer or CA that did not answer
// before the request deadline.
func NewGatewayTimeoutError(message string) *HTTPError {
	return &HTTPError{
		Code:     statusCode(http.StatusGatewayTimeout),
		Message:  message,
		Status:   http.StatusGatewayTimeout,
		Override: true,
		Action: &Action{
			Type:    ActionTypeRetry,
			Message: "The ledger may still commit the transaction; check before retrying",
		},
	}
}
