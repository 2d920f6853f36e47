package platform

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Kind classifies an APIError.
type Kind string

const (
	KindAPI          Kind = "api_error"
	KindValidation   Kind = "validation_error"
	KindNotFound     Kind = "not_found"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
)

// Default messages used when the server supplies none.
const (
	defaultValidationMessage   = "Validation failed"
	defaultNotFoundMessage     = "Resource not found"
	defaultUnauthorizedMessage = "Unauthorized - invalid or missing API key"
	defaultForbiddenMessage    = "Forbidden - you do not have permission to access this resource"
	defaultAPIMessage          = "API request failed"
)

// APIError is the base error for every failure reported by the platform.
// StatusCode is 0 for failures detected before a request was sent.
type APIError struct {
	Kind       Kind
	Message    string
	StatusCode int
	// Response is the decoded error body, or {"message": <raw text>} when the
	// body was not a JSON object.
	Response map[string]any
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("[%d] %s", e.StatusCode, e.Message)
	}
	return e.Message
}

// ValidationError is returned for 422 responses and for client-side
// precondition failures.
type ValidationError struct {
	*APIError
	// Errors maps field names to messages, taken from the response's
	// "errors" object.
	Errors map[string]string
}

func (e *ValidationError) Error() string {
	base := e.APIError.Error()
	if len(e.Errors) == 0 {
		return base
	}

	fields := make([]string, 0, len(e.Errors))
	for f := range e.Errors {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	var sb strings.Builder
	sb.WriteString(base)
	for _, f := range fields {
		sb.WriteString("\n  ")
		sb.WriteString(f)
		sb.WriteString(": ")
		sb.WriteString(e.Errors[f])
	}
	return sb.String()
}

func (e *ValidationError) Unwrap() error { return e.APIError }

// NotFoundError is returned for 404 responses.
type NotFoundError struct{ *APIError }

func (e *NotFoundError) Unwrap() error { return e.APIError }

// UnauthorizedError is returned for 401 responses.
type UnauthorizedError struct{ *APIError }

func (e *UnauthorizedError) Unwrap() error { return e.APIError }

// ForbiddenError is returned for 403 responses.
type ForbiddenError struct{ *APIError }

func (e *ForbiddenError) Unwrap() error { return e.APIError }

func newAPIError(kind Kind, message, def string, status int, response map[string]any) *APIError {
	if message == "" {
		message = def
	}
	if response == nil {
		response = map[string]any{}
	}
	return &APIError{Kind: kind, Message: message, StatusCode: status, Response: response}
}

// NewValidationError builds a ValidationError, extracting field errors from
// response["errors"] when it is an object.
func NewValidationError(message string, status int, response map[string]any) *ValidationError {
	return &ValidationError{
		APIError: newAPIError(KindValidation, message, defaultValidationMessage, status, response),
		Errors:   fieldErrors(response),
	}
}

func NewNotFoundError(message string, response map[string]any) *NotFoundError {
	return &NotFoundError{newAPIError(KindNotFound, message, defaultNotFoundMessage, http.StatusNotFound, response)}
}

func NewUnauthorizedError(message string, response map[string]any) *UnauthorizedError {
	return &UnauthorizedError{newAPIError(KindUnauthorized, message, defaultUnauthorizedMessage, http.StatusUnauthorized, response)}
}

func NewForbiddenError(message string, response map[string]any) *ForbiddenError {
	return &ForbiddenError{newAPIError(KindForbidden, message, defaultForbiddenMessage, http.StatusForbidden, response)}
}

// mapHTTPError maps an error status and decoded body to the matching error type.
func mapHTTPError(status int, message string, response map[string]any) error {
	switch status {
	case http.StatusUnprocessableEntity:
		return NewValidationError(message, status, response)
	case http.StatusNotFound:
		return NewNotFoundError(message, response)
	case http.StatusUnauthorized:
		return NewUnauthorizedError(message, response)
	case http.StatusForbidden:
		return NewForbiddenError(message, response)
	default:
		return newAPIError(KindAPI, message, defaultAPIMessage, status, response)
	}
}

// fieldErrors flattens response["errors"] into field -> message. Non-string
// messages, such as lists, are rendered with fmt.
func fieldErrors(response map[string]any) map[string]string {
	raw, ok := response["errors"].(map[string]any)
	if !ok {
		return map[string]string{}
	}
	out := make(map[string]string, len(raw))
	for field, v := range raw {
		switch msg := v.(type) {
		case string:
			out[field] = msg
		case []any:
			parts := make([]string, 0, len(msg))
			for _, p := range msg {
				parts = append(parts, fmt.Sprint(p))
			}
			out[field] = strings.Join(parts, "; ")
		default:
			out[field] = fmt.Sprint(msg)
		}
	}
	return out
}

// KindOf reports the Kind of err, or "" when err is not an APIError.
func KindOf(err error) Kind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}

func IsValidation(err error) bool   { return KindOf(err) == KindValidation }
func IsNotFound(err error) bool     { return KindOf(err) == KindNotFound }
func IsUnauthorized(err error) bool { return KindOf(err) == KindUnauthorized }
func IsForbidden(err error) bool    { return KindOf(err) == KindForbidden }
