// Package jamf provides an HTTP client for the Jamf Pro API with
// automatic retry, bearer-token session management, and error
// classification, plus the prestage scope endpoints this tool drives.
package jamf

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors for HTTP status code classification.
// Use errors.Is(err, jamf.ErrUnauthorized) to check.
var (
	ErrBadRequest   = errors.New("jamf: bad request")
	ErrUnauthorized = errors.New("jamf: unauthorized")
	ErrForbidden    = errors.New("jamf: forbidden")
	ErrNotFound     = errors.New("jamf: not found")
	ErrConflict     = errors.New("jamf: conflict")
	ErrThrottled    = errors.New("jamf: throttled")
	ErrServerError  = errors.New("jamf: server error")
)

// FieldError is one entry from the Jamf Pro API error body. For scope
// writes with bad serial numbers, Field is "serialNumbers" and
// Description carries the offending serial.
type FieldError struct {
	Code        string `json:"code"`
	Field       string `json:"field"`
	Description string `json:"description"`
	ID          string `json:"id"`
}

// APIError wraps a sentinel error with the HTTP status code, the raw
// response body, and any parsed field-level errors.
type APIError struct {
	StatusCode int
	Message    string
	Errors     []FieldError
	Err        error // sentinel, for errors.Is()
}

func (e *APIError) Error() string {
	if len(e.Errors) > 0 {
		codes := make([]string, 0, len(e.Errors))
		for _, fe := range e.Errors {
			codes = append(codes, fe.Code)
		}

		return fmt.Sprintf("jamf: HTTP %d (%s): %s", e.StatusCode, strings.Join(codes, ","), e.Message)
	}

	return fmt.Sprintf("jamf: HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// errorBody mirrors the Jamf Pro API error response envelope.
type errorBody struct {
	HTTPStatus int          `json:"httpStatus"`
	Errors     []FieldError `json:"errors"`
}

// newAPIError builds an APIError from a non-2xx response, parsing the
// field-level error envelope when the body contains one. A body that is
// not the standard envelope is kept verbatim in Message.
func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{
		StatusCode: status,
		Message:    string(body),
		Err:        classifyStatus(status),
	}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		apiErr.Errors = eb.Errors
	}

	return apiErr
}

// classifyStatus maps an HTTP status code to a sentinel error.
// Returns nil for 2xx success codes.
func classifyStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusTooManyRequests:
		return ErrThrottled
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return nil
	}
}

// isRetryable reports whether the given HTTP status code should be
// retried at the transport level.
func isRetryable(code int) bool {
	switch code {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// invalidTokenCode is the error code Jamf Pro returns when the bearer
// token has expired or been superseded.
const invalidTokenCode = "INVALID_TOKEN"

// serialNumbersField is the field name Jamf Pro reports validation
// failures against for scope writes.
const serialNumbersField = "serialNumbers"

// IsInvalidToken reports whether err indicates an expired or invalid
// bearer token. Covers both a bare 401 and the INVALID_TOKEN field error
// the API sometimes wraps in a 400.
func IsInvalidToken(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}

	if apiErr.StatusCode == http.StatusUnauthorized {
		return true
	}

	for _, fe := range apiErr.Errors {
		if fe.Code == invalidTokenCode {
			return true
		}
	}

	return false
}

// InvalidSerials extracts the serial numbers rejected by a scope write,
// along with their field errors. Returns nil when err is not a
// per-serial validation failure.
func InvalidSerials(err error) []FieldError {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return nil
	}

	if apiErr.StatusCode != http.StatusBadRequest {
		return nil
	}

	var bad []FieldError

	for _, fe := range apiErr.Errors {
		if fe.Field == serialNumbersField {
			bad = append(bad, fe)
		}
	}

	return bad
}
