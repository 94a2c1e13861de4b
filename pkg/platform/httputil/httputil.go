// Package httputil builds the uniform JSON envelopes returned by every
// endpoint and maps domain error codes to HTTP status codes.
package httputil

import (
	"errors"
	"net/http"
	"strconv"

	json "github.com/goccy/go-json"

	dErrors "ingestgate/pkg/domain-errors"
)

// ErrorResponse is the error envelope. Details is only set for validation
// failures and mirrors a flattened validation error: form-level messages
// plus per-field causes.
type ErrorResponse struct {
	Error   string           `json:"error"`
	Code    string           `json:"code,omitempty"`
	Details *ValidationError `json:"details,omitempty"`
}

// ValidationError is the machine-readable breakdown of a failed validation.
type ValidationError struct {
	FormErrors  []string            `json:"formErrors"`
	FieldErrors map[string][]string `json:"fieldErrors"`
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates err into a status and error envelope. Internal and
// storage failures never echo their cause to the caller.
func WriteError(w http.ResponseWriter, err error) {
	var de *dErrors.Error
	if !errors.As(err, &de) {
		WriteJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error: "Internal server error",
			Code:  string(dErrors.CodeInternal),
		})
		return
	}

	status := StatusFor(de.Code)
	resp := ErrorResponse{Error: de.Message, Code: string(de.Code)}
	if status >= http.StatusInternalServerError {
		resp.Error = "Internal server error"
	}
	if de.Code == dErrors.CodeValidation {
		resp.Details = &ValidationError{
			FormErrors:  nonNil(de.FormErrors),
			FieldErrors: de.Fields,
		}
		if resp.Details.FieldErrors == nil {
			resp.Details.FieldErrors = map[string][]string{}
		}
	}
	WriteJSON(w, status, resp)
}

// WriteRetryAfter sets Retry-After in whole seconds before an error write.
func WriteRetryAfter(w http.ResponseWriter, seconds int) {
	if seconds > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
	}
}

// StatusFor maps a domain code to its HTTP status.
func StatusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeMalformedInput, dErrors.CodeValidation, dErrors.CodeBadRequest, dErrors.CodeInvalidInput:
		return http.StatusBadRequest
	case dErrors.CodeUnauthenticated:
		return http.StatusUnauthorized
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeRateLimited:
		return http.StatusTooManyRequests
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
