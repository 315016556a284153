// Package apierrors writes error responses in the common envelope
// {"error": {"code": "...", "message": "..."}}.
package apierrors

import (
	"encoding/json"
	"net/http"

	"github.com/gurkanbulca/streamline/internal/service"
)

// Error codes
const (
	CodeValidationError = "VALIDATION_ERROR"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeForbidden       = "FORBIDDEN"
	CodeNotFound        = "NOT_FOUND"
	CodeConflict        = "CONFLICT"
	CodeInternalError   = "INTERNAL_ERROR"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteError writes an error response.
func WriteError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorBody{
		Error: errorDetail{
			Code:    code,
			Message: message,
		},
	})
}

func ValidationError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, CodeValidationError, message)
}

func Unauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, CodeUnauthorized, message)
}

func Forbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, CodeForbidden, message)
}

func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, CodeNotFound, message)
}

func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, CodeInternalError, message)
}

// StatusFor maps a service error kind onto an HTTP status and error code.
func StatusFor(kind service.Kind) (int, string) {
	switch kind {
	case service.KindValidation:
		return http.StatusBadRequest, CodeValidationError
	case service.KindUnauthenticated:
		return http.StatusUnauthorized, CodeUnauthorized
	case service.KindAuthorization:
		return http.StatusForbidden, CodeForbidden
	case service.KindNotFound:
		return http.StatusNotFound, CodeNotFound
	case service.KindConflict:
		return http.StatusConflict, CodeConflict
	default:
		return http.StatusInternalServerError, CodeInternalError
	}
}

// FromService writes the response for an error returned by the service layer.
func FromService(w http.ResponseWriter, err error) {
	status, code := StatusFor(service.KindOf(err))
	WriteError(w, status, code, service.MessageOf(err))
}
