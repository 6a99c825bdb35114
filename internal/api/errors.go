package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/project-ledger/internal/types"
)

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error types.ServiceError `json:"error"`
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, statusCode int, code, message string, details map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{
		Error: types.ServiceError{
			Code:    code,
			Message: message,
			Details: details,
		},
	}

	json.NewEncoder(w).Encode(response)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// parseJSONBody parses JSON request body.
func parseJSONBody(r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

// mapServiceError maps service errors to HTTP status codes.
func mapServiceError(err error) (int, string, string) {
	var serviceErr *types.ServiceError
	if errors.As(err, &serviceErr) {
		switch serviceErr.Code {
		case types.ErrCodeValidation:
			return http.StatusBadRequest, serviceErr.Code, serviceErr.Message
		case types.ErrCodeNotFound:
			return http.StatusNotFound, serviceErr.Code, serviceErr.Message
		case types.ErrCodeNotAuthorized:
			return http.StatusForbidden, serviceErr.Code, serviceErr.Message
		case types.ErrCodeTransientIO:
			return http.StatusServiceUnavailable, serviceErr.Code, serviceErr.Message
		default:
			return http.StatusInternalServerError, types.ErrCodeUnknown, "An internal error occurred"
		}
	}

	return http.StatusInternalServerError, types.ErrCodeUnknown, "An internal error occurred"
}
