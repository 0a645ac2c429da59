package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/defi-dashboard/internal/types"
)

// SuccessResponse is the envelope for successful responses
type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
}

// ErrorResponse is the envelope for failed responses
type ErrorResponse struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Code    string                 `json:"code"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// respondSuccess sends a success envelope
func respondSuccess(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	_ = json.NewEncoder(w).Encode(SuccessResponse{
		Success: true,
		Data:    data,
	})
}

// respondError sends an error envelope
func respondError(w http.ResponseWriter, statusCode int, code, message string, details map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Success: false,
		Message: message,
		Code:    code,
		Details: details,
	})
}

// respondServiceError maps a service error to its HTTP status and envelope
func respondServiceError(w http.ResponseWriter, err error) {
	var svcErr *types.ServiceError
	if !errors.As(err, &svcErr) {
		respondError(w, http.StatusInternalServerError, types.CodeStorageError, "An internal error occurred", nil)
		return
	}

	respondError(w, statusForCode(svcErr.Code), svcErr.Code, svcErr.Message, svcErr.Details)
}

// statusForCode maps service error codes to HTTP status codes
func statusForCode(code string) int {
	switch code {
	case types.CodeInvalidAddress:
		return http.StatusBadRequest
	case types.CodeNotFound:
		return http.StatusNotFound
	case types.CodeChainUnavailable:
		return http.StatusServiceUnavailable
	case types.CodeStorageError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Error codes raised by the API layer itself
const (
	ErrCodeInvalidInput = "INVALID_INPUT"
)

// parseJSONBody parses a JSON request body
func parseJSONBody(r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}
