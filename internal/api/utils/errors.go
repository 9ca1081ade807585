package utils

import (
	"encoding/json"
	"net/http"
)

// APIError pairs an HTTP status with a message the dashboard renders as-is
type APIError struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// NewAPIError creates a new API error
func NewAPIError(message string, status int) *APIError {
	return &APIError{
		Status:  status,
		Message: message,
	}
}

// SendErrorResponse writes the error envelope shared by every endpoint
func SendErrorResponse(w http.ResponseWriter, err *APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Status)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "error",
		"message": err.Message,
	})
}

// SendSuccessResponse writes data in the success envelope. The status
// argument lets creation endpoints answer 201 with the same shape.
func SendSuccessResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"status": "success",
		"data":   data,
	})
}

// SendSuccessResponseWithMessage adds a short human-readable note to the
// success envelope
func SendSuccessResponseWithMessage(w http.ResponseWriter, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{
		"status":  "success",
		"message": message,
		"data":    data,
	})
}
