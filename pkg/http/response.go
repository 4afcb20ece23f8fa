package http

import (
	"encoding/json"
	"net/http"
)

// Envelope is the standard response body. Every response repeats the HTTP
// status and a success flag, then carries either a message (success) or an
// error string (failure).
type Envelope struct {
	Status  int         `json:"status"`
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// WriteSuccess writes a success envelope with an optional data payload.
func WriteSuccess(w http.ResponseWriter, statusCode int, message string, data interface{}) {
	write(w, statusCode, Envelope{
		Status:  statusCode,
		Success: true,
		Message: message,
		Data:    data,
	})
}

// WriteError writes a failure envelope with the given error message.
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	write(w, statusCode, Envelope{
		Status:  statusCode,
		Success: false,
		Error:   message,
	})
}

// WriteErrorWithDetails writes a failure envelope with additional context,
// e.g. a stack trace outside production.
func WriteErrorWithDetails(w http.ResponseWriter, statusCode int, message string, details interface{}) {
	write(w, statusCode, Envelope{
		Status:  statusCode,
		Success: false,
		Error:   message,
		Details: details,
	})
}

func write(w http.ResponseWriter, statusCode int, resp Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	// Log encoding errors but don't expose them to the client
	_ = json.NewEncoder(w).Encode(resp)
}
