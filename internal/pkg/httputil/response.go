// Package httputil provides HTTP response helpers and middleware.
package httputil

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// MessageResponse is the body of non-500 error responses and of simple acknowledgements.
type MessageResponse struct {
	Message string `json:"message"`
}

// InternalErrorResponse is the body of 500 responses.
type InternalErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// FieldError describes one failed validation rule.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// JSON writes data as a raw JSON response.
func JSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode response", "error", err)
		}
	}
}

// Text writes a plain text response.
func Text(w http.ResponseWriter, statusCode int, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(statusCode)
	if _, err := w.Write([]byte(text)); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}

// Error writes a {"message": ...} response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, MessageResponse{Message: message})
}

// InternalError writes a 500 response with a generic message and the error detail.
func InternalError(w http.ResponseWriter, err error) {
	resp := InternalErrorResponse{Error: "internal server error"}
	if err != nil {
		resp.Details = err.Error()
	}
	JSON(w, http.StatusInternalServerError, resp)
}

// ValidationError writes a 400 response for a failed request validation.
// Missing required fields produce the message "Missing required fields";
// other rule failures produce "validation error". Both carry field details.
func ValidationError(w http.ResponseWriter, err error) {
	message := "validation error"
	var details []FieldError

	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		details = make([]FieldError, 0, len(validationErrors))
		for _, e := range validationErrors {
			if e.Tag() == "required" {
				message = "Missing required fields"
			}
			details = append(details, FieldError{Field: e.Field(), Message: e.Tag()})
		}
	} else if err != nil {
		details = []FieldError{{Message: err.Error()}}
	}

	JSON(w, http.StatusBadRequest, map[string]interface{}{
		"message": message,
		"details": details,
	})
}
