package utils

import (
	"encoding/json"
	"net/http"
	"time"
)

// APIResponse is the envelope every endpoint returns: a status discriminator
// plus a human-readable message. Raw storage errors are not part of the
// contract and only appear in logs.
type APIResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

func SuccessResponse(message string, data interface{}) APIResponse {
	return APIResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now(),
	}
}

func ErrorResponse(message, errText string) APIResponse {
	return APIResponse{
		Success:   false,
		Message:   message,
		Error:     errText,
		Timestamp: time.Now(),
	}
}

func WriteJSON(w http.ResponseWriter, status int, resp APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
