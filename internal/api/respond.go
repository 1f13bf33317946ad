package api

import (
	"encoding/json"
	"net/http"
)

type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Errors  any    `json:"errors,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func WriteError(w http.ResponseWriter, status int, message, code string) {
	WriteJSON(w, status, ErrorResponse{Message: message, Code: code})
}

// WriteValidation reports rejected input with its per-field or per-row details.
func WriteValidation(w http.ResponseWriter, message string, details any) {
	WriteJSON(w, http.StatusBadRequest, ErrorResponse{Message: message, Code: "VALIDATION_ERROR", Errors: details})
}
