package handlers

import (
	"encoding/json"
	"net/http"
)

// envelope is the wire format for every API response. A client always
// receives a well-formed envelope; upstream feed flakiness surfaces as
// success with a warning, never as a transport-level failure.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Warning string `json:"warning,omitempty"`
	Error   string `json:"error,omitempty"`
}

func respondData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: data})
}

func respondDataWarning(w http.ResponseWriter, data any, warning string) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: data, Warning: warning})
}

func respondError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Success: false, Error: message})
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
