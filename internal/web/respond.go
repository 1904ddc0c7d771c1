package web

import (
	"encoding/json"
	"net/http"
)

// Envelope is the response shape shared by all JSON endpoints.
type Envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// OK writes a success envelope with the given status code.
func OK(w http.ResponseWriter, status int, message string, data interface{}) {
	writeJSON(w, status, Envelope{Success: true, Message: message, Data: data})
}

// Fail writes a failure envelope with the given status code.
func Fail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Envelope{Success: false, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
