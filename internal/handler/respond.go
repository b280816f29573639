package handler

import (
	"encoding/json"
	"net/http"
)

// envelope is the body of every API response.
type envelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

type messageBody struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeSuccess writes data inside a successful envelope.
func writeSuccess(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: data})
}

// writeError writes a failed envelope carrying a short message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Success: false, Data: messageBody{Message: message}})
}
