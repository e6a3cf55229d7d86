package api

import (
	"encoding/json"
	"net/http"
)

// WriteJSON encodes v as JSON with the given status code.
// Encoding failures after the header is written are silently dropped;
// there is nothing useful left to send.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// NoContent writes an empty 204 response.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
