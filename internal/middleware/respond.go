package middleware

import (
	"encoding/json"
	"net/http"
)

// writeError answers with the JSON error envelope used by the API handlers.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
