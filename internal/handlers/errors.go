package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ternarybob/contex/internal/contexerr"
)

// WriteJSON writes a JSON response, matching the teacher's
// handlers/helpers.go WriteJSON helper.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// WriteError maps a contexerr.Kind to its HTTP status (§7) and writes a
// JSON error body. Unrecognized errors fall back to 500.
func WriteError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if kind, ok := contexerr.KindOf(err); ok {
		switch kind {
		case contexerr.KindValidation:
			status = http.StatusBadRequest
		case contexerr.KindNotFound:
			status = http.StatusNotFound
		case contexerr.KindFormatDetection, contexerr.KindEmbedding:
			status = http.StatusInternalServerError
		}
	}
	WriteJSON(w, status, map[string]string{"error": err.Error()})
}
