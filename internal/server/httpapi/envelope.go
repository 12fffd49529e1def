package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/evidencevault/vault/internal/apperr"
)

// errorBody is the shape of every error response, per spec.md §6.
type errorBody struct {
	Error   string         `json:"error"`
	Code    string         `json:"code"`
	Details map[string]any `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(body)
}

// writeError classifies err into an apperr.Kind (defaulting to INTERNAL
// for anything not already classified) and writes the matching status
// and error envelope.
func writeError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	status := StatusFor(kind)

	body := errorBody{Error: err.Error(), Code: string(kind)}
	if ae, ok := err.(*apperr.Error); ok {
		body.Details = ae.Details
	}
	writeJSON(w, status, body)
}
