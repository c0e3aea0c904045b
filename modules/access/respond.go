package access

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/lodgekit/lodgekit/pkg/logger"
)

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

func (m *Module) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		m.log.Error("failed to encode response", slog.Any("error", err))
	}
}

func (m *Module) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := classify(err)
	if status == http.StatusInternalServerError {
		// Internal detail stays in the log, not on the wire.
		m.log.ErrorContext(r.Context(), "request failed", slog.String("path", r.URL.Path), logger.Error(err))
		m.respondJSON(w, status, errorEnvelope{Error: errorBody{Kind: kind, Message: "internal error"}})
		return
	}
	m.respondJSON(w, status, errorEnvelope{Error: errorBody{Kind: kind, Message: err.Error()}})
}

// decode reads the JSON request body into dst, tagging malformed input as a
// validation error.
func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %s", errValidation, err)
	}
	return nil
}
