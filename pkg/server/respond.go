package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/kadirpekel/debater/pkg/debate"
	"github.com/kadirpekel/debater/pkg/provider"
)

const maxBodyBytes = 1 << 20

const msgDebateNotFound = "Debate not found"

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("Failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var cfgErr *provider.ConfigurationError
	switch {
	case errors.As(err, &cfgErr), errors.Is(err, debate.ErrInvalidConfig):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty request body", debate.ErrInvalidConfig)
		}
		return fmt.Errorf("%w: %v", debate.ErrInvalidConfig, err)
	}
	return nil
}
