package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kadirpekel/debater/pkg/debate"
	"github.com/kadirpekel/debater/pkg/provider"
)

func (s *Server) handleListProviders(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.providers.IDs())
}

func (s *Server) handleAvailableProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.providers.Availability(r.Context()))
}

func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "provider")
	models, err := s.providers.Models(r.Context(), id)
	if err != nil {
		var cfgErr *provider.ConfigurationError
		if errors.As(err, &cfgErr) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		slog.Warn("Failed to list models", "provider", id, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, models)
}

func (s *Server) handleListDebates(w http.ResponseWriter, _ *http.Request) {
	debates := s.debates.List()
	states := make([]debate.State, 0, len(debates))
	for _, o := range debates {
		states = append(states, o.State())
	}
	writeJSON(w, http.StatusOK, states)
}

func (s *Server) handleStartDebate(w http.ResponseWriter, r *http.Request) {
	var cfg debate.Config
	if err := decodeBody(w, r, &cfg); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	o, err := s.debates.Create(cfg)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, o.State())
}

func (s *Server) handleImportDebate(w http.ResponseWriter, r *http.Request) {
	var exp debate.Export
	if err := decodeBody(w, r, &exp); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	o, err := s.debates.Import(exp)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, o.State())
}

// lookup resolves the {id} URL parameter or writes a 404.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*debate.Orchestrator, bool) {
	o, ok := s.debates.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, msgDebateNotFound)
	}
	return o, ok
}

func (s *Server) handleGetDebate(w http.ResponseWriter, r *http.Request) {
	if o, ok := s.lookup(w, r); ok {
		writeJSON(w, http.StatusOK, o.State())
	}
}

func (s *Server) handleExportDebate(w http.ResponseWriter, r *http.Request) {
	if o, ok := s.lookup(w, r); ok {
		writeJSON(w, http.StatusOK, o.Export())
	}
}

// handleNextTurn releases a manual debate waiting for its trigger.
func (s *Server) handleNextTurn(w http.ResponseWriter, r *http.Request) {
	o, ok := s.lookup(w, r)
	if !ok {
		return
	}
	o.Resume()
	writeJSON(w, http.StatusOK, map[string]any{
		"message":         "Turn triggered",
		"current_debater": o.State().CurrentDebater,
	})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	if o, ok := s.lookup(w, r); ok {
		o.Pause()
		writeJSON(w, http.StatusOK, o.State())
	}
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	if o, ok := s.lookup(w, r); ok {
		o.Resume()
		writeJSON(w, http.StatusOK, o.State())
	}
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if o, ok := s.lookup(w, r); ok {
		o.Stop()
		writeJSON(w, http.StatusOK, o.State())
	}
}
