package server

import (
	"encoding/json"
	"errors"
	"html/template"
	"net/http"

	"go.uber.org/zap"

	"github.com/sant0-9/narrator/internal/session"
)

type dashboardData struct {
	View        session.View
	Timeline    template.HTML
	SourceLabel string
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	v := s.controller.View()
	data := dashboardData{
		View:        v,
		Timeline:    template.HTML(s.policy.Sanitize(v.Timeline)),
		SourceLabel: s.sourceLabel,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.ExecuteTemplate(w, "dashboard.html", data); err != nil {
		s.logger.Error("failed to render dashboard", zap.Error(err))
	}
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	err := s.controller.Start(s.ctx)

	var cfgErr *session.ConfigError
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, s.controller.View())
	case errors.Is(err, session.ErrBusy):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
	case errors.As(err, &cfgErr):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: cfgErr.Reason})
	default:
		s.logger.Error("generate failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.controller.View())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
