package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/thinkscotty/outreach/internal/logger"
	"github.com/thinkscotty/outreach/internal/models"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, map[string]any{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) handleAPIComments(w http.ResponseWriter, r *http.Request) {
	var platform models.Platform
	if v := r.URL.Query().Get("platform"); v != "" {
		p, ok := models.ParsePlatform(v)
		if !ok {
			jsonError(w, "Unknown platform", http.StatusBadRequest)
			return
		}
		platform = p
	}

	comments, err := s.store.ListComments(r.Context(), platform, parseLimit(r))
	if err != nil {
		s.log.Error("API: failed to list comments", logger.Error(err))
		jsonError(w, "Failed to list comments", http.StatusInternalServerError)
		return
	}
	if comments == nil {
		comments = []models.Comment{}
	}
	jsonResponse(w, map[string]any{"comments": comments, "count": len(comments)})
}

func (s *Server) handleAPIGenerations(w http.ResponseWriter, r *http.Request) {
	logs, err := s.store.RecentGenerations(r.Context(), parseLimit(r))
	if err != nil {
		s.log.Error("API: failed to list generations", logger.Error(err))
		jsonError(w, "Failed to list generations", http.StatusInternalServerError)
		return
	}
	if logs == nil {
		logs = []models.GenerationLog{}
	}
	jsonResponse(w, map[string]any{"generations": logs, "count": len(logs)})
}

func (s *Server) handleAPIDomains(w http.ResponseWriter, r *http.Request) {
	status := models.DomainStatus(r.URL.Query().Get("status"))
	switch status {
	case "", models.DomainAvailable, models.DomainTaken, models.DomainUncertain:
	default:
		jsonError(w, "Invalid status", http.StatusBadRequest)
		return
	}

	checks, err := s.store.ListDomainChecks(r.Context(), status, parseLimit(r))
	if err != nil {
		s.log.Error("API: failed to list domain checks", logger.Error(err))
		jsonError(w, "Failed to list domain checks", http.StatusInternalServerError)
		return
	}
	if checks == nil {
		checks = []models.DomainCheck{}
	}
	jsonResponse(w, map[string]any{"domains": checks, "count": len(checks)})
}

func (s *Server) handleAPIStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.GetStats(r.Context())
	if err != nil {
		s.log.Error("API: failed to get stats", logger.Error(err))
		jsonError(w, "Failed to get stats", http.StatusInternalServerError)
		return
	}
	jsonResponse(w, stats)
}

func parseLimit(r *http.Request) int {
	limit := defaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	return min(limit, maxLimit)
}

func jsonResponse(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
