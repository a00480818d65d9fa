package api

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jtallis/sceneforge/internal/pricing"
	"github.com/jtallis/sceneforge/internal/resolve"
)

// POST /api/projects
func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := uuid.NewString()
	s.register(id)

	log.Info().Str("projectId", id).Msg("Project created")
	respondJSON(w, http.StatusCreated, map[string]string{"projectId": id})
}

// POST /api/scene/analyze
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.cfg.Analyzer == nil {
		httpError(w, http.StatusServiceUnavailable, "scene analysis is not configured")
		return
	}

	p := s.projectFrom(w, r)
	if p == nil {
		return
	}

	var req struct {
		Description string `json:"description"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Description) == "" {
		httpError(w, http.StatusBadRequest, "scene description is required")
		return
	}

	analysis, err := s.cfg.Analyzer.Analyze(r.Context(), req.Description)
	if err != nil {
		log.Error().Err(err).Str("projectId", p.id).Msg("Scene analysis failed")
		httpError(w, http.StatusBadGateway, "scene analysis failed: "+err.Error())
		return
	}

	suggested := pricing.SuggestTier(analysis, pricing.DefaultThresholds)

	// A fresh analysis resets all per-shot wizard state: slots from the
	// previous breakdown have no meaning against the new one.
	p.mu.Lock()
	p.analysis = analysis
	p.state = resolve.NewState()
	p.tier = suggested
	p.mu.Unlock()

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"analysis":      analysis,
		"suggestedTier": suggested,
	})
}
