package api

import (
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/jtallis/sceneforge/internal/bundle"
	"github.com/jtallis/sceneforge/internal/history"
	"github.com/jtallis/sceneforge/internal/jobs"
	"github.com/jtallis/sceneforge/internal/store"
)

// GET /api/history
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.cfg.Store == nil {
		httpError(w, http.StatusServiceUnavailable, "history is not configured")
		return
	}

	p := s.projectFrom(w, r)
	if p == nil {
		return
	}

	items, err := history.NewLog(s.cfg.Store, p.id).Items(r.Context())
	if err != nil {
		log.Error().Err(err).Str("projectId", p.id).Msg("Failed to load history")
		httpError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	if items == nil {
		items = []store.HistoryItem{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

// Routes under /api/history/{id}/...
func (s *Server) handleHistoryRoutes(w http.ResponseWriter, r *http.Request) {
	id, action, ok := jobs.ParseRoute(r.URL.Path, "/api/history/")
	if !ok || action != "bundle" {
		httpError(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodGet {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.cfg.Store == nil {
		httpError(w, http.StatusServiceUnavailable, "history is not configured")
		return
	}

	p := s.projectFrom(w, r)
	if p == nil {
		return
	}

	item, err := history.NewLog(s.cfg.Store, p.id).Item(r.Context(), id)
	if err != nil {
		log.Error().Err(err).Str("projectId", p.id).Msg("Failed to load history")
		httpError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	if item == nil {
		httpError(w, http.StatusNotFound, "history item not found")
		return
	}

	fetch := s.cfg.BundleFetcher
	if fetch == nil {
		fetch = bundle.HTTPFetcher(nil)
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", bundle.Name(item)))

	entries, err := bundle.Write(r.Context(), w, item, fetch)
	if err != nil {
		// Headers are already sent; all we can do is log and drop the
		// connection mid-stream.
		log.Error().Err(err).Str("historyId", id).Msg("Bundle download failed")
		return
	}
	log.Info().Str("historyId", id).Int("entries", entries).Msg("Bundle downloaded")
}
