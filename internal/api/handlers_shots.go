package api

import (
	"net/http"
	"strings"

	"github.com/jtallis/sceneforge/internal/jobs"
	"github.com/jtallis/sceneforge/internal/resolve"
	"github.com/jtallis/sceneforge/internal/scene"
)

// Routes under /api/shots/{slot}/...
func (s *Server) handleShotRoutes(w http.ResponseWriter, r *http.Request) {
	slot, action, ok := jobs.ParseSlotRoute(r.URL.Path, "/api/shots/")
	if !ok {
		httpError(w, http.StatusNotFound, "not found")
		return
	}

	p := s.projectFrom(w, r)
	if p == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	analysis := requireAnalysis(w, p)
	if analysis == nil {
		return
	}
	shot := analysis.ShotBySlot(slot)
	if shot == nil {
		httpError(w, http.StatusNotFound, "unknown shot slot")
		return
	}

	if action == "validate" {
		if r.Method != http.MethodGet {
			httpError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		respondShotValidation(w, shot, p)
		return
	}

	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	switch action {
	case "character-ref":
		s.handleCharacterRef(w, r, p, slot)
	case "location-ref":
		s.handleLocationRef(w, r, p, slot)
	case "location-optout":
		s.handleLocationOptOut(w, r, p, slot)
	case "pronouns":
		s.handlePronouns(w, r, p, slot)
	case "prop-image":
		s.handlePropImage(w, r, p, slot)
	case "video-model":
		s.handleVideoModel(w, r, p, slot)
	case "enabled":
		s.handleShotEnabled(w, r, p, slot)
	default:
		httpError(w, http.StatusNotFound, "not found")
		return
	}
}

// respondShotValidation reports the shot's full completion-error list. Every
// mutation handler ends here so the client always sees the post-mutation
// validation state without a second round trip.
func respondShotValidation(w http.ResponseWriter, shot *scene.Shot, p *project) {
	errs := resolve.Validate(shot, p.analysis, p.state)
	if errs == nil {
		errs = []string{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"slot":     shot.Slot,
		"errors":   errs,
		"complete": len(errs) == 0,
	})
}

func validationReply(w http.ResponseWriter, p *project, slot int) {
	respondShotValidation(w, p.analysis.ShotBySlot(slot), p)
}

// POST /api/shots/{slot}/character-ref
func (s *Server) handleCharacterRef(w http.ResponseWriter, r *http.Request, p *project, slot int) {
	var req struct {
		CharacterID string `json:"characterId"`
		PoseID      string `json:"poseId"`
		S3Key       string `json:"s3Key"`
		ImageURL    string `json:"imageUrl"`
		Clear       bool   `json:"clear"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.CharacterID == "" {
		httpError(w, http.StatusBadRequest, "characterId is required")
		return
	}

	if req.Clear {
		p.state.SetCharacterReference(slot, req.CharacterID, nil)
	} else {
		if req.S3Key == "" && req.ImageURL == "" {
			httpError(w, http.StatusBadRequest, "s3Key or imageUrl is required")
			return
		}
		p.state.SetCharacterReference(slot, req.CharacterID, &resolve.CharacterReference{
			PoseID:   req.PoseID,
			S3Key:    req.S3Key,
			ImageURL: req.ImageURL,
		})
	}
	validationReply(w, p, slot)
}

// POST /api/shots/{slot}/location-ref
func (s *Server) handleLocationRef(w http.ResponseWriter, r *http.Request, p *project, slot int) {
	var req struct {
		LocationID string `json:"locationId"`
		AngleID    string `json:"angleId"`
		S3Key      string `json:"s3Key"`
		ImageURL   string `json:"imageUrl"`
		Clear      bool   `json:"clear"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	if req.Clear {
		p.state.SetLocationReference(slot, nil)
	} else {
		if req.S3Key == "" && req.ImageURL == "" {
			httpError(w, http.StatusBadRequest, "s3Key or imageUrl is required")
			return
		}
		p.state.SetLocationReference(slot, &resolve.LocationReference{
			LocationID: req.LocationID,
			AngleID:    req.AngleID,
			S3Key:      req.S3Key,
			ImageURL:   req.ImageURL,
		})
	}
	validationReply(w, p, slot)
}

// POST /api/shots/{slot}/location-optout
func (s *Server) handleLocationOptOut(w http.ResponseWriter, r *http.Request, p *project, slot int) {
	var req struct {
		OptOut      bool   `json:"optOut"`
		Description string `json:"description"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	p.state.SetLocationOptOut(slot, req.OptOut, req.Description)
	validationReply(w, p, slot)
}

// POST /api/shots/{slot}/pronouns
func (s *Server) handlePronouns(w http.ResponseWriter, r *http.Request, p *project, slot int) {
	var req struct {
		Token      string   `json:"token"`
		Characters []string `json:"characters"`
		Skip       bool     `json:"skip"`
		ExtrasNote string   `json:"extrasNote"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Token == "" {
		httpError(w, http.StatusBadRequest, "token is required")
		return
	}

	switch {
	case req.Skip:
		if strings.TrimSpace(req.ExtrasNote) == "" {
			httpError(w, http.StatusBadRequest, "skipping a pronoun requires an extras note")
			return
		}
		p.state.SkipPronoun(slot, req.Token, req.ExtrasNote)
	case len(req.Characters) > 0:
		p.state.MapPronoun(slot, req.Token, req.Characters...)
	default:
		httpError(w, http.StatusBadRequest, "map the pronoun to characters or skip it with a note")
		return
	}
	validationReply(w, p, slot)
}

// POST /api/shots/{slot}/prop-image
func (s *Server) handlePropImage(w http.ResponseWriter, r *http.Request, p *project, slot int) {
	var req struct {
		PropID  string `json:"propId"`
		ImageID string `json:"imageId"`
		Usage   string `json:"usage"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.PropID == "" {
		httpError(w, http.StatusBadRequest, "propId is required")
		return
	}

	p.state.SetPropImage(slot, req.PropID, req.ImageID, req.Usage)
	validationReply(w, p, slot)
}

// POST /api/shots/{slot}/video-model
func (s *Server) handleVideoModel(w http.ResponseWriter, r *http.Request, p *project, slot int) {
	var req struct {
		Model string `json:"model"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	p.state.SetVideoModel(slot, req.Model)
	validationReply(w, p, slot)
}

// POST /api/shots/{slot}/enabled
func (s *Server) handleShotEnabled(w http.ResponseWriter, r *http.Request, p *project, slot int) {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	p.state.SetShotEnabled(slot, req.Enabled)
	validationReply(w, p, slot)
}

// GET /api/navigation
func (s *Server) handleNavigation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	p := s.projectFrom(w, r)
	if p == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	analysis := requireAnalysis(w, p)
	if analysis == nil {
		return
	}

	type shotStatus struct {
		Slot     int      `json:"slot"`
		Type     string   `json:"type"`
		Enabled  bool     `json:"enabled"`
		Complete bool     `json:"complete"`
		Errors   []string `json:"errors"`
	}

	shots := make([]shotStatus, 0, len(analysis.Shots))
	for i := range analysis.Shots {
		shot := &analysis.Shots[i]
		errs := resolve.Validate(shot, analysis, p.state)
		if errs == nil {
			errs = []string{}
		}
		shots = append(shots, shotStatus{
			Slot:     shot.Slot,
			Type:     string(shot.Type),
			Enabled:  p.state.Enabled(shot.Slot),
			Complete: len(errs) == 0,
			Errors:   errs,
		})
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"maxNavigableSlot": resolve.MaxNavigableSlot(analysis, p.state),
		"shots":            shots,
	})
}
