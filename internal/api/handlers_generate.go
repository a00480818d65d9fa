package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jtallis/sceneforge/internal/pricing"
	"github.com/jtallis/sceneforge/internal/runner"
	"github.com/jtallis/sceneforge/internal/scene"
	"github.com/jtallis/sceneforge/internal/workflow"
)

// GET /api/pricing/estimate
//
// Live quotes come from the runner's pricing endpoint. When the runner is
// unreachable (or not configured) the response degrades to the static
// analysis credits, flagged with source "static" so the UI can label the
// estimate as approximate — a fabricated live price is never rendered.
func (s *Server) handlePricingEstimate(w http.ResponseWriter, r *http.Request) {
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

	tier := p.tier
	if t := r.URL.Query().Get("tier"); t != "" {
		tier = scene.QualityTier(t)
	}

	totals := pricing.StaticTotal(analysis, p.state, tier)

	if s.cfg.Runner != nil {
		est, err := pricing.NewEstimator(s.cfg.Runner).Estimate(r.Context(),
			pricing.EnabledPriceShots(analysis, p.state),
			pricing.Options{QualityTier: tier})
		if err == nil {
			respondJSON(w, http.StatusOK, map[string]interface{}{
				"source": "live",
				"shots":  est.Shots,
				"totals": totals,
			})
			return
		}
		log.Warn().Err(err).Str("projectId", p.id).Msg("Live pricing failed, serving static estimate")
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"source": "static",
		"totals": totals,
	})
}

// POST /api/generate
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	p := s.projectFrom(w, r)
	if p == nil {
		return
	}

	var req struct {
		QualityTier         string   `json:"qualityTier"`
		AspectRatio         string   `json:"aspectRatio"`
		Duration            int      `json:"duration"`
		WorkflowIDs         []string `json:"workflowIds"`
		ManualReferenceURLs []string `json:"manualReferenceUrls"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	p.mu.Lock()
	analysis := p.analysis
	state := p.state
	tier := p.tier
	orch := p.orch
	p.mu.Unlock()

	if analysis == nil {
		httpError(w, http.StatusConflict, "no scene analyzed for this project")
		return
	}
	if orch == nil {
		httpError(w, http.StatusServiceUnavailable, "generation is not configured")
		return
	}
	if req.QualityTier != "" {
		tier = scene.QualityTier(req.QualityTier)
	}

	execID, err := orch.Submit(r.Context(), &workflow.SubmitRequest{
		WorkflowIDs:         req.WorkflowIDs,
		Analysis:            analysis,
		State:               state,
		QualityTier:         tier,
		AspectRatio:         req.AspectRatio,
		Duration:            req.Duration,
		ManualReferenceURLs: req.ManualReferenceURLs,
	})
	if err != nil {
		switch {
		case errors.Is(err, workflow.ErrExecutionActive):
			httpError(w, http.StatusConflict, err.Error())
		case strings.Contains(err.Error(), "not fully configured") ||
			strings.Contains(err.Error(), "no enabled shots"):
			httpError(w, http.StatusBadRequest, err.Error())
		default:
			log.Error().Err(err).Str("projectId", p.id).Msg("Workflow submission failed")
			httpError(w, http.StatusBadGateway, err.Error())
		}
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]string{"executionId": execID})
}

// GET /api/generate/status
func (s *Server) handleGenerateStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	orch := s.orchestratorFrom(w, r)
	if orch == nil {
		return
	}

	exec := orch.Current()
	if exec == nil {
		httpError(w, http.StatusNotFound, "no execution in progress")
		return
	}
	respondJSON(w, http.StatusOK, exec)
}

// POST /api/generate/decision
func (s *Server) handleGenerateDecision(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	orch := s.orchestratorFrom(w, r)
	if orch == nil {
		return
	}

	var req struct {
		Decision string `json:"decision"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	var err error
	switch runner.Decision(req.Decision) {
	case runner.DecisionContinue:
		err = orch.Continue(r.Context())
	case runner.DecisionCancel:
		err = orch.Cancel(r.Context())
	default:
		httpError(w, http.StatusBadRequest, "decision must be continue or cancel")
		return
	}

	if err != nil {
		if errors.Is(err, workflow.ErrNoExecution) {
			httpError(w, http.StatusNotFound, err.Error())
			return
		}
		httpError(w, http.StatusConflict, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"decision": req.Decision})
}

// GET /api/generate/partial-delivery
func (s *Server) handlePartialDelivery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	orch := s.orchestratorFrom(w, r)
	if orch == nil {
		return
	}

	delivery := orch.PartialDeliveryDetails()
	if delivery == nil {
		httpError(w, http.StatusNotFound, "no partial delivery recorded")
		return
	}
	respondJSON(w, http.StatusOK, delivery)
}

// orchestratorFrom resolves the project's orchestrator, writing a 503 when
// generation is not configured.
func (s *Server) orchestratorFrom(w http.ResponseWriter, r *http.Request) *workflow.Orchestrator {
	p := s.projectFrom(w, r)
	if p == nil {
		return nil
	}

	p.mu.Lock()
	orch := p.orch
	p.mu.Unlock()

	if orch == nil {
		httpError(w, http.StatusServiceUnavailable, "generation is not configured")
		return nil
	}
	return orch
}
