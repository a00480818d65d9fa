// Package api implements the HTTP handlers for the scene-to-video wizard,
// shared between the local web server and the Lambda entrypoint. All wizard
// state lives server-side, keyed by project id; a project has a single
// active editor session so state access serializes on one mutex per project.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jtallis/sceneforge/internal/analyze"
	"github.com/jtallis/sceneforge/internal/bundle"
	"github.com/jtallis/sceneforge/internal/resolve"
	"github.com/jtallis/sceneforge/internal/runner"
	"github.com/jtallis/sceneforge/internal/scene"
	"github.com/jtallis/sceneforge/internal/store"
	"github.com/jtallis/sceneforge/internal/workflow"
)

// Presigner issues presigned upload and download URLs for storage keys.
// Implemented by s3util.Presigner; nil disables the upload endpoints.
type Presigner interface {
	PresignPut(ctx context.Context, key, contentType string, expiry time.Duration) (string, error)
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// presignExpiry bounds how long issued upload/download URLs stay valid.
const presignExpiry = 15 * time.Minute

// Config carries the dependencies the handlers need. Nil fields disable the
// corresponding endpoints with 503s rather than failing at startup, so a
// partially configured deployment still serves what it can.
type Config struct {
	Analyzer  *analyze.Analyzer
	Runner    *runner.Client
	Store     store.ProjectStore
	Presigner Presigner

	// BundleFetcher resolves history outputs to bytes for ZIP downloads.
	// Nil defaults to plain HTTP fetching of output URLs.
	BundleFetcher bundle.Fetcher

	// OrchestratorOptions apply to every per-project orchestrator.
	OrchestratorOptions []workflow.Option
}

// Server holds the handler set and the in-memory project registry.
type Server struct {
	cfg Config

	mu       sync.Mutex
	projects map[string]*project
}

// project is the server-side wizard state for one project id.
type project struct {
	mu       sync.Mutex
	id       string
	analysis *scene.Analysis
	state    *resolve.State
	tier     scene.QualityTier
	orch     *workflow.Orchestrator
}

// NewServer creates the handler set.
func NewServer(cfg Config) *Server {
	return &Server{
		cfg:      cfg,
		projects: make(map[string]*project),
	}
}

// Routes registers all API handlers on the mux.
func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/api/projects", s.handleProjects)
	mux.HandleFunc("/api/scene/analyze", s.handleAnalyze)
	mux.HandleFunc("/api/shots/", s.handleShotRoutes)
	mux.HandleFunc("/api/navigation", s.handleNavigation)
	mux.HandleFunc("/api/pricing/estimate", s.handlePricingEstimate)
	mux.HandleFunc("/api/generate", s.handleGenerate)
	mux.HandleFunc("/api/generate/status", s.handleGenerateStatus)
	mux.HandleFunc("/api/generate/decision", s.handleGenerateDecision)
	mux.HandleFunc("/api/generate/partial-delivery", s.handlePartialDelivery)
	mux.HandleFunc("/api/history", s.handleHistory)
	mux.HandleFunc("/api/history/", s.handleHistoryRoutes)
	mux.HandleFunc("/api/upload-url", s.handleUploadURL)
	mux.HandleFunc("/api/download-url", s.handleDownloadURL)
}

// Shutdown stops every project's background polling.
func (s *Server) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.projects {
		p.mu.Lock()
		if p.orch != nil {
			p.orch.Stop()
		}
		p.mu.Unlock()
	}
}

// register creates the server-side record for a project id. A record created
// for an id the server has not seen before attempts to recover any persisted
// execution, so a restarted server resumes tracking in-flight generations.
func (s *Server) register(id string) *project {
	s.mu.Lock()
	p, ok := s.projects[id]
	if !ok {
		p = &project{
			id:    id,
			state: resolve.NewState(),
			tier:  scene.TierProfessional,
		}
		if s.cfg.Runner != nil && s.cfg.Store != nil {
			p.orch = workflow.New(s.cfg.Runner, s.cfg.Store, id, s.cfg.OrchestratorOptions...)
		}
		s.projects[id] = p
	}
	s.mu.Unlock()

	if !ok && p.orch != nil {
		if _, err := p.orch.Recover(context.Background()); err != nil {
			log.Warn().Err(err).Str("projectId", id).Msg("Execution recovery failed")
		}
	}
	return p
}

// projectFrom resolves the project record for a request, or writes a 400 and
// returns nil. The project id travels in the X-Project-Id header, with a
// "project" query parameter fallback for plain browser GETs.
func (s *Server) projectFrom(w http.ResponseWriter, r *http.Request) *project {
	id := r.Header.Get("X-Project-Id")
	if id == "" {
		id = r.URL.Query().Get("project")
	}
	if id == "" || strings.ContainsAny(id, "/\\") {
		httpError(w, http.StatusBadRequest, "missing or invalid project id")
		return nil
	}
	return s.register(id)
}

// requireAnalysis returns the project's analysis, or writes a 409 and
// returns nil when no scene has been analyzed yet.
func requireAnalysis(w http.ResponseWriter, p *project) *scene.Analysis {
	if p.analysis == nil {
		httpError(w, http.StatusConflict, "no scene analyzed for this project")
		return nil
	}
	return p.analysis
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func httpError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
