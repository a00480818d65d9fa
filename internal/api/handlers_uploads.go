package api

import (
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// allowedUploadTypes are the reference-image content types a presigned
// upload may be issued for. Matches the formats the image validator accepts.
var allowedUploadTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/heif": true,
	"image/heic": true,
}

// POST /api/upload-url
func (s *Server) handleUploadURL(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.cfg.Presigner == nil {
		httpError(w, http.StatusServiceUnavailable, "uploads are not configured")
		return
	}

	var req struct {
		Filename    string `json:"filename"`
		ContentType string `json:"contentType"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Filename == "" {
		httpError(w, http.StatusBadRequest, "filename is required")
		return
	}
	if !allowedUploadTypes[req.ContentType] {
		httpError(w, http.StatusBadRequest, "unsupported content type: "+req.ContentType)
		return
	}

	// Random key prefix keeps uploads unguessable and collision-free; only
	// the base name of the client path survives.
	key := "uploads/" + uuid.NewString() + "/" + path.Base(strings.ReplaceAll(req.Filename, "\\", "/"))

	url, err := s.cfg.Presigner.PresignPut(r.Context(), key, req.ContentType, presignExpiry)
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to presign upload")
		httpError(w, http.StatusInternalServerError, "failed to issue upload url")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"uploadUrl": url,
		"key":       key,
	})
}

// GET /api/download-url?key=...
func (s *Server) handleDownloadURL(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.cfg.Presigner == nil {
		httpError(w, http.StatusServiceUnavailable, "uploads are not configured")
		return
	}

	key := r.URL.Query().Get("key")
	if key == "" || containsTraversal(key) {
		httpError(w, http.StatusBadRequest, "missing or invalid key")
		return
	}

	url, err := s.cfg.Presigner.PresignGet(r.Context(), key, presignExpiry)
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to presign download")
		httpError(w, http.StatusInternalServerError, "failed to issue download url")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"url": url})
}

// containsTraversal reports whether any segment of the key is "..". Checked
// on the raw segments, before any cleaning could silently resolve them.
func containsTraversal(key string) bool {
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." {
			return true
		}
	}
	return false
}
