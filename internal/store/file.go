package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
)

// projectFile is the on-disk shape of one project's persisted state.
type projectFile struct {
	ExecutionID string        `json:"executionId,omitempty"`
	History     []HistoryItem `json:"history,omitempty"`
}

// FileStore implements ProjectStore as one JSON file per project in a local
// directory. It is the durable local storage used by the CLI and the local
// web server; writes go through a temp file and rename so a crash mid-write
// never leaves a truncated state file.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// Compile-time interface check.
var _ ProjectStore = (*FileStore)(nil)

// NewFileStore creates a FileStore rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create state directory %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

// DefaultStateDir returns the per-user state directory
// (<user config dir>/sceneforge).
func DefaultStateDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(base, "sceneforge"), nil
}

func (s *FileStore) PutExecution(ctx context.Context, projectID, executionID string) error {
	return s.update(projectID, func(pf *projectFile) {
		pf.ExecutionID = executionID
	})
}

func (s *FileStore) GetExecution(ctx context.Context, projectID string) (string, error) {
	pf, err := s.read(projectID)
	if err != nil {
		return "", err
	}
	return pf.ExecutionID, nil
}

func (s *FileStore) ClearExecution(ctx context.Context, projectID string) error {
	return s.update(projectID, func(pf *projectFile) {
		pf.ExecutionID = ""
	})
}

func (s *FileStore) PutHistory(ctx context.Context, projectID string, items []HistoryItem) error {
	return s.update(projectID, func(pf *projectFile) {
		pf.History = items
	})
}

func (s *FileStore) GetHistory(ctx context.Context, projectID string) ([]HistoryItem, error) {
	pf, err := s.read(projectID)
	if err != nil {
		return nil, err
	}
	return pf.History, nil
}

// --- Internal helpers ---

// path returns the state file path for a project. Project ids are UUIDs or
// CLI-provided names; path separators are rejected rather than sanitized.
func (s *FileStore) path(projectID string) (string, error) {
	if projectID == "" || projectID != filepath.Base(projectID) {
		return "", fmt.Errorf("invalid project id %q", projectID)
	}
	return filepath.Join(s.dir, projectID+".json"), nil
}

// read loads a project file, returning an empty record when none exists.
func (s *FileStore) read(projectID string) (*projectFile, error) {
	path, err := s.path(projectID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &projectFile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read project state %s: %w", path, err)
	}

	var pf projectFile
	if err := json.Unmarshal(data, &pf); err != nil {
		// A corrupt state file is recoverable: log and start fresh
		// rather than wedging the whole project.
		log.Warn().Err(err).Str("path", path).Msg("Corrupt project state file, starting fresh")
		return &projectFile{}, nil
	}
	return &pf, nil
}

// update applies fn to the project file and writes it back atomically.
func (s *FileStore) update(projectID string, fn func(*projectFile)) error {
	path, err := s.path(projectID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var pf projectFile
	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, &pf); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Corrupt project state file, overwriting")
			pf = projectFile{}
		}
	}

	fn(&pf)

	data, err := json.MarshalIndent(&pf, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal project state: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+projectID+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write project state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp state file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace project state %s: %w", path, err)
	}
	return nil
}
