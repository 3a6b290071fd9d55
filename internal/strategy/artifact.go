package strategy

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Turbo503/EchoNode/internal/model"
)

// ArtifactStore persists model artifacts as JSON files under one directory.
// The newest artifact is tracked by current.json; older versions stay on disk
// only as long as rollback needs them.
type ArtifactStore struct {
	dir string
}

// NewArtifactStore creates the directory if needed.
func NewArtifactStore(dir string) (*ArtifactStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	return &ArtifactStore{dir: dir}, nil
}

func (s *ArtifactStore) versionPath(version int) string {
	return filepath.Join(s.dir, fmt.Sprintf("artifact_v%d.json", version))
}

func (s *ArtifactStore) currentPath() string {
	return filepath.Join(s.dir, "current.json")
}

// Save writes the artifact's version file and points current.json at it.
// The previous version file is pruned once it is two generations old.
func (s *ArtifactStore) Save(artifact model.ModelArtifact) error {
	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.versionPath(artifact.Version), data, 0o644); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	if err := os.WriteFile(s.currentPath(), data, 0o644); err != nil {
		return fmt.Errorf("write current artifact: %w", err)
	}
	// Keep the immediate predecessor for rollback, drop anything older.
	stale := s.versionPath(artifact.Version - 2)
	if err := os.Remove(stale); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("prune artifact: %w", err)
	}
	return nil
}

// LoadCurrent reads the active artifact. ok is false when none exists yet.
func (s *ArtifactStore) LoadCurrent() (model.ModelArtifact, bool, error) {
	data, err := os.ReadFile(s.currentPath())
	if err != nil {
		if os.IsNotExist(err) {
			return model.ModelArtifact{}, false, nil
		}
		return model.ModelArtifact{}, false, err
	}
	var artifact model.ModelArtifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return model.ModelArtifact{}, false, fmt.Errorf("parse current artifact: %w", err)
	}
	return artifact, true, nil
}
