package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrArtifactLoad marks a missing or corrupt persisted model. Loading
// failure is terminal for the process instance, never silently retried.
var ErrArtifactLoad = errors.New("artifact load")

const artifactSchemaVersion = 1

// ArtifactPath returns the canonical artifact file for a model kind.
func ArtifactPath(dir string, kind Kind) string {
	return filepath.Join(dir, string(kind)+".json")
}

// Save writes the ensemble as a self-describing JSON artifact.
func (e *Ensemble) Save(path string) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode artifact: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write artifact %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("write artifact %s: %w", path, err)
	}
	return nil
}

// Load reads and validates a persisted ensemble.
func Load(path string) (*Ensemble, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrArtifactLoad, path, err)
	}

	var e Ensemble
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrArtifactLoad, path, err)
	}

	if e.SchemaVersion != artifactSchemaVersion {
		return nil, fmt.Errorf("%w: %s: unsupported schema version %d", ErrArtifactLoad, path, e.SchemaVersion)
	}
	if _, err := ParseKind(string(e.Kind)); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrArtifactLoad, path, err)
	}
	if len(e.FeatureNames) == 0 {
		return nil, fmt.Errorf("%w: %s: no feature names", ErrArtifactLoad, path)
	}
	if len(e.Trees) == 0 {
		return nil, fmt.Errorf("%w: %s: no trees", ErrArtifactLoad, path)
	}
	return &e, nil
}
