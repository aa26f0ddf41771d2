package model

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/caseradar/caseradar/pkg/dataset"
)

func trainedEnsemble(t *testing.T, kind Kind) *Ensemble {
	t.Helper()
	rows := syntheticRows(20)
	x, y := Matrix(rows)
	e, err := Train(Config{Kind: kind, Trees: 10}, x, y, dataset.FeatureNames())
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	return e
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()

	for _, kind := range Kinds() {
		t.Run(string(kind), func(t *testing.T) {
			e := trainedEnsemble(t, kind)
			e.RegistryVersion = 1
			path := ArtifactPath(dir, kind)

			if err := e.Save(path); err != nil {
				t.Fatalf("Save: %v", err)
			}
			loaded, err := Load(path)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}

			if loaded.Kind != e.Kind || loaded.RegistryVersion != 1 || len(loaded.Trees) != len(e.Trees) {
				t.Fatalf("loaded = %s/%d/%d trees, want %s/1/%d",
					loaded.Kind, loaded.RegistryVersion, len(loaded.Trees), e.Kind, len(e.Trees))
			}

			// The reloaded ensemble must predict identically.
			rows := syntheticRows(20)
			x, _ := Matrix(rows)
			for i := range x {
				want, _ := e.Predict(x[i])
				got, err := loaded.Predict(x[i])
				if err != nil {
					t.Fatalf("Predict after load: %v", err)
				}
				if got != want {
					t.Fatalf("row %d: loaded prediction %v differs from original %v", i, got, want)
				}
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "gbdt.json"))
	if !errors.Is(err, ErrArtifactLoad) {
		t.Fatalf("expected ErrArtifactLoad, got %v", err)
	}
}

func TestLoadCorruptArtifacts(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		body string
	}{
		{"not json", "{{{"},
		{"wrong schema", `{"schema_version":99,"kind":"gbdt","feature_names":["a"],"trees":[{"nodes":[]}]}`},
		{"unknown kind", `{"schema_version":1,"kind":"forest","feature_names":["a"],"trees":[{"nodes":[]}]}`},
		{"no features", `{"schema_version":1,"kind":"gbdt","feature_names":[],"trees":[{"nodes":[]}]}`},
		{"no trees", `{"schema_version":1,"kind":"gbdt","feature_names":["a"],"trees":[]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".json")
			if err := os.WriteFile(path, []byte(tt.body), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); !errors.Is(err, ErrArtifactLoad) {
				t.Fatalf("expected ErrArtifactLoad, got %v", err)
			}
		})
	}
}

func TestArtifactPath(t *testing.T) {
	if got := ArtifactPath("models", KindHistGB); got != filepath.Join("models", "histgb.json") {
		t.Errorf("ArtifactPath = %q", got)
	}
}
