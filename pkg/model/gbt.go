// Package model implements the two gradient-boosted regression tree
// ensembles and their artifact format. No Go library in the ecosystem trains
// boosted trees (the existing ones only run inference on models trained
// elsewhere), so training lives here; the dataset is six features by a few
// thousand rows, well within what greedy tree growing handles.
package model

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Kind selects one of the two ensemble configurations.
type Kind string

const (
	// KindGBDT: exact greedy splits, squared loss, mean leaves.
	KindGBDT Kind = "gbdt"
	// KindHistGB: histogram (quantile-bin) splits, absolute loss, median
	// leaves.
	KindHistGB Kind = "histgb"
)

// Kinds returns both trained ensemble kinds.
func Kinds() []Kind { return []Kind{KindGBDT, KindHistGB} }

// Config holds training hyperparameters for one ensemble.
type Config struct {
	Kind         Kind
	Trees        int
	MaxDepth     int
	LearningRate float64
	MinLeaf      int
	Bins         int // histogram kinds only
}

// withDefaults fills unset fields.
func (c Config) withDefaults() Config {
	if c.Trees <= 0 {
		c.Trees = 200
	}
	if c.MaxDepth <= 0 {
		c.MaxDepth = 4
	}
	if c.LearningRate <= 0 {
		c.LearningRate = 0.05
	}
	if c.MinLeaf <= 0 {
		c.MinLeaf = 5
	}
	if c.Bins <= 0 {
		c.Bins = 32
	}
	return c
}

// Ensemble is a fitted gradient-boosted regressor. The exported fields are
// the artifact schema: an ensemble serializes to a self-describing JSON
// document carrying the exact feature order it was trained on.
type Ensemble struct {
	SchemaVersion   int       `json:"schema_version"`
	Kind            Kind      `json:"kind"`
	FeatureNames    []string  `json:"feature_names"`
	RegistryVersion int       `json:"registry_version"`
	TrainedAt       time.Time `json:"trained_at"`
	TrainRows       int       `json:"train_rows"`
	Base            float64   `json:"base"`
	LearningRate    float64   `json:"learning_rate"`
	Trees           []Tree    `json:"trees"`
}

// Train fits one ensemble on a feature matrix and target vector. Training
// is deterministic: no row or feature subsampling.
func Train(cfg Config, x [][]float64, y []float64, featureNames []string) (*Ensemble, error) {
	cfg = cfg.withDefaults()

	if len(x) == 0 || len(x) != len(y) {
		return nil, fmt.Errorf("train %s: %d rows, %d targets", cfg.Kind, len(x), len(y))
	}
	for i, row := range x {
		if len(row) != len(featureNames) {
			return nil, fmt.Errorf("train %s: row %d has %d features, want %d", cfg.Kind, i, len(row), len(featureNames))
		}
	}

	var (
		base       float64
		candidates func(values []float64) []int
		aggregate  func(values []float64) float64
		absolute   bool
	)
	switch cfg.Kind {
	case KindGBDT:
		base = mean(y)
		candidates = exactCandidates
		aggregate = mean
	case KindHistGB:
		base = median(y)
		candidates = histogramCandidates(cfg.Bins)
		aggregate = median
		absolute = true
	default:
		return nil, fmt.Errorf("train: unknown model kind %q", cfg.Kind)
	}

	e := &Ensemble{
		SchemaVersion: artifactSchemaVersion,
		Kind:          cfg.Kind,
		FeatureNames:  featureNames,
		TrainedAt:     time.Now().UTC(),
		TrainRows:     len(x),
		Base:          base,
		LearningRate:  cfg.LearningRate,
	}

	pred := make([]float64, len(y))
	for i := range pred {
		pred[i] = base
	}

	residual := make([]float64, len(y))
	splitTarget := residual
	if absolute {
		splitTarget = make([]float64, len(y))
	}

	idx := make([]int, len(y))
	for i := range idx {
		idx[i] = i
	}

	for m := 0; m < cfg.Trees; m++ {
		for i := range y {
			residual[i] = y[i] - pred[i]
			if absolute {
				// Sign pseudo-residuals drive the splits; the leaves
				// re-aggregate the raw residuals with the median.
				splitTarget[i] = sign(residual[i])
			}
		}

		b := &treeBuilder{
			x:           x,
			splitTarget: splitTarget,
			leafTarget:  residual,
			maxDepth:    cfg.MaxDepth,
			minLeaf:     cfg.MinLeaf,
			candidates:  candidates,
			aggregate:   aggregate,
		}
		b.build(idx, 0)
		tree := Tree{Nodes: b.nodes}

		for i := range pred {
			pred[i] += cfg.LearningRate * tree.Predict(x[i])
		}
		e.Trees = append(e.Trees, tree)
	}

	return e, nil
}

// Predict runs inference for one feature vector. Read-only: identical input
// against the same ensemble always yields the identical output.
func (e *Ensemble) Predict(x []float64) (float64, error) {
	if len(x) != len(e.FeatureNames) {
		return 0, fmt.Errorf("predict: %d features, model trained on %d", len(x), len(e.FeatureNames))
	}
	for i, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("predict: feature %s is not finite", e.FeatureNames[i])
		}
	}

	out := e.Base
	for i := range e.Trees {
		out += e.LearningRate * e.Trees[i].Predict(x)
	}
	return out, nil
}

// ParseKind validates a model kind string.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindGBDT:
		return KindGBDT, nil
	case KindHistGB:
		return KindHistGB, nil
	}
	return "", errors.New("unknown model kind " + s)
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
