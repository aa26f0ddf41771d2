// Package predict serves next-day price predictions from a loaded model
// artifact and the item registry. Prediction is read-only: no retraining,
// no registry mutation, identical inputs always produce identical output
// for a fixed artifact.
package predict

import (
	"fmt"
	"math"

	"github.com/caseradar/caseradar/pkg/model"
	"github.com/caseradar/caseradar/pkg/registry"
)

// Input carries the six documented prediction inputs.
type Input struct {
	ItemName       string  `json:"item_name"`
	PriceToday     float64 `json:"price_today"`
	PriceYesterday float64 `json:"price_yesterday"`
	Price2DaysAgo  float64 `json:"price_2days_ago"`
	AveragePlayers int     `json:"average_players"`
	HasTournament  bool    `json:"has_tournament"`
}

// Predictor binds one loaded ensemble to the item registry.
type Predictor struct {
	ensemble *model.Ensemble
	registry *registry.Registry
}

// New creates a predictor. Both the ensemble and the registry must already
// be loaded; a load failure upstream is terminal for the process.
func New(e *model.Ensemble, reg *registry.Registry) (*Predictor, error) {
	if e == nil {
		return nil, fmt.Errorf("%w: no ensemble", model.ErrArtifactLoad)
	}
	if reg == nil || reg.Len() == 0 {
		return nil, fmt.Errorf("%w: no registry", model.ErrArtifactLoad)
	}
	return &Predictor{ensemble: e, registry: reg}, nil
}

// Kind returns the underlying model kind.
func (p *Predictor) Kind() model.Kind { return p.ensemble.Kind }

// Ensemble returns the loaded artifact.
func (p *Predictor) Ensemble() *model.Ensemble { return p.ensemble }

// Predict returns the predicted next-day price. Unknown item names and
// negative or non-finite numeric inputs are caller errors; nothing is
// clamped or retried.
func (p *Predictor) Predict(in Input) (float64, error) {
	if err := validate(in); err != nil {
		return 0, err
	}

	id, err := p.registry.Encode(in.ItemName)
	if err != nil {
		return 0, err
	}

	// Assemble the vector in the exact order the artifact was trained on.
	byName := map[string]float64{
		"item_encoded":    float64(id),
		"price_lag_1":     in.PriceToday,
		"price_lag_2":     in.PriceYesterday,
		"price_lag_3":     in.Price2DaysAgo,
		"average_players": float64(in.AveragePlayers),
		"has_tournament":  0,
	}
	if in.HasTournament {
		byName["has_tournament"] = 1
	}

	vec := make([]float64, len(p.ensemble.FeatureNames))
	for i, name := range p.ensemble.FeatureNames {
		v, ok := byName[name]
		if !ok {
			return 0, fmt.Errorf("%w: model expects unknown feature %q", model.ErrArtifactLoad, name)
		}
		vec[i] = v
	}

	return p.ensemble.Predict(vec)
}

func validate(in Input) error {
	if in.ItemName == "" {
		return fmt.Errorf("empty item name: %w", registry.ErrUnknownItem)
	}
	prices := map[string]float64{
		"price_today":     in.PriceToday,
		"price_yesterday": in.PriceYesterday,
		"price_2days_ago": in.Price2DaysAgo,
	}
	for name, v := range prices {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s is not finite", name)
		}
		if v < 0 {
			return fmt.Errorf("%s is negative", name)
		}
	}
	if in.AveragePlayers < 0 {
		return fmt.Errorf("average_players is negative")
	}
	return nil
}
