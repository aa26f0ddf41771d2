package dataset

import (
	"errors"
	"time"
)

// Sentinel errors for batch data-quality conditions. Batch stages count and
// exclude affected rows instead of failing; callers use errors.Is when a
// single-row operation surfaces one directly.
var (
	// ErrDataGap marks a missing calendar day inside a required lag window.
	ErrDataGap = errors.New("missing day in lag window")
	// ErrDuplicateRecord marks two price entries for the same case and day.
	ErrDuplicateRecord = errors.New("duplicate price record")
)

// DailyRecord is one merged row per (case, calendar day).
type DailyRecord struct {
	ItemID         int       `json:"item_id"`
	ItemName       string    `json:"item_name"`
	Date           time.Time `json:"date"`
	Price          float64   `json:"price"`
	AveragePlayers int       `json:"average_players"`
	HasTournament  bool      `json:"has_tournament"`
}

// FeatureRow is the model input derived from a contiguous price window
// ending at day T. PriceLag1 is the price at T itself, PriceLag2 at T-1,
// PriceLag3 at T-2; the training label is the price at T+1.
type FeatureRow struct {
	ItemEncoded    int
	Date           time.Time // day T
	PriceLag1      float64
	PriceLag2      float64
	PriceLag3      float64
	AveragePlayers int
	HasTournament  bool
	Label          float64 // price at T+1, zero for online rows
}

// FeatureNames returns the canonical feature order. Trained artifacts record
// this order and the predictor assembles vectors against it.
func FeatureNames() []string {
	return []string{
		"item_encoded",
		"price_lag_1",
		"price_lag_2",
		"price_lag_3",
		"average_players",
		"has_tournament",
	}
}

// Vector returns the row's features in FeatureNames order.
func (r FeatureRow) Vector() []float64 {
	tournament := 0.0
	if r.HasTournament {
		tournament = 1.0
	}
	return []float64{
		float64(r.ItemEncoded),
		r.PriceLag1,
		r.PriceLag2,
		r.PriceLag3,
		float64(r.AveragePlayers),
		tournament,
	}
}
