package model

import (
	"math"
	"testing"

	"github.com/caseradar/caseradar/pkg/dataset"
)

// syntheticRows builds a labeled series where tomorrow's price follows
// today's with a small trend, across enough distinct days to split.
func syntheticRows(days int) []dataset.FeatureRow {
	rows := make([]dataset.FeatureRow, 0, days*2)
	for item := 0; item < 2; item++ {
		price := 1.0 + float64(item)
		for d := 0; d < days; d++ {
			p1 := price + 0.01*float64(d)
			rows = append(rows, dataset.FeatureRow{
				ItemEncoded:    item,
				Date:           dayN(d),
				PriceLag1:      p1,
				PriceLag2:      p1 - 0.01,
				PriceLag3:      p1 - 0.02,
				AveragePlayers: 800000 + 1000*d,
				HasTournament:  d%7 == 0,
				Label:          p1 + 0.01,
			})
		}
	}
	return rows
}

func TestTrainBothKinds(t *testing.T) {
	rows := syntheticRows(40)
	x, y := Matrix(rows)

	for _, kind := range Kinds() {
		t.Run(string(kind), func(t *testing.T) {
			e, err := Train(Config{Kind: kind, Trees: 30}, x, y, dataset.FeatureNames())
			if err != nil {
				t.Fatalf("Train: %v", err)
			}
			if e.Kind != kind || len(e.Trees) != 30 {
				t.Errorf("ensemble = kind %s with %d trees, want %s with 30", e.Kind, len(e.Trees), kind)
			}

			pred, err := e.Predict(x[0])
			if err != nil {
				t.Fatalf("Predict: %v", err)
			}
			if math.IsNaN(pred) || math.IsInf(pred, 0) {
				t.Fatalf("prediction is not finite: %v", pred)
			}
			// The fit should land near the label on training data.
			if math.Abs(pred-y[0]) > 0.5 {
				t.Errorf("prediction %.4f far from label %.4f", pred, y[0])
			}
		})
	}
}

func TestTrainDeterministic(t *testing.T) {
	rows := syntheticRows(30)
	x, y := Matrix(rows)

	for _, kind := range Kinds() {
		t.Run(string(kind), func(t *testing.T) {
			cfg := Config{Kind: kind, Trees: 20}
			a, err := Train(cfg, x, y, dataset.FeatureNames())
			if err != nil {
				t.Fatalf("Train: %v", err)
			}
			b, err := Train(cfg, x, y, dataset.FeatureNames())
			if err != nil {
				t.Fatalf("Train: %v", err)
			}

			for i := range x {
				pa, _ := a.Predict(x[i])
				pb, _ := b.Predict(x[i])
				if pa != pb {
					t.Fatalf("row %d: repeated training diverged: %v vs %v", i, pa, pb)
				}
			}
		})
	}
}

func TestPredictRepeatable(t *testing.T) {
	rows := syntheticRows(20)
	x, y := Matrix(rows)

	e, err := Train(Config{Kind: KindGBDT, Trees: 10}, x, y, dataset.FeatureNames())
	if err != nil {
		t.Fatalf("Train: %v", err)
	}

	first, err := e.Predict(x[3])
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := e.Predict(x[3])
		if err != nil {
			t.Fatalf("Predict: %v", err)
		}
		if again != first {
			t.Fatalf("repeat prediction %v differs from first %v", again, first)
		}
	}
}

func TestPredictRejectsBadVectors(t *testing.T) {
	rows := syntheticRows(20)
	x, y := Matrix(rows)

	e, err := Train(Config{Kind: KindGBDT, Trees: 5}, x, y, dataset.FeatureNames())
	if err != nil {
		t.Fatalf("Train: %v", err)
	}

	if _, err := e.Predict([]float64{1, 2, 3}); err == nil {
		t.Error("expected error for short vector")
	}
	bad := append([]float64{}, x[0]...)
	bad[1] = math.NaN()
	if _, err := e.Predict(bad); err == nil {
		t.Error("expected error for NaN feature")
	}
}

func TestTrainUnknownKind(t *testing.T) {
	rows := syntheticRows(10)
	x, y := Matrix(rows)

	if _, err := Train(Config{Kind: "forest"}, x, y, dataset.FeatureNames()); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{"gbdt", KindGBDT, false},
		{"histgb", KindHistGB, false},
		{"", "", true},
		{"xgboost", "", true},
	}
	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseKind(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseKind(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
