package model

import (
	"math"
	"testing"
	"time"

	"github.com/caseradar/caseradar/pkg/collect"
	"github.com/caseradar/caseradar/pkg/dataset"
)

func dayN(n int) time.Time {
	return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func TestMAE(t *testing.T) {
	tests := []struct {
		name   string
		pred   []float64
		actual []float64
		want   float64
	}{
		{"perfect", []float64{1, 2, 3}, []float64{1, 2, 3}, 0},
		{"uniform error", []float64{1, 2, 3}, []float64{2, 3, 4}, 1},
		{"mixed signs", []float64{1, 4}, []float64{2, 2}, 1.5},
		{"empty", nil, nil, 0},
	}
	for _, tt := range tests {
		if got := MAE(tt.pred, tt.actual); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("%s: MAE = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestR2(t *testing.T) {
	actual := []float64{1, 2, 3, 4}

	if got := R2(actual, actual); got != 1 {
		t.Errorf("perfect fit R2 = %v, want 1", got)
	}

	m := []float64{2.5, 2.5, 2.5, 2.5}
	if got := R2(m, actual); got != 0 {
		t.Errorf("mean predictor R2 = %v, want 0", got)
	}

	// Constant target with a perfect fit.
	if got := R2([]float64{5, 5}, []float64{5, 5}); got != 1 {
		t.Errorf("constant perfect fit R2 = %v, want 1", got)
	}
}

func TestChronologicalSplitStrictOrder(t *testing.T) {
	var rows []dataset.FeatureRow
	for d := 0; d < 10; d++ {
		for item := 0; item < 3; item++ {
			rows = append(rows, dataset.FeatureRow{ItemEncoded: item, Date: dayN(d), Label: 1})
		}
	}

	train, test, err := ChronologicalSplit(rows, 0.2)
	if err != nil {
		t.Fatalf("ChronologicalSplit: %v", err)
	}
	if len(train)+len(test) != len(rows) {
		t.Fatalf("partition lost rows: %d + %d != %d", len(train), len(test), len(rows))
	}

	// Every test day must be strictly later than every training day.
	trainEnd := ""
	for _, r := range train {
		if k := collect.DayKey(r.Date); k > trainEnd {
			trainEnd = k
		}
	}
	for _, r := range test {
		if collect.DayKey(r.Date) <= trainEnd {
			t.Fatalf("test row on %s not after train end %s", collect.DayKey(r.Date), trainEnd)
		}
	}

	// 20% of 10 days: the last 2 days, 3 rows each.
	if len(test) != 6 {
		t.Errorf("test rows = %d, want 6", len(test))
	}
}

func TestChronologicalSplitErrors(t *testing.T) {
	oneDay := []dataset.FeatureRow{{Date: dayN(0)}, {Date: dayN(0)}}

	if _, _, err := ChronologicalSplit(oneDay, 0.2); err == nil {
		t.Error("expected error for a single distinct day")
	}
	twoDays := []dataset.FeatureRow{{Date: dayN(0)}, {Date: dayN(1)}}
	if _, _, err := ChronologicalSplit(twoDays, 0); err == nil {
		t.Error("expected error for zero test fraction")
	}
	if _, _, err := ChronologicalSplit(twoDays, 1); err == nil {
		t.Error("expected error for test fraction of 1")
	}
}

func TestTrainAndEvaluate(t *testing.T) {
	rows := syntheticRows(40)

	for _, kind := range Kinds() {
		t.Run(string(kind), func(t *testing.T) {
			e, eval, err := TrainAndEvaluate(Config{Kind: kind, Trees: 30}, rows, 0.2)
			if err != nil {
				t.Fatalf("TrainAndEvaluate: %v", err)
			}
			if e.Kind != kind || eval.Kind != kind {
				t.Errorf("kind = %s/%s, want %s", e.Kind, eval.Kind, kind)
			}
			if eval.TrainRows == 0 || eval.TestRows == 0 {
				t.Fatalf("degenerate evaluation: %+v", eval)
			}
			if !eval.TrainEnd.Before(eval.TestStart) {
				t.Errorf("train end %s not before test start %s", eval.TrainEnd, eval.TestStart)
			}
			if math.IsNaN(eval.MAE) || eval.MAE < 0 {
				t.Errorf("MAE = %v", eval.MAE)
			}
		})
	}
}
