package model

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/caseradar/caseradar/pkg/collect"
	"github.com/caseradar/caseradar/pkg/dataset"
)

// Evaluation compares a fitted ensemble against the held-out chronological
// tail of the dataset.
type Evaluation struct {
	Kind      Kind      `json:"kind"`
	MAE       float64   `json:"mae"`
	R2        float64   `json:"r2"`
	TrainRows int       `json:"train_rows"`
	TestRows  int       `json:"test_rows"`
	TrainEnd  time.Time `json:"train_end"`
	TestStart time.Time `json:"test_start"`
}

// MAE returns the mean absolute error.
func MAE(pred, actual []float64) float64 {
	if len(pred) == 0 {
		return 0
	}
	sum := 0.0
	for i := range pred {
		sum += math.Abs(pred[i] - actual[i])
	}
	return sum / float64(len(pred))
}

// R2 returns the coefficient of determination.
func R2(pred, actual []float64) float64 {
	if len(actual) == 0 {
		return 0
	}
	m := mean(actual)
	var ssRes, ssTot float64
	for i := range actual {
		ssRes += (actual[i] - pred[i]) * (actual[i] - pred[i])
		ssTot += (actual[i] - m) * (actual[i] - m)
	}
	if ssTot == 0 {
		if ssRes == 0 {
			return 1
		}
		return 0
	}
	return 1 - ssRes/ssTot
}

// ChronologicalSplit partitions feature rows by a date cutoff: the most
// recent testFraction of distinct days becomes the test set, and every test
// day is strictly later than every training day. Random row sampling would
// leak future prices into training, so it is never used here.
func ChronologicalSplit(rows []dataset.FeatureRow, testFraction float64) (train, test []dataset.FeatureRow, err error) {
	if testFraction <= 0 || testFraction >= 1 {
		return nil, nil, fmt.Errorf("test fraction %.2f outside (0, 1)", testFraction)
	}

	daySet := make(map[string]bool)
	for _, r := range rows {
		daySet[collect.DayKey(r.Date)] = true
	}
	if len(daySet) < 2 {
		return nil, nil, fmt.Errorf("need at least 2 distinct days to split, have %d", len(daySet))
	}

	days := make([]string, 0, len(daySet))
	for d := range daySet {
		days = append(days, d)
	}
	sort.Strings(days)

	nTest := int(math.Round(float64(len(days)) * testFraction))
	if nTest < 1 {
		nTest = 1
	}
	if nTest >= len(days) {
		nTest = len(days) - 1
	}
	cutoff := days[len(days)-nTest] // first test day

	for _, r := range rows {
		if collect.DayKey(r.Date) < cutoff {
			train = append(train, r)
		} else {
			test = append(test, r)
		}
	}
	if len(train) == 0 || len(test) == 0 {
		return nil, nil, fmt.Errorf("degenerate split: %d train, %d test rows", len(train), len(test))
	}
	return train, test, nil
}

// Matrix converts labeled feature rows into the matrix and target vector
// the trainer consumes.
func Matrix(rows []dataset.FeatureRow) (x [][]float64, y []float64) {
	x = make([][]float64, len(rows))
	y = make([]float64, len(rows))
	for i, r := range rows {
		x[i] = r.Vector()
		y[i] = r.Label
	}
	return x, y
}

// TrainAndEvaluate fits one ensemble on the chronological training
// partition and scores it on the held-out tail.
func TrainAndEvaluate(cfg Config, rows []dataset.FeatureRow, testFraction float64) (*Ensemble, *Evaluation, error) {
	train, test, err := ChronologicalSplit(rows, testFraction)
	if err != nil {
		return nil, nil, err
	}

	trainX, trainY := Matrix(train)
	e, err := Train(cfg, trainX, trainY, dataset.FeatureNames())
	if err != nil {
		return nil, nil, err
	}

	testX, testY := Matrix(test)
	pred := make([]float64, len(testX))
	for i := range testX {
		if pred[i], err = e.Predict(testX[i]); err != nil {
			return nil, nil, err
		}
	}

	eval := &Evaluation{
		Kind:      e.Kind,
		MAE:       MAE(pred, testY),
		R2:        R2(pred, testY),
		TrainRows: len(train),
		TestRows:  len(test),
		TrainEnd:  maxDate(train),
		TestStart: minDate(test),
	}
	return e, eval, nil
}

func maxDate(rows []dataset.FeatureRow) time.Time {
	var max time.Time
	for _, r := range rows {
		if r.Date.After(max) {
			max = r.Date
		}
	}
	return max
}

func minDate(rows []dataset.FeatureRow) time.Time {
	var min time.Time
	for i, r := range rows {
		if i == 0 || r.Date.Before(min) {
			min = r.Date
		}
	}
	return min
}
