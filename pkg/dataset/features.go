package dataset

import (
	"fmt"
	"sort"
	"time"

	"github.com/caseradar/caseradar/pkg/collect"
)

// BuildReport summarizes feature construction.
type BuildReport struct {
	Rows        int
	SkippedGaps int // day T had a price but T-1 or T-2 did not
	SkippedEnds int // no label: T+1 price unknown (expected at series end)
}

// BuildTraining derives labeled feature rows from merged records. A row is
// produced for day T only when the same case has prices on the calendar
// days T-2, T-1, T and T+1. Lookups are by exact calendar day, never by row
// offset: a one-day hole in the series drops the rows whose window it
// touches instead of borrowing a non-adjacent price. The first two days of
// any case's history never produce a row; that is expected loss, not an
// error.
func BuildTraining(records []DailyRecord) ([]FeatureRow, *BuildReport) {
	report := &BuildReport{}
	byItem := groupByItem(records)

	ids := make([]int, 0, len(byItem))
	for id := range byItem {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	var rows []FeatureRow
	for _, id := range ids {
		series := byItem[id]
		for _, rec := range series.ordered {
			row, err := windowAt(series, rec.Date)
			if err != nil {
				report.SkippedGaps++
				continue
			}

			next, ok := series.byDay[collect.DayKey(rec.Date.AddDate(0, 0, 1))]
			if !ok {
				report.SkippedEnds++
				continue
			}
			row.Label = next.Price
			rows = append(rows, *row)
		}
	}

	report.Rows = len(rows)
	return rows, report
}

// Latest builds the unlabeled feature row for the newest day of a single
// case's records, for online prediction. It fails with ErrDataGap when the
// three-day window is not contiguous.
func Latest(records []DailyRecord) (*FeatureRow, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("no records: %w", ErrDataGap)
	}

	byItem := groupByItem(records)
	if len(byItem) != 1 {
		return nil, fmt.Errorf("latest window needs records for exactly one case, got %d", len(byItem))
	}

	for _, series := range byItem {
		last := series.ordered[len(series.ordered)-1]
		return windowAt(series, last.Date)
	}
	return nil, fmt.Errorf("no records: %w", ErrDataGap)
}

type itemSeries struct {
	ordered []DailyRecord
	byDay   map[string]DailyRecord
}

func groupByItem(records []DailyRecord) map[int]*itemSeries {
	byItem := make(map[int]*itemSeries)
	for _, rec := range records {
		s := byItem[rec.ItemID]
		if s == nil {
			s = &itemSeries{byDay: make(map[string]DailyRecord)}
			byItem[rec.ItemID] = s
		}
		s.ordered = append(s.ordered, rec)
		s.byDay[collect.DayKey(rec.Date)] = rec
	}
	for _, s := range byItem {
		sort.Slice(s.ordered, func(i, j int) bool {
			return s.ordered[i].Date.Before(s.ordered[j].Date)
		})
	}
	return byItem
}

// windowAt assembles the feature row for day T from the exact calendar days
// T, T-1 and T-2 of one case's series.
func windowAt(series *itemSeries, t time.Time) (*FeatureRow, error) {
	day := collect.Day(t)
	rec, ok := series.byDay[collect.DayKey(day)]
	if !ok {
		return nil, fmt.Errorf("no price on %s: %w", collect.DayKey(day), ErrDataGap)
	}

	prev1, ok := series.byDay[collect.DayKey(day.AddDate(0, 0, -1))]
	if !ok {
		return nil, fmt.Errorf("no price on %s: %w", collect.DayKey(day.AddDate(0, 0, -1)), ErrDataGap)
	}
	prev2, ok := series.byDay[collect.DayKey(day.AddDate(0, 0, -2))]
	if !ok {
		return nil, fmt.Errorf("no price on %s: %w", collect.DayKey(day.AddDate(0, 0, -2)), ErrDataGap)
	}

	return &FeatureRow{
		ItemEncoded:    rec.ItemID,
		Date:           day,
		PriceLag1:      rec.Price,
		PriceLag2:      prev1.Price,
		PriceLag3:      prev2.Price,
		AveragePlayers: rec.AveragePlayers,
		HasTournament:  rec.HasTournament,
	}, nil
}
