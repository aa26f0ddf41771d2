// Package export writes the merged dataset to tabular files: CSV, the
// interchange format the collectors' consumers expect, and .xlsx for manual
// inspection. Rows carry the lag columns of the training-time variant where
// the lag window exists, blank cells where it does not.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/caseradar/caseradar/pkg/collect"
	"github.com/caseradar/caseradar/pkg/dataset"
)

var header = []string{
	"item_id", "item_name", "date", "price", "average_players", "has_tournament",
	"price_lag_1", "price_lag_2", "price_lag_3", "next_day_price",
}

// CSV writes the dataset as a CSV file.
func CSV(path string, records []dataset.DailyRecord, rows []dataset.FeatureRow) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	for _, cells := range tabulate(records, rows) {
		text := make([]string, len(cells))
		for i, c := range cells {
			text[i] = cellString(c)
		}
		if err := w.Write(text); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// XLSX writes the dataset as an Excel workbook.
func XLSX(path string, records []dataset.DailyRecord, rows []dataset.FeatureRow) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Dataset"
	f.SetSheetName("Sheet1", sheet)

	headerRow := make([]any, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &headerRow); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	for i, cells := range tabulate(records, rows) {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// tabulate joins records with their feature rows by (item, day).
func tabulate(records []dataset.DailyRecord, rows []dataset.FeatureRow) [][]any {
	features := make(map[string]dataset.FeatureRow, len(rows))
	for _, r := range rows {
		features[featureKey(r.ItemEncoded, collect.DayKey(r.Date))] = r
	}

	out := make([][]any, 0, len(records))
	for _, rec := range records {
		cells := []any{
			rec.ItemID, rec.ItemName, collect.DayKey(rec.Date),
			rec.Price, rec.AveragePlayers, boolCell(rec.HasTournament),
		}
		if fr, ok := features[featureKey(rec.ItemID, collect.DayKey(rec.Date))]; ok {
			cells = append(cells, fr.PriceLag1, fr.PriceLag2, fr.PriceLag3, fr.Label)
		} else {
			cells = append(cells, nil, nil, nil, nil)
		}
		out = append(out, cells)
	}
	return out
}

func featureKey(itemID int, day string) string {
	return strconv.Itoa(itemID) + "|" + day
}

func boolCell(b bool) int {
	if b {
		return 1
	}
	return 0
}

func cellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}
