package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/caseradar/caseradar/pkg/collect"
	"github.com/caseradar/caseradar/pkg/dataset"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func day(s string) time.Time {
	d, err := collect.ParseDayKey(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestPriceObservationsRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	collected := time.Date(2024, 3, 21, 8, 0, 0, 0, time.UTC)
	obs := []collect.PriceObservation{
		{ItemName: "Kilowatt Case", Date: day("2024-03-20"), Price: 1.10, Volume: 2000, CollectedAt: collected},
		{ItemName: "Kilowatt Case", Date: day("2024-03-21"), Price: 1.12, Volume: 1800, CollectedAt: collected},
	}
	if err := s.AddPriceObservations(ctx, obs); err != nil {
		t.Fatalf("AddPriceObservations: %v", err)
	}

	got, err := s.ListPriceObservations(ctx)
	if err != nil {
		t.Fatalf("ListPriceObservations: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d observations, want 2", len(got))
	}
	if got[0].Price != 1.10 || got[0].Volume != 2000 || collect.DayKey(got[0].Date) != "2024-03-20" {
		t.Errorf("first observation = %+v", got[0])
	}

	// Duplicate (item, day) rows must be kept, not collapsed: the merger
	// flags them.
	if err := s.AddPriceObservations(ctx, obs[:1]); err != nil {
		t.Fatalf("AddPriceObservations again: %v", err)
	}
	got, err = s.ListPriceObservations(ctx)
	if err != nil {
		t.Fatalf("ListPriceObservations: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d observations after re-add, want 3", len(got))
	}
}

func TestPlayerCountsUpsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.UpsertPlayerCounts(ctx, []collect.PlayerCount{
		{Date: day("2024-03-20"), AveragePlayers: 800000},
	}); err != nil {
		t.Fatalf("UpsertPlayerCounts: %v", err)
	}
	// Re-collecting the same day replaces the value.
	if err := s.UpsertPlayerCounts(ctx, []collect.PlayerCount{
		{Date: day("2024-03-20"), AveragePlayers: 815000},
	}); err != nil {
		t.Fatalf("UpsertPlayerCounts: %v", err)
	}

	got, err := s.ListPlayerCounts(ctx)
	if err != nil {
		t.Fatalf("ListPlayerCounts: %v", err)
	}
	if len(got) != 1 || got[0].AveragePlayers != 815000 {
		t.Fatalf("got %+v, want one row with 815000", got)
	}
}

func TestTournamentsUpsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	major := collect.Tournament{
		Name:  "PGL Major Copenhagen 2024",
		Start: day("2024-03-17"), End: day("2024-03-31"),
		PrizePool: "$1,250,000", Location: "Denmark",
	}
	if err := s.UpsertTournaments(ctx, []collect.Tournament{major}); err != nil {
		t.Fatalf("UpsertTournaments: %v", err)
	}
	// Same (name, start) refreshes details instead of duplicating.
	major.Location = "Copenhagen"
	if err := s.UpsertTournaments(ctx, []collect.Tournament{major}); err != nil {
		t.Fatalf("UpsertTournaments: %v", err)
	}

	got, err := s.ListTournaments(ctx)
	if err != nil {
		t.Fatalf("ListTournaments: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d tournaments, want 1", len(got))
	}
	if got[0].Location != "Copenhagen" || got[0].PrizePool != "$1,250,000" {
		t.Errorf("tournament = %+v", got[0])
	}
}

func kilowattRecords() []dataset.DailyRecord {
	return []dataset.DailyRecord{
		{ItemID: 0, ItemName: "Kilowatt Case", Date: day("2024-03-19"), Price: 1.00, AveragePlayers: 790000},
		{ItemID: 0, ItemName: "Kilowatt Case", Date: day("2024-03-20"), Price: 1.05, AveragePlayers: 800000, HasTournament: true},
		{ItemID: 0, ItemName: "Kilowatt Case", Date: day("2024-03-21"), Price: 1.10, AveragePlayers: 810000, HasTournament: true},
		{ItemID: 1, ItemName: "Gallery Case", Date: day("2024-03-21"), Price: 0.95, AveragePlayers: 810000, HasTournament: true},
	}
}

func TestReplaceDailyRecords(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.ReplaceDailyRecords(ctx, kilowattRecords()); err != nil {
		t.Fatalf("ReplaceDailyRecords: %v", err)
	}

	got, err := s.ListDailyRecords(ctx)
	if err != nil {
		t.Fatalf("ListDailyRecords: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("got %d records, want 4", len(got))
	}
	if got[1].Price != 1.05 || !got[1].HasTournament {
		t.Errorf("second record = %+v", got[1])
	}

	// Replacing swaps the whole table.
	if err := s.ReplaceDailyRecords(ctx, kilowattRecords()[:1]); err != nil {
		t.Fatalf("ReplaceDailyRecords: %v", err)
	}
	got, err = s.ListDailyRecords(ctx)
	if err != nil {
		t.Fatalf("ListDailyRecords: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d records after replace, want 1", len(got))
	}
}

func TestListItemRecords(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.ReplaceDailyRecords(ctx, kilowattRecords()); err != nil {
		t.Fatalf("ReplaceDailyRecords: %v", err)
	}

	got, err := s.ListItemRecords(ctx, "Kilowatt Case", 2)
	if err != nil {
		t.Fatalf("ListItemRecords: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d records, want the newest 2", len(got))
	}
	// Newest two days, returned in chronological order.
	if collect.DayKey(got[0].Date) != "2024-03-20" || collect.DayKey(got[1].Date) != "2024-03-21" {
		t.Errorf("days = %s, %s", collect.DayKey(got[0].Date), collect.DayKey(got[1].Date))
	}
	for _, r := range got {
		if r.ItemName != "Kilowatt Case" {
			t.Errorf("foreign record in result: %+v", r)
		}
	}
}

func TestDatasetSummary(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.ReplaceDailyRecords(ctx, kilowattRecords()); err != nil {
		t.Fatalf("ReplaceDailyRecords: %v", err)
	}
	if err := s.UpsertPlayerCounts(ctx, []collect.PlayerCount{
		{Date: day("2024-03-20"), AveragePlayers: 800000},
	}); err != nil {
		t.Fatalf("UpsertPlayerCounts: %v", err)
	}

	sum, err := s.DatasetSummary(ctx)
	if err != nil {
		t.Fatalf("DatasetSummary: %v", err)
	}
	if sum.Records != 4 || sum.Items != 2 {
		t.Errorf("summary = %+v, want 4 records over 2 items", sum)
	}
	if sum.FirstDay != "2024-03-19" || sum.LastDay != "2024-03-21" {
		t.Errorf("span = %s .. %s", sum.FirstDay, sum.LastDay)
	}
	if sum.PlayerDays != 1 {
		t.Errorf("player days = %d, want 1", sum.PlayerDays)
	}
}
