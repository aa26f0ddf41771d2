package dataset

import (
	"fmt"
	"sort"
	"time"

	"github.com/caseradar/caseradar/pkg/collect"
	"github.com/caseradar/caseradar/pkg/registry"
)

// MergeReport summarizes what the merger kept and what it excluded.
// Exclusions are local: a bad date drops that row, never the batch.
type MergeReport struct {
	Rows            int
	Items           int
	DuplicatePrices []string       // "item @ day", first observation kept
	MissingPlayers  int            // rows dropped: no player count for the day
	MissingEvents   int            // rows dropped: day outside calendar coverage
	UnknownItems    map[string]int // scraped name not in registry -> dropped rows
}

// Summary renders the report as a one-line diagnostic.
func (r *MergeReport) Summary() string {
	return fmt.Sprintf("%d rows over %d items (dropped: %d duplicate, %d no-players, %d no-events, %d unknown-item)",
		r.Rows, r.Items, len(r.DuplicatePrices), r.MissingPlayers, r.MissingEvents, r.unknownRows())
}

func (r *MergeReport) unknownRows() int {
	n := 0
	for _, c := range r.UnknownItems {
		n += c
	}
	return n
}

// EventCalendar answers tournament-activity lookups by day. Coverage is the
// span between the earliest start and latest end of the collected events;
// days outside it cannot be answered and fail the row instead of defaulting
// to "no tournament".
type EventCalendar struct {
	spans      []collect.Tournament
	start, end time.Time
}

// NewEventCalendar builds a calendar from collected tournaments.
func NewEventCalendar(tournaments []collect.Tournament) *EventCalendar {
	c := &EventCalendar{spans: tournaments}
	for i, t := range tournaments {
		start := collect.Day(t.Start)
		end := collect.Day(t.End)
		if i == 0 || start.Before(c.start) {
			c.start = start
		}
		if i == 0 || end.After(c.end) {
			c.end = end
		}
	}
	return c
}

// Covers reports whether the calendar can answer for the given day.
func (c *EventCalendar) Covers(day time.Time) bool {
	if len(c.spans) == 0 {
		return false
	}
	day = collect.Day(day)
	return !day.Before(c.start) && !day.After(c.end)
}

// Active reports whether any S-tier event runs on the given day.
func (c *EventCalendar) Active(day time.Time) bool {
	day = collect.Day(day)
	for _, t := range c.spans {
		if !day.Before(collect.Day(t.Start)) && !day.After(collect.Day(t.End)) {
			return true
		}
	}
	return false
}

// Merge joins the three raw sources into one DailyRecord per (case, day)
// where a price observation exists. Player counts and tournament flags are
// looked up by day alone. Missing lookups drop the row explicitly rather
// than imputing a default, and duplicate price entries for one (case, day)
// are flagged with the first observation winning. Output is ordered by item
// ID, then date.
func Merge(reg *registry.Registry, prices []collect.PriceObservation, players []collect.PlayerCount, events *EventCalendar) ([]DailyRecord, *MergeReport) {
	report := &MergeReport{UnknownItems: make(map[string]int)}

	playerByDay := make(map[string]int, len(players))
	for _, p := range players {
		playerByDay[collect.DayKey(p.Date)] = p.AveragePlayers
	}

	// First observation per (item, day) wins; later ones are flagged.
	// Observations are walked in collection order within a stable sort by
	// item, day, collection time.
	sorted := make([]collect.PriceObservation, len(prices))
	copy(sorted, prices)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].ItemName != sorted[j].ItemName {
			return sorted[i].ItemName < sorted[j].ItemName
		}
		if !sorted[i].Date.Equal(sorted[j].Date) {
			return sorted[i].Date.Before(sorted[j].Date)
		}
		return sorted[i].CollectedAt.Before(sorted[j].CollectedAt)
	})

	var records []DailyRecord
	items := make(map[int]bool)
	seen := make(map[string]bool, len(sorted))

	for _, obs := range sorted {
		day := collect.Day(obs.Date)
		key := obs.ItemName + "|" + collect.DayKey(day)
		if seen[key] {
			report.DuplicatePrices = append(report.DuplicatePrices,
				fmt.Sprintf("%s @ %s", obs.ItemName, collect.DayKey(day)))
			continue
		}
		seen[key] = true

		id, err := reg.Encode(obs.ItemName)
		if err != nil {
			// Registry extension is an offline admin operation, never a
			// side effect of ingestion.
			report.UnknownItems[obs.ItemName]++
			continue
		}

		avgPlayers, ok := playerByDay[collect.DayKey(day)]
		if !ok {
			report.MissingPlayers++
			continue
		}
		if events == nil || !events.Covers(day) {
			report.MissingEvents++
			continue
		}

		records = append(records, DailyRecord{
			ItemID:         id,
			ItemName:       obs.ItemName,
			Date:           day,
			Price:          obs.Price,
			AveragePlayers: avgPlayers,
			HasTournament:  events.Active(day),
		})
		items[id] = true
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].ItemID != records[j].ItemID {
			return records[i].ItemID < records[j].ItemID
		}
		return records[i].Date.Before(records[j].Date)
	})

	report.Rows = len(records)
	report.Items = len(items)
	return records, report
}
