package collect

import (
	"context"
	"time"
)

// SourceType identifies which external site a collector scrapes.
type SourceType string

const (
	SourceSteam   SourceType = "steam"
	SourcePlayers SourceType = "players"
	SourceEvents  SourceType = "events"
)

// PriceObservation is one scraped (case, day, price) point. Collectors
// aggregate intra-day samples to a single observation per day; duplicate
// observations for the same case and day can still accumulate across runs
// and are flagged by the merger.
type PriceObservation struct {
	ItemName    string
	Date        time.Time // UTC midnight
	Price       float64   // daily mean, listing currency
	Volume      int
	CollectedAt time.Time
}

// PlayerCount is the average concurrent player estimate for one day.
type PlayerCount struct {
	Date           time.Time
	AveragePlayers int
}

// Tournament is one S-tier event with its running dates.
type Tournament struct {
	Name      string
	Start     time.Time
	End       time.Time
	PrizePool string
	Location  string
}

// Result holds whatever a single collector produced. Each collector fills
// exactly one of the slices.
type Result struct {
	Prices      []PriceObservation
	Players     []PlayerCount
	Tournaments []Tournament
}

// Source is the interface every collector must implement.
type Source interface {
	Name() SourceType
	Collect(ctx context.Context) (*Result, error)
}

// AllSourceTypes returns all known source types.
func AllSourceTypes() []SourceType {
	return []SourceType{SourceSteam, SourcePlayers, SourceEvents}
}

// Day truncates a timestamp to its UTC calendar day.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DayKey formats a day as its canonical YYYY-MM-DD key.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// ParseDayKey parses a YYYY-MM-DD key back into a UTC day.
func ParseDayKey(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}
