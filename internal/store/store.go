package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/caseradar/caseradar/pkg/collect"
	"github.com/caseradar/caseradar/pkg/dataset"
)

// Summary describes the current merged dataset.
type Summary struct {
	Records      int    `json:"records"`
	Items        int    `json:"items"`
	FirstDay     string `json:"first_day,omitempty"`
	LastDay      string `json:"last_day,omitempty"`
	Observations int    `json:"price_observations"`
	PlayerDays   int    `json:"player_days"`
	Tournaments  int    `json:"tournaments"`
}

// Store is the persistence interface.
type Store interface {
	AddPriceObservations(ctx context.Context, obs []collect.PriceObservation) error
	ListPriceObservations(ctx context.Context) ([]collect.PriceObservation, error)

	UpsertPlayerCounts(ctx context.Context, counts []collect.PlayerCount) error
	ListPlayerCounts(ctx context.Context) ([]collect.PlayerCount, error)

	UpsertTournaments(ctx context.Context, tournaments []collect.Tournament) error
	ListTournaments(ctx context.Context) ([]collect.Tournament, error)

	ReplaceDailyRecords(ctx context.Context, records []dataset.DailyRecord) error
	ListDailyRecords(ctx context.Context) ([]dataset.DailyRecord, error)
	ListItemRecords(ctx context.Context, itemName string, lastDays int) ([]dataset.DailyRecord, error)

	DatasetSummary(ctx context.Context) (*Summary, error)

	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sqlx.DB
}

// New opens a SQLite database and runs migrations.
func New(path string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type priceRow struct {
	ID          int64     `db:"id"`
	ItemName    string    `db:"item_name"`
	Date        string    `db:"date"`
	Price       float64   `db:"price"`
	Volume      int       `db:"volume"`
	CollectedAt time.Time `db:"collected_at"`
}

func (s *SQLiteStore) AddPriceObservations(ctx context.Context, obs []collect.PriceObservation) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("add prices: %w", err)
	}
	defer tx.Rollback()

	for _, o := range obs {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO price_observations (item_name, date, price, volume, collected_at)
			VALUES (?, ?, ?, ?, ?)
		`, o.ItemName, collect.DayKey(o.Date), o.Price, o.Volume, o.CollectedAt.UTC())
		if err != nil {
			return fmt.Errorf("add price %s @ %s: %w", o.ItemName, collect.DayKey(o.Date), err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) ListPriceObservations(ctx context.Context) ([]collect.PriceObservation, error) {
	var rows []priceRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT * FROM price_observations ORDER BY item_name, date, collected_at, id")
	if err != nil {
		return nil, fmt.Errorf("list prices: %w", err)
	}

	obs := make([]collect.PriceObservation, 0, len(rows))
	for _, r := range rows {
		day, err := collect.ParseDayKey(r.Date)
		if err != nil {
			return nil, fmt.Errorf("list prices: bad date %q: %w", r.Date, err)
		}
		obs = append(obs, collect.PriceObservation{
			ItemName:    r.ItemName,
			Date:        day,
			Price:       r.Price,
			Volume:      r.Volume,
			CollectedAt: r.CollectedAt,
		})
	}
	return obs, nil
}

func (s *SQLiteStore) UpsertPlayerCounts(ctx context.Context, counts []collect.PlayerCount) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("upsert players: %w", err)
	}
	defer tx.Rollback()

	for _, c := range counts {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO player_counts (date, average_players)
			VALUES (?, ?)
			ON CONFLICT(date) DO UPDATE SET average_players = excluded.average_players
		`, collect.DayKey(c.Date), c.AveragePlayers)
		if err != nil {
			return fmt.Errorf("upsert players %s: %w", collect.DayKey(c.Date), err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) ListPlayerCounts(ctx context.Context) ([]collect.PlayerCount, error) {
	var rows []struct {
		Date           string `db:"date"`
		AveragePlayers int    `db:"average_players"`
	}
	err := s.db.SelectContext(ctx, &rows, "SELECT * FROM player_counts ORDER BY date")
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}

	counts := make([]collect.PlayerCount, 0, len(rows))
	for _, r := range rows {
		day, err := collect.ParseDayKey(r.Date)
		if err != nil {
			return nil, fmt.Errorf("list players: bad date %q: %w", r.Date, err)
		}
		counts = append(counts, collect.PlayerCount{Date: day, AveragePlayers: r.AveragePlayers})
	}
	return counts, nil
}

func (s *SQLiteStore) UpsertTournaments(ctx context.Context, tournaments []collect.Tournament) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("upsert tournaments: %w", err)
	}
	defer tx.Rollback()

	for _, t := range tournaments {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO tournaments (name, start_date, end_date, prize_pool, location)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(name, start_date) DO UPDATE SET
				end_date = excluded.end_date,
				prize_pool = excluded.prize_pool,
				location = excluded.location
		`, t.Name, collect.DayKey(t.Start), collect.DayKey(t.End), t.PrizePool, t.Location)
		if err != nil {
			return fmt.Errorf("upsert tournament %q: %w", t.Name, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) ListTournaments(ctx context.Context) ([]collect.Tournament, error) {
	var rows []struct {
		ID        int64  `db:"id"`
		Name      string `db:"name"`
		StartDate string `db:"start_date"`
		EndDate   string `db:"end_date"`
		PrizePool string `db:"prize_pool"`
		Location  string `db:"location"`
	}
	err := s.db.SelectContext(ctx, &rows, "SELECT * FROM tournaments ORDER BY start_date, name")
	if err != nil {
		return nil, fmt.Errorf("list tournaments: %w", err)
	}

	tournaments := make([]collect.Tournament, 0, len(rows))
	for _, r := range rows {
		start, err := collect.ParseDayKey(r.StartDate)
		if err != nil {
			return nil, fmt.Errorf("list tournaments: bad date %q: %w", r.StartDate, err)
		}
		end, err := collect.ParseDayKey(r.EndDate)
		if err != nil {
			return nil, fmt.Errorf("list tournaments: bad date %q: %w", r.EndDate, err)
		}
		tournaments = append(tournaments, collect.Tournament{
			Name:      r.Name,
			Start:     start,
			End:       end,
			PrizePool: r.PrizePool,
			Location:  r.Location,
		})
	}
	return tournaments, nil
}

type recordRow struct {
	ItemID         int     `db:"item_id"`
	ItemName       string  `db:"item_name"`
	Date           string  `db:"date"`
	Price          float64 `db:"price"`
	AveragePlayers int     `db:"average_players"`
	HasTournament  bool    `db:"has_tournament"`
}

// ReplaceDailyRecords swaps in a freshly merged dataset. The table is
// replaced whole inside one transaction, never updated incrementally.
func (s *SQLiteStore) ReplaceDailyRecords(ctx context.Context, records []dataset.DailyRecord) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("replace records: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM daily_records"); err != nil {
		return fmt.Errorf("replace records: %w", err)
	}

	for _, r := range records {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO daily_records (item_id, item_name, date, price, average_players, has_tournament)
			VALUES (?, ?, ?, ?, ?, ?)
		`, r.ItemID, r.ItemName, collect.DayKey(r.Date), r.Price, r.AveragePlayers, r.HasTournament)
		if err != nil {
			return fmt.Errorf("replace records: %s @ %s: %w", r.ItemName, collect.DayKey(r.Date), err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) ListDailyRecords(ctx context.Context) ([]dataset.DailyRecord, error) {
	var rows []recordRow
	err := s.db.SelectContext(ctx, &rows, "SELECT * FROM daily_records ORDER BY item_id, date")
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return toRecords(rows)
}

// ListItemRecords returns the newest lastDays merged rows for one case in
// chronological order.
func (s *SQLiteStore) ListItemRecords(ctx context.Context, itemName string, lastDays int) ([]dataset.DailyRecord, error) {
	if lastDays <= 0 {
		lastDays = 3
	}
	var rows []recordRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT * FROM (
			SELECT * FROM daily_records WHERE item_name = ? ORDER BY date DESC LIMIT ?
		) ORDER BY date
	`, itemName, lastDays)
	if err != nil {
		return nil, fmt.Errorf("list records %q: %w", itemName, err)
	}
	return toRecords(rows)
}

func (s *SQLiteStore) DatasetSummary(ctx context.Context) (*Summary, error) {
	sum := &Summary{}

	err := s.db.QueryRowxContext(ctx, `
		SELECT COUNT(*), COUNT(DISTINCT item_id), COALESCE(MIN(date), ''), COALESCE(MAX(date), '')
		FROM daily_records
	`).Scan(&sum.Records, &sum.Items, &sum.FirstDay, &sum.LastDay)
	if err != nil {
		return nil, fmt.Errorf("dataset summary: %w", err)
	}

	counts := map[string]*int{
		"price_observations": &sum.Observations,
		"player_counts":      &sum.PlayerDays,
		"tournaments":        &sum.Tournaments,
	}
	for table, dst := range counts {
		if err := s.db.QueryRowxContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(dst); err != nil {
			return nil, fmt.Errorf("dataset summary: count %s: %w", table, err)
		}
	}
	return sum, nil
}

func toRecords(rows []recordRow) ([]dataset.DailyRecord, error) {
	records := make([]dataset.DailyRecord, 0, len(rows))
	for _, r := range rows {
		day, err := collect.ParseDayKey(r.Date)
		if err != nil {
			return nil, fmt.Errorf("bad record date %q: %w", r.Date, err)
		}
		records = append(records, dataset.DailyRecord{
			ItemID:         r.ItemID,
			ItemName:       r.ItemName,
			Date:           day,
			Price:          r.Price,
			AveragePlayers: r.AveragePlayers,
			HasTournament:  r.HasTournament,
		})
	}
	return records, nil
}
