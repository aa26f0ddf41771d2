package scheduler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caseradar/caseradar/internal/store"
	"github.com/caseradar/caseradar/pkg/alert"
	"github.com/caseradar/caseradar/pkg/collect"
	"github.com/caseradar/caseradar/pkg/dataset"
	"github.com/caseradar/caseradar/pkg/model"
	"github.com/caseradar/caseradar/pkg/predict"
	"github.com/caseradar/caseradar/pkg/registry"
)

// Scheduler runs periodic collection, dataset rebuilds and price-move alerts.
type Scheduler struct {
	store        store.Store
	sources      []collect.Source
	registry     *registry.Registry
	alertMgr     *alert.Manager
	modelDir     string
	kind         model.Kind
	collectInt   time.Duration
	rebuildInt   time.Duration
	thresholdPct float64
}

// New creates a new scheduler.
func New(
	s store.Store,
	sources []collect.Source,
	reg *registry.Registry,
	alertMgr *alert.Manager,
	modelDir string,
	kind model.Kind,
	collectInt, rebuildInt time.Duration,
	thresholdPct float64,
) *Scheduler {
	if collectInt == 0 {
		collectInt = 24 * time.Hour
	}
	if rebuildInt == 0 {
		rebuildInt = 24 * time.Hour
	}
	if thresholdPct == 0 {
		thresholdPct = 5
	}
	return &Scheduler{
		store:        s,
		sources:      sources,
		registry:     reg,
		alertMgr:     alertMgr,
		modelDir:     modelDir,
		kind:         kind,
		collectInt:   collectInt,
		rebuildInt:   rebuildInt,
		thresholdPct: thresholdPct,
	}
}

// Run starts the scheduler loop. Blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	collectTicker := time.NewTicker(s.collectInt)
	rebuildTicker := time.NewTicker(s.rebuildInt)
	defer collectTicker.Stop()
	defer rebuildTicker.Stop()

	// Run immediately on start.
	fmt.Fprintln(os.Stderr, "scheduler: initial collection...")
	s.collectAll(ctx)
	fmt.Fprintln(os.Stderr, "scheduler: initial rebuild...")
	s.rebuildAndAlert(ctx)

	fmt.Fprintf(os.Stderr, "scheduler: running (collect every %s, rebuild every %s)\n",
		s.collectInt, s.rebuildInt)

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(os.Stderr, "scheduler: stopped")
			return ctx.Err()
		case <-collectTicker.C:
			fmt.Fprintln(os.Stderr, "scheduler: collecting...")
			s.collectAll(ctx)
		case <-rebuildTicker.C:
			fmt.Fprintln(os.Stderr, "scheduler: rebuilding dataset...")
			s.rebuildAndAlert(ctx)
		}
	}
}

func (s *Scheduler) collectAll(ctx context.Context) {
	for _, src := range s.sources {
		result, err := src.Collect(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  %s error: %v\n", src.Name(), err)
			continue
		}

		if err := s.storeResult(ctx, result); err != nil {
			fmt.Fprintf(os.Stderr, "  %s store error: %v\n", src.Name(), err)
			continue
		}

		fmt.Fprintf(os.Stderr, "  %s: %d prices, %d player days, %d tournaments\n",
			src.Name(), len(result.Prices), len(result.Players), len(result.Tournaments))
	}
}

func (s *Scheduler) storeResult(ctx context.Context, result *collect.Result) error {
	if len(result.Prices) > 0 {
		if err := s.store.AddPriceObservations(ctx, result.Prices); err != nil {
			return err
		}
	}
	if len(result.Players) > 0 {
		if err := s.store.UpsertPlayerCounts(ctx, result.Players); err != nil {
			return err
		}
	}
	if len(result.Tournaments) > 0 {
		if err := s.store.UpsertTournaments(ctx, result.Tournaments); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scheduler) rebuildAndAlert(ctx context.Context) {
	prices, err := s.store.ListPriceObservations(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "  rebuild error: %v\n", err)
		return
	}
	players, err := s.store.ListPlayerCounts(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "  rebuild error: %v\n", err)
		return
	}
	tournaments, err := s.store.ListTournaments(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "  rebuild error: %v\n", err)
		return
	}

	records, report := dataset.Merge(s.registry, prices, players, dataset.NewEventCalendar(tournaments))
	if err := s.store.ReplaceDailyRecords(ctx, records); err != nil {
		fmt.Fprintf(os.Stderr, "  rebuild store error: %v\n", err)
		return
	}
	fmt.Fprintf(os.Stderr, "  rebuilt: %s\n", report.Summary())

	s.alertMoves(ctx)
}

// alertMoves predicts tomorrow's price for every registered case and alerts
// when the predicted move exceeds the threshold. Artifacts are reloaded each
// pass so a retrain on disk takes effect without a restart.
func (s *Scheduler) alertMoves(ctx context.Context) {
	if !s.alertMgr.HasNotifiers() {
		return
	}

	ensemble, err := model.Load(model.ArtifactPath(s.modelDir, s.kind))
	if err != nil {
		fmt.Fprintf(os.Stderr, "  no model artifact, skipping alerts: %v\n", err)
		return
	}
	predictor, err := predict.New(ensemble, s.registry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "  predictor error: %v\n", err)
		return
	}

	for _, name := range s.registry.Names() {
		records, err := s.store.ListItemRecords(ctx, name, 3)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  %s: %v\n", name, err)
			continue
		}
		row, err := dataset.Latest(records)
		if err != nil {
			if errors.Is(err, dataset.ErrDataGap) {
				continue
			}
			fmt.Fprintf(os.Stderr, "  %s: %v\n", name, err)
			continue
		}

		predicted, err := predictor.Predict(predict.Input{
			ItemName:       name,
			PriceToday:     row.PriceLag1,
			PriceYesterday: row.PriceLag2,
			Price2DaysAgo:  row.PriceLag3,
			AveragePlayers: row.AveragePlayers,
			HasTournament:  row.HasTournament,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "  %s predict error: %v\n", name, err)
			continue
		}

		if row.PriceLag1 <= 0 {
			continue
		}
		changePct := (predicted - row.PriceLag1) / row.PriceLag1 * 100
		if changePct < s.thresholdPct && changePct > -s.thresholdPct {
			continue
		}

		notification := &alert.Notification{
			ItemName:       name,
			Day:            collect.DayKey(row.Date),
			CurrentPrice:   row.PriceLag1,
			PredictedPrice: predicted,
			ChangePct:      changePct,
			Model:          string(predictor.Kind()),
		}
		if err := s.alertMgr.Broadcast(ctx, notification); err != nil {
			fmt.Fprintf(os.Stderr, "  alert error for %q: %v\n", name, err)
			continue
		}
		fmt.Fprintf(os.Stderr, "  alerted: %s (%+.1f%%)\n", name, changePct)
	}
}
