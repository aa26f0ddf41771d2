package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/caseradar/caseradar/internal/config"
	"github.com/caseradar/caseradar/internal/scheduler"
	"github.com/caseradar/caseradar/internal/store"
	"github.com/caseradar/caseradar/pkg/alert"
	"github.com/caseradar/caseradar/pkg/collect"
	"github.com/caseradar/caseradar/pkg/dataset"
	"github.com/caseradar/caseradar/pkg/export"
	"github.com/caseradar/caseradar/pkg/model"
	"github.com/caseradar/caseradar/pkg/predict"
	"github.com/caseradar/caseradar/pkg/registry"
	"github.com/caseradar/caseradar/pkg/server"
)

func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

func loadRegistry(cfg *config.Config) (*registry.Registry, error) {
	reg, err := registry.LoadOrDefault(cfg.Registry.Path)
	if err != nil {
		return nil, fmt.Errorf("load registry: %w", err)
	}
	return reg, nil
}

func buildSources(cfg *config.Config, reg *registry.Registry) []collect.Source {
	var sources []collect.Source

	if cfg.Collect.Steam.Enabled {
		sources = append(sources, collect.NewSteam(
			cfg.Collect.Steam.AppID,
			reg.Names(),
			cfg.Collect.Steam.LookbackDays,
			time.Duration(cfg.Collect.Steam.DelaySeconds)*time.Second,
		))
	}
	if cfg.Collect.Players.Enabled {
		sources = append(sources, collect.NewPlayers(cfg.Collect.Players.AppID, cfg.Collect.Players.LookbackDays))
	}
	if cfg.Collect.Events.Enabled {
		sources = append(sources, collect.NewLiquipedia(cfg.Collect.Events.Page, cfg.Collect.Events.LookbackDays))
	}

	return sources
}

func buildAlertManager(cfg *config.Config) *alert.Manager {
	var notifiers []alert.Notifier

	if cfg.Alerts.Slack.Enabled && cfg.Alerts.Slack.WebhookURL != "" {
		notifiers = append(notifiers, alert.NewSlack(cfg.Alerts.Slack.WebhookURL))
	}
	if cfg.Alerts.Discord.Enabled && cfg.Alerts.Discord.WebhookURL != "" {
		notifiers = append(notifiers, alert.NewDiscord(cfg.Alerts.Discord.WebhookURL))
	}
	if cfg.Alerts.Webhook.Enabled && cfg.Alerts.Webhook.URL != "" {
		notifiers = append(notifiers, alert.NewWebhook(cfg.Alerts.Webhook.URL, cfg.Alerts.Webhook.Secret))
	}

	return alert.NewManager(notifiers)
}

func runCollect(filterSources []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	reg, err := loadRegistry(cfg)
	if err != nil {
		return err
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	allSources := buildSources(cfg, reg)

	// Filter to requested sources only.
	var sources []collect.Source
	if len(filterSources) > 0 {
		wanted := make(map[string]bool)
		for _, s := range filterSources {
			wanted[strings.ToLower(strings.TrimSpace(s))] = true
		}
		for _, s := range allSources {
			if wanted[string(s.Name())] {
				sources = append(sources, s)
			}
		}
		if len(sources) == 0 {
			return fmt.Errorf("no matching sources for: %s", strings.Join(filterSources, ", "))
		}
	} else {
		sources = allSources
	}

	ctx := context.Background()

	for _, src := range sources {
		fmt.Fprintf(os.Stderr, "collecting from %s...\n", src.Name())
		result, err := src.Collect(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  error: %v\n", err)
			continue
		}

		if len(result.Prices) > 0 {
			if err := db.AddPriceObservations(ctx, result.Prices); err != nil {
				fmt.Fprintf(os.Stderr, "  store error: %v\n", err)
				continue
			}
		}
		if len(result.Players) > 0 {
			if err := db.UpsertPlayerCounts(ctx, result.Players); err != nil {
				fmt.Fprintf(os.Stderr, "  store error: %v\n", err)
				continue
			}
		}
		if len(result.Tournaments) > 0 {
			if err := db.UpsertTournaments(ctx, result.Tournaments); err != nil {
				fmt.Fprintf(os.Stderr, "  store error: %v\n", err)
				continue
			}
		}

		fmt.Fprintf(os.Stderr, "  collected %d prices, %d player days, %d tournaments\n",
			len(result.Prices), len(result.Players), len(result.Tournaments))
	}

	return nil
}

func runMerge() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	reg, err := loadRegistry(cfg)
	if err != nil {
		return err
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	ctx := context.Background()

	prices, err := db.ListPriceObservations(ctx)
	if err != nil {
		return fmt.Errorf("list prices: %w", err)
	}
	players, err := db.ListPlayerCounts(ctx)
	if err != nil {
		return fmt.Errorf("list player counts: %w", err)
	}
	tournaments, err := db.ListTournaments(ctx)
	if err != nil {
		return fmt.Errorf("list tournaments: %w", err)
	}

	records, report := dataset.Merge(reg, prices, players, dataset.NewEventCalendar(tournaments))
	if err := db.ReplaceDailyRecords(ctx, records); err != nil {
		return fmt.Errorf("store records: %w", err)
	}

	fmt.Fprintln(os.Stderr, report.Summary())
	return nil
}

func runTrain(modelName string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	reg, err := loadRegistry(cfg)
	if err != nil {
		return err
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	records, err := db.ListDailyRecords(context.Background())
	if err != nil {
		return fmt.Errorf("list records: %w", err)
	}
	if len(records) == 0 {
		return fmt.Errorf("no merged records (run caseradar collect, then caseradar merge)")
	}

	rows, report := dataset.BuildTraining(records)
	fmt.Fprintf(os.Stderr, "feature rows: %d (skipped %d gap, %d end-of-series)\n",
		report.Rows, report.SkippedGaps, report.SkippedEnds)

	kinds := model.Kinds()
	if modelName != "" {
		kind, err := model.ParseKind(modelName)
		if err != nil {
			return err
		}
		kinds = []model.Kind{kind}
	}

	if err := os.MkdirAll(cfg.Train.ModelDir, 0o755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}

	trainCfg := model.Config{
		Trees:        cfg.Train.Trees,
		MaxDepth:     cfg.Train.MaxDepth,
		LearningRate: cfg.Train.LearningRate,
		MinLeaf:      cfg.Train.MinLeaf,
		Bins:         cfg.Train.Bins,
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MODEL\tMAE\tR2\tTRAIN ROWS\tTEST ROWS\tTRAIN END\tTEST START")

	for _, kind := range kinds {
		trainCfg.Kind = kind
		ensemble, eval, err := model.TrainAndEvaluate(trainCfg, rows, cfg.Train.TestFraction)
		if err != nil {
			return fmt.Errorf("train %s: %w", kind, err)
		}

		ensemble.RegistryVersion = reg.Version
		path := model.ArtifactPath(cfg.Train.ModelDir, kind)
		if err := ensemble.Save(path); err != nil {
			return fmt.Errorf("save %s: %w", kind, err)
		}

		fmt.Fprintf(w, "%s\t%.4f\t%.4f\t%d\t%d\t%s\t%s\n",
			eval.Kind, eval.MAE, eval.R2, eval.TrainRows, eval.TestRows,
			collect.DayKey(eval.TrainEnd), collect.DayKey(eval.TestStart))
		fmt.Fprintf(os.Stderr, "saved %s\n", path)
	}

	return w.Flush()
}

func loadPredictor(cfg *config.Config, reg *registry.Registry, modelName string) (*predict.Predictor, error) {
	kind := model.KindGBDT
	if modelName != "" {
		k, err := model.ParseKind(modelName)
		if err != nil {
			return nil, err
		}
		kind = k
	}

	ensemble, err := model.Load(model.ArtifactPath(cfg.Train.ModelDir, kind))
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	return predict.New(ensemble, reg)
}

func runPredict(modelName, item string, priceToday, priceYest, price2DaysAgo float64, players int, tournament bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	reg, err := loadRegistry(cfg)
	if err != nil {
		return err
	}

	predictor, err := loadPredictor(cfg, reg, modelName)
	if err != nil {
		return err
	}

	price, err := predictor.Predict(predict.Input{
		ItemName:       item,
		PriceToday:     priceToday,
		PriceYesterday: priceYest,
		Price2DaysAgo:  price2DaysAgo,
		AveragePlayers: players,
		HasTournament:  tournament,
	})
	if err != nil {
		return err
	}

	fmt.Printf("%s: predicted next-day price %.2f (%s)\n", item, price, predictor.Kind())
	return nil
}

func runPredictLatest(modelName, item string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	reg, err := loadRegistry(cfg)
	if err != nil {
		return err
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	records, err := db.ListItemRecords(context.Background(), item, 3)
	if err != nil {
		return fmt.Errorf("list records for %q: %w", item, err)
	}
	row, err := dataset.Latest(records)
	if err != nil {
		return fmt.Errorf("latest window for %q: %w", item, err)
	}

	predictor, err := loadPredictor(cfg, reg, modelName)
	if err != nil {
		return err
	}

	price, err := predictor.Predict(predict.Input{
		ItemName:       item,
		PriceToday:     row.PriceLag1,
		PriceYesterday: row.PriceLag2,
		Price2DaysAgo:  row.PriceLag3,
		AveragePlayers: row.AveragePlayers,
		HasTournament:  row.HasTournament,
	})
	if err != nil {
		return err
	}

	change := 0.0
	if row.PriceLag1 > 0 {
		change = (price - row.PriceLag1) / row.PriceLag1 * 100
	}
	fmt.Printf("%s: %s close %.2f, predicted next-day price %.2f (%+.1f%%, %s)\n",
		item, collect.DayKey(row.Date), row.PriceLag1, price, change, predictor.Kind())
	return nil
}

func runExport(out string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	records, err := db.ListDailyRecords(context.Background())
	if err != nil {
		return fmt.Errorf("list records: %w", err)
	}
	if len(records) == 0 {
		return fmt.Errorf("no merged records to export")
	}

	rows, _ := dataset.BuildTraining(records)

	switch ext := strings.ToLower(filepath.Ext(out)); ext {
	case ".csv":
		err = export.CSV(out, records, rows)
	case ".xlsx":
		err = export.XLSX(out, records, rows)
	default:
		return fmt.Errorf("unsupported export format %q (use .csv or .xlsx)", ext)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "exported %d records to %s\n", len(records), out)
	return nil
}

func runRegistryList() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	reg, err := loadRegistry(cfg)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME")
	for i, name := range reg.Names() {
		fmt.Fprintf(w, "%d\t%s\n", i, name)
	}
	return w.Flush()
}

func runRegistryAdd(name string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	reg, err := loadRegistry(cfg)
	if err != nil {
		return err
	}

	id, err := reg.Add(name)
	if err != nil {
		return err
	}
	if err := reg.Save(cfg.Registry.Path); err != nil {
		return fmt.Errorf("save registry: %w", err)
	}

	fmt.Printf("added %q with id %d\n", name, id)
	fmt.Fprintln(os.Stderr, "note: existing model artifacts predate this case; retrain before predicting it")
	return nil
}

func buildServer(cfg *config.Config, db store.Store, reg *registry.Registry, port int) (*server.Server, error) {
	predictors := make(map[model.Kind]*predict.Predictor)
	for _, kind := range model.Kinds() {
		ensemble, err := model.Load(model.ArtifactPath(cfg.Train.ModelDir, kind))
		if err != nil {
			fmt.Fprintf(os.Stderr, "model %s not loaded: %v\n", kind, err)
			continue
		}
		p, err := predict.New(ensemble, reg)
		if err != nil {
			return nil, err
		}
		predictors[kind] = p
	}
	if len(predictors) == 0 {
		return nil, fmt.Errorf("no model artifacts in %s (run caseradar train first)", cfg.Train.ModelDir)
	}

	defaultKind := model.KindGBDT
	if _, ok := predictors[defaultKind]; !ok {
		defaultKind = model.KindHistGB
	}

	return server.New(db, reg, predictors, defaultKind, port)
}

func runServe(port int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if port == 0 {
		port = cfg.Server.Port
	}

	reg, err := loadRegistry(cfg)
	if err != nil {
		return err
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	srv, err := buildServer(cfg, db, reg, port)
	if err != nil {
		return err
	}
	return srv.ListenAndServe()
}

func runDaemon(port int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if port == 0 {
		port = cfg.Server.Port
	}

	reg, err := loadRegistry(cfg)
	if err != nil {
		return err
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	sources := buildSources(cfg, reg)
	alertMgr := buildAlertManager(cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sched := scheduler.New(db, sources, reg, alertMgr,
		cfg.Train.ModelDir, model.KindGBDT,
		cfg.Schedule.ParseCollectInterval(),
		cfg.Schedule.ParseRebuildInterval(),
		cfg.Alerts.ThresholdPct,
	)

	// Start scheduler in background.
	go func() {
		if err := sched.Run(ctx); err != nil && ctx.Err() == nil {
			fmt.Fprintf(os.Stderr, "scheduler error: %v\n", err)
		}
	}()

	srv, err := buildServer(cfg, db, reg, port)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		fmt.Fprintln(os.Stderr, "\nshutting down...")
	}()

	return srv.ListenAndServe()
}
