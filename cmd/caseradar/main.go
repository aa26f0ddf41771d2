package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var cfgFile string

func main() {
	// Webhook URLs and path overrides may live in .env; absence is fine.
	_ = godotenv.Load()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "caseradar",
		Short: "Forecast next-day CS2 weapon case prices from market, player and event data",
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")

	root.AddCommand(collectCmd())
	root.AddCommand(mergeCmd())
	root.AddCommand(trainCmd())
	root.AddCommand(predictCmd())
	root.AddCommand(exportCmd())
	root.AddCommand(registryCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(runCmd())

	return root
}

func collectCmd() *cobra.Command {
	var sources []string

	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Run data collectors (Steam prices, player counts, tournaments)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCollect(sources)
		},
	}

	cmd.Flags().StringSliceVar(&sources, "source", nil, "specific sources to collect (steam,players,events)")
	return cmd
}

func mergeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "merge",
		Short: "Merge raw observations into the per-(case, day) dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMerge()
		},
	}
}

func trainCmd() *cobra.Command {
	var modelName string

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train price models on the merged dataset and report holdout metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrain(modelName)
		},
	}

	cmd.Flags().StringVar(&modelName, "model", "", "train a single model (gbdt or histgb; default: both)")
	return cmd
}

func predictCmd() *cobra.Command {
	var (
		modelName string
		latest    string

		item          string
		priceToday    float64
		priceYest     float64
		price2DaysAgo float64
		players       int
		tournament    bool
	)

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict tomorrow's price for one case",
		RunE: func(cmd *cobra.Command, args []string) error {
			if latest != "" {
				return runPredictLatest(modelName, latest)
			}
			return runPredict(modelName, item, priceToday, priceYest, price2DaysAgo, players, tournament)
		},
	}

	cmd.Flags().StringVar(&modelName, "model", "", "model to use (gbdt or histgb; default: gbdt)")
	cmd.Flags().StringVar(&latest, "latest", "", "predict from the newest stored records of the named case")
	cmd.Flags().StringVar(&item, "item", "", "case name, e.g. \"Kilowatt Case\"")
	cmd.Flags().Float64Var(&priceToday, "price-today", 0, "price on day T")
	cmd.Flags().Float64Var(&priceYest, "price-yesterday", 0, "price on day T-1")
	cmd.Flags().Float64Var(&price2DaysAgo, "price-2days-ago", 0, "price on day T-2")
	cmd.Flags().IntVar(&players, "players", 0, "average concurrent players on day T")
	cmd.Flags().BoolVar(&tournament, "tournament", false, "an S-tier tournament is running on day T")
	return cmd
}

func exportCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the merged dataset to .csv or .xlsx",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(out)
		},
	}

	cmd.Flags().StringVar(&out, "out", "dataset.xlsx", "output path (.csv or .xlsx)")
	return cmd
}

func registryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Inspect or extend the case registry",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List registered cases and their encoded ids",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegistryList()
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "add <name>",
		Short: "Append a new case to the registry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegistryAdd(args[0])
		},
	})

	return cmd
}

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP prediction API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}

func runCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start daemon with scheduler and HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}
