package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/contactkeval/iv-crush/internal/analysis"
	"github.com/contactkeval/iv-crush/internal/config"
	"github.com/contactkeval/iv-crush/internal/data"
	"github.com/contactkeval/iv-crush/internal/logger"
	"github.com/contactkeval/iv-crush/internal/report"
)

var rootCmd = &cobra.Command{
	Use:   "iv-crush",
	Short: "Estimate implied volatility crush across earnings announcements",
	Run: func(cmd *cobra.Command, args []string) {
		configPath, err := cmd.Flags().GetString("config")
		if err != nil {
			log.Fatalf("error getting config flag: %v", err)
		}
		if err := run(configPath); err != nil {
			log.Fatalf("error running analysis: %v", err)
		}
	},
}

func run(configPath string) error {
	// .env is optional; it carries the vendor API key on dev machines
	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file found")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger.Init(logger.Options{Level: cfg.Logging.Level, LogFile: cfg.Logging.File})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	flat := data.NewFlatFileProvider(cfg.Paths.OptionFlatFiles, cfg.Paths.UnderlyingBars)

	// local flat files are preferred when present; otherwise chains are
	// rebuilt from the vendor API, with listings memoized on disk
	var snapshots data.SnapshotSource = flat
	var bars data.BarProvider = flat
	if apiKey := os.Getenv("POLYGON_API_KEY"); apiKey != "" {
		remote := data.NewPolygonProvider(apiKey)
		bars = remote
		var contracts data.ContractProvider = remote
		if cfg.Paths.ContractCache != "" {
			cache := data.NewContractCache(cfg.Paths.ContractCache, remote)
			defer cache.Flush()
			contracts = cache
		}
		if cfg.Paths.OptionFlatFiles == "" {
			snapshots = data.NewRemoteChainProvider(contracts, remote, cfg.Analysis.TargetDTE, cfg.Analysis.WindowDTE)
		}
		log.Info("polygon provider enabled")
	} else if cfg.Paths.OptionFlatFiles == "" {
		return config.ErrNoDataSource
	} else {
		log.Info("running from local flat files only")
	}

	earnings := data.NewCSVEarningsProvider(cfg.Paths.EarningsData)

	symbols := cfg.Symbols
	if len(symbols) == 0 {
		symbols, err = earnings.Symbols()
		if err != nil {
			return err
		}
	}
	if len(symbols) == 0 {
		log.Warn("no symbols to analyze")
		return nil
	}

	analyzer := analysis.New(cfg.Analysis, snapshots, bars, earnings)

	start := time.Now()
	records, stats, runErr := analyzer.Run(ctx, symbols)

	if err := report.WriteCSV(records, cfg.Paths.OutputDir, "iv_crush"); err != nil {
		return err
	}
	if err := report.WriteJSON(records, cfg.Paths.OutputDir, "iv_crush"); err != nil {
		return err
	}

	fields := log.Fields{
		"symbols": len(symbols),
		"events":  stats.Events,
		"emitted": stats.Emitted,
		"elapsed": time.Since(start).Round(time.Millisecond),
	}
	for gate, n := range stats.Skips {
		fields["skip_"+string(gate)] = n
	}
	log.WithFields(fields).Info("analysis complete")

	if runErr != nil {
		log.WithError(runErr).Warn("run interrupted; partial results written")
	}
	return nil
}

func main() {
	rootCmd.PersistentFlags().String("config", "config.yaml", "path to YAML config")
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
