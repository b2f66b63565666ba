package main

import (
	"context"
	"fmt"

	"github.com/lifelog/internal/app"
	"github.com/lifelog/internal/config"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	dateFlag     string
	fromFlag     string
	toFlag       string
	jsonOutput   bool
	seedDays     int
	seedValue    uint64
	seedForce    bool
	databasePath string

	rootCmd = &cobra.Command{
		Use:           "lifelog",
		Short:         "Daily routine tracker with streaks and milestone rewards",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the nightly streak seal job",
		RunE:  runServe, // Defined in cmd_serve.go
	}

	recomputeCmd = &cobra.Command{
		Use:   "recompute",
		Short: "Recompute daily streak records for a day or a date range",
		RunE:  runRecompute, // Defined in cmd_streak.go
	}

	repairCmd = &cobra.Command{
		Use:   "repair [date]",
		Short: "Repair a corrupt daily streak record",
		Args:  cobra.ExactArgs(1),
		RunE:  runRepair,
	}

	snapshotCmd = &cobra.Command{
		Use:   "snapshot",
		Short: "Print the current streak snapshot",
		RunE:  runSnapshot,
	}

	seedCmd = &cobra.Command{
		Use:   "seed",
		Short: "Generate demo tasks and activity history",
		RunE:  runSeed, // Defined in cmd_seed.go
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&databasePath, "db", "", "SQLite database path (overrides DATABASE_PATH)")

	recomputeCmd.Flags().StringVar(&dateFlag, "date", "", "day to recompute (YYYY-MM-DD, default today)")
	recomputeCmd.Flags().StringVar(&fromFlag, "from", "", "first day of a range (YYYY-MM-DD)")
	recomputeCmd.Flags().StringVar(&toFlag, "to", "", "last day of a range (YYYY-MM-DD, default today)")

	snapshotCmd.Flags().BoolVar(&jsonOutput, "json", false, "print the snapshot as JSON")

	seedCmd.Flags().IntVar(&seedDays, "days", 30, "number of days of history to generate")
	seedCmd.Flags().Uint64Var(&seedValue, "seed", 1, "random seed")
	seedCmd.Flags().BoolVar(&seedForce, "force", false, "generate even when tasks already exist")

	rootCmd.AddCommand(serveCmd, recomputeCmd, repairCmd, snapshotCmd, seedCmd)
}

// loadConfig 读取环境变量并套用命令行覆盖项。
func loadConfig() (config.AppConfig, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.AppConfig{}, err
	}
	if databasePath != "" {
		cfg.DatabasePath = databasePath
	}
	applyLogging(cfg)
	return cfg, nil
}

func applyLogging(cfg config.AppConfig) {
	log.SetLevel(cfg.LogLevelValue())
	if cfg.GinMode == "release" {
		log.SetFormatter(&log.JSONFormatter{})
	}
}

// openApp 加载配置并组装应用，调用方负责 Close。
func openApp(ctx context.Context) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	application, err := app.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init application: %w", err)
	}
	return application, nil
}
