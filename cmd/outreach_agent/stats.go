package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/outreach-copilot/internal/config"
	"github.com/jonathan/outreach-copilot/internal/crm"
	"github.com/jonathan/outreach-copilot/internal/observability"
)

var statsCommand = &cobra.Command{
	Use:   "stats",
	Short: "Show outreach funnel statistics",
	Long:  `Aggregates tracked records into funnel statistics: sent, replied, interested, reply rate, and average response time. Filterable by campaign and time window.`,
	RunE:  runStatsCmd,
}

var (
	statsConfigPath  string
	statsCampaignID  string
	statsSinceDays   int
	statsDatabaseURL string
	statsVerbose     bool
)

func init() {
	statsCommand.Flags().StringVar(&statsConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")

	statsCommand.Flags().StringVar(&statsCampaignID, "campaign", "", "Restrict to one campaign ID")
	statsCommand.Flags().IntVar(&statsSinceDays, "since-days", 0, "Restrict to records created within this many days")
	statsCommand.Flags().BoolVarP(&statsVerbose, "verbose", "v", false, "Print detailed debug information")

	statsCommand.Flags().StringVar(&statsDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")

	rootCmd.AddCommand(statsCommand)
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := loadConfig(statsConfigPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("db-url") {
		cfg.DatabaseURL = statsDatabaseURL
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = statsVerbose
	}
	cfg = cfg.MergeWithDefaults(config.Defaults())

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable or --db-url flag is required")
	}

	var filter crm.RecordFilter
	if statsCampaignID != "" {
		campaignID, err := uuid.Parse(statsCampaignID)
		if err != nil {
			return fmt.Errorf("invalid campaign ID %q: %w", statsCampaignID, err)
		}
		filter.CampaignID = &campaignID
	}
	if statsSinceDays > 0 {
		since := time.Now().AddDate(0, 0, -statsSinceDays)
		filter.Since = &since
	}

	log, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	database, err := openDatabase(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer database.Close()

	stats, err := newCRMManager(database, cfg, log).Stats(ctx, filter)
	if err != nil {
		return err
	}
	observability.NewPrinter(os.Stdout).PrintStats(stats)
	return nil
}
