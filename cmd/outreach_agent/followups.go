package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/outreach-copilot/internal/config"
	"github.com/jonathan/outreach-copilot/internal/observability"
)

var followupsCommand = &cobra.Command{
	Use:   "followups",
	Short: "List and complete scheduled follow-ups",
	Long: `Lists follow-ups coming due within the window, or completes one with --complete.

Completing a follow-up schedules the next one in the sequence unless --no-next is given or the chain is exhausted.`,
	RunE: runFollowupsCmd,
}

var (
	followupsConfigPath  string
	followupsDaysAhead   int
	followupsComplete    string
	followupsNotes       string
	followupsNoNext      bool
	followupsDatabaseURL string
	followupsVerbose     bool
)

func init() {
	followupsCommand.Flags().StringVar(&followupsConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")

	followupsCommand.Flags().IntVar(&followupsDaysAhead, "days-ahead", 0, "Include follow-ups due within this many days")
	followupsCommand.Flags().StringVar(&followupsComplete, "complete", "", "Follow-up ID to mark completed")
	followupsCommand.Flags().StringVar(&followupsNotes, "notes", "", "Notes recorded on completion")
	followupsCommand.Flags().BoolVar(&followupsNoNext, "no-next", false, "Do not schedule the next follow-up in the sequence")
	followupsCommand.Flags().BoolVarP(&followupsVerbose, "verbose", "v", false, "Print detailed debug information")

	followupsCommand.Flags().StringVar(&followupsDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")

	rootCmd.AddCommand(followupsCommand)
}

func runFollowupsCmd(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := loadConfig(followupsConfigPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("db-url") {
		cfg.DatabaseURL = followupsDatabaseURL
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = followupsVerbose
	}
	cfg = cfg.MergeWithDefaults(config.Defaults())

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable or --db-url flag is required")
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

	manager := newCRMManager(database, cfg, log)

	if followupsComplete != "" {
		followUpID, err := uuid.Parse(followupsComplete)
		if err != nil {
			return fmt.Errorf("invalid follow-up ID %q: %w", followupsComplete, err)
		}
		if err := manager.CompleteFollowUp(ctx, followUpID, followupsNotes, !followupsNoNext); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(os.Stdout, "Follow-up %s completed\n", followUpID)
		return nil
	}

	followUps, err := manager.PendingFollowUps(ctx, followupsDaysAhead)
	if err != nil {
		return err
	}
	observability.NewPrinter(os.Stdout).PrintFollowUps(followUps)
	return nil
}
