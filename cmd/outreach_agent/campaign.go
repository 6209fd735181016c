package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/outreach-copilot/internal/config"
	"github.com/jonathan/outreach-copilot/internal/observability"
	"github.com/jonathan/outreach-copilot/internal/types"
)

var campaignCommand = &cobra.Command{
	Use:   "campaign",
	Short: "Manage outreach campaigns",
	Long:  `Campaigns group outreach records under one target role and resume revision so stats can be rolled up per campaign. Create one here, then tag runs with --campaign.`,
}

var campaignCreateCommand = &cobra.Command{
	Use:   "create",
	Short: "Create a campaign",
	RunE:  runCampaignCreateCmd,
}

var campaignListCommand = &cobra.Command{
	Use:   "list",
	Short: "List campaigns, newest first",
	RunE:  runCampaignListCmd,
}

var (
	campaignConfigPath  string
	campaignName        string
	campaignRole        string
	campaignDescription string
	campaignResumePath  string
	campaignActiveOnly  bool
	campaignDatabaseURL string
	campaignVerbose     bool
)

func init() {
	for _, cmd := range []*cobra.Command{campaignCreateCommand, campaignListCommand} {
		cmd.Flags().StringVar(&campaignConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")
		cmd.Flags().StringVar(&campaignDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")
		cmd.Flags().BoolVarP(&campaignVerbose, "verbose", "v", false, "Print detailed debug information")
	}

	campaignCreateCommand.Flags().StringVar(&campaignName, "name", "", "Campaign name")
	campaignCreateCommand.Flags().StringVarP(&campaignRole, "role", "r", "", "Target role the campaign pitches for")
	campaignCreateCommand.Flags().StringVar(&campaignDescription, "description", "", "Free-form campaign description")
	campaignCreateCommand.Flags().StringVar(&campaignResumePath, "resume", "", "Resume file to fingerprint the campaign with")

	campaignListCommand.Flags().BoolVar(&campaignActiveOnly, "active", false, "Show only active campaigns")

	campaignCommand.AddCommand(campaignCreateCommand)
	campaignCommand.AddCommand(campaignListCommand)
	rootCmd.AddCommand(campaignCommand)
}

// resumeHash fingerprints the resume revision a campaign was built around,
// so a reworded resume shows up as a distinct campaign in the stats.
func resumeHash(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read resume file: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func campaignConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := loadConfig(campaignConfigPath)
	if err != nil {
		return cfg, err
	}
	if cmd.Flags().Changed("db-url") {
		cfg.DatabaseURL = campaignDatabaseURL
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = campaignVerbose
	}
	cfg = cfg.MergeWithDefaults(config.Defaults())

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL environment variable or --db-url flag is required")
	}
	return cfg, nil
}

func runCampaignCreateCmd(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	if campaignName == "" {
		return fmt.Errorf("--name is required")
	}
	if campaignRole == "" {
		return fmt.Errorf("--role is required")
	}

	cfg, err := campaignConfig(cmd)
	if err != nil {
		return err
	}

	var hash string
	if campaignResumePath != "" {
		if hash, err = resumeHash(campaignResumePath); err != nil {
			return err
		}
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

	campaign := &types.Campaign{
		Name:        campaignName,
		Description: campaignDescription,
		TargetRole:  campaignRole,
		ResumeHash:  hash,
		IsActive:    true,
	}
	if err := database.CreateCampaign(ctx, campaign); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(os.Stdout, "Campaign created: %s\n", campaign.ID)
	return nil
}

func runCampaignListCmd(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := campaignConfig(cmd)
	if err != nil {
		return err
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

	campaigns, err := database.ListCampaigns(ctx, campaignActiveOnly)
	if err != nil {
		return err
	}
	observability.NewPrinter(os.Stdout).PrintCampaigns(campaigns)
	return nil
}
