package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/outreach-copilot/internal/config"
	"github.com/jonathan/outreach-copilot/internal/observability"
	"github.com/jonathan/outreach-copilot/internal/pipeline"
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Run the outreach workflow against one company",
	Long: `Orchestrates the full outreach workflow for a single company: scrape -> extract -> score -> generate -> guardrail -> select -> track.

Configuration can be loaded from a JSON file using --config. Command-line arguments override config file values.`,
	RunE: runWorkflowCmd,
}

var (
	runConfigPath     string
	runResumePath     string
	runCompanyURL     string
	runTargetRole     string
	runChannel        string
	runTone           string
	runCampaignID     string
	runNumVariants    int
	runSkipGuardrails bool
	runAPIKey         string
	runDatabaseURL    string
	runUseBrowser     bool
	runVerbose        bool
)

func init() {
	// Config file flag (processed first)
	runCommand.Flags().StringVar(&runConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")

	runCommand.Flags().StringVar(&runResumePath, "resume", "", "Path to resume text file")
	runCommand.Flags().StringVarP(&runCompanyURL, "company-url", "u", "", "Target company website URL")
	runCommand.Flags().StringVarP(&runTargetRole, "role", "r", "", "Target role to pitch for")
	runCommand.Flags().StringVar(&runChannel, "channel", "", "Message channel: linkedin_connection, linkedin_message, email, other")
	runCommand.Flags().StringVar(&runTone, "tone", "", "Message tone: professional, friendly, enthusiastic, direct")
	runCommand.Flags().StringVar(&runCampaignID, "campaign", "", "Campaign ID to tag the outreach record with")
	runCommand.Flags().IntVar(&runNumVariants, "variants", 0, "Number of message variants to generate")
	runCommand.Flags().BoolVar(&runSkipGuardrails, "skip-guardrails", false, "Skip the quality gate and accept the first variant")
	runCommand.Flags().BoolVar(&runUseBrowser, "use-browser", false, "Use headless browser for SPA sites (requires Chrome)")
	runCommand.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Print detailed debug information")

	// API key can be passed as a flag, or read from env var GEMINI_API_KEY
	runCommand.Flags().StringVar(&runAPIKey, "api-key", "", "Gemini API Key (optional, defaults to GEMINI_API_KEY env var)")

	// Database URL for record tracking and the page cache
	runCommand.Flags().StringVar(&runDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")

	rootCmd.AddCommand(runCommand)
}

func runWorkflowCmd(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := loadConfig(runConfigPath)
	if err != nil {
		return err
	}
	if runVerbose && runConfigPath != "" {
		_, _ = fmt.Fprintf(os.Stdout, "Loaded config from: %s\n", runConfigPath)
	}

	// Apply CLI overrides (command-line args take priority)
	// Only override if the flag was explicitly set
	if cmd.Flags().Changed("resume") {
		cfg.ResumePath = runResumePath
	}
	if cmd.Flags().Changed("api-key") {
		cfg.LLM.APIKey = runAPIKey
	}
	if cmd.Flags().Changed("db-url") {
		cfg.DatabaseURL = runDatabaseURL
	}
	if cmd.Flags().Changed("use-browser") {
		cfg.Scraper.UseBrowser = runUseBrowser
	}
	if cmd.Flags().Changed("skip-guardrails") {
		cfg.Guardrail.Skip = runSkipGuardrails
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = runVerbose
	}

	cfg = cfg.MergeWithDefaults(config.Defaults())

	if runCompanyURL == "" {
		return fmt.Errorf("--company-url is required")
	}
	if runTargetRole == "" {
		return fmt.Errorf("--role is required")
	}
	channel, err := parseChannel(runChannel)
	if err != nil {
		return err
	}
	tone, err := parseTone(runTone)
	if err != nil {
		return err
	}
	campaignID, err := parseCampaign(runCampaignID)
	if err != nil {
		return err
	}
	if err := resolveSecrets(&cfg); err != nil {
		return err
	}

	profile, err := parseResume(cfg)
	if err != nil {
		return err
	}

	a, err := buildAgent(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	if err := verifyCampaign(ctx, a.database, campaignID); err != nil {
		return err
	}

	result := a.orchestrator.Run(ctx, &pipeline.Request{
		Profile:        profile,
		TargetRole:     runTargetRole,
		CompanyURL:     runCompanyURL,
		Channel:        channel,
		Tone:           tone,
		CampaignID:     campaignID,
		NumVariants:    runNumVariants,
		SkipGuardrails: cfg.Guardrail.Skip,
	})

	observability.NewPrinter(os.Stdout).PrintWorkflowResult(result)

	if result.Status == pipeline.StatusFailed {
		return fmt.Errorf("workflow failed: %s", result.Reason)
	}
	return nil
}
