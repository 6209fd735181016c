package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/outreach-copilot/internal/config"
	"github.com/jonathan/outreach-copilot/internal/observability"
	"github.com/jonathan/outreach-copilot/internal/pipeline"
)

var batchCommand = &cobra.Command{
	Use:   "batch [company-url ...]",
	Short: "Run the outreach workflow against multiple companies concurrently",
	Long: `Runs the outreach workflow for every listed company with a bounded worker pool. Companies can be given as arguments or one URL per line in a file via --companies (blank lines and # comments are skipped).

The resume is parsed once and shared by every run.`,
	RunE: runBatchCmd,
}

var (
	batchConfigPath     string
	batchResumePath     string
	batchCompaniesFile  string
	batchTargetRole     string
	batchChannel        string
	batchTone           string
	batchCampaignID     string
	batchWorkers        int
	batchSkipGuardrails bool
	batchAPIKey         string
	batchDatabaseURL    string
	batchUseBrowser     bool
	batchVerbose        bool
)

func init() {
	batchCommand.Flags().StringVar(&batchConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")

	batchCommand.Flags().StringVar(&batchResumePath, "resume", "", "Path to resume text file")
	batchCommand.Flags().StringVar(&batchCompaniesFile, "companies", "", "Path to a file with one company URL per line")
	batchCommand.Flags().StringVarP(&batchTargetRole, "role", "r", "", "Target role to pitch for")
	batchCommand.Flags().StringVar(&batchChannel, "channel", "", "Message channel: linkedin_connection, linkedin_message, email, other")
	batchCommand.Flags().StringVar(&batchTone, "tone", "", "Message tone: professional, friendly, enthusiastic, direct")
	batchCommand.Flags().StringVar(&batchCampaignID, "campaign", "", "Campaign ID to tag every outreach record with")
	batchCommand.Flags().IntVar(&batchWorkers, "workers", 0, "Number of concurrent workflow workers")
	batchCommand.Flags().BoolVar(&batchSkipGuardrails, "skip-guardrails", false, "Skip the quality gate and accept the first variant")
	batchCommand.Flags().BoolVar(&batchUseBrowser, "use-browser", false, "Use headless browser for SPA sites (requires Chrome)")
	batchCommand.Flags().BoolVarP(&batchVerbose, "verbose", "v", false, "Print detailed debug information")

	batchCommand.Flags().StringVar(&batchAPIKey, "api-key", "", "Gemini API Key (optional, defaults to GEMINI_API_KEY env var)")
	batchCommand.Flags().StringVar(&batchDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")

	rootCmd.AddCommand(batchCommand)
}

// readCompanies merges URLs from the companies file and positional args,
// preserving order and dropping duplicates.
func readCompanies(path string, args []string) ([]string, error) {
	var urls []string
	seen := make(map[string]bool)
	add := func(raw string) {
		url := strings.TrimSpace(raw)
		if url == "" || strings.HasPrefix(url, "#") || seen[url] {
			return
		}
		seen[url] = true
		urls = append(urls, url)
	}

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open companies file: %w", err)
		}
		defer f.Close()

		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			add(scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to read companies file: %w", err)
		}
	}
	for _, arg := range args {
		add(arg)
	}
	return urls, nil
}

func runBatchCmd(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig(batchConfigPath)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("resume") {
		cfg.ResumePath = batchResumePath
	}
	if cmd.Flags().Changed("api-key") {
		cfg.LLM.APIKey = batchAPIKey
	}
	if cmd.Flags().Changed("db-url") {
		cfg.DatabaseURL = batchDatabaseURL
	}
	if cmd.Flags().Changed("use-browser") {
		cfg.Scraper.UseBrowser = batchUseBrowser
	}
	if cmd.Flags().Changed("skip-guardrails") {
		cfg.Guardrail.Skip = batchSkipGuardrails
	}
	if cmd.Flags().Changed("workers") {
		cfg.Batch.Workers = batchWorkers
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = batchVerbose
	}

	cfg = cfg.MergeWithDefaults(config.Defaults())

	if batchTargetRole == "" {
		return fmt.Errorf("--role is required")
	}
	channel, err := parseChannel(batchChannel)
	if err != nil {
		return err
	}
	tone, err := parseTone(batchTone)
	if err != nil {
		return err
	}
	campaignID, err := parseCampaign(batchCampaignID)
	if err != nil {
		return err
	}

	urls, err := readCompanies(batchCompaniesFile, args)
	if err != nil {
		return err
	}
	if len(urls) == 0 {
		return fmt.Errorf("no companies given; pass URLs as arguments or via --companies")
	}

	if err := resolveSecrets(&cfg); err != nil {
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

	reqs := make([]*pipeline.Request, len(urls))
	for i, url := range urls {
		reqs[i] = &pipeline.Request{
			TargetRole:     batchTargetRole,
			CompanyURL:     url,
			Channel:        channel,
			Tone:           tone,
			CampaignID:     campaignID,
			SkipGuardrails: cfg.Guardrail.Skip,
		}
	}

	// A bad resume fails every request up front rather than mid-batch.
	printer := observability.NewPrinter(os.Stdout)
	profile, err := parseResume(cfg)
	if err != nil {
		printer.PrintBatchSummary(pipeline.FailBatch(reqs, err.Error()))
		return err
	}
	for _, req := range reqs {
		req.Profile = profile
	}

	results := a.orchestrator.RunBatch(ctx, reqs)
	printer.PrintBatchSummary(results)
	return nil
}
