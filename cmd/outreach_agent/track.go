package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/outreach-copilot/internal/config"
	"github.com/jonathan/outreach-copilot/internal/db"
	"github.com/jonathan/outreach-copilot/internal/llm"
	"github.com/jonathan/outreach-copilot/internal/reply"
	"github.com/jonathan/outreach-copilot/internal/types"
)

var trackCommand = &cobra.Command{
	Use:   "track",
	Short: "Record a status change on a tracked outreach record",
	Long: `Applies a lifecycle transition to an outreach record: draft -> sent -> replied / no_response / bounced.

For replies, the reply text is classified into interested, not_interested, or needs_info unless --category is given explicitly. Marking a record sent schedules the first follow-up; a reply cancels pending follow-ups and reschedules when the conversation is still live.`,
	RunE: runTrackCmd,
}

var (
	trackConfigPath  string
	trackRecordID    string
	trackStatus      string
	trackReply       string
	trackReplyFile   string
	trackCategory    string
	trackAPIKey      string
	trackDatabaseURL string
	trackVerbose     bool
)

func init() {
	trackCommand.Flags().StringVar(&trackConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")

	trackCommand.Flags().StringVar(&trackRecordID, "record", "", "Outreach record ID")
	trackCommand.Flags().StringVar(&trackStatus, "status", "", "New status: sent, replied, no_response, bounced")
	trackCommand.Flags().StringVar(&trackReply, "reply", "", "Reply text (for --status replied)")
	trackCommand.Flags().StringVar(&trackReplyFile, "reply-file", "", "Path to a file holding the reply text (for --status replied)")
	trackCommand.Flags().StringVar(&trackCategory, "category", "", "Reply category: interested, not_interested, needs_info (skips classification)")
	trackCommand.Flags().BoolVarP(&trackVerbose, "verbose", "v", false, "Print detailed debug information")

	trackCommand.Flags().StringVar(&trackAPIKey, "api-key", "", "Gemini API Key (optional, defaults to GEMINI_API_KEY env var)")
	trackCommand.Flags().StringVar(&trackDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")

	if err := trackCommand.MarkFlagRequired("record"); err != nil {
		panic(err)
	}
	if err := trackCommand.MarkFlagRequired("status"); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(trackCommand)
}

// readReplyText returns the reply body from --reply or --reply-file.
func readReplyText() (string, error) {
	if trackReply != "" && trackReplyFile != "" {
		return "", fmt.Errorf("--reply and --reply-file are mutually exclusive; provide only one")
	}
	if trackReply != "" {
		return trackReply, nil
	}
	if trackReplyFile != "" {
		data, err := os.ReadFile(trackReplyFile)
		if err != nil {
			return "", fmt.Errorf("failed to read reply file: %w", err)
		}
		return string(data), nil
	}
	return "", nil
}

func runTrackCmd(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := loadConfig(trackConfigPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("api-key") {
		cfg.LLM.APIKey = trackAPIKey
	}
	if cmd.Flags().Changed("db-url") {
		cfg.DatabaseURL = trackDatabaseURL
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = trackVerbose
	}
	cfg = cfg.MergeWithDefaults(config.Defaults())

	recordID, err := uuid.Parse(trackRecordID)
	if err != nil {
		return fmt.Errorf("invalid record ID %q: %w", trackRecordID, err)
	}

	// Reject bad flag values before touching the database.
	status := types.OutreachStatus(trackStatus)
	switch status {
	case types.StatusSent, types.StatusReplied, types.StatusNoResponse, types.StatusBounced:
	default:
		return fmt.Errorf("invalid status %q (sent, replied, no_response, bounced)", trackStatus)
	}
	category := types.ReplyCategory(trackCategory)
	if category != "" && !category.Valid() {
		return fmt.Errorf("invalid category %q (interested, not_interested, needs_info, out_of_office, spam)", trackCategory)
	}

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

	switch status {
	case types.StatusSent:
		err = manager.MarkSent(ctx, recordID)
	case types.StatusNoResponse:
		err = manager.MarkNoResponse(ctx, recordID)
	case types.StatusBounced:
		err = manager.MarkBounced(ctx, recordID)
	case types.StatusReplied:
		replyText, readErr := readReplyText()
		if readErr != nil {
			return readErr
		}
		if strings.TrimSpace(replyText) == "" {
			return fmt.Errorf("--status replied requires --reply or --reply-file")
		}

		if category == "" {
			category, err = classifyReply(ctx, cfg, database, recordID, replyText)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(os.Stdout, "Reply classified as: %s\n", category)
		}
		err = manager.MarkReplied(ctx, recordID, replyText, category)
	}
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(os.Stdout, "Record %s marked %s\n", recordID, trackStatus)
	return nil
}

// classifyReply loads the original message and classifies the reply
// against it with the LLM, falling back to keyword heuristics inside the
// classifier when the LLM is unreachable.
func classifyReply(ctx context.Context, cfg config.Config, database *db.DB, recordID uuid.UUID, replyText string) (types.ReplyCategory, error) {
	record, err := database.GetRecord(ctx, recordID)
	if err != nil {
		return "", err
	}

	apiKey := cfg.LLM.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return "", fmt.Errorf("reply classification needs GEMINI_API_KEY or --api-key; pass --category to skip it")
	}

	gemini, err := llm.NewGeminiClient(ctx, apiKey, cfg.LLM.Model)
	if err != nil {
		return "", fmt.Errorf("failed to create LLM client: %w", err)
	}
	client := llm.WithTimeout(gemini, time.Duration(cfg.LLM.TimeoutSeconds)*time.Second)
	defer func() { _ = client.Close() }()

	classification, err := reply.NewClassifier(client, nil).Classify(ctx, record.Message, replyText)
	if err != nil {
		return "", fmt.Errorf("failed to classify reply: %w", err)
	}
	return classification.Category, nil
}
