package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/outreach-copilot/internal/config"
	"github.com/jonathan/outreach-copilot/internal/crm"
	"github.com/jonathan/outreach-copilot/internal/db"
	"github.com/jonathan/outreach-copilot/internal/fetch"
	"github.com/jonathan/outreach-copilot/internal/generation"
	"github.com/jonathan/outreach-copilot/internal/guardrails"
	"github.com/jonathan/outreach-copilot/internal/llm"
	"github.com/jonathan/outreach-copilot/internal/logger"
	"github.com/jonathan/outreach-copilot/internal/pipeline"
	"github.com/jonathan/outreach-copilot/internal/resume"
	"github.com/jonathan/outreach-copilot/internal/scraping"
	"github.com/jonathan/outreach-copilot/internal/types"
)

// loadConfig loads the optional config file, validates it, and fills the
// remaining fields from built-in defaults. CLI override application stays
// in each command; this only handles the file and defaults.
func loadConfig(configPath string) (config.Config, error) {
	var cfg config.Config
	if configPath != "" {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return cfg, fmt.Errorf("failed to load config: %w", err)
		}
		if err := loaded.Validate(); err != nil {
			return cfg, err
		}
		cfg = *loaded
	}
	return cfg, nil
}

// resolveSecrets fills the API key and database URL from environment
// variables when the config leaves them empty. Both are required by every
// command that runs workflows or touches records.
func resolveSecrets(cfg *config.Config) error {
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.LLM.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY environment variable or --api-key flag is required")
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable or --db-url flag is required")
	}
	return nil
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	return logger.New(false, cfg.Verbose)
}

// openDatabase connects to Postgres and applies the schema.
func openDatabase(ctx context.Context, cfg config.Config, log *zap.Logger) (*db.DB, error) {
	database, err := db.Connect(ctx, cfg.DatabaseURL, log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.Migrate(ctx); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return database, nil
}

func newCRMManager(database *db.DB, cfg config.Config, log *zap.Logger) *crm.Manager {
	return crm.NewManager(database, crm.Config{
		AutoScheduleFollowUps: true,
		InitialDays:           cfg.FollowUp.InitialDays,
		RescheduleDays:        cfg.FollowUp.RescheduleDays,
		MaxSequence:           cfg.FollowUp.MaxSequence,
	}, log)
}

// agent bundles the wired workflow collaborators for the run and batch
// commands.
type agent struct {
	orchestrator *pipeline.Orchestrator
	database     *db.DB
	client       llm.Client
	log          *zap.Logger
}

func (a *agent) close() {
	_ = a.client.Close()
	a.database.Close()
	_ = a.log.Sync()
}

// buildAgent wires the full workflow stack from configuration: LLM client,
// fetcher, scraper with Postgres page cache, generator, guardrail engine,
// CRM tracker, and the orchestrator on top.
func buildAgent(ctx context.Context, cfg config.Config) (*agent, error) {
	log, err := newLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	gemini, err := llm.NewGeminiClient(ctx, cfg.LLM.APIKey, cfg.LLM.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	// Every LLM call shares the configured deadline; a hung provider call
	// must not stall the whole batch behind the LLM semaphore.
	client := llm.WithTimeout(gemini, time.Duration(cfg.LLM.TimeoutSeconds)*time.Second)

	database, err := openDatabase(ctx, cfg, log)
	if err != nil {
		_ = client.Close()
		return nil, err
	}

	fetcher := fetch.NewFetcher(&fetch.Options{
		Timeout:      time.Duration(cfg.Scraper.TimeoutSeconds) * time.Second,
		UserAgent:    cfg.Scraper.UserAgent,
		RequestDelay: time.Duration(cfg.Scraper.RequestDelaySeconds * float64(time.Second)),
	})

	scraperOpts := []scraping.Option{
		scraping.WithCache(database, time.Duration(cfg.Scraper.CacheTTLDays)*24*time.Hour),
		scraping.WithLogger(log),
	}
	if cfg.Scraper.UseBrowser {
		scraperOpts = append(scraperOpts, scraping.WithBrowser(time.Duration(cfg.Scraper.TimeoutSeconds)*time.Second))
	}
	scraper := scraping.NewScraper(fetcher, scraperOpts...)

	generator := generation.NewGenerator(client, float32(cfg.LLM.Temperature), cfg.LLM.MaxTokens, -1, log)

	engine, err := guardrails.NewEngine(client, cfg.Guardrail, log)
	if err != nil {
		_ = client.Close()
		database.Close()
		return nil, fmt.Errorf("failed to build guardrail engine: %w", err)
	}

	manager := newCRMManager(database, cfg, log)

	orchestrator := pipeline.NewOrchestrator(scraper, generator, engine, manager,
		pipeline.WithCompanyStore(database),
		pipeline.WithBatchLimits(cfg.Batch),
		pipeline.WithMaxRevisions(cfg.Guardrail.MaxRevisions),
		pipeline.WithLogger(log),
	)

	return &agent{
		orchestrator: orchestrator,
		database:     database,
		client:       client,
		log:          log,
	}, nil
}

// parseCampaign validates a --campaign flag value, nil when empty.
func parseCampaign(raw string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid campaign ID %q: %w", raw, err)
	}
	return &id, nil
}

// verifyCampaign checks that a requested campaign exists before any
// records get tagged with its ID.
func verifyCampaign(ctx context.Context, database *db.DB, id *uuid.UUID) error {
	if id == nil {
		return nil
	}
	campaign, err := database.GetCampaign(ctx, *id)
	if err != nil {
		return err
	}
	if campaign == nil {
		return fmt.Errorf("campaign %s not found; create one with the campaign command", id)
	}
	return nil
}

// parseResume parses the resume file named by the config.
func parseResume(cfg config.Config) (*types.ResumeProfile, error) {
	if cfg.ResumePath == "" {
		return nil, fmt.Errorf("--resume is required (via flag or config)")
	}
	profile, err := resume.NewParser().ParseFile(cfg.ResumePath)
	if err != nil {
		return nil, fmt.Errorf("failed to parse resume: %w", err)
	}
	return profile, nil
}

// parseChannel validates a channel flag value, defaulting when empty.
func parseChannel(raw string) (types.MessageChannel, error) {
	if raw == "" {
		return types.ChannelLinkedInMessage, nil
	}
	channel := types.MessageChannel(raw)
	if !channel.Valid() {
		return "", fmt.Errorf("invalid channel %q (linkedin_connection, linkedin_message, email, other)", raw)
	}
	return channel, nil
}

// parseTone validates a tone flag value, defaulting when empty.
func parseTone(raw string) (types.MessageTone, error) {
	if raw == "" {
		return types.ToneProfessional, nil
	}
	tone := types.MessageTone(raw)
	if !tone.Valid() {
		return "", fmt.Errorf("invalid tone %q (professional, friendly, enthusiastic, direct)", raw)
	}
	return tone, nil
}
