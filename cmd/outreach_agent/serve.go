package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/outreach-copilot/internal/config"
	"github.com/jonathan/outreach-copilot/internal/crm"
	"github.com/jonathan/outreach-copilot/internal/db"
	"github.com/jonathan/outreach-copilot/internal/server"
	"github.com/jonathan/outreach-copilot/internal/types"
)

var serveCommand = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start an HTTP server that exposes REST endpoints for running outreach workflows and managing records.

The operator password is read from OUTREACH_PASSWORD and exchanged for a JWT at /api/login. The resume is parsed once at startup and shared by every workflow request.`,
	RunE: runServeCmd,
}

var (
	serveConfigPath  string
	serveAddr        string
	serveResumePath  string
	serveAPIKey      string
	serveDatabaseURL string
	serveVerbose     bool
)

func init() {
	serveCommand.Flags().StringVar(&serveConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")

	serveCommand.Flags().StringVar(&serveAddr, "addr", "", "Listen address, e.g. :8080")
	serveCommand.Flags().StringVar(&serveResumePath, "resume", "", "Path to resume text file")
	serveCommand.Flags().BoolVarP(&serveVerbose, "verbose", "v", false, "Print detailed debug information")

	serveCommand.Flags().StringVar(&serveAPIKey, "api-key", "", "Gemini API Key (optional, defaults to GEMINI_API_KEY env var)")
	serveCommand.Flags().StringVar(&serveDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")

	rootCmd.AddCommand(serveCommand)
}

// recordManager combines the CRM transition logic with direct record
// listing from the store.
type recordManager struct {
	*crm.Manager
	store *db.DB
}

func (r recordManager) ListRecords(ctx context.Context, filter crm.RecordFilter) ([]*types.OutreachRecord, error) {
	return r.store.ListRecords(ctx, filter)
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := loadConfig(serveConfigPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("addr") {
		cfg.Server.Addr = serveAddr
	}
	if cmd.Flags().Changed("resume") {
		cfg.ResumePath = serveResumePath
	}
	if cmd.Flags().Changed("api-key") {
		cfg.LLM.APIKey = serveAPIKey
	}
	if cmd.Flags().Changed("db-url") {
		cfg.DatabaseURL = serveDatabaseURL
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = serveVerbose
	}
	cfg = cfg.MergeWithDefaults(config.Defaults())

	if err := resolveSecrets(&cfg); err != nil {
		return err
	}

	password := os.Getenv("OUTREACH_PASSWORD")
	if password == "" {
		return fmt.Errorf("OUTREACH_PASSWORD environment variable is required")
	}
	passwordHash, err := server.HashPassword(password)
	if err != nil {
		return err
	}

	jwtSecret := cfg.Server.JWTSecret
	if jwtSecret == "" {
		jwtSecret = os.Getenv("JWT_SECRET")
	}
	if jwtSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable or server.jwt_secret config is required")
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

	srv, err := server.New(server.Config{
		Addr:         cfg.Server.Addr,
		PasswordHash: passwordHash,
		JWTSecret:    jwtSecret,
		TokenTTL:     time.Duration(cfg.Server.TokenTTLMinutes) * time.Minute,
	}, a.orchestrator, recordManager{
		Manager: newCRMManager(a.database, cfg, a.log),
		store:   a.database,
	}, profile, a.log)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	// SIGINT/SIGTERM trigger graceful shutdown.
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return srv.Start(ctx)
}
