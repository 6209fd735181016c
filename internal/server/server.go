// Package server provides the HTTP JSON API for running outreach
// workflows and managing outreach records.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/outreach-copilot/internal/crm"
	"github.com/jonathan/outreach-copilot/internal/pipeline"
	"github.com/jonathan/outreach-copilot/internal/types"
)

// WorkflowRunner executes outreach workflows.
type WorkflowRunner interface {
	Run(ctx context.Context, req *pipeline.Request) *pipeline.Result
	RunBatch(ctx context.Context, reqs []*pipeline.Request) []*pipeline.Result
}

// RecordManager applies CRM status transitions and reads records.
type RecordManager interface {
	ListRecords(ctx context.Context, filter crm.RecordFilter) ([]*types.OutreachRecord, error)
	MarkSent(ctx context.Context, recordID uuid.UUID) error
	MarkReplied(ctx context.Context, recordID uuid.UUID, replyContent string, category types.ReplyCategory) error
	MarkNoResponse(ctx context.Context, recordID uuid.UUID) error
	MarkBounced(ctx context.Context, recordID uuid.UUID) error
}

// Config holds server configuration.
type Config struct {
	Addr string
	// PasswordHash is the bcrypt hash of the operator password.
	PasswordHash string
	JWTSecret    string
	TokenTTL     time.Duration
}

// Server is the HTTP API server.
type Server struct {
	httpServer   *http.Server
	runner       WorkflowRunner
	records      RecordManager
	profile      *types.ResumeProfile
	jwtService   *JWTService
	passwordHash []byte
	validator    *validator.Validate
	logger       *zap.Logger
}

// New creates a Server. The resume profile is parsed once at startup and
// shared by every workflow request.
func New(cfg Config, runner WorkflowRunner, records RecordManager, profile *types.ResumeProfile, logger *zap.Logger) (*Server, error) {
	jwtService, err := NewJWTService(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		runner:       runner,
		records:      records,
		profile:      profile,
		jwtService:   jwtService,
		passwordHash: []byte(cfg.PasswordHash),
		validator:    validator.New(),
		logger:       logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("POST /api/workflows", s.requireAuth(s.handleRunWorkflow))
	mux.HandleFunc("POST /api/workflows/batch", s.requireAuth(s.handleRunBatch))
	mux.HandleFunc("GET /api/records", s.requireAuth(s.handleListRecords))
	mux.HandleFunc("POST /api/records/{id}/status", s.requireAuth(s.handleUpdateStatus))
	mux.HandleFunc("GET /api/health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler returns the server's HTTP handler, used directly in tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", zap.String("addr", s.httpServer.Addr))
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

// requireAuth rejects requests without a valid bearer token.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		if _, err := s.jwtService.ValidateToken(token); err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next(w, r)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
