// Package pipeline orchestrates the outreach workflow: scrape a company,
// score contacts and jobs against the target role, generate message
// variants, gate them through guardrails with bounded revision retries,
// and persist the winner as a tracked draft.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/jonathan/outreach-copilot/internal/config"
	"github.com/jonathan/outreach-copilot/internal/generation"
	"github.com/jonathan/outreach-copilot/internal/relevance"
	"github.com/jonathan/outreach-copilot/internal/scraping"
	"github.com/jonathan/outreach-copilot/internal/types"
)

// Stage identifies a workflow step.
type Stage string

// Workflow stages, in execution order.
const (
	StageScrape    Stage = "scrape"
	StageExtract   Stage = "extract"
	StageScore     Stage = "score"
	StageGenerate  Stage = "generate"
	StageGuardrail Stage = "guardrail"
	StageSelect    Stage = "select"
	StagePersist   Stage = "persist"
)

// Status is the terminal outcome of one workflow run.
type Status string

// Workflow outcomes.
const (
	// StatusTracked means an approved variant was persisted as a draft.
	StatusTracked Status = "tracked"
	// StatusNeedsRevision means the run was cancelled mid-revision with a
	// reviewable variant in hand.
	StatusNeedsRevision Status = "needs_revision"
	// StatusRejected means the quality gate rejected the message, either
	// outright or after exhausting revision retries.
	StatusRejected Status = "rejected"
	// StatusFailed means a stage errored.
	StatusFailed Status = "failed"
	// StatusCancelled means the run was cancelled before producing a variant.
	StatusCancelled Status = "cancelled"
)

// Request describes one company to run the workflow against.
type Request struct {
	Profile    *types.ResumeProfile
	TargetRole string
	CompanyURL string
	Channel    types.MessageChannel
	Tone       types.MessageTone
	CampaignID *uuid.UUID
	// NumVariants defaults to the generator's default when zero.
	NumVariants int
	// SkipGuardrails marks every variant approved without evaluation.
	SkipGuardrails bool
}

// Result is the outcome of one workflow run.
type Result struct {
	CompanyURL  string                 `json:"company_url"`
	CompanyName string                 `json:"company_name,omitempty"`
	Status      Status                 `json:"status"`
	Stage       Stage                  `json:"stage"`
	Variant     *types.MessageVariant  `json:"variant,omitempty"`
	Guardrail   *types.GuardrailResult `json:"guardrail,omitempty"`
	Contact     *types.Contact         `json:"contact,omitempty"`
	Jobs        []*types.JobListing    `json:"jobs,omitempty"`
	RecordID    uuid.UUID              `json:"record_id,omitempty"`
	// Revisions counts regeneration rounds actually performed.
	Revisions    int           `json:"revisions"`
	PagesScraped int           `json:"pages_scraped"`
	Reason       string        `json:"reason,omitempty"`
	Elapsed      time.Duration `json:"elapsed"`
}

// Scraper discovers a company's pages and extracts contacts and jobs.
type Scraper interface {
	ScrapeCompany(ctx context.Context, companyURL string, pageTypes ...types.PageType) (*scraping.Snapshot, error)
}

// Generator produces candidate message variants.
type Generator interface {
	Generate(ctx context.Context, req *generation.Request) ([]*types.MessageVariant, error)
}

// Evaluator scores one message against the quality gate.
type Evaluator interface {
	Evaluate(ctx context.Context, message string, company *types.Company, tone types.MessageTone, channel types.MessageChannel) (*types.GuardrailResult, error)
}

// Tracker persists the selected variant as a draft outreach record.
type Tracker interface {
	Track(ctx context.Context, record *types.OutreachRecord) error
}

// CompanyStore persists scraped companies with their contacts and jobs.
// Optional; runs work without one.
type CompanyStore interface {
	UpsertCompany(ctx context.Context, company *types.Company) error
	ReplaceContacts(ctx context.Context, companyID uuid.UUID, contacts []*types.Contact) error
	ReplaceJobListings(ctx context.Context, companyID uuid.UUID, jobs []*types.JobListing) error
}

// Orchestrator drives the workflow stages. Safe for concurrent use; the
// scrape and LLM semaphores cap in-flight external calls across all
// concurrent runs.
type Orchestrator struct {
	scraper      Scraper
	generator    Generator
	evaluator    Evaluator
	tracker      Tracker
	companies    CompanyStore
	scorer       *relevance.Scorer
	maxRevisions int
	workers      int
	scrapeSem    *semaphore.Weighted
	llmSem       *semaphore.Weighted
	logger       *zap.Logger
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithCompanyStore persists scraped companies, contacts, and jobs.
func WithCompanyStore(store CompanyStore) OrchestratorOption {
	return func(o *Orchestrator) { o.companies = store }
}

// WithScorer overrides the relevance scorer.
func WithScorer(scorer *relevance.Scorer) OrchestratorOption {
	return func(o *Orchestrator) { o.scorer = scorer }
}

// WithMaxRevisions bounds regeneration rounds after needs_revision.
func WithMaxRevisions(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		if n >= 0 {
			o.maxRevisions = n
		}
	}
}

// WithBatchLimits applies worker and shared-resource ceilings.
func WithBatchLimits(cfg config.BatchConfig) OrchestratorOption {
	return func(o *Orchestrator) {
		if cfg.Workers > 0 {
			o.workers = cfg.Workers
		}
		if cfg.ScrapeSlots > 0 {
			o.scrapeSem = semaphore.NewWeighted(int64(cfg.ScrapeSlots))
		}
		if cfg.LLMSlots > 0 {
			o.llmSem = semaphore.NewWeighted(int64(cfg.LLMSlots))
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) OrchestratorOption {
	return func(o *Orchestrator) { o.logger = logger }
}

// DefaultMaxRevisions bounds regeneration after a needs_revision decision.
const DefaultMaxRevisions = 2

// NewOrchestrator creates an Orchestrator over its collaborators.
func NewOrchestrator(scraper Scraper, generator Generator, evaluator Evaluator, tracker Tracker, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		scraper:      scraper,
		generator:    generator,
		evaluator:    evaluator,
		tracker:      tracker,
		scorer:       &relevance.Scorer{},
		maxRevisions: DefaultMaxRevisions,
		workers:      2,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// runState carries intermediate results between stages of one run.
type runState struct {
	req      *Request
	result   *Result
	snapshot *scraping.Snapshot
	contact  *types.Contact
	jobs     []*types.JobListing
	variants []*types.MessageVariant
	selected *types.MessageVariant
	feedback []string
}

// Run executes the workflow for one company. It always returns a Result;
// stage errors surface as Status failed with a reason, never as a panic
// or a bare error.
func (o *Orchestrator) Run(ctx context.Context, req *Request) *Result {
	start := time.Now()
	result := &Result{CompanyURL: req.CompanyURL, Status: StatusFailed, Stage: StageScrape}
	defer func() { result.Elapsed = time.Since(start) }()

	if err := validateRequest(req); err != nil {
		result.Reason = err.Error()
		return result
	}

	state := &runState{req: req, result: result}

	stages := []struct {
		stage Stage
		fn    func(context.Context, *runState) error
	}{
		{StageScrape, o.scrape},
		{StageExtract, o.extract},
		{StageScore, o.score},
	}
	for _, s := range stages {
		result.Stage = s.stage
		if ctx.Err() != nil {
			result.Status = StatusCancelled
			result.Reason = ctx.Err().Error()
			return result
		}
		if err := s.fn(ctx, state); err != nil {
			result.Reason = err.Error()
			o.logger.Warn("workflow stage failed",
				zap.String("company_url", req.CompanyURL),
				zap.String("stage", string(s.stage)),
				zap.Error(err))
			return result
		}
	}

	for attempt := 0; ; attempt++ {
		result.Stage = StageGenerate
		if err := o.generate(ctx, state); err != nil {
			result.Reason = err.Error()
			return result
		}

		result.Stage = StageGuardrail
		if err := o.guardrail(ctx, state); err != nil {
			result.Reason = err.Error()
			return result
		}

		result.Stage = StageSelect
		o.selectVariant(state)

		decision := result.Guardrail.Decision
		if decision == types.DecisionApproved {
			break
		}
		if decision == types.DecisionRejected {
			result.Status = StatusRejected
			result.Reason = "message rejected by quality gate"
			return result
		}

		// needs_revision: regenerate with feedback while attempts remain.
		if attempt >= o.maxRevisions {
			result.Status = StatusRejected
			result.Reason = fmt.Sprintf("quality gate still unsatisfied after %d revisions", o.maxRevisions)
			return result
		}
		if ctx.Err() != nil {
			// A reviewable variant exists; don't discard it as cancelled.
			result.Status = StatusNeedsRevision
			result.Reason = "cancelled mid-revision"
			return result
		}
		state.feedback = result.Guardrail.Feedback
		result.Revisions++
		o.logger.Info("regenerating after quality gate feedback",
			zap.String("company", result.CompanyName),
			zap.Int("revision", result.Revisions),
			zap.Strings("feedback", state.feedback))
	}

	result.Stage = StagePersist
	if err := o.persist(ctx, state); err != nil {
		// The approved variant stays in the result for manual recovery.
		result.Status = StatusFailed
		result.Reason = fmt.Sprintf("persistence failed: %v", err)
		return result
	}

	result.Status = StatusTracked
	o.logger.Info("workflow complete",
		zap.String("company", result.CompanyName),
		zap.String("record_id", result.RecordID.String()),
		zap.Float64("guardrail_score", result.Guardrail.OverallScore),
		zap.Int("revisions", result.Revisions))
	return result
}

func validateRequest(req *Request) error {
	if req.Profile == nil {
		return fmt.Errorf("resume profile is required")
	}
	if req.CompanyURL == "" {
		return fmt.Errorf("company URL is required")
	}
	if req.TargetRole == "" {
		return fmt.Errorf("target role is required")
	}
	if req.Channel == "" {
		req.Channel = types.ChannelLinkedInMessage
	}
	if !req.Channel.Valid() {
		return fmt.Errorf("unknown message channel %q", req.Channel)
	}
	if req.Tone == "" {
		req.Tone = types.ToneProfessional
	}
	if !req.Tone.Valid() {
		return fmt.Errorf("unknown message tone %q", req.Tone)
	}
	return nil
}

func (o *Orchestrator) scrape(ctx context.Context, state *runState) error {
	release, err := acquire(ctx, o.scrapeSem)
	if err != nil {
		return err
	}
	defer release()

	snapshot, err := o.scraper.ScrapeCompany(ctx, state.req.CompanyURL)
	if err != nil {
		return fmt.Errorf("company scraping failed: %w", err)
	}
	state.snapshot = snapshot
	state.result.CompanyName = snapshot.Company.Name
	state.result.PagesScraped = len(snapshot.Company.Pages)
	return nil
}

func (o *Orchestrator) extract(_ context.Context, state *runState) error {
	state.contact = nil
	state.jobs = state.snapshot.Jobs
	// Missing contacts or jobs are not errors; the message generalizes.
	return nil
}

func (o *Orchestrator) score(_ context.Context, state *runState) error {
	ranked := o.scorer.RankContacts(state.snapshot.Contacts, state.req.TargetRole)
	if len(ranked) > 0 {
		state.contact = ranked[0]
	}
	state.jobs = o.scorer.RankJobs(state.snapshot.Jobs, state.req.TargetRole)
	state.result.Contact = state.contact
	state.result.Jobs = state.jobs
	return nil
}

func (o *Orchestrator) generate(ctx context.Context, state *runState) error {
	release, err := acquire(ctx, o.llmSem)
	if err != nil {
		return err
	}
	defer release()

	variants, err := o.generator.Generate(ctx, &generation.Request{
		Profile:     state.req.Profile,
		TargetRole:  state.req.TargetRole,
		Company:     state.snapshot.Company,
		Contact:     state.contact,
		Jobs:        state.jobs,
		Channel:     state.req.Channel,
		Tone:        state.req.Tone,
		NumVariants: state.req.NumVariants,
		Feedback:    state.feedback,
	})
	if err != nil {
		return fmt.Errorf("message generation failed: %w", err)
	}
	state.variants = variants
	return nil
}

func (o *Orchestrator) guardrail(ctx context.Context, state *runState) error {
	if state.req.SkipGuardrails {
		for _, v := range state.variants {
			v.Guardrail = &types.GuardrailResult{
				Decision:     types.DecisionApproved,
				OverallScore: 1,
			}
		}
		return nil
	}

	release, err := acquire(ctx, o.llmSem)
	if err != nil {
		return err
	}
	defer release()

	for _, v := range state.variants {
		gr, err := o.evaluator.Evaluate(ctx, v.Message, state.snapshot.Company, state.req.Tone, state.req.Channel)
		if err != nil {
			return fmt.Errorf("guardrail evaluation failed: %w", err)
		}
		v.Guardrail = gr
	}
	return nil
}

// selectVariant picks the highest-scoring variant; ties go to the shorter
// message.
func (o *Orchestrator) selectVariant(state *runState) {
	var best *types.MessageVariant
	for _, v := range state.variants {
		if best == nil {
			best = v
			continue
		}
		switch {
		case v.Guardrail.OverallScore > best.Guardrail.OverallScore:
			best = v
		case v.Guardrail.OverallScore == best.Guardrail.OverallScore && v.WordCount < best.WordCount:
			best = v
		}
	}
	state.selected = best
	state.result.Variant = best
	state.result.Guardrail = best.Guardrail
}

func (o *Orchestrator) persist(ctx context.Context, state *runState) error {
	company := state.snapshot.Company

	if o.companies != nil {
		if err := o.companies.UpsertCompany(ctx, company); err != nil {
			return err
		}
		if err := o.companies.ReplaceContacts(ctx, company.ID, state.snapshot.Contacts); err != nil {
			return err
		}
		if err := o.companies.ReplaceJobListings(ctx, company.ID, state.jobs); err != nil {
			return err
		}
	}

	record := &types.OutreachRecord{
		CompanyID:      company.ID,
		CampaignID:     state.req.CampaignID,
		TargetRole:     state.req.TargetRole,
		Channel:        state.req.Channel,
		Tone:           state.req.Tone,
		Message:        state.selected.Message,
		Subject:        state.selected.Subject,
		Citations:      state.selected.Citations,
		WordCount:      state.selected.WordCount,
		GuardrailScore: state.selected.Guardrail.OverallScore,
	}
	if state.contact != nil {
		record.ContactID = &state.contact.ID
	}

	if err := o.tracker.Track(ctx, record); err != nil {
		return err
	}
	state.result.RecordID = record.ID
	return nil
}

func acquire(ctx context.Context, sem *semaphore.Weighted) (func(), error) {
	if sem == nil {
		return func() {}, nil
	}
	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return func() { sem.Release(1) }, nil
}
