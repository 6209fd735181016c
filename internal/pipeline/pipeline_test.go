package pipeline

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/outreach-copilot/internal/config"
	"github.com/jonathan/outreach-copilot/internal/generation"
	"github.com/jonathan/outreach-copilot/internal/scraping"
	"github.com/jonathan/outreach-copilot/internal/types"
)

const approvedMessage = "Hi Dana, your about page mentions the orbital logistics platform [source: about] " +
	"and the open Backend Engineer role [source: careers] lines up with my Go and Postgres background. " +
	"Would you be open to a short chat this week?"

const shortApprovedMessage = "Hi Dana, loved the mission on your about page [source: about] and the " +
	"Backend Engineer opening [source: careers]. Open to a quick chat?"

func newSnapshot() *scraping.Snapshot {
	company := &types.Company{
		ID:     uuid.New(),
		Name:   "Orbitworks",
		URL:    "https://orbitworks.io",
		Domain: "orbitworks.io",
		Pages: map[types.PageType]*types.Page{
			types.PageTypeAbout: {
				Type: types.PageTypeAbout,
				URL:  "https://orbitworks.io/about",
				Text: "Orbitworks builds an orbital logistics platform for small satellite operators.",
			},
			types.PageTypeCareers: {
				Type: types.PageTypeCareers,
				URL:  "https://orbitworks.io/careers",
				Text: "We are hiring across engineering.",
			},
		},
		ScrapedAt: time.Now().UTC(),
	}
	return &scraping.Snapshot{
		Company: company,
		Contacts: []*types.Contact{
			{CompanyID: company.ID, Name: "Alex Mason", Title: "Office Manager", SourcePage: types.PageTypeTeam},
			{CompanyID: company.ID, Name: "Dana Rivera", Title: "Head of Talent", SourcePage: types.PageTypeTeam},
		},
		Jobs: []*types.JobListing{
			{CompanyID: company.ID, Title: "Backend Engineer"},
			{CompanyID: company.ID, Title: "Accountant"},
		},
	}
}

type fakeScraper struct {
	mu    sync.Mutex
	calls int
	err   error
	hook  func()
}

func (f *fakeScraper) ScrapeCompany(_ context.Context, _ string, _ ...types.PageType) (*scraping.Snapshot, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.hook != nil {
		f.hook()
	}
	if f.err != nil {
		return nil, f.err
	}
	return newSnapshot(), nil
}

type fakeGenerator struct {
	mu       sync.Mutex
	calls    int
	err      error
	messages []string
	feedback [][]string
}

func (f *fakeGenerator) Generate(_ context.Context, req *generation.Request) ([]*types.MessageVariant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.feedback = append(f.feedback, req.Feedback)
	if f.err != nil {
		return nil, f.err
	}

	// Fresh variants every call; guardrail results are attached in place.
	var variants []*types.MessageVariant
	for _, msg := range f.messages {
		v := &types.MessageVariant{Message: msg, Channel: req.Channel, Tone: req.Tone}
		v.Derive()
		variants = append(variants, v)
	}
	return variants, nil
}

type fakeEvaluator struct {
	mu      sync.Mutex
	calls   int
	err     error
	scores  map[string]float64
	verdict types.GuardrailDecision
	hook    func()
}

func (f *fakeEvaluator) Evaluate(_ context.Context, message string, _ *types.Company, _ types.MessageTone, _ types.MessageChannel) (*types.GuardrailResult, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.hook != nil {
		f.hook()
	}
	if f.err != nil {
		return nil, f.err
	}

	score := 0.95
	if s, ok := f.scores[message]; ok {
		score = s
	}
	decision := f.verdict
	if decision == "" {
		decision = types.DecisionApproved
	}
	result := &types.GuardrailResult{
		Decision:     decision,
		OverallScore: score,
		PassedChecks: 5,
		TotalChecks:  5,
	}
	if decision != types.DecisionApproved {
		result.Feedback = []string{"only 0 recognized citations found, minimum 2 required"}
	}
	return result, nil
}

type fakeTracker struct {
	mu      sync.Mutex
	records []*types.OutreachRecord
	err     error
}

func (f *fakeTracker) Track(_ context.Context, record *types.OutreachRecord) error {
	if f.err != nil {
		return f.err
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	record.Status = types.StatusDraft
	f.mu.Lock()
	f.records = append(f.records, record)
	f.mu.Unlock()
	return nil
}

func testRequest() *Request {
	return &Request{
		Profile:    &types.ResumeProfile{Name: "Jane Doe", Skills: []string{"Go", "PostgreSQL"}},
		TargetRole: "Backend Engineer",
		CompanyURL: "https://orbitworks.io",
		Channel:    types.ChannelLinkedInMessage,
		Tone:       types.ToneProfessional,
	}
}

func TestRunTracked(t *testing.T) {
	scraper := &fakeScraper{}
	generator := &fakeGenerator{messages: []string{approvedMessage}}
	evaluator := &fakeEvaluator{}
	tracker := &fakeTracker{}
	o := NewOrchestrator(scraper, generator, evaluator, tracker)

	campaignID := uuid.New()
	req := testRequest()
	req.CampaignID = &campaignID
	result := o.Run(context.Background(), req)

	assert.Equal(t, StatusTracked, result.Status)
	assert.Equal(t, StagePersist, result.Stage)
	assert.Equal(t, "Orbitworks", result.CompanyName)
	assert.Equal(t, 2, result.PagesScraped)
	assert.Equal(t, 0, result.Revisions)
	assert.NotEqual(t, uuid.Nil, result.RecordID)

	// Scoring picked the talent contact and dropped the unrelated job.
	require.NotNil(t, result.Contact)
	assert.Equal(t, "Dana Rivera", result.Contact.Name)
	require.Len(t, result.Jobs, 1)
	assert.Equal(t, "Backend Engineer", result.Jobs[0].Title)

	require.Len(t, tracker.records, 1)
	record := tracker.records[0]
	assert.Equal(t, types.StatusDraft, record.Status)
	assert.Equal(t, approvedMessage, record.Message)
	assert.InDelta(t, 0.95, record.GuardrailScore, 1e-9)
	require.NotNil(t, record.ContactID)
	assert.Equal(t, result.Contact.ID, *record.ContactID)
	assert.GreaterOrEqual(t, len(record.Citations), 2)
	require.NotNil(t, record.CampaignID)
	assert.Equal(t, campaignID, *record.CampaignID)
}

func TestRunRetryBound(t *testing.T) {
	scraper := &fakeScraper{}
	generator := &fakeGenerator{messages: []string{approvedMessage}}
	evaluator := &fakeEvaluator{verdict: types.DecisionNeedsRevision}
	tracker := &fakeTracker{}
	o := NewOrchestrator(scraper, generator, evaluator, tracker)

	result := o.Run(context.Background(), testRequest())

	assert.Equal(t, StatusRejected, result.Status)
	// Initial attempt plus exactly DefaultMaxRevisions regenerations.
	assert.Equal(t, 1+DefaultMaxRevisions, generator.calls)
	assert.Equal(t, DefaultMaxRevisions, result.Revisions)
	assert.Empty(t, tracker.records)

	// Regenerations carry the failed-check feedback; the first attempt has none.
	require.Len(t, generator.feedback, 3)
	assert.Empty(t, generator.feedback[0])
	assert.Contains(t, generator.feedback[1][0], "citations")
	assert.Contains(t, generator.feedback[2][0], "citations")
}

func TestRunRejectedIsTerminal(t *testing.T) {
	scraper := &fakeScraper{}
	generator := &fakeGenerator{messages: []string{approvedMessage}}
	evaluator := &fakeEvaluator{verdict: types.DecisionRejected}
	tracker := &fakeTracker{}
	o := NewOrchestrator(scraper, generator, evaluator, tracker)

	result := o.Run(context.Background(), testRequest())

	assert.Equal(t, StatusRejected, result.Status)
	assert.Equal(t, 1, generator.calls)
	assert.Empty(t, tracker.records)
}

func TestSelection(t *testing.T) {
	t.Run("highest score wins", func(t *testing.T) {
		generator := &fakeGenerator{messages: []string{approvedMessage, shortApprovedMessage}}
		evaluator := &fakeEvaluator{scores: map[string]float64{
			approvedMessage:      0.95,
			shortApprovedMessage: 0.91,
		}}
		tracker := &fakeTracker{}
		o := NewOrchestrator(&fakeScraper{}, generator, evaluator, tracker)

		result := o.Run(context.Background(), testRequest())
		require.Equal(t, StatusTracked, result.Status)
		assert.Equal(t, approvedMessage, result.Variant.Message)
	})

	t.Run("tie goes to the shorter message", func(t *testing.T) {
		generator := &fakeGenerator{messages: []string{approvedMessage, shortApprovedMessage}}
		evaluator := &fakeEvaluator{}
		tracker := &fakeTracker{}
		o := NewOrchestrator(&fakeScraper{}, generator, evaluator, tracker)

		result := o.Run(context.Background(), testRequest())
		require.Equal(t, StatusTracked, result.Status)
		assert.Equal(t, shortApprovedMessage, result.Variant.Message)
	})
}

func TestRunSkipGuardrails(t *testing.T) {
	generator := &fakeGenerator{messages: []string{approvedMessage}}
	evaluator := &fakeEvaluator{}
	tracker := &fakeTracker{}
	o := NewOrchestrator(&fakeScraper{}, generator, evaluator, tracker)

	req := testRequest()
	req.SkipGuardrails = true
	result := o.Run(context.Background(), req)

	assert.Equal(t, StatusTracked, result.Status)
	assert.Equal(t, 0, evaluator.calls)
	require.NotNil(t, result.Guardrail)
	assert.Equal(t, types.DecisionApproved, result.Guardrail.Decision)
}

func TestRunPersistenceFailure(t *testing.T) {
	generator := &fakeGenerator{messages: []string{approvedMessage}}
	tracker := &fakeTracker{err: fmt.Errorf("connection refused")}
	o := NewOrchestrator(&fakeScraper{}, generator, &fakeEvaluator{}, tracker)

	result := o.Run(context.Background(), testRequest())

	assert.Equal(t, StatusFailed, result.Status)
	assert.Equal(t, StagePersist, result.Stage)
	assert.Contains(t, result.Reason, "persistence failed")
	// The approved variant survives for manual recovery.
	require.NotNil(t, result.Variant)
	assert.Equal(t, approvedMessage, result.Variant.Message)
}

func TestRunScrapeFailure(t *testing.T) {
	scraper := &fakeScraper{err: fmt.Errorf("no pages found")}
	o := NewOrchestrator(scraper, &fakeGenerator{}, &fakeEvaluator{}, &fakeTracker{})

	result := o.Run(context.Background(), testRequest())

	assert.Equal(t, StatusFailed, result.Status)
	assert.Equal(t, StageScrape, result.Stage)
	assert.Contains(t, result.Reason, "scraping failed")
}

func TestRunValidation(t *testing.T) {
	o := NewOrchestrator(&fakeScraper{}, &fakeGenerator{}, &fakeEvaluator{}, &fakeTracker{})

	result := o.Run(context.Background(), &Request{TargetRole: "Backend Engineer", CompanyURL: "https://x.io"})
	assert.Equal(t, StatusFailed, result.Status)
	assert.Contains(t, result.Reason, "resume profile")

	result = o.Run(context.Background(), &Request{
		Profile:    &types.ResumeProfile{},
		TargetRole: "Backend Engineer",
		CompanyURL: "https://x.io",
		Channel:    "carrier_pigeon",
	})
	assert.Equal(t, StatusFailed, result.Status)
	assert.Contains(t, result.Reason, "channel")
}

func TestRunCancelledMidRevision(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	generator := &fakeGenerator{messages: []string{approvedMessage}}
	evaluator := &fakeEvaluator{verdict: types.DecisionNeedsRevision, hook: cancel}
	o := NewOrchestrator(&fakeScraper{}, generator, evaluator, &fakeTracker{})

	result := o.Run(ctx, testRequest())

	// A reviewable variant exists, so the run surfaces it instead of
	// reporting a bare cancellation.
	assert.Equal(t, StatusNeedsRevision, result.Status)
	assert.Equal(t, 1, generator.calls)
	require.NotNil(t, result.Variant)
	assert.Equal(t, types.DecisionNeedsRevision, result.Guardrail.Decision)
}

func TestRunBatch(t *testing.T) {
	generator := &fakeGenerator{messages: []string{approvedMessage}}
	tracker := &fakeTracker{}
	o := NewOrchestrator(&fakeScraper{}, generator, &fakeEvaluator{}, tracker)

	reqs := []*Request{testRequest(), testRequest(), testRequest()}
	reqs[0].CompanyURL = "https://a.io"
	reqs[1].CompanyURL = "https://b.io"
	reqs[2].CompanyURL = "https://c.io"

	results := o.RunBatch(context.Background(), reqs)

	require.Len(t, results, 3)
	assert.Equal(t, "https://a.io", results[0].CompanyURL)
	assert.Equal(t, "https://b.io", results[1].CompanyURL)
	assert.Equal(t, "https://c.io", results[2].CompanyURL)
	for _, result := range results {
		assert.Equal(t, StatusTracked, result.Status)
	}
	assert.Len(t, tracker.records, 3)
}

func TestRunBatchCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	scraper := &fakeScraper{hook: cancel, err: context.Canceled}
	o := NewOrchestrator(scraper, &fakeGenerator{}, &fakeEvaluator{}, &fakeTracker{},
		WithBatchLimits(config.BatchConfig{Workers: 1}))

	reqs := []*Request{testRequest(), testRequest(), testRequest()}
	results := o.RunBatch(ctx, reqs)

	require.Len(t, results, 3)
	assert.Equal(t, StatusFailed, results[0].Status)
	assert.Equal(t, StatusCancelled, results[1].Status)
	assert.Equal(t, StatusCancelled, results[2].Status)
	// Only the first request ever reached the scraper.
	assert.Equal(t, 1, scraper.calls)
}

func TestFailBatch(t *testing.T) {
	reqs := []*Request{testRequest(), testRequest()}
	results := FailBatch(reqs, "resume parsing failed: file not found")

	require.Len(t, results, 2)
	for _, result := range results {
		assert.Equal(t, StatusFailed, result.Status)
		assert.Contains(t, result.Reason, "resume parsing failed")
	}
}
