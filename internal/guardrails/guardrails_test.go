package guardrails

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/outreach-copilot/internal/config"
	"github.com/jonathan/outreach-copilot/internal/llm"
	"github.com/jonathan/outreach-copilot/internal/types"
)

type fakeLLM struct {
	responses []any
	calls     int
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, temperature float32, maxTokens int) (string, error) {
	return f.GenerateJSON(ctx, prompt, temperature, maxTokens)
}

func (f *fakeLLM) GenerateJSON(ctx context.Context, prompt string, temperature float32, maxTokens int) (string, error) {
	if f.calls >= len(f.responses) {
		return "", &llm.Error{Kind: llm.KindUnavailable, Message: "no more queued responses"}
	}
	resp := f.responses[f.calls]
	f.calls++
	if err, ok := resp.(error); ok {
		return "", err
	}
	return resp.(string), nil
}

func (f *fakeLLM) Close() error { return nil }

const factsAllVerified = `{"all_claims_verified": true, "verified_claims": ["mission claim", "role claim"], "unverified_claims": []}`
const toneGood = `{"tone_match": true, "detected_tone": "professional", "appropriateness_score": 9, "red_flags": []}`

func testCompany() *types.Company {
	return &types.Company{
		Name: "Orbitworks",
		Pages: map[types.PageType]*types.Page{
			types.PageTypeAbout: {Type: types.PageTypeAbout, Text: "Orbitworks deorbits space debris with robotic tugs."},
			types.PageTypeNews:  {Type: types.PageTypeNews, Text: "Orbitworks raised a Series B in June."},
		},
	}
}

const goodMessage = "Your mission to deorbit space debris with robotic tugs [source: about] stood out, and the Series B announcement [source: news] suggests the team is scaling. My guidance software background maps onto that. Open to a short call?"

func newTestEngine(t *testing.T, client llm.Client, mutate func(*config.GuardrailConfig)) *Engine {
	t.Helper()
	cfg := config.Defaults().Guardrail
	if mutate != nil {
		mutate(&cfg)
	}
	engine, err := NewEngine(client, cfg, nil)
	require.NoError(t, err)
	return engine
}

func TestNewEngine(t *testing.T) {
	t.Run("bad weights rejected", func(t *testing.T) {
		cfg := config.Defaults().Guardrail
		cfg.Weights.Fact = 0.9
		_, err := NewEngine(&fakeLLM{}, cfg, nil)
		assert.Error(t, err)
	})

	t.Run("bad thresholds rejected", func(t *testing.T) {
		cfg := config.Defaults().Guardrail
		cfg.ApproveThreshold = 0.5
		cfg.ReviseThreshold = 0.8
		_, err := NewEngine(&fakeLLM{}, cfg, nil)
		assert.Error(t, err)
	})
}

func TestEvaluateApproved(t *testing.T) {
	client := &fakeLLM{responses: []any{factsAllVerified, toneGood}}
	engine := newTestEngine(t, client, nil)

	result, err := engine.Evaluate(context.Background(), goodMessage, testCompany(), types.ToneProfessional, types.ChannelLinkedInMessage)
	require.NoError(t, err)

	assert.Equal(t, types.DecisionApproved, result.Decision)
	assert.InDelta(t, 0.985, result.OverallScore, 0.02)
	assert.Equal(t, 5, result.TotalChecks)
	assert.Equal(t, 5, result.PassedChecks)
	assert.Empty(t, result.Feedback)
}

func TestEvaluateCitationHardGate(t *testing.T) {
	// Weights chosen so everything else alone clears the approve
	// threshold; the citation gate must still hold the message back.
	client := &fakeLLM{responses: []any{factsAllVerified, toneGood}}
	engine := newTestEngine(t, client, func(cfg *config.GuardrailConfig) {
		cfg.Weights = config.GuardrailWeights{Length: 0.25, Citation: 0.05, Generic: 0.25, Fact: 0.25, Tone: 0.20}
	})

	oneCitation := "Your mission to deorbit space debris with robotic tugs [source: about] stood out. My guidance software background maps onto that mission. Open to a short call this week?"
	result, err := engine.Evaluate(context.Background(), oneCitation, testCompany(), types.ToneProfessional, types.ChannelLinkedInMessage)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, result.OverallScore, 0.9)
	assert.Equal(t, types.DecisionNeedsRevision, result.Decision)
	assert.True(t, result.CheckFailed(types.CheckCitation))
}

func TestEvaluateUnknownSourceNotCounted(t *testing.T) {
	client := &fakeLLM{responses: []any{factsAllVerified, toneGood}}
	engine := newTestEngine(t, client, nil)

	// Two markers, but one names a page that was never scraped.
	message := "The mission [source: about] is compelling, as is the work culture [source: glassdoor]. My background in guidance software fits the team's direction. Worth a quick chat?"
	result, err := engine.Evaluate(context.Background(), message, testCompany(), types.ToneProfessional, types.ChannelLinkedInMessage)
	require.NoError(t, err)

	assert.True(t, result.CheckFailed(types.CheckCitation))
	assert.NotEqual(t, types.DecisionApproved, result.Decision)
}

func TestEvaluateRejected(t *testing.T) {
	factsBad := `{"all_claims_verified": false, "verified_claims": [], "unverified_claims": [{"claim": "we won an award", "reason": "not in sources"}, {"claim": "200 employees", "reason": "not in sources"}]}`
	toneBad := `{"tone_match": false, "detected_tone": "desperate", "appropriateness_score": 3, "red_flags": ["begging tone"]}`
	client := &fakeLLM{responses: []any{factsBad, toneBad}}
	engine := newTestEngine(t, client, nil)

	message := "I am writing to express my interest in your company. We won an award and have 200 employees. I would be a great fit. Thank you for your time and consideration."
	result, err := engine.Evaluate(context.Background(), message, testCompany(), types.ToneProfessional, types.ChannelLinkedInMessage)
	require.NoError(t, err)

	assert.Equal(t, types.DecisionRejected, result.Decision)
	assert.Less(t, result.OverallScore, 0.6)
	assert.True(t, result.CheckFailed(types.CheckCitation))
	assert.True(t, result.CheckFailed(types.CheckGeneric))
	assert.True(t, result.CheckFailed(types.CheckFact))
	assert.True(t, result.CheckFailed(types.CheckTone))
	assert.NotEmpty(t, result.Feedback)
}

func TestEvaluateTooShort(t *testing.T) {
	engine := newTestEngine(t, &fakeLLM{}, nil)

	result, err := engine.Evaluate(context.Background(), "hi", testCompany(), types.ToneProfessional, types.ChannelLinkedInMessage)
	require.NoError(t, err)
	assert.Equal(t, types.DecisionRejected, result.Decision)
	assert.Equal(t, 0.0, result.OverallScore)
}

func TestEvaluateSkipLLMChecks(t *testing.T) {
	client := &fakeLLM{}
	engine := newTestEngine(t, client, func(cfg *config.GuardrailConfig) { cfg.Skip = true })

	result, err := engine.Evaluate(context.Background(), goodMessage, testCompany(), types.ToneProfessional, types.ChannelLinkedInMessage)
	require.NoError(t, err)

	assert.Equal(t, 0, client.calls)
	assert.Equal(t, 3, result.TotalChecks)
	assert.Equal(t, types.DecisionApproved, result.Decision)
	assert.InDelta(t, 1.0, result.OverallScore, 1e-9)
}

func TestEvaluateLengthCheck(t *testing.T) {
	client := &fakeLLM{responses: []any{factsAllVerified, toneGood}}
	engine := newTestEngine(t, client, nil)

	long := goodMessage + " " + strings.Repeat("padding ", 200)
	result, err := engine.Evaluate(context.Background(), long, testCompany(), types.ToneProfessional, types.ChannelLinkedInMessage)
	require.NoError(t, err)

	assert.True(t, result.CheckFailed(types.CheckLength))
	assert.NotEqual(t, types.DecisionApproved, result.Decision)
}

func TestEvaluateFactCheckDegraded(t *testing.T) {
	// Fact call errors, tone call succeeds; evaluation still completes.
	client := &fakeLLM{responses: []any{&llm.Error{Kind: llm.KindTimeout, Message: "deadline"}, toneGood}}
	engine := newTestEngine(t, client, nil)

	result, err := engine.Evaluate(context.Background(), goodMessage, testCompany(), types.ToneProfessional, types.ChannelLinkedInMessage)
	require.NoError(t, err)

	assert.True(t, result.CheckFailed(types.CheckFact))
	assert.Contains(t, result.Feedback, "fact checking could not be completed")
}
