// Package guardrails scores candidate outreach messages against quality
// rules and produces an approve / revise / reject decision.
package guardrails

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/outreach-copilot/internal/config"
	"github.com/jonathan/outreach-copilot/internal/llm"
	"github.com/jonathan/outreach-copilot/internal/types"
)

// MinMessageLength is the floor below which a message is rejected outright.
const MinMessageLength = 10

// genericPhrases are banned boilerplate openers and closers. A single match
// fails the generic-phrase check.
var genericPhrases = []*regexp.Regexp{
	regexp.MustCompile(`\bi am writing to express my interest\b`),
	regexp.MustCompile(`\bi came across your posting\b`),
	regexp.MustCompile(`\bi would be a great fit\b`),
	regexp.MustCompile(`\bi am confident that\b`),
	regexp.MustCompile(`\bthank you for your time and consideration\b`),
	regexp.MustCompile(`\bto whom it may concern\b`),
	regexp.MustCompile(`\bi wanted to reach out\b`),
}

// Engine evaluates messages. Weights and thresholds come from
// configuration so operators can retune without code changes.
type Engine struct {
	client llm.Client
	cfg    config.GuardrailConfig
	logger *zap.Logger
}

// NewEngine creates an Engine. It fails fast on weights that do not sum
// to 1 so no workflow can start with a broken gate.
func NewEngine(client llm.Client, cfg config.GuardrailConfig, logger *zap.Logger) (*Engine, error) {
	if sum := cfg.Weights.Sum(); math.Abs(sum-1.0) > 1e-6 {
		return nil, fmt.Errorf("guardrail weights must sum to 1.0, got %.4f", sum)
	}
	if cfg.ApproveThreshold < cfg.ReviseThreshold {
		return nil, fmt.Errorf("approve threshold (%.2f) below revise threshold (%.2f)",
			cfg.ApproveThreshold, cfg.ReviseThreshold)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{client: client, cfg: cfg, logger: logger}, nil
}

// Evaluate scores a message against the five checks and aggregates a
// decision. A failed citation check caps the decision below approved no
// matter how well the other checks score.
func (e *Engine) Evaluate(ctx context.Context, message string, company *types.Company, tone types.MessageTone, channel types.MessageChannel) (*types.GuardrailResult, error) {
	if len(strings.TrimSpace(message)) < MinMessageLength {
		return &types.GuardrailResult{
			Decision:     types.DecisionRejected,
			OverallScore: 0,
			Feedback:     []string{"message is too short or empty"},
			TotalChecks:  1,
		}, nil
	}

	var checks []types.CheckResult
	checks = append(checks, e.checkLength(message, channel))
	checks = append(checks, e.checkCitations(message, company))
	checks = append(checks, e.checkGeneric(message))

	if !e.cfg.Skip {
		checks = append(checks, e.checkFacts(ctx, message, company))
		checks = append(checks, e.checkTone(ctx, message, tone))
	}

	return e.aggregate(checks), nil
}

func (e *Engine) checkLength(message string, channel types.MessageChannel) types.CheckResult {
	maxWords := channel.DefaultMaxWords()
	wordCount := types.CountWords(message)

	check := types.CheckResult{Name: types.CheckLength, Weight: e.cfg.Weights.Length}
	if wordCount <= maxWords {
		check.Passed = true
		check.Score = 1
	} else {
		check.Detail = fmt.Sprintf("word count %d exceeds limit %d", wordCount, maxWords)
	}
	return check
}

// checkCitations counts citation markers that reference a page actually
// scraped for this company; markers naming unknown pages do not count.
func (e *Engine) checkCitations(message string, company *types.Company) types.CheckResult {
	citations := types.ExtractCitations(message)

	recognized := 0
	labels := company.SourceLabels()
	for _, citation := range citations {
		for _, label := range labels {
			if strings.Contains(citation, label) {
				recognized++
				break
			}
		}
	}

	check := types.CheckResult{Name: types.CheckCitation, Weight: e.cfg.Weights.Citation}
	if recognized >= e.cfg.MinCitations {
		check.Passed = true
		check.Score = 1
	} else {
		check.Detail = fmt.Sprintf("only %d recognized citations found, minimum %d required",
			recognized, e.cfg.MinCitations)
	}
	return check
}

// checkGeneric passes only when the message matches none of the banned
// boilerplate patterns.
func (e *Engine) checkGeneric(message string) types.CheckResult {
	lower := strings.ToLower(message)

	var matched []string
	for _, pattern := range genericPhrases {
		if m := pattern.FindString(lower); m != "" {
			matched = append(matched, m)
		}
	}

	check := types.CheckResult{Name: types.CheckGeneric, Weight: e.cfg.Weights.Generic}
	if len(matched) == 0 {
		check.Passed = true
		check.Score = 1
	} else {
		check.Detail = fmt.Sprintf("message contains generic phrasing: %s", strings.Join(matched, "; "))
	}
	return check
}

// aggregate computes the weighted overall score and the decision. When LLM
// checks are skipped the remaining weights are renormalized so the score
// still spans [0,1].
func (e *Engine) aggregate(checks []types.CheckResult) *types.GuardrailResult {
	result := &types.GuardrailResult{
		Checks:      checks,
		TotalChecks: len(checks),
	}

	var weightSum, score float64
	for _, c := range checks {
		weightSum += c.Weight
		score += c.Weight * c.Score
		if c.Passed {
			result.PassedChecks++
		} else if c.Detail != "" {
			result.Feedback = append(result.Feedback, c.Detail)
		}
	}
	if weightSum > 0 {
		score /= weightSum
	}
	result.OverallScore = score

	switch {
	case score >= e.cfg.ApproveThreshold:
		result.Decision = types.DecisionApproved
	case score >= e.cfg.ReviseThreshold:
		result.Decision = types.DecisionNeedsRevision
	default:
		result.Decision = types.DecisionRejected
	}

	// Uncited messages are never approved outright: without source
	// grounding a high score elsewhere is not enough.
	if result.Decision == types.DecisionApproved && result.CheckFailed(types.CheckCitation) {
		result.Decision = types.DecisionNeedsRevision
	}

	return result
}
