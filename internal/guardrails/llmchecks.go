// Package guardrails - llmchecks.go implements the LLM-delegated fact and
// tone checks.
package guardrails

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/outreach-copilot/internal/llm"
	"github.com/jonathan/outreach-copilot/internal/types"
)

// LLM sub-checks run cold and tight; creativity is a liability here.
const (
	checkTemperature = 0.1
	checkMaxTokens   = 1500
)

// MinToneScore is the 0-10 appropriateness floor for the tone check to pass.
const MinToneScore = 7.0

const factCheckPrompt = `You are a fact-checking assistant. Verify ONLY factual claims about the company in this outreach message.

MESSAGE:
%s

SOURCE MATERIAL:
%s

RULES:
- IGNORE subjective statements about the recipient and statements about the candidate's own skills or past work ("I built...", "my experience with..."). The candidate is APPLYING to the company and has never worked there.
- ONLY verify claims that directly describe the company (mission, products, news, people, achievements).
- Paraphrases are acceptable if they preserve accuracy.

OUTPUT FORMAT (strict JSON):
{
    "all_claims_verified": true,
    "verified_claims": ["list of verified claims"],
    "unverified_claims": [{"claim": "the claim", "reason": "why it cannot be verified"}]
}`

const toneCheckPrompt = `You are a tone analysis expert. Analyze the tone of this outreach message.

MESSAGE:
%s

REQUESTED TONE: %s

Red flags: excessive flattery, pushy or desperate language, over-familiarity, generic buzzwords without substance.

OUTPUT FORMAT (strict JSON):
{
    "tone_match": true,
    "detected_tone": "description",
    "appropriateness_score": 8,
    "red_flags": ["any concerns"]
}`

type factCheckPayload struct {
	AllClaimsVerified bool     `json:"all_claims_verified"`
	VerifiedClaims    []string `json:"verified_claims"`
	UnverifiedClaims  []struct {
		Claim  string `json:"claim"`
		Reason string `json:"reason"`
	} `json:"unverified_claims"`
}

type toneCheckPayload struct {
	ToneMatch            bool     `json:"tone_match"`
	DetectedTone         string   `json:"detected_tone"`
	AppropriatenessScore float64  `json:"appropriateness_score"`
	RedFlags             []string `json:"red_flags"`
}

// checkFacts asks the LLM to verify company claims against the scraped
// source text. The score is supported claims over total claims. A failed
// collaborator call degrades to a failed check rather than aborting the
// evaluation.
func (e *Engine) checkFacts(ctx context.Context, message string, company *types.Company) types.CheckResult {
	check := types.CheckResult{Name: types.CheckFact, Weight: e.cfg.Weights.Fact}

	source := sourceMaterial(company)
	if source == "" {
		check.Detail = "no source material available for fact checking"
		return check
	}

	prompt := fmt.Sprintf(factCheckPrompt, message, source)
	raw, err := e.client.GenerateJSON(ctx, prompt, checkTemperature, checkMaxTokens)
	if err != nil {
		e.logger.Warn("fact check call failed", zap.Error(err))
		check.Detail = "fact checking could not be completed"
		return check
	}

	var payload factCheckPayload
	if err := llm.ParseJSONResponse(raw, &payload); err != nil {
		e.logger.Warn("fact check response unparsable", zap.Error(err))
		check.Detail = "fact checking could not be completed"
		return check
	}

	total := len(payload.VerifiedClaims) + len(payload.UnverifiedClaims)
	switch {
	case total == 0:
		// Nothing factual to verify; vacuously supported.
		check.Score = 1
	default:
		check.Score = float64(len(payload.VerifiedClaims)) / float64(total)
	}

	if payload.AllClaimsVerified || len(payload.UnverifiedClaims) == 0 {
		check.Passed = true
	} else {
		parts := make([]string, 0, 2)
		for i, claim := range payload.UnverifiedClaims {
			if i == 2 {
				break
			}
			parts = append(parts, claim.Claim)
		}
		check.Detail = fmt.Sprintf("fact check failed: %d unverified claims (%s)",
			len(payload.UnverifiedClaims), strings.Join(parts, "; "))
	}
	return check
}

// checkTone asks the LLM whether the message matches the requested tone.
// The 0-10 appropriateness score is normalized into [0,1].
func (e *Engine) checkTone(ctx context.Context, message string, tone types.MessageTone) types.CheckResult {
	check := types.CheckResult{Name: types.CheckTone, Weight: e.cfg.Weights.Tone}

	prompt := fmt.Sprintf(toneCheckPrompt, message, tone)
	raw, err := e.client.GenerateJSON(ctx, prompt, checkTemperature, checkMaxTokens)
	if err != nil {
		e.logger.Warn("tone check call failed", zap.Error(err))
		check.Detail = "tone checking could not be completed"
		return check
	}

	var payload toneCheckPayload
	if err := llm.ParseJSONResponse(raw, &payload); err != nil {
		e.logger.Warn("tone check response unparsable", zap.Error(err))
		check.Detail = "tone checking could not be completed"
		return check
	}

	check.Score = clamp01(payload.AppropriatenessScore / 10)

	if payload.ToneMatch && payload.AppropriatenessScore >= MinToneScore {
		check.Passed = true
	} else {
		detail := fmt.Sprintf("tone check failed: score %.1f/10", payload.AppropriatenessScore)
		if len(payload.RedFlags) > 0 {
			n := len(payload.RedFlags)
			if n > 2 {
				n = 2
			}
			detail += " (" + strings.Join(payload.RedFlags[:n], "; ") + ")"
		}
		check.Detail = detail
	}
	return check
}

// sourceMaterial concatenates the scraped pages into one labeled blob for
// the fact-check prompt.
func sourceMaterial(company *types.Company) string {
	if company == nil {
		return ""
	}
	var sections []string
	for _, pt := range types.AllPageTypes() {
		if text := company.PageText(pt); text != "" {
			sections = append(sections, fmt.Sprintf("--- %s PAGE ---\n%s", strings.ToUpper(string(pt)), text))
		}
	}
	return strings.Join(sections, "\n\n")
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
