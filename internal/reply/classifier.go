// Package reply classifies incoming replies to outreach messages so the
// CRM can apply the right status transition.
package reply

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/outreach-copilot/internal/llm"
	"github.com/jonathan/outreach-copilot/internal/types"
)

// Sentiment is the overall emotional read of a reply.
type Sentiment string

// Sentiments.
const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// Action is what the operator should do next.
type Action string

// Actions.
const (
	ActionRespond Action = "respond"
	ActionWait    Action = "wait"
	ActionClose   Action = "close"
)

// Classification is the structured read of one reply.
type Classification struct {
	Category   types.ReplyCategory `json:"category"`
	Sentiment  Sentiment           `json:"sentiment"`
	Action     Action              `json:"action_needed"`
	KeyPoints  []string            `json:"key_points,omitempty"`
	Confidence float64             `json:"confidence"`
}

const classifyPrompt = `You are an email reply classifier. Classify this reply to a job outreach message.

ORIGINAL MESSAGE:
%s

REPLY:
%s

Categories: INTERESTED (wants to continue), NOT_INTERESTED (decline or not hiring), NEEDS_INFO (asking for more information), OUT_OF_OFFICE (auto-reply or unavailable), SPAM (irrelevant or automated).

OUTPUT FORMAT (strict JSON):
{
    "category": "INTERESTED",
    "sentiment": "positive",
    "action_needed": "respond",
    "key_points": ["main points from the reply"],
    "confidence": 0.9
}`

// Classifier classifies replies via the LLM, degrading to keyword
// inference when the collaborator fails.
type Classifier struct {
	client llm.Client
	logger *zap.Logger
}

// NewClassifier creates a Classifier.
func NewClassifier(client llm.Client, logger *zap.Logger) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{client: client, logger: logger}
}

type classifyPayload struct {
	Category   string   `json:"category"`
	Sentiment  string   `json:"sentiment"`
	Action     string   `json:"action_needed"`
	KeyPoints  []string `json:"key_points"`
	Confidence float64  `json:"confidence"`
}

// Classify categorizes a reply. LLM failures are not fatal: the keyword
// fallback always yields a classification, at lower confidence.
func (c *Classifier) Classify(ctx context.Context, originalMessage, replyText string) (*Classification, error) {
	if strings.TrimSpace(replyText) == "" {
		return nil, fmt.Errorf("reply text is empty")
	}

	prompt := fmt.Sprintf(classifyPrompt, originalMessage, replyText)
	raw, err := c.client.GenerateJSON(ctx, prompt, 0.1, 800)
	if err != nil {
		c.logger.Warn("reply classification call failed, using keyword fallback", zap.Error(err))
		return fallbackClassification(replyText), nil
	}

	var payload classifyPayload
	if err := llm.ParseJSONResponse(raw, &payload); err != nil {
		c.logger.Warn("reply classification unparsable, using keyword fallback", zap.Error(err))
		return fallbackClassification(replyText), nil
	}

	category, ok := parseCategory(payload.Category)
	if !ok {
		category = inferCategory(replyText)
	}

	result := &Classification{
		Category:   category,
		Sentiment:  parseSentiment(payload.Sentiment, category),
		Action:     parseAction(payload.Action, category),
		KeyPoints:  payload.KeyPoints,
		Confidence: payload.Confidence,
	}
	if result.Confidence <= 0 || result.Confidence > 1 {
		result.Confidence = 0.5
	}
	return result, nil
}

func parseCategory(s string) (types.ReplyCategory, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "interested":
		return types.ReplyInterested, true
	case "not_interested":
		return types.ReplyNotInterested, true
	case "needs_info":
		return types.ReplyNeedsInfo, true
	case "out_of_office":
		return types.ReplyOutOfOffice, true
	case "spam":
		return types.ReplySpam, true
	}
	return "", false
}

func parseSentiment(s string, category types.ReplyCategory) Sentiment {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(SentimentPositive):
		return SentimentPositive
	case string(SentimentNegative):
		return SentimentNegative
	case string(SentimentNeutral):
		return SentimentNeutral
	}
	return defaultSentiment(category)
}

func parseAction(s string, category types.ReplyCategory) Action {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(ActionRespond):
		return ActionRespond
	case string(ActionWait):
		return ActionWait
	case string(ActionClose):
		return ActionClose
	}
	return defaultAction(category)
}

// Keyword sets for the lexical fallback. Checked in priority order:
// out-of-office first, then declines before interest so that
// "not interested" never reads as interest.
var (
	oooKeywords = []string{
		"out of office", "away", "unavailable", "vacation",
		"auto-reply", "automated response",
	}
	interestedKeywords = []string{
		"interested", "schedule", "call", "meeting", "discuss",
		"portfolio", "resume", "interview", "let's connect",
	}
	notInterestedKeywords = []string{
		"not hiring", "not interested", "no positions", "filled",
		"not a fit", "decline", "pass", "unfortunately",
	}
	infoKeywords = []string{
		"more information", "can you", "could you", "tell me",
		"provide", "send", "share",
	}
)

func inferCategory(text string) types.ReplyCategory {
	lower := strings.ToLower(text)

	for _, kw := range oooKeywords {
		if strings.Contains(lower, kw) {
			return types.ReplyOutOfOffice
		}
	}
	for _, kw := range notInterestedKeywords {
		if strings.Contains(lower, kw) {
			return types.ReplyNotInterested
		}
	}
	for _, kw := range interestedKeywords {
		if strings.Contains(lower, kw) {
			return types.ReplyInterested
		}
	}
	for _, kw := range infoKeywords {
		if strings.Contains(lower, kw) {
			return types.ReplyNeedsInfo
		}
	}
	return types.ReplySpam
}

func fallbackClassification(replyText string) *Classification {
	category := inferCategory(replyText)
	return &Classification{
		Category:   category,
		Sentiment:  defaultSentiment(category),
		Action:     defaultAction(category),
		KeyPoints:  []string{"classification based on keyword analysis"},
		Confidence: 0.6,
	}
}

func defaultSentiment(category types.ReplyCategory) Sentiment {
	switch category {
	case types.ReplyInterested:
		return SentimentPositive
	case types.ReplyNotInterested:
		return SentimentNegative
	}
	return SentimentNeutral
}

func defaultAction(category types.ReplyCategory) Action {
	switch category {
	case types.ReplyInterested, types.ReplyNeedsInfo:
		return ActionRespond
	case types.ReplyOutOfOffice:
		return ActionWait
	}
	return ActionClose
}
