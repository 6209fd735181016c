package reply

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/outreach-copilot/internal/llm"
	"github.com/jonathan/outreach-copilot/internal/types"
)

type fakeLLM struct {
	response string
	err      error
	calls    int
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, temperature float32, maxTokens int) (string, error) {
	return f.GenerateJSON(ctx, prompt, temperature, maxTokens)
}

func (f *fakeLLM) GenerateJSON(ctx context.Context, prompt string, temperature float32, maxTokens int) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func (f *fakeLLM) Close() error { return nil }

func TestClassify(t *testing.T) {
	t.Run("llm classification", func(t *testing.T) {
		client := &fakeLLM{response: `{"category": "INTERESTED", "sentiment": "positive", "action_needed": "respond", "key_points": ["wants a call"], "confidence": 0.92}`}
		c := NewClassifier(client, nil)

		result, err := c.Classify(context.Background(), "original", "Sounds great, let's set up a call")
		require.NoError(t, err)
		assert.Equal(t, types.ReplyInterested, result.Category)
		assert.Equal(t, SentimentPositive, result.Sentiment)
		assert.Equal(t, ActionRespond, result.Action)
		assert.InDelta(t, 0.92, result.Confidence, 1e-9)
	})

	t.Run("llm failure falls back to keywords", func(t *testing.T) {
		client := &fakeLLM{err: &llm.Error{Kind: llm.KindTimeout, Message: "deadline"}}
		c := NewClassifier(client, nil)

		result, err := c.Classify(context.Background(), "original", "I'm out of office until Monday")
		require.NoError(t, err)
		assert.Equal(t, types.ReplyOutOfOffice, result.Category)
		assert.Equal(t, ActionWait, result.Action)
		assert.InDelta(t, 0.6, result.Confidence, 1e-9)
	})

	t.Run("unparsable output falls back to keywords", func(t *testing.T) {
		client := &fakeLLM{response: "not json"}
		c := NewClassifier(client, nil)

		result, err := c.Classify(context.Background(), "original", "Could you send me your portfolio?")
		require.NoError(t, err)
		// "portfolio" is an interest signal even though the phrasing is a question.
		assert.Equal(t, types.ReplyInterested, result.Category)
	})

	t.Run("unknown category inferred from text", func(t *testing.T) {
		client := &fakeLLM{response: `{"category": "WAT", "confidence": 0.9}`}
		c := NewClassifier(client, nil)

		result, err := c.Classify(context.Background(), "original", "Unfortunately we are not hiring right now")
		require.NoError(t, err)
		assert.Equal(t, types.ReplyNotInterested, result.Category)
		assert.Equal(t, SentimentNegative, result.Sentiment)
	})

	t.Run("empty reply rejected", func(t *testing.T) {
		c := NewClassifier(&fakeLLM{}, nil)
		_, err := c.Classify(context.Background(), "original", "   ")
		assert.Error(t, err)
	})
}

func TestInferCategory(t *testing.T) {
	testCases := []struct {
		name     string
		text     string
		expected types.ReplyCategory
	}{
		{"out of office wins", "I'm on vacation right now, but interested, let's schedule a call later", types.ReplyOutOfOffice},
		{"decline beats interest wording", "Thanks, but I'm not interested", types.ReplyNotInterested},
		{"interest", "Happy to discuss, does Tuesday work?", types.ReplyInterested},
		{"needs info", "Can you tell me more about your background?", types.ReplyNeedsInfo},
		{"spam", "CLICK HERE FOR FREE CRYPTO", types.ReplySpam},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, inferCategory(tc.text))
		})
	}
}
