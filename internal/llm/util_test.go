package llm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanJSONBlock(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", `{"a": 1}`, `{"a": 1}`},
		{"json fence", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"bare fence", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"fence with language", "```javascript\n{\"a\": 1}\n```", `{"a": 1}`},
		{"whitespace", "  {\"a\": 1}  ", `{"a": 1}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, CleanJSONBlock(tc.input))
		})
	}
}

func TestParseJSONResponse(t *testing.T) {
	type payload struct {
		Name  string `json:"name"`
		Score int    `json:"score"`
	}

	t.Run("clean json", func(t *testing.T) {
		var p payload
		err := ParseJSONResponse(`{"name": "x", "score": 3}`, &p)
		require.NoError(t, err)
		assert.Equal(t, "x", p.Name)
		assert.Equal(t, 3, p.Score)
	})

	t.Run("fenced json", func(t *testing.T) {
		var p payload
		err := ParseJSONResponse("```json\n{\"name\": \"y\"}\n```", &p)
		require.NoError(t, err)
		assert.Equal(t, "y", p.Name)
	})

	t.Run("json with surrounding prose", func(t *testing.T) {
		var p payload
		err := ParseJSONResponse("Here you go: {\"name\": \"z\", \"score\": 1} hope that helps", &p)
		require.NoError(t, err)
		assert.Equal(t, "z", p.Name)
	})

	t.Run("garbage", func(t *testing.T) {
		var p payload
		err := ParseJSONResponse("not json at all", &p)
		require.Error(t, err)

		var llmErr *Error
		require.True(t, errors.As(err, &llmErr))
		assert.Equal(t, KindMalformedOutput, llmErr.Kind)
	})
}
