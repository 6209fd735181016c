package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractCitations(t *testing.T) {
	testCases := []struct {
		name     string
		message  string
		expected int
	}{
		{"none", "Hi, I'd love to chat about the role.", 0},
		{"bracketed source", "Your mission resonates [source: about].", 1},
		{"via form", "Saw the launch [via news] last week.", 1},
		{"paren form", "You're hiring backend folks (source: careers).", 1},
		{"prose form", "according to their careers page you're scaling.", 1},
		{"mixed", "Great mission [source: about] and growth [via news].", 2},
		{"case insensitive", "Impressive work [SOURCE: About].", 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Len(t, ExtractCitations(tc.message), tc.expected)
		})
	}
}

func TestCountWords(t *testing.T) {
	assert.Equal(t, 0, CountWords(""))
	assert.Equal(t, 0, CountWords("   \n\t"))
	assert.Equal(t, 3, CountWords("one two three"))
	assert.Equal(t, 2, CountWords("  spaced   out  "))
}

func TestMessageVariant_Derive(t *testing.T) {
	v := &MessageVariant{Message: "Loved the pivot [source: news] and your values [source: about]."}
	v.Derive()
	assert.Equal(t, 10, v.WordCount)
	assert.Len(t, v.Citations, 2)
}

func TestMessageChannel_DefaultMaxWords(t *testing.T) {
	assert.Equal(t, 120, ChannelLinkedInConnection.DefaultMaxWords())
	assert.Equal(t, 200, ChannelLinkedInMessage.DefaultMaxWords())
	assert.Equal(t, 300, ChannelEmail.DefaultMaxWords())
	assert.Equal(t, 200, ChannelOther.DefaultMaxWords())
}

func TestMessageChannel_Valid(t *testing.T) {
	assert.True(t, ChannelEmail.Valid())
	assert.False(t, MessageChannel("carrier_pigeon").Valid())
}

func TestMessageTone_Valid(t *testing.T) {
	assert.True(t, ToneProfessional.Valid())
	assert.False(t, MessageTone("sarcastic").Valid())
}
