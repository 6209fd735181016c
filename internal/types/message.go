package types

import (
	"regexp"
	"strings"
)

// MessageChannel identifies how the outreach message will be delivered.
type MessageChannel string

// Supported delivery channels.
const (
	ChannelLinkedInConnection MessageChannel = "linkedin_connection"
	ChannelLinkedInMessage    MessageChannel = "linkedin_message"
	ChannelEmail              MessageChannel = "email"
	ChannelOther              MessageChannel = "other"
)

// DefaultMaxWords returns the channel's default word budget.
// Connection notes are the tightest; email the loosest.
func (c MessageChannel) DefaultMaxWords() int {
	switch c {
	case ChannelLinkedInConnection:
		return 120
	case ChannelLinkedInMessage:
		return 200
	case ChannelEmail:
		return 300
	default:
		return 200
	}
}

// Valid reports whether c is a known channel.
func (c MessageChannel) Valid() bool {
	switch c {
	case ChannelLinkedInConnection, ChannelLinkedInMessage, ChannelEmail, ChannelOther:
		return true
	}
	return false
}

// MessageTone is the requested voice of a generated message.
type MessageTone string

// Supported tones.
const (
	ToneProfessional MessageTone = "professional"
	ToneFriendly     MessageTone = "friendly"
	ToneEnthusiastic MessageTone = "enthusiastic"
	ToneDirect       MessageTone = "direct"
)

// Valid reports whether t is a known tone.
func (t MessageTone) Valid() bool {
	switch t {
	case ToneProfessional, ToneFriendly, ToneEnthusiastic, ToneDirect:
		return true
	}
	return false
}

// citationPatterns are the recognized inline source-marker forms.
// A citation ties a claim in the message to a specific scraped page.
var citationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\[source:\s*[^\]]+\]`),
	regexp.MustCompile(`\[via\s+[^\]]+\]`),
	regexp.MustCompile(`\(source:\s*[^)]+\)`),
	regexp.MustCompile(`according to their \S+ page`),
}

// ExtractCitations returns every citation marker found in message text,
// in order of appearance per pattern.
func ExtractCitations(message string) []string {
	lower := strings.ToLower(message)
	var found []string
	for _, pat := range citationPatterns {
		found = append(found, pat.FindAllString(lower, -1)...)
	}
	return found
}

// CountWords returns the whitespace-delimited word count of text.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// MessageVariant is one generated candidate message for a
// (company, contact, target role) tuple. WordCount and Citations are
// derived from Message, never hand-edited.
type MessageVariant struct {
	Message           string           `json:"message"`
	Subject           string           `json:"subject,omitempty"`
	Citations         []string         `json:"citations"`
	SkillsHighlighted []string         `json:"skills_highlighted,omitempty"`
	WordCount         int              `json:"word_count"`
	Channel           MessageChannel   `json:"channel"`
	Tone              MessageTone      `json:"tone"`
	Guardrail         *GuardrailResult `json:"guardrail,omitempty"`
}

// Derive recomputes the derived fields from the message text.
func (v *MessageVariant) Derive() {
	v.WordCount = CountWords(v.Message)
	v.Citations = ExtractCitations(v.Message)
}
