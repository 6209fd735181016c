package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractDomain(t *testing.T) {
	testCases := []struct {
		name     string
		url      string
		expected string
	}{
		{"plain", "https://acme.io", "acme.io"},
		{"www stripped", "https://www.acme.io/about", "acme.io"},
		{"uppercase host", "https://WWW.Acme.IO", "acme.io"},
		{"invalid", "not a url", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ExtractDomain(tc.url))
		})
	}
}

func TestCompanyNameFromURL(t *testing.T) {
	assert.Equal(t, "Acme", CompanyNameFromURL("https://www.acme.io"))
	assert.Equal(t, "Stripe", CompanyNameFromURL("https://stripe.com/jobs"))
	assert.Equal(t, "", CompanyNameFromURL("::bad::"))
}

func TestCompany_SourceLabels(t *testing.T) {
	c := &Company{Pages: map[PageType]*Page{
		PageTypeAbout: {Type: PageTypeAbout, Text: "We build things."},
		PageTypeNews:  {Type: PageTypeNews, Text: "We raised a round."},
		PageTypeTeam:  {Type: PageTypeTeam, Text: ""},
	}}

	assert.Equal(t, []string{"about", "news"}, c.SourceLabels())
	assert.Equal(t, "We build things.", c.PageText(PageTypeAbout))
	assert.Equal(t, "", c.PageText(PageTypeCareers))
}

func TestOutreachStatus_Terminal(t *testing.T) {
	assert.False(t, StatusDraft.Terminal())
	assert.False(t, StatusSent.Terminal())
	assert.False(t, StatusReplied.Terminal())
	assert.True(t, StatusBounced.Terminal())
	assert.True(t, StatusInterested.Terminal())
}

func TestReplyCategory_Substate(t *testing.T) {
	st, ok := ReplyInterested.Substate()
	assert.True(t, ok)
	assert.Equal(t, StatusInterested, st)

	_, ok = ReplyOutOfOffice.Substate()
	assert.False(t, ok)

	_, ok = ReplySpam.Substate()
	assert.False(t, ok)
}
