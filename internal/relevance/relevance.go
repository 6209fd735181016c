// Package relevance scores contacts and job listings against a target role.
// Scoring is purely lexical so it is cheap to run over every extracted
// contact; no LLM calls.
package relevance

import (
	"sort"
	"strings"

	"github.com/jonathan/outreach-copilot/internal/types"
)

// MinJobScore is the default similarity floor below which job listings are
// discarded.
const MinJobScore = 0.1

// roleKeywords are titles that indicate a contact can act on outreach.
var roleKeywords = []string{
	"recruiter", "recruiting", "talent", "hiring",
	"people", "hr", "human resources",
	"engineering manager", "head of engineering", "vp of engineering",
	"cto", "founder", "co-founder", "director",
}

// Contact score weights. Title overlap dominates; the page a contact was
// found on breaks near-ties so team/about contacts outrank news mentions.
const (
	titleWeight = 0.7
	pageWeight  = 0.3
)

// pageTypeScores rank where a contact was discovered.
var pageTypeScores = map[types.PageType]float64{
	types.PageTypeTeam:    1.0,
	types.PageTypeAbout:   0.9,
	types.PageTypeCareers: 0.6,
	types.PageTypeNews:    0.3,
}

// Scorer scores contacts and job listings. The zero value uses defaults.
type Scorer struct {
	// MinJob overrides the job-score floor when > 0.
	MinJob float64
	// ExtraKeywords extend the role-indicative title keyword set.
	ExtraKeywords []string
}

func (s *Scorer) minJob() float64 {
	if s != nil && s.MinJob > 0 {
		return s.MinJob
	}
	return MinJobScore
}

func (s *Scorer) keywords() []string {
	if s == nil || len(s.ExtraKeywords) == 0 {
		return roleKeywords
	}
	kws := make([]string, 0, len(roleKeywords)+len(s.ExtraKeywords))
	kws = append(kws, roleKeywords...)
	for _, kw := range s.ExtraKeywords {
		kws = append(kws, strings.ToLower(kw))
	}
	return kws
}

// ScoreContact returns a relevance score in [0,1] for a contact given the
// target role and the page type it was extracted from.
func (s *Scorer) ScoreContact(contact *types.Contact, targetRole string, pageType types.PageType) float64 {
	title := strings.ToLower(contact.Title)

	matched := 0
	keywords := s.keywords()
	for _, kw := range keywords {
		if strings.Contains(title, kw) {
			matched++
		}
	}

	// A title matching the target role itself counts as strongly as a
	// role keyword (an "ML Engineer" contact matters for an ML role).
	if overlap := tokenOverlap(title, targetRole); overlap > 0 {
		matched++
	}

	titleScore := 0.0
	if matched > 0 {
		// One keyword is a solid signal; more saturate quickly.
		titleScore = 0.6 + 0.4*float64(min(matched, 3)-1)/2
	}

	pageScore := pageTypeScores[pageType]

	score := titleWeight*titleScore + pageWeight*pageScore
	return clamp01(score)
}

// ScoreJob returns a similarity score in [0,1] between a job listing and
// the target role, as normalized token-set overlap.
func (s *Scorer) ScoreJob(listing *types.JobListing, targetRole string) float64 {
	listingText := listing.Title + " " + listing.Description
	return tokenOverlap(listingText, targetRole)
}

// RankJobs scores all listings, discards those below the floor, and
// returns survivors sorted by descending score.
func (s *Scorer) RankJobs(listings []*types.JobListing, targetRole string) []*types.JobListing {
	floor := s.minJob()

	var kept []*types.JobListing
	for _, listing := range listings {
		listing.SimilarityScore = s.ScoreJob(listing, targetRole)
		if listing.SimilarityScore >= floor {
			kept = append(kept, listing)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].SimilarityScore > kept[j].SimilarityScore
	})
	return kept
}

// RankContacts scores all contacts and returns them sorted by descending
// relevance.
func (s *Scorer) RankContacts(contacts []*types.Contact, targetRole string) []*types.Contact {
	for _, contact := range contacts {
		contact.RelevanceScore = s.ScoreContact(contact, targetRole, contact.SourcePage)
	}

	ranked := make([]*types.Contact, len(contacts))
	copy(ranked, contacts)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].RelevanceScore > ranked[j].RelevanceScore
	})
	return ranked
}

// stopwords are dropped before token overlap so filler does not inflate
// similarity.
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "at": true, "for": true,
	"in": true, "of": true, "on": true, "or": true, "the": true,
	"to": true, "with": true,
}

// tokenOverlap returns |tokens(a) ∩ tokens(b)| / |tokens(b)|, where b is
// the query side. Returns 0 when either side has no tokens.
func tokenOverlap(text, query string) float64 {
	textTokens := tokenize(text)
	queryTokens := tokenize(query)
	if len(textTokens) == 0 || len(queryTokens) == 0 {
		return 0
	}

	matched := 0
	for token := range queryTokens {
		if textTokens[token] {
			matched++
		}
	}
	return float64(matched) / float64(len(queryTokens))
}

func tokenize(s string) map[string]bool {
	tokens := make(map[string]bool)
	for _, field := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '+' || r == '#')
	}) {
		if len(field) > 1 && !stopwords[field] {
			tokens[field] = true
		}
	}
	return tokens
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
