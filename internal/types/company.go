// Package types defines the shared domain types for the outreach pipeline.
package types

import (
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PageType identifies the kind of company page a blob of text came from.
type PageType string

// Page types discovered during company scraping.
const (
	PageTypeAbout   PageType = "about"
	PageTypeCareers PageType = "careers"
	PageTypeNews    PageType = "news"
	PageTypeTeam    PageType = "team"
)

// AllPageTypes lists the page types the scraper attempts, in discovery order.
func AllPageTypes() []PageType {
	return []PageType{PageTypeAbout, PageTypeCareers, PageTypeNews, PageTypeTeam}
}

// Page holds the text content of one scraped company page.
type Page struct {
	Type      PageType  `json:"type"`
	URL       string    `json:"url"`
	Title     string    `json:"title,omitempty"`
	Text      string    `json:"text"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Company is a scraped company with its discovered pages.
// A company has at most one cached scrape per cache-validity window.
type Company struct {
	ID        uuid.UUID          `json:"id"`
	Name      string             `json:"name"`
	URL       string             `json:"url"`
	Domain    string             `json:"domain,omitempty"`
	Pages     map[PageType]*Page `json:"pages"`
	ScrapedAt time.Time          `json:"scraped_at"`
}

// PageText returns the text of a page type, or "" if it was not found.
func (c *Company) PageText(pt PageType) string {
	if c == nil || c.Pages == nil {
		return ""
	}
	if p, ok := c.Pages[pt]; ok && p != nil {
		return p.Text
	}
	return ""
}

// SourceLabels returns the page types that were successfully scraped.
// These are the labels a citation marker may reference.
func (c *Company) SourceLabels() []string {
	if c == nil {
		return nil
	}
	labels := make([]string, 0, len(c.Pages))
	for _, pt := range AllPageTypes() {
		if c.PageText(pt) != "" {
			labels = append(labels, string(pt))
		}
	}
	return labels
}

// Contact is a person extracted from a company page.
// Once scored it is immutable unless the source page is re-scraped.
type Contact struct {
	ID             uuid.UUID `json:"id"`
	CompanyID      uuid.UUID `json:"company_id"`
	Name           string    `json:"name,omitempty"`
	Title          string    `json:"title,omitempty"`
	Email          string    `json:"email,omitempty"`
	LinkedInURL    string    `json:"linkedin_url,omitempty"`
	RelevanceScore float64   `json:"relevance_score"`
	SourcePage     PageType  `json:"source_page"`
}

// JobListing is an open role extracted from a careers page.
type JobListing struct {
	ID              uuid.UUID `json:"id"`
	CompanyID       uuid.UUID `json:"company_id"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	SimilarityScore float64   `json:"similarity_score"`
}

// ResumeProfile is the structured output of resume parsing.
type ResumeProfile struct {
	RawText    string   `json:"raw_text"`
	Name       string   `json:"name,omitempty"`
	Email      string   `json:"email,omitempty"`
	Phone      string   `json:"phone,omitempty"`
	Skills     []string `json:"skills"`
	Experience []string `json:"experience"`
	Education  []string `json:"education,omitempty"`
}

// ExtractDomain returns the registrable host of a URL, without "www.".
func ExtractDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Host), "www.")
}

// CompanyNameFromURL derives a display name from a company URL.
// Example: "https://www.acme.io" -> "Acme".
func CompanyNameFromURL(rawURL string) string {
	domain := ExtractDomain(rawURL)
	if domain == "" {
		return ""
	}
	name := strings.SplitN(domain, ".", 2)[0]
	if name == "" {
		return ""
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
