// Package scraping - extract.go pulls contacts and job listings out of
// scraped pages.
package scraping

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"github.com/jonathan/outreach-copilot/internal/types"
)

// contactTitleKeywords mark a line or element as a job title rather than a
// name or blurb.
var contactTitleKeywords = []string{
	"engineer", "developer", "manager", "director", "recruiter", "recruiting",
	"talent", "founder", "ceo", "cto", "coo", "vp", "head of", "lead",
	"designer", "scientist", "president", "officer", "people", "hr",
}

// jobTitlePattern matches headings that look like open roles.
var jobTitlePattern = regexp.MustCompile(`(?i)\b(engineer|developer|manager|designer|scientist|analyst|architect|marketer|marketing|sales|product|researcher|intern|lead|director|recruiter|specialist|consultant)s?\b`)

// namePattern matches a plausible person name: 2-4 capitalized words.
var namePattern = regexp.MustCompile(`^[A-Z][a-zA-Z'.-]+(?: [A-Z][a-zA-Z'.-]+){1,3}$`)

var teamMemberSelectors = []string{
	".team-member", ".team_member", ".member", ".person", ".profile-card",
	"[class*='team'] li", "[class*='people'] li",
}

// extractContacts finds people on a team or about page. HTML structure is
// tried first; text line pairs are the fallback.
func extractContacts(companyID uuid.UUID, html, text string, pt types.PageType) []*types.Contact {
	contacts := extractContactsFromHTML(companyID, html, pt)
	if len(contacts) == 0 {
		contacts = extractContactsFromText(companyID, text, pt)
	}
	return dedupeContacts(contacts)
}

func extractContactsFromHTML(companyID uuid.UUID, html string, pt types.PageType) []*types.Contact {
	if html == "" {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var contacts []*types.Contact
	for _, selector := range teamMemberSelectors {
		doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
			name := strings.TrimSpace(sel.Find("h2, h3, h4, strong, .name").First().Text())
			title := strings.TrimSpace(sel.Find("p, span, .title, .role").First().Text())

			if !namePattern.MatchString(name) || !looksLikeTitle(title) {
				return
			}

			contacts = append(contacts, &types.Contact{
				ID:          uuid.New(),
				CompanyID:   companyID,
				Name:        name,
				Title:       title,
				LinkedInURL: firstLinkedInLink(sel),
				SourcePage:  pt,
			})
		})
		if len(contacts) > 0 {
			break
		}
	}
	return contacts
}

// extractContactsFromText pairs a name line with the title line that
// follows it, and also splits "Name - Title" / "Name, Title" lines.
func extractContactsFromText(companyID uuid.UUID, text string, pt types.PageType) []*types.Contact {
	lines := strings.Split(text, "\n")
	var contacts []*types.Contact

	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}

		// "Name - Title" or "Name, Title" on one line.
		for _, sep := range []string{" - ", " – ", ", "} {
			if name, title, ok := strings.Cut(line, sep); ok {
				name = strings.TrimSpace(name)
				title = strings.TrimSpace(title)
				if namePattern.MatchString(name) && looksLikeTitle(title) {
					contacts = append(contacts, &types.Contact{
						ID: uuid.New(), CompanyID: companyID,
						Name: name, Title: title, SourcePage: pt,
					})
				}
				break
			}
		}

		// Name on one line, title on the next.
		if namePattern.MatchString(line) && i+1 < len(lines) {
			next := strings.TrimSpace(lines[i+1])
			if looksLikeTitle(next) {
				contacts = append(contacts, &types.Contact{
					ID: uuid.New(), CompanyID: companyID,
					Name: line, Title: next, SourcePage: pt,
				})
				i++
			}
		}
	}
	return contacts
}

func looksLikeTitle(s string) bool {
	if len(s) < 2 || len(s) > 80 {
		return false
	}
	lower := strings.ToLower(s)
	for _, kw := range contactTitleKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func firstLinkedInLink(sel *goquery.Selection) string {
	link := ""
	sel.Find("a[href*='linkedin.com']").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		link, _ = a.Attr("href")
		return false
	})
	return link
}

func dedupeContacts(contacts []*types.Contact) []*types.Contact {
	seen := make(map[string]bool, len(contacts))
	var out []*types.Contact
	for _, c := range contacts {
		key := strings.ToLower(c.Name)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}

var jobLinkSelectors = "a[href*='job'], a[href*='career'], a[href*='position'], a[href*='opening']"

// extractJobs finds open roles on a careers page. Job links are tried
// first, then headings, then text lines.
func extractJobs(companyID uuid.UUID, html, text string) []*types.JobListing {
	var jobs []*types.JobListing

	if html != "" {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(html)); err == nil {
			doc.Find(jobLinkSelectors).Each(func(_ int, sel *goquery.Selection) {
				if title := cleanJobTitle(sel.Text()); title != "" {
					jobs = append(jobs, &types.JobListing{ID: uuid.New(), CompanyID: companyID, Title: title})
				}
			})
			if len(jobs) == 0 {
				doc.Find("h2, h3, h4, li").Each(func(_ int, sel *goquery.Selection) {
					if title := cleanJobTitle(sel.Text()); title != "" {
						jobs = append(jobs, &types.JobListing{ID: uuid.New(), CompanyID: companyID, Title: title})
					}
				})
			}
		}
	}

	if len(jobs) == 0 {
		for _, line := range strings.Split(text, "\n") {
			if title := cleanJobTitle(line); title != "" {
				jobs = append(jobs, &types.JobListing{ID: uuid.New(), CompanyID: companyID, Title: title})
			}
		}
	}

	return dedupeJobs(jobs)
}

// cleanJobTitle returns a normalized job title, or "" if the text does not
// look like one.
func cleanJobTitle(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) < 5 || len(s) > 90 {
		return ""
	}
	if !jobTitlePattern.MatchString(s) {
		return ""
	}
	// Sentences are descriptions, not titles.
	if strings.Count(s, ".") > 1 || strings.Count(s, " ") > 9 {
		return ""
	}
	return s
}

func dedupeJobs(jobs []*types.JobListing) []*types.JobListing {
	seen := make(map[string]bool, len(jobs))
	var out []*types.JobListing
	for _, j := range jobs {
		key := strings.ToLower(j.Title)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, j)
	}
	return out
}

var titlePattern = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)

// extractTitle pulls the document title out of raw HTML.
func extractTitle(html string) string {
	m := titlePattern.FindStringSubmatch(html)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}
