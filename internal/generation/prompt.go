// Package generation - prompt.go builds the personalization prompt sent to
// the LLM.
package generation

import (
	"fmt"
	"strings"

	"github.com/jonathan/outreach-copilot/internal/types"
)

// Limits on how much profile and page context goes into a prompt.
const (
	maxPromptSkills      = 8
	maxPromptExperience  = 3
	maxPromptJobs        = 5
	maxPromptContacts    = 5
	maxPageExcerptLength = 1200
)

const systemRules = `You are an expert cold outreach writer specializing in job applications.
Your messages are authentic, concise, fact-based, and end with a clear low-pressure call to action.

CRITICAL RULES:
1. ALWAYS cite sources inline using the [source: page_name] format.
2. NEVER make claims about the company that are not in the provided company data.
3. The candidate is APPLYING to the company and has NEVER worked there. Never write "At <company>, I built..." about the target company.
4. Write from the candidate's perspective ("I", "my", "me"); never address the message to the candidate's own name.
5. Use the requested tone consistently.`

// BuildPrompt renders the full generation prompt for a request.
func BuildPrompt(req *Request) string {
	var b strings.Builder

	b.WriteString(systemRules)
	b.WriteString("\n\nCANDIDATE PROFILE (the sender):\n")
	fmt.Fprintf(&b, "Name: %s\n", orDefault(req.Profile.Name, "the candidate"))
	fmt.Fprintf(&b, "Target Role: %s\n", req.TargetRole)
	fmt.Fprintf(&b, "Top Skills: %s\n", joinLimit(req.Profile.Skills, maxPromptSkills))
	if len(req.Profile.Experience) > 0 {
		b.WriteString("Relevant Experience (from PAST jobs at OTHER companies):\n")
		for _, exp := range limit(req.Profile.Experience, maxPromptExperience) {
			fmt.Fprintf(&b, "- %s\n", exp)
		}
	}

	fmt.Fprintf(&b, "\nCOMPANY INFORMATION:\nCompany Name: %s\n", req.Company.Name)
	writePageSection(&b, "Mission/About", req.Company.PageText(types.PageTypeAbout))
	writePageSection(&b, "Recent News", req.Company.PageText(types.PageTypeNews))

	if len(req.Jobs) > 0 {
		b.WriteString("Open Roles: ")
		titles := make([]string, 0, maxPromptJobs)
		for _, job := range req.Jobs {
			titles = append(titles, job.Title)
			if len(titles) == maxPromptJobs {
				break
			}
		}
		b.WriteString(strings.Join(titles, ", "))
		b.WriteString("\n")
	}
	if req.Contact != nil && req.Contact.Name != "" {
		fmt.Fprintf(&b, "Recipient: %s (%s)\n", req.Contact.Name, req.Contact.Title)
	}

	b.WriteString("\nREQUIREMENTS:\n")
	fmt.Fprintf(&b, "1. Message Type: %s\n", strings.ReplaceAll(string(req.Channel), "_", " "))
	fmt.Fprintf(&b, "2. Tone: %s\n", req.Tone)
	fmt.Fprintf(&b, "3. Word Limit: %d words maximum\n", req.Channel.DefaultMaxWords())
	fmt.Fprintf(&b, "4. Include at least 2 inline citations; each must be exactly one of: %s\n", citationMenu(req.Company))
	b.WriteString("5. Do NOT cite raw URLs. Do NOT invent sources.\n")
	b.WriteString("6. Do NOT use generic openings like \"I'm applying for...\" or \"I wanted to reach out...\".\n")

	if len(req.Feedback) > 0 {
		b.WriteString("\nPREVIOUS ATTEMPT HAD ISSUES - FIX THESE:\n")
		for _, fb := range req.Feedback {
			fmt.Fprintf(&b, "- %s\n", fb)
		}
	}

	fmt.Fprintf(&b, "\nGenerate exactly %d variants with different openings and angles.\n", req.numVariants())
	b.WriteString(`
OUTPUT FORMAT (strict JSON, no prose):
{
  "variants": [
    {
      "message": "The full message text",
      "subject": "Email subject line (email only, otherwise null)",
      "citations": ["facts cited with sources"],
      "skills_highlighted": ["skills mentioned"]
    }
  ]
}`)

	return b.String()
}

func writePageSection(b *strings.Builder, label, text string) {
	if text == "" {
		return
	}
	fmt.Fprintf(b, "%s: %s\n", label, truncate(text, maxPageExcerptLength))
}

// citationMenu lists the citation tags valid for this company's scraped
// pages, e.g. "[source: about], [source: news]".
func citationMenu(company *types.Company) string {
	labels := company.SourceLabels()
	if len(labels) == 0 {
		return "[source: about]"
	}
	tags := make([]string, len(labels))
	for i, l := range labels {
		tags[i] = "[source: " + l + "]"
	}
	return strings.Join(tags, ", ")
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

func limit(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}

func joinLimit(items []string, n int) string {
	if len(items) == 0 {
		return "not specified"
	}
	return strings.Join(limit(items, n), ", ")
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
