// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/outreach-copilot/internal/crm"
	"github.com/jonathan/outreach-copilot/internal/pipeline"
	"github.com/jonathan/outreach-copilot/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintWorkflowResult outputs a human-readable summary of one workflow run.
func (p *Printer) PrintWorkflowResult(result *pipeline.Result) {
	if result == nil {
		return
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Company:  %s\n", orUnknown(result.CompanyName)))
	sb.WriteString(fmt.Sprintf("Status:   %s\n", result.Status))
	sb.WriteString(fmt.Sprintf("Pages:    %d scraped\n", result.PagesScraped))
	if result.Revisions > 0 {
		sb.WriteString(fmt.Sprintf("Revisions: %d\n", result.Revisions))
	}
	if result.Contact != nil {
		sb.WriteString(fmt.Sprintf("Contact:  %s (%s)\n", result.Contact.Name, result.Contact.Title))
	}
	if result.Reason != "" {
		sb.WriteString(fmt.Sprintf("Reason:   %s\n", result.Reason))
	}
	if result.Status == pipeline.StatusTracked {
		sb.WriteString(fmt.Sprintf("Record:   %s\n", result.RecordID))
	}

	p.printBox("WORKFLOW RESULT", strings.TrimSuffix(sb.String(), "\n"))

	if result.Variant != nil {
		p.PrintVariant(result.Variant)
	}
	if result.Guardrail != nil {
		p.PrintGuardrailReport(result.Guardrail)
	}
}

// PrintVariant outputs the selected message variant.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintVariant(variant *types.MessageVariant) {
	if variant == nil {
		return
	}

	fmt.Fprintf(p.out, "\nSelected message (%d words, %s):\n", variant.WordCount, variant.Channel)
	if variant.Subject != "" {
		fmt.Fprintf(p.out, "Subject: %s\n", variant.Subject)
	}
	fmt.Fprintf(p.out, "%s\n\n", variant.Message)
}

// PrintGuardrailReport outputs the per-check guardrail breakdown.
func (p *Printer) PrintGuardrailReport(result *types.GuardrailResult) {
	if result == nil {
		return
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Decision: %s\n", result.Decision))
	sb.WriteString(fmt.Sprintf("Score:    %.2f (%d/%d checks passed)\n",
		result.OverallScore, result.PassedChecks, result.TotalChecks))

	if len(result.Checks) > 0 {
		sb.WriteString("\n")
		for _, check := range result.Checks {
			mark := "✓"
			if !check.Passed {
				mark = "✗"
			}
			sb.WriteString(fmt.Sprintf("  %s %-14s %.2f\n", mark, check.Name, check.Score))
		}
	}

	if len(result.Feedback) > 0 {
		sb.WriteString("\nFeedback:\n")
		count := min(len(result.Feedback), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  • %s\n", result.Feedback[i]))
		}
	}

	p.printBox("GUARDRAIL REPORT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintBatchSummary outputs per-company outcomes for a batch run.
func (p *Printer) PrintBatchSummary(results []*pipeline.Result) {
	if len(results) == 0 {
		return
	}

	var sb strings.Builder
	counts := map[pipeline.Status]int{}

	for _, result := range results {
		counts[result.Status]++
		sb.WriteString(fmt.Sprintf("%-12s %s\n", result.Status, orUnknown(result.CompanyName)))
	}

	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("tracked %d, rejected %d, failed %d, cancelled %d",
		counts[pipeline.StatusTracked], counts[pipeline.StatusRejected],
		counts[pipeline.StatusFailed], counts[pipeline.StatusCancelled]))

	p.printBox("BATCH SUMMARY", sb.String())
}

// PrintStats outputs outreach analytics.
func (p *Printer) PrintStats(stats *crm.Stats) {
	if stats == nil {
		return
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Sent:        %d\n", stats.TotalSent))
	sb.WriteString(fmt.Sprintf("Replied:     %d\n", stats.TotalReplied))
	sb.WriteString(fmt.Sprintf("Interested:  %d\n", stats.TotalInterested))
	sb.WriteString(fmt.Sprintf("No response: %d\n", stats.TotalNoResponse))
	sb.WriteString(fmt.Sprintf("Bounced:     %d\n", stats.TotalBounced))

	if stats.ReplyRate != nil {
		sb.WriteString(fmt.Sprintf("Reply rate:  %.1f%%\n", *stats.ReplyRate*100))
	} else {
		sb.WriteString("Reply rate:  n/a (nothing sent)\n")
	}
	if stats.AvgResponseHours != nil {
		sb.WriteString(fmt.Sprintf("Avg response: %.1f hours\n", *stats.AvgResponseHours))
	}
	sb.WriteString(fmt.Sprintf("Pending follow-ups: %d", stats.PendingFollowUps))

	p.printBox("OUTREACH STATS", sb.String())
}

// PrintFollowUps outputs due follow-ups, soonest first.
func (p *Printer) PrintFollowUps(followUps []*types.FollowUp) {
	var sb strings.Builder

	if len(followUps) == 0 {
		sb.WriteString("No follow-ups due.")
	}
	for _, followUp := range followUps {
		sb.WriteString(fmt.Sprintf("%s  #%d  record %s\n",
			followUp.ScheduledAt.Format("2006-01-02"),
			followUp.SequenceNumber,
			followUp.RecordID))
	}

	p.printBox("PENDING FOLLOW-UPS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintCampaigns outputs campaigns, newest first.
func (p *Printer) PrintCampaigns(campaigns []*types.Campaign) {
	var sb strings.Builder

	if len(campaigns) == 0 {
		sb.WriteString("No campaigns.")
	}
	for _, campaign := range campaigns {
		state := "active"
		if !campaign.IsActive {
			state = "inactive"
		}
		sb.WriteString(fmt.Sprintf("%s (%s, %s)\n",
			campaign.Name, orUnknown(campaign.TargetRole), state))
		sb.WriteString(fmt.Sprintf("  id %s\n", campaign.ID))
	}

	p.printBox("CAMPAIGNS", strings.TrimSuffix(sb.String(), "\n"))
}

func orUnknown(s string) string {
	if s == "" {
		return "(unknown)"
	}
	return s
}
