// Package crm - stats.go computes aggregate outreach analytics.
package crm

import (
	"context"
	"time"

	"github.com/jonathan/outreach-copilot/internal/types"
)

// Stats summarizes outreach outcomes. ReplyRate is nil (undefined), not
// zero, when nothing has been sent.
type Stats struct {
	TotalSent        int      `json:"total_sent"`
	TotalReplied     int      `json:"total_replied"`
	TotalNoResponse  int      `json:"total_no_response"`
	TotalBounced     int      `json:"total_bounced"`
	TotalInterested  int      `json:"total_interested"`
	ReplyRate        *float64 `json:"reply_rate,omitempty"`
	AvgResponseHours *float64 `json:"avg_response_hours,omitempty"`
	PendingFollowUps int      `json:"pending_follow_ups"`
}

// Stats computes outreach analytics over records matching the filter.
// Reply rate is replied / sent, with bounced sends excluded from the
// denominator.
func (m *Manager) Stats(ctx context.Context, filter RecordFilter) (*Stats, error) {
	records, err := m.store.ListRecords(ctx, filter)
	if err != nil {
		return nil, err
	}

	stats := &Stats{}
	var responseHours []float64

	for _, record := range records {
		if record.SentAt == nil {
			continue
		}
		if record.Status == types.StatusBounced {
			stats.TotalBounced++
			continue
		}
		stats.TotalSent++

		switch record.Status {
		case types.StatusReplied, types.StatusInterested, types.StatusNotInterested, types.StatusNeedsInfo:
			stats.TotalReplied++
			if record.Status == types.StatusInterested {
				stats.TotalInterested++
			}
			if record.RepliedAt != nil {
				responseHours = append(responseHours, record.RepliedAt.Sub(*record.SentAt).Hours())
			}
		case types.StatusNoResponse:
			stats.TotalNoResponse++
		}
	}

	if stats.TotalSent > 0 {
		rate := float64(stats.TotalReplied) / float64(stats.TotalSent)
		stats.ReplyRate = &rate
	}
	if len(responseHours) > 0 {
		var sum float64
		for _, h := range responseHours {
			sum += h
		}
		avg := sum / float64(len(responseHours))
		stats.AvgResponseHours = &avg
	}

	pending, err := m.store.PendingFollowUpsDue(ctx, m.now().UTC().Add(100*365*24*time.Hour))
	if err != nil {
		return nil, err
	}
	stats.PendingFollowUps = len(pending)

	return stats, nil
}
