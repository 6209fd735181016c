package types

import (
	"time"

	"github.com/google/uuid"
)

// OutreachStatus is the lifecycle state of an outreach record.
//
// The legal transitions form a tree:
//
//	draft -> sent -> {replied, no_response, bounced}
//	replied -> {interested, not_interested, needs_info}
type OutreachStatus string

// Outreach statuses.
const (
	StatusDraft         OutreachStatus = "draft"
	StatusSent          OutreachStatus = "sent"
	StatusReplied       OutreachStatus = "replied"
	StatusNoResponse    OutreachStatus = "no_response"
	StatusBounced       OutreachStatus = "bounced"
	StatusInterested    OutreachStatus = "interested"
	StatusNotInterested OutreachStatus = "not_interested"
	StatusNeedsInfo     OutreachStatus = "needs_info"
)

// Terminal reports whether no further transitions are legal from s.
func (s OutreachStatus) Terminal() bool {
	switch s {
	case StatusNoResponse, StatusBounced, StatusInterested, StatusNotInterested, StatusNeedsInfo:
		return true
	}
	return false
}

// ReplySubstates returns the statuses a replied record may move into.
func ReplySubstates() []OutreachStatus {
	return []OutreachStatus{StatusInterested, StatusNotInterested, StatusNeedsInfo}
}

// ReplyCategory classifies the content of a received reply.
type ReplyCategory string

// Reply categories.
const (
	ReplyInterested    ReplyCategory = "interested"
	ReplyNotInterested ReplyCategory = "not_interested"
	ReplyNeedsInfo     ReplyCategory = "needs_info"
	ReplyOutOfOffice   ReplyCategory = "out_of_office"
	ReplySpam          ReplyCategory = "spam"
)

// Valid reports whether the category is a known reply classification.
func (c ReplyCategory) Valid() bool {
	switch c {
	case ReplyInterested, ReplyNotInterested, ReplyNeedsInfo, ReplyOutOfOffice, ReplySpam:
		return true
	}
	return false
}

// Substate maps a reply category to the replied sub-status it implies.
// Out-of-office and spam replies keep the record in the plain replied state.
func (c ReplyCategory) Substate() (OutreachStatus, bool) {
	switch c {
	case ReplyInterested:
		return StatusInterested, true
	case ReplyNotInterested:
		return StatusNotInterested, true
	case ReplyNeedsInfo:
		return StatusNeedsInfo, true
	}
	return "", false
}

// OutreachRecord is the persisted, chosen message variant for a company
// plus its delivery lifecycle. It always references exactly one approved
// variant.
type OutreachRecord struct {
	ID             uuid.UUID      `json:"id"`
	CompanyID      uuid.UUID      `json:"company_id"`
	ContactID      *uuid.UUID     `json:"contact_id,omitempty"`
	CampaignID     *uuid.UUID     `json:"campaign_id,omitempty"`
	TargetRole     string         `json:"target_role"`
	Channel        MessageChannel `json:"channel"`
	Tone           MessageTone    `json:"tone"`
	Status         OutreachStatus `json:"status"`
	Message        string         `json:"message"`
	Subject        string         `json:"subject,omitempty"`
	Citations      []string       `json:"citations,omitempty"`
	WordCount      int            `json:"word_count"`
	GuardrailScore float64        `json:"guardrail_score"`
	CreatedAt      time.Time      `json:"created_at"`
	SentAt         *time.Time     `json:"sent_at,omitempty"`
	RepliedAt      *time.Time     `json:"replied_at,omitempty"`
	ReplyContent   *string        `json:"reply_content,omitempty"`
	ReplyCategory  *ReplyCategory `json:"reply_category,omitempty"`
}

// MaxFollowUpSequence caps the follow-up chain per record.
const MaxFollowUpSequence = 3

// FollowUp is a scheduled re-engagement action tied to one sent record.
type FollowUp struct {
	ID             uuid.UUID  `json:"id"`
	RecordID       uuid.UUID  `json:"record_id"`
	SequenceNumber int        `json:"sequence_number"`
	ScheduledAt    time.Time  `json:"scheduled_at"`
	Completed      bool       `json:"completed"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	Cancelled      bool       `json:"cancelled"`
	Notes          string     `json:"notes,omitempty"`
}

// Pending reports whether the follow-up is still awaiting action.
func (f *FollowUp) Pending() bool {
	return !f.Completed && !f.Cancelled
}

// Campaign groups outreach records by target role and resume fingerprint
// for aggregate analytics.
type Campaign struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	TargetRole  string    `json:"target_role"`
	ResumeHash  string    `json:"resume_hash,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}
