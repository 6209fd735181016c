// Package crm owns the outreach record lifecycle: legal status
// transitions, follow-up scheduling, and reply bookkeeping. It is the
// single writer of status fields; other components request transitions
// and never mutate records directly.
package crm

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/outreach-copilot/internal/types"
)

// StateViolationError reports an illegal status transition request. The
// record is left unchanged.
type StateViolationError struct {
	RecordID uuid.UUID
	From     types.OutreachStatus
	To       types.OutreachStatus
}

func (e *StateViolationError) Error() string {
	return fmt.Sprintf("illegal status transition %s -> %s for record %s", e.From, e.To, e.RecordID)
}

// transitions is the legal edge set of the status machine.
var transitions = map[types.OutreachStatus][]types.OutreachStatus{
	types.StatusDraft:   {types.StatusSent},
	types.StatusSent:    {types.StatusReplied, types.StatusNoResponse, types.StatusBounced},
	types.StatusReplied: {types.StatusInterested, types.StatusNotInterested, types.StatusNeedsInfo},
}

// CanTransition reports whether from -> to is a legal edge.
func CanTransition(from, to types.OutreachStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// RecordFilter narrows record listings.
type RecordFilter struct {
	CompanyID  *uuid.UUID
	CampaignID *uuid.UUID
	Status     *types.OutreachStatus
	Since      *time.Time
	Limit      int
}

// Store is the persistence collaborator the manager drives. WithTx runs fn
// against a transactional view; a status change and its follow-up edits
// commit atomically or not at all.
type Store interface {
	GetRecord(ctx context.Context, id uuid.UUID) (*types.OutreachRecord, error)
	SaveRecord(ctx context.Context, record *types.OutreachRecord) error
	ListRecords(ctx context.Context, filter RecordFilter) ([]*types.OutreachRecord, error)

	CreateFollowUp(ctx context.Context, followUp *types.FollowUp) error
	SaveFollowUp(ctx context.Context, followUp *types.FollowUp) error
	GetFollowUp(ctx context.Context, id uuid.UUID) (*types.FollowUp, error)
	FollowUpsForRecord(ctx context.Context, recordID uuid.UUID) ([]*types.FollowUp, error)
	PendingFollowUpsForRecord(ctx context.Context, recordID uuid.UUID) ([]*types.FollowUp, error)
	PendingFollowUpsDue(ctx context.Context, before time.Time) ([]*types.FollowUp, error)

	WithTx(ctx context.Context, fn func(Store) error) error
}

// Config tunes follow-up scheduling.
type Config struct {
	// AutoScheduleFollowUps schedules the first follow-up on MarkSent.
	AutoScheduleFollowUps bool
	// InitialDays is the gap between sending and the first follow-up.
	InitialDays int
	// RescheduleDays is the shorter gap used after an interested or
	// needs_info reply.
	RescheduleDays int
	// MaxSequence caps the follow-up chain per record.
	MaxSequence int
}

// DefaultConfig returns the standard follow-up cadence.
func DefaultConfig() Config {
	return Config{
		AutoScheduleFollowUps: true,
		InitialDays:           7,
		RescheduleDays:        3,
		MaxSequence:           types.MaxFollowUpSequence,
	}
}

// Manager validates and applies status transitions.
type Manager struct {
	store  Store
	cfg    Config
	logger *zap.Logger
	// now is swappable for tests.
	now func() time.Time
}

// NewManager creates a Manager over a store.
func NewManager(store Store, cfg Config, logger *zap.Logger) *Manager {
	if cfg.InitialDays <= 0 {
		cfg.InitialDays = DefaultConfig().InitialDays
	}
	if cfg.RescheduleDays <= 0 {
		cfg.RescheduleDays = DefaultConfig().RescheduleDays
	}
	if cfg.MaxSequence <= 0 {
		cfg.MaxSequence = DefaultConfig().MaxSequence
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{store: store, cfg: cfg, logger: logger, now: time.Now}
}

// Track persists a fresh outreach record in draft state.
func (m *Manager) Track(ctx context.Context, record *types.OutreachRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	record.Status = types.StatusDraft
	record.CreatedAt = m.now().UTC()
	if err := m.store.SaveRecord(ctx, record); err != nil {
		return fmt.Errorf("failed to track outreach record: %w", err)
	}
	m.logger.Info("outreach tracked",
		zap.String("record_id", record.ID.String()),
		zap.String("channel", string(record.Channel)))
	return nil
}

// MarkSent transitions draft -> sent and, when auto-scheduling is on,
// schedules the first follow-up at sent + InitialDays. Both writes commit
// atomically.
func (m *Manager) MarkSent(ctx context.Context, recordID uuid.UUID) error {
	return m.store.WithTx(ctx, func(tx Store) error {
		record, err := m.load(ctx, tx, recordID)
		if err != nil {
			return err
		}
		if !CanTransition(record.Status, types.StatusSent) {
			return &StateViolationError{RecordID: recordID, From: record.Status, To: types.StatusSent}
		}

		now := m.now().UTC()
		record.Status = types.StatusSent
		record.SentAt = &now
		if err := tx.SaveRecord(ctx, record); err != nil {
			return err
		}

		if !m.cfg.AutoScheduleFollowUps {
			return nil
		}
		return m.schedule(ctx, tx, recordID, 1, now.AddDate(0, 0, m.cfg.InitialDays))
	})
}

// MarkReplied transitions sent -> replied, stores the reply, cancels any
// pending follow-ups, and applies the classification. Interested and
// needs_info replies get a fresh follow-up on the shorter cadence;
// terminal classifications end the chain.
func (m *Manager) MarkReplied(ctx context.Context, recordID uuid.UUID, replyContent string, category types.ReplyCategory) error {
	return m.store.WithTx(ctx, func(tx Store) error {
		record, err := m.load(ctx, tx, recordID)
		if err != nil {
			return err
		}
		if !CanTransition(record.Status, types.StatusReplied) {
			return &StateViolationError{RecordID: recordID, From: record.Status, To: types.StatusReplied}
		}

		now := m.now().UTC()
		record.Status = types.StatusReplied
		record.RepliedAt = &now
		if replyContent != "" {
			record.ReplyContent = &replyContent
		}
		record.ReplyCategory = &category

		if substate, ok := category.Substate(); ok {
			record.Status = substate
		}

		if err := tx.SaveRecord(ctx, record); err != nil {
			return err
		}

		// A reply always invalidates the scheduled nudges.
		lastSeq, err := m.cancelPending(ctx, tx, recordID)
		if err != nil {
			return err
		}

		if category == types.ReplyInterested || category == types.ReplyNeedsInfo {
			next := lastSeq + 1
			if next <= m.cfg.MaxSequence {
				return m.schedule(ctx, tx, recordID, next, now.AddDate(0, 0, m.cfg.RescheduleDays))
			}
		}
		return nil
	})
}

// MarkNoResponse transitions sent -> no_response and cancels pending
// follow-ups.
func (m *Manager) MarkNoResponse(ctx context.Context, recordID uuid.UUID) error {
	return m.close(ctx, recordID, types.StatusNoResponse)
}

// MarkBounced transitions sent -> bounced and cancels pending follow-ups.
func (m *Manager) MarkBounced(ctx context.Context, recordID uuid.UUID) error {
	return m.close(ctx, recordID, types.StatusBounced)
}

func (m *Manager) close(ctx context.Context, recordID uuid.UUID, to types.OutreachStatus) error {
	return m.store.WithTx(ctx, func(tx Store) error {
		record, err := m.load(ctx, tx, recordID)
		if err != nil {
			return err
		}
		if !CanTransition(record.Status, to) {
			return &StateViolationError{RecordID: recordID, From: record.Status, To: to}
		}
		record.Status = to
		if err := tx.SaveRecord(ctx, record); err != nil {
			return err
		}
		_, err = m.cancelPending(ctx, tx, recordID)
		return err
	})
}

// PendingFollowUps returns follow-ups due within daysAhead, soonest first.
func (m *Manager) PendingFollowUps(ctx context.Context, daysAhead int) ([]*types.FollowUp, error) {
	cutoff := m.now().UTC().AddDate(0, 0, daysAhead)
	return m.store.PendingFollowUpsDue(ctx, cutoff)
}

// CompleteFollowUp marks a follow-up done and, if requested and the chain
// is not exhausted, schedules the next one on the standard cadence.
func (m *Manager) CompleteFollowUp(ctx context.Context, followUpID uuid.UUID, notes string, scheduleNext bool) error {
	return m.store.WithTx(ctx, func(tx Store) error {
		followUp, err := tx.GetFollowUp(ctx, followUpID)
		if err != nil {
			return fmt.Errorf("follow-up %s not found: %w", followUpID, err)
		}
		if !followUp.Pending() {
			return fmt.Errorf("follow-up %s is not pending", followUpID)
		}

		now := m.now().UTC()
		followUp.Completed = true
		followUp.CompletedAt = &now
		if notes != "" {
			followUp.Notes = notes
		}
		if err := tx.SaveFollowUp(ctx, followUp); err != nil {
			return err
		}

		if scheduleNext && followUp.SequenceNumber < m.cfg.MaxSequence {
			return m.schedule(ctx, tx, followUp.RecordID, followUp.SequenceNumber+1, now.AddDate(0, 0, m.cfg.InitialDays))
		}
		return nil
	})
}

func (m *Manager) load(ctx context.Context, tx Store, recordID uuid.UUID) (*types.OutreachRecord, error) {
	record, err := tx.GetRecord(ctx, recordID)
	if err != nil {
		return nil, fmt.Errorf("record %s not found: %w", recordID, err)
	}
	return record, nil
}

func (m *Manager) schedule(ctx context.Context, tx Store, recordID uuid.UUID, sequence int, at time.Time) error {
	followUp := &types.FollowUp{
		ID:             uuid.New(),
		RecordID:       recordID,
		SequenceNumber: sequence,
		ScheduledAt:    at,
	}
	if err := tx.CreateFollowUp(ctx, followUp); err != nil {
		return fmt.Errorf("failed to schedule follow-up: %w", err)
	}
	m.logger.Info("follow-up scheduled",
		zap.String("record_id", recordID.String()),
		zap.Int("sequence", sequence),
		zap.Time("scheduled_at", at))
	return nil
}

// cancelPending cancels all pending follow-ups for a record and returns
// the highest sequence number seen across the record's chain. Completed
// and cancelled follow-ups count toward the sequence so a reschedule never
// reuses a number already burned.
func (m *Manager) cancelPending(ctx context.Context, tx Store, recordID uuid.UUID) (int, error) {
	chain, err := tx.FollowUpsForRecord(ctx, recordID)
	if err != nil {
		return 0, err
	}
	lastSeq := 0
	for _, followUp := range chain {
		if followUp.SequenceNumber > lastSeq {
			lastSeq = followUp.SequenceNumber
		}
		if !followUp.Pending() {
			continue
		}
		followUp.Cancelled = true
		if err := tx.SaveFollowUp(ctx, followUp); err != nil {
			return 0, err
		}
	}
	return lastSeq, nil
}
