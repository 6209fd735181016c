package crm

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/outreach-copilot/internal/types"
)

// memStore is an in-memory Store for tests. WithTx runs the callback
// directly; transactional atomicity is the real store's concern.
type memStore struct {
	records   map[uuid.UUID]*types.OutreachRecord
	followUps map[uuid.UUID]*types.FollowUp
}

func newMemStore() *memStore {
	return &memStore{
		records:   make(map[uuid.UUID]*types.OutreachRecord),
		followUps: make(map[uuid.UUID]*types.FollowUp),
	}
}

func (s *memStore) GetRecord(_ context.Context, id uuid.UUID) (*types.OutreachRecord, error) {
	record, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("no record %s", id)
	}
	clone := *record
	return &clone, nil
}

func (s *memStore) SaveRecord(_ context.Context, record *types.OutreachRecord) error {
	clone := *record
	s.records[record.ID] = &clone
	return nil
}

func (s *memStore) ListRecords(_ context.Context, filter RecordFilter) ([]*types.OutreachRecord, error) {
	var out []*types.OutreachRecord
	for _, record := range s.records {
		if filter.Status != nil && record.Status != *filter.Status {
			continue
		}
		clone := *record
		out = append(out, &clone)
	}
	return out, nil
}

func (s *memStore) CreateFollowUp(_ context.Context, followUp *types.FollowUp) error {
	clone := *followUp
	s.followUps[followUp.ID] = &clone
	return nil
}

func (s *memStore) SaveFollowUp(_ context.Context, followUp *types.FollowUp) error {
	clone := *followUp
	s.followUps[followUp.ID] = &clone
	return nil
}

func (s *memStore) GetFollowUp(_ context.Context, id uuid.UUID) (*types.FollowUp, error) {
	followUp, ok := s.followUps[id]
	if !ok {
		return nil, fmt.Errorf("no follow-up %s", id)
	}
	clone := *followUp
	return &clone, nil
}

func (s *memStore) FollowUpsForRecord(_ context.Context, recordID uuid.UUID) ([]*types.FollowUp, error) {
	var out []*types.FollowUp
	for _, followUp := range s.followUps {
		if followUp.RecordID == recordID {
			clone := *followUp
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (s *memStore) PendingFollowUpsForRecord(_ context.Context, recordID uuid.UUID) ([]*types.FollowUp, error) {
	var out []*types.FollowUp
	for _, followUp := range s.followUps {
		if followUp.RecordID == recordID && followUp.Pending() {
			clone := *followUp
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (s *memStore) PendingFollowUpsDue(_ context.Context, before time.Time) ([]*types.FollowUp, error) {
	var out []*types.FollowUp
	for _, followUp := range s.followUps {
		if followUp.Pending() && !followUp.ScheduledAt.After(before) {
			clone := *followUp
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out, nil
}

func (s *memStore) WithTx(ctx context.Context, fn func(Store) error) error {
	return fn(s)
}

var day0 = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

func newTestManager(store *memStore) *Manager {
	m := NewManager(store, DefaultConfig(), nil)
	m.now = func() time.Time { return day0 }
	return m
}

func trackDraft(t *testing.T, m *Manager) uuid.UUID {
	t.Helper()
	record := &types.OutreachRecord{
		CompanyID:  uuid.New(),
		TargetRole: "Backend Engineer",
		Channel:    types.ChannelLinkedInMessage,
		Message:    "message body long enough to matter",
	}
	require.NoError(t, m.Track(context.Background(), record))
	return record.ID
}

func pendingFor(t *testing.T, store *memStore, recordID uuid.UUID) []*types.FollowUp {
	t.Helper()
	pending, err := store.PendingFollowUpsForRecord(context.Background(), recordID)
	require.NoError(t, err)
	return pending
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(types.StatusDraft, types.StatusSent))
	assert.True(t, CanTransition(types.StatusSent, types.StatusReplied))
	assert.True(t, CanTransition(types.StatusReplied, types.StatusInterested))

	assert.False(t, CanTransition(types.StatusDraft, types.StatusInterested))
	assert.False(t, CanTransition(types.StatusSent, types.StatusDraft))
	assert.False(t, CanTransition(types.StatusBounced, types.StatusSent))
}

func TestMarkSentSchedulesFollowUp(t *testing.T) {
	store := newMemStore()
	m := newTestManager(store)
	id := trackDraft(t, m)

	require.NoError(t, m.MarkSent(context.Background(), id))

	record, err := store.GetRecord(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, types.StatusSent, record.Status)
	require.NotNil(t, record.SentAt)

	pending := pendingFor(t, store, id)
	require.Len(t, pending, 1)
	assert.Equal(t, 1, pending[0].SequenceNumber)
	assert.Equal(t, day0.AddDate(0, 0, 7), pending[0].ScheduledAt)
}

func TestMarkSentWithoutAutoSchedule(t *testing.T) {
	store := newMemStore()
	cfg := DefaultConfig()
	cfg.AutoScheduleFollowUps = false
	m := NewManager(store, cfg, nil)
	m.now = func() time.Time { return day0 }

	id := trackDraft(t, m)
	require.NoError(t, m.MarkSent(context.Background(), id))
	assert.Empty(t, pendingFor(t, store, id))
}

func TestIllegalTransition(t *testing.T) {
	store := newMemStore()
	m := newTestManager(store)
	id := trackDraft(t, m)

	// draft -> replied skips sent entirely.
	err := m.MarkReplied(context.Background(), id, "hi", types.ReplyInterested)
	var violation *StateViolationError
	require.True(t, errors.As(err, &violation))
	assert.Equal(t, types.StatusDraft, violation.From)

	// Prior state unchanged.
	record, gerr := store.GetRecord(context.Background(), id)
	require.NoError(t, gerr)
	assert.Equal(t, types.StatusDraft, record.Status)

	// Double-send is also illegal.
	require.NoError(t, m.MarkSent(context.Background(), id))
	err = m.MarkSent(context.Background(), id)
	require.True(t, errors.As(err, &violation))
	assert.Equal(t, types.StatusSent, violation.From)
}

func TestMarkRepliedCancelsAndReschedules(t *testing.T) {
	store := newMemStore()
	m := newTestManager(store)
	id := trackDraft(t, m)
	require.NoError(t, m.MarkSent(context.Background(), id))

	require.NoError(t, m.MarkReplied(context.Background(), id, "tell me more", types.ReplyNeedsInfo))

	record, err := store.GetRecord(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, types.StatusNeedsInfo, record.Status)
	require.NotNil(t, record.ReplyContent)
	assert.Equal(t, "tell me more", *record.ReplyContent)
	require.NotNil(t, record.ReplyCategory)
	assert.Equal(t, types.ReplyNeedsInfo, *record.ReplyCategory)

	// Original day-7 follow-up cancelled, replaced by a day-3 one.
	pending := pendingFor(t, store, id)
	require.Len(t, pending, 1)
	assert.Equal(t, 2, pending[0].SequenceNumber)
	assert.Equal(t, day0.AddDate(0, 0, 3), pending[0].ScheduledAt)
}

func TestMarkRepliedAfterCompletedFollowUp(t *testing.T) {
	store := newMemStore()
	m := newTestManager(store)
	id := trackDraft(t, m)
	require.NoError(t, m.MarkSent(context.Background(), id))

	// Operator works through follow-up 1 without queueing the next, so
	// nothing is pending when the reply lands.
	first := pendingFor(t, store, id)[0]
	require.NoError(t, m.CompleteFollowUp(context.Background(), first.ID, "nudged", false))
	require.Empty(t, pendingFor(t, store, id))

	require.NoError(t, m.MarkReplied(context.Background(), id, "what stack?", types.ReplyNeedsInfo))

	// The reschedule continues the chain past the completed entry instead
	// of reissuing sequence 1.
	pending := pendingFor(t, store, id)
	require.Len(t, pending, 1)
	assert.Equal(t, 2, pending[0].SequenceNumber)
}

func TestMarkRepliedNotInterestedEndsChain(t *testing.T) {
	store := newMemStore()
	m := newTestManager(store)
	id := trackDraft(t, m)
	require.NoError(t, m.MarkSent(context.Background(), id))

	require.NoError(t, m.MarkReplied(context.Background(), id, "no thanks", types.ReplyNotInterested))

	record, err := store.GetRecord(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, types.StatusNotInterested, record.Status)
	assert.Empty(t, pendingFor(t, store, id))
}

func TestMarkRepliedOutOfOfficeKeepsRepliedState(t *testing.T) {
	store := newMemStore()
	m := newTestManager(store)
	id := trackDraft(t, m)
	require.NoError(t, m.MarkSent(context.Background(), id))

	require.NoError(t, m.MarkReplied(context.Background(), id, "back next week", types.ReplyOutOfOffice))

	record, err := store.GetRecord(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, types.StatusReplied, record.Status)
	assert.Empty(t, pendingFor(t, store, id))
}

func TestMarkNoResponseCancelsFollowUps(t *testing.T) {
	store := newMemStore()
	m := newTestManager(store)
	id := trackDraft(t, m)
	require.NoError(t, m.MarkSent(context.Background(), id))

	require.NoError(t, m.MarkNoResponse(context.Background(), id))

	record, err := store.GetRecord(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, types.StatusNoResponse, record.Status)
	assert.Empty(t, pendingFor(t, store, id))
}

func TestCompleteFollowUpSchedulesNext(t *testing.T) {
	store := newMemStore()
	m := newTestManager(store)
	id := trackDraft(t, m)
	require.NoError(t, m.MarkSent(context.Background(), id))

	first := pendingFor(t, store, id)[0]
	require.NoError(t, m.CompleteFollowUp(context.Background(), first.ID, "pinged on LinkedIn", true))

	pending := pendingFor(t, store, id)
	require.Len(t, pending, 1)
	assert.Equal(t, 2, pending[0].SequenceNumber)

	// Chain caps at MaxSequence.
	require.NoError(t, m.CompleteFollowUp(context.Background(), pending[0].ID, "", true))
	pending = pendingFor(t, store, id)
	require.Len(t, pending, 1)
	assert.Equal(t, 3, pending[0].SequenceNumber)

	require.NoError(t, m.CompleteFollowUp(context.Background(), pending[0].ID, "", true))
	assert.Empty(t, pendingFor(t, store, id))

	// Completing a completed follow-up is rejected.
	assert.Error(t, m.CompleteFollowUp(context.Background(), first.ID, "", false))
}

func TestStats(t *testing.T) {
	t.Run("reply rate undefined with zero sent", func(t *testing.T) {
		store := newMemStore()
		m := newTestManager(store)
		trackDraft(t, m)

		stats, err := m.Stats(context.Background(), RecordFilter{})
		require.NoError(t, err)
		assert.Equal(t, 0, stats.TotalSent)
		assert.Nil(t, stats.ReplyRate)
	})

	t.Run("bounced excluded from denominator", func(t *testing.T) {
		store := newMemStore()
		m := newTestManager(store)

		replied := trackDraft(t, m)
		require.NoError(t, m.MarkSent(context.Background(), replied))
		require.NoError(t, m.MarkReplied(context.Background(), replied, "yes", types.ReplyInterested))

		quiet := trackDraft(t, m)
		require.NoError(t, m.MarkSent(context.Background(), quiet))

		bounced := trackDraft(t, m)
		require.NoError(t, m.MarkSent(context.Background(), bounced))
		require.NoError(t, m.MarkBounced(context.Background(), bounced))

		stats, err := m.Stats(context.Background(), RecordFilter{})
		require.NoError(t, err)
		assert.Equal(t, 2, stats.TotalSent)
		assert.Equal(t, 1, stats.TotalReplied)
		assert.Equal(t, 1, stats.TotalBounced)
		assert.Equal(t, 1, stats.TotalInterested)
		require.NotNil(t, stats.ReplyRate)
		assert.InDelta(t, 0.5, *stats.ReplyRate, 1e-9)
	})
}
