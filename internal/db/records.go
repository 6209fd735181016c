package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/outreach-copilot/internal/crm"
	"github.com/jonathan/outreach-copilot/internal/types"
)

const recordColumns = `id, company_id, contact_id, campaign_id, target_role, channel, tone, status,
	message, subject, citations, word_count, guardrail_score,
	created_at, sent_at, replied_at, reply_content, reply_category`

func scanRecord(row pgx.Row) (*types.OutreachRecord, error) {
	var r types.OutreachRecord
	err := row.Scan(&r.ID, &r.CompanyID, &r.ContactID, &r.CampaignID, &r.TargetRole, &r.Channel, &r.Tone, &r.Status,
		&r.Message, &r.Subject, &r.Citations, &r.WordCount, &r.GuardrailScore,
		&r.CreatedAt, &r.SentAt, &r.RepliedAt, &r.ReplyContent, &r.ReplyCategory)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// GetRecord retrieves an outreach record by ID.
func (db *DB) GetRecord(ctx context.Context, id uuid.UUID) (*types.OutreachRecord, error) {
	record, err := scanRecord(db.q.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM outreach_records WHERE id = $1`, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("outreach record %s not found", id)
		}
		return nil, fmt.Errorf("failed to get outreach record: %w", err)
	}
	return record, nil
}

// SaveRecord inserts or updates an outreach record.
func (db *DB) SaveRecord(ctx context.Context, record *types.OutreachRecord) error {
	_, err := db.q.Exec(ctx,
		`INSERT INTO outreach_records (`+recordColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		 ON CONFLICT (id) DO UPDATE SET
		     contact_id = $3,
		     campaign_id = $4,
		     status = $8,
		     message = $9,
		     subject = $10,
		     citations = $11,
		     word_count = $12,
		     guardrail_score = $13,
		     sent_at = $15,
		     replied_at = $16,
		     reply_content = $17,
		     reply_category = $18`,
		record.ID, record.CompanyID, record.ContactID, record.CampaignID, record.TargetRole,
		record.Channel, record.Tone, record.Status, record.Message, record.Subject,
		record.Citations, record.WordCount, record.GuardrailScore,
		record.CreatedAt, record.SentAt, record.RepliedAt, record.ReplyContent, record.ReplyCategory,
	)
	if err != nil {
		return fmt.Errorf("failed to save outreach record: %w", err)
	}
	return nil
}

// ListRecords retrieves outreach records matching the filter, newest first.
func (db *DB) ListRecords(ctx context.Context, filter crm.RecordFilter) ([]*types.OutreachRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM outreach_records WHERE 1=1`
	args := []any{}
	argNum := 1

	if filter.CompanyID != nil {
		query += fmt.Sprintf(" AND company_id = $%d", argNum)
		args = append(args, *filter.CompanyID)
		argNum++
	}
	if filter.CampaignID != nil {
		query += fmt.Sprintf(" AND campaign_id = $%d", argNum)
		args = append(args, *filter.CampaignID)
		argNum++
	}
	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argNum)
		args = append(args, *filter.Status)
		argNum++
	}
	if filter.Since != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argNum)
		args = append(args, *filter.Since)
		argNum++
	}

	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argNum)
		args = append(args, filter.Limit)
	}

	rows, err := db.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list outreach records: %w", err)
	}
	defer rows.Close()

	var records []*types.OutreachRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan outreach record: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

const followUpColumns = `id, record_id, sequence_number, scheduled_at, completed, completed_at, cancelled, notes`

func scanFollowUp(row pgx.Row) (*types.FollowUp, error) {
	var f types.FollowUp
	err := row.Scan(&f.ID, &f.RecordID, &f.SequenceNumber, &f.ScheduledAt,
		&f.Completed, &f.CompletedAt, &f.Cancelled, &f.Notes)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// CreateFollowUp inserts a new follow-up.
func (db *DB) CreateFollowUp(ctx context.Context, followUp *types.FollowUp) error {
	_, err := db.q.Exec(ctx,
		`INSERT INTO follow_ups (`+followUpColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		followUp.ID, followUp.RecordID, followUp.SequenceNumber, followUp.ScheduledAt,
		followUp.Completed, followUp.CompletedAt, followUp.Cancelled, followUp.Notes,
	)
	if err != nil {
		return fmt.Errorf("failed to create follow-up: %w", err)
	}
	return nil
}

// SaveFollowUp updates an existing follow-up.
func (db *DB) SaveFollowUp(ctx context.Context, followUp *types.FollowUp) error {
	tag, err := db.q.Exec(ctx,
		`UPDATE follow_ups
		 SET scheduled_at = $2, completed = $3, completed_at = $4, cancelled = $5, notes = $6
		 WHERE id = $1`,
		followUp.ID, followUp.ScheduledAt, followUp.Completed, followUp.CompletedAt,
		followUp.Cancelled, followUp.Notes,
	)
	if err != nil {
		return fmt.Errorf("failed to save follow-up: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("follow-up %s not found", followUp.ID)
	}
	return nil
}

// GetFollowUp retrieves a follow-up by ID.
func (db *DB) GetFollowUp(ctx context.Context, id uuid.UUID) (*types.FollowUp, error) {
	followUp, err := scanFollowUp(db.q.QueryRow(ctx,
		`SELECT `+followUpColumns+` FROM follow_ups WHERE id = $1`, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("follow-up %s not found", id)
		}
		return nil, fmt.Errorf("failed to get follow-up: %w", err)
	}
	return followUp, nil
}

// FollowUpsForRecord retrieves a record's full follow-up chain, completed
// and cancelled entries included.
func (db *DB) FollowUpsForRecord(ctx context.Context, recordID uuid.UUID) ([]*types.FollowUp, error) {
	return db.queryFollowUps(ctx,
		`SELECT `+followUpColumns+` FROM follow_ups
		 WHERE record_id = $1
		 ORDER BY sequence_number`,
		recordID)
}

// PendingFollowUpsForRecord retrieves a record's pending follow-ups.
func (db *DB) PendingFollowUpsForRecord(ctx context.Context, recordID uuid.UUID) ([]*types.FollowUp, error) {
	return db.queryFollowUps(ctx,
		`SELECT `+followUpColumns+` FROM follow_ups
		 WHERE record_id = $1 AND NOT completed AND NOT cancelled
		 ORDER BY sequence_number`,
		recordID)
}

// PendingFollowUpsDue retrieves all pending follow-ups scheduled at or
// before the cutoff, soonest first.
func (db *DB) PendingFollowUpsDue(ctx context.Context, before time.Time) ([]*types.FollowUp, error) {
	return db.queryFollowUps(ctx,
		`SELECT `+followUpColumns+` FROM follow_ups
		 WHERE NOT completed AND NOT cancelled AND scheduled_at <= $1
		 ORDER BY scheduled_at`,
		before)
}

func (db *DB) queryFollowUps(ctx context.Context, query string, args ...any) ([]*types.FollowUp, error) {
	rows, err := db.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list follow-ups: %w", err)
	}
	defer rows.Close()

	var followUps []*types.FollowUp
	for rows.Next() {
		followUp, err := scanFollowUp(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan follow-up: %w", err)
		}
		followUps = append(followUps, followUp)
	}
	return followUps, rows.Err()
}
