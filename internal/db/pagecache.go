package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/outreach-copilot/internal/types"
)

// Get returns the cached page for a URL if present and younger than ttl.
// It satisfies the scraper's page cache interface.
func (db *DB) Get(ctx context.Context, url string, ttl time.Duration) (*types.Page, bool, error) {
	var p types.Page
	err := db.q.QueryRow(ctx,
		`SELECT url, page_type, title, page_text, fetched_at
		 FROM scraped_pages WHERE url = $1 AND fetched_at > $2`,
		url, time.Now().Add(-ttl),
	).Scan(&p.URL, &p.Type, &p.Title, &p.Text, &p.FetchedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read page cache: %w", err)
	}
	return &p, true, nil
}

// Put stores a freshly scraped page. Pages cached before their company is
// persisted carry no company reference until UpsertCompany links them.
func (db *DB) Put(ctx context.Context, page *types.Page) error {
	return db.savePage(ctx, uuid.Nil, page)
}

func (db *DB) savePage(ctx context.Context, companyID uuid.UUID, page *types.Page) error {
	var companyRef *uuid.UUID
	if companyID != uuid.Nil {
		companyRef = &companyID
	}

	_, err := db.q.Exec(ctx,
		`INSERT INTO scraped_pages (url, company_id, page_type, title, page_text, fetched_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (url) DO UPDATE SET
		     company_id = COALESCE($2, scraped_pages.company_id),
		     page_type = $3, title = $4, page_text = $5, fetched_at = $6`,
		page.URL, companyRef, page.Type, page.Title, page.Text, page.FetchedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to cache page: %w", err)
	}
	return nil
}

// PruneExpiredPages removes cached pages older than ttl.
func (db *DB) PruneExpiredPages(ctx context.Context, ttl time.Duration) (int64, error) {
	tag, err := db.q.Exec(ctx,
		`DELETE FROM scraped_pages WHERE fetched_at <= $1`, time.Now().Add(-ttl))
	if err != nil {
		return 0, fmt.Errorf("failed to prune page cache: %w", err)
	}
	return tag.RowsAffected(), nil
}
