package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/outreach-copilot/internal/types"
)

// corporateSuffixes are stripped when normalizing company names.
var corporateSuffixes = []string{"inc", "llc", "ltd", "corp", "corporation", "co", "gmbh"}

// NormalizeName lowercases a company name and strips punctuation and
// corporate suffixes so "Acme, Inc." and "acme" collide.
func NormalizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}

	words := strings.Fields(b.String())
	for len(words) > 1 {
		last := words[len(words)-1]
		trimmed := false
		for _, suffix := range corporateSuffixes {
			if last == suffix {
				words = words[:len(words)-1]
				trimmed = true
				break
			}
		}
		if !trimmed {
			break
		}
	}
	return strings.Join(words, " ")
}

// UpsertCompany persists a company and its scraped pages, keyed by
// normalized name. The company keeps its existing ID on conflict and the
// caller's struct is updated to match.
func (db *DB) UpsertCompany(ctx context.Context, company *types.Company) error {
	normalized := NormalizeName(company.Name)
	if normalized == "" {
		return fmt.Errorf("company name cannot be empty")
	}
	if company.ID == uuid.Nil {
		company.ID = uuid.New()
	}

	err := db.q.QueryRow(ctx,
		`INSERT INTO companies (id, name, name_normalized, url, domain, scraped_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (name_normalized) DO UPDATE SET
		     url = $4, domain = $5, scraped_at = $6, updated_at = NOW()
		 RETURNING id`,
		company.ID, company.Name, normalized, company.URL, company.Domain, company.ScrapedAt,
	).Scan(&company.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert company: %w", err)
	}

	for _, page := range company.Pages {
		if page == nil {
			continue
		}
		if err := db.savePage(ctx, company.ID, page); err != nil {
			return err
		}
	}
	return nil
}

// GetCompany retrieves a company with its scraped pages.
func (db *DB) GetCompany(ctx context.Context, id uuid.UUID) (*types.Company, error) {
	var c types.Company
	err := db.q.QueryRow(ctx,
		`SELECT id, name, url, domain, scraped_at FROM companies WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.URL, &c.Domain, &c.ScrapedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get company: %w", err)
	}

	if err := db.loadPages(ctx, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCompanyByDomain retrieves a company by its registrable domain.
func (db *DB) GetCompanyByDomain(ctx context.Context, domain string) (*types.Company, error) {
	var c types.Company
	err := db.q.QueryRow(ctx,
		`SELECT id, name, url, domain, scraped_at FROM companies WHERE domain = $1`,
		strings.ToLower(domain),
	).Scan(&c.ID, &c.Name, &c.URL, &c.Domain, &c.ScrapedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get company by domain: %w", err)
	}

	if err := db.loadPages(ctx, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (db *DB) loadPages(ctx context.Context, company *types.Company) error {
	rows, err := db.q.Query(ctx,
		`SELECT url, page_type, title, page_text, fetched_at
		 FROM scraped_pages WHERE company_id = $1`,
		company.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to load company pages: %w", err)
	}
	defer rows.Close()

	company.Pages = make(map[types.PageType]*types.Page)
	for rows.Next() {
		var p types.Page
		if err := rows.Scan(&p.URL, &p.Type, &p.Title, &p.Text, &p.FetchedAt); err != nil {
			return fmt.Errorf("failed to scan page: %w", err)
		}
		company.Pages[p.Type] = &p
	}
	return rows.Err()
}

// ReplaceContacts replaces a company's contacts with a fresh extraction.
func (db *DB) ReplaceContacts(ctx context.Context, companyID uuid.UUID, contacts []*types.Contact) error {
	if _, err := db.q.Exec(ctx, `DELETE FROM contacts WHERE company_id = $1`, companyID); err != nil {
		return fmt.Errorf("failed to clear contacts: %w", err)
	}
	for _, contact := range contacts {
		if contact.ID == uuid.Nil {
			contact.ID = uuid.New()
		}
		_, err := db.q.Exec(ctx,
			`INSERT INTO contacts (id, company_id, name, title, email, linkedin_url, relevance_score, source_page)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			contact.ID, companyID, contact.Name, contact.Title, contact.Email,
			contact.LinkedInURL, contact.RelevanceScore, contact.SourcePage,
		)
		if err != nil {
			return fmt.Errorf("failed to insert contact: %w", err)
		}
	}
	return nil
}

// ListContacts retrieves a company's contacts, highest relevance first.
func (db *DB) ListContacts(ctx context.Context, companyID uuid.UUID) ([]*types.Contact, error) {
	rows, err := db.q.Query(ctx,
		`SELECT id, company_id, name, title, email, linkedin_url, relevance_score, source_page
		 FROM contacts WHERE company_id = $1 ORDER BY relevance_score DESC`,
		companyID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	defer rows.Close()

	var contacts []*types.Contact
	for rows.Next() {
		var c types.Contact
		if err := rows.Scan(&c.ID, &c.CompanyID, &c.Name, &c.Title, &c.Email,
			&c.LinkedInURL, &c.RelevanceScore, &c.SourcePage); err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		contacts = append(contacts, &c)
	}
	return contacts, rows.Err()
}

// ReplaceJobListings replaces a company's job listings with a fresh
// extraction.
func (db *DB) ReplaceJobListings(ctx context.Context, companyID uuid.UUID, jobs []*types.JobListing) error {
	if _, err := db.q.Exec(ctx, `DELETE FROM job_listings WHERE company_id = $1`, companyID); err != nil {
		return fmt.Errorf("failed to clear job listings: %w", err)
	}
	for _, job := range jobs {
		if job.ID == uuid.Nil {
			job.ID = uuid.New()
		}
		_, err := db.q.Exec(ctx,
			`INSERT INTO job_listings (id, company_id, title, description, similarity_score)
			 VALUES ($1, $2, $3, $4, $5)`,
			job.ID, companyID, job.Title, job.Description, job.SimilarityScore,
		)
		if err != nil {
			return fmt.Errorf("failed to insert job listing: %w", err)
		}
	}
	return nil
}

// ListJobListings retrieves a company's job listings, best match first.
func (db *DB) ListJobListings(ctx context.Context, companyID uuid.UUID) ([]*types.JobListing, error) {
	rows, err := db.q.Query(ctx,
		`SELECT id, company_id, title, description, similarity_score
		 FROM job_listings WHERE company_id = $1 ORDER BY similarity_score DESC`,
		companyID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list job listings: %w", err)
	}
	defer rows.Close()

	var jobs []*types.JobListing
	for rows.Next() {
		var j types.JobListing
		if err := rows.Scan(&j.ID, &j.CompanyID, &j.Title, &j.Description, &j.SimilarityScore); err != nil {
			return nil, fmt.Errorf("failed to scan job listing: %w", err)
		}
		jobs = append(jobs, &j)
	}
	return jobs, rows.Err()
}

// CreateCampaign inserts a new campaign.
func (db *DB) CreateCampaign(ctx context.Context, campaign *types.Campaign) error {
	if campaign.ID == uuid.Nil {
		campaign.ID = uuid.New()
	}
	err := db.q.QueryRow(ctx,
		`INSERT INTO campaigns (id, name, description, target_role, resume_hash, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at`,
		campaign.ID, campaign.Name, campaign.Description, campaign.TargetRole,
		campaign.ResumeHash, campaign.IsActive,
	).Scan(&campaign.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create campaign: %w", err)
	}
	return nil
}

// GetCampaign retrieves a campaign by ID.
func (db *DB) GetCampaign(ctx context.Context, id uuid.UUID) (*types.Campaign, error) {
	var c types.Campaign
	err := db.q.QueryRow(ctx,
		`SELECT id, name, description, target_role, resume_hash, is_active, created_at
		 FROM campaigns WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.Description, &c.TargetRole, &c.ResumeHash, &c.IsActive, &c.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}
	return &c, nil
}

// ListCampaigns retrieves campaigns, newest first.
func (db *DB) ListCampaigns(ctx context.Context, activeOnly bool) ([]*types.Campaign, error) {
	query := `SELECT id, name, description, target_role, resume_hash, is_active, created_at FROM campaigns`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := db.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	defer rows.Close()

	var campaigns []*types.Campaign
	for rows.Next() {
		var c types.Campaign
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.TargetRole,
			&c.ResumeHash, &c.IsActive, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan campaign: %w", err)
		}
		campaigns = append(campaigns, &c)
	}
	return campaigns, rows.Err()
}
