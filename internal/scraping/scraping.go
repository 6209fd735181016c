// Package scraping discovers and fetches company pages (about, careers,
// news, team) and extracts contacts and job listings from them.
package scraping

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/outreach-copilot/internal/fetch"
	"github.com/jonathan/outreach-copilot/internal/types"
)

// pagePatterns lists the URL paths tried for each page type, in order.
var pagePatterns = map[types.PageType][]string{
	types.PageTypeAbout:   {"/about", "/about-us", "/company", "/who-we-are", "/our-story"},
	types.PageTypeCareers: {"/careers", "/jobs", "/join-us", "/work-with-us", "/opportunities"},
	types.PageTypeNews:    {"/news", "/blog", "/press", "/newsroom", "/media"},
	types.PageTypeTeam:    {"/team", "/leadership", "/our-team", "/people"},
}

// MinPageTextLength is the minimum extracted text length for a page to
// count as found; shorter pages are usually redirects or 404 shells.
const MinPageTextLength = 200

// DefaultCacheTTL is how long a scraped page is reused before re-fetching.
const DefaultCacheTTL = 7 * 24 * time.Hour

// PageCache stores scraped pages so a company is fetched at most once per
// TTL window. Implementations decide where pages live.
type PageCache interface {
	// Get returns the cached page for a URL if present and younger than ttl.
	Get(ctx context.Context, url string, ttl time.Duration) (*types.Page, bool, error)
	// Put stores a freshly scraped page.
	Put(ctx context.Context, page *types.Page) error
}

// Snapshot is the result of scraping one company.
type Snapshot struct {
	Company  *types.Company
	Contacts []*types.Contact
	Jobs     []*types.JobListing
	// FailedPages lists page types for which no pattern produced content.
	FailedPages []types.PageType
}

// Scraper fetches company pages with caching and optional browser fallback.
type Scraper struct {
	fetcher        *fetch.Fetcher
	cache          PageCache
	cacheTTL       time.Duration
	useBrowser     bool
	browserTimeout time.Duration
	logger         *zap.Logger
}

// Option configures a Scraper.
type Option func(*Scraper)

// WithCache enables page caching with the given TTL.
func WithCache(cache PageCache, ttl time.Duration) Option {
	return func(s *Scraper) {
		s.cache = cache
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithBrowser enables headless browser fallback for JS-rendered pages.
func WithBrowser(timeout time.Duration) Option {
	return func(s *Scraper) {
		s.useBrowser = true
		if timeout > 0 {
			s.browserTimeout = timeout
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Scraper) {
		s.logger = logger
	}
}

// NewScraper creates a Scraper on top of a Fetcher.
func NewScraper(fetcher *fetch.Fetcher, opts ...Option) *Scraper {
	s := &Scraper{
		fetcher:        fetcher,
		cacheTTL:       DefaultCacheTTL,
		browserTimeout: 30 * time.Second,
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NormalizeURL ensures a company URL has a scheme and no trailing slash.
func NormalizeURL(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return ""
	}
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		rawURL = "https://" + rawURL
	}
	return strings.TrimRight(rawURL, "/")
}

// ScrapeCompany discovers the company's pages and extracts contacts and
// job listings. Individual page misses are tolerated; an error is returned
// only when no page at all could be fetched.
func (s *Scraper) ScrapeCompany(ctx context.Context, companyURL string, pageTypes ...types.PageType) (*Snapshot, error) {
	companyURL = NormalizeURL(companyURL)
	if _, err := url.ParseRequestURI(companyURL); err != nil {
		return nil, &fetch.Error{Kind: fetch.KindInvalidURL, URL: companyURL, Message: "invalid company URL", Cause: err}
	}

	if len(pageTypes) == 0 {
		pageTypes = types.AllPageTypes()
	}

	company := &types.Company{
		ID:        uuid.New(),
		Name:      types.CompanyNameFromURL(companyURL),
		URL:       companyURL,
		Domain:    types.ExtractDomain(companyURL),
		Pages:     make(map[types.PageType]*types.Page),
		ScrapedAt: time.Now().UTC(),
	}

	snapshot := &Snapshot{Company: company}
	var lastErr error

	for _, pt := range pageTypes {
		page, html, err := s.findPage(ctx, companyURL, pt)
		if err != nil {
			lastErr = err
		}
		if page == nil {
			snapshot.FailedPages = append(snapshot.FailedPages, pt)
			s.logger.Debug("page not found", zap.String("company", company.Name), zap.String("page_type", string(pt)))
			continue
		}

		company.Pages[pt] = page
		s.logger.Debug("page found",
			zap.String("company", company.Name),
			zap.String("page_type", string(pt)),
			zap.String("url", page.URL),
			zap.Int("text_length", len(page.Text)))

		switch pt {
		case types.PageTypeTeam, types.PageTypeAbout:
			snapshot.Contacts = append(snapshot.Contacts, extractContacts(company.ID, html, page.Text, pt)...)
		case types.PageTypeCareers:
			snapshot.Jobs = append(snapshot.Jobs, extractJobs(company.ID, html, page.Text)...)
		}
	}

	if len(company.Pages) == 0 {
		if lastErr != nil {
			return nil, fmt.Errorf("no pages found for %s: %w", companyURL, lastErr)
		}
		return nil, fmt.Errorf("no pages found for %s", companyURL)
	}

	return snapshot, nil
}

// findPage tries the URL patterns for a page type until one yields enough
// text. Returns the page, the raw HTML it was extracted from, and the last
// fetch error seen.
func (s *Scraper) findPage(ctx context.Context, baseURL string, pt types.PageType) (*types.Page, string, error) {
	var lastErr error

	for _, pattern := range pagePatterns[pt] {
		pageURL := baseURL + pattern

		if s.cache != nil {
			if cached, ok, err := s.cache.Get(ctx, pageURL, s.cacheTTL); err == nil && ok {
				return cached, "", nil
			}
		}

		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}

		page, html, err := s.fetchPage(ctx, pageURL, pt)
		if err != nil {
			lastErr = err
			continue
		}
		if page == nil {
			continue
		}

		if s.cache != nil {
			if err := s.cache.Put(ctx, page); err != nil {
				s.logger.Warn("page cache write failed", zap.String("url", pageURL), zap.Error(err))
			}
		}
		return page, html, nil
	}

	return nil, "", lastErr
}

// fetchPage fetches one URL and extracts text, falling back to the
// headless browser for JS-rendered pages when enabled. A nil page with nil
// error means the page exists but has too little content.
func (s *Scraper) fetchPage(ctx context.Context, pageURL string, pt types.PageType) (*types.Page, string, error) {
	result, err := s.fetcher.URL(ctx, pageURL)
	if err != nil {
		return nil, "", err
	}

	html := result.HTML
	text, err := fetch.ExtractMainText(html, fetch.DefaultTextSelectors())
	if err != nil {
		return nil, "", err
	}

	if s.useBrowser && fetch.ShouldUseBrowser(text) {
		rendered, berr := fetch.WithBrowser(ctx, pageURL, s.browserTimeout)
		if berr == nil {
			if btext, terr := fetch.ExtractMainText(rendered, fetch.DefaultTextSelectors()); terr == nil && len(btext) > len(text) {
				html = rendered
				text = btext
			}
		}
	}

	if len(text) < MinPageTextLength {
		return nil, "", nil
	}

	return &types.Page{
		Type:      pt,
		URL:       pageURL,
		Title:     extractTitle(html),
		Text:      text,
		FetchedAt: time.Now().UTC(),
	}, html, nil
}
