// Package fetch provides polite URL fetching and HTML-to-text processing.
// This package centralizes the HTTP logic used by company page scraping.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 30 * time.Second

// DefaultUserAgent is the user agent string for HTTP requests.
const DefaultUserAgent = "Mozilla/5.0 (compatible; OutreachAgent/1.0)"

// DefaultRequestDelay is the minimum gap between requests to the same host.
const DefaultRequestDelay = 2 * time.Second

// ErrorKind classifies fetch failures.
type ErrorKind string

// Fetch failure kinds.
const (
	KindInvalidURL       ErrorKind = "invalid_url"
	KindTimeout          ErrorKind = "timeout"
	KindHTTPError        ErrorKind = "http_error"
	KindRobotsDisallowed ErrorKind = "robots_disallowed"
)

// Error represents an error during URL fetching.
type Error struct {
	Kind    ErrorKind
	URL     string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch %s for %s: %s: %v", e.Kind, e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("fetch %s for %s: %s", e.Kind, e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Result holds the raw and processed content from a URL fetch.
type Result struct {
	URL         string
	HTML        string
	Text        string
	ContentType string
	StatusCode  int
}

// Options configures the fetch behavior.
type Options struct {
	Timeout      time.Duration
	UserAgent    string
	RequestDelay time.Duration
	Headers      map[string]string
	// SkipRobots disables robots.txt consultation. Tests use this.
	SkipRobots bool
}

// DefaultOptions returns sensible defaults for fetching.
func DefaultOptions() *Options {
	return &Options{
		Timeout:      DefaultTimeout,
		UserAgent:    DefaultUserAgent,
		RequestDelay: DefaultRequestDelay,
	}
}

// Fetcher fetches URLs with a per-host courtesy delay and robots.txt
// awareness. It is safe for concurrent use.
type Fetcher struct {
	opts   *Options
	client *http.Client

	mu      sync.Mutex
	lastHit map[string]time.Time
	robots  map[string]*robotsRules
}

// NewFetcher creates a Fetcher with the given options.
func NewFetcher(opts *Options) *Fetcher {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &Fetcher{
		opts:    opts,
		client:  &http.Client{Timeout: opts.Timeout},
		lastHit: make(map[string]time.Time),
		robots:  make(map[string]*robotsRules),
	}
}

// URL retrieves HTML content from a URL, waiting out the per-host delay
// and honoring robots.txt disallow rules first.
func (f *Fetcher) URL(ctx context.Context, urlStr string) (*Result, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, &Error{Kind: KindInvalidURL, URL: urlStr, Message: "invalid URL", Cause: err}
	}

	if !f.opts.SkipRobots {
		allowed, err := f.robotsAllowed(ctx, parsedURL)
		if err == nil && !allowed {
			return nil, &Error{Kind: KindRobotsDisallowed, URL: urlStr, Message: "disallowed by robots.txt"}
		}
	}

	if err := f.waitTurn(ctx, parsedURL.Host); err != nil {
		return nil, &Error{Kind: KindTimeout, URL: urlStr, Message: "cancelled while waiting for request slot", Cause: err}
	}

	return f.doFetch(ctx, urlStr)
}

// waitTurn blocks until at least RequestDelay has passed since the last
// request to host, or the context is done.
func (f *Fetcher) waitTurn(ctx context.Context, host string) error {
	f.mu.Lock()
	last, seen := f.lastHit[host]
	now := time.Now()
	next := now
	if seen {
		if earliest := last.Add(f.opts.RequestDelay); earliest.After(now) {
			next = earliest
		}
	}
	f.lastHit[host] = next
	f.mu.Unlock()

	if wait := time.Until(next); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return nil
}

func (f *Fetcher) doFetch(ctx context.Context, urlStr string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, &Error{Kind: KindInvalidURL, URL: urlStr, Message: "failed to create request", Cause: err}
	}

	req.Header.Set("User-Agent", f.opts.UserAgent)
	for key, value := range f.opts.Headers {
		req.Header.Set(key, value)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		kind := KindHTTPError
		if ctx.Err() != nil || isTimeout(err) {
			kind = KindTimeout
		}
		return nil, &Error{Kind: kind, URL: urlStr, Message: "HTTP request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindHTTPError, URL: urlStr, Message: "failed to read response body", Cause: err}
	}

	result := &Result{
		URL:         urlStr,
		HTML:        string(bodyBytes),
		ContentType: resp.Header.Get("Content-Type"),
		StatusCode:  resp.StatusCode,
	}

	if resp.StatusCode != http.StatusOK {
		return result, &Error{
			Kind:    KindHTTPError,
			URL:     urlStr,
			Message: fmt.Sprintf("HTTP status %d", resp.StatusCode),
		}
	}

	return result, nil
}

func isTimeout(err error) bool {
	type timeout interface{ Timeout() bool }
	for e := err; e != nil; {
		if t, ok := e.(timeout); ok && t.Timeout() {
			return true
		}
		u, ok := e.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		e = u.Unwrap()
	}
	return false
}

// ExtractMainText parses HTML and returns the main body text.
// It removes noise elements, then finds content using contentSelectors.
// If no content selectors match, it falls back to the body element.
func ExtractMainText(html string, contentSelectors []string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	// Remove common unwanted elements (nav, footer, scripts, ads, etc.)
	doc.Find("nav, footer, header, script, style, noscript, .ad, .advertisement, .ads, .sidebar, .cookie-banner, .popup").Remove()

	var mainContent *goquery.Selection
	for _, selector := range contentSelectors {
		if selection := doc.Find(selector); selection.Length() > 0 {
			mainContent = selection.First()
			break
		}
	}

	if mainContent == nil {
		mainContent = doc.Find("body")
	}

	text := mainContent.Text()
	text = cleanWhitespace(text)

	return text, nil
}

// DefaultTextSelectors returns standard selectors for general web content.
func DefaultTextSelectors() []string {
	return []string{
		"main",
		"article",
		".content",
		"#content",
		".main-content",
		"#main-content",
	}
}

// cleanWhitespace normalizes whitespace in text.
func cleanWhitespace(text string) string {
	lines := strings.Split(text, "\n")
	var cleaned []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}
