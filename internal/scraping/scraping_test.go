package scraping

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/outreach-copilot/internal/fetch"
	"github.com/jonathan/outreach-copilot/internal/types"
)

var aboutHTML = `<html><head><title>About Acme</title></head><body><main>
<p>Acme builds launch vehicles for small satellites. Founded in 2019, the
company has flown twelve missions and operates its own test range in the
Mojave desert. Acme recently raised a Series B round to scale its engine
production line and expand the avionics team beyond fifty people.</p>
</main></body></html>`

var teamHTML = `<html><head><title>Team</title></head><body><main>
<p>Meet the people behind Acme. We are a small crew of engineers and
operators who like hard problems, fast iteration loops, and the occasional
static fire on a Friday afternoon. These are the folks you will talk to.</p>
<div class="team-member"><h3>Dana Rivera</h3><p>Head of Talent</p>
<a href="https://linkedin.com/in/danarivera">LinkedIn</a></div>
<div class="team-member"><h3>Sam Okafor</h3><p>Engineering Manager</p></div>
</main></body></html>`

var careersHTML = `<html><head><title>Careers</title></head><body><main>
<p>We are hiring across the stack. Acme offers relocation support, an
on-site machine shop, and a launch bonus for every mission that reaches
orbit. All roles are on-site in Mojave, California unless noted below.</p>
<ul>
<li><a href="/jobs/backend">Backend Engineer</a></li>
<li><a href="/jobs/gnc">GNC Engineer</a></li>
</ul>
</main></body></html>`

func newCompanyServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/about", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(aboutHTML)) })
	mux.HandleFunc("/team", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(teamHTML)) })
	mux.HandleFunc("/careers", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(careersHTML)) })
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) { http.NotFound(w, r) })
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func testScraper(opts ...Option) *Scraper {
	fetcher := fetch.NewFetcher(&fetch.Options{
		Timeout:    5 * time.Second,
		UserAgent:  fetch.DefaultUserAgent,
		SkipRobots: true,
	})
	return NewScraper(fetcher, opts...)
}

type memoryCache struct {
	mu    sync.Mutex
	pages map[string]*types.Page
	puts  int
	gets  int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{pages: make(map[string]*types.Page)}
}

func (m *memoryCache) Get(_ context.Context, url string, ttl time.Duration) (*types.Page, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	page, ok := m.pages[url]
	if !ok || time.Since(page.FetchedAt) > ttl {
		return nil, false, nil
	}
	return page, true, nil
}

func (m *memoryCache) Put(_ context.Context, page *types.Page) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	m.pages[page.URL] = page
	return nil
}

func TestNormalizeURL(t *testing.T) {
	assert.Equal(t, "https://acme.io", NormalizeURL("acme.io"))
	assert.Equal(t, "https://acme.io", NormalizeURL("https://acme.io/"))
	assert.Equal(t, "http://acme.io", NormalizeURL("http://acme.io"))
	assert.Equal(t, "", NormalizeURL("  "))
}

func TestScrapeCompany(t *testing.T) {
	server := newCompanyServer(t)
	s := testScraper()

	snapshot, err := s.ScrapeCompany(context.Background(), server.URL)
	require.NoError(t, err)

	company := snapshot.Company
	assert.Contains(t, company.Pages, types.PageTypeAbout)
	assert.Contains(t, company.Pages, types.PageTypeTeam)
	assert.Contains(t, company.Pages, types.PageTypeCareers)
	assert.Contains(t, snapshot.FailedPages, types.PageTypeNews)

	assert.Equal(t, "About Acme", company.Pages[types.PageTypeAbout].Title)
	assert.Contains(t, company.PageText(types.PageTypeAbout), "launch vehicles")

	require.Len(t, snapshot.Contacts, 2)
	assert.Equal(t, "Dana Rivera", snapshot.Contacts[0].Name)
	assert.Equal(t, "Head of Talent", snapshot.Contacts[0].Title)
	assert.Equal(t, "https://linkedin.com/in/danarivera", snapshot.Contacts[0].LinkedInURL)
	assert.Equal(t, types.PageTypeTeam, snapshot.Contacts[0].SourcePage)

	require.Len(t, snapshot.Jobs, 2)
	titles := []string{snapshot.Jobs[0].Title, snapshot.Jobs[1].Title}
	assert.Contains(t, titles, "Backend Engineer")
	assert.Contains(t, titles, "GNC Engineer")
}

func TestScrapeCompanyNoPages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	_, err := testScraper().ScrapeCompany(context.Background(), server.URL)
	assert.Error(t, err)
}

func TestScrapeCompanyUsesCache(t *testing.T) {
	server := newCompanyServer(t)
	cache := newMemoryCache()

	s := testScraper(WithCache(cache, time.Hour))
	_, err := s.ScrapeCompany(context.Background(), server.URL, types.PageTypeAbout)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.puts)

	// Same URL again with the server gone: the cache must answer without
	// touching the network.
	server.Close()
	cached := testScraper(WithCache(cache, time.Hour))
	snapshot, err := cached.ScrapeCompany(context.Background(), server.URL, types.PageTypeAbout)
	require.NoError(t, err)
	assert.Contains(t, snapshot.Company.PageText(types.PageTypeAbout), "launch vehicles")
}

func TestExtractContactsFromText(t *testing.T) {
	text := strings.Join([]string{
		"Our Team",
		"Maya Chen - Technical Recruiter",
		"Random paragraph about the office dog and snacks.",
		"Jordan Lee",
		"VP of Engineering",
	}, "\n")

	contacts := extractContactsFromText(uuid.Nil, text, types.PageTypeTeam)
	require.Len(t, contacts, 2)
	assert.Equal(t, "Maya Chen", contacts[0].Name)
	assert.Equal(t, "Technical Recruiter", contacts[0].Title)
	assert.Equal(t, "Jordan Lee", contacts[1].Name)
	assert.Equal(t, "VP of Engineering", contacts[1].Title)
}

func TestCleanJobTitle(t *testing.T) {
	assert.Equal(t, "Backend Engineer", cleanJobTitle("  Backend   Engineer "))
	assert.Equal(t, "", cleanJobTitle("We sell widgets"))
	assert.Equal(t, "", cleanJobTitle("hi"))
	assert.Equal(t, "", cleanJobTitle("Our engineers enjoy many perks. They work hard. They also nap in the office pods sometimes."))
}

func TestExtractTitle(t *testing.T) {
	assert.Equal(t, "Hello", extractTitle("<html><head><title>Hello</title></head></html>"))
	assert.Equal(t, "", extractTitle("<html><body>no title</body></html>"))
}
