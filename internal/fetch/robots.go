// Package fetch - robots.go implements a minimal robots.txt check.
package fetch

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// robotsRules holds the Disallow prefixes that apply to our user agent.
type robotsRules struct {
	disallow []string
}

func (r *robotsRules) allowed(path string) bool {
	if r == nil {
		return true
	}
	if path == "" {
		path = "/"
	}
	for _, prefix := range r.disallow {
		if prefix != "" && strings.HasPrefix(path, prefix) {
			return false
		}
	}
	return true
}

// robotsAllowed reports whether robots.txt permits fetching u. Rules are
// fetched once per host and cached. Hosts with no reachable robots.txt
// allow everything.
func (f *Fetcher) robotsAllowed(ctx context.Context, u *url.URL) (bool, error) {
	f.mu.Lock()
	rules, ok := f.robots[u.Host]
	f.mu.Unlock()

	if !ok {
		rules = f.fetchRobots(ctx, u)
		f.mu.Lock()
		f.robots[u.Host] = rules
		f.mu.Unlock()
	}

	return rules.allowed(u.Path), nil
}

func (f *Fetcher) fetchRobots(ctx context.Context, u *url.URL) *robotsRules {
	robotsURL := u.Scheme + "://" + u.Host + "/robots.txt"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return nil
	}

	return parseRobots(string(body))
}

// parseRobots extracts the Disallow rules from the "*" user-agent group.
func parseRobots(content string) *robotsRules {
	rules := &robotsRules{}
	inWildcard := false

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if idx := strings.Index(line, "#"); idx >= 0 {
			line = strings.TrimSpace(line[:idx])
		}
		if line == "" {
			continue
		}

		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		switch key {
		case "user-agent":
			inWildcard = value == "*"
		case "disallow":
			if inWildcard && value != "" {
				rules.disallow = append(rules.disallow, value)
			}
		}
	}

	return rules
}
