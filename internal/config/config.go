// Package config provides configuration loading and validation for the
// outreach agent CLI and server.
package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
)

// LLMConfig configures the generation collaborator.
type LLMConfig struct {
	APIKey      string  `json:"api_key,omitempty"`
	Model       string  `json:"model,omitempty"`
	Temperature float64 `json:"temperature,omitempty" validate:"gte=0,lte=2"`
	MaxTokens   int     `json:"max_tokens,omitempty" validate:"gte=0"`
	// TimeoutSeconds bounds a single LLM call.
	TimeoutSeconds int `json:"timeout_seconds,omitempty" validate:"gte=0"`
}

// ScraperConfig configures company page fetching.
type ScraperConfig struct {
	// RequestDelaySeconds is the minimum delay between requests to the
	// same host.
	RequestDelaySeconds float64 `json:"request_delay_seconds,omitempty" validate:"gte=0"`
	TimeoutSeconds      int     `json:"timeout_seconds,omitempty" validate:"gte=0"`
	UseBrowser          bool    `json:"use_browser,omitempty"`
	// CacheTTLDays controls how long scraped pages are reused before a
	// fresh fetch is forced.
	CacheTTLDays int    `json:"cache_ttl_days,omitempty" validate:"gte=0"`
	UserAgent    string `json:"user_agent,omitempty"`
}

// GuardrailWeights holds the per-check weights of the quality gate.
// The five weights must sum to 1.0.
type GuardrailWeights struct {
	Length   float64 `json:"length" validate:"gte=0,lte=1"`
	Citation float64 `json:"citation" validate:"gte=0,lte=1"`
	Generic  float64 `json:"generic" validate:"gte=0,lte=1"`
	Fact     float64 `json:"fact" validate:"gte=0,lte=1"`
	Tone     float64 `json:"tone" validate:"gte=0,lte=1"`
}

// Sum returns the total weight.
func (w GuardrailWeights) Sum() float64 {
	return w.Length + w.Citation + w.Generic + w.Fact + w.Tone
}

// GuardrailConfig configures the message quality gate.
type GuardrailConfig struct {
	Weights GuardrailWeights `json:"weights"`
	// ApproveThreshold and ReviseThreshold split the overall score into
	// approved / needs_revision / rejected bands.
	ApproveThreshold float64 `json:"approve_threshold,omitempty" validate:"gte=0,lte=1"`
	ReviseThreshold  float64 `json:"revise_threshold,omitempty" validate:"gte=0,lte=1"`
	MinCitations     int     `json:"min_citations,omitempty" validate:"gte=0"`
	// MaxRevisions bounds regenerate-on-needs_revision loops.
	MaxRevisions int  `json:"max_revisions,omitempty" validate:"gte=0"`
	Skip         bool `json:"skip,omitempty"`
}

// FollowUpConfig configures follow-up scheduling.
type FollowUpConfig struct {
	// InitialDays is the gap between sending and the first follow-up.
	InitialDays int `json:"initial_days,omitempty" validate:"gte=0"`
	// RescheduleDays is the gap used after an interested or needs_info reply.
	RescheduleDays int `json:"reschedule_days,omitempty" validate:"gte=0"`
	MaxSequence    int `json:"max_sequence,omitempty" validate:"gte=0"`
}

// BatchConfig configures concurrent multi-company runs.
type BatchConfig struct {
	Workers int `json:"workers,omitempty" validate:"gte=0"`
	// ScrapeSlots and LLMSlots cap in-flight external calls across the
	// whole batch, independent of worker count.
	ScrapeSlots int `json:"scrape_slots,omitempty" validate:"gte=0"`
	LLMSlots    int `json:"llm_slots,omitempty" validate:"gte=0"`
}

// ServerConfig configures the optional HTTP API.
type ServerConfig struct {
	Addr      string `json:"addr,omitempty"`
	JWTSecret string `json:"jwt_secret,omitempty"`
	// TokenTTLMinutes bounds issued session tokens.
	TokenTTLMinutes int `json:"token_ttl_minutes,omitempty" validate:"gte=0"`
}

// Config represents the agent configuration that can be loaded from a JSON
// file. All fields are optional; missing values use defaults or must be
// provided via CLI flags.
type Config struct {
	LLM       LLMConfig       `json:"llm"`
	Scraper   ScraperConfig   `json:"scraper"`
	Guardrail GuardrailConfig `json:"guardrail"`
	FollowUp  FollowUpConfig  `json:"follow_up"`
	Batch     BatchConfig     `json:"batch"`
	Server    ServerConfig    `json:"server"`

	DatabaseURL string `json:"database_url,omitempty"`
	ResumePath  string `json:"resume,omitempty"`
	Verbose     bool   `json:"verbose,omitempty"`
}

// weightSumTolerance absorbs float rounding when checking that guardrail
// weights sum to 1.
const weightSumTolerance = 1e-6

var validate = validator.New(validator.WithRequiredStructEnabled())

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values. Weight-sum and
// threshold-ordering violations are construction-time errors: no workflow
// may start with a broken quality gate.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	if sum := c.Guardrail.Weights.Sum(); math.Abs(sum-1.0) > weightSumTolerance {
		return fmt.Errorf("config error: guardrail weights must sum to 1.0, got %.4f", sum)
	}

	if c.Guardrail.ApproveThreshold < c.Guardrail.ReviseThreshold {
		return fmt.Errorf("config error: approve_threshold (%.2f) must be >= revise_threshold (%.2f)",
			c.Guardrail.ApproveThreshold, c.Guardrail.ReviseThreshold)
	}

	if c.ResumePath != "" {
		if _, err := os.Stat(c.ResumePath); os.IsNotExist(err) {
			return fmt.Errorf("config error: resume file not found: %s", c.ResumePath)
		}
	}

	return nil
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		LLM: LLMConfig{
			Model:          "gemini-2.0-flash",
			Temperature:    0.7,
			MaxTokens:      2048,
			TimeoutSeconds: 60,
		},
		Scraper: ScraperConfig{
			RequestDelaySeconds: 2,
			TimeoutSeconds:      30,
			CacheTTLDays:        7,
			UserAgent:           "Mozilla/5.0 (compatible; OutreachAgent/1.0)",
		},
		Guardrail: GuardrailConfig{
			Weights: GuardrailWeights{
				Length:   0.15,
				Citation: 0.25,
				Generic:  0.15,
				Fact:     0.30,
				Tone:     0.15,
			},
			ApproveThreshold: 0.9,
			ReviseThreshold:  0.6,
			MinCitations:     2,
			MaxRevisions:     2,
		},
		FollowUp: FollowUpConfig{
			InitialDays:    7,
			RescheduleDays: 3,
			MaxSequence:    3,
		},
		Batch: BatchConfig{
			Workers:     2,
			ScrapeSlots: 2,
			LLMSlots:    1,
		},
		Server: ServerConfig{
			Addr:            ":8080",
			TokenTTLMinutes: 60,
		},
	}
}

// MergeWithDefaults returns a new Config with zero-valued fields filled
// from defaults. This is used to apply config file values as defaults
// for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.LLM.APIKey == "" {
		result.LLM.APIKey = defaults.LLM.APIKey
	}
	if result.LLM.Model == "" {
		result.LLM.Model = defaults.LLM.Model
	}
	if result.LLM.Temperature == 0 {
		result.LLM.Temperature = defaults.LLM.Temperature
	}
	if result.LLM.MaxTokens == 0 {
		result.LLM.MaxTokens = defaults.LLM.MaxTokens
	}
	if result.LLM.TimeoutSeconds == 0 {
		result.LLM.TimeoutSeconds = defaults.LLM.TimeoutSeconds
	}

	if result.Scraper.RequestDelaySeconds == 0 {
		result.Scraper.RequestDelaySeconds = defaults.Scraper.RequestDelaySeconds
	}
	if result.Scraper.TimeoutSeconds == 0 {
		result.Scraper.TimeoutSeconds = defaults.Scraper.TimeoutSeconds
	}
	if result.Scraper.CacheTTLDays == 0 {
		result.Scraper.CacheTTLDays = defaults.Scraper.CacheTTLDays
	}
	if result.Scraper.UserAgent == "" {
		result.Scraper.UserAgent = defaults.Scraper.UserAgent
	}

	if result.Guardrail.Weights == (GuardrailWeights{}) {
		result.Guardrail.Weights = defaults.Guardrail.Weights
	}
	if result.Guardrail.ApproveThreshold == 0 {
		result.Guardrail.ApproveThreshold = defaults.Guardrail.ApproveThreshold
	}
	if result.Guardrail.ReviseThreshold == 0 {
		result.Guardrail.ReviseThreshold = defaults.Guardrail.ReviseThreshold
	}
	if result.Guardrail.MinCitations == 0 {
		result.Guardrail.MinCitations = defaults.Guardrail.MinCitations
	}
	if result.Guardrail.MaxRevisions == 0 {
		result.Guardrail.MaxRevisions = defaults.Guardrail.MaxRevisions
	}

	if result.FollowUp.InitialDays == 0 {
		result.FollowUp.InitialDays = defaults.FollowUp.InitialDays
	}
	if result.FollowUp.RescheduleDays == 0 {
		result.FollowUp.RescheduleDays = defaults.FollowUp.RescheduleDays
	}
	if result.FollowUp.MaxSequence == 0 {
		result.FollowUp.MaxSequence = defaults.FollowUp.MaxSequence
	}

	if result.Batch.Workers == 0 {
		result.Batch.Workers = defaults.Batch.Workers
	}
	if result.Batch.ScrapeSlots == 0 {
		result.Batch.ScrapeSlots = defaults.Batch.ScrapeSlots
	}
	if result.Batch.LLMSlots == 0 {
		result.Batch.LLMSlots = defaults.Batch.LLMSlots
	}

	if result.Server.Addr == "" {
		result.Server.Addr = defaults.Server.Addr
	}
	if result.Server.JWTSecret == "" {
		result.Server.JWTSecret = defaults.Server.JWTSecret
	}
	if result.Server.TokenTTLMinutes == 0 {
		result.Server.TokenTTLMinutes = defaults.Server.TokenTTLMinutes
	}

	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.ResumePath == "" {
		result.ResumePath = defaults.ResumePath
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}
