// Package llm abstracts the LLM collaborator used for message generation
// and guardrail sub-checks.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Client is an abstraction over LLM providers.
type Client interface {
	// Generate produces free-form text for the prompt.
	Generate(ctx context.Context, prompt string, temperature float32, maxTokens int) (string, error)
	// GenerateJSON produces a JSON document for the prompt, with markdown
	// code fences already stripped.
	GenerateJSON(ctx context.Context, prompt string, temperature float32, maxTokens int) (string, error)
	// Close releases any resources held by the client.
	Close() error
}

// GeminiClient implements Client for Google Gemini.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-2.0-flash"

// NewGeminiClient creates a Gemini-backed client.
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{client: client, model: model}, nil
}

// Generate produces free-form text for the prompt.
func (c *GeminiClient) Generate(ctx context.Context, prompt string, temperature float32, maxTokens int) (string, error) {
	model := c.client.GenerativeModel(c.model)
	model.SetTemperature(temperature)
	if maxTokens > 0 {
		model.SetMaxOutputTokens(int32(maxTokens))
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", wrapGenerateError(err)
	}

	return extractTextFromResponse(resp)
}

// GenerateJSON produces a JSON document for the prompt.
func (c *GeminiClient) GenerateJSON(ctx context.Context, prompt string, temperature float32, maxTokens int) (string, error) {
	model := c.client.GenerativeModel(c.model)
	model.SetTemperature(temperature)
	if maxTokens > 0 {
		model.SetMaxOutputTokens(int32(maxTokens))
	}
	model.ResponseMIMEType = "application/json"

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", wrapGenerateError(err)
	}

	text, err := extractTextFromResponse(resp)
	if err != nil {
		return "", err
	}

	return CleanJSONBlock(text), nil
}

// Close releases resources held by the client.
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// timeoutClient bounds every call of the wrapped client with a deadline.
type timeoutClient struct {
	inner   Client
	timeout time.Duration
}

// WithTimeout wraps client so each Generate call carries a deadline. A
// non-positive timeout returns the client unchanged.
func WithTimeout(client Client, timeout time.Duration) Client {
	if timeout <= 0 {
		return client
	}
	return &timeoutClient{inner: client, timeout: timeout}
}

func (c *timeoutClient) Generate(ctx context.Context, prompt string, temperature float32, maxTokens int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.inner.Generate(ctx, prompt, temperature, maxTokens)
}

func (c *timeoutClient) GenerateJSON(ctx context.Context, prompt string, temperature float32, maxTokens int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.inner.GenerateJSON(ctx, prompt, temperature, maxTokens)
}

func (c *timeoutClient) Close() error {
	return c.inner.Close()
}

// wrapGenerateError converts provider errors into the typed taxonomy.
func wrapGenerateError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Message: "generation timed out", Cause: err}
	}
	return &Error{Kind: KindUnavailable, Message: "generation failed", Cause: err}
}

// extractTextFromResponse extracts text from a Gemini API response.
func extractTextFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", MalformedOutput("no candidates in response", nil)
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", MalformedOutput("no content in response", nil)
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}

	if len(parts) == 0 {
		return "", MalformedOutput("no text parts in response", nil)
	}

	return strings.Join(parts, ""), nil
}
