// Package generation produces personalized outreach message variants
// through the LLM collaborator and validates their structure.
package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"

	"github.com/jonathan/outreach-copilot/internal/llm"
	"github.com/jonathan/outreach-copilot/internal/types"
)

// DefaultNumVariants is how many candidate messages one attempt requests.
const DefaultNumVariants = 3

// DefaultParseRetries bounds re-prompts after unparsable LLM output.
const DefaultParseRetries = 2

// MinMessageLength filters out degenerate variant messages.
const MinMessageLength = 20

// variantsSchema validates the structure of the LLM's JSON output before
// any variant is trusted.
const variantsSchema = `{
	"type": "object",
	"required": ["variants"],
	"properties": {
		"variants": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["message"],
				"properties": {
					"message": {"type": "string", "minLength": 1},
					"subject": {"type": ["string", "null"]},
					"citations": {"type": "array", "items": {"type": "string"}},
					"skills_highlighted": {"type": "array", "items": {"type": "string"}}
				}
			}
		}
	}
}`

var compiledSchema = mustCompileSchema()

func mustCompileSchema() *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(variantsSchema))
	if err != nil {
		panic(fmt.Sprintf("invalid variants schema: %v", err))
	}
	return schema
}

// Request carries everything needed to generate variants for one company.
type Request struct {
	Profile    *types.ResumeProfile
	TargetRole string
	Company    *types.Company
	Contact    *types.Contact
	Jobs       []*types.JobListing
	Channel    types.MessageChannel
	Tone       types.MessageTone
	// NumVariants defaults to DefaultNumVariants when zero.
	NumVariants int
	// Feedback carries failed-check feedback from a prior guardrail pass.
	Feedback []string
}

func (r *Request) numVariants() int {
	if r.NumVariants > 0 {
		return r.NumVariants
	}
	return DefaultNumVariants
}

// Generator turns requests into validated message variants.
type Generator struct {
	client       llm.Client
	temperature  float32
	maxTokens    int
	parseRetries int
	logger       *zap.Logger
}

// NewGenerator creates a Generator. parseRetries < 0 uses the default.
func NewGenerator(client llm.Client, temperature float32, maxTokens, parseRetries int, logger *zap.Logger) *Generator {
	if parseRetries < 0 {
		parseRetries = DefaultParseRetries
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		client:       client,
		temperature:  temperature,
		maxTokens:    maxTokens,
		parseRetries: parseRetries,
		logger:       logger,
	}
}

type variantPayload struct {
	Message           string   `json:"message"`
	Subject           *string  `json:"subject"`
	Citations         []string `json:"citations"`
	SkillsHighlighted []string `json:"skills_highlighted"`
}

type responsePayload struct {
	Variants []variantPayload `json:"variants"`
}

// Generate requests message variants for req, re-prompting a bounded
// number of times when the LLM returns unparsable or schema-invalid
// output. Non-parse LLM failures (timeout, unavailable) propagate
// immediately.
func (g *Generator) Generate(ctx context.Context, req *Request) ([]*types.MessageVariant, error) {
	basePrompt := BuildPrompt(req)
	prompt := basePrompt
	var lastErr error

	for attempt := 0; attempt <= g.parseRetries; attempt++ {
		raw, err := g.client.GenerateJSON(ctx, prompt, g.temperature, g.maxTokens)
		if err != nil {
			var llmErr *llm.Error
			if errors.As(err, &llmErr) && llmErr.Kind == llm.KindMalformedOutput {
				lastErr = err
				prompt = withParseHint(basePrompt, err)
				g.logger.Warn("generation output malformed, re-prompting", zap.Int("attempt", attempt+1), zap.Error(err))
				continue
			}
			return nil, err
		}

		variants, err := g.parseVariants(raw, req)
		if err != nil {
			lastErr = err
			prompt = withParseHint(basePrompt, err)
			g.logger.Warn("generation response rejected, re-prompting", zap.Int("attempt", attempt+1), zap.Error(err))
			continue
		}

		g.logger.Debug("variants generated",
			zap.String("company", req.Company.Name),
			zap.Int("count", len(variants)),
			zap.Int("attempt", attempt+1))
		return variants, nil
	}

	return nil, llm.MalformedOutput(
		fmt.Sprintf("no valid variants after %d attempts", g.parseRetries+1), lastErr)
}

// parseVariants validates the raw response against the schema and builds
// typed variants with derived fields.
func (g *Generator) parseVariants(raw string, req *Request) ([]*types.MessageVariant, error) {
	cleaned := llm.CleanJSONBlock(raw)

	result, err := compiledSchema.Validate(gojsonschema.NewStringLoader(cleaned))
	if err != nil {
		return nil, llm.MalformedOutput("response is not valid JSON", err)
	}
	if !result.Valid() {
		var issues []string
		for _, desc := range result.Errors() {
			issues = append(issues, desc.String())
		}
		return nil, llm.MalformedOutput("response violates variant schema: "+strings.Join(issues, "; "), nil)
	}

	var payload responsePayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, llm.MalformedOutput("response is not valid JSON", err)
	}

	variants := make([]*types.MessageVariant, 0, len(payload.Variants))
	for _, p := range payload.Variants {
		message := strings.TrimSpace(p.Message)
		if len(message) < MinMessageLength {
			continue
		}

		v := &types.MessageVariant{
			Message:           message,
			SkillsHighlighted: p.SkillsHighlighted,
			Channel:           req.Channel,
			Tone:              req.Tone,
		}
		if p.Subject != nil {
			v.Subject = strings.TrimSpace(*p.Subject)
		}
		v.Derive()
		variants = append(variants, v)
	}

	if len(variants) == 0 {
		return nil, llm.MalformedOutput("no usable variants in response", nil)
	}
	return variants, nil
}

func withParseHint(basePrompt string, cause error) string {
	return basePrompt + fmt.Sprintf(
		"\n\nYOUR PREVIOUS RESPONSE WAS REJECTED: %v\nRespond with ONLY the JSON object described above, nothing else.", cause)
}
