package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"google.golang.org/genai"

	"github.com/masterofmagic999/mugic/pkg/logger"
)

const geminiUserRole = "user"

// GeminiGenerator generates text through the Gemini API.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

// NewGeminiGenerator creates a GeminiGenerator. An empty model selects
// DefaultGeminiModel and an empty baseURL the public endpoint.
func NewGeminiGenerator(ctx context.Context, apiKey, model, baseURL string) (*GeminiGenerator, error) {
	if model == "" {
		model = DefaultGeminiModel
	}
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiGenerator{client: client, model: model}, nil
}

// Name implements recommend.TextGenerator.
func (g *GeminiGenerator) Name() string { return ProviderGemini }

// Generate implements recommend.TextGenerator.
func (g *GeminiGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	log := logger.Get().Named("gemini")

	transaction := sentry.StartTransaction(ctx, "gemini.generate")
	defer transaction.Finish()
	transaction.SetTag("model", g.model)
	transaction.SetTag("provider", ProviderGemini)

	contents := []*genai.Content{{
		Role:  geminiUserRole,
		Parts: []*genai.Part{{Text: prompt}},
	}}
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: system}},
		},
	}

	span := transaction.StartChild("gemini.api_call")
	start := time.Now()
	result, err := g.client.Models.GenerateContent(transaction.Context(), g.model, contents, config)
	span.Finish()
	if err != nil {
		transaction.SetTag("success", "false")
		sentry.CaptureException(err)
		log.Warn(ctx, "gemini request failed", logger.Duration("elapsed", time.Since(start)), logger.Error(err))
		return "", fmt.Errorf("gemini request: %w", err)
	}

	text := strings.TrimSpace(geminiText(result))
	if text == "" {
		transaction.SetTag("success", "false")
		return "", ErrNoOutput
	}

	transaction.SetTag("success", "true")
	if result.UsageMetadata != nil {
		log.Debug(ctx, "gemini request completed",
			logger.Duration("elapsed", time.Since(start)),
			logger.Int("input_tokens", int(result.UsageMetadata.PromptTokenCount)),
			logger.Int("output_tokens", int(result.UsageMetadata.CandidatesTokenCount)),
		)
	}
	return text, nil
}

// geminiText joins the text parts of the first candidate.
func geminiText(result *genai.GenerateContentResponse) string {
	if result == nil || len(result.Candidates) == 0 {
		return ""
	}
	c := result.Candidates[0]
	if c.Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range c.Content.Parts {
		if p != nil {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}
