package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"

	"github.com/masterofmagic999/mugic/pkg/logger"
)

// OpenAIGenerator generates text through the OpenAI Responses API.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
}

// NewOpenAIGenerator creates an OpenAIGenerator. An empty model selects
// DefaultOpenAIModel and an empty baseURL the public endpoint.
func NewOpenAIGenerator(apiKey, model, baseURL string) *OpenAIGenerator {
	if model == "" {
		model = DefaultOpenAIModel
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		// The recommendation engine owns retries by falling back to templates.
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)
	return &OpenAIGenerator{client: &client, model: model}
}

// Name implements recommend.TextGenerator.
func (g *OpenAIGenerator) Name() string { return ProviderOpenAI }

// Generate implements recommend.TextGenerator.
func (g *OpenAIGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	log := logger.Get().Named("openai")

	transaction := sentry.StartTransaction(ctx, "openai.generate")
	defer transaction.Finish()
	transaction.SetTag("model", g.model)
	transaction.SetTag("provider", ProviderOpenAI)

	params := responses.ResponseNewParams{
		Model: g.model,
		Input: responses.ResponseNewParamsInputUnion{
			OfString: openai.String(prompt),
		},
		Instructions: openai.String(system),
	}

	span := transaction.StartChild("openai.api_call")
	start := time.Now()
	resp, err := g.client.Responses.New(transaction.Context(), params)
	span.Finish()
	if err != nil {
		transaction.SetTag("success", "false")
		sentry.CaptureException(err)
		log.Warn(ctx, "openai request failed", logger.Duration("elapsed", time.Since(start)), logger.Error(err))
		return "", fmt.Errorf("openai request: %w", err)
	}

	text := strings.TrimSpace(resp.OutputText())
	if text == "" {
		transaction.SetTag("success", "false")
		return "", ErrNoOutput
	}

	transaction.SetTag("success", "true")
	log.Debug(ctx, "openai request completed",
		logger.Duration("elapsed", time.Since(start)),
		logger.Int("output_length", len(text)),
	)
	return text, nil
}
