package insights

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"spendlens/internal/core"
	"spendlens/internal/log"
)

const DefaultModel = "gemini-1.5-flash"

type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// Gemini asks a Gemini model for insights.
type Gemini struct {
	client *genai.Client
	model  contentGenerator
	logger *log.Logger
}

var _ Generator = (*Gemini)(nil)

// NewGemini creates a client for the given API key and model name.
func NewGemini(ctx context.Context, apiKey, model string, logger *log.Logger) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key: %w", core.ErrInvalidInput)
	}
	if model == "" {
		model = DefaultModel
	}
	if logger == nil {
		logger = log.Discard()
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	m := client.GenerativeModel(model)
	m.SetTemperature(0.4)
	m.SetMaxOutputTokens(300)

	return &Gemini{
		client: client,
		model:  m,
		logger: logger.WithComponent(log.ComponentInsights),
	}, nil
}

func (g *Gemini) Name() string { return "gemini" }

func (g *Gemini) Generate(ctx context.Context, in Input) ([]core.Insight, error) {
	if len(in.Expenses) == 0 {
		return nil, ErrNoExpenses
	}

	resp, err := g.model.GenerateContent(ctx, genai.Text(BuildPrompt(in.Expenses)))
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}

	text := responseText(resp)
	if text == "" {
		return nil, fmt.Errorf("%w: empty gemini response", ErrMalformedResponse)
	}

	out, err := ParseResponse(text)
	if err != nil {
		g.logger.WarnContext(ctx, "Gemini returned unusable insights", "error", err)
		return nil, err
	}
	return out, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String()
}

func (g *Gemini) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}
