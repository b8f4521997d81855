package explain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"breathplat/internal/config"

	"google.golang.org/genai"
)

// systemPrompt frames the summary for the model.
const systemPrompt = `You explain results of breath-analysis classification models to clinicians and researchers.
Given a model summary, describe in a few short paragraphs how well the model performs,
which classes it confuses and what the metrics mean in practice. Do not invent numbers.`

// GenAIOptions configures the Gemini backend.
type GenAIOptions struct {
	APIKey  string
	Model   string
	Timeout time.Duration
	BaseURL string // overrides the API endpoint, empty for the default
}

// GenAIExplainer asks a Gemini model for the explanation.
type GenAIExplainer struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGenAIExplainer creates the Gemini backend.
func NewGenAIExplainer(ctx context.Context, opts GenAIOptions) (*GenAIExplainer, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if opts.Model == "" {
		opts.Model = "gemini-2.5-flash"
	}

	cc := &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GenAIExplainer{client: client, model: opts.Model, timeout: opts.Timeout}, nil
}

func (g *GenAIExplainer) Explain(ctx context.Context, summary string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	contents := []*genai.Content{
		genai.NewContentFromText(summary, genai.RoleUser),
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
	})
	if err != nil {
		return "", fmt.Errorf("genai explanation failed: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("genai returned an empty explanation")
	}
	return text, nil
}

func (g *GenAIExplainer) Name() string { return config.ExplainBackendGenAI + ":" + g.model }
