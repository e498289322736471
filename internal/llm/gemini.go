package llm

import (
	"context"
	"strings"
	"time"

	genai "google.golang.org/genai"
)

// GeminiClient is a thin wrapper around the official genai client. It is the
// fallback backend when no proxy is configured but GEMINI_API_KEY is set.
// Cross-cutting concerns (retries, logging) are applied via Middleware.
type GeminiClient struct {
	cli     *genai.Client
	model   string
	timeout time.Duration
}

func NewGeminiClient(ctx context.Context, apiKey, model string, timeout time.Duration) (*GeminiClient, error) {
	// NOTE: apiKey is currently unused here; the genai client reads it from env.
	// Keep the parameter for a consistent factory signature.
	_ = apiKey

	cli, err := genai.NewClient(ctx, &genai.ClientConfig{Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &GeminiClient{cli: cli, model: model, timeout: timeout}, nil
}

func (g *GeminiClient) Name() string { return "Gemini:" + g.model }
func (g *GeminiClient) Close() error { return nil }

func (g *GeminiClient) Complete(ctx context.Context, req Request) (Completion, error) {
	var zero Completion

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	full := req.User
	if req.System != "" {
		full = req.System + "\n\n" + req.User
	}
	cfg := &genai.GenerateContentConfig{}
	if req.WantJSON {
		cfg.ResponseMIMEType = "application/json"
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}

	resp, err := g.cli.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: full}}}},
		cfg,
	)
	if err != nil {
		return zero, err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return zero, ErrUnavailable
	}
	cand := resp.Candidates[0]
	finish := FinishStop
	if cand.FinishReason == genai.FinishReasonMaxTokens {
		finish = FinishLength
	}
	var usage Usage
	if resp.UsageMetadata != nil {
		usage.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		usage.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return Completion{Text: strings.TrimSpace(cand.Content.Parts[0].Text), Finish: finish, Usage: usage}, nil
}
