package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ProxyClient calls an OpenAI-compatible chat-completions endpoint behind a
// LiteLLM-style proxy. Base URL and API key come from configuration; when
// either is missing every call short-circuits to ErrUnavailable without
// touching the network.
type ProxyClient struct {
	http    *http.Client
	baseURL string
	apiKey  string
	model   string
	timeout time.Duration
}

func NewProxyClient(baseURL, apiKey, model string, timeout time.Duration) *ProxyClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ProxyClient{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:  strings.TrimSpace(apiKey),
		model:   model,
		timeout: timeout,
	}
}

func (p *ProxyClient) Name() string { return "Proxy:" + p.model }
func (p *ProxyClient) Close() error { return nil }

// Configured reports whether both proxy values are present.
func (p *ProxyClient) Configured() bool { return p.baseURL != "" && p.apiKey != "" }

type proxyChatReq struct {
	Model          string            `json:"model"`
	Messages       []proxyMessage    `json:"messages"`
	Temperature    float32           `json:"temperature"`
	MaxTokens      int               `json:"max_tokens,omitempty"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type proxyMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type proxyChatResp struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func (p *ProxyClient) Complete(ctx context.Context, req Request) (Completion, error) {
	var zero Completion
	if !p.Configured() {
		return zero, ErrUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	body := proxyChatReq{
		Model: p.model,
		Messages: []proxyMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.User},
		},
		MaxTokens: req.MaxTokens,
	}
	if req.WantJSON {
		body.ResponseFormat = map[string]string{"type": "json_object"}
	}
	b, _ := json.Marshal(body)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(b))
	if err != nil {
		return zero, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.http.Do(httpReq)
	if err != nil {
		return zero, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		const max = 2048
		if len(raw) > max {
			raw = raw[:max]
		}
		err := fmt.Errorf("proxy: unexpected status %s: %s", resp.Status, string(raw))
		if resp.StatusCode == 400 && strings.Contains(string(raw), `"code":"context_length_exceeded"`) {
			return zero, NewPermanentError(err)
		}
		if resp.StatusCode == 401 || resp.StatusCode == 403 {
			return zero, NewPermanentError(err)
		}
		return zero, err
	}

	var out proxyChatResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return zero, err
	}
	if len(out.Choices) == 0 {
		return zero, fmt.Errorf("proxy: empty choices")
	}
	return Completion{
		Text:   strings.TrimSpace(out.Choices[0].Message.Content),
		Finish: finishFrom(out.Choices[0].FinishReason),
		Usage: Usage{
			PromptTokens:     out.Usage.PromptTokens,
			CompletionTokens: out.Usage.CompletionTokens,
		},
	}, nil
}

func finishFrom(s string) FinishReason {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "stop", "end_turn":
		return FinishStop
	case "length", "max_tokens":
		return FinishLength
	default:
		return FinishOther
	}
}
