package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestProxySendsConfiguredModel(t *testing.T) {
	var got proxyChatReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	client := NewProxyClient(srv.URL, "key", "gemini-2.5-flash", 5*time.Second)
	out, err := client.Complete(context.Background(), Request{System: "sys", User: "hi"})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if out.Text != "ok" {
		t.Fatalf("text = %q", out.Text)
	}
	if got.Model != "gemini-2.5-flash" {
		t.Fatalf("model on the wire = %q, want %q", got.Model, "gemini-2.5-flash")
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Content != "hi" {
		t.Fatalf("messages = %+v", got.Messages)
	}
}

func TestProxyParsesUsage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"},"finish_reason":"length"}],
			"usage":{"prompt_tokens":120,"completion_tokens":64}}`))
	}))
	defer srv.Close()

	client := NewProxyClient(srv.URL, "key", "gemini-2.5-flash", 5*time.Second)
	out, err := client.Complete(context.Background(), Request{User: "hi"})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if out.Finish != FinishLength {
		t.Fatalf("finish = %q", out.Finish)
	}
	if out.Usage.PromptTokens != 120 || out.Usage.CompletionTokens != 64 {
		t.Fatalf("usage = %+v", out.Usage)
	}
}

func TestProxyUnconfiguredShortCircuits(t *testing.T) {
	client := NewProxyClient("", "", "gemini-2.5-flash", time.Second)
	if client.Configured() {
		t.Fatal("empty base URL must not report configured")
	}
	if _, err := client.Complete(context.Background(), Request{User: "hi"}); err != ErrUnavailable {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}
