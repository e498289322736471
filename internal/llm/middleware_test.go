package llm

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryRecoversTransientFailure(t *testing.T) {
	client := (&FakeClient{}).Fail(ErrUnavailable)
	client.script = append(client.script, Completion{Text: "ok"})

	wrapped := Chain(client, Retry(3, time.Millisecond))
	out, err := wrapped.Complete(context.Background(), Request{User: "hi"})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if out.Text != "ok" {
		t.Fatalf("text = %q", out.Text)
	}
	if client.Calls() != 2 {
		t.Fatalf("calls = %d, want 2", client.Calls())
	}
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	client := (&FakeClient{}).Fail(NewPermanentError(errors.New("bad key")))
	wrapped := Chain(client, Retry(5, time.Millisecond))

	_, err := wrapped.Complete(context.Background(), Request{User: "hi"})
	if err == nil {
		t.Fatal("expected error")
	}
	if client.Calls() != 1 {
		t.Fatalf("calls = %d, permanent errors must not be retried", client.Calls())
	}
}

func TestRetryHonorsContextCancel(t *testing.T) {
	client := (&FakeClient{}).Fail(ErrUnavailable)
	wrapped := Chain(client, Retry(10, 50*time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := wrapped.Complete(ctx, Request{User: "hi"}); err == nil {
		t.Fatal("expected error after cancellation")
	}
	if client.Calls() > 2 {
		t.Fatalf("calls = %d, cancellation ignored", client.Calls())
	}
}

func TestRetryReturnsPromptlyAfterFinalFailure(t *testing.T) {
	client := (&FakeClient{}).Fail(ErrUnavailable)
	wrapped := Chain(client, Retry(1, 30*time.Second))

	start := time.Now()
	if _, err := wrapped.Complete(context.Background(), Request{User: "hi"}); err == nil {
		t.Fatal("expected error")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("final failure took %v, backoff slept after the last attempt", elapsed)
	}
	if client.Calls() != 1 {
		t.Fatalf("calls = %d, want 1", client.Calls())
	}
}

func TestRetryBackoffInterruptedByCancel(t *testing.T) {
	client := (&FakeClient{}).Fail(ErrUnavailable)
	wrapped := Chain(client, Retry(3, 30*time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	start := time.Now()
	_, err := wrapped.Complete(ctx, Request{User: "hi"})
	if err != context.Canceled {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("cancellation took %v to unblock the backoff", elapsed)
	}
}

func TestTaskContext(t *testing.T) {
	ctx := WithTask(context.Background(), "analysis:linkedin")
	if got := TaskFrom(ctx); got != "analysis:linkedin" {
		t.Fatalf("task = %q", got)
	}
	if got := TaskFrom(context.Background()); got != "" {
		t.Fatalf("task = %q, want empty", got)
	}
}

func TestFakeClientScriptOrder(t *testing.T) {
	client := NewFakeClient(Completion{Text: "a"}, Completion{Text: "b"})
	ctx := context.Background()
	for _, want := range []string{"a", "b", "b"} {
		out, err := client.Complete(ctx, Request{})
		if err != nil {
			t.Fatalf("complete: %v", err)
		}
		if out.Text != want {
			t.Fatalf("text = %q, want %q", out.Text, want)
		}
	}
}
