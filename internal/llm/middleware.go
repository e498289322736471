package llm

import (
	"context"
	"errors"
	"log"
	"time"
)

// Middleware wraps a Completer with a cross-cutting concern.
type Middleware func(Completer) Completer

// Chain applies middlewares left to right: the first listed is outermost.
func Chain(base Completer, mws ...Middleware) Completer {
	c := base
	for i := len(mws) - 1; i >= 0; i-- {
		c = mws[i](c)
	}
	return c
}

type ctxKeyTask struct{}

// WithTask attaches a task name to the context for log attribution.
func WithTask(ctx context.Context, task string) context.Context {
	return context.WithValue(ctx, ctxKeyTask{}, task)
}

// TaskFrom returns the task name stored in the context, or "".
func TaskFrom(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyTask{}).(string); ok {
		return v
	}
	return ""
}

// WithLogging logs request size and errors. Provide a custom logger or nil
// to use log.Default().
func WithLogging(logger *log.Logger) Middleware {
	if logger == nil {
		logger = log.Default()
	}
	return func(next Completer) Completer {
		return &logging{next: next, log: logger}
	}
}

type logging struct {
	next Completer
	log  *log.Logger
}

func (l *logging) Name() string { return l.next.Name() }
func (l *logging) Close() error { return l.next.Close() }

func (l *logging) Complete(ctx context.Context, req Request) (Completion, error) {
	l.log.Printf("LLM request (%s): %d bytes", TaskFrom(ctx), len(req.System)+len(req.User))
	out, err := l.next.Complete(ctx, req)
	if err != nil {
		l.log.Printf("LLM error (%s): %v", TaskFrom(ctx), err)
	}
	return out, err
}

// Retry retries Complete up to maxAttempts with exponential backoff starting
// at baseDelay. Permanent errors and context cancellation stop immediately.
func Retry(maxAttempts int, baseDelay time.Duration) Middleware {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if baseDelay <= 0 {
		baseDelay = 300 * time.Millisecond
	}
	return func(next Completer) Completer {
		return &retrying{next: next, max: maxAttempts, base: baseDelay}
	}
}

type retrying struct {
	next Completer
	max  int
	base time.Duration
}

func (r *retrying) Name() string { return r.next.Name() }
func (r *retrying) Close() error { return r.next.Close() }

func (r *retrying) Complete(ctx context.Context, req Request) (Completion, error) {
	var last error
	for i := 0; i < r.max; i++ {
		out, err := r.next.Complete(ctx, req)
		if err == nil {
			return out, nil
		}
		var pErr *PermanentError
		if errors.As(err, &pErr) {
			return Completion{}, err
		}
		last = err
		if i == r.max-1 {
			break
		}
		timer := time.NewTimer(r.base * time.Duration(1<<i))
		select {
		case <-ctx.Done():
			timer.Stop()
			return Completion{}, ctx.Err()
		case <-timer.C:
		}
	}
	return Completion{}, last
}
