package llm

import (
	"context"
	"sync"
)

// UsageStat accumulates call counts and token totals for one bucket.
type UsageStat struct {
	Requests         int64 `json:"requests"`
	Errors           int64 `json:"errors"`
	PromptTokens     int64 `json:"promptTokens"`
	CompletionTokens int64 `json:"completionTokens"`
}

// UsageSummary is the run-level rollup: totals plus a per-task breakdown
// keyed by the task name attached via WithTask.
type UsageSummary struct {
	UsageStat
	Tasks map[string]UsageStat `json:"tasks,omitempty"`
}

// UsageLedger tracks token usage across every call routed through the
// WithUsage middleware. Safe for concurrent use.
type UsageLedger struct {
	mu    sync.Mutex
	total UsageStat
	tasks map[string]UsageStat
}

func NewUsageLedger() *UsageLedger {
	return &UsageLedger{tasks: make(map[string]UsageStat)}
}

func (l *UsageLedger) record(task string, u Usage, hasErr bool) {
	if task == "" {
		task = "untagged"
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	bump(&l.total, u, hasErr)
	s := l.tasks[task]
	bump(&s, u, hasErr)
	l.tasks[task] = s
}

func bump(s *UsageStat, u Usage, hasErr bool) {
	s.Requests++
	if hasErr {
		s.Errors++
	}
	s.PromptTokens += int64(u.PromptTokens)
	s.CompletionTokens += int64(u.CompletionTokens)
}

// Summary returns a copy of the accumulated state.
func (l *UsageLedger) Summary() UsageSummary {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := UsageSummary{UsageStat: l.total}
	if len(l.tasks) > 0 {
		out.Tasks = make(map[string]UsageStat, len(l.tasks))
		for k, v := range l.tasks {
			out.Tasks[k] = v
		}
	}
	return out
}

// WithUsage records every completion into the ledger. When the provider
// reports no token counts the call is booked with a byte-based estimate,
// so the summary stays non-zero even behind proxies that omit usage.
func WithUsage(ledger *UsageLedger) Middleware {
	return func(next Completer) Completer {
		return &usageClient{next: next, ledger: ledger}
	}
}

type usageClient struct {
	next   Completer
	ledger *UsageLedger
}

func (u *usageClient) Name() string { return u.next.Name() }
func (u *usageClient) Close() error { return u.next.Close() }

func (u *usageClient) Complete(ctx context.Context, req Request) (Completion, error) {
	out, err := u.next.Complete(ctx, req)
	usage := out.Usage
	if usage == (Usage{}) && err == nil {
		usage = estimateUsage(req, out)
	}
	if u.ledger != nil {
		u.ledger.record(TaskFrom(ctx), usage, err != nil)
	}
	return out, err
}

// estimateUsage approximates tokens at four bytes each, the same ballpark
// the providers bill by.
func estimateUsage(req Request, out Completion) Usage {
	return Usage{
		PromptTokens:     (len(req.System) + len(req.User)) / 4,
		CompletionTokens: len(out.Text) / 4,
	}
}
