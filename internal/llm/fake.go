package llm

import (
	"context"
	"sync"
)

// FakeClient returns canned completions for offline runs and tests. Responses
// are matched in order; when the script runs out the last entry repeats.
type FakeClient struct {
	mu     sync.Mutex
	script []Completion
	errs   []error
	calls  int
}

func NewFakeClient(script ...Completion) *FakeClient {
	return &FakeClient{script: script}
}

// Fail appends an error response to the script.
func (f *FakeClient) Fail(err error) *FakeClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.script = append(f.script, Completion{})
	for len(f.errs) < len(f.script)-1 {
		f.errs = append(f.errs, nil)
	}
	f.errs = append(f.errs, err)
	return f
}

func (f *FakeClient) Name() string { return "FakeLLM" }
func (f *FakeClient) Close() error { return nil }

// Calls reports how many times Complete has been invoked.
func (f *FakeClient) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *FakeClient) Complete(ctx context.Context, req Request) (Completion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.script) == 0 {
		return Completion{Text: "{}", Finish: FinishStop}, nil
	}
	i := f.calls - 1
	if i >= len(f.script) {
		i = len(f.script) - 1
	}
	if i < len(f.errs) && f.errs[i] != nil {
		return Completion{}, f.errs[i]
	}
	out := f.script[i]
	if out.Finish == "" {
		out.Finish = FinishStop
	}
	return out, nil
}
