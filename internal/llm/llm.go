package llm

import (
	"context"
	"errors"
	"fmt"
)

// FinishReason reports how the model stopped generating.
type FinishReason string

const (
	FinishStop   FinishReason = "stop"
	FinishLength FinishReason = "length"
	FinishOther  FinishReason = "other"
)

// Request is a single completion request.
type Request struct {
	System    string
	User      string
	MaxTokens int
	WantJSON  bool
}

// Usage is the token count a provider reports for one call. Zero when the
// provider sends no usage block.
type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
}

// Completion carries the raw model text plus the finish reason so callers
// can detect truncated output.
type Completion struct {
	Text   string
	Finish FinishReason
	Usage  Usage
}

// Completer is the external completion capability. Providers are expected
// to be unreliable; callers must treat every error as a fallback trigger.
type Completer interface {
	Name() string
	Complete(ctx context.Context, req Request) (Completion, error)
	Close() error
}

// ErrUnavailable means the capability cannot be reached at all: missing
// configuration, network failure, or timeout.
var ErrUnavailable = errors.New("llm: completion capability unavailable")

// PermanentError marks an error that retry middleware must not retry.
type PermanentError struct {
	Err error
}

func NewPermanentError(err error) *PermanentError { return &PermanentError{Err: err} }

func (e *PermanentError) Error() string {
	return fmt.Sprintf("permanent: %v", e.Err)
}

func (e *PermanentError) Unwrap() error { return e.Err }
