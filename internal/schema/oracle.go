package schema

import (
	"context"
	"errors"
	"fmt"

	"marketpulse/internal/llm"
	"marketpulse/internal/store"
	"marketpulse/internal/util/jsonutil"
)

// ErrOracleUnavailable covers missing configuration, network failures and
// timeouts. Callers fall back to heuristics; it never fails a pipeline.
var ErrOracleUnavailable = errors.New("schema: oracle unavailable")

// ErrOracleInvalidResponse means the oracle answered but the payload stayed
// unparseable even after structural repair.
var ErrOracleInvalidResponse = errors.New("schema: oracle returned invalid response")

// sampleRows bounds how many representative rows are shown to the oracle,
// keeping the prompt cost flat regardless of file size.
const sampleRows = 3

// Sample is the bounded view of a file handed to the oracle.
type Sample struct {
	FileName string           `json:"file_name"`
	Columns  []string         `json:"columns,omitempty"`
	Rows     []map[string]any `json:"rows"`
}

// Truncate drops all but the first sampleRows rows.
func (s Sample) Truncate() Sample {
	if len(s.Rows) > sampleRows {
		s.Rows = s.Rows[:sampleRows]
	}
	return s
}

// Oracle asks the completion capability to classify a file and map its
// fields onto canonical names. It is a pure function of its inputs plus the
// external call; caching is the caller's responsibility.
type Oracle struct {
	LLM       llm.Completer
	MaxTokens int
}

const oraclePrompt = `You are a marketing-data schema analyst.
Given a file name, its column or key names, and a few sample rows, classify the file and map its fields onto canonical metric names.

Return STRICT JSON ONLY:
{
  "source_kind": "content|followers|visitors|posts|audience|interactions|reached|traffic|unclassified",
  "time_key_path": "string (column name or dot-path locating the date)",
  "mappings": {"<canonical field>": "<source column or dot-path>"},
  "aggregation_level": "per_row|aggregate",
  "time_format": "optional Go reference layout hint, e.g. 1/2/2006",
  "entries_path": "for nested files only: dot-path to the entry list"
}

Constraints:
- Map only fields you are confident about; omit the rest.
- Canonical fields are limited to the provided candidate list.
- Dot-paths may traverse nested objects and numeric list indices, e.g. media.0.title.`

type oracleWire struct {
	SourceKind       string            `json:"source_kind"`
	TimeKeyPath      string            `json:"time_key_path"`
	Mappings         map[string]string `json:"mappings"`
	AggregationLevel string            `json:"aggregation_level"`
	TimeFormat       string            `json:"time_format"`
	EntriesPath      string            `json:"entries_path"`
}

// Discover classifies one file. Every failure comes back as a typed oracle
// error so the caller can fall back to heuristics.
func (o *Oracle) Discover(ctx context.Context, sample Sample, candidates []store.CanonicalField) (Mapping, error) {
	var zero Mapping
	if o == nil || o.LLM == nil {
		return zero, ErrOracleUnavailable
	}

	input := map[string]any{
		"file":             sample.Truncate(),
		"candidate_fields": candidates,
	}
	in, _ := jsonutil.MarshalNoEscape(input)

	maxTokens := o.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	out, err := o.LLM.Complete(ctx, llm.Request{
		System:    oraclePrompt,
		User:      "[INPUT JSON]\n" + string(in),
		MaxTokens: maxTokens,
		WantJSON:  true,
	})
	if err != nil {
		return zero, fmt.Errorf("%w: %v", ErrOracleUnavailable, err)
	}

	text := out.Text
	var wire oracleWire
	if uerr := jsonutil.Unmarshal([]byte(text), &wire); uerr != nil {
		if out.Finish != llm.FinishLength {
			return zero, fmt.Errorf("%w: %v", ErrOracleInvalidResponse, uerr)
		}
		repaired, rerr := jsonutil.Repair(text)
		if rerr != nil {
			return zero, fmt.Errorf("%w: %v", ErrOracleInvalidResponse, rerr)
		}
		if uerr := jsonutil.Unmarshal([]byte(repaired), &wire); uerr != nil {
			return zero, fmt.Errorf("%w: %v", ErrOracleInvalidResponse, uerr)
		}
	}

	return mappingFromWire(wire, candidates), nil
}

// mappingFromWire normalizes the oracle payload: unknown kinds collapse to
// unclassified and mappings outside the candidate set are dropped here, not
// carried forward.
func mappingFromWire(w oracleWire, candidates []store.CanonicalField) Mapping {
	allowed := make(map[store.CanonicalField]bool, len(candidates))
	for _, c := range candidates {
		allowed[c] = true
	}
	fields := make(map[store.CanonicalField]string)
	for name, path := range w.Mappings {
		f := store.CanonicalField(name)
		if allowed[f] && path != "" {
			fields[f] = path
		}
	}
	return Mapping{
		SourceKind:  ParseSourceKind(w.SourceKind),
		TimeKeyPath: w.TimeKeyPath,
		Fields:      fields,
		Aggregation: ParseAggregationLevel(w.AggregationLevel),
		TimeFormat:  w.TimeFormat,
		EntriesPath: w.EntriesPath,
	}
}
