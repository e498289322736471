package analysis

import (
	"context"
	"fmt"
	"log"
	"strings"

	"marketpulse/internal/llm"
	"marketpulse/internal/store"
	"marketpulse/internal/util/jsonutil"
)

// minRecords is the floor below which a platform is not analyzed at all.
const minRecords = 7

const defaultNarrativeTokens = 1024

// Strategy carries the per-platform knobs: which metrics matter and how
// they are framed. One Task type serves every platform.
type Strategy struct {
	Platform      store.Platform
	PrimaryMetric store.CanonicalField
	Focus         string // one-line framing handed to the model
}

func Strategies() []Strategy {
	return []Strategy{
		{
			Platform:      store.PlatformLinkedIn,
			PrimaryMetric: store.FieldImpressions,
			Focus:         "B2B reach and engagement-rate efficiency of company page content",
		},
		{
			Platform:      store.PlatformInstagram,
			PrimaryMetric: store.FieldReach,
			Focus:         "organic post reach and interaction depth",
		},
		{
			Platform:      store.PlatformWebsite,
			PrimaryMetric: store.FieldPageViews,
			Focus:         "blog traffic volume and visitor retention",
		},
	}
}

// Task analyzes one platform's slice of the store. Analyze never returns
// an error: thin data yields an empty finding list, and a dead model
// degrades to findings built from the numeric summary alone.
type Task struct {
	Strategy  Strategy
	LLM       llm.Completer
	MaxTokens int
	Logger    *log.Logger
}

func (t *Task) Name() string {
	return "analysis:" + string(t.Strategy.Platform)
}

func (t *Task) Analyze(ctx context.Context, st *store.UnifiedStore) []Finding {
	records := st.Records(t.Strategy.Platform)
	if len(records) < minRecords {
		t.logf("%s: %d records, below analysis floor", t.Strategy.Platform, len(records))
		return nil
	}
	f := computeFeatures(t.Strategy.Platform, records)

	if t.LLM != nil {
		ctx = llm.WithTask(ctx, t.Name())
		if findings, err := t.narrate(ctx, f); err == nil {
			return findings
		} else {
			t.logf("%s: narrative failed, using statistical findings: %v", t.Strategy.Platform, err)
		}
	}
	return t.statistical(f)
}

const narrativePrompt = `You are a marketing analyst. You receive per-platform metric summaries
and respond ONLY with a JSON array of finding objects, no prose outside JSON:
[{"title": "...", "summary": "...", "confidence": "low|medium|high",
  "evidence": ["..."], "recommendation": "..."}]
Produce 2-4 findings grounded strictly in the numbers given.`

func (t *Task) narrate(ctx context.Context, f features) ([]Finding, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Platform: %s\nFocus: %s\n", f.Platform, t.Strategy.Focus)
	for _, line := range f.summaryLines() {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	maxTokens := t.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultNarrativeTokens
	}
	comp, err := t.LLM.Complete(ctx, llm.Request{
		System:    narrativePrompt,
		User:      b.String(),
		MaxTokens: maxTokens,
		WantJSON:  true,
	})
	if err != nil {
		return nil, err
	}
	findings, err := parseFindings(comp)
	if err != nil {
		return nil, err
	}
	if len(findings) == 0 {
		return nil, fmt.Errorf("model returned no findings")
	}
	return findings, nil
}

type findingWire struct {
	Title          string   `json:"title"`
	Summary        string   `json:"summary"`
	Confidence     string   `json:"confidence"`
	Evidence       []string `json:"evidence"`
	Recommendation string   `json:"recommendation"`
}

func parseFindings(comp llm.Completion) ([]Finding, error) {
	text := comp.Text
	var wire []findingWire
	if err := jsonutil.Unmarshal([]byte(text), &wire); err != nil {
		if comp.Finish != llm.FinishLength {
			return nil, fmt.Errorf("parse findings: %w", err)
		}
		repaired, rerr := jsonutil.Repair(text)
		if rerr != nil {
			return nil, fmt.Errorf("parse findings: %w", err)
		}
		if err := jsonutil.Unmarshal([]byte(repaired), &wire); err != nil {
			return nil, fmt.Errorf("parse repaired findings: %w", err)
		}
	}
	out := make([]Finding, 0, len(wire))
	for _, w := range wire {
		if w.Title == "" {
			continue
		}
		out = append(out, Finding{
			Title:          w.Title,
			Summary:        w.Summary,
			Confidence:     ParseConfidence(w.Confidence),
			Evidence:       w.Evidence,
			Recommendation: w.Recommendation,
		})
	}
	return out, nil
}

// statistical is the degraded path: findings assembled from the numeric
// summary without any model involvement.
func (t *Task) statistical(f features) []Finding {
	evidence := f.summaryLines()
	findings := []Finding{{
		Title:      fmt.Sprintf("%s activity overview", f.Platform),
		Summary:    fmt.Sprintf("%d records across %d days, averaging %.1f per week.", f.Records, int(f.Last.Sub(f.First).Hours()/24)+1, f.WeeklyCadence),
		Confidence: ConfidenceMedium,
		Evidence:   evidence,
	}}
	if w, ok := f.dominantDelta(); ok {
		direction := "grew"
		conf := ConfidenceMedium
		if w.DeltaPct < 0 {
			direction = "declined"
		}
		if absPct := w.DeltaPct; absPct < 5 && absPct > -5 {
			direction = "held steady"
			conf = ConfidenceLow
		}
		findings = append(findings, Finding{
			Title:      fmt.Sprintf("%s %s %s over the last 30 days", f.Platform, w.Field, direction),
			Summary:    fmt.Sprintf("%s moved from %.0f to %.0f (%+.1f%%) window over window.", w.Field, w.Prior, w.Recent, w.DeltaPct),
			Confidence: conf,
			Evidence:   evidence,
			Recommendation: fmt.Sprintf("Review what changed in %s content around %s.",
				f.Platform, f.Last.Add(-trendWindow).Format("2006-01-02")),
		})
	}
	return findings
}

func (t *Task) logf(format string, args ...any) {
	if t.Logger != nil {
		t.Logger.Printf(format, args...)
	}
}
