package analysis

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"strings"

	"marketpulse/internal/llm"
	"marketpulse/internal/store"
)

// Synthesizer answers a fixed set of cross-platform questions. Each
// question is computed independently: one failing or panicking question
// drops only its own finding.
type Synthesizer struct {
	LLM       llm.Completer
	MaxTokens int
	Logger    *log.Logger
}

type question struct {
	name string
	fn   func(ctx context.Context, st *store.UnifiedStore, perPlatform map[store.Platform][]Finding) (Finding, error)
}

func (s *Synthesizer) Name() string { return "synthesis" }

func (s *Synthesizer) Synthesize(ctx context.Context, st *store.UnifiedStore, perPlatform map[store.Platform][]Finding) []Finding {
	ctx = llm.WithTask(ctx, s.Name())
	questions := []question{
		{"growth trend", s.growthTrend},
		{"cross-platform leakage", s.leakage},
		{"platform prioritization", s.prioritization},
		{"recommended levers", s.levers},
	}
	var out []Finding
	for _, q := range questions {
		finding, err := s.answer(ctx, q, st, perPlatform)
		if err != nil {
			s.logf("synthesis: %s: %v", q.name, err)
			continue
		}
		out = append(out, finding)
	}
	return out
}

func (s *Synthesizer) answer(ctx context.Context, q question, st *store.UnifiedStore, perPlatform map[store.Platform][]Finding) (finding Finding, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return q.fn(ctx, st, perPlatform)
}

// growthTrend compares trailing-window movement across every platform
// with data and names the overall direction.
func (s *Synthesizer) growthTrend(_ context.Context, st *store.UnifiedStore, _ map[store.Platform][]Finding) (Finding, error) {
	var up, down int
	var evidence []string
	for _, p := range store.Platforms() {
		f := computeFeatures(p, st.Records(p))
		w, ok := f.dominantDelta()
		if !ok {
			continue
		}
		if w.DeltaPct >= 0 {
			up++
		} else {
			down++
		}
		evidence = append(evidence, fmt.Sprintf("%s %s %+.1f%% window over window", p, w.Field, w.DeltaPct))
	}
	if up+down == 0 {
		return Finding{}, fmt.Errorf("no platform has a comparable trend window")
	}
	direction := "mixed"
	conf := ConfidenceLow
	switch {
	case down == 0:
		direction, conf = "growing", ConfidenceHigh
	case up == 0:
		direction, conf = "declining", ConfidenceHigh
	case up > down:
		direction, conf = "mostly growing", ConfidenceMedium
	case down > up:
		direction, conf = "mostly declining", ConfidenceMedium
	}
	return Finding{
		Title:      fmt.Sprintf("Overall marketing reach is %s", direction),
		Summary:    fmt.Sprintf("%d of %d measurable platforms improved over the trailing 30 days.", up, up+down),
		Confidence: conf,
		Evidence:   evidence,
	}, nil
}

// leakage looks for funnel loss: platforms whose reach moved without a
// matching move in site traffic.
func (s *Synthesizer) leakage(_ context.Context, st *store.UnifiedStore, _ map[store.Platform][]Finding) (Finding, error) {
	site := computeFeatures(store.PlatformWebsite, st.Records(store.PlatformWebsite))
	siteW, ok := site.dominantDelta()
	if !ok {
		return Finding{}, fmt.Errorf("no comparable website window")
	}
	var evidence []string
	var leaks []string
	for _, p := range []store.Platform{store.PlatformLinkedIn, store.PlatformInstagram} {
		f := computeFeatures(p, st.Records(p))
		w, ok := f.dominantDelta()
		if !ok {
			continue
		}
		evidence = append(evidence, fmt.Sprintf("%s %s %+.1f%% vs website %s %+.1f%%", p, w.Field, w.DeltaPct, siteW.Field, siteW.DeltaPct))
		if w.DeltaPct > 10 && siteW.DeltaPct < w.DeltaPct/2 {
			leaks = append(leaks, string(p))
		}
	}
	if len(evidence) == 0 {
		return Finding{}, fmt.Errorf("no social platform has a comparable window")
	}
	if len(leaks) == 0 {
		return Finding{
			Title:      "No major funnel leakage detected",
			Summary:    "Social reach movement is tracked by website traffic within tolerance.",
			Confidence: ConfidenceLow,
			Evidence:   evidence,
		}, nil
	}
	return Finding{
		Title:          fmt.Sprintf("Reach gains on %s are not converting to site traffic", strings.Join(leaks, ", ")),
		Summary:        "Audience growth on social is outpacing website visit growth, suggesting weak calls to action or broken pathways.",
		Confidence:     ConfidenceMedium,
		Evidence:       evidence,
		Recommendation: "Audit link placement and landing pages for the flagged platforms.",
	}, nil
}

// prioritization ranks platforms by a composite of recent volume and
// window-over-window growth on the dominant metric.
func (s *Synthesizer) prioritization(_ context.Context, st *store.UnifiedStore, _ map[store.Platform][]Finding) (Finding, error) {
	type scored struct {
		platform store.Platform
		score    float64
		detail   string
	}
	var ranked []scored
	maxRecent := 0.0
	feats := make(map[store.Platform]features)
	for _, p := range store.Platforms() {
		f := computeFeatures(p, st.Records(p))
		feats[p] = f
		if w, ok := f.dominantDelta(); ok && w.Recent > maxRecent {
			maxRecent = w.Recent
		}
	}
	for _, p := range store.Platforms() {
		w, ok := feats[p].dominantDelta()
		if !ok {
			continue
		}
		volume := 0.0
		if maxRecent > 0 {
			volume = w.Recent / maxRecent
		}
		growth := math.Max(-1, math.Min(1, w.DeltaPct/100))
		score := 0.6*volume + 0.4*growth
		ranked = append(ranked, scored{p, score, fmt.Sprintf("%s score %.2f (volume %.2f, growth %+.1f%%)", p, score, volume, w.DeltaPct)})
	}
	if len(ranked) == 0 {
		return Finding{}, fmt.Errorf("no platform is scorable")
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	evidence := make([]string, len(ranked))
	for i, r := range ranked {
		evidence[i] = r.detail
	}
	return Finding{
		Title:          fmt.Sprintf("Prioritize %s", ranked[0].platform),
		Summary:        fmt.Sprintf("%s leads the composite volume+growth score; rank: %s.", ranked[0].platform, joinPlatforms(ranked, func(r scored) store.Platform { return r.platform })),
		Confidence:     ConfidenceMedium,
		Evidence:       evidence,
		Recommendation: fmt.Sprintf("Shift incremental effort toward %s while maintaining the rest.", ranked[0].platform),
	}, nil
}

// levers turns the per-platform findings into a short action list, with
// an optional model pass to phrase them as one narrative.
func (s *Synthesizer) levers(ctx context.Context, st *store.UnifiedStore, perPlatform map[store.Platform][]Finding) (Finding, error) {
	var evidence []string
	var recs []string
	for _, p := range store.Platforms() {
		for _, f := range perPlatform[p] {
			if f.Recommendation != "" {
				recs = append(recs, fmt.Sprintf("%s: %s", p, f.Recommendation))
			}
			evidence = append(evidence, fmt.Sprintf("%s: %s", p, f.Title))
		}
	}
	if len(evidence) == 0 {
		return Finding{}, fmt.Errorf("no platform findings to draw levers from")
	}
	summary := "Concentrate on the recommendations already surfaced per platform."
	if s.LLM != nil {
		if text, err := s.narrateLevers(ctx, evidence, recs); err == nil && text != "" {
			summary = text
		}
	}
	if len(recs) == 0 {
		recs = []string{"Establish a per-platform baseline before committing budget shifts."}
	}
	return Finding{
		Title:          "Recommended levers",
		Summary:        summary,
		Confidence:     ConfidenceMedium,
		Evidence:       evidence,
		Recommendation: strings.Join(recs, " "),
	}, nil
}

const leversPrompt = `You are a marketing strategist. Given per-platform findings and raw
recommendations, write ONE short paragraph (no JSON, no lists) naming the
two highest-impact actions. Respond with the paragraph only.`

func (s *Synthesizer) narrateLevers(ctx context.Context, evidence, recs []string) (string, error) {
	maxTokens := s.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultNarrativeTokens
	}
	comp, err := s.LLM.Complete(ctx, llm.Request{
		System:    leversPrompt,
		User:      strings.Join(append(evidence, recs...), "\n"),
		MaxTokens: maxTokens,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(comp.Text), nil
}

func joinPlatforms[T any](items []T, key func(T) store.Platform) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = string(key(it))
	}
	return strings.Join(parts, " > ")
}

func (s *Synthesizer) logf(format string, args ...any) {
	if s.Logger != nil {
		s.Logger.Printf(format, args...)
	}
}
