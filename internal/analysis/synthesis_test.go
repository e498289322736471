package analysis

import (
	"context"
	"strings"
	"testing"
	"time"

	"marketpulse/internal/store"
)

func seedAllPlatforms(t *testing.T) *store.UnifiedStore {
	t.Helper()
	s := store.NewUnifiedStore(store.MergeSumByDate)
	end := time.Now().UTC().Truncate(24 * time.Hour)
	fields := map[store.Platform]store.CanonicalField{
		store.PlatformLinkedIn:  store.FieldImpressions,
		store.PlatformInstagram: store.FieldReach,
		store.PlatformWebsite:   store.FieldPageViews,
	}
	for platform, field := range fields {
		for i := 0; i < 90; i++ {
			v := 100.0 + float64(90-i) // steady growth everywhere
			s.Add(store.TypedRecord{
				Platform: platform,
				Date:     end.AddDate(0, 0, -i),
				Metrics:  map[store.CanonicalField]float64{field: v},
			})
		}
	}
	s.Seal()
	return s
}

func platformFindings() map[store.Platform][]Finding {
	return map[store.Platform][]Finding{
		store.PlatformLinkedIn: {{
			Title:          "Impressions climbing",
			Recommendation: "Post twice a week.",
		}},
	}
}

func TestSynthesizeAnswersAllQuestions(t *testing.T) {
	s := &Synthesizer{}
	findings := s.Synthesize(context.Background(), seedAllPlatforms(t), platformFindings())
	if len(findings) != 4 {
		t.Fatalf("got %d findings, want 4", len(findings))
	}
}

func TestSynthesizeQuestionsIndependent(t *testing.T) {
	// An empty store starves the numeric questions; the levers question
	// still answers from the per-platform findings alone.
	empty := store.NewUnifiedStore(store.MergeSumByDate)
	empty.Seal()

	s := &Synthesizer{}
	findings := s.Synthesize(context.Background(), empty, platformFindings())
	if len(findings) != 1 {
		t.Fatalf("got %d findings, want only levers", len(findings))
	}
	if findings[0].Title != "Recommended levers" {
		t.Fatalf("title = %q", findings[0].Title)
	}
	if !strings.Contains(findings[0].Recommendation, "Post twice a week.") {
		t.Fatalf("recommendation = %q", findings[0].Recommendation)
	}
}

func TestSynthesizeNothingToSayIsEmpty(t *testing.T) {
	empty := store.NewUnifiedStore(store.MergeSumByDate)
	empty.Seal()

	s := &Synthesizer{}
	findings := s.Synthesize(context.Background(), empty, nil)
	if len(findings) != 0 {
		t.Fatalf("got %d findings, want none", len(findings))
	}
}

func TestPrioritizationRanksByScore(t *testing.T) {
	s := &Synthesizer{}
	st := seedAllPlatforms(t)
	finding, err := s.prioritization(context.Background(), st, nil)
	if err != nil {
		t.Fatalf("prioritization: %v", err)
	}
	if !strings.HasPrefix(finding.Title, "Prioritize ") {
		t.Fatalf("title = %q", finding.Title)
	}
	if len(finding.Evidence) != 3 {
		t.Fatalf("evidence = %v", finding.Evidence)
	}
}

func TestGrowthTrendDirection(t *testing.T) {
	s := &Synthesizer{}
	finding, err := s.growthTrend(context.Background(), seedAllPlatforms(t), nil)
	if err != nil {
		t.Fatalf("growth trend: %v", err)
	}
	if finding.Confidence != ConfidenceHigh {
		t.Fatalf("confidence = %v for uniform growth", finding.Confidence)
	}
	if !strings.Contains(finding.Title, "growing") {
		t.Fatalf("title = %q", finding.Title)
	}
}
