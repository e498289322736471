package analysis

import (
	"fmt"
	"math"
	"sort"
	"time"

	"marketpulse/internal/store"
)

const trendWindow = 30 * 24 * time.Hour

// metricWindow holds a metric's totals over the trailing window and the
// window before it, with the relative change between them.
type metricWindow struct {
	Field    store.CanonicalField
	Recent   float64
	Prior    float64
	DeltaPct float64 // NaN when the prior window is empty
}

// features is the compact numeric summary handed to the narrative model
// and used directly on the degraded path.
type features struct {
	Platform      store.Platform
	Records       int
	First, Last   time.Time
	Windows       []metricWindow
	WeeklyCadence float64 // records per week over the covered span
}

func computeFeatures(platform store.Platform, records []store.TypedRecord) features {
	f := features{Platform: platform, Records: len(records)}
	if len(records) == 0 {
		return f
	}
	f.First = records[0].Day()
	f.Last = records[len(records)-1].Day()

	cut := f.Last.Add(-trendWindow)
	priorCut := cut.Add(-trendWindow)
	recent := make(map[store.CanonicalField]float64)
	prior := make(map[store.CanonicalField]float64)
	for _, r := range records {
		day := r.Day()
		var dst map[store.CanonicalField]float64
		switch {
		case day.After(cut):
			dst = recent
		case day.After(priorCut):
			dst = prior
		default:
			continue
		}
		for field, v := range r.Metrics {
			dst[field] += v
		}
	}
	fields := make([]store.CanonicalField, 0, len(recent))
	for field := range recent {
		fields = append(fields, field)
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i] < fields[j] })
	for _, field := range fields {
		w := metricWindow{Field: field, Recent: recent[field], Prior: prior[field]}
		if w.Prior != 0 {
			w.DeltaPct = (w.Recent - w.Prior) / w.Prior * 100
		} else {
			w.DeltaPct = math.NaN()
		}
		f.Windows = append(f.Windows, w)
	}

	if span := f.Last.Sub(f.First); span > 0 {
		f.WeeklyCadence = float64(len(records)) / span.Hours() * 24 * 7
	}
	return f
}

// summaryLines renders the features as evidence strings. The same text
// doubles as the model's numeric context.
func (f features) summaryLines() []string {
	lines := []string{
		fmt.Sprintf("%d dated records from %s to %s", f.Records,
			f.First.Format("2006-01-02"), f.Last.Format("2006-01-02")),
		fmt.Sprintf("posting cadence %.1f records/week", f.WeeklyCadence),
	}
	for _, w := range f.Windows {
		if math.IsNaN(w.DeltaPct) {
			lines = append(lines, fmt.Sprintf("%s: %.0f in trailing 30d (no prior-window baseline)", w.Field, w.Recent))
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %.0f in trailing 30d vs %.0f prior (%+.1f%%)", w.Field, w.Recent, w.Prior, w.DeltaPct))
	}
	return lines
}

// dominantDelta picks the largest-magnitude comparable window change.
func (f features) dominantDelta() (metricWindow, bool) {
	var best metricWindow
	found := false
	for _, w := range f.Windows {
		if math.IsNaN(w.DeltaPct) {
			continue
		}
		if !found || math.Abs(w.DeltaPct) > math.Abs(best.DeltaPct) {
			best, found = w, true
		}
	}
	return best, found
}
