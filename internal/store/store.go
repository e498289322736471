package store

import (
	"sort"
	"sync"
	"time"
)

// MergePolicy decides how pre-aggregated totals are folded into the per-date
// buckets of a platform.
type MergePolicy int

const (
	// MergeSumByDate adds an aggregate record's values into the bucket of
	// its own date, creating the bucket if absent.
	MergeSumByDate MergePolicy = iota
	// MergeSpreadEven distributes an aggregate record's values evenly
	// across the platform's existing date buckets. With no existing
	// buckets it degrades to MergeSumByDate.
	MergeSpreadEven
)

// Skip records a file the pipeline chose not to load. A skip is a fact, not
// an error.
type Skip struct {
	File   string `json:"file"`
	Reason string `json:"reason"`
}

// UnifiedStore aggregates every TypedRecord grouped by platform and date.
// It is owned by the ingestion pipeline for the duration of a run and sealed
// before analysis; after Seal all writes are programmer errors.
type UnifiedStore struct {
	mu     sync.RWMutex
	sealed bool
	policy MergePolicy

	byPlatform map[Platform]map[time.Time]*TypedRecord

	skips       []Skip
	skippedRows int
}

func NewUnifiedStore(policy MergePolicy) *UnifiedStore {
	return &UnifiedStore{
		policy:     policy,
		byPlatform: make(map[Platform]map[time.Time]*TypedRecord),
	}
}

// Add merges a record into its (platform, date) bucket, summing metric
// values so overlapping files for the same day never produce duplicates.
// Aggregate records are folded in according to the merge policy.
func (s *UnifiedStore) Add(rec TypedRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mustWritable()

	if rec.Aggregate && s.policy == MergeSpreadEven {
		if buckets := s.byPlatform[rec.Platform]; len(buckets) > 0 {
			n := float64(len(buckets))
			for _, b := range buckets {
				for f, v := range rec.Metrics {
					b.Metrics[f] += v / n
				}
			}
			return
		}
	}
	s.addLocked(rec)
}

func (s *UnifiedStore) addLocked(rec TypedRecord) {
	day := rec.Day()
	buckets, ok := s.byPlatform[rec.Platform]
	if !ok {
		buckets = make(map[time.Time]*TypedRecord)
		s.byPlatform[rec.Platform] = buckets
	}
	b, ok := buckets[day]
	if !ok {
		b = &TypedRecord{Platform: rec.Platform, Date: day, Metrics: make(map[CanonicalField]float64)}
		buckets[day] = b
	}
	for f, v := range rec.Metrics {
		b.Metrics[f] += v
	}
}

// RecordSkip notes a file that was not loaded and why.
func (s *UnifiedStore) RecordSkip(file, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mustWritable()
	s.skips = append(s.skips, Skip{File: file, Reason: reason})
}

// RecordDroppedRows counts rows dropped inside otherwise loaded files.
func (s *UnifiedStore) RecordDroppedRows(n int) {
	if n <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mustWritable()
	s.skippedRows += n
}

// Seal freezes the store for the read-only analysis phases.
func (s *UnifiedStore) Seal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sealed = true
}

func (s *UnifiedStore) mustWritable() {
	if s.sealed {
		panic("store: write after Seal")
	}
}

// Records returns the platform's records sorted by date.
func (s *UnifiedStore) Records(p Platform) []TypedRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	buckets := s.byPlatform[p]
	out := make([]TypedRecord, 0, len(buckets))
	for _, b := range buckets {
		cp := TypedRecord{Platform: b.Platform, Date: b.Date, Metrics: make(map[CanonicalField]float64, len(b.Metrics))}
		for f, v := range b.Metrics {
			cp.Metrics[f] = v
		}
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// TotalRecords counts date buckets across all platforms.
func (s *UnifiedStore) TotalRecords() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, buckets := range s.byPlatform {
		n += len(buckets)
	}
	return n
}

// Count reports the number of date buckets for one platform.
func (s *UnifiedStore) Count(p Platform) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byPlatform[p])
}

// Skips returns the recorded file skips.
func (s *UnifiedStore) Skips() []Skip {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Skip(nil), s.skips...)
}

// DroppedRows reports rows dropped inside loaded files.
func (s *UnifiedStore) DroppedRows() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.skippedRows
}

// Summary is the serializable shape of the store for run reports.
type Summary struct {
	Counts      map[Platform]int `json:"counts"`
	Skips       []Skip           `json:"skips,omitempty"`
	DroppedRows int              `json:"dropped_rows,omitempty"`
}

func (s *UnifiedStore) Summarize() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[Platform]int, len(s.byPlatform))
	for p, buckets := range s.byPlatform {
		counts[p] = len(buckets)
	}
	return Summary{Counts: counts, Skips: append([]Skip(nil), s.skips...), DroppedRows: s.skippedRows}
}
