package schema

import (
	"strings"

	"marketpulse/internal/store"
)

// SourceKind is the closed set of file categories the oracle may assign.
// Anything outside the set collapses to KindUnclassified so loaders can
// switch exhaustively.
type SourceKind string

const (
	KindContent      SourceKind = "content"
	KindFollowers    SourceKind = "followers"
	KindVisitors     SourceKind = "visitors"
	KindPosts        SourceKind = "posts"
	KindAudience     SourceKind = "audience"
	KindInteractions SourceKind = "interactions"
	KindReached      SourceKind = "reached"
	KindTraffic      SourceKind = "traffic"
	KindUnclassified SourceKind = "unclassified"
)

// ParseSourceKind maps free-form oracle output onto the closed enum.
func ParseSourceKind(s string) SourceKind {
	switch SourceKind(strings.ToLower(strings.TrimSpace(s))) {
	case KindContent:
		return KindContent
	case KindFollowers:
		return KindFollowers
	case KindVisitors:
		return KindVisitors
	case KindPosts:
		return KindPosts
	case KindAudience:
		return KindAudience
	case KindInteractions:
		return KindInteractions
	case KindReached:
		return KindReached
	case KindTraffic:
		return KindTraffic
	default:
		return KindUnclassified
	}
}

// AggregationLevel distinguishes per-row observations from files whose rows
// are pre-aggregated totals.
type AggregationLevel string

const (
	LevelPerRow    AggregationLevel = "per_row"
	LevelAggregate AggregationLevel = "aggregate"
)

func ParseAggregationLevel(s string) AggregationLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "aggregate", "pre_aggregated", "pre-aggregated", "total":
		return LevelAggregate
	default:
		return LevelPerRow
	}
}

// Mapping is the oracle's (or a heuristic's) answer for one file: what it
// is, where its time key lives, and how its fields map onto canonical names.
// Immutable once produced for a fingerprint; owned by the Cache.
type Mapping struct {
	SourceKind  SourceKind                      `json:"source_kind"`
	TimeKeyPath string                          `json:"time_key_path"`
	Fields      map[store.CanonicalField]string `json:"fields"`
	Aggregation AggregationLevel                `json:"aggregation,omitempty"`
	TimeFormat  string                          `json:"time_format,omitempty"`
	// EntriesPath locates the entry list inside hierarchical files; the
	// time key and field paths are then relative to each entry.
	EntriesPath string `json:"entries_path,omitempty"`
}

// Valid reports whether the mapping can drive a loader at all.
func (m Mapping) Valid() bool {
	return m.SourceKind != "" && m.SourceKind != KindUnclassified &&
		m.TimeKeyPath != "" && len(m.Fields) > 0
}
