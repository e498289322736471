package ingest

import (
	"fmt"
	"time"

	"marketpulse/internal/schema"
	"marketpulse/internal/store"
	"marketpulse/internal/util/jsonutil"
)

var hierarchicalKinds = map[schema.SourceKind]bool{
	schema.KindPosts:        true,
	schema.KindAudience:     true,
	schema.KindInteractions: true,
	schema.KindReached:      true,
}

// HierarchicalLoader reads nested JSON exports. Field paths are dot paths
// relative to each entry under the mapping's entries path.
type HierarchicalLoader struct{}

func (HierarchicalLoader) Family() SourceFamily { return FamilyHierarchical }

func (HierarchicalLoader) Sample(f File) (schema.Sample, error) {
	var root any
	if err := jsonutil.Unmarshal(f.Data, &root); err != nil {
		return schema.Sample{}, fmt.Errorf("decode %s: %w", f.Name, err)
	}
	sample := schema.Sample{FileName: f.Name}
	entries := entriesAt(root, "")
	for _, e := range entries {
		if m, ok := e.(map[string]any); ok {
			sample.Rows = append(sample.Rows, m)
		}
		if len(sample.Rows) >= 3 {
			break
		}
	}
	if len(sample.Rows) == 0 {
		if m, ok := root.(map[string]any); ok {
			for k := range m {
				sample.Columns = append(sample.Columns, k)
			}
		}
	}
	return sample.Truncate(), nil
}

func (l HierarchicalLoader) Load(f File, mapping *schema.Mapping) (LoadResult, *SkipReason) {
	m, platform, skip := l.resolveMapping(f, mapping)
	if skip != nil {
		return LoadResult{}, skip
	}

	var root any
	if err := jsonutil.Unmarshal(f.Data, &root); err != nil {
		return LoadResult{}, &SkipReason{Code: SkipUnreadable, Detail: err.Error()}
	}
	entries := entriesAt(root, m.EntriesPath)
	if len(entries) == 0 {
		return LoadResult{}, &SkipReason{Code: SkipEmpty, Detail: fmt.Sprintf("no entries at %q", m.EntriesPath)}
	}

	var res LoadResult
	for _, entry := range entries {
		raw, ok := lookupPath(entry, m.TimeKeyPath)
		if !ok {
			res.DroppedRows++
			continue
		}
		date, err := dateFromValue(raw, m.TimeFormat)
		if err != nil {
			res.DroppedRows++
			continue
		}
		metrics := make(map[store.CanonicalField]float64, len(m.Fields))
		for field, path := range m.Fields {
			v, ok := lookupPath(entry, path)
			if !ok {
				continue
			}
			if n, ok := parseNumber(v); ok {
				metrics[field] = n
			}
		}
		if len(metrics) == 0 {
			res.DroppedRows++
			continue
		}
		res.Records = append(res.Records, store.TypedRecord{
			Platform:  platform,
			Date:      date,
			Metrics:   metrics,
			Aggregate: m.Aggregation == schema.LevelAggregate,
		})
	}
	if len(res.Records) == 0 {
		return LoadResult{}, &SkipReason{Code: SkipNoRows, Detail: fmt.Sprintf("%d entries dropped", res.DroppedRows)}
	}
	return res, nil
}

func (HierarchicalLoader) resolveMapping(f File, mapping *schema.Mapping) (schema.Mapping, store.Platform, *SkipReason) {
	if mapping != nil && mapping.Valid() && hierarchicalKinds[mapping.SourceKind] {
		return *mapping, platformFor(f, mapping.SourceKind), nil
	}
	rule := heuristicFor(FamilyHierarchical, f.Name)
	if rule == nil {
		return schema.Mapping{}, "", &SkipReason{Code: SkipUnclassified}
	}
	platform := f.Platform
	if platform == "" {
		platform = rule.platform
	}
	return rule.mapping, platform, nil
}

// entriesAt resolves the entry list. An empty path means the document root,
// accepting either a top-level array or the first array-valued key.
func entriesAt(root any, path string) []any {
	node := root
	if path != "" {
		v, ok := lookupPath(root, path)
		if !ok {
			return nil
		}
		node = v
	}
	switch n := node.(type) {
	case []any:
		return n
	case map[string]any:
		if path != "" {
			return nil
		}
		for _, v := range n {
			if list, ok := v.([]any); ok {
				return list
			}
		}
	}
	return nil
}

// dateFromValue accepts string dates and numeric epoch timestamps.
func dateFromValue(v any, hint string) (time.Time, error) {
	switch t := v.(type) {
	case string:
		return parseDate(t, hint)
	case float64:
		return epochToTime(int64(t))
	case int64:
		return epochToTime(t)
	}
	return time.Time{}, fmt.Errorf("unsupported time value %T", v)
}
