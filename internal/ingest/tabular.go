package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"

	"marketpulse/internal/schema"
	"marketpulse/internal/store"
)

// tabularKinds is the set of source kinds this loader can extract from.
var tabularKinds = map[schema.SourceKind]bool{
	schema.KindContent:   true,
	schema.KindFollowers: true,
	schema.KindVisitors:  true,
	schema.KindTraffic:   true,
}

// TabularLoader reads CSV exports. Field paths are plain column names.
type TabularLoader struct{}

func (TabularLoader) Family() SourceFamily { return FamilyTabular }

func (TabularLoader) Sample(f File) (schema.Sample, error) {
	header, rows, err := readCSV(f.Data, 5)
	if err != nil {
		return schema.Sample{}, err
	}
	sample := schema.Sample{FileName: f.Name, Columns: header}
	for _, row := range rows {
		entry := make(map[string]any, len(header))
		for i, col := range header {
			if i < len(row) {
				entry[col] = row[i]
			}
		}
		sample.Rows = append(sample.Rows, entry)
	}
	return sample.Truncate(), nil
}

func (l TabularLoader) Load(f File, mapping *schema.Mapping) (LoadResult, *SkipReason) {
	m, platform, skip := l.resolveMapping(f, mapping)
	if skip != nil {
		return LoadResult{}, skip
	}

	header, rows, err := readCSV(f.Data, -1)
	if err != nil {
		return LoadResult{}, &SkipReason{Code: SkipUnreadable, Detail: err.Error()}
	}
	if len(rows) == 0 {
		return LoadResult{}, &SkipReason{Code: SkipEmpty}
	}
	colIdx := make(map[string]int, len(header))
	for i, col := range header {
		colIdx[col] = i
	}
	timeIdx, ok := colIdx[m.TimeKeyPath]
	if !ok {
		return LoadResult{}, &SkipReason{Code: SkipNoRows, Detail: fmt.Sprintf("time column %q not found", m.TimeKeyPath)}
	}

	var res LoadResult
	for _, row := range rows {
		if timeIdx >= len(row) {
			res.DroppedRows++
			continue
		}
		date, err := parseDate(row[timeIdx], m.TimeFormat)
		if err != nil {
			res.DroppedRows++
			continue
		}
		metrics := make(map[store.CanonicalField]float64, len(m.Fields))
		for field, col := range m.Fields {
			idx, ok := colIdx[col]
			if !ok || idx >= len(row) {
				continue
			}
			if v, ok := parseNumber(row[idx]); ok {
				metrics[field] = v
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
		return LoadResult{}, &SkipReason{Code: SkipNoRows, Detail: fmt.Sprintf("%d rows dropped", res.DroppedRows)}
	}
	return res, nil
}

func (TabularLoader) resolveMapping(f File, mapping *schema.Mapping) (schema.Mapping, store.Platform, *SkipReason) {
	if mapping != nil && mapping.Valid() && tabularKinds[mapping.SourceKind] {
		return *mapping, platformFor(f, mapping.SourceKind), nil
	}
	rule := heuristicFor(FamilyTabular, f.Name)
	if rule == nil {
		return schema.Mapping{}, "", &SkipReason{Code: SkipUnclassified}
	}
	platform := f.Platform
	if platform == "" {
		platform = rule.platform
	}
	return rule.mapping, platform, nil
}

// readCSV decodes header + rows. maxRows < 0 means all rows.
func readCSV(data []byte, maxRows int) ([]string, [][]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	var rows [][]string
	for maxRows < 0 || len(rows) < maxRows {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// One malformed line should not sink the file.
			continue
		}
		rows = append(rows, row)
	}
	return header, rows, nil
}
