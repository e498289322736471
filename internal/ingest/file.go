package ingest

import (
	"fmt"
	"time"

	"marketpulse/internal/schema"
	"marketpulse/internal/store"
)

// SourceFamily groups files by shape, which decides the loader.
type SourceFamily string

const (
	FamilyTabular      SourceFamily = "tabular"
	FamilyHierarchical SourceFamily = "hierarchical"
)

// File is a discovered source file handed to the pipeline. Discovery is an
// external collaborator; the pipeline never walks directories itself.
type File struct {
	Name     string
	Path     string
	ModTime  time.Time
	Platform store.Platform
	Data     []byte
}

func (f File) Fingerprint() schema.Fingerprint {
	return schema.Fingerprint{Path: f.Path, ModTime: f.ModTime}
}

// FileSet is one run's input: discovered files grouped by family.
type FileSet map[SourceFamily][]File

// Total counts files across all families.
func (fs FileSet) Total() int {
	n := 0
	for _, files := range fs {
		n += len(files)
	}
	return n
}

// SkipReason documents why a file produced no records. It is a recorded
// fact, not an error.
type SkipReason struct {
	Code   string
	Detail string
}

func (r SkipReason) String() string {
	if r.Detail == "" {
		return r.Code
	}
	return fmt.Sprintf("%s: %s", r.Code, r.Detail)
}

const (
	SkipUnclassified = "unclassified"
	SkipUnreadable   = "unreadable"
	SkipEmpty        = "empty"
	SkipNoRows       = "no_usable_rows"
)

// LoadResult is a loader's answer for one file.
type LoadResult struct {
	Records     []store.TypedRecord
	DroppedRows int
}

// Loader turns one family of files into typed records. Row-level failures
// are absorbed and counted; only whole-file problems surface as skips.
type Loader interface {
	Family() SourceFamily
	// Sample extracts the bounded representative view the oracle sees.
	Sample(f File) (schema.Sample, error)
	// Load extracts records using the mapping, or heuristics when the
	// mapping is nil or not mappable by this family.
	Load(f File, mapping *schema.Mapping) (LoadResult, *SkipReason)
}
