// Package discovery turns storage locations into the file set the
// ingestion pipeline consumes. The layout convention is one directory
// (or object prefix) per platform: linkedin/, instagram/, website/.
// CSV files are tabular sources, JSON files are hierarchical ones.
package discovery

import (
	"context"
	"path"
	"strings"

	"marketpulse/internal/ingest"
	"marketpulse/internal/store"
)

// Source enumerates readable input files grouped by source family.
type Source interface {
	Discover(ctx context.Context) (ingest.FileSet, error)
}

// familyFor classifies by extension. Anything else is not an input file.
func familyFor(name string) (ingest.SourceFamily, bool) {
	switch strings.ToLower(path.Ext(name)) {
	case ".csv":
		return ingest.FamilyTabular, true
	case ".json":
		return ingest.FamilyHierarchical, true
	}
	return "", false
}

// platformForDir maps a top-level directory name onto a platform tag.
// Files outside a known platform directory stay untagged; the loader
// then infers the platform from the discovered source kind.
func platformForDir(dir string) store.Platform {
	switch strings.ToLower(dir) {
	case "linkedin":
		return store.PlatformLinkedIn
	case "instagram":
		return store.PlatformInstagram
	case "website", "web", "blog":
		return store.PlatformWebsite
	}
	return ""
}
