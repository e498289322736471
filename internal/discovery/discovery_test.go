package discovery

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"marketpulse/internal/ingest"
	"marketpulse/internal/store"
)

func TestFamilyFor(t *testing.T) {
	cases := []struct {
		name   string
		family ingest.SourceFamily
		ok     bool
	}{
		{"content.csv", ingest.FamilyTabular, true},
		{"POSTS.JSON", ingest.FamilyHierarchical, true},
		{"readme.md", "", false},
		{"archive.zip", "", false},
	}
	for _, tc := range cases {
		family, ok := familyFor(tc.name)
		if ok != tc.ok || family != tc.family {
			t.Fatalf("familyFor(%q) = %q, %v", tc.name, family, ok)
		}
	}
}

func TestPlatformForDir(t *testing.T) {
	if p := platformForDir("LinkedIn"); p != store.PlatformLinkedIn {
		t.Fatalf("platform = %q", p)
	}
	if p := platformForDir("blog"); p != store.PlatformWebsite {
		t.Fatalf("platform = %q", p)
	}
	if p := platformForDir("downloads"); p != "" {
		t.Fatalf("platform = %q, want untagged", p)
	}
}

func TestLocalSourceDiscover(t *testing.T) {
	root := t.TempDir()
	write := func(rel, body string) {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("linkedin/content_2025.csv", "Date,Impressions (total)\n")
	write("instagram/posts.json", `{"organic_insights_posts":[]}`)
	write("website/notes.txt", "ignored")

	var src Source = NewLocalSource(root)
	files, err := src.Discover(context.Background())
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if files.Total() != 2 {
		t.Fatalf("total = %d, want 2", files.Total())
	}
	tab := files[ingest.FamilyTabular]
	if len(tab) != 1 || tab[0].Platform != store.PlatformLinkedIn {
		t.Fatalf("tabular = %+v", tab)
	}
	hier := files[ingest.FamilyHierarchical]
	if len(hier) != 1 || hier[0].Platform != store.PlatformInstagram {
		t.Fatalf("hierarchical = %+v", hier)
	}
}

func TestLocalSourceRequiresRoot(t *testing.T) {
	var src Source = NewLocalSource("  ")
	if _, err := src.Discover(context.Background()); err == nil {
		t.Fatal("expected error for empty root")
	}
}
