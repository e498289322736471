package schema

import (
	"testing"
	"time"

	"marketpulse/internal/store"
)

func TestCachePutGet(t *testing.T) {
	c := NewCache()
	fp := Fingerprint{Path: "/data/export.csv", ModTime: time.Unix(1000, 0)}
	m := Mapping{
		SourceKind:  KindContent,
		TimeKeyPath: "Date",
		Fields:      map[store.CanonicalField]string{store.FieldImpressions: "Impressions (total)"},
	}

	if _, ok := c.Get(fp); ok {
		t.Fatal("expected miss before Put")
	}
	c.Put(fp, m)
	got, ok := c.Get(fp)
	if !ok {
		t.Fatal("expected hit after Put")
	}
	if got.TimeKeyPath != "Date" {
		t.Fatalf("mapping = %+v", got)
	}
}

func TestCacheModTimeInvalidates(t *testing.T) {
	c := NewCache()
	fp := Fingerprint{Path: "/data/export.csv", ModTime: time.Unix(1000, 0)}
	c.Put(fp, Mapping{SourceKind: KindContent, TimeKeyPath: "Date"})

	touched := Fingerprint{Path: fp.Path, ModTime: time.Unix(2000, 0)}
	if _, ok := c.Get(touched); ok {
		t.Fatal("touched file must miss the cache")
	}
}

func TestFingerprintKeyStable(t *testing.T) {
	fp := Fingerprint{Path: "/data/export.csv", ModTime: time.Unix(1000, 0)}
	if fp.Key() != fp.Key() {
		t.Fatal("key must be deterministic")
	}
	other := Fingerprint{Path: "/data/other.csv", ModTime: time.Unix(1000, 0)}
	if fp.Key() == other.Key() {
		t.Fatal("distinct paths must not collide")
	}
}
