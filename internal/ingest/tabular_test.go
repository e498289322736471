package ingest

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"marketpulse/internal/schema"
	"marketpulse/internal/store"
)

func contentMapping() *schema.Mapping {
	return &schema.Mapping{
		SourceKind:  schema.KindContent,
		TimeKeyPath: "Date",
		Fields: map[store.CanonicalField]string{
			store.FieldImpressions: "Impressions (total)",
			store.FieldClicks:      "Clicks (total)",
		},
		Aggregation: schema.LevelPerRow,
	}
}

func contentCSV(rows int) []byte {
	var b strings.Builder
	b.WriteString("Date,Impressions (total),Clicks (total)\n")
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < rows; i++ {
		fmt.Fprintf(&b, "%s,%d,%d\n", start.AddDate(0, 0, i).Format("2006-01-02"), 100+i, 10+i)
	}
	return []byte(b.String())
}

func TestTabularLoadWithMapping(t *testing.T) {
	f := File{Name: "content_export.csv", Platform: store.PlatformLinkedIn, Data: contentCSV(365)}
	res, skip := TabularLoader{}.Load(f, contentMapping())
	if skip != nil {
		t.Fatalf("unexpected skip: %v", skip)
	}
	if len(res.Records) != 365 {
		t.Fatalf("got %d records, want 365", len(res.Records))
	}
	if res.DroppedRows != 0 {
		t.Fatalf("dropped %d rows", res.DroppedRows)
	}
	first := res.Records[0]
	if first.Platform != store.PlatformLinkedIn {
		t.Fatalf("platform = %s", first.Platform)
	}
	if first.Metrics[store.FieldImpressions] != 100 {
		t.Fatalf("impressions = %v", first.Metrics[store.FieldImpressions])
	}
}

func TestTabularBadRowsDroppedNotFatal(t *testing.T) {
	data := []byte("Date,Impressions (total),Clicks (total)\n" +
		"2025-01-01,100,10\n" +
		"not-a-date,200,20\n" +
		"2025-01-03,n/a,n/a\n" +
		"2025-01-04,400,40\n")
	res, skip := TabularLoader{}.Load(File{Name: "content.csv", Data: data}, contentMapping())
	if skip != nil {
		t.Fatalf("unexpected skip: %v", skip)
	}
	if len(res.Records) != 2 {
		t.Fatalf("got %d records, want 2", len(res.Records))
	}
	if res.DroppedRows != 2 {
		t.Fatalf("dropped %d, want 2", res.DroppedRows)
	}
}

func TestTabularHeuristicFallback(t *testing.T) {
	f := File{Name: "linkedin_content_2025.csv", Data: contentCSV(10)}
	res, skip := TabularLoader{}.Load(f, nil)
	if skip != nil {
		t.Fatalf("unexpected skip: %v", skip)
	}
	if len(res.Records) != 10 {
		t.Fatalf("got %d records", len(res.Records))
	}
	if res.Records[0].Platform != store.PlatformLinkedIn {
		t.Fatalf("platform = %s", res.Records[0].Platform)
	}
}

func TestTabularUnclassifiedSkip(t *testing.T) {
	f := File{Name: "mystery.csv", Data: contentCSV(3)}
	_, skip := TabularLoader{}.Load(f, nil)
	if skip == nil || skip.Code != SkipUnclassified {
		t.Fatalf("skip = %v, want unclassified", skip)
	}
}

func TestTabularRejectsHierarchicalKind(t *testing.T) {
	m := &schema.Mapping{
		SourceKind:  schema.KindPosts,
		TimeKeyPath: "Date",
		Fields:      map[store.CanonicalField]string{store.FieldLikes: "Likes"},
	}
	_, skip := TabularLoader{}.Load(File{Name: "mystery.csv", Data: contentCSV(3)}, m)
	if skip == nil || skip.Code != SkipUnclassified {
		t.Fatalf("skip = %v, want unclassified", skip)
	}
}

func TestTabularAggregateFlag(t *testing.T) {
	data := []byte("Date,Page views,Unique visitors\n2025-01-01,900,300\n")
	res, skip := TabularLoader{}.Load(File{Name: "Traffic report.csv", Data: data}, nil)
	if skip != nil {
		t.Fatalf("unexpected skip: %v", skip)
	}
	if !res.Records[0].Aggregate {
		t.Fatal("expected aggregate flag")
	}
	if res.Records[0].Platform != store.PlatformWebsite {
		t.Fatalf("platform = %s", res.Records[0].Platform)
	}
}

func TestTabularSample(t *testing.T) {
	sample, err := TabularLoader{}.Sample(File{Name: "content.csv", Data: contentCSV(50)})
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	if len(sample.Columns) != 3 {
		t.Fatalf("columns = %v", sample.Columns)
	}
	if len(sample.Rows) == 0 || len(sample.Rows) > 5 {
		t.Fatalf("rows = %d", len(sample.Rows))
	}
	if sample.Rows[0]["Date"] != "2025-01-01" {
		t.Fatalf("row 0 = %v", sample.Rows[0])
	}
}
