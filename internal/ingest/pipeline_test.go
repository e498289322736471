package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"marketpulse/internal/llm"
	"marketpulse/internal/schema"
	"marketpulse/internal/store"
)

const oracleContentJSON = `{
  "source_kind": "content",
  "time_key_path": "Date",
  "mappings": {"impressions": "Impressions (total)", "clicks": "Clicks (total)"},
  "aggregation_level": "per_row"
}`

func newPipeline(client llm.Completer) *Pipeline {
	return &Pipeline{
		Oracle:  &schema.Oracle{LLM: client},
		Cache:   schema.NewCache(),
		Loaders: []Loader{TabularLoader{}, HierarchicalLoader{}},
	}
}

func TestPipelineEndToEnd(t *testing.T) {
	client := llm.NewFakeClient(llm.Completion{Text: oracleContentJSON})
	p := newPipeline(client)

	files := FileSet{FamilyTabular: {{
		Name:     "export.csv",
		Path:     "/data/linkedin/export.csv",
		ModTime:  time.Unix(1000, 0),
		Platform: store.PlatformLinkedIn,
		Data:     contentCSV(365),
	}}}
	st, err := p.Run(context.Background(), files)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := st.Count(store.PlatformLinkedIn); got != 365 {
		t.Fatalf("got %d records, want 365", got)
	}
	if len(st.Skips()) != 0 {
		t.Fatalf("unexpected skips: %v", st.Skips())
	}
}

func TestPipelineCacheIdempotence(t *testing.T) {
	client := llm.NewFakeClient(llm.Completion{Text: oracleContentJSON})
	p := newPipeline(client)

	file := File{
		Name:    "export.csv",
		Path:    "/data/export.csv",
		ModTime: time.Unix(1000, 0),
		Data:    contentCSV(30),
	}
	files := FileSet{FamilyTabular: {file}}

	if _, err := p.Run(context.Background(), files); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if _, err := p.Run(context.Background(), files); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if client.Calls() != 1 {
		t.Fatalf("oracle called %d times, want 1", client.Calls())
	}

	// Touching the file invalidates the cached mapping.
	file.ModTime = time.Unix(2000, 0)
	if _, err := p.Run(context.Background(), FileSet{FamilyTabular: {file}}); err != nil {
		t.Fatalf("third run: %v", err)
	}
	if client.Calls() != 2 {
		t.Fatalf("oracle called %d times after touch, want 2", client.Calls())
	}
}

func TestPipelineZeroFilesFatal(t *testing.T) {
	p := newPipeline(llm.NewFakeClient())
	_, err := p.Run(context.Background(), FileSet{})
	if !errors.Is(err, ErrPipelineFatal) {
		t.Fatalf("err = %v, want ErrPipelineFatal", err)
	}
}

func TestPipelineAllFilesSkippedFatal(t *testing.T) {
	p := newPipeline((&llm.FakeClient{}).Fail(llm.ErrUnavailable))
	files := FileSet{FamilyTabular: {{
		Name: "mystery.csv",
		Path: "/data/mystery.csv",
		Data: []byte("A,B\n1,2\n"),
	}}}
	st, err := p.Run(context.Background(), files)
	if !errors.Is(err, ErrPipelineFatal) {
		t.Fatalf("err = %v, want ErrPipelineFatal", err)
	}
	if st == nil || len(st.Skips()) != 1 {
		t.Fatalf("expected one recorded skip, got %+v", st)
	}
}

func TestPipelineOracleDownFallsBackToHeuristics(t *testing.T) {
	p := newPipeline((&llm.FakeClient{}).Fail(llm.ErrUnavailable))
	files := FileSet{FamilyTabular: {{
		Name: "content_export.csv",
		Path: "/data/content_export.csv",
		Data: contentCSV(10),
	}}}
	st, err := p.Run(context.Background(), files)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := st.Count(store.PlatformLinkedIn); got != 10 {
		t.Fatalf("got %d records, want 10", got)
	}
}

func TestPipelineBadFileDoesNotSinkRun(t *testing.T) {
	client := llm.NewFakeClient(llm.Completion{Text: oracleContentJSON})
	p := newPipeline(client)
	files := FileSet{
		FamilyTabular: {
			{Name: "export.csv", Path: "/d/export.csv", Data: contentCSV(5)},
		},
		FamilyHierarchical: {
			{Name: "broken.json", Path: "/d/broken.json", Data: []byte("{oops")},
		},
	}
	st, err := p.Run(context.Background(), files)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if st.TotalRecords() != 5 {
		t.Fatalf("records = %d", st.TotalRecords())
	}
	if len(st.Skips()) != 1 {
		t.Fatalf("skips = %v", st.Skips())
	}
}

func TestPipelineSealsStore(t *testing.T) {
	client := llm.NewFakeClient(llm.Completion{Text: oracleContentJSON})
	p := newPipeline(client)
	st, err := p.Run(context.Background(), FileSet{FamilyTabular: {{
		Name: "export.csv", Path: "/d/export.csv", Data: contentCSV(3),
	}}})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	defer func() {
		if recover() == nil {
			t.Fatal("expected write-after-seal panic")
		}
	}()
	st.Add(store.TypedRecord{Platform: store.PlatformLinkedIn, Date: time.Now(), Metrics: map[store.CanonicalField]float64{store.FieldClicks: 1}})
}
