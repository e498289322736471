package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"

	"marketpulse/internal/schema"
	"marketpulse/internal/store"
)

// ErrPipelineFatal marks the only conditions that abort a run: an empty
// input set, or every file skipped. Single-file failures never surface here.
var ErrPipelineFatal = errors.New("ingest: pipeline fatal")

// Pipeline turns a discovered file set into a sealed UnifiedStore. Each
// file is processed independently: its schema comes from the cache, then
// the oracle, then filename heuristics inside the loader.
type Pipeline struct {
	Oracle  *schema.Oracle
	Cache   *schema.Cache
	Loaders []Loader
	Policy  store.MergePolicy
	Logger  *log.Logger
}

func (p *Pipeline) Run(ctx context.Context, files FileSet) (*store.UnifiedStore, error) {
	if files.Total() == 0 {
		return nil, fmt.Errorf("%w: no input files", ErrPipelineFatal)
	}
	st := store.NewUnifiedStore(p.Policy)
	for _, loader := range p.Loaders {
		for _, f := range files[loader.Family()] {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			p.processFile(ctx, loader, f, st)
		}
	}
	st.Seal()
	if st.TotalRecords() == 0 {
		return st, fmt.Errorf("%w: no usable records in %d files", ErrPipelineFatal, files.Total())
	}
	return st, nil
}

func (p *Pipeline) processFile(ctx context.Context, loader Loader, f File, st *store.UnifiedStore) {
	mapping := p.discoverMapping(ctx, loader, f)
	res, skip := loader.Load(f, mapping)
	if skip != nil {
		p.logf("skip %s: %s", f.Name, skip)
		st.RecordSkip(f.Name, skip.String())
		return
	}
	for _, rec := range res.Records {
		st.Add(rec)
	}
	if res.DroppedRows > 0 {
		st.RecordDroppedRows(res.DroppedRows)
	}
	p.logf("loaded %s: %d records, %d rows dropped", f.Name, len(res.Records), res.DroppedRows)
}

// discoverMapping returns nil when neither the cache nor the oracle can
// classify the file; the loader then falls back to filename heuristics.
// Oracle results are cached as soon as discovery succeeds, before any
// load attempt, so a later parse failure does not force a re-query.
func (p *Pipeline) discoverMapping(ctx context.Context, loader Loader, f File) *schema.Mapping {
	fp := f.Fingerprint()
	if p.Cache != nil {
		if m, ok := p.Cache.Get(fp); ok {
			return &m
		}
	}
	if p.Oracle == nil {
		return nil
	}
	sample, err := loader.Sample(f)
	if err != nil {
		p.logf("sample %s: %v", f.Name, err)
		return nil
	}
	m, err := p.Oracle.Discover(ctx, sample, store.CanonicalFields())
	if err != nil {
		p.logf("oracle %s: %v", f.Name, err)
		return nil
	}
	if p.Cache != nil {
		p.Cache.Put(fp, m)
	}
	return &m
}

func (p *Pipeline) logf(format string, args ...any) {
	if p.Logger != nil {
		p.Logger.Printf(format, args...)
	}
}
