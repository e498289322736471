// Package orchestrator sequences a run: ingestion, then per-platform
// analysis fanned out in parallel, then cross-platform synthesis. The
// contract is best effort: the caller always gets a RunReport, with
// failed or skipped tasks marked rather than raised.
package orchestrator

import (
	"context"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"

	"marketpulse/internal/analysis"
	"marketpulse/internal/ingest"
	"marketpulse/internal/llm"
	"marketpulse/internal/status"
	"marketpulse/internal/store"
)

const ingestionTask = "ingestion"

type Orchestrator struct {
	Pipeline    *ingest.Pipeline
	Tasks       []*analysis.Task
	Synthesizer *analysis.Synthesizer
	Status      status.Writer
	Logger      *log.Logger

	// Usage, when set, is snapshotted into the report after all phases.
	// The same ledger must sit in the LLM middleware chain to fill it.
	Usage *llm.UsageLedger
}

// Run executes all phases against the discovered file set. The returned
// report is never nil.
func (o *Orchestrator) Run(ctx context.Context, files ingest.FileSet) *RunReport {
	tr := newTracker(o.Status)
	tr.register(ingestionTask)
	for _, task := range o.Tasks {
		tr.register(task.Name())
	}
	tr.register(o.Synthesizer.Name())

	report := &RunReport{
		PlatformFindings: make(map[store.Platform][]analysis.Finding),
	}

	st := o.runIngestion(ctx, tr, files)
	if st != nil {
		report.Store = st
		report.Summary = st.Summarize()
	}
	if tr.get(ingestionTask).Status != TaskSucceeded {
		o.skipDownstream(tr, "ingestion did not succeed")
		report.Tasks = tr.snapshot()
		o.attachUsage(report)
		return report
	}

	o.runAnalysis(ctx, tr, st, report)
	o.runSynthesis(ctx, tr, st, report)

	report.Tasks = tr.snapshot()
	o.attachUsage(report)
	return report
}

func (o *Orchestrator) attachUsage(report *RunReport) {
	if o.Usage == nil {
		return
	}
	s := o.Usage.Summary()
	report.Usage = &s
}

func (o *Orchestrator) runIngestion(ctx context.Context, tr *tracker, files ingest.FileSet) *store.UnifiedStore {
	tr.start(ingestionTask)
	st, err := o.runPipeline(ctx, files)
	if err != nil {
		tr.finish(ingestionTask, TaskFailed, err)
		return st
	}
	tr.finish(ingestionTask, TaskSucceeded, nil)
	return st
}

func (o *Orchestrator) runPipeline(ctx context.Context, files ingest.FileSet) (st *store.UnifiedStore, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("ingestion panic: %v", r)
		}
	}()
	return o.Pipeline.Run(ctx, files)
}

// runAnalysis fans the platform tasks out, one goroutine each. The store
// is sealed before this phase starts, so the tasks share it read-only;
// each writes only its own findings slot after the group joins it in.
func (o *Orchestrator) runAnalysis(ctx context.Context, tr *tracker, st *store.UnifiedStore, report *RunReport) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(len(o.Tasks))
	results := make([][]analysis.Finding, len(o.Tasks))
	for i, task := range o.Tasks {
		g.Go(func() error {
			tr.start(task.Name())
			findings, err := o.runTask(gctx, task, st)
			if err != nil {
				tr.finish(task.Name(), TaskFailed, err)
				return nil
			}
			results[i] = findings
			tr.finish(task.Name(), TaskSucceeded, nil)
			return nil
		})
	}
	g.Wait()
	for i, task := range o.Tasks {
		if tr.get(task.Name()).Status == TaskSucceeded {
			report.PlatformFindings[task.Strategy.Platform] = results[i]
		}
	}
}

func (o *Orchestrator) runTask(ctx context.Context, task *analysis.Task, st *store.UnifiedStore) (findings []analysis.Finding, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("analysis panic: %v", r)
		}
	}()
	return task.Analyze(ctx, st), nil
}

func (o *Orchestrator) runSynthesis(ctx context.Context, tr *tracker, st *store.UnifiedStore, report *RunReport) {
	name := o.Synthesizer.Name()
	usable := 0
	for _, findings := range report.PlatformFindings {
		if len(findings) > 0 {
			usable++
		}
	}
	if usable == 0 {
		tr.finish(name, TaskSkipped, fmt.Errorf("no platform analysis produced findings"))
		return
	}
	tr.start(name)
	findings, err := o.synthesize(ctx, st, report.PlatformFindings)
	if err != nil {
		tr.finish(name, TaskFailed, err)
		return
	}
	report.Synthesis = findings
	tr.finish(name, TaskSucceeded, nil)
}

func (o *Orchestrator) synthesize(ctx context.Context, st *store.UnifiedStore, perPlatform map[store.Platform][]analysis.Finding) (findings []analysis.Finding, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("synthesis panic: %v", r)
		}
	}()
	return o.Synthesizer.Synthesize(ctx, st, perPlatform), nil
}

func (o *Orchestrator) skipDownstream(tr *tracker, reason string) {
	err := fmt.Errorf("%s", reason)
	for _, task := range o.Tasks {
		tr.finish(task.Name(), TaskSkipped, err)
	}
	tr.finish(o.Synthesizer.Name(), TaskSkipped, err)
}
