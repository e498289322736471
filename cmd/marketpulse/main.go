package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"marketpulse/internal/analysis"
	"marketpulse/internal/config"
	"marketpulse/internal/discovery"
	"marketpulse/internal/ingest"
	"marketpulse/internal/llm"
	"marketpulse/internal/orchestrator"
	"marketpulse/internal/schema"
	"marketpulse/internal/status"
	"marketpulse/internal/store"
)

func main() {
	dataDir := flag.String("data", "data", "directory with per-platform export files")
	outDir := flag.String("out", "out", "output directory for the run report")
	spread := flag.Bool("spread-aggregates", false, "spread aggregate totals across existing date buckets instead of summing into one")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	logger := log.Default()

	usage := llm.NewUsageLedger()
	client := buildClient(ctx, cfg, logger, usage)
	if client != nil {
		defer client.Close()
	}

	cache := schema.NewFromEnv()
	defer cache.Close()

	var writer status.Writer = status.LogWriter{Logger: logger}
	if cfg.Status.Addr != "" {
		hub := status.NewHub()
		defer hub.Close()
		go serveStatus(cfg.Status.Addr, hub)
		writer = status.Multi{writer, hub}
	}

	policy := store.MergeSumByDate
	if *spread {
		policy = store.MergeSpreadEven
	}

	orch := &orchestrator.Orchestrator{
		Pipeline: &ingest.Pipeline{
			Oracle:  &schema.Oracle{LLM: client},
			Cache:   cache,
			Loaders: []ingest.Loader{ingest.TabularLoader{}, ingest.HierarchicalLoader{}},
			Policy:  policy,
			Logger:  logger,
		},
		Synthesizer: &analysis.Synthesizer{LLM: client, Logger: logger},
		Status:      writer,
		Logger:      logger,
		Usage:       usage,
	}
	for _, strat := range analysis.Strategies() {
		orch.Tasks = append(orch.Tasks, &analysis.Task{Strategy: strat, LLM: client, Logger: logger})
	}

	files, err := discoverFiles(ctx, cfg, *dataDir)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("discovered %d files", files.Total())

	report := orch.Run(ctx, files)
	writeJSON(*outDir, "report.json", report)

	for name, task := range report.Tasks {
		log.Printf("%-22s %-10s %s", name, task.Status, task.Error)
	}
	for platform, count := range report.Summary.Counts {
		log.Printf("%s: %d records", platform, count)
	}
	if u := report.Usage; u != nil && u.Requests > 0 {
		log.Printf("llm usage: %d requests, %d prompt + %d completion tokens, %d errors",
			u.Requests, u.PromptTokens, u.CompletionTokens, u.Errors)
	}
	if tr := report.Tasks["ingestion"]; tr.Status != orchestrator.TaskSucceeded {
		os.Exit(1)
	}
}

// buildClient picks the proxy when configured, then Gemini, then nothing.
// A nil client is fine: the oracle degrades to heuristics and the
// analysis tasks to statistical findings.
func buildClient(ctx context.Context, cfg *config.Config, logger *log.Logger, usage *llm.UsageLedger) llm.Completer {
	mws := []llm.Middleware{
		llm.WithLogging(logger),
		llm.WithUsage(usage),
		llm.Retry(cfg.LLM.MaxRetries+1, time.Second),
	}
	proxy := llm.NewProxyClient(cfg.LLM.ProxyBaseURL, cfg.LLM.ProxyAPIKey, cfg.LLM.ProxyModel, cfg.LLM.Timeout)
	if proxy.Configured() {
		return llm.Chain(proxy, mws...)
	}
	if cfg.LLM.GeminiAPIKey != "" {
		gemini, err := llm.NewGeminiClient(ctx, cfg.LLM.GeminiAPIKey, cfg.LLM.GeminiModel, cfg.LLM.Timeout)
		if err != nil {
			log.Printf("gemini client unavailable: %v", err)
			return nil
		}
		return llm.Chain(gemini, mws...)
	}
	log.Println("no LLM configured, running with heuristics only")
	return nil
}

func discoverFiles(ctx context.Context, cfg *config.Config, dataDir string) (ingest.FileSet, error) {
	var src discovery.Source = discovery.NewLocalSource(dataDir)
	if cfg.Source.S3.Enabled {
		s3, err := discovery.NewS3Source(discovery.S3Config{
			Endpoint:  cfg.Source.S3.Endpoint,
			Region:    cfg.Source.S3.Region,
			AccessKey: cfg.Source.S3.AccessKey,
			SecretKey: cfg.Source.S3.SecretKey,
			Bucket:    cfg.Source.S3.Bucket,
			Prefix:    cfg.Source.S3.Prefix,
			UseSSL:    cfg.Source.S3.UseSSL,
		})
		if err != nil {
			return nil, err
		}
		src = s3
	}
	return src.Discover(ctx)
}

func serveStatus(addr string, hub *status.Hub) {
	mux := http.NewServeMux()
	mux.Handle("/status", hub)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Printf("status feed stopped: %v", err)
	}
}

func writeJSON(dir, name string, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatal(err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Fatal(err)
	}
	fmt.Println("wrote", path)
}
