package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"LLM_PROXY_BASE_URL", "LLM_PROXY_API_KEY", "LLM_PROXY_MODEL",
		"GEMINI_MODEL", "LLM_TIMEOUT", "LLM_MAX_RETRIES",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LLM.ProxyModel != "gemini-2.5-flash" {
		t.Fatalf("proxy model = %q, want pinned default", cfg.LLM.ProxyModel)
	}
	if cfg.LLM.GeminiModel != "gemini-2.0-flash" {
		t.Fatalf("gemini model = %q", cfg.LLM.GeminiModel)
	}
	if cfg.LLM.Timeout != 30*time.Second {
		t.Fatalf("timeout = %v", cfg.LLM.Timeout)
	}
	if cfg.LLM.MaxRetries != 2 {
		t.Fatalf("max retries = %d", cfg.LLM.MaxRetries)
	}
}

func TestLoadReadsProxySettings(t *testing.T) {
	t.Setenv("LLM_PROXY_BASE_URL", "http://proxy.local:4000")
	t.Setenv("LLM_PROXY_API_KEY", "sk-test")
	t.Setenv("LLM_PROXY_MODEL", "hackathon-gemini-2.5-pro")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LLM.ProxyBaseURL != "http://proxy.local:4000" {
		t.Fatalf("base url = %q", cfg.LLM.ProxyBaseURL)
	}
	if cfg.LLM.ProxyModel != "hackathon-gemini-2.5-pro" {
		t.Fatalf("proxy model = %q", cfg.LLM.ProxyModel)
	}
}

func TestLoadS3FallsBackToMinioCredentials(t *testing.T) {
	t.Setenv("DATA_S3_ENDPOINT", "minio.local:9000")
	t.Setenv("DATA_S3_ACCESS_KEY", "")
	t.Setenv("DATA_S3_SECRET_KEY", "")
	t.Setenv("MINIO_ROOT_USER", "minioadmin")
	t.Setenv("MINIO_ROOT_PASSWORD", "miniosecret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.Source.S3.Enabled {
		t.Fatal("endpoint set, source must be enabled")
	}
	if cfg.Source.S3.AccessKey != "minioadmin" || cfg.Source.S3.SecretKey != "miniosecret" {
		t.Fatalf("credentials = %q/%q", cfg.Source.S3.AccessKey, cfg.Source.S3.SecretKey)
	}
}
