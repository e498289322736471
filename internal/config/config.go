package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	LLM    LLMConfig
	Cache  CacheConfig
	Source SourceConfig
	Status StatusConfig
}

type LLMConfig struct {
	ProxyBaseURL string
	ProxyAPIKey  string
	ProxyModel   string
	GeminiAPIKey string
	GeminiModel  string
	Timeout      time.Duration
	MaxRetries   int
}

type CacheConfig struct {
	PostgresDSN string
}

type SourceConfig struct {
	S3 S3Config
}

type S3Config struct {
	Enabled   bool
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	UseSSL    bool
}

type StatusConfig struct {
	// Addr enables the websocket status feed when non-empty, e.g. ":8090".
	Addr string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	return &Config{
		LLM: LLMConfig{
			ProxyBaseURL: strings.TrimSpace(os.Getenv("LLM_PROXY_BASE_URL")),
			ProxyAPIKey:  strings.TrimSpace(os.Getenv("LLM_PROXY_API_KEY")),
			ProxyModel:   firstNonEmpty(strings.TrimSpace(os.Getenv("LLM_PROXY_MODEL")), "gemini-2.5-flash"),
			GeminiAPIKey: strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
			GeminiModel:  firstNonEmpty(strings.TrimSpace(os.Getenv("GEMINI_MODEL")), "gemini-2.0-flash"),
			Timeout:      resolveDuration("LLM_TIMEOUT", 30*time.Second),
			MaxRetries:   resolveInt("LLM_MAX_RETRIES", 2),
		},
		Cache: CacheConfig{
			PostgresDSN: strings.TrimSpace(os.Getenv("SCHEMA_CACHE_PG_DSN")),
		},
		Source: SourceConfig{
			S3: loadS3Config(),
		},
		Status: StatusConfig{
			Addr: strings.TrimSpace(os.Getenv("STATUS_FEED_ADDR")),
		},
	}, nil
}

func loadS3Config() S3Config {
	endpoint := strings.TrimSpace(os.Getenv("DATA_S3_ENDPOINT"))
	return S3Config{
		Enabled:   endpoint != "",
		Endpoint:  endpoint,
		Region:    firstNonEmpty(strings.TrimSpace(os.Getenv("DATA_S3_REGION")), "us-east-1"),
		AccessKey: firstNonEmpty(strings.TrimSpace(os.Getenv("DATA_S3_ACCESS_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_USER"))),
		SecretKey: firstNonEmpty(strings.TrimSpace(os.Getenv("DATA_S3_SECRET_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_PASSWORD"))),
		Bucket:    strings.TrimSpace(os.Getenv("DATA_S3_BUCKET")),
		Prefix:    strings.TrimSpace(os.Getenv("DATA_S3_PREFIX")),
		UseSSL:    resolveBool("DATA_S3_USE_SSL", true),
	}
}

func resolveDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func resolveInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func resolveBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
