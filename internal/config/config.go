package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the AI-Mammoth analysis service.
type Config struct {
	Port      int
	Version   string
	Gateway   GatewayConfig
	Analysis  AnalysisConfig
	Retention RetentionConfig
	Telemetry TelemetryConfig
}

// GatewayConfig configures the GigaChat gateway client.
type GatewayConfig struct {
	// APIBase is the chat-completion origin.
	APIBase string
	// AuthURL is the OAuth token exchange endpoint.
	AuthURL string
	// AuthKey is the long-lived Basic credential for the token exchange.
	AuthKey string
	// Scope is the OAuth scope requested during the exchange.
	Scope string
	// MaxRetries bounds transient-failure retries per call.
	MaxRetries int
	// RetryDelay is the base delay for exponential backoff.
	RetryDelay time.Duration
	// Timeout bounds each individual HTTP attempt.
	Timeout time.Duration
}

// AnalysisConfig configures the orchestration pipeline.
type AnalysisConfig struct {
	Model           string
	Temperature     float64
	MaxTokens       int
	AnalyzeSecurity bool
}

// RetentionConfig configures the background janitor for finished runs.
type RetentionConfig struct {
	// Interval is how often expired runs are swept.
	Interval time.Duration
	// ArchiveDir receives archived runs before purge; empty disables archiving.
	ArchiveDir string
	// Compress gzips archived run files.
	Compress bool
}

type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	ServiceName  string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Port:    envInt("PORT", 8080),
		Version: envStr("MAMMOTH_VERSION", "1.0.0"),
		Gateway: GatewayConfig{
			APIBase:    envStr("GIGACHAT_API_BASE", "https://gigachat.devices.sberbank.ru"),
			AuthURL:    envStr("GIGACHAT_AUTH_URL", "https://ngw.devices.sberbank.ru:9443/api/v2/oauth"),
			AuthKey:    envStr("GIGACHAT_API_KEY", ""),
			Scope:      envStr("GIGACHAT_SCOPE", "GIGACHAT_API_PERS"),
			MaxRetries: envInt("GIGACHAT_MAX_RETRIES", 5),
			RetryDelay: envDur("GIGACHAT_RETRY_DELAY", time.Second),
			Timeout:    envDur("GIGACHAT_TIMEOUT", 60*time.Second),
		},
		Analysis: AnalysisConfig{
			Model:           envStr("MODEL_TYPE", "GigaChat-Max"),
			Temperature:     envFloat("TEMPERATURE", 0.7),
			MaxTokens:       envInt("MAX_TOKENS", 4096),
			AnalyzeSecurity: envBool("ANALYZE_SECURITY", true),
		},
		Retention: RetentionConfig{
			Interval:   envDur("MAMMOTH_RETENTION_INTERVAL", time.Hour),
			ArchiveDir: envStr("MAMMOTH_ARCHIVE_DIR", ""),
			Compress:   envBool("MAMMOTH_ARCHIVE_COMPRESS", false),
		},
		Telemetry: TelemetryConfig{
			Enabled:      envBool("OTEL_ENABLED", false),
			OTLPEndpoint: envStr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			ServiceName:  envStr("OTEL_SERVICE_NAME", "ai-mammoth-api"),
		},
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDur(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
