// Package config loads the proxy's environment-driven configuration and
// the YAML-backed model-map file.
package config

import (
	"os"
	"strconv"
	"strings"
)

// OpenAIConfig carries the south-side (upstream) connection settings.
type OpenAIConfig struct {
	APIKey         string
	BaseURL        string
	ForceStream    bool
	ImageURLObject bool
}

// LoggingConfig drives internal/applog's process-wide logger.
type LoggingConfig struct {
	Level    string
	File     string
	Payloads bool
	MaxChars int
}

// ServerConfig carries the north-side listen settings. UIEnabled is
// loaded from UI_ENABLED, but nothing in the proxy reads it; startup
// logging records only ListenAddr.
type ServerConfig struct {
	ListenAddr string
	UIEnabled  bool
}

// TelemetryConfig enables OpenTelemetry trace export when an OTLP
// endpoint is configured; an empty endpoint leaves tracing as a no-op.
type TelemetryConfig struct {
	OTLPEndpoint string
}

// AppConfig is the full process configuration, assembled once at
// startup from environment variables.
type AppConfig struct {
	OpenAI       OpenAIConfig
	Logging      LoggingConfig
	Server       ServerConfig
	Telemetry    TelemetryConfig
	ModelMapPath string
}

// Load reads AppConfig from the environment. OPENAI_BASE_URL defaults
// to the public OpenAI endpoint.
func Load() *AppConfig {
	return &AppConfig{
		OpenAI: OpenAIConfig{
			APIKey:         os.Getenv("OPENAI_API_KEY"),
			BaseURL:        envOr("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			ForceStream:    envBool("OPENAI_FORCE_STREAM", false),
			ImageURLObject: envBool("OPENAI_IMAGE_URL_OBJECT", false),
		},
		Logging: LoggingConfig{
			Level:    envOr("TRANSFORMER_LOG_LEVEL", "info"),
			File:     os.Getenv("TRANSFORMER_LOG_FILE"),
			Payloads: envBool("TRANSFORMER_LOG_PAYLOADS", false),
			MaxChars: envInt("TRANSFORMER_LOG_MAX_CHARS", 4000),
		},
		Server: ServerConfig{
			ListenAddr: envOr("LISTEN_ADDR", ":8000"),
			UIEnabled:  envBool("UI_ENABLED", true),
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: os.Getenv("TRANSFORMER_OTLP_ENDPOINT"),
		},
		ModelMapPath: envOr("MODEL_MAP_PATH", "model-map.yml"),
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
