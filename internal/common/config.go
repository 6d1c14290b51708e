package common

import (
	"fmt"
	"os"
	"strconv"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration for the Contex server.
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Matcher     MatcherConfig   `toml:"matcher"`
	EventLog    EventLogConfig  `toml:"event_log"`
	Delivery    DeliveryConfig  `toml:"delivery"`
	Embedding   EmbeddingConfig `toml:"embedding"`
	Logging     LoggingConfig   `toml:"logging"`
	Sweep       SweepConfig     `toml:"sweep"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

// MatcherConfig holds the subscription matcher tunables (C5).
type MatcherConfig struct {
	// Threshold is tau, the minimum cosine similarity for a need-item match.
	Threshold float64 `toml:"threshold"`
}

// EventLogConfig holds the per-project event log tunables (C6).
type EventLogConfig struct {
	// RingSize is K, the number of recent events retained per project.
	RingSize int `toml:"ring_size"`
}

// DeliveryConfig holds the delivery fabric tunables (C7).
type DeliveryConfig struct {
	QueueSize        int    `toml:"queue_size"`         // per-agent bounded FIFO queue size
	WebhookTimeout   string `toml:"webhook_timeout"`    // per-attempt timeout, e.g. "10s"
	WebhookRetries   int    `toml:"webhook_retries"`    // max attempts (including the first)
	BrokerTimeout    string `toml:"broker_timeout"`     // e.g. "2s"
	BackoffBaseMilli int    `toml:"backoff_base_milli"` // base backoff unit in ms (1s/4s/16s -> base 1000, factor 4)
}

// EmbeddingConfig selects and configures the embedding backend (C3).
type EmbeddingConfig struct {
	Provider  string `toml:"provider"` // "http" or "genai"
	Dimension int    `toml:"dimension"`
	Timeout   string `toml:"timeout"` // e.g. "30s"

	HTTP  HTTPEmbeddingConfig  `toml:"http"`
	Genai GenaiEmbeddingConfig `toml:"genai"`
}

type HTTPEmbeddingConfig struct {
	BaseURL string `toml:"base_url"`
	Model   string `toml:"model"`
}

type GenaiEmbeddingConfig struct {
	Model  string `toml:"model"`
	APIKey string `toml:"api_key"`
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // default "15:04:05.000"
}

// SweepConfig drives the periodic maintenance cron job (C8).
type SweepConfig struct {
	Schedule   string `toml:"schedule"`    // cron expression, default "@hourly"
	IdleTTL    string `toml:"idle_ttl"`    // project idle eviction window, e.g. "24h"
	Enabled    bool   `toml:"enabled"`
}

// NewDefaultConfig returns a Config populated with the core's documented defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8085,
			Host: "0.0.0.0",
		},
		Matcher: MatcherConfig{
			Threshold: DefaultSimilarityThreshold,
		},
		EventLog: EventLogConfig{
			RingSize: 1024,
		},
		Delivery: DeliveryConfig{
			QueueSize:        256,
			WebhookTimeout:   "10s",
			WebhookRetries:   3,
			BrokerTimeout:    "2s",
			BackoffBaseMilli: 1000,
		},
		Embedding: EmbeddingConfig{
			Provider:  "http",
			Dimension: 768,
			Timeout:   "30s",
			HTTP: HTTPEmbeddingConfig{
				BaseURL: "http://localhost:11434",
				Model:   "nomic-embed-text",
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout"},
			TimeFormat: "15:04:05.000",
		},
		Sweep: SweepConfig{
			Schedule: "@hourly",
			IdleTTL:  "24h",
			Enabled:  true,
		},
	}
}

// LoadFromFiles loads configuration starting from defaults and merging each
// file in order (later files override earlier ones), then applies
// environment variable overrides. Mirrors the teacher's layered-config
// pattern: defaults -> file1 -> file2 -> ... -> env -> CLI.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)
	return config, nil
}

func applyEnvOverrides(config *Config) {
	if env := os.Getenv("CONTEX_ENV"); env != "" {
		config.Environment = env
	}
	if port := os.Getenv("CONTEX_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("CONTEX_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if level := os.Getenv("CONTEX_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
}

// ApplyFlagOverrides applies command-line flag values over the loaded config,
// the highest-priority layer.
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port != 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}
