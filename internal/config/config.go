// Package config loads the YAML deployment descriptor for a quanta
// scheduler process: which policy to run, which clients to pre-register,
// the worker pool size, and the optional HTTP/Kafka adapters.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level deployment descriptor.
type Config struct {
	Scheduler SchedulerConfig `yaml:"scheduler"`
	HTTP      HTTPConfig      `yaml:"http"`
	Kafka     *KafkaConfig    `yaml:"kafka,omitempty"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// SchedulerConfig selects the arbitration policy and the fixed set of
// clients registered before the process starts serving.
type SchedulerConfig struct {
	Policy      string         `yaml:"policy"` // "wrr" or "drr"
	BaseQuantum uint32         `yaml:"base_quantum,omitempty"`
	WorkerCount int            `yaml:"worker_count"`
	Clients     []ClientConfig `yaml:"clients"`
}

// ClientConfig describes one pre-registered client.
type ClientConfig struct {
	ID               string `yaml:"id"`
	Weight           int    `yaml:"weight"`
	MaxQueueDepth    int    `yaml:"max_queue_depth"`
	OverflowStrategy string `yaml:"overflow_strategy"` // reject|block|drop_oldest|drop_newest
}

// HTTPConfig configures the read-only admin/metrics API.
type HTTPConfig struct {
	Address string `yaml:"address"`
}

// KafkaConfig configures the optional job-ingestion adapter. SASL
// credentials, if any, are pulled from environment variables rather than
// stored here.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	GroupID string   `yaml:"group_id"`
}

// LoggingConfig configures the process-wide zap logger.
type LoggingConfig struct {
	Development bool   `yaml:"development"`
	Level       string `yaml:"level"`
	File        string `yaml:"file,omitempty"`
}

// KafkaSASLUser and KafkaSASLPassword name the environment variables the
// Kafka adapter reads for SASL credentials, when configured to use them.
const (
	KafkaSASLUser     = "QUANTA_KAFKA_SASL_USER"
	KafkaSASLPassword = "QUANTA_KAFKA_SASL_PASSWORD"
)

// Default returns a single-client, weighted-round-robin, four-worker
// configuration usable without a config file on disk.
func Default() *Config {
	return &Config{
		Scheduler: SchedulerConfig{
			Policy:      "wrr",
			WorkerCount: 4,
			Clients: []ClientConfig{
				{ID: "default", Weight: 1},
			},
		},
		HTTP: HTTPConfig{
			Address: ":8080",
		},
		Logging: LoggingConfig{
			Level: envOrDefault("QUANTA_LOG_LEVEL", "info"),
		},
	}
}

// Load reads and parses a YAML config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %q: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %q: %w", path, err)
	}
	if cfg.Scheduler.WorkerCount <= 0 {
		return nil, fmt.Errorf("parse config %q: scheduler.worker_count must be >= 1", path)
	}
	if err := ValidatePolicy(cfg.Scheduler.Policy); err != nil {
		return nil, fmt.Errorf("parse config %q: %w", path, err)
	}
	for _, c := range cfg.Scheduler.Clients {
		if err := ValidateClient(c); err != nil {
			return nil, fmt.Errorf("parse config %q: %w", path, err)
		}
	}
	return cfg, nil
}

func envOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
