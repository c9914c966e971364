// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger     LoggerConfig     `mapstructure:"logger" yaml:"logger"`
	Analyzer   AnalyzerConfig   `mapstructure:"analyzer" yaml:"analyzer"`
	Extraction ExtractionConfig `mapstructure:"extraction" yaml:"extraction"`
	Clustering ClusteringConfig `mapstructure:"clustering" yaml:"clustering"`
	Enrichment EnrichmentConfig `mapstructure:"enrichment" yaml:"enrichment"`
	Snapshots  SnapshotConfig   `mapstructure:"snapshots" yaml:"snapshots"`
	Output     OutputConfig     `mapstructure:"output" yaml:"output"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// AnalyzerConfig tunes the per-file analysis loop.
// Concurrency defaults to 1: the pipeline is sequential by contract and the
// bound is part of the observable behavior, not an implementation accident.
type AnalyzerConfig struct {
	Concurrency         int      `mapstructure:"concurrency" yaml:"concurrency"`
	ConfidenceThreshold float64  `mapstructure:"confidence_threshold" yaml:"confidence_threshold"`
	ExcludeDirs         []string `mapstructure:"exclude_dirs" yaml:"exclude_dirs"`
}

// ExtractionConfig tunes candidate extraction and merging.
type ExtractionConfig struct {
	MergeOverlapRatio  float64 `mapstructure:"merge_overlap_ratio" yaml:"merge_overlap_ratio"`
	AmbiguityThreshold float64 `mapstructure:"ambiguity_threshold" yaml:"ambiguity_threshold"`
	MaxReducerActions  int     `mapstructure:"max_reducer_actions" yaml:"max_reducer_actions"`
}

// ClusteringConfig tunes domain clustering.
type ClusteringConfig struct {
	MinClusterSize int `mapstructure:"min_cluster_size" yaml:"min_cluster_size"`
}

// EnrichmentConfig configures the optional LLM enrichment provider.
// Leaving Enabled false (or APIKey empty) runs the pipeline heuristic-only.
type EnrichmentConfig struct {
	Enabled      bool   `mapstructure:"enabled" yaml:"enabled"`
	Provider     string `mapstructure:"provider" yaml:"provider"`
	Model        string `mapstructure:"model" yaml:"model"`
	UpgradeModel string `mapstructure:"upgrade_model" yaml:"upgrade_model"`
	APIKey       string `mapstructure:"api_key" yaml:"-"`
	// Endpoint overrides the provider's API base URL; the model path
	// segment is appended per request.
	Endpoint       string        `mapstructure:"endpoint" yaml:"endpoint"`
	APITimeout     time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	MaxRetries     uint64        `mapstructure:"max_retries" yaml:"max_retries"`
	RequestsPerMin float64       `mapstructure:"requests_per_min" yaml:"requests_per_min"`
	Temperature    float64       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens      int           `mapstructure:"max_tokens" yaml:"max_tokens"`
}

// SnapshotConfig selects the snapshot store backend.
type SnapshotConfig struct {
	Backend     string `mapstructure:"backend" yaml:"backend"` // "memory" or "postgres"
	PostgresURL string `mapstructure:"postgres_url" yaml:"-"`
}

// OutputConfig controls where proposals are handed off.
type OutputConfig struct {
	Dir    string `mapstructure:"dir" yaml:"dir"`
	Format string `mapstructure:"format" yaml:"format"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "domainlens")
	v.SetDefault("logger.log_file", "domainlens.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Analyzer --
	v.SetDefault("analyzer.concurrency", 1)
	v.SetDefault("analyzer.confidence_threshold", 0.5)
	v.SetDefault("analyzer.exclude_dirs", []string{"node_modules", "dist", "build", ".git"})

	// -- Extraction --
	v.SetDefault("extraction.merge_overlap_ratio", 0.8)
	v.SetDefault("extraction.ambiguity_threshold", 0.5)
	v.SetDefault("extraction.max_reducer_actions", 8)

	// -- Clustering --
	v.SetDefault("clustering.min_cluster_size", 2)

	// -- Enrichment --
	v.SetDefault("enrichment.enabled", false)
	v.SetDefault("enrichment.provider", "gemini")
	v.SetDefault("enrichment.model", "gemini-2.5-flash")
	v.SetDefault("enrichment.upgrade_model", "gemini-2.5-pro")
	v.SetDefault("enrichment.api_timeout", "60s")
	v.SetDefault("enrichment.max_retries", 5)
	v.SetDefault("enrichment.requests_per_min", 30.0)
	v.SetDefault("enrichment.temperature", 0.2)
	v.SetDefault("enrichment.max_tokens", 4096)

	// -- Snapshots --
	v.SetDefault("snapshots.backend", "memory")

	// -- Output --
	v.SetDefault("output.dir", "domainlens-out")
	v.SetDefault("output.format", "json")
}

// NewDefaultConfig creates a configuration populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Cannot happen with defaults only.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// NewConfigFromViper creates a validated configuration from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	// Bind environment variables for sensitive data.
	_ = v.BindEnv("enrichment.api_key", "DOMAINLENS_ENRICHMENT_API_KEY")
	_ = v.BindEnv("snapshots.postgres_url", "DOMAINLENS_SNAPSHOT_PG_URL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if cfg.Enrichment.Enabled && cfg.Enrichment.APIKey == "" {
		cfg.Enrichment.APIKey = os.Getenv("DOMAINLENS_ENRICHMENT_API_KEY")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Analyzer.Concurrency <= 0 {
		return fmt.Errorf("analyzer.concurrency must be a positive integer")
	}
	if c.Analyzer.ConfidenceThreshold < 0.0 || c.Analyzer.ConfidenceThreshold > 1.0 {
		return fmt.Errorf("analyzer.confidence_threshold must be between 0.0 and 1.0")
	}
	if c.Extraction.MergeOverlapRatio <= 0.0 || c.Extraction.MergeOverlapRatio > 1.0 {
		return fmt.Errorf("extraction.merge_overlap_ratio must be in (0.0, 1.0]")
	}
	if c.Extraction.AmbiguityThreshold < 0.0 || c.Extraction.AmbiguityThreshold > 1.0 {
		return fmt.Errorf("extraction.ambiguity_threshold must be between 0.0 and 1.0")
	}
	if c.Extraction.MaxReducerActions <= 0 {
		return fmt.Errorf("extraction.max_reducer_actions must be greater than 0")
	}
	if c.Clustering.MinClusterSize < 1 {
		return fmt.Errorf("clustering.min_cluster_size must be at least 1")
	}
	if err := c.Enrichment.Validate(); err != nil {
		return fmt.Errorf("enrichment configuration invalid: %w", err)
	}
	switch c.Snapshots.Backend {
	case "memory":
	case "postgres":
		if c.Snapshots.PostgresURL == "" {
			return fmt.Errorf("snapshots.postgres_url is required for the postgres backend. Ensure DOMAINLENS_SNAPSHOT_PG_URL is set")
		}
	default:
		return fmt.Errorf("unknown snapshots.backend: %q", c.Snapshots.Backend)
	}
	return nil
}

// Validate checks the enrichment settings.
func (e *EnrichmentConfig) Validate() error {
	if !e.Enabled {
		return nil
	}
	if e.Model == "" {
		return fmt.Errorf("model is required when enrichment is enabled")
	}
	if e.APITimeout <= 0 {
		return fmt.Errorf("api_timeout must be a positive duration")
	}
	if e.RequestsPerMin <= 0 {
		return fmt.Errorf("requests_per_min must be greater than 0")
	}
	return nil
}
