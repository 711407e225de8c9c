package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the newsdex pipeline configuration.
type Config struct {
	HTTP      HTTPConfig                `yaml:"http"`
	Database  DatabaseConfig            `yaml:"database"`
	Ingest    IngestConfig              `yaml:"ingest"`
	Embedding EmbeddingConfig           `yaml:"embedding"`
	Dedup     DedupConfig               `yaml:"dedup"`
	Analyzers map[string]AnalyzerConfig `yaml:"analyzers"`
	Pipeline  PipelineConfig            `yaml:"pipeline"`
	Storage   StorageConfig             `yaml:"storage"`
	Logging   LoggingConfig             `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds the ops HTTP server settings (/metrics, /healthz, /readyz).
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // valkey, redis (default: valkey)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// IngestConfig holds the ingest stream consumer settings.
type IngestConfig struct {
	Stream    string `yaml:"stream"`
	Group     string `yaml:"group"`
	Consumer  string `yaml:"consumer"`
	BatchSize int    `yaml:"batch_size"`
	BlockMS   int    `yaml:"block_ms"`
}

// EmbeddingConfig holds embedding provider and vectorizer settings.
type EmbeddingConfig struct {
	Provider   ProviderConfig   `yaml:"provider"`
	Vectorizer VectorizerConfig `yaml:"vectorizer"`
}

// ProviderConfig holds OpenAI-compatible API settings shared by the
// embedder and the analyzer adapters.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// VectorizerConfig holds vectorizer settings.
type VectorizerConfig struct {
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
}

// DedupConfig holds deduplication settings.
type DedupConfig struct {
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	MinContentLength    int     `yaml:"min_content_length"`
	Shards              int     `yaml:"shards"`
}

// AnalyzerConfig holds per-capability analyzer settings. Weight feeds the
// fixed importance table used when merging confidences.
type AnalyzerConfig struct {
	Model       string  `yaml:"model"`
	TimeoutMS   int     `yaml:"timeout_ms"`
	CacheTTLSec int     `yaml:"cache_ttl_sec"`
	Weight      float64 `yaml:"weight"`
	Enabled     *bool   `yaml:"enabled"` // nil = enabled
}

// IsEnabled reports whether the analyzer participates in dispatch.
func (a AnalyzerConfig) IsEnabled() bool {
	return a.Enabled == nil || *a.Enabled
}

// PipelineConfig holds worker pool and retry settings.
type PipelineConfig struct {
	Workers        int `yaml:"workers"`
	MaxInflight    int `yaml:"max_inflight"`
	MaxAttempts    int `yaml:"max_attempts"`
	RetryBaseMS    int `yaml:"retry_base_ms"`
	LocalCacheSize int `yaml:"local_cache_size"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port <= 0 {
		c.HTTP.Port = 9090
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "valkey"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Ingest.Stream == "" {
		c.Ingest.Stream = "newsdex:items"
	}
	if c.Ingest.Group == "" {
		c.Ingest.Group = "newsdex"
	}
	if c.Ingest.Consumer == "" {
		host, _ := os.Hostname()
		if host == "" {
			host = "newsdex-1"
		}
		c.Ingest.Consumer = host
	}
	if c.Ingest.BatchSize <= 0 {
		c.Ingest.BatchSize = 16
	}
	if c.Ingest.BlockMS <= 0 {
		c.Ingest.BlockMS = 5000
	}
	if c.Dedup.SimilarityThreshold <= 0 {
		c.Dedup.SimilarityThreshold = 0.85
	}
	if c.Dedup.MinContentLength <= 0 {
		c.Dedup.MinContentLength = 64
	}
	if c.Dedup.Shards <= 0 {
		c.Dedup.Shards = 16
	}
	if c.Pipeline.Workers <= 0 {
		c.Pipeline.Workers = 4
	}
	if c.Pipeline.MaxInflight <= 0 {
		c.Pipeline.MaxInflight = 32
	}
	if c.Pipeline.MaxAttempts <= 0 {
		c.Pipeline.MaxAttempts = 3
	}
	if c.Pipeline.RetryBaseMS <= 0 {
		c.Pipeline.RetryBaseMS = 500
	}
	if c.Pipeline.LocalCacheSize <= 0 {
		c.Pipeline.LocalCacheSize = 4096
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "newsdex:"
	}
	for name, a := range c.Analyzers {
		if a.TimeoutMS <= 0 {
			a.TimeoutMS = 10000
		}
		if a.CacheTTLSec <= 0 {
			a.CacheTTLSec = 3600
		}
		if a.Weight <= 0 {
			a.Weight = 1.0
		}
		c.Analyzers[name] = a
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if c.Dedup.SimilarityThreshold > 1.0 {
		return fmt.Errorf("dedup.similarity_threshold must be <= 1.0, got %f", c.Dedup.SimilarityThreshold)
	}
	if len(c.Analyzers) == 0 {
		return fmt.Errorf("at least one analyzer must be configured")
	}
	for name, a := range c.Analyzers {
		if a.Model == "" {
			return fmt.Errorf("analyzers.%s.model is required", name)
		}
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
