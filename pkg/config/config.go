// Package config handles engine configuration via environment variables and
// an optional YAML file.
//
// Defaults are production-safe; environment variables prefixed with MUNINN_
// override them, and a YAML file (loaded explicitly with LoadFile) overrides
// both.
//
// Example Usage:
//
//	cfg := config.LoadFromEnv()
//	if err := cfg.Validate(); err != nil {
//		log.Fatalf("invalid config: %v", err)
//	}
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all engine configuration.
type Config struct {
	// Rank settings for personalized ranking.
	Rank RankConfig `yaml:"rank"`

	// Retrieval settings for multi-hop expansion.
	Retrieval RetrievalConfig `yaml:"retrieval"`

	// Traversal settings for pattern-constrained search.
	Traversal TraversalConfig `yaml:"traversal"`

	// Cache settings for the retrieval cache.
	Cache CacheConfig `yaml:"cache"`

	// Store settings for the persistent backend.
	Store StoreConfig `yaml:"store"`

	// Logging settings.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics settings.
	Metrics MetricsConfig `yaml:"metrics"`
}

// RankConfig holds personalized-ranking parameters.
type RankConfig struct {
	// Alpha is the restart probability.
	Alpha float64 `yaml:"alpha"`
	// MaxIterations caps the propagation loop.
	MaxIterations int `yaml:"max_iterations"`
	// Epsilon is the L1 convergence threshold.
	Epsilon float64 `yaml:"epsilon"`
}

// RetrievalConfig holds multi-hop retrieval parameters.
type RetrievalConfig struct {
	// ScoreDecay is the per-hop multiplicative attenuation.
	ScoreDecay float64 `yaml:"score_decay"`
	// MaxHops bounds expansion when the caller doesn't say.
	MaxHops int `yaml:"max_hops"`
}

// TraversalConfig holds traversal parameters.
type TraversalConfig struct {
	// MaxDepth bounds traversal when the pattern doesn't say.
	MaxDepth int `yaml:"max_depth"`
}

// CacheConfig holds retrieval-cache parameters.
type CacheConfig struct {
	// MaxSize is the LRU capacity in entries.
	MaxSize int `yaml:"max_size"`
	// TTL is the per-entry time to live.
	TTL time.Duration `yaml:"ttl"`
}

// UnmarshalYAML accepts ttl as a duration string ("30s") or a plain number
// of seconds. Absent fields keep their current values.
func (c *CacheConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		MaxSize int    `yaml:"max_size"`
		TTL     string `yaml:"ttl"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.MaxSize != 0 {
		c.MaxSize = raw.MaxSize
	}
	if raw.TTL != "" {
		if d, err := time.ParseDuration(raw.TTL); err == nil {
			c.TTL = d
		} else if secs, err := strconv.Atoi(raw.TTL); err == nil {
			c.TTL = time.Duration(secs) * time.Second
		} else {
			return fmt.Errorf("config: invalid cache ttl %q", raw.TTL)
		}
	}
	return nil
}

// StoreConfig holds persistent-store parameters.
type StoreConfig struct {
	// DataDir is the directory for on-disk data. Empty means in-memory.
	DataDir string `yaml:"data_dir"`
	// SyncWrites forces fsync on every write.
	SyncWrites bool `yaml:"sync_writes"`
}

// LoggingConfig holds logging parameters.
type LoggingConfig struct {
	// Level is a zerolog level name (debug, info, warn, error).
	Level string `yaml:"level"`
	// Pretty enables human-readable console output.
	Pretty bool `yaml:"pretty"`
}

// MetricsConfig holds metrics parameters.
type MetricsConfig struct {
	// Enabled turns on prometheus collection.
	Enabled bool `yaml:"enabled"`
	// Addr is the optional /metrics listen address, e.g. ":9090".
	Addr string `yaml:"addr"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Rank: RankConfig{
			Alpha:         0.15,
			MaxIterations: 20,
			Epsilon:       1e-6,
		},
		Retrieval: RetrievalConfig{
			ScoreDecay: 0.7,
			MaxHops:    2,
		},
		Traversal: TraversalConfig{
			MaxDepth: 3,
		},
		Cache: CacheConfig{
			MaxSize: 1000,
			TTL:     5 * time.Minute,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv returns the defaults overridden by MUNINN_* environment
// variables.
//
// Environment Variables:
//   - MUNINN_RANK_ALPHA, MUNINN_RANK_MAX_ITERATIONS, MUNINN_RANK_EPSILON
//   - MUNINN_RETRIEVAL_SCORE_DECAY, MUNINN_RETRIEVAL_MAX_HOPS
//   - MUNINN_TRAVERSAL_MAX_DEPTH
//   - MUNINN_CACHE_MAX_SIZE, MUNINN_CACHE_TTL (duration or plain seconds)
//   - MUNINN_DATA_DIR, MUNINN_SYNC_WRITES
//   - MUNINN_LOG_LEVEL, MUNINN_LOG_PRETTY
//   - MUNINN_METRICS_ENABLED, MUNINN_METRICS_ADDR
func LoadFromEnv() *Config {
	cfg := Default()

	cfg.Rank.Alpha = getEnvFloat("MUNINN_RANK_ALPHA", cfg.Rank.Alpha)
	cfg.Rank.MaxIterations = getEnvInt("MUNINN_RANK_MAX_ITERATIONS", cfg.Rank.MaxIterations)
	cfg.Rank.Epsilon = getEnvFloat("MUNINN_RANK_EPSILON", cfg.Rank.Epsilon)

	cfg.Retrieval.ScoreDecay = getEnvFloat("MUNINN_RETRIEVAL_SCORE_DECAY", cfg.Retrieval.ScoreDecay)
	cfg.Retrieval.MaxHops = getEnvInt("MUNINN_RETRIEVAL_MAX_HOPS", cfg.Retrieval.MaxHops)

	cfg.Traversal.MaxDepth = getEnvInt("MUNINN_TRAVERSAL_MAX_DEPTH", cfg.Traversal.MaxDepth)

	cfg.Cache.MaxSize = getEnvInt("MUNINN_CACHE_MAX_SIZE", cfg.Cache.MaxSize)
	cfg.Cache.TTL = getEnvDuration("MUNINN_CACHE_TTL", cfg.Cache.TTL)

	cfg.Store.DataDir = getEnv("MUNINN_DATA_DIR", cfg.Store.DataDir)
	cfg.Store.SyncWrites = getEnvBool("MUNINN_SYNC_WRITES", cfg.Store.SyncWrites)

	cfg.Logging.Level = getEnv("MUNINN_LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Pretty = getEnvBool("MUNINN_LOG_PRETTY", cfg.Logging.Pretty)

	cfg.Metrics.Enabled = getEnvBool("MUNINN_METRICS_ENABLED", cfg.Metrics.Enabled)
	cfg.Metrics.Addr = getEnv("MUNINN_METRICS_ADDR", cfg.Metrics.Addr)

	return cfg
}

// LoadFile overlays YAML settings from path onto cfg. Fields absent from the
// file keep their current values.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Rank.Alpha <= 0 || c.Rank.Alpha >= 1 {
		return fmt.Errorf("config: rank alpha must be in (0, 1), got %g", c.Rank.Alpha)
	}
	if c.Rank.MaxIterations <= 0 {
		return fmt.Errorf("config: rank max iterations must be positive, got %d", c.Rank.MaxIterations)
	}
	if c.Rank.Epsilon <= 0 {
		return fmt.Errorf("config: rank epsilon must be positive, got %g", c.Rank.Epsilon)
	}
	if c.Retrieval.ScoreDecay <= 0 || c.Retrieval.ScoreDecay > 1 {
		return fmt.Errorf("config: retrieval score decay must be in (0, 1], got %g", c.Retrieval.ScoreDecay)
	}
	if c.Retrieval.MaxHops < 0 {
		return fmt.Errorf("config: retrieval max hops must not be negative, got %d", c.Retrieval.MaxHops)
	}
	if c.Traversal.MaxDepth <= 0 {
		return fmt.Errorf("config: traversal max depth must be positive, got %d", c.Traversal.MaxDepth)
	}
	if c.Cache.MaxSize <= 0 {
		return fmt.Errorf("config: cache max size must be positive, got %d", c.Cache.MaxSize)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("config: cache ttl must be positive, got %s", c.Cache.TTL)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		val = strings.ToLower(val)
		return val == "true" || val == "1" || val == "yes" || val == "on"
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
		// Plain integers are read as seconds.
		if secs, err := strconv.Atoi(val); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultVal
}
