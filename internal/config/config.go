// Package config loads and validates gofer's daemon configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gofer-dev/gofer/internal/logging"
)

// Config holds all gofer daemon configuration.
type Config struct {
	// Socket is the path to the Unix domain socket the server listens on.
	Socket string `yaml:"socket"`

	// DataDir is the root of gofer's on-disk state (.gofer/ by convention).
	DataDir string `yaml:"data_dir"`

	Store      StoreConfig      `yaml:"store"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Server     ServerConfig     `yaml:"server"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Cache      CacheConfig      `yaml:"cache"`
	CAS        CASConfig        `yaml:"cas"`
	Trash      TrashConfig      `yaml:"trash"`
	Breaker    BreakerConfig    `yaml:"breaker"`
	LangServer LangServerConfig `yaml:"lang_server"`
	Logging    LoggingConfig    `yaml:"logging"`

	CoreLimits CoreLimits `yaml:"core_limits"`
}

// StoreConfig configures the indexed database and vector store.
type StoreConfig struct {
	DatabasePath    string `yaml:"database_path"`
	VectorDimension int    `yaml:"vector_dimension"`
	BusyTimeout     string `yaml:"busy_timeout"`
}

// EmbeddingConfig configures the pluggable embedding engine.
type EmbeddingConfig struct {
	// Provider selects the embedding.Engine implementation. Only "ollama" is
	// built in; any other value makes embedding.NewEngine return an error,
	// and the daemon then runs without an embedder (keyword-only search).
	Provider       string `yaml:"provider"`
	OllamaEndpoint string `yaml:"ollama_endpoint"`
	OllamaModel    string `yaml:"ollama_model"`
}

// ServerConfig bounds connection and request concurrency for the stream
// socket listener.
type ServerConfig struct {
	MaxConnections    int    `yaml:"max_connections"`
	MaxInFlightPerConn int   `yaml:"max_in_flight_per_conn"`
	IdleTimeout        string `yaml:"idle_timeout"`
	MaxBatchSize       int    `yaml:"max_batch_size"`
}

// RateLimitConfig configures the sliding-window per-connection limiter and
// the process-wide cooldown gates for heavy verbs.
type RateLimitConfig struct {
	RequestsPerSecond int    `yaml:"requests_per_second"`
	WindowSize        string `yaml:"window_size"`
	HeavyVerbCooldown string `yaml:"heavy_verb_cooldown"`
}

// CacheConfig configures the TTL+LRU result cache.
type CacheConfig struct {
	TTL      string `yaml:"ttl"`
	Capacity int    `yaml:"capacity"`
}

// CASConfig configures the content-addressable scratch buffer store.
type CASConfig struct {
	TTL      string `yaml:"ttl"`
	Capacity int    `yaml:"capacity"`
}

// TrashConfig configures the soft-delete trash store.
type TrashConfig struct {
	Dir string `yaml:"dir"`
}

// BreakerConfig configures the circuit breaker guarding external
// collaborators (embedding engine, language-service checkers).
type BreakerConfig struct {
	FailureThreshold int    `yaml:"failure_threshold"`
	Cooldown         string `yaml:"cooldown"`
}

// LangServerConfig toggles which LanguageService implementations are active.
type LangServerConfig struct {
	Enabled []string `yaml:"enabled"`
}

// LoggingConfig controls the category-scoped structured logger.
type LoggingConfig struct {
	Level        string          `yaml:"level"`
	File         string          `yaml:"file"`
	DebugMode    bool            `yaml:"debug_mode"`
	CategoryDebug map[string]bool `yaml:"category_debug"`
}

// DefaultConfig returns a fully-populated default configuration.
func DefaultConfig() *Config {
	return &Config{
		Socket:  ".gofer/gofer.sock",
		DataDir: ".gofer",

		Store: StoreConfig{
			DatabasePath:    ".gofer/index.db",
			VectorDimension: 768,
			BusyTimeout:     "5s",
		},

		Embedding: EmbeddingConfig{
			Provider:       "ollama",
			OllamaEndpoint: "http://localhost:11434",
			OllamaModel:    "embeddinggemma",
		},

		Server: ServerConfig{
			MaxConnections:     256,
			MaxInFlightPerConn: 16,
			IdleTimeout:        "300s",
			MaxBatchSize:       64,
		},

		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			WindowSize:        "1s",
			HeavyVerbCooldown: "2s",
		},

		Cache: CacheConfig{
			TTL:      "5m",
			Capacity: 512,
		},

		CAS: CASConfig{
			TTL:      "24h",
			Capacity: 1000,
		},

		Trash: TrashConfig{
			Dir: ".gofer/trash",
		},

		Breaker: BreakerConfig{
			FailureThreshold: 5,
			Cooldown:         "30s",
		},

		LangServer: LangServerConfig{
			Enabled: []string{"go"},
		},

		Logging: LoggingConfig{
			Level: "info",
			File:  ".gofer/gofer.log",
		},

		CoreLimits: CoreLimits{
			MaxOpenConnections:  256,
			MaxPermitsInFlight:  256,
			MaxCASBuffers:       1000,
			MaxTransactionFiles: 500,
		},
	}
}

// Load loads configuration from a YAML file, falling back to defaults for
// anything the file doesn't set, and then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	logging.BootDebug("loading config from %s", path)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logging.Boot("config file not found, using defaults: %s", path)
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		logging.BootError("failed to read config file %s: %v", path, err)
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		logging.BootError("failed to parse config file %s: %v", path, err)
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	logging.Boot("config loaded: socket=%s data_dir=%s", cfg.Socket, cfg.DataDir)
	return cfg, nil
}

// Save writes the configuration to a YAML file, creating parent directories
// as needed.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("GOFER_SOCKET"); v != "" {
		c.Socket = v
	}
	if v := os.Getenv("GOFER_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("GOFER_DB_PATH"); v != "" {
		c.Store.DatabasePath = v
	}
	if v := os.Getenv("OLLAMA_ENDPOINT"); v != "" {
		c.Embedding.OllamaEndpoint = v
	}
	if v := os.Getenv("OLLAMA_EMBEDDING_MODEL"); v != "" {
		c.Embedding.OllamaModel = v
	}
}

// Duration helpers mirror the teacher's pattern of storing durations as
// strings in YAML and parsing them lazily, falling back to a safe default
// rather than failing config load on a malformed value.

func (c *Config) IdleTimeout() time.Duration {
	return parseDurationOr(c.Server.IdleTimeout, 300*time.Second)
}

func (c *Config) RateLimitWindow() time.Duration {
	return parseDurationOr(c.RateLimit.WindowSize, time.Second)
}

func (c *Config) HeavyVerbCooldown() time.Duration {
	return parseDurationOr(c.RateLimit.HeavyVerbCooldown, 2*time.Second)
}

func (c *Config) CacheTTL() time.Duration {
	return parseDurationOr(c.Cache.TTL, 5*time.Minute)
}

func (c *Config) CASTTL() time.Duration {
	return parseDurationOr(c.CAS.TTL, 24*time.Hour)
}

func (c *Config) BreakerCooldown() time.Duration {
	return parseDurationOr(c.Breaker.Cooldown, 30*time.Second)
}

func (c *Config) StoreBusyTimeout() time.Duration {
	return parseDurationOr(c.Store.BusyTimeout, 5*time.Second)
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
