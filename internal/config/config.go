package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config aggregates application configuration values.
type Config struct {
	HTTP     HTTPConfig    `yaml:"http"`
	Store    StoreConfig   `yaml:"store"`
	Routing  RoutingConfig `yaml:"routing"`
	Sessions SessionConfig `yaml:"sessions"`
	Logging  LoggingConfig `yaml:"logging"`
	Metrics  MetricsConfig `yaml:"metrics"`
}

// HTTPConfig governs HTTP server behaviour.
type HTTPConfig struct {
	Host              string        `yaml:"host"`
	Port              int           `yaml:"port" validate:"min=1,max=65535"`
	ReadTimeout       time.Duration `yaml:"readTimeout"`
	WriteTimeout      time.Duration `yaml:"writeTimeout"`
	IdleTimeout       time.Duration `yaml:"idleTimeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdownTimeout"`
	AllowedOriginsCSV string        `yaml:"allowedOrigins"`
	// RateLimit is the sustained requests per second allowed on the API
	// routes; zero disables limiting.
	RateLimit float64 `yaml:"rateLimit" validate:"gte=0"`
	RateBurst int     `yaml:"rateBurst" validate:"gte=0"`
}

// Store backends.
const (
	BackendNeo4j    = "neo4j"
	BackendPostgres = "postgres"
	BackendFile     = "file"
)

// StoreConfig selects where the map dataset lives.
type StoreConfig struct {
	Backend       string         `yaml:"backend" validate:"oneof=neo4j postgres file"`
	Neo4j         Neo4jConfig    `yaml:"neo4j"`
	Postgres      PostgresConfig `yaml:"postgres"`
	DatasetPath   string         `yaml:"datasetPath"`
	Watch         bool           `yaml:"watch"`
	WatchDebounce time.Duration  `yaml:"watchDebounce"`
	LoadTimeout   time.Duration  `yaml:"loadTimeout"`
}

// Neo4jConfig describes connectivity to the graph database.
type Neo4jConfig struct {
	URI            string        `yaml:"uri"`
	Database       string        `yaml:"database"`
	Username       string        `yaml:"username"`
	Password       string        `yaml:"password"`
	MaxConnections int           `yaml:"maxConnections" validate:"gte=0"`
	AcquireTimeout time.Duration `yaml:"acquireTimeout"`
}

// PostgresConfig describes the relational store.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int    `yaml:"maxConns" validate:"gte=0"`
	MinConns int    `yaml:"minConns" validate:"gte=0"`
}

// RoutingConfig tunes the shortest-path engine.
type RoutingConfig struct {
	// MaxIterations caps the search loop; zero keeps the engine default of
	// one iteration per vertex plus one.
	MaxIterations int `yaml:"maxIterations" validate:"gte=0"`
}

// SessionConfig bounds interactive selection sessions.
type SessionConfig struct {
	IdleTTL       time.Duration `yaml:"idleTTL"`
	SweepInterval time.Duration `yaml:"sweepInterval"`
	MaxSessions   int           `yaml:"maxSessions" validate:"gte=0"`
}

// LoggingConfig controls structured logging settings.
type LoggingConfig struct {
	Level         string `yaml:"level"`
	Format        string `yaml:"format"` // text|json
	IncludeCaller bool   `yaml:"includeCaller"`
}

// MetricsConfig controls the prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

const (
	defaultHost             = "0.0.0.0"
	defaultPort             = 8080
	defaultReadTimeout      = 10 * time.Second
	defaultWriteTimeout     = 15 * time.Second
	defaultIdleTimeout      = 60 * time.Second
	defaultShutdownTimeout  = 10 * time.Second
	defaultRateLimit        = 50
	defaultRateBurst        = 100
	defaultLoggingLevel     = "info"
	defaultLoggingFormat    = "text"
	defaultGraphMaxSessions = 10
	defaultWatchDebounce    = 500 * time.Millisecond
	defaultLoadTimeout      = 30 * time.Second
	defaultSessionIdleTTL   = 30 * time.Minute
	defaultSessionSweep     = time.Minute
	defaultMaxSessions      = 10000
	defaultMetricsPath      = "/metrics"
)

// ConfigFileEnv names the environment variable that points at an optional
// YAML file. Environment variables override values read from the file.
const ConfigFileEnv = "MAPNAV_CONFIG"

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		HTTP: HTTPConfig{
			Host:            defaultHost,
			Port:            defaultPort,
			ReadTimeout:     defaultReadTimeout,
			WriteTimeout:    defaultWriteTimeout,
			IdleTimeout:     defaultIdleTimeout,
			ShutdownTimeout: defaultShutdownTimeout,
			RateLimit:       defaultRateLimit,
			RateBurst:       defaultRateBurst,
		},
		Store: StoreConfig{
			Backend:       BackendNeo4j,
			Neo4j:         Neo4jConfig{MaxConnections: defaultGraphMaxSessions},
			WatchDebounce: defaultWatchDebounce,
			LoadTimeout:   defaultLoadTimeout,
		},
		Sessions: SessionConfig{
			IdleTTL:       defaultSessionIdleTTL,
			SweepInterval: defaultSessionSweep,
			MaxSessions:   defaultMaxSessions,
		},
		Logging: LoggingConfig{
			Level:  defaultLoggingLevel,
			Format: defaultLoggingFormat,
		},
		Metrics: MetricsConfig{
			Path: defaultMetricsPath,
		},
	}
}

var validate = validator.New()

// Load reads configuration from the optional YAML file and environment
// variables, applying defaults.
func Load() (Config, error) {
	cfg := Default()
	if path := os.Getenv(ConfigFileEnv); path != "" {
		if err := overlayFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	cfg.HTTP.Host = valueOrDefault("SERVER_HOST", cfg.HTTP.Host)
	port, err := parsePort("SERVER_PORT", cfg.HTTP.Port)
	if err != nil {
		return Config{}, err
	}
	cfg.HTTP.Port = port

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"SERVER_READ_TIMEOUT", &cfg.HTTP.ReadTimeout},
		{"SERVER_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout},
		{"SERVER_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout},
		{"SERVER_SHUTDOWN_TIMEOUT", &cfg.HTTP.ShutdownTimeout},
		{"GRAPH_ACQUIRE_TIMEOUT", &cfg.Store.Neo4j.AcquireTimeout},
		{"DATASET_WATCH_DEBOUNCE", &cfg.Store.WatchDebounce},
		{"DATASET_LOAD_TIMEOUT", &cfg.Store.LoadTimeout},
		{"SESSION_IDLE_TTL", &cfg.Sessions.IdleTTL},
		{"SESSION_SWEEP_INTERVAL", &cfg.Sessions.SweepInterval},
	}
	for _, d := range durations {
		if v := os.Getenv(d.key); v != "" {
			parsed, err := time.ParseDuration(v)
			if err != nil {
				return Config{}, fmt.Errorf("invalid %s: %w", d.key, err)
			}
			*d.dst = parsed
		}
	}

	cfg.HTTP.AllowedOriginsCSV = valueOrDefault("SERVER_ALLOWED_ORIGINS", cfg.HTTP.AllowedOriginsCSV)
	cfg.HTTP.RateLimit = parseFloatWithDefault("SERVER_RATE_LIMIT", cfg.HTTP.RateLimit)
	cfg.HTTP.RateBurst = parseIntWithDefault("SERVER_RATE_BURST", cfg.HTTP.RateBurst)

	cfg.Store.Backend = strings.ToLower(valueOrDefault("STORE_BACKEND", cfg.Store.Backend))
	cfg.Store.Neo4j.URI = valueOrDefault("GRAPH_URI", cfg.Store.Neo4j.URI)
	cfg.Store.Neo4j.Database = valueOrDefault("GRAPH_DATABASE", cfg.Store.Neo4j.Database)
	cfg.Store.Neo4j.Username = valueOrDefault("GRAPH_USERNAME", cfg.Store.Neo4j.Username)
	cfg.Store.Neo4j.Password = valueOrDefault("GRAPH_PASSWORD", cfg.Store.Neo4j.Password)
	cfg.Store.Neo4j.MaxConnections = parseIntWithDefault("GRAPH_MAX_CONNECTIONS", cfg.Store.Neo4j.MaxConnections)
	cfg.Store.Postgres.DSN = valueOrDefault("POSTGRES_DSN", cfg.Store.Postgres.DSN)
	cfg.Store.Postgres.MaxConns = parseIntWithDefault("POSTGRES_MAX_CONNS", cfg.Store.Postgres.MaxConns)
	cfg.Store.Postgres.MinConns = parseIntWithDefault("POSTGRES_MIN_CONNS", cfg.Store.Postgres.MinConns)
	cfg.Store.DatasetPath = valueOrDefault("DATASET_PATH", cfg.Store.DatasetPath)
	cfg.Store.Watch = parseBoolWithDefault("DATASET_WATCH", cfg.Store.Watch)

	cfg.Routing.MaxIterations = parseIntWithDefault("ROUTING_MAX_ITERATIONS", cfg.Routing.MaxIterations)
	cfg.Sessions.MaxSessions = parseIntWithDefault("SESSION_MAX", cfg.Sessions.MaxSessions)

	cfg.Logging.Level = valueOrDefault("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = valueOrDefault("LOG_FORMAT", cfg.Logging.Format)
	cfg.Logging.IncludeCaller = parseBoolWithDefault("LOG_INCLUDE_CALLER", cfg.Logging.IncludeCaller)

	cfg.Metrics.Enabled = parseBoolWithDefault("SERVER_METRICS_ENABLED", cfg.Metrics.Enabled)
	cfg.Metrics.Path = valueOrDefault("METRICS_PATH", cfg.Metrics.Path)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field ranges and the settings the chosen backend needs.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	switch c.Store.Backend {
	case BackendNeo4j:
		if c.Store.Neo4j.URI == "" {
			return errors.New("invalid config: GRAPH_URI is required for the neo4j backend")
		}
	case BackendPostgres:
		if c.Store.Postgres.DSN == "" {
			return errors.New("invalid config: POSTGRES_DSN is required for the postgres backend")
		}
	case BackendFile:
		if c.Store.DatasetPath == "" {
			return errors.New("invalid config: DATASET_PATH is required for the file backend")
		}
	}
	if c.Store.Watch && c.Store.Backend != BackendFile {
		return errors.New("invalid config: DATASET_WATCH requires the file backend")
	}
	if !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("invalid config: metrics path %q must start with /", c.Metrics.Path)
	}
	return nil
}

func overlayFile(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func valueOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBoolWithDefault(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		val, err := strconv.ParseBool(v)
		if err != nil {
			return fallback
		}
		return val
	}
	return fallback
}

func parseIntWithDefault(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if val, err := strconv.Atoi(v); err == nil {
			return val
		}
	}
	return fallback
}

func parseFloatWithDefault(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if val, err := strconv.ParseFloat(v, 64); err == nil {
			return val
		}
	}
	return fallback
}

func parsePort(key string, fallback int) (int, error) {
	if v := os.Getenv(key); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s value %q: %w", key, v, err)
		}
		if port <= 0 || port > 65535 {
			return 0, fmt.Errorf("port %d is out of range", port)
		}
		return port, nil
	}
	return fallback, nil
}
