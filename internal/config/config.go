package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the soundsearch service configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Search     SearchConfig     `yaml:"search"`
	Database   DatabaseConfig   `yaml:"database"`
	Pagination PaginationConfig `yaml:"pagination"`
	Clustering ClusteringConfig `yaml:"clustering"`
	Breaker    BreakerConfig    `yaml:"breaker"`
	Auth       AuthConfig       `yaml:"auth"`
	Site       SiteConfig       `yaml:"site"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// SearchConfig holds search index connection and layout settings.
type SearchConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	KeyPrefix        string   `yaml:"key_prefix"`
	SoundsIndex      string   `yaml:"sounds_index"`
	ForumIndex       string   `yaml:"forum_index"`
	EnsureIndexes    bool     `yaml:"ensure_indexes"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// DatabaseConfig holds the PostgreSQL record store settings.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
	MaxConns int32  `yaml:"max_conns"`
}

// PaginationConfig holds page sizes.
type PaginationConfig struct {
	SoundsPerPage           int `yaml:"sounds_per_page"`
	SoundsPerAPIResponse    int `yaml:"sounds_per_api_response"`
	MaxSoundsPerAPIResponse int `yaml:"max_sounds_per_api_response"`
	ForumResultsPerPage     int `yaml:"forum_results_per_page"`
}

// ClusteringConfig holds clustering engine settings.
type ClusteringConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Features      string `yaml:"features"`
	PendingTTLSec int    `yaml:"pending_ttl_sec"`
	Stream        string `yaml:"stream"`
}

// PendingTTL returns the lifetime of a pending status entry.
func (c ClusteringConfig) PendingTTL() time.Duration {
	return time.Duration(c.PendingTTLSec) * time.Second
}

// BreakerConfig holds the search circuit breaker settings.
type BreakerConfig struct {
	MaxRequests         uint32 `yaml:"max_requests"`
	IntervalSec         int    `yaml:"interval_sec"`
	TimeoutSec          int    `yaml:"timeout_sec"`
	ConsecutiveFailures uint32 `yaml:"consecutive_failures"`
}

// SiteConfig holds public site settings.
type SiteConfig struct {
	BaseURL string `yaml:"base_url"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration, expanding ${VAR} and ${VAR:-default} first.
func Parse(data []byte) (Config, error) {
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
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}

	if c.Search.KeyPrefix == "" {
		c.Search.KeyPrefix = "soundsearch:"
	}
	if c.Search.SoundsIndex == "" {
		c.Search.SoundsIndex = c.Search.KeyPrefix + "sounds"
	}
	if c.Search.ForumIndex == "" {
		c.Search.ForumIndex = c.Search.KeyPrefix + "forum"
	}
	if c.Search.ReadinessTimeout <= 0 {
		c.Search.ReadinessTimeout = 10
	}

	if c.Database.Port <= 0 {
		c.Database.Port = 5432
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Database.MaxConns <= 0 {
		c.Database.MaxConns = 10
	}

	if c.Pagination.SoundsPerPage <= 0 {
		c.Pagination.SoundsPerPage = 15
	}
	if c.Pagination.SoundsPerAPIResponse <= 0 {
		c.Pagination.SoundsPerAPIResponse = 15
	}
	if c.Pagination.MaxSoundsPerAPIResponse <= 0 {
		c.Pagination.MaxSoundsPerAPIResponse = 150
	}
	if c.Pagination.ForumResultsPerPage <= 0 {
		c.Pagination.ForumResultsPerPage = 15
	}

	if c.Clustering.Features == "" {
		c.Clustering.Features = "audio_as"
	}
	if c.Clustering.PendingTTLSec <= 0 {
		c.Clustering.PendingTTLSec = 600
	}
	if c.Clustering.Stream == "" {
		c.Clustering.Stream = c.Search.KeyPrefix + "clustering:requests"
	}

	if c.Breaker.MaxRequests == 0 {
		c.Breaker.MaxRequests = 1
	}
	if c.Breaker.IntervalSec <= 0 {
		c.Breaker.IntervalSec = 60
	}
	if c.Breaker.TimeoutSec <= 0 {
		c.Breaker.TimeoutSec = 30
	}
	if c.Breaker.ConsecutiveFailures == 0 {
		c.Breaker.ConsecutiveFailures = 5
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Search.Addrs) == 0 {
		return fmt.Errorf("search.addrs is required")
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database.name is required")
	}
	if c.Pagination.SoundsPerAPIResponse > c.Pagination.MaxSoundsPerAPIResponse {
		return fmt.Errorf("pagination.sounds_per_api_response (%d) exceeds max_sounds_per_api_response (%d)",
			c.Pagination.SoundsPerAPIResponse, c.Pagination.MaxSoundsPerAPIResponse)
	}
	if c.Site.BaseURL != "" && !strings.HasPrefix(c.Site.BaseURL, "http") {
		return fmt.Errorf("site.base_url must be an http(s) URL, got %q", c.Site.BaseURL)
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
