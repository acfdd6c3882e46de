package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Database drivers.
const (
	DriverValkey   = "valkey"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds the quickai relay configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Storage    StorageConfig    `yaml:"storage"`
	Quota      QuotaConfig      `yaml:"quota"`
	Retention  RetentionConfig  `yaml:"retention"`
	Generation GenerationConfig `yaml:"generation"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	Auth       AuthConfig       `yaml:"auth"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings. Empty lists disable the check.
type AuthConfig struct {
	APIKeys   []string `yaml:"api_keys"`
	AdminKeys []string `yaml:"admin_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int     `yaml:"port"`
	ReadTimeoutSec  int     `yaml:"read_timeout_sec"`
	WriteTimeoutSec int     `yaml:"write_timeout_sec"`
	ShutdownSec     int     `yaml:"shutdown_timeout_sec"`
	RateLimitRPS    float64 `yaml:"rate_limit_rps"` // 0 = disabled
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // valkey, redis, postgres, memory (default: valkey)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	URL              string   `yaml:"url"` // postgres only
	MaxOpenConns     int      `yaml:"max_open_conns"`
	MaxIdleConns     int      `yaml:"max_idle_conns"`
	ConnMaxLifetime  int      `yaml:"conn_max_lifetime_sec"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	AutoMigrate      *bool    `yaml:"auto_migrate"` // postgres only (default: true)
}

// StorageConfig holds key-value storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// QuotaConfig holds the free-tier daily limits.
type QuotaConfig struct {
	TextDailyLimit  int64  `yaml:"text_daily_limit"`
	ImageDailyLimit int64  `yaml:"image_daily_limit"`
	Timezone        string `yaml:"timezone"` // IANA name for the day boundary (default: UTC)
}

// RetentionConfig controls how long usage history is kept.
type RetentionConfig struct {
	UsageDays       int    `yaml:"usage_days"` // 0 = keep forever
	PruneExpired    bool   `yaml:"prune_expired_entitlements"`
	Schedule        string `yaml:"schedule"` // cron spec (default: "15 3 * * *")
	SweepTimeoutSec int    `yaml:"sweep_timeout_sec"`
}

// GenerationConfig holds upstream generation settings.
type GenerationConfig struct {
	Provider     string `yaml:"provider"`
	APIKey       string `yaml:"api_key"`
	BaseURL      string `yaml:"base_url"`
	ImageBaseURL string `yaml:"image_base_url"`
	ImageWidth   int    `yaml:"image_width"`
	ImageHeight  int    `yaml:"image_height"`
	ImageSeed    int    `yaml:"image_seed"`
	TimeoutSec   int    `yaml:"timeout_sec"`
	HealthCheck  bool   `yaml:"health_check"`
}

// CatalogConfig optionally replaces the built-in model catalog.
type CatalogConfig struct {
	DefaultSystemPrompt string        `yaml:"default_system_prompt"`
	TextModels          []ModelConfig `yaml:"text_models"`
	ImageModels         []ModelConfig `yaml:"image_models"`
	Agents              []AgentConfig `yaml:"agents"`
}

// ModelConfig describes one catalog model.
type ModelConfig struct {
	Name         string `yaml:"name"`
	Description  string `yaml:"description"`
	Premium      bool   `yaml:"premium"`
	SystemPrompt string `yaml:"system_prompt"`
}

// AgentConfig describes one persona.
type AgentConfig struct {
	Name         string `yaml:"name"`
	Description  string `yaml:"description"`
	SystemPrompt string `yaml:"system_prompt"`
}

// IsCustom reports whether the catalog section overrides the built-in catalog.
func (c CatalogConfig) IsCustom() bool {
	return len(c.TextModels) > 0 || len(c.ImageModels) > 0 || len(c.Agents) > 0
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

// Parse decodes YAML with ${VAR:-default} expansion, then applies defaults and validates.
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
		c.HTTP.WriteTimeoutSec = 90 // text generation can be slow
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverValkey
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Database.AutoMigrate == nil {
		on := true
		c.Database.AutoMigrate = &on
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "quickai:"
	}
	if c.Quota.TextDailyLimit == 0 {
		c.Quota.TextDailyLimit = 50
	}
	if c.Quota.ImageDailyLimit == 0 {
		c.Quota.ImageDailyLimit = 15
	}
	if c.Quota.Timezone == "" {
		c.Quota.Timezone = "UTC"
	}
	if c.Retention.Schedule == "" {
		c.Retention.Schedule = "15 3 * * *"
	}
	if c.Retention.SweepTimeoutSec <= 0 {
		c.Retention.SweepTimeoutSec = 300
	}
	if c.Generation.Provider == "" {
		c.Generation.Provider = "pollinations"
	}
	if c.Generation.TimeoutSec <= 0 {
		c.Generation.TimeoutSec = 60
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.HTTP.RateLimitRPS < 0 {
		return fmt.Errorf("http.rate_limit_rps must not be negative, got %v", c.HTTP.RateLimitRPS)
	}

	switch c.Database.Driver {
	case DriverValkey, DriverRedis:
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for driver %q", c.Database.Driver)
		}
	case DriverPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("database.url is required for driver %q", c.Database.Driver)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("database.driver must be one of valkey, redis, postgres, memory, got %q", c.Database.Driver)
	}

	if c.Quota.TextDailyLimit < 0 || c.Quota.ImageDailyLimit < 0 {
		return fmt.Errorf("quota limits must not be negative")
	}
	if _, err := time.LoadLocation(c.Quota.Timezone); err != nil {
		return fmt.Errorf("quota.timezone: %w", err)
	}

	if c.Retention.UsageDays < 0 {
		return fmt.Errorf("retention.usage_days must not be negative, got %d", c.Retention.UsageDays)
	}
	if _, err := cron.ParseStandard(c.Retention.Schedule); err != nil {
		return fmt.Errorf("retention.schedule: %w", err)
	}
	return nil
}

// UsageRetention returns the usage retention as a duration, 0 meaning forever.
func (c *Config) UsageRetention() time.Duration {
	return time.Duration(c.Retention.UsageDays) * 24 * time.Hour
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

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
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
