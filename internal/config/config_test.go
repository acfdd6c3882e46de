package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	cfg := Config{
		HTTP: HTTPConfig{Port: 8080},
		Database: DatabaseConfig{
			Addrs: []string{"localhost:6379"},
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_MissingValkeyAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Addrs = nil

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for missing addrs")
	}
	if !strings.Contains(err.Error(), "database.addrs") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidate_Drivers(t *testing.T) {
	tests := []struct {
		name    string
		db      DatabaseConfig
		wantErr bool
	}{
		{"redis with addrs", DatabaseConfig{Driver: DriverRedis, Addrs: []string{"r:6379"}}, false},
		{"postgres with url", DatabaseConfig{Driver: DriverPostgres, URL: "postgres://x"}, false},
		{"postgres without url", DatabaseConfig{Driver: DriverPostgres}, true},
		{"memory", DatabaseConfig{Driver: DriverMemory}, false},
		{"unknown", DatabaseConfig{Driver: "sqlite"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Database = tt.db
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_BadTimezone(t *testing.T) {
	cfg := validConfig()
	cfg.Quota.Timezone = "Mars/Olympus"

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown timezone")
	}
}

func TestValidate_BadSchedule(t *testing.T) {
	cfg := validConfig()
	cfg.Retention.Schedule = "every now and then"

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for bad cron schedule")
	}
}

func TestValidate_NegativeValues(t *testing.T) {
	cfg := validConfig()
	cfg.Quota.TextDailyLimit = -1
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for negative text limit")
	}

	cfg = validConfig()
	cfg.Retention.UsageDays = -3
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for negative retention")
	}

	cfg = validConfig()
	cfg.HTTP.RateLimitRPS = -1
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for negative rps")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.Database.Driver != DriverValkey {
		t.Errorf("expected driver valkey, got %q", cfg.Database.Driver)
	}
	if cfg.Storage.KeyPrefix != "quickai:" {
		t.Errorf("expected key prefix quickai:, got %q", cfg.Storage.KeyPrefix)
	}
	if cfg.Quota.TextDailyLimit != 50 || cfg.Quota.ImageDailyLimit != 15 {
		t.Errorf("unexpected limits: %d/%d", cfg.Quota.TextDailyLimit, cfg.Quota.ImageDailyLimit)
	}
	if cfg.Quota.Timezone != "UTC" {
		t.Errorf("expected UTC, got %q", cfg.Quota.Timezone)
	}
	if cfg.Retention.Schedule != "15 3 * * *" {
		t.Errorf("unexpected schedule %q", cfg.Retention.Schedule)
	}
	if cfg.Database.AutoMigrate == nil || !*cfg.Database.AutoMigrate {
		t.Error("expected auto_migrate to default to true")
	}
	if cfg.Generation.TimeoutSec != 60 {
		t.Errorf("expected generation timeout 60, got %d", cfg.Generation.TimeoutSec)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	off := false
	cfg := Config{
		Database: DatabaseConfig{Driver: DriverPostgres, AutoMigrate: &off},
		Storage:  StorageConfig{KeyPrefix: "bot:"},
		Quota:    QuotaConfig{TextDailyLimit: 5, ImageDailyLimit: 2, Timezone: "Europe/Moscow"},
	}
	cfg.ApplyDefaults()

	if cfg.Database.Driver != DriverPostgres {
		t.Errorf("driver overwritten: %q", cfg.Database.Driver)
	}
	if *cfg.Database.AutoMigrate {
		t.Error("auto_migrate overwritten")
	}
	if cfg.Storage.KeyPrefix != "bot:" {
		t.Errorf("prefix overwritten: %q", cfg.Storage.KeyPrefix)
	}
	if cfg.Quota.TextDailyLimit != 5 || cfg.Quota.ImageDailyLimit != 2 {
		t.Errorf("limits overwritten: %d/%d", cfg.Quota.TextDailyLimit, cfg.Quota.ImageDailyLimit)
	}
	if cfg.Quota.Timezone != "Europe/Moscow" {
		t.Errorf("timezone overwritten: %q", cfg.Quota.Timezone)
	}
}

func TestParse_ExpandsEnv(t *testing.T) {
	t.Setenv("QUICKAI_TEST_PORT", "9090")

	data := []byte(`
http:
  port: ${QUICKAI_TEST_PORT}
database:
  driver: memory
generation:
  api_key: ${QUICKAI_TEST_MISSING:-fallback}
auth:
  admin_keys: ["root"]
`)
	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.HTTP.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.HTTP.Port)
	}
	if cfg.Generation.APIKey != "fallback" {
		t.Errorf("expected default api key, got %q", cfg.Generation.APIKey)
	}
	if len(cfg.Auth.AdminKeys) != 1 || cfg.Auth.AdminKeys[0] != "root" {
		t.Errorf("unexpected admin keys %v", cfg.Auth.AdminKeys)
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse([]byte("http: [")); err == nil {
		t.Error("expected yaml error")
	}
	if _, err := Parse([]byte("http:\n  port: 0\n")); err == nil {
		t.Error("expected validation error")
	}
}

func TestUsageRetention(t *testing.T) {
	cfg := Config{Retention: RetentionConfig{UsageDays: 2}}
	if got := cfg.UsageRetention(); got != 48*time.Hour {
		t.Errorf("expected 48h, got %v", got)
	}
}

func TestCatalogIsCustom(t *testing.T) {
	if (CatalogConfig{}).IsCustom() {
		t.Error("empty catalog should not be custom")
	}
	if !(CatalogConfig{Agents: []AgentConfig{{Name: "coder"}}}).IsCustom() {
		t.Error("catalog with agents should be custom")
	}
}
