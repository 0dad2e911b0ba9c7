package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ignite/mailguard/internal/service/guard"
)

// Config holds all configuration for the server and worker binaries.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	Redis        RedisConfig        `yaml:"redis"`
	Log          LogConfig          `yaml:"log"`
	Probe        ProbeConfig        `yaml:"probe"`
	Verification VerificationConfig `yaml:"verification"`
	RateLimit    RateLimitConfig    `yaml:"rate_limit"`
	Guard        GuardConfig        `yaml:"guard"`
	SES          SESConfig          `yaml:"ses"`
	Archive      ArchiveConfig      `yaml:"archive"`
	Schedules    SchedulesConfig    `yaml:"schedules"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port                int      `yaml:"port"`
	Host                string   `yaml:"host"`
	AllowedOrigins      []string `yaml:"allowed_origins"`
	ReadTimeoutSeconds  int      `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int      `yaml:"write_timeout_seconds"`
}

// Addr returns host:port for http.Server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// RedisConfig is optional. With an empty URL the MX cache is disabled and
// job locks fall back to Postgres advisory locks.
type RedisConfig struct {
	URL            string `yaml:"url"`
	MXCacheTTLMin  int    `yaml:"mx_cache_ttl_minutes"`
	NegativeTTLMin int    `yaml:"mx_negative_ttl_minutes"`
}

type LogConfig struct {
	Level     string `yaml:"level"`
	RedactPII *bool  `yaml:"redact_pii"`
}

// ProbeConfig controls the SMTP RCPT probe.
type ProbeConfig struct {
	HeloHostname   string `yaml:"helo_hostname"`
	Port           string `yaml:"port"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// VerificationConfig controls single and background verification.
type VerificationConfig struct {
	BatchDelayMS      int      `yaml:"batch_delay_ms"`
	StrictSyntax      bool     `yaml:"strict_syntax"`
	ExtraDisposable   []string `yaml:"extra_disposable_domains"`
	ExtraCatchAll     []string `yaml:"extra_catch_all_domains"`
	ExtraBlocking     []string `yaml:"extra_blocking_domains"`
	WorkerBatchSize   int      `yaml:"worker_batch_size"`
	ReverifyAfterDays int      `yaml:"reverify_after_days"`
}

type RateLimitConfig struct {
	MaxPerMinute int `yaml:"max_per_minute"`
}

// GuardConfig holds campaign auto-pause thresholds, in percent.
type GuardConfig struct {
	Thresholds    guard.Thresholds `yaml:"thresholds"`
	DefaultDomain string           `yaml:"default_domain"`
}

// SESConfig holds the AWS SES sender settings. Empty credentials use the
// default AWS chain.
type SESConfig struct {
	Enabled          bool   `yaml:"enabled"`
	Region           string `yaml:"region"`
	AccessKey        string `yaml:"access_key"`
	SecretKey        string `yaml:"secret_key"`
	ConfigurationSet string `yaml:"configuration_set"`
}

// ArchiveConfig controls copying daily snapshots to S3.
type ArchiveConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Bucket   string `yaml:"bucket"`
	Prefix   string `yaml:"prefix"`
	Region   string `yaml:"region"`
	Compress bool   `yaml:"compress"`
}

// SchedulesConfig holds cron expressions for the worker jobs. An empty
// expression disables the job.
type SchedulesConfig struct {
	Snapshot            string `yaml:"snapshot"`
	EngagementRecompute string `yaml:"engagement_recompute"`
	CampaignHealth      string `yaml:"campaign_health"`
	DomainAuth          string `yaml:"domain_auth"`
	Verification        string `yaml:"verification"`
	LockTTLMinutes      int    `yaml:"lock_ttl_minutes"`
}

// Load reads a YAML file and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns a configuration with only defaults applied.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeoutSeconds == 0 {
		c.Server.ReadTimeoutSeconds = 15
	}
	if c.Server.WriteTimeoutSeconds == 0 {
		c.Server.WriteTimeoutSeconds = 60
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 20
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Redis.MXCacheTTLMin == 0 {
		c.Redis.MXCacheTTLMin = 60
	}
	if c.Redis.NegativeTTLMin == 0 {
		c.Redis.NegativeTTLMin = 5
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Probe.HeloHostname == "" {
		c.Probe.HeloHostname = "mail.example.com"
	}
	if c.Probe.Port == "" {
		c.Probe.Port = "25"
	}
	if c.Probe.TimeoutSeconds == 0 {
		c.Probe.TimeoutSeconds = 10
	}
	if c.Verification.BatchDelayMS == 0 {
		c.Verification.BatchDelayMS = 500
	}
	if c.Verification.WorkerBatchSize == 0 {
		c.Verification.WorkerBatchSize = 50
	}
	if c.Verification.ReverifyAfterDays == 0 {
		c.Verification.ReverifyAfterDays = 90
	}
	if c.RateLimit.MaxPerMinute == 0 {
		c.RateLimit.MaxPerMinute = 60
	}
	if c.Guard.Thresholds.BounceRate == 0 {
		c.Guard.Thresholds.BounceRate = guard.DefaultThresholds.BounceRate
	}
	if c.Guard.Thresholds.UnsubRate == 0 {
		c.Guard.Thresholds.UnsubRate = guard.DefaultThresholds.UnsubRate
	}
	if c.Guard.Thresholds.ComplaintRate == 0 {
		c.Guard.Thresholds.ComplaintRate = guard.DefaultThresholds.ComplaintRate
	}
	if c.SES.Region == "" {
		c.SES.Region = "us-west-2"
	}
	if c.Archive.Prefix == "" {
		c.Archive.Prefix = "snapshots/"
	}
	if c.Archive.Region == "" {
		c.Archive.Region = c.SES.Region
	}
	if c.Schedules.Snapshot == "" {
		c.Schedules.Snapshot = "5 0 * * *"
	}
	if c.Schedules.EngagementRecompute == "" {
		c.Schedules.EngagementRecompute = "30 2 * * *"
	}
	if c.Schedules.CampaignHealth == "" {
		c.Schedules.CampaignHealth = "*/5 * * * *"
	}
	if c.Schedules.DomainAuth == "" {
		c.Schedules.DomainAuth = "0 */6 * * *"
	}
	if c.Schedules.Verification == "" {
		c.Schedules.Verification = "*/10 * * * *"
	}
	if c.Schedules.LockTTLMinutes == 0 {
		c.Schedules.LockTTLMinutes = 15
	}
}

// LoadFromEnv loads a .env file if present, then the YAML file at path (if
// path is non-empty), then applies environment overrides.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		loaded, err := Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv("PROBE_HELO_HOSTNAME"); v != "" {
		cfg.Probe.HeloHostname = v
	}
	if v := os.Getenv("AWS_SES_ACCESS_KEY"); v != "" {
		cfg.SES.AccessKey = v
	}
	if v := os.Getenv("AWS_SES_SECRET_KEY"); v != "" {
		cfg.SES.SecretKey = v
	}
	if v := os.Getenv("AWS_SES_REGION"); v != "" {
		cfg.SES.Region = v
	}
	if v := os.Getenv("SNAPSHOT_S3_BUCKET"); v != "" {
		cfg.Archive.Bucket = v
		cfg.Archive.Enabled = true
	}
	if v := os.Getenv("DEFAULT_SENDING_DOMAIN"); v != "" {
		cfg.Guard.DefaultDomain = v
	}
	return cfg, nil
}

// Validate reports settings the binaries cannot start without.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("database url is required (set DATABASE_URL)")
	}
	if c.Archive.Enabled && c.Archive.Bucket == "" {
		return fmt.Errorf("archive enabled without a bucket")
	}
	if c.RateLimit.MaxPerMinute < 0 {
		return fmt.Errorf("rate_limit.max_per_minute must be positive")
	}
	return nil
}

// RedactPIIEnabled reports the redact_pii setting, which defaults to true.
func (l LogConfig) RedactPIIEnabled() bool {
	return l.RedactPII == nil || *l.RedactPII
}

func (p ProbeConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

func (v VerificationConfig) BatchDelay() time.Duration {
	return time.Duration(v.BatchDelayMS) * time.Millisecond
}

func (r RedisConfig) MXCacheTTL() time.Duration {
	return time.Duration(r.MXCacheTTLMin) * time.Minute
}

func (r RedisConfig) NegativeTTL() time.Duration {
	return time.Duration(r.NegativeTTLMin) * time.Minute
}

func (s SchedulesConfig) LockTTL() time.Duration {
	return time.Duration(s.LockTTLMinutes) * time.Minute
}
