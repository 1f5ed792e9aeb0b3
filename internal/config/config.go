package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "UNIDATE_"

// Two-factor verification modes.
const (
	// TwoFactorModeTOTP verifies codes with RFC 6238 time-based one-time passwords.
	TwoFactorModeTOTP = "totp"
	// TwoFactorModePlaceholder accepts only the fixed development code.
	TwoFactorModePlaceholder = "placeholder"
)

// Blob storage drivers.
const (
	// StorageDriverFS stores blobs on the local filesystem.
	StorageDriverFS = "fs"
	// StorageDriverS3 stores blobs in an S3-compatible bucket.
	StorageDriverS3 = "s3"
)

// minJWTSecretLength is the shortest accepted signing secret.
const minJWTSecretLength = 32

// AppConfig is the root configuration for the admin backend.
type AppConfig struct {
	ConfigPath string `yaml:"-"` // Source file, empty when only the environment was used.

	Server        ServerConfig        `yaml:"server" envPrefix:"SERVER_"`
	Database      DatabaseConfig      `yaml:"database" envPrefix:"DATABASE_"`
	JWT           JWTConfig           `yaml:"jwt" envPrefix:"JWT_"`
	BaaS          BaaSConfig          `yaml:"baas" envPrefix:"BAAS_"`
	Storage       StorageConfig       `yaml:"storage" envPrefix:"STORAGE_"`
	Redis         RedisConfig         `yaml:"redis" envPrefix:"REDIS_"`
	Logging       LoggingConfig       `yaml:"logging" envPrefix:"LOG_"`
	TwoFactor     TwoFactorConfig     `yaml:"two_factor" envPrefix:"TWO_FACTOR_"`
	Metrics       MetricsConfig       `yaml:"metrics" envPrefix:"METRICS_"`
	Notifications NotificationsConfig `yaml:"notifications" envPrefix:"NOTIFICATIONS_"`
	Reports       ReportsConfig       `yaml:"reports" envPrefix:"REPORTS_"`
	FeatureFlags  FeatureFlagsConfig  `yaml:"feature_flags" envPrefix:"FEATURE_FLAGS_"`
}

// FeatureFlagsConfig names the deploy environment flags are evaluated in.
type FeatureFlagsConfig struct {
	Environment string `yaml:"environment" env:"ENVIRONMENT"` // development, staging or production.
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr           string        `yaml:"addr" env:"ADDR"`
	Mode           string        `yaml:"mode" env:"MODE"` // gin mode: debug, release or test.
	RequestTimeout time.Duration `yaml:"request_timeout" env:"REQUEST_TIMEOUT"`
	TrustedProxies []string      `yaml:"trusted_proxies" env:"TRUSTED_PROXIES" envSeparator:","`
	LoginRPS       float64       `yaml:"login_rps" env:"LOGIN_RPS"`
	LoginBurst     int           `yaml:"login_burst" env:"LOGIN_BURST"`
}

// DatabaseConfig selects the document store backing database.
type DatabaseConfig struct {
	DSN string `yaml:"dsn" env:"DSN"`
}

// JWTConfig holds signing parameters for admin session tokens.
type JWTConfig struct {
	Secret string        `yaml:"secret" env:"SECRET"`
	Expiry time.Duration `yaml:"expiry" env:"EXPIRY"`
}

// BaaSConfig identifies the backend project. Secrets come from the environment.
type BaaSConfig struct {
	ProjectID   string        `yaml:"project_id" env:"PROJECT_ID"`
	APIKey      string        `yaml:"-" env:"API_KEY"`
	RequireAuth bool          `yaml:"require_auth" env:"REQUIRE_AUTH"`
	CallTimeout time.Duration `yaml:"call_timeout" env:"CALL_TIMEOUT"`
}

// StorageConfig selects and configures the blob store.
type StorageConfig struct {
	Driver string   `yaml:"driver" env:"DRIVER"`
	FSRoot string   `yaml:"fs_root" env:"FS_ROOT"`
	S3     S3Config `yaml:"s3" envPrefix:"S3_"`
}

// S3Config configures an S3-compatible bucket.
type S3Config struct {
	Bucket          string `yaml:"bucket" env:"BUCKET"`
	Region          string `yaml:"region" env:"REGION"`
	Endpoint        string `yaml:"endpoint" env:"ENDPOINT"`
	AccessKeyID     string `yaml:"-" env:"ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"-" env:"SECRET_ACCESS_KEY"`
	PathStyle       bool   `yaml:"path_style" env:"PATH_STYLE"`
}

// RedisConfig enables the shared session store and snapshot cache.
type RedisConfig struct {
	URL    string `yaml:"url" env:"URL"`
	Prefix string `yaml:"prefix" env:"PREFIX"`
}

// LoggingConfig controls logrus output.
type LoggingConfig struct {
	Level      string `yaml:"level" env:"LEVEL"`
	Format     string `yaml:"format" env:"FORMAT"`
	File       string `yaml:"file" env:"FILE"`
	MaxSizeMB  int    `yaml:"max_size_mb" env:"MAX_SIZE_MB"`
	MaxBackups int    `yaml:"max_backups" env:"MAX_BACKUPS"`
	MaxAgeDays int    `yaml:"max_age_days" env:"MAX_AGE_DAYS"`
	Compress   bool   `yaml:"compress" env:"COMPRESS"`
}

// TwoFactorConfig selects how one-time codes are verified.
type TwoFactorConfig struct {
	Mode   string `yaml:"mode" env:"MODE"`
	Issuer string `yaml:"issuer" env:"ISSUER"`
	Skew   uint   `yaml:"skew" env:"SKEW"`
}

// MetricsConfig controls the dashboard snapshot refresher.
type MetricsConfig struct {
	RefreshInterval time.Duration `yaml:"refresh_interval" env:"REFRESH_INTERVAL"`
	ActiveWindow    time.Duration `yaml:"active_window" env:"ACTIVE_WINDOW"`
	NewUserWindow   time.Duration `yaml:"new_user_window" env:"NEW_USER_WINDOW"`
}

// NotificationsConfig controls notification retention.
type NotificationsConfig struct {
	RetentionDays   int           `yaml:"retention_days" env:"RETENTION_DAYS"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" env:"CLEANUP_INTERVAL"`
}

// ReportsConfig controls asynchronous report exports.
type ReportsConfig struct {
	ExportTaskTTL  time.Duration `yaml:"export_task_ttl" env:"EXPORT_TASK_TTL"`
	ExportMaxTasks int           `yaml:"export_max_tasks" env:"EXPORT_MAX_TASKS"`
}

// Load reads the YAML file at path (optional), applies environment overrides and defaults,
// and validates the result.
func Load(path string) (*AppConfig, error) {
	if errEnv := loadDotEnv(); errEnv != nil {
		return nil, errEnv
	}

	cfg := &AppConfig{}
	path = strings.TrimSpace(path)
	if path != "" {
		data, errRead := os.ReadFile(path)
		if errRead != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, errRead)
		}
		if errUnmarshal := yaml.Unmarshal(data, cfg); errUnmarshal != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, errUnmarshal)
		}
		cfg.ConfigPath = path
	}

	if errParse := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); errParse != nil {
		return nil, fmt.Errorf("config: environment: %w", errParse)
	}

	cfg.ApplyDefaults()
	if errValidate := cfg.Validate(); errValidate != nil {
		return nil, errValidate
	}
	return cfg, nil
}

// loadDotEnv loads .env from the working directory when present.
func loadDotEnv() error {
	if _, errStat := os.Stat(".env"); errStat != nil {
		if errors.Is(errStat, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: stat .env: %w", errStat)
	}
	if errLoad := godotenv.Load(".env"); errLoad != nil {
		return fmt.Errorf("config: load .env: %w", errLoad)
	}
	return nil
}

// ApplyDefaults fills zero values with production defaults.
func (c *AppConfig) ApplyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.Mode == "" {
		c.Server.Mode = "release"
	}
	if c.Server.RequestTimeout <= 0 {
		c.Server.RequestTimeout = 15 * time.Second
	}
	if c.Server.LoginRPS <= 0 {
		c.Server.LoginRPS = 1
	}
	if c.Server.LoginBurst <= 0 {
		c.Server.LoginBurst = 5
	}
	if c.Database.DSN == "" {
		c.Database.DSN = "data/unidate.db"
	}
	if c.JWT.Expiry <= 0 {
		c.JWT.Expiry = 12 * time.Hour
	}
	if c.BaaS.CallTimeout <= 0 {
		c.BaaS.CallTimeout = 10 * time.Second
	}
	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	if c.Storage.Driver == "" {
		c.Storage.Driver = StorageDriverFS
	}
	if c.Storage.FSRoot == "" {
		c.Storage.FSRoot = "data/blobs"
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "unidate:"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Logging.MaxSizeMB <= 0 {
		c.Logging.MaxSizeMB = 100
	}
	if c.Logging.MaxBackups <= 0 {
		c.Logging.MaxBackups = 5
	}
	if c.Logging.MaxAgeDays <= 0 {
		c.Logging.MaxAgeDays = 30
	}
	c.TwoFactor.Mode = strings.ToLower(strings.TrimSpace(c.TwoFactor.Mode))
	if c.TwoFactor.Mode == "" {
		c.TwoFactor.Mode = TwoFactorModeTOTP
	}
	if c.TwoFactor.Issuer == "" {
		c.TwoFactor.Issuer = "UniDate Admin"
	}
	if c.TwoFactor.Skew == 0 {
		c.TwoFactor.Skew = 1
	}
	c.FeatureFlags.Environment = strings.ToLower(strings.TrimSpace(c.FeatureFlags.Environment))
	if c.FeatureFlags.Environment == "" {
		c.FeatureFlags.Environment = "production"
	}
	if c.Metrics.RefreshInterval <= 0 {
		c.Metrics.RefreshInterval = 30 * time.Second
	}
	if c.Metrics.ActiveWindow <= 0 {
		c.Metrics.ActiveWindow = 24 * time.Hour
	}
	if c.Metrics.NewUserWindow <= 0 {
		c.Metrics.NewUserWindow = 7 * 24 * time.Hour
	}
	if c.Notifications.RetentionDays <= 0 {
		c.Notifications.RetentionDays = 90
	}
	if c.Notifications.CleanupInterval <= 0 {
		c.Notifications.CleanupInterval = 6 * time.Hour
	}
	if c.Reports.ExportTaskTTL <= 0 {
		c.Reports.ExportTaskTTL = time.Hour
	}
	if c.Reports.ExportMaxTasks <= 0 {
		c.Reports.ExportMaxTasks = 50
	}
}

// Validate rejects configurations the server cannot run with.
func (c *AppConfig) Validate() error {
	if len(c.JWT.Secret) < minJWTSecretLength {
		return fmt.Errorf("config: jwt secret must be at least %d bytes (set %sJWT_SECRET)", minJWTSecretLength, EnvPrefix)
	}
	switch c.TwoFactor.Mode {
	case TwoFactorModeTOTP, TwoFactorModePlaceholder:
	default:
		return fmt.Errorf("config: unknown two_factor.mode %q", c.TwoFactor.Mode)
	}
	switch c.FeatureFlags.Environment {
	case "development", "staging", "production":
	default:
		return fmt.Errorf("config: unknown feature_flags.environment %q", c.FeatureFlags.Environment)
	}
	switch c.Storage.Driver {
	case StorageDriverFS:
	case StorageDriverS3:
		if strings.TrimSpace(c.Storage.S3.Bucket) == "" {
			return errors.New("config: storage.s3.bucket is required for the s3 driver")
		}
	default:
		return fmt.Errorf("config: unknown storage.driver %q", c.Storage.Driver)
	}
	return nil
}

// UseRedis reports whether a Redis URL is configured.
func (c *AppConfig) UseRedis() bool {
	return strings.TrimSpace(c.Redis.URL) != ""
}
