package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const envPrefix = "CONVOCATION_"

// StorageConfig describes the S3-compatible bucket holding uploaded images.
type StorageConfig struct {
	Endpoint      string `yaml:"endpoint"`
	Bucket        string `yaml:"bucket"`
	Region        string `yaml:"region"`
	AccessKey     string `yaml:"access_key"`
	SecretKey     string `yaml:"secret_key"`
	PublicBaseURL string `yaml:"public_base_url"`
}

// PushConfig holds the VAPID identity used for web push.
type PushConfig struct {
	VAPIDPublicKey  string `yaml:"vapid_public_key"`
	VAPIDPrivateKey string `yaml:"vapid_private_key"`
	Subscriber      string `yaml:"subscriber"`
}

// EmailConfig holds the Postmark credentials used to mail feedback replies.
type EmailConfig struct {
	PostmarkToken string `yaml:"postmark_token"`
	From          string `yaml:"from"`
}

// BackupConfig controls encrypted database snapshots. Backups are disabled
// unless a passphrase is set.
type BackupConfig struct {
	Passphrase    string `yaml:"passphrase"`
	Cron          string `yaml:"cron"`
	RetentionDays int    `yaml:"retention_days"`
}

func (b BackupConfig) Enabled() bool {
	return b.Passphrase != ""
}

// Config is the top-level service configuration.
type Config struct {
	Port      string `yaml:"port"`
	DBPath    string `yaml:"db_path"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Timezone is the IANA zone deadlines are classified in.
	Timezone string `yaml:"timezone"`

	// ReminderCron is a standard five-field cron schedule for the daily
	// deadline reminder. "off" disables it.
	ReminderCron string `yaml:"reminder_cron"`

	// ImportHorizonDays bounds recurrence expansion during ICS import.
	ImportHorizonDays int `yaml:"import_horizon_days"`

	// AllowedOrigins restricts WebSocket origins. Empty allows any.
	AllowedOrigins []string `yaml:"allowed_origins"`

	Storage StorageConfig `yaml:"storage"`
	Push    PushConfig    `yaml:"push"`
	Email   EmailConfig   `yaml:"email"`
	Backup  BackupConfig  `yaml:"backup"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	c := &Config{}
	c.Normalize()
	return c
}

// Normalize fills zero values with defaults.
func (c *Config) Normalize() {
	if c.Port == "" {
		c.Port = "8080"
	}
	if c.DBPath == "" {
		c.DBPath = "convocation.db"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}
	if c.Timezone == "" {
		c.Timezone = "Local"
	}
	if c.ReminderCron == "" {
		c.ReminderCron = "0 8 * * *"
	}
	if c.ImportHorizonDays <= 0 {
		c.ImportHorizonDays = 365
	}
	if c.Storage.Region == "" {
		c.Storage.Region = "us-east-1"
	}
	if c.Backup.Cron == "" {
		c.Backup.Cron = "0 3 * * *"
	}
	if c.Backup.RetentionDays <= 0 {
		c.Backup.RetentionDays = 30
	}
}

// Validate checks fields that would otherwise fail later at startup.
func (c *Config) Validate() error {
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	if c.RemindersEnabled() {
		if _, err := cron.ParseStandard(c.ReminderCron); err != nil {
			return fmt.Errorf("reminder_cron %q: %w", c.ReminderCron, err)
		}
	}
	if c.Backup.Enabled() {
		if _, err := cron.ParseStandard(c.Backup.Cron); err != nil {
			return fmt.Errorf("backup cron %q: %w", c.Backup.Cron, err)
		}
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("port %q: must be numeric", c.Port)
	}
	return nil
}

// Location returns the configured zone, falling back to time.Local.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func (c *Config) RemindersEnabled() bool {
	return !strings.EqualFold(c.ReminderCron, "off")
}

// Load builds the configuration in layers: envFiles (default ".env") are
// loaded into the process environment if present, then the YAML file at path
// if it exists, then CONVOCATION_* variables override individual fields.
func Load(path string, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Port, "PORT")
	setString(&c.DBPath, "DB_PATH")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.LogFormat, "LOG_FORMAT")
	setString(&c.Timezone, "TIMEZONE")
	setString(&c.ReminderCron, "REMINDER_CRON")

	if v := os.Getenv(envPrefix + "IMPORT_HORIZON_DAYS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sIMPORT_HORIZON_DAYS: %w", envPrefix, err)
		}
		c.ImportHorizonDays = n
	}
	if v := os.Getenv(envPrefix + "BACKUP_RETENTION_DAYS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sBACKUP_RETENTION_DAYS: %w", envPrefix, err)
		}
		c.Backup.RetentionDays = n
	}
	if v := os.Getenv(envPrefix + "ALLOWED_ORIGINS"); v != "" {
		c.AllowedOrigins = splitList(v)
	}

	setString(&c.Storage.Endpoint, "S3_ENDPOINT")
	setString(&c.Storage.Bucket, "S3_BUCKET")
	setString(&c.Storage.Region, "S3_REGION")
	setString(&c.Storage.AccessKey, "S3_ACCESS_KEY")
	setString(&c.Storage.SecretKey, "S3_SECRET_KEY")
	setString(&c.Storage.PublicBaseURL, "S3_PUBLIC_URL")

	setString(&c.Push.VAPIDPublicKey, "VAPID_PUBLIC_KEY")
	setString(&c.Push.VAPIDPrivateKey, "VAPID_PRIVATE_KEY")
	setString(&c.Push.Subscriber, "VAPID_SUBSCRIBER")

	setString(&c.Email.PostmarkToken, "POSTMARK_TOKEN")
	setString(&c.Email.From, "EMAIL_FROM")

	setString(&c.Backup.Passphrase, "BACKUP_PASSPHRASE")
	setString(&c.Backup.Cron, "BACKUP_CRON")
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(envPrefix + key); v != "" {
		*dst = v
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
