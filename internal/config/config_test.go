package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" || cfg.DBPath != "convocation.db" {
		t.Errorf("port/db = %q/%q", cfg.Port, cfg.DBPath)
	}
	if cfg.ReminderCron != "0 8 * * *" || cfg.ImportHorizonDays != 365 {
		t.Errorf("cron/horizon = %q/%d", cfg.ReminderCron, cfg.ImportHorizonDays)
	}
	if !cfg.RemindersEnabled() {
		t.Error("reminders should default on")
	}
}

func TestLoadYAMLThenEnv(t *testing.T) {
	path := writeFile(t, "convocation.yaml", `
port: "9090"
timezone: Africa/Lagos
import_horizon_days: 90
allowed_origins: ["https://admin.example.edu"]
storage:
  bucket: convocation
  access_key: yaml-key
  secret_key: yaml-secret
push:
  subscriber: mailto:registry@example.edu
`)
	t.Setenv("CONVOCATION_PORT", "7070")
	t.Setenv("CONVOCATION_S3_ACCESS_KEY", "env-key")

	cfg, err := Load(path, filepath.Join(t.TempDir(), "none.env"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "7070" {
		t.Errorf("port = %q, env should win", cfg.Port)
	}
	if cfg.Timezone != "Africa/Lagos" || cfg.Location().String() != "Africa/Lagos" {
		t.Errorf("timezone = %q", cfg.Timezone)
	}
	if cfg.ImportHorizonDays != 90 {
		t.Errorf("horizon = %d", cfg.ImportHorizonDays)
	}
	if cfg.Storage.AccessKey != "env-key" || cfg.Storage.SecretKey != "yaml-secret" || cfg.Storage.Region != "us-east-1" {
		t.Errorf("storage = %+v", cfg.Storage)
	}
	if !reflect.DeepEqual(cfg.AllowedOrigins, []string{"https://admin.example.edu"}) {
		t.Errorf("origins = %v", cfg.AllowedOrigins)
	}
	if cfg.Push.Subscriber != "mailto:registry@example.edu" {
		t.Errorf("subscriber = %q", cfg.Push.Subscriber)
	}
}

func TestLoadDotEnv(t *testing.T) {
	envFile := writeFile(t, ".env", "CONVOCATION_DB_PATH=/var/lib/convocation/data.db\nCONVOCATION_ALLOWED_ORIGINS=a.example, b.example\n")
	// godotenv never overrides variables already present.
	t.Setenv("CONVOCATION_DB_PATH", "")
	os.Unsetenv("CONVOCATION_DB_PATH")
	t.Setenv("CONVOCATION_ALLOWED_ORIGINS", "")
	os.Unsetenv("CONVOCATION_ALLOWED_ORIGINS")

	cfg, err := Load("", envFile)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBPath != "/var/lib/convocation/data.db" {
		t.Errorf("db path = %q", cfg.DBPath)
	}
	if !reflect.DeepEqual(cfg.AllowedOrigins, []string{"a.example", "b.example"}) {
		t.Errorf("origins = %v", cfg.AllowedOrigins)
	}
}

func TestLoadInvalid(t *testing.T) {
	noEnv := filepath.Join(t.TempDir(), "none.env")

	tests := map[string]string{
		"bad yaml":     "port: [",
		"bad timezone": "timezone: Mars/Olympus",
		"bad cron":     "reminder_cron: every morning",
		"bad port":     "port: http",
		"bad backup":   "backup: {passphrase: secret, cron: nightly}",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeFile(t, "c.yaml", content), noEnv); err == nil {
				t.Error("expected error")
			}
		})
	}

	t.Run("bad horizon env", func(t *testing.T) {
		t.Setenv("CONVOCATION_IMPORT_HORIZON_DAYS", "a year")
		if _, err := Load("", noEnv); err == nil {
			t.Error("expected error")
		}
	})
}

func TestRemindersOff(t *testing.T) {
	cfg, err := Load(writeFile(t, "c.yaml", "reminder_cron: \"off\""), filepath.Join(t.TempDir(), "none.env"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RemindersEnabled() {
		t.Error("expected reminders disabled")
	}
}

func TestLoadEmailAndBackup(t *testing.T) {
	path := writeFile(t, "c.yaml", `
email:
  from: registry@example.edu
backup:
  passphrase: correct horse
  retention_days: 7
`)
	t.Setenv("CONVOCATION_POSTMARK_TOKEN", "pm-token")
	t.Setenv("CONVOCATION_BACKUP_CRON", "30 2 * * *")

	cfg, err := Load(path, filepath.Join(t.TempDir(), "none.env"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Email.PostmarkToken != "pm-token" || cfg.Email.From != "registry@example.edu" {
		t.Errorf("email = %+v", cfg.Email)
	}
	if !cfg.Backup.Enabled() || cfg.Backup.Cron != "30 2 * * *" || cfg.Backup.RetentionDays != 7 {
		t.Errorf("backup = %+v", cfg.Backup)
	}

	if Default().Backup.Enabled() {
		t.Error("backups should default off")
	}
}
