package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shiftlog/shiftlog/internal/config"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := config.LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Addr != ":4000" {
		t.Fatalf("unexpected addr: %q", cfg.Addr)
	}
	if cfg.DefaultShift != "Matutino" {
		t.Fatalf("unexpected default shift: %q", cfg.DefaultShift)
	}
	if cfg.TokenDuration != 12*time.Hour {
		t.Fatalf("unexpected token duration: %v", cfg.TokenDuration)
	}
	if cfg.Device.Remote.Kind != config.RemoteKindREST {
		t.Fatalf("unexpected remote kind: %q", cfg.Device.Remote.Kind)
	}
	if cfg.Device.SyncInterval != 5*time.Minute {
		t.Fatalf("unexpected sync interval: %v", cfg.Device.SyncInterval)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("SHIFTLOG_ADDR", ":9999")
	t.Setenv("SHIFTLOG_DEFAULT_SHIFT", "Nocturno")
	t.Setenv("SHIFTLOG_REMOTE_KIND", "sheets")

	cfg, err := config.LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Addr != ":9999" {
		t.Fatalf("env addr not applied: %q", cfg.Addr)
	}
	if cfg.DefaultShift != "Nocturno" {
		t.Fatalf("env shift not applied: %q", cfg.DefaultShift)
	}
	if cfg.Device.Remote.Kind != config.RemoteKindSheets {
		t.Fatalf("env remote kind not applied: %q", cfg.Device.Remote.Kind)
	}
}

func TestLoadConfig_FileOverridesEnv(t *testing.T) {
	t.Setenv("SHIFTLOG_ADDR", ":9999")

	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
addr: ":5000"
jwt_secret: filesecret
default_shift: Vespertino
seed_technicians:
  - id: admin_1
    name: Rene
    role: admin
    password: changeme
device:
  sync_interval: 1m
  remote:
    kind: sheets
    sheets_url: https://script.google.com/macros/s/x/exec
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Addr != ":5000" {
		t.Fatalf("file must win over env: %q", cfg.Addr)
	}
	if cfg.JWTSecret != "filesecret" {
		t.Fatalf("unexpected jwt secret: %q", cfg.JWTSecret)
	}
	if len(cfg.SeedUsers) != 1 || cfg.SeedUsers[0].Role != "admin" {
		t.Fatalf("seed technicians not parsed: %+v", cfg.SeedUsers)
	}
	if cfg.Device.SyncInterval != time.Minute {
		t.Fatalf("unexpected sync interval: %v", cfg.Device.SyncInterval)
	}
	// untouched keys keep their defaults
	if cfg.DatabasePath != "shiftlog.db" {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := config.LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidate_InsecureJWT_FailsWhenNotDevelopment(t *testing.T) {
	t.Setenv("SHIFTLOG_ENV", "production")

	cfg, err := config.LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected Validate to fail for insecure JWT in non-development env")
	}
}

func TestValidate_InsecureJWT_AllowsDevelopment(t *testing.T) {
	t.Setenv("SHIFTLOG_ENV", "development")

	cfg, err := config.LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected Validate to succeed in development env, got: %v", err)
	}
}

func TestValidate_RemoteKind(t *testing.T) {
	t.Setenv("SHIFTLOG_ENV", "development")

	cfg, err := config.LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	cfg.Device.Remote.Kind = "ftp"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected Validate to reject unknown remote kind")
	}

	cfg.Device.Remote.Kind = config.RemoteKindSheets
	cfg.Device.Remote.SheetsURL = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected Validate to require sheets_url for sheets transport")
	}
}
