package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Addr          string           `yaml:"addr"`
	JWTSecret     string           `yaml:"jwt_secret"`
	APITimeout    time.Duration    `yaml:"timeout"`
	DatabasePath  string           `yaml:"database_path"`
	TokenDuration time.Duration    `yaml:"token_duration"`
	DefaultShift  string           `yaml:"default_shift"`
	SeedUsers     []SeedTechnician `yaml:"seed_technicians"`
	Device        DeviceConfig     `yaml:"device"`
}

// SeedTechnician is hashed and upserted at server boot. Plaintext passwords
// only ever live in the operator's config file.
type SeedTechnician struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Role     string `yaml:"role"`
	Password string `yaml:"password"`
}

// DeviceConfig drives the sync agent: where the local store lives, which
// remote transport to talk to, and how often to reconcile.
type DeviceConfig struct {
	StorePath    string        `yaml:"store_path"`
	SyncInterval time.Duration `yaml:"sync_interval"`
	Remote       RemoteConfig  `yaml:"remote"`
}

type RemoteConfig struct {
	Kind      string        `yaml:"kind"` // "rest" or "sheets"
	BaseURL   string        `yaml:"base_url"`
	SheetsURL string        `yaml:"sheets_url"`
	Timeout   time.Duration `yaml:"timeout"`
}

const (
	RemoteKindREST   = "rest"
	RemoteKindSheets = "sheets"
)

func LoadConfig(path string) (*Config, error) {
	apiTimeout := 15 * time.Second
	tokenDuration := 12 * time.Hour

	cfg := &Config{
		Addr:          getEnv("SHIFTLOG_ADDR", ":4000"),
		JWTSecret:     getEnv("SHIFTLOG_JWT_SECRET", "supersecretkey"),
		APITimeout:    apiTimeout,
		DatabasePath:  getEnv("SHIFTLOG_DATABASE_PATH", "shiftlog.db"),
		TokenDuration: tokenDuration,
		DefaultShift:  getEnv("SHIFTLOG_DEFAULT_SHIFT", "Matutino"),
		Device: DeviceConfig{
			StorePath:    getEnv("SHIFTLOG_STORE_PATH", "shiftlog-device.db"),
			SyncInterval: 5 * time.Minute,
			Remote: RemoteConfig{
				Kind:    getEnv("SHIFTLOG_REMOTE_KIND", RemoteKindREST),
				BaseURL: getEnv("SHIFTLOG_API_BASE_URL", "http://localhost:4000/api"),
				Timeout: 30 * time.Second,
			},
		},
	}
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		if err := dec.Decode(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Validate rejects configurations that would misbehave at runtime. The
// default JWT secret is only tolerated when SHIFTLOG_ENV is development.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr must not be empty")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("jwt_secret must not be empty")
	}
	if c.JWTSecret == "supersecretkey" && os.Getenv("SHIFTLOG_ENV") != "development" {
		return fmt.Errorf("jwt_secret is the insecure default; set SHIFTLOG_JWT_SECRET")
	}
	if c.TokenDuration <= 0 {
		return fmt.Errorf("token_duration must be positive")
	}
	switch c.Device.Remote.Kind {
	case RemoteKindREST, RemoteKindSheets:
	default:
		return fmt.Errorf("device.remote.kind must be %q or %q, got %q", RemoteKindREST, RemoteKindSheets, c.Device.Remote.Kind)
	}
	if c.Device.Remote.Kind == RemoteKindSheets && c.Device.Remote.SheetsURL == "" {
		return fmt.Errorf("device.remote.sheets_url is required for the sheets transport")
	}
	if c.Device.SyncInterval <= 0 {
		return fmt.Errorf("device.sync_interval must be positive")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return def
}
