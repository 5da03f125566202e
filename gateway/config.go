package gateway

import (
	"errors"
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the gateway server configuration.
type Config struct {
	// Address to listen on (e.g., ":8080")
	ListenAddr string `toml:"listen_addr"`

	// Downstream backend URLs.
	SkinAgentURL   string `toml:"skin_agent_url"`
	OralAgentURL   string `toml:"oral_agent_url"`
	VisionAgentURL string `toml:"vision_agent_url"`
	ReportAgentURL string `toml:"report_agent_url"`

	// DBPath is the path to the SQLite transcript database.
	// Use ":memory:" for an in-memory database, or empty for in-memory.
	DBPath string `toml:"db_path"`

	// SecurityEnabled toggles the safety pipeline. When false every turn
	// is admitted with category security_disabled; only for environments
	// where validation is delegated elsewhere.
	SecurityEnabled bool `toml:"security_enabled"`

	// Downstream call tuning.
	RequestTimeout time.Duration `toml:"request_timeout"`
	Retries        int           `toml:"retries"`
	RetryBaseDelay time.Duration `toml:"retry_base_delay"`

	// SweepInterval is how often empty rate-limit windows are pruned.
	SweepInterval time.Duration `toml:"sweep_interval"`
}

// DefaultConfig returns the configuration the serve command starts from
// before the config file and flags are applied.
func DefaultConfig() Config {
	return Config{
		ListenAddr:      ":8080",
		SecurityEnabled: true,
		RequestTimeout:  25 * time.Second,
		Retries:         2,
		RetryBaseDelay:  300 * time.Millisecond,
		SweepInterval:   10 * time.Minute,
	}
}

// LoadConfigFile overlays the TOML file at path onto cfg.
func LoadConfigFile(path string, cfg *Config) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("decode config file %s: %w", path, err)
	}
	return nil
}

// Validate checks that every required backend URL is present.
func (c Config) Validate() error {
	if c.SkinAgentURL == "" || c.OralAgentURL == "" || c.VisionAgentURL == "" || c.ReportAgentURL == "" {
		return errors.New("all four agent URLs (skin, oral, vision, report) must be configured")
	}
	if c.ListenAddr == "" {
		return errors.New("listen address must not be empty")
	}
	return nil
}
