// Package config loads hookchat settings from defaults, a TOML file and
// HOOKCHAT_* environment variables, in that order of precedence (lowest first).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"

	"github.com/papercomputeco/hookchat/pkg/conversation"
	"github.com/papercomputeco/hookchat/pkg/webhook"
)

// Set at build time with -ldflags "-X github.com/papercomputeco/hookchat/pkg/config.DefaultWebhookURL=...".
var (
	DefaultWebhookURL = "http://localhost:5678/webhook/hookchat"
	Version           = "dev"
)

const (
	StorageFile   = "file"
	StorageSQLite = "sqlite"
	StorageMemory = "memory"

	configDirName  = ".hookchat"
	configFileName = "config.toml"
	sqliteFileName = "hookchat.db"
)

// Config is the full client configuration.
type Config struct {
	// Webhook endpoint and payload tags
	WebhookURL     string `toml:"webhook_url" env:"HOOKCHAT_WEBHOOK_URL"`
	ClientID       string `toml:"client_id" env:"HOOKCHAT_CLIENT_ID"`
	Source         string `toml:"source" env:"HOOKCHAT_SOURCE"`
	Kind           string `toml:"kind" env:"HOOKCHAT_KIND"`
	RequestTimeout string `toml:"request_timeout" env:"HOOKCHAT_REQUEST_TIMEOUT"` // Go duration, empty for none

	// Durable storage
	Storage    string `toml:"storage" env:"HOOKCHAT_STORAGE"` // "file", "sqlite" or "memory"
	DataDir    string `toml:"data_dir" env:"HOOKCHAT_DATA_DIR"`
	StorageKey string `toml:"storage_key" env:"HOOKCHAT_STORAGE_KEY"`

	// Product options
	SeedWelcome          bool   `toml:"seed_welcome" env:"HOOKCHAT_SEED_WELCOME"`
	WelcomeText          string `toml:"welcome_text" env:"HOOKCHAT_WELCOME_TEXT"`
	SplitTransportErrors bool   `toml:"split_transport_errors" env:"HOOKCHAT_SPLIT_TRANSPORT_ERRORS"`

	// Presentation
	Markdown      bool   `toml:"markdown" env:"HOOKCHAT_MARKDOWN"`
	MarkdownStyle string `toml:"markdown_style" env:"HOOKCHAT_MARKDOWN_STYLE"`
	NoColor       bool   `toml:"no_color" env:"HOOKCHAT_NO_COLOR"`

	// Logging
	Debug   bool   `toml:"debug" env:"HOOKCHAT_DEBUG"`
	LogFile string `toml:"log_file" env:"HOOKCHAT_LOG_FILE"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		WebhookURL:    DefaultWebhookURL,
		ClientID:      webhook.DefaultUserAgent(Version),
		Source:        webhook.DefaultSource,
		Kind:          webhook.DefaultKind,
		Storage:       StorageFile,
		DataDir:       filepath.Join("~", configDirName),
		StorageKey:    conversation.DefaultKey,
		WelcomeText:   conversation.DefaultWelcomeText,
		MarkdownStyle: "dark",
	}
}

// DefaultPath returns ~/.hookchat/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, configDirName, configFileName), nil
}

// Load reads the TOML file at path over the defaults and applies environment
// overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("could not parse config %s: %w", path, err)
			}
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("could not parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field values.
func (c *Config) Validate() error {
	switch c.Storage {
	case StorageFile, StorageSQLite, StorageMemory:
	default:
		return fmt.Errorf("unknown storage %q (want %s, %s or %s)", c.Storage, StorageFile, StorageSQLite, StorageMemory)
	}

	if strings.TrimSpace(c.WebhookURL) == "" {
		return errors.New("webhook_url is required")
	}

	if _, err := c.Timeout(); err != nil {
		return err
	}
	return nil
}

// Timeout parses RequestTimeout. Empty means no timeout.
func (c *Config) Timeout() (time.Duration, error) {
	if c.RequestTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.RequestTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid request_timeout %q: %w", c.RequestTimeout, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid request_timeout %q: must not be negative", c.RequestTimeout)
	}
	return d, nil
}

// ResolvedDataDir returns DataDir with a leading ~ expanded.
func (c *Config) ResolvedDataDir() string {
	return expandHome(c.DataDir)
}

// SQLitePath is the database file used by the sqlite storage.
func (c *Config) SQLitePath() string {
	return filepath.Join(c.ResolvedDataDir(), sqliteFileName)
}

// Save writes the configuration as TOML, creating parent directories.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("could not create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("could not encode config: %w", err)
	}
	return nil
}

func expandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if len(path) > 1 && (path[1] == '/' || path[1] == filepath.Separator) {
		return filepath.Join(home, path[2:])
	}
	if len(path) == 1 {
		return home
	}
	return path
}
