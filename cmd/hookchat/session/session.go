// Package session turns the persistent hookchat flags and config file into an
// opened conversation store and webhook gateway.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/hookchat/pkg/config"
	"github.com/papercomputeco/hookchat/pkg/conversation"
	"github.com/papercomputeco/hookchat/pkg/logger"
	"github.com/papercomputeco/hookchat/pkg/storage"
	"github.com/papercomputeco/hookchat/pkg/storage/file"
	"github.com/papercomputeco/hookchat/pkg/storage/inmemory"
	"github.com/papercomputeco/hookchat/pkg/storage/sqlite"
	"github.com/papercomputeco/hookchat/pkg/webhook"
)

// Persistent flag names.
const (
	FlagConfig  = "config"
	FlagStorage = "storage"
	FlagDataDir = "data-dir"
	FlagWebhook = "webhook"
	FlagDebug   = "debug"
)

const logFileName = "hookchat.log"

// AddFlags registers the flags shared by every subcommand on cmd.
func AddFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.StringP(FlagConfig, "c", "", "Path to config file (default ~/.hookchat/config.toml)")
	f.String(FlagStorage, "", "Storage backend: file, sqlite or memory")
	f.String(FlagDataDir, "", "Directory holding conversation data")
	f.StringP(FlagWebhook, "w", "", "Webhook URL to send messages to")
	f.Bool(FlagDebug, false, "Enable debug logging")
}

// Session is everything a subcommand needs to work with the conversation.
type Session struct {
	Config     *config.Config
	ConfigPath string
	Logger     *zap.Logger
	Store      *conversation.Store
	Gateway    *webhook.Gateway

	driver    storage.Driver
	logCloser io.Closer
}

// Option configures Open.
type Option func(*openOptions)

type openOptions struct {
	logToFile bool
}

// WithFileLogging sends logs to the configured log file, or to hookchat.log in
// the data directory, instead of stderr.
func WithFileLogging() Option {
	return func(o *openOptions) {
		o.logToFile = true
	}
}

// ResolveConfigPath returns the --config value or the default location.
func ResolveConfigPath(cmd *cobra.Command) (string, error) {
	if path, ok := stringFlag(cmd, FlagConfig); ok && path != "" {
		return path, nil
	}
	return config.DefaultPath()
}

// LoadConfig reads the config file and environment, then applies flags.
func LoadConfig(cmd *cobra.Command) (*config.Config, string, error) {
	path, err := ResolveConfigPath(cmd)
	if err != nil {
		return nil, "", err
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}

	ApplyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// ApplyFlags overrides cfg with every persistent flag set on the command line.
func ApplyFlags(cmd *cobra.Command, cfg *config.Config) {
	if v, ok := stringFlag(cmd, FlagStorage); ok {
		cfg.Storage = v
	}
	if v, ok := stringFlag(cmd, FlagDataDir); ok {
		cfg.DataDir = v
	}
	if v, ok := stringFlag(cmd, FlagWebhook); ok {
		cfg.WebhookURL = v
	}
	if v, ok := stringFlag(cmd, FlagDebug); ok {
		cfg.Debug = v == "true"
	}
}

// WebhookPinned reports whether --webhook was given, in which case config
// reloads must not replace the endpoint.
func WebhookPinned(cmd *cobra.Command) bool {
	_, ok := stringFlag(cmd, FlagWebhook)
	return ok
}

// Open loads configuration, opens storage, loads the conversation and builds
// the gateway. Callers must Close the session.
func Open(ctx context.Context, cmd *cobra.Command, opts ...Option) (*Session, error) {
	var o openOptions
	for _, opt := range opts {
		opt(&o)
	}

	cfg, path, err := LoadConfig(cmd)
	if err != nil {
		return nil, err
	}

	s := &Session{Config: cfg, ConfigPath: path}
	if err := s.openLogger(o.logToFile); err != nil {
		return nil, err
	}

	driver, err := OpenDriver(ctx, cfg)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.driver = driver

	timeout, err := cfg.Timeout()
	if err != nil {
		s.Close()
		return nil, err
	}

	storeOpts := []conversation.Option{
		conversation.WithKey(cfg.StorageKey),
		conversation.WithLogger(s.Logger),
	}
	if cfg.SeedWelcome {
		storeOpts = append(storeOpts, conversation.WithWelcome(cfg.WelcomeText))
	}
	s.Store = conversation.New(driver, storeOpts...)
	s.Store.Load(ctx)

	s.Gateway = webhook.New(webhook.Config{
		Endpoint:             cfg.WebhookURL,
		Kind:                 cfg.Kind,
		Source:               cfg.Source,
		UserAgent:            cfg.ClientID,
		Timeout:              timeout,
		SplitTransportErrors: cfg.SplitTransportErrors,
	}, s.Store, s.Logger)

	s.Logger.Debug("session opened",
		zap.String("config", path),
		zap.String("storage", cfg.Storage),
		zap.String("data_dir", cfg.ResolvedDataDir()),
		zap.String("webhook", cfg.WebhookURL),
		zap.Int("messages", len(s.Store.Messages())),
	)

	return s, nil
}

// OpenDriver opens the storage backend named by cfg.Storage.
func OpenDriver(ctx context.Context, cfg *config.Config) (storage.Driver, error) {
	switch cfg.Storage {
	case config.StorageMemory:
		return inmemory.NewDriver(), nil

	case config.StorageSQLite:
		dbPath := cfg.SQLitePath()
		if err := ensureDir(filepath.Dir(dbPath)); err != nil {
			return nil, err
		}
		driver, err := sqlite.NewDriver(ctx, dbPath)
		if err != nil {
			return nil, fmt.Errorf("could not open database %s: %w", dbPath, err)
		}
		return driver, nil

	case config.StorageFile:
		driver, err := file.NewDriver(cfg.ResolvedDataDir())
		if err != nil {
			return nil, fmt.Errorf("could not open data directory: %w", err)
		}
		return driver, nil
	}

	return nil, fmt.Errorf("unknown storage %q", cfg.Storage)
}

// Close flushes logs and releases storage.
func (s *Session) Close() error {
	var errs []error
	if s.driver != nil {
		if err := s.driver.Close(); err != nil {
			errs = append(errs, fmt.Errorf("could not close storage: %w", err))
		}
	}
	if s.Logger != nil {
		_ = s.Logger.Sync()
	}
	if s.logCloser != nil {
		if err := s.logCloser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("could not close log file: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (s *Session) openLogger(toFile bool) error {
	path := s.Config.LogFile
	if path == "" && toFile {
		path = filepath.Join(s.Config.ResolvedDataDir(), logFileName)
	}

	if path == "" {
		s.Logger = logger.NewLogger(s.Config.Debug)
		return nil
	}

	l, closer, err := logger.NewFileLogger(path, s.Config.Debug)
	if err != nil {
		return err
	}
	s.Logger = l
	s.logCloser = closer
	return nil
}

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("could not create directory %s: %w", dir, err)
	}
	return nil
}

func stringFlag(cmd *cobra.Command, name string) (string, bool) {
	f := cmd.Flags().Lookup(name)
	if f == nil || !f.Changed {
		return "", false
	}
	return f.Value.String(), true
}
