package config

import (
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	"github.com/openvault/vaultsync/internal/utils"
)

var (
	home, _           = os.UserHomeDir()
	DefaultConfigPath = filepath.Join(home, ".vaultsync", "config.json")
	DefaultVaultDir   = filepath.Join(home, "Vault")
)

const (
	DefaultDebounceDelayMs = 2000
	DefaultBatchSize       = 10
	DefaultBulkBatchSize   = 10
	DefaultQueueCapacity   = 1000
	DefaultPullIntervalSec = 60
)

var (
	ErrNoVaultDir     = errors.New("config: vault dir missing")
	ErrInvalidServer  = errors.New("config: invalid server url")
	ErrInvalidNumbers = errors.New("config: delays and batch sizes must be positive")
)

// Config is the daemon configuration. The sync core never reads this
// directly; values are passed into constructors.
type Config struct {
	VaultDir        string `json:"vault_dir"`
	ServerURL       string `json:"server_url"`
	SyncEnabled     bool   `json:"sync_enabled"`
	PullEnabled     bool   `json:"pull_enabled"`
	DebounceDelayMs int    `json:"debounce_delay_ms"`
	BatchSize       int    `json:"batch_size"`
	BulkBatchSize   int    `json:"bulk_batch_size"`
	QueueCapacity   int    `json:"queue_capacity"`
	PullIntervalSec int    `json:"pull_interval_sec"`

	Path string `json:"-"`
}

func Default() *Config {
	return &Config{
		VaultDir:        DefaultVaultDir,
		SyncEnabled:     true,
		PullEnabled:     true,
		DebounceDelayMs: DefaultDebounceDelayMs,
		BatchSize:       DefaultBatchSize,
		BulkBatchSize:   DefaultBulkBatchSize,
		QueueCapacity:   DefaultQueueCapacity,
		PullIntervalSec: DefaultPullIntervalSec,
	}
}

func (c *Config) DebounceDelay() time.Duration {
	return time.Duration(c.DebounceDelayMs) * time.Millisecond
}

func (c *Config) PullInterval() time.Duration {
	return time.Duration(c.PullIntervalSec) * time.Second
}

func (c *Config) Validate() error {
	if c.VaultDir == "" {
		return ErrNoVaultDir
	}

	// an empty server url is allowed: the queue drains instead of delivering
	if c.ServerURL != "" {
		u, err := url.Parse(c.ServerURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return ErrInvalidServer
		}
	}

	if c.DebounceDelayMs <= 0 || c.BatchSize <= 0 || c.BulkBatchSize <= 0 || c.QueueCapacity <= 0 || c.PullIntervalSec <= 0 {
		return ErrInvalidNumbers
	}

	return nil
}

func (c *Config) Save(path string) error {
	if err := utils.EnsureParent(path); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}

// Load reads a config file, filling unset numeric fields with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	cfg.Path = path
	applyDefaults(cfg)

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.DebounceDelayMs == 0 {
		cfg.DebounceDelayMs = DefaultDebounceDelayMs
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BulkBatchSize == 0 {
		cfg.BulkBatchSize = DefaultBulkBatchSize
	}
	if cfg.QueueCapacity == 0 {
		cfg.QueueCapacity = DefaultQueueCapacity
	}
	if cfg.PullIntervalSec == 0 {
		cfg.PullIntervalSec = DefaultPullIntervalSec
	}
}
