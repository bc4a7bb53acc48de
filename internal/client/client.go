// Package client wires the vault, the sync pipeline and the server SDK
// into a runnable daemon.
package client

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openvault/vaultsync/internal/client/config"
	"github.com/openvault/vaultsync/internal/client/sync"
	"github.com/openvault/vaultsync/internal/client/vault"
	"github.com/openvault/vaultsync/internal/vaultsdk"
)

type Client struct {
	config *config.Config
	vault  *vault.Vault
	sdk    *vaultsdk.VaultSDK
	sync   *sync.SyncManager
}

func New(cfg *config.Config) (*Client, error) {
	v, err := vault.New(cfg.VaultDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open vault: %w", err)
	}

	// no server url is a valid configuration: the queue drains instead
	// of delivering until one is set
	var sdk *vaultsdk.VaultSDK
	if cfg.ServerURL != "" {
		sdk, err = vaultsdk.New(cfg.ServerURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create sdk: %w", err)
		}
	}

	syncMgr := sync.NewManager(v, sdk, sync.Config{
		QueueCapacity: cfg.QueueCapacity,
		BatchSize:     cfg.BatchSize,
		BulkBatchSize: cfg.BulkBatchSize,
		DebounceDelay: cfg.DebounceDelay(),
		PullEnabled:   cfg.PullEnabled,
		PullInterval:  cfg.PullInterval(),
	})

	return &Client{
		config: cfg,
		vault:  v,
		sdk:    sdk,
		sync:   syncMgr,
	}, nil
}

// Start runs the daemon until the context is cancelled.
func (c *Client) Start(ctx context.Context) error {
	slog.Info("vaultsync client start", "vault", c.config.VaultDir, "server", c.config.ServerURL)

	if err := c.vault.Bootstrap(); err != nil {
		return fmt.Errorf("failed to bootstrap vault: %w", err)
	}
	defer c.vault.Close()

	if !c.config.SyncEnabled {
		slog.Info("sync disabled, idling")
		<-ctx.Done()
		return nil
	}

	if err := c.sync.Start(ctx); err != nil {
		return fmt.Errorf("failed to start sync manager: %w", err)
	}

	<-ctx.Done()
	slog.Info("shutting down")

	c.sync.Stop()
	if c.sdk != nil {
		c.sdk.Close()
	}
	slog.Info("vaultsync client stop")
	return nil
}

// RunBulkSync performs a one-shot full-vault push.
func (c *Client) RunBulkSync(ctx context.Context, onProgress sync.ProgressFunc) (*sync.SyncProgress, error) {
	if err := c.vault.Bootstrap(); err != nil {
		return nil, fmt.Errorf("failed to bootstrap vault: %w", err)
	}
	defer c.vault.Close()

	return c.sync.RunBulkSync(ctx, onProgress)
}
