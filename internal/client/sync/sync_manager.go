package sync

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/openvault/vaultsync/internal/client/vault"
	"github.com/openvault/vaultsync/internal/vaultsdk"
)

// Config carries the externally supplied sync tuning. The core holds no
// ambient settings; everything arrives through constructors.
type Config struct {
	QueueCapacity int
	BatchSize     int
	BulkBatchSize int
	DebounceDelay time.Duration
	PullEnabled   bool
	PullInterval  time.Duration
}

// SyncManager owns the outbound change pipeline (watcher -> queue ->
// delivery) and the inbound pull loop.
type SyncManager struct {
	vault   *vault.Vault
	sdk     *vaultsdk.VaultSDK // nil when no server is configured
	ignore  *IgnoreList
	watcher *FileWatcher
	queue   *ChangeQueue
	bulk    *BulkSyncer
	cfg     Config

	wg sync.WaitGroup
}

func NewManager(v *vault.Vault, sdk *vaultsdk.VaultSDK, cfg Config) *SyncManager {
	ignore := NewIgnoreList(v.Root)
	watcher := NewFileWatcher(v, ignore)

	var deliver Deliverer
	if sdk != nil {
		deliver = sdk.Changes
	}

	queue := NewChangeQueue(v, deliver, QueueConfig{
		Capacity:      cfg.QueueCapacity,
		BatchSize:     cfg.BatchSize,
		DebounceDelay: cfg.DebounceDelay,
	})
	bulk := NewBulkSyncer(v, deliver, BulkConfig{
		BatchSize: cfg.BulkBatchSize,
	})

	return &SyncManager{
		vault:   v,
		sdk:     sdk,
		ignore:  ignore,
		watcher: watcher,
		queue:   queue,
		bulk:    bulk,
		cfg:     cfg,
	}
}

func (m *SyncManager) Start(ctx context.Context) error {
	m.ignore.Load()
	m.queue.Start(ctx)

	if err := m.watcher.Start(); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.handleWatcherEvents(ctx)
	}()

	if m.cfg.PullEnabled && m.sdk != nil {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.pullLoop(ctx)
		}()
	}

	return nil
}

func (m *SyncManager) Stop() {
	m.watcher.Stop()
	m.queue.Stop()
	m.wg.Wait()
}

// RunBulkSync enumerates the vault and pushes every document. Progress is
// streamed through onProgress; the returned value is the terminal snapshot.
func (m *SyncManager) RunBulkSync(ctx context.Context, onProgress ProgressFunc) (*SyncProgress, error) {
	docs, err := m.vault.List(ctx.Done())
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate vault: %w", err)
	}
	return m.bulk.Run(ctx, docs, onProgress)
}

func (m *SyncManager) handleWatcherEvents(ctx context.Context) {
	watcherEvents := m.watcher.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcherEvents:
			if !ok {
				return
			}
			m.queue.Enqueue(event)
		}
	}
}

func (m *SyncManager) pullLoop(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.PullInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.pullOnce(ctx); err != nil {
				slog.Error("pull failed", "error", err)
			}
		}
	}
}

// pullOnce fetches the remote document set and writes it into the vault.
// Every write registers with the watcher's ignore-once list so it does not
// echo back through the change queue.
func (m *SyncManager) pullOnce(ctx context.Context) error {
	resp, err := m.sdk.Documents.GetAll(ctx)
	if err != nil {
		return err
	}

	written := 0
	for _, doc := range resp.Documents {
		relPath := doc.Path
		if relPath == "" {
			relPath = doc.Filename
		}
		if relPath == "" || !vault.IsDocument(relPath) {
			continue
		}
		if m.ignore.ShouldIgnore(relPath) {
			continue
		}

		m.watcher.IgnoreOnce(relPath)
		if err := m.vault.Write(relPath, []byte(doc.Content)); err != nil {
			slog.Error("pull write failed", "path", relPath, "error", err)
			continue
		}
		written++
	}

	if written > 0 {
		slog.Info("pull done", "documents", written)
	}
	return nil
}
