package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/openvault/vaultsync/internal/client/vault"
)

const (
	defaultBulkPacing = time.Second
)

var (
	ErrNoDocuments = errors.New("bulk sync: no documents in vault")
	ErrNoEndpoint  = errors.New("bulk sync: no delivery endpoint configured")
)

// SyncProgress is the observable state of a running bulk sync. It is
// terminal once Active is false.
type SyncProgress struct {
	Total        int
	Completed    int
	CurrentLabel string
	Errors       []string
	Active       bool
}

// ProgressFunc receives a progress snapshot after every batch and at
// terminal states.
type ProgressFunc func(p SyncProgress)

// BulkConfig tunes the bulk sync orchestrator.
type BulkConfig struct {
	BatchSize int
	Pacing    time.Duration
}

func (c BulkConfig) withDefaults() BulkConfig {
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.Pacing <= 0 {
		c.Pacing = defaultBulkPacing
	}
	return c
}

// BulkSyncer pushes the entire document set as sequential batches of
// synthetic creates. Batches never run concurrently; cancellation is
// cooperative and checked only at batch boundaries.
type BulkSyncer struct {
	vault   *vault.Vault
	deliver Deliverer
	cfg     BulkConfig
}

func NewBulkSyncer(v *vault.Vault, deliver Deliverer, cfg BulkConfig) *BulkSyncer {
	return &BulkSyncer{
		vault:   v,
		deliver: deliver,
		cfg:     cfg.withDefaults(),
	}
}

// Run delivers every document in docs, batchSize at a time, reporting after
// each batch through onProgress (may be nil). It refuses to start without
// documents or a delivery endpoint. Already-delivered batches are never
// rolled back; a cancelled run is a valid partial outcome, not an error.
func (b *BulkSyncer) Run(ctx context.Context, docs []*vault.Document, onProgress ProgressFunc) (*SyncProgress, error) {
	if len(docs) == 0 {
		return nil, ErrNoDocuments
	}
	if b.deliver == nil {
		return nil, ErrNoEndpoint
	}

	progress := &SyncProgress{
		Total:  len(docs),
		Active: true,
	}
	report := func() {
		if onProgress != nil {
			onProgress(*progress)
		}
	}

	numBatches := (len(docs) + b.cfg.BatchSize - 1) / b.cfg.BatchSize
	slog.Info("bulk sync start", "documents", len(docs), "batches", numBatches, "batchSize", b.cfg.BatchSize)
	tstart := time.Now()

	for i := 0; i < numBatches; i++ {
		// batch boundary: the only cancellation check
		select {
		case <-ctx.Done():
			progress.Active = false
			progress.CurrentLabel = fmt.Sprintf("cancelled after %d of %d documents", progress.Completed, progress.Total)
			report()
			slog.Info("bulk sync cancelled", "completed", progress.Completed, "total", progress.Total)
			return progress, nil
		default:
		}

		if i > 0 {
			time.Sleep(b.cfg.Pacing)
		}

		start := i * b.cfg.BatchSize
		end := min(start+b.cfg.BatchSize, len(docs))
		batch := docs[start:end]

		events := make([]*ChangeEvent, 0, len(batch))
		var batchBytes int64
		for _, doc := range batch {
			// every document is a synthetic create: the remote treats
			// bulk payloads as upserts
			events = append(events, &ChangeEvent{
				Kind:       KindCreate,
				Path:       doc.Path,
				ObservedAt: time.Now().UTC(),
				ModTime:    doc.ModTime,
				Size:       doc.Size,
			})
			batchBytes += doc.Size
		}

		payload := buildPayload(b.vault, events, true)
		result := b.deliver.Send(ctx, payload)

		progress.Completed += result.SuccessCount
		progress.Errors = append(progress.Errors, result.Errors...)
		progress.CurrentLabel = fmt.Sprintf("batch %d/%d: %d documents (%s)", i+1, numBatches, len(batch), humanize.Bytes(uint64(batchBytes)))
		report()

		if result.Failed() {
			slog.Error("bulk sync batch failed", "batch", i+1, "error", result.Errors[0])
		}
	}

	progress.Active = false
	progress.CurrentLabel = fmt.Sprintf("synced %d of %d documents", progress.Completed, progress.Total)
	report()

	slog.Info("bulk sync done", "completed", progress.Completed, "total", progress.Total, "errors", len(progress.Errors), "took", time.Since(tstart))
	return progress, nil
}
