package sync

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/openvault/vaultsync/internal/client/vault"
)

const (
	DefaultQueueCapacity = 1000
	DefaultBatchSize     = 10

	defaultDebounceDelay = 2 * time.Second
	defaultBatchPacing   = 500 * time.Millisecond
)

// QueueConfig tunes the change queue. Zero values fall back to defaults.
type QueueConfig struct {
	Capacity      int
	BatchSize     int
	DebounceDelay time.Duration
	BatchPacing   time.Duration
}

func (c QueueConfig) withDefaults() QueueConfig {
	if c.Capacity <= 0 {
		c.Capacity = DefaultQueueCapacity
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.DebounceDelay <= 0 {
		c.DebounceDelay = defaultDebounceDelay
	}
	if c.BatchPacing <= 0 {
		c.BatchPacing = defaultBatchPacing
	}
	return c
}

// ChangeQueue is a capacity-bounded, deduplicating buffer of pending change
// events with a debounced flush. At most one event per (path, kind) key is
// resident; a newer event replaces the older one and moves to the back.
// On overflow the oldest half of the buffer is evicted.
type ChangeQueue struct {
	vault   *vault.Vault
	deliver Deliverer // nil when no delivery endpoint is configured
	cfg     QueueConfig

	mu     sync.Mutex
	events []*ChangeEvent
	timer  *time.Timer

	// flushMu serializes flush cycles; a timer firing mid-flush is a no-op
	flushMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
}

func NewChangeQueue(v *vault.Vault, deliver Deliverer, cfg QueueConfig) *ChangeQueue {
	return &ChangeQueue{
		vault:   v,
		deliver: deliver,
		cfg:     cfg.withDefaults(),
	}
}

// Start binds the queue to a lifecycle context used by timer-driven flushes.
func (q *ChangeQueue) Start(ctx context.Context) {
	q.ctx, q.cancel = context.WithCancel(ctx)
}

// Stop cancels pending work and drops whatever is still queued.
func (q *ChangeQueue) Stop() {
	if q.cancel != nil {
		q.cancel()
	}

	q.mu.Lock()
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
	dropped := len(q.events)
	q.events = nil
	q.mu.Unlock()

	if dropped > 0 {
		slog.Info("change queue stopped", "dropped", dropped)
	}
}

func (q *ChangeQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Enqueue admits one change event. It annotates the event with current
// document metadata when resolvable, deduplicates by (path, kind), evicts
// on overflow, and resets the debounce timer. It never blocks on I/O other
// than a stat, and never returns an error.
func (q *ChangeQueue) Enqueue(event *ChangeEvent) {
	if event == nil || event.Path == "" {
		return
	}
	if event.ObservedAt.IsZero() {
		event.ObservedAt = time.Now().UTC()
	}

	if event.Kind != KindDelete {
		if doc := q.vault.Stat(event.Path); doc != nil {
			event.Size = doc.Size
			event.ModTime = doc.ModTime
		}
	}

	q.mu.Lock()

	q.coalesceLocked(event)
	q.events = append(q.events, event)

	if len(q.events) > q.cfg.Capacity {
		evict := q.cfg.Capacity / 2
		q.events = append([]*ChangeEvent(nil), q.events[evict:]...)
		slog.Warn("change queue overflow", "evicted", evict, "capacity", q.cfg.Capacity)
	}

	// single-shot debounce: only the timer surviving the last enqueue fires
	if q.timer != nil {
		q.timer.Stop()
	}
	q.timer = time.AfterFunc(q.cfg.DebounceDelay, q.flushTimerFired)

	q.mu.Unlock()
}

func (q *ChangeQueue) flushTimerFired() {
	ctx := q.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	q.ProcessQueue(ctx)
}

// ProcessQueue runs one flush cycle: extract FIFO batches and deliver them
// until the queue is empty, pacing between batches. A cycle already in
// progress makes this call a no-op. Without a configured endpoint the queue
// is dropped rather than buffered forever.
func (q *ChangeQueue) ProcessQueue(ctx context.Context) {
	if !q.flushMu.TryLock() {
		return
	}
	defer q.flushMu.Unlock()

	if q.deliver == nil {
		if n := q.drop(); n > 0 {
			slog.Warn("no delivery endpoint configured, dropping queued changes", "count", n)
		}
		return
	}

	for {
		batch := q.extractBatch()
		if len(batch) == 0 {
			return
		}

		payload := buildPayload(q.vault, batch, false)
		result := q.deliver.Send(ctx, payload)
		if result.Failed() {
			// the failed batch is dropped; remaining batches still go out
			slog.Error("change batch delivery failed", "count", len(batch), "error", result.Errors[0])
		} else {
			slog.Debug("change batch delivered", "count", result.SuccessCount)
		}

		if q.Len() == 0 {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(q.cfg.BatchPacing):
		}
	}
}

// extractBatch removes up to BatchSize events from the front of the queue.
func (q *ChangeQueue) extractBatch() []*ChangeEvent {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := min(len(q.events), q.cfg.BatchSize)
	if n == 0 {
		return nil
	}

	batch := q.events[:n]
	q.events = append([]*ChangeEvent(nil), q.events[n:]...)
	return batch
}

func (q *ChangeQueue) drop() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.events)
	q.events = nil
	return n
}

// coalesceLocked deletes the resident event the incoming one supersedes,
// if any, preserving the order of the remaining events. Same (path, kind)
// always coalesces; create and modify for the same path share one bucket
// with the later kind winning, so a create followed by an edit inside one
// debounce window delivers a single record. Callers must hold mu.
func (q *ChangeQueue) coalesceLocked(incoming *ChangeEvent) {
	for i, ev := range q.events {
		if ev.Path != incoming.Path {
			continue
		}
		if ev.Kind == incoming.Kind || (isUpsert(ev.Kind) && isUpsert(incoming.Kind)) {
			q.events = append(q.events[:i], q.events[i+1:]...)
			return
		}
	}
}

func isUpsert(k ChangeKind) bool {
	return k == KindCreate || k == KindModify
}
