package sync

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/openvault/vaultsync/internal/client/vault"
	"github.com/openvault/vaultsync/internal/vaultsdk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDeliverer records payloads and optionally fails every batch.
type fakeDeliverer struct {
	mu       sync.Mutex
	payloads []*vaultsdk.ChangePayload
	failAll  bool
}

func (f *fakeDeliverer) Send(_ context.Context, payload *vaultsdk.ChangePayload) *vaultsdk.DeliveryResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, payload)

	if f.failAll {
		errs := make([]string, 0, len(payload.Changes))
		for _, c := range payload.Changes {
			errs = append(errs, fmt.Sprintf("%s: HTTP 500", c.FilePath))
		}
		return &vaultsdk.DeliveryResult{Errors: errs}
	}
	return &vaultsdk.DeliveryResult{SuccessCount: len(payload.Changes)}
}

func (f *fakeDeliverer) delivered() []*vaultsdk.ChangePayload {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*vaultsdk.ChangePayload(nil), f.payloads...)
}

func newTestVault(t *testing.T) *vault.Vault {
	t.Helper()
	v, err := vault.New(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, v.Bootstrap())
	t.Cleanup(func() { v.Close() })
	return v
}

func newTestQueue(t *testing.T, deliver Deliverer, cfg QueueConfig) (*ChangeQueue, *vault.Vault) {
	t.Helper()
	v := newTestVault(t)
	q := NewChangeQueue(v, deliver, cfg)
	q.Start(context.Background())
	t.Cleanup(q.Stop)
	return q, v
}

func TestChangeQueue_DedupeByPathAndKind(t *testing.T) {
	q, _ := newTestQueue(t, &fakeDeliverer{}, QueueConfig{DebounceDelay: time.Hour})

	q.Enqueue(&ChangeEvent{Kind: KindModify, Path: "a.md"})
	q.Enqueue(&ChangeEvent{Kind: KindModify, Path: "b.md"})
	q.Enqueue(&ChangeEvent{Kind: KindModify, Path: "a.md"})

	require.Equal(t, 2, q.Len())

	// a.md moved to the back of the queue
	assert.Equal(t, "b.md", q.events[0].Path)
	assert.Equal(t, "a.md", q.events[1].Path)
}

func TestChangeQueue_DistinctKindsCoexist(t *testing.T) {
	q, _ := newTestQueue(t, &fakeDeliverer{}, QueueConfig{DebounceDelay: time.Hour})

	q.Enqueue(&ChangeEvent{Kind: KindDelete, Path: "a.md"})
	q.Enqueue(&ChangeEvent{Kind: KindRename, Path: "a.md", OldPath: "old.md"})

	assert.Equal(t, 2, q.Len())
}

func TestChangeQueue_CreateThenModifyCoalesces(t *testing.T) {
	q, _ := newTestQueue(t, &fakeDeliverer{}, QueueConfig{DebounceDelay: time.Hour})

	q.Enqueue(&ChangeEvent{Kind: KindCreate, Path: "a.md"})
	q.Enqueue(&ChangeEvent{Kind: KindModify, Path: "a.md"})

	require.Equal(t, 1, q.Len())
	assert.Equal(t, KindModify, q.events[0].Kind)
}

func TestChangeQueue_OverflowEvictsOldestHalf(t *testing.T) {
	q, _ := newTestQueue(t, &fakeDeliverer{}, QueueConfig{Capacity: 10, DebounceDelay: time.Hour})

	for i := 0; i < 11; i++ {
		q.Enqueue(&ChangeEvent{Kind: KindModify, Path: fmt.Sprintf("doc-%02d.md", i)})
	}

	// 11 > 10 triggers eviction of the oldest 5
	require.Equal(t, 6, q.Len())
	assert.Equal(t, "doc-05.md", q.events[0].Path)
	assert.Equal(t, "doc-10.md", q.events[5].Path)
}

func TestChangeQueue_EnqueueAnnotatesMetadata(t *testing.T) {
	q, v := newTestQueue(t, &fakeDeliverer{}, QueueConfig{DebounceDelay: time.Hour})
	require.NoError(t, v.Write("a.md", []byte("hello")))

	q.Enqueue(&ChangeEvent{Kind: KindModify, Path: "a.md"})

	require.Equal(t, 1, q.Len())
	assert.Equal(t, int64(5), q.events[0].Size)
	assert.False(t, q.events[0].ModTime.IsZero())
	assert.False(t, q.events[0].ObservedAt.IsZero())
}

func TestChangeQueue_DebouncedSingleFlush(t *testing.T) {
	deliver := &fakeDeliverer{}
	q, v := newTestQueue(t, deliver, QueueConfig{DebounceDelay: 50 * time.Millisecond, BatchSize: 100})

	for i := 0; i < 10; i++ {
		path := fmt.Sprintf("doc-%d.md", i)
		require.NoError(t, v.Write(path, []byte("x")))
		q.Enqueue(&ChangeEvent{Kind: KindModify, Path: path})
	}

	require.Eventually(t, func() bool {
		return len(deliver.delivered()) > 0
	}, 2*time.Second, 10*time.Millisecond)

	// quiescence: a burst of 10 enqueues yields exactly one flush cycle
	time.Sleep(200 * time.Millisecond)
	payloads := deliver.delivered()
	require.Len(t, payloads, 1)
	assert.Len(t, payloads[0].Changes, 10)
	assert.False(t, payloads[0].IsInitialSync)
	assert.Equal(t, 0, q.Len())
}

func TestChangeQueue_NoEndpointDropsQueue(t *testing.T) {
	q, _ := newTestQueue(t, nil, QueueConfig{DebounceDelay: time.Hour})

	q.Enqueue(&ChangeEvent{Kind: KindModify, Path: "a.md"})
	q.Enqueue(&ChangeEvent{Kind: KindModify, Path: "b.md"})
	require.Equal(t, 2, q.Len())

	q.ProcessQueue(context.Background())
	assert.Equal(t, 0, q.Len())
}

func TestChangeQueue_FlushBatchesFIFO(t *testing.T) {
	deliver := &fakeDeliverer{}
	q, _ := newTestQueue(t, deliver, QueueConfig{
		DebounceDelay: time.Hour,
		BatchSize:     2,
		BatchPacing:   time.Millisecond,
	})

	for i := 0; i < 5; i++ {
		q.Enqueue(&ChangeEvent{Kind: KindDelete, Path: fmt.Sprintf("doc-%d.md", i)})
	}

	q.ProcessQueue(context.Background())

	payloads := deliver.delivered()
	require.Len(t, payloads, 3)
	assert.Len(t, payloads[0].Changes, 2)
	assert.Len(t, payloads[1].Changes, 2)
	assert.Len(t, payloads[2].Changes, 1)
	assert.Equal(t, "doc-0.md", payloads[0].Changes[0].FilePath)
	assert.Equal(t, "doc-4.md", payloads[2].Changes[0].FilePath)
}

func TestChangeQueue_FailedBatchDoesNotStopFlush(t *testing.T) {
	deliver := &fakeDeliverer{failAll: true}
	q, _ := newTestQueue(t, deliver, QueueConfig{
		DebounceDelay: time.Hour,
		BatchSize:     2,
		BatchPacing:   time.Millisecond,
	})

	for i := 0; i < 5; i++ {
		q.Enqueue(&ChangeEvent{Kind: KindDelete, Path: fmt.Sprintf("doc-%d.md", i)})
	}

	q.ProcessQueue(context.Background())

	// every batch was still attempted, and nothing is retried
	assert.Len(t, deliver.delivered(), 3)
	assert.Equal(t, 0, q.Len())
}

func TestChangeQueue_HydrationFailureDegradesItem(t *testing.T) {
	deliver := &fakeDeliverer{}
	q, v := newTestQueue(t, deliver, QueueConfig{DebounceDelay: time.Hour, BatchSize: 10})

	require.NoError(t, v.Write("ok.md", []byte("fine")))
	q.Enqueue(&ChangeEvent{Kind: KindModify, Path: "ok.md"})
	q.Enqueue(&ChangeEvent{Kind: KindModify, Path: "missing.md"})

	q.ProcessQueue(context.Background())

	payloads := deliver.delivered()
	require.Len(t, payloads, 1)
	require.Len(t, payloads[0].Changes, 2)

	ok := payloads[0].Changes[0]
	require.NotNil(t, ok.Content)
	assert.Equal(t, "fine", *ok.Content)
	assert.Empty(t, ok.Error)

	degraded := payloads[0].Changes[1]
	assert.Nil(t, degraded.Content)
	assert.NotEmpty(t, degraded.Error)
}

func TestChangeQueue_EndToEndCreateModifyWithinWindow(t *testing.T) {
	deliver := &fakeDeliverer{}
	q, v := newTestQueue(t, deliver, QueueConfig{DebounceDelay: 50 * time.Millisecond})

	require.NoError(t, v.Write("a.md", []byte("# a")))
	q.Enqueue(&ChangeEvent{Kind: KindCreate, Path: "a.md"})
	q.Enqueue(&ChangeEvent{Kind: KindModify, Path: "a.md"})

	require.Eventually(t, func() bool {
		return len(deliver.delivered()) > 0
	}, 2*time.Second, 10*time.Millisecond)

	payloads := deliver.delivered()
	require.Len(t, payloads, 1)
	require.Len(t, payloads[0].Changes, 1)
	change := payloads[0].Changes[0]
	assert.Equal(t, vaultsdk.ChangeTypeModify, change.Type)
	assert.Equal(t, "a.md", change.FilePath)
	require.NotNil(t, change.Content)
	assert.Equal(t, "# a", *change.Content)
}

func TestChangeQueue_StopClearsQueue(t *testing.T) {
	q, _ := newTestQueue(t, &fakeDeliverer{}, QueueConfig{DebounceDelay: time.Hour})

	q.Enqueue(&ChangeEvent{Kind: KindModify, Path: "a.md"})
	q.Stop()
	assert.Equal(t, 0, q.Len())
}
