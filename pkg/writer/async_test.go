package writer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	metricsmemory "bank-ledger/pkg/metrics/memory"
	"bank-ledger/pkg/storage"
	"bank-ledger/pkg/storage/mock"
)

func snapshot(lastID int) storage.Snapshot {
	return storage.Snapshot{
		Meta:   storage.Meta{Version: storage.CurrentVersion},
		LastID: lastID,
	}
}

// recordingStore remembers the LastID of every saved snapshot.
func recordingStore() (*mock.Store, func() []int) {
	var mu sync.Mutex
	var saved []int

	store := &mock.Store{
		SaveFunc: func(ctx context.Context, snap storage.Snapshot) error {
			mu.Lock()
			saved = append(saved, snap.LastID)
			mu.Unlock()
			return nil
		},
	}
	return store, func() []int {
		mu.Lock()
		defer mu.Unlock()
		out := make([]int, len(saved))
		copy(out, saved)
		return out
	}
}

func TestNewAsyncWriter_Defaults(t *testing.T) {
	w := NewAsyncWriter(&mock.Store{}, AsyncWriterConfig{})
	defer w.Close()

	if cap(w.queue) != 64 {
		t.Errorf("Expected default queue size 64, got %d", cap(w.queue))
	}
	if w.config.MaxWaitTime != 10*time.Millisecond {
		t.Errorf("Expected default MaxWaitTime 10ms, got %v", w.config.MaxWaitTime)
	}
	if w.config.SaveTimeout != 10*time.Second {
		t.Errorf("Expected default SaveTimeout 10s, got %v", w.config.SaveTimeout)
	}
}

func TestAsyncWriter_Ordering(t *testing.T) {
	store, saved := recordingStore()
	w := NewAsyncWriter(store, AsyncWriterConfig{QueueSize: 100, MaxWaitTime: time.Second})
	defer w.Close()

	ctx := context.Background()
	for i := 1; i <= 50; i++ {
		if err := w.Write(ctx, snapshot(i)); err != nil {
			t.Fatalf("Write(%d): %v", i, err)
		}
	}

	if err := w.Flush(2 * time.Second); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	got := saved()
	if len(got) != 50 {
		t.Fatalf("saved %d snapshots, want 50", len(got))
	}
	for i, id := range got {
		if id != i+1 {
			t.Fatalf("snapshot %d saved out of order: got LastID %d", i, id)
		}
	}
}

func TestAsyncWriter_Backpressure(t *testing.T) {
	release := make(chan struct{})
	store := &mock.Store{
		NameFunc: func() string { return "slow" },
		SaveFunc: func(ctx context.Context, snap storage.Snapshot) error {
			<-release
			return nil
		},
	}
	collector := metricsmemory.NewMemoryCollector()
	w := NewAsyncWriterWithMetrics(store, AsyncWriterConfig{QueueSize: 1, MaxWaitTime: 5 * time.Millisecond}, collector)

	ctx := context.Background()
	var dropped int
	for i := 0; i < 10; i++ {
		if err := w.Write(ctx, snapshot(i)); errors.Is(err, ErrQueueFull) {
			dropped++
		}
	}

	if dropped == 0 {
		t.Error("expected some snapshots to be dropped")
	}
	if got := w.Stats().DroppedWrites; got != int64(dropped) {
		t.Errorf("DroppedWrites = %d, want %d", got, dropped)
	}
	if sm := collector.GetStoreMetrics("slow"); sm == nil || sm.DroppedWrites != int64(dropped) {
		t.Errorf("dropped metric = %+v, want %d", sm, dropped)
	}

	close(release)
	w.Close()
}

func TestAsyncWriter_FailedSave(t *testing.T) {
	store := &mock.Store{
		SaveFunc: func(ctx context.Context, snap storage.Snapshot) error {
			return errors.New("disk full")
		},
	}
	w := NewAsyncWriter(store, AsyncWriterConfig{})
	defer w.Close()

	if err := w.Write(context.Background(), snapshot(1)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Flush(time.Second); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	stats := w.Stats()
	if stats.TotalWrites != 1 || stats.FailedWrites != 1 {
		t.Errorf("Stats() = %+v", stats)
	}
}

func TestAsyncWriter_FlushTimeout(t *testing.T) {
	release := make(chan struct{})
	store := &mock.Store{
		SaveFunc: func(ctx context.Context, snap storage.Snapshot) error {
			<-release
			return nil
		},
	}
	w := NewAsyncWriter(store, AsyncWriterConfig{})

	if err := w.Write(context.Background(), snapshot(1)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Flush(20 * time.Millisecond); !errors.Is(err, ErrFlushTimeout) {
		t.Errorf("Flush() error = %v, want ErrFlushTimeout", err)
	}

	close(release)
	w.Close()
}

func TestAsyncWriter_CloseDrainsQueue(t *testing.T) {
	store, saved := recordingStore()
	w := NewAsyncWriter(store, AsyncWriterConfig{QueueSize: 10, MaxWaitTime: time.Second})

	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		if err := w.Write(ctx, snapshot(i)); err != nil {
			t.Fatalf("Write(%d): %v", i, err)
		}
	}
	w.Close()

	if got := saved(); len(got) != 5 {
		t.Errorf("saved %d snapshots after Close, want 5", len(got))
	}

	if err := w.Write(ctx, snapshot(6)); !errors.Is(err, ErrWriterClosed) {
		t.Errorf("Write() after Close error = %v, want ErrWriterClosed", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestAsyncWriter_ContextCancellation(t *testing.T) {
	w := NewAsyncWriter(&mock.Store{}, AsyncWriterConfig{})
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := w.Write(ctx, snapshot(1)); !errors.Is(err, context.Canceled) {
		t.Errorf("Write() error = %v, want context.Canceled", err)
	}
}
