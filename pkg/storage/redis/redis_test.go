package redis

import (
	"context"
	"testing"
	"time"

	"bank-ledger/pkg/storage"
)

func setupTestRedis(t *testing.T) *Store {
	config := DefaultConfig()
	config.Name = "test-redis"
	config.KeyPrefix = "test:ledger:"
	config.DialTimeout = 2 * time.Second

	s, err := New(config)
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	if err := s.Clear(context.Background()); err != nil {
		s.Close()
		t.Skipf("Redis not writable: %v", err)
	}
	return s
}

func TestNew_NoAddress(t *testing.T) {
	config := DefaultConfig()
	config.Addr = ""

	if _, err := New(config); err == nil {
		t.Fatal("expected error without addresses")
	}
}

func TestClusterConfig(t *testing.T) {
	c := ClusterConfig("cluster", []string{"a:6379", "b:6379"}, "secret")
	if c.Addr != "" || c.DB != 0 || len(c.ClusterAddrs) != 2 || c.Password != "secret" {
		t.Errorf("unexpected cluster config: %+v", c)
	}
}

func TestStore_LoadEmpty(t *testing.T) {
	s := setupTestRedis(t)
	defer s.Close()

	if _, err := s.Load(context.Background()); !storage.IsNotFound(err) {
		t.Errorf("Load() error = %v, want ErrNotFound", err)
	}
}

func TestStore_SaveLoad(t *testing.T) {
	s := setupTestRedis(t)
	defer s.Close()
	ctx := context.Background()

	snap := storage.Snapshot{
		Meta:   storage.Meta{Version: storage.CurrentVersion, SnapshotID: "abc"},
		LastID: 3,
	}
	if err := s.Save(ctx, snap); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.LastID != 3 || got.Meta.Storage != "test-redis" {
		t.Errorf("Load() = %+v", got)
	}

	byID, err := s.LoadByID(ctx, "abc")
	if err != nil || byID.LastID != 3 {
		t.Errorf("LoadByID() = %+v, %v", byID, err)
	}
}
