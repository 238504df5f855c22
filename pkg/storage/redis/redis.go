package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bank-ledger/pkg/storage"

	"github.com/redis/rueidis"
)

// Store keeps bank snapshots in Redis.
// The latest snapshot lives under "<prefix>latest"; every save is also
// written under "<prefix>snapshot:<id>" so older captures can be fetched by id.
type Store struct {
	client rueidis.Client
	name   string
	config Config
}

type Config struct {
	Name string
	// Addr is the Redis server address for single node mode.
	// For cluster mode, use ClusterAddrs instead.
	Addr string
	// ClusterAddrs is a list of Redis cluster node addresses.
	// If set, cluster mode is enabled automatically.
	ClusterAddrs []string
	Username     string
	Password     string
	// DB is the Redis database number (0-15).
	// Note: In cluster mode, only DB 0 is supported.
	DB           int
	KeyPrefix    string
	DialTimeout  time.Duration
	WriteTimeout time.Duration
	// HistoryTTL bounds how long per-id snapshots are kept. Zero keeps them forever.
	HistoryTTL time.Duration
	// Sentinel configuration for high availability
	SentinelMasterSet string
	SentinelAddrs     []string
	SentinelUsername  string
	SentinelPassword  string
}

func DefaultConfig() Config {
	return Config{
		Name:         "redis",
		Addr:         "localhost:6379",
		KeyPrefix:    "ledger:",
		DialTimeout:  5 * time.Second,
		WriteTimeout: 3 * time.Second,
		HistoryTTL:   7 * 24 * time.Hour,
	}
}

// ClusterConfig returns a configuration for Redis Cluster mode.
func ClusterConfig(name string, clusterAddrs []string, password string) Config {
	config := DefaultConfig()
	config.Name = name
	config.ClusterAddrs = clusterAddrs
	config.Password = password
	config.Addr = ""
	config.DB = 0
	return config
}

func New(config Config) (*Store, error) {
	if config.Name == "" {
		config.Name = "redis"
	}

	var initAddress []string
	if len(config.ClusterAddrs) > 0 {
		initAddress = config.ClusterAddrs
	} else if len(config.SentinelAddrs) > 0 {
		initAddress = config.SentinelAddrs
	} else if config.Addr != "" {
		initAddress = []string{config.Addr}
	} else {
		return nil, fmt.Errorf("redis: no addresses configured (set Addr, ClusterAddrs, or SentinelAddrs)")
	}

	clientOpts := rueidis.ClientOption{
		InitAddress:      initAddress,
		Username:         config.Username,
		Password:         config.Password,
		SelectDB:         config.DB,
		ConnWriteTimeout: config.WriteTimeout,
	}

	if len(config.SentinelAddrs) > 0 {
		clientOpts.Sentinel = rueidis.SentinelOption{
			MasterSet: config.SentinelMasterSet,
			Username:  config.SentinelUsername,
			Password:  config.SentinelPassword,
		}
	}

	client, err := rueidis.NewClient(clientOpts)
	if err != nil {
		return nil, fmt.Errorf("redis: failed to create client: %w", err)
	}

	s := &Store{client: client, name: config.Name, config: config}

	ctx, cancel := context.WithTimeout(context.Background(), config.DialTimeout)
	defer cancel()

	if err := s.Ping(ctx); err != nil {
		client.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) latestKey() string {
	return s.config.KeyPrefix + "latest"
}

func (s *Store) snapshotKey(id string) string {
	return s.config.KeyPrefix + "snapshot:" + id
}

// Save writes snap as the latest snapshot and under its own id.
func (s *Store) Save(ctx context.Context, snap storage.Snapshot) error {
	snap.Meta.Storage = s.name
	data, err := storage.Encode(snap)
	if err != nil {
		return err
	}

	cmds := make([]rueidis.Completed, 0, 2)
	cmds = append(cmds, s.client.B().Set().Key(s.latestKey()).Value(string(data)).Build())
	if snap.Meta.SnapshotID != "" {
		if s.config.HistoryTTL > 0 {
			cmds = append(cmds, s.client.B().Set().Key(s.snapshotKey(snap.Meta.SnapshotID)).
				Value(string(data)).Ex(s.config.HistoryTTL).Build())
		} else {
			cmds = append(cmds, s.client.B().Set().Key(s.snapshotKey(snap.Meta.SnapshotID)).
				Value(string(data)).Build())
		}
	}

	var errs []error
	for _, resp := range s.client.DoMulti(ctx, cmds...) {
		if err := resp.Error(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("redis save: %w", errors.Join(errs...))
	}
	return nil
}

// Load returns the latest snapshot.
func (s *Store) Load(ctx context.Context) (storage.Snapshot, error) {
	return s.get(ctx, s.latestKey())
}

// LoadByID returns a snapshot saved under id, if it has not expired.
func (s *Store) LoadByID(ctx context.Context, id string) (storage.Snapshot, error) {
	return s.get(ctx, s.snapshotKey(id))
}

func (s *Store) get(ctx context.Context, key string) (storage.Snapshot, error) {
	resp := s.client.Do(ctx, s.client.B().Get().Key(key).Build())
	if err := resp.Error(); err != nil {
		if rueidis.IsRedisNil(err) {
			return storage.Snapshot{}, storage.ErrNotFound
		}
		return storage.Snapshot{}, fmt.Errorf("redis get: %w", err)
	}

	data, err := resp.AsBytes()
	if err != nil {
		return storage.Snapshot{}, fmt.Errorf("redis get: failed to read response: %w", err)
	}
	return storage.Decode(data)
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Do(ctx, s.client.B().Ping().Build()).Error(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Clear removes the latest snapshot key.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.client.Do(ctx, s.client.B().Del().Key(s.latestKey()).Build()).Error(); err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	return nil
}

func (s *Store) Name() string {
	return s.name
}

func (s *Store) Close() error {
	s.client.Close()
	return nil
}
