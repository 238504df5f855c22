package config

import (
	"fmt"

	"bank-ledger/pkg/chain"
	"bank-ledger/pkg/metrics"
	"bank-ledger/pkg/resilience"
	"bank-ledger/pkg/storage"
	"bank-ledger/pkg/storage/postgres"
	"bank-ledger/pkg/storage/redis"
)

// ResilientConfig converts the resilience section.
func (r ResilienceConfig) ResilientConfig() resilience.ResilientConfig {
	rc := resilience.DefaultResilientConfig()
	if r.Timeout > 0 {
		rc = rc.WithTimeout(r.Timeout)
	}
	if r.OpenTimeout > 0 {
		rc = rc.WithCircuitBreakerTimeout(r.OpenTimeout)
	}
	if r.FailureThreshold > 0 {
		rc.CircuitBreakerConfig.ReadyToTrip = resilience.ConsecutiveFailures(r.FailureThreshold)
	}
	return rc
}

// OpenStore builds the configured snapshot store.
// A single remote backend is wrapped with resilience when enabled; several
// backends become a chain, which applies resilience to each replica itself.
func (c *Config) OpenStore(mc metrics.MetricsCollector) (storage.Store, error) {
	if mc == nil {
		mc = metrics.NoOpCollector{}
	}

	backends := c.Store.Backends()
	stores := make([]storage.Store, 0, len(backends))
	closeAll := func() {
		for _, s := range stores {
			s.Close()
		}
	}

	for _, backend := range backends {
		s, err := c.openBackend(backend)
		if err != nil {
			closeAll()
			return nil, err
		}
		stores = append(stores, s)
	}

	if len(stores) == 1 {
		s := stores[0]
		if c.Resilience.Enabled && isRemote(backends[0]) {
			return resilience.NewResilientStoreWithMetrics(s, c.Resilience.ResilientConfig(), mc), nil
		}
		return s, nil
	}

	rc := c.Resilience.ResilientConfig()
	ch, err := chain.NewWithConfig(chain.ChainConfig{Resilience: &rc, Metrics: mc}, stores...)
	if err != nil {
		closeAll()
		return nil, err
	}
	return ch, nil
}

func (c *Config) openBackend(backend string) (storage.Store, error) {
	switch backend {
	case BackendFile:
		return storage.NewFileStore(c.Store.Path), nil
	case BackendMemory:
		return storage.NewMemoryStore(BackendMemory), nil
	case BackendRedis:
		rc := redis.DefaultConfig()
		rc.Addr = c.Store.Redis.Addr
		rc.ClusterAddrs = c.Store.Redis.ClusterAddrs
		rc.Username = c.Store.Redis.Username
		rc.Password = c.Store.Redis.Password
		rc.DB = c.Store.Redis.DB
		rc.KeyPrefix = c.Store.Redis.KeyPrefix
		rc.HistoryTTL = c.Store.Redis.HistoryTTL
		if len(rc.ClusterAddrs) > 0 {
			rc.Addr = ""
		}
		s, err := redis.New(rc)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendPostgres:
		s, err := postgres.New(postgres.Config{
			Host:     c.Store.Postgres.Host,
			Port:     c.Store.Postgres.Port,
			User:     c.Store.Postgres.User,
			Password: c.Store.Postgres.Password,
			Database: c.Store.Postgres.Database,
			SSLMode:  c.Store.Postgres.SSLMode,
			Keep:     c.Store.Postgres.Keep,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: unknown store backend %q", ErrInvalidConfig, backend)
	}
}

func isRemote(backend string) bool {
	return backend == BackendRedis || backend == BackendPostgres
}
