package chain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bank-ledger/pkg/logging"
	"bank-ledger/pkg/metrics"
	"bank-ledger/pkg/resilience"
	"bank-ledger/pkg/storage"
	"bank-ledger/pkg/writer"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// loadKey is the singleflight key shared by every concurrent Load.
const loadKey = "latest"

// Chain replicates snapshots across several stores.
// Replicas are ordered by preference: Load reads them in order and falls back
// to the next on a miss or failure; Save writes to all of them.
type Chain struct {
	replicas []storage.Store
	writers  []*writer.AsyncWriter
	sf       *singleflight.Group
	metrics  metrics.MetricsCollector
	logger   *logging.Logger
}

// ChainConfig configures a Chain.
type ChainConfig struct {
	// Resilience is applied to every replica. Zero value means resilience.DefaultResilientConfig.
	Resilience *resilience.ResilientConfig

	// Metrics receives chain, store and breaker metrics. Nil means no-op.
	Metrics metrics.MetricsCollector
}

// New creates a chain over replicas with default resilience and no metrics.
// Returns an error if no replicas are provided.
func New(replicas ...storage.Store) (*Chain, error) {
	return NewWithConfig(ChainConfig{}, replicas...)
}

// NewWithConfig creates a chain over replicas.
// Every replica is wrapped with resilience protection.
func NewWithConfig(config ChainConfig, replicas ...storage.Store) (*Chain, error) {
	if len(replicas) == 0 {
		return nil, errors.New("chain: at least one replica required")
	}

	mc := config.Metrics
	if mc == nil {
		mc = metrics.NoOpCollector{}
	}
	rc := resilience.DefaultResilientConfig()
	if config.Resilience != nil {
		rc = *config.Resilience
	}

	wrapped := make([]storage.Store, len(replicas))
	writers := make([]*writer.AsyncWriter, len(replicas))
	for i, replica := range replicas {
		wrapped[i] = resilience.NewResilientStoreWithMetrics(replica, rc, mc)
		writers[i] = writer.NewAsyncWriterWithMetrics(wrapped[i], writer.AsyncWriterConfig{
			QueueSize:   8,
			MaxWaitTime: 10 * time.Millisecond,
		}, mc)
	}

	return &Chain{
		replicas: wrapped,
		writers:  writers,
		sf:       &singleflight.Group{},
		metrics:  mc,
		logger:   logging.Global().Named("chain"),
	}, nil
}

// Load returns the snapshot from the first replica that has one, then
// re-seeds the replicas before it in the background.
// Concurrent loads share one traversal.
func (c *Chain) Load(ctx context.Context) (storage.Snapshot, error) {
	select {
	case <-ctx.Done():
		return storage.Snapshot{}, ctx.Err()
	default:
	}

	result, err, _ := c.sf.Do(loadKey, func() (interface{}, error) {
		return c.loadWithFallback(ctx)
	})
	if err != nil {
		return storage.Snapshot{}, err
	}
	return result.(storage.Snapshot), nil
}

func (c *Chain) loadWithFallback(ctx context.Context) (storage.Snapshot, error) {
	start := time.Now()
	var lastErr error

	for i, replica := range c.replicas {
		select {
		case <-ctx.Done():
			return storage.Snapshot{}, ctx.Err()
		default:
		}

		snap, err := replica.Load(ctx)
		if err != nil {
			if !storage.IsNotFound(err) {
				c.logger.Warn("replica load failed, falling back",
					logging.Store(replica.Name()),
					zap.Int("replica_index", i),
					zap.Error(err),
				)
			}
			lastErr = err
			continue
		}

		c.metrics.RecordChainLoad(true, i, time.Since(start))
		if i > 0 {
			c.reseed(ctx, snap, i)
		}
		return snap, nil
	}

	c.metrics.RecordChainLoad(false, -1, time.Since(start))
	if lastErr != nil {
		return storage.Snapshot{}, lastErr
	}
	return storage.Snapshot{}, storage.ErrNotFound
}

// reseed queues snap for every replica above hitIndex.
func (c *Chain) reseed(ctx context.Context, snap storage.Snapshot, hitIndex int) {
	for i := hitIndex - 1; i >= 0; i-- {
		if err := c.writers[i].Write(ctx, snap); err != nil {
			c.logger.Debug("reseed skipped",
				logging.Store(c.replicas[i].Name()),
				zap.Error(err),
			)
		}
	}
}

// Save writes snap to every replica. Replicas that fail do not stop the others;
// the returned error joins every failure.
func (c *Chain) Save(ctx context.Context, snap storage.Snapshot) error {
	var errs []error

	for _, replica := range c.replicas {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := replica.Save(ctx, snap); err != nil {
			errs = append(errs, storage.WrapError(err, replica.Name(), "save"))
		}
	}

	return errors.Join(errs...)
}

// Flush waits for pending re-seeds to finish.
func (c *Chain) Flush(timeout time.Duration) error {
	for _, w := range c.writers {
		if err := w.Flush(timeout); err != nil {
			return err
		}
	}
	return nil
}

// Close closes all replicas.
// Returns the last error encountered, but attempts to close every replica.
func (c *Chain) Close() error {
	var lastErr error

	for _, w := range c.writers {
		if err := w.Close(); err != nil {
			lastErr = err
		}
	}

	for _, replica := range c.replicas {
		if err := replica.Close(); err != nil {
			lastErr = err
		}
	}

	return lastErr
}

func (c *Chain) Name() string {
	return "chain"
}

// Replicas returns a copy of the wrapped replicas for inspection.
func (c *Chain) Replicas() []storage.Store {
	replicas := make([]storage.Store, len(c.replicas))
	copy(replicas, c.replicas)
	return replicas
}

// Len returns the number of replicas in the chain.
func (c *Chain) Len() int {
	return len(c.replicas)
}

// String returns "chain(2 replicas): memory -> file".
func (c *Chain) String() string {
	names := make([]string, len(c.replicas))
	for i, replica := range c.replicas {
		names[i] = replica.Name()
	}
	return fmt.Sprintf("chain(%d replicas): %s", len(c.replicas), strings.Join(names, " -> "))
}
