package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"bank-ledger/pkg/logging"
	"bank-ledger/pkg/storage"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// Store appends every snapshot as a row in ledger_snapshots and loads the newest one.
type Store struct {
	db     *sql.DB
	name   string
	keep   int
	prune  func(ctx context.Context, keep int) (int64, error)
	logger *logging.Logger
}

// Config holds PostgreSQL connection configuration.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	// Keep, if positive, prunes all but the newest Keep rows after each save.
	Keep int
}

// DefaultConfig returns default PostgreSQL configuration.
func DefaultConfig() Config {
	return Config{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "postgres",
		Database: "ledger",
		SSLMode:  "disable",
	}
}

// DSN returns the lib/pq connection string for c.
func (c Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// New opens a connection pool and creates the snapshot table if needed.
func New(cfg Config) (*Store, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	s := &Store{db: db, name: "postgres", keep: cfg.Keep, logger: logging.Global().Named("postgres")}
	s.prune = s.Prune
	if err := s.initTables(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init tables: %w", err)
	}

	return s, nil
}

func (s *Store) initTables(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS ledger_snapshots (
			seq BIGSERIAL PRIMARY KEY,
			snapshot_id TEXT NOT NULL,
			version INTEGER NOT NULL,
			last_id INTEGER NOT NULL,
			payload JSONB NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_snapshots_snapshot_id ON ledger_snapshots(snapshot_id)`,
	}

	for _, query := range queries {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return err
		}
	}
	return nil
}

// Save inserts snap as a new row.
func (s *Store) Save(ctx context.Context, snap storage.Snapshot) error {
	snap.Meta.Storage = s.name
	data, err := storage.Encode(snap)
	if err != nil {
		return err
	}

	createdAt := snap.Meta.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := `
		INSERT INTO ledger_snapshots (snapshot_id, version, last_id, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := s.db.ExecContext(ctx, query,
		snap.Meta.SnapshotID, snap.Meta.Version, snap.LastID, string(data), createdAt,
	); err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}

	s.pruneAfterSave(ctx)
	return nil
}

// pruneAfterSave trims old rows once a save has committed. A failed prune
// does not fail the save.
func (s *Store) pruneAfterSave(ctx context.Context) {
	if s.keep <= 0 {
		return
	}
	if _, err := s.prune(ctx, s.keep); err != nil {
		s.logger.Warn("snapshot prune failed", zap.Int("keep", s.keep), zap.Error(err))
	}
}

// Load returns the most recently inserted snapshot.
func (s *Store) Load(ctx context.Context) (storage.Snapshot, error) {
	return s.scan(ctx, `SELECT payload FROM ledger_snapshots ORDER BY seq DESC LIMIT 1`)
}

// LoadByID returns the newest row saved with the given snapshot id.
func (s *Store) LoadByID(ctx context.Context, id string) (storage.Snapshot, error) {
	return s.scan(ctx,
		`SELECT payload FROM ledger_snapshots WHERE snapshot_id = $1 ORDER BY seq DESC LIMIT 1`, id)
}

func (s *Store) scan(ctx context.Context, query string, args ...interface{}) (storage.Snapshot, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Snapshot{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.Snapshot{}, fmt.Errorf("query snapshot: %w", err)
	}
	return storage.Decode(payload)
}

// Prune deletes all but the newest keep rows.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	query := `
		DELETE FROM ledger_snapshots
		WHERE seq NOT IN (SELECT seq FROM ledger_snapshots ORDER BY seq DESC LIMIT $1)
	`
	res, err := s.db.ExecContext(ctx, query, keep)
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) Name() string {
	return s.name
}

func (s *Store) Close() error {
	return s.db.Close()
}
