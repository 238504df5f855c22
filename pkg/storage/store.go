package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Store persists whole-bank snapshots.
// Save replaces the stored snapshot; Load returns the most recent one.
type Store interface {
	// Save writes the snapshot. A later Load must return an equivalent snapshot.
	Save(ctx context.Context, snap Snapshot) error

	// Load returns the latest snapshot, or ErrNotFound if none was saved.
	Load(ctx context.Context) (Snapshot, error)

	// Name identifies the store in logs and metrics (e.g. "file", "redis").
	Name() string

	// Close releases any resources held by the store.
	Close() error
}

// Storage errors.
var (
	// ErrNotFound is returned by Load when nothing has been saved yet
	ErrNotFound = errors.New("storage: snapshot not found")

	// ErrUnsupportedVersion is returned for snapshots with an unknown schema version
	ErrUnsupportedVersion = errors.New("storage: unsupported snapshot version")

	// ErrUnavailable is returned when a backend cannot be reached
	ErrUnavailable = errors.New("storage: store unavailable")

	// ErrTimeout is returned when a store operation exceeds its deadline
	ErrTimeout = errors.New("storage: operation timeout")

	// ErrCircuitOpen is returned when the circuit breaker rejects a call
	ErrCircuitOpen = errors.New("storage: circuit breaker open")
)

// IsNotFound reports whether err means no snapshot exists.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsTimeout reports whether err is a store timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsCircuitOpen reports whether err came from an open circuit breaker.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, ErrCircuitOpen)
}

// ClassifyError returns a metrics label for a store error.
func ClassifyError(err error) string {
	if err == nil {
		return "none"
	}

	switch {
	case errors.Is(err, ErrCircuitOpen):
		return "circuit_breaker_open"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrUnsupportedVersion):
		return "unsupported_version"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "connection") || strings.Contains(msg, "dial"):
		return "connection"
	case strings.Contains(msg, "marshal") || strings.Contains(msg, "decode"):
		return "serialization"
	default:
		return "other"
	}
}

// WrapError adds the store name and operation to err.
func WrapError(err error, store, operation string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("storage %s %s: %w", store, operation, err)
}
