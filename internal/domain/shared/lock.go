package shared

import (
	"context"
	"time"
)

// BatchLock guards a unit of work against concurrent execution across instances
type BatchLock interface {
	// Acquire takes the lock for key. It returns false when another holder owns it.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release gives up a lock previously taken by this holder
	Release(ctx context.Context, key string) error

	// Close closes the lock backend and releases resources
	Close() error
}

// BatchLockConfig holds configuration for batch locking
type BatchLockConfig struct {
	// TTL bounds how long a crashed holder can block other batches
	TTL time.Duration

	// Enabled determines whether batch locking is enabled
	Enabled bool
}

// DefaultBatchLockConfig returns the default batch lock configuration
func DefaultBatchLockConfig() BatchLockConfig {
	return BatchLockConfig{
		TTL:     30 * time.Minute,
		Enabled: true,
	}
}
