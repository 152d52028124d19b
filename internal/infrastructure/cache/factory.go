package cache

import (
	"fmt"

	"github.com/sneakerflash/backend/internal/domain/shared"
	"github.com/sneakerflash/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Batch lock backends
const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// BatchLockFactory creates batch locks based on configuration
type BatchLockFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// BatchLockFactoryOption is a functional option for configuring the factory
type BatchLockFactoryOption func(*BatchLockFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) BatchLockFactoryOption {
	return func(f *BatchLockFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to an in-memory lock when Redis is unavailable.
// Default is true.
func WithInMemoryFallback(allow bool) BatchLockFactoryOption {
	return func(f *BatchLockFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewBatchLockFactory creates a new factory
func NewBatchLockFactory(cfg config.RedisConfig, opts ...BatchLockFactoryOption) *BatchLockFactory {
	f := &BatchLockFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateLock creates a batch lock for the named backend.
// A redis backend that cannot be reached falls back to memory when allowed.
func (f *BatchLockFactory) CreateLock(backend string) (shared.BatchLock, error) {
	switch backend {
	case BackendMemory:
		f.logger.Info("Using in-memory batch lock")
		return NewInMemoryBatchLock(), nil
	case BackendRedis:
	default:
		return nil, fmt.Errorf("unknown batch lock backend %q", backend)
	}

	lock, err := NewRedisBatchLock(f.redisConfig)
	if err == nil {
		f.logger.Info("Using Redis batch lock", zap.String("addr", f.redisConfig.Addr()))
		return lock, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for batch lock but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory batch lock. "+
		"Overlapping batches started by other workers will not be detected.",
		zap.Error(err),
	)
	return NewInMemoryBatchLock(), nil
}
