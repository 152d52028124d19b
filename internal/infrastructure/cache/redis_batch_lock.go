package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sneakerflash/backend/internal/domain/shared"
	"github.com/sneakerflash/backend/internal/infrastructure/config"
)

const defaultBatchLockPrefix = "inventory:lock:"

// releaseScript deletes the key only while it still holds the caller's token,
// so an expired lock that another instance re-acquired is left alone
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisBatchLock implements shared.BatchLock using Redis.
// It is suitable for deployments where several workers may start the same batch.
type RedisBatchLock struct {
	client    *redis.Client
	keyPrefix string

	mu     sync.Mutex
	tokens map[string]string
}

// NewRedisBatchLock creates a Redis-backed batch lock and verifies the connection
func NewRedisBatchLock(cfg config.RedisConfig) (*RedisBatchLock, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisBatchLockWithClient(client, ""), nil
}

// NewRedisBatchLockWithClient creates a lock with an existing Redis client
func NewRedisBatchLockWithClient(client *redis.Client, keyPrefix string) *RedisBatchLock {
	if keyPrefix == "" {
		keyPrefix = defaultBatchLockPrefix
	}
	return &RedisBatchLock{
		client:    client,
		keyPrefix: keyPrefix,
		tokens:    make(map[string]string),
	}
}

// Acquire takes the lock with SET NX and a TTL.
// Returns false when another holder owns the key.
func (l *RedisBatchLock) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, l.keyPrefix+key, token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire batch lock: %w", err)
	}
	if !ok {
		return false, nil
	}

	l.mu.Lock()
	l.tokens[key] = token
	l.mu.Unlock()
	return true, nil
}

// Release deletes the lock if this instance still holds it
func (l *RedisBatchLock) Release(ctx context.Context, key string) error {
	l.mu.Lock()
	token, ok := l.tokens[key]
	delete(l.tokens, key)
	l.mu.Unlock()

	if !ok {
		return nil
	}

	if err := releaseScript.Run(ctx, l.client, []string{l.keyPrefix + key}, token).Err(); err != nil {
		return fmt.Errorf("failed to release batch lock: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (l *RedisBatchLock) Close() error {
	return l.client.Close()
}

// GetClient returns the underlying Redis client (for testing/monitoring)
func (l *RedisBatchLock) GetClient() *redis.Client {
	return l.client
}

// Ensure RedisBatchLock implements BatchLock
var _ shared.BatchLock = (*RedisBatchLock)(nil)
