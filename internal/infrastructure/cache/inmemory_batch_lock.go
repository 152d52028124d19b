package cache

import (
	"context"
	"sync"
	"time"

	"github.com/sneakerflash/backend/internal/domain/shared"
)

// lockEntry is a held lock with its expiration
type lockEntry struct {
	expiresAt time.Time
}

// InMemoryBatchLock implements BatchLock using an in-memory map.
// It only guards batches within one process.
type InMemoryBatchLock struct {
	mu        sync.Mutex
	entries   map[string]lockEntry
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryBatchLock creates a new in-memory batch lock.
// It starts a background goroutine that drops expired locks.
func NewInMemoryBatchLock() *InMemoryBatchLock {
	l := &InMemoryBatchLock{
		entries:  make(map[string]lockEntry),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}

	l.wg.Add(1)
	go l.cleanupLoop()

	return l
}

// Acquire takes the lock for key unless an unexpired holder exists
func (l *InMemoryBatchLock) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if e, exists := l.entries[key]; exists && now.Before(e.expiresAt) {
		return false, nil
	}

	l.entries[key] = lockEntry{expiresAt: now.Add(ttl)}
	return true, nil
}

// Release drops the lock for key
func (l *InMemoryBatchLock) Release(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, key)
	return nil
}

// Close stops the cleanup goroutine and releases resources.
// Safe to call multiple times.
func (l *InMemoryBatchLock) Close() error {
	l.closeOnce.Do(func() {
		close(l.stopChan)
		l.wg.Wait()
	})
	return nil
}

// cleanupLoop periodically removes expired locks
func (l *InMemoryBatchLock) cleanupLoop() {
	defer l.wg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopChan:
			return
		case <-ticker.C:
			l.cleanup()
		}
	}
}

// cleanup removes expired locks
func (l *InMemoryBatchLock) cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, e := range l.entries {
		if !now.Before(e.expiresAt) {
			delete(l.entries, key)
		}
	}
}

// Size returns the number of held locks (for testing/monitoring)
func (l *InMemoryBatchLock) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Ensure InMemoryBatchLock implements BatchLock
var _ shared.BatchLock = (*InMemoryBatchLock)(nil)
