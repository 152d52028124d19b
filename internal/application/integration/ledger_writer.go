package integration

import (
	"context"
	"sync"

	"github.com/sneakerflash/backend/internal/domain/integration"
	"go.uber.org/zap"
)

// ledgerWriter buffers ledger entries of one session and appends them in chunks.
// It is safe for concurrent use.
type ledgerWriter struct {
	mu      sync.Mutex
	repo    integration.SyncLedgerRepository
	chunk   int
	pending []*integration.SyncLedgerEntry
	written int
	failed  int
	logger  *zap.Logger
}

func newLedgerWriter(repo integration.SyncLedgerRepository, chunk int, logger *zap.Logger) *ledgerWriter {
	return &ledgerWriter{
		repo:   repo,
		chunk:  max(chunk, 1),
		logger: logger,
	}
}

// Add queues an entry and writes the buffer once a chunk is full
func (w *ledgerWriter) Add(ctx context.Context, entry *integration.SyncLedgerEntry) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending = append(w.pending, entry)
	if len(w.pending) >= w.chunk {
		_ = w.flushLocked(ctx)
	}
}

// Flush writes every buffered entry
func (w *ledgerWriter) Flush(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flushLocked(ctx)
}

func (w *ledgerWriter) flushLocked(ctx context.Context) error {
	if len(w.pending) == 0 {
		return nil
	}
	entries := w.pending
	w.pending = nil

	// Entries of a cancelled batch are still written.
	if err := w.repo.Append(context.WithoutCancel(ctx), entries...); err != nil {
		w.failed += len(entries)
		w.logger.Error("Failed to write sync ledger entries",
			zap.Int("count", len(entries)),
			zap.Error(err),
		)
		return err
	}
	w.written += len(entries)
	return nil
}
