package indexer

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"kbase/internal/storage"
)

// Reaper periodically fails documents stuck in processing. A crashed worker
// or dropped enqueue would otherwise leave a document in processing forever,
// and status would never converge for pollers.
type Reaper struct {
	docs     storage.DocumentStore
	deadline time.Duration
	logger   *slog.Logger
	cron     *cron.Cron
}

// NewReaper creates a reaper that fails documents in processing longer than
// the deadline.
func NewReaper(docs storage.DocumentStore, deadline time.Duration, logger *slog.Logger) *Reaper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reaper{
		docs:     docs,
		deadline: deadline,
		logger:   logger,
		cron:     cron.New(),
	}
}

// Start schedules the sweep. The interval matches the deadline granularity;
// sweeping more often than once a minute buys nothing.
func (r *Reaper) Start() error {
	if _, err := r.cron.AddFunc("@every 1m", func() {
		r.Sweep(context.Background())
	}); err != nil {
		return err
	}
	r.cron.Start()
	return nil
}

// Stop halts scheduling and waits for a running sweep to finish.
func (r *Reaper) Stop() {
	<-r.cron.Stop().Done()
}

// Sweep fails every document that entered processing before the deadline.
func (r *Reaper) Sweep(ctx context.Context) {
	cutoff := time.Now().Add(-r.deadline)

	ids, err := r.docs.ListStuckProcessing(ctx, cutoff)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to list stuck documents", "error", err)
		return
	}

	for _, id := range ids {
		if err := r.docs.MarkFailed(ctx, id, "ingestion timed out"); err != nil {
			r.logger.ErrorContext(ctx, "failed to fail stuck document", "document_id", id, "error", err)
			continue
		}
		r.logger.WarnContext(ctx, "failed stuck document", "document_id", id, "deadline", r.deadline)
	}
}
