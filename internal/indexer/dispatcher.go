package indexer

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_ingestor.go -package=mocks kbase/internal/indexer Ingestor

import (
	"context"
	"log/slog"
	"sync"
)

// Ingestor processes one document end to end.
type Ingestor interface {
	Ingest(ctx context.Context, documentID string) error
}

// Dispatcher runs ingestion detached from the request path. Uploads enqueue
// document IDs; a fixed pool of workers drains the queue. Documents are
// independent rows, so no cross-document ordering is needed.
type Dispatcher struct {
	ingestor Ingestor
	queue    chan string
	workers  int
	logger   *slog.Logger

	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewDispatcher creates a dispatcher with the given worker count and queue
// capacity.
func NewDispatcher(ingestor Ingestor, workers, queueSize int, logger *slog.Logger) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		ingestor: ingestor,
		queue:    make(chan string, queueSize),
		workers:  workers,
		logger:   logger,
	}
}

// Start launches the worker pool. Workers exit when ctx is cancelled or the
// queue is closed and drained.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.work(ctx, i)
	}
}

// Enqueue hands a document to the pool without blocking the caller. It
// reports false when the queue is full; the reaper eventually fails documents
// that never get picked up.
func (d *Dispatcher) Enqueue(documentID string) bool {
	select {
	case d.queue <- documentID:
		return true
	default:
		d.logger.Warn("ingestion queue full, dropping enqueue", "document_id", documentID)
		return false
	}
}

// Stop closes the queue and waits for in-flight work to finish.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		close(d.queue)
	})
	d.wg.Wait()
}

func (d *Dispatcher) work(ctx context.Context, id int) {
	defer d.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case documentID, ok := <-d.queue:
			if !ok {
				return
			}
			if err := d.ingestor.Ingest(ctx, documentID); err != nil {
				d.logger.Error("ingestion failed", "worker", id, "document_id", documentID, "error", err)
			}
		}
	}
}
