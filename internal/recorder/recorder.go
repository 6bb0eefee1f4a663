// Package recorder persists model exchanges off the request path.
//
// Record enqueues without blocking; a single worker started with Run drains
// the queue into submitted_content. A full queue drops the exchange with a
// warning, and insert failures are logged. Neither reaches the caller.
package recorder

import (
	"context"
	"database/sql"
	"sync"

	"github.com/hpungsan/formulary/internal/db"
	"github.com/hpungsan/formulary/internal/logging"
	"github.com/hpungsan/formulary/internal/record"
)

// DefaultQueueSize is used when a non-positive size is given.
const DefaultQueueSize = 64

// Recorder is a bounded write queue for SubmittedContent rows.
type Recorder struct {
	db  *sql.DB
	log *logging.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan record.SubmittedContent
	done   chan struct{}
}

// New creates a recorder. Call Run to start persisting.
func New(database *sql.DB, log *logging.Logger, size int) *Recorder {
	if size <= 0 {
		size = DefaultQueueSize
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Recorder{
		db:    database,
		log:   log,
		queue: make(chan record.SubmittedContent, size),
		done:  make(chan struct{}),
	}
}

// Record enqueues c. It never blocks and is a no-op after Close.
func (r *Recorder) Record(c record.SubmittedContent) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		r.log.Warn("recorder closed, exchange dropped", "prompt_len", len(c.Prompt))
		return
	}

	select {
	case r.queue <- c:
	default:
		r.log.Warn("recorder queue full, exchange dropped",
			"prompt_len", len(c.Prompt),
			"queue_size", cap(r.queue),
		)
	}
}

// Run persists queued exchanges until Close is called and the queue is empty.
func (r *Recorder) Run() {
	defer close(r.done)

	for c := range r.queue {
		r.persist(c)
	}
}

func (r *Recorder) persist(c record.SubmittedContent) {
	// Detached from any request: the HTTP response has already been sent.
	id, err := db.InsertSubmittedContent(context.Background(), r.db, &c)
	if err != nil {
		r.log.Error("failed to persist exchange",
			"prompt_len", len(c.Prompt),
			"error", err,
		)
		return
	}
	r.log.Debug("exchange persisted", "id", id)
}

// Close stops accepting exchanges. Items already queued are still written
// by Run; use Wait to block until that finishes.
func (r *Recorder) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.closed = true
	close(r.queue)
}

// Wait blocks until Run has drained the queue and returned, or ctx is done.
func (r *Recorder) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending returns the number of queued exchanges.
func (r *Recorder) Pending() int {
	return len(r.queue)
}
