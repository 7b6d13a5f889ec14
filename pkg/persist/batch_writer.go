package persist

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/japaniel/glosser/pkg/db"
)

// BatchWriter buffers patch upserts and commits them in batches inside a
// transaction. Writes for the same key are coalesced so only the latest field
// set is committed. Full batches wait in an unbounded queue, so Submit never
// waits on the committer.
type BatchWriter struct {
	mu          sync.Mutex
	buf         map[string]map[string]string
	queue       []map[string]map[string]string
	cap         int
	flushTicker *time.Ticker
	closed      bool
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc

	wake    chan struct{}
	db      *sql.DB
	OnError func(error)

	// OnBatchError receives every batch that failed to commit, after OnError.
	OnBatchError func(batch map[string]map[string]string, err error)

	// lastErr stores the first asynchronous error seen by the writer. Protected by errMu.
	errMu   sync.Mutex
	lastErr error
}

// NewBatchWriter creates a new BatchWriter.
// db: the database connection to use for transactions.
// bufferSize: flush when this many distinct keys are pending.
// flushInterval: flush after this duration (0 to disable).
func NewBatchWriter(conn *sql.DB, bufferSize int, flushInterval time.Duration) *BatchWriter {
	if bufferSize <= 0 {
		bufferSize = 10
	}
	ctx, cancel := context.WithCancel(context.Background())
	bw := &BatchWriter{
		buf:    make(map[string]map[string]string, bufferSize),
		cap:    bufferSize,
		ctx:    ctx,
		cancel: cancel,
		wake:   make(chan struct{}, 1),
		db:     conn,
	}

	bw.wg.Add(1)
	go bw.committer()

	if flushInterval > 0 {
		bw.flushTicker = time.NewTicker(flushInterval)
		bw.wg.Add(1)
		go bw.loop()
	}
	return bw
}

// Submit enqueues the full field set for key. It never waits on disk I/O.
func (bw *BatchWriter) Submit(key string, fields map[string]string) error {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	if bw.closed {
		return ErrBatchWriterClosed
	}
	cp := make(map[string]string, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	bw.buf[key] = cp
	if len(bw.buf) >= bw.cap {
		bw.flushLocked()
	}
	return nil
}

// flushLocked assumes bw.mu is held.
func (bw *BatchWriter) flushLocked() {
	if len(bw.buf) == 0 {
		return
	}
	bw.queue = append(bw.queue, bw.buf)
	bw.buf = make(map[string]map[string]string, bw.cap)
	bw.signal()
}

func (bw *BatchWriter) signal() {
	select {
	case bw.wake <- struct{}{}:
	default:
	}
}

func (bw *BatchWriter) recordErr(err error) {
	bw.errMu.Lock()
	if bw.lastErr == nil {
		bw.lastErr = err
	}
	bw.errMu.Unlock()
	if bw.OnError != nil {
		bw.OnError(err)
	}
}

// committer drains the queue in order. Once closed it exits after the last
// queued batch, since nothing can be queued after Close.
func (bw *BatchWriter) committer() {
	defer bw.wg.Done()
	for {
		bw.mu.Lock()
		batches, closed := bw.queue, bw.closed
		bw.queue = nil
		bw.mu.Unlock()

		for _, batch := range batches {
			if err := bw.executeBatch(batch); err != nil {
				bw.recordErr(err)
				if bw.OnBatchError != nil {
					bw.OnBatchError(batch, err)
				}
			}
		}
		if closed {
			return
		}
		<-bw.wake
	}
}

func (bw *BatchWriter) executeBatch(batch map[string]map[string]string) error {
	if bw.db == nil {
		return fmt.Errorf("batch writer: no database configured")
	}

	keys := make([]string, 0, len(batch))
	for k := range batch {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	// Use background context for flushing to avoid "context canceled" if bw is closing.
	ctx := context.Background()

	tx, err := bw.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin batch tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // ignored if committed
	}()

	for _, k := range keys {
		if err := db.UpsertPatch(tx, k, batch[k]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch (%d patches): %w", len(batch), err)
	}
	return nil
}

func (bw *BatchWriter) loop() {
	defer bw.wg.Done()
	for {
		select {
		case <-bw.ctx.Done():
			return
		case <-bw.flushTicker.C:
			bw.mu.Lock()
			bw.flushLocked()
			bw.mu.Unlock()
		}
	}
}

// Close stops accepting submissions and waits for pending writes to commit.
// It returns the first asynchronous error seen, if any.
func (bw *BatchWriter) Close() error {
	bw.mu.Lock()
	if bw.closed {
		bw.mu.Unlock()
		return ErrBatchWriterClosed
	}
	bw.closed = true
	if bw.flushTicker != nil {
		bw.flushTicker.Stop()
	}
	bw.flushLocked()
	bw.mu.Unlock()

	bw.signal()
	bw.cancel()
	bw.wg.Wait()

	bw.errMu.Lock()
	defer bw.errMu.Unlock()
	return bw.lastErr
}

var ErrBatchWriterClosed = &BatchWriterError{"batch writer closed"}

type BatchWriterError struct{ msg string }

func (e *BatchWriterError) Error() string { return e.msg }
