package persist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/japaniel/glosser/pkg/db"
)

// SQLitePersister stores patches in a SQLite database through a BatchWriter.
type SQLitePersister struct {
	conn   *sql.DB
	writer *BatchWriter
	logger *zap.Logger

	mu    sync.Mutex
	saved map[string]map[string]string
}

// OpenSQLite opens (creating if needed) the database at path. A file that
// is not a usable SQLite database is moved aside to "<path>.corrupt-<unix>"
// and a fresh database takes its place.
func OpenSQLite(path string, logger *zap.Logger) (*SQLitePersister, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, err := openDB(path)
	if err != nil && isCorrupt(err) && path != ":memory:" {
		aside := fmt.Sprintf("%s.corrupt-%d", path, time.Now().Unix())
		logger.Warn("patch store corrupt, moving aside and starting empty",
			zap.String("path", path), zap.String("moved_to", aside), zap.Error(err))
		if rerr := os.Rename(path, aside); rerr != nil {
			return nil, fmt.Errorf("move corrupt database aside: %w", rerr)
		}
		conn, err = openDB(path)
	}
	if err != nil {
		return nil, err
	}

	p := &SQLitePersister{
		conn:   conn,
		writer: NewBatchWriter(conn, 32, 200*time.Millisecond),
		logger: logger,
		saved:  make(map[string]map[string]string),
	}
	p.writer.OnError = func(err error) {
		logger.Warn("failed to persist patches", zap.Error(err))
	}
	p.writer.OnBatchError = p.forget
	return p, nil
}

func openDB(path string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection keeps ":memory:" databases coherent and serialises
	// the writer's transactions with provenance inserts.
	conn.SetMaxOpenConns(1)
	if err := db.InitDB(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initialize database: %w", err)
	}
	return conn, nil
}

func isCorrupt(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code == sqlite3.ErrNotADB || se.Code == sqlite3.ErrCorrupt
}

// Load reads every stored patch. Query failures yield an empty mapping.
func (p *SQLitePersister) Load(ctx context.Context) map[string]map[string]string {
	out := make(map[string]map[string]string)
	rows, skipped, err := db.LoadPatches(p.conn)
	if err != nil {
		p.logger.Warn("patch store unreadable, starting empty", zap.Error(err))
		return out
	}
	if len(skipped) > 0 {
		p.logger.Debug("skipped corrupt patch rows", zap.Strings("keys", skipped))
	}
	for _, r := range rows {
		out[r.Key] = r.Fields
	}
	p.mu.Lock()
	p.saved = cloneMapping(out)
	p.mu.Unlock()
	return out
}

// Save enqueues the keys whose fields changed since the last save. A key
// whose batch later fails to commit is forgotten, so the next Save retries it.
func (p *SQLitePersister) Save(mapping map[string]map[string]string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for key, fields := range mapping {
		if prev, ok := p.saved[key]; ok && sameFields(prev, fields) {
			continue
		}
		if err := p.writer.Submit(key, fields); err != nil {
			p.logger.Warn("failed to queue patch", zap.String("key", key), zap.Error(err))
			continue
		}
		cp := make(map[string]string, len(fields))
		for f, v := range fields {
			cp[f] = v
		}
		p.saved[key] = cp
	}
}

// forget drops the saved state for keys in a batch that did not commit,
// unless a newer value has been queued since.
func (p *SQLitePersister) forget(batch map[string]map[string]string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for key, fields := range batch {
		if prev, ok := p.saved[key]; ok && sameFields(prev, fields) {
			delete(p.saved, key)
		}
	}
	p.logger.Debug("patches will be retried on next save", zap.Int("patches", len(batch)))
}

// RecordDocument stores provenance for a loaded base document.
func (p *SQLitePersister) RecordDocument(kind, path, sum string) error {
	_, err := db.RecordDocument(p.conn, kind, path, sum)
	return err
}

// Documents lists provenance records, newest first.
func (p *SQLitePersister) Documents() ([]db.DocumentRecord, error) {
	return db.ListDocuments(p.conn)
}

// Close flushes pending writes and closes the database.
func (p *SQLitePersister) Close() error {
	werr := p.writer.Close()
	if err := p.conn.Close(); err != nil && werr == nil {
		werr = err
	}
	return werr
}
