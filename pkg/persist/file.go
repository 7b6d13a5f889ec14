package persist

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// FilePersister keeps patches in a single JSON file in the compatibility
// shape. Saves are coalesced: a background goroutine writes only the most
// recent mapping.
type FilePersister struct {
	path   string
	logger *zap.Logger

	mu      sync.Mutex
	pending map[string]map[string]string
	closed  bool
	lastErr error

	signal chan struct{}
	done   chan struct{}
}

// OpenFile returns a persister for the JSON file at path. The file need not
// exist yet.
func OpenFile(path string, logger *zap.Logger) *FilePersister {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &FilePersister{
		path:   path,
		logger: logger,
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go p.loop()
	return p
}

// Load reads the file. A missing or corrupt file yields an empty mapping.
func (p *FilePersister) Load(ctx context.Context) map[string]map[string]string {
	raw, err := os.ReadFile(p.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			p.logger.Warn("patch file unreadable, starting empty", zap.String("path", p.path), zap.Error(err))
		}
		return map[string]map[string]string{}
	}
	mapping, err := ImportJSON(bytes.NewReader(raw))
	if err != nil {
		p.logger.Debug("patch file corrupt, starting empty", zap.String("path", p.path), zap.Error(err))
		return map[string]map[string]string{}
	}
	return mapping
}

// Save schedules mapping to be written and returns immediately.
func (p *FilePersister) Save(mapping map[string]map[string]string) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.logger.Warn("save after close ignored", zap.String("path", p.path))
		return
	}
	defer p.mu.Unlock()
	p.pending = cloneMapping(mapping)
	select {
	case p.signal <- struct{}{}:
	default:
	}
}

func (p *FilePersister) loop() {
	defer close(p.done)
	for range p.signal {
		p.mu.Lock()
		m := p.pending
		p.pending = nil
		p.mu.Unlock()
		if m == nil {
			continue
		}
		if err := p.write(m); err != nil {
			p.logger.Warn("failed to persist patches", zap.String("path", p.path), zap.Error(err))
			p.mu.Lock()
			if p.lastErr == nil {
				p.lastErr = err
			}
			p.mu.Unlock()
		}
	}
}

// write replaces the file atomically via a temp file in the same directory.
func (p *FilePersister) write(mapping map[string]map[string]string) error {
	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create patch directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".patches-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := ExportJSON(tmp, mapping); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), p.path); err != nil {
		return fmt.Errorf("replace patch file: %w", err)
	}
	return nil
}

// Close waits for the last scheduled mapping to be written.
func (p *FilePersister) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.signal)
	p.mu.Unlock()

	<-p.done

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}
