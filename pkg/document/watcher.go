package document

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Change reports that a watched document was written.
type Change struct {
	Kind Kind
	Path string
}

// WatcherConfig configures a Watcher.
type WatcherConfig struct {
	// Paths maps each document kind to the file to watch. Empty paths are skipped.
	Paths map[Kind]string

	// DebounceDelay is the quiet period after the last write before a change
	// is emitted. Every new write restarts it.
	DebounceDelay time.Duration

	Logger *zap.Logger
}

// Watcher emits a Change when one of the base documents is rewritten.
// Editors commonly save by rename, so the parent directories are watched
// rather than the files themselves.
type Watcher struct {
	config  WatcherConfig
	watcher *fsnotify.Watcher
	logger  *zap.Logger
	byPath  map[string]Kind
	pending map[string]Kind

	changes chan Change
}

// NewWatcher creates a watcher. Call Start to begin watching.
func NewWatcher(config WatcherConfig) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.DebounceDelay == 0 {
		config.DebounceDelay = 200 * time.Millisecond
	}

	byPath := make(map[string]Kind, len(config.Paths))
	for kind, p := range config.Paths {
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			fsw.Close()
			return nil, err
		}
		byPath[abs] = kind
	}

	return &Watcher{
		config:  config,
		watcher: fsw,
		logger:  logger,
		byPath:  byPath,
		pending: make(map[string]Kind),
		changes: make(chan Change, 16),
	}, nil
}

// Changes returns the channel of debounced document changes. It is closed
// when the watcher stops.
func (w *Watcher) Changes() <-chan Change {
	return w.changes
}

// Start adds the watches and processes events until ctx is done.
func (w *Watcher) Start(ctx context.Context) error {
	dirs := make(map[string]bool)
	for p := range w.byPath {
		dirs[filepath.Dir(p)] = true
	}
	for dir := range dirs {
		if err := w.watcher.Add(dir); err != nil {
			return err
		}
		w.logger.Debug("watching directory", zap.String("dir", dir))
	}

	go w.processEvents(ctx)
	return nil
}

func (w *Watcher) processEvents(ctx context.Context) {
	quiet := time.NewTimer(w.config.DebounceDelay)
	quiet.Stop()
	defer quiet.Stop()
	defer close(w.changes)
	defer w.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil {
				continue
			}
			kind, watched := w.byPath[abs]
			if !watched {
				continue
			}
			w.pending[abs] = kind
			quiet.Reset(w.config.DebounceDelay)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", zap.Error(err))

		case <-quiet.C:
			w.flush(ctx)
		}
	}
}

// flush emits every pending change. It runs on the event goroutine only.
func (w *Watcher) flush(ctx context.Context) {
	batch := w.pending
	w.pending = make(map[string]Kind)

	for path, kind := range batch {
		select {
		case w.changes <- Change{Kind: kind, Path: path}:
		case <-ctx.Done():
			return
		}
	}
}

// Close stops the underlying fsnotify watcher. It is safe to call after the
// context passed to Start is done.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
