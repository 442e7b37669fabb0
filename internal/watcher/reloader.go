// Package watcher reloads a vector store snapshot when it is rewritten on disk.
package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hyperjump/eximrag/internal/vector"
	"go.uber.org/zap"
)

const defaultDebounce = 400 * time.Millisecond

// Loader replaces its contents with the snapshot at path.
type Loader interface {
	Load(ctx context.Context, path string) error
}

// Reloader watches <path>.metadata and calls Loader.Load(path) after it is
// created or rewritten. Bursts of events within the debounce window trigger
// a single load. The metadata artifact is written last by Save, so its
// arrival marks a complete snapshot.
type Reloader struct {
	path     string
	target   string
	loader   Loader
	debounce time.Duration
	onReload func(error)
	logger   *zap.Logger

	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	timer    *time.Timer
	ctx      context.Context
	done     chan struct{}
	started  bool
	stopOnce sync.Once
}

// ReloaderOption configures a Reloader.
type ReloaderOption func(*Reloader)

// WithDebounce sets the quiet period before a reload.
func WithDebounce(d time.Duration) ReloaderOption {
	return func(r *Reloader) {
		if d > 0 {
			r.debounce = d
		}
	}
}

// WithLogger sets a logger for reload events.
func WithLogger(l *zap.Logger) ReloaderOption {
	return func(r *Reloader) { r.logger = l }
}

// WithOnReload registers a callback invoked after every reload attempt.
func WithOnReload(fn func(error)) ReloaderOption {
	return func(r *Reloader) { r.onReload = fn }
}

// NewReloader creates a reloader for the snapshot at path.
func NewReloader(path string, loader Loader, opts ...ReloaderOption) *Reloader {
	clean := filepath.Clean(path)
	r := &Reloader{
		path:     clean,
		target:   vector.MetadataPath(clean),
		loader:   loader,
		debounce: defaultDebounce,
		logger:   zap.NewNop(),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start begins watching the snapshot directory, creating it if needed. It
// runs until ctx is cancelled or Stop is called.
func (r *Reloader) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return nil
	}
	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return err
	}
	r.watcher = w
	r.ctx = ctx
	r.started = true
	r.logger.Debug("watching snapshot", zap.String("path", r.target))
	go r.run(ctx, w)
	return nil
}

// Stop stops watching and cancels any pending reload.
func (r *Reloader) Stop() {
	r.stopOnce.Do(func() {
		close(r.done)
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.timer != nil {
			r.timer.Stop()
			r.timer = nil
		}
		if r.watcher != nil {
			_ = r.watcher.Close()
			r.watcher = nil
		}
	})
}

func (r *Reloader) run(ctx context.Context, w *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			r.Stop()
			return
		case <-r.done:
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != r.target {
				continue
			}
			if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) {
				r.schedule()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			r.logger.Warn("snapshot watcher error", zap.Error(err))
		}
	}
}

func (r *Reloader) schedule() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(r.debounce, r.reload)
}

func (r *Reloader) reload() {
	r.mu.Lock()
	r.timer = nil
	ctx := r.ctx
	r.mu.Unlock()
	select {
	case <-r.done:
		return
	default:
	}

	err := r.loader.Load(ctx, r.path)
	switch {
	case err == nil:
		r.logger.Info("reloaded snapshot", zap.String("path", r.path))
	case errors.Is(err, vector.ErrNotFound):
		r.logger.Debug("snapshot incomplete; waiting for next write", zap.String("path", r.path))
	default:
		r.logger.Warn("snapshot reload failed", zap.String("path", r.path), zap.Error(err))
	}
	if r.onReload != nil {
		r.onReload(err)
	}
}
