package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// Holder publishes the active Config to concurrent readers. Reloads swap the
// pointer; readers never see a partially applied file.
type Holder struct {
	current atomic.Pointer[Config]
}

func NewHolder(cfg *Config) *Holder {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	h := &Holder{}
	h.current.Store(cfg)
	return h
}

func (h *Holder) Current() *Config {
	return h.current.Load()
}

func (h *Holder) Store(cfg *Config) {
	if cfg != nil {
		h.current.Store(cfg)
	}
}

// Watcher reloads a budget file into a Holder whenever it changes.
type Watcher struct {
	path   string
	holder *Holder
	logger *slog.Logger
}

func NewWatcher(path string, holder *Holder, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{path: filepath.Clean(path), holder: holder, logger: logger}
}

// Reload forces an immediate re-read of the file. On error the previous
// config stays active.
func (w *Watcher) Reload() error {
	cfg, err := Load(w.path)
	if err != nil {
		return err
	}
	w.holder.Store(cfg)
	return nil
}

// Run watches the file's directory until ctx is done. The directory is
// watched rather than the file so editors that save via rename are seen.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("rate limit config watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("rate limit config watcher add %s: %w", w.path, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if err := w.Reload(); err != nil {
				w.logger.WarnContext(ctx, "rate limit config reload failed, keeping previous budgets",
					"path", w.path, "error", err)
				continue
			}
			w.logger.InfoContext(ctx, "rate limit config reloaded", "path", w.path)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.WarnContext(ctx, "rate limit config watcher error", "error", err)
		}
	}
}
