package config

import (
	"log/slog"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// Snapshot is the process-wide handle to the current configuration: an
// atomically-swappable pointer to an immutable *Config. Readers call
// Current and use the returned *Config without locking — once built by
// Load, a Config value is never mutated in place, so every reader sees
// either the old whole config or the new one, never a partial update.
type Snapshot struct {
	ptr atomic.Pointer[Config]
}

// NewSnapshot wraps an already-loaded Config as the initial snapshot.
func NewSnapshot(cfg *Config) *Snapshot {
	s := &Snapshot{}
	s.ptr.Store(cfg)
	return s
}

// Current returns the config in effect right now. The returned pointer
// must be treated as read-only; callers that need to react to future
// changes should call Current again rather than caching the result.
func (s *Snapshot) Current() *Config {
	return s.ptr.Load()
}

// Replace installs cfg as the current config, atomically. Previously
// obtained *Config values held by in-flight requests remain valid and
// unchanged — this is a swap, not a mutation.
func (s *Snapshot) Replace(cfg *Config) {
	s.ptr.Store(cfg)
}

// WatchFile reloads path into s whenever it changes on disk, logging
// and keeping the previous snapshot on a parse error rather than
// swapping in a broken config. Returns a stop func; callers should
// defer it (or call it on shutdown) to release the fsnotify watcher.
func WatchFile(path string, s *Snapshot) (stop func(), err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				cfg, loadErr := Load(path)
				if loadErr != nil {
					slog.Warn("config reload failed, keeping previous snapshot", "path", path, "error", loadErr)
					continue
				}
				s.Replace(cfg)
				slog.Info("config reloaded", "path", path)
			case werr, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("config watcher error", "error", werr)
			case <-done:
				return
			}
		}
	}()

	return func() {
		close(done)
		watcher.Close()
	}, nil
}
