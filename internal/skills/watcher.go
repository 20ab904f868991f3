package skills

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a Loader whenever a file changes under one of its
// directories, so editing a SKILL.md takes effect without a restart.
type Watcher struct {
	loader *Loader
	fsw    *fsnotify.Watcher
	done   chan struct{}
}

// NewWatcher starts watching every directory loader was constructed
// with. Directories that don't exist yet are skipped; Reload will pick
// them up once something creates them (fsnotify can't watch a path
// that isn't there).
func NewWatcher(loader *Loader) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for _, dir := range loader.dirs {
		_ = fsw.Add(dir)
		// fsnotify is not recursive; watch each existing skill folder too
		// so edits to its SKILL.md are seen.
		if entries, err := os.ReadDir(dir); err == nil {
			for _, e := range entries {
				if e.IsDir() {
					_ = fsw.Add(filepath.Join(dir, e.Name()))
				}
			}
		}
	}

	w := &Watcher{loader: loader, fsw: fsw, done: make(chan struct{})}
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	for {
		select {
		case _, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if err := w.loader.Reload(); err != nil {
				slog.Warn("skills reload failed", "error", err)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Warn("skills watcher error", "error", err)
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}
