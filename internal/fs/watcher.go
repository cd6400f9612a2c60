package fs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"rufas/internal/rufas"
)

// Watcher turns filesystem events under a folder into wake-up signals for
// the poller. It watches every non-ignored directory; directories created
// later are added as they appear. Events on ignored paths are dropped, so
// writes to the .rufas storage directory never trigger a rescan.
type Watcher struct {
	root    string
	matcher *IgnoreMatcher
	watcher *fsnotify.Watcher
	signals chan struct{}
	logger  rufas.Logger
}

// NewWatcher starts watching root. Call Run to deliver signals and Close to
// release the watches.
func NewWatcher(root string, matcher *IgnoreMatcher, logger rufas.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	w := &Watcher{
		root:    root,
		matcher: matcher,
		watcher: fw,
		signals: make(chan struct{}, 1),
		logger:  logger,
	}
	if err := w.addTree(root); err != nil {
		fw.Close()
		return nil, err
	}
	return w, nil
}

// Signals returns a channel that receives a value after relevant changes.
// Bursts of events collapse into a single pending signal.
func (w *Watcher) Signals() <-chan struct{} {
	return w.signals
}

// Run forwards events until ctx is cancelled or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) handle(ev fsnotify.Event) {
	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil || rel == "." {
		return
	}
	if w.ignored(rel) {
		return
	}

	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.addTree(ev.Name); err != nil {
				w.logger.Warn("watching new directory failed", "path", rel, "error", err)
			}
		}
	}

	select {
	case w.signals <- struct{}{}:
	default:
	}
}

// ignored reports whether rel or any of its parent directories is ignored.
func (w *Watcher) ignored(rel string) bool {
	for p := rel; p != "." && p != string(filepath.Separator); p = filepath.Dir(p) {
		if w.matcher.Match(p) {
			return true
		}
	}
	return false
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != w.root {
			rel, err := filepath.Rel(w.root, p)
			if err == nil && w.matcher.Match(rel) {
				return filepath.SkipDir
			}
		}
		if err := w.watcher.Add(p); err != nil {
			return fmt.Errorf("watching %s: %w", p, err)
		}
		return nil
	})
}
