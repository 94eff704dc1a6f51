// Package vwatch notices when a loaded library changes on disk so the user
// can be offered a rescan.
package vwatch

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jdefrancesco/vidshelf/internal/vlog"
)

// DefaultDebounce groups bursts such as a copy of many files into one signal.
const DefaultDebounce = 500 * time.Millisecond

// Watcher reports changes anywhere below a root directory. fsnotify only
// watches single directories, so every directory is added on start and new
// ones as they appear.
type Watcher struct {
	root       string
	skipHidden bool
	debounce   time.Duration
	watcher    *fsnotify.Watcher
	changes    chan struct{}
}

// New starts watching root. Changes are delivered on Changes() until ctx is
// cancelled or Close is called.
func New(ctx context.Context, root string, skipHidden bool, debounce time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w := &Watcher{
		root:       root,
		skipHidden: skipHidden,
		debounce:   debounce,
		watcher:    fw,
		changes:    make(chan struct{}, 1),
	}
	if err := w.addTree(root); err != nil {
		_ = fw.Close()
		return nil, err
	}

	vlog.Vlogger.Infof("Watching %s for changes", root)
	go w.loop(ctx)
	return w, nil
}

// Changes receives one value per debounced burst of changes. It is closed
// when the watcher stops.
func (w *Watcher) Changes() <-chan struct{} { return w.changes }

// Close stops the watcher.
func (w *Watcher) Close() error { return w.watcher.Close() }

func (w *Watcher) hidden(name string) bool {
	return w.skipHidden && strings.HasPrefix(name, ".")
}

// addTree watches dir and every directory below it.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == dir {
				return fmt.Errorf("watch %s: %w", dir, err)
			}
			vlog.Vlogger.Debugf("Not watching %s: %v", p, err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != dir && w.hidden(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(p); err != nil {
			if p == dir {
				return fmt.Errorf("watch %s: %w", dir, err)
			}
			vlog.Vlogger.Warnf("Not watching %s: %v", p, err)
		}
		return nil
	})
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.changes)
	defer w.watcher.Close()

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if w.hidden(filepath.Base(event.Name)) || event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
				continue
			}
			if event.Has(fsnotify.Create) {
				// A new directory must be watched before files land in it.
				_ = w.addTree(event.Name)
			}
			vlog.Vlogger.Debugf("Library change: %s", event)
			timer.Reset(w.debounce)

		case <-timer.C:
			select {
			case w.changes <- struct{}{}:
			default:
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			vlog.Vlogger.Errorf("Watcher error: %v", err)
		}
	}
}
