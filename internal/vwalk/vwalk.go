// vwalk is a parallel directory walker that feeds the catalog grouper.
package vwalk

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/jdefrancesco/vidshelf/internal/vfs"
	"github.com/jdefrancesco/vidshelf/internal/vlog"

	"golang.org/x/sync/semaphore"
)

// VWalk is our primary object for traversing a video root in parallel.
type VWalk struct {
	root     string
	rootName string
	wg       sync.WaitGroup

	// Channel used to communicate with the collecting goroutine.
	vFiles      chan<- *vfs.Vfile
	sem         *semaphore.Weighted
	skipHidden  bool
	maxFileSize uint64
}

// NewVWalker returns a walker over root that sends every regular file it
// finds on vFiles. Relative paths start with root's own base name.
func NewVWalker(root string, vFiles chan<- *vfs.Vfile, skipHidden bool, maxFileSize uint64) *VWalk {
	walker := &VWalk{
		root:        root,
		rootName:    RootName(root),
		vFiles:      vFiles,
		skipHidden:  skipHidden,
		maxFileSize: maxFileSize,
	}

	concurrency := getOptimalConcurrency()
	vlog.Vlogger.Debugf("Setting directory concurrency to %d (based on %d CPUs)", concurrency, runtime.NumCPU())
	walker.sem = semaphore.NewWeighted(int64(concurrency))
	return walker
}

// RootName is the first segment of every relative path produced for root.
// Relative roots such as "." are resolved so the name is the real folder's.
func RootName(root string) string {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return filepath.Base(root)
}

// Run kicks off the crawl. vFiles is closed once every directory is done.
func (w *VWalk) Run(ctx context.Context) {
	w.wg.Add(1)
	go w.walkDir(ctx, w.root, w.rootName)

	go func() {
		w.wg.Wait()
		close(w.vFiles)
	}()
}

// cancelled polls, checking for cancellation.
func cancelled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// walkDir recursively walks dir. rel is dir's slash separated relative path.
func (w *VWalk) walkDir(ctx context.Context, dir, rel string) {
	defer w.wg.Done()

	if cancelled(ctx) {
		return
	}

	for _, entry := range w.dirEntries(ctx, dir) {
		name := entry.Name()
		if w.skipHidden && strings.HasPrefix(name, ".") {
			vlog.Vlogger.Debugf("Skipping hidden entry: %s", filepath.Join(dir, name))
			continue
		}

		if entry.IsDir() {
			w.wg.Add(1)
			go w.walkDir(ctx, filepath.Join(dir, name), path.Join(rel, name))
			continue
		}

		info, err := entry.Info()
		if err != nil {
			vlog.Vlogger.Debugf("Error getting file info for %s: %v", name, err)
			continue
		}

		// Skip non-regular files (sockets, pipes, device files, etc.)
		if !info.Mode().IsRegular() {
			vlog.Vlogger.Debugf("Skipping non-regular file: %s (mode: %s)", name, info.Mode())
			continue
		}

		fileSize := uint64(max(info.Size(), 0)) // #nosec G115
		if w.maxFileSize > 0 && fileSize >= w.maxFileSize {
			vlog.Vlogger.Infof("File %s larger than maximum. Skipping", name)
			continue
		}

		full := filepath.Join(dir, name)
		if !vfs.CheckFilePerms(full) {
			vlog.Vlogger.Infof("Skipping unreadable file: %s", full)
			continue
		}

		vFile, err := vfs.NewVfile(path.Join(rel, name), full, info.Size())
		if err != nil {
			vlog.Vlogger.Debugf("Skipping %s: %v", name, err)
			continue
		}

		select {
		case w.vFiles <- vFile:
		case <-ctx.Done():
			return
		}
	}
}

// dirEntries returns contents of dir. The semaphore limits concurrency,
// preventing system resource exhaustion.
func (w *VWalk) dirEntries(ctx context.Context, dir string) []os.DirEntry {
	if err := w.sem.Acquire(ctx, 1); err != nil {
		return nil
	}
	defer w.sem.Release(1)

	entries, err := os.ReadDir(dir)
	if err != nil {
		vlog.Vlogger.Errorf("Directory read error: %v", err)
		return nil
	}
	return entries
}

// getOptimalConcurrency returns optimal concurrency based on system resources
func getOptimalConcurrency() int {
	procs := runtime.GOMAXPROCS(0)
	if procs < 1 {
		procs = runtime.NumCPU()
	}
	return min(procs*4, 128)
}
