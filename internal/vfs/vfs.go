package vfs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sync"

	"github.com/jdefrancesco/vidshelf/internal/vlog"
)

// For now this will be our max open-file descriptor limit. This value is
// shared by every stream the playback server has open.
const OpenFileDescLimMax = 256

// Vfile describes a file found under the selected root. It plays the part of
// the browser's file blob: vidshelf never owns the bytes, only the handle.
type Vfile struct {
	// Slash separated, first segment is the root folder's own name.
	relPath string
	absPath string
	size    int64
}

// NewVfile creates a new Vfile.
func NewVfile(relPath, absPath string, size int64) (*Vfile, error) {
	if relPath == "" || absPath == "" {
		return nil, errors.New("file path needs to be specified")
	}

	full, err := filepath.Abs(absPath)
	if err != nil {
		return nil, fmt.Errorf("absolute path for %s: %w", absPath, err)
	}

	return &Vfile{
		relPath: filepath.ToSlash(relPath),
		absPath: full,
		size:    size,
	}, nil
}

// RelPath returns the slash separated path relative to the root's parent.
func (v *Vfile) RelPath() string { return v.relPath }

// AbsPath returns the file's absolute location on disk.
func (v *Vfile) AbsPath() string { return v.absPath }

// Name returns the base filename only.
func (v *Vfile) Name() string { return path.Base(v.relPath) }

// Size returns the size recorded when the file was walked.
func (v *Vfile) Size() int64 { return v.size }

// Semaphore that controls how many open file descriptors we can have at once.
var sema = make(chan struct{}, OpenFileDescLimMax)

// limitedFile releases its semaphore slot exactly once on Close.
type limitedFile struct {
	*os.File
	once sync.Once
}

func (f *limitedFile) Close() error {
	err := f.File.Close()
	f.once.Do(func() { <-sema })
	return err
}

// Open opens the underlying file for streaming. Callers must Close it.
func (v *Vfile) Open() (io.ReadSeekCloser, error) {
	sema <- struct{}{}

	// #nosec G304 -- absPath comes from our own walk of the selected root
	f, err := os.Open(v.absPath)
	if err != nil {
		<-sema
		return nil, fmt.Errorf("failed to open file %s: %w", v.absPath, err)
	}
	return &limitedFile{File: f}, nil
}

// CheckFilePerms reports whether path can be opened for reading.
func CheckFilePerms(p string) bool {
	abs, err := filepath.Abs(filepath.Clean(p))
	if err != nil {
		return false
	}

	// #nosec G304
	file, err := os.Open(abs)
	if err != nil {
		if os.IsPermission(err) {
			vlog.Vlogger.Debugf("Permission denied: %s", abs)
		}
		return false
	}
	defer file.Close()
	return true
}
