// Package selector is the folder selection boundary. It turns a chosen root
// directory into the flat (relative path, file) list the grouper consumes.
package selector

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/jdefrancesco/vidshelf/internal/catalog"
	"github.com/jdefrancesco/vidshelf/internal/vfs"
	"github.com/jdefrancesco/vidshelf/internal/vlog"
	"github.com/jdefrancesco/vidshelf/internal/vwalk"
)

var (
	// ErrSelectionCancelled means the user aborted; callers treat it as a no-op.
	ErrSelectionCancelled = errors.New("folder selection cancelled")
	// ErrSelectionFailed wraps every other selection failure.
	ErrSelectionFailed = errors.New("folder selection failed")
)

// Selection is the result of a completed folder choice.
type Selection struct {
	// Root is the chosen folder's own name, the first segment of every path.
	Root  string
	Pairs []catalog.Pair
}

// Selector yields a folder selection. Implementations return either a
// complete Selection or an error; never a partial list.
type Selector interface {
	Select(ctx context.Context) (Selection, error)
}

// DirSelector walks a directory on disk.
type DirSelector struct {
	Root        string
	SkipHidden  bool
	MaxFileSize uint64
}

// Select walks d.Root. Pairs are sorted by relative path so grouping the same
// tree twice gives the same catalog despite the parallel walk.
func (d DirSelector) Select(ctx context.Context) (Selection, error) {
	if err := ctx.Err(); err != nil {
		return Selection{}, ErrSelectionCancelled
	}

	root := filepath.Clean(d.Root)
	info, err := os.Stat(root)
	if err != nil {
		return Selection{}, fmt.Errorf("%w: %w", ErrSelectionFailed, err)
	}
	if !info.IsDir() {
		return Selection{}, fmt.Errorf("%w: %s is not a directory", ErrSelectionFailed, root)
	}
	// A root we cannot list would otherwise look like an empty folder.
	if _, err := os.ReadDir(root); err != nil {
		return Selection{}, fmt.Errorf("%w: %w", ErrSelectionFailed, err)
	}

	vFiles := make(chan *vfs.Vfile)
	walker := vwalk.NewVWalker(root, vFiles, d.SkipHidden, d.MaxFileSize)
	walker.Run(ctx)

	var pairs []catalog.Pair
	for f := range vFiles {
		pairs = append(pairs, catalog.Pair{RelPath: f.RelPath(), Source: f})
	}

	if ctx.Err() != nil {
		vlog.Vlogger.Infof("Selection of %s cancelled after %d files", root, len(pairs))
		return Selection{}, ErrSelectionCancelled
	}

	sort.Slice(pairs, func(i, j int) bool { return pairs[i].RelPath < pairs[j].RelPath })
	vlog.Vlogger.Infof("Selected %s: %d files", root, len(pairs))
	return Selection{Root: vwalk.RootName(root), Pairs: pairs}, nil
}

// PairSelector serves a fixed selection, or Err when set.
type PairSelector struct {
	Root  string
	Pairs []catalog.Pair
	Err   error
}

func (p PairSelector) Select(ctx context.Context) (Selection, error) {
	if ctx.Err() != nil {
		return Selection{}, ErrSelectionCancelled
	}
	if p.Err != nil {
		return Selection{}, p.Err
	}
	return Selection{Root: p.Root, Pairs: append([]catalog.Pair(nil), p.Pairs...)}, nil
}
