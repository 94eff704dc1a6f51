package catalog

import (
	"encoding/hex"
	"strings"

	"github.com/jdefrancesco/vidshelf/internal/config"
	"github.com/jdefrancesco/vidshelf/internal/vlog"

	"lukechampine.com/blake3"
)

// minSegments is root/subject/chapter/file.
const minSegments = 4

// Options control grouping. The zero value groups at Depth2 with the
// default extension lists and no URL allocation.
type Options struct {
	// Root overrides the root label taken from the first pair.
	Root                string
	Depth               config.Depth
	VideoExtensions     []string
	CompanionExtensions []string
	Allocator           Allocator
}

func (o Options) withDefaults() Options {
	if o.Depth == 0 {
		o.Depth = config.Depth2
	}
	if o.VideoExtensions == nil {
		o.VideoExtensions = config.DefaultVideoExtensions
	}
	if o.CompanionExtensions == nil {
		o.CompanionExtensions = config.DefaultCompanionExtensions
	}
	return o
}

// Extension returns the lower-cased text after the final '.', or "" when the
// name has no dot.
func Extension(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return ""
	}
	return strings.ToLower(name[i+1:])
}

func stem(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[:i]
	}
	return name
}

func contains(list []string, ext string) bool {
	if ext == "" {
		return false
	}
	for _, item := range list {
		if item == ext {
			return true
		}
	}
	return false
}

// IsVideo reports whether name carries one of the default video extensions.
func IsVideo(name string) bool {
	return contains(config.DefaultVideoExtensions, Extension(name))
}

// EntryID derives a stable identifier from a relative path.
func EntryID(relPath string) string {
	sum := blake3.Sum256([]byte(relPath))
	return hex.EncodeToString(sum[:8])
}

// trail picks the grouping names out of a split path. ok is false when the
// path is too shallow or a grouping segment is empty.
func trail(segs []string, depth config.Depth) (names []string, ok bool) {
	if len(segs) < minSegments {
		return nil, false
	}
	n := 2
	if depth == config.Depth3 && len(segs) > minSegments {
		n = 3
	}
	names = segs[1 : 1+n]
	for _, name := range names {
		if name == "" {
			return nil, false
		}
	}
	return names, true
}

func levelsFor(n int) []Level {
	if n == 3 {
		return []Level{LevelSubject, LevelBranch, LevelChapter}
	}
	return []Level{LevelSubject, LevelChapter}
}

type pendingCompanion struct {
	names []string
	pair  Pair
	file  string
}

// Group builds a Catalog from the bulk selection. Pairs that are too shallow
// or whose extension is not allowed are dropped silently. An empty input
// yields an empty catalog.
func Group(pairs []Pair, opts Options) *Catalog {
	opts = opts.withDefaults()

	root := opts.Root
	if root == "" && len(pairs) > 0 {
		root, _, _ = strings.Cut(pairs[0].RelPath, "/")
	}
	cat := newCatalog(root, opts.Depth)

	var companions []pendingCompanion
	dropped := 0

	for _, p := range pairs {
		segs := strings.Split(p.RelPath, "/")
		names, ok := trail(segs, opts.Depth)
		if !ok {
			dropped++
			continue
		}
		file := segs[len(segs)-1]
		ext := Extension(file)

		switch {
		case contains(opts.VideoExtensions, ext):
			chapter := cat.top
			for i, lvl := range levelsFor(len(names)) {
				chapter = chapter.child(names[i], lvl)
			}
			entry := &Entry{
				ID:      EntryID(p.RelPath),
				Name:    file,
				RelPath: p.RelPath,
				Source:  p.Source,
			}
			if opts.Allocator != nil && p.Source != nil {
				entry.URL = opts.Allocator.Allocate(p.Source)
			}
			chapter.entries = append(chapter.entries, entry)

		case contains(opts.CompanionExtensions, ext):
			companions = append(companions, pendingCompanion{names: names, pair: p, file: file})

		default:
			dropped++
		}
	}

	attached := attachCompanions(cat, companions, opts.Allocator)

	vlog.Vlogger.Infof("Grouped %d pairs into %d subjects, %d videos, %d companions (%d dropped)",
		len(pairs), len(cat.top.order), cat.EntryCount(), attached, dropped+len(companions)-attached)
	return cat
}

// attachCompanions links documents to the video sharing their stem in the
// same chapter. Companions never create nodes of their own.
func attachCompanions(cat *Catalog, pending []pendingCompanion, alloc Allocator) int {
	attached := 0
	for _, pc := range pending {
		node := cat.top
		found := true
		for i, lvl := range levelsFor(len(pc.names)) {
			if node, found = node.Child(pc.names[i], lvl); !found {
				break
			}
		}
		if !found {
			continue
		}

		want := stem(pc.file)
		for _, e := range node.entries {
			if stem(e.Name) != want {
				continue
			}
			comp := &Companion{Name: pc.file, RelPath: pc.pair.RelPath, Source: pc.pair.Source}
			if alloc != nil && pc.pair.Source != nil {
				comp.URL = alloc.Allocate(pc.pair.Source)
			}
			e.Companions = append(e.Companions, comp)
			attached++
			break
		}
	}
	return attached
}
