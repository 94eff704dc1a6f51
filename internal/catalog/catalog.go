// Package catalog groups a flat list of relative paths into the
// subject → (branch →) chapter → video hierarchy the navigator walks.
//
// A Catalog looks roughly like:
//
//	root
//	├── Math            (subject)
//	│   └── Algebra     (chapter)
//	│       └── lec1.mp4
//	└── Physics
//	    └── Mechanics   (branch, Depth3 only)
//	        └── Kinematics
//	            └── lec1.mov
//
// It is built once per folder selection and immutable afterwards, except for
// Release which revokes the playback URLs handed out while grouping.
package catalog

import (
	"io"

	"github.com/jdefrancesco/vidshelf/internal/config"
)

// Source is the file behind an entry. vfs.Vfile is the production
// implementation.
type Source interface {
	Name() string
	Size() int64
	Open() (io.ReadSeekCloser, error)
}

// Pair is one item of the bulk folder selection.
type Pair struct {
	// Slash separated; the first segment is the selected root's own name.
	RelPath string
	Source  Source
}

// Allocator hands out a transient playback URL for a source.
type Allocator interface {
	Allocate(src Source) string
}

// Revoker releases a URL produced by an Allocator.
type Revoker interface {
	Revoke(url string)
}

// Level identifies a node's place in the hierarchy.
type Level int

const (
	LevelSubject Level = iota
	LevelBranch
	LevelChapter
)

func (l Level) String() string {
	switch l {
	case LevelSubject:
		return "subject"
	case LevelBranch:
		return "branch"
	case LevelChapter:
		return "chapter"
	}
	return "unknown"
}

// Companion is a document that travels with a video, e.g. lecture notes.
type Companion struct {
	Name    string
	RelPath string
	Source  Source
	URL     string
}

// Entry is a single playable video.
type Entry struct {
	ID         string
	Name       string
	RelPath    string
	Source     Source
	URL        string
	Companions []*Companion
}

// Size returns the source size, or zero when there is no source.
func (e *Entry) Size() int64 {
	if e.Source == nil {
		return 0
	}
	return e.Source.Size()
}

// key distinguishes a branch from a chapter of the same directory name.
type key struct {
	name  string
	level Level
}

// Node is a subject, branch or chapter. Only chapters hold entries.
type Node struct {
	Name  string
	Level Level

	order    []*Node
	children map[key]*Node
	entries  []*Entry
}

func newNode(name string, level Level) *Node {
	return &Node{Name: name, Level: level, children: make(map[key]*Node)}
}

// Children returns the child nodes in first-encounter order.
func (n *Node) Children() []*Node {
	return append([]*Node(nil), n.order...)
}

// Child looks up a direct child by name and level.
func (n *Node) Child(name string, level Level) (*Node, bool) {
	c, ok := n.children[key{name, level}]
	return c, ok
}

// Entries returns a chapter's videos in input order.
func (n *Node) Entries() []*Entry {
	return append([]*Entry(nil), n.entries...)
}

// EntryCount counts the videos at or below n.
func (n *Node) EntryCount() int {
	total := len(n.entries)
	for _, c := range n.order {
		total += c.EntryCount()
	}
	return total
}

func (n *Node) child(name string, level Level) *Node {
	k := key{name, level}
	c, ok := n.children[k]
	if !ok {
		c = newNode(name, level)
		n.children[k] = c
		n.order = append(n.order, c)
	}
	return c
}

// Catalog is the full hierarchy for one folder selection.
type Catalog struct {
	// Root is the selected folder's own name.
	Root  string
	Depth config.Depth

	top      *Node
	released bool
}

func newCatalog(root string, depth config.Depth) *Catalog {
	return &Catalog{Root: root, Depth: depth, top: newNode(root, -1)}
}

// Subjects returns the subjects in first-encounter order.
func (c *Catalog) Subjects() []*Node {
	if c == nil {
		return nil
	}
	return c.top.Children()
}

// Subject looks up a subject by name.
func (c *Catalog) Subject(name string) (*Node, bool) {
	if c == nil {
		return nil, false
	}
	return c.top.Child(name, LevelSubject)
}

// Empty reports whether the catalog holds no subjects.
func (c *Catalog) Empty() bool {
	return c == nil || len(c.top.order) == 0
}

// EntryCount returns the number of videos in the catalog.
func (c *Catalog) EntryCount() int {
	if c == nil {
		return 0
	}
	return c.top.EntryCount()
}

// Walk calls fn for every entry in display order. trail holds the names of
// the subject, optional branch and chapter containing the entry.
func (c *Catalog) Walk(fn func(trail []string, e *Entry)) {
	if c == nil {
		return
	}
	var visit func(n *Node, trail []string)
	visit = func(n *Node, trail []string) {
		for _, e := range n.entries {
			fn(trail, e)
		}
		for _, child := range n.order {
			visit(child, append(trail[:len(trail):len(trail)], child.Name))
		}
	}
	visit(c.top, nil)
}

// Released reports whether Release has run.
func (c *Catalog) Released() bool {
	return c != nil && c.released
}

// Release revokes every playback URL allocated for the catalog and returns
// how many were revoked. Only the first call does any work.
func (c *Catalog) Release(r Revoker) int {
	if c == nil || c.released {
		return 0
	}
	c.released = true
	if r == nil {
		return 0
	}

	revoked := 0
	c.Walk(func(_ []string, e *Entry) {
		if e.URL != "" {
			r.Revoke(e.URL)
			revoked++
		}
		for _, comp := range e.Companions {
			if comp.URL != "" {
				r.Revoke(comp.URL)
				revoked++
			}
		}
	})
	return revoked
}
