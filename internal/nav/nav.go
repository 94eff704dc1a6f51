// Package nav is the view-stack state machine driving the browser:
//
//	folder-select → subjects → [branches →] chapters → videos → player
//
// Forward transitions set the selection of the level entered; Back pops one
// level and clears exactly that level's selection. Every transition is
// synchronous; the owner serializes calls.
package nav

import (
	"errors"
	"fmt"

	"github.com/jdefrancesco/vidshelf/internal/catalog"
	"github.com/jdefrancesco/vidshelf/internal/vlog"
)

// View is the active screen.
type View int

const (
	ViewFolderSelect View = iota
	ViewSubjects
	ViewBranches
	ViewChapters
	ViewVideos
	ViewPlayer
)

func (v View) String() string {
	switch v {
	case ViewFolderSelect:
		return "folder-select"
	case ViewSubjects:
		return "subjects"
	case ViewBranches:
		return "branches"
	case ViewChapters:
		return "chapters"
	case ViewVideos:
		return "videos"
	case ViewPlayer:
		return "player"
	}
	return fmt.Sprintf("View(%d)", int(v))
}

var (
	// ErrEmptyCatalog means the folder held no videos at the required depth.
	ErrEmptyCatalog = errors.New("no videos found in the selected folder")
	// ErrInvalidTransition means the trigger is not valid in the current view.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrNotFound means the named subject, branch, chapter or entry is not listed.
	ErrNotFound = errors.New("not found")
)

// Machine holds the current view and selections. The zero value is not
// usable; call New.
type Machine struct {
	view    View
	revoker catalog.Revoker

	cat     *catalog.Catalog
	subject *catalog.Node
	branch  *catalog.Node
	chapter *catalog.Node
	entry   *catalog.Entry

	// What the current list views display.
	branches []*catalog.Node
	chapters []*catalog.Node
	videos   []*catalog.Entry

	err error
}

// New returns a machine in folder-select. r revokes the playback URLs of
// every catalog the machine discards.
func New(r catalog.Revoker) *Machine {
	return &Machine{view: ViewFolderSelect, revoker: r}
}

// View returns the active view.
func (m *Machine) View() View { return m.view }

// Catalog returns the loaded catalog, nil in folder-select.
func (m *Machine) Catalog() *catalog.Catalog { return m.cat }

func (m *Machine) Subject() *catalog.Node { return m.subject }
func (m *Machine) Branch() *catalog.Node  { return m.branch }
func (m *Machine) Chapter() *catalog.Node { return m.chapter }
func (m *Machine) Entry() *catalog.Entry  { return m.entry }

// Subjects lists the catalog's subjects.
func (m *Machine) Subjects() []*catalog.Node { return m.cat.Subjects() }

// Branches lists the children of the selected subject while in the branches
// view. Branches and direct chapters may be mixed.
func (m *Machine) Branches() []*catalog.Node { return m.branches }

// Chapters lists the chapters of the selected subject or branch.
func (m *Machine) Chapters() []*catalog.Node { return m.chapters }

// Videos lists the entries of the selected chapter.
func (m *Machine) Videos() []*catalog.Entry { return m.videos }

// Err returns the user-visible error, if any.
func (m *Machine) Err() error { return m.err }

// SetErr records a user-visible error without changing the view.
func (m *Machine) SetErr(err error) { m.err = err }

// Load installs cat and moves to subjects. An empty catalog is released and
// reported as ErrEmptyCatalog; the machine stays in folder-select.
func (m *Machine) Load(cat *catalog.Catalog) error {
	if m.view != ViewFolderSelect {
		return m.invalid("load")
	}
	if cat.Empty() {
		cat.Release(m.revoker)
		m.err = ErrEmptyCatalog
		return ErrEmptyCatalog
	}

	m.cat = cat
	m.err = nil
	m.view = ViewSubjects
	vlog.Vlogger.Infof("Loaded catalog %q: %d subjects, %d videos", cat.Root, len(cat.Subjects()), cat.EntryCount())
	return nil
}

// SelectSubject enters the named subject. Subjects holding branches open the
// branches view, the rest open chapters.
func (m *Machine) SelectSubject(name string) error {
	if m.view != ViewSubjects {
		return m.invalid("select subject")
	}
	subject, ok := m.cat.Subject(name)
	if !ok {
		return fmt.Errorf("subject %q: %w", name, ErrNotFound)
	}

	m.subject = subject
	if hasBranches(subject) {
		m.branches = subject.Children()
		m.view = ViewBranches
	} else {
		m.chapters = subject.Children()
		m.view = ViewChapters
	}
	return nil
}

// SelectBranch enters the named branch of the selected subject.
func (m *Machine) SelectBranch(name string) error {
	if m.view != ViewBranches {
		return m.invalid("select branch")
	}
	branch, ok := m.subject.Child(name, catalog.LevelBranch)
	if !ok {
		return fmt.Errorf("branch %q: %w", name, ErrNotFound)
	}

	m.branch = branch
	m.chapters = branch.Children()
	m.view = ViewChapters
	return nil
}

// SelectChapter opens the named chapter. It is valid in the chapters view
// and, for chapters sitting directly under a branched subject, in the
// branches view.
func (m *Machine) SelectChapter(name string) error {
	var parent *catalog.Node
	switch m.view {
	case ViewChapters:
		parent = m.subject
		if m.branch != nil {
			parent = m.branch
		}
	case ViewBranches:
		parent = m.subject
	default:
		return m.invalid("select chapter")
	}

	chapter, ok := parent.Child(name, catalog.LevelChapter)
	if !ok {
		return fmt.Errorf("chapter %q: %w", name, ErrNotFound)
	}

	m.chapter = chapter
	m.videos = chapter.Entries()
	m.view = ViewVideos
	return nil
}

// SelectEntry opens the player on the entry with the given ID.
func (m *Machine) SelectEntry(id string) error {
	if m.view != ViewVideos {
		return m.invalid("select entry")
	}
	for _, e := range m.videos {
		if e.ID == id {
			m.entry = e
			m.view = ViewPlayer
			return nil
		}
	}
	return fmt.Errorf("entry %q: %w", id, ErrNotFound)
}

// Back pops one level. From subjects it behaves like ChangeFolder.
func (m *Machine) Back() error {
	switch m.view {
	case ViewPlayer:
		m.entry = nil
		m.view = ViewVideos

	case ViewVideos:
		m.chapter = nil
		m.videos = nil
		switch {
		case m.branch != nil:
			m.view = ViewChapters
		case hasBranches(m.subject):
			m.view = ViewBranches
		default:
			m.view = ViewChapters
		}

	case ViewChapters:
		m.chapters = nil
		if m.branch != nil {
			m.branch = nil
			m.view = ViewBranches
			return nil
		}
		m.subject = nil
		m.view = ViewSubjects

	case ViewBranches:
		m.subject = nil
		m.branches = nil
		m.view = ViewSubjects

	case ViewSubjects:
		return m.ChangeFolder()

	default:
		return m.invalid("back")
	}
	return nil
}

// ChangeFolder discards the catalog, releasing its playback URLs, and
// returns to folder-select. Only valid from subjects.
func (m *Machine) ChangeFolder() error {
	if m.view != ViewSubjects {
		return m.invalid("change folder")
	}
	m.discard()
	return nil
}

// Close releases whatever catalog is loaded regardless of view. The machine
// ends in folder-select.
func (m *Machine) Close() {
	m.discard()
}

func (m *Machine) discard() {
	if m.cat != nil {
		n := m.cat.Release(m.revoker)
		vlog.Vlogger.Infof("Released catalog %q (%d URLs revoked)", m.cat.Root, n)
	}
	*m = Machine{view: ViewFolderSelect, revoker: m.revoker}
}

// Breadcrumbs returns the root label followed by the selected names.
func (m *Machine) Breadcrumbs() []string {
	if m.view == ViewFolderSelect || m.cat == nil {
		return nil
	}
	crumbs := []string{m.cat.Root}
	for _, n := range []*catalog.Node{m.subject, m.branch, m.chapter} {
		if n != nil {
			crumbs = append(crumbs, n.Name)
		}
	}
	if m.entry != nil {
		crumbs = append(crumbs, m.entry.Name)
	}
	return crumbs
}

// Check verifies that the selections agree with the view.
func (m *Machine) Check() error {
	want := func(cond bool, what string) error {
		if !cond {
			return fmt.Errorf("view %s: %s", m.view, what)
		}
		return nil
	}

	var errs []error
	switch m.view {
	case ViewFolderSelect:
		errs = append(errs, want(m.cat == nil && m.subject == nil && m.branch == nil && m.chapter == nil && m.entry == nil, "no catalog or selection expected"))
	case ViewSubjects:
		errs = append(errs, want(m.cat != nil, "catalog expected"),
			want(m.subject == nil && m.branch == nil && m.chapter == nil && m.entry == nil, "no selection expected"))
	case ViewBranches:
		errs = append(errs, want(m.subject != nil, "subject expected"),
			want(m.branch == nil && m.chapter == nil && m.entry == nil, "only subject expected"))
	case ViewChapters:
		errs = append(errs, want(m.subject != nil, "subject expected"),
			want(m.chapter == nil && m.entry == nil, "no chapter or entry expected"))
	case ViewVideos:
		errs = append(errs, want(m.subject != nil && m.chapter != nil, "subject and chapter expected"),
			want(m.entry == nil, "no entry expected"))
	case ViewPlayer:
		errs = append(errs, want(m.subject != nil && m.chapter != nil && m.entry != nil, "full selection expected"))
	}
	return errors.Join(errs...)
}

func (m *Machine) invalid(trigger string) error {
	return fmt.Errorf("%s from %s: %w", trigger, m.view, ErrInvalidTransition)
}

func hasBranches(n *catalog.Node) bool {
	if n == nil {
		return false
	}
	for _, c := range n.Children() {
		if c.Level == catalog.LevelBranch {
			return true
		}
	}
	return false
}
