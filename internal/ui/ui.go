package ui

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jdefrancesco/vidshelf/internal/catalog"
	"github.com/jdefrancesco/vidshelf/internal/nav"
	"github.com/jdefrancesco/vidshelf/internal/selector"
	"github.com/jdefrancesco/vidshelf/internal/session"
	"github.com/jdefrancesco/vidshelf/internal/vfs"
	"github.com/jdefrancesco/vidshelf/internal/vlog"
	"github.com/jdefrancesco/vidshelf/internal/vwatch"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"
)

// Styles using Lip Gloss
var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")).
			Bold(true).
			Padding(0, 1)

	borderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("35")).
			Padding(0, 1)

	crumbStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	lastCrumbStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	normalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	branchStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("220")).
			Bold(true)

	selectedStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("240")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Italic(true)
)

const defaultWidth = 80

// item is one selectable row of a list view.
type item struct {
	text  string
	style lipgloss.Style
	node  *catalog.Node
	entry *catalog.Entry
}

// selectionMsg carries a finished folder walk back to the event loop.
type selectionMsg struct {
	selection selector.Selection
	err       error
}

// libraryChangedMsg reports a change below the loaded root. closed is set
// once the watcher has stopped.
type libraryChangedMsg struct {
	watcher *vwatch.Watcher
	closed  bool
}

// Model holds the state of the TUI. The navigation state itself lives in
// the session's machine; Model only keeps cursor and prompt state.
type Model struct {
	sess *session.Session

	cursor  int
	cursors map[nav.View]int

	input       string
	suggestions []vfs.Mount
	suggestion  int
	scanning    bool
	scanRoot    string
	cancelScan  context.CancelFunc

	// root is the folder behind the loaded catalog.
	root      string
	watcher   *vwatch.Watcher
	stopWatch context.CancelFunc
	changed   bool

	// selectorFor is swapped in tests.
	selectorFor func(root string) selector.Selector

	width    int
	quitting bool
}

// Program instance to allow stopping from main
var Program *tea.Program

// LaunchTUI runs the browser until the user quits.
func LaunchTUI(sess *session.Session) error {
	mounts, err := vfs.ListMounts()
	if err != nil {
		vlog.Vlogger.Warnf("Could not list mounted filesystems: %v", err)
	}

	Program = tea.NewProgram(NewModel(sess, mounts), tea.WithAltScreen())
	_, err = Program.Run()
	return err
}

// NewModel creates the initial model. The folder prompt starts with the
// configured root.
func NewModel(sess *session.Session, mounts []vfs.Mount) Model {
	return Model{
		sess:        sess,
		cursors:     make(map[nav.View]int),
		input:       sess.Config().Root,
		suggestions: mounts,
		suggestion:  -1,
		selectorFor: sess.Selector,
		width:       defaultWidth,
	}
}

// Init is called when the program starts
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case selectionMsg:
		if m.cancelScan != nil {
			m.cancelScan()
		}
		m.scanning = false
		m.cancelScan = nil
		if errors.Is(msg.err, selector.ErrSelectionCancelled) {
			// The loaded library, its watcher and the cursors stay as they were.
			_ = m.sess.Apply(msg.selection, msg.err)
			return m, nil
		}

		m.stopWatching()
		m.root = m.scanRoot
		if err := m.sess.Apply(msg.selection, msg.err); err != nil {
			vlog.Vlogger.Infof("Folder %q not loaded: %v", m.root, err)
		}
		m.cursor = 0
		m.cursors = make(map[nav.View]int)
		if m.sess.Machine().View() == nav.ViewSubjects {
			return m.startWatch()
		}
		return m, nil

	case libraryChangedMsg:
		if msg.watcher != m.watcher || msg.closed {
			return m, nil
		}
		m.changed = true
		return m, waitForChange(m.watcher)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m.quit()
		}
		if m.sess.Machine().View() == nav.ViewFolderSelect {
			return m.updatePrompt(msg)
		}
		return m.updateBrowse(msg)
	}

	return m, nil
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	if m.cancelScan != nil {
		m.cancelScan()
	}
	m.stopWatching()
	m.quitting = true
	return m, tea.Quit
}

// updatePrompt handles keys in the folder-select view.
func (m Model) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.scanning {
		// Esc aborts the walk; the cancelled selection arrives as a no-op.
		if msg.String() == "esc" && m.cancelScan != nil {
			m.cancelScan()
		}
		return m, nil
	}

	switch msg.String() {
	case "esc":
		return m.quit()

	case "enter":
		root := strings.TrimSpace(m.input)
		if root == "" {
			return m, nil
		}
		return m.scan(root)

	case "tab":
		if len(m.suggestions) > 0 {
			m.suggestion = (m.suggestion + 1) % len(m.suggestions)
			m.input = m.suggestions[m.suggestion].Dir
		}

	case "backspace":
		if len(m.input) > 0 {
			runes := []rune(m.input)
			m.input = string(runes[:len(runes)-1])
		}

	default:
		if msg.Type == tea.KeyRunes || msg.Type == tea.KeySpace {
			m.input += string(msg.Runes)
		}
	}
	return m, nil
}

// scan starts walking root off the event loop. Whatever is loaded stays
// browsable until the walk finishes without being cancelled.
func (m Model) scan(root string) (tea.Model, tea.Cmd) {
	if m.sess.Machine().View() == nav.ViewFolderSelect {
		m.sess.Machine().SetErr(nil)
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.scanRoot = root
	m.scanning = true
	m.cancelScan = cancel
	return m, scanCmd(ctx, m.selectorFor(root))
}

// startWatch watches the loaded root. A watcher that cannot start only
// costs the rescan hint.
func (m Model) startWatch() (tea.Model, tea.Cmd) {
	ctx, cancel := context.WithCancel(context.Background())
	w, err := vwatch.New(ctx, m.root, m.sess.Config().SkipHidden, vwatch.DefaultDebounce)
	if err != nil {
		cancel()
		vlog.Vlogger.Warnf("Not watching %s: %v", m.root, err)
		return m, nil
	}
	m.watcher = w
	m.stopWatch = cancel
	return m, waitForChange(w)
}

// stopWatching ends the current watcher, if any.
func (m *Model) stopWatching() {
	if m.stopWatch != nil {
		m.stopWatch()
	}
	m.watcher = nil
	m.stopWatch = nil
	m.changed = false
}

func waitForChange(w *vwatch.Watcher) tea.Cmd {
	return func() tea.Msg {
		_, ok := <-w.Changes()
		return libraryChangedMsg{watcher: w, closed: !ok}
	}
}

func scanCmd(ctx context.Context, sel selector.Selector) tea.Cmd {
	return func() tea.Msg {
		selection, err := sel.Select(ctx)
		return selectionMsg{selection: selection, err: err}
	}
}

// updateBrowse handles keys in every view past folder-select.
func (m Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	machine := m.sess.Machine()
	items := m.items()

	if m.scanning {
		switch msg.String() {
		case "q":
			return m.quit()
		case "esc":
			m.cancelScan()
		}
		return m, nil
	}

	switch msg.String() {
	case "q":
		return m.quit()

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < len(items)-1 {
			m.cursor++
		}

	case "enter", "l", "right":
		if machine.View() == nav.ViewPlayer || m.cursor >= len(items) {
			return m, nil
		}
		from := machine.View()
		if err := m.choose(items[m.cursor]); err != nil {
			vlog.Vlogger.Debugf("Select in %s failed: %v", from, err)
			return m, nil
		}
		m.cursors[from] = m.cursor
		m.cursor = 0

	case "backspace", "h", "left", "esc":
		machine.SetErr(nil)
		if err := machine.Back(); err != nil {
			vlog.Vlogger.Debugf("Back failed: %v", err)
			return m, nil
		}
		if machine.View() == nav.ViewFolderSelect {
			m.stopWatching()
		}
		m.cursor = m.cursors[machine.View()]
		delete(m.cursors, machine.View())

	case "c":
		if machine.View() == nav.ViewSubjects {
			if err := machine.ChangeFolder(); err == nil {
				m.stopWatching()
				m.cursor = 0
				m.cursors = make(map[nav.View]int)
			}
		}

	case "r":
		if m.root != "" {
			return m.scan(m.root)
		}

	case "o":
		if machine.View() == nav.ViewPlayer {
			_ = m.sess.Launch()
		}
	}
	return m, nil
}

// choose applies the transition for the row under the cursor.
func (m Model) choose(it item) error {
	machine := m.sess.Machine()
	switch machine.View() {
	case nav.ViewSubjects:
		return machine.SelectSubject(it.node.Name)
	case nav.ViewBranches:
		if it.node.Level == catalog.LevelBranch {
			return machine.SelectBranch(it.node.Name)
		}
		return machine.SelectChapter(it.node.Name)
	case nav.ViewChapters:
		return machine.SelectChapter(it.node.Name)
	case nav.ViewVideos:
		return m.sess.Play(it.entry.ID)
	}
	return fmt.Errorf("nothing to select in %s", machine.View())
}

// items builds the rows of the active list view.
func (m Model) items() []item {
	machine := m.sess.Machine()
	var rows []item

	nodeRows := func(nodes []*catalog.Node) {
		for _, n := range nodes {
			rows = append(rows, nodeItem(n))
		}
	}

	switch machine.View() {
	case nav.ViewSubjects:
		nodeRows(machine.Subjects())
	case nav.ViewBranches:
		nodeRows(machine.Branches())
	case nav.ViewChapters:
		nodeRows(machine.Chapters())
	case nav.ViewVideos:
		for _, e := range machine.Videos() {
			text := fmt.Sprintf("%s  %s", e.Name, humanize.IBytes(uint64(max(e.Size(), 0)))) // #nosec G115
			if len(e.Companions) > 0 {
				text += fmt.Sprintf("  [+%d doc]", len(e.Companions))
			}
			rows = append(rows, item{text: text, style: normalStyle, entry: e})
		}
	}
	return rows
}

func nodeItem(n *catalog.Node) item {
	switch n.Level {
	case catalog.LevelChapter:
		return item{text: fmt.Sprintf("%s (%d videos)", n.Name, len(n.Entries())), style: normalStyle, node: n}
	case catalog.LevelBranch:
		return item{text: fmt.Sprintf("▶ %s (%d chapters)", n.Name, len(n.Children())), style: branchStyle, node: n}
	}
	return item{text: fmt.Sprintf("%s (%d chapters, %d videos)", n.Name, len(n.Children()), n.EntryCount()), style: normalStyle, node: n}
}

// View renders the UI
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	machine := m.sess.Machine()
	var b strings.Builder

	b.WriteString(titleStyle.Render(heading(machine)) + "\n")
	if crumbs := machine.Breadcrumbs(); len(crumbs) > 0 {
		b.WriteString(renderBreadcrumbs(crumbs) + "\n")
	}
	b.WriteString("\n")

	switch machine.View() {
	case nav.ViewFolderSelect:
		b.WriteString(m.renderPrompt())
	case nav.ViewPlayer:
		b.WriteString(m.renderPlayer())
	default:
		b.WriteString(m.renderList())
	}

	if err := machine.Err(); err != nil {
		b.WriteString("\n" + errorStyle.Render(err.Error()) + "\n")
	} else if m.scanning && machine.View() != nav.ViewFolderSelect {
		b.WriteString("\n" + helpStyle.Render("Rescanning "+filepath.Clean(m.scanRoot)+"... (esc=cancel)") + "\n")
	} else if m.changed {
		b.WriteString("\n" + branchStyle.Render("Library changed on disk, press r to rescan") + "\n")
	}

	b.WriteString("\n" + helpStyle.Render(helpFor(machine.View())))
	return borderStyle.Render(b.String())
}

func heading(machine *nav.Machine) string {
	switch machine.View() {
	case nav.ViewFolderSelect:
		return "vidshelf: Select a video folder"
	case nav.ViewSubjects:
		return "Choose Subject"
	case nav.ViewBranches:
		return machine.Subject().Name + " Branches"
	case nav.ViewChapters:
		return "Chapters"
	case nav.ViewVideos:
		return machine.Chapter().Name
	case nav.ViewPlayer:
		return "Now Playing"
	}
	return "vidshelf"
}

func helpFor(v nav.View) string {
	switch v {
	case nav.ViewFolderSelect:
		return "[enter=scan, tab=next mount, esc=cancel scan/quit]"
	case nav.ViewSubjects:
		return "[↑↓=navigate, enter=open, r=rescan, c=change folder, backspace=back, q=quit]"
	case nav.ViewPlayer:
		return "[o=open player again, backspace=back, q=quit]"
	}
	return "[↑↓=navigate, enter=open, backspace=back, q=quit]"
}

func renderBreadcrumbs(crumbs []string) string {
	parts := make([]string, len(crumbs))
	for i, c := range crumbs {
		if i == len(crumbs)-1 {
			parts[i] = lastCrumbStyle.Render(c)
		} else {
			parts[i] = crumbStyle.Render(c)
		}
	}
	return strings.Join(parts, crumbStyle.Render(" › "))
}

func (m Model) renderPrompt() string {
	var b strings.Builder
	b.WriteString("Folder: " + m.input)
	if m.scanning {
		b.WriteString("\n\n" + helpStyle.Render("Scanning "+filepath.Clean(m.input)+"..."))
	} else {
		b.WriteString("█")
	}

	if len(m.suggestions) > 0 {
		b.WriteString("\n\nMounted filesystems:\n")
		for i, mnt := range m.suggestions {
			line := fmt.Sprintf("  %s (%s, %s free)", mnt.Dir, mnt.Type, humanize.IBytes(mnt.Avail))
			if i == m.suggestion {
				line = selectedStyle.Render(line)
			}
			b.WriteString(line + "\n")
		}
	}
	return b.String()
}

func (m Model) renderList() string {
	items := m.items()
	if len(items) == 0 {
		return helpStyle.Render("(empty)") + "\n"
	}

	limit := max(m.width-8, 20)
	var b strings.Builder
	for i, it := range items {
		text := runewidth.Truncate(it.text, limit, "…")
		style := it.style
		if i == m.cursor {
			style = style.Inherit(selectedStyle)
			text = "> " + text
		} else {
			text = "  " + text
		}
		b.WriteString(style.Render(text) + "\n")
	}
	return b.String()
}

func (m Model) renderPlayer() string {
	machine := m.sess.Machine()
	entry := machine.Entry()

	var b strings.Builder
	b.WriteString(lastCrumbStyle.Render(entry.Name) + "\n")

	where := []string{machine.Subject().Name}
	if machine.Branch() != nil {
		where = append(where, machine.Branch().Name)
	}
	where = append(where, machine.Chapter().Name)
	b.WriteString(crumbStyle.Render(strings.Join(where, " • ")) + "\n\n")

	b.WriteString("Stream: " + entry.URL + "\n")
	for _, comp := range entry.Companions {
		b.WriteString("Doc:    " + comp.Name + "  " + comp.URL + "\n")
	}

	if cmd := m.sess.PlayerCommand(); cmd != "" {
		b.WriteString("\n" + helpStyle.Render("Playing with "+cmd))
	} else {
		b.WriteString("\n" + helpStyle.Render("Open the stream URL in any video player"))
	}
	return b.String()
}
