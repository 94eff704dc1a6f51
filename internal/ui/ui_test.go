package ui

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jdefrancesco/vidshelf/internal/catalog"
	"github.com/jdefrancesco/vidshelf/internal/config"
	"github.com/jdefrancesco/vidshelf/internal/nav"
	"github.com/jdefrancesco/vidshelf/internal/playback"
	"github.com/jdefrancesco/vidshelf/internal/selector"
	"github.com/jdefrancesco/vidshelf/internal/session"
	"github.com/jdefrancesco/vidshelf/internal/vfs"

	tea "github.com/charmbracelet/bubbletea"
)

type blob struct {
	name string
	size int64
}

func (b blob) Name() string { return b.name }
func (b blob) Size() int64  { return b.size }
func (b blob) Open() (io.ReadSeekCloser, error) {
	return nopCloser{bytes.NewReader(nil)}, nil
}

type nopCloser struct{ *bytes.Reader }

func (nopCloser) Close() error { return nil }

var library = []catalog.Pair{
	{RelPath: "shelf/Math/Algebra/lec1.mp4", Source: blob{"lec1.mp4", 2048}},
	{RelPath: "shelf/Math/Algebra/lec1.pdf", Source: blob{"lec1.pdf", 10}},
	{RelPath: "shelf/Math/Algebra/lec2.mp4", Source: blob{"lec2.mp4", 4096}},
	{RelPath: "shelf/Physics/Waves/intro.webm", Source: blob{"intro.webm", 1}},
}

func newModel(t *testing.T, sel selector.Selector) (Model, *session.Session) {
	t.Helper()
	cfg := config.Default()
	cfg.Root = "shelf"
	sess := session.New(cfg, playback.NewRegistry("http://127.0.0.1:8765"), playback.NewLauncher(""))
	t.Cleanup(sess.Close)

	m := NewModel(sess, []vfs.Mount{{Dir: "/", Type: "ext4"}, {Dir: "/media/usb", Type: "vfat"}})
	m.selectorFor = func(string) selector.Selector { return sel }
	return m, sess
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEscape}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press feeds keys to the model, running any command that reports a
// finished folder walk.
func press(t *testing.T, m Model, keys ...string) Model {
	t.Helper()
	for _, k := range keys {
		next, cmd := m.Update(key(k))
		m = next.(Model)
		if cmd == nil {
			continue
		}
		if msg, ok := cmd().(selectionMsg); ok {
			next, _ = m.Update(msg)
			m = next.(Model)
		}
	}
	return m
}

func TestScanLoadsSubjects(t *testing.T) {
	m, sess := newModel(t, selector.PairSelector{Root: "shelf", Pairs: library})

	m = press(t, m, "enter")
	if m.scanning {
		t.Fatal("scan flag still set after selection applied")
	}
	if v := sess.Machine().View(); v != nav.ViewSubjects {
		t.Fatalf("view = %s; want subjects", v)
	}

	out := m.View()
	for _, want := range []string{"Choose Subject", "Math", "Physics"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q:\n%s", want, out)
		}
	}
}

func TestNavigateToPlayerAndBack(t *testing.T) {
	m, sess := newModel(t, selector.PairSelector{Root: "shelf", Pairs: library})
	m = press(t, m, "enter", "enter", "enter", "j", "enter")

	machine := sess.Machine()
	if machine.View() != nav.ViewPlayer {
		t.Fatalf("view = %s; want player", machine.View())
	}
	if got := machine.Entry().Name; got != "lec2.mp4" {
		t.Fatalf("entry = %q; want lec2.mp4", got)
	}
	out := m.View()
	if !strings.Contains(out, machine.Entry().URL) {
		t.Errorf("player view does not show stream URL:\n%s", out)
	}

	m = press(t, m, "backspace")
	if machine.View() != nav.ViewVideos || machine.Entry() != nil {
		t.Fatalf("back from player: view = %s, entry = %v", machine.View(), machine.Entry())
	}
	if m.cursor != 1 {
		t.Errorf("cursor = %d; want restored to 1", m.cursor)
	}

	m = press(t, m, "h", "h")
	if machine.View() != nav.ViewSubjects || machine.Subject() != nil {
		t.Fatalf("view = %s, subject = %v", machine.View(), machine.Subject())
	}
}

func TestCompanionShownInPlayer(t *testing.T) {
	m, sess := newModel(t, selector.PairSelector{Root: "shelf", Pairs: library})
	m = press(t, m, "enter", "enter", "enter", "enter")

	if sess.Machine().View() != nav.ViewPlayer {
		t.Fatalf("view = %s", sess.Machine().View())
	}
	if out := m.View(); !strings.Contains(out, "lec1.pdf") {
		t.Errorf("companion missing from player view:\n%s", out)
	}
}

func TestChangeFolderReleasesURLs(t *testing.T) {
	m, sess := newModel(t, selector.PairSelector{Root: "shelf", Pairs: library})
	m = press(t, m, "enter")
	if sess.Registry().Len() == 0 {
		t.Fatal("no URLs allocated after load")
	}

	m = press(t, m, "c")
	if sess.Machine().View() != nav.ViewFolderSelect {
		t.Fatalf("view = %s; want folder-select", sess.Machine().View())
	}
	if n := sess.Registry().Len(); n != 0 {
		t.Fatalf("%d URLs still live after change folder", n)
	}
	if m.cursor != 0 {
		t.Errorf("cursor = %d", m.cursor)
	}
}

func TestFailedScanShowsMessage(t *testing.T) {
	m, sess := newModel(t, selector.PairSelector{Err: errors.New("permission denied")})
	m = press(t, m, "enter")

	if sess.Machine().View() != nav.ViewFolderSelect {
		t.Fatalf("view = %s", sess.Machine().View())
	}
	if out := m.View(); !strings.Contains(out, session.MsgSelectionFailed) {
		t.Errorf("view missing failure message:\n%s", out)
	}
}

func TestEmptyScanShowsMessage(t *testing.T) {
	pairs := []catalog.Pair{{RelPath: "shelf/readme.txt", Source: blob{"readme.txt", 1}}}
	m, _ := newModel(t, selector.PairSelector{Root: "shelf", Pairs: pairs})
	m = press(t, m, "enter")

	if out := m.View(); !strings.Contains(out, session.MsgEmptyCatalog) {
		t.Errorf("view missing empty message:\n%s", out)
	}
}

func TestPromptEditing(t *testing.T) {
	m, _ := newModel(t, selector.PairSelector{})

	m = press(t, m, "backspace", "backspace", "x")
	if m.input != "shex" {
		t.Fatalf("input = %q", m.input)
	}

	m = press(t, m, "tab", "tab")
	if m.input != "/media/usb" {
		t.Fatalf("tab completion = %q; want /media/usb", m.input)
	}
	m = press(t, m, "tab")
	if m.input != "/" {
		t.Fatalf("tab should wrap, got %q", m.input)
	}
}

func TestQuitKeys(t *testing.T) {
	for _, k := range []string{"esc", "ctrl+c"} {
		m, _ := newModel(t, selector.PairSelector{})
		next, cmd := m.Update(key(k))
		if !next.(Model).quitting || cmd == nil {
			t.Errorf("%s did not quit", k)
		}
		if next.View() != "" {
			t.Errorf("%s: view after quit should be empty", k)
		}
	}
}

func TestWindowResizeTruncates(t *testing.T) {
	long := strings.Repeat("Subject", 20)
	pairs := []catalog.Pair{{RelPath: "shelf/" + long + "/ch/a.mp4", Source: blob{"a.mp4", 1}}}
	m, _ := newModel(t, selector.PairSelector{Root: "shelf", Pairs: pairs})
	m = press(t, m, "enter")

	next, _ := m.Update(tea.WindowSizeMsg{Width: 40, Height: 20})
	m = next.(Model)
	if strings.Contains(m.View(), long) {
		t.Error("long subject name was not truncated")
	}
}

func TestLibraryChangeOffersRescan(t *testing.T) {
	root := t.TempDir()
	m, sess := newModel(t, selector.PairSelector{Root: "shelf", Pairs: library})
	m.input = root

	next, scan := m.Update(key("enter"))
	next, wait := next.Update(scan())
	m = next.(Model)
	if wait == nil {
		t.Fatal("no watcher started after load")
	}
	t.Cleanup(func() { m.quit() })

	if err := os.WriteFile(filepath.Join(root, "new.mp4"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	next, _ = m.Update(wait())
	m = next.(Model)
	if !m.changed || !strings.Contains(m.View(), "press r to rescan") {
		t.Fatalf("change not shown:\n%s", m.View())
	}

	m = press(t, m, "r")
	if m.changed || m.scanning {
		t.Fatalf("rescan left changed=%v scanning=%v", m.changed, m.scanning)
	}
	if sess.Machine().View() != nav.ViewSubjects {
		t.Fatalf("view = %s after rescan", sess.Machine().View())
	}
}


func TestCancelledRescanKeepsLibrary(t *testing.T) {
	m, sess := newModel(t, selector.PairSelector{Root: "shelf", Pairs: library})
	m = press(t, m, "enter", "j")
	cat := sess.Machine().Catalog()
	live := sess.Registry().Len()

	next, scan := m.Update(key("r"))
	m = next.(Model)
	if !m.scanning || scan == nil {
		t.Fatal("r did not start a rescan")
	}
	if !strings.Contains(m.View(), "Rescanning") || !strings.Contains(m.View(), "Physics") {
		t.Fatalf("library hidden while rescanning:\n%s", m.View())
	}

	// Navigation waits for the walk; esc aborts it.
	next, _ = m.Update(key("enter"))
	next, _ = next.Update(key("esc"))
	next, _ = next.Update(scan())
	m = next.(Model)

	machine := sess.Machine()
	if m.scanning || machine.View() != nav.ViewSubjects {
		t.Fatalf("scanning = %v, view = %s; want subjects", m.scanning, machine.View())
	}
	if machine.Catalog() != cat || cat.Released() {
		t.Fatal("cancelled rescan replaced the loaded catalog")
	}
	if got := sess.Registry().Len(); got != live {
		t.Fatalf("live URLs = %d; want %d", got, live)
	}
	if m.cursor != 1 {
		t.Fatalf("cursor = %d; want 1", m.cursor)
	}
}
