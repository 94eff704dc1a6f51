// Package session is the top-level controller. It owns the navigation
// machine and the playback registry and applies the folder selection error
// policy.
package session

import (
	"context"
	"errors"

	"github.com/jdefrancesco/vidshelf/internal/catalog"
	"github.com/jdefrancesco/vidshelf/internal/config"
	"github.com/jdefrancesco/vidshelf/internal/nav"
	"github.com/jdefrancesco/vidshelf/internal/playback"
	"github.com/jdefrancesco/vidshelf/internal/selector"
	"github.com/jdefrancesco/vidshelf/internal/vlog"
)

// Messages shown to the user for selection failures.
const (
	MsgSelectionFailed = "Unable to read the selected folder. Check the path and permissions and try again."
	MsgEmptyCatalog    = "No videos found. Expected <folder>/<subject>/<chapter>/<video>."
)

// userError carries a friendly message while keeping the cause for errors.Is.
type userError struct {
	msg   string
	cause error
}

func (e *userError) Error() string { return e.msg }
func (e *userError) Unwrap() error { return e.cause }

// Session is one run of the browser.
type Session struct {
	cfg      config.Config
	registry *playback.Registry
	launcher *playback.Launcher
	machine  *nav.Machine
}

// New returns a session in folder-select.
func New(cfg config.Config, reg *playback.Registry, launcher *playback.Launcher) *Session {
	return &Session{
		cfg:      cfg,
		registry: reg,
		launcher: launcher,
		machine:  nav.New(reg),
	}
}

// Machine exposes the state machine to the views.
func (s *Session) Machine() *nav.Machine { return s.machine }

// Config returns the session configuration.
func (s *Session) Config() config.Config { return s.cfg }

// Registry returns the playback registry.
func (s *Session) Registry() *playback.Registry { return s.registry }

// Selector builds the directory selector for root using the session config.
func (s *Session) Selector(root string) selector.Selector {
	return selector.DirSelector{
		Root:        root,
		SkipHidden:  s.cfg.SkipHidden,
		MaxFileSize: s.cfg.MaxFileSize,
	}
}

// ChooseFolder runs sel, groups the result and loads it. A cancelled
// selection returns nil and leaves everything untouched, including a catalog
// that is already loaded; failures and empty catalogs are recorded on the
// machine and returned.
func (s *Session) ChooseFolder(ctx context.Context, sel selector.Selector) error {
	selection, err := sel.Select(ctx)
	return s.Apply(selection, err)
}

// discard drops the loaded catalog, if any, releasing its URLs.
func (s *Session) discard() {
	if s.machine.View() != nav.ViewFolderSelect {
		s.machine.Close()
	}
}

// Apply finishes a selection produced by a Selector. It is split from
// ChooseFolder so the TUI can walk the folder off its event loop and apply
// the result on it. Any loaded catalog is replaced only by a selection that
// was not cancelled.
func (s *Session) Apply(selection selector.Selection, err error) error {
	m := s.machine
	if errors.Is(err, selector.ErrSelectionCancelled) {
		vlog.Vlogger.Info("Folder selection cancelled by user")
		return nil
	}

	s.discard()
	if err != nil {
		vlog.Vlogger.Errorf("Folder selection failed: %v", err)
		uerr := &userError{msg: MsgSelectionFailed, cause: err}
		m.SetErr(uerr)
		return uerr
	}

	cat := catalog.Group(selection.Pairs, catalog.Options{
		Root:                selection.Root,
		Depth:               s.cfg.Depth,
		VideoExtensions:     s.cfg.VideoExtensions,
		CompanionExtensions: s.cfg.CompanionExtensions,
		Allocator:           s.registry,
	})

	if err := m.Load(cat); err != nil {
		if errors.Is(err, nav.ErrEmptyCatalog) {
			uerr := &userError{msg: MsgEmptyCatalog, cause: err}
			m.SetErr(uerr)
			return uerr
		}
		return err
	}
	return nil
}

// Play opens the player on the entry and starts the external player when
// one is configured. A player that fails to start is reported but the view
// still changes.
func (s *Session) Play(id string) error {
	if err := s.machine.SelectEntry(id); err != nil {
		return err
	}
	return s.Launch()
}

// Launch starts the external player on the current entry. It is a no-op
// outside the player view or without a configured player.
func (s *Session) Launch() error {
	entry := s.machine.Entry()
	if entry == nil || !s.launcher.Enabled() {
		return nil
	}
	if err := s.launcher.Launch(entry.URL); err != nil {
		vlog.Vlogger.Errorf("Launching player: %v", err)
		s.machine.SetErr(err)
		return err
	}
	return nil
}

// PlayerCommand names the external player, empty when none is configured.
func (s *Session) PlayerCommand() string { return s.launcher.Command() }

// Close releases the loaded catalog and every remaining URL.
func (s *Session) Close() {
	s.machine.Close()
	if n := s.registry.RevokeAll(); n > 0 {
		vlog.Vlogger.Warnf("%d playback URLs were still live at shutdown", n)
	}
}
