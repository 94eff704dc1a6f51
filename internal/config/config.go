package config

import (
	"fmt"
	"strings"
)

// Depth is the number of grouping levels between the root folder and a video.
type Depth int

const (
	// Depth2 is root/subject/chapter/video.
	Depth2 Depth = 2
	// Depth3 is root/subject/branch/chapter/video.
	Depth3 Depth = 3
)

// DefaultVideoExtensions is the playable allow-list, lower-case and without dots.
var DefaultVideoExtensions = []string{"mp4", "webm", "avi", "mov", "mkv", "flv", "m4v"}

// DefaultCompanionExtensions are documents attached to a video sharing its base name.
var DefaultCompanionExtensions = []string{"pdf"}

type Config struct {
	// Root folder offered in the folder prompt.
	Root string
	// Hierarchy depth, Depth2 or Depth3.
	Depth Depth
	// SkipHidden controls whether hidden dotfiles and directories are skipped.
	SkipHidden bool
	// Files at or over this size are ignored. Zero disables the limit.
	MaxFileSize uint64
	// ListenAddr is where the playback server binds.
	ListenAddr string
	// PlayerCmd is an external player started with the playback URL.
	PlayerCmd string
	LogFile   string
	LogLevel  string
	// Export paths, empty to skip.
	JSONOut string
	CSVOut  string
	// ListOnly prints the catalog tree instead of launching the TUI.
	ListOnly bool
	// Extension allow-lists.
	VideoExtensions     []string
	CompanionExtensions []string
}

// Default returns a Config with every field set to its default value.
func Default() Config {
	return Config{
		Root:                ".",
		Depth:               Depth2,
		SkipHidden:          true,
		ListenAddr:          "127.0.0.1:8765",
		LogFile:             "vidshelf.log",
		VideoExtensions:     append([]string(nil), DefaultVideoExtensions...),
		CompanionExtensions: append([]string(nil), DefaultCompanionExtensions...),
	}
}

// ParseDepth converts a flag value into a Depth.
func ParseDepth(n int) (Depth, error) {
	switch Depth(n) {
	case Depth2, Depth3:
		return Depth(n), nil
	}
	return 0, fmt.Errorf("unsupported depth %d (want 2 or 3)", n)
}

// ParseExtensions splits a comma separated list, normalising case and
// stripping leading dots. Empty items are dropped.
func ParseExtensions(list string) []string {
	var exts []string
	for _, item := range strings.Split(list, ",") {
		item = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(item), "."))
		if item != "" {
			exts = append(exts, item)
		}
	}
	return exts
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if _, err := ParseDepth(int(c.Depth)); err != nil {
		return err
	}
	if strings.TrimSpace(c.ListenAddr) == "" {
		return fmt.Errorf("listen address is empty")
	}
	if len(c.VideoExtensions) == 0 {
		return fmt.Errorf("video extension list is empty")
	}
	return nil
}
