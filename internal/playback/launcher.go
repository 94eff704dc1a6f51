package playback

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/jdefrancesco/vidshelf/internal/vlog"
)

// Launcher starts an external player on a playback URL.
type Launcher struct {
	name string
	args []string
}

// NewLauncher parses command, e.g. "mpv --fs". An empty command disables it.
func NewLauncher(command string) *Launcher {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return &Launcher{}
	}
	return &Launcher{name: fields[0], args: fields[1:]}
}

// Enabled reports whether a player command is configured.
func (l *Launcher) Enabled() bool { return l != nil && l.name != "" }

// Command returns the configured player name.
func (l *Launcher) Command() string {
	if l == nil {
		return ""
	}
	return l.name
}

// Launch starts the player without waiting for it to exit.
func (l *Launcher) Launch(url string) error {
	if !l.Enabled() {
		return nil
	}

	args := append(append([]string(nil), l.args...), url)
	// #nosec G204 -- the player command is chosen by the local user
	cmd := exec.Command(l.name, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start player %s: %w", l.name, err)
	}
	vlog.Vlogger.Infof("Started %s (pid %d) for %s", l.name, cmd.Process.Pid, url)

	go func() {
		if err := cmd.Wait(); err != nil {
			vlog.Vlogger.Debugf("Player %s exited: %v", l.name, err)
		}
	}()
	return nil
}
