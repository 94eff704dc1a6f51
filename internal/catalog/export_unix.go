//go:build unix

package catalog

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// createInDir opens name relative to a handle on dir. A symlink at the final
// component is refused.
func createInDir(dir, name string) (*os.File, error) {
	if name == "" || name == "." || name == ".." || filepath.Clean(name) != name {
		return nil, fmt.Errorf("invalid export filename %q", name)
	}

	// #nosec G304 -- dir is the cleaned parent of the export path
	dirHandle, err := os.Open(dir)
	if err != nil {
		return nil, fmt.Errorf("open export directory %s: %w", dir, err)
	}
	defer dirHandle.Close()

	flags := unix.O_WRONLY | unix.O_CREAT | unix.O_TRUNC | unix.O_CLOEXEC | unix.O_NOFOLLOW
	fd, err := unix.Openat(int(dirHandle.Fd()), name, flags, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create export %s: %w", filepath.Join(dir, name), err)
	}
	return os.NewFile(uintptr(fd), filepath.Join(dir, name)), nil
}
