//go:build !unix

package catalog

import (
	"fmt"
	"os"
	"path/filepath"
)

func createInDir(dir, name string) (*os.File, error) {
	full := filepath.Join(dir, name)
	file, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create export %s: %w", full, err)
	}
	return file, nil
}
