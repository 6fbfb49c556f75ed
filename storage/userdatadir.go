package storage

import (
	"fmt"
	"os"
)

// Dir manages the lifetime of a browser's --user-data-dir. When the caller
// supplies a directory, Dir treats it as owned by the caller and leaves it
// in place on Cleanup; when no directory is supplied, Dir creates one under
// basePath (os.TempDir() if basePath is empty) and removes it on Cleanup.
type Dir struct {
	Dir       string
	ownedByUs bool
}

// Make sets up the directory. providedDir, if non-empty, is used as-is and
// must already exist. Otherwise a fresh temporary directory is created
// under basePath (os.TempDir() if basePath is "").
func (d *Dir) Make(basePath, providedDir string) error {
	if providedDir != "" {
		d.Dir = providedDir
		d.ownedByUs = false
		return nil
	}

	dir, err := os.MkdirTemp(basePath, "pdfcapture-browser-*")
	if err != nil {
		return fmt.Errorf("storage: creating user data directory: %w", err)
	}
	d.Dir = dir
	d.ownedByUs = true
	return nil
}

// Cleanup removes the directory if Dir created it itself. It is a no-op for
// a caller-provided directory or a zero-value Dir.
func (d *Dir) Cleanup() error {
	if d.Dir == "" || !d.ownedByUs {
		return nil
	}
	if err := os.RemoveAll(d.Dir); err != nil {
		return fmt.Errorf("storage: removing user data directory %q: %w", d.Dir, err)
	}
	return nil
}
