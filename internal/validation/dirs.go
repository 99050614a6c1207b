// Package validation checks the data directories a command is about to use.
package validation

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// ErrNotDirectory is returned when a path exists but is a file.
var ErrNotDirectory = errors.New("not a directory")

// DirValidator checks input and output directories before a run.
type DirValidator struct {
	logger *slog.Logger
}

// NewDirValidator creates a validator.
func NewDirValidator(logger *slog.Logger) *DirValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &DirValidator{logger: logger.With(slog.String("component", "validation"))}
}

// InputDir verifies dir exists and is a directory.
func (v *DirValidator) InputDir(dir string) error {
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("input directory %s does not exist", dir)
	}
	if err != nil {
		return fmt.Errorf("stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s: %w", dir, ErrNotDirectory)
	}
	return nil
}

// OutputDir creates dir if needed and checks that files can be written to it.
func (v *DirValidator) OutputDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create output directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".write_test*")
	if err != nil {
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	tmp.Close()
	os.Remove(tmp.Name())

	v.logger.Debug("output directory validated", slog.String("directory", dir))
	return nil
}

// CountFiles counts regular files in dir matching a glob pattern such as
// "Min_*.txt".
func (v *DirValidator) CountFiles(dir, pattern string) (int, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", pattern, err)
	}
	n := 0
	for _, m := range matches {
		if info, err := os.Stat(m); err == nil && info.Mode().IsRegular() {
			n++
		}
	}
	return n, nil
}
