package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// FilesystemArchive keeps reports in a local directory. It is the
// default when no storage account is configured.
type FilesystemArchive struct {
	dir string
}

// Ensure FilesystemArchive implements Interface
var _ Interface = (*FilesystemArchive)(nil)

// NewFilesystemArchive creates the directory if needed.
func NewFilesystemArchive(dir string) (*FilesystemArchive, error) {
	if dir == "" {
		return nil, fmt.Errorf("archive directory is required")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating archive directory: %w", err)
	}

	return &FilesystemArchive{dir: dir}, nil
}

// Store writes a report file.
func (a *FilesystemArchive) Store(name string, data []byte) error {
	path, err := a.path(name)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}

	logrus.Infof("Archived %s to %s", name, a.dir)
	return nil
}

// Retrieve reads an archived report.
func (a *FilesystemArchive) Retrieve(name string) ([]byte, error) {
	path, err := a.path(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}

	return data, nil
}

// List returns the archived report names under the prefix, sorted.
func (a *FilesystemArchive) List(prefix string) ([]string, error) {
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		return nil, fmt.Errorf("listing archive directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasPrefix(entry.Name(), prefix) {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	return names, nil
}

// Delete removes an archived report.
func (a *FilesystemArchive) Delete(name string) error {
	path, err := a.path(name)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("deleting %s: %w", name, err)
	}

	return nil
}

// path rejects names that would escape the archive directory.
func (a *FilesystemArchive) path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) {
		return "", fmt.Errorf("invalid archive name %q", name)
	}
	return filepath.Join(a.dir, name), nil
}
