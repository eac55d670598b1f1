package changeset

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kingrea/mol/internal/version"
)

const (
	// DefaultDir is the changeset directory relative to the workspace root.
	DefaultDir = ".changeset"
	// ReadmeName is the reserved documentation file inside the directory.
	ReadmeName = "README.md"

	readmeContent = "# Changesets directory\n\nThis directory is for changeset files, they can be created with `mol add`\n"
)

// Directory is the on-disk home of pending changesets.
type Directory struct {
	Path string
}

// Entry pairs a parsed changeset with the file it came from.
type Entry[V version.Versioned[V]] struct {
	Path      string
	Changeset Changeset[V]
}

// NewDirectory returns the changeset directory for a workspace root.
func NewDirectory(root, name string) Directory {
	if strings.TrimSpace(name) == "" {
		name = DefaultDir
	}
	if filepath.IsAbs(name) {
		return Directory{Path: filepath.Clean(name)}
	}
	return Directory{Path: filepath.Join(root, name)}
}

// ReadmePath returns the reserved README location.
func (d Directory) ReadmePath() string {
	return filepath.Join(d.Path, ReadmeName)
}

// Validate reports whether the directory has been initialized.
func (d Directory) Validate() bool {
	info, err := os.Stat(d.Path)
	if err != nil || !info.IsDir() {
		return false
	}
	_, err = os.Stat(d.ReadmePath())
	return err == nil
}

// Initialize creates the directory and its README.
func (d Directory) Initialize() error {
	if err := os.MkdirAll(d.Path, 0o755); err != nil {
		return fmt.Errorf("changeset: create %s: %w", d.Path, err)
	}
	if err := os.WriteFile(d.ReadmePath(), []byte(readmeContent), 0o644); err != nil {
		return fmt.Errorf("changeset: write %s: %w", d.ReadmePath(), err)
	}
	return nil
}

// NewPath picks an unused random file name inside the directory.
func (d Directory) NewPath() string {
	for attempt := 0; attempt < 16; attempt++ {
		path := filepath.Join(d.Path, RandomFileName())
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return path
		}
	}
	// Two-word space is large; fall back to a three-word name.
	name := strings.TrimSuffix(RandomFileName(), Extension) + "-" + RandomFileName()
	return filepath.Join(d.Path, name)
}

// Load parses every changeset file in the directory, sorted by path. The first
// unreadable or malformed file aborts the load.
func Load[V version.Versioned[V]](d Directory) ([]Entry[V], error) {
	dirEntries, err := os.ReadDir(d.Path)
	if err != nil {
		return nil, fmt.Errorf("changeset: read directory %s: %w", d.Path, err)
	}
	var entries []Entry[V]
	for _, dirEntry := range dirEntries {
		if dirEntry.IsDir() || !IsChangesetFile(dirEntry.Name()) {
			continue
		}
		path := filepath.Join(d.Path, dirEntry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("changeset: read %s: %w", path, err)
		}
		parsed, err := Parse[V](data)
		if err != nil {
			return nil, fmt.Errorf("changeset: parse %s: %w", path, err)
		}
		entries = append(entries, Entry[V]{Path: path, Changeset: parsed})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

// IsChangesetFile reports whether a file name inside the directory is a changeset.
func IsChangesetFile(name string) bool {
	return filepath.Ext(name) == Extension && name != ReadmeName
}
