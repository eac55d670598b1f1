// Package changelog renders release notes from changesets and prepends them to a
// package's changelog file.
package changelog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kingrea/mol/internal/changeset"
	"github.com/kingrea/mol/internal/version"
)

// DefaultFileName is the changelog written next to each manifest.
const DefaultFileName = "CHANGELOG.md"

// Changelog writes one file per package.
type Changelog[V version.Versioned[V]] struct {
	FileName string
}

// New returns a changelog using fileName, or DefaultFileName when empty.
func New[V version.Versioned[V]](fileName string) *Changelog[V] {
	if strings.TrimSpace(fileName) == "" {
		fileName = DefaultFileName
	}
	return &Changelog[V]{FileName: fileName}
}

// Path returns the changelog location for a manifest.
func (c *Changelog[V]) Path(manifestPath string) string {
	return filepath.Join(filepath.Dir(manifestPath), c.FileName)
}

// Render formats the release entry of name at next. Changes are grouped by the
// magnitude the changeset requested for name, strongest first.
func (c *Changelog[V]) Render(name, next string, changesets []changeset.Changeset[V]) string {
	groups := make(map[V][]string)
	var order []V
	for _, cs := range changesets {
		magnitude, ok := cs.Packages[name]
		if !ok {
			continue
		}
		if _, seen := groups[magnitude]; !seen {
			order = append(order, magnitude)
		}
		groups[magnitude] = append(groups[magnitude], bullet(cs.Message))
	}
	sort.SliceStable(order, func(i, j int) bool {
		return order[i].Compare(order[j]) > 0
	})

	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n", next)
	for _, magnitude := range order {
		fmt.Fprintf(&b, "\n### %s Changes\n\n", capitalize(magnitude.String()))
		b.WriteString(strings.Join(groups[magnitude], "\n"))
	}
	return b.String()
}

// Write keeps the first line of the existing file as its title and inserts entry
// right below it. A missing file starts with "# <name>".
func (c *Changelog[V]) Write(path, name, entry string) error {
	existing, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		existing = []byte("# " + name + "\n")
	case err != nil:
		return fmt.Errorf("changelog: read %s: %w", path, err)
	}

	title, rest, _ := strings.Cut(string(existing), "\n")
	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n\n")
	b.WriteString(entry)
	b.WriteString(rest)

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("changelog: write %s: %w", path, err)
	}
	return nil
}

func bullet(message string) string {
	lines := strings.Split(message, "\n")
	var b strings.Builder
	b.WriteString("- ")
	b.WriteString(lines[0])
	b.WriteString("\n")
	for _, line := range lines[1:] {
		b.WriteString("  ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
