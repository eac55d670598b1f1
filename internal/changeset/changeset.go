// Package changeset reads and writes changeset notes: a `---` fenced header of
// `"package": magnitude` lines followed by a free-text message.
package changeset

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/kingrea/mol/internal/version"
)

const fence = "---"

var (
	// ErrHeaderNotFound indicates the note did not open with a `---` fence.
	ErrHeaderNotFound = errors.New("changeset: header not found")
	// ErrHeaderParsing indicates a header line was not `name: magnitude`.
	ErrHeaderParsing = errors.New("changeset: header parsing error")
)

// Changeset requests a magnitude for one or more packages.
type Changeset[V version.Versioned[V]] struct {
	Packages map[string]V
	Message  string
}

// New builds a changeset bumping every named package by the same magnitude.
func New[V version.Versioned[V]](magnitude V, message string, names ...string) Changeset[V] {
	packages := make(map[string]V, len(names))
	for _, name := range names {
		packages[name] = magnitude
	}
	return Changeset[V]{Packages: packages, Message: message}
}

// Parse decodes a changeset note.
func Parse[V version.Versioned[V]](content []byte) (Changeset[V], error) {
	lines := strings.Split(string(content), "\n")
	for i := range lines {
		lines[i] = strings.TrimSuffix(lines[i], "\r")
	}

	idx := 0
	for ; idx < len(lines); idx++ {
		if lines[idx] == "" {
			continue
		}
		if lines[idx] == fence {
			break
		}
		return Changeset[V]{}, ErrHeaderNotFound
	}
	if idx == len(lines) {
		return Changeset[V]{}, ErrHeaderNotFound
	}
	idx++

	var zero V
	packages := make(map[string]V)
	for ; idx < len(lines); idx++ {
		line := lines[idx]
		if line == fence {
			idx++
			break
		}
		name, magnitude, ok := strings.Cut(line, ":")
		if !ok {
			return Changeset[V]{}, fmt.Errorf("%w: line %d: %q", ErrHeaderParsing, idx+1, line)
		}
		parsed, err := zero.Parse(strings.TrimSpace(magnitude))
		if err != nil {
			return Changeset[V]{}, fmt.Errorf("%w: line %d: %w", ErrHeaderParsing, idx+1, err)
		}
		packages[unquote(strings.TrimSpace(name))] = parsed
	}

	message := ""
	if idx < len(lines) {
		message = strings.TrimSpace(strings.Join(lines[idx:], "\n"))
	}
	return Changeset[V]{Packages: packages, Message: message}, nil
}

// Bytes renders the note with package names sorted.
func (c Changeset[V]) Bytes() []byte {
	names := make([]string, 0, len(c.Packages))
	for name := range c.Packages {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	buf.WriteString(fence + "\n")
	for _, name := range names {
		fmt.Fprintf(&buf, "\"%s\": %s\n", name, c.Packages[name])
	}
	buf.WriteString(fence + "\n\n")
	buf.WriteString(c.Message)
	buf.WriteByte('\n')
	return buf.Bytes()
}

func (c Changeset[V]) String() string {
	return string(c.Bytes())
}

// Save writes the note to path.
func (c Changeset[V]) Save(path string) error {
	if err := os.WriteFile(path, c.Bytes(), 0o644); err != nil {
		return fmt.Errorf("changeset: write %s: %w", path, err)
	}
	return nil
}

func unquote(name string) string {
	if len(name) >= 2 && strings.HasPrefix(name, `"`) && strings.HasSuffix(name, `"`) {
		return name[1 : len(name)-1]
	}
	return name
}
