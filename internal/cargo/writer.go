package cargo

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
)

var (
	// ErrVersionNotFound indicates the manifest has no [package] version line.
	ErrVersionNotFound = errors.New("cargo: package version not found")
	// ErrDependencyNotFound indicates the dependency is not declared in [dependencies].
	ErrDependencyNotFound = errors.New("cargo: dependency not found")
)

var (
	headerPattern  = regexp.MustCompile(`^\s*\[\s*([^\[\]]+?)\s*\]\s*(#.*)?$`)
	versionPattern = regexp.MustCompile(`^(\s*version\s*=\s*)(["'])([^"']*)(["'])(.*)$`)
	inlinePattern  = regexp.MustCompile(`(\bversion\s*=\s*)(["'])([^"']*)(["'])`)
)

// Writer updates versions in place, leaving comments, ordering and unrelated
// entries untouched.
type Writer struct{}

// WriteVersion sets [package] version.
func (Writer) WriteVersion(path, version string) error {
	return edit(path, func(lines []string) ([]string, error) {
		section := ""
		for i, line := range lines {
			if name, ok := header(line); ok {
				section = name
				continue
			}
			if section != "package" {
				continue
			}
			if m := versionPattern.FindStringSubmatch(line); m != nil {
				lines[i] = m[1] + m[2] + version + m[4] + m[5]
				return lines, nil
			}
		}
		return nil, fmt.Errorf("%w: %s", ErrVersionNotFound, path)
	})
}

// WriteDependency sets the version constraint of a [dependencies] entry. String
// entries are replaced; inline tables and [dependencies.<name>] tables get their
// version key set or added.
func (Writer) WriteDependency(path, name, constraint string) error {
	entry := regexp.MustCompile(`^(\s*["']?` + regexp.QuoteMeta(name) + `["']?\s*=\s*)(.*)$`)
	return edit(path, func(lines []string) ([]string, error) {
		section := ""
		for i, line := range lines {
			if table, ok := header(line); ok {
				section = table
				if section == "dependencies."+name {
					return setTableVersion(lines, i, constraint), nil
				}
				continue
			}
			if section != "dependencies" {
				continue
			}
			m := entry.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			value, err := rewriteValue(m[2], constraint)
			if err != nil {
				return nil, fmt.Errorf("cargo: %s: dependency %s: %w", path, name, err)
			}
			lines[i] = m[1] + value
			return lines, nil
		}
		return nil, fmt.Errorf("%w: %s in %s", ErrDependencyNotFound, name, path)
	})
}

func rewriteValue(value, constraint string) (string, error) {
	switch {
	case strings.HasPrefix(value, `"`) || strings.HasPrefix(value, `'`):
		quote := value[:1]
		end := strings.Index(value[1:], quote)
		if end < 0 {
			return "", errors.New("unterminated string")
		}
		return quote + constraint + quote + value[end+2:], nil
	case strings.HasPrefix(value, "{"):
		if inlinePattern.MatchString(value) {
			return inlinePattern.ReplaceAllString(value, "${1}${2}"+strings.ReplaceAll(constraint, "$", "$$")+"${4}"), nil
		}
		rest := strings.TrimLeft(strings.TrimPrefix(value, "{"), " \t")
		if strings.HasPrefix(rest, "}") {
			return `{ version = "` + constraint + `" ` + rest, nil
		}
		return `{ version = "` + constraint + `", ` + rest, nil
	default:
		return "", fmt.Errorf("unsupported value %q", value)
	}
}

// setTableVersion updates or inserts the version key of the table whose header
// is at headerIdx.
func setTableVersion(lines []string, headerIdx int, constraint string) []string {
	for i := headerIdx + 1; i < len(lines); i++ {
		if _, ok := header(lines[i]); ok {
			break
		}
		if m := versionPattern.FindStringSubmatch(lines[i]); m != nil {
			lines[i] = m[1] + m[2] + constraint + m[4] + m[5]
			return lines
		}
	}
	out := make([]string, 0, len(lines)+1)
	out = append(out, lines[:headerIdx+1]...)
	out = append(out, `version = "`+constraint+`"`)
	return append(out, lines[headerIdx+1:]...)
}

func header(line string) (string, bool) {
	if strings.HasPrefix(strings.TrimSpace(line), "[[") {
		return "", false
	}
	m := headerPattern.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	return strings.ReplaceAll(m[1], " ", ""), true
}

func edit(path string, apply func(lines []string) ([]string, error)) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("cargo: stat %s: %w", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cargo: read %s: %w", path, err)
	}
	lines, err := apply(strings.Split(string(data), "\n"))
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), info.Mode().Perm()); err != nil {
		return fmt.Errorf("cargo: write %s: %w", path, err)
	}
	return nil
}
