package version

import (
	"fmt"
	"strconv"
	"strings"
)

// Semantic is the patch/minor/major vocabulary. The zero value is Patch.
type Semantic int

const (
	Patch Semantic = iota
	Minor
	Major
)

var semanticNames = [...]string{
	Patch: "patch",
	Minor: "minor",
	Major: "major",
}

func (s Semantic) String() string {
	if s < Patch || s > Major {
		return fmt.Sprintf("semantic(%d)", int(s))
	}
	return semanticNames[s]
}

// Title renders the magnitude capitalized, as used in changelog headings.
func (s Semantic) Title() string {
	name := s.String()
	return strings.ToUpper(name[:1]) + name[1:]
}

// Options returns Patch, Minor, Major.
func (Semantic) Options() []Semantic {
	return []Semantic{Patch, Minor, Major}
}

// Parse accepts the magnitude name in any case.
func (Semantic) Parse(value string) (Semantic, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "patch":
		return Patch, nil
	case "minor":
		return Minor, nil
	case "major":
		return Major, nil
	}
	return Patch, &ParseError{Value: value, Known: semanticNames[:]}
}

// Compare orders by severity.
func (s Semantic) Compare(other Semantic) int {
	switch {
	case s < other:
		return -1
	case s > other:
		return 1
	}
	return 0
}

// Apply bumps a major.minor.patch version. Components past the third are ignored.
func (s Semantic) Apply(current string) (string, error) {
	parts := strings.Split(current, ".")
	var nums [3]int
	for i := range nums {
		if i >= len(parts) {
			return "", &BumpError{Version: current, Reason: fmt.Sprintf("missing component %d", i+1)}
		}
		n, err := strconv.Atoi(parts[i])
		if err != nil || n < 0 {
			return "", &BumpError{Version: current, Reason: fmt.Sprintf("component %q is not a number", parts[i])}
		}
		nums[i] = n
	}
	major, minor, patch := nums[0], nums[1], nums[2]
	switch s {
	case Major:
		return fmt.Sprintf("%d.0.0", major+1), nil
	case Minor:
		return fmt.Sprintf("%d.%d.0", major, minor+1), nil
	case Patch:
		return fmt.Sprintf("%d.%d.%d", major, minor, patch+1), nil
	}
	return "", &BumpError{Version: current, Reason: "unknown magnitude " + s.String()}
}

// Mask keeps the prefix of version as long as mask. This is textual: a mask of
// "1.2" against "1.13.0" yields "1.1".
func (Semantic) Mask(mask, version string) string {
	if len(mask) >= len(version) {
		return version
	}
	return version[:len(mask)]
}

// Match reports whether Mask(mask, version) == mask.
func (s Semantic) Match(mask, version string) bool {
	return s.Mask(mask, version) == mask
}
