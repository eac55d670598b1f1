// Package version defines the magnitude abstraction every release structure is
// parametric over, plus the semantic (patch/minor/major) implementation.
package version

import (
	"errors"
	"fmt"
)

var (
	// ErrBump indicates a concrete version string could not be bumped.
	ErrBump = errors.New("version: bump failed")
	// ErrUnknownMagnitude indicates a magnitude string is not part of the vocabulary.
	ErrUnknownMagnitude = errors.New("version: unknown magnitude")
)

// Versioned is the contract a magnitude vocabulary must satisfy. Options, Parse,
// Mask and Match do not depend on the receiver and are called on the zero value.
type Versioned[V any] interface {
	comparable
	fmt.Stringer

	// Options enumerates every magnitude in ascending severity.
	Options() []V
	// Parse reads the canonical (case-insensitive) name of a magnitude.
	Parse(value string) (V, error)
	// Compare orders magnitudes by severity.
	Compare(other V) int
	// Apply computes the next concrete version from current.
	Apply(current string) (string, error)
	// Mask truncates version to the precision of mask.
	Mask(mask, version string) string
	// Match reports whether mask already describes version.
	Match(mask, version string) bool
}

// BumpError describes a version string that could not be decomposed.
type BumpError struct {
	Version string
	Reason  string
}

func (e *BumpError) Error() string {
	return fmt.Sprintf("version: cannot bump %q: %s", e.Version, e.Reason)
}

// Unwrap lets errors.Is match ErrBump.
func (e *BumpError) Unwrap() error {
	return ErrBump
}

// ParseError describes an unknown magnitude name.
type ParseError struct {
	Value string
	Known []string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%q isn't a version, should be one of %v", e.Value, e.Known)
}

func (e *ParseError) Unwrap() error {
	return ErrUnknownMagnitude
}

// Max returns the stronger of two magnitudes.
func Max[V Versioned[V]](a, b V) V {
	if b.Compare(a) > 0 {
		return b
	}
	return a
}

// Weakest returns the least severe magnitude of the vocabulary.
func Weakest[V Versioned[V]]() V {
	var zero V
	options := zero.Options()
	if len(options) == 0 {
		return zero
	}
	weakest := options[0]
	for _, option := range options[1:] {
		if option.Compare(weakest) < 0 {
			weakest = option
		}
	}
	return weakest
}

// Parse reads a magnitude of the vocabulary V.
func Parse[V Versioned[V]](value string) (V, error) {
	var zero V
	return zero.Parse(value)
}

// Names renders every option of V in ascending order.
func Names[V Versioned[V]]() []string {
	var zero V
	options := zero.Options()
	names := make([]string, 0, len(options))
	for _, option := range options {
		names = append(names, option.String())
	}
	return names
}
