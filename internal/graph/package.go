package graph

import (
	"fmt"

	"github.com/kingrea/mol/internal/version"
)

// Dependency is one declared dependency of a package. Constraint is the raw
// version requirement as written in the manifest.
type Dependency struct {
	Name       string
	Constraint string
}

// Package is one named, versioned unit of the workspace. Packages are built once
// by the explorer and never mutated afterwards.
type Package[V version.Versioned[V]] struct {
	Path         string
	Name         string
	Version      string
	Dependencies []Dependency
}

// NextVersion applies a magnitude to the package's current version.
func (p *Package[V]) NextVersion(magnitude V) (string, error) {
	next, err := magnitude.Apply(p.Version)
	if err != nil {
		return "", fmt.Errorf("package %s (%s): %w", p.Name, p.Path, err)
	}
	return next, nil
}

// DependsOn reports whether the package declares a dependency on name.
func (p *Package[V]) DependsOn(name string) bool {
	for _, dep := range p.Dependencies {
		if dep.Name == name {
			return true
		}
	}
	return false
}
