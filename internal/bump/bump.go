// Package bump aggregates changesets into per-package release decisions.
package bump

import (
	"fmt"

	"github.com/kingrea/mol/internal/changeset"
	"github.com/kingrea/mol/internal/graph"
	"github.com/kingrea/mol/internal/version"
)

// Bump is the aggregated decision for a set of changesets. Direct dependents of
// an explicitly bumped package receive the weakest magnitude; that propagation
// is one hop and does not record a changeset against the dependent.
type Bump[V version.Versioned[V]] struct {
	changesets        []changeset.Changeset[V]
	packageChangesets map[string][]int
	packageUpdate     map[string]V
}

// New returns an empty Bump.
func New[V version.Versioned[V]]() *Bump[V] {
	return &Bump[V]{
		packageChangesets: make(map[string][]int),
		packageUpdate:     make(map[string]V),
	}
}

// Add records a changeset against the graph.
func (b *Bump[V]) Add(c changeset.Changeset[V], g *graph.Graph[V]) {
	idx := len(b.changesets)
	b.changesets = append(b.changesets, c)
	weakest := version.Weakest[V]()

	for name, magnitude := range c.Packages {
		b.packageChangesets[name] = append(b.packageChangesets[name], idx)
		b.raise(name, magnitude)

		if g == nil {
			continue
		}
		for _, dependent := range g.ChildChanges(name) {
			b.raise(dependent.Name, weakest)
		}
	}
}

func (b *Bump[V]) raise(name string, magnitude V) {
	if existing, ok := b.packageUpdate[name]; ok {
		b.packageUpdate[name] = version.Max(existing, magnitude)
		return
	}
	b.packageUpdate[name] = magnitude
}

// IsEmpty reports whether no changeset was added. A changeset naming no
// package still counts and is consumed by a release.
func (b *Bump[V]) IsEmpty() bool {
	return len(b.changesets) == 0
}

// Len returns the number of packages with a decided magnitude.
func (b *Bump[V]) Len() int {
	return len(b.packageUpdate)
}

// Changesets returns every added changeset in insertion order.
func (b *Bump[V]) Changesets() []changeset.Changeset[V] {
	return append([]changeset.Changeset[V](nil), b.changesets...)
}

// Package returns the view of a single package's decision.
func (b *Bump[V]) Package(name string) PackageBump[V] {
	return PackageBump[V]{bump: b, name: name}
}

// PackageBump is a read-only view over one package inside a Bump.
type PackageBump[V version.Versioned[V]] struct {
	bump *Bump[V]
	name string
}

// Name returns the package name.
func (p PackageBump[V]) Name() string {
	return p.name
}

// Changesets returns the changesets explicitly naming the package, in the order
// they were added.
func (p PackageBump[V]) Changesets() []changeset.Changeset[V] {
	indices := p.bump.packageChangesets[p.name]
	out := make([]changeset.Changeset[V], 0, len(indices))
	for _, idx := range indices {
		out = append(out, p.bump.changesets[idx])
	}
	return out
}

// Version returns the decided magnitude, if any.
func (p PackageBump[V]) Version() (V, bool) {
	magnitude, ok := p.bump.packageUpdate[p.name]
	return magnitude, ok
}

// Explicit reports whether at least one changeset names the package.
func (p PackageBump[V]) Explicit() bool {
	return len(p.bump.packageChangesets[p.name]) > 0
}

// Consume reads every changeset in dir and adds it to a fresh Bump. It returns the
// consumed file paths alongside the aggregate. Nothing is added if any file fails
// to load.
func Consume[V version.Versioned[V]](dir changeset.Directory, g *graph.Graph[V]) ([]string, *Bump[V], error) {
	entries, err := changeset.Load[V](dir)
	if err != nil {
		return nil, nil, fmt.Errorf("bump: consume %s: %w", dir.Path, err)
	}
	b := New[V]()
	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		b.Add(entry.Changeset, g)
		paths = append(paths, entry.Path)
	}
	return paths, b, nil
}
