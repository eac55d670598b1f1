// Package graph holds the workspace package model and the dependency graph used
// to decide in which order packages are released.
package graph

import (
	"math/big"
	"sort"

	"github.com/kingrea/mol/internal/version"
)

// Edge points from a depended-upon name to the package declaring the dependency.
// Dependency may not resolve to a workspace package.
type Edge[V version.Versioned[V]] struct {
	Dependency string
	Dependent  *Package[V]
}

// Graph is a read-only view over a package list.
type Graph[V version.Versioned[V]] struct {
	nodes  []*Package[V]
	edges  []Edge[V]
	byName map[string]*Package[V]
}

// New builds the graph. The graph borrows the packages; callers must not mutate
// them while the graph is in use.
func New[V version.Versioned[V]](packages []*Package[V]) *Graph[V] {
	g := &Graph[V]{
		nodes:  make([]*Package[V], 0, len(packages)),
		byName: make(map[string]*Package[V], len(packages)),
	}
	for _, pkg := range packages {
		g.nodes = append(g.nodes, pkg)
		if _, exists := g.byName[pkg.Name]; !exists {
			g.byName[pkg.Name] = pkg
		}
		for _, dep := range pkg.Dependencies {
			g.edges = append(g.edges, Edge[V]{Dependency: dep.Name, Dependent: pkg})
		}
	}
	return g
}

// Nodes returns the packages in construction order.
func (g *Graph[V]) Nodes() []*Package[V] {
	return append([]*Package[V](nil), g.nodes...)
}

// Edges returns every dependency edge.
func (g *Graph[V]) Edges() []Edge[V] {
	return append([]Edge[V](nil), g.edges...)
}

// Package looks up a workspace package by name.
func (g *Graph[V]) Package(name string) (*Package[V], bool) {
	pkg, ok := g.byName[name]
	return pkg, ok
}

// ChildChanges returns the packages that directly depend on name.
func (g *Graph[V]) ChildChanges(name string) []*Package[V] {
	var children []*Package[V]
	for _, edge := range g.edges {
		if edge.Dependency == name {
			children = append(children, edge.Dependent)
		}
	}
	return children
}

// UpdateOrder returns every package ordered so that, for an acyclic graph, a
// package comes before all of its direct and transitive dependents.
//
// Each name is scored by the weight of everything depending on it: one seed
// pass over the edges followed by exactly len(nodes) relaxation rounds. Deeper
// dependencies accumulate larger scores and sort first. Scores on diamonds are
// over-counted. The scored order is then settled so that no package precedes a
// workspace dependency. Behavior on cyclic graphs is not defined.
func (g *Graph[V]) UpdateOrder() []*Package[V] {
	// Scores grow exponentially with the number of rounds and overflow int64
	// on chains of a few dozen packages.
	scores := make(map[string]*big.Int, len(g.nodes))
	// Names in first-seen order so equal scores keep a deterministic order.
	names := make([]string, 0, len(g.nodes))
	for _, pkg := range g.nodes {
		if _, seen := scores[pkg.Name]; !seen {
			names = append(names, pkg.Name)
		}
		scores[pkg.Name] = new(big.Int)
	}

	one := big.NewInt(1)
	for _, edge := range g.edges {
		value := new(big.Int)
		if score, ok := scores[edge.Dependent.Name]; ok {
			value.Add(score, one)
		}
		dep, ok := scores[edge.Dependency]
		if !ok {
			names = append(names, edge.Dependency)
			dep = new(big.Int)
			scores[edge.Dependency] = dep
		}
		dep.Add(dep, value)
	}

	for range g.nodes {
		g.relax(scores)
	}

	sort.SliceStable(names, func(i, j int) bool {
		return scores[names[i]].Cmp(scores[names[j]]) > 0
	})

	ordered := make([]*Package[V], 0, len(g.nodes))
	for _, name := range names {
		if pkg, ok := g.byName[name]; ok {
			ordered = append(ordered, pkg)
		}
	}
	return g.settle(ordered)
}

// settle emits, at every step, the earliest package of ordered whose workspace
// dependencies were all emitted. Scores alone can rank a dependent above its
// dependency when the seed pass visits edges out of chain order; an order that
// already respects every edge comes back unchanged. When only cyclic packages
// remain, the earliest one is emitted anyway.
func (g *Graph[V]) settle(ordered []*Package[V]) []*Package[V] {
	emitted := make(map[string]bool, len(ordered))
	result := make([]*Package[V], 0, len(ordered))
	ready := func(pkg *Package[V]) bool {
		for _, dep := range pkg.Dependencies {
			if dep.Name == pkg.Name {
				continue
			}
			if _, inWorkspace := g.byName[dep.Name]; inWorkspace && !emitted[dep.Name] {
				return false
			}
		}
		return true
	}

	for len(result) < len(ordered) {
		next := -1
		for i, pkg := range ordered {
			if emitted[pkg.Name] {
				continue
			}
			if next < 0 {
				next = i
			}
			if ready(pkg) {
				next = i
				break
			}
		}
		emitted[ordered[next].Name] = true
		result = append(result, ordered[next])
	}
	return result
}

func (g *Graph[V]) relax(scores map[string]*big.Int) {
	for _, edge := range g.edges {
		value, ok := scores[edge.Dependent.Name]
		if !ok {
			continue
		}
		dep := scores[edge.Dependency]
		dep.Add(dep, value)
	}
}
