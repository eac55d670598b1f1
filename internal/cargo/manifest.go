// Package cargo reads and rewrites Cargo.toml manifests.
package cargo

import (
	"errors"
	"fmt"
	"os"
	"sort"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/kingrea/mol/internal/explorer"
	"github.com/kingrea/mol/internal/graph"
)

// ManifestName is the file name of a crate manifest.
const ManifestName = "Cargo.toml"

// AnyVersion is the constraint recorded for table dependencies without a version.
const AnyVersion = "*"

// ErrWorkspaceInheritance indicates a manifest inherits fields from its workspace.
var ErrWorkspaceInheritance = errors.New("cargo: workspace inheritance is not supported")

type document struct {
	Package      *packageTable   `toml:"package"`
	Dependencies map[string]any  `toml:"dependencies"`
	Workspace    *workspaceTable `toml:"workspace"`
}

type packageTable struct {
	Name    any `toml:"name"`
	Version any `toml:"version"`
}

type workspaceTable struct {
	Members      []string       `toml:"members"`
	Package      map[string]any `toml:"package"`
	Dependencies map[string]any `toml:"dependencies"`
}

// Reader implements explorer.ManifestReader for Cargo.
type Reader struct{}

// ManifestName returns Cargo.toml.
func (Reader) ManifestName() string {
	return ManifestName
}

// Read decodes the package and workspace sections of a manifest. A package
// section without a string name and version is ignored.
func (Reader) Read(path string) (explorer.Manifest, error) {
	doc, err := load(path)
	if err != nil {
		return explorer.Manifest{}, err
	}

	var manifest explorer.Manifest
	if doc.Package != nil {
		name, nameOK := doc.Package.Name.(string)
		version, versionOK := doc.Package.Version.(string)
		if nameOK && versionOK {
			manifest.Package = &explorer.PackageInfo{
				Name:         name,
				Version:      version,
				Dependencies: dependencies(doc.Dependencies),
			}
		}
	}
	if doc.Workspace != nil {
		manifest.Members = append(manifest.Members, doc.Workspace.Members...)
	}
	return manifest, nil
}

// Validate rejects manifests the writer cannot update faithfully.
func Validate(path string) error {
	doc, err := load(path)
	if err != nil {
		return err
	}
	if doc.Workspace != nil && (doc.Workspace.Package != nil || doc.Workspace.Dependencies != nil) {
		return fmt.Errorf("%w: %s", ErrWorkspaceInheritance, path)
	}
	if doc.Package != nil {
		if _, ok := doc.Package.Version.(map[string]any); ok {
			return fmt.Errorf("%w: %s", ErrWorkspaceInheritance, path)
		}
	}
	return nil
}

func load(path string) (document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return document{}, fmt.Errorf("cargo: read %s: %w", path, err)
	}
	var doc document
	if err := toml.Unmarshal(data, &doc); err != nil {
		return document{}, fmt.Errorf("cargo: parse %s: %w", path, err)
	}
	return doc, nil
}

// dependencies flattens the [dependencies] table in name order. String entries
// are the constraint; table entries use their version key or AnyVersion.
func dependencies(table map[string]any) []graph.Dependency {
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)

	deps := make([]graph.Dependency, 0, len(names))
	for _, name := range names {
		switch value := table[name].(type) {
		case string:
			deps = append(deps, graph.Dependency{Name: name, Constraint: value})
		case map[string]any:
			constraint := AnyVersion
			if v, ok := value["version"].(string); ok {
				constraint = v
			}
			deps = append(deps, graph.Dependency{Name: name, Constraint: constraint})
		}
	}
	return deps
}
