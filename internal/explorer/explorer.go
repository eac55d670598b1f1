// Package explorer discovers every package reachable from a root manifest through
// workspace member globs. Directory entries are visited concurrently; a shared
// visited set keeps each real path from being read twice.
package explorer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/kingrea/mol/internal/graph"
	"github.com/kingrea/mol/internal/logging"
	"github.com/kingrea/mol/internal/version"
)

// DefaultSkip lists directory names that are never descended into.
var DefaultSkip = []string{"target", ".git"}

// PackageInfo is the package section of a manifest.
type PackageInfo struct {
	Name         string
	Version      string
	Dependencies []graph.Dependency
}

// Manifest is what a reader extracts from one manifest file. Either field may be
// empty: a virtual workspace has no package, a leaf crate has no members.
type Manifest struct {
	Package *PackageInfo
	Members []string
}

// ManifestReader decodes manifests of a single ecosystem.
type ManifestReader interface {
	// ManifestName is the file name that marks a package directory.
	ManifestName() string
	Read(path string) (Manifest, error)
}

// Error is a traversal failure tied to the path that caused it.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("explorer: %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Explorer walks workspaces.
type Explorer[V version.Versioned[V]] struct {
	Reader ManifestReader
	// Skip holds directory names to ignore; nil means DefaultSkip.
	Skip   []string
	Logger logging.Logger
}

// New returns an explorer using DefaultSkip.
func New[V version.Versioned[V]](reader ManifestReader, logger logging.Logger) *Explorer[V] {
	return &Explorer[V]{Reader: reader, Skip: DefaultSkip, Logger: logger}
}

// Explore reads rootManifest and every manifest its workspace members reach. Each
// manifest contributes at most one package. The first I/O or read failure aborts
// the traversal once already running siblings finish.
func (e *Explorer[V]) Explore(ctx context.Context, rootManifest string) ([]*graph.Package[V], error) {
	if e.Reader == nil {
		return nil, errors.New("explorer: no manifest reader configured")
	}
	abs, err := filepath.Abs(rootManifest)
	if err != nil {
		return nil, &Error{Path: rootManifest, Err: err}
	}
	found, err := e.exploreManifest(ctx, abs)
	if err != nil {
		return nil, err
	}

	// Nested workspaces walk with their own visited set and may reach a member
	// already found by an enclosing walk.
	seen := make(map[string]struct{}, len(found))
	packages := make([]*graph.Package[V], 0, len(found))
	for _, pkg := range found {
		if _, dup := seen[pkg.Path]; dup {
			continue
		}
		seen[pkg.Path] = struct{}{}
		packages = append(packages, pkg)
	}
	e.logger().Debug("workspace explored", "root", abs, "packages", len(packages))
	return packages, nil
}

func (e *Explorer[V]) exploreManifest(ctx context.Context, manifestPath string) ([]*graph.Package[V], error) {
	canonical, err := filepath.EvalSymlinks(manifestPath)
	if err != nil {
		return nil, &Error{Path: manifestPath, Err: err}
	}
	manifest, err := e.Reader.Read(canonical)
	if err != nil {
		return nil, wrap(canonical, err)
	}

	var packages []*graph.Package[V]
	if manifest.Package != nil {
		packages = append(packages, e.newPackage(canonical, manifest.Package))
	}
	if len(manifest.Members) == 0 {
		return packages, nil
	}

	for _, pattern := range manifest.Members {
		if !doublestar.ValidatePattern(filepath.ToSlash(pattern)) {
			return nil, &Error{Path: canonical, Err: fmt.Errorf("invalid member pattern %q", pattern)}
		}
	}

	root := filepath.Dir(canonical)
	w := &walk[V]{
		explorer: e,
		root:     root,
		members:  manifest.Members,
	}
	w.visited.Store(root, struct{}{})
	w.visited.Store(canonical, struct{}{})
	e.logger().Debug("walking workspace", "root", root, "members", manifest.Members)

	members, err := w.directory(ctx, root, root)
	if err != nil {
		return nil, err
	}
	return append(packages, members...), nil
}

func (e *Explorer[V]) newPackage(path string, info *PackageInfo) *graph.Package[V] {
	deps := make([]graph.Dependency, len(info.Dependencies))
	copy(deps, info.Dependencies)
	return &graph.Package[V]{
		Path:         path,
		Name:         info.Name,
		Version:      info.Version,
		Dependencies: deps,
	}
}

func (e *Explorer[V]) skipped(name string) bool {
	skip := e.Skip
	if skip == nil {
		skip = DefaultSkip
	}
	for _, s := range skip {
		if s == name {
			return true
		}
	}
	return false
}

func (e *Explorer[V]) logger() logging.Logger {
	return logging.OrNop(e.Logger)
}

// walk is one workspace traversal. visited holds canonical paths.
type walk[V version.Versioned[V]] struct {
	explorer *Explorer[V]
	root     string
	members  []string
	visited  sync.Map
}

// directory visits every entry of realDir concurrently and joins them. logicalDir
// is the path the walk reached it through.
func (w *walk[V]) directory(ctx context.Context, logicalDir, realDir string) ([]*graph.Package[V], error) {
	entries, err := os.ReadDir(realDir)
	if err != nil {
		return nil, &Error{Path: logicalDir, Err: err}
	}

	results := make([][]*graph.Package[V], len(entries))
	var g errgroup.Group
	for i, entry := range entries {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			found, err := w.entry(ctx, logicalDir, realDir, entry)
			if err != nil {
				return err
			}
			results[i] = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var packages []*graph.Package[V]
	for _, found := range results {
		packages = append(packages, found...)
	}
	return packages, nil
}

func (w *walk[V]) entry(ctx context.Context, logicalDir, realDir string, entry os.DirEntry) ([]*graph.Package[V], error) {
	name := entry.Name()
	if w.explorer.skipped(name) {
		return nil, nil
	}
	logical := filepath.Join(logicalDir, name)
	target := filepath.Join(realDir, name)

	isDir := entry.IsDir()
	if entry.Type()&os.ModeSymlink != 0 {
		resolved, err := filepath.EvalSymlinks(target)
		if err != nil {
			return nil, &Error{Path: logical, Err: err}
		}
		info, err := os.Stat(resolved)
		if err != nil {
			return nil, &Error{Path: logical, Err: err}
		}
		target = resolved
		isDir = info.IsDir()
	} else if !entry.Type().IsRegular() && !isDir {
		return nil, nil
	}

	if _, loaded := w.visited.LoadOrStore(target, struct{}{}); loaded {
		return nil, nil
	}

	if isDir {
		return w.directory(ctx, logical, target)
	}
	if name != w.explorer.Reader.ManifestName() {
		return nil, nil
	}
	if !w.isMember(filepath.Dir(target), filepath.Dir(logical)) {
		return nil, nil
	}
	w.explorer.logger().Debug("member manifest", "path", target)
	return w.explorer.exploreManifest(ctx, target)
}

// isMember matches a manifest directory against the workspace members, relative
// to the workspace root. The canonical location is preferred so that every
// route to the same directory agrees.
func (w *walk[V]) isMember(realDir, logicalDir string) bool {
	subject, err := filepath.Rel(w.root, realDir)
	if err != nil || subject == ".." || strings.HasPrefix(subject, ".."+string(filepath.Separator)) {
		subject, err = filepath.Rel(w.root, logicalDir)
		if err != nil {
			return false
		}
	}
	subject = filepath.ToSlash(subject)
	for _, pattern := range w.members {
		pattern = strings.TrimPrefix(filepath.ToSlash(pattern), "./")
		if ok, _ := doublestar.Match(strings.TrimSuffix(pattern, "/"), subject); ok {
			return true
		}
	}
	return false
}

func wrap(path string, err error) error {
	var explorerErr *Error
	if errors.As(err, &explorerErr) {
		return err
	}
	return &Error{Path: path, Err: err}
}
