package explorer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/mol/internal/graph"
	"github.com/kingrea/mol/internal/version"
)

const manifestName = "pkg.manifest"

// lineReader reads a minimal key=value manifest:
//
//	name=core
//	version=1.0.0
//	dep=util 1.0
//	member=crates/*
type lineReader struct {
	reads atomic.Int32
}

func (r *lineReader) ManifestName() string { return manifestName }

func (r *lineReader) Read(path string) (Manifest, error) {
	r.reads.Add(1)
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, err
	}
	var manifest Manifest
	info := &PackageInfo{}
	for _, line := range strings.Split(string(data), "\n") {
		key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
		if !ok {
			continue
		}
		switch key {
		case "name":
			info.Name = value
		case "version":
			info.Version = value
		case "dep":
			name, constraint, _ := strings.Cut(value, " ")
			info.Dependencies = append(info.Dependencies, graph.Dependency{Name: name, Constraint: constraint})
		case "member":
			manifest.Members = append(manifest.Members, value)
		case "fail":
			return Manifest{}, errors.New(value)
		}
	}
	if info.Name != "" {
		manifest.Package = info
	}
	return manifest, nil
}

func writeManifest(t *testing.T, dir string, lines ...string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, manifestName)
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

func workspaceRoot(t *testing.T) string {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	return root
}

func explore(t *testing.T, reader *lineReader, rootManifest string) ([]*graph.Package[version.Semantic], error) {
	t.Helper()
	e := New[version.Semantic](reader, nil)
	return e.Explore(context.Background(), rootManifest)
}

func packageNames(pkgs []*graph.Package[version.Semantic]) []string {
	names := make([]string, 0, len(pkgs))
	for _, p := range pkgs {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	return names
}

func TestExploreSinglePackage(t *testing.T) {
	root := workspaceRoot(t)
	path := writeManifest(t, root, "name=solo", "version=0.1.0", "dep=util 1.0")

	pkgs, err := explore(t, &lineReader{}, path)
	require.NoError(t, err)
	require.Len(t, pkgs, 1)
	assert.Equal(t, "solo", pkgs[0].Name)
	assert.Equal(t, "0.1.0", pkgs[0].Version)
	assert.Equal(t, path, pkgs[0].Path)
	assert.Equal(t, []graph.Dependency{{Name: "util", Constraint: "1.0"}}, pkgs[0].Dependencies)
}

func TestExploreVirtualWorkspace(t *testing.T) {
	root := workspaceRoot(t)
	rootManifest := writeManifest(t, root, "member=crates/*")
	writeManifest(t, filepath.Join(root, "crates", "core"), "name=core", "version=1.4.2")
	writeManifest(t, filepath.Join(root, "crates", "cli"), "name=cli", "version=0.3.0", "dep=core 1.4")
	writeManifest(t, filepath.Join(root, "examples", "demo"), "name=demo", "version=0.0.1")

	pkgs, err := explore(t, &lineReader{}, rootManifest)
	require.NoError(t, err)
	assert.Equal(t, []string{"cli", "core"}, packageNames(pkgs))
}

func TestExploreRootPackageWithMembers(t *testing.T) {
	root := workspaceRoot(t)
	rootManifest := writeManifest(t, root, "name=app", "version=1.0.0", "member=libs/**")
	writeManifest(t, filepath.Join(root, "libs", "a"), "name=a", "version=1.0.0")
	writeManifest(t, filepath.Join(root, "libs", "deep", "b"), "name=b", "version=1.0.0")

	pkgs, err := explore(t, &lineReader{}, rootManifest)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "app", "b"}, packageNames(pkgs))
}

func TestExploreOverlappingGlobsYieldOnce(t *testing.T) {
	root := workspaceRoot(t)
	rootManifest := writeManifest(t, root, "member=pkgs/*", "member=pkgs/foo", "member=./pkgs/foo/")
	writeManifest(t, filepath.Join(root, "pkgs", "foo"), "name=foo", "version=1.0.0")
	writeManifest(t, filepath.Join(root, "pkgs", "bar"), "name=bar", "version=1.0.0")

	reader := &lineReader{}
	pkgs, err := explore(t, reader, rootManifest)
	require.NoError(t, err)
	assert.Equal(t, []string{"bar", "foo"}, packageNames(pkgs))
	assert.Equal(t, int32(3), reader.reads.Load())
}

func TestExploreSymlinkAliasAndCycle(t *testing.T) {
	root := workspaceRoot(t)
	rootManifest := writeManifest(t, root, "member=pkgs/*")
	writeManifest(t, filepath.Join(root, "pkgs", "foo"), "name=foo", "version=1.0.0")
	if err := os.Symlink(filepath.Join(root, "pkgs", "foo"), filepath.Join(root, "alias")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	require.NoError(t, os.Symlink(root, filepath.Join(root, "pkgs", "loop")))

	pkgs, err := explore(t, &lineReader{}, rootManifest)
	require.NoError(t, err)
	assert.Equal(t, []string{"foo"}, packageNames(pkgs))
}

func TestExploreSkipsBuildOutput(t *testing.T) {
	root := workspaceRoot(t)
	rootManifest := writeManifest(t, root, "member=**")
	writeManifest(t, filepath.Join(root, "core"), "name=core", "version=1.0.0")
	writeManifest(t, filepath.Join(root, "target", "package", "core"), "name=core-copy", "version=1.0.0")
	writeManifest(t, filepath.Join(root, ".git", "hidden"), "name=hidden", "version=1.0.0")

	pkgs, err := explore(t, &lineReader{}, rootManifest)
	require.NoError(t, err)
	assert.Equal(t, []string{"core"}, packageNames(pkgs))
}

func TestExploreCustomSkip(t *testing.T) {
	root := workspaceRoot(t)
	rootManifest := writeManifest(t, root, "member=**")
	writeManifest(t, filepath.Join(root, "core"), "name=core", "version=1.0.0")
	writeManifest(t, filepath.Join(root, "vendor", "dep"), "name=vendored", "version=1.0.0")

	e := &Explorer[version.Semantic]{Reader: &lineReader{}, Skip: []string{"vendor"}}
	pkgs, err := e.Explore(context.Background(), rootManifest)
	require.NoError(t, err)
	assert.Equal(t, []string{"core"}, packageNames(pkgs))
}

func TestExploreNestedWorkspace(t *testing.T) {
	root := workspaceRoot(t)
	rootManifest := writeManifest(t, root, "member=tools", "member=**/inner")
	writeManifest(t, filepath.Join(root, "tools"), "name=tools", "version=1.0.0", "member=plugins/*")
	writeManifest(t, filepath.Join(root, "tools", "plugins", "lint"), "name=lint", "version=0.1.0")
	writeManifest(t, filepath.Join(root, "tools", "plugins", "inner"), "name=inner", "version=0.1.0")

	pkgs, err := explore(t, &lineReader{}, rootManifest)
	require.NoError(t, err)
	assert.Equal(t, []string{"inner", "lint", "tools"}, packageNames(pkgs))
}

func TestExploreReadErrorCarriesPath(t *testing.T) {
	root := workspaceRoot(t)
	rootManifest := writeManifest(t, root, "member=crates/*")
	writeManifest(t, filepath.Join(root, "crates", "ok"), "name=ok", "version=1.0.0")
	broken := writeManifest(t, filepath.Join(root, "crates", "broken"), "fail=bad manifest")

	_, err := explore(t, &lineReader{}, rootManifest)
	require.Error(t, err)
	var explorerErr *Error
	require.True(t, errors.As(err, &explorerErr))
	assert.Equal(t, broken, explorerErr.Path)
	assert.Contains(t, err.Error(), "bad manifest")
}

func TestExploreBrokenSymlinkFails(t *testing.T) {
	root := workspaceRoot(t)
	rootManifest := writeManifest(t, root, "member=crates/*")
	if err := os.Symlink(filepath.Join(root, "missing"), filepath.Join(root, "dangling")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	_, err := explore(t, &lineReader{}, rootManifest)
	require.Error(t, err)
	var explorerErr *Error
	require.True(t, errors.As(err, &explorerErr))
	assert.Equal(t, filepath.Join(root, "dangling"), explorerErr.Path)
}

func TestExploreMissingRootManifest(t *testing.T) {
	_, err := explore(t, &lineReader{}, filepath.Join(t.TempDir(), manifestName))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestExploreInvalidMemberPattern(t *testing.T) {
	root := workspaceRoot(t)
	rootManifest := writeManifest(t, root, "member=crates/[")
	_, err := explore(t, &lineReader{}, rootManifest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid member pattern")
}
