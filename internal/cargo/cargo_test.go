package cargo

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/mol/internal/explorer"
	"github.com/kingrea/mol/internal/graph"
	"github.com/kingrea/mol/internal/version"
)

const cliManifest = `[package]
name = "cli"
version = "0.3.0" # released weekly
edition = "2021"

[dependencies]
core = "1.4"
serde = { version = "1.0", features = ["derive"] }
core-utils = { path = "../core-utils" }
"quoted" = '2.1'

[dependencies.tokio]
version = "1.37"
features = ["full"]

[dev-dependencies]
core = "0.9"
`

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestReadPackage(t *testing.T) {
	path := writeFile(t, filepath.Join(t.TempDir(), ManifestName), cliManifest)

	manifest, err := Reader{}.Read(path)
	require.NoError(t, err)
	require.NotNil(t, manifest.Package)
	assert.Equal(t, "cli", manifest.Package.Name)
	assert.Equal(t, "0.3.0", manifest.Package.Version)
	assert.Equal(t, []graph.Dependency{
		{Name: "core", Constraint: "1.4"},
		{Name: "core-utils", Constraint: AnyVersion},
		{Name: "quoted", Constraint: "2.1"},
		{Name: "serde", Constraint: "1.0"},
		{Name: "tokio", Constraint: "1.37"},
	}, manifest.Package.Dependencies)
	assert.Empty(t, manifest.Members)
}

func TestReadVirtualWorkspace(t *testing.T) {
	path := writeFile(t, filepath.Join(t.TempDir(), ManifestName), "[workspace]\nmembers = [\"crates/*\", \"tools/mol\"]\n")

	manifest, err := Reader{}.Read(path)
	require.NoError(t, err)
	assert.Nil(t, manifest.Package)
	assert.Equal(t, []string{"crates/*", "tools/mol"}, manifest.Members)
}

func TestReadIgnoresInheritedVersion(t *testing.T) {
	path := writeFile(t, filepath.Join(t.TempDir(), ManifestName), "[package]\nname = \"x\"\nversion = { workspace = true }\n")

	manifest, err := Reader{}.Read(path)
	require.NoError(t, err)
	assert.Nil(t, manifest.Package)
	assert.ErrorIs(t, Validate(path), ErrWorkspaceInheritance)
}

func TestValidateWorkspaceTables(t *testing.T) {
	dir := t.TempDir()
	plain := writeFile(t, filepath.Join(dir, "plain", ManifestName), cliManifest)
	inherited := writeFile(t, filepath.Join(dir, "inherited", ManifestName), "[workspace]\nmembers = []\n\n[workspace.package]\nversion = \"1.0.0\"\n")

	assert.NoError(t, Validate(plain))
	assert.ErrorIs(t, Validate(inherited), ErrWorkspaceInheritance)
}

func TestReadInvalidToml(t *testing.T) {
	path := writeFile(t, filepath.Join(t.TempDir(), ManifestName), "[package\nname=")
	_, err := Reader{}.Read(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
}

func TestWriteVersionPreservesLayout(t *testing.T) {
	path := writeFile(t, filepath.Join(t.TempDir(), ManifestName), cliManifest)

	require.NoError(t, Writer{}.WriteVersion(path, "0.4.0"))
	content := readFile(t, path)
	assert.Contains(t, content, "version = \"0.4.0\" # released weekly\n")
	assert.Contains(t, content, "version = \"1.37\"\n")

	manifest, err := Reader{}.Read(path)
	require.NoError(t, err)
	assert.Equal(t, "0.4.0", manifest.Package.Version)
}

func TestWriteVersionMissing(t *testing.T) {
	path := writeFile(t, filepath.Join(t.TempDir(), ManifestName), "[workspace]\nmembers = []\n")
	assert.ErrorIs(t, Writer{}.WriteVersion(path, "1.0.0"), ErrVersionNotFound)
}

func TestWriteDependencyForms(t *testing.T) {
	cases := []struct {
		name     string
		dep      string
		want     string
		wantRead string
	}{
		{"string", "core", "core = \"1.5\"\n", "1.5"},
		{"inline table", "serde", "serde = { version = \"1.1\", features = [\"derive\"] }\n", "1.1"},
		{"inline table without version", "core-utils", "core-utils = { version = \"0.2\", path = \"../core-utils\" }\n", "0.2"},
		{"single quoted", "quoted", "\"quoted\" = '3'\n", "3"},
		{"dotted table", "tokio", "[dependencies.tokio]\nversion = \"1.38\"\n", "1.38"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeFile(t, filepath.Join(t.TempDir(), ManifestName), cliManifest)
			require.NoError(t, Writer{}.WriteDependency(path, tc.dep, tc.wantRead))

			content := readFile(t, path)
			assert.Contains(t, content, tc.want)
			assert.Contains(t, content, "[dev-dependencies]\ncore = \"0.9\"\n")

			manifest, err := Reader{}.Read(path)
			require.NoError(t, err)
			for _, dep := range manifest.Package.Dependencies {
				if dep.Name == tc.dep {
					assert.Equal(t, tc.wantRead, dep.Constraint)
				}
			}
		})
	}
}

func TestWriteDependencyInsertsTableVersion(t *testing.T) {
	path := writeFile(t, filepath.Join(t.TempDir(), ManifestName),
		"[package]\nname = \"a\"\nversion = \"1.0.0\"\n\n[dependencies.core]\npath = \"../core\"\n")

	require.NoError(t, Writer{}.WriteDependency(path, "core", "2"))
	assert.Equal(t, "[package]\nname = \"a\"\nversion = \"1.0.0\"\n\n[dependencies.core]\nversion = \"2\"\npath = \"../core\"\n", readFile(t, path))
}

func TestWriteDependencyMissing(t *testing.T) {
	path := writeFile(t, filepath.Join(t.TempDir(), ManifestName), cliManifest)
	assert.ErrorIs(t, Writer{}.WriteDependency(path, "nope", "1"), ErrDependencyNotFound)
}

func TestExploreCargoWorkspace(t *testing.T) {
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	rootManifest := writeFile(t, filepath.Join(root, ManifestName), "[workspace]\nmembers = [\"crates/*\"]\n")
	writeFile(t, filepath.Join(root, "crates", "core", ManifestName), "[package]\nname = \"core\"\nversion = \"1.4.2\"\n")
	writeFile(t, filepath.Join(root, "crates", "cli", ManifestName), cliManifest)
	writeFile(t, filepath.Join(root, "target", "package", "core", ManifestName), "[package]\nname = \"stale\"\nversion = \"0.0.1\"\n")

	pkgs, err := explorer.New[version.Semantic](Reader{}, nil).Explore(context.Background(), rootManifest)
	require.NoError(t, err)
	names := []string{}
	for _, p := range pkgs {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	assert.Equal(t, []string{"cli", "core"}, names)
}
