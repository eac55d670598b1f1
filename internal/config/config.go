// internal/config/config.go
//
// This package handles configuration and the .changeset directory structure.
// Every workspace released with mol gets a .changeset/ folder in its root that
// holds pending changesets, hooks and an optional config.yaml.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kingrea/mol/internal/changeset"
)

const (
	// FileName is the config file inside the changeset directory.
	FileName = "config.yaml"

	defaultManifest  = "Cargo.toml"
	defaultChangelog = "CHANGELOG.md"
	defaultHooksDir  = "hooks"
	defaultLogLevel  = "info"
)

const defaultProjectConfigYAML = `# mol configuration
version: 1

# Root manifest, relative to the workspace root.
manifest: Cargo.toml

# Directory names never searched for member manifests.
skip:
  - target
  - .git

# Changelog written next to every released manifest.
changelog: CHANGELOG.md

# Go scripts run before and after commands, relative to .changeset/.
hooks: hooks

log:
  level: info
  # Uncomment to keep a logfmt trail of every run.
  # file: logs/mol.log
`

var validLevels = []string{"debug", "info", "warn", "error"}

// LogConfig controls console verbosity and the optional log file.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file,omitempty"`
}

// ProjectConfig models .changeset/config.yaml.
type ProjectConfig struct {
	Version   int       `yaml:"version"`
	Manifest  string    `yaml:"manifest"`
	Skip      []string  `yaml:"skip"`
	Changelog string    `yaml:"changelog"`
	Hooks     string    `yaml:"hooks"`
	Log       LogConfig `yaml:"log"`
}

// Config holds the runtime configuration for one workspace.
type Config struct {
	// Root is the workspace root, where mol was pointed at.
	Root string

	// ChangesetDir is Root/.changeset
	ChangesetDir string

	Project ProjectConfig
}

// InitChangesetDir creates the changeset directory with its README, a hooks
// folder and a default config.yaml. Existing files are left alone.
//
// Structure created:
// .changeset/
// ├── README.md
// ├── config.yaml
// └── hooks/        <- PreCommand/PostCommand Go scripts
func InitChangesetDir(root string) error {
	dir := changeset.NewDirectory(root, "")
	if !dir.Validate() {
		if err := dir.Initialize(); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(filepath.Join(dir.Path, defaultHooksDir), 0o755); err != nil {
		return fmt.Errorf("config: create hooks dir: %w", err)
	}
	return ensureProjectConfig(filepath.Join(dir.Path, FileName))
}

// Load reads Root/.changeset/config.yaml. A missing file yields the defaults.
func Load(root string) (*Config, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("config: resolve %s: %w", root, err)
	}
	cfg := &Config{
		Root:         abs,
		ChangesetDir: filepath.Join(abs, changeset.DefaultDir),
		Project:      defaultProjectConfig(),
	}
	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ConfigPath returns the on-disk location of the config file.
func (c *Config) ConfigPath() string {
	return filepath.Join(c.ChangesetDir, FileName)
}

// Directory returns the changeset directory.
func (c *Config) Directory() changeset.Directory {
	return changeset.Directory{Path: c.ChangesetDir}
}

// ManifestPath returns the root manifest.
func (c *Config) ManifestPath() string {
	return resolvePath(c.Root, c.Project.Manifest)
}

// HooksDir returns the directory scanned for hook scripts.
func (c *Config) HooksDir() string {
	return resolvePath(c.ChangesetDir, c.Project.Hooks)
}

// LogPath returns the log file, or "" when file logging is off.
func (c *Config) LogPath() string {
	return resolvePath(c.ChangesetDir, c.Project.Log.File)
}

// SetLogLevel overrides the configured level, typically from a flag.
func (c *Config) SetLogLevel(level string) error {
	level = strings.ToLower(strings.TrimSpace(level))
	if !contains(validLevels, level) {
		return fmt.Errorf("config: log level must be one of %s", strings.Join(validLevels, ", "))
	}
	c.Project.Log.Level = level
	return nil
}

func (c *Config) loadProjectConfig() error {
	path := c.ConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var parsed ProjectConfig
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	parsed.applyDefaults()
	parsed.normalize()
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	c.Project = parsed
	return nil
}

func defaultProjectConfig() ProjectConfig {
	return ProjectConfig{
		Version:   1,
		Manifest:  defaultManifest,
		Skip:      []string{"target", ".git"},
		Changelog: defaultChangelog,
		Hooks:     defaultHooksDir,
		Log:       LogConfig{Level: defaultLogLevel},
	}
}

func (pc *ProjectConfig) applyDefaults() {
	if pc.Version == 0 {
		pc.Version = 1
	}
	if strings.TrimSpace(pc.Manifest) == "" {
		pc.Manifest = defaultManifest
	}
	if pc.Skip == nil {
		pc.Skip = []string{"target", ".git"}
	}
	if strings.TrimSpace(pc.Changelog) == "" {
		pc.Changelog = defaultChangelog
	}
	if strings.TrimSpace(pc.Hooks) == "" {
		pc.Hooks = defaultHooksDir
	}
	if strings.TrimSpace(pc.Log.Level) == "" {
		pc.Log.Level = defaultLogLevel
	}
}

func (pc *ProjectConfig) normalize() {
	pc.Manifest = strings.TrimSpace(pc.Manifest)
	pc.Changelog = strings.TrimSpace(pc.Changelog)
	pc.Hooks = strings.TrimSpace(pc.Hooks)
	pc.Log.Level = strings.ToLower(strings.TrimSpace(pc.Log.Level))
	pc.Log.File = strings.TrimSpace(pc.Log.File)
	skip := pc.Skip[:0]
	for _, name := range pc.Skip {
		if name = strings.TrimSpace(name); name != "" {
			skip = append(skip, name)
		}
	}
	pc.Skip = skip
}

func (pc *ProjectConfig) validate() error {
	if pc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	if filepath.Base(pc.Changelog) != pc.Changelog {
		return fmt.Errorf("changelog must be a file name, got %q", pc.Changelog)
	}
	for i, name := range pc.Skip {
		if strings.ContainsAny(name, `/\`) {
			return fmt.Errorf("skip[%d]: %q must be a directory name", i, name)
		}
	}
	if !contains(validLevels, pc.Log.Level) {
		return fmt.Errorf("log.level must be one of %s", strings.Join(validLevels, ", "))
	}
	return nil
}

func ensureProjectConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultProjectConfigYAML), 0644)
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if strings.EqualFold(strings.TrimSpace(v), target) {
			return true
		}
	}
	return false
}

func resolvePath(base, candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return ""
	}
	if filepath.IsAbs(trimmed) {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}
