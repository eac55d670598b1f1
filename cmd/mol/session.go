package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kingrea/mol/internal/cargo"
	"github.com/kingrea/mol/internal/config"
	"github.com/kingrea/mol/internal/explorer"
	"github.com/kingrea/mol/internal/graph"
	"github.com/kingrea/mol/internal/hooks"
	"github.com/kingrea/mol/internal/logging"
	"github.com/kingrea/mol/internal/release"
	"github.com/kingrea/mol/internal/version"
)

const notInitialized = "Changesets folder validation failed run 'mol init'"

// session carries what every command but init needs.
type session struct {
	cfg      *config.Config
	log      *logging.Runtime
	hooks    *hooks.Runner
	reporter *release.Reporter
}

func openSession(cmd *cobra.Command) (*session, error) {
	cfg, err := config.Load(rootDir)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		if err := cfg.SetLogLevel(logLevel); err != nil {
			return nil, err
		}
	}

	initialized := cfg.Directory().Validate()
	opts := logging.Options{Level: cfg.Project.Log.Level}
	if initialized {
		opts.File = cfg.LogPath()
	}
	logger, err := logging.New(cmd.ErrOrStderr(), opts)
	if err != nil {
		return nil, err
	}

	runner, err := hooks.Load(cfg.HooksDir(), logger)
	if err != nil {
		_ = logger.Close()
		return nil, err
	}

	s := &session{
		cfg:      cfg,
		log:      logger,
		hooks:    runner,
		reporter: release.NewReporter(cmd.OutOrStdout()),
	}
	if !initialized {
		s.reporter.Notice(notInitialized)
	}
	logger.Debug("session opened", "command", cmd.Name(), "root", cfg.Root, "hooks", runner.Len(), "dry_run", dryRun)
	return s, nil
}

func (s *session) Close() error {
	return s.log.Close()
}

// run wraps fn with the PreCommand and PostCommand hooks.
func (s *session) run(command string, fn func() error) error {
	hookCtx := hooks.Context{
		Root:       s.cfg.Root,
		Changesets: s.cfg.ChangesetDir,
		DryRun:     dryRun,
	}
	if err := s.hooks.Pre(command, hookCtx); err != nil {
		return err
	}
	if err := fn(); err != nil {
		s.log.Error("command failed", "command", command, "err", err)
		return err
	}
	return s.hooks.Post(command, hookCtx)
}

// explore walks the workspace from the configured root manifest.
func (s *session) explore(ctx context.Context) ([]*graph.Package[version.Semantic], error) {
	exp := explorer.New[version.Semantic](cargo.Reader{}, s.log)
	exp.Skip = s.cfg.Project.Skip
	packages, err := exp.Explore(ctx, s.cfg.ManifestPath())
	if err != nil {
		return nil, err
	}
	return packages, nil
}

// validate rejects manifests the cargo writer cannot update.
func (s *session) validate(packages []*graph.Package[version.Semantic]) error {
	paths := []string{s.cfg.ManifestPath()}
	for _, pkg := range packages {
		paths = append(paths, pkg.Path)
	}
	seen := make(map[string]struct{}, len(paths))
	for _, path := range paths {
		if _, dup := seen[path]; dup {
			continue
		}
		seen[path] = struct{}{}
		if err := cargo.Validate(path); err != nil {
			return fmt.Errorf("validate manifests: %w", err)
		}
	}
	return nil
}

func (s *session) releaser() *release.Releaser[version.Semantic] {
	return &release.Releaser[version.Semantic]{
		Writer:    cargo.Writer{},
		Changelog: changelogFor(s.cfg),
		Reporter:  s.reporter,
		Logger:    s.log,
		DryRun:    dryRun,
	}
}
