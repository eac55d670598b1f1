package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kingrea/mol/internal/changelog"
	"github.com/kingrea/mol/internal/changeset"
	"github.com/kingrea/mol/internal/config"
	"github.com/kingrea/mol/internal/graph"
	"github.com/kingrea/mol/internal/tui"
	"github.com/kingrea/mol/internal/version"
)

var (
	addPackages []string
	addVersion  string
	addPatch    bool
	addMinor    bool
	addMajor    bool
	addMessage  string
	addEmpty    bool
)

// runPrompt is swapped in tests.
var runPrompt = func(cmd *cobra.Command, opts tui.AddOptions) (tui.Answers, error) {
	return tui.RunAdd(opts, cmd.InOrStdin(), cmd.ErrOrStderr())
}

func changelogFor(cfg *config.Config) *changelog.Changelog[version.Semantic] {
	return changelog.New[version.Semantic](cfg.Project.Changelog)
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(rootDir)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if cfg.Directory().Validate() {
		fmt.Fprintln(out, "Changesets folder already initialized")
	}
	if dryRun {
		fmt.Fprintf(out, "dry_run - initialize %s\n", cfg.ChangesetDir)
		return nil
	}
	if err := config.InitChangesetDir(cfg.Root); err != nil {
		return err
	}
	fmt.Fprintf(out, "Initialized %s\n", cfg.ChangesetDir)
	return nil
}

func runAdd(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	return s.run("add", func() error {
		packages, err := s.explore(cmd.Context())
		if err != nil {
			return err
		}

		opts, err := addOptions(cmd, packages)
		if err != nil {
			return err
		}
		answers := opts.Preset
		if opts.Packages != nil || opts.Magnitudes != nil || opts.AskMessage {
			answers, err = runPrompt(cmd, opts)
			if err != nil {
				return err
			}
		}
		if len(answers.Packages) == 0 {
			s.reporter.Notice("Please select a package to create a changeset")
			return nil
		}
		magnitude, err := version.Parse[version.Semantic](answers.Magnitude)
		if err != nil {
			return err
		}

		c := changeset.New(magnitude, answers.Message, answers.Packages...)
		if dryRun {
			fmt.Fprint(cmd.OutOrStdout(), c.String())
			return nil
		}
		path := s.cfg.Directory().NewPath()
		if err := c.Save(path); err != nil {
			return err
		}
		s.log.Info("changeset recorded", "path", path, "packages", strings.Join(answers.Packages, ","), "version", magnitude)
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)
		return nil
	})
}

// addOptions turns the add flags into prompt options. Every value given on the
// command line is preset and its question skipped.
func addOptions(cmd *cobra.Command, packages []*graph.Package[version.Semantic]) (tui.AddOptions, error) {
	var opts tui.AddOptions

	known := make([]string, 0, len(packages))
	for _, pkg := range packages {
		known = append(known, pkg.Name)
	}
	if cmd.Flags().Changed("packages") {
		// Unknown names are dropped.
		opts.Preset.Packages = []string{}
		for _, name := range known {
			if containsName(addPackages, name) {
				opts.Preset.Packages = append(opts.Preset.Packages, name)
			}
		}
	} else {
		opts.Packages = known
	}

	switch {
	case addVersion != "":
		magnitude, err := version.Parse[version.Semantic](addVersion)
		if err != nil {
			return opts, err
		}
		opts.Preset.Magnitude = magnitude.String()
	case addMajor:
		opts.Preset.Magnitude = version.Major.String()
	case addMinor:
		opts.Preset.Magnitude = version.Minor.String()
	case addPatch:
		opts.Preset.Magnitude = version.Patch.String()
	default:
		opts.Magnitudes = version.Names[version.Semantic]()
	}

	switch {
	case addEmpty:
		opts.Preset.Message = ""
	case cmd.Flags().Changed("message"):
		opts.Preset.Message = addMessage
	default:
		opts.AskMessage = true
	}

	// An empty package selection ends the prompt before anything else is asked.
	if opts.Packages == nil && len(opts.Preset.Packages) == 0 {
		opts.Magnitudes = nil
		opts.AskMessage = false
	}
	return opts, nil
}

func containsName(names []string, target string) bool {
	for _, name := range names {
		if strings.TrimSpace(name) == target {
			return true
		}
	}
	return false
}

func runVersion(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	return s.run("version", func() error {
		dir := s.cfg.Directory()
		if _, err := os.Stat(dir.Path); os.IsNotExist(err) {
			s.reporter.NothingToDo()
			return nil
		}
		packages, err := s.explore(cmd.Context())
		if err != nil {
			return err
		}
		if err := s.validate(packages); err != nil {
			return err
		}
		_, err = s.releaser().Version(cmd.Context(), graph.New(packages), dir)
		return err
	})
}

func runStatus(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	return s.run("status", func() error {
		dir := s.cfg.Directory()
		if _, err := os.Stat(dir.Path); os.IsNotExist(err) {
			s.reporter.NothingToDo()
			return nil
		}
		packages, err := s.explore(cmd.Context())
		if err != nil {
			return err
		}
		plans, err := s.releaser().Status(graph.New(packages), dir)
		if err != nil {
			return err
		}
		s.reporter.Plans(plans)
		return nil
	})
}
