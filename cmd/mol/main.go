// cmd/mol/main.go
//
// Entry point for the mol CLI.
//
// Flow:
// 1. Resolve the workspace root and load .changeset/config.yaml
// 2. Start logging (console plus the optional file sink)
// 3. Load hook scripts and run the requested command between them

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is the current mol CLI version.
var Version = "0.3.0"

var (
	dryRun   bool
	rootDir  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:           "mol",
	Short:         "mol - changeset-driven releases for Cargo workspaces",
	Long:          `mol records intended version bumps as changeset files and applies them across a workspace: versions, dependency constraints and changelogs are updated in dependency order.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the .changeset directory",
	Args:  cobra.NoArgs,
	RunE:  runInit,
}

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Record a changeset for one or more packages",
	Long: `Record a changeset for one or more packages.

Values not given as flags are asked for interactively.`,
	Args: cobra.NoArgs,
	RunE: runAdd,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Apply pending changesets to package versions and changelogs",
	Args:  cobra.NoArgs,
	RunE:  runVersion,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the releases pending changesets would produce",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Print what would change without writing anything")
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", ".", "Workspace root containing the .changeset directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level (debug, info, warn, error)")

	addCmd.Flags().StringSliceVarP(&addPackages, "packages", "p", nil, "Packages to include (comma separated or repeated)")
	addCmd.Flags().StringVar(&addVersion, "version", "", "Magnitude name (patch, minor, major)")
	addCmd.Flags().BoolVar(&addPatch, "patch", false, "Shorthand for --version patch")
	addCmd.Flags().BoolVar(&addMinor, "minor", false, "Shorthand for --version minor")
	addCmd.Flags().BoolVar(&addMajor, "major", false, "Shorthand for --version major")
	addCmd.Flags().StringVarP(&addMessage, "message", "m", "", "Changeset message")
	addCmd.Flags().BoolVar(&addEmpty, "empty", false, "Record the changeset with an empty message")

	rootCmd.AddCommand(initCmd, addCmd, versionCmd, statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
