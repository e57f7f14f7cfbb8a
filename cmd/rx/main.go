// Package main provides the rx CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/matsen/retractions/internal/config"
	"github.com/matsen/retractions/internal/storage"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	// humanOutput controls whether to use human-readable output
	humanOutput bool
	// quietOutput suppresses per-issue lines in human output
	quietOutput bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		// SilenceErrors hides cobra's own messages (bad flags, missing args)
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "rx",
	Short: "Collect and reconcile retracted publications from PubMed",
	Long: `rx collects retracted publications from PubMed, one labeled run at a time,
and reconciles runs into a single union dataset.

Runs are stored as git-versionable JSONL under .retractions/runs, with an
ephemeral SQLite index for queries. All commands output JSON by default;
pass --human for text.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	config.LoadEnv()
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().BoolVarP(&quietOutput, "quiet", "q", false, "Do not list individual issues in human output")
	rootCmd.Version = Version
}

// getStartingDirectory returns the directory to start searching for a repository.
// RX_ROOT wins over the working directory.
func getStartingDirectory() (string, int) {
	if root := os.Getenv("RX_ROOT"); root != "" {
		return root, 0
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", outputError(ExitError, "getting current directory: %v", err)
	}
	return cwd, 0
}

// mustFindRepository finds the repository, falling back to repo_path from
// the global config, and exits on error.
func mustFindRepository() string {
	start, exitCode := getStartingDirectory()
	if exitCode != 0 {
		os.Exit(exitCode)
	}

	repoRoot, err := config.FindRepository(start)
	if err == nil {
		return repoRoot
	}
	if fallback := config.GetRepoPath(); fallback != "" && config.IsRepository(fallback) {
		return fallback
	}
	exitWithError(ExitConfigError, "%v\n\nRun 'rx init' to create one, or set repo_path in %s", err, config.GlobalConfigPath())
	return ""
}

// mustLoadConfig loads configuration, exits on error.
func mustLoadConfig(repoRoot string) *config.Config {
	cfg, err := config.Load(repoRoot)
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}
	return cfg
}

// mustOpenDatabase opens the SQLite index, exits on error.
// The caller is responsible for calling Close() on the returned DB.
func mustOpenDatabase(repoRoot string) *storage.DB {
	if err := os.MkdirAll(config.CachePath(repoRoot), 0755); err != nil {
		exitWithError(ExitError, "creating cache directory: %v", err)
	}
	db, err := storage.OpenDB(config.DBPath(repoRoot))
	if err != nil {
		exitWithError(ExitError, "opening database: %v", err)
	}
	return db
}

// mustValidateLabel exits if a run label cannot be used.
func mustValidateLabel(label string) {
	if err := config.ValidateLabel(label); err != nil {
		exitWithError(ExitError, "%v", err)
	}
}
