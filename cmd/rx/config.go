package main

import (
	"fmt"
	"strings"

	"github.com/matsen/retractions/internal/config"
	"github.com/matsen/retractions/internal/reconcile"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Get or set configuration values",
	Long: `Get or set repository configuration values.

Usage:
  rx config                       # Show all config
  rx config batch_size            # Get specific value
  rx config start_year 2000       # Set value

Keys:
  term            esearch term selecting retracted publications
  start_year      First publication year searched
  end_year        Last publication year searched (0 = current year)
  interval_years  Years per esearch window (keeps windows under 10,000 hits)
  batch_size      Ids per efetch request
  workers         Parallel extraction workers (0 = number of CPUs)
  strategy        Default reconcile strategy`,
	Args: cobra.MaximumNArgs(2),
	RunE: runConfig,
}

func runConfig(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	cfg := mustLoadConfig(repoRoot)

	if len(args) == 0 {
		if humanOutput {
			for _, key := range config.Keys() {
				value, _ := cfg.Get(key)
				fmt.Printf("%-15s %s\n", key+":", value)
			}
		} else {
			outputJSON(cfg)
		}
		return nil
	}

	key := normalizeKey(args[0])

	if len(args) == 1 {
		value, err := cfg.Get(key)
		if err != nil {
			exitWithError(ExitError, "%v", err)
		}
		if humanOutput {
			fmt.Println(value)
		} else {
			outputJSON(map[string]string{key: value})
		}
		return nil
	}

	value := args[1]
	if key == "strategy" {
		if _, err := reconcile.ParseStrategy(value); err != nil {
			exitWithError(ExitConfigError, "%v", err)
		}
	}
	if err := cfg.Set(key, value); err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	if err := cfg.Save(repoRoot); err != nil {
		exitWithError(ExitError, "saving config: %v", err)
	}

	if humanOutput {
		fmt.Printf("Updated %s to %s\n", key, value)
	} else {
		outputJSON(UpdateResponse{Status: "updated", Key: key, Value: value})
	}
	return nil
}

// normalizeKey converts key formats (batch-size, BATCH_SIZE) to batch_size.
func normalizeKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	return strings.ReplaceAll(key, "-", "_")
}
