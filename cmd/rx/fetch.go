package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/matsen/retractions/internal/config"
	"github.com/matsen/retractions/internal/normalize"
	"github.com/matsen/retractions/internal/pubmed"
	"github.com/matsen/retractions/internal/xmltree"
	"github.com/spf13/cobra"
)

var (
	fetchTerm      string
	fetchStartYear int
	fetchEndYear   int
	fetchInterval  int
	fetchBatchSize int
	fetchSaveXML   string
	fetchForce     bool
)

func init() {
	fetchCmd.Flags().StringVar(&fetchTerm, "term", "", "esearch term (default from config)")
	fetchCmd.Flags().IntVar(&fetchStartYear, "start-year", 0, "First publication year (default from config)")
	fetchCmd.Flags().IntVar(&fetchEndYear, "end-year", 0, "Last publication year (default from config, else current year)")
	fetchCmd.Flags().IntVar(&fetchInterval, "interval", 0, "Years per esearch window (default from config)")
	fetchCmd.Flags().IntVar(&fetchBatchSize, "batch-size", 0, "Ids per efetch request (default from config)")
	fetchCmd.Flags().StringVar(&fetchSaveXML, "save-xml", "", "Also write each efetch batch to this directory")
	fetchCmd.Flags().BoolVar(&fetchForce, "force", false, "Overwrite an existing run with the same label")
	rootCmd.AddCommand(fetchCmd)
}

var fetchCmd = &cobra.Command{
	Use:   "fetch <label>",
	Short: "Fetch retracted publications from PubMed into a new run",
	Long: `Search PubMed for retracted publications, fetch their records and store
them as run <label>.

The year range is searched in windows so that no single esearch exceeds the
10,000 result cap. Records are fetched in batches, extracted and normalized,
then written to .retractions/runs/<label>.jsonl with any data-quality issues
in <label>.issues.jsonl.

Credentials come from NCBI_EMAIL and NCBI_API_KEY (or a .env file), or from
ncbi_email and ncbi_api_key in the global config.

Examples:
  rx fetch 2025
  rx fetch 2025-05 --start-year 2020 --save-xml raw/`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

func runFetch(cmd *cobra.Command, args []string) error {
	label := args[0]
	mustValidateLabel(label)

	repoRoot := mustFindRepository()
	cfg := mustLoadConfig(repoRoot)
	mustNotOverwriteRun(repoRoot, label, fetchForce)

	term := firstNonEmpty(fetchTerm, cfg.Term)
	startYear := firstPositive(fetchStartYear, cfg.StartYear)
	endYear := firstPositive(fetchEndYear, cfg.SearchEndYear(time.Now()))
	interval := firstPositive(fetchInterval, cfg.IntervalYears)
	batchSize := firstPositive(fetchBatchSize, cfg.BatchSize)

	email, apiKey := config.Credentials()
	client := pubmed.NewClient(
		pubmed.WithEmail(email),
		pubmed.WithAPIKey(apiKey),
		pubmed.WithCache(time.Hour),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	search, err := client.SearchAll(ctx, term, startYear, endYear, interval)
	if err != nil {
		exitWithFetchError("searching PubMed", err)
	}
	if search.Truncated() {
		for _, w := range search.Windows {
			if w.Count > w.IDs {
				fmt.Fprintf(os.Stderr, "warning: window %d-%d has %d hits but esearch returned %d; use a smaller --interval\n",
					w.MinYear, w.MaxYear, w.Count, w.IDs)
			}
		}
	}
	if humanOutput {
		fmt.Fprintf(os.Stderr, "Found %d ids in %d windows\n", len(search.IDs), len(search.Windows))
	}

	if fetchSaveXML != "" {
		if err := os.MkdirAll(fetchSaveXML, 0755); err != nil {
			exitWithError(ExitError, "creating %s: %v", fetchSaveXML, err)
		}
	}

	var articles []*xmltree.Node
	batches := len(pubmed.Batch(search.IDs, batchSize))
	err = client.FetchAll(ctx, search.IDs, batchSize, func(batch int, ids []string, data []byte) error {
		if fetchSaveXML != "" {
			name := filepath.Join(fetchSaveXML, fmt.Sprintf("%s-%04d.xml", label, batch+1))
			if err := os.WriteFile(name, data, 0644); err != nil {
				return fmt.Errorf("saving batch %d: %w", batch+1, err)
			}
		}
		root, err := xmltree.Parse(bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("parsing batch %d: %w", batch+1, err)
		}
		articles = append(articles, xmltree.Articles(root)...)
		if humanOutput {
			fmt.Fprintf(os.Stderr, "Fetched batch %d/%d (%d ids)\n", batch+1, batches, len(ids))
		}
		return nil
	})
	if err != nil {
		exitWithFetchError("fetching records", err)
	}

	coll, issues, err := normalize.BuildRun(ctx, articles, label, cfg.Workers)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}

	result := saveRun(repoRoot, coll, issues)
	result.Search = search

	if humanOutput {
		printRunResultHuman(result)
	} else {
		outputJSON(result)
	}
	return nil
}

// exitWithFetchError maps PubMed client errors to exit codes.
func exitWithFetchError(action string, err error) {
	switch {
	case pubmed.IsRateLimited(err):
		exitWithError(ExitNetwork, "%s: %v\n\nSet NCBI_API_KEY to raise the rate limit.", action, err)
	case pubmed.IsNetworkError(err):
		exitWithError(ExitNetwork, "%s: %v", action, err)
	default:
		exitWithError(ExitError, "%s: %v", action, err)
	}
}

// mustNotOverwriteRun exits if run label already exists and force is unset.
func mustNotOverwriteRun(repoRoot, label string, force bool) {
	if force {
		return
	}
	if _, err := os.Stat(config.RunPath(repoRoot, label)); err == nil {
		exitWithError(ExitError, "run %s already exists (use --force to overwrite)", label)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
