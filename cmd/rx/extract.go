package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/matsen/retractions/internal/normalize"
	"github.com/matsen/retractions/internal/xmltree"
	"github.com/spf13/cobra"
)

var (
	extractWorkers int
	extractForce   bool
)

func init() {
	extractCmd.Flags().IntVar(&extractWorkers, "workers", 0, "Parallel extraction workers (default from config)")
	extractCmd.Flags().BoolVar(&extractForce, "force", false, "Overwrite an existing run with the same label")
	rootCmd.AddCommand(extractCmd)
}

var extractCmd = &cobra.Command{
	Use:   "extract <label> <file.xml>...",
	Short: "Build a run from saved efetch XML files",
	Long: `Build run <label> offline from one or more PubMed efetch XML documents,
for example the batches written by 'rx fetch --save-xml'.

Articles from all files are extracted in file order. Use "-" to read
standard input.

Examples:
  rx extract 2024 raw/2024-0001.xml raw/2024-0002.xml
  curl ... | rx extract 2024 -`,
	Args: cobra.MinimumNArgs(2),
	RunE: runExtract,
}

func runExtract(cmd *cobra.Command, args []string) error {
	label := args[0]
	mustValidateLabel(label)

	repoRoot := mustFindRepository()
	cfg := mustLoadConfig(repoRoot)
	mustNotOverwriteRun(repoRoot, label, extractForce)

	var articles []*xmltree.Node
	for _, path := range args[1:] {
		parsed, err := parseArticlesFile(path)
		if err != nil {
			exitWithError(ExitDataError, "%v", err)
		}
		articles = append(articles, parsed...)
	}

	coll, issues, err := normalize.BuildRun(context.Background(), articles, label, firstPositive(extractWorkers, cfg.Workers))
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}

	result := saveRun(repoRoot, coll, issues)
	if humanOutput {
		printRunResultHuman(result)
	} else {
		outputJSON(result)
	}
	return nil
}

// parseArticlesFile reads every PubmedArticle from an XML file, or from
// stdin when path is "-".
func parseArticlesFile(path string) ([]*xmltree.Node, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}

	root, err := xmltree.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return xmltree.Articles(root), nil
}
