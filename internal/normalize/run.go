package normalize

import (
	"context"
	"fmt"
	"io"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/matsen/retractions/internal/extract"
	"github.com/matsen/retractions/internal/record"
	"github.com/matsen/retractions/internal/xmltree"
)

// built is the per-article result slot; slots are filled in parallel and
// read back in input order.
type built struct {
	rec    record.RetractionRecord
	issues []record.Issue
}

// BuildRun extracts and normalizes every article of one run. Up to workers
// articles are processed at once (workers <= 0 uses GOMAXPROCS); the output
// keeps input order either way. A record whose identifier was already seen
// in this run is dropped with a MalformedRecord issue, so the collection
// never holds two records with the same identifier. The only error is
// context cancellation.
func BuildRun(ctx context.Context, articles []*xmltree.Node, run string, workers int) (record.Collection, []record.Issue, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	slots := make([]built, len(articles))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, article := range articles {
		i, article := i, article
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res := extract.Extract(article)
			rec, issues := Normalize(res.Fields, run)
			slots[i] = built{rec: rec, issues: append(res.Issues, issues...)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return record.Collection{}, nil, fmt.Errorf("building run %s: %w", run, err)
	}

	coll := record.Collection{Run: run, Records: make([]record.RetractionRecord, 0, len(slots))}
	var issues []record.Issue
	seen := make(map[string]bool, len(slots))

	for _, s := range slots {
		issues = append(issues, s.issues...)
		id := s.rec.Identifier
		if id != "" && seen[id] {
			dup := record.MalformedIssue("identifier", "duplicate identifier in run %s; keeping the first occurrence", run)
			dup.Identifier = id
			dup.ExternalID = s.rec.ExternalID
			issues = append(issues, dup)
			continue
		}
		if id != "" {
			seen[id] = true
		}
		coll.Records = append(coll.Records, s.rec)
	}

	return coll, issues, nil
}

// BuildRunFromXML parses an efetch document and builds the run from every
// PubmedArticle in it.
func BuildRunFromXML(ctx context.Context, r io.Reader, run string, workers int) (record.Collection, []record.Issue, error) {
	root, err := xmltree.Parse(r)
	if err != nil {
		return record.Collection{}, nil, fmt.Errorf("reading run %s: %w", run, err)
	}
	return BuildRun(ctx, xmltree.Articles(root), run, workers)
}
