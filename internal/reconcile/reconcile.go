package reconcile

import (
	"cmp"
	"fmt"
	"strconv"
	"strings"

	"github.com/matsen/retractions/internal/record"
)

// Reconcile performs a full outer join of two collections on Identifier.
//
// A record present in both inputs becomes one output record whose fields
// come from the side chosen by the strategy and whose SourceRuns is the
// union of both sides' provenance. A record present in only one input is
// copied through with its own provenance. Records without an identifier
// cannot be joined on it; they are passed through, except that a secondary
// one whose content fingerprint equals an unjoined primary one is merged
// into it.
//
// Output order is the primary's order (matched and primary-only records)
// followed by the secondary-only records in the secondary's order.
func Reconcile(primary, secondary record.Collection, opts ...Option) (*Result, error) {
	o := options{strategy: PrimaryWins}
	for _, opt := range opts {
		opt(&o)
	}
	if _, err := ParseStrategy(string(o.strategy)); err != nil {
		return nil, err
	}

	primaryIndex, err := indexCollection(primary)
	if err != nil {
		return nil, err
	}
	secondaryIndex, err := indexCollection(secondary)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Strategy: o.strategy,
		Union: record.Collection{
			Run:     unionLabel(primary.Run, secondary.Run),
			Records: make([]record.RetractionRecord, 0, len(primary.Records)+len(secondary.Records)),
		},
	}

	// fingerprint -> union positions of unkeyed primary records not yet merged
	unkeyed := make(map[string][]int)

	for _, p := range primary.Records {
		pRuns := primary.Provenance(p)
		if p.Identifier == "" {
			fp := record.Fingerprint(p)
			unkeyed[fp] = append(unkeyed[fp], len(res.Union.Records))
			res.Union.Records = append(res.Union.Records, withProvenance(p, pRuns))
			res.Stats.Unkeyed++
			continue
		}

		si, ok := secondaryIndex[p.Identifier]
		if !ok {
			res.Union.Records = append(res.Union.Records, withProvenance(p, pRuns))
			res.Stats.PrimaryOnly++
			continue
		}

		s := secondary.Records[si]
		sRuns := secondary.Provenance(s)
		winner := p
		if secondaryWins(o.strategy, pRuns, sRuns) {
			winner = s
		}
		res.Union.Records = append(res.Union.Records, withProvenance(winner, record.UnionRuns(pRuns, sRuns)))
		res.Differences = append(res.Differences, Diff(p, s)...)
		res.Stats.Matched++
	}

	for _, s := range secondary.Records {
		if s.Identifier == "" {
			fp := record.Fingerprint(s)
			if pos := unkeyed[fp]; len(pos) > 0 {
				u := &res.Union.Records[pos[0]]
				u.SourceRuns = record.UnionRuns(u.SourceRuns, secondary.Provenance(s))
				unkeyed[fp] = pos[1:]
				continue
			}
			res.Union.Records = append(res.Union.Records, withProvenance(s, secondary.Provenance(s)))
			res.Stats.Unkeyed++
			continue
		}
		if _, ok := primaryIndex[s.Identifier]; ok {
			continue
		}
		res.Union.Records = append(res.Union.Records, withProvenance(s, secondary.Provenance(s)))
		res.Stats.SecondaryOnly++
	}

	res.Stats.Total = len(res.Union.Records)
	return res, nil
}

// Fold reconciles runs left to right, each run joining the union of all
// runs before it. Differences from every step are kept; Stats describe the
// last step with Total counting the final union.
func Fold(runs []record.Collection, opts ...Option) (*Result, error) {
	if len(runs) == 0 {
		return &Result{Strategy: PrimaryWins}, nil
	}

	acc, err := Reconcile(runs[0], record.Collection{}, opts...)
	if err != nil {
		return nil, err
	}
	var diffs []Difference
	for _, run := range runs[1:] {
		next, err := Reconcile(acc.Union, run, opts...)
		if err != nil {
			return nil, fmt.Errorf("folding run %s: %w", run.Run, err)
		}
		diffs = append(diffs, next.Differences...)
		acc = next
	}
	acc.Differences = diffs
	return acc, nil
}

// indexCollection maps identifiers to positions, failing on the first
// identifier that occurs more than once.
func indexCollection(c record.Collection) (map[string]int, error) {
	index := make(map[string]int, len(c.Records))
	counts := make(map[string]int)
	var dup string
	for i, r := range c.Records {
		if r.Identifier == "" {
			continue
		}
		counts[r.Identifier]++
		if _, ok := index[r.Identifier]; ok {
			if dup == "" {
				dup = r.Identifier
			}
			continue
		}
		index[r.Identifier] = i
	}
	if dup != "" {
		return nil, &KeyCollisionError{Run: c.Run, Identifier: dup, Count: counts[dup]}
	}
	return index, nil
}

// secondaryWins applies the strategy to a matched pair. Ties go to the primary.
func secondaryWins(s Strategy, pRuns, sRuns []string) bool {
	switch s {
	case SecondaryWins:
		return true
	case MostRecentWins:
		return compareLabels(latest(sRuns), latest(pRuns)) > 0
	case EarliestWins:
		se, pe := earliest(sRuns), earliest(pRuns)
		return se != "" && (pe == "" || compareLabels(se, pe) < 0)
	default:
		return false
	}
}

func latest(runs []string) string {
	var best string
	for _, r := range runs {
		if r != "" && (best == "" || compareLabels(r, best) > 0) {
			best = r
		}
	}
	return best
}

func earliest(runs []string) string {
	var best string
	for _, r := range runs {
		if r != "" && (best == "" || compareLabels(r, best) < 0) {
			best = r
		}
	}
	return best
}

// compareLabels orders run labels chronologically when both are dates of
// the form YYYY[-M[-D]], so "2024-7-3" sorts before "2024-10-01". Other
// labels compare as strings.
func compareLabels(a, b string) int {
	da, okA := labelDate(a)
	db, okB := labelDate(b)
	if okA && okB {
		for i := range da {
			if c := cmp.Compare(da[i], db[i]); c != 0 {
				return c
			}
		}
	}
	return strings.Compare(a, b)
}

func labelDate(label string) ([3]int, bool) {
	var out [3]int
	parts := strings.Split(label, "-")
	if len(parts) > 3 {
		return out, false
	}
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return out, false
		}
		out[i] = n
	}
	return out, true
}

func withProvenance(r record.RetractionRecord, runs []string) record.RetractionRecord {
	out := r.Clone()
	out.SourceRuns = record.UnionRuns(runs)
	return out
}

// unionLabel names a union by the run labels that went into it.
func unionLabel(labels ...string) string {
	var parts [][]string
	for _, l := range labels {
		if l != "" {
			parts = append(parts, strings.Split(l, "+"))
		}
	}
	return strings.Join(record.UnionRuns(parts...), "+")
}
