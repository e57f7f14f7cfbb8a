package conflict

import (
	"fmt"

	"github.com/matsen/retractions/internal/reconcile"
	"github.com/matsen/retractions/internal/record"
)

// Resolve reconciles every conflict region, ours as the primary, and
// returns the file's records in original order. Matched records keep the
// version the strategy selects and their provenance is merged.
//
// The resolved file must still hold each identifier once; an identifier
// that appears both in a clean line and in a region, or in two regions,
// is reported as an error wrapping record.ErrKeyCollision.
func Resolve(f *File, opts ...reconcile.Option) (*Resolution, error) {
	res := &Resolution{Strategy: reconcile.PrimaryWins, Regions: []RegionResult{}}

	for _, seg := range f.Segments {
		if seg.Region == nil {
			res.Records = append(res.Records, seg.Clean...)
			continue
		}

		region := seg.Region
		merged, err := reconcile.Reconcile(
			record.Collection{Records: region.Ours},
			record.Collection{Records: region.Theirs},
			opts...,
		)
		if err != nil {
			return nil, fmt.Errorf("conflict at line %d: %w", region.StartLine, err)
		}

		diffs := merged.Differences
		if diffs == nil {
			diffs = []reconcile.Difference{}
		}
		res.Strategy = merged.Strategy
		res.Records = append(res.Records, merged.Union.Records...)
		res.Regions = append(res.Regions, RegionResult{
			StartLine:   region.StartLine,
			EndLine:     region.EndLine,
			Stats:       merged.Stats,
			Differences: diffs,
		})
	}

	if err := checkUnique(res.Records); err != nil {
		return nil, err
	}
	res.Total = len(res.Records)
	return res, nil
}

func checkUnique(recs []record.RetractionRecord) error {
	counts := make(map[string]int, len(recs))
	var first string
	for _, r := range recs {
		if r.Identifier == "" {
			continue
		}
		counts[r.Identifier]++
		if counts[r.Identifier] == 2 && first == "" {
			first = r.Identifier
		}
	}
	if first != "" {
		return fmt.Errorf("identifier %s appears %d times in the resolved file: %w", first, counts[first], record.ErrKeyCollision)
	}
	return nil
}
