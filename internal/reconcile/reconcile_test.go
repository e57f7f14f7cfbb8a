package reconcile

import (
	"errors"
	"reflect"
	"sort"
	"testing"

	"github.com/matsen/retractions/internal/record"
)

func rec(id, title string) record.RetractionRecord {
	return record.RetractionRecord{
		Identifier:      id,
		Title:           title,
		PublicationDate: record.UnknownDate(),
		Authors:         []record.Author{},
	}
}

func run(label string, recs ...record.RetractionRecord) record.Collection {
	out := make([]record.RetractionRecord, len(recs))
	for i, r := range recs {
		r.Run = label
		out[i] = r
	}
	return record.Collection{Run: label, Records: out}
}

// membership maps each identifier to its provenance.
func membership(c record.Collection) map[string][]string {
	m := make(map[string][]string, len(c.Records))
	for _, r := range c.Records {
		m[r.Identifier] = c.Provenance(r)
	}
	return m
}

func mustReconcile(t *testing.T, a, b record.Collection, opts ...Option) *Result {
	t.Helper()
	res, err := Reconcile(a, b, opts...)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	return res
}

func TestReconcile_EndToEnd(t *testing.T) {
	r2024 := run("2024", rec("100", "A"))
	r2025 := run("2025", rec("100", "B"), rec("200", "B"))

	res := mustReconcile(t, r2024, r2025)

	if res.Union.Len() != 2 {
		t.Fatalf("got %d records, want 2", res.Union.Len())
	}
	first, second := res.Union.Records[0], res.Union.Records[1]

	if first.Identifier != "100" || first.Title != "A" {
		t.Errorf("first = %s/%q, want 100/A", first.Identifier, first.Title)
	}
	if !reflect.DeepEqual(first.SourceRuns, []string{"2024", "2025"}) {
		t.Errorf("first SourceRuns = %v", first.SourceRuns)
	}
	if second.Identifier != "200" || second.Title != "B" {
		t.Errorf("second = %s/%q, want 200/B", second.Identifier, second.Title)
	}
	if !reflect.DeepEqual(second.SourceRuns, []string{"2025"}) {
		t.Errorf("second SourceRuns = %v", second.SourceRuns)
	}

	if res.Union.Run != "2024+2025" {
		t.Errorf("Union.Run = %q, want 2024+2025", res.Union.Run)
	}
	want := Stats{Matched: 1, SecondaryOnly: 1, Total: 2}
	if res.Stats != want {
		t.Errorf("Stats = %+v, want %+v", res.Stats, want)
	}
	if len(res.Differences) != 1 || res.Differences[0].Field != "title" {
		t.Errorf("Differences = %+v, want one title difference", res.Differences)
	}
}

func TestReconcile_Strategies(t *testing.T) {
	a := run("2024", rec("1", "from 2024"))
	b := run("2025", rec("1", "from 2025"))

	tests := []struct {
		strategy  Strategy
		primary   record.Collection
		secondary record.Collection
		want      string
	}{
		{PrimaryWins, a, b, "from 2024"},
		{PrimaryWins, b, a, "from 2025"},
		{SecondaryWins, a, b, "from 2025"},
		{MostRecentWins, a, b, "from 2025"},
		{MostRecentWins, b, a, "from 2025"},
		{EarliestWins, a, b, "from 2024"},
		{EarliestWins, b, a, "from 2024"},
	}

	for _, tt := range tests {
		t.Run(string(tt.strategy)+"/"+tt.primary.Run, func(t *testing.T) {
			res := mustReconcile(t, tt.primary, tt.secondary, WithStrategy(tt.strategy))
			if got := res.Union.Records[0].Title; got != tt.want {
				t.Errorf("title = %q, want %q", got, tt.want)
			}
			if res.Strategy != tt.strategy {
				t.Errorf("Strategy = %q", res.Strategy)
			}
		})
	}
}

func TestReconcile_StrategiesOrderDateLabels(t *testing.T) {
	july := run("2024-7-3", rec("1", "july"))
	october := run("2024-10-01", rec("1", "october"))

	res := mustReconcile(t, october, july, WithStrategy(MostRecentWins))
	if got := res.Union.Records[0].Title; got != "october" {
		t.Errorf("most-recent-wins title = %q, want october", got)
	}
	res = mustReconcile(t, july, october, WithStrategy(EarliestWins))
	if got := res.Union.Records[0].Title; got != "july" {
		t.Errorf("earliest-wins title = %q, want july", got)
	}
	res = mustReconcile(t, october, july, WithStrategy(EarliestWins))
	if got := res.Union.Records[0].Title; got != "july" {
		t.Errorf("earliest-wins with october primary title = %q, want july", got)
	}
}

func TestCompareLabels(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"2024-7-3", "2024-10-01", -1},
		{"2025", "2024-12-31", 1},
		{"2024", "2024-01", -1},
		{"2024", "2024", 0},
		{"baseline", "rerun", -1},
		{"2024", "baseline", -1},
	}
	for _, tt := range tests {
		if got := compareLabels(tt.a, tt.b); got != tt.want {
			t.Errorf("compareLabels(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestReconcile_UnknownStrategy(t *testing.T) {
	_, err := Reconcile(run("a"), run("b"), WithStrategy("coin-flip"))
	if err == nil {
		t.Fatal("expected an error for an unknown strategy")
	}
}

func TestParseStrategy(t *testing.T) {
	for _, s := range Strategies() {
		got, err := ParseStrategy(string(s))
		if err != nil || got != s {
			t.Errorf("ParseStrategy(%q) = %q, %v", s, got, err)
		}
	}
	if got, err := ParseStrategy(""); err != nil || got != PrimaryWins {
		t.Errorf("ParseStrategy(\"\") = %q, %v, want primary-wins", got, err)
	}
}

func TestReconcile_Idempotent(t *testing.T) {
	x := run("2024", rec("1", "one"), rec("2", "two"), rec("3", "three"))

	res := mustReconcile(t, x, x)

	if !reflect.DeepEqual(res.Union.Identifiers(), x.Identifiers()) {
		t.Fatalf("identifiers = %v, want %v", res.Union.Identifiers(), x.Identifiers())
	}
	for i, r := range res.Union.Records {
		if !reflect.DeepEqual(r.SourceRuns, []string{"2024"}) {
			t.Errorf("record %s SourceRuns = %v, want [2024]", r.Identifier, r.SourceRuns)
		}
		if record.Fingerprint(r) != record.Fingerprint(x.Records[i]) {
			t.Errorf("record %s content changed", r.Identifier)
		}
	}
	if len(res.Differences) != 0 {
		t.Errorf("Differences = %v, want none", res.Differences)
	}

	again := mustReconcile(t, res.Union, res.Union)
	if !reflect.DeepEqual(again.Union, res.Union) {
		t.Error("reconciling a union with itself changed it")
	}
}

func TestReconcile_IdempotentWithUnkeyed(t *testing.T) {
	x := run("2024", rec("100", "keyed"), rec("", "no pmid"))

	res := mustReconcile(t, x, x)
	if res.Union.Len() != 2 {
		t.Fatalf("got %d records, want 2", res.Union.Len())
	}
	if res.Stats.Unkeyed != 1 {
		t.Errorf("Unkeyed = %d, want 1", res.Stats.Unkeyed)
	}

	acc := res
	for i := 0; i < 3; i++ {
		acc = mustReconcile(t, acc.Union, x)
	}
	if acc.Union.Len() != 2 {
		t.Errorf("after repeated folds got %d records, want 2", acc.Union.Len())
	}

	folded, err := Fold([]record.Collection{x, x})
	if err != nil {
		t.Fatalf("Fold() error = %v", err)
	}
	if folded.Union.Len() != 2 {
		t.Errorf("Fold([x, x]) got %d records, want 2", folded.Union.Len())
	}
}

func TestReconcile_UnkeyedMergedAcrossRuns(t *testing.T) {
	a := run("2024", rec("", "no pmid"), rec("", "no pmid"))
	b := run("2025", rec("", "no pmid"), rec("", "other"))

	res := mustReconcile(t, a, b)

	var got [][]string
	for _, r := range res.Union.Records {
		got = append(got, r.SourceRuns)
	}
	want := [][]string{{"2024", "2025"}, {"2024"}, {"2025"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SourceRuns = %v, want %v", got, want)
	}
	if res.Stats.Unkeyed != 3 {
		t.Errorf("Unkeyed = %d, want 3", res.Stats.Unkeyed)
	}
}

func TestReconcile_MembershipCommutes(t *testing.T) {
	a := run("a", rec("1", "a1"), rec("2", "a2"), rec("4", "a4"))
	b := run("b", rec("2", "b2"), rec("3", "b3"), rec("1", "b1"))

	ab := mustReconcile(t, a, b)
	ba := mustReconcile(t, b, a)

	if !reflect.DeepEqual(membership(ab.Union), membership(ba.Union)) {
		t.Errorf("membership differs:\n ab=%v\n ba=%v", membership(ab.Union), membership(ba.Union))
	}
	if ab.Union.Run != ba.Union.Run {
		t.Errorf("union labels differ: %q vs %q", ab.Union.Run, ba.Union.Run)
	}
}

func TestReconcile_FoldAssociative(t *testing.T) {
	a := run("2023", rec("1", "a1"), rec("2", "a2"))
	b := run("2024", rec("2", "b2"), rec("3", "b3"))
	c := run("2025", rec("3", "c3"), rec("4", "c4"), rec("1", "c1"))

	abc := mustReconcile(t, mustReconcile(t, a, b, WithStrategy(EarliestWins)).Union, c, WithStrategy(EarliestWins))
	bca := mustReconcile(t, mustReconcile(t, b, c, WithStrategy(EarliestWins)).Union, a, WithStrategy(EarliestWins))

	if !reflect.DeepEqual(membership(abc.Union), membership(bca.Union)) {
		t.Errorf("membership differs:\n abc=%v\n bca=%v", membership(abc.Union), membership(bca.Union))
	}

	// With earliest-wins the surviving content is order independent too.
	titles := func(c record.Collection) map[string]string {
		m := make(map[string]string)
		for _, r := range c.Records {
			m[r.Identifier] = r.Title
		}
		return m
	}
	if !reflect.DeepEqual(titles(abc.Union), titles(bca.Union)) {
		t.Errorf("titles differ:\n abc=%v\n bca=%v", titles(abc.Union), titles(bca.Union))
	}
	if got := titles(abc.Union)["3"]; got != "b3" {
		t.Errorf("record 3 title = %q, want the 2024 version", got)
	}

	if !reflect.DeepEqual(membership(abc.Union)["1"], []string{"2023", "2025"}) {
		t.Errorf("record 1 provenance = %v", membership(abc.Union)["1"])
	}
}

func TestFold(t *testing.T) {
	runs := []record.Collection{
		run("2023", rec("1", "x")),
		run("2024", rec("1", "y"), rec("2", "z")),
		run("2025", rec("3", "w")),
	}

	res, err := Fold(runs)
	if err != nil {
		t.Fatalf("Fold: %v", err)
	}
	if !reflect.DeepEqual(res.Union.Identifiers(), []string{"1", "2", "3"}) {
		t.Errorf("identifiers = %v", res.Union.Identifiers())
	}
	if res.Union.Run != "2023+2024+2025" {
		t.Errorf("Union.Run = %q", res.Union.Run)
	}
	if res.Union.Records[0].Title != "x" {
		t.Errorf("record 1 title = %q, want the first run's", res.Union.Records[0].Title)
	}
	if len(res.Differences) != 1 {
		t.Errorf("Differences = %v, want one", res.Differences)
	}
	if res.Stats.Total != 3 {
		t.Errorf("Total = %d, want 3", res.Stats.Total)
	}
}

func TestFold_SingleAndEmpty(t *testing.T) {
	res, err := Fold([]record.Collection{run("2024", rec("1", "x"))})
	if err != nil {
		t.Fatalf("Fold: %v", err)
	}
	if !reflect.DeepEqual(res.Union.Records[0].SourceRuns, []string{"2024"}) {
		t.Errorf("SourceRuns = %v", res.Union.Records[0].SourceRuns)
	}

	empty, err := Fold(nil)
	if err != nil {
		t.Fatalf("Fold(nil): %v", err)
	}
	if empty.Union.Len() != 0 {
		t.Errorf("Fold(nil) has %d records", empty.Union.Len())
	}
}

func TestReconcile_KeyCollision(t *testing.T) {
	dup := run("2024", rec("1", "a"), rec("1", "b"))

	for _, tc := range []struct {
		name string
		a, b record.Collection
	}{
		{"primary", dup, run("2025")},
		{"secondary", run("2025"), dup},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Reconcile(tc.a, tc.b)
			if !errors.Is(err, record.ErrKeyCollision) {
				t.Fatalf("err = %v, want key collision", err)
			}
			var kce *KeyCollisionError
			if !errors.As(err, &kce) {
				t.Fatalf("err is %T, want *KeyCollisionError", err)
			}
			if kce.Identifier != "1" || kce.Run != "2024" || kce.Count != 2 {
				t.Errorf("collision = %+v", kce)
			}
		})
	}
}

func TestReconcile_UnkeyedPassThrough(t *testing.T) {
	a := run("a", rec("", "orphan a"), rec("1", "one"))
	b := run("b", rec("", "orphan b"), rec("", "orphan b2"))

	res := mustReconcile(t, a, b)

	if res.Stats.Unkeyed != 3 {
		t.Errorf("Unkeyed = %d, want 3", res.Stats.Unkeyed)
	}
	if res.Union.Len() != 4 {
		t.Fatalf("got %d records, want 4", res.Union.Len())
	}
	var titles []string
	for _, r := range res.Union.Records {
		if r.Identifier == "" {
			titles = append(titles, r.Title)
		}
	}
	sort.Strings(titles)
	if !reflect.DeepEqual(titles, []string{"orphan a", "orphan b", "orphan b2"}) {
		t.Errorf("unkeyed titles = %v", titles)
	}
}

func TestReconcile_IdentifiersAreExact(t *testing.T) {
	res := mustReconcile(t, run("a", rec("0100", "x")), run("b", rec("100", "y")))
	if res.Union.Len() != 2 {
		t.Errorf("got %d records, want 2: identifiers must not be normalized", res.Union.Len())
	}
}

func TestReconcile_DoesNotAliasInputs(t *testing.T) {
	a := run("a", rec("1", "x"))
	a.Records[0].Authors = []record.Author{{Name: "A B"}}

	res := mustReconcile(t, a, run("b"))
	res.Union.Records[0].Authors[0].Name = "changed"

	if a.Records[0].Authors[0].Name != "A B" {
		t.Error("union shares author storage with its input")
	}
}

func TestCompare(t *testing.T) {
	earlier := run("2024", rec("1", "a"), rec("2", "b"), rec("3", "c"))
	later := run("2025", rec("4", "d"), rec("2", "b"), rec("3", "changed"))

	cmp := Compare(earlier, later)

	if !reflect.DeepEqual(cmp.EarlierOnly, []string{"1"}) {
		t.Errorf("EarlierOnly = %v", cmp.EarlierOnly)
	}
	if !reflect.DeepEqual(cmp.LaterOnly, []string{"4"}) {
		t.Errorf("LaterOnly = %v", cmp.LaterOnly)
	}
	if !reflect.DeepEqual(cmp.Both, []string{"2", "3"}) {
		t.Errorf("Both = %v", cmp.Both)
	}
	if !reflect.DeepEqual(cmp.Changed, []string{"3"}) {
		t.Errorf("Changed = %v", cmp.Changed)
	}
	if cmp.Earlier != "2024" || cmp.Later != "2025" {
		t.Errorf("labels = %q, %q", cmp.Earlier, cmp.Later)
	}
}

func TestDiff(t *testing.T) {
	p := rec("1", "same")
	s := rec("1", "same")
	s.PublicationDate = record.PartialDate{Year: 2020, Month: 1, Day: 2}
	s.Authors = []record.Author{{Name: "A B", Affiliation: "Lab"}}

	diffs := Diff(p, s)
	if len(diffs) != 2 {
		t.Fatalf("got %d differences, want 2: %+v", len(diffs), diffs)
	}
	if diffs[0].Field != "publication_date" || diffs[0].SecondaryValue != "2020:01:02" {
		t.Errorf("diff 0 = %+v", diffs[0])
	}
	if diffs[1].Field != "authors" || diffs[1].SecondaryValue != "A B (Lab)" {
		t.Errorf("diff 1 = %+v", diffs[1])
	}
}
