package extract

import (
	"regexp"
	"strconv"

	"github.com/matsen/retractions/internal/record"
	"github.com/matsen/retractions/internal/xmltree"
)

// DateSource names the node a publication date was read from.
type DateSource string

const (
	SourceNone        DateSource = ""
	SourceArticleDate DateSource = "article_date"
	SourcePubDate     DateSource = "pub_date"
	SourceHistory     DateSource = "history"
)

// historyStatuses is the order in which PubMedPubDate history entries are
// tried. The order encodes which status is trusted most.
var historyStatuses = []string{"pubmed", "medline", "entrez"}

// medlineDatePattern matches the leading year and month of free-text
// MedlineDate values such as "1998 Dec-1999 Jan".
var medlineDatePattern = regexp.MustCompile(`^(\d{4})(?:\s+([A-Za-z]{3,}))?`)

// dateCandidate is one place a publication date may come from.
type dateCandidate struct {
	source DateSource
	nodes  []*xmltree.Node
}

// HistorySource names a history date with the given PubStatus.
func HistorySource(status string) DateSource {
	return SourceHistory + DateSource(":"+status)
}

// extractPublicationDate walks the fallback chain: electronic article date,
// then journal issue date, then history dates by status. The first source
// with a known year wins; month and day are taken from that same source.
func extractPublicationDate(article *xmltree.Node, bag *FieldBag) []record.Issue {
	var candidates []dateCandidate
	if n, ok := article.Find("ArticleDate"); ok {
		candidates = append(candidates, dateCandidate{source: SourceArticleDate, nodes: []*xmltree.Node{n}})
	}
	if n, ok := article.Find("PubDate"); ok {
		candidates = append(candidates, dateCandidate{source: SourcePubDate, nodes: []*xmltree.Node{n}})
	}
	for _, status := range historyStatuses {
		if nodes := article.FindAllWithAttr("PubMedPubDate", "PubStatus", status); len(nodes) > 0 {
			candidates = append(candidates, dateCandidate{source: HistorySource(status), nodes: nodes})
		}
	}

	var issues []record.Issue
	for _, c := range candidates {
		for _, n := range c.nodes {
			d, dateIssues := readDate(n)
			issues = append(issues, dateIssues...)
			if d.HasYear() {
				bag.PublicationDate = d
				bag.DateSource = c.source
				return issues
			}
		}
	}

	bag.PublicationDate = record.UnknownDate()
	bag.DateSource = SourceNone
	return issues
}

// readDate reads year, month and day independently from a date node.
// Absent components stay at their sentinel; a present month token is
// normalized, so an unrecognized month becomes January.
func readDate(n *xmltree.Node) (record.PartialDate, []record.Issue) {
	d := record.UnknownDate()
	var issues []record.Issue

	if y, ok := n.ChildValue("Year"); ok {
		year, err := strconv.Atoi(y)
		if err != nil || year < 1000 || year >= record.UnknownYear {
			issues = append(issues, record.MalformedIssue("publication_date", "invalid year %q in %s", y, n.Name))
		} else {
			d.Year = year
		}
	} else if md, ok := n.ChildValue("MedlineDate"); ok {
		if m := medlineDatePattern.FindStringSubmatch(md); m != nil {
			d.Year, _ = strconv.Atoi(m[1])
			if m[2] != "" {
				d.Month = record.MonthOrdinal(m[2])
			}
		} else {
			issues = append(issues, record.MalformedIssue("publication_date", "unparseable MedlineDate %q", md))
		}
	}

	if m, ok := n.ChildValue("Month"); ok {
		d.Month = record.MonthOrdinal(m)
	}

	if v, ok := n.ChildValue("Day"); ok {
		day, err := strconv.Atoi(v)
		if err != nil || day < 1 || day > 31 {
			issues = append(issues, record.MalformedIssue("publication_date", "invalid day %q in %s", v, n.Name))
		} else {
			d.Day = day
		}
	}

	return d, issues
}
