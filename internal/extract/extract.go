// Package extract converts raw PubMed article trees into field bags.
//
// Extraction is best effort: a field whose structure is malformed keeps its
// default and is reported as an issue, and every other field is still read.
package extract

import (
	"strings"

	"github.com/matsen/retractions/internal/record"
	"github.com/matsen/retractions/internal/xmltree"
)

// FieldBag holds every field extracted from one raw record.
type FieldBag struct {
	Identifier string
	ExternalID string

	PublicationDate record.PartialDate
	DateSource      DateSource // Which node supplied PublicationDate

	Title               string
	JournalTitle        string
	JournalAbbreviation string
	Authors             []record.Author
	PublicationType     string

	RetractionNoticeIdentifier     string
	RetractionNoticeCitation       string
	RetractedPublicationIdentifier string
}

// Result is the outcome of extracting one raw record.
type Result struct {
	Fields FieldBag
	Issues []record.Issue
}

// step extracts one group of fields into the bag.
type step struct {
	field string
	fn    func(article *xmltree.Node, bag *FieldBag) []record.Issue
}

// steps run in this order; identifiers come first so that later issues can
// be tagged with them.
var steps = []step{
	{"identifier", extractIdentifiers},
	{"publication_date", extractPublicationDate},
	{"title", extractTitles},
	{"authors", extractAuthors},
	{"publication_type", extractPublicationType},
	{"retraction_notice", extractRetractionNotice},
	{"retraction_of", extractRetractionOf},
}

// Extract reads one PubmedArticle tree. It never panics: a failure inside
// one step is reported as a MalformedRecord issue and the remaining steps
// still run.
func Extract(article *xmltree.Node) Result {
	bag := FieldBag{PublicationDate: record.UnknownDate()}
	var issues []record.Issue

	if article == nil {
		issues = append(issues, record.MalformedIssue("", "empty raw record"))
	}

	for _, s := range steps {
		issues = append(issues, runStep(s, article, &bag)...)
	}

	for i := range issues {
		issues[i].Identifier = bag.Identifier
		issues[i].ExternalID = bag.ExternalID
	}

	return Result{Fields: bag, Issues: issues}
}

// runStep runs one extraction step, converting a panic into an issue.
func runStep(s step, article *xmltree.Node, bag *FieldBag) (issues []record.Issue) {
	defer func() {
		if r := recover(); r != nil {
			issues = append(issues, record.MalformedIssue(s.field, "unexpected structure: %v", r))
		}
	}()
	return s.fn(article, bag)
}

// extractIdentifiers reads the PMID and DOI.
func extractIdentifiers(article *xmltree.Node, bag *FieldBag) []record.Issue {
	var issues []record.Issue

	pmidNode, ok := article.Path("MedlineCitation", "PMID")
	if !ok {
		pmidNode, ok = article.Path("BookDocument", "PMID")
	}
	if !ok {
		pmidNode, ok = article.Child("PMID")
	}
	if ok {
		if v, found := pmidNode.Value(); found {
			bag.Identifier = v
		} else {
			issues = append(issues, record.MalformedIssue("identifier", "empty PMID element"))
		}
	}

	idList := articleIDList(article)
	if bag.Identifier == "" {
		if n, found := idList.FindWithAttr("ArticleId", "IdType", "pubmed"); found {
			bag.Identifier, _ = n.Value()
		}
	}

	if n, found := idList.FindWithAttr("ArticleId", "IdType", "doi"); found {
		bag.ExternalID, _ = n.Value()
	} else if n, found := article.FindWithAttr("ELocationID", "EIdType", "doi"); found {
		bag.ExternalID, _ = n.Value()
	}

	return issues
}

// articleIDList returns the article's own id list, never one nested in a
// ReferenceList.
func articleIDList(article *xmltree.Node) *xmltree.Node {
	for _, path := range [][]string{
		{"PubmedData", "ArticleIdList"},
		{"PubmedBookData", "ArticleIdList"},
		{"ArticleIdList"},
	} {
		if n, ok := article.Path(path...); ok {
			return n
		}
	}
	return nil
}

// extractTitles reads the article title and journal names.
func extractTitles(article *xmltree.Node, bag *FieldBag) []record.Issue {
	if n, ok := article.Find("ArticleTitle"); ok {
		bag.Title, _ = n.Value()
	} else if n, ok := article.Find("BookTitle"); ok {
		bag.Title, _ = n.Value()
	}

	if journal, ok := article.Find("Journal"); ok {
		bag.JournalTitle, _ = journal.ChildValue("Title")
		bag.JournalAbbreviation, _ = journal.ChildValue("ISOAbbreviation")
	}
	if bag.JournalAbbreviation == "" {
		if n, ok := article.Find("MedlineTA"); ok {
			bag.JournalAbbreviation, _ = n.Value()
		}
	}
	return nil
}

// extractAuthors reads the author list in document order. Each author keeps
// its own affiliation, so an author without one never shifts the
// affiliations of the authors after it.
func extractAuthors(article *xmltree.Node, bag *FieldBag) []record.Issue {
	list, ok := article.Path("MedlineCitation", "Article", "AuthorList")
	if !ok {
		list, ok = article.Find("AuthorList")
	}
	if !ok {
		return nil
	}

	var issues []record.Issue
	authors := make([]record.Author, 0, len(list.Children))
	for i, a := range list.ChildrenNamed("Author") {
		forename, ok := a.ChildValue("ForeName")
		if !ok {
			forename = record.UnknownName
		}
		lastname, ok := a.ChildValue("LastName")
		if !ok {
			lastname = record.UnknownName
		}

		author := record.Author{Name: forename + " " + lastname}
		if aff, ok := a.Find("Affiliation"); ok {
			author.Affiliation, _ = aff.Value()
		}
		if len(a.Children) == 0 {
			issues = append(issues, record.MalformedIssue("authors", "author %d has no name elements", i+1))
		}
		authors = append(authors, author)
	}
	bag.Authors = authors
	return issues
}

// extractPublicationType joins the structured type list, falling back to a
// single scalar type.
func extractPublicationType(article *xmltree.Node, bag *FieldBag) []record.Issue {
	if list, ok := article.Find("PublicationTypeList"); ok {
		var types []string
		for _, c := range list.Children {
			if v, ok := c.Value(); ok {
				types = append(types, v)
			}
		}
		if len(types) > 0 {
			bag.PublicationType = strings.Join(types, ";")
			return nil
		}
	}
	if n, ok := article.Find("PublicationType"); ok {
		bag.PublicationType, _ = n.Value()
	}
	return nil
}

// extractRetractionNotice reads every "retraction in" link. Citations are
// joined with commas; the last linked notice PMID wins.
func extractRetractionNotice(article *xmltree.Node, bag *FieldBag) []record.Issue {
	var issues []record.Issue
	var citations []string

	for _, cc := range article.FindAllWithAttr("CommentsCorrections", "RefType", "RetractionIn") {
		source, hasSource := cc.ChildValue("RefSource")
		if hasSource {
			citations = append(citations, source)
		}
		pmid, hasPMID := cc.ChildValue("PMID")
		if hasPMID {
			bag.RetractionNoticeIdentifier = pmid
		}
		if !hasSource && !hasPMID {
			issues = append(issues, record.MalformedIssue("retraction_notice", "RetractionIn link without RefSource or PMID"))
		}
	}

	bag.RetractionNoticeCitation = strings.Join(citations, ",")
	return issues
}

// extractRetractionOf reads the back-reference of a record that is itself a notice.
func extractRetractionOf(article *xmltree.Node, bag *FieldBag) []record.Issue {
	cc, ok := article.FindWithAttr("CommentsCorrections", "RefType", "RetractionOf")
	if !ok {
		return nil
	}
	pmid, ok := cc.ChildValue("PMID")
	if !ok {
		return []record.Issue{record.MalformedIssue("retraction_of", "RetractionOf link without PMID")}
	}
	bag.RetractedPublicationIdentifier = pmid
	return nil
}
