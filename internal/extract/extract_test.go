package extract

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matsen/retractions/internal/record"
	"github.com/matsen/retractions/internal/xmltree"
)

func loadArticles(t *testing.T, name string) []*xmltree.Node {
	t.Helper()
	f, err := os.Open(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("opening fixture: %v", err)
	}
	defer f.Close()

	root, err := xmltree.Parse(f)
	if err != nil {
		t.Fatalf("parsing fixture: %v", err)
	}
	return xmltree.Articles(root)
}

func parseArticle(t *testing.T, doc string) *xmltree.Node {
	t.Helper()
	root, err := xmltree.Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("parsing article: %v", err)
	}
	return root
}

func TestExtract_RetractedArticle(t *testing.T) {
	articles := loadArticles(t, "retracted.xml")
	if len(articles) != 2 {
		t.Fatalf("got %d articles, want 2", len(articles))
	}

	res := Extract(articles[0])
	if len(res.Issues) != 0 {
		t.Errorf("unexpected issues: %v", res.Issues)
	}
	bag := res.Fields

	if bag.Identifier != "33441234" {
		t.Errorf("Identifier = %q, want 33441234", bag.Identifier)
	}
	if bag.ExternalID != "10.3390/IJMS22010001" {
		t.Errorf("ExternalID = %q, want the ArticleIdList DOI", bag.ExternalID)
	}
	if want := (record.PartialDate{Year: 2021, Month: 3, Day: 4}); bag.PublicationDate != want {
		t.Errorf("PublicationDate = %v, want %v", bag.PublicationDate, want)
	}
	if bag.DateSource != SourceArticleDate {
		t.Errorf("DateSource = %q, want %q", bag.DateSource, SourceArticleDate)
	}
	if bag.Title != "Long noncoding RNA MALAT1 promotes tumour growth." {
		t.Errorf("Title = %q", bag.Title)
	}
	if bag.JournalTitle != "International journal of molecular sciences" {
		t.Errorf("JournalTitle = %q", bag.JournalTitle)
	}
	if bag.JournalAbbreviation != "Int J Mol Sci" {
		t.Errorf("JournalAbbreviation = %q", bag.JournalAbbreviation)
	}
	if bag.PublicationType != "Journal Article;Retracted Publication" {
		t.Errorf("PublicationType = %q", bag.PublicationType)
	}
	if bag.RetractionNoticeIdentifier != "37370001" {
		t.Errorf("RetractionNoticeIdentifier = %q", bag.RetractionNoticeIdentifier)
	}
	if bag.RetractionNoticeCitation != "Int J Mol Sci. 2023 Jun 12;24(12):10001" {
		t.Errorf("RetractionNoticeCitation = %q", bag.RetractionNoticeCitation)
	}
	if bag.RetractedPublicationIdentifier != "" {
		t.Errorf("RetractedPublicationIdentifier = %q, want empty", bag.RetractedPublicationIdentifier)
	}
}

func TestExtract_AuthorAffiliationPairing(t *testing.T) {
	articles := loadArticles(t, "retracted.xml")
	bag := Extract(articles[0]).Fields

	want := []record.Author{
		{Name: "Wei Zhang", Affiliation: "Department of Oncology, Example University, Beijing, China."},
		{Name: "Na Li"},
		{Name: "unknown Chen", Affiliation: "School of Medicine, Example University, Shanghai, China."},
	}
	if len(bag.Authors) != len(want) {
		t.Fatalf("got %d authors, want %d", len(bag.Authors), len(want))
	}
	for i := range want {
		if bag.Authors[i] != want[i] {
			t.Errorf("author %d = %+v, want %+v", i, bag.Authors[i], want[i])
		}
	}
}

func TestExtract_NoticeBackReference(t *testing.T) {
	articles := loadArticles(t, "retracted.xml")
	res := Extract(articles[1])
	bag := res.Fields

	if bag.Identifier != "37370001" {
		t.Errorf("Identifier = %q", bag.Identifier)
	}
	if bag.RetractedPublicationIdentifier != "33441234" {
		t.Errorf("RetractedPublicationIdentifier = %q, want 33441234", bag.RetractedPublicationIdentifier)
	}
	if want := (record.PartialDate{Year: 2023, Month: 6, Day: 12}); bag.PublicationDate != want {
		t.Errorf("PublicationDate = %v, want %v", bag.PublicationDate, want)
	}
	if bag.DateSource != SourcePubDate {
		t.Errorf("DateSource = %q, want %q", bag.DateSource, SourcePubDate)
	}
	if len(bag.Authors) != 0 {
		t.Errorf("Authors = %v, want none", bag.Authors)
	}
	if bag.ExternalID != "" {
		t.Errorf("ExternalID = %q, want empty", bag.ExternalID)
	}
	if len(res.Issues) != 0 {
		t.Errorf("a missing author list is not an issue, got %v", res.Issues)
	}
}

func TestExtract_DateFallbacks(t *testing.T) {
	tests := []struct {
		name       string
		doc        string
		wantDate   record.PartialDate
		wantSource DateSource
	}{
		{
			name: "article date beats pub date",
			doc: `<PubmedArticle><MedlineCitation><PMID>1</PMID><Article>
				<Journal><JournalIssue><PubDate><Year>2019</Year></PubDate></JournalIssue></Journal>
				<ArticleDate><Year>2021</Year><Month>5</Month></ArticleDate>
				</Article></MedlineCitation></PubmedArticle>`,
			wantDate:   record.PartialDate{Year: 2021, Month: 5, Day: record.UnknownDay},
			wantSource: SourceArticleDate,
		},
		{
			name: "month name normalized",
			doc: `<PubmedArticle><MedlineCitation><PMID>1</PMID><Article>
				<Journal><JournalIssue><PubDate><Year>2020</Year><Month>Mar</Month></PubDate></JournalIssue></Journal>
				</Article></MedlineCitation></PubmedArticle>`,
			wantDate:   record.PartialDate{Year: 2020, Month: 3, Day: record.UnknownDay},
			wantSource: SourcePubDate,
		},
		{
			name: "unrecognized month becomes january",
			doc: `<PubmedArticle><MedlineCitation><PMID>1</PMID><Article>
				<Journal><JournalIssue><PubDate><Year>2020</Year><Month>Spring</Month></PubDate></JournalIssue></Journal>
				</Article></MedlineCitation></PubmedArticle>`,
			wantDate:   record.PartialDate{Year: 2020, Month: 1, Day: record.UnknownDay},
			wantSource: SourcePubDate,
		},
		{
			name: "medline date",
			doc: `<PubmedArticle><MedlineCitation><PMID>1</PMID><Article>
				<Journal><JournalIssue><PubDate><MedlineDate>1998 Dec-1999 Jan</MedlineDate></PubDate></JournalIssue></Journal>
				</Article></MedlineCitation></PubmedArticle>`,
			wantDate:   record.PartialDate{Year: 1998, Month: 12, Day: record.UnknownDay},
			wantSource: SourcePubDate,
		},
		{
			name: "yearless pub date falls through to history",
			doc: `<PubmedArticle><MedlineCitation><PMID>1</PMID><Article>
				<Journal><JournalIssue><PubDate><Month>Jan</Month></PubDate></JournalIssue></Journal>
				</Article></MedlineCitation><PubmedData><History>
				<PubMedPubDate PubStatus="entrez"><Year>2017</Year><Month>2</Month><Day>2</Day></PubMedPubDate>
				<PubMedPubDate PubStatus="medline"><Year>2017</Year><Month>3</Month><Day>3</Day></PubMedPubDate>
				</History></PubmedData></PubmedArticle>`,
			wantDate:   record.PartialDate{Year: 2017, Month: 3, Day: 3},
			wantSource: HistorySource("medline"),
		},
		{
			name: "history order prefers pubmed status",
			doc: `<PubmedArticle><MedlineCitation><PMID>1</PMID></MedlineCitation><PubmedData><History>
				<PubMedPubDate PubStatus="entrez"><Year>2016</Year><Month>1</Month><Day>1</Day></PubMedPubDate>
				<PubMedPubDate PubStatus="pubmed"><Year>2016</Year><Month>7</Month><Day>8</Day></PubMedPubDate>
				</History></PubmedData></PubmedArticle>`,
			wantDate:   record.PartialDate{Year: 2016, Month: 7, Day: 8},
			wantSource: HistorySource("pubmed"),
		},
		{
			name:       "no date at all",
			doc:        `<PubmedArticle><MedlineCitation><PMID>1</PMID></MedlineCitation></PubmedArticle>`,
			wantDate:   record.UnknownDate(),
			wantSource: SourceNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bag := Extract(parseArticle(t, tt.doc)).Fields
			if bag.PublicationDate != tt.wantDate {
				t.Errorf("PublicationDate = %+v, want %+v", bag.PublicationDate, tt.wantDate)
			}
			if bag.DateSource != tt.wantSource {
				t.Errorf("DateSource = %q, want %q", bag.DateSource, tt.wantSource)
			}
		})
	}
}

func TestExtract_MalformedFieldIsIsolated(t *testing.T) {
	doc := `<PubmedArticle><MedlineCitation><PMID>42</PMID><Article>
		<Journal><Title>Journal of Tests</Title><JournalIssue><PubDate><Year>20x1</Year></PubDate></JournalIssue></Journal>
		<ArticleTitle>A title survives</ArticleTitle>
		</Article></MedlineCitation></PubmedArticle>`

	res := Extract(parseArticle(t, doc))

	if len(res.Issues) != 1 {
		t.Fatalf("got %d issues, want 1: %v", len(res.Issues), res.Issues)
	}
	issue := res.Issues[0]
	if !record.IsMalformed(issue) {
		t.Errorf("issue kind = %q, want malformed", issue.Kind)
	}
	if issue.Identifier != "42" {
		t.Errorf("issue identifier = %q, want 42", issue.Identifier)
	}
	if issue.Field != "publication_date" {
		t.Errorf("issue field = %q, want publication_date", issue.Field)
	}
	if !res.Fields.PublicationDate.IsUnknown() {
		t.Errorf("PublicationDate = %v, want unknown", res.Fields.PublicationDate)
	}
	if res.Fields.Title != "A title survives" {
		t.Errorf("Title = %q", res.Fields.Title)
	}
	if res.Fields.JournalTitle != "Journal of Tests" {
		t.Errorf("JournalTitle = %q", res.Fields.JournalTitle)
	}
}

func TestExtract_NilArticle(t *testing.T) {
	res := Extract(nil)
	if len(res.Issues) == 0 {
		t.Fatal("expected an issue for a nil article")
	}
	if res.Fields.Identifier != "" {
		t.Errorf("Identifier = %q, want empty", res.Fields.Identifier)
	}
	if !res.Fields.PublicationDate.IsUnknown() {
		t.Errorf("PublicationDate = %v, want unknown", res.Fields.PublicationDate)
	}
}

func TestExtract_MultipleRetractionNotices(t *testing.T) {
	doc := `<PubmedArticle><MedlineCitation><PMID>7</PMID>
		<CommentsCorrectionsList>
		<CommentsCorrections RefType="RetractionIn"><RefSource>J A. 2020</RefSource><PMID>100</PMID></CommentsCorrections>
		<CommentsCorrections RefType="CommentIn"><RefSource>J C. 2019</RefSource><PMID>999</PMID></CommentsCorrections>
		<CommentsCorrections RefType="RetractionIn"><RefSource>J B. 2021</RefSource><PMID>200</PMID></CommentsCorrections>
		</CommentsCorrectionsList></MedlineCitation></PubmedArticle>`

	bag := Extract(parseArticle(t, doc)).Fields
	if bag.RetractionNoticeIdentifier != "200" {
		t.Errorf("RetractionNoticeIdentifier = %q, want the last linked notice", bag.RetractionNoticeIdentifier)
	}
	if bag.RetractionNoticeCitation != "J A. 2020,J B. 2021" {
		t.Errorf("RetractionNoticeCitation = %q", bag.RetractionNoticeCitation)
	}
}

func TestExtract_ScalarPublicationTypeAndELocationDOI(t *testing.T) {
	doc := `<PubmedArticle><MedlineCitation><PMID>8</PMID><Article>
		<ELocationID EIdType="pii">S0001</ELocationID>
		<ELocationID EIdType="doi">10.1000/xyz</ELocationID>
		<PublicationType>Retracted Publication</PublicationType>
		</Article></MedlineCitation></PubmedArticle>`

	bag := Extract(parseArticle(t, doc)).Fields
	if bag.PublicationType != "Retracted Publication" {
		t.Errorf("PublicationType = %q", bag.PublicationType)
	}
	if bag.ExternalID != "10.1000/xyz" {
		t.Errorf("ExternalID = %q, want ELocationID DOI", bag.ExternalID)
	}
}

func TestExtract_IgnoresReferenceIDs(t *testing.T) {
	doc := `<PubmedArticle><MedlineCitation><PMID>9</PMID></MedlineCitation><PubmedData>
		<ReferenceList><Reference><ArticleIdList><ArticleId IdType="doi">10.9/ref</ArticleId></ArticleIdList></Reference></ReferenceList>
		<ArticleIdList><ArticleId IdType="doi">10.9/own</ArticleId></ArticleIdList>
		</PubmedData></PubmedArticle>`

	bag := Extract(parseArticle(t, doc)).Fields
	if bag.ExternalID != "10.9/own" {
		t.Errorf("ExternalID = %q, want the article's own DOI", bag.ExternalID)
	}
}

func TestExtract_IdentifierFallback(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantID  string
		wantDOI string
	}{
		{
			name: "pubmed article id when PMID is absent",
			doc: `<PubmedArticle><MedlineCitation><Article><ArticleTitle>T</ArticleTitle></Article></MedlineCitation>
				<PubmedData><ArticleIdList>
					<ArticleId IdType="pubmed">555</ArticleId>
					<ArticleId IdType="doi">10.1/x</ArticleId>
				</ArticleIdList></PubmedData></PubmedArticle>`,
			wantID:  "555",
			wantDOI: "10.1/x",
		},
		{
			name: "reference ids are not the article's",
			doc: `<PubmedArticle><MedlineCitation><Article><ArticleTitle>T</ArticleTitle></Article></MedlineCitation>
				<PubmedData><ReferenceList><Reference><ArticleIdList>
					<ArticleId IdType="pubmed">777</ArticleId>
					<ArticleId IdType="doi">10.7/ref</ArticleId>
				</ArticleIdList></Reference></ReferenceList></PubmedData></PubmedArticle>`,
		},
		{
			name: "book article",
			doc: `<PubmedBookArticle><BookDocument><PMID Version="1">888</PMID>
				<Book><BookTitle>Handbook</BookTitle></Book></BookDocument>
				<PubmedBookData><ArticleIdList><ArticleId IdType="doi">10.8/book</ArticleId></ArticleIdList></PubmedBookData>
				</PubmedBookArticle>`,
			wantID:  "888",
			wantDOI: "10.8/book",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Extract(parseArticle(t, tt.doc))
			if len(res.Issues) != 0 {
				t.Errorf("unexpected issues: %v", res.Issues)
			}
			if res.Fields.Identifier != tt.wantID {
				t.Errorf("Identifier = %q, want %q", res.Fields.Identifier, tt.wantID)
			}
			if res.Fields.ExternalID != tt.wantDOI {
				t.Errorf("ExternalID = %q, want %q", res.Fields.ExternalID, tt.wantDOI)
			}
		})
	}
}

func TestExtract_BookArticleFromSet(t *testing.T) {
	doc := `<PubmedArticleSet><PubmedBookArticle><BookDocument><PMID>888</PMID>
		<Book><BookTitle>Handbook of retractions</BookTitle></Book></BookDocument></PubmedBookArticle></PubmedArticleSet>`

	articles := xmltree.Articles(parseArticle(t, doc))
	if len(articles) != 1 {
		t.Fatalf("got %d articles, want 1", len(articles))
	}
	bag := Extract(articles[0]).Fields
	if bag.Identifier != "888" || bag.Title != "Handbook of retractions" {
		t.Errorf("book fields = %q %q", bag.Identifier, bag.Title)
	}
}
