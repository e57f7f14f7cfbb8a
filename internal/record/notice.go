package record

import (
	"regexp"
	"strconv"
	"strings"
)

// Notice holds what can be recovered from a free-text retraction notice citation.
type Notice struct {
	Date    PartialDate // Embedded publication date of the notice
	HasDate bool
	DOI     string // Embedded DOI of the notice, lower-cased
}

// noticeDatePattern matches ". 2021 Mar 4" style dates in a citation such as
// "J Biol Chem. 2021 Mar 4;296:100482".
var noticeDatePattern = regexp.MustCompile(`\. (\d{4}) ?(\w{3})? ?(\d+)?`)

// noticeDOIPattern matches a DOI anywhere in the citation.
var noticeDOIPattern = regexp.MustCompile(`(?i)10\.\d{4,9}/[^\s,;"<>]+`)

// ParseNoticeCitation extracts the embedded date and DOI from a notice citation.
func ParseNoticeCitation(citation string) Notice {
	n := Notice{Date: UnknownDate()}
	citation = strings.TrimSpace(citation)
	if citation == "" {
		return n
	}

	if m := noticeDatePattern.FindStringSubmatch(citation); m != nil {
		if y, err := strconv.Atoi(m[1]); err == nil {
			n.Date.Year = y
			n.HasDate = true
			if m[2] != "" {
				n.Date.Month = MonthOrdinal(m[2])
			}
			if m[3] != "" {
				if d, err := strconv.Atoi(m[3]); err == nil && d >= 1 && d <= 31 {
					n.Date.Day = d
				}
			}
		}
	}

	n.DOI = noticeDOI(citation)
	return n
}

// noticeDOI returns the DOI carried by a citation. A citation that starts
// with "10." is a bare DOI; otherwise a "doi:" marker must be present.
func noticeDOI(citation string) string {
	if strings.HasPrefix(citation, "10.") {
		if m := noticeDOIPattern.FindString(citation); m != "" {
			return strings.ToLower(strings.TrimRight(m, "."))
		}
		return strings.ToLower(strings.Fields(citation)[0])
	}
	lower := strings.ToLower(citation)
	idx := strings.Index(lower, "doi:")
	if idx < 0 {
		return ""
	}
	if m := noticeDOIPattern.FindString(citation[idx:]); m != "" {
		return strings.ToLower(strings.TrimRight(m, "."))
	}
	return ""
}

// Notice parses the record's retraction notice citation.
func (r RetractionRecord) Notice() Notice {
	return ParseNoticeCitation(r.RetractionNoticeCitation)
}
