package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/matsen/retractions/internal/record"
)

// Constants for output formatting.
const (
	DefaultSearchLimit = 50 // Default limit for search results

	SearchTitleMaxLen = 70 // Used in search result summaries
	DiffValueMaxLen   = 60 // Used in reconcile difference listings

	TextWrapWidth = 68
)

// outputJSON writes a value as formatted JSON to stdout.
func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError writes an error message to stderr and returns the exit code.
func outputError(code int, format string, args ...interface{}) int {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	return code
}

// exitWithError outputs an error in the appropriate format (human or JSON) and exits.
func exitWithError(code int, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if humanOutput {
		fmt.Fprintf(os.Stderr, "error: %s\n", msg)
	} else {
		outputJSON(ErrorResponse{Error: msg})
	}
	os.Exit(code)
}

// printIssuesHuman lists data-quality issues on stderr, followed by a count.
func printIssuesHuman(issues []record.Issue) {
	if len(issues) == 0 {
		return
	}
	if !quietOutput {
		for _, issue := range issues {
			fmt.Fprintf(os.Stderr, "warning: %s\n", issue.Error())
		}
	}
	fmt.Fprintf(os.Stderr, "%d issue(s) reported\n", len(issues))
}

// nonNilIssues keeps JSON output as [] rather than null.
func nonNilIssues(issues []record.Issue) []record.Issue {
	if issues == nil {
		return []record.Issue{}
	}
	return issues
}

// truncateString truncates a string to maxLen, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// wrapText wraps text to the specified width with indentation on subsequent lines.
func wrapText(text string, width int, indent string) string {
	if len(text) <= width {
		return text
	}

	var lines []string
	var currentLine strings.Builder

	for _, word := range strings.Fields(text) {
		if currentLine.Len() == 0 {
			currentLine.WriteString(word)
		} else if currentLine.Len()+1+len(word) <= width {
			currentLine.WriteString(" ")
			currentLine.WriteString(word)
		} else {
			lines = append(lines, currentLine.String())
			currentLine.Reset()
			currentLine.WriteString(word)
		}
	}
	if currentLine.Len() > 0 {
		lines = append(lines, currentLine.String())
	}

	return strings.Join(lines, "\n"+indent)
}

// formatAuthorsShort formats author names with "et al." after maxCount.
func formatAuthorsShort(authors []record.Author, maxCount int) string {
	var names []string
	for i, a := range authors {
		if i >= maxCount {
			names = append(names, "et al.")
			break
		}
		names = append(names, a.Name)
	}
	return strings.Join(names, ", ")
}

// printRecordSummary prints one numbered record in list form.
func printRecordSummary(num int, r record.RetractionRecord) {
	fmt.Printf("[%d] %s\n", num, r.Identifier)
	fmt.Printf("    %s\n", truncateString(r.Title, SearchTitleMaxLen))
	if len(r.Authors) > 0 {
		fmt.Printf("    %s\n", formatAuthorsShort(r.Authors, 3))
	}
	journal := r.JournalAbbreviation
	if journal == "" {
		journal = r.JournalTitle
	}
	fmt.Printf("    %s (%s)\n\n", journal, r.PublicationDate.String())
}

// printRecordDetail prints every field of one record.
func printRecordDetail(r record.RetractionRecord) {
	fmt.Println(r.Identifier)
	fmt.Println(strings.Repeat("═", 70))
	fmt.Println()

	indent := strings.Repeat(" ", 12)
	fmt.Printf("Title:      %s\n", wrapText(r.Title, TextWrapWidth-12, indent))
	fmt.Println()

	if len(r.Authors) > 0 {
		fmt.Println("Authors:")
		for _, a := range r.Authors {
			if a.HasAffiliation() {
				fmt.Printf("  %s\n    %s\n", a.Name, wrapText(a.Affiliation, TextWrapWidth-4, "    "))
			} else {
				fmt.Printf("  %s\n", a.Name)
			}
		}
		fmt.Println()
	}

	fmt.Printf("Journal:    %s\n", r.JournalTitle)
	if r.JournalAbbreviation != "" {
		fmt.Printf("Abbrev:     %s\n", r.JournalAbbreviation)
	}
	fmt.Printf("Published:  %s\n", r.PublicationDate.String())
	if r.ExternalID != "" {
		fmt.Printf("DOI:        %s\n", r.ExternalID)
	}
	if r.PublicationType != "" {
		fmt.Printf("Types:      %s\n", r.PublicationType)
	}

	if r.RetractionNoticeIdentifier != "" || r.RetractionNoticeCitation != "" {
		fmt.Println()
		fmt.Printf("Notice:     %s\n", r.RetractionNoticeIdentifier)
		if r.RetractionNoticeCitation != "" {
			fmt.Printf("            %s\n", wrapText(r.RetractionNoticeCitation, TextWrapWidth-12, indent))
		}
	}
	if r.IsNotice() {
		fmt.Printf("Retracts:   %s\n", r.RetractedPublicationIdentifier)
	}

	runs := r.SourceRuns
	if len(runs) == 0 && r.Run != "" {
		runs = []string{r.Run}
	}
	if len(runs) > 0 {
		fmt.Println()
		fmt.Printf("Runs:       %s\n", strings.Join(runs, ", "))
	}
}
