package conflict

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"

	"github.com/matsen/retractions/internal/record"
	"github.com/matsen/retractions/internal/storage"
)

// Conflict marker prefixes
const (
	oursMarker      = "<<<<<<<"
	baseMarker      = "|||||||"
	separatorMarker = "======="
	theirsMarker    = ">>>>>>>"
)

type parserState int

const (
	stateClean parserState = iota
	stateOurs
	stateBase // diff3 style: the merge base, dropped
	stateTheirs
)

// parser accumulates segments while scanning lines.
type parser struct {
	file   File
	state  parserState
	clean  []record.RetractionRecord
	region *Region
}

// Parse reads a snapshot that may contain git conflict markers. Clean
// lines and each side of a region are decoded as records.
func Parse(r io.Reader) (*File, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, storage.MaxJSONLLineCapacity), storage.MaxJSONLLineCapacity)

	p := &parser{}
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		if err := p.line(lineNum, scanner.Text()); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if p.state != stateClean {
		return nil, ParseError{Line: lineNum, Message: "unterminated conflict region at end of file"}
	}
	p.flushClean()
	return &p.file, nil
}

// ParseString is a convenience function that parses from a string.
func ParseString(content string) (*File, error) {
	return Parse(strings.NewReader(content))
}

func (p *parser) line(n int, line string) error {
	marker := markerOf(line)

	switch p.state {
	case stateClean:
		switch marker {
		case oursMarker:
			p.flushClean()
			p.region = &Region{StartLine: n}
			p.state = stateOurs
			return nil
		case "":
			return decodeInto(&p.clean, n, line)
		default:
			return ParseError{Line: n, Message: "unexpected " + marker + " marker outside conflict region", Context: line}
		}

	case stateOurs, stateBase:
		switch marker {
		case baseMarker:
			p.state = stateBase
			return nil
		case separatorMarker:
			p.state = stateTheirs
			return nil
		case "":
			if p.state == stateBase {
				return nil
			}
			return decodeInto(&p.region.Ours, n, line)
		default:
			return ParseError{Line: n, Message: "unexpected " + marker + " marker before separator", Context: line}
		}

	default: // stateTheirs
		switch marker {
		case theirsMarker:
			p.region.EndLine = n
			p.file.Segments = append(p.file.Segments, Segment{Region: p.region})
			p.region = nil
			p.state = stateClean
			return nil
		case "":
			return decodeInto(&p.region.Theirs, n, line)
		default:
			return ParseError{Line: n, Message: "unexpected " + marker + " marker after separator", Context: line}
		}
	}
}

func (p *parser) flushClean() {
	if len(p.clean) > 0 {
		p.file.Segments = append(p.file.Segments, Segment{Clean: p.clean})
		p.clean = nil
	}
}

// markerOf returns the conflict marker a line starts with, or "".
func markerOf(line string) string {
	for _, m := range []string{oursMarker, baseMarker, separatorMarker, theirsMarker} {
		if strings.HasPrefix(line, m) {
			return m
		}
	}
	return ""
}

// decodeInto appends the record on line to dst. Blank lines are skipped.
func decodeInto(dst *[]record.RetractionRecord, n int, line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	var r record.RetractionRecord
	if err := json.Unmarshal([]byte(line), &r); err != nil {
		return ParseError{Line: n, Message: "invalid JSON: " + err.Error(), Context: truncate(line, 50)}
	}
	*dst = append(*dst, r)
	return nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
