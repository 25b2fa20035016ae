package chunker

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/dshills/vecsync-mcp/pkg/types"
)

// segment is a Stage 1 structural unit, a byte range of the source
type segment struct {
	kind      types.ChunkType
	start     int
	end       int
	hierarchy []string
	language  string
	level     int // heading level for header sections
}

// line is a source line including its terminating newline
type line struct {
	text  string
	start int
}

type scanResult struct {
	segments []segment
	warnings []*types.ChunkingError
}

var (
	headingLine   = regexp.MustCompile(`^ {0,3}(#{1,6})(?:[ \t]+(.*?))?[ \t]*$`)
	fenceOpen     = regexp.MustCompile("^ {0,3}(`{3,}|~{3,})(.*)$")
	listItem      = regexp.MustCompile(`^ {0,3}(?:[-*+]|\d{1,9}[.)])(?:[ \t]+|$)`)
	tableDelim    = regexp.MustCompile(`^ {0,3}\|?[ \t]*:?-+:?[ \t]*(?:\|[ \t]*:?-+:?[ \t]*)*\|?[ \t]*$`)
	closingHashes = regexp.MustCompile(`(?:^|[ \t]+)#+$`)
)

type heading struct {
	level int
	title string
}

// scanStructure partitions text into segments. Every byte belongs to exactly
// one segment: blank lines attach to the preceding segment and leading blank
// lines to the first.
func scanStructure(text string) scanResult {
	var res scanResult
	lines := splitLines(text)
	var stack []heading

	open := func(kind types.ChunkType, at int) *segment {
		res.segments = append(res.segments, segment{
			kind:      kind,
			start:     at,
			hierarchy: titles(stack),
		})
		return &res.segments[len(res.segments)-1]
	}

	for i := 0; i < len(lines); {
		ln := lines[i]
		body := trimEOL(ln.text)

		if isBlank(body) {
			i++
			continue
		}

		if m := headingLine.FindStringSubmatch(body); m != nil {
			level := len(m[1])
			for len(stack) > 0 && stack[len(stack)-1].level >= level {
				stack = stack[:len(stack)-1]
			}
			stack = append(stack, heading{level: level, title: headingTitle(m[2])})
			seg := open(types.ChunkHeaderSection, ln.start)
			seg.level = level
			i++
			continue
		}

		if m := fenceOpen.FindStringSubmatch(body); m != nil && validFenceInfo(m[1], m[2]) {
			if closeAt := findFenceClose(lines, i+1, m[1]); closeAt >= 0 {
				seg := open(types.ChunkCodeBlock, ln.start)
				code := joinLines(lines[i+1 : closeAt])
				seg.language = resolveLanguage(m[2], code)
				i = closeAt + 1
				continue
			}
			res.warnings = append(res.warnings, &types.ChunkingError{
				Offset: ln.start,
				Reason: "unterminated code fence treated as text",
			})
			i = prose(&res, lines, i, stack)
			continue
		}

		if i+1 < len(lines) && isTableStart(body, trimEOL(lines[i+1].text)) {
			open(types.ChunkTable, ln.start)
			j := i + 2
			for j < len(lines) {
				t := trimEOL(lines[j].text)
				if isBlank(t) || !strings.Contains(t, "|") {
					break
				}
				j++
			}
			i = j
			continue
		}

		if listItem.MatchString(body) {
			open(types.ChunkList, ln.start)
			i = listEnd(lines, i)
			continue
		}

		i = prose(&res, lines, i, stack)
	}

	if len(res.segments) == 0 {
		return res
	}

	res.segments[0].start = 0
	for k := 0; k < len(res.segments)-1; k++ {
		res.segments[k].end = res.segments[k+1].start
	}
	res.segments[len(res.segments)-1].end = len(text)
	return res
}

// prose consumes one prose line. Prose continues an open header section or
// paragraph and otherwise opens a new paragraph.
func prose(res *scanResult, lines []line, i int, stack []heading) int {
	if n := len(res.segments); n > 0 {
		switch res.segments[n-1].kind {
		case types.ChunkHeaderSection, types.ChunkParagraph:
			return i + 1
		}
	}
	res.segments = append(res.segments, segment{
		kind:      types.ChunkParagraph,
		start:     lines[i].start,
		hierarchy: titles(stack),
	})
	return i + 1
}

// listEnd returns the index of the first line after the list starting at i
func listEnd(lines []line, i int) int {
	j := i + 1
	for j < len(lines) {
		t := trimEOL(lines[j].text)
		if listItem.MatchString(t) || (!isBlank(t) && isIndented(t)) {
			j++
			continue
		}
		if !isBlank(t) {
			break
		}
		k := j
		for k < len(lines) && isBlank(trimEOL(lines[k].text)) {
			k++
		}
		if k < len(lines) {
			next := trimEOL(lines[k].text)
			if listItem.MatchString(next) || isIndented(next) {
				j = k
				continue
			}
		}
		break
	}
	return j
}

// findFenceClose returns the index of the line closing a fence opened by
// marker, or -1
func findFenceClose(lines []line, from int, marker string) int {
	ch := marker[0]
	for j := from; j < len(lines); j++ {
		t := strings.TrimRight(trimEOL(lines[j].text), " \t")
		lead := len(t) - len(strings.TrimLeft(t, " "))
		if lead > 3 {
			continue
		}
		t = t[lead:]
		if len(t) < len(marker) {
			continue
		}
		if strings.Trim(t, string(ch)) == "" {
			return j
		}
	}
	return -1
}

// validFenceInfo rejects backtick fences whose info string contains a backtick
func validFenceInfo(marker, info string) bool {
	return marker[0] != '`' || !strings.Contains(info, "`")
}

// isTableStart reports whether header and delim open a pipe table
func isTableStart(header, delim string) bool {
	return strings.Contains(header, "|") && strings.Contains(delim, "|") &&
		strings.Contains(delim, "-") && tableDelim.MatchString(delim)
}

func headingTitle(raw string) string {
	t := strings.TrimSpace(raw)
	if loc := closingHashes.FindStringIndex(t); loc != nil {
		t = t[:loc[0]]
	}
	return norm.NFC.String(strings.TrimSpace(t))
}

func titles(stack []heading) []string {
	if len(stack) == 0 {
		return nil
	}
	out := make([]string, len(stack))
	for i, h := range stack {
		out[i] = h.title
	}
	return out
}

func splitLines(text string) []line {
	var lines []line
	start := 0
	for start < len(text) {
		end := strings.IndexByte(text[start:], '\n')
		if end < 0 {
			lines = append(lines, line{text: text[start:], start: start})
			break
		}
		lines = append(lines, line{text: text[start : start+end+1], start: start})
		start += end + 1
	}
	return lines
}

func joinLines(lines []line) string {
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l.text)
	}
	return b.String()
}

func trimEOL(s string) string {
	s = strings.TrimSuffix(s, "\n")
	return strings.TrimSuffix(s, "\r")
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func isIndented(s string) bool {
	return strings.HasPrefix(s, "  ") || strings.HasPrefix(s, "\t")
}

// Signals summarises the structure found in a document
type Signals struct {
	Headings           int
	CodeBlocks         int
	Tables             int
	Lists              int
	Paragraphs         int
	UnterminatedFences int
}

// HasStructure reports whether any structural element besides prose was found
func (s Signals) HasStructure() bool {
	return s.Headings+s.CodeBlocks+s.Tables+s.Lists > 0
}

// Analyze scans text and counts its structural elements. Headings inside
// fenced code are not counted.
func Analyze(text string) Signals {
	scan := scanStructure(text)
	sig := Signals{UnterminatedFences: len(scan.warnings)}
	for _, seg := range scan.segments {
		switch seg.kind {
		case types.ChunkHeaderSection:
			sig.Headings++
		case types.ChunkCodeBlock:
			sig.CodeBlocks++
		case types.ChunkTable:
			sig.Tables++
		case types.ChunkList:
			sig.Lists++
		case types.ChunkParagraph:
			sig.Paragraphs++
		}
	}
	return sig
}
