package extractor

import (
	"regexp"
	"strings"
)

var curriculumVitaeRe = regexp.MustCompile(`(?i)curriculum\s+vitae`)

// SplitName infers given and family name from the top of the document.
//
// The primary candidate is the first non-blank line. A line containing "@"
// (usually a bare email) or reading "curriculum vitae" is discarded and the
// line below is tried instead — exactly one fallback, no further scanning.
// The chosen line splits on whitespace: first token is the given name, the
// remaining tokens joined are the family name; a single token is treated as
// family name only.
func SplitName(text string) (given, family *string) {
	lines := nonBlankLines(text)
	if len(lines) == 0 {
		return nil, nil
	}

	line := lines[0]
	if !usableNameLine(line) {
		if len(lines) < 2 || !usableNameLine(lines[1]) {
			return nil, nil
		}
		line = lines[1]
	}

	tokens := strings.Fields(line)
	switch {
	case len(tokens) >= 2:
		g := tokens[0]
		f := strings.Join(tokens[1:], " ")
		return &g, &f
	case len(tokens) == 1:
		f := tokens[0]
		return nil, &f
	}
	return nil, nil
}

func usableNameLine(line string) bool {
	return !strings.Contains(line, "@") && !curriculumVitaeRe.MatchString(line)
}
