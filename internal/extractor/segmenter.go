package extractor

import "strings"

// maxHeadingLen bounds how long a line may be and still count as a heading.
// Real headings are short; a long line that happens to start with a section
// word is body text.
const maxHeadingLen = 64

// Segment locates heading-delimited regions in normalized text. For each
// requested canonical section key (see SectionHeadings) it finds the first
// line opening that section, case-insensitively, and captures everything
// until the next recognised heading or end of text. Inline content on the
// heading line itself ("Compétences: Python, SQL") belongs to the span.
//
// A section whose heading is not found is absent from the map; callers fall
// back to whole-text scanning. Spans are located independently: when a stray
// heading word inside body text makes two spans overlap, the first located
// span is kept as-is rather than truncated. Accepted limitation.
func Segment(text string, sections []string) map[string]string {
	lines := strings.Split(text, "\n")
	out := make(map[string]string, len(sections))

	for _, section := range sections {
		aliases := SectionHeadings[section]
		if len(aliases) == 0 {
			aliases = []string{section}
		}
		for i, line := range lines {
			inline, ok := matchHeading(line, aliases)
			if !ok {
				continue
			}
			span := captureSpan(lines, i, inline)
			if span != "" {
				out[section] = span
			}
			break
		}
	}
	return out
}

// matchHeading reports whether line opens a section named by one of the
// aliases, and returns any inline content following the heading separator.
func matchHeading(line string, aliases []string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || len(trimmed) > maxHeadingLen && !strings.Contains(trimmed, ":") {
		return "", false
	}
	lower := strings.ToLower(trimmed)
	for _, alias := range aliases {
		if !strings.HasPrefix(lower, alias) {
			continue
		}
		rest := trimmed[len(alias):]
		restTrimmed := strings.TrimLeft(rest, " \t")
		switch {
		case restTrimmed == "":
			return "", true
		case strings.HasPrefix(restTrimmed, ":") || strings.HasPrefix(restTrimmed, "-"):
			return strings.TrimSpace(restTrimmed[1:]), true
		}
	}
	return "", false
}

// isAnyHeading reports whether line opens any known section.
func isAnyHeading(line string) bool {
	for _, aliases := range SectionHeadings {
		if _, ok := matchHeading(line, aliases); ok {
			return true
		}
	}
	return false
}

// captureSpan collects the section body starting at the heading line at
// index start: inline heading content first, then following lines until the
// next heading.
func captureSpan(lines []string, start int, inline string) string {
	var parts []string
	if inline != "" {
		parts = append(parts, inline)
	}
	for i := start + 1; i < len(lines); i++ {
		if isAnyHeading(lines[i]) {
			break
		}
		parts = append(parts, lines[i])
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}
