package extractor

import "strings"

var lineEndings = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// Normalize converts raw decoded text into the canonical line-oriented form
// the extractors work on: CR and CRLF become LF and every line is trimmed.
// Whitespace runs inside a line are left alone — line structure carries
// meaning for the heuristics, horizontal spacing does not hurt them.
// Total function: any input, including garbage, yields a string.
func Normalize(raw string) string {
	s := lineEndings.Replace(raw)
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	return strings.Join(lines, "\n")
}

// nonBlankLines returns the trimmed, non-empty lines of normalized text.
func nonBlankLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
