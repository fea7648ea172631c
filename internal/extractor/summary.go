package extractor

import (
	"strings"

	"github.com/Jeffersson-hub/apiTruthtalent/internal/constants"
)

// Summary returns the summary/profile section content, bounded to
// MaxSummaryChars to cap storage and rendering cost. Nil when the document
// has no such section; the whole text is deliberately not used as a
// fallback — an unanchored summary is noise.
func Summary(section string) *string {
	return boundedSection(section, constants.MaxSummaryChars)
}

// Objective returns the objective section content, bounded to
// MaxObjectiveChars. Nil when absent.
func Objective(section string) *string {
	return boundedSection(section, constants.MaxObjectiveChars)
}

func boundedSection(section string, maxChars int) *string {
	s := strings.TrimSpace(section)
	if s == "" {
		return nil
	}
	if runes := []rune(s); len(runes) > maxChars {
		s = string(runes[:maxChars])
	}
	return &s
}

// Certifications extracts certification entries. A dedicated section yields
// its non-empty lines as written; otherwise lines anywhere in the text
// mentioning a certification keyword are kept. Deduplicated, first-seen
// order, never nil.
func Certifications(section string, fullText string) []string {
	out := []string{}
	seen := make(map[string]struct{})

	add := func(line string) {
		entry := strings.TrimSpace(strings.TrimLeft(line, "-*•– \t"))
		if entry == "" {
			return
		}
		key := strings.ToLower(entry)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		out = append(out, entry)
	}

	if section != "" {
		for _, line := range nonBlankLines(section) {
			add(line)
		}
		return out
	}

	for _, line := range nonBlankLines(fullText) {
		lower := strings.ToLower(line)
		for _, kw := range CertificationKeywords {
			if strings.Contains(lower, kw) {
				add(line)
				break
			}
		}
	}
	return out
}
