package extractor

import (
	"strings"

	"github.com/Jeffersson-hub/apiTruthtalent/internal/candidate"
)

// EducationEntries collects the lines of span that mention an education
// keyword, as opaque raw strings. No further decomposition: splitting
// degree, school and year out of free-form lines traded too much precision
// for too little structure. Deduplicated, first-seen order, never nil.
func EducationEntries(span string) []candidate.Education {
	out := []candidate.Education{}
	seen := make(map[string]struct{})
	for _, line := range nonBlankLines(span) {
		if !containsEducationKeyword(line) {
			continue
		}
		key := strings.ToLower(line)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, candidate.Education{Raw: line})
	}
	return out
}

func containsEducationKeyword(line string) bool {
	lower := strings.ToLower(line)
	for _, kw := range EducationKeywords {
		if indexWord(lower, kw) >= 0 {
			return true
		}
	}
	return false
}
