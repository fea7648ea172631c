package extractor

import (
	"sort"
	"strings"
	"unicode"
)

// Skills extracts the distinct skill list. When the document has a skills
// section, its delimited list is authoritative (comma, semicolon, newline or
// bullet separated, kept as written). Otherwise the text is scanned against
// the taxonomy, extended with extraSkills. Either way the result keeps
// first-occurrence order with case-insensitive deduplication; it is never
// nil.
func Skills(section string, fullText string, extraSkills []string) []string {
	if section != "" {
		return parseSkillList(section)
	}
	taxonomy := SkillTaxonomy
	if len(extraSkills) > 0 {
		taxonomy = append(append([]string{}, SkillTaxonomy...), extraSkills...)
	}
	return matchTaxonomy(fullText, taxonomy)
}

var skillSeparators = func(r rune) bool {
	switch r {
	case ',', ';', '\n', '•', '·', '|':
		return true
	}
	return false
}

// parseSkillList splits a section body into individual skill items.
func parseSkillList(section string) []string {
	items := strings.FieldsFunc(section, skillSeparators)
	out := []string{}
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		skill := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(item), "-*– \t"))
		if skill == "" {
			continue
		}
		key := strings.ToLower(skill)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, skill)
	}
	return out
}

// matchTaxonomy returns the taxonomy entries present in the text as whole
// words, ordered by first occurrence. Matching is done on the lowercased
// text with manual boundary checks; regex word boundaries misbehave on
// entries like "C++" or ".NET".
func matchTaxonomy(text string, taxonomy []string) []string {
	lower := strings.ToLower(text)

	type hit struct {
		index int
		skill string
	}
	var hits []hit
	seen := make(map[string]struct{}, len(taxonomy))

	for _, skill := range taxonomy {
		key := strings.ToLower(skill)
		if _, dup := seen[key]; dup {
			continue
		}
		if idx := indexWord(lower, key); idx >= 0 {
			seen[key] = struct{}{}
			hits = append(hits, hit{index: idx, skill: skill})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].index < hits[j].index })

	out := make([]string, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.skill)
	}
	return out
}

// indexWord finds needle in haystack at a word boundary: the characters
// adjacent to the match must not be letters or digits. Returns -1 when no
// such occurrence exists.
func indexWord(haystack, needle string) int {
	if needle == "" {
		return -1
	}
	from := 0
	for {
		idx := strings.Index(haystack[from:], needle)
		if idx < 0 {
			return -1
		}
		idx += from
		if boundaryBefore(haystack, idx) && boundaryAfter(haystack, idx+len(needle)) {
			return idx
		}
		from = idx + 1
		if from >= len(haystack) {
			return -1
		}
	}
}

func boundaryBefore(s string, idx int) bool {
	if idx == 0 {
		return true
	}
	r := rune(s[idx-1])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func boundaryAfter(s string, idx int) bool {
	if idx >= len(s) {
		return true
	}
	r := rune(s[idx])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}
