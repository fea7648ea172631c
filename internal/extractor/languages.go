package extractor

import (
	"strings"

	"github.com/Jeffersson-hub/apiTruthtalent/internal/candidate"
)

// languageLevelSeparators split a "Langue : niveau" line. Plain "-" without
// surrounding spaces is not one: it appears inside language names and
// hyphenated levels.
var languageLevelSeparators = []string{":", " - ", " – "}

// Languages extracts language/level pairs from span. A line pairs when it
// reads "Language : Level" or "Language - Level" with a recognised language
// name on the left; a recognised bare language name is kept with the
// LevelUnspecified sentinel. Deduplicated by language, first-seen order,
// never nil.
func Languages(span string) []candidate.Language {
	out := []candidate.Language{}
	seen := make(map[string]struct{})

	add := func(name, level string) {
		canonical := canonicalLanguage(name)
		if canonical == "" {
			return
		}
		key := strings.ToLower(canonical)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		if level == "" {
			level = candidate.LevelUnspecified
		}
		out = append(out, candidate.Language{Language: canonical, Level: level})
	}

	for _, line := range nonBlankLines(span) {
		name, level, ok := splitLanguageLine(line)
		if ok {
			add(name, level)
			continue
		}
		add(line, "")
	}
	return out
}

// splitLanguageLine splits on the first level separator found.
func splitLanguageLine(line string) (name, level string, ok bool) {
	for _, sep := range languageLevelSeparators {
		if idx := strings.Index(line, sep); idx >= 0 {
			return strings.TrimSpace(line[:idx]), strings.TrimSpace(line[idx+len(sep):]), true
		}
	}
	return "", "", false
}

// canonicalLanguage returns the recognised language label matching name
// case-insensitively, title-cased for output, or "" when unknown.
func canonicalLanguage(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return ""
	}
	lower := strings.ToLower(trimmed)
	for _, known := range LanguageNames {
		if lower == known {
			return titleCase(trimmed)
		}
	}
	return ""
}

// titleCase uppercases the first rune only; language names are single words.
func titleCase(s string) string {
	runes := []rune(strings.ToLower(s))
	if len(runes) == 0 {
		return s
	}
	return strings.ToUpper(string(runes[0])) + string(runes[1:])
}
