package extractor

import (
	"regexp"
	"strings"

	"github.com/Jeffersson-hub/apiTruthtalent/internal/candidate"
)

// periodRe captures a period expression anchored on a year: "2019",
// "2019 - 2022", "2020 à aujourd'hui", "2021 - présent".
var periodRe = regexp.MustCompile(`(?i)(?:19|20)\d{2}(?:\s*(?:[-–—/]|à|to)\s*(?:(?:19|20)\d{2}|pr[ée]sent|aujourd'hui|actuel|now|present))?`)

// experienceSeparators is the canonical separator list for splitting the
// remainder of a period line into title and company, tried in order. The
// source history disagreed on whether "@" belongs here; it is kept.
var experienceSeparators = []string{" - ", " – ", " chez ", ", ", " @ "}

// Experiences extracts work-history entries from span. Each line containing
// a year pattern becomes one entry: the period expression is lifted out, and
// what remains splits on the first separator found into title (before) and
// company (after). Lines without a year are ignored; an empty result is an
// empty slice, never nil.
func Experiences(span string) []candidate.Experience {
	out := []candidate.Experience{}
	for _, line := range nonBlankLines(span) {
		loc := periodRe.FindStringIndex(line)
		if loc == nil {
			continue
		}
		period := line[loc[0]:loc[1]]
		remainder := line[:loc[0]] + line[loc[1]:]
		remainder = strings.ReplaceAll(remainder, "()", "")
		remainder = strings.ReplaceAll(remainder, "( )", "")
		remainder = whitespaceRunRe.ReplaceAllString(remainder, " ")
		remainder = strings.TrimSpace(trimSeparatorResidue(remainder))

		exp := candidate.Experience{}
		if period != "" {
			p := period
			exp.Period = &p
		}

		title, company := splitTitleCompany(remainder)
		if title != "" {
			t := title
			exp.Title = &t
		}
		if company != "" {
			c := company
			exp.Company = &c
		}
		out = append(out, exp)
	}
	return out
}

// splitTitleCompany splits on the first separator present; no separator
// means the whole remainder is the title.
func splitTitleCompany(remainder string) (title, company string) {
	if remainder == "" {
		return "", ""
	}
	for _, sep := range experienceSeparators {
		if idx := strings.Index(remainder, sep); idx >= 0 {
			title = strings.TrimSpace(remainder[:idx])
			company = strings.TrimSpace(trimSeparatorResidue(remainder[idx+len(sep):]))
			return title, company
		}
	}
	return remainder, ""
}

// trimSeparatorResidue drops punctuation left dangling after the period
// expression was removed from a line ("Développeur (2019 - 2021)" leaves
// "Développeur ()").
func trimSeparatorResidue(s string) string {
	return strings.Trim(s, " \t,;-–—()[]|")
}
