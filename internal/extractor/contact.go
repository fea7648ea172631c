package extractor

import (
	"regexp"
	"strings"

	"github.com/Jeffersson-hub/apiTruthtalent/internal/candidate"
)

var (
	// Loose RFC 5322 shape; good enough for documents, first match wins.
	emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

	// Tuned for French local and international numbers; tolerates spaces,
	// dots, parentheses, slashes and dashes between digits.
	phoneRe = regexp.MustCompile(`\+?\d[\d\s()./-]{6,}\d`)

	whitespaceRunRe = regexp.MustCompile(`\s+`)

	urlRe      = regexp.MustCompile(`https?://[^\s<>"')]+`)
	linkedinRe = regexp.MustCompile(`https?://(?:www\.)?linkedin\.com/[^\s<>"')]+`)
	githubRe   = regexp.MustCompile(`https?://(?:www\.)?github\.com/[^\s<>"')]+`)

	addressRe = regexp.MustCompile(`(?i)(?:adresse|address)\s*[:\-]\s*(.{10,100})`)
)

// Email returns the first email address in the text, or nil.
func Email(text string) *string {
	if m := emailRe.FindString(text); m != "" {
		return &m
	}
	return nil
}

// Phone returns the first phone number in the text with internal whitespace
// runs collapsed to single spaces, or nil. No digit canonicalization: the
// number keeps its punctuation for display.
func Phone(text string) *string {
	m := phoneRe.FindString(text)
	if m == "" {
		return nil
	}
	collapsed := strings.TrimSpace(whitespaceRunRe.ReplaceAllString(m, " "))
	if collapsed == "" {
		return nil
	}
	return &collapsed
}

// ExtractLinks partitions the URLs of the text into LinkedIn, GitHub and the
// rest. Other is deduplicated, keeps first-seen order, and never contains a
// linkedin.com or github.com URL.
func ExtractLinks(text string) candidate.Links {
	links := candidate.Links{Other: []string{}}

	if m := linkedinRe.FindString(text); m != "" {
		links.LinkedIn = &m
	}
	if m := githubRe.FindString(text); m != "" {
		links.GitHub = &m
	}

	seen := make(map[string]struct{})
	for _, u := range urlRe.FindAllString(text, -1) {
		if strings.Contains(u, "linkedin.com") || strings.Contains(u, "github.com") {
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		links.Other = append(links.Other, u)
	}
	return links
}

// Address is a deliberately low-recall extractor: it only fires on an
// explicit "Adresse: ..." style label and is nil for most documents.
func Address(text string) *string {
	m := addressRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	addr := strings.TrimSpace(m[1])
	if addr == "" {
		return nil
	}
	return &addr
}
