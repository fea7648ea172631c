// Package extractor is the text-to-structured-record extraction engine: a
// set of pure, total pattern-matchers over decoded document text, composed
// by the Extractor into one immutable candidate.Record per document.
//
// No extractor ever fails: "no match" is nil or an empty list, never an
// error. The only error conditions of the surrounding pipeline (decode
// failures, store conflicts) live outside this package.
package extractor

import (
	"strings"
	"time"

	"github.com/Jeffersson-hub/apiTruthtalent/internal/candidate"
	"github.com/Jeffersson-hub/apiTruthtalent/internal/constants"
)

// Extractor assembles candidate records from document text. It is stateless
// apart from its options and safe for concurrent use.
type Extractor struct {
	extraSkills []string
	now         func() time.Time
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithExtraSkills extends the skill taxonomy with deployment-specific
// entries.
func WithExtraSkills(skills []string) Option {
	return func(e *Extractor) {
		e.extraSkills = skills
	}
}

// WithClock overrides the AnalyzedAt clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) {
		e.now = now
	}
}

// New creates an Extractor.
func New(opts ...Option) *Extractor {
	e := &Extractor{now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// assemblerSections are the section keys the assembler asks the segmenter
// for, once per document.
var assemblerSections = []string{
	SectionSkills,
	SectionExperience,
	SectionEducation,
	SectionLanguages,
	SectionCertifications,
	SectionSummary,
	SectionObjective,
}

// ExtractCandidate runs the full extraction over raw document text and
// returns the assembled record. This is the single public entry point of
// the engine and the only place a candidate.Record is constructed.
//
// Empty or whitespace-only input is not an error: the result is a record
// with all scalar fields nil, all list fields empty and score 0.
func (e *Extractor) ExtractCandidate(text string, sourceRef string) *candidate.Record {
	normalized := Normalize(text)

	record := &candidate.Record{
		Skills:         []string{},
		Experiences:    []candidate.Experience{},
		Education:      []candidate.Education{},
		Languages:      []candidate.Language{},
		Certifications: []string{},
		Links:          candidate.Links{Other: []string{}},
		AnalyzedAt:     e.now(),
	}
	if sourceRef != "" {
		ref := sourceRef
		record.SourceDocumentRef = &ref
	}

	if strings.TrimSpace(normalized) == "" {
		return record
	}

	sections := Segment(normalized, assemblerSections)

	// spanOr scopes a list extractor to its section when the heading was
	// found, and to the whole document otherwise.
	spanOr := func(key string) string {
		if span, ok := sections[key]; ok {
			return span
		}
		return normalized
	}

	record.GivenName, record.FamilyName = SplitName(normalized)
	record.Email = Email(normalized)
	record.Phone = Phone(normalized)
	record.Address = Address(normalized)
	record.Links = ExtractLinks(normalized)

	record.Skills = Skills(sections[SectionSkills], normalized, e.extraSkills)
	record.Experiences = Experiences(spanOr(SectionExperience))
	record.Education = EducationEntries(spanOr(SectionEducation))
	record.Languages = Languages(spanOr(SectionLanguages))
	record.Certifications = Certifications(sections[SectionCertifications], normalized)
	record.Summary = Summary(sections[SectionSummary])
	record.Objective = Objective(sections[SectionObjective])

	record.RawText = truncateBytes(normalized, constants.MaxRawTextBytes)
	record.ConfidenceScore = Score(record)
	return record
}

// truncateBytes cuts s at the last rune boundary at or below max bytes.
func truncateBytes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
