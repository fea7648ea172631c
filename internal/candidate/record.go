// Package candidate defines the canonical structured record produced by the
// extraction engine. The many ad hoc "Candidat" shapes of earlier revisions
// are reconciled into this single schema: scalar fields are nullable
// (pointers), list fields are never nil once assembled.
package candidate

import "time"

// Experience is one work-history entry. All fields are best-effort and may
// be absent individually.
type Experience struct {
	Title       *string `json:"poste"`
	Company     *string `json:"entreprise"`
	Period      *string `json:"periode"`
	Description *string `json:"description"`
}

// Education is a raw line matched by the education keyword list. It is kept
// opaque on purpose: decomposing degree/institution/year from free text costs
// more precision than it buys.
type Education struct {
	Raw string `json:"raw"`
}

// Language pairs a recognised language name with a proficiency level.
// Level is LevelUnspecified when the document names the language without one.
type Language struct {
	Language string `json:"langue"`
	Level    string `json:"niveau"`
}

// LevelUnspecified is the sentinel level for a language matched without an
// explicit proficiency token.
const LevelUnspecified = "unspecified"

// Links groups the URLs found in a document. Other never contains a URL
// classified as LinkedIn or GitHub.
type Links struct {
	LinkedIn *string  `json:"linkedin"`
	GitHub   *string  `json:"github"`
	Other    []string `json:"autres_liens"`
}

// Record is the structured result of one extraction pass over one document.
// It is write-once: the assembler is the only constructor, and nothing
// mutates a record after assembly.
type Record struct {
	FamilyName *string `json:"nom"`
	GivenName  *string `json:"prenom"`
	Email      *string `json:"email"`
	Phone      *string `json:"telephone"`
	Address    *string `json:"adresse"`
	Links      Links   `json:"liens"`

	Skills         []string     `json:"competences"`
	Experiences    []Experience `json:"experiences"`
	Education      []Education  `json:"formations"`
	Languages      []Language   `json:"langues"`
	Certifications []string     `json:"certifications"`

	Summary   *string `json:"resume"`
	Objective *string `json:"objectif"`

	// ConfidenceScore is a 0-100 completeness indicator, a pure function of
	// which fields above are populated. Not a probability.
	ConfidenceScore int `json:"score"`

	// SourceDocumentRef points at the original document (object path or
	// URL). Passed through unchanged, never re-derived.
	SourceDocumentRef *string `json:"fichier"`

	// RawText is the normalized document text the record was extracted
	// from, truncated for storage.
	RawText string `json:"texte_brut"`

	// AnalyzedAt is stamped once at assembly time.
	AnalyzedAt time.Time `json:"date_analyse"`
}

// HasEmail reports whether the record carries a usable dedup key.
func (r *Record) HasEmail() bool {
	return r.Email != nil && *r.Email != ""
}

// FullName joins the name parts for display; empty when both are absent.
func (r *Record) FullName() string {
	switch {
	case r.GivenName != nil && r.FamilyName != nil:
		return *r.GivenName + " " + *r.FamilyName
	case r.FamilyName != nil:
		return *r.FamilyName
	case r.GivenName != nil:
		return *r.GivenName
	}
	return ""
}
