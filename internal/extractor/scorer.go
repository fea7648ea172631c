package extractor

import "github.com/Jeffersson-hub/apiTruthtalent/internal/candidate"

// Presence weights of the confidence score. They sum to 100; the clamp
// below guards against future weight edits, not current arithmetic.
const (
	weightEmail      = 20
	weightPhone      = 15
	weightSkills     = 25
	weightEducation  = 20
	weightExperience = 20
)

// Score computes the 0-100 completeness score of a record from the presence
// of its key fields. Pure and idempotent: recomputing on the same record
// always yields the same value.
func Score(r *candidate.Record) int {
	score := 0
	if r.Email != nil && *r.Email != "" {
		score += weightEmail
	}
	if r.Phone != nil && *r.Phone != "" {
		score += weightPhone
	}
	if len(r.Skills) > 0 {
		score += weightSkills
	}
	if len(r.Education) > 0 {
		score += weightEducation
	}
	if len(r.Experiences) > 0 {
		score += weightExperience
	}

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
