// Package reconcile decides, for one freshly extracted record, whether the
// store should insert a new candidate row, update an existing one, or do
// nothing. The decision is pure: lookups are injected, writes happen in the
// caller.
//
// The policy does not serialize across concurrent documents; two documents
// resolving to the same email race, and the store's unique constraint on
// email provides the atomicity. Last writer wins at the store level.
package reconcile

import (
	"context"
	"fmt"

	"github.com/Jeffersson-hub/apiTruthtalent/internal/candidate"
	"github.com/Jeffersson-hub/apiTruthtalent/internal/extractor"
)

// ActionType enumerates the possible outcomes of reconciliation.
type ActionType string

const (
	ActionInsert ActionType = "INSERT"
	ActionUpdate ActionType = "UPDATE"
	ActionSkip   ActionType = "SKIP"
)

// Action is the persistence decision for one record.
type Action struct {
	Type ActionType

	// Record is set for ActionInsert.
	Record *candidate.Record

	// ID and Fields are set for ActionUpdate: the column/value pairs to
	// apply to the existing row.
	ID     string
	Fields map[string]interface{}

	// Reason is set for ActionSkip.
	Reason string
}

// Existing is a persisted candidate as returned by the lookup: its row ID
// plus the record view of its columns.
type Existing struct {
	ID     string
	Record *candidate.Record
}

// LookupFunc finds a persisted candidate by exact email, nil when none
// exists. The lookup and the eventual write are not atomic with respect to
// concurrent writers; callers rely on the store constraint.
type LookupFunc func(ctx context.Context, email string) (*Existing, error)

// Reconcile decides the persistence action for newRecord.
//
// No email means no dedup key: always insert (duplicates by name are an
// accepted limitation). Otherwise the existing row, if any, is updated
// field by field — a new value replaces the old one unless the new value is
// empty and the old one is populated, so re-analysing a weaker document
// never regresses a field. An update that would change nothing is a skip.
func Reconcile(ctx context.Context, newRecord *candidate.Record, lookup LookupFunc) (Action, error) {
	if !newRecord.HasEmail() {
		return Action{Type: ActionInsert, Record: newRecord}, nil
	}

	existing, err := lookup(ctx, *newRecord.Email)
	if err != nil {
		return Action{}, fmt.Errorf("looking up candidate by email: %w", err)
	}
	if existing == nil {
		return Action{Type: ActionInsert, Record: newRecord}, nil
	}

	merged := Merge(newRecord, existing.Record)
	fields := diffFields(merged, existing.Record)
	if len(fields) == 0 {
		return Action{Type: ActionSkip, Reason: "no new information"}, nil
	}

	fields["score"] = merged.ConfidenceScore
	fields["date_analyse"] = newRecord.AnalyzedAt
	return Action{Type: ActionUpdate, ID: existing.ID, Fields: fields}, nil
}

// Merge overlays newRecord on old: new values win except where the new
// value is empty and the old one is not. The result is a fresh record; both
// inputs stay untouched. The confidence score is recomputed on the merged
// values so it stays a pure function of presence.
func Merge(newRecord, old *candidate.Record) *candidate.Record {
	merged := *newRecord

	merged.FamilyName = pickString(newRecord.FamilyName, old.FamilyName)
	merged.GivenName = pickString(newRecord.GivenName, old.GivenName)
	merged.Phone = pickString(newRecord.Phone, old.Phone)
	merged.Address = pickString(newRecord.Address, old.Address)
	merged.Summary = pickString(newRecord.Summary, old.Summary)
	merged.Objective = pickString(newRecord.Objective, old.Objective)
	merged.SourceDocumentRef = pickString(newRecord.SourceDocumentRef, old.SourceDocumentRef)
	merged.Links.LinkedIn = pickString(newRecord.Links.LinkedIn, old.Links.LinkedIn)
	merged.Links.GitHub = pickString(newRecord.Links.GitHub, old.Links.GitHub)
	merged.Links.Other = pickList(newRecord.Links.Other, old.Links.Other)

	merged.Skills = pickList(newRecord.Skills, old.Skills)
	merged.Experiences = pickList(newRecord.Experiences, old.Experiences)
	merged.Education = pickList(newRecord.Education, old.Education)
	merged.Languages = pickList(newRecord.Languages, old.Languages)
	merged.Certifications = pickList(newRecord.Certifications, old.Certifications)

	if merged.RawText == "" {
		merged.RawText = old.RawText
	}

	merged.ConfidenceScore = extractor.Score(&merged)
	return &merged
}

func pickString(newVal, oldVal *string) *string {
	if newVal == nil || *newVal == "" {
		return oldVal
	}
	return newVal
}

func pickList[T any](newVal, oldVal []T) []T {
	if len(newVal) == 0 {
		return oldVal
	}
	return newVal
}
