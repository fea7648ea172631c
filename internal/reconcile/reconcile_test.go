package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jeffersson-hub/apiTruthtalent/internal/candidate"
)

func str(s string) *string { return &s }

func lookupNone(ctx context.Context, email string) (*Existing, error) {
	return nil, nil
}

func lookupFixed(existing *Existing) LookupFunc {
	return func(ctx context.Context, email string) (*Existing, error) {
		return existing, nil
	}
}

func baseRecord() *candidate.Record {
	return &candidate.Record{
		Email:          str("jean.dupont@example.com"),
		GivenName:      str("Jean"),
		FamilyName:     str("Dupont"),
		Skills:         []string{"Python", "SQL"},
		Experiences:    []candidate.Experience{},
		Education:      []candidate.Education{},
		Languages:      []candidate.Language{},
		Certifications: []string{},
		Links:          candidate.Links{Other: []string{}},
		AnalyzedAt:     time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestReconcileNoEmailAlwaysInserts(t *testing.T) {
	rec := baseRecord()
	rec.Email = nil

	called := false
	action, err := Reconcile(context.Background(), rec, func(ctx context.Context, email string) (*Existing, error) {
		called = true
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, ActionInsert, action.Type)
	assert.Same(t, rec, action.Record)
	assert.False(t, called, "lookup must not run without a dedup key")
}

func TestReconcileUnknownEmailInserts(t *testing.T) {
	rec := baseRecord()

	action, err := Reconcile(context.Background(), rec, lookupNone)
	require.NoError(t, err)
	assert.Equal(t, ActionInsert, action.Type)
	assert.Same(t, rec, action.Record)
}

func TestReconcileLookupErrorPropagates(t *testing.T) {
	boom := errors.New("connection refused")
	_, err := Reconcile(context.Background(), baseRecord(), func(ctx context.Context, email string) (*Existing, error) {
		return nil, boom
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestReconcileUpdateNeverRegressesPopulatedFields(t *testing.T) {
	existing := &Existing{
		ID: "0195a1b2-0000-7000-8000-000000000001",
		Record: &candidate.Record{
			Email:      str("jean.dupont@example.com"),
			GivenName:  str("Jean"),
			FamilyName: str("Dupont"),
			Phone:      str("06 12 34 56 78"),
			Skills:     []string{"Python", "SQL"},
		},
	}

	// The new document has skills the old row lacks but no phone; the
	// update must add the skills without touching the phone.
	rec := baseRecord()
	rec.Skills = []string{"Python", "SQL", "Docker"}

	action, err := Reconcile(context.Background(), rec, lookupFixed(existing))
	require.NoError(t, err)
	require.Equal(t, ActionUpdate, action.Type)
	assert.Equal(t, existing.ID, action.ID)

	assert.Equal(t, []string{"Python", "SQL", "Docker"}, action.Fields["competences"])
	assert.NotContains(t, action.Fields, "telephone")
	assert.NotContains(t, action.Fields, "nom")
	assert.NotContains(t, action.Fields, "prenom")

	// Score is recomputed on the merged row: email + phone + skills.
	assert.Equal(t, 60, action.Fields["score"])
	assert.Equal(t, rec.AnalyzedAt, action.Fields["date_analyse"])
}

func TestReconcileIdenticalRecordSkips(t *testing.T) {
	rec := baseRecord()
	existing := &Existing{ID: "row-1", Record: baseRecord()}

	action, err := Reconcile(context.Background(), rec, lookupFixed(existing))
	require.NoError(t, err)
	assert.Equal(t, ActionSkip, action.Type)
	assert.NotEmpty(t, action.Reason)
}

func TestMergePrefersNewValues(t *testing.T) {
	old := &candidate.Record{
		Email:   str("jean.dupont@example.com"),
		Phone:   str("01 00 00 00 00"),
		Summary: str("ancien profil"),
	}
	rec := baseRecord()
	rec.Phone = str("06 12 34 56 78")

	merged := Merge(rec, old)
	assert.Equal(t, "06 12 34 56 78", *merged.Phone)
	assert.Equal(t, "ancien profil", *merged.Summary, "absent new value keeps the old one")
	assert.Equal(t, "Jean", *merged.GivenName)

	// Inputs stay untouched.
	assert.Equal(t, "01 00 00 00 00", *old.Phone)
	assert.Equal(t, "06 12 34 56 78", *rec.Phone)
}
