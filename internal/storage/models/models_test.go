package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/Jeffersson-hub/apiTruthtalent/internal/candidate"
)

func TestListToJSONNilBecomesEmptyArray(t *testing.T) {
	raw, err := ListToJSON[string](nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(raw))
}

func TestJSONToListHandlesNullColumn(t *testing.T) {
	for _, raw := range []datatypes.JSON{nil, datatypes.JSON("null"), datatypes.JSON("")} {
		got, err := JSONToList[string](raw)
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	}

	got, err := JSONToList[string](datatypes.JSON(`["Go","SQL"]`))
	require.NoError(t, err)
	assert.Equal(t, []string{"Go", "SQL"}, got)
}

func TestCandidatRecordRoundTrip(t *testing.T) {
	nom := "Dupont"
	prenom := "Jean"
	email := "jean.dupont@example.com"
	title := "Développeur backend"
	record := &candidate.Record{
		FamilyName:      &nom,
		GivenName:       &prenom,
		Email:           &email,
		Skills:          []string{"Python", "SQL"},
		Experiences:     []candidate.Experience{{Title: &title}},
		Education:       []candidate.Education{{Raw: "Master Informatique"}},
		Languages:       []candidate.Language{{Language: "Français", Level: "natif"}},
		Certifications:  []string{},
		ConfidenceScore: 85,
		RawText:         "texte brut",
		AnalyzedAt:      time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	row, err := CandidatFromRecord("id-1", record, "v1")
	require.NoError(t, err)
	assert.Equal(t, "id-1", row.CandidatID)
	assert.Equal(t, "v1", row.ParserVersion)

	back, err := row.ToRecord()
	require.NoError(t, err)
	assert.Equal(t, record.Skills, back.Skills)
	assert.Equal(t, record.Experiences, back.Experiences)
	assert.Equal(t, record.Languages, back.Languages)
	assert.Equal(t, record.ConfidenceScore, back.ConfidenceScore)
	assert.Equal(t, record.Email, back.Email)
	assert.NotNil(t, back.Links.Other)
}

func TestNormalizeUpdateValues(t *testing.T) {
	fields := map[string]interface{}{
		"competences": []string{"Go"},
		"langues":     []candidate.Language{{Language: "Anglais", Level: "courant"}},
		"score":       42,
		"telephone":   "06 12 34 56 78",
	}

	out, err := NormalizeUpdateValues(fields)
	require.NoError(t, err)
	assert.Equal(t, datatypes.JSON(`["Go"]`), out["competences"])
	assert.JSONEq(t, `[{"langue":"Anglais","niveau":"courant"}]`, string(out["langues"].(datatypes.JSON)))
	assert.Equal(t, 42, out["score"])
	assert.Equal(t, "06 12 34 56 78", out["telephone"])
}
