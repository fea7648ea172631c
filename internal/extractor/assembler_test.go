package extractor

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jeffersson-hub/apiTruthtalent/internal/constants"
)

var fixedClock = func() time.Time {
	return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
}

const fullCV = `Jean Dupont
jean.dupont@example.com
Tél : 06 12 34 56 78
https://www.linkedin.com/in/jdupont

Profil
Développeur backend avec huit ans d'expérience.

Compétences :
Python, SQL, Docker

Expérience professionnelle
Développeur backend chez Acme (2019 - 2022)
Ingénieur logiciel chez Sopra (2015 - 2019)

Formation
Master Informatique - Université de Lyon (2015)

Langues
Français : natif
Anglais : courant
`

func TestExtractCandidateFullDocument(t *testing.T) {
	ext := New(WithClock(fixedClock))
	record := ext.ExtractCandidate(fullCV, "cv-originals/cv/doc1/original.txt")

	require.NotNil(t, record.GivenName)
	assert.Equal(t, "Jean", *record.GivenName)
	require.NotNil(t, record.FamilyName)
	assert.Equal(t, "Dupont", *record.FamilyName)
	require.NotNil(t, record.Email)
	assert.Equal(t, "jean.dupont@example.com", *record.Email)
	require.NotNil(t, record.Phone)
	assert.Equal(t, "06 12 34 56 78", *record.Phone)
	require.NotNil(t, record.Links.LinkedIn)

	assert.Equal(t, []string{"Python", "SQL", "Docker"}, record.Skills)

	require.Len(t, record.Experiences, 2)
	assert.Equal(t, "Développeur backend", *record.Experiences[0].Title)
	assert.Equal(t, "Acme", *record.Experiences[0].Company)
	assert.Equal(t, "2019 - 2022", *record.Experiences[0].Period)
	assert.Equal(t, "Sopra", *record.Experiences[1].Company)

	require.Len(t, record.Education, 1)
	assert.Equal(t, "Master Informatique - Université de Lyon (2015)", record.Education[0].Raw)

	require.Len(t, record.Languages, 2)
	assert.Equal(t, "Français", record.Languages[0].Language)
	assert.Equal(t, "natif", record.Languages[0].Level)

	require.NotNil(t, record.Summary)
	assert.Equal(t, "Développeur backend avec huit ans d'expérience.", *record.Summary)
	assert.Nil(t, record.Objective)

	assert.Equal(t, 100, record.ConfidenceScore)
	require.NotNil(t, record.SourceDocumentRef)
	assert.Equal(t, "cv-originals/cv/doc1/original.txt", *record.SourceDocumentRef)
	assert.Equal(t, Normalize(fullCV), record.RawText)
	assert.Equal(t, fixedClock(), record.AnalyzedAt)
}

func TestExtractCandidateEmptyInput(t *testing.T) {
	ext := New(WithClock(fixedClock))
	for _, text := range []string{"", "   ", "\n\r\n\t"} {
		record := ext.ExtractCandidate(text, "")

		assert.Nil(t, record.GivenName)
		assert.Nil(t, record.FamilyName)
		assert.Nil(t, record.Email)
		assert.Nil(t, record.Phone)
		assert.Nil(t, record.Summary)
		assert.Nil(t, record.SourceDocumentRef)
		assert.NotNil(t, record.Skills)
		assert.Empty(t, record.Skills)
		assert.NotNil(t, record.Experiences)
		assert.NotNil(t, record.Education)
		assert.NotNil(t, record.Languages)
		assert.NotNil(t, record.Certifications)
		assert.NotNil(t, record.Links.Other)
		assert.Equal(t, 0, record.ConfidenceScore)
		assert.Equal(t, fixedClock(), record.AnalyzedAt)
	}
}

func TestExtractCandidateDeterministic(t *testing.T) {
	ext := New(WithClock(fixedClock))
	first := ext.ExtractCandidate(fullCV, "ref")
	second := ext.ExtractCandidate(fullCV, "ref")
	assert.Equal(t, first, second)
}

func TestExtractCandidateListsSerializeAsArrays(t *testing.T) {
	ext := New(WithClock(fixedClock))
	record := ext.ExtractCandidate("texte sans aucune information utile", "")

	raw, err := json.Marshal(record)
	require.NoError(t, err)
	payload := string(raw)
	assert.Contains(t, payload, `"competences":[]`)
	assert.Contains(t, payload, `"experiences":[]`)
	assert.Contains(t, payload, `"formations":[]`)
	assert.Contains(t, payload, `"langues":[]`)
	assert.Contains(t, payload, `"certifications":[]`)
	assert.Contains(t, payload, `"autres_liens":[]`)
	assert.NotContains(t, payload, `"competences":null`)
}

func TestExtractCandidateRawTextTruncated(t *testing.T) {
	ext := New(WithClock(fixedClock))
	text := "Jean Dupont\n" + strings.Repeat("é", constants.MaxRawTextBytes)

	record := ext.ExtractCandidate(text, "")
	assert.LessOrEqual(t, len(record.RawText), constants.MaxRawTextBytes)
	// Truncation never cuts a rune in half.
	assert.True(t, strings.HasPrefix(Normalize(text), record.RawText))
}
