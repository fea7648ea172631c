package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Jeffersson-hub/apiTruthtalent/internal/candidate"
)

func TestLanguagesColonPairs(t *testing.T) {
	got := Languages("Français : natif\nAnglais : courant")
	assert.Equal(t, []candidate.Language{
		{Language: "Français", Level: "natif"},
		{Language: "Anglais", Level: "courant"},
	}, got)
}

func TestLanguagesDashSeparator(t *testing.T) {
	got := Languages("Espagnol - intermédiaire")
	assert.Equal(t, []candidate.Language{
		{Language: "Espagnol", Level: "intermédiaire"},
	}, got)
}

func TestLanguagesBareNameGetsSentinelLevel(t *testing.T) {
	got := Languages("Allemand")
	assert.Equal(t, []candidate.Language{
		{Language: "Allemand", Level: candidate.LevelUnspecified},
	}, got)
}

func TestLanguagesUnknownLeftSideSkipped(t *testing.T) {
	// Pair-shaped lines whose left side is not a language name are not
	// languages, whatever the right side says.
	got := Languages("Tel : 06 12 34 56 78\nPermis : B\nAnglais : B2")
	assert.Equal(t, []candidate.Language{
		{Language: "Anglais", Level: "B2"},
	}, got)
}

func TestLanguagesDeduplicatesByLanguage(t *testing.T) {
	got := Languages("Anglais : courant\nanglais : B2")
	assert.Equal(t, []candidate.Language{
		{Language: "Anglais", Level: "courant"},
	}, got)
}

func TestLanguagesCanonicalCasing(t *testing.T) {
	got := Languages("FRANÇAIS : natif")
	assert.Equal(t, []candidate.Language{
		{Language: "Français", Level: "natif"},
	}, got)
}

func TestLanguagesEmptySpan(t *testing.T) {
	got := Languages("")
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
