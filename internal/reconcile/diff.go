package reconcile

import (
	"reflect"

	"github.com/Jeffersson-hub/apiTruthtalent/internal/candidate"
)

// diffFields lists the columns whose merged value differs from the stored
// one, keyed by column name. Email is never in the diff: it is the lookup
// key, so merged and stored always agree on it. List values go into the map
// as Go slices; the store serializes them.
func diffFields(merged, old *candidate.Record) map[string]interface{} {
	fields := make(map[string]interface{})

	putString(fields, "nom", merged.FamilyName, old.FamilyName)
	putString(fields, "prenom", merged.GivenName, old.GivenName)
	putString(fields, "telephone", merged.Phone, old.Phone)
	putString(fields, "adresse", merged.Address, old.Address)
	putString(fields, "linkedin", merged.Links.LinkedIn, old.Links.LinkedIn)
	putString(fields, "github", merged.Links.GitHub, old.Links.GitHub)
	putString(fields, "resume", merged.Summary, old.Summary)
	putString(fields, "objectif", merged.Objective, old.Objective)
	putString(fields, "fichier", merged.SourceDocumentRef, old.SourceDocumentRef)

	putList(fields, "liens", merged.Links.Other, old.Links.Other)
	putList(fields, "competences", merged.Skills, old.Skills)
	putList(fields, "experiences", merged.Experiences, old.Experiences)
	putList(fields, "formations", merged.Education, old.Education)
	putList(fields, "langues", merged.Languages, old.Languages)
	putList(fields, "certifications", merged.Certifications, old.Certifications)

	if merged.RawText != "" && merged.RawText != old.RawText {
		fields["texte_brut"] = merged.RawText
	}
	return fields
}

// putString records column when the merged value is populated and differs.
// Merge never regresses a populated field, so a nil merged value implies a
// nil stored one.
func putString(fields map[string]interface{}, column string, merged, old *string) {
	if merged == nil {
		return
	}
	if old != nil && *old == *merged {
		return
	}
	fields[column] = *merged
}

func putList[T any](fields map[string]interface{}, column string, merged, old []T) {
	if len(merged) == 0 {
		return
	}
	if reflect.DeepEqual(merged, old) {
		return
	}
	fields[column] = merged
}
