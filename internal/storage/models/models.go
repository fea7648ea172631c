// Package models holds the GORM table definitions of the pipeline and the
// conversions between rows and candidate records. Column names follow the
// recruiting domain vocabulary of the product (nom, prenom, competences...);
// list-valued fields are stored as JSON columns that always hold an array,
// never SQL NULL.
package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/Jeffersson-hub/apiTruthtalent/internal/candidate"
)

// Candidat is the canonical candidate row, deduplicated by email. Email is
// nullable: records without one always insert, and MySQL unique indexes
// ignore NULLs, so those rows never conflict.
type Candidat struct {
	CandidatID string  `gorm:"column:candidat_id;type:char(36);primaryKey"`
	Nom        *string `gorm:"column:nom;type:varchar(255)"`
	Prenom     *string `gorm:"column:prenom;type:varchar(255)"`
	Email      *string `gorm:"column:email;type:varchar(255);uniqueIndex:idx_candidats_email_unique"`
	Telephone  *string `gorm:"column:telephone;type:varchar(50)"`
	Adresse    *string `gorm:"column:adresse;type:varchar(512)"`
	LinkedIn   *string `gorm:"column:linkedin;type:varchar(512)"`
	GitHub     *string `gorm:"column:github;type:varchar(512)"`
	Liens      datatypes.JSON `gorm:"column:liens;type:json"`

	Competences    datatypes.JSON `gorm:"column:competences;type:json"`
	Experiences    datatypes.JSON `gorm:"column:experiences;type:json"`
	Formations     datatypes.JSON `gorm:"column:formations;type:json"`
	Langues        datatypes.JSON `gorm:"column:langues;type:json"`
	Certifications datatypes.JSON `gorm:"column:certifications;type:json"`

	Resume   *string `gorm:"column:resume;type:text"`
	Objectif *string `gorm:"column:objectif;type:text"`

	Score         int       `gorm:"column:score;type:int;index:idx_candidats_score"`
	Fichier       *string   `gorm:"column:fichier;type:varchar(1024)"`
	TexteBrut     string    `gorm:"column:texte_brut;type:mediumtext"`
	ParserVersion string    `gorm:"column:parser_version;type:varchar(50)"`
	DateAnalyse   time.Time `gorm:"column:date_analyse;type:datetime(6)"`

	CreatedAt time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
}

func (Candidat) TableName() string {
	return "candidats"
}

// CVDocument tracks one uploaded document through the pipeline. Bucket and
// object key identify the blob; the status column moves through the
// constants.Status* sequence and stops at PERSISTED, SKIPPED or FAILED.
type CVDocument struct {
	DocumentID       string  `gorm:"column:document_id;type:char(36);primaryKey"`
	Bucket           string  `gorm:"column:bucket;type:varchar(255);not null;uniqueIndex:idx_cvdoc_bucket_key,priority:1"`
	ObjectKey        string  `gorm:"column:object_key;type:varchar(512);not null;uniqueIndex:idx_cvdoc_bucket_key,priority:2"`
	OriginalFilename string  `gorm:"column:original_filename;type:varchar(255)"`
	Format           string  `gorm:"column:format;type:varchar(10)"`
	TextMD5          string  `gorm:"column:text_md5;type:char(32);index:idx_cvdoc_text_md5"`
	Status           string  `gorm:"column:status;type:varchar(50);not null;index:idx_cvdoc_status"`
	FailureReason    *string `gorm:"column:failure_reason;type:text"`
	CandidatID       *string `gorm:"column:candidat_id;type:char(36);index:idx_cvdoc_candidat_id"`
	ParserVersion    string  `gorm:"column:parser_version;type:varchar(50)"`

	CreatedAt time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`

	Candidat *Candidat `gorm:"foreignKey:CandidatID;references:CandidatID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
}

func (CVDocument) TableName() string {
	return "cv_documents"
}

// ListToJSON marshals a list field for storage. A nil slice still serializes
// as [] so the column never holds JSON null.
func ListToJSON[T any](list []T) (datatypes.JSON, error) {
	if list == nil {
		list = []T{}
	}
	raw, err := json.Marshal(list)
	if err != nil {
		return nil, fmt.Errorf("marshaling list column: %w", err)
	}
	return datatypes.JSON(raw), nil
}

// JSONToList is the inverse of ListToJSON; empty or NULL columns read back
// as an empty slice.
func JSONToList[T any](raw datatypes.JSON) ([]T, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return []T{}, nil
	}
	var out []T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("unmarshaling list column: %w", err)
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

// CandidatFromRecord builds a fresh row from an extracted record under the
// given primary key.
func CandidatFromRecord(id string, r *candidate.Record, parserVersion string) (*Candidat, error) {
	liens, err := ListToJSON(r.Links.Other)
	if err != nil {
		return nil, err
	}
	competences, err := ListToJSON(r.Skills)
	if err != nil {
		return nil, err
	}
	experiences, err := ListToJSON(r.Experiences)
	if err != nil {
		return nil, err
	}
	formations, err := ListToJSON(r.Education)
	if err != nil {
		return nil, err
	}
	langues, err := ListToJSON(r.Languages)
	if err != nil {
		return nil, err
	}
	certifications, err := ListToJSON(r.Certifications)
	if err != nil {
		return nil, err
	}

	return &Candidat{
		CandidatID:     id,
		Nom:            r.FamilyName,
		Prenom:         r.GivenName,
		Email:          r.Email,
		Telephone:      r.Phone,
		Adresse:        r.Address,
		LinkedIn:       r.Links.LinkedIn,
		GitHub:         r.Links.GitHub,
		Liens:          liens,
		Competences:    competences,
		Experiences:    experiences,
		Formations:     formations,
		Langues:        langues,
		Certifications: certifications,
		Resume:         r.Summary,
		Objectif:       r.Objective,
		Score:          r.ConfidenceScore,
		Fichier:        r.SourceDocumentRef,
		TexteBrut:      r.RawText,
		ParserVersion:  parserVersion,
		DateAnalyse:    r.AnalyzedAt,
	}, nil
}

// ToRecord converts a stored row back to the record shape, for
// reconciliation against a new extraction.
func (c *Candidat) ToRecord() (*candidate.Record, error) {
	liens, err := JSONToList[string](c.Liens)
	if err != nil {
		return nil, err
	}
	competences, err := JSONToList[string](c.Competences)
	if err != nil {
		return nil, err
	}
	experiences, err := JSONToList[candidate.Experience](c.Experiences)
	if err != nil {
		return nil, err
	}
	formations, err := JSONToList[candidate.Education](c.Formations)
	if err != nil {
		return nil, err
	}
	langues, err := JSONToList[candidate.Language](c.Langues)
	if err != nil {
		return nil, err
	}
	certifications, err := JSONToList[string](c.Certifications)
	if err != nil {
		return nil, err
	}

	return &candidate.Record{
		FamilyName: c.Nom,
		GivenName:  c.Prenom,
		Email:      c.Email,
		Phone:      c.Telephone,
		Address:    c.Adresse,
		Links: candidate.Links{
			LinkedIn: c.LinkedIn,
			GitHub:   c.GitHub,
			Other:    liens,
		},
		Skills:            competences,
		Experiences:       experiences,
		Education:         formations,
		Languages:         langues,
		Certifications:    certifications,
		Summary:           c.Resume,
		Objective:         c.Objectif,
		ConfidenceScore:   c.Score,
		SourceDocumentRef: c.Fichier,
		RawText:           c.TexteBrut,
		AnalyzedAt:        c.DateAnalyse,
	}, nil
}

// NormalizeUpdateValues prepares a reconcile fields map for GORM Updates:
// slice values become JSON columns, scalars pass through.
func NormalizeUpdateValues(fields map[string]interface{}) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(fields))
	for column, value := range fields {
		switch v := value.(type) {
		case []string:
			raw, err := ListToJSON(v)
			if err != nil {
				return nil, err
			}
			out[column] = raw
		case []candidate.Experience:
			raw, err := ListToJSON(v)
			if err != nil {
				return nil, err
			}
			out[column] = raw
		case []candidate.Education:
			raw, err := ListToJSON(v)
			if err != nil {
				return nil, err
			}
			out[column] = raw
		case []candidate.Language:
			raw, err := ListToJSON(v)
			if err != nil {
				return nil, err
			}
			out[column] = raw
		default:
			out[column] = value
		}
	}
	return out, nil
}
