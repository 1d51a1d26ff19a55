package epic

import (
	"github.com/potalora/ai-web-records-app-take-2/internal/fhir"
)

// encounterDxMapper maps PAT_ENC_DX rows, the diagnoses attached to an
// encounter, to Condition resources.
type encounterDxMapper struct{}

func (encounterDxMapper) MapRow(row Row) fhir.Resource {
	dx := row.Get("DX_ID_DX_NAME")
	if dx == "" {
		return nil
	}

	cond := &fhir.Condition{
		Code: &fhir.CodeableConcept{Text: dx},
		ClinicalStatus: &fhir.CodeableConcept{
			Coding: []fhir.Coding{{
				System: "http://terminology.hl7.org/CodeSystem/condition-clinical",
				Code:   "active",
			}},
		},
		Category: []fhir.CodeableConcept{{
			Coding: []fhir.Coding{{
				System:  "http://terminology.hl7.org/CodeSystem/condition-category",
				Code:    "encounter-diagnosis",
				Display: "Encounter Diagnosis",
			}},
		}},
	}

	if contact := parseEpicDate(row.Get("CONTACT_DATE")); contact != nil {
		cond.RecordedDate = naiveDateTime(contact)
	}

	if row.Get("PRIMARY_DX_YN") == "Y" {
		cond.PrimaryDiagnosis = true
	}

	if note := row.Get("ANNOTATION"); note != "" {
		cond.Note = []fhir.Annotation{{Text: note}}
	}

	return cond
}
