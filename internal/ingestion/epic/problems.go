package epic

import (
	"strings"

	"github.com/potalora/ai-web-records-app-take-2/internal/fhir"
)

// problemListMapper maps PROBLEM_LIST rows to Condition resources.
// DESCRIPTION carries the fuller diagnosis wording, so it wins over
// DX_ID_DX_NAME.
type problemListMapper struct{}

func (problemListMapper) MapRow(row Row) fhir.Resource {
	name := row.First("DESCRIPTION", "DX_ID_DX_NAME")
	if name == "" {
		return nil
	}

	statusRaw := strings.ToLower(row.Get("PROBLEM_STATUS_C_NAME"))
	status := "active"
	if strings.Contains(statusRaw, "resolved") {
		status = "resolved"
	} else if strings.Contains(statusRaw, "deleted") {
		status = "inactive"
	}

	cond := &fhir.Condition{
		Code: &fhir.CodeableConcept{Text: name},
		ClinicalStatus: &fhir.CodeableConcept{
			Coding: []fhir.Coding{
				{
					System: "http://terminology.hl7.org/CodeSystem/condition-clinical",
					Code:   status,
				},
			},
		},
		Category: []fhir.CodeableConcept{
			{
				Coding: []fhir.Coding{
					{
						System:  "http://terminology.hl7.org/CodeSystem/condition-category",
						Code:    "problem-list-item",
						Display: "Problem List Item",
					},
				},
			},
		},
	}

	if noted := parseEpicDate(row.Get("NOTED_DATE")); noted != nil {
		cond.OnsetDateTime = naiveDateTime(noted)
	}
	if resolved := parseEpicDate(row.Get("RESOLVED_DATE")); resolved != nil {
		cond.AbatementDateTime = naiveDateTime(resolved)
	}
	if row.Get("CHRONIC_YN") == "Y" {
		cond.Category = append(cond.Category, fhir.CodeableConcept{Text: "chronic"})
	}
	if cmt := row.Get("PROBLEM_CMT"); cmt != "" {
		cond.Note = []fhir.Annotation{{Text: cmt}}
	}
	return cond
}

// medicalHistoryMapper maps MEDICAL_HX rows to Condition resources. The
// table only carries a diagnosis, a date, and a free-text note.
type medicalHistoryMapper struct{}

func (medicalHistoryMapper) MapRow(row Row) fhir.Resource {
	name := row.Get("DX_ID_DX_NAME")
	if name == "" {
		return nil
	}

	cond := &fhir.Condition{
		Code: &fhir.CodeableConcept{Text: name},
	}
	if hxDate := parseEpicDate(row.Get("MEDICAL_HX_DATE")); hxDate != nil {
		cond.OnsetDateTime = naiveDateTime(hxDate)
	}
	if note := row.Get("MED_HX_ANNOTATION"); note != "" {
		cond.Note = []fhir.Annotation{{Text: note}}
	}
	return cond
}
