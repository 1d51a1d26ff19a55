package epic

import (
	"strings"

	"github.com/potalora/ai-web-records-app-take-2/internal/fhir"
)

// allergyMapper maps ALLERGY rows to AllergyIntolerance resources.
type allergyMapper struct{}

func (allergyMapper) MapRow(row Row) fhir.Resource {
	allergen := row.Get("ALLERGEN_ID_ALLERGEN_NAME")
	if allergen == "" {
		return nil
	}

	statusRaw := strings.ToLower(row.Get("ALRGY_STATUS_C_NAME"))
	status := "active"
	if strings.Contains(statusRaw, "inactive") || strings.Contains(statusRaw, "deleted") {
		status = "inactive"
	} else if strings.Contains(statusRaw, "resolved") {
		status = "resolved"
	}

	allergy := &fhir.AllergyIntolerance{
		Code: &fhir.CodeableConcept{Text: allergen},
		ClinicalStatus: &fhir.CodeableConcept{
			Coding: []fhir.Coding{{
				System: "http://terminology.hl7.org/CodeSystem/allergyintolerance-clinical",
				Code:   status,
			}},
		},
	}

	severityRaw := strings.ToLower(row.Get("SEVERITY_C_NAME"))
	severity := ""
	switch {
	case strings.Contains(severityRaw, "severe"), strings.Contains(severityRaw, "high"):
		severity = "severe"
	case strings.Contains(severityRaw, "moderate"):
		severity = "moderate"
	case strings.Contains(severityRaw, "mild"), strings.Contains(severityRaw, "low"):
		severity = "mild"
	}

	if noted := parseEpicDate(row.Get("DATE_NOTED")); noted != nil {
		allergy.RecordedDate = naiveDateTime(noted)
	}

	if reaction := row.Get("REACTION"); reaction != "" {
		allergy.Reaction = []fhir.Reaction{{
			Manifestation: []fhir.CodeableConcept{{Text: reaction}},
			Severity:      severity,
		}}
	} else if severity != "" {
		allergy.Reaction = []fhir.Reaction{{Severity: severity}}
	}

	return allergy
}
