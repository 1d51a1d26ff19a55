package epic

import (
	"strconv"

	"github.com/potalora/ai-web-records-app-take-2/internal/fhir"
)

// familyHistoryMapper maps FAMILY_HX rows to FamilyMemberHistory
// resources.
type familyHistoryMapper struct{}

func (familyHistoryMapper) MapRow(row Row) fhir.Resource {
	dx := row.Get("FAM_MEDICAL_DX_ID_DX_NAME")
	if dx == "" {
		return nil
	}

	hx := &fhir.FamilyMemberHistory{Status: "completed"}

	if rel := row.Get("RELATION_C_NAME"); rel != "" {
		hx.Relationship = &fhir.CodeableConcept{Text: rel}
	}

	cond := fhir.FamilyMemberCondition{
		Code: &fhir.CodeableConcept{Text: dx},
	}
	if age := row.Get("AGE_OF_ONSET"); age != "" {
		if years, err := strconv.Atoi(age); err == nil {
			cond.OnsetAge = &fhir.Quantity{
				Value:  float64(years),
				Unit:   "years",
				System: "http://unitsofmeasure.org",
				Code:   "a",
			}
		} else {
			cond.OnsetString = age
		}
	}
	hx.Condition = []fhir.FamilyMemberCondition{cond}

	return hx
}
