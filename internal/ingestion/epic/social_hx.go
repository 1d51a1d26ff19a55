package epic

import (
	"github.com/potalora/ai-web-records-app-take-2/internal/fhir"
)

// socialHistoryMapper maps SOCIAL_HX rows to social-history
// Observations. Epic spreads the interesting columns across export
// versions, so both the type and the value are probed under several
// names.
type socialHistoryMapper struct{}

func (socialHistoryMapper) MapRow(row Row) fhir.Resource {
	hxType := row.First("SOCIAL_HX_TYPE_C_NAME", "HX_TYPE", "TOBACCO_USER_C_NAME")
	value := row.First("SOCIAL_HX_COMMENT", "COMMENT", "SMOKING_TOBA_USE_C_NAME")
	if hxType == "" && value == "" {
		return nil
	}

	text := hxType
	if text == "" {
		text = "Social History"
	}

	obs := &fhir.Observation{
		Status: "final",
		Category: []fhir.CodeableConcept{{
			Coding: []fhir.Coding{{
				System:  "http://terminology.hl7.org/CodeSystem/observation-category",
				Code:    "social-history",
				Display: "Social History",
			}},
		}},
		Code: &fhir.CodeableConcept{Text: text},
	}

	if when := parseEpicDate(row.First("CONTACT_DATE", "ENTRY_DATE")); when != nil {
		obs.EffectiveDateTime = naiveDateTime(when)
	}

	if value != "" {
		obs.ValueString = value
	}

	return obs
}
