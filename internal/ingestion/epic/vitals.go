package epic

import (
	"strconv"

	"github.com/potalora/ai-web-records-app-take-2/internal/fhir"
)

// vitalsMapper maps IP_FLWSHT_MEAS rows, Epic's flowsheet measurements,
// to vital-sign Observations.
type vitalsMapper struct{}

func (vitalsMapper) MapRow(row Row) fhir.Resource {
	name := row.First("FLO_MEAS_NAME", "DISP_NAME", "FLO_MEAS_ID_FLO_MEAS_NAME")
	value := row.Get("MEAS_VALUE")
	if name == "" || value == "" {
		return nil
	}

	obs := &fhir.Observation{
		Status: "final",
		Category: []fhir.CodeableConcept{{
			Coding: []fhir.Coding{{
				System:  "http://terminology.hl7.org/CodeSystem/observation-category",
				Code:    "vital-signs",
				Display: "Vital Signs",
			}},
		}},
		Code: &fhir.CodeableConcept{Text: name},
	}

	if recorded := parseEpicDate(row.First("RECORDED_TIME", "ENTRY_TIME")); recorded != nil {
		obs.EffectiveDateTime = naiveDateTime(recorded)
	}

	if f, err := strconv.ParseFloat(value, 64); err == nil {
		obs.ValueQuantity = &fhir.Quantity{Value: f, Unit: row.Get("UNITS")}
	} else {
		obs.ValueString = value
	}

	return obs
}
