package epic

import (
	"strconv"
	"strings"

	"github.com/potalora/ai-web-records-app-take-2/internal/fhir"
)

// orderResultsMapper maps ORDER_RESULTS rows to Observation resources.
// Numeric results become quantities with their reference range; anything
// else lands in valueString.
type orderResultsMapper struct{}

func (orderResultsMapper) MapRow(row Row) fhir.Resource {
	component := row.Get("COMPONENT_ID_NAME")
	if component == "" {
		return nil
	}

	statusRaw := strings.ToLower(row.Get("RESULT_STATUS_C_NAME"))
	status := "final"
	if strings.Contains(statusRaw, "prelim") {
		status = "preliminary"
	} else if strings.Contains(statusRaw, "cancel") {
		status = "cancelled"
	}

	obs := &fhir.Observation{
		Status: status,
		Code:   &fhir.CodeableConcept{Text: component},
	}

	if loinc := row.Get("COMPON_LNC_ID_LNC_LONG_NAME"); loinc != "" {
		obs.Code.Coding = []fhir.Coding{
			{System: "http://loinc.org", Display: loinc},
		}
	}

	if resultDate := parseEpicDate(row.Get("RESULT_DATE")); resultDate != nil {
		obs.EffectiveDateTime = naiveDateTime(resultDate)
	}

	numRaw := row.Get("ORD_NUM_VALUE")
	if f, err := strconv.ParseFloat(numRaw, 64); err == nil {
		obs.ValueQuantity = &fhir.Quantity{Value: f, Unit: row.Get("REFERENCE_UNIT")}
	} else if v := row.Get("ORD_VALUE"); v != "" {
		obs.ValueString = v
	}

	low, lowErr := strconv.ParseFloat(row.Get("REFERENCE_LOW"), 64)
	high, highErr := strconv.ParseFloat(row.Get("REFERENCE_HIGH"), 64)
	if lowErr == nil || highErr == nil {
		rr := fhir.ReferenceRange{}
		if lowErr == nil {
			rr.Low = &fhir.Quantity{Value: low}
		}
		if highErr == nil {
			rr.High = &fhir.Quantity{Value: high}
		}
		obs.ReferenceRange = []fhir.ReferenceRange{rr}
	}

	if flag := strings.ToLower(row.Get("RESULT_FLAG_C_NAME")); flag != "" {
		var code string
		switch {
		case strings.Contains(flag, "high"):
			code = "H"
		case strings.Contains(flag, "low"):
			code = "L"
		case strings.Contains(flag, "abnormal"):
			code = "A"
		case strings.Contains(flag, "normal"):
			code = "N"
		}
		if code != "" {
			obs.Interpretation = []fhir.CodeableConcept{
				{Coding: []fhir.Coding{{Code: code}}},
			}
		}
	}

	return obs
}
