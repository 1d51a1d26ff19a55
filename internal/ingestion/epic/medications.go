package epic

import (
	"strings"

	"github.com/potalora/ai-web-records-app-take-2/internal/fhir"
)

// orderMedMapper maps ORDER_MED rows to MedicationRequest resources.
type orderMedMapper struct{}

func (orderMedMapper) MapRow(row Row) fhir.Resource {
	medName := row.First("DISPLAY_NAME", "MEDICATION_ID_MEDICATION_NAME")
	if medName == "" {
		return nil
	}

	startDate := parseEpicDate(row.Get("START_DATE"))
	endDate := parseEpicDate(row.Get("END_DATE"))
	authored := parseEpicDate(row.Get("ORDERING_DATE"))
	statusRaw := strings.ToLower(row.Get("ORDER_STATUS_C_NAME"))

	status := "active"
	if strings.Contains(statusRaw, "completed") || strings.Contains(statusRaw, "sent") {
		status = "completed"
	} else if strings.Contains(statusRaw, "cancel") || strings.Contains(statusRaw, "discontinue") {
		status = "cancelled"
	}

	med := &fhir.MedicationRequest{
		Status:                    status,
		Intent:                    "order",
		MedicationCodeableConcept: &fhir.CodeableConcept{Text: medName},
		Category:                  []fhir.CodeableConcept{{Text: "community"}},
	}

	if authored != nil {
		med.AuthoredOn = naiveDateTime(authored)
	}

	if dosage := row.First("DOSAGE", "DESCRIPTION"); dosage != "" {
		med.DosageInstruction = []fhir.Dosage{{Text: dosage}}
	}

	quantity := row.Get("QUANTITY")
	refills := row.Get("REFILLS")
	if quantity != "" || refills != "" {
		disp := &fhir.DispenseRequest{}
		if quantity != "" {
			disp.Quantity = &fhir.TextQuantity{Value: quantity}
		}
		disp.NumberOfRepeatsAllowed = refills
		med.DispenseRequest = disp
	}

	if startDate != nil || endDate != nil {
		med.EffectivePeriod = &fhir.Period{
			Start: naiveDateTime(startDate),
			End:   naiveDateTime(endDate),
		}
	}

	if prescriber := row.Get("MED_PRESC_PROV_ID_PROV_NAME"); prescriber != "" {
		med.Requester = &fhir.Reference{Display: prescriber}
	}

	if route := row.Get("MED_ROUTE_C_NAME"); route != "" && len(med.DosageInstruction) > 0 {
		med.DosageInstruction[0].Route = &fhir.CodeableConcept{Text: route}
	}

	return med
}
