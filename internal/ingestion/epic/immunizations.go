package epic

import (
	"strings"

	"github.com/potalora/ai-web-records-app-take-2/internal/fhir"
)

// immuneMapper maps IMMUNE rows to Immunization resources.
type immuneMapper struct{}

func (immuneMapper) MapRow(row Row) fhir.Resource {
	vaccine := row.Get("IMMUNZATN_ID_NAME")
	if vaccine == "" {
		return nil
	}

	statusRaw := strings.ToLower(row.Get("IMMNZTN_STATUS_C_NAME"))
	status := "completed"
	if strings.Contains(statusRaw, "not done") || strings.Contains(statusRaw, "refused") {
		status = "not-done"
	} else if strings.Contains(statusRaw, "entered-in-error") {
		status = "entered-in-error"
	}

	imm := &fhir.Immunization{
		Status:      status,
		VaccineCode: &fhir.CodeableConcept{Text: vaccine},
	}

	if given := parseEpicDate(row.Get("IMMUNE_DATE")); given != nil {
		imm.OccurrenceDateTime = naiveDateTime(given)
	}

	if dose := row.Get("DOSE"); dose != "" {
		imm.DoseQuantity = &fhir.TextQuantity{Value: dose}
	}

	if route := row.Get("ROUTE_C_NAME"); route != "" {
		imm.Route = &fhir.CodeableConcept{Text: route}
	}

	if site := row.Get("SITE_C_NAME"); site != "" {
		imm.Site = &fhir.CodeableConcept{Text: site}
	}

	if mfg := row.Get("MFG_C_NAME"); mfg != "" {
		imm.Manufacturer = &fhir.Reference{Display: mfg}
	}

	if lot := row.Get("LOT"); lot != "" {
		imm.LotNumber = lot
	}

	return imm
}
