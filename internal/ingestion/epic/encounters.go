package epic

import (
	"strings"

	"github.com/potalora/ai-web-records-app-take-2/internal/fhir"
)

// patEncMapper maps PAT_ENC rows to Encounter resources. A row without a
// parsable contact date has no place on the timeline, so it is skipped.
type patEncMapper struct{}

func (patEncMapper) MapRow(row Row) fhir.Resource {
	contactDate := parseEpicDate(row.Get("CONTACT_DATE"))
	if contactDate == nil {
		return nil
	}

	statusRaw := strings.ToLower(row.Get("APPT_STATUS_C_NAME"))
	status := "finished"
	switch {
	case strings.Contains(statusRaw, "complet"):
		status = "finished"
	case strings.Contains(statusRaw, "cancel"):
		status = "cancelled"
	case strings.Contains(statusRaw, "schedul"):
		status = "planned"
	case strings.Contains(statusRaw, "arriv"):
		status = "arrived"
	}

	enc := &fhir.Encounter{
		Status: status,
		Period: &fhir.Period{Start: naiveDateTime(contactDate)},
	}

	finClass := strings.ToLower(row.Get("FIN_CLASS_C_NAME"))
	switch {
	case strings.Contains(finClass, "outpatient"):
		enc.Class = &fhir.Coding{Code: "AMB"}
	case strings.Contains(finClass, "inpatient"):
		enc.Class = &fhir.Coding{Code: "IMP"}
	case strings.Contains(finClass, "emergency"):
		enc.Class = &fhir.Coding{Code: "EMER"}
	}

	if dept := row.Get("DEPARTMENT_ID_EXTERNAL_NAME"); dept != "" {
		enc.Location = []fhir.EncounterLocation{
			{Location: &fhir.Reference{Display: dept}},
		}
	}

	if prov := row.Get("VISIT_PROV_ID_PROV_NAME"); prov != "" {
		display := prov
		if title := row.Get("VISIT_PROV_TITLE_NAME"); title != "" {
			display = prov + ", " + title
		}
		enc.Participant = []fhir.EncounterParticipant{
			{Individual: &fhir.Reference{Display: display}},
		}
	}

	if discharge := parseEpicDate(row.Get("HOSP_DISCHRG_TIME")); discharge != nil {
		enc.Period.End = naiveDateTime(discharge)
	}

	if comment := row.Get("CONTACT_COMMENT"); comment != "" {
		enc.ReasonCode = []fhir.CodeableConcept{{Text: comment}}
	}

	return enc
}
