package epic

import (
	"strings"

	"github.com/potalora/ai-web-records-app-take-2/internal/fhir"
)

// orderProcMapper maps ORDER_PROC rows to Procedure resources.
type orderProcMapper struct{}

func (orderProcMapper) MapRow(row Row) fhir.Resource {
	name := row.First("DESCRIPTION", "PROC_NAME", "ORDER_TYPE_C_NAME", "DISPLAY_NAME")
	if name == "" {
		return nil
	}

	statusRaw := strings.ToLower(row.Get("ORDER_STATUS_C_NAME"))
	status := "completed"
	switch {
	case strings.Contains(statusRaw, "pending"), strings.Contains(statusRaw, "ordered"):
		status = "preparation"
	case strings.Contains(statusRaw, "cancel"), strings.Contains(statusRaw, "discontinue"):
		status = "not-done"
	case strings.Contains(statusRaw, "in progress"):
		status = "in-progress"
	}

	proc := &fhir.Procedure{
		Status: status,
		Code:   &fhir.CodeableConcept{Text: name},
	}

	if when := parseEpicDate(row.First("ORDER_INST", "ORDERING_DATE", "ORDER_DATE")); when != nil {
		proc.PerformedDateTime = naiveDateTime(when)
	}

	if prov := row.First("AUTHRZING_PROV_ID_PROV_NAME", "ORD_PROV_ID_PROV_NAME"); prov != "" {
		proc.Performer = []fhir.ProcedurePerformer{
			{Actor: &fhir.Reference{Display: prov}},
		}
	}

	return proc
}
