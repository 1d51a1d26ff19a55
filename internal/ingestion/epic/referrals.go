package epic

import (
	"strings"

	"github.com/potalora/ai-web-records-app-take-2/internal/fhir"
)

// referralMapper maps REFERRAL rows to ServiceRequest resources. A row
// with neither a referral reason nor a receiving provider carries
// nothing worth keeping.
type referralMapper struct{}

func (referralMapper) MapRow(row Row) fhir.Resource {
	reason := row.Get("RSN_FOR_RFL_C_NAME")
	provider := row.Get("REFERRAL_PROV_ID_PROV_NAME")
	if reason == "" && provider == "" {
		return nil
	}

	statusRaw := strings.ToLower(row.Get("RFL_STATUS_C_NAME"))
	status := "active"
	switch {
	case strings.Contains(statusRaw, "completed"), strings.Contains(statusRaw, "closed"):
		status = "completed"
	case strings.Contains(statusRaw, "cancelled"), strings.Contains(statusRaw, "canceled"):
		status = "revoked"
	case strings.Contains(statusRaw, "pending"):
		status = "draft"
	}

	sr := &fhir.ServiceRequest{
		Status:   status,
		Intent:   "order",
		Category: []fhir.CodeableConcept{{Text: "referral"}},
	}

	if reason != "" {
		sr.Code = &fhir.CodeableConcept{Text: reason}
	}

	start := parseEpicDate(row.Get("START_DATE"))
	exp := parseEpicDate(row.Get("EXP_DATE"))
	if start != nil {
		sr.AuthoredOn = naiveDateTime(start)
	}
	if start != nil || exp != nil {
		sr.OccurrencePeriod = &fhir.Period{
			Start: naiveDateTime(start),
			End:   naiveDateTime(exp),
		}
	}

	if referrer := row.Get("REFERRING_PROV_ID_REFERRING_PROV_NAM"); referrer != "" {
		sr.Requester = &fhir.Reference{Display: referrer}
	}

	if provider != "" {
		sr.Performer = []fhir.Reference{{Display: provider}}
	}

	return sr
}
