// Package epic turns Epic EHI table exports into FHIR resources. Each
// supported table has a mapper that reads the columns that survive into the
// export and builds the closest R4 shape; everything flows through the same
// normalization path bundle entries use.
package epic

import "github.com/potalora/ai-web-records-app-take-2/internal/fhir"

// Mapper turns rows of one export table into FHIR resources.
type Mapper interface {
	// MapRow returns nil when the row lacks the content its table requires.
	// Those rows count as skipped, not failed.
	MapRow(row Row) fhir.Resource
}

// Registry maps export table names to their mappers. PROBLEM_LIST_ALL has
// the same columns as PROBLEM_LIST, so they share one mapper.
func Registry() map[string]Mapper {
	problems := problemListMapper{}
	return map[string]Mapper{
		"PROBLEM_LIST":     problems,
		"PROBLEM_LIST_ALL": problems,
		"MEDICAL_HX":       medicalHistoryMapper{},
		"ORDER_MED":        orderMedMapper{},
		"ORDER_RESULTS":    orderResultsMapper{},
		"PAT_ENC":          patEncMapper{},
		"DOC_INFORMATION":  docInformationMapper{},
		"ALLERGY":          allergyMapper{},
		"IMMUNE":           immuneMapper{},
		"ORDER_PROC":       orderProcMapper{},
		"IP_FLWSHT_MEAS":   vitalsMapper{},
		"REFERRAL":         referralMapper{},
		"PAT_ENC_DX":       encounterDxMapper{},
		"SOCIAL_HX":        socialHistoryMapper{},
		"FAMILY_HX":        familyHistoryMapper{},
	}
}
