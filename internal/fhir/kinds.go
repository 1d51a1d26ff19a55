package fhir

import "strings"

// Kind is a FHIR R4 resource type name, e.g. "Condition" or "MedicationRequest".
type Kind string

const (
	KindAllergyIntolerance         Kind = "AllergyIntolerance"
	KindAppointment                Kind = "Appointment"
	KindCarePlan                   Kind = "CarePlan"
	KindCareTeam                   Kind = "CareTeam"
	KindCommunication              Kind = "Communication"
	KindCondition                  Kind = "Condition"
	KindDiagnosticReport           Kind = "DiagnosticReport"
	KindDocumentReference          Kind = "DocumentReference"
	KindEncounter                  Kind = "Encounter"
	KindFamilyMemberHistory        Kind = "FamilyMemberHistory"
	KindImagingStudy               Kind = "ImagingStudy"
	KindImmunization               Kind = "Immunization"
	KindImmunizationRecommendation Kind = "ImmunizationRecommendation"
	KindMedicationRequest          Kind = "MedicationRequest"
	KindMedicationStatement        Kind = "MedicationStatement"
	KindObservation                Kind = "Observation"
	KindPatient                    Kind = "Patient"
	KindProcedure                  Kind = "Procedure"
	KindQuestionnaireResponse      Kind = "QuestionnaireResponse"
	KindServiceRequest             Kind = "ServiceRequest"
)

// recordTypes maps resource kinds to the record_type stored on health_records.
// FamilyMemberHistory rows are filed as conditions so they surface alongside
// the patient's own diagnoses on the timeline.
var recordTypes = map[Kind]string{
	KindCondition:                  "condition",
	KindObservation:                "observation",
	KindMedicationRequest:          "medication",
	KindMedicationStatement:        "medication",
	KindAllergyIntolerance:         "allergy",
	KindProcedure:                  "procedure",
	KindEncounter:                  "encounter",
	KindImmunization:               "immunization",
	KindDiagnosticReport:           "diagnostic_report",
	KindDocumentReference:          "document",
	KindImagingStudy:               "imaging",
	KindServiceRequest:             "service_request",
	KindCarePlan:                   "care_plan",
	KindCommunication:              "communication",
	KindAppointment:                "appointment",
	KindCareTeam:                   "care_team",
	KindImmunizationRecommendation: "immunization",
	KindQuestionnaireResponse:      "questionnaire_response",
	KindFamilyMemberHistory:        "condition",
}

// bundleKinds is the set of kinds a FHIR bundle entry may normalize into.
// Patient entries carry identity, not records, and are skipped upstream.
var bundleKinds = map[Kind]bool{
	KindCondition:                  true,
	KindObservation:                true,
	KindMedicationRequest:          true,
	KindMedicationStatement:        true,
	KindAllergyIntolerance:         true,
	KindProcedure:                  true,
	KindEncounter:                  true,
	KindImmunization:               true,
	KindDiagnosticReport:           true,
	KindDocumentReference:          true,
	KindImagingStudy:               true,
	KindServiceRequest:             true,
	KindCarePlan:                   true,
	KindCommunication:              true,
	KindAppointment:                true,
	KindCareTeam:                   true,
	KindImmunizationRecommendation: true,
	KindQuestionnaireResponse:      true,
}

// SupportedInBundle reports whether bundle entries of this kind become records.
func SupportedInBundle(kind Kind) bool {
	return bundleKinds[kind]
}

// RecordTypeFor returns the record_type value for a kind. Kinds outside the
// known mapping fall back to the lower-cased kind name.
func RecordTypeFor(kind Kind) string {
	if rt, ok := recordTypes[kind]; ok {
		return rt
	}
	return strings.ToLower(string(kind))
}
