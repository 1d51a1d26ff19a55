// Package fhir models the subset of FHIR R4 resources the ingestion pipeline
// normalizes into health records. Each resource keeps typed fields for what
// the pipeline reads plus a raw bucket for everything else, so a stored
// resource round-trips without losing fields a source system sent.
package fhir

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnsupportedKind marks resource types the pipeline does not normalize.
var ErrUnsupportedKind = errors.New("unsupported resource kind")

// Resource is a decoded FHIR resource of a known kind.
type Resource interface {
	Kind() Kind
}

var factories = map[Kind]func() Resource{
	KindAllergyIntolerance:         func() Resource { return &AllergyIntolerance{} },
	KindAppointment:                func() Resource { return &Appointment{} },
	KindCarePlan:                   func() Resource { return &CarePlan{} },
	KindCareTeam:                   func() Resource { return &CareTeam{} },
	KindCommunication:              func() Resource { return &Communication{} },
	KindCondition:                  func() Resource { return &Condition{} },
	KindDiagnosticReport:           func() Resource { return &DiagnosticReport{} },
	KindDocumentReference:          func() Resource { return &DocumentReference{} },
	KindEncounter:                  func() Resource { return &Encounter{} },
	KindFamilyMemberHistory:        func() Resource { return &FamilyMemberHistory{} },
	KindImagingStudy:               func() Resource { return &ImagingStudy{} },
	KindImmunization:               func() Resource { return &Immunization{} },
	KindImmunizationRecommendation: func() Resource { return &ImmunizationRecommendation{} },
	KindMedicationRequest:          func() Resource { return &MedicationRequest{} },
	KindMedicationStatement:        func() Resource { return &MedicationStatement{} },
	KindObservation:                func() Resource { return &Observation{} },
	KindPatient:                    func() Resource { return &Patient{} },
	KindProcedure:                  func() Resource { return &Procedure{} },
	KindQuestionnaireResponse:      func() Resource { return &QuestionnaireResponse{} },
	KindServiceRequest:             func() Resource { return &ServiceRequest{} },
}

// Decode parses a raw resource into its typed form. Malformed JSON comes back
// as a plain error; a well-formed resource of an unknown type comes back
// wrapping ErrUnsupportedKind so callers can skip rather than fail.
func Decode(raw []byte) (Resource, error) {
	var head struct {
		ResourceType string `json:"resourceType"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("invalid resource JSON: %w", err)
	}
	factory, ok := factories[Kind(head.ResourceType)]
	if !ok {
		return nil, fmt.Errorf("%q: %w", head.ResourceType, ErrUnsupportedKind)
	}
	r := factory()
	if err := json.Unmarshal(raw, r); err != nil {
		return nil, fmt.Errorf("decode %s: %w", head.ResourceType, err)
	}
	return r, nil
}

// Document flattens a resource into the generic map form the metadata
// extractors probe. Typed fields and extra fields land side by side, the
// same shape the resource serializes to.
func Document(r Resource) (map[string]any, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", r.Kind(), err)
	}
	var doc map[string]any
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("flatten %s: %w", r.Kind(), err)
	}
	return doc, nil
}
