package fhir

import "encoding/json"

// One variant per supported kind. Typed fields cover what the extractors and
// table mappers touch; Extra holds every other top-level key verbatim.

type Condition struct {
	Meta              *Meta             `json:"meta,omitempty"`
	Code              *CodeableConcept  `json:"code,omitempty"`
	ClinicalStatus    *CodeableConcept  `json:"clinicalStatus,omitempty"`
	Category          []CodeableConcept `json:"category,omitempty"`
	OnsetDateTime     string            `json:"onsetDateTime,omitempty"`
	AbatementDateTime string            `json:"abatementDateTime,omitempty"`
	RecordedDate      string            `json:"recordedDate,omitempty"`
	Note              []Annotation      `json:"note,omitempty"`
	PrimaryDiagnosis  bool              `json:"_primaryDiagnosis,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

func (r *Condition) Kind() Kind                   { return KindCondition }
func (r *Condition) MarshalJSON() ([]byte, error) { return marshalResource(r) }
func (r *Condition) UnmarshalJSON(b []byte) error { return unmarshalResource(b, r) }

type Observation struct {
	Meta              *Meta             `json:"meta,omitempty"`
	Status            string            `json:"status,omitempty"`
	Category          []CodeableConcept `json:"category,omitempty"`
	Code              *CodeableConcept  `json:"code,omitempty"`
	EffectiveDateTime string            `json:"effectiveDateTime,omitempty"`
	Issued            string            `json:"issued,omitempty"`
	ValueQuantity     *Quantity         `json:"valueQuantity,omitempty"`
	ValueString       string            `json:"valueString,omitempty"`
	Interpretation    []CodeableConcept `json:"interpretation,omitempty"`
	ReferenceRange    []ReferenceRange  `json:"referenceRange,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

func (r *Observation) Kind() Kind                   { return KindObservation }
func (r *Observation) MarshalJSON() ([]byte, error) { return marshalResource(r) }
func (r *Observation) UnmarshalJSON(b []byte) error { return unmarshalResource(b, r) }

type MedicationRequest struct {
	Meta                      *Meta             `json:"meta,omitempty"`
	Status                    string            `json:"status,omitempty"`
	Intent                    string            `json:"intent,omitempty"`
	MedicationCodeableConcept *CodeableConcept  `json:"medicationCodeableConcept,omitempty"`
	MedicationReference       *Reference        `json:"medicationReference,omitempty"`
	Category                  []CodeableConcept `json:"category,omitempty"`
	AuthoredOn                string            `json:"authoredOn,omitempty"`
	EffectivePeriod           *Period           `json:"effectivePeriod,omitempty"`
	DosageInstruction         []Dosage          `json:"dosageInstruction,omitempty"`
	DispenseRequest           *DispenseRequest  `json:"dispenseRequest,omitempty"`
	Requester                 *Reference        `json:"requester,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

func (r *MedicationRequest) Kind() Kind                   { return KindMedicationRequest }
func (r *MedicationRequest) MarshalJSON() ([]byte, error) { return marshalResource(r) }
func (r *MedicationRequest) UnmarshalJSON(b []byte) error { return unmarshalResource(b, r) }

type MedicationStatement struct {
	Meta                      *Meta            `json:"meta,omitempty"`
	Status                    string           `json:"status,omitempty"`
	MedicationCodeableConcept *CodeableConcept `json:"medicationCodeableConcept,omitempty"`
	EffectiveDateTime         string           `json:"effectiveDateTime,omitempty"`
	EffectivePeriod           *Period          `json:"effectivePeriod,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

func (r *MedicationStatement) Kind() Kind                   { return KindMedicationStatement }
func (r *MedicationStatement) MarshalJSON() ([]byte, error) { return marshalResource(r) }
func (r *MedicationStatement) UnmarshalJSON(b []byte) error { return unmarshalResource(b, r) }

type AllergyIntolerance struct {
	Meta           *Meta            `json:"meta,omitempty"`
	ClinicalStatus *CodeableConcept `json:"clinicalStatus,omitempty"`
	Code           *CodeableConcept `json:"code,omitempty"`
	Category       []string         `json:"category,omitempty"`
	RecordedDate   string           `json:"recordedDate,omitempty"`
	Reaction       []Reaction       `json:"reaction,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

func (r *AllergyIntolerance) Kind() Kind                   { return KindAllergyIntolerance }
func (r *AllergyIntolerance) MarshalJSON() ([]byte, error) { return marshalResource(r) }
func (r *AllergyIntolerance) UnmarshalJSON(b []byte) error { return unmarshalResource(b, r) }

type Procedure struct {
	Meta              *Meta                `json:"meta,omitempty"`
	Status            string               `json:"status,omitempty"`
	Code              *CodeableConcept     `json:"code,omitempty"`
	PerformedDateTime string               `json:"performedDateTime,omitempty"`
	Performer         []ProcedurePerformer `json:"performer,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

func (r *Procedure) Kind() Kind                   { return KindProcedure }
func (r *Procedure) MarshalJSON() ([]byte, error) { return marshalResource(r) }
func (r *Procedure) UnmarshalJSON(b []byte) error { return unmarshalResource(b, r) }

type Encounter struct {
	Meta        *Meta                  `json:"meta,omitempty"`
	Status      string                 `json:"status,omitempty"`
	Class       *Coding                `json:"class,omitempty"`
	Type        []CodeableConcept      `json:"type,omitempty"`
	Period      *Period                `json:"period,omitempty"`
	Location    []EncounterLocation    `json:"location,omitempty"`
	Participant []EncounterParticipant `json:"participant,omitempty"`
	ReasonCode  []CodeableConcept      `json:"reasonCode,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

func (r *Encounter) Kind() Kind                   { return KindEncounter }
func (r *Encounter) MarshalJSON() ([]byte, error) { return marshalResource(r) }
func (r *Encounter) UnmarshalJSON(b []byte) error { return unmarshalResource(b, r) }

type Immunization struct {
	Meta               *Meta            `json:"meta,omitempty"`
	Status             string           `json:"status,omitempty"`
	VaccineCode        *CodeableConcept `json:"vaccineCode,omitempty"`
	OccurrenceDateTime string           `json:"occurrenceDateTime,omitempty"`
	DoseQuantity       *TextQuantity    `json:"doseQuantity,omitempty"`
	Route              *CodeableConcept `json:"route,omitempty"`
	Site               *CodeableConcept `json:"site,omitempty"`
	Manufacturer       *Reference       `json:"manufacturer,omitempty"`
	LotNumber          string           `json:"lotNumber,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

func (r *Immunization) Kind() Kind                   { return KindImmunization }
func (r *Immunization) MarshalJSON() ([]byte, error) { return marshalResource(r) }
func (r *Immunization) UnmarshalJSON(b []byte) error { return unmarshalResource(b, r) }

type ImmunizationRecommendation struct {
	Meta           *Meta            `json:"meta,omitempty"`
	Date           string           `json:"date,omitempty"`
	Recommendation []Recommendation `json:"recommendation,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

func (r *ImmunizationRecommendation) Kind() Kind                   { return KindImmunizationRecommendation }
func (r *ImmunizationRecommendation) MarshalJSON() ([]byte, error) { return marshalResource(r) }
func (r *ImmunizationRecommendation) UnmarshalJSON(b []byte) error { return unmarshalResource(b, r) }

type DiagnosticReport struct {
	Meta              *Meta             `json:"meta,omitempty"`
	Status            string            `json:"status,omitempty"`
	Category          []CodeableConcept `json:"category,omitempty"`
	Code              *CodeableConcept  `json:"code,omitempty"`
	EffectiveDateTime string            `json:"effectiveDateTime,omitempty"`
	Issued            string            `json:"issued,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

func (r *DiagnosticReport) Kind() Kind                   { return KindDiagnosticReport }
func (r *DiagnosticReport) MarshalJSON() ([]byte, error) { return marshalResource(r) }
func (r *DiagnosticReport) UnmarshalJSON(b []byte) error { return unmarshalResource(b, r) }

type DocumentReference struct {
	Meta        *Meta             `json:"meta,omitempty"`
	Status      string            `json:"status,omitempty"`
	Type        *CodeableConcept  `json:"type,omitempty"`
	Category    []CodeableConcept `json:"category,omitempty"`
	Date        string            `json:"date,omitempty"`
	Description string            `json:"description,omitempty"`
	Author      []Reference       `json:"author,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

func (r *DocumentReference) Kind() Kind                   { return KindDocumentReference }
func (r *DocumentReference) MarshalJSON() ([]byte, error) { return marshalResource(r) }
func (r *DocumentReference) UnmarshalJSON(b []byte) error { return unmarshalResource(b, r) }

type ImagingStudy struct {
	Meta        *Meta  `json:"meta,omitempty"`
	Status      string `json:"status,omitempty"`
	Started     string `json:"started,omitempty"`
	Description string `json:"description,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

func (r *ImagingStudy) Kind() Kind                   { return KindImagingStudy }
func (r *ImagingStudy) MarshalJSON() ([]byte, error) { return marshalResource(r) }
func (r *ImagingStudy) UnmarshalJSON(b []byte) error { return unmarshalResource(b, r) }

type ServiceRequest struct {
	Meta             *Meta             `json:"meta,omitempty"`
	Status           string            `json:"status,omitempty"`
	Intent           string            `json:"intent,omitempty"`
	Code             *CodeableConcept  `json:"code,omitempty"`
	Category         []CodeableConcept `json:"category,omitempty"`
	AuthoredOn       string            `json:"authoredOn,omitempty"`
	OccurrencePeriod *Period           `json:"occurrencePeriod,omitempty"`
	Requester        *Reference        `json:"requester,omitempty"`
	Performer        []Reference       `json:"performer,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

func (r *ServiceRequest) Kind() Kind                   { return KindServiceRequest }
func (r *ServiceRequest) MarshalJSON() ([]byte, error) { return marshalResource(r) }
func (r *ServiceRequest) UnmarshalJSON(b []byte) error { return unmarshalResource(b, r) }

type CarePlan struct {
	Meta     *Meta             `json:"meta,omitempty"`
	Status   string            `json:"status,omitempty"`
	Intent   string            `json:"intent,omitempty"`
	Title    string            `json:"title,omitempty"`
	Category []CodeableConcept `json:"category,omitempty"`
	Period   *Period           `json:"period,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

func (r *CarePlan) Kind() Kind                   { return KindCarePlan }
func (r *CarePlan) MarshalJSON() ([]byte, error) { return marshalResource(r) }
func (r *CarePlan) UnmarshalJSON(b []byte) error { return unmarshalResource(b, r) }

type Communication struct {
	Meta    *Meta                  `json:"meta,omitempty"`
	Status  string                 `json:"status,omitempty"`
	Sent    string                 `json:"sent,omitempty"`
	Payload []CommunicationPayload `json:"payload,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

func (r *Communication) Kind() Kind                   { return KindCommunication }
func (r *Communication) MarshalJSON() ([]byte, error) { return marshalResource(r) }
func (r *Communication) UnmarshalJSON(b []byte) error { return unmarshalResource(b, r) }

type Appointment struct {
	Meta        *Meta  `json:"meta,omitempty"`
	Status      string `json:"status,omitempty"`
	Description string `json:"description,omitempty"`
	Start       string `json:"start,omitempty"`
	End         string `json:"end,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

func (r *Appointment) Kind() Kind                   { return KindAppointment }
func (r *Appointment) MarshalJSON() ([]byte, error) { return marshalResource(r) }
func (r *Appointment) UnmarshalJSON(b []byte) error { return unmarshalResource(b, r) }

type CareTeam struct {
	Meta   *Meta   `json:"meta,omitempty"`
	Status string  `json:"status,omitempty"`
	Name   string  `json:"name,omitempty"`
	Period *Period `json:"period,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

func (r *CareTeam) Kind() Kind                   { return KindCareTeam }
func (r *CareTeam) MarshalJSON() ([]byte, error) { return marshalResource(r) }
func (r *CareTeam) UnmarshalJSON(b []byte) error { return unmarshalResource(b, r) }

type QuestionnaireResponse struct {
	Meta          *Meta  `json:"meta,omitempty"`
	Status        string `json:"status,omitempty"`
	Questionnaire string `json:"questionnaire,omitempty"`
	Authored      string `json:"authored,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

func (r *QuestionnaireResponse) Kind() Kind                   { return KindQuestionnaireResponse }
func (r *QuestionnaireResponse) MarshalJSON() ([]byte, error) { return marshalResource(r) }
func (r *QuestionnaireResponse) UnmarshalJSON(b []byte) error { return unmarshalResource(b, r) }

type FamilyMemberHistory struct {
	Meta         *Meta                   `json:"meta,omitempty"`
	Status       string                  `json:"status,omitempty"`
	Relationship *CodeableConcept        `json:"relationship,omitempty"`
	Date         string                  `json:"date,omitempty"`
	Condition    []FamilyMemberCondition `json:"condition,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

func (r *FamilyMemberHistory) Kind() Kind                   { return KindFamilyMemberHistory }
func (r *FamilyMemberHistory) MarshalJSON() ([]byte, error) { return marshalResource(r) }
func (r *FamilyMemberHistory) UnmarshalJSON(b []byte) error { return unmarshalResource(b, r) }

// Patient is decoded only to pull identity off a bundle; it never becomes a
// health record.
type Patient struct {
	ID     string `json:"id,omitempty"`
	Meta   *Meta  `json:"meta,omitempty"`
	Gender string `json:"gender,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

func (r *Patient) Kind() Kind                   { return KindPatient }
func (r *Patient) MarshalJSON() ([]byte, error) { return marshalResource(r) }
func (r *Patient) UnmarshalJSON(b []byte) error { return unmarshalResource(b, r) }
