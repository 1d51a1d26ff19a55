package fhir

// Shared datatype elements. Only the fields the normalizer reads or writes
// are modeled; anything else a source system sends survives in the owning
// resource's extra bucket.

type Coding struct {
	System  string `json:"system,omitempty"`
	Code    string `json:"code,omitempty"`
	Display string `json:"display,omitempty"`
}

type CodeableConcept struct {
	Coding []Coding `json:"coding,omitempty"`
	Text   string   `json:"text,omitempty"`
}

type Reference struct {
	Reference string `json:"reference,omitempty"`
	Display   string `json:"display,omitempty"`
}

type Period struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

type Quantity struct {
	Value  float64 `json:"value"`
	Unit   string  `json:"unit,omitempty"`
	System string  `json:"system,omitempty"`
	Code   string  `json:"code,omitempty"`
}

// TextQuantity is a quantity whose value is kept verbatim as text. Epic
// exports carry doses and dispense amounts as free-form column values.
type TextQuantity struct {
	Value string `json:"value"`
}

type Meta struct {
	VersionID   string `json:"versionId,omitempty"`
	LastUpdated string `json:"lastUpdated,omitempty"`
}

type Annotation struct {
	Text string `json:"text,omitempty"`
}

type Dosage struct {
	Text  string           `json:"text,omitempty"`
	Route *CodeableConcept `json:"route,omitempty"`
}

type DispenseRequest struct {
	Quantity               *TextQuantity `json:"quantity,omitempty"`
	NumberOfRepeatsAllowed string        `json:"numberOfRepeatsAllowed,omitempty"`
}

type Reaction struct {
	Manifestation []CodeableConcept `json:"manifestation,omitempty"`
	Severity      string            `json:"severity,omitempty"`
}

type ReferenceRange struct {
	Low  *Quantity `json:"low,omitempty"`
	High *Quantity `json:"high,omitempty"`
}

type CommunicationPayload struct {
	ContentString string `json:"contentString,omitempty"`
}

type Recommendation struct {
	VaccineCode []CodeableConcept `json:"vaccineCode,omitempty"`
}

type FamilyMemberCondition struct {
	Code        *CodeableConcept `json:"code,omitempty"`
	OnsetAge    *Quantity        `json:"onsetAge,omitempty"`
	OnsetString string           `json:"onsetString,omitempty"`
}

type EncounterLocation struct {
	Location *Reference `json:"location,omitempty"`
}

type EncounterParticipant struct {
	Individual *Reference `json:"individual,omitempty"`
}

type ProcedurePerformer struct {
	Actor *Reference `json:"actor,omitempty"`
}
