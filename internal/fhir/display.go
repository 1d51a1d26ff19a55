package fhir

import "fmt"

// DisplayText builds the one-line summary a record shows on the timeline.
// The shared code/type probe runs first; kinds whose meaning lives somewhere
// else get their own chain; the kind name itself is the floor, so every
// record has something to show.
func DisplayText(doc map[string]any, kind Kind) string {
	codeObj := docMap(doc, "code")
	if codeObj == nil {
		switch tv := doc["type"].(type) {
		case map[string]any:
			if len(tv) > 0 {
				codeObj = tv
			}
		case []any:
			if len(tv) > 0 {
				if m, ok := tv[0].(map[string]any); ok && len(m) > 0 {
					codeObj = m
				}
			}
		}
	}
	if codeObj != nil {
		if text := docString(codeObj, "text"); text != "" {
			return text
		}
		if display := firstCodingDisplay(codeObj); display != "" {
			return display
		}
	}

	switch kind {
	case KindEncounter:
		if encType := docList(doc, "type"); len(encType) > 0 {
			if m, ok := encType[0].(map[string]any); ok {
				if text := docString(m, "text"); text != "" {
					return text
				}
			}
		}
		if code := docString(docMap(doc, "class"), "code"); code != "" {
			return fmt.Sprintf("Encounter (%s)", code)
		}
		return "Encounter"

	case KindImmunization:
		vaccine := docMap(doc, "vaccineCode")
		if text := docString(vaccine, "text"); text != "" {
			return text
		}
		if display := firstCodingDisplay(vaccine); display != "" {
			return display
		}
		return "Immunization"

	case KindMedicationRequest:
		if display := docString(docMap(doc, "medicationReference"), "display"); display != "" {
			return display
		}
		if text := docString(docMap(doc, "medicationCodeableConcept"), "text"); text != "" {
			return text
		}
		if dosage := docList(doc, "dosageInstruction"); len(dosage) > 0 {
			if m, ok := dosage[0].(map[string]any); ok {
				if text := docString(m, "text"); text != "" {
					return text
				}
			}
			return "Medication"
		}
		return "Medication Request"

	case KindDocumentReference:
		if desc := docString(doc, "description"); desc != "" {
			return desc
		}
		return "Document"

	case KindCommunication:
		if payload := docList(doc, "payload"); len(payload) > 0 {
			if m, ok := payload[0].(map[string]any); ok {
				if content := docString(m, "contentString"); content != "" {
					return truncate(content, 100)
				}
			}
		}
		return "Communication"

	case KindAppointment:
		if desc := docString(doc, "description"); desc != "" {
			return desc
		}
		return "Appointment"

	case KindServiceRequest:
		return "Service Request"

	case KindCarePlan:
		if title := docString(doc, "title"); title != "" {
			return title
		}
		return "Care Plan"

	case KindFamilyMemberHistory:
		if conditions := docList(doc, "condition"); len(conditions) > 0 {
			if m, ok := conditions[0].(map[string]any); ok {
				if text := docString(docMap(m, "code"), "text"); text != "" {
					if rel := docString(docMap(doc, "relationship"), "text"); rel != "" {
						return fmt.Sprintf("%s (%s)", text, rel)
					}
					return text
				}
			}
		}
		return "Family History"

	case KindCareTeam:
		if name := docString(doc, "name"); name != "" {
			return name
		}
		return "Care Team"

	case KindImmunizationRecommendation:
		if recs := docList(doc, "recommendation"); len(recs) > 0 {
			if rm, ok := recs[0].(map[string]any); ok {
				if vaccine := docList(rm, "vaccineCode"); len(vaccine) > 0 {
					if vm, ok := vaccine[0].(map[string]any); ok {
						if text := docString(vm, "text"); text != "" {
							return text
						}
						if display := firstCodingDisplay(vm); display != "" {
							return display
						}
					}
				}
			}
		}
		return "Immunization Recommendation"

	case KindQuestionnaireResponse:
		if q := docString(doc, "questionnaire"); q != "" {
			return fmt.Sprintf("Questionnaire: %s", q)
		}
		return "Questionnaire Response"
	}

	return string(kind)
}

// firstCodingDisplay walks a concept's codings for the first with a display,
// unlike ExtractCoding which commits to the first coding outright.
func firstCodingDisplay(concept map[string]any) string {
	for _, c := range docList(concept, "coding") {
		if cm, ok := c.(map[string]any); ok {
			if display := docString(cm, "display"); display != "" {
				return display
			}
		}
	}
	return ""
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
