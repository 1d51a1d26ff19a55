package fhir

import (
	"time"

	"github.com/potalora/ai-web-records-app-take-2/internal/pkg/pointers"
)

// RecordMeta is the denormalized column set pulled out of a resource so the
// timeline can filter and order without opening the resource JSON.
type RecordMeta struct {
	RecordType       string
	EffectiveDate    *time.Time
	EffectiveDateEnd *time.Time
	Status           *string
	Categories       []string
	CodeSystem       *string
	CodeValue        *string
	CodeDisplay      *string
	DisplayText      string
}

// ExtractRecordMeta runs every extractor over a flattened resource document.
func ExtractRecordMeta(doc map[string]any, kind Kind) RecordMeta {
	system, code, display := ExtractCoding(doc)
	return RecordMeta{
		RecordType:       RecordTypeFor(kind),
		EffectiveDate:    ExtractEffectiveDate(doc),
		EffectiveDateEnd: ExtractEffectiveDateEnd(doc),
		Status:           ExtractStatus(doc),
		Categories:       ExtractCategories(doc),
		CodeSystem:       system,
		CodeValue:        code,
		CodeDisplay:      display,
		DisplayText:      DisplayText(doc, kind),
	}
}

// effectiveDateFields are probed in order; the first non-empty field wins
// even when its value fails to parse. Resources that date themselves two
// ways get a stable answer instead of one that depends on which value is
// cleaner.
var effectiveDateFields = []string{
	"effectiveDateTime",
	"issued",
	"date",
	"authoredOn",
	"occurrenceDateTime",
	"recordedDate",
	"onsetDateTime",
	"created",
	"sent",
	"start",
}

// ExtractEffectiveDate finds the primary timeline date for a resource:
// direct date fields first, then effectivePeriod/period start, then
// meta.lastUpdated as a last resort.
func ExtractEffectiveDate(doc map[string]any) *time.Time {
	for _, field := range effectiveDateFields {
		if v := docString(doc, field); v != "" {
			return ParseDate(v)
		}
	}
	period := docMap(doc, "effectivePeriod")
	if period == nil {
		period = docMap(doc, "period")
	}
	if start := docString(period, "start"); start != "" {
		return ParseDate(start)
	}
	if last := docString(docMap(doc, "meta"), "lastUpdated"); last != "" {
		return ParseDate(last)
	}
	return nil
}

// ExtractEffectiveDateEnd finds the end of a resource's period, if any.
func ExtractEffectiveDateEnd(doc map[string]any) *time.Time {
	period := docMap(doc, "effectivePeriod")
	if period == nil {
		period = docMap(doc, "period")
	}
	if end := docString(period, "end"); end != "" {
		return ParseDate(end)
	}
	return nil
}

// ExtractCoding returns the primary (system, code, display) triple. The code
// element is preferred; type covers DocumentReference and the list-shaped
// Encounter.type. A concept with only text yields it as the display.
func ExtractCoding(doc map[string]any) (*string, *string, *string) {
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
	if codeObj == nil {
		return nil, nil, nil
	}
	if codings := docList(codeObj, "coding"); len(codings) > 0 {
		if c, ok := codings[0].(map[string]any); ok {
			return optString(c, "system"), optString(c, "code"), optString(c, "display")
		}
	}
	if text := docString(codeObj, "text"); text != "" {
		return nil, nil, pointers.String(text)
	}
	return nil, nil, nil
}

// ExtractCategories collects category codes. A category with codings
// contributes every coded entry; one without falls back to its text. Nil
// means the resource carried no categories at all.
func ExtractCategories(doc map[string]any) []string {
	var result []string
	for _, cat := range docList(doc, "category") {
		m, ok := cat.(map[string]any)
		if !ok {
			continue
		}
		codings := docList(m, "coding")
		for _, c := range codings {
			cm, ok := c.(map[string]any)
			if !ok {
				continue
			}
			if code := docString(cm, "code"); code != "" {
				result = append(result, code)
			}
		}
		if len(codings) == 0 {
			if text := docString(m, "text"); text != "" {
				result = append(result, text)
			}
		}
	}
	return result
}

// ExtractStatus returns the status field, or the first clinicalStatus coding
// for resources like Condition and AllergyIntolerance that code it.
func ExtractStatus(doc map[string]any) *string {
	if status := docString(doc, "status"); status != "" {
		return pointers.String(status)
	}
	if codings := docList(docMap(doc, "clinicalStatus"), "coding"); len(codings) > 0 {
		if c, ok := codings[0].(map[string]any); ok {
			return optString(c, "code")
		}
	}
	return nil
}

// docString reads a string key; missing, empty, or non-string values all
// read as absent.
func docString(doc map[string]any, key string) string {
	s, _ := doc[key].(string)
	return s
}

// docMap reads an object key; an empty object reads as absent.
func docMap(doc map[string]any, key string) map[string]any {
	m, _ := doc[key].(map[string]any)
	if len(m) == 0 {
		return nil
	}
	return m
}

func docList(doc map[string]any, key string) []any {
	l, _ := doc[key].([]any)
	return l
}

func optString(m map[string]any, key string) *string {
	if s := docString(m, key); s != "" {
		return pointers.String(s)
	}
	return nil
}
