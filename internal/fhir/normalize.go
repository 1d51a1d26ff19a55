package fhir

import (
	"encoding/json"
	"fmt"
)

// Normalized is a resource ready for storage: its wire form plus the
// denormalized metadata the timeline indexes.
type Normalized struct {
	Kind Kind
	Raw  json.RawMessage
	Meta RecordMeta
}

// Normalize flattens a built resource into its storable form.
func Normalize(r Resource) (Normalized, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return Normalized{}, fmt.Errorf("encode %s: %w", r.Kind(), err)
	}
	return NormalizeRaw(raw, r.Kind())
}

// NormalizeRaw keeps the given wire bytes as the stored form, so fields
// beyond the typed model survive byte for byte. Bundle entries go through
// here with the bytes they arrived in.
func NormalizeRaw(raw []byte, kind Kind) (Normalized, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Normalized{}, fmt.Errorf("flatten %s: %w", kind, err)
	}
	return Normalized{Kind: kind, Raw: raw, Meta: ExtractRecordMeta(doc, kind)}, nil
}
