package fhir

import (
	"strings"
	"time"
)

// dateLayouts are tried in order: RFC3339 with offsets (colon or not), the
// zone-less datetimes EHR exports produce, then the truncated date shapes
// FHIR allows. time.Parse accepts a fractional seconds component even when
// the layout omits one, so each entry also covers its millisecond and
// microsecond variants.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02",
	"2006-01",
	"2006",
}

// ParseDate parses a FHIR date, dateTime, or instant, normalized to UTC.
// Year and year-month precision parse to the start of their span. Anything
// unrecognized yields nil rather than an error; one bad date never sinks
// the record carrying it.
func ParseDate(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			utc := t.UTC()
			return &utc
		}
	}
	return nil
}
