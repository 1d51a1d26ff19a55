package epic

import (
	"strings"
	"time"

	"github.com/potalora/ai-web-records-app-take-2/internal/fhir"
)

// Row is one TSV record keyed by column header.
type Row map[string]string

// Get returns the trimmed value of a column, "" when absent.
func (r Row) Get(col string) string {
	return strings.TrimSpace(r[col])
}

// First returns the first non-empty value among cols. Epic renames columns
// between export versions, so most mappers probe a few spellings.
func (r Row) First(cols ...string) string {
	for _, col := range cols {
		if v := r.Get(col); v != "" {
			return v
		}
	}
	return ""
}

// epicDateLayouts cover the locale-formatted timestamps EHI exports carry,
// e.g. "3/15/2020 12:00:00 AM".
var epicDateLayouts = []string{
	"1/2/2006 3:04:05 PM",
	"1/2/2006 15:04",
	"1/2/2006",
}

// parseEpicDate reads an export timestamp, falling back to the FHIR shapes
// for tables that carry ISO dates. Unparsable values read as absent.
func parseEpicDate(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	for _, layout := range epicDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	return fhir.ParseDate(value)
}

// naiveDateTime renders a parsed export date the way resources store it,
// seconds precision without a zone.
func naiveDateTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02T15:04:05")
}
