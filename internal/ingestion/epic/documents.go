package epic

import (
	"strings"

	"github.com/potalora/ai-web-records-app-take-2/internal/fhir"
)

// docInformationMapper maps DOC_INFORMATION rows to DocumentReference
// resources. Only document metadata is exported here; the document body
// lives elsewhere in the archive.
type docInformationMapper struct{}

func (docInformationMapper) MapRow(row Row) fhir.Resource {
	docType := row.Get("DOC_INFO_TYPE_C_NAME")
	if docType == "" {
		return nil
	}

	statusRaw := strings.ToLower(row.Get("DOC_STAT_C_NAME"))
	status := "current"
	if strings.Contains(statusRaw, "delet") || strings.Contains(statusRaw, "error") {
		status = "entered-in-error"
	} else if strings.Contains(statusRaw, "supersed") {
		status = "superseded"
	}

	doc := &fhir.DocumentReference{
		Status: status,
		Type:   &fhir.CodeableConcept{Text: docType},
	}

	if recv := parseEpicDate(row.Get("DOC_RECV_TIME")); recv != nil {
		doc.Date = naiveDateTime(recv)
	}

	if descr := row.Get("DOC_DESCR"); descr != "" {
		doc.Description = descr
	}

	if author := row.Get("RECV_BY_USER_ID_NAME"); author != "" {
		doc.Author = []fhir.Reference{{Display: author}}
	}

	if row.Get("IS_SCANNED_YN") == "Y" {
		doc.Category = []fhir.CodeableConcept{{Text: "scanned"}}
	}

	return doc
}
