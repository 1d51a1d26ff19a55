package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/potalora/ai-web-records-app-take-2/internal/data/repos"
	"github.com/potalora/ai-web-records-app-take-2/internal/http/response"
	"github.com/potalora/ai-web-records-app-take-2/internal/pkg/ctxutil"
	"github.com/potalora/ai-web-records-app-take-2/internal/pkg/dbctx"
	apperrors "github.com/potalora/ai-web-records-app-take-2/internal/pkg/errors"
	"github.com/potalora/ai-web-records-app-take-2/internal/platform/logger"
)

type RecordHandler struct {
	log      *logger.Logger
	patients repos.PatientRepo
	records  repos.HealthRecordRepo
}

func NewRecordHandler(patients repos.PatientRepo, records repos.HealthRecordRepo, baseLog *logger.Logger) *RecordHandler {
	return &RecordHandler{
		log:      baseLog.With("handler", "RecordHandler"),
		patients: patients,
		records:  records,
	}
}

// GET /api/records
func (h *RecordHandler) ListRecords(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	filter, err := recordFilterFromQuery(c)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_filter", err)
		return
	}

	dbc := dbctx.Context{Ctx: c.Request.Context()}
	patient, err := h.patients.GetByUserID(dbc, rd.UserID)
	if err != nil {
		h.log.Error("load patient failed", "error", err, "user_id", rd.UserID.String())
		response.RespondError(c, http.StatusInternalServerError, "load_patient_failed", err)
		return
	}
	if patient == nil {
		// Nothing ingested yet.
		response.RespondOK(c, gin.H{
			"records": []any{},
			"total":   0,
			"limit":   filter.Limit,
			"offset":  filter.Offset,
		})
		return
	}

	rows, err := h.records.ListByPatient(dbc, patient.ID, filter)
	if err != nil {
		h.log.Error("list records failed", "error", err, "patient_id", patient.ID.String())
		response.RespondError(c, http.StatusInternalServerError, "list_records_failed", err)
		return
	}
	total, err := h.records.CountByPatient(dbc, patient.ID, filter)
	if err != nil {
		h.log.Error("count records failed", "error", err, "patient_id", patient.ID.String())
		response.RespondError(c, http.StatusInternalServerError, "count_records_failed", err)
		return
	}
	response.RespondOK(c, gin.H{
		"records": rows,
		"total":   total,
		"limit":   filter.Limit,
		"offset":  filter.Offset,
	})
}

// GET /api/records/:id
func (h *RecordHandler) GetRecord(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_record_id", err)
		return
	}
	record, err := h.records.GetByIDForUser(dbctx.Context{Ctx: c.Request.Context()}, id, rd.UserID)
	if err != nil {
		err = apperrors.ClassifyStorage(err)
		if errors.Is(err, apperrors.ErrNotFound) {
			response.RespondError(c, http.StatusNotFound, "record_not_found", errors.New("record not found"))
			return
		}
		h.log.Error("load record failed", "error", err, "record_id", id.String())
		response.RespondError(c, http.StatusInternalServerError, "load_record_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"record": record})
}

func recordFilterFromQuery(c *gin.Context) (repos.RecordFilter, error) {
	filter := repos.RecordFilter{
		RecordType: strings.TrimSpace(c.Query("record_type")),
	}
	var err error
	filter.Limit, filter.Offset, err = pageFromQuery(c)
	if err != nil {
		return filter, err
	}
	if raw := strings.TrimSpace(c.Query("from")); raw != "" {
		ts, parseErr := parseQueryTime(raw)
		if parseErr != nil {
			return filter, parseErr
		}
		filter.From = &ts
	}
	if raw := strings.TrimSpace(c.Query("to")); raw != "" {
		ts, parseErr := parseQueryTime(raw)
		if parseErr != nil {
			return filter, parseErr
		}
		filter.To = &ts
	}
	return filter, nil
}

func parseQueryTime(raw string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q (want RFC3339 or YYYY-MM-DD)", raw)
}
