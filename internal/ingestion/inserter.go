// Package ingestion turns uploaded clinical files into health_records
// rows. The coordinator owns the job lifecycle, the format parsers live
// in the epic and bundle subpackages, and the bulk inserter is the sink
// they both flush into.
package ingestion

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/potalora/ai-web-records-app-take-2/internal/data/repos"
	types "github.com/potalora/ai-web-records-app-take-2/internal/domain"
	"github.com/potalora/ai-web-records-app-take-2/internal/fhir"
	"github.com/potalora/ai-web-records-app-take-2/internal/observability"
	"github.com/potalora/ai-web-records-app-take-2/internal/pkg/dbctx"
	apperrors "github.com/potalora/ai-web-records-app-take-2/internal/pkg/errors"
	"github.com/potalora/ai-web-records-app-take-2/internal/platform/logger"
)

// BulkInserter writes normalized resources as health_records rows. Each
// batch is one transaction, so committed batches stay durable when a
// later batch fails mid-job.
type BulkInserter struct {
	db      *gorm.DB
	records repos.HealthRecordRepo
	metrics *observability.Metrics
	log     *logger.Logger
}

func NewBulkInserter(db *gorm.DB, records repos.HealthRecordRepo, metrics *observability.Metrics, baseLog *logger.Logger) *BulkInserter {
	return &BulkInserter{
		db:      db,
		records: records,
		metrics: metrics,
		log:     baseLog.With("service", "BulkInserter"),
	}
}

// Bind scopes the inserter to one ingestion job. The returned sink
// satisfies the epic and bundle parser Sink interfaces.
func (bi *BulkInserter) Bind(userID, patientID, sourceFileID uuid.UUID, sourceFormat string) *JobSink {
	return &JobSink{
		inserter:     bi,
		userID:       userID,
		patientID:    patientID,
		sourceFileID: sourceFileID,
		sourceFormat: sourceFormat,
	}
}

// JobSink stamps every inserted row with one job's ownership and
// provenance columns.
type JobSink struct {
	inserter     *BulkInserter
	userID       uuid.UUID
	patientID    uuid.UUID
	sourceFileID uuid.UUID
	sourceFormat string
}

func (s *JobSink) InsertBatch(ctx context.Context, batch []fhir.Normalized) (int, error) {
	if len(batch) == 0 {
		return 0, nil
	}
	rows := make([]*types.HealthRecord, 0, len(batch))
	for i := range batch {
		rows = append(rows, s.buildRow(&batch[i]))
	}
	return s.inserter.insert(ctx, rows)
}

func (s *JobSink) buildRow(n *fhir.Normalized) *types.HealthRecord {
	row := &types.HealthRecord{
		ID:           uuid.New(),
		PatientID:    s.patientID,
		UserID:       s.userID,
		RecordType:   n.Meta.RecordType,
		ResourceKind: string(n.Kind),
		Resource:     datatypes.JSON(n.Raw),
		SourceFormat: s.sourceFormat,

		EffectiveDate:    n.Meta.EffectiveDate,
		EffectiveDateEnd: n.Meta.EffectiveDateEnd,
		Status:           n.Meta.Status,
		CodeSystem:       n.Meta.CodeSystem,
		CodeValue:        n.Meta.CodeValue,
		CodeDisplay:      n.Meta.CodeDisplay,
		DisplayText:      n.Meta.DisplayText,
	}
	if s.sourceFileID != uuid.Nil {
		id := s.sourceFileID
		row.SourceFileID = &id
	}
	if len(n.Meta.Categories) > 0 {
		cats, _ := json.Marshal(n.Meta.Categories)
		row.Category = datatypes.JSON(cats)
	}
	return row
}

func (bi *BulkInserter) insert(ctx context.Context, rows []*types.HealthRecord) (int, error) {
	err := bi.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, txErr := bi.records.Create(dbctx.Context{Ctx: ctx, Tx: tx}, rows)
		return txErr
	})
	if err != nil {
		return 0, apperrors.ClassifyStorage(err)
	}
	bi.metrics.AddRecordsInserted(len(rows))
	bi.log.Debug("batch inserted", "rows", len(rows))
	return len(rows), nil
}
