package repos

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/potalora/ai-web-records-app-take-2/internal/domain"
	"github.com/potalora/ai-web-records-app-take-2/internal/pkg/dbctx"
	"github.com/potalora/ai-web-records-app-take-2/internal/platform/logger"
)

// RecordFilter narrows a timeline listing. Zero values mean "no constraint".
type RecordFilter struct {
	RecordType string
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}

type HealthRecordRepo interface {
	Create(dbc dbctx.Context, records []*types.HealthRecord) ([]*types.HealthRecord, error)
	GetByIDForUser(dbc dbctx.Context, id, userID uuid.UUID) (*types.HealthRecord, error)
	ListByPatient(dbc dbctx.Context, patientID uuid.UUID, filter RecordFilter) ([]*types.HealthRecord, error)
	CountByPatient(dbc dbctx.Context, patientID uuid.UUID, filter RecordFilter) (int64, error)
}

type healthRecordRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewHealthRecordRepo(db *gorm.DB, baseLog *logger.Logger) HealthRecordRepo {
	return &healthRecordRepo{
		db:  db,
		log: baseLog.With("repo", "HealthRecordRepo"),
	}
}

func (r *healthRecordRepo) Create(dbc dbctx.Context, records []*types.HealthRecord) ([]*types.HealthRecord, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(records) == 0 {
		return []*types.HealthRecord{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *healthRecordRepo) GetByIDForUser(dbc dbctx.Context, id, userID uuid.UUID) (*types.HealthRecord, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil || userID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	var record types.HealthRecord
	if err := transaction.WithContext(dbc.Ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *healthRecordRepo) ListByPatient(dbc dbctx.Context, patientID uuid.UUID, filter RecordFilter) ([]*types.HealthRecord, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.HealthRecord
	if patientID == uuid.Nil {
		return out, nil
	}
	q := applyRecordFilter(transaction.WithContext(dbc.Ctx), patientID, filter).
		Order("effective_date DESC NULLS LAST").
		Order("created_at DESC")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *healthRecordRepo) CountByPatient(dbc dbctx.Context, patientID uuid.UUID, filter RecordFilter) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if patientID == uuid.Nil {
		return 0, nil
	}
	var count int64
	if err := applyRecordFilter(transaction.WithContext(dbc.Ctx), patientID, filter).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func applyRecordFilter(tx *gorm.DB, patientID uuid.UUID, filter RecordFilter) *gorm.DB {
	q := tx.Model(&types.HealthRecord{}).
		Where("patient_id = ?", patientID)
	if filter.RecordType != "" {
		q = q.Where("record_type = ?", filter.RecordType)
	}
	if filter.From != nil {
		q = q.Where("effective_date >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("effective_date <= ?", *filter.To)
	}
	return q
}
