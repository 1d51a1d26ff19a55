package repos

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/potalora/ai-web-records-app-take-2/internal/domain"
	"github.com/potalora/ai-web-records-app-take-2/internal/pkg/dbctx"
	"github.com/potalora/ai-web-records-app-take-2/internal/platform/logger"
)

type UploadedFileRepo interface {
	Create(dbc dbctx.Context, files []*types.UploadedFile) ([]*types.UploadedFile, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.UploadedFile, error)
	GetByIDForUser(dbc dbctx.Context, id, userID uuid.UUID) (*types.UploadedFile, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID, limit, offset int) ([]*types.UploadedFile, error)
	ClaimNextQueued(dbc dbctx.Context, staleProcessing time.Duration) (*types.UploadedFile, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type uploadedFileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUploadedFileRepo(db *gorm.DB, baseLog *logger.Logger) UploadedFileRepo {
	return &uploadedFileRepo{
		db:  db,
		log: baseLog.With("repo", "UploadedFileRepo"),
	}
}

func (r *uploadedFileRepo) Create(dbc dbctx.Context, files []*types.UploadedFile) ([]*types.UploadedFile, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(files) == 0 {
		return []*types.UploadedFile{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&files).Error; err != nil {
		return nil, err
	}
	return files, nil
}

func (r *uploadedFileRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.UploadedFile, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	var file types.UploadedFile
	if err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		First(&file).Error; err != nil {
		return nil, err
	}
	return &file, nil
}

func (r *uploadedFileRepo) GetByIDForUser(dbc dbctx.Context, id, userID uuid.UUID) (*types.UploadedFile, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil || userID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	var file types.UploadedFile
	if err := transaction.WithContext(dbc.Ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&file).Error; err != nil {
		return nil, err
	}
	return &file, nil
}

func (r *uploadedFileRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID, limit, offset int) ([]*types.UploadedFile, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.UploadedFile
	if userID == uuid.Nil {
		return out, nil
	}
	q := transaction.WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ClaimNextQueued moves the oldest runnable upload to processing and returns
// it. Runnable means queued, or processing with a start time older than
// staleProcessing (a worker died mid-job). SKIP LOCKED keeps concurrent
// workers off the same row.
func (r *uploadedFileRepo) ClaimNextQueued(dbc dbctx.Context, staleProcessing time.Duration) (*types.UploadedFile, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now()
	staleCutoff := now.Add(-staleProcessing)
	var claimed *types.UploadedFile
	err := transaction.WithContext(dbc.Ctx).Transaction(func(txx *gorm.DB) error {
		var file types.UploadedFile
		q := txx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where(`
        (
          ingestion_status = ?
          OR (
            ingestion_status = ?
            AND processing_started_at IS NOT NULL
            AND processing_started_at < ?
          )
        )
      `, types.IngestionStatusQueued, types.IngestionStatusProcessing, staleCutoff).
			Order("created_at ASC")
		qErr := q.First(&file).Error
		if errors.Is(qErr, gorm.ErrRecordNotFound) {
			return nil
		}
		if qErr != nil {
			return qErr
		}
		uErr := txx.Model(&types.UploadedFile{}).
			Where("id = ?", file.ID).
			Updates(map[string]interface{}{
				"ingestion_status":      types.IngestionStatusProcessing,
				"processing_started_at": now,
				"updated_at":            now,
			}).Error
		if uErr != nil {
			return uErr
		}
		claimed = &file
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *uploadedFileRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.UploadedFile{}).
		Where("id = ?", id).
		Updates(updates).Error
}
