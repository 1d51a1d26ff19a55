package repos

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/potalora/ai-web-records-app-take-2/internal/domain"
	"github.com/potalora/ai-web-records-app-take-2/internal/pkg/dbctx"
	"github.com/potalora/ai-web-records-app-take-2/internal/platform/logger"
)

type PatientRepo interface {
	Create(dbc dbctx.Context, patients []*types.Patient) ([]*types.Patient, error)
	GetByUserID(dbc dbctx.Context, userID uuid.UUID) (*types.Patient, error)
	// GetOrCreate returns the user's default patient, creating one when none
	// exists. fhirID and gender seed a newly created row and backfill an
	// existing row whose identity fields are still empty; they never
	// overwrite values already on file.
	GetOrCreate(dbc dbctx.Context, userID uuid.UUID, fhirID, gender *string) (*types.Patient, error)
}

type patientRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPatientRepo(db *gorm.DB, baseLog *logger.Logger) PatientRepo {
	repoLog := baseLog.With("repo", "PatientRepo")
	return &patientRepo{db: db, log: repoLog}
}

func (r *patientRepo) Create(dbc dbctx.Context, patients []*types.Patient) ([]*types.Patient, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if len(patients) == 0 {
		return []*types.Patient{}, nil
	}

	if err := transaction.WithContext(dbc.Ctx).Create(&patients).Error; err != nil {
		return nil, err
	}
	return patients, nil
}

func (r *patientRepo) GetByUserID(dbc dbctx.Context, userID uuid.UUID) (*types.Patient, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if userID == uuid.Nil {
		return nil, nil
	}

	var patient types.Patient
	err := transaction.WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Limit(1).
		Find(&patient).Error
	if err != nil {
		return nil, err
	}
	if patient.ID == uuid.Nil {
		return nil, nil
	}
	return &patient, nil
}

func (r *patientRepo) GetOrCreate(dbc dbctx.Context, userID uuid.UUID, fhirID, gender *string) (*types.Patient, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	existing, err := r.GetByUserID(dbc, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		updates := map[string]interface{}{}
		if existing.FHIRID == nil && fhirID != nil {
			updates["fhir_id"] = *fhirID
			existing.FHIRID = fhirID
		}
		if existing.Gender == nil && gender != nil {
			updates["gender"] = *gender
			existing.Gender = gender
		}
		if len(updates) > 0 {
			if err := transaction.WithContext(dbc.Ctx).
				Model(&types.Patient{}).
				Where("id = ?", existing.ID).
				Updates(updates).Error; err != nil {
				return nil, err
			}
		}
		return existing, nil
	}

	patient := &types.Patient{
		ID:     uuid.New(),
		UserID: userID,
		FHIRID: fhirID,
		Gender: gender,
	}
	if err := transaction.WithContext(dbc.Ctx).Create(patient).Error; err != nil {
		return nil, err
	}
	return patient, nil
}
