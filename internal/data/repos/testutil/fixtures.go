package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/potalora/ai-web-records-app-take-2/internal/domain"
)

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, email string) *types.User {
	tb.Helper()
	u := &types.User{
		ID:    uuid.New(),
		Email: &email,
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedPatient(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID) *types.Patient {
	tb.Helper()
	p := &types.Patient{
		ID:     uuid.New(),
		UserID: userID,
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed patient: %v", err)
	}
	return p
}

func SeedUploadedFile(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, status string) *types.UploadedFile {
	tb.Helper()
	f := &types.UploadedFile{
		ID:              uuid.New(),
		UserID:          userID,
		Filename:        "export.json",
		MimeType:        "application/json",
		FileSizeBytes:   128,
		FileHash:        "deadbeef",
		StoragePath:     "/tmp/export.json",
		IngestionStatus: status,
		TotalFileCount:  1,
	}
	if err := tx.WithContext(ctx).Create(f).Error; err != nil {
		tb.Fatalf("seed uploaded file: %v", err)
	}
	return f
}

func SeedHealthRecord(tb testing.TB, ctx context.Context, tx *gorm.DB, patientID, userID uuid.UUID, recordType string, effective *time.Time) *types.HealthRecord {
	tb.Helper()
	r := &types.HealthRecord{
		ID:            uuid.New(),
		PatientID:     patientID,
		UserID:        userID,
		RecordType:    recordType,
		ResourceKind:  "Condition",
		Resource:      datatypes.JSON([]byte(`{"resourceType":"Condition"}`)),
		SourceFormat:  types.SourceFormatFHIR,
		EffectiveDate: effective,
		DisplayText:   "seeded record",
	}
	if err := tx.WithContext(ctx).Create(r).Error; err != nil {
		tb.Fatalf("seed health record: %v", err)
	}
	return r
}

func PtrUUID(v uuid.UUID) *uuid.UUID { return &v }

func PtrTime(v time.Time) *time.Time { return &v }
