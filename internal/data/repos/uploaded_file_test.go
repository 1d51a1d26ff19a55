package repos

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/potalora/ai-web-records-app-take-2/internal/data/repos/testutil"
	types "github.com/potalora/ai-web-records-app-take-2/internal/domain"
	"github.com/potalora/ai-web-records-app-take-2/internal/pkg/dbctx"
)

func TestUploadedFileRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	repo := NewUploadedFileRepo(db, testutil.Logger(t))
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	user := testutil.SeedUser(t, ctx, tx, "uploadrepo@example.com")
	other := testutil.SeedUser(t, ctx, tx, "uploadrepo-other@example.com")

	older := &types.UploadedFile{
		ID:              uuid.New(),
		UserID:          user.ID,
		Filename:        "first.json",
		MimeType:        "application/json",
		FileSizeBytes:   10,
		FileHash:        "aa",
		StoragePath:     "/tmp/first.json",
		IngestionStatus: types.IngestionStatusQueued,
		TotalFileCount:  1,
		CreatedAt:       time.Now().Add(-2 * time.Hour),
	}
	newer := &types.UploadedFile{
		ID:              uuid.New(),
		UserID:          user.ID,
		Filename:        "second.zip",
		MimeType:        "application/zip",
		FileSizeBytes:   20,
		FileHash:        "bb",
		StoragePath:     "/tmp/second.zip",
		IngestionStatus: types.IngestionStatusQueued,
		TotalFileCount:  1,
		CreatedAt:       time.Now().Add(-1 * time.Hour),
	}
	if _, err := repo.Create(dbc, []*types.UploadedFile{older, newer}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.GetByIDForUser(dbc, older.ID, user.ID)
	if err != nil {
		t.Fatalf("GetByIDForUser: %v", err)
	}
	if got.Filename != "first.json" {
		t.Fatalf("GetByIDForUser: unexpected row: %+v", got)
	}

	// Ownership scoping: another user must not see the row.
	if _, err := repo.GetByIDForUser(dbc, older.ID, other.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("GetByIDForUser (foreign user): expected not found, got %v", err)
	}

	list, err := repo.ListByUser(dbc, user.ID, 10, 0)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(list) != 2 || list[0].ID != newer.ID || list[1].ID != older.ID {
		t.Fatalf("ListByUser: expected newest first, got %+v", list)
	}

	now := time.Now().UTC()
	err = repo.UpdateFields(dbc, older.ID, map[string]interface{}{
		"ingestion_status":        types.IngestionStatusCompleted,
		"record_count":            42,
		"ingestion_progress":      datatypes.JSON([]byte(`{"records_inserted":42}`)),
		"processing_completed_at": now,
	})
	if err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	updated, err := repo.GetByID(dbc, older.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if updated.IngestionStatus != types.IngestionStatusCompleted || updated.RecordCount != 42 {
		t.Fatalf("UpdateFields: not applied: %+v", updated)
	}
	if updated.ProcessingCompletedAt == nil {
		t.Fatalf("UpdateFields: completed_at not set")
	}
}

func TestUploadedFileRepoClaimNextQueued(t *testing.T) {
	db := testutil.PostgresDB(t)
	tx := testutil.Tx(t, db)

	repo := NewUploadedFileRepo(db, testutil.Logger(t))
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	user := testutil.SeedUser(t, ctx, tx, "claimrepo@example.com")

	now := time.Now().UTC()
	stale := &types.UploadedFile{
		ID:                  uuid.New(),
		UserID:              user.ID,
		Filename:            "stale.json",
		MimeType:            "application/json",
		FileSizeBytes:       1,
		FileHash:            "cc",
		StoragePath:         "/tmp/stale.json",
		IngestionStatus:     types.IngestionStatusProcessing,
		TotalFileCount:      1,
		ProcessingStartedAt: testutil.PtrTime(now.Add(-3 * time.Hour)),
		CreatedAt:           now.Add(-3 * time.Hour),
	}
	queued := &types.UploadedFile{
		ID:              uuid.New(),
		UserID:          user.ID,
		Filename:        "queued.json",
		MimeType:        "application/json",
		FileSizeBytes:   1,
		FileHash:        "dd",
		StoragePath:     "/tmp/queued.json",
		IngestionStatus: types.IngestionStatusQueued,
		TotalFileCount:  1,
		CreatedAt:       now.Add(-1 * time.Hour),
	}
	fresh := &types.UploadedFile{
		ID:                  uuid.New(),
		UserID:              user.ID,
		Filename:            "fresh.json",
		MimeType:            "application/json",
		FileSizeBytes:       1,
		FileHash:            "ee",
		StoragePath:         "/tmp/fresh.json",
		IngestionStatus:     types.IngestionStatusProcessing,
		TotalFileCount:      1,
		ProcessingStartedAt: testutil.PtrTime(now.Add(-time.Minute)),
		CreatedAt:           now.Add(-2 * time.Hour),
	}
	if _, err := repo.Create(dbc, []*types.UploadedFile{stale, queued, fresh}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Oldest runnable is the stale processing row, then the queued one. The
	// fresh processing row must never be claimed.
	first, err := repo.ClaimNextQueued(dbc, time.Hour)
	if err != nil {
		t.Fatalf("ClaimNextQueued: %v", err)
	}
	if first == nil || first.ID != stale.ID {
		t.Fatalf("ClaimNextQueued: expected stale row, got %+v", first)
	}

	second, err := repo.ClaimNextQueued(dbc, time.Hour)
	if err != nil {
		t.Fatalf("ClaimNextQueued (second): %v", err)
	}
	if second == nil || second.ID != queued.ID {
		t.Fatalf("ClaimNextQueued (second): expected queued row, got %+v", second)
	}

	third, err := repo.ClaimNextQueued(dbc, time.Hour)
	if err != nil {
		t.Fatalf("ClaimNextQueued (third): %v", err)
	}
	if third != nil {
		t.Fatalf("ClaimNextQueued (third): expected nothing runnable, got %+v", third)
	}
}
