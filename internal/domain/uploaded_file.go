package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Ingestion job states. A row is created queued by the upload surface,
// claimed by a worker, and finished exactly once. pending_extraction marks
// unstructured documents handed off to the document-extraction pipeline,
// which owns them from there.
const (
	IngestionStatusQueued            = "queued"
	IngestionStatusProcessing        = "processing"
	IngestionStatusCompleted         = "completed"
	IngestionStatusFailed            = "failed"
	IngestionStatusPendingExtraction = "pending_extraction"
)

const FileCategoryUnstructured = "unstructured"

// UploadedFile is both the stored-file record and the ingestion job row.
type UploadedFile struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	User   *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`

	Filename      string  `gorm:"column:filename;not null" json:"filename"`
	MimeType      string  `gorm:"column:mime_type;not null" json:"mime_type"`
	FileSizeBytes int64   `gorm:"column:file_size_bytes" json:"file_size_bytes"`
	FileHash      string  `gorm:"column:file_hash;not null" json:"file_hash"`
	StoragePath   string  `gorm:"column:storage_path;not null" json:"storage_path"`
	FileCategory  *string `gorm:"column:file_category" json:"file_category,omitempty"`

	IngestionStatus   string         `gorm:"column:ingestion_status;not null;default:'queued';index" json:"ingestion_status"`
	IngestionProgress datatypes.JSON `gorm:"column:ingestion_progress;type:jsonb" json:"ingestion_progress"`
	IngestionErrors   datatypes.JSON `gorm:"column:ingestion_errors;type:jsonb" json:"ingestion_errors"`
	RecordCount       int            `gorm:"column:record_count;not null;default:0" json:"record_count"`
	TotalFileCount    int            `gorm:"column:total_file_count;not null;default:1" json:"total_file_count"`

	ProcessingStartedAt   *time.Time `gorm:"column:processing_started_at" json:"processing_started_at,omitempty"`
	ProcessingCompletedAt *time.Time `gorm:"column:processing_completed_at" json:"processing_completed_at,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (UploadedFile) TableName() string { return "uploaded_files" }
