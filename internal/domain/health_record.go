package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Source formats a record can arrive through.
const (
	SourceFormatFHIR        = "fhir_r4"
	SourceFormatEpicEHI     = "epic_ehi"
	SourceFormatAIExtracted = "ai_extracted"
)

// HealthRecord is the canonical normalized row. The Resource column holds
// the full resource document losslessly; every other clinical column is
// derived from it at ingestion time and never recomputed. Rows are immutable
// here; the dedup scanner owns IsDuplicate/MergedIntoID, the extraction
// pipeline owns ConfidenceScore/AIExtracted.
type HealthRecord struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	PatientID uuid.UUID `gorm:"type:uuid;not null;index:idx_health_records_patient_date,priority:1" json:"patient_id"`
	Patient   *Patient  `gorm:"constraint:OnDelete:CASCADE;foreignKey:PatientID;references:ID" json:"patient,omitempty"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`

	RecordType   string         `gorm:"column:record_type;not null;index:idx_health_records_type" json:"record_type"`
	ResourceKind string         `gorm:"column:fhir_resource_type;not null" json:"fhir_resource_type"`
	Resource     datatypes.JSON `gorm:"column:fhir_resource;type:jsonb;not null" json:"fhir_resource"`
	SourceFormat string         `gorm:"column:source_format;not null" json:"source_format"`
	SourceFileID *uuid.UUID     `gorm:"type:uuid;column:source_file_id" json:"source_file_id,omitempty"`

	EffectiveDate    *time.Time     `gorm:"column:effective_date;index:idx_health_records_patient_date,priority:2,sort:desc" json:"effective_date,omitempty"`
	EffectiveDateEnd *time.Time     `gorm:"column:effective_date_end" json:"effective_date_end,omitempty"`
	Status           *string        `gorm:"column:status" json:"status,omitempty"`
	Category         datatypes.JSON `gorm:"column:category;type:jsonb" json:"category,omitempty"`
	CodeSystem       *string        `gorm:"column:code_system;index:idx_health_records_code,priority:1" json:"code_system,omitempty"`
	CodeValue        *string        `gorm:"column:code_value;index:idx_health_records_code,priority:2" json:"code_value,omitempty"`
	CodeDisplay      *string        `gorm:"column:code_display" json:"code_display,omitempty"`
	DisplayText      string         `gorm:"column:display_text;not null" json:"display_text"`

	IsDuplicate     bool       `gorm:"column:is_duplicate;not null;default:false" json:"is_duplicate"`
	MergedIntoID    *uuid.UUID `gorm:"type:uuid;column:merged_into_id" json:"merged_into_id,omitempty"`
	ConfidenceScore *float64   `gorm:"column:confidence_score" json:"confidence_score,omitempty"`
	AIExtracted     bool       `gorm:"column:ai_extracted;not null;default:false" json:"ai_extracted"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (HealthRecord) TableName() string { return "health_records" }
