package postgres

import (
	"gorm.io/gorm"

	"github.com/potalora/ai-web-records-app-take-2/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(

		// =========================
		// Identity
		// =========================
		&domain.User{},
		&domain.Patient{},

		// =========================
		// Ingestion (uploads + normalized records)
		// =========================
		&domain.UploadedFile{},
		&domain.HealthRecord{},
	)
}
