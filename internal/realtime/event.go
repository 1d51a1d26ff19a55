// Package realtime carries ingestion progress from the workers to
// connected clients. Events flow coordinator -> bus -> hub -> SSE.
package realtime

import (
	"time"

	"github.com/google/uuid"
)

// Event kinds. Progress fires once per flushed batch; completed and
// failed fire exactly once per job.
const (
	EventIngestProgress  = "ingest.progress"
	EventIngestCompleted = "ingest.completed"
	EventIngestFailed    = "ingest.failed"
)

// Progress mirrors the ingestion_progress column payload.
type Progress struct {
	TotalEntries    int `json:"total_entries"`
	RecordsInserted int `json:"records_inserted"`
	RecordsSkipped  int `json:"records_skipped"`
}

// Event is one ingestion status update, scoped to the owning user.
type Event struct {
	UserID   uuid.UUID `json:"user_id"`
	UploadID uuid.UUID `json:"upload_id"`
	Kind     string    `json:"kind"`
	Progress Progress  `json:"progress"`
	At       time.Time `json:"at"`
}
