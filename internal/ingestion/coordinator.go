package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"

	"github.com/potalora/ai-web-records-app-take-2/internal/config"
	"github.com/potalora/ai-web-records-app-take-2/internal/data/repos"
	types "github.com/potalora/ai-web-records-app-take-2/internal/domain"
	"github.com/potalora/ai-web-records-app-take-2/internal/ingestion/bundle"
	"github.com/potalora/ai-web-records-app-take-2/internal/ingestion/epic"
	"github.com/potalora/ai-web-records-app-take-2/internal/observability"
	"github.com/potalora/ai-web-records-app-take-2/internal/pkg/dbctx"
	apperrors "github.com/potalora/ai-web-records-app-take-2/internal/pkg/errors"
	"github.com/potalora/ai-web-records-app-take-2/internal/platform/logger"
	"github.com/potalora/ai-web-records-app-take-2/internal/realtime"
)

// Publisher pushes job lifecycle events toward connected clients. A nil
// Publisher disables events without disabling ingestion.
type Publisher interface {
	Publish(ctx context.Context, event realtime.Event) error
}

// JobError is one error surfaced by a job, in the shape stored in the
// ingestion_errors column. Exactly one of Row or EntryIndex is set for
// row- and entry-scoped errors; file-scoped errors carry only File.
type JobError struct {
	File       string `json:"file,omitempty"`
	Row        *int   `json:"row,omitempty"`
	EntryIndex *int   `json:"entry_index,omitempty"`
	Error      string `json:"error"`
}

// UnstructuredHandoff reports a document parked for the extraction
// pipeline rather than parsed inline.
type UnstructuredHandoff struct {
	UploadID uuid.UUID `json:"upload_id"`
	Filename string    `json:"filename"`
	Status   string    `json:"status"`
}

// jobStats aggregates parser results across everything one job touches.
// A plain file ingests once; an archive merges every member it parses.
type jobStats struct {
	TotalEntries    int
	RecordsInserted int
	RecordsSkipped  int
	Errors          []JobError
	Unstructured    []UnstructuredHandoff
}

func (s *jobStats) merge(other *jobStats) {
	s.TotalEntries += other.TotalEntries
	s.RecordsInserted += other.RecordsInserted
	s.RecordsSkipped += other.RecordsSkipped
	s.Errors = append(s.Errors, other.Errors...)
}

// IngestRequest names one job. JobID points at an existing
// uploaded_files row (the worker path); a Nil JobID makes the
// coordinator create the row itself.
type IngestRequest struct {
	JobID            uuid.UUID
	UserID           uuid.UUID
	SourcePath       string
	OriginalFilename string
	DeclaredMimeType string
}

// IngestResult summarizes a finished job for the caller.
type IngestResult struct {
	UploadID        uuid.UUID             `json:"upload_id"`
	Status          string                `json:"status"`
	SourceFormat    string                `json:"source_format"`
	TotalEntries    int                   `json:"total_entries"`
	RecordsInserted int                   `json:"records_inserted"`
	RecordsSkipped  int                   `json:"records_skipped"`
	Errors          []JobError            `json:"errors"`
	Unstructured    []UnstructuredHandoff `json:"unstructured_uploads"`
}

// Coordinator drives one upload from claimed row to terminal status. It
// detects the source format, resolves the patient, runs the matching
// parser with the bulk inserter as its sink, and persists progress,
// errors and the final state on the uploaded_files row.
type Coordinator struct {
	uploads   repos.UploadedFileRepo
	patients  repos.PatientRepo
	inserter  *BulkInserter
	publisher Publisher
	metrics   *observability.Metrics
	tracer    trace.Tracer

	uploadDir      string
	tempExtractDir string
	batchSize      int

	log     *logger.Logger
	baseLog *logger.Logger
}

func NewCoordinator(
	uploads repos.UploadedFileRepo,
	patients repos.PatientRepo,
	inserter *BulkInserter,
	publisher Publisher,
	metrics *observability.Metrics,
	cfg *config.Config,
	baseLog *logger.Logger,
) *Coordinator {
	return &Coordinator{
		uploads:        uploads,
		patients:       patients,
		inserter:       inserter,
		publisher:      publisher,
		metrics:        metrics,
		tracer:         otel.Tracer("ingestion"),
		uploadDir:      cfg.UploadDir,
		tempExtractDir: cfg.TempExtractDir,
		batchSize:      cfg.IngestionBatchSize,
		log:            baseLog.With("service", "IngestionCoordinator"),
		baseLog:        baseLog,
	}
}

// Ingest runs one job to a terminal status. The returned error is the
// cause already recorded on the failed row, so the worker only has to
// log it.
func (c *Coordinator) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	ctx, span := c.tracer.Start(ctx, "ingestion.job")
	defer span.End()

	start := time.Now()
	format := DetectSourceFormat(req.SourcePath)
	span.SetAttributes(attribute.String("ingestion.source_format", format))

	job, err := c.resolveJob(ctx, req)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("ingestion.upload_id", job.ID.String()))

	c.log.Info("ingestion started",
		"upload_id", job.ID,
		"user_id", job.UserID,
		"source_format", format,
		"filename", job.Filename)

	stats, runErr := c.dispatch(ctx, job, format, req.SourcePath)
	if runErr != nil {
		span.RecordError(runErr)
		return nil, c.failJob(ctx, job, runErr, time.Since(start))
	}
	return c.completeJob(ctx, job, format, stats, time.Since(start))
}

// resolveJob loads or creates the uploaded_files row and ensures it is
// marked processing. ClaimNextQueued already stamps claimed rows, so a
// loaded row is only touched when something is missing.
func (c *Coordinator) resolveJob(ctx context.Context, req IngestRequest) (*types.UploadedFile, error) {
	dbc := dbctx.Context{Ctx: ctx}
	now := time.Now()

	if req.JobID != uuid.Nil {
		job, err := c.uploads.GetByID(dbc, req.JobID)
		if err != nil {
			return nil, fmt.Errorf("load job %s: %w", req.JobID, apperrors.ClassifyStorage(err))
		}
		updates := map[string]interface{}{}
		if job.IngestionStatus != types.IngestionStatusProcessing {
			updates["ingestion_status"] = types.IngestionStatusProcessing
		}
		if job.ProcessingStartedAt == nil {
			updates["processing_started_at"] = now
		}
		if len(updates) > 0 {
			if err := c.uploads.UpdateFields(dbc, job.ID, updates); err != nil {
				return nil, fmt.Errorf("mark job processing: %w", apperrors.ClassifyStorage(err))
			}
		}
		return job, nil
	}

	hash := "directory"
	var size int64
	info, err := os.Stat(req.SourcePath)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		size = info.Size()
		if hash, err = HashFile(req.SourcePath); err != nil {
			return nil, err
		}
	}

	filename := req.OriginalFilename
	if filename == "" {
		filename = filepath.Base(req.SourcePath)
	}
	mime := req.DeclaredMimeType
	if mime == "" {
		mime = "application/octet-stream"
	}
	job := &types.UploadedFile{
		ID:                  uuid.New(),
		UserID:              req.UserID,
		Filename:            filename,
		MimeType:            mime,
		FileSizeBytes:       size,
		FileHash:            hash,
		StoragePath:         req.SourcePath,
		IngestionStatus:     types.IngestionStatusProcessing,
		ProcessingStartedAt: &now,
	}
	if _, err := c.uploads.Create(dbc, []*types.UploadedFile{job}); err != nil {
		return nil, fmt.Errorf("create job row: %w", apperrors.ClassifyStorage(err))
	}
	return job, nil
}

func (c *Coordinator) dispatch(ctx context.Context, job *types.UploadedFile, format, path string) (*jobStats, error) {
	switch format {
	case FormatFHIR:
		return c.ingestBundle(ctx, job, path)
	case FormatEpicExport:
		return c.ingestEpicExport(ctx, job, path)
	case FormatEpicSingle:
		return c.ingestEpicTable(ctx, job, path)
	case FormatZip:
		return c.ingestArchive(ctx, job, path)
	default:
		return nil, fmt.Errorf("unsupported file type: %s", filepath.Ext(path))
	}
}

func (c *Coordinator) ingestBundle(ctx context.Context, job *types.UploadedFile, path string) (*jobStats, error) {
	res, err := c.parseBundleFile(ctx, job, path, c.progressFunc(ctx, job))
	if err != nil {
		return nil, err
	}
	return statsFromBundle(res), nil
}

// parseBundleFile probes the bundle for a Patient resource before
// parsing so every inserted row lands on the right patient.
func (c *Coordinator) parseBundleFile(ctx context.Context, job *types.UploadedFile, path string, progress bundle.ProgressFunc) (*bundle.Result, error) {
	patient, err := c.resolvePatientFromBundle(ctx, job.UserID, path)
	if err != nil {
		return nil, err
	}
	sink := c.inserter.Bind(job.UserID, patient.ID, job.ID, FormatFHIR)
	return bundle.NewParser(sink, c.batchSize, c.baseLog).ParseFile(ctx, path, progress)
}

func (c *Coordinator) resolvePatientFromBundle(ctx context.Context, userID uuid.UUID, path string) (*types.Patient, error) {
	identity, err := bundle.FindPatient(path)
	if err != nil {
		return nil, err
	}
	var fhirID, gender *string
	if identity != nil {
		if identity.ID != "" {
			fhirID = &identity.ID
		}
		if identity.Gender != "" {
			gender = &identity.Gender
		}
	}
	patient, err := c.patients.GetOrCreate(dbctx.Context{Ctx: ctx}, userID, fhirID, gender)
	if err != nil {
		return nil, fmt.Errorf("resolve patient: %w", apperrors.ClassifyStorage(err))
	}
	return patient, nil
}

func (c *Coordinator) ingestEpicExport(ctx context.Context, job *types.UploadedFile, dir string) (*jobStats, error) {
	parser, err := c.epicParser(ctx, job)
	if err != nil {
		return nil, err
	}
	res, err := parser.ParseExport(ctx, dir, c.progressFunc(ctx, job))
	if err != nil {
		return nil, err
	}
	c.reportEpicQuality(res)
	return statsFromEpic(res), nil
}

func (c *Coordinator) ingestEpicTable(ctx context.Context, job *types.UploadedFile, path string) (*jobStats, error) {
	parser, err := c.epicParser(ctx, job)
	if err != nil {
		return nil, err
	}
	res, err := parser.ParseTable(ctx, path, c.progressFunc(ctx, job))
	if err != nil {
		return nil, err
	}
	c.reportEpicQuality(res)
	return statsFromEpic(res), nil
}

// epicParser builds a parser bound to the user's patient. Epic exports
// carry no usable patient identity, so the patient is resolved from the
// user alone.
func (c *Coordinator) epicParser(ctx context.Context, job *types.UploadedFile) (*epic.Parser, error) {
	patient, err := c.patients.GetOrCreate(dbctx.Context{Ctx: ctx}, job.UserID, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("resolve patient: %w", apperrors.ClassifyStorage(err))
	}
	sink := c.inserter.Bind(job.UserID, patient.ID, job.ID, FormatEpicExport)
	return epic.NewParser(sink, c.batchSize, c.baseLog), nil
}

func (c *Coordinator) reportEpicQuality(res *epic.Result) {
	for _, table := range res.FilesSkipped {
		c.metrics.IncDataQuality("epic", "unmapped_table", table)
	}
	for _, detail := range res.FilesDetail {
		if detail.RowsSkipped > 0 {
			c.metrics.AddDataQuality("epic", "gated_rows", detail.TableName, detail.RowsSkipped)
		}
	}
}

// progressFunc persists running progress and emits an event after each
// flushed batch. Progress is advisory, so write and publish failures
// are logged and the job keeps going.
func (c *Coordinator) progressFunc(ctx context.Context, job *types.UploadedFile) func(done, total, inserted int) {
	return func(_, total, inserted int) {
		prog := realtime.Progress{TotalEntries: total, RecordsInserted: inserted}
		raw, _ := json.Marshal(prog)
		err := c.uploads.UpdateFields(dbctx.Context{Ctx: ctx}, job.ID, map[string]interface{}{
			"ingestion_progress": datatypes.JSON(raw),
		})
		if err != nil {
			c.log.Warn("progress write failed", "upload_id", job.ID, "error", err)
		}
		c.publish(ctx, job, realtime.EventIngestProgress, prog)
	}
}

func (c *Coordinator) publish(ctx context.Context, job *types.UploadedFile, kind string, prog realtime.Progress) {
	if c.publisher == nil {
		return
	}
	event := realtime.Event{
		UserID:   job.UserID,
		UploadID: job.ID,
		Kind:     kind,
		Progress: prog,
		At:       time.Now().UTC(),
	}
	if err := c.publisher.Publish(ctx, event); err != nil {
		c.log.Warn("event publish failed", "upload_id", job.ID, "kind", kind, "error", err)
	}
}

// completeJob finalizes a successful run. The final writes use a
// detached context so a shutdown right at the end still lands the
// terminal status instead of stranding the row in processing.
func (c *Coordinator) completeJob(ctx context.Context, job *types.UploadedFile, format string, stats *jobStats, dur time.Duration) (*IngestResult, error) {
	writeCtx := context.WithoutCancel(ctx)
	now := time.Now()

	prog := realtime.Progress{
		TotalEntries:    stats.TotalEntries,
		RecordsInserted: stats.RecordsInserted,
		RecordsSkipped:  stats.RecordsSkipped,
	}
	errsJSON, _ := json.Marshal(stats.Errors)
	progJSON, _ := json.Marshal(prog)

	updates := map[string]interface{}{
		"ingestion_status":        types.IngestionStatusCompleted,
		"record_count":            stats.RecordsInserted,
		"ingestion_errors":        datatypes.JSON(errsJSON),
		"ingestion_progress":      datatypes.JSON(progJSON),
		"processing_completed_at": now,
	}
	if err := c.uploads.UpdateFields(dbctx.Context{Ctx: writeCtx}, job.ID, updates); err != nil {
		err = fmt.Errorf("finalize job: %w", apperrors.ClassifyStorage(err))
		return nil, c.failJob(ctx, job, err, dur)
	}

	c.metrics.ObserveJob(types.IngestionStatusCompleted, dur)
	c.metrics.AddRecordsSkipped(stats.RecordsSkipped)
	for _, jobErr := range stats.Errors {
		c.metrics.IncIngestError(errorScope(jobErr))
	}
	c.publish(writeCtx, job, realtime.EventIngestCompleted, prog)

	c.log.Info("ingestion completed",
		"upload_id", job.ID,
		"source_format", format,
		"total_entries", stats.TotalEntries,
		"records_inserted", stats.RecordsInserted,
		"records_skipped", stats.RecordsSkipped,
		"errors", len(stats.Errors),
		"unstructured", len(stats.Unstructured),
		"duration", dur)

	unstructured := stats.Unstructured
	if unstructured == nil {
		unstructured = []UnstructuredHandoff{}
	}
	return &IngestResult{
		UploadID:        job.ID,
		Status:          types.IngestionStatusCompleted,
		SourceFormat:    format,
		TotalEntries:    stats.TotalEntries,
		RecordsInserted: stats.RecordsInserted,
		RecordsSkipped:  stats.RecordsSkipped,
		Errors:          stats.Errors,
		Unstructured:    unstructured,
	}, nil
}

// failJob records the terminal failure and hands the cause back. The
// error list on the row is replaced wholesale; partial per-row errors
// from before the failure describe a run that no longer counts.
func (c *Coordinator) failJob(ctx context.Context, job *types.UploadedFile, runErr error, dur time.Duration) error {
	c.log.Error("ingestion failed", "upload_id", job.ID, "error", runErr)

	writeCtx := context.WithoutCancel(ctx)
	now := time.Now()
	errsJSON, _ := json.Marshal([]JobError{{Error: runErr.Error()}})
	updates := map[string]interface{}{
		"ingestion_status":        types.IngestionStatusFailed,
		"ingestion_errors":        datatypes.JSON(errsJSON),
		"processing_completed_at": now,
	}
	if err := c.uploads.UpdateFields(dbctx.Context{Ctx: writeCtx}, job.ID, updates); err != nil {
		c.log.Error("failed-state write failed", "upload_id", job.ID, "error", err)
	}

	c.metrics.ObserveJob(types.IngestionStatusFailed, dur)
	c.metrics.IncIngestError("job")
	c.publish(writeCtx, job, realtime.EventIngestFailed, realtime.Progress{})
	return runErr
}

func errorScope(jobErr JobError) string {
	switch {
	case jobErr.Row != nil:
		return "row"
	case jobErr.EntryIndex != nil:
		return "entry"
	case jobErr.File != "":
		return "file"
	default:
		return "job"
	}
}

func statsFromBundle(res *bundle.Result) *jobStats {
	stats := &jobStats{
		TotalEntries:    res.TotalEntries,
		RecordsInserted: res.RecordsInserted,
		RecordsSkipped:  res.RecordsSkipped,
		Errors:          []JobError{},
	}
	for _, entryErr := range res.Errors {
		index := entryErr.EntryIndex
		stats.Errors = append(stats.Errors, JobError{EntryIndex: &index, Error: entryErr.Error})
	}
	return stats
}

func statsFromEpic(res *epic.Result) *jobStats {
	stats := &jobStats{
		TotalEntries:    res.TotalFiles,
		RecordsInserted: res.RecordsInserted,
		RecordsSkipped:  res.RecordsSkipped,
		Errors:          []JobError{},
	}
	for _, rowErr := range res.Errors {
		stats.Errors = append(stats.Errors, JobError{File: rowErr.File, Row: rowErr.Row, Error: rowErr.Error})
	}
	return stats
}
