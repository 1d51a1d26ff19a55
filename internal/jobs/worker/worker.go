// Package worker polls uploaded_files for queued jobs and runs them
// through the ingestion coordinator. Claims use FOR UPDATE SKIP LOCKED,
// so any number of workers across any number of processes can share the
// table safely.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/potalora/ai-web-records-app-take-2/internal/config"
	types "github.com/potalora/ai-web-records-app-take-2/internal/domain"
	"github.com/potalora/ai-web-records-app-take-2/internal/ingestion"
	"github.com/potalora/ai-web-records-app-take-2/internal/pkg/dbctx"
	"github.com/potalora/ai-web-records-app-take-2/internal/platform/logger"
)

const (
	defaultPollInterval = 1 * time.Second

	// A processing row older than this was left behind by a dead worker
	// and becomes claimable again.
	staleProcessing = 30 * time.Minute
)

// Queue is the slice of the upload repo the worker needs.
type Queue interface {
	ClaimNextQueued(dbc dbctx.Context, staleProcessing time.Duration) (*types.UploadedFile, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

// Runner takes one claimed job to a terminal status.
type Runner interface {
	Ingest(ctx context.Context, req ingestion.IngestRequest) (*ingestion.IngestResult, error)
}

type Worker struct {
	queue        Queue
	runner       Runner
	log          *logger.Logger
	concurrency  int
	pollInterval time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewWorker(queue Queue, runner Runner, cfg *config.Config, baseLog *logger.Logger) *Worker {
	concurrency := cfg.IngestionWorkerConcurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &Worker{
		queue:        queue,
		runner:       runner,
		log:          baseLog.With("component", "IngestWorker"),
		concurrency:  concurrency,
		pollInterval: defaultPollInterval,
	}
}

// Start launches the worker pool and returns immediately.
func (w *Worker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	for i := 0; i < w.concurrency; i++ {
		workerID := i + 1
		w.wg.Add(1)
		go w.runLoop(ctx, workerID)
	}
	w.log.Info("ingestion worker pool started", "concurrency", w.concurrency)
}

// Stop cancels the pool and blocks until every loop has returned. Jobs
// already in flight finish first; a job interrupted by a hard kill is
// reclaimed through the stale-processing window instead.
func (w *Worker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
	w.log.Info("ingestion worker pool stopped")
}

func (w *Worker) runLoop(ctx context.Context, workerID int) {
	defer w.wg.Done()
	log := w.log.With("worker_id", workerID)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("worker loop stopped")
			return
		case <-ticker.C:
			job, err := w.queue.ClaimNextQueued(dbctx.Context{Ctx: ctx}, staleProcessing)
			if err != nil {
				log.Warn("claim failed", "error", err)
				continue
			}
			if job == nil {
				continue
			}
			// Cancellation only stops the loop from claiming more; the
			// claimed job runs to its terminal status.
			w.process(context.WithoutCancel(ctx), log, job)
		}
	}
}

func (w *Worker) process(ctx context.Context, log *logger.Logger, job *types.UploadedFile) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("ingestion panic", "upload_id", job.ID, "panic", r)
			w.markFailed(ctx, job.ID, fmt.Sprintf("internal error: %v", r))
		}
	}()

	log.Info("job claimed", "upload_id", job.ID, "filename", job.Filename)
	if _, err := w.runner.Ingest(ctx, ingestion.IngestRequest{
		JobID:            job.ID,
		UserID:           job.UserID,
		SourcePath:       job.StoragePath,
		OriginalFilename: job.Filename,
		DeclaredMimeType: job.MimeType,
	}); err != nil {
		// The coordinator already recorded the failure on the row.
		log.Error("job failed", "upload_id", job.ID, "error", err)
	}
}

// markFailed is the safety net for panics, which bypass the
// coordinator's own failure handling.
func (w *Worker) markFailed(ctx context.Context, id uuid.UUID, msg string) {
	errs, _ := json.Marshal([]ingestion.JobError{{Error: msg}})
	err := w.queue.UpdateFields(dbctx.Context{Ctx: ctx}, id, map[string]interface{}{
		"ingestion_status":        types.IngestionStatusFailed,
		"ingestion_errors":        datatypes.JSON(errs),
		"processing_completed_at": time.Now(),
	})
	if err != nil {
		w.log.Error("failed-state write failed", "upload_id", id, "error", err)
	}
}
