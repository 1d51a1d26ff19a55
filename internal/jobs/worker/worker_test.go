package worker

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/potalora/ai-web-records-app-take-2/internal/config"
	types "github.com/potalora/ai-web-records-app-take-2/internal/domain"
	"github.com/potalora/ai-web-records-app-take-2/internal/ingestion"
	"github.com/potalora/ai-web-records-app-take-2/internal/pkg/dbctx"
	"github.com/potalora/ai-web-records-app-take-2/internal/platform/logger"
)

func mustTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	return log
}

type fakeQueue struct {
	mu       sync.Mutex
	jobs     []*types.UploadedFile
	claimErr error
	updates  []map[string]interface{}
}

func (q *fakeQueue) ClaimNextQueued(_ dbctx.Context, _ time.Duration) (*types.UploadedFile, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.claimErr != nil {
		return nil, q.claimErr
	}
	if len(q.jobs) == 0 {
		return nil, nil
	}
	job := q.jobs[0]
	q.jobs = q.jobs[1:]
	return job, nil
}

func (q *fakeQueue) UpdateFields(_ dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	rec := map[string]interface{}{"id": id}
	for k, v := range updates {
		rec[k] = v
	}
	q.updates = append(q.updates, rec)
	return nil
}

func (q *fakeQueue) push(jobs ...*types.UploadedFile) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, jobs...)
}

func (q *fakeQueue) setClaimErr(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.claimErr = err
}

func (q *fakeQueue) recordedUpdates() []map[string]interface{} {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]map[string]interface{}, len(q.updates))
	copy(out, q.updates)
	return out
}

type fakeRunner struct {
	mu       sync.Mutex
	requests []ingestion.IngestRequest
	panicOn  uuid.UUID
}

func (r *fakeRunner) Ingest(_ context.Context, req ingestion.IngestRequest) (*ingestion.IngestResult, error) {
	r.mu.Lock()
	r.requests = append(r.requests, req)
	r.mu.Unlock()
	if req.JobID == r.panicOn {
		panic("mapper exploded")
	}
	return &ingestion.IngestResult{UploadID: req.JobID, Status: types.IngestionStatusCompleted}, nil
}

func (r *fakeRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.requests)
}

func (r *fakeRunner) recorded() []ingestion.IngestRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ingestion.IngestRequest, len(r.requests))
	copy(out, r.requests)
	return out
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func queuedJob(filename string) *types.UploadedFile {
	return &types.UploadedFile{
		ID:              uuid.New(),
		UserID:          uuid.New(),
		Filename:        filename,
		MimeType:        "application/json",
		StoragePath:     "/data/uploads/" + filename,
		IngestionStatus: types.IngestionStatusQueued,
	}
}

func newTestWorker(t *testing.T, queue *fakeQueue, runner *fakeRunner, concurrency int) *Worker {
	t.Helper()
	cfg := &config.Config{IngestionWorkerConcurrency: concurrency}
	w := NewWorker(queue, runner, cfg, mustTestLogger(t))
	w.pollInterval = 5 * time.Millisecond
	return w
}

func TestWorkerRunsQueuedJobs(t *testing.T) {
	queue := &fakeQueue{}
	runner := &fakeRunner{}
	first := queuedJob("bundle.json")
	second := queuedJob("export.zip")
	queue.push(first, second)

	w := newTestWorker(t, queue, runner, 2)
	w.Start(context.Background())
	defer w.Stop()

	waitFor(t, 2*time.Second, func() bool { return runner.count() == 2 })

	byID := map[uuid.UUID]ingestion.IngestRequest{}
	for _, req := range runner.recorded() {
		byID[req.JobID] = req
	}
	req, ok := byID[first.ID]
	if !ok {
		t.Fatalf("first job never ran: %v", byID)
	}
	if req.UserID != first.UserID {
		t.Fatalf("user id = %s, want %s", req.UserID, first.UserID)
	}
	if req.SourcePath != first.StoragePath {
		t.Fatalf("source path = %q, want %q", req.SourcePath, first.StoragePath)
	}
	if req.OriginalFilename != first.Filename {
		t.Fatalf("filename = %q, want %q", req.OriginalFilename, first.Filename)
	}
	if req.DeclaredMimeType != first.MimeType {
		t.Fatalf("mime = %q, want %q", req.DeclaredMimeType, first.MimeType)
	}
}

func TestWorkerMarksPanickedJobFailed(t *testing.T) {
	queue := &fakeQueue{}
	runner := &fakeRunner{}
	bad := queuedJob("cursed.json")
	good := queuedJob("fine.json")
	runner.panicOn = bad.ID
	queue.push(bad, good)

	w := newTestWorker(t, queue, runner, 1)
	w.Start(context.Background())
	defer w.Stop()

	// The panicked job gets a failed write, and the loop survives to
	// run the next job.
	waitFor(t, 2*time.Second, func() bool { return runner.count() == 2 })
	waitFor(t, 2*time.Second, func() bool { return len(queue.recordedUpdates()) >= 1 })

	updates := queue.recordedUpdates()
	if len(updates) != 1 {
		t.Fatalf("updates = %d, want 1", len(updates))
	}
	update := updates[0]
	if update["id"] != bad.ID {
		t.Fatalf("updated id = %v, want %s", update["id"], bad.ID)
	}
	if update["ingestion_status"] != types.IngestionStatusFailed {
		t.Fatalf("status = %v", update["ingestion_status"])
	}
	errsJSON, ok := update["ingestion_errors"].(datatypes.JSON)
	if !ok || !strings.Contains(string(errsJSON), "internal error") {
		t.Fatalf("ingestion_errors = %v", update["ingestion_errors"])
	}
	if _, ok := update["processing_completed_at"]; !ok {
		t.Fatal("processing_completed_at not set")
	}
}

func TestWorkerRecoversFromClaimError(t *testing.T) {
	queue := &fakeQueue{}
	runner := &fakeRunner{}
	queue.setClaimErr(errors.New("database unavailable"))

	w := newTestWorker(t, queue, runner, 1)
	w.Start(context.Background())
	defer w.Stop()

	time.Sleep(30 * time.Millisecond)
	if runner.count() != 0 {
		t.Fatalf("runner ran %d jobs during outage", runner.count())
	}

	queue.setClaimErr(nil)
	queue.push(queuedJob("late.json"))
	waitFor(t, 2*time.Second, func() bool { return runner.count() == 1 })
}

func TestWorkerStop(t *testing.T) {
	queue := &fakeQueue{}
	runner := &fakeRunner{}

	w := newTestWorker(t, queue, runner, 3)
	w.Start(context.Background())

	done := make(chan struct{})
	go func() {
		w.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
}
