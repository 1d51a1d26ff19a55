package ingestion

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/potalora/ai-web-records-app-take-2/internal/config"
	"github.com/potalora/ai-web-records-app-take-2/internal/data/repos"
	"github.com/potalora/ai-web-records-app-take-2/internal/data/repos/testutil"
	types "github.com/potalora/ai-web-records-app-take-2/internal/domain"
	"github.com/potalora/ai-web-records-app-take-2/internal/pkg/dbctx"
	"github.com/potalora/ai-web-records-app-take-2/internal/realtime"
)

// captureBus records published events so tests can assert on the job's
// event stream without Redis.
type captureBus struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (b *captureBus) Publish(_ context.Context, event realtime.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
	return nil
}

func (b *captureBus) kinds() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	kinds := make([]string, len(b.events))
	for i, event := range b.events {
		kinds[i] = event.Kind
	}
	return kinds
}

type coordinatorFixture struct {
	db       *gorm.DB
	uploads  repos.UploadedFileRepo
	patients repos.PatientRepo
	records  repos.HealthRecordRepo
	bus      *captureBus
	co       *Coordinator
	user     *types.User
	cfg      *config.Config
}

// newCoordinatorFixture wires a coordinator against the shared test
// database. Each fixture gets its own user, so tests stay isolated
// without transactions.
func newCoordinatorFixture(t *testing.T) *coordinatorFixture {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	ctx := context.Background()

	user := testutil.SeedUser(t, ctx, db, fmt.Sprintf("coordinator-%s@example.com", uuid.NewString()))

	uploads := repos.NewUploadedFileRepo(db, log)
	patients := repos.NewPatientRepo(db, log)
	records := repos.NewHealthRecordRepo(db, log)
	inserter := NewBulkInserter(db, records, nil, log)
	bus := &captureBus{}

	cfg := &config.Config{
		UploadDir:          filepath.Join(t.TempDir(), "uploads"),
		TempExtractDir:     filepath.Join(t.TempDir(), "tmp"),
		IngestionBatchSize: 2,
	}

	return &coordinatorFixture{
		db:       db,
		uploads:  uploads,
		patients: patients,
		records:  records,
		bus:      bus,
		co:       NewCoordinator(uploads, patients, inserter, bus, nil, cfg, log),
		user:     user,
		cfg:      cfg,
	}
}

func (f *coordinatorFixture) loadJob(t *testing.T, id uuid.UUID) *types.UploadedFile {
	t.Helper()
	job, err := f.uploads.GetByID(dbctx.Context{Ctx: context.Background()}, id)
	if err != nil {
		t.Fatalf("load job %s: %v", id, err)
	}
	return job
}

func (f *coordinatorFixture) patientID(t *testing.T) uuid.UUID {
	t.Helper()
	patient, err := f.patients.GetByUserID(dbctx.Context{Ctx: context.Background()}, f.user.ID)
	if err != nil {
		t.Fatalf("load patient: %v", err)
	}
	if patient == nil {
		t.Fatal("no patient created for user")
	}
	return patient.ID
}

const coordPatientEntry = `{"resource": {"resourceType": "Patient", "id": "pat-42", "gender": "female"}}`

func coordConditionEntry(text string) string {
	return fmt.Sprintf(`{"resource": {
		"resourceType": "Condition",
		"code": {"text": %q},
		"clinicalStatus": {"coding": [{"code": "active"}]},
		"onsetDateTime": "2020-03-15"
	}}`, text)
}

func writeBundle(t *testing.T, dir string, entries ...string) string {
	t.Helper()
	path := filepath.Join(dir, "bundle.json")
	content := fmt.Sprintf(`{"resourceType": "Bundle", "type": "collection", "entry": [%s]}`,
		strings.Join(entries, ","))
	writeTestFile(t, path, content)
	return path
}

func buildZip(t *testing.T, path string, members map[string]string) {
	t.Helper()
	names := make([]string, 0, len(members))
	for name := range members {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(members[name])); err != nil {
			t.Fatalf("zip write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write zip: %v", err)
	}
}

const allergyTSV = "ALLERGEN_ID_ALLERGEN_NAME\tALRGY_STATUS_C_NAME\tREACTION\n" +
	"PENICILLIN\tActive\tHives\n" +
	"\tActive\t\n" +
	"SHELLFISH\tResolved\t\n"

func TestIngestBundleFile(t *testing.T) {
	f := newCoordinatorFixture(t)
	ctx := context.Background()

	path := writeBundle(t, t.TempDir(),
		coordPatientEntry,
		coordConditionEntry("Type 2 diabetes"),
		coordConditionEntry("Hypertension"),
		coordConditionEntry("Asthma"),
		`{"resource": {"resourceType": "Device", "status": "active"}}`,
	)

	res, err := f.co.Ingest(ctx, IngestRequest{
		UserID:           f.user.ID,
		SourcePath:       path,
		OriginalFilename: "bundle.json",
		DeclaredMimeType: "application/json",
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	if res.Status != types.IngestionStatusCompleted {
		t.Fatalf("status = %q", res.Status)
	}
	if res.SourceFormat != FormatFHIR {
		t.Fatalf("source format = %q", res.SourceFormat)
	}
	if res.TotalEntries != 5 || res.RecordsInserted != 3 || res.RecordsSkipped != 2 {
		t.Fatalf("stats = %d/%d/%d, want 5/3/2",
			res.TotalEntries, res.RecordsInserted, res.RecordsSkipped)
	}
	if len(res.Errors) != 0 {
		t.Fatalf("errors = %v", res.Errors)
	}

	job := f.loadJob(t, res.UploadID)
	if job.IngestionStatus != types.IngestionStatusCompleted {
		t.Fatalf("job status = %q", job.IngestionStatus)
	}
	if job.RecordCount != 3 {
		t.Fatalf("record count = %d, want 3", job.RecordCount)
	}
	if job.ProcessingStartedAt == nil || job.ProcessingCompletedAt == nil {
		t.Fatal("processing timestamps not set")
	}
	if job.FileHash == "" || job.FileHash == "directory" {
		t.Fatalf("file hash = %q", job.FileHash)
	}
	if string(job.IngestionErrors) != "[]" {
		t.Fatalf("ingestion errors = %s", job.IngestionErrors)
	}
	var prog realtime.Progress
	if err := json.Unmarshal(job.IngestionProgress, &prog); err != nil {
		t.Fatalf("decode progress: %v", err)
	}
	if prog.TotalEntries != 5 || prog.RecordsInserted != 3 || prog.RecordsSkipped != 2 {
		t.Fatalf("final progress = %+v", prog)
	}

	patient, err := f.patients.GetByUserID(dbctx.Context{Ctx: ctx}, f.user.ID)
	if err != nil {
		t.Fatalf("load patient: %v", err)
	}
	if patient == nil {
		t.Fatal("patient not created")
	}
	if patient.FHIRID == nil || *patient.FHIRID != "pat-42" {
		t.Fatalf("patient fhir id = %v", patient.FHIRID)
	}
	if patient.Gender == nil || *patient.Gender != "female" {
		t.Fatalf("patient gender = %v", patient.Gender)
	}

	rows, err := f.records.ListByPatient(dbctx.Context{Ctx: ctx}, patient.ID, repos.RecordFilter{})
	if err != nil {
		t.Fatalf("list records: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("records = %d, want 3", len(rows))
	}
	for _, row := range rows {
		if row.SourceFileID == nil || *row.SourceFileID != job.ID {
			t.Fatalf("record %s source file = %v, want %s", row.ID, row.SourceFileID, job.ID)
		}
		if row.SourceFormat != types.SourceFormatFHIR {
			t.Fatalf("record source format = %q", row.SourceFormat)
		}
	}

	kinds := f.bus.kinds()
	if len(kinds) == 0 || kinds[len(kinds)-1] != realtime.EventIngestCompleted {
		t.Fatalf("event kinds = %v", kinds)
	}
	sawProgress := false
	for _, kind := range kinds {
		if kind == realtime.EventIngestProgress {
			sawProgress = true
		}
	}
	if !sawProgress {
		t.Fatalf("no progress events published: %v", kinds)
	}
}

func TestIngestClaimedJobRow(t *testing.T) {
	f := newCoordinatorFixture(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}

	path := writeBundle(t, t.TempDir(), coordConditionEntry("Fractured wrist"))

	row := &types.UploadedFile{
		ID:              uuid.New(),
		UserID:          f.user.ID,
		Filename:        "bundle.json",
		MimeType:        "application/json",
		FileSizeBytes:   64,
		FileHash:        "precomputed",
		StoragePath:     path,
		IngestionStatus: types.IngestionStatusQueued,
	}
	if _, err := f.uploads.Create(dbc, []*types.UploadedFile{row}); err != nil {
		t.Fatalf("create row: %v", err)
	}

	res, err := f.co.Ingest(ctx, IngestRequest{JobID: row.ID, UserID: f.user.ID, SourcePath: path})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if res.UploadID != row.ID {
		t.Fatalf("upload id = %s, want %s", res.UploadID, row.ID)
	}
	if res.RecordsInserted != 1 {
		t.Fatalf("inserted = %d, want 1", res.RecordsInserted)
	}

	job := f.loadJob(t, row.ID)
	if job.IngestionStatus != types.IngestionStatusCompleted {
		t.Fatalf("job status = %q", job.IngestionStatus)
	}
	if job.ProcessingStartedAt == nil {
		t.Fatal("processing_started_at not set")
	}

	files, err := f.uploads.ListByUser(dbc, f.user.ID, 0, 0)
	if err != nil {
		t.Fatalf("list uploads: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("uploads = %d, want the original row only", len(files))
	}
}

func TestIngestEpicDirectory(t *testing.T) {
	f := newCoordinatorFixture(t)
	ctx := context.Background()

	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "ALLERGY.tsv"), allergyTSV)
	writeTestFile(t, filepath.Join(dir, "ZZ_UNKNOWN.tsv"), "COL_A\tCOL_B\nx\ty\n")

	res, err := f.co.Ingest(ctx, IngestRequest{UserID: f.user.ID, SourcePath: dir})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if res.SourceFormat != FormatEpicExport {
		t.Fatalf("source format = %q", res.SourceFormat)
	}
	if res.TotalEntries != 2 {
		t.Fatalf("total entries = %d, want 2 files", res.TotalEntries)
	}
	if res.RecordsInserted != 2 {
		t.Fatalf("inserted = %d, want 2", res.RecordsInserted)
	}
	if res.RecordsSkipped != 1 {
		t.Fatalf("skipped = %d, want the unmapped table", res.RecordsSkipped)
	}
	if len(res.Errors) != 0 {
		t.Fatalf("errors = %v", res.Errors)
	}

	job := f.loadJob(t, res.UploadID)
	if job.FileHash != "directory" {
		t.Fatalf("file hash = %q, want directory marker", job.FileHash)
	}

	rows, err := f.records.ListByPatient(dbctx.Context{Ctx: ctx}, f.patientID(t), repos.RecordFilter{RecordType: "allergy"})
	if err != nil {
		t.Fatalf("list records: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("allergy rows = %d, want 2", len(rows))
	}
	for _, row := range rows {
		if row.SourceFormat != types.SourceFormatEpicEHI {
			t.Fatalf("source format = %q", row.SourceFormat)
		}
	}
}

func TestIngestEpicSingleTable(t *testing.T) {
	f := newCoordinatorFixture(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "ALLERGY.tsv")
	writeTestFile(t, path, allergyTSV)

	res, err := f.co.Ingest(ctx, IngestRequest{UserID: f.user.ID, SourcePath: path, OriginalFilename: "ALLERGY.tsv"})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if res.SourceFormat != FormatEpicSingle {
		t.Fatalf("source format = %q", res.SourceFormat)
	}
	if res.TotalEntries != 1 {
		t.Fatalf("total entries = %d, want 1 file", res.TotalEntries)
	}
	if res.RecordsInserted != 2 {
		t.Fatalf("inserted = %d, want 2", res.RecordsInserted)
	}

	rows, err := f.records.ListByPatient(dbctx.Context{Ctx: ctx}, f.patientID(t), repos.RecordFilter{})
	if err != nil {
		t.Fatalf("list records: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	for _, row := range rows {
		if row.RecordType != "allergy" {
			t.Fatalf("record type = %q", row.RecordType)
		}
		if row.SourceFormat != types.SourceFormatEpicEHI {
			t.Fatalf("source format = %q", row.SourceFormat)
		}
	}
}

func TestIngestZipArchive(t *testing.T) {
	f := newCoordinatorFixture(t)
	ctx := context.Background()

	bundleContent := fmt.Sprintf(`{"resourceType": "Bundle", "entry": [%s,%s]}`,
		coordPatientEntry, coordConditionEntry("Sprained ankle"))
	zipPath := filepath.Join(t.TempDir(), "export.zip")
	buildZip(t, zipPath, map[string]string{
		"records/bundle.json":    bundleContent,
		"docs/visit_summary.pdf": "%PDF-1.4 not really a pdf",
		"notes.rtf":              `{\rtf1 hello}`,
		"schema/LAB.tsv":         "COL\nv\n",
		"README.json":            `{"ignored": true}`,
	})

	res, err := f.co.Ingest(ctx, IngestRequest{UserID: f.user.ID, SourcePath: zipPath, OriginalFilename: "export.zip"})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	if res.TotalEntries != 2 || res.RecordsInserted != 1 || res.RecordsSkipped != 1 {
		t.Fatalf("stats = %d/%d/%d, want 2/1/1",
			res.TotalEntries, res.RecordsInserted, res.RecordsSkipped)
	}
	if len(res.Errors) != 0 {
		t.Fatalf("errors = %v", res.Errors)
	}
	if len(res.Unstructured) != 2 {
		t.Fatalf("unstructured = %d, want 2", len(res.Unstructured))
	}

	dbc := dbctx.Context{Ctx: ctx}
	for _, handoff := range res.Unstructured {
		if handoff.Status != types.IngestionStatusPendingExtraction {
			t.Fatalf("handoff status = %q", handoff.Status)
		}
		row, err := f.uploads.GetByID(dbc, handoff.UploadID)
		if err != nil {
			t.Fatalf("load handoff row: %v", err)
		}
		if row.FileCategory == nil || *row.FileCategory != types.FileCategoryUnstructured {
			t.Fatalf("file category = %v", row.FileCategory)
		}
		if _, err := os.Stat(row.StoragePath); err != nil {
			t.Fatalf("stored copy missing: %v", err)
		}
		switch row.Filename {
		case "visit_summary.pdf":
			if row.MimeType != "application/pdf" {
				t.Fatalf("pdf mime = %q", row.MimeType)
			}
		case "notes.rtf":
			if row.MimeType != "application/rtf" {
				t.Fatalf("rtf mime = %q", row.MimeType)
			}
		default:
			t.Fatalf("unexpected handoff %q", row.Filename)
		}
	}

	if _, err := os.Stat(filepath.Join(f.cfg.TempExtractDir, res.UploadID.String())); !os.IsNotExist(err) {
		t.Fatalf("temp extract dir not cleaned up: %v", err)
	}

	rows, err := f.records.ListByPatient(dbc, f.patientID(t), repos.RecordFilter{})
	if err != nil {
		t.Fatalf("list records: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("records = %d, want the bundle condition only", len(rows))
	}
}

// A zip mixing Epic tables, a FHIR bundle and a scanned document drives
// all three paths in one run: tabular inserts, bundle inserts and an
// extraction handoff, with stats summed across them.
func TestIngestZipMixedFormats(t *testing.T) {
	f := newCoordinatorFixture(t)
	ctx := context.Background()

	bundleContent := fmt.Sprintf(`{"resourceType": "Bundle", "entry": [%s,%s]}`,
		coordPatientEntry, coordConditionEntry("Seasonal rhinitis"))
	zipPath := filepath.Join(t.TempDir(), "mixed.zip")
	buildZip(t, zipPath, map[string]string{
		"tables/ALLERGY.tsv":  allergyTSV,
		"tables/IMMUNE.tsv":   "IMMUNZATN_ID_NAME\tIMMUNE_DATE\nCOVID-19 mRNA Vaccine\t8/1/2021\n",
		"records/bundle.json": bundleContent,
		"scan.pdf":            "%PDF-1.4 scanned chart",
	})

	res, err := f.co.Ingest(ctx, IngestRequest{UserID: f.user.ID, SourcePath: zipPath, OriginalFilename: "mixed.zip"})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	// Epic side: 2 table files, 3 rows inserted (the gated allergy row
	// stays out of job-level skips). Bundle side: 2 entries, condition
	// inserted, Patient skipped.
	if res.TotalEntries != 4 || res.RecordsInserted != 4 || res.RecordsSkipped != 1 {
		t.Fatalf("stats = %d/%d/%d, want 4/4/1",
			res.TotalEntries, res.RecordsInserted, res.RecordsSkipped)
	}
	if len(res.Errors) != 0 {
		t.Fatalf("errors = %v", res.Errors)
	}
	if len(res.Unstructured) != 1 || res.Unstructured[0].Filename != "scan.pdf" {
		t.Fatalf("unstructured = %+v, want scan.pdf handoff", res.Unstructured)
	}

	job := f.loadJob(t, res.UploadID)
	if job.IngestionStatus != types.IngestionStatusCompleted {
		t.Fatalf("job status = %q", job.IngestionStatus)
	}
	if job.RecordCount != 4 {
		t.Fatalf("record count = %d, want 4", job.RecordCount)
	}

	dbc := dbctx.Context{Ctx: ctx}
	rows, err := f.records.ListByPatient(dbc, f.patientID(t), repos.RecordFilter{})
	if err != nil {
		t.Fatalf("list records: %v", err)
	}
	byType := map[string]int{}
	for _, row := range rows {
		byType[row.RecordType]++
	}
	if byType["allergy"] != 2 || byType["immunization"] != 1 || byType["condition"] != 1 {
		t.Fatalf("records by type = %v, want 2 allergies, 1 immunization, 1 condition", byType)
	}
}

func TestIngestZipWithoutProcessableFiles(t *testing.T) {
	f := newCoordinatorFixture(t)
	ctx := context.Background()

	zipPath := filepath.Join(t.TempDir(), "junk.zip")
	buildZip(t, zipPath, map[string]string{"readme.txt": "nothing here"})

	_, err := f.co.Ingest(ctx, IngestRequest{UserID: f.user.ID, SourcePath: zipPath})
	if err == nil || !strings.Contains(err.Error(), "no processable files") {
		t.Fatalf("err = %v", err)
	}

	jobs, listErr := f.uploads.ListByUser(dbctx.Context{Ctx: ctx}, f.user.ID, 0, 0)
	if listErr != nil {
		t.Fatalf("list uploads: %v", listErr)
	}
	if len(jobs) != 1 {
		t.Fatalf("jobs = %d, want 1", len(jobs))
	}
	job := jobs[0]
	if job.IngestionStatus != types.IngestionStatusFailed {
		t.Fatalf("status = %q", job.IngestionStatus)
	}
	if job.ProcessingCompletedAt == nil {
		t.Fatal("processing_completed_at not set on failure")
	}
	var jobErrs []JobError
	if err := json.Unmarshal(job.IngestionErrors, &jobErrs); err != nil {
		t.Fatalf("decode errors: %v", err)
	}
	if len(jobErrs) != 1 || !strings.Contains(jobErrs[0].Error, "no processable files") {
		t.Fatalf("job errors = %+v", jobErrs)
	}

	kinds := f.bus.kinds()
	if len(kinds) == 0 || kinds[len(kinds)-1] != realtime.EventIngestFailed {
		t.Fatalf("event kinds = %v", kinds)
	}
}

func TestIngestUnsupportedExtension(t *testing.T) {
	f := newCoordinatorFixture(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "notes.txt")
	writeTestFile(t, path, "plain text")

	_, err := f.co.Ingest(ctx, IngestRequest{UserID: f.user.ID, SourcePath: path})
	if err == nil || !strings.Contains(err.Error(), "unsupported file type") {
		t.Fatalf("err = %v", err)
	}

	jobs, listErr := f.uploads.ListByUser(dbctx.Context{Ctx: ctx}, f.user.ID, 0, 0)
	if listErr != nil {
		t.Fatalf("list uploads: %v", listErr)
	}
	if len(jobs) != 1 || jobs[0].IngestionStatus != types.IngestionStatusFailed {
		t.Fatalf("jobs = %+v", jobs)
	}
}

func TestIngestBundleParseFailure(t *testing.T) {
	f := newCoordinatorFixture(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "broken.json")
	writeTestFile(t, path, `{"resourceType": "Bundle", "entry": [`)

	_, err := f.co.Ingest(ctx, IngestRequest{UserID: f.user.ID, SourcePath: path})
	if err == nil || !strings.Contains(err.Error(), "invalid bundle JSON") {
		t.Fatalf("err = %v", err)
	}

	jobs, listErr := f.uploads.ListByUser(dbctx.Context{Ctx: ctx}, f.user.ID, 0, 0)
	if listErr != nil {
		t.Fatalf("list uploads: %v", listErr)
	}
	if len(jobs) != 1 {
		t.Fatalf("jobs = %d, want 1", len(jobs))
	}
	if jobs[0].IngestionStatus != types.IngestionStatusFailed {
		t.Fatalf("status = %q", jobs[0].IngestionStatus)
	}
	if !strings.Contains(string(jobs[0].IngestionErrors), "invalid bundle JSON") {
		t.Fatalf("ingestion errors = %s", jobs[0].IngestionErrors)
	}
}

// failingRecordRepo delegates to a real repo but fails the numbered
// Create call, counting from one.
type failingRecordRepo struct {
	repos.HealthRecordRepo
	failOn int
	calls  int
}

func (r *failingRecordRepo) Create(dbc dbctx.Context, records []*types.HealthRecord) ([]*types.HealthRecord, error) {
	r.calls++
	if r.calls == r.failOn {
		return nil, errors.New("simulated insert failure")
	}
	return r.HealthRecordRepo.Create(dbc, records)
}

// An insert failure on a later batch must not roll back batches that
// already committed: each batch is its own transaction.
func TestIngestInsertFailureKeepsCommittedBatches(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	ctx := context.Background()

	user := testutil.SeedUser(t, ctx, db, fmt.Sprintf("durability-%s@example.com", uuid.NewString()))

	uploads := repos.NewUploadedFileRepo(db, log)
	patients := repos.NewPatientRepo(db, log)
	records := repos.NewHealthRecordRepo(db, log)
	failing := &failingRecordRepo{HealthRecordRepo: records, failOn: 2}
	inserter := NewBulkInserter(db, failing, nil, log)
	bus := &captureBus{}
	cfg := &config.Config{
		UploadDir:          filepath.Join(t.TempDir(), "uploads"),
		TempExtractDir:     filepath.Join(t.TempDir(), "tmp"),
		IngestionBatchSize: 2,
	}
	co := NewCoordinator(uploads, patients, inserter, bus, nil, cfg, log)

	dir := t.TempDir()
	path := writeBundle(t, dir,
		coordPatientEntry,
		coordConditionEntry("C1"),
		coordConditionEntry("C2"),
		coordConditionEntry("C3"),
		coordConditionEntry("C4"),
		coordConditionEntry("C5"),
	)

	_, err := co.Ingest(ctx, IngestRequest{UserID: user.ID, SourcePath: path})
	if err == nil || !strings.Contains(err.Error(), "simulated insert failure") {
		t.Fatalf("err = %v", err)
	}

	dbc := dbctx.Context{Ctx: ctx}
	jobs, listErr := uploads.ListByUser(dbc, user.ID, 0, 0)
	if listErr != nil {
		t.Fatalf("list uploads: %v", listErr)
	}
	if len(jobs) != 1 || jobs[0].IngestionStatus != types.IngestionStatusFailed {
		t.Fatalf("jobs = %+v", jobs)
	}
	if !strings.Contains(string(jobs[0].IngestionErrors), "simulated insert failure") {
		t.Fatalf("ingestion errors = %s", jobs[0].IngestionErrors)
	}

	patient, err := patients.GetByUserID(dbc, user.ID)
	if err != nil || patient == nil {
		t.Fatalf("load patient: %v, %v", patient, err)
	}
	rows, err := records.ListByPatient(dbc, patient.ID, repos.RecordFilter{})
	if err != nil {
		t.Fatalf("list records: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want the first committed batch only", len(rows))
	}

	kinds := bus.kinds()
	want := []string{realtime.EventIngestProgress, realtime.EventIngestFailed}
	if len(kinds) != 2 || kinds[0] != want[0] || kinds[1] != want[1] {
		t.Fatalf("event kinds = %v, want %v", kinds, want)
	}
}

func TestIngestMissingSource(t *testing.T) {
	f := newCoordinatorFixture(t)
	ctx := context.Background()

	_, err := f.co.Ingest(ctx, IngestRequest{
		UserID:     f.user.ID,
		SourcePath: filepath.Join(t.TempDir(), "missing.json"),
	})
	if err == nil {
		t.Fatal("expected error for missing source")
	}

	jobs, listErr := f.uploads.ListByUser(dbctx.Context{Ctx: ctx}, f.user.ID, 0, 0)
	if listErr != nil {
		t.Fatalf("list uploads: %v", listErr)
	}
	if len(jobs) != 0 {
		t.Fatalf("jobs = %d, want none", len(jobs))
	}
}
