package ingestion

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	types "github.com/potalora/ai-web-records-app-take-2/internal/domain"
	"github.com/potalora/ai-web-records-app-take-2/internal/pkg/dbctx"
	apperrors "github.com/potalora/ai-web-records-app-take-2/internal/pkg/errors"
)

var unstructuredMime = map[string]string{
	".pdf":  "application/pdf",
	".rtf":  "application/rtf",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
}

// ingestArchive unpacks a zip into a per-job temp dir, ingests the
// members it recognizes and parks scanned documents for the extraction
// pipeline. The temp dir is removed whatever happens.
//
// TSV members are treated as one Epic export rooted at the first TSV's
// directory. JSON members are parsed as FHIR bundles one by one, with a
// bad bundle recorded as a file-scoped error instead of failing the
// job.
func (c *Coordinator) ingestArchive(ctx context.Context, job *types.UploadedFile, zipPath string) (*jobStats, error) {
	tempDir := filepath.Join(c.tempExtractDir, job.ID.String())
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return nil, err
	}
	defer os.RemoveAll(tempDir)

	if err := extractZip(zipPath, tempDir); err != nil {
		return nil, err
	}

	tsvFiles, jsonFiles, docFiles, err := classifyExtracted(tempDir)
	if err != nil {
		return nil, err
	}
	if len(tsvFiles) == 0 && len(jsonFiles) == 0 && len(docFiles) == 0 {
		return nil, errors.New("ZIP contains no processable files")
	}

	stats := &jobStats{Errors: []JobError{}}

	if len(tsvFiles) > 0 {
		parser, err := c.epicParser(ctx, job)
		if err != nil {
			return nil, err
		}
		res, err := parser.ParseExport(ctx, filepath.Dir(tsvFiles[0]), c.progressFunc(ctx, job))
		if err != nil {
			return nil, err
		}
		c.reportEpicQuality(res)
		stats.merge(statsFromEpic(res))
	}

	for _, jsonPath := range jsonFiles {
		res, err := c.parseBundleFile(ctx, job, jsonPath, nil)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			stats.Errors = append(stats.Errors, JobError{File: filepath.Base(jsonPath), Error: err.Error()})
			continue
		}
		stats.merge(statsFromBundle(res))
	}

	if len(docFiles) > 0 {
		if err := c.stashUnstructured(ctx, job, docFiles, stats); err != nil {
			return nil, err
		}
	}
	return stats, nil
}

// stashUnstructured copies documents into the upload dir and registers
// a pending_extraction row for each, so the extraction pipeline can
// pick them up later.
func (c *Coordinator) stashUnstructured(ctx context.Context, job *types.UploadedFile, docFiles []string, stats *jobStats) error {
	if err := os.MkdirAll(c.uploadDir, 0o755); err != nil {
		return err
	}

	var rows []*types.UploadedFile
	for _, docPath := range docFiles {
		row, err := c.stashDocument(job, docPath)
		if err != nil {
			stats.Errors = append(stats.Errors, JobError{File: filepath.Base(docPath), Error: err.Error()})
			continue
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil
	}

	if _, err := c.uploads.Create(dbctx.Context{Ctx: ctx}, rows); err != nil {
		return fmt.Errorf("register unstructured uploads: %w", apperrors.ClassifyStorage(err))
	}
	for _, row := range rows {
		stats.Unstructured = append(stats.Unstructured, UnstructuredHandoff{
			UploadID: row.ID,
			Filename: row.Filename,
			Status:   row.IngestionStatus,
		})
	}
	return nil
}

func (c *Coordinator) stashDocument(job *types.UploadedFile, srcPath string) (*types.UploadedFile, error) {
	ext := strings.ToLower(filepath.Ext(srcPath))
	id := uuid.New()
	destPath := filepath.Join(c.uploadDir, id.String()+ext)
	if err := copyFile(srcPath, destPath); err != nil {
		return nil, err
	}
	hash, err := HashFile(destPath)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(destPath)
	if err != nil {
		return nil, err
	}

	mime, ok := unstructuredMime[ext]
	if !ok {
		mime = "application/octet-stream"
	}
	category := types.FileCategoryUnstructured
	return &types.UploadedFile{
		ID:              id,
		UserID:          job.UserID,
		Filename:        filepath.Base(srcPath),
		MimeType:        mime,
		FileSizeBytes:   info.Size(),
		FileHash:        hash,
		StoragePath:     destPath,
		FileCategory:    &category,
		IngestionStatus: types.IngestionStatusPendingExtraction,
	}, nil
}

func extractZip(zipPath, destDir string) error {
	reader, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer reader.Close()

	cleanDest := filepath.Clean(destDir)
	for _, member := range reader.File {
		dest := filepath.Join(cleanDest, member.Name)
		if dest != cleanDest && !strings.HasPrefix(dest, cleanDest+string(os.PathSeparator)) {
			return fmt.Errorf("archive member escapes extraction dir: %s", member.Name)
		}
		if member.FileInfo().IsDir() {
			if err := os.MkdirAll(dest, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		if err := writeZipMember(member, dest); err != nil {
			return fmt.Errorf("extract %s: %w", member.Name, err)
		}
	}
	return nil
}

func writeZipMember(member *zip.File, dest string) error {
	src, err := member.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return err
	}
	return out.Close()
}

// classifyExtracted walks the extracted tree and buckets data files by
// extension. Schema directories and readmes ship alongside the data in
// Epic exports and are documentation, not data, so they are skipped.
func classifyExtracted(root string) (tsvFiles, jsonFiles, docFiles []string, err error) {
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		if skipExtractedFile(rel) {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".tsv":
			tsvFiles = append(tsvFiles, path)
		case ".json":
			jsonFiles = append(jsonFiles, path)
		case ".pdf", ".rtf", ".tif", ".tiff":
			docFiles = append(docFiles, path)
		}
		return nil
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return tsvFiles, jsonFiles, docFiles, nil
}

func skipExtractedFile(rel string) bool {
	for _, part := range strings.Split(rel, string(os.PathSeparator)) {
		if strings.Contains(strings.ToLower(part), "schema") {
			return true
		}
	}
	base := filepath.Base(rel)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return strings.EqualFold(stem, "readme")
}

func copyFile(srcPath, destPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return err
	}
	return out.Close()
}
