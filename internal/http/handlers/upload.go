package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/potalora/ai-web-records-app-take-2/internal/config"
	"github.com/potalora/ai-web-records-app-take-2/internal/data/repos"
	types "github.com/potalora/ai-web-records-app-take-2/internal/domain"
	"github.com/potalora/ai-web-records-app-take-2/internal/http/response"
	"github.com/potalora/ai-web-records-app-take-2/internal/pkg/ctxutil"
	"github.com/potalora/ai-web-records-app-take-2/internal/pkg/dbctx"
	apperrors "github.com/potalora/ai-web-records-app-take-2/internal/pkg/errors"
	"github.com/potalora/ai-web-records-app-take-2/internal/platform/logger"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// Extensions billed against the larger export cap; everything else gets the
// regular per-file cap.
var epicExportExts = map[string]bool{
	".zip": true,
	".tsv": true,
}

type UploadHandler struct {
	log            *logger.Logger
	uploads        repos.UploadedFileRepo
	uploadDir      string
	maxUploadBytes int64
	maxExportBytes int64
}

func NewUploadHandler(uploads repos.UploadedFileRepo, cfg *config.Config, baseLog *logger.Logger) *UploadHandler {
	return &UploadHandler{
		log:            baseLog.With("handler", "UploadHandler"),
		uploads:        uploads,
		uploadDir:      cfg.UploadDir,
		maxUploadBytes: cfg.MaxUploadBytes(),
		maxExportBytes: cfg.MaxEpicExportBytes(),
	}
}

// POST /api/uploads
func (h *UploadHandler) Upload(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_multipart_form", err)
		return
	}
	form := c.Request.MultipartForm
	var fh *multipart.FileHeader
	if form != nil && len(form.File["file"]) > 0 {
		fh = form.File["file"][0]
	}
	if fh == nil {
		response.RespondError(c, http.StatusBadRequest, "missing_file", errors.New(`multipart field "file" required`))
		return
	}

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	limit := h.maxUploadBytes
	if epicExportExts[ext] {
		limit = h.maxExportBytes
	}
	if fh.Size > limit {
		response.RespondError(c, http.StatusRequestEntityTooLarge, "file_too_large",
			fmt.Errorf("%s is %d bytes, limit is %d", filepath.Base(fh.Filename), fh.Size, limit))
		return
	}

	row, err := h.storeUpload(c, rd.UserID, fh, ext)
	if err != nil {
		h.log.Error("upload failed", "error", err, "user_id", rd.UserID.String(), "filename", fh.Filename)
		response.RespondError(c, http.StatusInternalServerError, "upload_failed", err)
		return
	}
	h.log.Info("upload accepted",
		"upload_id", row.ID.String(),
		"user_id", rd.UserID.String(),
		"filename", row.Filename,
		"size_bytes", row.FileSizeBytes,
	)
	response.Respond(c, http.StatusAccepted, gin.H{
		"upload_id": row.ID,
		"status":    row.IngestionStatus,
	})
}

// storeUpload writes the part to UPLOAD_DIR as <uuid><ext>, hashing as it
// copies, then creates the queued job row. The stored file is removed if the
// row cannot be created.
func (h *UploadHandler) storeUpload(c *gin.Context, userID uuid.UUID, fh *multipart.FileHeader, ext string) (*types.UploadedFile, error) {
	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	id := uuid.New()
	destPath := filepath.Join(h.uploadDir, id.String()+ext)
	dst, err := os.Create(destPath)
	if err != nil {
		return nil, fmt.Errorf("create stored file: %w", err)
	}
	hasher := sha256.New()
	written, err := io.Copy(io.MultiWriter(dst, hasher), src)
	closeErr := dst.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(destPath)
		return nil, fmt.Errorf("store upload: %w", err)
	}

	mimeType := strings.TrimSpace(fh.Header.Get("Content-Type"))
	if mimeType == "" {
		mimeType = sniffMimeType(destPath)
	}

	row := &types.UploadedFile{
		ID:              id,
		UserID:          userID,
		Filename:        filepath.Base(fh.Filename),
		MimeType:        mimeType,
		FileSizeBytes:   written,
		FileHash:        hex.EncodeToString(hasher.Sum(nil)),
		StoragePath:     destPath,
		IngestionStatus: types.IngestionStatusQueued,
		TotalFileCount:  1,
	}
	rows, err := h.uploads.Create(dbctx.Context{Ctx: c.Request.Context()}, []*types.UploadedFile{row})
	if err != nil {
		os.Remove(destPath)
		return nil, apperrors.ClassifyStorage(err)
	}
	return rows[0], nil
}

func sniffMimeType(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return "application/octet-stream"
	}
	defer f.Close()
	buf := make([]byte, 512)
	n, _ := f.Read(buf)
	return http.DetectContentType(buf[:n])
}

type uploadSummary struct {
	ID                    uuid.UUID  `json:"id"`
	Filename              string     `json:"filename"`
	MimeType              string     `json:"mime_type"`
	FileSizeBytes         int64      `json:"file_size_bytes"`
	FileCategory          *string    `json:"file_category,omitempty"`
	IngestionStatus       string     `json:"ingestion_status"`
	RecordCount           int        `json:"record_count"`
	TotalFileCount        int        `json:"total_file_count"`
	CreatedAt             time.Time  `json:"created_at"`
	ProcessingCompletedAt *time.Time `json:"processing_completed_at,omitempty"`
}

// GET /api/uploads
func (h *UploadHandler) ListUploads(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	limit, offset, err := pageFromQuery(c)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_pagination", err)
		return
	}
	files, err := h.uploads.ListByUser(dbctx.Context{Ctx: c.Request.Context()}, rd.UserID, limit, offset)
	if err != nil {
		h.log.Error("list uploads failed", "error", err, "user_id", rd.UserID.String())
		response.RespondError(c, http.StatusInternalServerError, "list_uploads_failed", err)
		return
	}
	out := make([]uploadSummary, 0, len(files))
	for _, f := range files {
		out = append(out, uploadSummary{
			ID:                    f.ID,
			Filename:              f.Filename,
			MimeType:              f.MimeType,
			FileSizeBytes:         f.FileSizeBytes,
			FileCategory:          f.FileCategory,
			IngestionStatus:       f.IngestionStatus,
			RecordCount:           f.RecordCount,
			TotalFileCount:        f.TotalFileCount,
			CreatedAt:             f.CreatedAt,
			ProcessingCompletedAt: f.ProcessingCompletedAt,
		})
	}
	response.RespondOK(c, gin.H{"uploads": out})
}

// GET /api/uploads/:id/status
func (h *UploadHandler) Status(c *gin.Context) {
	f, ok := h.loadOwned(c)
	if !ok {
		return
	}
	response.RespondOK(c, gin.H{
		"upload_id":               f.ID,
		"ingestion_status":        f.IngestionStatus,
		"record_count":            f.RecordCount,
		"total_file_count":        f.TotalFileCount,
		"ingestion_progress":      f.IngestionProgress,
		"processing_started_at":   f.ProcessingStartedAt,
		"processing_completed_at": f.ProcessingCompletedAt,
	})
}

// GET /api/uploads/:id/errors
func (h *UploadHandler) Errors(c *gin.Context) {
	f, ok := h.loadOwned(c)
	if !ok {
		return
	}
	errs := f.IngestionErrors
	if len(errs) == 0 {
		errs = datatypes.JSON("[]")
	}
	response.RespondOK(c, gin.H{"errors": errs})
}

// loadOwned resolves :id to the caller's upload row, writing the error
// response itself when that fails.
func (h *UploadHandler) loadOwned(c *gin.Context) (*types.UploadedFile, bool) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return nil, false
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_upload_id", err)
		return nil, false
	}
	f, err := h.uploads.GetByIDForUser(dbctx.Context{Ctx: c.Request.Context()}, id, rd.UserID)
	if err != nil {
		err = apperrors.ClassifyStorage(err)
		if errors.Is(err, apperrors.ErrNotFound) {
			response.RespondError(c, http.StatusNotFound, "upload_not_found", errors.New("upload not found"))
			return nil, false
		}
		h.log.Error("load upload failed", "error", err, "upload_id", id.String())
		response.RespondError(c, http.StatusInternalServerError, "load_upload_failed", err)
		return nil, false
	}
	return f, true
}

func pageFromQuery(c *gin.Context) (limit, offset int, err error) {
	limit = defaultPageSize
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		n, convErr := strconv.Atoi(raw)
		if convErr != nil || n < 1 {
			return 0, 0, fmt.Errorf("invalid limit %q", raw)
		}
		if n > maxPageSize {
			n = maxPageSize
		}
		limit = n
	}
	if raw := strings.TrimSpace(c.Query("offset")); raw != "" {
		n, convErr := strconv.Atoi(raw)
		if convErr != nil || n < 0 {
			return 0, 0, fmt.Errorf("invalid offset %q", raw)
		}
		offset = n
	}
	return limit, offset, nil
}
