package epic

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/potalora/ai-web-records-app-take-2/internal/fhir"
	"github.com/potalora/ai-web-records-app-take-2/internal/pkg/pointers"
	"github.com/potalora/ai-web-records-app-take-2/internal/platform/logger"
)

// DefaultBatchSize is how many normalized resources accumulate before a
// sink flush.
const DefaultBatchSize = 100

// Sink receives batches of normalized resources. Each call is expected
// to be atomic: either the whole batch lands or none of it does.
type Sink interface {
	InsertBatch(ctx context.Context, batch []fhir.Normalized) (int, error)
}

// ProgressFunc is invoked after each mapped table finishes, with the
// position of that file among all files in the export.
type ProgressFunc func(filesDone, totalFiles, recordsInserted int)

// RowError records a failure scoped to one table. Row is nil when the
// whole file failed rather than a single row.
type RowError struct {
	File  string `json:"file"`
	Row   *int   `json:"row,omitempty"`
	Error string `json:"error"`
}

// FileDetail is the per-table breakdown of an export run.
type FileDetail struct {
	TableName    string `json:"table_name"`
	RowsFound    int    `json:"rows_found"`
	RowsInserted int    `json:"rows_inserted"`
	RowsSkipped  int    `json:"rows_skipped"`
}

// Result summarizes an export run. RecordsSkipped counts tables with no
// registered mapper; rows skipped within a mapped table show up in its
// FileDetail only.
type Result struct {
	TotalFiles      int          `json:"total_files"`
	FilesProcessed  int          `json:"files_processed"`
	RecordsInserted int          `json:"records_inserted"`
	RecordsSkipped  int          `json:"records_skipped"`
	Errors          []RowError   `json:"errors"`
	FilesDetail     []FileDetail `json:"files_detail"`
	FilesSkipped    []string     `json:"files_skipped"`
}

func newResult(totalFiles int) *Result {
	return &Result{
		TotalFiles:   totalFiles,
		Errors:       []RowError{},
		FilesDetail:  []FileDetail{},
		FilesSkipped: []string{},
	}
}

// Parser streams Epic EHI table exports into a sink, one file at a
// time, one row at a time.
type Parser struct {
	sink      Sink
	batchSize int
	log       *logger.Logger
}

func NewParser(sink Sink, batchSize int, baseLog *logger.Logger) *Parser {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Parser{sink: sink, batchSize: batchSize, log: baseLog.With("service", "EpicParser")}
}

// ParseExport processes every .tsv file in dir in name order. Tables
// without a registered mapper are recorded and skipped. Errors inside a
// table are collected in the result; only an unreadable directory or a
// cancelled context fails the run itself.
func (p *Parser) ParseExport(ctx context.Context, dir string, progress ProgressFunc) (*Result, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".tsv") {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	return p.parse(ctx, files, progress)
}

// ParseTable processes a single export file, for uploads that arrive as
// one .tsv rather than a full directory.
func (p *Parser) ParseTable(ctx context.Context, path string, progress ProgressFunc) (*Result, error) {
	return p.parse(ctx, []string{path}, progress)
}

func (p *Parser) parse(ctx context.Context, files []string, progress ProgressFunc) (*Result, error) {
	res := newResult(len(files))
	registry := Registry()

	for i, path := range files {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		table := strings.ToUpper(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
		mapper, ok := registry[table]
		if !ok {
			res.FilesSkipped = append(res.FilesSkipped, table)
			res.RecordsSkipped++
			continue
		}

		p.log.Info("processing epic table",
			"table", table, "file", i+1, "total_files", res.TotalFiles)

		detail := FileDetail{TableName: table}
		if err := p.parseFile(ctx, path, table, mapper, res, &detail); err != nil {
			res.Errors = append(res.Errors, RowError{File: table, Error: err.Error()})
			p.log.Error("epic table failed", "table", table, "error", err)
		}
		res.FilesProcessed++
		res.FilesDetail = append(res.FilesDetail, detail)

		p.log.Info("processed epic table",
			"table", table, "rows", detail.RowsFound, "inserted", detail.RowsInserted)

		if progress != nil {
			progress(i+1, res.TotalFiles, res.RecordsInserted)
		}
	}

	p.log.Info("epic export complete",
		"files", res.FilesProcessed, "records", res.RecordsInserted, "errors", len(res.Errors))
	return res, nil
}

// parseFile reads one table. A malformed line or an unreadable file
// aborts the whole table and drops any unflushed batch. An insert
// failure mid-file is recorded against the row that triggered it and
// the batch is kept, so the next flush retries it.
func (p *Parser) parseFile(ctx context.Context, path, table string, mapper Mapper, res *Result, detail *FileDetail) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := csv.NewReader(skipBOM(f))
	r.Comma = '\t'
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return err
	}

	batch := make([]fhir.Normalized, 0, p.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		count, err := p.sink.InsertBatch(ctx, batch)
		if err != nil {
			return err
		}
		detail.RowsInserted += count
		res.RecordsInserted += count
		batch = batch[:0]
		return nil
	}

	for rowIdx := 0; ; rowIdx++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		detail.RowsFound++

		resource := mapper.MapRow(zipRow(header, record))
		if resource == nil {
			detail.RowsSkipped++
			continue
		}

		normalized, err := fhir.Normalize(resource)
		if err != nil {
			res.Errors = append(res.Errors, RowError{File: table, Row: pointers.Int(rowIdx), Error: err.Error()})
			continue
		}
		batch = append(batch, normalized)

		if len(batch) >= p.batchSize {
			if err := flush(); err != nil {
				res.Errors = append(res.Errors, RowError{File: table, Row: pointers.Int(rowIdx), Error: err.Error()})
			}
		}
	}

	return flush()
}

func zipRow(header, record []string) Row {
	row := make(Row, len(header))
	for i, col := range header {
		if i < len(record) {
			row[col] = record[i]
		}
	}
	return row
}

// skipBOM drops a UTF-8 byte order mark if the file starts with one.
// Epic exports frequently do.
func skipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(3); err == nil && bytes.Equal(head, []byte{0xEF, 0xBB, 0xBF}) {
		br.Discard(3)
	}
	return br
}
