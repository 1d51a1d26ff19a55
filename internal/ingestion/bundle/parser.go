// Package bundle parses FHIR R4 JSON files into normalized resources.
// A file is usually a Bundle with an entry array, but a bare resource
// document is accepted as a bundle of one. Files over the streaming
// threshold are walked entry by entry instead of being loaded whole.
package bundle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/potalora/ai-web-records-app-take-2/internal/fhir"
	"github.com/potalora/ai-web-records-app-take-2/internal/platform/logger"
)

// DefaultBatchSize is how many normalized resources accumulate before a
// sink flush.
const DefaultBatchSize = 100

const defaultStreamThreshold = 10 << 20

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Sink receives batches of normalized resources. Each call is expected
// to be atomic: either the whole batch lands or none of it does.
type Sink interface {
	InsertBatch(ctx context.Context, batch []fhir.Normalized) (int, error)
}

// ProgressFunc is invoked after each full batch lands. The final
// partial flush does not report.
type ProgressFunc func(entriesDone, totalEntries, recordsInserted int)

// EntryError records a failure scoped to one bundle entry.
type EntryError struct {
	EntryIndex int    `json:"entry_index"`
	Error      string `json:"error"`
}

// Result summarizes a bundle parse. Skipped covers entries with no
// resource, Patient entries, and resource types outside the supported
// set.
type Result struct {
	TotalEntries    int          `json:"total_entries"`
	RecordsInserted int          `json:"records_inserted"`
	RecordsSkipped  int          `json:"records_skipped"`
	Errors          []EntryError `json:"errors"`
}

func newResult() *Result {
	return &Result{Errors: []EntryError{}}
}

// Parser turns FHIR JSON files into sink batches.
type Parser struct {
	sink            Sink
	batchSize       int
	streamThreshold int64
	log             *logger.Logger
}

func NewParser(sink Sink, batchSize int, baseLog *logger.Logger) *Parser {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Parser{
		sink:            sink,
		batchSize:       batchSize,
		streamThreshold: defaultStreamThreshold,
		log:             baseLog.With("service", "BundleParser"),
	}
}

// ParseFile parses one FHIR JSON file. Entry-level problems are
// collected in the result; malformed JSON or a failed insert fails the
// parse.
func (p *Parser) ParseFile(ctx context.Context, path string, progress ProgressFunc) (*Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	var res *Result
	if info.Size() > p.streamThreshold {
		res, err = p.parseStream(ctx, path, progress)
	} else {
		res, err = p.parseInMemory(ctx, path, progress)
	}
	if err != nil {
		return res, err
	}

	p.log.Info("fhir parsing complete",
		"entries", res.TotalEntries,
		"inserted", res.RecordsInserted,
		"skipped", res.RecordsSkipped,
		"errors", len(res.Errors))
	return res, nil
}

func (p *Parser) parseInMemory(ctx context.Context, path string, progress ProgressFunc) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	var head struct {
		ResourceType string `json:"resourceType"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("invalid bundle JSON: %w", err)
	}

	var entries []json.RawMessage
	if head.ResourceType == "Bundle" {
		var envelope struct {
			Entry []struct {
				Resource json.RawMessage `json:"resource"`
			} `json:"entry"`
		}
		if err := json.Unmarshal(data, &envelope); err != nil {
			return nil, fmt.Errorf("invalid bundle JSON: %w", err)
		}
		entries = make([]json.RawMessage, len(envelope.Entry))
		for i, entry := range envelope.Entry {
			entries[i] = entry.Resource
		}
	} else {
		entries = []json.RawMessage{json.RawMessage(data)}
	}

	res := newResult()
	res.TotalEntries = len(entries)
	batch := make([]fhir.Normalized, 0, p.batchSize)

	for i, raw := range entries {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		p.processEntry(i, raw, res, &batch)

		if len(batch) >= p.batchSize {
			if err := p.flush(ctx, &batch, res); err != nil {
				return res, err
			}
			if progress != nil {
				progress(i+1, res.TotalEntries, res.RecordsInserted)
			}
		}
	}

	return res, p.flush(ctx, &batch, res)
}

// processEntry normalizes one entry into the batch, or accounts for why
// it could not be.
func (p *Parser) processEntry(index int, raw json.RawMessage, res *Result, batch *[]fhir.Normalized) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		res.RecordsSkipped++
		return
	}

	var head struct {
		ResourceType string `json:"resourceType"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		res.Errors = append(res.Errors, EntryError{EntryIndex: index, Error: err.Error()})
		return
	}

	kind := fhir.Kind(head.ResourceType)
	if kind == fhir.KindPatient {
		res.RecordsSkipped++
		return
	}
	if !fhir.SupportedInBundle(kind) {
		res.RecordsSkipped++
		return
	}

	normalized, err := fhir.NormalizeRaw(raw, kind)
	if err != nil {
		res.Errors = append(res.Errors, EntryError{EntryIndex: index, Error: err.Error()})
		return
	}
	*batch = append(*batch, normalized)
}

func (p *Parser) flush(ctx context.Context, batch *[]fhir.Normalized, res *Result) error {
	if len(*batch) == 0 {
		return nil
	}
	count, err := p.sink.InsertBatch(ctx, *batch)
	if err != nil {
		return err
	}
	res.RecordsInserted += count
	*batch = (*batch)[:0]
	return nil
}
