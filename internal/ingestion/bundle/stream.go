package bundle

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/potalora/ai-web-records-app-take-2/internal/fhir"
)

// parseStream walks the JSON token by token so large exports never sit
// in memory whole. Only the entry array is consumed; trailing bundle
// fields are left unread. A document that is not a JSON object, or
// whose entry key is not an array, yields an empty result.
func (p *Parser) parseStream(ctx context.Context, path string, progress ProgressFunc) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	res := newResult()
	dec := json.NewDecoder(skipBOM(f))

	tok, err := dec.Token()
	if err != nil {
		return res, fmt.Errorf("invalid bundle JSON: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return res, nil
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return res, fmt.Errorf("invalid bundle JSON: %w", err)
		}
		key, _ := keyTok.(string)
		if key != "entry" {
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return res, fmt.Errorf("invalid bundle JSON: %w", err)
			}
			continue
		}
		return p.streamEntries(ctx, dec, res, progress)
	}
	return res, nil
}

func (p *Parser) streamEntries(ctx context.Context, dec *json.Decoder, res *Result, progress ProgressFunc) (*Result, error) {
	tok, err := dec.Token()
	if err != nil {
		return res, fmt.Errorf("invalid bundle JSON: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return res, nil
	}

	batch := make([]fhir.Normalized, 0, p.batchSize)
	for dec.More() {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		var entry struct {
			Resource json.RawMessage `json:"resource"`
		}
		if err := dec.Decode(&entry); err != nil {
			return res, fmt.Errorf("invalid bundle JSON: %w", err)
		}
		p.processEntry(res.TotalEntries, entry.Resource, res, &batch)
		res.TotalEntries++

		if len(batch) >= p.batchSize {
			if err := p.flush(ctx, &batch, res); err != nil {
				return res, err
			}
			if progress != nil {
				progress(res.TotalEntries, res.TotalEntries, res.RecordsInserted)
			}
		}
	}
	return res, p.flush(ctx, &batch, res)
}

func skipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	head, err := br.Peek(3)
	if err == nil && bytes.Equal(head, utf8BOM) {
		br.Discard(3)
	}
	return br
}
