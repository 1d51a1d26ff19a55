package ingestion

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"

	types "github.com/potalora/ai-web-records-app-take-2/internal/domain"
)

// Source formats the coordinator can dispatch on. FormatFHIR and
// FormatEpicExport double as the source_format stamped onto rows;
// the remaining values only route.
const (
	FormatFHIR       = types.SourceFormatFHIR
	FormatEpicExport = types.SourceFormatEpicEHI
	FormatEpicSingle = "epic_ehi_single"
	FormatZip        = "zip"
	FormatUnknown    = "unknown"
)

// DetectSourceFormat classifies a path by shape alone: a directory is an
// Epic export when it holds any .tsv file, everything else goes by
// extension. It never opens file contents.
func DetectSourceFormat(path string) string {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return FormatUnknown
		}
		for _, entry := range entries {
			if !entry.IsDir() && strings.EqualFold(filepath.Ext(entry.Name()), ".tsv") {
				return FormatEpicExport
			}
		}
		return FormatUnknown
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".zip":
		return FormatZip
	case ".json":
		return FormatFHIR
	case ".tsv":
		return FormatEpicSingle
	default:
		return FormatUnknown
	}
}

// HashFile streams a sha256 over the file in 8 KiB chunks.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.CopyBuffer(h, f, make([]byte, 8192)); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
