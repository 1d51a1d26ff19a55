package bundle

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/potalora/ai-web-records-app-take-2/internal/fhir"
)

// FindPatient scans a bundle file for its first Patient entry without
// loading the whole document. It returns nil when the file is not a
// Bundle or carries no Patient resource.
func FindPatient(path string) (*fhir.Patient, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := json.NewDecoder(skipBOM(f))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("invalid bundle JSON: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, nil
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("invalid bundle JSON: %w", err)
		}
		key, _ := keyTok.(string)
		switch key {
		case "resourceType":
			var rt string
			if err := dec.Decode(&rt); err != nil {
				return nil, fmt.Errorf("invalid bundle JSON: %w", err)
			}
			if rt != "Bundle" {
				return nil, nil
			}
		case "entry":
			return scanEntriesForPatient(dec)
		default:
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, fmt.Errorf("invalid bundle JSON: %w", err)
			}
		}
	}
	return nil, nil
}

func scanEntriesForPatient(dec *json.Decoder) (*fhir.Patient, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("invalid bundle JSON: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return nil, nil
	}

	for dec.More() {
		var entry struct {
			Resource json.RawMessage `json:"resource"`
		}
		if err := dec.Decode(&entry); err != nil {
			return nil, fmt.Errorf("invalid bundle JSON: %w", err)
		}
		if len(entry.Resource) == 0 {
			continue
		}

		var head struct {
			ResourceType string `json:"resourceType"`
		}
		if err := json.Unmarshal(entry.Resource, &head); err != nil {
			continue
		}
		if fhir.Kind(head.ResourceType) != fhir.KindPatient {
			continue
		}

		var patient fhir.Patient
		if err := json.Unmarshal(entry.Resource, &patient); err != nil {
			return nil, fmt.Errorf("invalid Patient resource: %w", err)
		}
		return &patient, nil
	}
	return nil, nil
}
