// Package persist keeps the patch store on local disk. Loads fail open to an
// empty mapping and saves never block the caller on I/O.
package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/japaniel/glosser/pkg/db"
)

// Persister loads and saves the flat "<kind>:<id>" → fields mapping.
type Persister interface {
	// Load returns the stored mapping, or an empty one if storage is missing
	// or unreadable.
	Load(ctx context.Context) map[string]map[string]string
	// Save schedules mapping to be written. Failures are logged, not returned.
	Save(mapping map[string]map[string]string)
	// Close flushes pending writes.
	Close() error
}

// DocumentRecorder is implemented by persisters that keep document provenance.
type DocumentRecorder interface {
	RecordDocument(kind, path, sum string) error
}

// DocumentLister reads provenance back, newest first.
type DocumentLister interface {
	Documents() ([]db.DocumentRecord, error)
}

// ExportJSON writes mapping in the compatibility shape.
func ExportJSON(w io.Writer, mapping map[string]map[string]string) error {
	if mapping == nil {
		mapping = map[string]map[string]string{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(mapping); err != nil {
		return fmt.Errorf("encode patches: %w", err)
	}
	return nil
}

// ImportJSON reads a mapping in the compatibility shape.
func ImportJSON(r io.Reader) (map[string]map[string]string, error) {
	var mapping map[string]map[string]string
	if err := json.NewDecoder(r).Decode(&mapping); err != nil {
		return nil, fmt.Errorf("decode patches: %w", err)
	}
	if mapping == nil {
		mapping = map[string]map[string]string{}
	}
	return mapping, nil
}

func cloneMapping(m map[string]map[string]string) map[string]map[string]string {
	out := make(map[string]map[string]string, len(m))
	for k, fields := range m {
		cp := make(map[string]string, len(fields))
		for f, v := range fields {
			cp[f] = v
		}
		out[k] = cp
	}
	return out
}

func sameFields(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if w, ok := b[k]; !ok || w != v {
			return false
		}
	}
	return true
}
