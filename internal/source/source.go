// package source loads legacy export files.
//
// An export is a single UTF-8 JSON array of record objects, read fully into
// memory. A starting offset skips already-imported records when resuming a
// run; an offset past the end of the array is an empty run, not an error.
package source

import (
	"encoding/json"
	"fmt"
	"os"

	"idmigrate/internal/records"
	"idmigrate/internal/shared"
)

// Load reads the export file at path and returns its records with the first
// offset elements skipped. A negative offset is treated as zero.
func Load(path string, offset int) ([]records.Raw, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInputFile, err)
	}

	var items []records.Raw
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInputFormat, err)
	}

	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []records.Raw{}, nil
	}

	return items[offset:], nil
}
