package source

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"idmigrate/internal/shared"
)

func writeExport(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "export.json")
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("failed to write export file: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	export := `[
		{"externalId": "u-1", "email": "one@example.com"},
		{"externalId": "u-2", "email": "two@example.com"},
		{"externalId": "u-3", "email": "three@example.com"}
	]`

	t.Run("loads all records", func(t *testing.T) {
		raws, err := Load(writeExport(t, export), 0)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if len(raws) != 3 {
			t.Fatalf("expected 3 records, got %d", len(raws))
		}
		if raws[0].Identifier() != "u-1" {
			t.Errorf("expected first record u-1, got %s", raws[0].Identifier())
		}
	})

	t.Run("offset skips leading records", func(t *testing.T) {
		raws, err := Load(writeExport(t, export), 2)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if len(raws) != 1 {
			t.Fatalf("expected 1 record, got %d", len(raws))
		}
		if raws[0].Identifier() != "u-3" {
			t.Errorf("expected record u-3, got %s", raws[0].Identifier())
		}
	})

	t.Run("offset past the end is an empty run", func(t *testing.T) {
		raws, err := Load(writeExport(t, export), 10)
		if err != nil {
			t.Fatalf("expected no error for large offset, got %v", err)
		}
		if len(raws) != 0 {
			t.Errorf("expected empty slice, got %d records", len(raws))
		}
	})

	t.Run("negative offset is treated as zero", func(t *testing.T) {
		raws, err := Load(writeExport(t, export), -5)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if len(raws) != 3 {
			t.Errorf("expected 3 records, got %d", len(raws))
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.json"), 0)
		if !errors.Is(err, shared.ErrInputFile) {
			t.Errorf("expected ErrInputFile, got %v", err)
		}
	})

	t.Run("malformed JSON", func(t *testing.T) {
		_, err := Load(writeExport(t, `{"not": "an array"}`), 0)
		if !errors.Is(err, shared.ErrInputFormat) {
			t.Errorf("expected ErrInputFormat, got %v", err)
		}
	})

	t.Run("unknown fields are tolerated", func(t *testing.T) {
		raws, err := Load(writeExport(t, `[{"externalId": "u-1", "email": "one@example.com", "legacyFlag": 42}]`), 0)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if len(raws) != 1 {
			t.Fatalf("expected 1 record, got %d", len(raws))
		}
	})
}
