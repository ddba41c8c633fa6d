// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"

	"idmigrate/internal/records"
)

// MockGateway is a test double for [migrate.Gateway] that counts calls and
// returns a fixed response.
type MockGateway struct {
	Calls    int
	RemoteID string
	Err      error
	Owners   map[string]string
}

func (m *MockGateway) Create(ctx context.Context, rec *records.Record) (string, error) {
	m.Calls++
	if m.Err != nil {
		return "", m.Err
	}
	if m.RemoteID == "" {
		return "1", nil
	}
	return m.RemoteID, nil
}

func (m *MockGateway) FindUserIDByEmail(ctx context.Context, email string) (string, bool) {
	id, ok := m.Owners[email]
	return id, ok
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

func MustWriteFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("Failed to write file %s: %v", path, err)
	}
}
