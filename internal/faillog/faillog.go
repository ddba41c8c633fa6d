// package faillog appends structured failure records to a run-scoped log file.
//
// The file is the forensic record of every record that did not migrate
// cleanly; losing it is worse than crashing, so Append errors are fatal to the
// run. The file is append-only, never truncated, never read back, and owned
// exclusively by one run: its name carries the run start timestamp (whole
// seconds) plus a run ID suffix so runs started within the same second cannot
// collide.
package faillog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Entry is one failure record appended to the log.
type Entry struct {
	Identifier string    `json:"identifier"`
	Entity     string    `json:"entity"`
	Reason     string    `json:"reason"`
	Details    string    `json:"details"`
	At         time.Time `json:"at"`
}

// Sink writes entries to a single run-scoped file.
// It must be the file's only writer for the run's duration.
type Sink struct {
	path string
	f    *os.File
}

// NewSink creates a sink for a run. The file itself is created lazily on the
// first Append, so a fully clean run leaves no log file behind.
func NewSink(dir, entity string, startedAt time.Time, runID string) *Sink {
	name := fmt.Sprintf("failures_%s_%s_%s.log", entity, startedAt.Format("20060102-150405"), runID)
	return &Sink{path: filepath.Join(dir, name)}
}

// Append writes one JSON-formatted entry preceded by a newline.
func (s *Sink) Append(e Entry) error {
	if s.f == nil {
		f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open failure log: %w", err)
		}
		s.f = f
	}

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal failure entry: %w", err)
	}

	if _, err := s.f.Write(append([]byte("\n"), data...)); err != nil {
		return fmt.Errorf("failed to append failure entry: %w", err)
	}
	return nil
}

// Path returns the log file path, whether or not the file exists yet.
func (s *Sink) Path() string {
	return s.path
}

// Close closes the underlying file if it was opened.
func (s *Sink) Close() error {
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}
