package migrate

import (
	"fmt"
	"time"
)

// ProgressUpdate represents a progress event during a migration run.
//
// Used to send real-time updates to the CLI or UI layer for display.
// Progress is cosmetic and never authoritative: counters live in [RunResult].
type ProgressUpdate struct {
	Phase   Phase   // Run phase
	Index   int     // 1-based index of the current record
	Total   int     // Total records in this run
	Message string  // Human-readable message for display
	Outcome Outcome // Record outcome, set for RecordDone updates
}

// Run phase enumeration
type Phase int

const (
	Throttle Phase = iota
	Validate
	Create
	Cooldown
	RecordDone
	RunDone
)

func (p Phase) String() string {
	switch p {
	case Throttle:
		return "throttle"
	case Validate:
		return "validate"
	case Create:
		return "create"
	case Cooldown:
		return "cooldown"
	case RecordDone:
		return "record_done"
	case RunDone:
		return "run_done"
	default:
		return ""
	}
}

func throttleUpdate(index, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Throttle,
		Index:   index,
		Total:   total,
		Message: fmt.Sprintf("Waiting before record %d/%d...", index, total),
	}
}

func createUpdate(index, total int, identifier string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Create,
		Index:   index,
		Total:   total,
		Message: fmt.Sprintf("Creating %s (%d/%d)...", identifier, index, total),
	}
}

func cooldownUpdate(index, total, attempt int, wait time.Duration) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Cooldown,
		Index:   index,
		Total:   total,
		Message: fmt.Sprintf("Rate limited on record %d/%d, cooling down %s (attempt %d)...", index, total, wait, attempt),
	}
}

func recordDoneUpdate(index, total int, identifier string, outcome Outcome) ProgressUpdate {
	return ProgressUpdate{
		Phase:   RecordDone,
		Index:   index,
		Total:   total,
		Message: fmt.Sprintf("%s: %s (%d/%d)", identifier, outcome, index, total),
		Outcome: outcome,
	}
}

func runDoneUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   RunDone,
		Index:   total,
		Total:   total,
		Message: "Run complete",
	}
}
