// package migrate implements the sequential migration driver.
//
// The core abstraction is [Engine], which drives records one at a time through
// validation and remote creation: throttle before each record, classify every
// outcome, retry indefinitely on rate-limiting, log permanent failures, and
// accumulate counters. Operations emit progress updates via channels for
// non-blocking status reporting to CLI/UI layers.
package migrate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"idmigrate/internal/faillog"
	"idmigrate/internal/records"
	"idmigrate/internal/shared"
)

// Outcome classifies the result of one record's remote creation.
type Outcome int

const (
	Created Outcome = iota
	AlreadyExists
	RateLimited
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Created:
		return "created"
	case AlreadyExists:
		return "already exists"
	case RateLimited:
		return "rate limited"
	case Failed:
		return "failed"
	default:
		return ""
	}
}

// Classify maps a gateway error to an outcome. A nil error is a creation.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return Created
	case errors.Is(err, shared.ErrConflict):
		return AlreadyExists
	case errors.Is(err, shared.ErrRateLimited):
		return RateLimited
	default:
		return Failed
	}
}

// Gateway defines the remote identity-service operations the driver depends on.
type Gateway interface {
	// Create creates the remote entity for a validated record and returns
	// its remote ID. Errors are classified via [Classify].
	Create(ctx context.Context, rec *records.Record) (string, error)

	// FindUserIDByEmail resolves a remote user ID by email, best-effort.
	// Any failure reports not-found rather than an error.
	FindUserIDByEmail(ctx context.Context, email string) (string, bool)
}

// FailureSink receives one entry per conflict or permanent failure.
type FailureSink interface {
	Append(e faillog.Entry) error
	Path() string
}

// RunResult holds the counters for one migration run.
//
// Counters are mutated only by the driver goroutine; there are no concurrent
// writers by construction.
type RunResult struct {
	Entity        records.Kind
	Total         int // records in this run, after the offset
	Migrated      int // created remotely
	AlreadyExists int // remote reported a conflict (422)
	Failed        int // validation or permanent gateway failures, all logged
	StartedAt     time.Time
	FinishedAt    time.Time
	LogPath       string
}

// Processed returns how many records reached a terminal state.
func (r *RunResult) Processed() int {
	return r.Migrated + r.AlreadyExists + r.Failed
}

// Engine drives exactly one record at a time to completion before the next
// record starts. Records are processed strictly in source order; throttling is
// global and sequential, and concurrent dispatch would defeat it.
type Engine struct {
	gateway  Gateway
	sink     FailureSink
	logger   *log.Logger
	delay    time.Duration
	cooldown time.Duration
}

// NewEngine creates a migration engine.
//
// delay is the fixed inter-record throttle; cooldown is the longer fixed wait
// after a rate-limit signal. Both may be zero (useful in tests).
func NewEngine(gateway Gateway, sink FailureSink, logger *log.Logger, delay, cooldown time.Duration) *Engine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Engine{
		gateway:  gateway,
		sink:     sink,
		logger:   logger,
		delay:    delay,
		cooldown: cooldown,
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks the run.
func (e *Engine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Run migrates raws in order and returns the run's counters.
//
// Cancellation aborts the run without corrupting its accounting: the context
// is checked before each record and inside both waits, a create aborted
// in flight is discarded uncounted and unlogged (its remote fate is unknown),
// and partial counters are returned with the context error. A failure-log
// write error also aborts the run; losing the audit trail is worse than
// crashing.
func (e *Engine) Run(ctx context.Context, kind records.Kind, raws []records.Raw, progress chan<- ProgressUpdate) (*RunResult, error) {
	if e.gateway == nil {
		return nil, fmt.Errorf("%w: gateway not initialized", shared.ErrInvalidArgument)
	}
	if e.sink == nil {
		return nil, fmt.Errorf("%w: failure sink not initialized", shared.ErrInvalidArgument)
	}

	result := &RunResult{
		Entity:    kind,
		Total:     len(raws),
		StartedAt: time.Now(),
		LogPath:   e.sink.Path(),
	}

	thr := newThrottle(e.delay)

	for i, raw := range raws {
		if err := ctx.Err(); err != nil {
			return e.finish(result), err
		}

		e.sendProgress(progress, throttleUpdate(i+1, result.Total))
		if err := thr.Wait(ctx); err != nil {
			return e.finish(result), err
		}

		rec, err := records.Parse(kind, raw)
		if err != nil {
			e.logger.Warn("record failed validation", "identifier", raw.Identifier(), "error", err)
			if aerr := e.logFailure(raw.Identifier(), kind, "validation", err); aerr != nil {
				return e.finish(result), aerr
			}
			result.Failed++
			e.sendProgress(progress, recordDoneUpdate(i+1, result.Total, raw.Identifier(), Failed))
			continue
		}

		if rec.Kind == records.KindOrganization && rec.OwnerEmail != "" {
			if ownerID, ok := e.gateway.FindUserIDByEmail(ctx, rec.OwnerEmail); ok {
				rec.OwnerID = ownerID
			}
		}

		outcome, err := e.create(ctx, rec, i+1, result.Total, progress)
		if err != nil {
			// cancellation during a create or cooldown wait, or a
			// failure-log write error
			return e.finish(result), err
		}

		switch outcome {
		case Created:
			result.Migrated++
		case AlreadyExists:
			result.AlreadyExists++
		case Failed:
			result.Failed++
		}

		e.sendProgress(progress, recordDoneUpdate(i+1, result.Total, rec.ExternalID, outcome))
	}

	res := e.finish(result)
	e.sendProgress(progress, runDoneUpdate(result.Total))
	return res, nil
}

// create invokes remote creation for one record, retrying on rate-limit with a
// fixed cooldown until the remote stops limiting. The retry is an explicit
// loop with an unbounded attempt count; the remote's rate-limit window is
// assumed fixed and known out of band, so there is no backoff and no jitter.
//
// Never returns [RateLimited]: that outcome is consumed by the retry loop.
func (e *Engine) create(ctx context.Context, rec *records.Record, index, total int, progress chan<- ProgressUpdate) (Outcome, error) {
	attempt := 0
	for {
		attempt++
		e.sendProgress(progress, createUpdate(index, total, rec.ExternalID))

		_, err := e.gateway.Create(ctx, rec)
		outcome := Classify(err)

		// A call aborted by cancellation is not a record failure: the
		// record's remote fate is unknown and must not reach the
		// counters or the failure log.
		if outcome == Failed && ctx.Err() != nil {
			return Failed, ctx.Err()
		}

		if outcome == RateLimited {
			e.logger.Info("rate limited, cooling down", "identifier", rec.ExternalID, "attempt", attempt, "cooldown", e.cooldown)
			e.sendProgress(progress, cooldownUpdate(index, total, attempt, e.cooldown))
			if werr := sleep(ctx, e.cooldown); werr != nil {
				return RateLimited, werr
			}
			continue
		}

		switch outcome {
		case AlreadyExists:
			e.logger.Info("record already exists remotely", "identifier", rec.ExternalID)
			if aerr := e.logFailure(rec.ExternalID, rec.Kind, "conflict", err); aerr != nil {
				return AlreadyExists, aerr
			}
		case Failed:
			e.logger.Error("record failed permanently", "identifier", rec.ExternalID, "error", err)
			if aerr := e.logFailure(rec.ExternalID, rec.Kind, "gateway", err); aerr != nil {
				return Failed, aerr
			}
		}

		return outcome, nil
	}
}

// logFailure appends one entry to the failure log; append errors are fatal.
func (e *Engine) logFailure(identifier string, kind records.Kind, reason string, cause error) error {
	entry := faillog.Entry{
		Identifier: identifier,
		Entity:     string(kind),
		Reason:     reason,
		Details:    cause.Error(),
		At:         time.Now(),
	}
	if err := e.sink.Append(entry); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrFailureLog, err)
	}
	return nil
}

func (e *Engine) finish(result *RunResult) *RunResult {
	result.FinishedAt = time.Now()
	return result
}
