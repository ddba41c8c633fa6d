package main

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"idmigrate/internal/faillog"
	"idmigrate/internal/migrate"
	"idmigrate/internal/records"
	"idmigrate/internal/shared"
	"idmigrate/internal/source"
	"idmigrate/internal/store"
	"idmigrate/internal/ui"
)

// ImportUsers imports user records from a legacy export file.
func (r *Runner) ImportUsers(ctx context.Context, cmd *cli.Command) error {
	return r.importEntities(ctx, cmd, records.KindUser, "users.json")
}

// ImportOrgs imports organization records from a legacy export file.
func (r *Runner) ImportOrgs(ctx context.Context, cmd *cli.Command) error {
	return r.importEntities(ctx, cmd, records.KindOrganization, "organizations.json")
}

// importEntities is the shared import action for both entity kinds.
//
// Startup preconditions (credential present, sandbox guard) are checked before
// any record is touched; failures exit non-zero with nothing processed. The
// summary is printed even when the run is interrupted, and the run is recorded
// in history whenever any records were read.
func (r *Runner) importEntities(ctx context.Context, cmd *cli.Command, kind records.Kind, defaultFile string) error {
	cfg := r.config

	if cmd.IsSet("offset") {
		cfg.Migration.Offset = int(cmd.Int("offset"))
	}
	if cmd.IsSet("delay-ms") {
		cfg.Migration.DelayMS = int(cmd.Int("delay-ms"))
	}
	if cmd.IsSet("cooldown-ms") {
		cfg.Migration.CooldownMS = int(cmd.Int("cooldown-ms"))
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	path := cmd.StringArg("file")
	if path == "" {
		path = defaultFile
	}

	offset := cfg.Migration.Offset
	raws, err := source.Load(path, offset)
	if err != nil {
		return err
	}

	r.logger.Info("starting import", "entity", kind.Plural(), "file", path, "records", len(raws), "offset", offset)

	startedAt := time.Now()
	runID := shared.GenerateRunID()
	sink := faillog.NewSink(cfg.Logs.Dir, string(kind), startedAt, runID)
	defer sink.Close()

	engine := migrate.NewEngine(r.gateway, sink, r.logger, cfg.Delay(), cfg.Cooldown())

	var result *migrate.RunResult
	var runErr error

	if cmd.Bool("tui") {
		result, runErr = r.runWithTUI(ctx, engine, kind, raws)
	} else {
		result, runErr = r.runPlain(ctx, engine, kind, raws)
	}

	if result == nil {
		return runErr
	}

	r.writePlain("\n%d %s migrated\n", result.Migrated, kind.Plural())
	r.writePlain("%d %s failed to upload\n", result.AlreadyExists, kind.Plural())
	if result.Failed > 0 {
		r.logger.Warn("permanent failures logged", "count", result.Failed, "log", result.LogPath)
	}

	r.recordRun(&store.Run{
		ID:            runID,
		Entity:        string(kind),
		SourceFile:    path,
		Offset:        offset,
		Migrated:      result.Migrated,
		AlreadyExists: result.AlreadyExists,
		Failed:        result.Failed,
		LogPath:       result.LogPath,
		StartedAt:     result.StartedAt,
		FinishedAt:    result.FinishedAt,
	})

	return runErr
}

// runPlain drives the engine with plain console progress lines.
func (r *Runner) runPlain(ctx context.Context, engine *migrate.Engine, kind records.Kind, raws []records.Raw) (*migrate.RunResult, error) {
	progressCh := make(chan migrate.ProgressUpdate, 50)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case migrate.Cooldown:
				r.writePlain("⏳ %s\n", update.Message)
			case migrate.RecordDone:
				r.writePlain("  %s\n", update.Message)
			}
		}
	}()

	result, err := engine.Run(ctx, kind, raws, progressCh)
	close(progressCh)
	<-done
	return result, err
}

// runWithTUI drives the engine behind the interactive progress view.
//
// The program can exit before the run does (quit key, SIGINT); the run is
// cancelled then, and Result blocks until the engine hands back its partial
// counters so the summary and history are never skipped.
func (r *Runner) runWithTUI(ctx context.Context, engine *migrate.Engine, kind records.Kind, raws []records.Raw) (*migrate.RunResult, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := ui.NewModel(kind.Plural(), func(progress chan<- migrate.ProgressUpdate) (*migrate.RunResult, error) {
		return engine.Run(runCtx, kind, raws, progress)
	})

	if _, err := tea.NewProgram(model, tea.WithContext(ctx)).Run(); err != nil {
		r.logger.Warn("progress view exited", "error", err)
	}

	cancel()
	return model.Result()
}
