package main

import (
	"context"

	"github.com/urfave/cli/v3"
)

// RunsList prints recent run history, newest first.
func (r *Runner) RunsList(ctx context.Context, cmd *cli.Command) error {
	limit := int(cmd.Int("limit"))
	asJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")

	db, st, err := r.openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := st.ListRuns(ctx, limit)
	if err != nil {
		return err
	}

	if asJSON {
		return r.writeJSON(runs, pretty)
	}

	r.writePlainHeader("Migration Runs")
	if len(runs) == 0 {
		r.writePlain("no runs recorded\n")
		return nil
	}

	for _, run := range runs {
		r.writePlain("%s  %s  %s\n", run.StartedAt.Format("2006-01-02 15:04:05"), run.Entity, run.SourceFile)
		r.writePlain("  id: %s  offset: %d\n", run.ID, run.Offset)
		r.writePlain("  migrated: %d  already exists: %d  failed: %d\n", run.Migrated, run.AlreadyExists, run.Failed)
		if run.LogPath != "" {
			r.writePlain("  failures: %s\n", run.LogPath)
		}
	}

	return nil
}
