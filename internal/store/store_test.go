package store

import (
	"context"
	"testing"
	"time"

	"idmigrate/internal/shared"
)

func testStore(t *testing.T) *Store {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return New(db)
}

func testRun(id string, startedAt time.Time) *Run {
	return &Run{
		ID:            id,
		Entity:        "users",
		SourceFile:    "users.json",
		Offset:        0,
		Migrated:      2,
		AlreadyExists: 1,
		Failed:        1,
		LogPath:       "failures_users_20260314-092653_" + id + ".log",
		StartedAt:     startedAt,
		FinishedAt:    startedAt.Add(5 * time.Second),
	}
}

func TestStore(t *testing.T) {
	t.Run("SaveRun and ListRuns", func(t *testing.T) {
		st := testStore(t)
		ctx := context.Background()
		base := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

		for i, id := range []string{"run-1", "run-2", "run-3"} {
			run := testRun(id, base.Add(time.Duration(i)*time.Minute))
			if err := st.SaveRun(ctx, run); err != nil {
				t.Fatalf("SaveRun failed: %v", err)
			}
		}

		runs, err := st.ListRuns(ctx, 10)
		if err != nil {
			t.Fatalf("ListRuns failed: %v", err)
		}

		if len(runs) != 3 {
			t.Fatalf("expected 3 runs, got %d", len(runs))
		}
		if runs[0].ID != "run-3" {
			t.Errorf("expected newest run first, got %s", runs[0].ID)
		}
		if runs[0].Migrated != 2 || runs[0].AlreadyExists != 1 || runs[0].Failed != 1 {
			t.Errorf("unexpected counters: %+v", runs[0])
		}
	})

	t.Run("ListRuns respects limit", func(t *testing.T) {
		st := testStore(t)
		ctx := context.Background()
		base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

		for i, id := range []string{"run-1", "run-2", "run-3"} {
			if err := st.SaveRun(ctx, testRun(id, base.Add(time.Duration(i)*time.Minute))); err != nil {
				t.Fatalf("SaveRun failed: %v", err)
			}
		}

		runs, err := st.ListRuns(ctx, 2)
		if err != nil {
			t.Fatalf("ListRuns failed: %v", err)
		}
		if len(runs) != 2 {
			t.Errorf("expected 2 runs, got %d", len(runs))
		}
	})

	t.Run("non-positive limit defaults", func(t *testing.T) {
		st := testStore(t)

		runs, err := st.ListRuns(context.Background(), 0)
		if err != nil {
			t.Fatalf("ListRuns failed: %v", err)
		}
		if len(runs) != 0 {
			t.Errorf("expected empty history, got %d runs", len(runs))
		}
	})

	t.Run("duplicate run IDs are rejected", func(t *testing.T) {
		st := testStore(t)
		ctx := context.Background()
		run := testRun("run-1", time.Now())

		if err := st.SaveRun(ctx, run); err != nil {
			t.Fatalf("SaveRun failed: %v", err)
		}
		if err := st.SaveRun(ctx, run); err == nil {
			t.Error("expected duplicate insert to fail")
		}
	})
}
