package repo_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"worksim/internal/db"
	"worksim/internal/domain"
	"worksim/internal/migrate"
	"worksim/internal/repo"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func withTx(t *testing.T, conn *sql.DB, fn func(tx *sql.Tx) error) {
	t.Helper()
	tx, err := conn.BeginTx(context.Background(), nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		t.Fatalf("tx: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func TestRunLifecycle(t *testing.T) {
	ctx := context.Background()
	conn := openTestDB(t)
	r := repo.Repo{DB: conn}

	first := domain.Run{ID: "run-1", Status: "running", Seed: 7, BreakProbability: 0.1, Employees: 2, Tasks: 3, StartedAt: "2026-01-01T09:00:00Z"}
	second := domain.Run{ID: "run-2", Status: "running", Seed: 8, Employees: 1, Tasks: 1, StartedAt: "2026-01-02T09:00:00Z"}
	withTx(t, conn, func(tx *sql.Tx) error {
		if err := r.InsertRunTx(ctx, tx, first); err != nil {
			return err
		}
		return r.InsertRunTx(ctx, tx, second)
	})

	stats := domain.DayStats{
		RunID: "run-1", Day: 1, Employee: "Ivan", TotalTasks: 2, CompletedTasks: 1,
		TaskMinutes: 420, IdleMinutes: 60, Efficiency: 87.5,
		Tasks: []domain.TaskProgress{
			{Name: "A", Employee: "Ivan", TotalMinutes: 180, SpentMinutes: 180, Status: "completed"},
			{Name: "B", Employee: "Ivan", TotalMinutes: 300, RemainingMinutes: 60, SpentMinutes: 240, Status: "in_progress"},
		},
	}
	withTx(t, conn, func(tx *sql.Tx) error {
		if err := r.InsertDayStatsTx(ctx, tx, stats); err != nil {
			return err
		}
		return r.FinishRunTx(ctx, tx, "run-1", "completed", 1, "", "2026-01-01T17:00:00Z")
	})

	got, err := r.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if got.Status != "completed" || got.Days != 1 || got.FinishedAt == nil {
		t.Fatalf("unexpected run: %+v", got)
	}

	runs, err := r.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "run-2" {
		t.Fatalf("expected newest run first, got %+v", runs)
	}
	if runs, _ := r.ListRuns(ctx, 1); len(runs) != 1 {
		t.Fatalf("expected limit to apply, got %d runs", len(runs))
	}

	days, err := r.ListDayStats(ctx, "run-1", 0)
	if err != nil {
		t.Fatalf("list day stats: %v", err)
	}
	if len(days) != 1 || days[0].TaskMinutes != 420 || len(days[0].Tasks) != 2 {
		t.Fatalf("unexpected day stats: %+v", days)
	}
	if days[0].Tasks[1].Name != "B" || days[0].Tasks[1].RemainingMinutes != 60 {
		t.Fatalf("unexpected task snapshot: %+v", days[0].Tasks)
	}
	if none, _ := r.ListDayStats(ctx, "run-1", 2); len(none) != 0 {
		t.Fatalf("expected no stats for day 2, got %+v", none)
	}
}

func TestNotFound(t *testing.T) {
	ctx := context.Background()
	conn := openTestDB(t)
	r := repo.Repo{DB: conn}
	if _, err := r.GetRun(ctx, "missing"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx.Rollback()
	if err := r.FinishRunTx(ctx, tx, "missing", "failed", 0, "boom", "2026-01-01T00:00:00Z"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	conn := openTestDB(t)
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}
