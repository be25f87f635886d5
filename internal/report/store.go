package report

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"worksim/internal/config"
	"worksim/internal/domain"
	"worksim/internal/engine"
	"worksim/internal/events"
	"worksim/internal/repo"
)

const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// Store records a run and its daily statistics in the workspace database.
type Store struct {
	Repo   repo.Repo
	Events events.Writer
	Now    func() time.Time

	runID string
}

func NewStore(conn *sql.DB) *Store {
	return &Store{Repo: repo.Repo{DB: conn}, Events: events.Writer{}, Now: time.Now}
}

func (s *Store) RunID() string { return s.runID }

func (s *Store) now() string {
	now := s.Now
	if now == nil {
		now = time.Now
	}
	return now().UTC().Format(time.RFC3339Nano)
}

// Begin inserts a running run and returns its id.
func (s *Store) Begin(ctx context.Context, settings config.Simulation, employees, tasks int) (string, error) {
	run := domain.Run{
		ID:               uuid.NewString(),
		Status:           RunRunning,
		Seed:             settings.Seed,
		BreakProbability: settings.BreakProbability,
		Employees:        employees,
		Tasks:            tasks,
		StartedAt:        s.now(),
	}
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if err := s.Repo.InsertRunTx(ctx, tx, run); err != nil {
			return fmt.Errorf("insert run: %w", err)
		}
		return s.Events.Append(ctx, tx, events.RunStarted, run.ID, "run", run.ID, events.Payload{
			"seed": run.Seed, "break_probability": run.BreakProbability,
			"employees": employees, "tasks": tasks,
		})
	})
	if err != nil {
		return "", err
	}
	s.runID = run.ID
	return run.ID, nil
}

func (s *Store) WriteDay(ctx context.Context, day int, stats []domain.DayStats) error {
	if s.runID == "" {
		return errors.New("store: run not started")
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		completed, total := 0, 0
		for _, st := range stats {
			st.RunID = s.runID
			if err := s.Repo.InsertDayStatsTx(ctx, tx, st); err != nil {
				return fmt.Errorf("insert day %d stats for %s: %w", day, st.Employee, err)
			}
			completed += st.CompletedTasks
			total += st.TotalTasks
		}
		return s.Events.Append(ctx, tx, events.DayCompleted, s.runID, "day", fmt.Sprint(day), events.Payload{
			"day": day, "completed_tasks": completed, "total_tasks": total,
		})
	})
}

// Finish marks the run completed, or failed when runErr is set.
func (s *Store) Finish(ctx context.Context, summary engine.Summary, runErr error) error {
	if s.runID == "" {
		return errors.New("store: run not started")
	}
	status, evt, msg := RunCompleted, events.RunCompleted, ""
	if runErr != nil {
		status, evt, msg = RunFailed, events.RunFailed, runErr.Error()
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := s.Repo.FinishRunTx(ctx, tx, s.runID, status, summary.Days, msg, s.now()); err != nil {
			return fmt.Errorf("finish run: %w", err)
		}
		payload := events.Payload{"days": summary.Days, "anomalies": summary.Anomalies}
		if msg != "" {
			payload["error"] = msg
		}
		return s.Events.Append(ctx, tx, evt, s.runID, "run", s.runID, payload)
	})
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.Repo.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
