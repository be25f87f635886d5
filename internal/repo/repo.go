package repo

import (
	"context"
	"database/sql"
	"errors"

	"worksim/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

const runColumns = `id,status,seed,break_probability,employees,tasks,days,COALESCE(error,'') AS error,started_at,finished_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (domain.Run, error) {
	var r domain.Run
	var finished sql.NullString
	err := row.Scan(&r.ID, &r.Status, &r.Seed, &r.BreakProbability, &r.Employees, &r.Tasks, &r.Days, &r.Error, &r.StartedAt, &finished)
	if err == sql.ErrNoRows {
		return r, ErrNotFound
	}
	if finished.Valid {
		r.FinishedAt = &finished.String
	}
	return r, err
}

func (r Repo) InsertRunTx(ctx context.Context, tx *sql.Tx, run domain.Run) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO runs(id,status,seed,break_probability,employees,tasks,days,error,started_at,finished_at) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		run.ID, run.Status, run.Seed, run.BreakProbability, run.Employees, run.Tasks, run.Days, nullable(run.Error), run.StartedAt, nullableStringPtr(run.FinishedAt))
	return err
}

// FinishRunTx records the terminal status of a run.
func (r Repo) FinishRunTx(ctx context.Context, tx *sql.Tx, id, status string, days int, errMsg, finishedAt string) error {
	res, err := tx.ExecContext(ctx, `UPDATE runs SET status=?, days=?, error=?, finished_at=? WHERE id=?`,
		status, days, nullable(errMsg), finishedAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) GetRun(ctx context.Context, id string) (domain.Run, error) {
	return scanRun(r.DB.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id=?`, id))
}

// ListRuns returns the most recent runs first. limit <= 0 means all.
func (r Repo) ListRuns(ctx context.Context, limit int) ([]domain.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, id DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, run)
	}
	return res, rows.Err()
}

// InsertDayStatsTx stores one employee's day record together with the task
// snapshot and bumps the run's day counter.
func (r Repo) InsertDayStatsTx(ctx context.Context, tx *sql.Tx, s domain.DayStats) error {
	if _, err := tx.ExecContext(ctx, `INSERT INTO day_stats(run_id,day,employee,total_tasks,completed_tasks,task_minutes,idle_minutes,efficiency) VALUES (?,?,?,?,?,?,?,?)`,
		s.RunID, s.Day, s.Employee, s.TotalTasks, s.CompletedTasks, s.TaskMinutes, s.IdleMinutes, s.Efficiency); err != nil {
		return err
	}
	for i, t := range s.Tasks {
		if _, err := tx.ExecContext(ctx, `INSERT INTO task_progress(run_id,day,employee,position,task,total_minutes,remaining_minutes,spent_minutes,status) VALUES (?,?,?,?,?,?,?,?,?)`,
			s.RunID, s.Day, s.Employee, i, t.Name, t.TotalMinutes, t.RemainingMinutes, t.SpentMinutes, t.Status); err != nil {
			return err
		}
	}
	_, err := tx.ExecContext(ctx, `UPDATE runs SET days=MAX(days, ?) WHERE id=?`, s.Day, s.RunID)
	return err
}

// ListDayStats returns the run's records ordered by day then employee. day
// 0 selects every day.
func (r Repo) ListDayStats(ctx context.Context, runID string, day int) ([]domain.DayStats, error) {
	query := `SELECT run_id,day,employee,total_tasks,completed_tasks,task_minutes,idle_minutes,efficiency FROM day_stats WHERE run_id=?`
	args := []any{runID}
	if day > 0 {
		query += " AND day=?"
		args = append(args, day)
	}
	query += " ORDER BY day, employee"
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	var res []domain.DayStats
	for rows.Next() {
		var s domain.DayStats
		if err := rows.Scan(&s.RunID, &s.Day, &s.Employee, &s.TotalTasks, &s.CompletedTasks, &s.TaskMinutes, &s.IdleMinutes, &s.Efficiency); err != nil {
			rows.Close()
			return nil, err
		}
		res = append(res, s)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()
	for i := range res {
		tasks, err := r.listTaskProgress(ctx, runID, res[i].Day, res[i].Employee)
		if err != nil {
			return nil, err
		}
		res[i].Tasks = tasks
	}
	return res, nil
}

func (r Repo) listTaskProgress(ctx context.Context, runID string, day int, employee string) ([]domain.TaskProgress, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT task,employee,total_minutes,remaining_minutes,spent_minutes,status FROM task_progress WHERE run_id=? AND day=? AND employee=? ORDER BY position`,
		runID, day, employee)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.TaskProgress
	for rows.Next() {
		var t domain.TaskProgress
		if err := rows.Scan(&t.Name, &t.Employee, &t.TotalMinutes, &t.RemainingMinutes, &t.SpentMinutes, &t.Status); err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

func (r Repo) ListEvents(ctx context.Context, runID string) ([]domain.Event, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,ts,type,COALESCE(run_id,''),entity_kind,COALESCE(entity_id,''),payload_json FROM events WHERE run_id=? ORDER BY id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.RunID, &e.EntityKind, &e.EntityID, &e.Payload); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableStringPtr(v *string) any {
	if v == nil || *v == "" {
		return nil
	}
	return *v
}
