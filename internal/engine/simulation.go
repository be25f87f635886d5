package engine

import (
	"context"
	"fmt"
	"time"

	"worksim/internal/clock"
	"worksim/internal/domain"
)

// Simulation repeats work days over a fixed roster until every task is done.
// Break sources live as long as the simulation so random streams continue
// from one day to the next.
type Simulation struct {
	engine    Engine
	employees []*domain.Employee
	breaks    []BreakSource
	day       int
}

func (e Engine) NewSimulation(employees []*domain.Employee) *Simulation {
	factory := e.Breaks
	if factory == nil {
		factory = randomBreakFactory(e.Settings.BreakProbability, e.seed())
	}
	breaks := make([]BreakSource, len(employees))
	for i, emp := range employees {
		breaks[i] = factory(i, emp)
		if breaks[i] == nil {
			breaks[i] = NoBreaks{}
		}
	}
	return &Simulation{engine: e, employees: employees, breaks: breaks}
}

// Day is the number of the last day started.
func (s *Simulation) Day() int { return s.day }

func (s *Simulation) Employees() []*domain.Employee { return s.employees }

func (s *Simulation) AllTasksCompleted() bool {
	for _, e := range s.employees {
		if !e.AllTasksCompleted() {
			return false
		}
	}
	return true
}

// RunDay runs one work day: start the clock, spawn a worker per employee,
// drive the hours, stop and join the workers, finalize the ledgers.
func (s *Simulation) RunDay(ctx context.Context) (DayResult, error) {
	s.day++
	day := s.day
	settings := s.engine.settings()
	log := s.engine.logger().With("day", day)
	result := DayResult{Day: day}

	clk := clock.New()
	clk.Start()
	workerCtx, forceStop := context.WithCancel(ctx)
	defer forceStop()

	workers := make([]*worker, len(s.employees))
	for i, emp := range s.employees {
		workers[i] = newWorker(emp, clk, s.breaks[i], log)
		go workers[i].run(workerCtx)
	}
	log.Info("work day started", "employees", len(workers))

	var interrupted error
	limiter := s.engine.limiter()
	for !clk.IsDayComplete() {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				interrupted = err
				break
			}
		}
		if err := ctx.Err(); err != nil {
			interrupted = err
			break
		}
		if !clk.Advance() {
			break
		}
		hour := clk.Hour()
		deadline := time.Now().Add(settings.HourTimeout)
		for _, w := range workers {
			if !w.awaitHour(hour, time.Until(deadline)) {
				err := fmt.Errorf("%w: %s did not process hour %d within %s", ErrSchedulingAnomaly, w.employee.Name(), hour, settings.HourTimeout)
				log.Warn("worker missed hour", "employee", w.employee.Name(), "hour", hour)
				result.Anomalies = append(result.Anomalies, err)
			}
		}
	}

	clk.Stop()
	for _, w := range workers {
		w.requestStop()
	}
	if err := s.join(workers, forceStop, settings.JoinTimeout, &result); err != nil {
		log.Error("work day aborted", "error", err)
		return result, err
	}
	if interrupted != nil {
		return result, fmt.Errorf("day %d interrupted: %w", day, interrupted)
	}

	for _, emp := range s.employees {
		emp.FinalizeWorkDay()
		result.Stats = append(result.Stats, emp.DayStats(day))
	}
	log.Info("work day finished", "anomalies", len(result.Anomalies))
	return result, nil
}

// join waits for every worker until a shared deadline. Stragglers get a
// forced stop through their context and one more timeout to exit.
func (s *Simulation) join(workers []*worker, forceStop context.CancelFunc, timeout time.Duration, result *DayResult) error {
	deadline := time.Now().Add(timeout)
	var stuck []*worker
	for _, w := range workers {
		if !w.join(deadline) {
			stuck = append(stuck, w)
		}
	}
	if len(stuck) == 0 {
		return nil
	}
	forceStop()
	deadline = time.Now().Add(timeout)
	for _, w := range stuck {
		name := w.employee.Name()
		result.Anomalies = append(result.Anomalies, fmt.Errorf("%w: %s did not stop within %s", ErrSchedulingAnomaly, name, timeout))
		s.engine.logger().Warn("forcing worker stop", "day", result.Day, "employee", name)
		if !w.join(deadline) {
			return fmt.Errorf("day %d: %w: %s", result.Day, ErrWorkerUnresponsive, name)
		}
	}
	return nil
}

// Run repeats days until every task is completed. Each day starts with
// fresh daily ledgers; task progress carries over. Sink failures are logged
// and collected without stopping the loop.
func (s *Simulation) Run(ctx context.Context) (Summary, error) {
	log := s.engine.logger()
	settings := s.engine.settings()
	var summary Summary
	for !s.AllTasksCompleted() {
		if err := ctx.Err(); err != nil {
			return s.summarize(summary), err
		}
		if settings.MaxDays > 0 && s.day >= settings.MaxDays {
			return s.summarize(summary), fmt.Errorf("%w: %d days", ErrDayLimit, settings.MaxDays)
		}
		for _, e := range s.employees {
			e.ResetDailyStats()
		}
		res, err := s.RunDay(ctx)
		if err != nil {
			return s.summarize(summary), err
		}
		summary.Anomalies += len(res.Anomalies)
		if s.engine.Sink != nil {
			if err := s.engine.Sink.WriteDay(ctx, res.Day, res.Stats); err != nil {
				log.Error("saving day statistics failed", "day", res.Day, "error", err)
				summary.SinkErrors = append(summary.SinkErrors, fmt.Errorf("day %d: %w", res.Day, err))
			}
		}
		completed, total := Progress(s.employees)
		log.Info("progress", "day", res.Day, "completed", completed, "total", total)
	}
	log.Info("all tasks completed", "days", s.day)
	return s.summarize(summary), nil
}

func (s *Simulation) summarize(summary Summary) Summary {
	summary.Days = s.day
	summary.Employees = summary.Employees[:0]
	for _, e := range s.employees {
		summary.Employees = append(summary.Employees, e.Summary())
	}
	return summary
}
