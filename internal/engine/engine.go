package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"worksim/internal/config"
	"worksim/internal/domain"
)

var (
	// ErrSchedulingAnomaly marks a worker that missed an hour or did not
	// stop in time. The day still completes.
	ErrSchedulingAnomaly = errors.New("scheduling anomaly")
	// ErrWorkerUnresponsive is returned when a worker ignores a forced stop;
	// its employee cannot be finalized safely.
	ErrWorkerUnresponsive = errors.New("worker unresponsive")
	// ErrDayLimit stops a simulation that exceeds simulation.max_days.
	ErrDayLimit = errors.New("day limit reached")
)

// StatsSink receives the finalized per-employee records of every day.
type StatsSink interface {
	WriteDay(ctx context.Context, day int, stats []domain.DayStats) error
}

// BreakFactory builds the break source of the employee at index.
type BreakFactory func(index int, employee *domain.Employee) BreakSource

// Engine wires settings, randomness, statistics output and logging for
// simulations.
type Engine struct {
	Settings config.Simulation
	Breaks   BreakFactory
	Sink     StatsSink
	Logger   *slog.Logger
	Now      func() time.Time
}

func New(settings config.Simulation, sink StatsSink) Engine {
	return Engine{
		Settings: settings.WithDefaults(),
		Sink:     sink,
		Logger:   slog.Default().With("component", "engine"),
		Now:      time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

func (e Engine) settings() config.Simulation {
	return e.Settings.WithDefaults()
}

// seed resolves the master seed; 0 draws one from the clock.
func (e Engine) seed() uint64 {
	if e.Settings.Seed != 0 {
		return uint64(e.Settings.Seed)
	}
	return uint64(e.now().UnixNano())
}

// limiter paces hours when an interval is configured.
func (e Engine) limiter() *rate.Limiter {
	if e.Settings.HourInterval <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(e.Settings.HourInterval), 1)
}

// DayResult is the outcome of one simulated day.
type DayResult struct {
	Day       int               `json:"day"`
	Stats     []domain.DayStats `json:"stats"`
	Anomalies []error           `json:"-"`
}

// Summary is the outcome of a multi-day simulation.
type Summary struct {
	Days       int                      `json:"days"`
	Anomalies  int                      `json:"anomalies"`
	SinkErrors []error                  `json:"-"`
	Employees  []domain.EmployeeSummary `json:"employees"`
}

// Progress counts completed and total tasks across employees.
func Progress(employees []*domain.Employee) (completed, total int) {
	for _, e := range employees {
		completed += e.CompletedTasks()
		total += e.TotalTasks()
	}
	return completed, total
}
