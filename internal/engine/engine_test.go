package engine_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"worksim/internal/config"
	"worksim/internal/domain"
	"worksim/internal/engine"
)

type breakFunc func(hour int) *domain.Break

func (f breakFunc) Next(hour int) *domain.Break { return f(hour) }

type recordingSink struct {
	days map[int][]domain.DayStats
	err  error
}

func (s *recordingSink) WriteDay(_ context.Context, day int, stats []domain.DayStats) error {
	if s.days == nil {
		s.days = map[int][]domain.DayStats{}
	}
	s.days[day] = stats
	return s.err
}

func testSettings(p float64) config.Simulation {
	return config.Simulation{
		Seed:             7,
		BreakProbability: p,
		HourTimeout:      2 * time.Second,
		JoinTimeout:      2 * time.Second,
	}
}

func newTestEngine(settings config.Simulation, sink engine.StatsSink) engine.Engine {
	e := engine.New(settings, sink)
	e.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return e
}

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

func employeeWith(name string, minutes ...int) *domain.Employee {
	e := domain.NewEmployee(name)
	for i, m := range minutes {
		e.AddTask(domain.NewTask(name+"-task-"+string(rune('a'+i)), m))
	}
	return e
}

func TestSingleTaskDayWithoutBreaks(t *testing.T) {
	emp := employeeWith("Ivan", 120)
	sim := newTestEngine(testSettings(0), nil).NewSimulation([]*domain.Employee{emp})

	res, err := sim.RunDay(context.Background())
	require.NoError(t, err)
	require.Empty(t, res.Anomalies)
	require.Equal(t, 1, res.Day)

	task := emp.Tasks()[0]
	require.Zero(t, task.Remaining())
	require.Equal(t, domain.TaskCompleted, task.Status())
	require.Equal(t, 120, emp.DailyTaskMinutes())
	require.Equal(t, 360, emp.DailyIdleMinutes())
	require.Equal(t, emp.DailyTaskMinutes(), emp.TotalTaskMinutes())
	require.Equal(t, emp.DailyIdleMinutes(), emp.TotalIdleMinutes())

	require.Len(t, res.Stats, 1)
	require.Equal(t, 1, res.Stats[0].CompletedTasks)
	require.InDelta(t, 25.0, res.Stats[0].Efficiency, 0.001)
}

func TestBreakSpanningHourBoundary(t *testing.T) {
	emp := employeeWith("Maria", 180, 600)
	type snapshot struct{ task, idle int }
	seen := map[int]snapshot{}

	eng := newTestEngine(testSettings(0), nil)
	eng.Breaks = func(_ int, e *domain.Employee) engine.BreakSource {
		return breakFunc(func(hour int) *domain.Break {
			seen[hour] = snapshot{e.DailyTaskMinutes(), e.DailyIdleMinutes()}
			if hour == 3 {
				return domain.NewBreak(domain.Meeting, 90)
			}
			return nil
		})
	}
	sim := eng.NewSimulation([]*domain.Employee{emp})
	_, err := sim.RunDay(context.Background())
	require.NoError(t, err)

	// Hour 4 is spent on the break's tail, so no break decision is taken.
	require.NotContains(t, seen, 4)
	require.Equal(t, snapshot{task: 120, idle: 0}, seen[3])
	require.Equal(t, snapshot{task: 150, idle: 90}, seen[5])

	require.Equal(t, 390, emp.DailyTaskMinutes())
	require.Equal(t, 90, emp.DailyIdleMinutes())
	require.False(t, emp.OnBreak())
	first, second := emp.Tasks()[0], emp.Tasks()[1]
	require.Equal(t, domain.TaskCompleted, first.Status())
	require.Equal(t, 210, second.Spent())
}

func TestEmployeeWithoutTasksIdlesAllDay(t *testing.T) {
	idle := domain.NewEmployee("Petr")
	busy := employeeWith("Anna", 600)
	sink := &recordingSink{}
	sim := newTestEngine(testSettings(0), sink).NewSimulation([]*domain.Employee{idle, busy})

	summary, err := sim.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, summary.Days)
	for day := 1; day <= 2; day++ {
		stats := sink.days[day]
		require.Len(t, stats, 2)
		require.Equal(t, "Petr", stats[0].Employee)
		require.Equal(t, 480, stats[0].IdleMinutes)
		require.Zero(t, stats[0].TaskMinutes)
		require.Zero(t, stats[0].Efficiency)
	}
	require.Equal(t, 960, idle.TotalIdleMinutes())
}

func TestDaysWithoutBreaksIsCeilOfWorkload(t *testing.T) {
	workloads := [][]int{
		{60},
		{480},
		{481},
		{90, 90, 90, 90, 90, 90},
		{1000, 440},
		{15, 700, 45, 1240},
	}
	for _, minutes := range workloads {
		total := 0
		for _, m := range minutes {
			total += m
		}
		want := (total + domain.WorkDayMinutes - 1) / domain.WorkDayMinutes

		emp := employeeWith("Sergey", minutes...)
		sim := newTestEngine(testSettings(0), nil).NewSimulation([]*domain.Employee{emp})
		summary, err := sim.Run(context.Background())
		require.NoError(t, err)
		require.Equal(t, want, summary.Days, "workload %v", minutes)
		require.Equal(t, total, emp.TotalTaskMinutes())
		require.Equal(t, want*domain.WorkDayMinutes, emp.TotalTaskMinutes()+emp.TotalIdleMinutes())
	}
}

func TestBreakSaturatedDayStarvesTasks(t *testing.T) {
	emp := employeeWith("Elena", 120)
	calls := 0
	eng := newTestEngine(testSettings(0), nil)
	eng.Breaks = func(int, *domain.Employee) engine.BreakSource {
		return breakFunc(func(int) *domain.Break {
			calls++
			if calls <= 8 {
				return domain.NewBreak(domain.Lunch, 60)
			}
			return nil
		})
	}
	sink := &recordingSink{}
	eng.Sink = sink
	summary, err := eng.NewSimulation([]*domain.Employee{emp}).Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, 2, summary.Days)
	day1 := sink.days[1][0]
	require.Zero(t, day1.TaskMinutes)
	require.Equal(t, 480, day1.IdleMinutes)
	require.Equal(t, "new", day1.Tasks[0].Status)
	require.Equal(t, 120, sink.days[2][0].TaskMinutes)
}

func TestDayLimitStopsSaturatedSimulation(t *testing.T) {
	emp := employeeWith("Dmitry", 60)
	settings := testSettings(0)
	settings.MaxDays = 3
	eng := newTestEngine(settings, nil)
	eng.Breaks = func(int, *domain.Employee) engine.BreakSource {
		return breakFunc(func(int) *domain.Break { return domain.NewBreak(domain.Lunch, 60) })
	}
	summary, err := eng.NewSimulation([]*domain.Employee{emp}).Run(context.Background())
	require.ErrorIs(t, err, engine.ErrDayLimit)
	require.Equal(t, 3, summary.Days)
	require.Equal(t, 3*480, summary.Employees[0].IdleMinutes)
}

func TestSinkFailuresAreNotFatal(t *testing.T) {
	emp := employeeWith("Olga", 900)
	sink := &recordingSink{err: errors.New("disk full")}
	summary, err := newTestEngine(testSettings(0), sink).NewSimulation([]*domain.Employee{emp}).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, summary.Days)
	require.Len(t, summary.SinkErrors, 2)
	require.Len(t, sink.days, 2)
}

func TestLedgersBalanceWithRandomBreaks(t *testing.T) {
	employees := []*domain.Employee{
		employeeWith("A", 300, 240, 120),
		employeeWith("B", 700),
		employeeWith("C"),
		employeeWith("D", 45, 45, 45, 600),
	}
	sink := &recordingSink{}
	summary, err := newTestEngine(testSettings(0.3), sink).NewSimulation(employees).Run(context.Background())
	require.NoError(t, err)
	require.Positive(t, summary.Days)
	for day, stats := range sink.days {
		for _, s := range stats {
			require.Equal(t, domain.WorkDayMinutes, s.TaskMinutes+s.IdleMinutes, "day %d %s", day, s.Employee)
		}
	}
	for _, e := range employees {
		require.True(t, e.AllTasksCompleted())
		for _, task := range e.Tasks() {
			require.Equal(t, task.TotalMinutes(), task.Spent()+task.Remaining())
		}
	}
}

func TestSeedReproducesSimulation(t *testing.T) {
	run := func() engine.Summary {
		employees := []*domain.Employee{employeeWith("A", 500, 300), employeeWith("B", 900)}
		summary, err := newTestEngine(testSettings(0.5), nil).NewSimulation(employees).Run(context.Background())
		require.NoError(t, err)
		return summary
	}
	require.Equal(t, run(), run())
}

func TestEmptyRosterFinishesImmediately(t *testing.T) {
	summary, err := newTestEngine(testSettings(0.1), nil).NewSimulation(nil).Run(context.Background())
	require.NoError(t, err)
	require.Zero(t, summary.Days)
}

func TestSlowWorkerIsReportedAndDayCompletes(t *testing.T) {
	slow := employeeWith("Slow", 900)
	fast := employeeWith("Fast", 900)
	settings := testSettings(0)
	settings.HourTimeout = 30 * time.Millisecond
	eng := newTestEngine(settings, nil)
	eng.Breaks = func(i int, _ *domain.Employee) engine.BreakSource {
		return breakFunc(func(hour int) *domain.Break {
			if i == 0 && hour == 3 {
				time.Sleep(150 * time.Millisecond)
			}
			return nil
		})
	}
	sim := eng.NewSimulation([]*domain.Employee{slow, fast})
	res, err := sim.RunDay(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, res.Anomalies)
	for _, a := range res.Anomalies {
		require.ErrorIs(t, a, engine.ErrSchedulingAnomaly)
	}
	require.Equal(t, 480, fast.DailyTaskMinutes())
	require.Equal(t, domain.WorkDayMinutes, slow.DailyTaskMinutes()+slow.DailyIdleMinutes())
	require.Less(t, slow.DailyTaskMinutes(), 480)
}

func TestUnresponsiveWorkerFailsDay(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	settings := testSettings(0)
	settings.HourTimeout = 10 * time.Millisecond
	settings.JoinTimeout = 30 * time.Millisecond
	eng := newTestEngine(settings, nil)
	eng.Breaks = func(int, *domain.Employee) engine.BreakSource {
		return breakFunc(func(hour int) *domain.Break {
			if hour == 2 {
				<-release
			}
			return nil
		})
	}
	sim := eng.NewSimulation([]*domain.Employee{employeeWith("Stuck", 600)})
	res, err := sim.RunDay(context.Background())
	require.ErrorIs(t, err, engine.ErrWorkerUnresponsive)
	require.NotEmpty(t, res.Anomalies)
	require.Empty(t, res.Stats)
}

func TestCancelledContextInterruptsDay(t *testing.T) {
	settings := testSettings(0)
	settings.HourInterval = 40 * time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(60*time.Millisecond, cancel)

	sim := newTestEngine(settings, nil).NewSimulation([]*domain.Employee{employeeWith("Anna", 2000)})
	_, err := sim.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRandomBreaks(t *testing.T) {
	never := engine.NewRandomBreaks(0, nil)
	for h := 1; h <= 8; h++ {
		require.Nil(t, never.Next(h))
	}
	always := engine.NewRandomBreaks(1, newRand(3))
	for h := 1; h <= 50; h++ {
		b := always.Next(h)
		require.NotNil(t, b)
		lo, hi := b.Type.Range()
		require.GreaterOrEqual(t, b.Duration, lo)
		require.LessOrEqual(t, b.Duration, hi)
		require.Equal(t, b.Duration, b.Remaining)
	}
}
