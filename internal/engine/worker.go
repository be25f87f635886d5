package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"worksim/internal/clock"
	"worksim/internal/domain"
)

const minutesPerHour = 60

// worker drives one employee through the hours of a single day. It is the
// only writer of that employee while the day runs.
type worker struct {
	employee *domain.Employee
	clock    clock.Reader
	breaks   BreakSource
	log      *slog.Logger

	lastHour int

	stop     chan struct{}
	stopOnce sync.Once
	acks     chan int
	done     chan struct{}
}

func newWorker(e *domain.Employee, c clock.Reader, breaks BreakSource, log *slog.Logger) *worker {
	return &worker{
		employee: e,
		clock:    c,
		breaks:   breaks,
		log:      log.With("employee", e.Name()),
		stop:     make(chan struct{}),
		acks:     make(chan int, clock.MaxHours+1),
		done:     make(chan struct{}),
	}
}

func (w *worker) run(ctx context.Context) {
	defer close(w.done)
	w.log.Debug("worker started")
	for {
		hour, ok := w.waitForHour(ctx)
		if !ok {
			break
		}
		w.processHour(hour)
		w.lastHour = hour
		select {
		case w.acks <- hour:
		default:
		}
	}
	w.log.Debug("worker stopped", "last_hour", w.lastHour)
}

// waitForHour is the only suspension point. It returns the newest hour once
// the clock moves past the last processed one, or false when the worker
// must stop.
func (w *worker) waitForHour(ctx context.Context) (int, bool) {
	for {
		changed := w.clock.Changed()
		if w.stopped(ctx) || !w.clock.Active() {
			return 0, false
		}
		if h := w.clock.Hour(); h > w.lastHour {
			return h, true
		}
		select {
		case <-changed:
		case <-w.stop:
			return 0, false
		case <-ctx.Done():
			return 0, false
		}
	}
}

func (w *worker) stopped(ctx context.Context) bool {
	select {
	case <-w.stop:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

func (w *worker) processHour(hour int) {
	e := w.employee
	budget := minutesPerHour
	if e.OnBreak() {
		budget -= w.continueBreak(hour, budget)
	} else if br := w.breaks.Next(hour); br != nil {
		e.StartBreak(br)
		w.log.Debug("break started", "hour", hour, "type", br.Type.String(), "minutes", br.Duration)
		budget -= w.continueBreak(hour, budget)
	}
	if budget > 0 {
		w.work(hour, budget)
	}
}

// continueBreak spends up to budget minutes of the current break as idle
// time and returns the minutes it took from the hour.
func (w *worker) continueBreak(hour, budget int) int {
	br := w.employee.CurrentBreak()
	used, finished := br.Consume(budget)
	w.employee.AddIdleTime(used)
	if finished {
		w.employee.EndBreak()
		w.log.Debug("break finished", "hour", hour, "type", br.Type.String())
	} else {
		w.log.Debug("break continues", "hour", hour, "type", br.Type.String(), "remaining", br.Remaining)
	}
	return used
}

// work spends the budget on the queue in FIFO order; whatever the queue
// cannot absorb is idle.
func (w *worker) work(hour, budget int) {
	e := w.employee
	e.SetWorking(true)
	defer e.SetWorking(false)
	for budget > 0 {
		task := e.NextTask()
		if task == nil {
			e.AddIdleTime(budget)
			w.log.Debug("idle", "hour", hour, "minutes", budget)
			return
		}
		applied := e.WorkOnTask(task, min(budget, task.Remaining()))
		if applied == 0 {
			return
		}
		budget -= applied
		if task.Completed() {
			w.log.Debug("task completed", "hour", hour, "task", task.Name())
		}
	}
}

func (w *worker) requestStop() {
	w.stopOnce.Do(func() { close(w.stop) })
}

// awaitHour waits until the worker acknowledges hour or the timeout fires.
func (w *worker) awaitHour(hour int, timeout time.Duration) bool {
	if w.drainAcks(hour) {
		return true
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case h := <-w.acks:
			if h >= hour {
				return true
			}
		case <-w.done:
			return w.drainAcks(hour)
		case <-timer.C:
			return w.drainAcks(hour)
		}
	}
}

// drainAcks consumes buffered acknowledgements without blocking.
func (w *worker) drainAcks(hour int) bool {
	for {
		select {
		case h := <-w.acks:
			if h >= hour {
				return true
			}
		default:
			return false
		}
	}
}

// join waits for the worker to exit until the deadline.
func (w *worker) join(deadline time.Time) bool {
	select {
	case <-w.done:
		return true
	default:
	}
	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()
	select {
	case <-w.done:
		return true
	case <-timer.C:
		return false
	}
}
