package domain

// WorkDayMinutes is the hard daily budget of every employee.
const WorkDayMinutes = 8 * 60

// Employee owns a FIFO task queue and its time ledgers. During a day it is
// mutated only by its own worker; everyone else reads it after the worker
// has been joined.
type Employee struct {
	name  string
	tasks []*Task

	taskMinutes int
	idleMinutes int

	taskMinutesAll int
	idleMinutesAll int

	working      bool
	currentBreak *Break
}

func NewEmployee(name string) *Employee {
	return &Employee{name: name}
}

func (e *Employee) Name() string { return e.name }

// Tasks returns the queue in insertion order.
func (e *Employee) Tasks() []*Task {
	out := make([]*Task, len(e.tasks))
	copy(out, e.tasks)
	return out
}

func (e *Employee) AddTask(t *Task) {
	t.assignee = e.name
	e.tasks = append(e.tasks, t)
}

// NextTask returns the first task that is not completed, or nil.
func (e *Employee) NextTask() *Task {
	for _, t := range e.tasks {
		if !t.Completed() {
			return t
		}
	}
	return nil
}

// unaccounted is what is left of today's budget.
func (e *Employee) unaccounted() int {
	return max(0, WorkDayMinutes-e.taskMinutes-e.idleMinutes)
}

// WorkOnTask spends minutes on one of the employee's own tasks, clamped to
// the remaining daily budget. It returns the minutes actually worked.
func (e *Employee) WorkOnTask(t *Task, minutes int) int {
	if t == nil || t.assignee != e.name {
		return 0
	}
	applied := t.WorkOn(min(minutes, e.unaccounted()))
	e.taskMinutes += applied
	return applied
}

// AddIdleTime books idle or break minutes, clamped to the remaining daily
// budget. It returns the minutes booked.
func (e *Employee) AddIdleTime(minutes int) int {
	if minutes <= 0 {
		return 0
	}
	booked := min(minutes, e.unaccounted())
	e.idleMinutes += booked
	return booked
}

// FinalizeWorkDay folds any unaccounted minutes into idle time and adds the
// daily ledgers to the cumulative ones.
func (e *Employee) FinalizeWorkDay() {
	e.idleMinutes += e.unaccounted()
	e.taskMinutesAll += e.taskMinutes
	e.idleMinutesAll += e.idleMinutes
	e.working = false
}

// ResetDailyStats zeroes the daily ledgers. Queue, task progress and any
// break in progress are kept.
func (e *Employee) ResetDailyStats() {
	e.taskMinutes = 0
	e.idleMinutes = 0
}

func (e *Employee) StartBreak(b *Break) {
	b.Active = true
	e.currentBreak = b
	e.working = false
}

func (e *Employee) EndBreak() {
	if e.currentBreak != nil {
		e.currentBreak.Active = false
		e.currentBreak = nil
	}
}

func (e *Employee) OnBreak() bool {
	return e.currentBreak != nil && e.currentBreak.Active
}

func (e *Employee) CurrentBreak() *Break { return e.currentBreak }

func (e *Employee) SetWorking(working bool) { e.working = working }
func (e *Employee) Working() bool           { return e.working }

func (e *Employee) DailyTaskMinutes() int { return e.taskMinutes }
func (e *Employee) DailyIdleMinutes() int { return e.idleMinutes }
func (e *Employee) TotalTaskMinutes() int { return e.taskMinutesAll }
func (e *Employee) TotalIdleMinutes() int { return e.idleMinutesAll }

func (e *Employee) TotalTasks() int { return len(e.tasks) }

func (e *Employee) CompletedTasks() int {
	n := 0
	for _, t := range e.tasks {
		if t.Completed() {
			n++
		}
	}
	return n
}

// AllTasksCompleted is true for an empty queue as well.
func (e *Employee) AllTasksCompleted() bool {
	return e.NextTask() == nil
}

// Efficiency is today's task time as a percentage of the work day.
func (e *Employee) Efficiency() float64 {
	return float64(e.taskMinutes) / WorkDayMinutes * 100
}

// TotalEfficiency is cumulative task time over all booked time.
func (e *Employee) TotalEfficiency() float64 {
	total := e.taskMinutesAll + e.idleMinutesAll
	if total == 0 {
		return 0
	}
	return float64(e.taskMinutesAll) / float64(total) * 100
}

// DayStats snapshots the daily ledgers for the given day.
func (e *Employee) DayStats(day int) DayStats {
	return DayStats{
		Day:            day,
		Employee:       e.name,
		TotalTasks:     e.TotalTasks(),
		CompletedTasks: e.CompletedTasks(),
		TaskMinutes:    e.taskMinutes,
		IdleMinutes:    e.idleMinutes,
		Efficiency:     e.Efficiency(),
		Tasks:          e.progress(),
	}
}

// Summary snapshots the cumulative ledgers.
func (e *Employee) Summary() EmployeeSummary {
	return EmployeeSummary{
		Employee:       e.name,
		TotalTasks:     e.TotalTasks(),
		CompletedTasks: e.CompletedTasks(),
		TaskMinutes:    e.taskMinutesAll,
		IdleMinutes:    e.idleMinutesAll,
		Efficiency:     e.TotalEfficiency(),
		Tasks:          e.progress(),
	}
}

func (e *Employee) progress() []TaskProgress {
	out := make([]TaskProgress, 0, len(e.tasks))
	for _, t := range e.tasks {
		out = append(out, t.Progress())
	}
	return out
}
