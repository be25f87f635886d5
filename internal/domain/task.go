package domain

import "fmt"

type TaskStatus string

const (
	TaskNew        TaskStatus = "new"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
)

// Task is a unit of work with a fixed total duration. Progress survives
// across simulated days.
type Task struct {
	name      string
	total     int
	remaining int
	spent     int
	status    TaskStatus
	assignee  string
}

func NewTask(name string, minutes int) *Task {
	if minutes < 0 {
		minutes = 0
	}
	t := &Task{
		name:      name,
		total:     minutes,
		remaining: minutes,
		status:    TaskNew,
	}
	if minutes == 0 {
		t.status = TaskCompleted
	}
	return t
}

func (t *Task) Name() string       { return t.name }
func (t *Task) TotalMinutes() int  { return t.total }
func (t *Task) Remaining() int     { return t.remaining }
func (t *Task) Spent() int         { return t.spent }
func (t *Task) Status() TaskStatus { return t.status }
func (t *Task) Assignee() string   { return t.assignee }
func (t *Task) Completed() bool    { return t.status == TaskCompleted }

// WorkOn applies up to minutes of effort and returns how many were applied.
// Completed tasks and non-positive amounts are left untouched.
func (t *Task) WorkOn(minutes int) int {
	if t.status == TaskCompleted || minutes <= 0 {
		return 0
	}
	applied := min(minutes, t.remaining)
	t.status = TaskInProgress
	t.remaining -= applied
	t.spent += applied
	if t.remaining == 0 {
		t.status = TaskCompleted
	}
	return applied
}

// Progress returns a copy of the task ledger.
func (t *Task) Progress() TaskProgress {
	return TaskProgress{
		Name:             t.name,
		Employee:         t.assignee,
		TotalMinutes:     t.total,
		RemainingMinutes: t.remaining,
		SpentMinutes:     t.spent,
		Status:           string(t.status),
	}
}

func (t *Task) String() string {
	return fmt.Sprintf("%s [%s] %s of %s", t.name, t.status, FormatMinutes(t.spent), FormatMinutes(t.total))
}

// FormatMinutes renders a duration as "2h 15m", "3h" or "45m".
func FormatMinutes(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	h, m := minutes/60, minutes%60
	if m == 0 {
		return fmt.Sprintf("%dh", h)
	}
	return fmt.Sprintf("%dh %dm", h, m)
}
