package domain_test

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"worksim/internal/domain"
)

// TestTaskLedgerProperties checks spent + remaining == total and the
// completion rule after any sequence of WorkOn calls.
func TestTaskLedgerProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("task ledger stays balanced", prop.ForAll(
		func(total int, steps []int) bool {
			task := domain.NewTask("t", total)
			prev := task.Status()
			for _, m := range steps {
				task.WorkOn(m)
				if task.Spent()+task.Remaining() != total {
					return false
				}
				if (task.Status() == domain.TaskCompleted) != (task.Remaining() == 0) {
					return false
				}
				if rank(task.Status()) < rank(prev) {
					return false
				}
				prev = task.Status()
			}
			return true
		},
		gen.IntRange(1, 2000),
		gen.SliceOf(gen.IntRange(-60, 240)),
	))

	properties.TestingRun(t)
}

// TestEmployeeLedgerProperties checks the daily cap holds under any mix of
// task and idle bookings and that finalize lands exactly on the work day.
func TestEmployeeLedgerProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("daily ledgers never exceed the work day", prop.ForAll(
		func(steps []int) bool {
			e := domain.NewEmployee("e")
			task := domain.NewTask("t", 5000)
			e.AddTask(task)
			for i, m := range steps {
				if i%2 == 0 {
					e.WorkOnTask(task, m)
				} else {
					e.AddIdleTime(m)
				}
				if e.DailyTaskMinutes()+e.DailyIdleMinutes() > domain.WorkDayMinutes {
					return false
				}
			}
			e.FinalizeWorkDay()
			return e.DailyTaskMinutes()+e.DailyIdleMinutes() == domain.WorkDayMinutes &&
				e.TotalTaskMinutes() == e.DailyTaskMinutes() &&
				task.Spent() == e.TotalTaskMinutes()
		},
		gen.SliceOf(gen.IntRange(0, 120)),
	))

	properties.TestingRun(t)
}

func rank(s domain.TaskStatus) int {
	switch s {
	case domain.TaskNew:
		return 0
	case domain.TaskInProgress:
		return 1
	default:
		return 2
	}
}
