package roster

import (
	"fmt"
	"math/rand/v2"

	"worksim/internal/config"
)

var (
	sampleNames     = []string{"Ivan", "Maria", "Petr", "Anna", "Sergey", "Olga", "Dmitry", "Elena"}
	samplePositions = []string{"Developer", "Tester", "Analyst", "DevOps"}
	sampleTasks     = []string{
		"Requirements review", "API design", "Database schema", "Login page",
		"Payment integration", "Load testing", "CI pipeline", "Release notes",
		"Bug triage", "Monitoring setup", "Code review", "Documentation",
	}
)

// Sample builds a random roster: every employee gets two or three tasks of
// one to fifteen hours, and no task is shared.
func Sample(rng *rand.Rand, employees int) config.Roster {
	var r config.Roster
	taskID := 0
	for i := 1; i <= employees; i++ {
		name := sampleNames[(i-1)%len(sampleNames)]
		if i > len(sampleNames) {
			name = fmt.Sprintf("%s %d", name, (i-1)/len(sampleNames)+1)
		}
		r.Employees = append(r.Employees, config.EmployeeSpec{
			ID:       i,
			Name:     name,
			Position: samplePositions[rng.IntN(len(samplePositions))],
		})
		for n := 2 + rng.IntN(2); n > 0; n-- {
			taskID++
			r.Tasks = append(r.Tasks, config.TaskSpec{
				ID:    taskID,
				Name:  sampleTasks[(taskID-1)%len(sampleTasks)] + fmt.Sprintf(" #%d", taskID),
				Hours: 1 + rng.IntN(15),
			})
			r.Assignments = append(r.Assignments, config.Assignment{Employee: i, Task: taskID})
		}
	}
	return r
}
