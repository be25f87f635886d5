// Package roster turns roster input into employees with their task queues.
package roster

import (
	"fmt"
	"path/filepath"
	"strings"

	"worksim/internal/config"
	"worksim/internal/domain"
)

// Build validates r and returns one employee per entry, in roster order.
// Tasks are queued in assignment order; unassigned tasks are left out.
func Build(r config.Roster) ([]*domain.Employee, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	byID := make(map[int]*domain.Employee, len(r.Employees))
	employees := make([]*domain.Employee, 0, len(r.Employees))
	for _, spec := range r.Employees {
		e := domain.NewEmployee(spec.Name)
		byID[spec.ID] = e
		employees = append(employees, e)
	}
	tasks := make(map[int]config.TaskSpec, len(r.Tasks))
	for _, t := range r.Tasks {
		tasks[t.ID] = t
	}
	for _, a := range r.Assignments {
		t := tasks[a.Task]
		byID[a.Employee].AddTask(domain.NewTask(t.Name, t.DurationMinutes()))
	}
	return employees, nil
}

// Unassigned lists the names of tasks no assignment refers to.
func Unassigned(r config.Roster) []string {
	assigned := make(map[int]bool, len(r.Assignments))
	for _, a := range r.Assignments {
		assigned[a.Task] = true
	}
	var names []string
	for _, t := range r.Tasks {
		if !assigned[t.ID] {
			names = append(names, t.Name)
		}
	}
	return names
}

// IsWorkbook reports whether path names an xlsx roster.
func IsWorkbook(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".xlsx")
}

// Load reads a roster from an xlsx workbook or a worksim.yml file. The
// simulation block of a yaml file is returned too; workbooks carry none.
func Load(path string) (config.Roster, *config.Simulation, error) {
	if IsWorkbook(path) {
		r, err := LoadWorkbook(path)
		return r, nil, err
	}
	cfg, err := config.FromFile(path)
	if err != nil {
		return config.Roster{}, nil, fmt.Errorf("load %s: %w", path, err)
	}
	return cfg.Roster, &cfg.Simulation, nil
}
