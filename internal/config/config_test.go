package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"worksim/internal/config"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Simulation.BreakProbability != config.DefaultBreakProbability {
		t.Fatalf("unexpected break probability %v", cfg.Simulation.BreakProbability)
	}
	if cfg.Simulation.HourTimeout != 5*time.Second {
		t.Fatalf("unexpected hour timeout %v", cfg.Simulation.HourTimeout)
	}
	if len(cfg.Employees) != 4 || len(cfg.Tasks) != 8 || len(cfg.Assignments) != 8 {
		t.Fatalf("unexpected sample roster sizes: %d/%d/%d", len(cfg.Employees), len(cfg.Tasks), len(cfg.Assignments))
	}
	if cfg.Tasks[0].DurationMinutes() != 360 {
		t.Fatalf("hours should convert to minutes, got %d", cfg.Tasks[0].DurationMinutes())
	}
}

func TestFromYAMLAppliesDefaults(t *testing.T) {
	cfg, err := config.FromYAML([]byte(`
simulation:
  seed: 42
  hour_interval: 250ms
employees:
  - {id: 1, name: Solo}
tasks:
  - {id: 1, name: Only, minutes: 90}
assignments:
  - {employee: 1, task: 1}
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Simulation.Seed != 42 {
		t.Fatalf("seed not parsed")
	}
	if cfg.Simulation.HourInterval != 250*time.Millisecond {
		t.Fatalf("interval not parsed: %v", cfg.Simulation.HourInterval)
	}
	if cfg.Simulation.BreakProbability != config.DefaultBreakProbability {
		t.Fatalf("break probability default lost: %v", cfg.Simulation.BreakProbability)
	}
	if cfg.Simulation.JoinTimeout != config.DefaultJoinTimeout {
		t.Fatalf("join timeout default lost: %v", cfg.Simulation.JoinTimeout)
	}
}

func TestValidationErrors(t *testing.T) {
	cases := map[string]struct {
		yaml  string
		field string
	}{
		"no employees": {
			yaml:  `tasks: [{id: 1, name: a, hours: 1}]`,
			field: "employees",
		},
		"duplicate employee id": {
			yaml:  `employees: [{id: 1, name: a}, {id: 1, name: b}]`,
			field: "employees[1].id",
		},
		"duplicate employee name": {
			yaml:  `employees: [{id: 1, name: a}, {id: 2, name: a}]`,
			field: "employees[1].name",
		},
		"missing duration": {
			yaml:  "employees: [{id: 1, name: a}]\ntasks: [{id: 1, name: t}]",
			field: "tasks[0]",
		},
		"negative duration": {
			yaml:  "employees: [{id: 1, name: a}]\ntasks: [{id: 1, name: t, minutes: -5}]",
			field: "tasks[0]",
		},
		"unknown task": {
			yaml:  "employees: [{id: 1, name: a}]\ntasks: [{id: 1, name: t, hours: 1}]\nassignments: [{employee: 1, task: 9}]",
			field: "assignments[0].task",
		},
		"unknown employee": {
			yaml:  "employees: [{id: 1, name: a}]\ntasks: [{id: 1, name: t, hours: 1}]\nassignments: [{employee: 3, task: 1}]",
			field: "assignments[0].employee",
		},
		"task assigned twice": {
			yaml:  "employees: [{id: 1, name: a}, {id: 2, name: b}]\ntasks: [{id: 1, name: t, hours: 1}]\nassignments: [{employee: 1, task: 1}, {employee: 2, task: 1}]",
			field: "assignments[1].task",
		},
		"probability out of range": {
			yaml:  "simulation: {break_probability: 1.5}\nemployees: [{id: 1, name: a}]",
			field: "simulation.break_probability",
		},
		"certain breaks without day limit": {
			yaml:  "simulation: {break_probability: 1}\nemployees: [{id: 1, name: a}]",
			field: "simulation.break_probability",
		},
		"negative max days": {
			yaml:  "simulation: {max_days: -1}\nemployees: [{id: 1, name: a}]",
			field: "simulation.max_days",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := config.FromYAML([]byte(tc.yaml))
			var ce config.ConfigurationError
			if !errors.As(err, &ce) {
				t.Fatalf("expected ConfigurationError, got %v", err)
			}
			if ce.Field != tc.field {
				t.Fatalf("expected field %s, got %s (%v)", tc.field, ce.Field, err)
			}
		})
	}
}

func TestMalformedYAML(t *testing.T) {
	_, err := config.FromYAML([]byte("employees: [this is: broken"))
	var ce config.ConfigurationError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	if ce.Unwrap() == nil {
		t.Fatalf("expected wrapped yaml error")
	}
}

func TestLoadFromWorkspace(t *testing.T) {
	dir := t.TempDir()
	if _, err := config.Load(dir); err == nil || !strings.Contains(err.Error(), "config init") {
		t.Fatalf("expected not-found hint, got %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "worksim.yml"), []byte(config.GenerateDefault()), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Employees[0].Name != "Ivan Petrov" {
		t.Fatalf("unexpected first employee %q", cfg.Employees[0].Name)
	}
}

func TestSimulationFromYAMLIgnoresRoster(t *testing.T) {
	sim, err := config.SimulationFromYAML([]byte("simulation:\n  seed: 3\n  max_days: 4\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if sim.Seed != 3 || sim.MaxDays != 4 || sim.HourTimeout != config.DefaultHourTimeout {
		t.Fatalf("unexpected settings: %+v", sim)
	}
	if sim.BreakProbability != config.DefaultBreakProbability {
		t.Fatalf("expected default probability, got %v", sim.BreakProbability)
	}
	if _, err := config.SimulationFromYAML([]byte("simulation:\n  break_probability: 2\n")); err == nil {
		t.Fatalf("expected invalid probability to fail")
	}
}
