package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config models worksim.yml.
type Config struct {
	Simulation Simulation `yaml:"simulation" json:"simulation"`
	Roster     `yaml:",inline"`
}

// Simulation holds the knobs of the day and multi-day controllers.
type Simulation struct {
	// Seed drives every random source; 0 picks one from the wall clock.
	Seed             int64         `yaml:"seed" json:"seed"`
	BreakProbability float64       `yaml:"break_probability" json:"break_probability"`
	HourInterval     time.Duration `yaml:"hour_interval" json:"hour_interval"`
	HourTimeout      time.Duration `yaml:"hour_timeout" json:"hour_timeout"`
	JoinTimeout      time.Duration `yaml:"join_timeout" json:"join_timeout"`
	MaxDays          int           `yaml:"max_days" json:"max_days"`
}

// Roster is the initial staff, backlog and assignment relation.
type Roster struct {
	Employees   []EmployeeSpec `yaml:"employees" json:"employees"`
	Tasks       []TaskSpec     `yaml:"tasks" json:"tasks"`
	Assignments []Assignment   `yaml:"assignments" json:"assignments"`
}

type EmployeeSpec struct {
	ID       int    `yaml:"id" json:"id"`
	Name     string `yaml:"name" json:"name"`
	Position string `yaml:"position,omitempty" json:"position,omitempty"`
}

// TaskSpec accepts either minutes or whole hours; minutes win when both are set.
type TaskSpec struct {
	ID      int    `yaml:"id" json:"id"`
	Name    string `yaml:"name" json:"name"`
	Minutes int    `yaml:"minutes,omitempty" json:"minutes,omitempty"`
	Hours   int    `yaml:"hours,omitempty" json:"hours,omitempty"`
}

func (t TaskSpec) DurationMinutes() int {
	if t.Minutes != 0 {
		return t.Minutes
	}
	return t.Hours * 60
}

type Assignment struct {
	Employee int `yaml:"employee" json:"employee"`
	Task     int `yaml:"task" json:"task"`
}

const (
	DefaultBreakProbability = 0.10
	DefaultHourTimeout      = 5 * time.Second
	DefaultJoinTimeout      = 5 * time.Second
)

// DefaultSimulation returns the stock controller settings.
func DefaultSimulation() Simulation {
	return Simulation{
		BreakProbability: DefaultBreakProbability,
		HourTimeout:      DefaultHourTimeout,
		JoinTimeout:      DefaultJoinTimeout,
	}
}

// WithDefaults fills zero timeouts.
func (s Simulation) WithDefaults() Simulation {
	if s.HourTimeout == 0 {
		s.HourTimeout = DefaultHourTimeout
	}
	if s.JoinTimeout == 0 {
		s.JoinTimeout = DefaultJoinTimeout
	}
	return s
}

// Validate checks the controller settings.
func (s Simulation) Validate() error {
	if s.BreakProbability < 0 || s.BreakProbability > 1 {
		return ConfigurationError{Field: "simulation.break_probability", Reason: "must be within [0, 1]"}
	}
	if s.BreakProbability == 1 && s.MaxDays == 0 {
		return ConfigurationError{Field: "simulation.break_probability", Reason: "1 never finishes any task; set simulation.max_days"}
	}
	if s.HourInterval < 0 {
		return ConfigurationError{Field: "simulation.hour_interval", Reason: "must not be negative"}
	}
	if s.HourTimeout < 0 {
		return ConfigurationError{Field: "simulation.hour_timeout", Reason: "must not be negative"}
	}
	if s.JoinTimeout < 0 {
		return ConfigurationError{Field: "simulation.join_timeout", Reason: "must not be negative"}
	}
	if s.MaxDays < 0 {
		return ConfigurationError{Field: "simulation.max_days", Reason: "must not be negative"}
	}
	return nil
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if err := c.Simulation.Validate(); err != nil {
		return err
	}
	return c.Roster.Validate()
}

// Validate checks identities, durations and the assignment relation.
func (r Roster) Validate() error {
	if len(r.Employees) == 0 {
		return ConfigurationError{Field: "employees", Reason: "at least one employee is required"}
	}
	employeeIDs := make(map[int]bool, len(r.Employees))
	names := make(map[string]bool, len(r.Employees))
	for i, e := range r.Employees {
		field := fmt.Sprintf("employees[%d]", i)
		if e.ID <= 0 {
			return ConfigurationError{Field: field + ".id", Reason: "must be positive"}
		}
		if employeeIDs[e.ID] {
			return ConfigurationError{Field: field + ".id", Reason: fmt.Sprintf("duplicate id %d", e.ID)}
		}
		if e.Name == "" {
			return ConfigurationError{Field: field + ".name", Reason: "is required"}
		}
		if names[e.Name] {
			return ConfigurationError{Field: field + ".name", Reason: fmt.Sprintf("duplicate name %q", e.Name)}
		}
		employeeIDs[e.ID] = true
		names[e.Name] = true
	}
	taskIDs := make(map[int]bool, len(r.Tasks))
	for i, t := range r.Tasks {
		field := fmt.Sprintf("tasks[%d]", i)
		if t.ID <= 0 {
			return ConfigurationError{Field: field + ".id", Reason: "must be positive"}
		}
		if taskIDs[t.ID] {
			return ConfigurationError{Field: field + ".id", Reason: fmt.Sprintf("duplicate id %d", t.ID)}
		}
		if t.Name == "" {
			return ConfigurationError{Field: field + ".name", Reason: "is required"}
		}
		if t.Minutes < 0 || t.Hours < 0 {
			return ConfigurationError{Field: field, Reason: "duration must not be negative"}
		}
		if t.DurationMinutes() == 0 {
			return ConfigurationError{Field: field, Reason: "minutes or hours is required"}
		}
		taskIDs[t.ID] = true
	}
	owner := make(map[int]int, len(r.Assignments))
	for i, a := range r.Assignments {
		field := fmt.Sprintf("assignments[%d]", i)
		if !employeeIDs[a.Employee] {
			return ConfigurationError{Field: field + ".employee", Reason: fmt.Sprintf("unknown employee %d", a.Employee)}
		}
		if !taskIDs[a.Task] {
			return ConfigurationError{Field: field + ".task", Reason: fmt.Sprintf("unknown task %d", a.Task)}
		}
		if prev, ok := owner[a.Task]; ok {
			return ConfigurationError{Field: field + ".task", Reason: fmt.Sprintf("task %d already assigned to employee %d", a.Task, prev)}
		}
		owner[a.Task] = a.Employee
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "worksim.yml")
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with worksim config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// GenerateDefault returns the default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// Default returns the stock settings with the sample roster.
func Default() *Config {
	cfg := Config{Simulation: DefaultSimulation()}
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	cfg := Config{Simulation: DefaultSimulation()}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, ConfigurationError{Field: "yaml", Reason: err.Error(), Err: err}
	}
	cfg.Simulation = cfg.Simulation.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SimulationFromYAML parses only the simulation block, for inputs whose
// roster comes from elsewhere.
func SimulationFromYAML(data []byte) (Simulation, error) {
	cfg := Config{Simulation: DefaultSimulation()}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Simulation{}, ConfigurationError{Field: "yaml", Reason: err.Error(), Err: err}
	}
	sim := cfg.Simulation.WithDefaults()
	return sim, sim.Validate()
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `simulation:
  seed: 0
  break_probability: 0.10
  hour_interval: 0s
  hour_timeout: 5s
  join_timeout: 5s
  max_days: 0

employees:
  - {id: 1, name: Ivan Petrov, position: developer}
  - {id: 2, name: Maria Sidorova, position: tester}
  - {id: 3, name: Petr Ivanov, position: analyst}
  - {id: 4, name: Anna Kozlova, position: devops}

tasks:
  - {id: 1, name: Authorization module, hours: 6}
  - {id: 2, name: API testing, hours: 3}
  - {id: 3, name: Project documentation, hours: 4}
  - {id: 4, name: Code review, hours: 2}
  - {id: 5, name: Database optimization, hours: 5}
  - {id: 6, name: Bug fixing, hours: 7}
  - {id: 7, name: External integrations, hours: 8}
  - {id: 8, name: CI/CD setup, hours: 3}

assignments:
  - {employee: 1, task: 1}
  - {employee: 1, task: 7}
  - {employee: 2, task: 2}
  - {employee: 2, task: 6}
  - {employee: 3, task: 3}
  - {employee: 3, task: 4}
  - {employee: 4, task: 5}
  - {employee: 4, task: 8}
`
