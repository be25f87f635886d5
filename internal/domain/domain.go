package domain

// Run is one multi-day simulation recorded in the workspace.
type Run struct {
	ID               string  `json:"id"`
	Status           string  `json:"status" enum:"running,completed,failed"`
	Seed             int64   `json:"seed"`
	BreakProbability float64 `json:"break_probability"`
	Employees        int     `json:"employees"`
	Tasks            int     `json:"tasks"`
	Days             int     `json:"days"`
	Error            string  `json:"error,omitempty"`
	StartedAt        string  `json:"started_at" format:"date-time"`
	FinishedAt       *string `json:"finished_at,omitempty" format:"date-time"`
}

// DayStats is the per-employee record emitted after each simulated day.
type DayStats struct {
	RunID          string         `json:"run_id,omitempty"`
	Day            int            `json:"day"`
	Employee       string         `json:"employee"`
	TotalTasks     int            `json:"total_tasks"`
	CompletedTasks int            `json:"completed_tasks"`
	TaskMinutes    int            `json:"task_minutes"`
	IdleMinutes    int            `json:"idle_minutes"`
	Efficiency     float64        `json:"efficiency_percent"`
	Tasks          []TaskProgress `json:"tasks,omitempty"`
}

type TaskProgress struct {
	Name             string `json:"name"`
	Employee         string `json:"employee"`
	TotalMinutes     int    `json:"total_minutes"`
	RemainingMinutes int    `json:"remaining_minutes"`
	SpentMinutes     int    `json:"spent_minutes"`
	Status           string `json:"status" enum:"new,in_progress,completed"`
}

// EmployeeSummary holds the cumulative ledgers over all simulated days.
type EmployeeSummary struct {
	Employee       string         `json:"employee"`
	TotalTasks     int            `json:"total_tasks"`
	CompletedTasks int            `json:"completed_tasks"`
	TaskMinutes    int            `json:"task_minutes"`
	IdleMinutes    int            `json:"idle_minutes"`
	Efficiency     float64        `json:"efficiency_percent"`
	Tasks          []TaskProgress `json:"tasks,omitempty"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	RunID      string `json:"run_id,omitempty"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	Payload    string `json:"payload_json"`
}
