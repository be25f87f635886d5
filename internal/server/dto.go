package server

import (
	"encoding/json"

	"worksim/internal/domain"
)

type RunResponse struct {
	ID               string  `json:"id"`
	Status           string  `json:"status" enum:"running,completed,failed"`
	Seed             int64   `json:"seed"`
	BreakProbability float64 `json:"break_probability"`
	Employees        int     `json:"employees"`
	Tasks            int     `json:"tasks"`
	Days             int     `json:"days"`
	Error            string  `json:"error,omitempty"`
	StartedAt        string  `json:"started_at" format:"date-time"`
	FinishedAt       string  `json:"finished_at,omitempty" format:"date-time"`
}

type TaskProgressResponse struct {
	Name             string `json:"name"`
	TotalMinutes     int    `json:"total_minutes"`
	RemainingMinutes int    `json:"remaining_minutes"`
	SpentMinutes     int    `json:"spent_minutes"`
	Status           string `json:"status" enum:"new,in_progress,completed"`
}

type DayStatsResponse struct {
	Day            int                    `json:"day"`
	Employee       string                 `json:"employee"`
	TotalTasks     int                    `json:"total_tasks"`
	CompletedTasks int                    `json:"completed_tasks"`
	TaskMinutes    int                    `json:"task_minutes"`
	IdleMinutes    int                    `json:"idle_minutes"`
	Efficiency     float64                `json:"efficiency_percent"`
	Tasks          []TaskProgressResponse `json:"tasks"`
}

type EventResponse struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts" format:"date-time"`
	Type       string         `json:"type"`
	RunID      string         `json:"run_id,omitempty"`
	EntityKind string         `json:"entity_kind"`
	EntityID   string         `json:"entity_id,omitempty"`
	Payload    map[string]any `json:"payload"`
}

type RunList struct {
	Items []RunResponse `json:"items"`
}

type DayStatsList struct {
	Items []DayStatsResponse `json:"items"`
}

type EventList struct {
	Items []EventResponse `json:"items"`
}

func runResponse(r domain.Run) RunResponse {
	res := RunResponse{
		ID:               r.ID,
		Status:           r.Status,
		Seed:             r.Seed,
		BreakProbability: r.BreakProbability,
		Employees:        r.Employees,
		Tasks:            r.Tasks,
		Days:             r.Days,
		Error:            r.Error,
		StartedAt:        r.StartedAt,
	}
	if r.FinishedAt != nil {
		res.FinishedAt = *r.FinishedAt
	}
	return res
}

func dayStatsResponse(s domain.DayStats) DayStatsResponse {
	res := DayStatsResponse{
		Day:            s.Day,
		Employee:       s.Employee,
		TotalTasks:     s.TotalTasks,
		CompletedTasks: s.CompletedTasks,
		TaskMinutes:    s.TaskMinutes,
		IdleMinutes:    s.IdleMinutes,
		Efficiency:     s.Efficiency,
		Tasks:          []TaskProgressResponse{},
	}
	for _, t := range s.Tasks {
		res.Tasks = append(res.Tasks, TaskProgressResponse{
			Name:             t.Name,
			TotalMinutes:     t.TotalMinutes,
			RemainingMinutes: t.RemainingMinutes,
			SpentMinutes:     t.SpentMinutes,
			Status:           t.Status,
		})
	}
	return res
}

func eventResponse(e domain.Event) EventResponse {
	return EventResponse{
		ID:         e.ID,
		TS:         e.TS,
		Type:       e.Type,
		RunID:      e.RunID,
		EntityKind: e.EntityKind,
		EntityID:   e.EntityID,
		Payload:    decodeJSONMap(e.Payload),
	}
}

func decodeJSONMap(raw string) map[string]any {
	if raw == "" {
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return nil
	}
	return obj
}
