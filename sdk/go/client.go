package worksimsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal worksim run history API client.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Run is a recorded simulation.
type Run struct {
	ID               string  `json:"id"`
	Status           string  `json:"status"`
	Seed             int64   `json:"seed"`
	BreakProbability float64 `json:"break_probability"`
	Employees        int     `json:"employees"`
	Tasks            int     `json:"tasks"`
	Days             int     `json:"days"`
	Error            string  `json:"error"`
	StartedAt        string  `json:"started_at"`
	FinishedAt       string  `json:"finished_at"`
}

type TaskProgress struct {
	Name             string `json:"name"`
	TotalMinutes     int    `json:"total_minutes"`
	RemainingMinutes int    `json:"remaining_minutes"`
	SpentMinutes     int    `json:"spent_minutes"`
	Status           string `json:"status"`
}

// DayStats is one employee's record for one day.
type DayStats struct {
	Day            int            `json:"day"`
	Employee       string         `json:"employee"`
	TotalTasks     int            `json:"total_tasks"`
	CompletedTasks int            `json:"completed_tasks"`
	TaskMinutes    int            `json:"task_minutes"`
	IdleMinutes    int            `json:"idle_minutes"`
	Efficiency     float64        `json:"efficiency_percent"`
	Tasks          []TaskProgress `json:"tasks"`
}

// Event represents a log entry.
type Event struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts"`
	Type       string         `json:"type"`
	RunID      string         `json:"run_id"`
	EntityID   string         `json:"entity_id"`
	EntityKind string         `json:"entity_kind"`
	Payload    map[string]any `json:"payload"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Health reports whether the server answers.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "v0/health", nil)
}

// Runs lists recorded runs, newest first.
func (c *Client) Runs(ctx context.Context, limit int) ([]Run, error) {
	endpoint := "v0/runs"
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?limit=%d", endpoint, limit)
	}
	var resp struct {
		Items []Run `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, endpoint, &resp)
	return resp.Items, err
}

// Run fetches a run by id.
func (c *Client) Run(ctx context.Context, id string) (Run, error) {
	var resp Run
	err := c.do(ctx, http.MethodGet, c.runPath(id, ""), &resp)
	return resp, err
}

// Days returns the statistics of a run; day 0 returns every day.
func (c *Client) Days(ctx context.Context, runID string, day int) ([]DayStats, error) {
	endpoint := c.runPath(runID, "days")
	if day > 0 {
		endpoint = fmt.Sprintf("%s?day=%d", endpoint, day)
	}
	var resp struct {
		Items []DayStats `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, endpoint, &resp)
	return resp.Items, err
}

// Events returns the events recorded for a run.
func (c *Client) Events(ctx context.Context, runID string) ([]Event, error) {
	var resp struct {
		Items []Event `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, c.runPath(runID, "events"), &resp)
	return resp.Items, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	req, err := http.NewRequestWithContext(ctx, method, url, &bytes.Buffer{})
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) runPath(id, p string) string {
	endpoint := "v0/runs/" + url.PathEscape(id)
	if p != "" {
		endpoint += "/" + p
	}
	return endpoint
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
