package report

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/jedib0t/go-pretty/v6/table"

	"worksim/internal/domain"
	"worksim/internal/engine"
)

// Table prints each day's statistics as a console table.
type Table struct {
	Out io.Writer
	// Tasks adds a per-task breakdown below the employee table.
	Tasks bool

	mu sync.Mutex
}

func NewTable(out io.Writer) *Table {
	return &Table{Out: out}
}

func (t *Table) WriteDay(_ context.Context, day int, stats []domain.DayStats) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := fmt.Fprintf(t.Out, "\nDay %d\n", day); err != nil {
		return err
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(t.Out)
	tw.AppendHeader(table.Row{"Employee", "Tasks", "Completed", "Work", "Idle", "Efficiency"})
	totals := dayTotals(stats)
	for _, s := range stats {
		tw.AppendRow(table.Row{s.Employee, s.TotalTasks, s.CompletedTasks,
			domain.FormatMinutes(s.TaskMinutes), domain.FormatMinutes(s.IdleMinutes), percent(s.Efficiency)})
	}
	tw.AppendFooter(table.Row{"Total", totals.TotalTasks, totals.CompletedTasks,
		domain.FormatMinutes(totals.TaskMinutes), domain.FormatMinutes(totals.IdleMinutes), percent(totals.Efficiency)})
	tw.Render()
	if t.Tasks {
		renderTasks(t.Out, stats)
	}
	_, err := fmt.Fprintf(t.Out, "Progress: %d/%d tasks completed\n", totals.CompletedTasks, totals.TotalTasks)
	return err
}

func renderTasks(out io.Writer, stats []domain.DayStats) {
	tw := table.NewWriter()
	tw.SetOutputMirror(out)
	tw.AppendHeader(table.Row{"Employee", "Task", "Total", "Spent", "Remaining", "Status"})
	for _, s := range stats {
		for _, p := range s.Tasks {
			tw.AppendRow(table.Row{p.Employee, p.Name, domain.FormatMinutes(p.TotalMinutes),
				domain.FormatMinutes(p.SpentMinutes), domain.FormatMinutes(p.RemainingMinutes), p.Status})
		}
	}
	tw.Render()
}

// RenderSummary prints the cumulative ledgers once every task is done.
func RenderSummary(out io.Writer, summary engine.Summary) {
	fmt.Fprintf(out, "\nAll tasks completed in %d day(s)", summary.Days)
	if summary.Anomalies > 0 {
		fmt.Fprintf(out, ", %d scheduling anomalies", summary.Anomalies)
	}
	fmt.Fprintln(out)
	tw := table.NewWriter()
	tw.SetOutputMirror(out)
	tw.AppendHeader(table.Row{"Employee", "Tasks", "Completed", "Work", "Idle", "Efficiency"})
	for _, e := range summary.Employees {
		tw.AppendRow(table.Row{e.Employee, e.TotalTasks, e.CompletedTasks,
			domain.FormatMinutes(e.TaskMinutes), domain.FormatMinutes(e.IdleMinutes), percent(e.Efficiency)})
	}
	tw.Render()
}

// RenderRuns lists recorded runs.
func RenderRuns(out io.Writer, runs []domain.Run) {
	tw := table.NewWriter()
	tw.SetOutputMirror(out)
	tw.AppendHeader(table.Row{"ID", "Status", "Days", "Employees", "Tasks", "Seed", "Started"})
	for _, r := range runs {
		tw.AppendRow(table.Row{r.ID, r.Status, r.Days, r.Employees, r.Tasks, r.Seed, r.StartedAt})
	}
	tw.Render()
}

func percent(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}

// dayTotals sums the ledgers of a day; efficiency is the mean across
// employees.
func dayTotals(stats []domain.DayStats) domain.DayStats {
	var total domain.DayStats
	for _, s := range stats {
		total.TotalTasks += s.TotalTasks
		total.CompletedTasks += s.CompletedTasks
		total.TaskMinutes += s.TaskMinutes
		total.IdleMinutes += s.IdleMinutes
		total.Efficiency += s.Efficiency
	}
	if len(stats) > 0 {
		total.Efficiency /= float64(len(stats))
	}
	return total
}
