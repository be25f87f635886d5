package roster

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"worksim/internal/config"
)

const (
	EmployeesSheet   = "Employees"
	TasksSheet       = "Tasks"
	AssignmentsSheet = "Assignments"
)

var sheetHeaders = map[string][]string{
	EmployeesSheet:   {"ID", "Name", "Position"},
	TasksSheet:       {"ID", "Name", "Duration (hours)"},
	AssignmentsSheet: {"ID", "Employee ID", "Task ID"},
}

// LoadWorkbook reads the Employees, Tasks and Assignments sheets. The first
// row of each sheet is a header; blank rows are skipped. Task durations are
// hours and may be fractional.
func LoadWorkbook(path string) (config.Roster, error) {
	var r config.Roster
	f, err := excelize.OpenFile(path)
	if err != nil {
		return r, config.ConfigurationError{Field: path, Reason: "cannot open workbook", Err: err}
	}
	defer f.Close()

	err = eachRow(f, EmployeesSheet, func(at string, row []string) error {
		id, err := intCell(at, row, 0)
		if err != nil {
			return err
		}
		r.Employees = append(r.Employees, config.EmployeeSpec{ID: id, Name: cellAt(row, 1), Position: cellAt(row, 2)})
		return nil
	})
	if err != nil {
		return r, err
	}
	err = eachRow(f, TasksSheet, func(at string, row []string) error {
		id, err := intCell(at, row, 0)
		if err != nil {
			return err
		}
		hours, err := strconv.ParseFloat(cellAt(row, 2), 64)
		if err != nil {
			return config.ConfigurationError{Field: at + " duration", Reason: fmt.Sprintf("not a number: %q", cellAt(row, 2)), Err: err}
		}
		r.Tasks = append(r.Tasks, config.TaskSpec{ID: id, Name: cellAt(row, 1), Minutes: int(math.Round(hours * 60))})
		return nil
	})
	if err != nil {
		return r, err
	}
	err = eachRow(f, AssignmentsSheet, func(at string, row []string) error {
		emp, err := intCell(at, row, 1)
		if err != nil {
			return err
		}
		task, err := intCell(at, row, 2)
		if err != nil {
			return err
		}
		r.Assignments = append(r.Assignments, config.Assignment{Employee: emp, Task: task})
		return nil
	})
	if err != nil {
		return r, err
	}
	return r, r.Validate()
}

func eachRow(f *excelize.File, sheet string, fn func(at string, row []string) error) error {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return config.ConfigurationError{Field: sheet, Reason: "missing sheet", Err: err}
	}
	for i, row := range rows {
		if i == 0 || blank(row) {
			continue
		}
		if err := fn(fmt.Sprintf("%s row %d", sheet, i+1), row); err != nil {
			return err
		}
	}
	return nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func cellAt(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func intCell(at string, row []string, i int) (int, error) {
	v := cellAt(row, i)
	n, err := strconv.Atoi(v)
	if err != nil {
		// numeric cells can come back as "3.0"
		f, ferr := strconv.ParseFloat(v, 64)
		if ferr != nil || f != math.Trunc(f) {
			return 0, config.ConfigurationError{Field: fmt.Sprintf("%s column %d", at, i+1), Reason: fmt.Sprintf("not an integer: %q", v), Err: err}
		}
		n = int(f)
	}
	return n, nil
}

// WriteWorkbook saves r in the layout LoadWorkbook reads. Durations are
// written in hours.
func WriteWorkbook(path string, r config.Roster) error {
	f := excelize.NewFile()
	defer f.Close()

	style, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6E6FA"}, Pattern: 1},
	})
	rows := map[string][][]any{}
	for _, e := range r.Employees {
		rows[EmployeesSheet] = append(rows[EmployeesSheet], []any{e.ID, e.Name, e.Position})
	}
	for _, t := range r.Tasks {
		rows[TasksSheet] = append(rows[TasksSheet], []any{t.ID, t.Name, float64(t.DurationMinutes()) / 60})
	}
	for i, a := range r.Assignments {
		rows[AssignmentsSheet] = append(rows[AssignmentsSheet], []any{i + 1, a.Employee, a.Task})
	}

	for _, sheet := range []string{EmployeesSheet, TasksSheet, AssignmentsSheet} {
		if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("create sheet %s: %w", sheet, err)
		}
		if err := writeRow(f, sheet, 1, toAny(sheetHeaders[sheet])); err != nil {
			return err
		}
		if style != 0 {
			f.SetRowStyle(sheet, 1, 1, style)
		}
		for i, row := range rows[sheet] {
			if err := writeRow(f, sheet, i+2, row); err != nil {
				return err
			}
		}
		f.SetColWidth(sheet, "A", "C", 18)
	}
	f.DeleteSheet("Sheet1")
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save roster %s: %w", path, err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	for i, v := range values {
		name, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, name, v); err != nil {
			return err
		}
	}
	return nil
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
