package report

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"

	"github.com/xuri/excelize/v2"

	"worksim/internal/domain"
)

const defaultSheet = "Sheet1"

var workbookHeaders = []string{"Employee", "Total Tasks", "Completed Tasks", "Work Minutes", "Idle Minutes", "Efficiency %"}

// Workbook writes one Day_<n> sheet per simulated day into an xlsx file,
// replacing a sheet of the same name. The file is saved after every day.
type Workbook struct {
	Path string

	mu sync.Mutex
}

func NewWorkbook(path string) *Workbook {
	return &Workbook{Path: path}
}

func SheetName(day int) string {
	return fmt.Sprintf("Day_%d", day)
}

func (w *Workbook) WriteDay(_ context.Context, day int, stats []domain.DayStats) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	f, err := w.open()
	if err != nil {
		return err
	}
	defer f.Close()

	sheet := SheetName(day)
	if idx, _ := f.GetSheetIndex(sheet); idx >= 0 {
		// a workbook cannot lose its last sheet
		if f.SheetCount == 1 {
			if _, err := f.NewSheet(defaultSheet); err != nil {
				return err
			}
		}
		if err := f.DeleteSheet(sheet); err != nil {
			return fmt.Errorf("replace sheet %s: %w", sheet, err)
		}
	}
	index, err := f.NewSheet(sheet)
	if err != nil {
		return fmt.Errorf("create sheet %s: %w", sheet, err)
	}
	f.SetActiveSheet(index)

	for i, h := range workbookHeaders {
		if err := f.SetCellValue(sheet, cell(i+1, 1), h); err != nil {
			return err
		}
	}
	if style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6E6FA"}, Pattern: 1},
	}); err == nil {
		f.SetRowStyle(sheet, 1, 1, style)
	}

	row := 2
	for _, s := range stats {
		values := []any{s.Employee, s.TotalTasks, s.CompletedTasks, s.TaskMinutes, s.IdleMinutes, round2(s.Efficiency)}
		if err := setRow(f, sheet, row, values); err != nil {
			return err
		}
		row++
	}
	if len(stats) > 0 {
		t := dayTotals(stats)
		if err := setRow(f, sheet, row, []any{"TOTAL", t.TotalTasks, t.CompletedTasks, t.TaskMinutes, t.IdleMinutes, round2(t.Efficiency)}); err != nil {
			return err
		}
		if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
			f.SetRowStyle(sheet, row, row, style)
		}
	}
	f.SetColWidth(sheet, "A", "A", 20)
	f.SetColWidth(sheet, "B", "F", 16)

	if idx, _ := f.GetSheetIndex(defaultSheet); idx >= 0 && sheet != defaultSheet {
		f.DeleteSheet(defaultSheet)
	}
	if err := f.SaveAs(w.Path); err != nil {
		return fmt.Errorf("save workbook %s: %w", w.Path, err)
	}
	return nil
}

func (w *Workbook) open() (*excelize.File, error) {
	f, err := excelize.OpenFile(w.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return excelize.NewFile(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", w.Path, err)
	}
	return f, nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	for i, v := range values {
		if err := f.SetCellValue(sheet, cell(i+1, row), v); err != nil {
			return err
		}
	}
	return nil
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
