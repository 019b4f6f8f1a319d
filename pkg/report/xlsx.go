package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const (
	planSheet  = "Plan"
	auditSheet = "Audit"
)

// WriteXLSX renders the report as a workbook with one sheet for the selected courses and one for the audit
func WriteXLSX(writer io.Writer, report Report) error {
	f := excelize.NewFile()
	defer f.Close()

	planIndex, err := f.NewSheet(planSheet)
	if err != nil {
		return err
	}
	f.SetActiveSheet(planIndex)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}
	if _, err := f.NewSheet(auditSheet); err != nil {
		return err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return err
	}

	//** Plan sheet
	status := "optimal"
	if !report.Optimal {
		status = "feasible"
	}
	summary := [][]any{
		{"Track", report.TrackName, string(report.Track)},
		{"Objective", report.Objective, status},
		{"Solver", report.Solver},
	}
	for i, values := range summary {
		if err := setRow(f, planSheet, i+1, values); err != nil {
			return err
		}
	}

	header := []any{"Code", "Name", "Rating", "Difficulty", "Workload", "Reviews", "Interest", "Score"}
	headerRow := len(summary) + 2
	if err := setRow(f, planSheet, headerRow, header); err != nil {
		return err
	}
	if err := styleRow(f, planSheet, headerRow, len(header), headerStyle); err != nil {
		return err
	}
	for i, course := range report.Courses {
		score := course.Score
		values := []any{course.Code, course.Name, score.Rating, score.Difficulty, score.Workload, score.Reviews, score.Interest, score.Total}
		if err := setRow(f, planSheet, headerRow+1+i, values); err != nil {
			return err
		}
	}
	f.SetColWidth(planSheet, "A", "A", 14)
	f.SetColWidth(planSheet, "B", "B", 40)
	f.SetColWidth(planSheet, "C", "H", 12)

	//** Audit sheet
	if err := setRow(f, auditSheet, 1, []any{"Requirement", "Course"}); err != nil {
		return err
	}
	if err := styleRow(f, auditSheet, 1, 2, headerStyle); err != nil {
		return err
	}
	row := 2
	for _, assignment := range report.Audit.Assignments {
		if err := setRow(f, auditSheet, row, []any{assignment.Requirement, assignment.Course}); err != nil {
			return err
		}
		row++
	}
	for _, gap := range report.Audit.Unfilled {
		if err := setRow(f, auditSheet, row, []any{gap.Requirement, fmt.Sprintf("%d unfilled slot(s)", gap.Missing)}); err != nil {
			return err
		}
		row++
	}
	for _, code := range report.Audit.FreeElectives {
		if err := setRow(f, auditSheet, row, []any{"free elective", code}); err != nil {
			return err
		}
		row++
	}
	f.SetColWidth(auditSheet, "A", "B", 22)

	if err := f.Write(writer); err != nil {
		return fmt.Errorf("cannot write workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func styleRow(f *excelize.File, sheet string, row, columns, style int) error {
	first, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(columns, row)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, first, last, style)
}
