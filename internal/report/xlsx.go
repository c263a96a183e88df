package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/mind-engage/gradevision/internal/gpa"
)

const SheetName = "Results"

var xlsxHeader = []string{"Subject", "CIE", "Credits", "Grade", "Grade point", "SEE needed", "At risk", "Note"}

// WriteXLSX writes the results as a workbook with one sheet and a summary
// below the table.
func WriteXLSX(w io.Writer, res gpa.AggregateResult, previous *float64) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(SheetName)
	if err != nil {
		return err
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}

	for i, h := range xlsxHeader {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(SheetName, cell, h); err != nil {
			return err
		}
	}
	row := 2
	for _, r := range res.PerSubject {
		values := []any{r.SubjectName, r.InternalMarks, r.CreditWeight, r.Grade, r.GradePoint, needed(r), r.AtRisk, r.RiskReason}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(SheetName, cell, v); err != nil {
				return err
			}
		}
		row++
	}

	row++
	_ = f.SetCellValue(SheetName, fmt.Sprintf("A%d", row), "SGPA")
	_ = f.SetCellValue(SheetName, fmt.Sprintf("B%d", row), res.Average)
	if previous != nil {
		if overall, err := gpa.OverallCGPA(*previous, res.Average); err == nil {
			row++
			_ = f.SetCellValue(SheetName, fmt.Sprintf("A%d", row), "Overall CGPA")
			_ = f.SetCellValue(SheetName, fmt.Sprintf("B%d", row), overall)
		}
	}
	return f.Write(w)
}
