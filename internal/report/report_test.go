package report_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/mind-engage/gradevision/internal/gpa"
	"github.com/mind-engage/gradevision/internal/grading"
	"github.com/mind-engage/gradevision/internal/report"
)

func TestRender(t *testing.T) {
	res := gpa.Aggregate([]grading.SubjectResult{
		{SubjectName: "Maths", Grade: "A+", GradePoint: 9, RequiredExamMarks: 76, CreditWeight: 4, InternalMarks: 42},
		{SubjectName: "Lab", Grade: "C", GradePoint: 5, RequiredExamMarks: -10, CreditWeight: 1, InternalMarks: 50},
		{SubjectName: "English", Grade: "F", RequiredExamMarks: -1, CreditWeight: 3, InternalMarks: 10, AtRisk: true, RiskReason: grading.AtRiskReason},
	})
	prev := 8.0

	var buf bytes.Buffer
	report.Render(&buf, res, report.Options{PreviousCGPA: &prev})
	out := buf.String()

	assert.Contains(t, out, "Maths")
	assert.Contains(t, out, "76")
	assert.Contains(t, out, "secured")
	assert.Contains(t, out, "n/a")
	assert.Contains(t, out, "8.20")
	assert.Contains(t, out, "Overall CGPA (previous 8.00): 8.10")
	assert.Contains(t, out, report.AtRiskWarning)
}

func TestRenderNoRisk(t *testing.T) {
	res := gpa.Aggregate([]grading.SubjectResult{
		{SubjectName: "Maths", Grade: "O", GradePoint: 10, RequiredExamMarks: 90, CreditWeight: 4, InternalMarks: 45},
	})
	var buf bytes.Buffer
	report.Render(&buf, res, report.Options{Color: true})
	assert.Contains(t, buf.String(), "10.00")
	assert.NotContains(t, buf.String(), report.AtRiskWarning)
	assert.NotContains(t, buf.String(), "Overall CGPA")
}

func TestRenderLadder(t *testing.T) {
	var buf bytes.Buffer
	report.RenderLadder(&buf, 42)
	out := buf.String()
	assert.Contains(t, out, "A+")
	assert.Contains(t, out, "96")
	assert.Contains(t, out, "secured")

	buf.Reset()
	report.RenderLadder(&buf, -1)
	assert.NotContains(t, buf.String(), "SEE")
}

func TestWriteXLSX(t *testing.T) {
	res := gpa.Aggregate([]grading.SubjectResult{
		{SubjectName: "Maths", Grade: "A+", GradePoint: 9, RequiredExamMarks: 76, CreditWeight: 4, InternalMarks: 42},
		{SubjectName: "English", Grade: "F", RequiredExamMarks: -1, CreditWeight: 3, InternalMarks: 10, AtRisk: true, RiskReason: grading.AtRiskReason},
	})
	prev := 8.0

	var buf bytes.Buffer
	require.NoError(t, report.WriteXLSX(&buf, res, &prev))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{report.SheetName}, f.GetSheetList())
	get := func(cell string) string {
		v, err := f.GetCellValue(report.SheetName, cell)
		require.NoError(t, err)
		return v
	}
	assert.Equal(t, "Subject", get("A1"))
	assert.Equal(t, "Maths", get("A2"))
	assert.Equal(t, "76", get("F2"))
	assert.Equal(t, "n/a", get("F3"))
	assert.Equal(t, "SGPA", get("A5"))
	assert.Equal(t, "9", get("B5"))
	assert.Equal(t, "Overall CGPA", get("A6"))
	assert.Equal(t, "8.5", get("B6"))
}
