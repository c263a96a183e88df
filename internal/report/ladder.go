package report

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/mind-engage/gradevision/internal/ladder"
)

// RenderLadder prints the grade table. With cie >= 0 it adds the SEE marks
// each grade would need.
func RenderLadder(w io.Writer, cie float64) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	header := table.Row{"Grade", "Min total", "GP"}
	if cie >= 0 {
		header = append(header, "SEE needed")
	}
	t.AppendHeader(header)
	for _, tier := range ladder.Tiers() {
		row := table.Row{tier.Name, tier.MinTotalMarks, tier.GradePoint}
		if cie >= 0 {
			req := ladder.RequiredExamMarks(tier, cie)
			cell := ladder.Classify(req).String()
			if ladder.IsReachable(tier, cie) {
				cell = num(float64(ladder.Round(req)))
			}
			row = append(row, cell)
		}
		t.AppendRow(row)
	}
	t.Render()
}
