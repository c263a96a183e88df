// Package report prints a result set as a terminal table.
package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/mind-engage/gradevision/internal/gpa"
	"github.com/mind-engage/gradevision/internal/grading"
)

const AtRiskWarning = "One or more subjects are at risk and were left out of the SGPA."

type Options struct {
	Color        bool
	PreviousCGPA *float64
}

func Render(w io.Writer, res gpa.AggregateResult, opts Options) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"#", "Subject", "CIE", "Credits", "Grade", "GP", "SEE needed", "Note"})
	for i, r := range res.PerSubject {
		t.AppendRow(table.Row{i + 1, r.SubjectName, num(r.InternalMarks), num(r.CreditWeight), r.Grade, r.GradePoint, needed(r), r.RiskReason})
	}
	t.AppendFooter(table.Row{"", "SGPA", "", "", "", fmt.Sprintf("%.2f", res.Average), "", ""})

	if opts.Color {
		t.SetStyle(table.StyleColoredDark)
		t.SetColumnConfigs([]table.ColumnConfig{{
			Name:  "Grade",
			Align: text.AlignCenter,
			Transformer: text.Transformer(func(v any) string {
				s := fmt.Sprint(v)
				switch s {
				case "F":
					return text.FgHiRed.Sprint(s)
				case "O", "A+":
					return text.FgHiGreen.Sprint(s)
				}
				return s
			}),
		}})
	} else {
		t.SetStyle(table.StyleLight)
		t.SetColumnConfigs([]table.ColumnConfig{{Name: "Grade", Align: text.AlignCenter}})
	}
	t.Render()

	if opts.PreviousCGPA != nil {
		if overall, err := gpa.OverallCGPA(*opts.PreviousCGPA, res.Average); err == nil {
			fmt.Fprintf(w, "Overall CGPA (previous %.2f): %.2f\n", *opts.PreviousCGPA, overall)
		}
	}
	if res.AtRisk() {
		msg := AtRiskWarning
		if opts.Color {
			msg = text.FgHiYellow.Sprint(msg)
		}
		fmt.Fprintln(w, msg)
	}
}

func needed(r grading.SubjectResult) string {
	switch {
	case r.AtRisk:
		return "n/a"
	case r.RequiredExamMarks < 0:
		return "secured"
	case r.ShowsRequiredMarks():
		return strconv.Itoa(r.RequiredExamMarks)
	default:
		return "out of reach"
	}
}

func num(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
