package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/urfave/cli/v3"

	"github.com/mind-engage/gradevision/internal/gpa"
	"github.com/mind-engage/gradevision/internal/grading"
	"github.com/mind-engage/gradevision/internal/intake"
	"github.com/mind-engage/gradevision/internal/oracle"
	"github.com/mind-engage/gradevision/internal/report"
	"github.com/mind-engage/gradevision/internal/share"
)

func assessCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:      "assess",
		Usage:     "ask about each subject and print the estimated SGPA",
		UsageText: `gradevision assess -s "Maths:42:4" -s "Physics:30:3" [--previous 8.5]`,
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "subject", Aliases: []string{"s"}, Usage: "name:cie:credits, repeatable"},
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "TOML sheet of subjects"},
			&cli.FloatFlag{Name: "previous", Usage: "CGPA before this semester"},
			&cli.StringSliceFlag{Name: "edit", Usage: "override a grade after assessment, as index=grade (1-based)"},
			&cli.BoolFlag{Name: "share", Usage: "print a share link for the results"},
			&cli.StringFlag{Name: "xlsx", Usage: "also write the results to this spreadsheet"},
			&cli.BoolFlag{Name: "no-color", Usage: "plain output"},
		},
		Action: a.assess,
	}
}

func (a *app) assess(ctx context.Context, cmd *cli.Command) error {
	var inputs []intake.SubjectInput
	var previous *float64
	if path := cmd.String("file"); path != "" {
		sh, err := intake.LoadSheet(path)
		if err != nil {
			return err
		}
		inputs = append(inputs, sh.Subjects...)
		previous = sh.PreviousCGPA
	}
	for _, arg := range cmd.StringSlice("subject") {
		in, err := intake.ParseShorthand(arg)
		if err != nil {
			return err
		}
		inputs = append(inputs, in)
	}
	if cmd.IsSet("previous") {
		v := cmd.Float("previous")
		previous = &v
	}
	if previous != nil {
		if _, err := gpa.OverallCGPA(*previous, 0); err != nil {
			return err
		}
	}
	edits, err := parseEdits(cmd.StringSlice("edit"))
	if err != nil {
		return err
	}

	subjects, err := intake.NewValidator().Subjects(inputs)
	if err != nil {
		return err
	}

	o, closeOracle, err := oracle.New(ctx, a.cfg, a.in, a.out, a.log)
	if err != nil {
		return err
	}
	defer closeOracle()

	repo, conn, err := a.openAudit(ctx)
	if err != nil {
		return err
	}
	if conn != nil {
		defer conn.Close()
	}

	runID := uuid.NewString()
	a.log.Debug("assessing", "run", runID, "subjects", len(subjects), "oracle", a.cfg.Oracle)
	results, err := a.engine(o, observer(repo, a.log)).AssessAll(grading.WithRunID(ctx, runID), subjects)
	if err != nil {
		return err
	}
	for _, ed := range edits {
		if results, err = gpa.EditGrade(results, ed.index, ed.grade); err != nil {
			return fmt.Errorf("edit %d=%s: %w", ed.index+1, ed.grade, err)
		}
	}

	agg := gpa.Aggregate(results)
	fmt.Fprintln(a.out)
	report.Render(a.out, agg, report.Options{
		Color:        !cmd.Bool("no-color") && !color.NoColor,
		PreviousCGPA: previous,
	})
	if cmd.Bool("share") {
		token, err := share.Encode(results, previous)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Share: /results?data=%s\n", token)
	}
	if path := cmd.String("xlsx"); path != "" {
		return writeXLSX(path, agg, previous)
	}
	return nil
}

func writeXLSX(path string, agg gpa.AggregateResult, previous *float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := report.WriteXLSX(f, agg, previous); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

type edit struct {
	index int
	grade string
}

func parseEdits(args []string) ([]edit, error) {
	out := make([]edit, 0, len(args))
	for _, s := range args {
		idx, grade, ok := strings.Cut(s, "=")
		if !ok {
			return nil, fmt.Errorf("edit %q: want index=grade", s)
		}
		i, err := strconv.Atoi(strings.TrimSpace(idx))
		if err != nil || i < 1 {
			return nil, fmt.Errorf("edit %q: index must be a positive number", s)
		}
		out = append(out, edit{index: i - 1, grade: strings.TrimSpace(grade)})
	}
	return out, nil
}
