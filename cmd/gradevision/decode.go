package main

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/fatih/color"
	"github.com/urfave/cli/v3"

	"github.com/mind-engage/gradevision/internal/report"
	"github.com/mind-engage/gradevision/internal/share"
)

func decodeCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:      "decode",
		Usage:     "print the results held in a share link",
		ArgsUsage: "<token or link>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "no-color", Usage: "plain output"},
			&cli.StringFlag{Name: "xlsx", Usage: "also write the results to this spreadsheet"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			token := tokenFrom(cmd.Args().First())
			if token == "" {
				return errors.New("decode: missing token")
			}
			shared, err := share.Decode(token)
			if err != nil {
				return err
			}
			report.Render(a.out, shared.AggregateResult, report.Options{
				Color:        !cmd.Bool("no-color") && !color.NoColor,
				PreviousCGPA: shared.PreviousCGPA,
			})
			if path := cmd.String("xlsx"); path != "" {
				return writeXLSX(path, shared.AggregateResult, shared.PreviousCGPA)
			}
			return nil
		},
	}
}

// tokenFrom accepts a bare token or anything carrying ?data=.
func tokenFrom(arg string) string {
	arg = strings.TrimSpace(arg)
	if _, query, ok := strings.Cut(arg, "?"); ok {
		if v, err := url.ParseQuery(query); err == nil {
			return v.Get("data")
		}
	}
	return arg
}

func ladderCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:  "ladder",
		Usage: "print the grade table",
		Flags: []cli.Flag{
			&cli.FloatFlag{Name: "cie", Value: -1, Usage: "also show the SEE marks each grade needs with these CIE marks"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			report.RenderLadder(a.out, cmd.Float("cie"))
			return nil
		},
	}
}
