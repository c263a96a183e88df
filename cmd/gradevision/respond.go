package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/mind-engage/gradevision/internal/oracle"
	"github.com/mind-engage/gradevision/internal/oracle/natsoracle"
	"github.com/mind-engage/gradevision/internal/oracle/prompt"
)

func respondCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:  "respond",
		Usage: "answer confidence questions sent over NATS from this terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: a.cfg.NATSURL, Usage: "NATS server"},
			&cli.StringFlag{Name: "subject", Value: a.cfg.NATSSubject, Usage: "NATS subject questions arrive on"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			nc, err := oracle.Connect(cmd.String("url"))
			if err != nil {
				return err
			}
			defer nc.Close()
			r := natsoracle.NewResponder(prompt.New(a.in, a.out), a.log)
			return r.Serve(ctx, nc, cmd.String("subject"))
		},
	}
}
