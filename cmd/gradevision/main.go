package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/urfave/cli/v3"

	"github.com/mind-engage/gradevision/internal/audit"
	"github.com/mind-engage/gradevision/internal/config"
	"github.com/mind-engage/gradevision/internal/db"
	"github.com/mind-engage/gradevision/internal/grading"
	"github.com/mind-engage/gradevision/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{cfg: cfg, in: os.Stdin, out: os.Stdout, errOut: os.Stderr}
	if err := newCommand(a).Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		stop()
		os.Exit(1)
	}
}

type app struct {
	cfg    config.Config
	in     io.Reader
	out    io.Writer
	errOut io.Writer
	log    *slog.Logger
}

func newCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:      "gradevision",
		Usage:     "estimate the SGPA you can confidently expect this semester",
		Writer:    a.out,
		ErrWriter: a.errOut,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "log-level", Value: a.cfg.LogLevel, Usage: "debug, info, warn or error"},
			&cli.StringFlag{Name: "log-format", Value: a.cfg.LogFormat, Usage: "text or json"},
			&cli.StringFlag{Name: "oracle", Value: string(a.cfg.Oracle), Usage: "who answers confidence questions: prompt, gemini, nats, always, never"},
			&cli.StringFlag{Name: "policy", Value: a.cfg.SecuredPolicy, Usage: "grades the CIE marks already secure: skip or commit"},
			&cli.IntFlag{Name: "retries", Value: a.cfg.OracleRetries, Usage: "extra oracle attempts after a failure"},
			&cli.IntFlag{Name: "concurrency", Value: a.cfg.AssessConcurrency, Usage: "subjects assessed at once"},
		},
		Before: a.before,
		Commands: []*cli.Command{
			assessCommand(a),
			serveCommand(a),
			respondCommand(a),
			decodeCommand(a),
			ladderCommand(a),
		},
	}
}

func (a *app) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	level, err := logging.ParseLevel(cmd.String("log-level"))
	if err != nil {
		return ctx, err
	}
	a.cfg.LogFormat = cmd.String("log-format")
	a.log = logging.New(a.errOut, level, a.cfg.LogFormat)
	slog.SetDefault(a.log)

	a.cfg.Oracle = config.OracleKind(cmd.String("oracle"))
	a.cfg.SecuredPolicy = cmd.String("policy")
	a.cfg.OracleRetries = cmd.Int("retries")
	a.cfg.AssessConcurrency = cmd.Int("concurrency")
	if _, err := grading.ParseSecuredPolicy(a.cfg.SecuredPolicy); err != nil {
		return ctx, err
	}
	return ctx, nil
}

func (a *app) engine(o grading.Oracle, obs grading.Observer) *grading.Engine {
	policy, _ := grading.ParseSecuredPolicy(a.cfg.SecuredPolicy)
	return grading.NewEngine(o,
		grading.WithRetries(a.cfg.OracleRetries),
		grading.WithConcurrency(a.cfg.AssessConcurrency),
		grading.WithSecuredPolicy(policy),
		grading.WithLogger(a.log),
		grading.WithObserver(obs),
	)
}

// openAudit returns nil values when no audit database is configured.
func (a *app) openAudit(ctx context.Context) (*audit.Repo, *sql.DB, error) {
	if a.cfg.AuditDBDriver == "" {
		return nil, nil, nil
	}
	conn, err := db.Open(ctx, db.Driver(a.cfg.AuditDBDriver), a.cfg.AuditDBDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("audit db: %w", err)
	}
	a.log.Info("audit log enabled", "driver", a.cfg.AuditDBDriver)
	return audit.NewRepo(conn), conn, nil
}

func observer(repo *audit.Repo, log *slog.Logger) grading.Observer {
	if repo == nil {
		return nil
	}
	return repo.Observer(log)
}
