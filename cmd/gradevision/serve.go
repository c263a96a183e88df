package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	api "github.com/mind-engage/gradevision/internal/api/http"
	"github.com/mind-engage/gradevision/internal/config"
	"github.com/mind-engage/gradevision/internal/grading"
	"github.com/mind-engage/gradevision/internal/oracle"
	"github.com/mind-engage/gradevision/internal/session"
)

func serveCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Value: a.cfg.HTTPAddr, Usage: "listen address"},
		},
		Action: a.serve,
	}
}

func (a *app) serve(ctx context.Context, cmd *cli.Command) error {
	repo, conn, err := a.openAudit(ctx)
	if err != nil {
		return err
	}
	if conn != nil {
		defer conn.Close()
	}
	obs := observer(repo, a.log)

	policy, _ := grading.ParseSecuredPolicy(a.cfg.SecuredPolicy)
	opts := []session.Option{session.WithPolicy(policy), session.WithTTL(a.cfg.SessionTTL)}
	if obs != nil {
		opts = append(opts, session.WithObserver(obs))
	}
	sessions := session.NewManager(opts...)

	// A terminal prompt makes no sense behind HTTP; clients answer through
	// /answer instead. Any other oracle also serves /assess.
	var engine *grading.Engine
	if a.cfg.Oracle != config.OraclePrompt {
		o, closeOracle, err := oracle.New(ctx, a.cfg, nil, nil, a.log)
		if err != nil {
			return err
		}
		defer closeOracle()
		engine = a.engine(o, obs)
	}

	deps := api.Deps{
		Sessions:      sessions,
		Engine:        engine,
		Audit:         repo,
		Logger:        a.log,
		CORSOrigins:   a.cfg.CORSOrigins,
		LogRequests:   a.cfg.LogRequests,
		Timeout:       a.cfg.HTTPTimeout,
		AssessTimeout: a.cfg.AssessTimeout,
	}
	if conn != nil {
		deps.Ready = func() error { return conn.PingContext(ctx) }
	}
	addr := cmd.String("addr")
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sessions.Run(gctx, time.Minute)
		return nil
	})
	g.Go(func() error {
		a.log.Info("listening", "addr", addr, "oracle", a.cfg.Oracle, "policy", a.cfg.SecuredPolicy)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
