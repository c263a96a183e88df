package grading

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Oracle answers whether the student can score the required SEE marks.
// It may be a person at a terminal, a remote responder or a model; only the
// boolean is binding.
type Oracle interface {
	Assess(ctx context.Context, q Question) (bool, error)
}

// OracleFunc adapts a plain function to Oracle.
type OracleFunc func(ctx context.Context, q Question) (bool, error)

func (f OracleFunc) Assess(ctx context.Context, q Question) (bool, error) { return f(ctx, q) }

// Engine options

type Option func(*config)

type config struct {
	Retries     int           // extra oracle attempts per tier after a failure
	Concurrency int           // subjects assessed at once by AssessAll
	Policy      SecuredPolicy // tiers already cleared by CIE marks
	Logger      *slog.Logger
	Observer    Observer
}

func WithRetries(n int) Option                 { return func(c *config) { c.Retries = n } }
func WithConcurrency(n int) Option             { return func(c *config) { c.Concurrency = n } }
func WithSecuredPolicy(p SecuredPolicy) Option { return func(c *config) { c.Policy = p } }
func WithLogger(l *slog.Logger) Option         { return func(c *config) { c.Logger = l } }
func WithObserver(o Observer) Option           { return func(c *config) { c.Observer = o } }

// Engine runs confidence descents against a single oracle.
type Engine struct {
	oracle Oracle
	cfg    config
}

func NewEngine(oracle Oracle, opts ...Option) *Engine {
	cfg := config{
		Retries:     1,
		Concurrency: 1,
		Policy:      SkipSecured,
	}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Observer == nil {
		cfg.Observer = nopObserver{}
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	return &Engine{oracle: oracle, cfg: cfg}
}

// Policy is the secured-tier policy the engine was built with.
func (e *Engine) Policy() SecuredPolicy { return e.cfg.Policy }

// Assess walks the ladder for one subject. The only error is ctx's: oracle
// failures count as "not confident" and the descent carries on.
func (e *Engine) Assess(ctx context.Context, s Subject) (SubjectResult, error) {
	st := Start(s, e.cfg.Policy)
	for !st.Terminal() {
		q, _ := Pending(st, s)
		confident, err := e.ask(ctx, q)
		if err != nil {
			return SubjectResult{}, err
		}
		st = Advance(st, s, confident, e.cfg.Policy)
	}
	res, err := Result(st, s)
	if err != nil {
		return SubjectResult{}, err
	}
	e.finish(ctx, res)
	return res, nil
}

// AssessAll assesses subjects in input order and returns one result per
// subject. Subjects are independent; at most Concurrency run at a time.
func (e *Engine) AssessAll(ctx context.Context, subjects []Subject) ([]SubjectResult, error) {
	out := make([]SubjectResult, len(subjects))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Concurrency)
	for i, s := range subjects {
		g.Go(func() error {
			r, err := e.Assess(gctx, s)
			if err != nil {
				return err
			}
			out[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Engine) ask(ctx context.Context, q Question) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	e.cfg.Observer.Observe(ctx, Event{Kind: EventAsked, Subject: q.SubjectName, Grade: q.Grade, RequiredExamMarks: q.RequiredExamMarks})
	for attempt := 0; attempt <= e.cfg.Retries; attempt++ {
		confident, err := e.oracle.Assess(ctx, q)
		if err == nil {
			kind := EventDeclined
			if confident {
				kind = EventConfirmed
			}
			e.cfg.Observer.Observe(ctx, Event{Kind: kind, Subject: q.SubjectName, Grade: q.Grade, RequiredExamMarks: q.RequiredExamMarks})
			return confident, nil
		}
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		e.cfg.Logger.Warn("confidence oracle failed",
			"subject", q.SubjectName, "grade", q.Grade, "attempt", attempt+1, "err", err)
		e.cfg.Observer.Observe(ctx, Event{Kind: EventOracleFailed, Subject: q.SubjectName, Grade: q.Grade, RequiredExamMarks: q.RequiredExamMarks, Err: err})
	}
	return false, nil
}

func (e *Engine) finish(ctx context.Context, r SubjectResult) {
	kind := EventCommitted
	if r.AtRisk {
		kind = EventAtRisk
		e.cfg.Logger.Debug("subject at risk", "subject", r.SubjectName)
	} else {
		e.cfg.Logger.Debug("subject committed", "subject", r.SubjectName, "grade", r.Grade, "see", r.RequiredExamMarks)
	}
	e.cfg.Observer.Observe(ctx, Event{Kind: kind, Subject: r.SubjectName, Grade: r.Grade, RequiredExamMarks: r.RequiredExamMarks})
}
