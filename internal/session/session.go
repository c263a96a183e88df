// Package session keeps in-memory estimation sessions for the HTTP API.
//
// A session holds the finished results of one student and at most one
// descent in flight. The descent is driven one answer at a time, so the
// client itself is the confidence oracle.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/mind-engage/gradevision/internal/gpa"
	"github.com/mind-engage/gradevision/internal/grading"
)

var (
	ErrNotFound  = errors.New("session not found")
	ErrBusy      = errors.New("a subject is already being assessed")
	ErrNoPending = errors.New("no subject is being assessed")
)

type descent struct {
	subject grading.Subject
	state   grading.State
}

type Session struct {
	mu       sync.Mutex
	id       string
	results  []grading.SubjectResult
	previous *float64
	pending  *descent
	running  bool // a server-side engine run holds the session
	touched  time.Time
}

// Snapshot is a consistent copy of a session.
type Snapshot struct {
	ID string `json:"id"`
	gpa.AggregateResult
	Pending      *grading.Question `json:"pending,omitempty"`
	PreviousCGPA *float64          `json:"previous_cgpa,omitempty"`
	OverallCGPA  *float64          `json:"overall_cgpa,omitempty"`
}

// Step is the outcome of beginning or answering: either the next question
// or the finished result.
type Step struct {
	Question *grading.Question     `json:"question,omitempty"`
	Result   *grading.SubjectResult `json:"result,omitempty"`
	Session  Snapshot              `json:"session"`
}

type Manager struct {
	sessions *xsync.MapOf[string, *Session]
	policy   grading.SecuredPolicy
	observer grading.Observer
	ttl      time.Duration
	now      func() time.Time
}

type Option func(*Manager)

func WithPolicy(p grading.SecuredPolicy) Option { return func(m *Manager) { m.policy = p } }
func WithObserver(o grading.Observer) Option    { return func(m *Manager) { m.observer = o } }
func WithTTL(d time.Duration) Option            { return func(m *Manager) { m.ttl = d } }

func NewManager(opts ...Option) *Manager {
	m := &Manager{
		sessions: xsync.NewMapOf[string, *Session](),
		observer: grading.ObserverFunc(func(context.Context, grading.Event) {}),
		ttl:      2 * time.Hour,
		now:      time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

func (m *Manager) Len() int { return m.sessions.Size() }

func (m *Manager) Create() Snapshot {
	s := &Session{id: uuid.NewString(), touched: m.now()}
	m.sessions.Store(s.id, s)
	return s.snapshot()
}

func (m *Manager) Get(id string) (Snapshot, error) {
	var out Snapshot
	err := m.with(id, func(s *Session) error {
		out = s.snapshot()
		return nil
	})
	return out, err
}

func (m *Manager) Delete(id string) error {
	if _, ok := m.sessions.LoadAndDelete(id); !ok {
		return ErrNotFound
	}
	return nil
}

// Begin starts the descent for subject. If no question is needed the
// result is committed at once and Step.Question is nil.
func (m *Manager) Begin(ctx context.Context, id string, subject grading.Subject) (Step, error) {
	var (
		step   Step
		events []grading.Event
	)
	err := m.with(id, func(s *Session) error {
		if s.pending != nil || s.running {
			return ErrBusy
		}
		d := &descent{subject: subject, state: grading.Start(subject, m.policy)}
		step, events = m.move(s, d, nil)
		return nil
	})
	m.emit(ctx, id, events)
	return step, err
}

// Answer applies the student's answer to the pending question.
func (m *Manager) Answer(ctx context.Context, id string, confident bool) (Step, error) {
	var (
		step   Step
		events []grading.Event
	)
	err := m.with(id, func(s *Session) error {
		d := s.pending
		if d == nil {
			return ErrNoPending
		}
		q, _ := grading.Pending(d.state, d.subject)
		kind := grading.EventDeclined
		if confident {
			kind = grading.EventConfirmed
		}
		answered := grading.Event{Kind: kind, Subject: q.SubjectName, Grade: q.Grade, RequiredExamMarks: q.RequiredExamMarks}
		d.state = grading.Advance(d.state, d.subject, confident, m.policy)
		step, events = m.move(s, d, []grading.Event{answered})
		return nil
	})
	m.emit(ctx, id, events)
	return step, err
}

// Abandon drops the pending descent, if any.
func (m *Manager) Abandon(id string) (Snapshot, error) {
	var out Snapshot
	err := m.with(id, func(s *Session) error {
		s.pending = nil
		out = s.snapshot()
		return nil
	})
	return out, err
}

// move records d as pending or, once terminal, appends its result. The
// events it adds to events are for emit, after s.mu is released.
func (m *Manager) move(s *Session, d *descent, events []grading.Event) (Step, []grading.Event) {
	if q, ok := grading.Pending(d.state, d.subject); ok {
		s.pending = d
		events = append(events, grading.Event{Kind: grading.EventAsked, Subject: q.SubjectName, Grade: q.Grade, RequiredExamMarks: q.RequiredExamMarks})
		return Step{Question: &q, Session: s.snapshot()}, events
	}
	s.pending = nil
	r, _ := grading.Result(d.state, d.subject)
	s.results = gpa.Append(s.results, r)
	kind := grading.EventCommitted
	if r.AtRisk {
		kind = grading.EventAtRisk
	}
	events = append(events, grading.Event{Kind: kind, Subject: r.SubjectName, Grade: r.Grade, RequiredExamMarks: r.RequiredExamMarks})
	return Step{Result: &r, Session: s.snapshot()}, events
}

func (m *Manager) emit(ctx context.Context, id string, events []grading.Event) {
	if len(events) == 0 {
		return
	}
	ctx = grading.WithRunID(ctx, id)
	for _, ev := range events {
		m.observer.Observe(ctx, ev)
	}
}

// AssessWith runs whole descents through e, for sessions answered by a
// server-side oracle. The session stays readable meanwhile but cannot
// start another descent.
func (m *Manager) AssessWith(ctx context.Context, id string, e *grading.Engine, subjects []grading.Subject) (Snapshot, error) {
	err := m.with(id, func(s *Session) error {
		if s.pending != nil || s.running {
			return ErrBusy
		}
		s.running = true
		return nil
	})
	if err != nil {
		return Snapshot{}, err
	}

	results, runErr := e.AssessAll(grading.WithRunID(ctx, id), subjects)

	var out Snapshot
	err = m.with(id, func(s *Session) error {
		s.running = false
		if runErr == nil {
			for _, r := range results {
				s.results = gpa.Append(s.results, r)
			}
		}
		out = s.snapshot()
		return nil
	})
	if runErr != nil {
		return Snapshot{}, runErr
	}
	return out, err
}

func (m *Manager) Edit(ctx context.Context, id string, index int, grade string) (Snapshot, error) {
	var (
		out    Snapshot
		events []grading.Event
	)
	err := m.with(id, func(s *Session) error {
		edited, err := gpa.EditGrade(s.results, index, grade)
		if err != nil {
			return err
		}
		s.results = edited
		r := edited[index]
		events = append(events, grading.Event{Kind: grading.EventGradeEdited, Subject: r.SubjectName, Grade: r.Grade, RequiredExamMarks: r.RequiredExamMarks})
		out = s.snapshot()
		return nil
	})
	m.emit(ctx, id, events)
	return out, err
}

func (m *Manager) Remove(id string, index int) (Snapshot, error) {
	var out Snapshot
	err := m.with(id, func(s *Session) error {
		rest, err := gpa.Remove(s.results, index)
		if err != nil {
			return err
		}
		s.results = rest
		out = s.snapshot()
		return nil
	})
	return out, err
}

// SetPrevious records the CGPA before this semester; nil clears it.
func (m *Manager) SetPrevious(id string, previous *float64) (Snapshot, error) {
	var out Snapshot
	err := m.with(id, func(s *Session) error {
		if previous != nil {
			if _, err := gpa.OverallCGPA(*previous, 0); err != nil {
				return err
			}
			v := *previous
			previous = &v
		}
		s.previous = previous
		out = s.snapshot()
		return nil
	})
	return out, err
}

// Reset clears results and any pending descent.
func (m *Manager) Reset(id string) (Snapshot, error) {
	var out Snapshot
	err := m.with(id, func(s *Session) error {
		if s.running {
			return ErrBusy
		}
		s.results = nil
		s.pending = nil
		s.previous = nil
		out = s.snapshot()
		return nil
	})
	return out, err
}

// Sweep drops sessions idle for longer than the TTL and reports how many.
func (m *Manager) Sweep() int {
	cutoff := m.now().Add(-m.ttl)
	n := 0
	m.sessions.Range(func(id string, s *Session) bool {
		s.mu.Lock()
		idle := !s.running && s.touched.Before(cutoff)
		s.mu.Unlock()
		if idle {
			m.sessions.Delete(id)
			n++
		}
		return true
	})
	return n
}

// Run sweeps every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.Sweep()
		}
	}
}

func (m *Manager) with(id string, fn func(*Session) error) error {
	s, ok := m.sessions.Load(id)
	if !ok {
		return ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched = m.now()
	return fn(s)
}

// snapshot must be called with s.mu held.
func (s *Session) snapshot() Snapshot {
	out := Snapshot{ID: s.id, AggregateResult: gpa.Aggregate(s.results)}
	if s.pending != nil {
		if q, ok := grading.Pending(s.pending.state, s.pending.subject); ok {
			out.Pending = &q
		}
	}
	if s.previous != nil {
		p := *s.previous
		out.PreviousCGPA = &p
		if overall, err := gpa.OverallCGPA(p, out.Average); err == nil {
			out.OverallCGPA = &overall
		}
	}
	return out
}
