package grading

import "context"

type EventKind string

const (
	EventAsked        EventKind = "ConfidenceAsked"
	EventConfirmed    EventKind = "ConfidenceConfirmed"
	EventDeclined     EventKind = "ConfidenceDeclined"
	EventOracleFailed EventKind = "OracleFailed"
	EventCommitted    EventKind = "SubjectCommitted"
	EventAtRisk       EventKind = "SubjectAtRisk"
	EventGradeEdited  EventKind = "GradeEdited"
)

// Event is one step of a descent, reported to an Observer.
type Event struct {
	Kind              EventKind
	Subject           string
	Grade             string
	RequiredExamMarks int
	Err               error
}

// Observer receives descent events. Implementations must not block for long;
// they run inline with the descent.
type Observer interface {
	Observe(ctx context.Context, ev Event)
}

type ObserverFunc func(ctx context.Context, ev Event)

func (f ObserverFunc) Observe(ctx context.Context, ev Event) { f(ctx, ev) }

type nopObserver struct{}

func (nopObserver) Observe(context.Context, Event) {}

type runKey struct{}

// WithRunID tags ctx so observers can tell descents of different sessions apart.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runKey{}, id)
}

// RunID returns the tag set by WithRunID, or "".
func RunID(ctx context.Context) string {
	id, _ := ctx.Value(runKey{}).(string)
	return id
}
