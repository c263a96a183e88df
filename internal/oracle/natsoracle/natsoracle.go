// Package natsoracle carries confidence questions over NATS request/reply.
// The requester side is an Oracle; a Responder on another machine answers
// with any Oracle it wraps, usually a terminal prompt.
package natsoracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/mind-engage/gradevision/internal/grading"
)

// QueueGroup makes a question reach exactly one responder.
const QueueGroup = "gradevision-responders"

type request struct {
	Subject           string  `json:"subject"`
	Grade             string  `json:"grade"`
	GradePoint        int     `json:"grade_point"`
	TargetTotalMarks  int     `json:"target_total_marks"`
	RequiredExamMarks int     `json:"required_see_marks"`
	InternalMarks     float64 `json:"cie"`
	CreditWeight      float64 `json:"credits"`
}

type reply struct {
	Confident bool   `json:"confident"`
	Error     string `json:"error,omitempty"`
}

func toRequest(q grading.Question) request {
	return request{
		Subject:           q.SubjectName,
		Grade:             q.Grade,
		GradePoint:        q.GradePoint,
		TargetTotalMarks:  q.TargetTotalMarks,
		RequiredExamMarks: q.RequiredExamMarks,
		InternalMarks:     q.InternalMarks,
		CreditWeight:      q.CreditWeight,
	}
}

func (r request) question() grading.Question {
	return grading.Question{
		SubjectName:       r.Subject,
		Grade:             r.Grade,
		GradePoint:        r.GradePoint,
		TargetTotalMarks:  r.TargetTotalMarks,
		RequiredExamMarks: r.RequiredExamMarks,
		InternalMarks:     r.InternalMarks,
		CreditWeight:      r.CreditWeight,
	}
}

// Oracle asks over NATS and waits for one reply.
type Oracle struct {
	nc      *nats.Conn
	subject string
	timeout time.Duration
}

var _ grading.Oracle = (*Oracle)(nil)

func New(nc *nats.Conn, subject string, timeout time.Duration) *Oracle {
	return &Oracle{nc: nc, subject: subject, timeout: timeout}
}

func (o *Oracle) Assess(ctx context.Context, q grading.Question) (bool, error) {
	data, err := json.Marshal(toRequest(q))
	if err != nil {
		return false, err
	}
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}
	msg, err := o.nc.RequestWithContext(ctx, o.subject, data)
	if err != nil {
		return false, fmt.Errorf("nats request %s: %w", o.subject, err)
	}
	return decodeReply(msg.Data)
}

func decodeReply(data []byte) (bool, error) {
	var r reply
	if err := json.Unmarshal(data, &r); err != nil {
		return false, fmt.Errorf("malformed reply: %w", err)
	}
	if r.Error != "" {
		return false, errors.New("responder: " + r.Error)
	}
	return r.Confident, nil
}

// Responder answers questions arriving on a subject with the wrapped Oracle.
// NATS delivers one message at a time per subscription, so the wrapped
// oracle sees questions one by one.
type Responder struct {
	oracle grading.Oracle
	log    *slog.Logger
}

func NewResponder(o grading.Oracle, log *slog.Logger) *Responder {
	if log == nil {
		log = slog.Default()
	}
	return &Responder{oracle: o, log: log}
}

// Serve subscribes and answers until ctx is done, then drains.
func (r *Responder) Serve(ctx context.Context, nc *nats.Conn, subject string) error {
	sub, err := nc.QueueSubscribe(subject, QueueGroup, func(m *nats.Msg) {
		if err := m.Respond(r.handle(ctx, m.Data)); err != nil {
			r.log.Error("failed to reply", "subject", subject, "err", err)
		}
	})
	if err != nil {
		return err
	}
	r.log.Info("answering confidence questions", "subject", subject)
	<-ctx.Done()
	return sub.Drain()
}

func (r *Responder) handle(ctx context.Context, data []byte) []byte {
	var req request
	if err := json.Unmarshal(data, &req); err != nil {
		return encodeReply(reply{Error: "malformed question"})
	}
	confident, err := r.oracle.Assess(ctx, req.question())
	if err != nil {
		r.log.Warn("responder oracle failed", "subject", req.Subject, "grade", req.Grade, "err", err)
		return encodeReply(reply{Error: err.Error()})
	}
	return encodeReply(reply{Confident: confident})
}

func encodeReply(r reply) []byte {
	b, _ := json.Marshal(r)
	return b
}
