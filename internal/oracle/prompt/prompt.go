// Package prompt asks the confidence question of a person at a terminal.
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/mind-engage/gradevision/internal/grading"
)

// maxTries bounds how often an unreadable answer is asked again.
const maxTries = 3

var ErrNoAnswer = errors.New("no answer given")

type Oracle struct {
	mu  sync.Mutex
	in  *bufio.Scanner
	out io.Writer

	title *color.Color
	grade *color.Color
	marks *color.Color
}

var _ grading.Oracle = (*Oracle)(nil)

func New(in io.Reader, out io.Writer) *Oracle {
	return &Oracle{
		in:    bufio.NewScanner(in),
		out:   out,
		title: color.New(color.FgCyan, color.Bold),
		grade: color.New(color.FgGreen, color.Bold),
		marks: color.New(color.FgYellow, color.Bold),
	}
}

// Assess prints the question and waits for y/n. Only one question is on the
// terminal at a time, whichever descent asks it.
func (o *Oracle) Assess(ctx context.Context, q grading.Question) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.title.Fprintf(o.out, "\nConfidence check: %s\n", q.SubjectName)
	fmt.Fprintf(o.out, "To get an '%s' grade, you need at least %s marks in your SEE (out of 100)",
		o.grade.Sprint(q.Grade), o.marks.Sprint(q.RequiredExamMarks))
	if half, ok := q.HalfPaper(); ok {
		fmt.Fprintf(o.out, " (i.e., ~%s out of 50)", o.marks.Sprintf("%.1f", half))
	}
	fmt.Fprintln(o.out, ".")

	for try := 0; try < maxTries; try++ {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		fmt.Fprint(o.out, "Are you confident you can score this? [y/n] ")
		if !o.in.Scan() {
			if err := o.in.Err(); err != nil {
				return false, err
			}
			return false, ErrNoAnswer
		}
		if v, ok := parseAnswer(o.in.Text()); ok {
			return v, nil
		}
		fmt.Fprintln(o.out, "Please answer y or n.")
	}
	return false, ErrNoAnswer
}

func parseAnswer(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes", "confident":
		return true, true
	case "n", "no", "not confident":
		return false, true
	default:
		return false, false
	}
}
