package grading

import (
	"errors"
	"fmt"

	"github.com/mind-engage/gradevision/internal/ladder"
)

var ErrNotTerminal = errors.New("descent has not finished")

type Phase int

const (
	Probing Phase = iota
	Committed
	Exhausted
)

func (p Phase) String() string {
	switch p {
	case Probing:
		return "probing"
	case Committed:
		return "committed"
	case Exhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// State is the position of one subject's descent. TierIndex points into the
// ladder and only ever grows while Probing.
type State struct {
	Phase     Phase `json:"phase"`
	TierIndex int   `json:"tier_index"`
}

func (s State) Terminal() bool { return s.Phase != Probing }

// SecuredPolicy decides what happens at a tier the internal marks already clear.
type SecuredPolicy int

const (
	// SkipSecured passes over the tier without asking, like an unreachable one.
	SkipSecured SecuredPolicy = iota
	// CommitSecured commits the tier without asking.
	CommitSecured
)

func ParseSecuredPolicy(s string) (SecuredPolicy, error) {
	switch s {
	case "", "skip":
		return SkipSecured, nil
	case "commit":
		return CommitSecured, nil
	default:
		return SkipSecured, fmt.Errorf("unknown secured policy %q", s)
	}
}

// probeLimit is the number of tiers that can be asked about; the fallback
// tier is never probed, it is only reached by exhaustion.
func probeLimit() int { return ladder.Len() - 1 }

// Start returns the first state for s: the highest tier, moved past any
// tier that needs no question.
func Start(s Subject, policy SecuredPolicy) State {
	return settle(State{Phase: Probing}, s, policy)
}

// Advance applies one oracle answer. Terminal states are returned unchanged.
func Advance(st State, s Subject, confident bool, policy SecuredPolicy) State {
	if st.Terminal() {
		return st
	}
	if confident {
		return State{Phase: Committed, TierIndex: st.TierIndex}
	}
	return settle(State{Phase: Probing, TierIndex: st.TierIndex + 1}, s, policy)
}

// settle moves a probing state down to the next tier that needs a question,
// or to a terminal state.
func settle(st State, s Subject, policy SecuredPolicy) State {
	for st.Phase == Probing {
		if st.TierIndex >= probeLimit() {
			return State{Phase: Exhausted, TierIndex: ladder.Len() - 1}
		}
		t := ladder.At(st.TierIndex)
		switch ladder.Classify(ladder.RequiredExamMarks(t, s.InternalMarks)) {
		case ladder.Reachable:
			return st
		case ladder.Secured:
			if policy == CommitSecured {
				return State{Phase: Committed, TierIndex: st.TierIndex}
			}
		}
		st.TierIndex++
	}
	return st
}

// Pending returns the question a probing state is waiting on.
func Pending(st State, s Subject) (Question, bool) {
	if st.Phase != Probing {
		return Question{}, false
	}
	t := ladder.At(st.TierIndex)
	return Question{
		SubjectName:       s.Name,
		Grade:             t.Name,
		GradePoint:        t.GradePoint,
		TargetTotalMarks:  t.MinTotalMarks,
		RequiredExamMarks: ladder.Round(ladder.RequiredExamMarks(t, s.InternalMarks)),
		InternalMarks:     s.InternalMarks,
		CreditWeight:      s.CreditWeight,
	}, true
}

// Result converts a terminal state into the subject's result.
func Result(st State, s Subject) (SubjectResult, error) {
	switch st.Phase {
	case Committed:
		return committed(s, ladder.At(st.TierIndex)), nil
	case Exhausted:
		return atRisk(s), nil
	default:
		return SubjectResult{}, ErrNotTerminal
	}
}
