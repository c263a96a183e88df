// Package ladder holds the fixed grade table used to turn total marks
// (CIE + SEE, out of 100) into letter grades and grade points.
package ladder

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

const (
	// MaxExamMarks is the top of the final exam (SEE) scale.
	MaxExamMarks = 100
	// MaxInternalMarks is the top of the internal assessment (CIE) scale.
	MaxInternalMarks = 50
	// NotApplicable marks a required-marks figure that has no meaning,
	// e.g. for subjects that ended at risk.
	NotApplicable = -1
)

var ErrUnknownTier = errors.New("unknown grade")

// Tier is one band of the ladder.
type Tier struct {
	Name          string `json:"name"`
	MinTotalMarks int    `json:"min_total_marks"`
	GradePoint    int    `json:"grade_point"`
}

// Passing reports whether the tier carries grade points.
func (t Tier) Passing() bool { return t.GradePoint > 0 }

// tiers is ordered by MinTotalMarks, strictly descending, ending in the
// zero-point fallback.
var tiers = []Tier{
	{Name: "O", MinTotalMarks: 90, GradePoint: 10},
	{Name: "A+", MinTotalMarks: 80, GradePoint: 9},
	{Name: "A", MinTotalMarks: 70, GradePoint: 8},
	{Name: "B+", MinTotalMarks: 60, GradePoint: 7},
	{Name: "B", MinTotalMarks: 50, GradePoint: 6},
	{Name: "C", MinTotalMarks: 45, GradePoint: 5},
	{Name: "P", MinTotalMarks: 40, GradePoint: 4},
	{Name: "F", MinTotalMarks: 0, GradePoint: 0},
}

func init() {
	if err := validate(tiers); err != nil {
		panic(err)
	}
}

func validate(ts []Tier) error {
	if len(ts) == 0 {
		return errors.New("ladder: empty")
	}
	fallbacks := 0
	for i, t := range ts {
		if t.Name == "" {
			return fmt.Errorf("ladder: tier %d has no name", i)
		}
		if t.MinTotalMarks < 0 || t.MinTotalMarks > 100 {
			return fmt.Errorf("ladder: %s threshold %d out of range", t.Name, t.MinTotalMarks)
		}
		if t.GradePoint < 0 || t.GradePoint > 10 {
			return fmt.Errorf("ladder: %s grade point %d out of range", t.Name, t.GradePoint)
		}
		if i > 0 && t.MinTotalMarks >= ts[i-1].MinTotalMarks {
			return fmt.Errorf("ladder: %s is not below %s", t.Name, ts[i-1].Name)
		}
		if t.GradePoint == 0 {
			if t.MinTotalMarks != 0 {
				return fmt.Errorf("ladder: zero-point tier %s must have threshold 0", t.Name)
			}
			fallbacks++
		}
	}
	if fallbacks != 1 {
		return fmt.Errorf("ladder: want exactly one fallback tier, got %d", fallbacks)
	}
	if ts[len(ts)-1].GradePoint != 0 {
		return errors.New("ladder: last tier must be the fallback")
	}
	return nil
}

// Tiers returns a copy of the ladder, highest tier first.
func Tiers() []Tier {
	out := make([]Tier, len(tiers))
	copy(out, tiers)
	return out
}

func Len() int { return len(tiers) }

// At returns the i-th tier. It panics if i is out of range, like a slice.
func At(i int) Tier { return tiers[i] }

// Fallback is the failing tier every descent ends on when nothing is confirmed.
func Fallback() Tier { return tiers[len(tiers)-1] }

// Lookup finds a tier by name. Names are matched case-insensitively so
// "a+" and "A+" are the same grade.
func Lookup(name string) (Tier, error) {
	n := strings.TrimSpace(name)
	for _, t := range tiers {
		if strings.EqualFold(t.Name, n) {
			return t, nil
		}
	}
	return Tier{}, fmt.Errorf("%w: %q", ErrUnknownTier, name)
}

// RequiredExamMarks is the SEE score needed to reach t given the CIE marks.
// The SEE paper is out of 100 but weighs half of the total, so the gap is doubled.
func RequiredExamMarks(t Tier, internalMarks float64) float64 {
	return 2 * (float64(t.MinTotalMarks) - internalMarks)
}

// Reachability classifies a required-marks figure against the SEE range.
type Reachability int

const (
	// Reachable means 0 <= required <= 100.
	Reachable Reachability = iota
	// Secured means internal marks alone already clear the threshold.
	Secured
	// OutOfReach means even full SEE marks fall short.
	OutOfReach
)

func (r Reachability) String() string {
	switch r {
	case Reachable:
		return "reachable"
	case Secured:
		return "secured"
	case OutOfReach:
		return "out_of_reach"
	default:
		return fmt.Sprintf("Reachability(%d)", int(r))
	}
}

func Classify(required float64) Reachability {
	switch {
	case required < 0:
		return Secured
	case required > MaxExamMarks:
		return OutOfReach
	default:
		return Reachable
	}
}

// IsReachable reports whether t can be reached with a valid SEE score.
func IsReachable(t Tier, internalMarks float64) bool {
	return Classify(RequiredExamMarks(t, internalMarks)) == Reachable
}

// Round rounds half up, so 75.5 becomes 76 and -10.5 becomes -10.
func Round(v float64) int {
	return int(math.Floor(v + 0.5))
}
