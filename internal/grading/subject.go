package grading

import (
	"math"

	"github.com/mind-engage/gradevision/internal/ladder"
)

// AtRiskReason is attached to subjects whose descent ran out of tiers.
const AtRiskReason = "Lacks confidence for any passing grade. This subject is at risk."

// Subject is validated input for one descent. The engine never mutates it.
type Subject struct {
	Name          string  `json:"name"`
	InternalMarks float64 `json:"cie"`
	CreditWeight  float64 `json:"credits"`
}

// SubjectResult is the terminal outcome of a descent, or of a manual edit.
// AtRisk holds exactly when GradePoint is zero.
type SubjectResult struct {
	SubjectName       string  `json:"subject_name"`
	Grade             string  `json:"grade"`
	GradePoint        int     `json:"grade_point"`
	RequiredExamMarks int     `json:"required_see_marks"` // ladder.NotApplicable when at risk
	CreditWeight      float64 `json:"credits"`
	InternalMarks     float64 `json:"cie"`
	AtRisk            bool    `json:"at_risk"`
	RiskReason        string  `json:"risk_reason,omitempty"`
}

// ShowsRequiredMarks reports whether the required SEE figure is a real score.
func (r SubjectResult) ShowsRequiredMarks() bool {
	return r.RequiredExamMarks >= 0 && r.RequiredExamMarks <= ladder.MaxExamMarks
}

func committed(s Subject, t ladder.Tier) SubjectResult {
	return SubjectResult{
		SubjectName:       s.Name,
		Grade:             t.Name,
		GradePoint:        t.GradePoint,
		RequiredExamMarks: ladder.Round(ladder.RequiredExamMarks(t, s.InternalMarks)),
		CreditWeight:      s.CreditWeight,
		InternalMarks:     s.InternalMarks,
	}
}

func atRisk(s Subject) SubjectResult {
	f := ladder.Fallback()
	return SubjectResult{
		SubjectName:       s.Name,
		Grade:             f.Name,
		GradePoint:        f.GradePoint,
		RequiredExamMarks: ladder.NotApplicable,
		CreditWeight:      s.CreditWeight,
		InternalMarks:     s.InternalMarks,
		AtRisk:            true,
		RiskReason:        AtRiskReason,
	}
}

// Question is what the oracle is asked at a reachable tier.
type Question struct {
	SubjectName       string  `json:"subject_name"`
	Grade             string  `json:"grade"`
	GradePoint        int     `json:"grade_point"`
	TargetTotalMarks  int     `json:"target_total_marks"`
	RequiredExamMarks int     `json:"required_see_marks"`
	InternalMarks     float64 `json:"cie"`
	CreditWeight      float64 `json:"credits"`
}

// HalfPaper converts the requirement to a 50-mark paper, which is how
// 1 and 2 credit subjects are examined.
func (q Question) HalfPaper() (float64, bool) {
	if q.CreditWeight != 1 && q.CreditWeight != 2 {
		return 0, false
	}
	return math.Round(float64(q.RequiredExamMarks)/2*10) / 10, true
}
