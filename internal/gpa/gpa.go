// Package gpa folds subject results into a credit-weighted grade point average.
//
// Every function here is pure: inputs are never modified and results are
// always derived afresh from the subject list.
package gpa

import (
	"errors"
	"fmt"
	"math"

	"github.com/mind-engage/gradevision/internal/grading"
	"github.com/mind-engage/gradevision/internal/ladder"
)

// EditedToFailReason is attached when a manual edit moves a subject to a zero-point grade.
const EditedToFailReason = "Subject failed due to manual grade edit."

var (
	ErrIndexOutOfRange = errors.New("subject index out of range")
	ErrInvalidPrevious = errors.New("previous CGPA must be between 0 and 10")
)

// AggregateResult is the breakdown shown to the student.
type AggregateResult struct {
	PerSubject []grading.SubjectResult `json:"results"`
	Average    float64                 `json:"sgpa"`
}

// AtRisk reports whether any subject is excluded from the average.
func (a AggregateResult) AtRisk() bool {
	for _, r := range a.PerSubject {
		if r.AtRisk {
			return true
		}
	}
	return false
}

// Aggregate computes the weighted average over subjects that are not at
// risk. At-risk subjects count in neither the numerator nor the credits.
func Aggregate(results []grading.SubjectResult) AggregateResult {
	per := make([]grading.SubjectResult, len(results))
	copy(per, results)

	var points, credits float64
	for _, r := range per {
		if r.AtRisk {
			continue
		}
		points += float64(r.GradePoint) * r.CreditWeight
		credits += r.CreditWeight
	}
	avg := 0.0
	if credits > 0 {
		avg = points / credits
	}
	return AggregateResult{PerSubject: per, Average: Round2(avg)}
}

// Round2 rounds to two decimal places, halves away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// EditGrade replaces the grade of subject i. The required SEE marks are
// recomputed for the new grade so the figure always matches the ladder.
// The caller re-runs Aggregate.
func EditGrade(results []grading.SubjectResult, i int, grade string) ([]grading.SubjectResult, error) {
	if i < 0 || i >= len(results) {
		return nil, fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
	}
	t, err := ladder.Lookup(grade)
	if err != nil {
		return nil, err
	}
	out := make([]grading.SubjectResult, len(results))
	copy(out, results)

	r := out[i]
	r.Grade = t.Name
	r.GradePoint = t.GradePoint
	r.RequiredExamMarks = ladder.Round(ladder.RequiredExamMarks(t, r.InternalMarks))
	if t.Passing() {
		r.AtRisk = false
		r.RiskReason = ""
	} else {
		r.AtRisk = true
		r.RiskReason = EditedToFailReason
	}
	out[i] = r
	return out, nil
}

// Remove drops subject i.
func Remove(results []grading.SubjectResult, i int) ([]grading.SubjectResult, error) {
	if i < 0 || i >= len(results) {
		return nil, fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
	}
	out := make([]grading.SubjectResult, 0, len(results)-1)
	out = append(out, results[:i]...)
	return append(out, results[i+1:]...), nil
}

// Append adds a finished result at the end.
func Append(results []grading.SubjectResult, r grading.SubjectResult) []grading.SubjectResult {
	out := make([]grading.SubjectResult, len(results), len(results)+1)
	copy(out, results)
	return append(out, r)
}

// OverallCGPA averages a previous CGPA with this semester's SGPA.
func OverallCGPA(previous, sgpa float64) (float64, error) {
	if math.IsNaN(previous) || previous < 0 || previous > 10 {
		return 0, ErrInvalidPrevious
	}
	return Round2((previous + sgpa) / 2), nil
}
