// Package share packs a result set into a URL-safe token and back.
//
// A token is base64url(zstd(json)). Nothing is stored server side: the token
// is the data.
package share

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/klauspost/compress/zstd"

	"github.com/mind-engage/gradevision/internal/gpa"
	"github.com/mind-engage/gradevision/internal/grading"
	"github.com/mind-engage/gradevision/internal/ladder"
)

const version = 1

// maxDecoded caps the JSON a token may expand to.
const maxDecoded = 1 << 20

var ErrInvalidToken = errors.New("invalid share token")

type payload struct {
	Version      int                     `json:"v"`
	Results      []grading.SubjectResult `json:"results"`
	PreviousCGPA *float64                `json:"previous_cgpa,omitempty"`
}

// Shared is what a token decodes to. The SGPA is recomputed, never read
// from the token.
type Shared struct {
	gpa.AggregateResult
	PreviousCGPA *float64 `json:"previous_cgpa,omitempty"`
	OverallCGPA  *float64 `json:"overall_cgpa,omitempty"`
}

var (
	encoder *zstd.Encoder
	decoder *zstd.Decoder
)

func init() {
	var err error
	if encoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBestCompression)); err != nil {
		panic(err)
	}
	if decoder, err = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxDecoded), zstd.WithDecoderConcurrency(0)); err != nil {
		panic(err)
	}
}

func Encode(results []grading.SubjectResult, previous *float64) (string, error) {
	raw, err := json.Marshal(payload{Version: version, Results: results, PreviousCGPA: previous})
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(encoder.EncodeAll(raw, nil)), nil
}

func Decode(token string) (Shared, error) {
	compressed, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Shared{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	raw, err := decoder.DecodeAll(compressed, nil)
	if err != nil {
		return Shared{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Shared{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if p.Version != version {
		return Shared{}, fmt.Errorf("%w: version %d", ErrInvalidToken, p.Version)
	}
	for i := range p.Results {
		if err := check(&p.Results[i]); err != nil {
			return Shared{}, fmt.Errorf("%w: results[%d]: %v", ErrInvalidToken, i, err)
		}
	}

	out := Shared{AggregateResult: gpa.Aggregate(p.Results), PreviousCGPA: p.PreviousCGPA}
	if p.PreviousCGPA != nil {
		overall, err := gpa.OverallCGPA(*p.PreviousCGPA, out.Average)
		if err != nil {
			return Shared{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
		out.OverallCGPA = &overall
	}
	return out, nil
}

// check rejects values a real descent could not have produced. The grade
// point and the at-risk flag come from the ladder rather than the token.
func check(r *grading.SubjectResult) error {
	if r.SubjectName == "" {
		return errors.New("missing subject name")
	}
	if !finite(r.CreditWeight) || r.CreditWeight <= 0 || r.CreditWeight > 10 {
		return fmt.Errorf("credits %v out of range", r.CreditWeight)
	}
	if !finite(r.InternalMarks) || r.InternalMarks < 0 || r.InternalMarks > ladder.MaxInternalMarks {
		return fmt.Errorf("cie %v out of range", r.InternalMarks)
	}
	t, err := ladder.Lookup(r.Grade)
	if err != nil {
		return err
	}
	r.Grade, r.GradePoint = t.Name, t.GradePoint
	r.AtRisk = !t.Passing()
	switch {
	case !r.AtRisk:
		r.RiskReason = ""
	case r.RiskReason != grading.AtRiskReason && r.RiskReason != gpa.EditedToFailReason:
		r.RiskReason = grading.AtRiskReason
	}
	return nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
