package share_test

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/gradevision/internal/gpa"
	"github.com/mind-engage/gradevision/internal/grading"
	"github.com/mind-engage/gradevision/internal/share"
)

var results = []grading.SubjectResult{
	{SubjectName: "Maths", Grade: "A+", GradePoint: 9, RequiredExamMarks: 76, CreditWeight: 4, InternalMarks: 42},
	{SubjectName: "English", Grade: "F", GradePoint: 0, RequiredExamMarks: -1, CreditWeight: 3, InternalMarks: 10, AtRisk: true, RiskReason: grading.AtRiskReason},
}

func TestEncodeDecode(t *testing.T) {
	token, err := share.Encode(results, nil)
	require.NoError(t, err)
	assert.NotContains(t, token, "+")
	assert.NotContains(t, token, "/")
	assert.NotContains(t, token, "=")

	got, err := share.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, results, got.PerSubject)
	assert.Equal(t, 9.0, got.Average)
	assert.True(t, got.AtRisk())
	assert.Nil(t, got.OverallCGPA)
}

func TestDecodeWithPrevious(t *testing.T) {
	prev := 8.5
	token, err := share.Encode(results[:1], &prev)
	require.NoError(t, err)
	got, err := share.Decode(token)
	require.NoError(t, err)
	require.NotNil(t, got.OverallCGPA)
	assert.Equal(t, 8.75, *got.OverallCGPA)
}

func TestDecodeIgnoresTamperedPoints(t *testing.T) {
	tampered := []grading.SubjectResult{{SubjectName: "Maths", Grade: "P", GradePoint: 10, CreditWeight: 4, InternalMarks: 42}}
	token, err := share.Encode(tampered, nil)
	require.NoError(t, err)
	got, err := share.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, 4, got.PerSubject[0].GradePoint)
	assert.Equal(t, 4.0, got.Average)
}

func TestDecodeTakesRiskFromGrade(t *testing.T) {
	tampered := []grading.SubjectResult{
		{SubjectName: "Maths", Grade: "O", GradePoint: 10, CreditWeight: 4, InternalMarks: 45, AtRisk: true, RiskReason: "made up"},
		{SubjectName: "Physics", Grade: "B", GradePoint: 6, CreditWeight: 4, InternalMarks: 30},
		{SubjectName: "English", Grade: "F", CreditWeight: 3, InternalMarks: 10, RiskReason: "made up"},
		{SubjectName: "Lab", Grade: "F", CreditWeight: 1, InternalMarks: 20, AtRisk: true, RiskReason: gpa.EditedToFailReason},
	}
	token, err := share.Encode(tampered, nil)
	require.NoError(t, err)
	got, err := share.Decode(token)
	require.NoError(t, err)

	for _, r := range got.PerSubject {
		assert.Equal(t, r.GradePoint == 0, r.AtRisk, r.SubjectName)
	}
	assert.Empty(t, got.PerSubject[0].RiskReason)
	assert.Equal(t, grading.AtRiskReason, got.PerSubject[2].RiskReason)
	assert.Equal(t, gpa.EditedToFailReason, got.PerSubject[3].RiskReason)
	// (10*4 + 6*4) / 8
	assert.Equal(t, 8.0, got.Average)
}

func TestDecodeRejects(t *testing.T) {
	bad := []grading.SubjectResult{{SubjectName: "Maths", Grade: "Q", CreditWeight: 4, InternalMarks: 42}}
	token, err := share.Encode(bad, nil)
	require.NoError(t, err)

	junk := base64.RawURLEncoding.EncodeToString([]byte("not zstd"))
	for _, tok := range []string{"***", junk, token, strings.Repeat("A", 10)} {
		_, err := share.Decode(tok)
		assert.ErrorIs(t, err, share.ErrInvalidToken, tok)
	}

	prev := 12.0
	token, err = share.Encode(results, &prev)
	require.NoError(t, err)
	_, err = share.Decode(token)
	assert.ErrorIs(t, err, share.ErrInvalidToken)
}

func TestDecodeEmpty(t *testing.T) {
	token, err := share.Encode(nil, nil)
	require.NoError(t, err)
	got, err := share.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got.Average)
}
