package natsoracle

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/gradevision/internal/grading"
)

var question = grading.Question{SubjectName: "Maths", Grade: "A", GradePoint: 8, TargetTotalMarks: 70, RequiredExamMarks: 56, InternalMarks: 42, CreditWeight: 4}

func TestRequestRoundTrip(t *testing.T) {
	data, err := json.Marshal(toRequest(question))
	require.NoError(t, err)
	var req request
	require.NoError(t, json.Unmarshal(data, &req))
	assert.Equal(t, question, req.question())
}

func TestResponderHandle(t *testing.T) {
	var got grading.Question
	r := NewResponder(grading.OracleFunc(func(_ context.Context, q grading.Question) (bool, error) {
		got = q
		return q.Grade == "A", nil
	}), nil)

	data, _ := json.Marshal(toRequest(question))
	ok, err := decodeReply(r.handle(context.Background(), data))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, question, got)
}

func TestResponderHandleErrors(t *testing.T) {
	r := NewResponder(grading.OracleFunc(func(context.Context, grading.Question) (bool, error) {
		return false, errors.New("terminal closed")
	}), nil)

	data, _ := json.Marshal(toRequest(question))
	_, err := decodeReply(r.handle(context.Background(), data))
	assert.ErrorContains(t, err, "terminal closed")

	_, err = decodeReply(r.handle(context.Background(), []byte("{")))
	assert.ErrorContains(t, err, "malformed question")
}

func TestDecodeReplyMalformed(t *testing.T) {
	_, err := decodeReply([]byte("yes"))
	assert.Error(t, err)
}
