// Package gemini lets a Gemini model answer confidence questions.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/mind-engage/gradevision/internal/grading"
)

var (
	ErrNoAPIKey    = errors.New("GEMINI_API_KEY not set")
	ErrEmptyAnswer = errors.New("model returned no content")
)

type generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

type Oracle struct {
	client  *genai.Client
	model   generator
	timeout time.Duration
	log     *slog.Logger
}

var _ grading.Oracle = (*Oracle)(nil)

func New(ctx context.Context, apiKey, model string, timeout time.Duration, log *slog.Logger) (*Oracle, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("unable to create Gemini client: %w", err)
	}
	m := client.GenerativeModel(model)
	m.ResponseMIMEType = "application/json"
	m.SetTemperature(0)
	o := newOracle(m, timeout, log)
	o.client = client
	return o, nil
}

func newOracle(m generator, timeout time.Duration, log *slog.Logger) *Oracle {
	if log == nil {
		log = slog.Default()
	}
	return &Oracle{model: m, timeout: timeout, log: log}
}

func (o *Oracle) Close() error {
	if o.client == nil {
		return nil
	}
	return o.client.Close()
}

// answer is the JSON shape the model is told to produce. Only Confident is
// trusted; the echoed numbers are compared for logging.
type answer struct {
	GradePoint       int      `json:"gradePoint"`
	Confident        *bool    `json:"confident"`
	RequiredSeeMarks *float64 `json:"requiredSeeMarks"`
}

func (o *Oracle) Assess(ctx context.Context, q grading.Question) (bool, error) {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	resp, err := o.model.GenerateContent(ctx, genai.Text(buildPrompt(q)))
	if err != nil {
		return false, fmt.Errorf("gemini: %w", err)
	}
	text, err := firstText(resp)
	if err != nil {
		return false, err
	}
	a, err := parseAnswer(text)
	if err != nil {
		return false, err
	}
	if a.GradePoint != q.GradePoint || (a.RequiredSeeMarks != nil && int(*a.RequiredSeeMarks) != q.RequiredExamMarks) {
		o.log.Debug("gemini echoed different numbers",
			slog.String("subject", q.SubjectName),
			slog.Int("grade_point", a.GradePoint),
		)
	}
	return *a.Confident, nil
}

func buildPrompt(q grading.Question) string {
	var b strings.Builder
	fmt.Fprintf(&b, "A student is estimating their semester grade for the subject %q.\n", q.SubjectName)
	fmt.Fprintf(&b, "They have %.1f out of 50 internal (CIE) marks and the subject carries %.1f credits.\n", q.InternalMarks, q.CreditWeight)
	fmt.Fprintf(&b, "To get an '%s' grade (grade point %d) they need at least %d marks in the semester end exam (out of 100)",
		q.Grade, q.GradePoint, q.RequiredExamMarks)
	if half, ok := q.HalfPaper(); ok {
		fmt.Fprintf(&b, ", i.e. about %.1f out of 50", half)
	}
	b.WriteString(".\n")
	b.WriteString("Decide whether a typical student with these internal marks can confidently score that.\n")
	b.WriteString(`Reply with JSON only: {"gradePoint": <int>, "confident": <bool>, "requiredSeeMarks": <number>}`)
	return b.String()
}

func firstText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", ErrEmptyAnswer
	}
	c := resp.Candidates[0]
	if c.Content == nil || len(c.Content.Parts) == 0 {
		return "", ErrEmptyAnswer
	}
	text, ok := c.Content.Parts[0].(genai.Text)
	if !ok {
		return "", fmt.Errorf("gemini: unexpected part %T", c.Content.Parts[0])
	}
	return string(text), nil
}

func parseAnswer(text string) (answer, error) {
	clean := strings.Trim(text, "```json \n")
	var a answer
	if err := json.Unmarshal([]byte(clean), &a); err != nil {
		return answer{}, fmt.Errorf("gemini: malformed answer: %w", err)
	}
	if a.Confident == nil {
		return answer{}, errors.New("gemini: answer lacks confident")
	}
	return a, nil
}
