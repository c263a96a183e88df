// Package intake validates raw subject input before it reaches the grading engine.
package intake

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/mind-engage/gradevision/internal/grading"
)

var ErrNoSubjects = errors.New("please add at least one subject")

// SubjectInput is a subject as typed by the student. Marks are pointers so a
// missing value can be told apart from zero.
type SubjectInput struct {
	Name    string   `json:"name" toml:"name" validate:"required"`
	CIE     *float64 `json:"cie" toml:"cie" validate:"required,gte=0,lte=50"`
	Credits *float64 `json:"credits" toml:"credits" validate:"required,gte=0.5,lte=10"`
}

// FieldError is used to indicate an error with a specific input field.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func (err *ValidationError) Error() string {
	if len(err.Fields) == 0 {
		return err.Err.Error()
	}
	msgs := make([]string, 0, len(err.Fields))
	for _, f := range err.Fields {
		msgs = append(msgs, f.Field+": "+f.Error)
	}
	return err.Err.Error() + ": " + strings.Join(msgs, "; ")
}

func (err *ValidationError) Unwrap() error { return err.Err }

var errInvalid = errors.New("invalid subject")

// messages override the stock translations for the fields students see.
var messages = map[string]string{
	"name.required":    "Subject name is required.",
	"cie.required":     "CIE marks are required.",
	"cie.gte":          "CIE marks must be at least 0.",
	"cie.lte":          "CIE marks cannot exceed 50.",
	"credits.required": "Credits are required.",
	"credits.gte":      "Credits must be at least 0.5.",
	"credits.lte":      "Credits cannot exceed 10.",
}

// Validator wraps a configured go-playground validator.
type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

func NewValidator() *Validator {
	locale := en.New()
	uni := ut.New(locale, locale)
	translator, _ := uni.GetTranslator("en")

	validate := validator.New(validator.WithRequiredStructEnabled())
	_ = en_translations.RegisterDefaultTranslations(validate, translator)
	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{validate: validate, translator: translator}
}

// Subject validates one input and converts it for the engine.
func (v *Validator) Subject(in SubjectInput) (grading.Subject, error) {
	fields := v.check(in, "")
	if len(fields) > 0 {
		return grading.Subject{}, &ValidationError{Err: errInvalid, Fields: fields}
	}
	return toSubject(in), nil
}

// Subjects validates a whole list; field names carry the index, e.g. "subjects[1].cie".
func (v *Validator) Subjects(in []SubjectInput) ([]grading.Subject, error) {
	if len(in) == 0 {
		return nil, ErrNoSubjects
	}
	var fields []FieldError
	out := make([]grading.Subject, 0, len(in))
	for i, s := range in {
		fe := v.check(s, fmt.Sprintf("subjects[%d].", i))
		if len(fe) > 0 {
			fields = append(fields, fe...)
			continue
		}
		out = append(out, toSubject(s))
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Err: errInvalid, Fields: fields}
	}
	return out, nil
}

func (v *Validator) check(in SubjectInput, prefix string) []FieldError {
	in.Name = strings.TrimSpace(in.Name)
	err := v.validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Field: prefix + "subject", Error: err.Error()}}
	}
	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		msg, ok := messages[fe.Field()+"."+fe.Tag()]
		if !ok {
			msg = fe.Translate(v.translator)
		}
		out = append(out, FieldError{Field: prefix + fe.Field(), Error: msg})
	}
	return out
}

func toSubject(in SubjectInput) grading.Subject {
	return grading.Subject{
		Name:          strings.TrimSpace(in.Name),
		InternalMarks: *in.CIE,
		CreditWeight:  *in.Credits,
	}
}

// ParseShorthand reads the "name:cie:credits" shorthand used on the command line.
// The name itself may contain colons.
func ParseShorthand(arg string) (SubjectInput, error) {
	credIdx := strings.LastIndex(arg, ":")
	if credIdx < 0 {
		return SubjectInput{}, fmt.Errorf("subject %q: want name:cie:credits", arg)
	}
	cieIdx := strings.LastIndex(arg[:credIdx], ":")
	if cieIdx < 0 {
		return SubjectInput{}, fmt.Errorf("subject %q: want name:cie:credits", arg)
	}
	cie, err := strconv.ParseFloat(strings.TrimSpace(arg[cieIdx+1:credIdx]), 64)
	if err != nil {
		return SubjectInput{}, fmt.Errorf("subject %q: cie: %w", arg, err)
	}
	credits, err := strconv.ParseFloat(strings.TrimSpace(arg[credIdx+1:]), 64)
	if err != nil {
		return SubjectInput{}, fmt.Errorf("subject %q: credits: %w", arg, err)
	}
	return SubjectInput{Name: arg[:cieIdx], CIE: &cie, Credits: &credits}, nil
}
