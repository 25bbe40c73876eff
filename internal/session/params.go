package session

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kozaktomas/face-attendance/internal/constants"
)

var (
	// ErrSessionActive is returned by Start while a session is not idle.
	ErrSessionActive = errors.New("a capture session is already running")
	// ErrStartCancelled is returned by Start when Stop was called before the
	// camera was running.
	ErrStartCancelled = errors.New("capture session stopped while starting")
	// ErrClosed is returned by Start after Close.
	ErrClosed = errors.New("capture controller is closed")
)

// Identity is who a session submits attendance as.
type Identity struct {
	TeacherID string
}

// Params are the filters a teacher picks before starting a capture session.
type Params struct {
	SubjectID string `json:"subject_id" validate:"required"`
	Course    string `json:"course" validate:"required"`
	ClassYear string `json:"class_year" validate:"required"`
	Division  string `json:"division,omitempty"`
	Date      string `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// ValidationError lists the parameters a session cannot start without.
type ValidationError struct {
	Fields []string
	Err    error
}

func (e *ValidationError) Error() string {
	return "invalid session parameters: " + strings.Join(e.Fields, ", ")
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// normalize trims the filters and fills in today's date.
func (p Params) normalize(now time.Time) Params {
	p.SubjectID = strings.TrimSpace(p.SubjectID)
	p.Course = strings.TrimSpace(p.Course)
	p.ClassYear = strings.TrimSpace(p.ClassYear)
	p.Division = strings.TrimSpace(p.Division)
	p.Date = strings.TrimSpace(p.Date)
	if p.Date == "" {
		p.Date = now.Format(constants.DateLayout)
	}
	return p
}

// Validate reports missing or malformed parameters as a *ValidationError.
func (p Params) Validate() error {
	err := validate.Struct(p)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validating session parameters: %w", err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return &ValidationError{Fields: fields, Err: err}
}
