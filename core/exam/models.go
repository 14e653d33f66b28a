// Package exam keeps track of the exams of the signed-in user and their grades.
package exam

import (
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/PWRApex/english-prep-companion/core"
	"github.com/PWRApex/english-prep-companion/core/remote"
)

type Type string

// Exam types
const (
	Quiz     Type = "quiz"
	Midterm  Type = "midterm"
	Final    Type = "final"
	Speaking Type = "speaking"
)

// Types lists every exam type in display order.
var Types = []Type{Quiz, Midterm, Final, Speaking}

var typeLabels = map[Type]string{
	Quiz:     "Quiz",
	Midterm:  "Midterm",
	Final:    "Final",
	Speaking: "Speaking",
}

func (t Type) Valid() bool {
	_, ok := typeLabels[t]
	return ok
}

func (t Type) Label() string {
	if l, ok := typeLabels[t]; ok {
		return l
	}
	return string(t)
}

type Exam struct {
	ID        string       `json:"id"`
	UserID    string       `json:"user_id"`
	Title     string       `json:"exam_title"`
	Type      Type         `json:"exam_type"`
	Date      core.Date    `json:"exam_date"`
	Grade     null.Float64 `json:"grade"` // null until recorded
	Notes     null.String  `json:"notes"`
	CreatedAt time.Time    `json:"created_at"`
}

func (e Exam) Graded() bool { return e.Grade.Valid }

// ParseGrade reads a grade typed by the user: blank means not graded yet.
func ParseGrade(s string) (null.Float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return null.Float64{}, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return null.Float64{}, errors.Errorf("invalid grade %q", s)
	}
	return null.Float64From(f), nil
}

// NewExam contains information needed to record an exam.
type NewExam struct {
	Title string       `json:"exam_title" validate:"notblank"`
	Type  Type         `json:"exam_type" validate:"exam_type"`
	Date  core.Date    `json:"exam_date" validate:"required"`
	Grade null.Float64 `json:"grade" validate:"omitempty,min=0,max=100"`
	Notes null.String  `json:"notes"`
}

func (ne *NewExam) Validate(v *core.Validator) error {
	ne.Title = core.CleanString(ne.Title)
	ne.Notes = core.CleanNullString(ne.Notes)
	return v.Struct(ne)
}

func (ne *NewExam) Row() (remote.Row, error) { return remote.Encode(ne) }

// UpdateExam defines what information may be provided to modify an existing exam.
// Nil fields are left untouched; a null Grade or Notes clears it.
type UpdateExam struct {
	Title *string       `json:"exam_title,omitempty" validate:"omitempty,notblank"`
	Type  *Type         `json:"exam_type,omitempty" validate:"omitempty,exam_type"`
	Date  *core.Date    `json:"exam_date,omitempty"`
	Grade *null.Float64 `json:"grade,omitempty" validate:"omitempty,min=0,max=100"`
	Notes *null.String  `json:"notes,omitempty"`
}

func (ue *UpdateExam) Validate(v *core.Validator) error {
	if ue.Title != nil {
		title := core.CleanString(*ue.Title)
		ue.Title = &title
	}
	if ue.Notes != nil {
		notes := core.CleanNullString(*ue.Notes)
		ue.Notes = &notes
	}
	if ue.Date != nil && ue.Date.IsZero() {
		return core.RequiredFieldError("exam_date")
	}
	return v.Struct(ue)
}

func (ue *UpdateExam) Row() (remote.Row, error) { return remote.Encode(ue) }

func decode(row remote.Row) (Exam, error) {
	var e Exam
	err := remote.Decode(row, &e)
	return e, err
}
