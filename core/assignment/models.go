// Package assignment tracks homework and coursework with their due dates.
package assignment

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/PWRApex/english-prep-companion/core"
	"github.com/PWRApex/english-prep-companion/core/remote"
)

type Status string

// Assignment statuses
const (
	Pending    Status = "pending"
	InProgress Status = "in_progress"
	Completed  Status = "completed"
)

var Statuses = []Status{Pending, InProgress, Completed}

var statusLabels = map[Status]string{
	Pending:    "Pending",
	InProgress: "In Progress",
	Completed:  "Completed",
}

func (s Status) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

func (s Status) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

type Assignment struct {
	ID          string      `json:"id"`
	UserID      string      `json:"user_id"`
	Title       string      `json:"title"`
	Description null.String `json:"description"`
	DueDate     core.Date   `json:"due_date"`
	Status      Status      `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
}

func (a Assignment) Done() bool { return a.Status == Completed }

// NewAssignment contains information needed to create an assignment. The status defaults to pending.
type NewAssignment struct {
	Title       string      `json:"title" validate:"notblank"`
	Description null.String `json:"description"`
	DueDate     core.Date   `json:"due_date" validate:"required"`
	Status      Status      `json:"status" validate:"assignment_status"`
}

func (na *NewAssignment) Validate(v *core.Validator) error {
	na.Title = core.CleanString(na.Title)
	na.Description = core.CleanNullString(na.Description)
	if na.Status == "" {
		na.Status = Pending
	}
	return v.Struct(na)
}

func (na *NewAssignment) Row() (remote.Row, error) { return remote.Encode(na) }

// UpdateAssignment defines what information may be provided to modify an existing assignment.
type UpdateAssignment struct {
	Title       *string      `json:"title,omitempty" validate:"omitempty,notblank"`
	Description *null.String `json:"description,omitempty"`
	DueDate     *core.Date   `json:"due_date,omitempty"`
	Status      *Status      `json:"status,omitempty" validate:"omitempty,assignment_status"`
}

func (ua *UpdateAssignment) Validate(v *core.Validator) error {
	if ua.Title != nil {
		title := core.CleanString(*ua.Title)
		ua.Title = &title
	}
	if ua.Description != nil {
		desc := core.CleanNullString(*ua.Description)
		ua.Description = &desc
	}
	if ua.DueDate != nil && ua.DueDate.IsZero() {
		return core.RequiredFieldError("due_date")
	}
	return v.Struct(ua)
}

func (ua *UpdateAssignment) Row() (remote.Row, error) { return remote.Encode(ua) }

func decode(row remote.Row) (Assignment, error) {
	var a Assignment
	err := remote.Decode(row, &a)
	return a, err
}
