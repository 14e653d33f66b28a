// Package attendance records the class hours attended or missed.
package attendance

import (
	"time"

	"github.com/PWRApex/english-prep-companion/core"
	"github.com/PWRApex/english-prep-companion/core/remote"
)

type Status string

const (
	Present Status = "present"
	Absent  Status = "absent"
)

func (s Status) Valid() bool { return s == Present || s == Absent }

func (s Status) Label() string {
	switch s {
	case Present:
		return "Present"
	case Absent:
		return "Absent"
	}
	return string(s)
}

const (
	MinHours = 1
	MaxHours = 12
)

type Attendance struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Date      core.Date `json:"date"`
	Hours     int       `json:"hours"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func (a Attendance) Absent() bool { return a.Status == Absent }

type NewAttendance struct {
	Date   core.Date `json:"date" validate:"required"`
	Hours  int       `json:"hours" validate:"min=1,max=12"`
	Status Status    `json:"status" validate:"attendance_status"`
}

// Default is the form state of a new record: one hour, present.
func Default(date core.Date) NewAttendance {
	return NewAttendance{Date: date, Hours: MinHours, Status: Present}
}

func (na *NewAttendance) Validate(v *core.Validator) error {
	if na.Status == "" {
		na.Status = Present
	}
	return v.Struct(na)
}

func (na *NewAttendance) Row() (remote.Row, error) { return remote.Encode(na) }

type UpdateAttendance struct {
	Date   *core.Date `json:"date,omitempty"`
	Hours  *int       `json:"hours,omitempty" validate:"omitempty,min=1,max=12"`
	Status *Status    `json:"status,omitempty" validate:"omitempty,attendance_status"`
}

func (ua *UpdateAttendance) Validate(v *core.Validator) error {
	if ua.Date != nil && ua.Date.IsZero() {
		return core.RequiredFieldError("date")
	}
	return v.Struct(ua)
}

func (ua *UpdateAttendance) Row() (remote.Row, error) { return remote.Encode(ua) }

func decode(row remote.Row) (Attendance, error) {
	var a Attendance
	err := remote.Decode(row, &a)
	return a, err
}
