// Package dashboard derives the progress figures shown on the home and list pages.
// Everything here is a pure function over already fetched lists.
package dashboard

import (
	"math"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/PWRApex/english-prep-companion/core"
	"github.com/PWRApex/english-prep-companion/core/assignment"
	"github.com/PWRApex/english-prep-companion/core/attendance"
	"github.com/PWRApex/english-prep-companion/core/exam"
	"github.com/PWRApex/english-prep-companion/core/profile"
	"github.com/PWRApex/english-prep-companion/core/track"
)

const (
	// DisplayLimit caps the upcoming exams and pending assignments lists.
	DisplayLimit = 3
	// HighAbsenceHours is the threshold above which absences are flagged.
	HighAbsenceHours = 20

	// FilterAll keeps every exam type.
	FilterAll = "all"

	defaultName = "Student"
)

type (
	TypeAverage struct {
		Type    exam.Type    `json:"type"`
		Label   string       `json:"label"`
		Average null.Float64 `json:"average"`
		Count   int          `json:"count"`
	}

	Greeting struct {
		Name     string               `json:"name"`
		Level    profile.EnglishLevel `json:"level"`
		Initials string               `json:"initials"`
	}

	Summary struct {
		Greeting           Greeting                `json:"greeting"`
		UpcomingExams      []exam.Exam             `json:"upcoming_exams"`
		PendingAssignments []assignment.Assignment `json:"pending_assignments"`
		TotalAbsenceHours  int                     `json:"total_absence_hours"`
		HighAbsence        bool                    `json:"high_absence"`
		CourseProgress     int                     `json:"course_progress"`
		CompletedTracks    int                     `json:"completed_tracks"`
		TotalTracks        int                     `json:"total_tracks"`
		AverageGrade       null.Float64            `json:"average_grade"`
		AverageByType      []TypeAverage           `json:"average_by_type"`
	}

	Input struct {
		Profile     *profile.Profile
		User        core.User
		Exams       []exam.Exam
		Assignments []assignment.Assignment
		Attendance  []attendance.Attendance
		Tracks      []track.Track
		Now         time.Time
	}
)

func round1(f float64) float64 { return math.Round(f*10) / 10 }

// AverageGrade is the mean of the recorded grades rounded to one decimal, null when nothing is graded.
func AverageGrade(exams []exam.Exam) null.Float64 {
	var sum float64
	var n int
	for _, e := range exams {
		if e.Grade.Valid {
			sum += e.Grade.Float64
			n++
		}
	}
	if n == 0 {
		return null.Float64{}
	}
	return null.Float64From(round1(sum / float64(n)))
}

// AverageByType returns the average grade of every exam type, in display order.
func AverageByType(exams []exam.Exam) []TypeAverage {
	byType := make(map[exam.Type][]exam.Exam, len(exam.Types))
	for _, e := range exams {
		byType[e.Type] = append(byType[e.Type], e)
	}
	avgs := make([]TypeAverage, 0, len(exam.Types))
	for _, typ := range exam.Types {
		list := byType[typ]
		avgs = append(avgs, TypeAverage{
			Type:    typ,
			Label:   typ.Label(),
			Average: AverageGrade(list),
			Count:   len(list),
		})
	}
	return avgs
}

// UpcomingExams keeps the exams dated strictly after `now`, in source order, up to `limit`
// (no cap when limit <= 0).
func UpcomingExams(exams []exam.Exam, now time.Time, limit int) []exam.Exam {
	upcoming := make([]exam.Exam, 0)
	for _, e := range exams {
		if limit > 0 && len(upcoming) == limit {
			break
		}
		if e.Date.After(now) {
			upcoming = append(upcoming, e)
		}
	}
	return upcoming
}

// PendingAssignments keeps the assignments not completed yet, in source order, up to `limit`.
func PendingAssignments(assignments []assignment.Assignment, limit int) []assignment.Assignment {
	pending := make([]assignment.Assignment, 0)
	for _, a := range assignments {
		if limit > 0 && len(pending) == limit {
			break
		}
		if !a.Done() {
			pending = append(pending, a)
		}
	}
	return pending
}

func TotalAbsenceHours(records []attendance.Attendance) int {
	var total int
	for _, r := range records {
		if r.Absent() {
			total += r.Hours
		}
	}
	return total
}

func HighAbsence(totalHours int) bool { return totalHours > HighAbsenceHours }

// CourseProgress is the mean completion of the tracks, rounded, 0 without tracks.
func CourseProgress(tracks []track.Track) int {
	if len(tracks) == 0 {
		return 0
	}
	var sum int
	for _, t := range tracks {
		sum += t.CompletionPercentage
	}
	return int(math.Round(float64(sum) / float64(len(tracks))))
}

func CompletedTracks(tracks []track.Track) int {
	var n int
	for _, t := range tracks {
		if t.Completed() {
			n++
		}
	}
	return n
}

// FilterExams keeps the exams of type `filter`, or every exam for FilterAll.
func FilterExams(exams []exam.Exam, filter string) []exam.Exam {
	if filter == "" || filter == FilterAll {
		return exams
	}
	filtered := make([]exam.Exam, 0, len(exams))
	for _, e := range exams {
		if string(e.Type) == filter {
			filtered = append(filtered, e)
		}
	}
	return filtered
}

// GreetingFor falls back on the account name, then on "Student", and on the A1 level.
func GreetingFor(p *profile.Profile, usr core.User) Greeting {
	name := usr.Name
	level := profile.DefaultLevel
	if p != nil {
		if p.Name.Valid && core.CleanString(p.Name.String) != "" {
			name = p.Name.String
		}
		if p.EnglishLevel != "" {
			level = p.EnglishLevel
		}
	}
	name = core.CleanString(name)
	if name == "" {
		name = defaultName
	}
	return Greeting{Name: name, Level: level, Initials: core.Initials(name)}
}

func Summarize(in Input) Summary {
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}
	absences := TotalAbsenceHours(in.Attendance)
	return Summary{
		Greeting:           GreetingFor(in.Profile, in.User),
		UpcomingExams:      UpcomingExams(in.Exams, now, DisplayLimit),
		PendingAssignments: PendingAssignments(in.Assignments, DisplayLimit),
		TotalAbsenceHours:  absences,
		HighAbsence:        HighAbsence(absences),
		CourseProgress:     CourseProgress(in.Tracks),
		CompletedTracks:    CompletedTracks(in.Tracks),
		TotalTracks:        len(in.Tracks),
		AverageGrade:       AverageGrade(in.Exams),
		AverageByType:      AverageByType(in.Exams),
	}
}
