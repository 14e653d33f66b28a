package dashboard

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/PWRApex/english-prep-companion/core"
	"github.com/PWRApex/english-prep-companion/core/assignment"
	"github.com/PWRApex/english-prep-companion/core/attendance"
	"github.com/PWRApex/english-prep-companion/core/exam"
	"github.com/PWRApex/english-prep-companion/core/profile"
	"github.com/PWRApex/english-prep-companion/core/track"
)

type (
	lister[T any] interface {
		List(ctx context.Context) ([]T, error)
	}

	// Sources are the resources the dashboard reads from.
	Sources struct {
		User        func() (core.User, bool)
		Profile     interface{ Get(ctx context.Context) (*profile.Profile, error) }
		Exams       lister[exam.Exam]
		Assignments lister[assignment.Assignment]
		Attendance  lister[attendance.Attendance]
		Tracks      lister[track.Track]
	}
)

// Load reads every resource concurrently and summarizes them. Anonymous users get an empty summary.
func Load(ctx context.Context, src Sources, now time.Time) (Summary, error) {
	in := Input{Now: now}
	if src.User != nil {
		in.User, _ = src.User()
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		in.Profile, err = src.Profile.Get(ctx)
		return errors.Wrap(err, "loading profile")
	})
	g.Go(func() (err error) {
		in.Exams, err = src.Exams.List(ctx)
		return errors.Wrap(err, "loading exams")
	})
	g.Go(func() (err error) {
		in.Assignments, err = src.Assignments.List(ctx)
		return errors.Wrap(err, "loading assignments")
	})
	g.Go(func() (err error) {
		in.Attendance, err = src.Attendance.List(ctx)
		return errors.Wrap(err, "loading attendance")
	})
	g.Go(func() (err error) {
		in.Tracks, err = src.Tracks.List(ctx)
		return errors.Wrap(err, "loading tracks")
	})
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	return Summarize(in), nil
}
