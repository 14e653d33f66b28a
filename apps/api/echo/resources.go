package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/PWRApex/english-prep-companion/core/assignment"
	"github.com/PWRApex/english-prep-companion/core/attendance"
	"github.com/PWRApex/english-prep-companion/core/dashboard"
	"github.com/PWRApex/english-prep-companion/core/exam"
	"github.com/PWRApex/english-prep-companion/core/profile"
	"github.com/PWRApex/english-prep-companion/core/track"
)

const idParam = "id"

// Profile

func registerProfileAPI(g *echo.Group, authed echo.MiddlewareFunc, svc *profile.Service) {
	pg := g.Group("/profile", authed)
	pg.GET("", func(ctx echo.Context) error {
		p, err := svc.Get(ctx.Request().Context())
		if err != nil {
			return err
		}
		if p == nil {
			return errHttpNotFound
		}
		return ctx.JSON(http.StatusOK, p)
	})
	pg.PUT("", func(ctx echo.Context) error {
		var data profile.UpdateProfile
		if err := ctx.Bind(&data); err != nil {
			return errors.Wrap(err, "binding to UpdateProfile")
		}
		p, err := svc.Update(ctx.Request().Context(), data)
		if err != nil {
			return err
		}
		return ctx.JSON(http.StatusOK, p)
	})
}

// Exams

func registerExamAPI(g *echo.Group, authed echo.MiddlewareFunc, svc *exam.Service) {
	eg := g.Group("/exams", authed)
	eg.GET("", func(ctx echo.Context) error {
		exams, err := svc.List(ctx.Request().Context())
		if err != nil {
			return err
		}
		return ctx.JSON(http.StatusOK, dashboard.FilterExams(exams, ctx.QueryParam("type")))
	})
	eg.POST("", func(ctx echo.Context) error {
		var data exam.NewExam
		if err := ctx.Bind(&data); err != nil {
			return errors.Wrap(err, "binding to NewExam")
		}
		e, err := svc.Create(ctx.Request().Context(), data)
		if err != nil {
			return err
		}
		return ctx.JSON(http.StatusCreated, e)
	})
	eg.PATCH("/:id", func(ctx echo.Context) error {
		var data exam.UpdateExam
		if err := ctx.Bind(&data); err != nil {
			return errors.Wrap(err, "binding to UpdateExam")
		}
		e, err := svc.Update(ctx.Request().Context(), ctx.Param(idParam), data)
		if err != nil {
			return err
		}
		return ctx.JSON(http.StatusOK, e)
	})
	eg.DELETE("/:id", func(ctx echo.Context) error {
		if err := svc.Delete(ctx.Request().Context(), ctx.Param(idParam)); err != nil {
			return err
		}
		return ctx.NoContent(http.StatusNoContent)
	})
}

// Assignments

func registerAssignmentAPI(g *echo.Group, authed echo.MiddlewareFunc, svc *assignment.Service) {
	ag := g.Group("/assignments", authed)
	ag.GET("", func(ctx echo.Context) error {
		list, err := svc.List(ctx.Request().Context())
		if err != nil {
			return err
		}
		return ctx.JSON(http.StatusOK, list)
	})
	ag.POST("", func(ctx echo.Context) error {
		var data assignment.NewAssignment
		if err := ctx.Bind(&data); err != nil {
			return errors.Wrap(err, "binding to NewAssignment")
		}
		as, err := svc.Create(ctx.Request().Context(), data)
		if err != nil {
			return err
		}
		return ctx.JSON(http.StatusCreated, as)
	})
	ag.PATCH("/:id", func(ctx echo.Context) error {
		var data assignment.UpdateAssignment
		if err := ctx.Bind(&data); err != nil {
			return errors.Wrap(err, "binding to UpdateAssignment")
		}
		as, err := svc.Update(ctx.Request().Context(), ctx.Param(idParam), data)
		if err != nil {
			return err
		}
		return ctx.JSON(http.StatusOK, as)
	})
	ag.DELETE("/:id", func(ctx echo.Context) error {
		if err := svc.Delete(ctx.Request().Context(), ctx.Param(idParam)); err != nil {
			return err
		}
		return ctx.NoContent(http.StatusNoContent)
	})
}

// Attendance

func registerAttendanceAPI(g *echo.Group, authed echo.MiddlewareFunc, svc *attendance.Service) {
	ag := g.Group("/attendance", authed)
	ag.GET("", func(ctx echo.Context) error {
		records, err := svc.List(ctx.Request().Context())
		if err != nil {
			return err
		}
		return ctx.JSON(http.StatusOK, records)
	})
	ag.POST("", func(ctx echo.Context) error {
		var data attendance.NewAttendance
		if err := ctx.Bind(&data); err != nil {
			return errors.Wrap(err, "binding to NewAttendance")
		}
		r, err := svc.Create(ctx.Request().Context(), data)
		if err != nil {
			return err
		}
		return ctx.JSON(http.StatusCreated, r)
	})
	ag.PATCH("/:id", func(ctx echo.Context) error {
		var data attendance.UpdateAttendance
		if err := ctx.Bind(&data); err != nil {
			return errors.Wrap(err, "binding to UpdateAttendance")
		}
		r, err := svc.Update(ctx.Request().Context(), ctx.Param(idParam), data)
		if err != nil {
			return err
		}
		return ctx.JSON(http.StatusOK, r)
	})
	ag.DELETE("/:id", func(ctx echo.Context) error {
		if err := svc.Delete(ctx.Request().Context(), ctx.Param(idParam)); err != nil {
			return err
		}
		return ctx.NoContent(http.StatusNoContent)
	})
}

// Tracks

func registerTrackAPI(g *echo.Group, authed echo.MiddlewareFunc, svc *track.Service) {
	tg := g.Group("/tracks", authed)
	tg.GET("", func(ctx echo.Context) error {
		tracks, err := svc.List(ctx.Request().Context())
		if err != nil {
			return err
		}
		return ctx.JSON(http.StatusOK, tracks)
	})
	tg.GET("/:id", func(ctx echo.Context) error {
		t, err := svc.Get(ctx.Request().Context(), ctx.Param(idParam))
		if err != nil {
			return err
		}
		return ctx.JSON(http.StatusOK, t)
	})
	tg.POST("", func(ctx echo.Context) error {
		var data track.NewTrack
		if err := ctx.Bind(&data); err != nil {
			return errors.Wrap(err, "binding to NewTrack")
		}
		t, err := svc.Create(ctx.Request().Context(), data)
		if err != nil {
			return err
		}
		return ctx.JSON(http.StatusCreated, t)
	})
	tg.PATCH("/:id", func(ctx echo.Context) error {
		var data track.UpdateTrack
		if err := ctx.Bind(&data); err != nil {
			return errors.Wrap(err, "binding to UpdateTrack")
		}
		t, err := svc.Update(ctx.Request().Context(), ctx.Param(idParam), data)
		if err != nil {
			return err
		}
		return ctx.JSON(http.StatusOK, t)
	})
	tg.POST("/:id/vocabulary/:index/toggle", func(ctx echo.Context) error {
		index, err := strconv.Atoi(ctx.Param("index"))
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid index")
		}
		t, err := svc.Get(ctx.Request().Context(), ctx.Param(idParam))
		if err != nil {
			return err
		}
		t, err = svc.ToggleLearned(ctx.Request().Context(), t, index)
		if errors.Is(err, track.ErrNoSuchItem) {
			return errHttpNotFound
		} else if err != nil {
			return err
		}
		return ctx.JSON(http.StatusOK, t)
	})
	tg.DELETE("/:id", func(ctx echo.Context) error {
		if err := svc.Delete(ctx.Request().Context(), ctx.Param(idParam)); err != nil {
			return err
		}
		return ctx.NoContent(http.StatusNoContent)
	})
}
