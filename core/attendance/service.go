package attendance

import (
	"context"

	"github.com/go-playground/validator/v10"

	"github.com/PWRApex/english-prep-companion/core"
	"github.com/PWRApex/english-prep-companion/core/remote"
	"github.com/PWRApex/english-prep-companion/core/resource"
)

const Tag = "attendance"

var (
	statusTag  = "attendance_status"
	statusText = "Status must be present or absent"

	messages = resource.Messages{
		Invalid:      "Please fill required fields",
		Created:      "Attendance recorded!",
		Updated:      "Attendance updated!",
		Deleted:      "Attendance record deleted!",
		CreateFailed: "Error recording attendance",
		UpdateFailed: "Error updating attendance",
		DeleteFailed: "Error deleting attendance",
	}
)

type Service struct {
	res *resource.Resource[Attendance]
}

func NewService(deps resource.Deps) *Service {
	registerValidators(deps.Validator)
	return &Service{
		res: resource.New(resource.Options[Attendance]{
			Deps:     deps,
			Tag:      Tag,
			Table:    remote.TableAttendance,
			Order:    []core.DBOrdering{core.Desc("date")},
			Messages: messages,
			Decode:   decode,
		}),
	}
}

// List returns the attendance records of the current user, most recent first.
func (svc *Service) List(ctx context.Context) ([]Attendance, error) {
	return svc.res.List(ctx)
}

func (svc *Service) Create(ctx context.Context, na NewAttendance) (Attendance, error) {
	return svc.res.Create(ctx, &na)
}

func (svc *Service) Update(ctx context.Context, id string, ua UpdateAttendance) (Attendance, error) {
	return svc.res.Update(ctx, id, &ua)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.res.Delete(ctx, id)
}

func (svc *Service) Pending(op string) bool { return svc.res.Pending(op) }

func registerValidators(v *core.Validator) {
	v.RegisterValidation(statusTag, statusText, func(fl validator.FieldLevel) bool {
		return Status(fl.Field().String()).Valid()
	})
}
