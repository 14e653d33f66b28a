package assignment

import (
	"context"

	"github.com/go-playground/validator/v10"

	"github.com/PWRApex/english-prep-companion/core"
	"github.com/PWRApex/english-prep-companion/core/remote"
	"github.com/PWRApex/english-prep-companion/core/resource"
)

const Tag = "assignments"

var (
	statusTag  = "assignment_status"
	statusText = "Please select a valid status"

	messages = resource.Messages{
		Invalid:      "Please fill required fields",
		Created:      "Assignment added successfully!",
		Updated:      "Assignment updated!",
		Deleted:      "Assignment deleted!",
		CreateFailed: "Error adding assignment",
		UpdateFailed: "Error updating assignment",
		DeleteFailed: "Error deleting assignment",
	}
)

type Service struct {
	res *resource.Resource[Assignment]
}

func NewService(deps resource.Deps) *Service {
	registerValidators(deps.Validator)
	return &Service{
		res: resource.New(resource.Options[Assignment]{
			Deps:     deps,
			Tag:      Tag,
			Table:    remote.TableAssignments,
			Order:    []core.DBOrdering{core.Asc("due_date")},
			Messages: messages,
			Decode:   decode,
		}),
	}
}

// List returns the assignments of the current user, closest due date first.
func (svc *Service) List(ctx context.Context) ([]Assignment, error) {
	return svc.res.List(ctx)
}

func (svc *Service) Create(ctx context.Context, na NewAssignment) (Assignment, error) {
	return svc.res.Create(ctx, &na)
}

func (svc *Service) Update(ctx context.Context, id string, ua UpdateAssignment) (Assignment, error) {
	return svc.res.Update(ctx, id, &ua)
}

func (svc *Service) SetStatus(ctx context.Context, id string, status Status) (Assignment, error) {
	return svc.Update(ctx, id, UpdateAssignment{Status: &status})
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
