package exam

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/PWRApex/english-prep-companion/core"
	"github.com/PWRApex/english-prep-companion/core/remote"
	"github.com/PWRApex/english-prep-companion/core/resource"
)

const Tag = "exams"

var (
	typeTag  = "exam_type"
	typeText = "Please select a valid exam type"

	messages = resource.Messages{
		Invalid:      "Please fill required fields",
		Created:      "Exam added successfully!",
		Updated:      "Exam updated successfully!",
		Deleted:      "Exam deleted successfully!",
		CreateFailed: "Error adding exam",
		UpdateFailed: "Error updating exam",
		DeleteFailed: "Error deleting exam",
	}
)

type Service struct {
	res *resource.Resource[Exam]
}

func NewService(deps resource.Deps) *Service {
	registerValidators(deps.Validator)
	return &Service{
		res: resource.New(resource.Options[Exam]{
			Deps:     deps,
			Tag:      Tag,
			Table:    remote.TableExams,
			Order:    []core.DBOrdering{core.Desc("exam_date")},
			Messages: messages,
			Decode:   decode,
		}),
	}
}

// List returns the exams of the current user, latest first.
func (svc *Service) List(ctx context.Context) ([]Exam, error) {
	return svc.res.List(ctx)
}

func (svc *Service) Create(ctx context.Context, ne NewExam) (Exam, error) {
	return svc.res.Create(ctx, &ne)
}

func (svc *Service) Update(ctx context.Context, id string, ue UpdateExam) (Exam, error) {
	return svc.res.Update(ctx, id, &ue)
}

// SetGrade records (or clears, with a null grade) the grade of exam `id`.
func (svc *Service) SetGrade(ctx context.Context, id string, grade null.Float64) (Exam, error) {
	return svc.Update(ctx, id, UpdateExam{Grade: &grade})
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.res.Delete(ctx, id)
}

// Pending reports whether a mutation of kind `op` is in flight.
func (svc *Service) Pending(op string) bool { return svc.res.Pending(op) }

func registerValidators(v *core.Validator) {
	v.RegisterValidation(typeTag, typeText, func(fl validator.FieldLevel) bool {
		return Type(fl.Field().String()).Valid()
	})
}
