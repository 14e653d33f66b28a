package profile

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/PWRApex/english-prep-companion/core"
	"github.com/PWRApex/english-prep-companion/core/remote"
	"github.com/PWRApex/english-prep-companion/core/resource"
)

const Tag = "profile"

var (
	levelTag  = "english_level"
	levelText = "Please select a level between A1 and C1"

	messages = resource.Messages{
		Invalid:      "Name is required",
		Updated:      "Profile updated successfully!",
		UpdateFailed: "Error updating profile",
	}
)

type Service struct {
	res      *resource.Resource[Profile]
	identity resource.Identity
}

func NewService(deps resource.Deps) *Service {
	registerValidators(deps.Validator)
	return &Service{
		res: resource.New(resource.Options[Profile]{
			Deps:        deps,
			Tag:         Tag,
			Table:       remote.TableProfiles,
			OwnerColumn: resource.ColumnID,
			Messages:    messages,
			Decode:      decode,
		}),
		identity: deps.Identity,
	}
}

// Get returns the profile of the current user, nil when signed out or when it does not exist yet.
func (svc *Service) Get(ctx context.Context) (*Profile, error) {
	profiles, err := svc.res.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(profiles) == 0 {
		return nil, nil
	}
	return &profiles[0], nil
}

func (svc *Service) Update(ctx context.Context, up UpdateProfile) (Profile, error) {
	usr, ok := svc.identity.User()
	if !ok {
		return Profile{}, core.ErrNotAuthenticated
	}
	return svc.res.Update(ctx, usr.ID, &up)
}

// Ensure creates the profile row of the current user when it is missing. Hosted stacks create
// it with a database trigger on sign up, local ones rely on this.
func (svc *Service) Ensure(ctx context.Context) (*Profile, error) {
	p, err := svc.Get(ctx)
	if err != nil || p != nil {
		return p, err
	}
	usr, ok := svc.identity.User()
	if !ok {
		return nil, core.ErrNotAuthenticated
	}
	np := newProfile{Email: usr.Email, Name: null.NewString(usr.Name, usr.Name != "")}
	created, err := svc.res.Create(ctx, &np)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (svc *Service) Pending(op string) bool { return svc.res.Pending(op) }

func registerValidators(v *core.Validator) {
	v.RegisterValidation(levelTag, levelText, func(fl validator.FieldLevel) bool {
		return EnglishLevel(fl.Field().String()).Valid()
	})
}
