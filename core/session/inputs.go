package session

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/PWRApex/english-prep-companion/core"
)

var (
	pwdMaxSim      = .7
	pwdAttrSimTag  = "pwdtoosim"
	pwdAttrSimText = "Password cannot be similar to your email or name"
)

// Credentials are used to sign in.
type Credentials struct {
	Email    string `json:"email" validate:"email"`
	Password string `json:"password" validate:"pwdmin"`
}

func (c *Credentials) Validate(v *core.Validator) error {
	c.Email = core.CleanString(c.Email, true /* lower */)
	return v.Struct(c)
}

// Registration contains information needed to create a new account.
type Registration struct {
	Email    string `json:"email" validate:"email"`
	Password string `json:"password" validate:"pwdmin"`
	Name     string `json:"name" validate:"namemin"`
}

func (r *Registration) Validate(v *core.Validator) error {
	r.Email = core.CleanString(r.Email, true /* lower */)
	r.Name = core.CleanString(r.Name)
	return v.Struct(r)
}

type PasswordResetRequest struct {
	Email string `json:"email" validate:"email"`
}

func (r *PasswordResetRequest) Validate(v *core.Validator) error {
	r.Email = core.CleanString(r.Email, true /* lower */)
	return v.Struct(r)
}

// PasswordUpdate sets a new password from inside a recovery session.
type PasswordUpdate struct {
	Password        string `json:"password" validate:"pwdmin"`
	PasswordConfirm string `json:"password_confirm" validate:"eqfield=Password"`
}

func (pu PasswordUpdate) Validate(v *core.Validator) error { return v.Struct(pu) }

func registerValidators(v *core.Validator) {
	v.Engine().RegisterStructValidation(registrationStructValidation, Registration{})
	core.RegisterCustomTranslation(v.Engine(), v.Translator(), pwdAttrSimTag, pwdAttrSimText)
}

// registrationStructValidation rejects passwords too similar to the email or the name.
func registrationStructValidation(sl validator.StructLevel) {
	reg, ok := sl.Current().Interface().(Registration)
	if !ok || reg.Password == "" {
		return
	}
	getRatio := func(pass, usrAttr string) float64 {
		if usrAttr == "" {
			return 0
		}
		return difflib.NewMatcher(strings.Split(pass, ""), strings.Split(usrAttr, "")).QuickRatio()
	}
	localPart := strings.SplitN(reg.Email, "@", 2)[0]
	pwd := strings.ToLower(reg.Password)
	if getRatio(pwd, localPart) >= pwdMaxSim || getRatio(pwd, strings.ToLower(reg.Name)) >= pwdMaxSim {
		sl.ReportError(reg.Password, "password", "Password", pwdAttrSimTag, "")
	}
}
