package core

import (
	"database/sql/driver"
	"errors"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/volatiletech/null/v8"
)

var (
	// custom validation tags & texts
	notBlankTag  = "notblank"
	notBlankText = "this field is required"

	nameMinLen  = 2
	nameMinTag  = "namemin"
	nameMinText = "Name must be at least 2 characters"

	pwdMinLen  = 6
	pwdMinTag  = "pwdmin"
	pwdMinText = "Password must be at least 6 characters"

	emailTag  = "email"
	emailText = "Please enter a valid email"

	eqFieldTag  = "eqfield"
	eqFieldText = "Passwords do not match"

	requiredTag  = "required"
	requiredText = "this field is required"

	errInvalidInput = errors.New("invalid input")
)

// Validator bundles the go-playground validator with its english translator.
type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

func NewValidator() *Validator {
	english := en.New()
	translator, _ := ut.New(english, english).GetTranslator("en")
	validate := validator.New()
	InitValidators(validate, translator)
	return &Validator{validate: validate, translator: translator}
}

func (v *Validator) Engine() *validator.Validate { return v.validate }

func (v *Validator) Translator() ut.Translator { return v.translator }

// Struct validates `s` and converts validator errors into a *ValidationError with translated field messages.
func (v *Validator) Struct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var vErrs validator.ValidationErrors
	if !errors.As(err, &vErrs) {
		return err
	}
	flds := make([]FieldError, 0, len(vErrs))
	for _, fe := range vErrs {
		flds = append(flds, FieldError{Field: fe.Field(), Error: fe.Translate(v.translator)})
	}
	return NewValidationError(errInvalidInput, flds...)
}

// RequiredFieldError reports `field` as missing, the way Struct does.
func RequiredFieldError(field string) error {
	return NewValidationError(errInvalidInput, FieldError{Field: field, Error: requiredText})
}

// RegisterValidation registers a custom tag together with its translation text.
func (v *Validator) RegisterValidation(tag, text string, fn validator.Func) {
	_ = v.validate.RegisterValidation(tag, fn)
	RegisterCustomTranslation(v.validate, v.translator, tag, text)
}

// InitValidators instantiates the validator for use.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// validate optional values by their content
	validate.RegisterCustomTypeFunc(valuerTypeFunc, null.String{}, null.Float64{}, null.Int{})
	validate.RegisterCustomTypeFunc(dateTypeFunc, Date{})

	// register custom validators
	_ = validate.RegisterValidation(notBlankTag, notBlankValidation)
	RegisterCustomTranslation(validate, translator, notBlankTag, notBlankText)
	_ = validate.RegisterValidation(nameMinTag, nameMinValidation)
	RegisterCustomTranslation(validate, translator, nameMinTag, nameMinText)
	_ = validate.RegisterValidation(pwdMinTag, pwdMinValidation)
	RegisterCustomTranslation(validate, translator, pwdMinTag, pwdMinText)

	RegisterCustomTranslation(validate, translator, emailTag, emailText, true)
	RegisterCustomTranslation(validate, translator, eqFieldTag, eqFieldText, true)
	RegisterCustomTranslation(validate, translator, requiredTag, requiredText, true)
}

// RegisterCustomTranslation registers a custom translation for the specified validation tag.
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

func valuerTypeFunc(field reflect.Value) interface{} {
	if valuer, ok := field.Interface().(driver.Valuer); ok {
		if val, err := valuer.Value(); err == nil {
			return val
		}
	}
	return nil
}

func dateTypeFunc(field reflect.Value) interface{} {
	if d, ok := field.Interface().(Date); ok && !d.IsZero() {
		return d.Time
	}
	return nil
}

// Custom Global Validators

// notBlankValidation rejects strings made only of whitespace.
func notBlankValidation(fl validator.FieldLevel) bool {
	field := fl.Field()
	switch field.Kind() {
	case reflect.String:
		return strings.TrimSpace(field.String()) != ""
	case reflect.Ptr, reflect.Interface:
		return !field.IsNil() && strings.TrimSpace(field.Elem().String()) != ""
	}
	return !field.IsZero()
}

func nameMinValidation(fl validator.FieldLevel) bool {
	return utf8.RuneCountInString(strings.TrimSpace(fl.Field().String())) >= nameMinLen
}

func pwdMinValidation(fl validator.FieldLevel) bool {
	return utf8.RuneCountInString(fl.Field().String()) >= pwdMinLen
}
