// Package profile holds the single profile row of the signed-in user.
package profile

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/PWRApex/english-prep-companion/core"
	"github.com/PWRApex/english-prep-companion/core/remote"
)

type EnglishLevel string

// CEFR levels
const (
	A1 EnglishLevel = "A1"
	A2 EnglishLevel = "A2"
	B1 EnglishLevel = "B1"
	B2 EnglishLevel = "B2"
	C1 EnglishLevel = "C1"
)

var Levels = []EnglishLevel{A1, A2, B1, B2, C1}

const DefaultLevel = A1

func (l EnglishLevel) Valid() bool {
	for _, lvl := range Levels {
		if l == lvl {
			return true
		}
	}
	return false
}

type Profile struct {
	ID              string       `json:"id"` // the user id
	Email           string       `json:"email"`
	Name            null.String  `json:"name"`
	EnglishLevel    EnglishLevel `json:"english_level"`
	ProfilePhotoURL null.String  `json:"profile_photo_url"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// newProfile is the row created for a new account.
type newProfile struct {
	Email string      `json:"email" validate:"omitempty,email"`
	Name  null.String `json:"name"`
}

func (np *newProfile) Validate(v *core.Validator) error {
	np.Email = core.CleanString(np.Email, true /* lower */)
	np.Name = core.CleanNullString(np.Name)
	return v.Struct(np)
}

func (np *newProfile) Row() (remote.Row, error) { return remote.Encode(np) }

// UpdateProfile is what the profile form submits.
type UpdateProfile struct {
	Name         string       `json:"name" validate:"notblank"`
	EnglishLevel EnglishLevel `json:"english_level" validate:"english_level"`
}

func (up *UpdateProfile) Validate(v *core.Validator) error {
	up.Name = core.CleanString(up.Name)
	if up.EnglishLevel == "" {
		up.EnglishLevel = DefaultLevel
	}
	return v.Struct(up)
}

func (up *UpdateProfile) Row() (remote.Row, error) { return remote.Encode(up) }

func decode(row remote.Row) (Profile, error) {
	var p Profile
	err := remote.Decode(row, &p)
	return p, err
}
