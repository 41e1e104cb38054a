package school

import (
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/mobashi/surv/core"
)

type School struct {
	ID        int          `json:"id"`
	UUID      uuid.UUID    `json:"uuid"`
	Name      string       `json:"name"`
	Code      null.String  `json:"code"`
	Address   null.String  `json:"address"`
	Lat       null.Float64 `json:"lat"`
	Lng       null.Float64 `json:"lng"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Geo is the geographic projection of a School, used as the default trip
// origin/destination of its surveys.
type Geo struct {
	Name    string       `json:"name"`
	Address null.String  `json:"address"`
	Lat     null.Float64 `json:"lat"`
	Lng     null.Float64 `json:"lng"`
}

func (s School) Geo() Geo {
	return Geo{
		Name:    s.Name,
		Address: s.Address,
		Lat:     s.Lat,
		Lng:     s.Lng,
	}
}

// NewSchool contains information needed to create a new School.
type NewSchool struct {
	Name    string       `json:"name" validate:"required,max=100"`
	Code    null.String  `json:"code" validate:"omitempty,max=20"`
	Address null.String  `json:"address" validate:"omitempty,max=300"`
	Lat     null.Float64 `json:"lat"`
	Lng     null.Float64 `json:"lng"`
}

func (ns *NewSchool) Validate(validate *validator.Validate, _ ut.Translator, svc ServiceInterface) error {
	ns.Name = core.CleanString(ns.Name)
	if err := validate.Struct(ns); err != nil {
		return err
	}
	return svc.CheckNameUniqueness(ns.Name)
}

// UpdateSchool defines what information may be provided to modify an existing School.
// The UUID is assigned once on creation and is not mutable.
type UpdateSchool struct {
	Name    string       `json:"name" validate:"omitempty,max=100"`
	Code    null.String  `json:"code" validate:"omitempty,max=20"`
	Address null.String  `json:"address" validate:"omitempty,max=300"`
	Lat     null.Float64 `json:"lat"`
	Lng     null.Float64 `json:"lng"`
}

func (us *UpdateSchool) Validate(validate *validator.Validate, orig School, svc ServiceInterface) error {
	name := core.CleanString(us.Name)
	if name != "" {
		us.Name = name
	} else {
		us.Name = orig.Name
	}

	if err := validate.Struct(us); err != nil {
		return err
	}
	return svc.CheckNameUniqueness(us.Name, orig)
}
