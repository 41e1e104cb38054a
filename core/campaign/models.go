package campaign

import (
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/mobashi/surv/core"
)

// Status is the temporal state of a Campaign, derived from its bounds.
type Status int

const (
	StatusDisabled Status = -100
	StatusActive   Status = 0
	StatusBefore   Status = 50
	StatusAfter    Status = 100
)

func (s Status) String() string {
	switch s {
	case StatusDisabled:
		return "disabled"
	case StatusActive:
		return "active"
	case StatusBefore:
		return "before"
	case StatusAfter:
		return "after"
	}
	return "unknown"
}

type Campaign struct {
	ID         int           `json:"id"`
	UUID       uuid.UUID     `json:"uuid"`
	Name       string        `json:"name"`
	StampStart null.Time     `json:"stamp_start"`
	StampEnd   null.Time     `json:"stamp_end"`
	Survey     core.Document `json:"survey"` // opaque survey-definition blob
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// Status derives the campaign's temporal state at `now`. A campaign missing
// either bound is DISABLED. The start bound is inclusive, the end bound
// exclusive: now == start is ACTIVE, now == end is AFTER.
func (c Campaign) Status(now time.Time) Status {
	if !c.StampStart.Valid || !c.StampEnd.Valid {
		return StatusDisabled
	}
	if now.Before(c.StampStart.Time) {
		return StatusBefore
	}
	if !now.Before(c.StampEnd.Time) {
		return StatusAfter
	}
	return StatusActive
}

func (c Campaign) IsActive(now time.Time) bool {
	return c.Status(now) == StatusActive
}

// Cascho links a School to a Campaign. Pure relation: it has no lifecycle of
// its own beyond its parents.
type Cascho struct {
	ID         int `json:"id"`
	CampaignID int `json:"campaign"`
	SchoolID   int `json:"school"`
}

// NewCampaign contains information needed to create a new Campaign.
type NewCampaign struct {
	Name       string        `json:"name" validate:"required,max=100"`
	StampStart null.Time     `json:"stamp_start"`
	StampEnd   null.Time     `json:"stamp_end"`
	Survey     core.Document `json:"survey"`
}

func (nc *NewCampaign) Validate(validate *validator.Validate, _ ut.Translator, svc ServiceInterface) error {
	nc.Name = core.CleanString(nc.Name)
	if err := validate.Struct(nc); err != nil {
		return err
	}
	return svc.CheckNameUniqueness(nc.Name)
}

// UpdateCampaign defines what information may be provided to modify an
// existing Campaign. The UUID is assigned once on creation and is not mutable.
type UpdateCampaign struct {
	Name       string        `json:"name" validate:"omitempty,max=100"`
	StampStart null.Time     `json:"stamp_start"`
	StampEnd   null.Time     `json:"stamp_end"`
	Survey     core.Document `json:"survey"`
}

func (uc *UpdateCampaign) Validate(validate *validator.Validate, orig Campaign, svc ServiceInterface) error {
	name := core.CleanString(uc.Name)
	if name != "" {
		uc.Name = name
	} else {
		uc.Name = orig.Name
	}

	if err := validate.Struct(uc); err != nil {
		return err
	}
	return svc.CheckNameUniqueness(uc.Name, orig)
}
