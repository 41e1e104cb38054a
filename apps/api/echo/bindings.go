package echoapi

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/mobashi/surv/core"
	"github.com/mobashi/surv/core/campaign"
	"github.com/mobashi/surv/core/school"
	"github.com/mobashi/surv/core/survey"
	"github.com/mobashi/surv/core/user"
)

// Requests

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Username = core.CleanString(lr.Username, true /* lower */)
	return validate.Struct(lr)
}

type IntakeRequest struct {
	Code     string `json:"code" validate:"required"`
	Username string `json:"username"`
}

func (ir *IntakeRequest) Validate(validate *validator.Validate) error {
	ir.Code = core.CleanString(ir.Code)
	ir.Username = core.CleanString(ir.Username, true /* lower */)
	return validate.Struct(ir)
}

type SchoolUUIDRequest struct {
	School string `json:"school" validate:"required,uuid4"`
}

func (sr *SchoolUUIDRequest) Validate(validate *validator.Validate) error {
	sr.School = core.CleanString(sr.School, true /* lower */)
	return validate.Struct(sr)
}

type NewCaschoRequest struct {
	Campaign string `json:"campaign" validate:"required,uuid4"`
	School   string `json:"school" validate:"required,uuid4"`
}

func (nr *NewCaschoRequest) Validate(validate *validator.Validate) error {
	nr.Campaign = core.CleanString(nr.Campaign, true /* lower */)
	nr.School = core.CleanString(nr.School, true /* lower */)
	return validate.Struct(nr)
}

type SurveyContentUpdate struct {
	Content core.Document `json:"content"`
}

type SurveyStatusUpdate struct {
	Status survey.Status `json:"status"`
}

type SignupOptionsRequest struct {
	Username    string `json:"username" validate:"required,max=150,alphanum_"`
	DisplayName string `json:"display_name" validate:"omitempty,max=100"`
	Email       string `json:"email" validate:"omitempty,email"`
}

func (sr *SignupOptionsRequest) Validate(validate *validator.Validate) error {
	sr.Username = core.CleanString(sr.Username, true /* lower */)
	sr.DisplayName = core.CleanString(sr.DisplayName)
	sr.Email = core.CleanString(sr.Email, true /* lower */)
	return validate.Struct(sr)
}

type UsernameRequest struct {
	Username string `json:"username" validate:"required"`
}

func (ur *UsernameRequest) Validate(validate *validator.Validate) error {
	ur.Username = core.CleanString(ur.Username, true /* lower */)
	return validate.Struct(ur)
}

// Responses

type SuccessResponse struct {
	Success string `json:"success"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

type GenericErrorResponse struct {
	Error string `json:"error"`
}

// GenericError is the uniform intake failure body: intake errors are masked so
// the invitation code cannot be probed part by part.
var GenericError = GenericErrorResponse{Error: "GENERIC_ERROR"}

type CampaignResponse struct {
	ID         int           `json:"id"`
	UUID       uuid.UUID     `json:"uuid"`
	Name       string        `json:"name"`
	StampStart null.Time     `json:"stamp_start"`
	StampEnd   null.Time     `json:"stamp_end"`
	Survey     core.Document `json:"survey"`
	Status     int           `json:"status"`
	IsActive   bool          `json:"is_active"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

func newCampaignResponse(camp campaign.Campaign, now time.Time) CampaignResponse {
	return CampaignResponse{
		ID:         camp.ID,
		UUID:       camp.UUID,
		Name:       camp.Name,
		StampStart: camp.StampStart,
		StampEnd:   camp.StampEnd,
		Survey:     camp.Survey,
		Status:     int(camp.Status(now)),
		IsActive:   camp.IsActive(now),
		CreatedAt:  camp.CreatedAt,
		UpdatedAt:  camp.UpdatedAt,
	}
}

func newCampaignResponses(camps []campaign.Campaign, now time.Time) []CampaignResponse {
	resps := make([]CampaignResponse, 0, len(camps))
	for _, camp := range camps {
		resps = append(resps, newCampaignResponse(camp, now))
	}
	return resps
}

type SurveyResponse struct {
	ID          int           `json:"id"`
	Kind        survey.Kind   `json:"kind"`
	User        int           `json:"user"`
	Campaign    uuid.UUID     `json:"campaign"`
	School      uuid.UUID     `json:"school"`
	Status      int           `json:"status"`
	Stamp       null.Time     `json:"stamp"`
	Content     core.Document `json:"content"`
	DefOrig     school.Geo    `json:"def_orig"`
	DefDest     school.Geo    `json:"def_dest"`
	MustFillout bool          `json:"must_fillout"`
	CanEdit     bool          `json:"can_edit"`
}

func newSurveyResponse(s survey.Survey, now time.Time) SurveyResponse {
	return SurveyResponse{
		ID:          s.ID,
		Kind:        s.Kind,
		User:        s.UserID,
		Campaign:    s.Campaign.UUID,
		School:      s.School.UUID,
		Status:      int(s.EffectiveStatus(now)),
		Stamp:       s.Stamp,
		Content:     s.Content,
		DefOrig:     s.School.Geo(),
		DefDest:     s.School.Geo(),
		MustFillout: s.MustFillout(now),
		CanEdit:     s.CanEdit(now),
	}
}

func newSurveyResponses(svys []survey.Survey, now time.Time) []SurveyResponse {
	resps := make([]SurveyResponse, 0, len(svys))
	for _, s := range svys {
		resps = append(resps, newSurveyResponse(s, now))
	}
	return resps
}

type IntakeResponse struct {
	Forth SurveyResponse `json:"forth"`
	Back  SurveyResponse `json:"back"`
	Token string         `json:"token"`
}

type TripResponse struct {
	ID       int            `json:"id"`
	Kind     survey.Kind    `json:"kind"`
	User     int            `json:"user"`
	Campaign uuid.UUID      `json:"campaign"`
	School   uuid.UUID      `json:"school"`
	Stamp    null.Time      `json:"stamp"`
	Stages   []survey.Stage `json:"stages"`
}

func newTripResponse(s survey.Survey, stages []survey.Stage) TripResponse {
	return TripResponse{
		ID:       s.ID,
		Kind:     s.Kind,
		User:     s.UserID,
		Campaign: s.Campaign.UUID,
		School:   s.School.UUID,
		Stamp:    s.Stamp,
		Stages:   stages,
	}
}

type SignupOptionsResponse struct {
	Ukey    string      `json:"ukey"`
	Options interface{} `json:"options"`
}

type LoginOptionsResponse struct {
	Options interface{} `json:"options"`
}

// UserResponse trims the account fields returned after signup.
type UserResponse struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func newUserResponse(usr user.User) UserResponse {
	return UserResponse{ID: usr.ID, Name: usr.Name, Username: usr.Username, Email: usr.Email}
}
