package survey

import (
	"context"
	"encoding/base64"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/mobashi/surv/core"
	"github.com/mobashi/surv/core/campaign"
	"github.com/mobashi/surv/core/school"
	"github.com/mobashi/surv/core/user"
)

var (
	ErrNotFound = errors.New("survey not found")
	// ErrInvalidCode covers every non-authorization intake failure; handlers
	// report it uniformly so the code cannot be probed part by part.
	ErrInvalidCode = errors.New("invalid code")
)

type (
	// QueryFilter narrows survey listings. A zero filter matches everything.
	QueryFilter struct {
		UserID int
		Status *Status
	}

	Repository interface {
		// GetOrCreateSurvey resolves atomically on the (kind, user, campaign,
		// school) unique tuple: concurrent identical calls must not produce
		// duplicate rows.
		GetOrCreateSurvey(ctx context.Context, s Survey) (Survey, error)
		GetSurveyByID(ctx context.Context, id int) (Survey, error)
		// QuerySurveys orders by status, campaign, school, kind.
		QuerySurveys(ctx context.Context, filter QueryFilter) ([]Survey, error)
		// UpdateSurveyContent persists content (when writable), status and
		// stamp. UpdateSurveyStatus persists status and stamp only.
		UpdateSurveyContent(ctx context.Context, s Survey, contentWritable bool) (Survey, error)
		UpdateSurveyStatus(ctx context.Context, s Survey) (Survey, error)
		DeleteSurvey(ctx context.Context, id int) error
	}

	ServiceInterface interface {
		Intake(ctx context.Context, code, username string, requester *user.User) (*IntakeResult, error)
		Query(ctx context.Context, requester *user.User) ([]Survey, error)
		QueryFilled(ctx context.Context, requester *user.User) ([]Survey, error)
		GetByID(ctx context.Context, id int, requester *user.User) (Survey, error)
		UpdateContent(ctx context.Context, s Survey, content core.Document) (Survey, error)
		UpdateStatus(ctx context.Context, s Survey, status Status) (Survey, error)
		Delete(ctx context.Context, id int) error
	}

	Service struct {
		repo         Repository
		campaignRepo campaign.Repository
		schoolRepo   school.Repository
		usrSvc       user.ServiceInterface
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, campaignRepo campaign.Repository, schoolRepo school.Repository, usrSvc user.ServiceInterface) *Service {
	return &Service{
		repo:         repo,
		campaignRepo: campaignRepo,
		schoolRepo:   schoolRepo,
		usrSvc:       usrSvc,
	}
}

// IntakeResult is what a successful intake hands back: the paired surveys and
// the credential token for subsequent requests.
type IntakeResult struct {
	Forth Survey
	Back  Survey
	Token user.Token
}

// DecodeParam decodes a transport-encoded intake parameter: base64url with
// padding correction first, percent-decoding as a fallback. An undecodable
// value yields "".
//
// The base64 branch only wins when it yields valid UTF-8; plain values that
// happen to look base64ish ("bob") would otherwise decode to garbage instead
// of falling through.
func DecodeParam(encoded string) string {
	if encoded == "" {
		return ""
	}
	padded := encoded
	if n := len(encoded) % 4; n != 0 {
		padded += strings.Repeat("=", 4-n)
	}
	if b, err := base64.URLEncoding.DecodeString(padded); err == nil && utf8.Valid(b) {
		return string(b)
	}
	if s, err := url.QueryUnescape(encoded); err == nil {
		return s
	}
	return ""
}

// Intake validates an invitation code ("{campaign_uuid}@{school_uuid}",
// already transport-decoded), resolves or creates the acting user and
// provisions the paired forth/back surveys. Re-invocation with the same code
// and identity returns the existing rows.
//
// Every failure except authorization ones is wrapped in ErrInvalidCode;
// core.ErrPermissionDenied must propagate unmasked.
func (svc *Service) Intake(ctx context.Context, code, username string, requester *user.User) (*IntakeResult, error) {
	camp, sch, err := svc.resolveCode(ctx, code)
	if err != nil {
		return nil, err
	}

	usr, tok, err := svc.resolveIdentity(ctx, username, requester)
	if err != nil {
		return nil, err
	}

	// survey intake is reserved for ordinary active respondents
	if usr.IsStaff || usr.IsSuperuser || !usr.IsActive {
		return nil, errors.Wrap(core.ErrPermissionDenied, "intake is for respondents only")
	}

	forth, err := svc.getOrCreate(ctx, KindForth, usr, camp, sch)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidCode, err.Error())
	}
	back, err := svc.getOrCreate(ctx, KindBack, usr, camp, sch)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidCode, err.Error())
	}

	return &IntakeResult{Forth: forth, Back: back, Token: tok}, nil
}

func (svc *Service) resolveCode(ctx context.Context, code string) (campaign.Campaign, school.School, error) {
	var camp campaign.Campaign
	var sch school.School

	if code == "" {
		return camp, sch, ErrInvalidCode
	}
	parts := strings.Split(code, "@")
	if len(parts) != 2 {
		return camp, sch, ErrInvalidCode
	}
	campUUID, err := uuid.Parse(parts[0])
	if err != nil {
		return camp, sch, ErrInvalidCode
	}
	schUUID, err := uuid.Parse(parts[1])
	if err != nil {
		return camp, sch, ErrInvalidCode
	}

	if camp, err = svc.campaignRepo.GetCampaignByUUID(ctx, campUUID); err != nil {
		return camp, sch, errors.Wrap(ErrInvalidCode, err.Error())
	}
	if sch, err = svc.schoolRepo.GetSchoolByUUID(ctx, schUUID); err != nil {
		return camp, sch, errors.Wrap(ErrInvalidCode, err.Error())
	}

	// campaign membership is not separately exposed: an unlinked school reads
	// the same as an unknown one
	if _, err = svc.campaignRepo.GetCascho(ctx, camp.ID, sch.ID); err != nil {
		return camp, sch, errors.Wrap(ErrInvalidCode, err.Error())
	}
	return camp, sch, nil
}

func (svc *Service) resolveIdentity(ctx context.Context, username string, requester *user.User) (user.User, user.Token, error) {
	var usr user.User
	var tok user.Token
	var err error

	switch {
	case requester != nil:
		// a supplied username must name the requester; anything else is an
		// impersonation attempt and propagates unmasked
		if username != "" && username != requester.Username {
			return usr, tok, errors.Wrap(core.ErrPermissionDenied, "username does not match authenticated user")
		}
		usr = *requester
		if tok, err = svc.usrSvc.GetToken(ctx, usr); err != nil {
			return usr, tok, errors.Wrap(ErrInvalidCode, err.Error())
		}
	case username != "":
		// known user without a live session
		if usr, err = svc.usrSvc.GetByUsername(ctx, username); err != nil {
			return usr, tok, errors.Wrap(ErrInvalidCode, err.Error())
		}
		if tok, err = svc.usrSvc.GetOrCreateToken(ctx, usr); err != nil {
			return usr, tok, errors.Wrap(ErrInvalidCode, err.Error())
		}
	default:
		if usr, tok, err = svc.usrSvc.CreateRespondent(ctx); err != nil {
			return usr, tok, errors.Wrap(ErrInvalidCode, err.Error())
		}
	}
	return usr, tok, nil
}

func (svc *Service) getOrCreate(ctx context.Context, kind Kind, usr user.User, camp campaign.Campaign, sch school.School) (Survey, error) {
	return svc.repo.GetOrCreateSurvey(ctx, Survey{
		Kind:       kind,
		UserID:     usr.ID,
		CampaignID: camp.ID,
		SchoolID:   sch.ID,
		Status:     StatusEmpty,
		Stamp:      null.TimeFrom(time.Now().UTC()),
		Content:    core.Document{},
	})
}

// Query lists the surveys visible to the requester: none when anonymous, all
// for superusers and admin-group members, own records otherwise. The filter
// is applied before any per-object permission check so the existence of other
// users' records never leaks.
func (svc *Service) Query(ctx context.Context, requester *user.User) ([]Survey, error) {
	return svc.query(ctx, requester, QueryFilter{})
}

// QueryFilled lists visible FILLED surveys: the harvestable ones.
func (svc *Service) QueryFilled(ctx context.Context, requester *user.User) ([]Survey, error) {
	filled := StatusFilled
	return svc.query(ctx, requester, QueryFilter{Status: &filled})
}

func (svc *Service) query(ctx context.Context, requester *user.User, filter QueryFilter) ([]Survey, error) {
	if requester == nil {
		return []Survey{}, nil
	}
	if !(requester.IsSuperuser || requester.IsAdmin()) {
		filter.UserID = requester.ID
	}
	return svc.repo.QuerySurveys(ctx, filter)
}

// GetByID resolves a survey within the requester's visible set; anything
// outside it reads as not found.
func (svc *Service) GetByID(ctx context.Context, id int, requester *user.User) (Survey, error) {
	if requester == nil {
		return Survey{}, ErrNotFound
	}
	s, err := svc.repo.GetSurveyByID(ctx, id)
	if err != nil {
		return Survey{}, err
	}
	if !(requester.IsSuperuser || requester.IsAdmin()) && s.UserID != requester.ID {
		return Survey{}, ErrNotFound
	}
	return s, nil
}

// UpdateContent persists a content change, subject to the state machine: a
// USED or CANCELLED survey silently keeps its previous content, while open
// surveys get their status recomputed from the new content.
func (svc *Service) UpdateContent(ctx context.Context, s Survey, content core.Document) (Survey, error) {
	st, writable := NextStatus(s.Status, content)
	s.Status = st
	if writable {
		s.Content = content
	}
	s.Stamp = null.TimeFrom(time.Now().UTC())
	return svc.repo.UpdateSurveyContent(ctx, s, writable)
}

// UpdateStatus is the field-scoped path finalizing a survey: only the one-way
// locks USED and CANCELLED are accepted as targets.
func (svc *Service) UpdateStatus(ctx context.Context, s Survey, status Status) (Survey, error) {
	if !status.IsFinal() {
		return Survey{}, core.NewValidationError(
			errors.New("invalid status"),
			core.FieldError{Field: "status", Error: "only used and cancelled can be set explicitly"},
		)
	}
	s.Status = status
	s.Stamp = null.TimeFrom(time.Now().UTC())
	return svc.repo.UpdateSurveyStatus(ctx, s)
}

func (svc *Service) Delete(ctx context.Context, id int) error {
	return svc.repo.DeleteSurvey(ctx, id)
}
