package campaign

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/mobashi/surv/core"
	"github.com/mobashi/surv/core/school"
)

var (
	ErrNotFound       = errors.New("campaign not found")
	ErrNameExists     = errors.New("a campaign with this name already exists")
	ErrCaschoNotFound = errors.New("school is not linked to campaign")
)

type (
	Repository interface {
		CheckCampaignNameUniqueness(ctx context.Context, name string, excluded ...Campaign) error
		CreateCampaign(ctx context.Context, camp Campaign) (Campaign, error)
		// QueryCampaigns only returns campaigns with both bounds set; campaigns
		// missing a bound are DISABLED and kept out of listings.
		QueryCampaigns(ctx context.Context) ([]Campaign, error)
		GetCampaignByID(ctx context.Context, id int) (Campaign, error)
		GetCampaignByUUID(ctx context.Context, uid uuid.UUID) (Campaign, error)
		UpdateCampaign(ctx context.Context, camp Campaign) (Campaign, error)
		DeleteCampaign(ctx context.Context, id int) error

		// GetOrCreateCascho links atomically: concurrent identical calls must
		// resolve to a single row, backed by the store's unique constraint.
		GetOrCreateCascho(ctx context.Context, campaignID, schoolID int) (Cascho, error)
		GetCascho(ctx context.Context, campaignID, schoolID int) (Cascho, error)
		QueryAllCaschos(ctx context.Context) ([]Cascho, error)
		GetCaschoByID(ctx context.Context, id int) (Cascho, error)
		DeleteCascho(ctx context.Context, id int) error
	}

	ServiceInterface interface {
		CheckNameUniqueness(name string, excluded ...Campaign) error
		Create(ctx context.Context, nc NewCampaign) (Campaign, error)
		Query(ctx context.Context) ([]Campaign, error)
		GetByUUID(ctx context.Context, uid uuid.UUID) (Campaign, error)
		Update(ctx context.Context, orig Campaign, uc UpdateCampaign) (Campaign, error)
		Delete(ctx context.Context, id int) error

		AddSchool(ctx context.Context, camp Campaign, sch school.School) (Cascho, error)
		RemoveSchool(ctx context.Context, camp Campaign, sch school.School) error
		QueryAllCaschos(ctx context.Context) ([]Cascho, error)
		GetCaschoByID(ctx context.Context, id int) (Cascho, error)
		DeleteCascho(ctx context.Context, id int) error
	}

	Service struct {
		repo Repository
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) CheckNameUniqueness(name string, excluded ...Campaign) error {
	if err := svc.repo.CheckCampaignNameUniqueness(context.Background(), name, excluded...); err != nil {
		if err == ErrNameExists {
			return core.NewValidationError(err, core.FieldError{Field: "name", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, nc NewCampaign) (Campaign, error) {
	now := time.Now().UTC()
	camp := Campaign{
		UUID:       uuid.New(), // assigned once; immutable thereafter
		Name:       nc.Name,
		StampStart: nc.StampStart,
		StampEnd:   nc.StampEnd,
		Survey:     nc.Survey,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return svc.repo.CreateCampaign(ctx, camp)
}

func (svc *Service) Query(ctx context.Context) ([]Campaign, error) {
	return svc.repo.QueryCampaigns(ctx)
}

func (svc *Service) GetByUUID(ctx context.Context, uid uuid.UUID) (Campaign, error) {
	return svc.repo.GetCampaignByUUID(ctx, uid)
}

func (svc *Service) Update(ctx context.Context, orig Campaign, uc UpdateCampaign) (Campaign, error) {
	camp := Campaign{
		ID:         orig.ID,
		UUID:       orig.UUID,
		Name:       uc.Name,
		StampStart: uc.StampStart,
		StampEnd:   uc.StampEnd,
		Survey:     uc.Survey,
		CreatedAt:  orig.CreatedAt,
		UpdatedAt:  time.Now().UTC(),
	}
	return svc.repo.UpdateCampaign(ctx, camp)
}

func (svc *Service) Delete(ctx context.Context, id int) error {
	return svc.repo.DeleteCampaign(ctx, id)
}

// AddSchool links a school to the campaign, or no-ops if already linked.
func (svc *Service) AddSchool(ctx context.Context, camp Campaign, sch school.School) (Cascho, error) {
	return svc.repo.GetOrCreateCascho(ctx, camp.ID, sch.ID)
}

// RemoveSchool unlinks a school; ErrCaschoNotFound if it was not linked.
func (svc *Service) RemoveSchool(ctx context.Context, camp Campaign, sch school.School) error {
	cas, err := svc.repo.GetCascho(ctx, camp.ID, sch.ID)
	if err != nil {
		return err
	}
	return svc.repo.DeleteCascho(ctx, cas.ID)
}

func (svc *Service) QueryAllCaschos(ctx context.Context) ([]Cascho, error) {
	return svc.repo.QueryAllCaschos(ctx)
}

func (svc *Service) GetCaschoByID(ctx context.Context, id int) (Cascho, error) {
	return svc.repo.GetCaschoByID(ctx, id)
}

func (svc *Service) DeleteCascho(ctx context.Context, id int) error {
	return svc.repo.DeleteCascho(ctx, id)
}
