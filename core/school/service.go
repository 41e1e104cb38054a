package school

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/mobashi/surv/core"
)

var (
	ErrNotFound   = errors.New("school not found")
	ErrNameExists = errors.New("a school with this name already exists")
)

type (
	Repository interface {
		CheckSchoolNameUniqueness(ctx context.Context, name string, excluded ...School) error
		CreateSchool(ctx context.Context, sch School) (School, error)
		QueryAllSchools(ctx context.Context) ([]School, error)
		GetSchoolByID(ctx context.Context, id int) (School, error)
		GetSchoolByUUID(ctx context.Context, uid uuid.UUID) (School, error)
		UpdateSchool(ctx context.Context, sch School) (School, error)
		DeleteSchool(ctx context.Context, id int) error
	}

	ServiceInterface interface {
		CheckNameUniqueness(name string, excluded ...School) error
		Create(ctx context.Context, ns NewSchool) (School, error)
		QueryAll(ctx context.Context) ([]School, error)
		GetByUUID(ctx context.Context, uid uuid.UUID) (School, error)
		Update(ctx context.Context, orig School, us UpdateSchool) (School, error)
		Delete(ctx context.Context, id int) error
	}

	Service struct {
		repo Repository
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) CheckNameUniqueness(name string, excluded ...School) error {
	if err := svc.repo.CheckSchoolNameUniqueness(context.Background(), name, excluded...); err != nil {
		if err == ErrNameExists {
			return core.NewValidationError(err, core.FieldError{Field: "name", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, ns NewSchool) (School, error) {
	now := time.Now().UTC()
	sch := School{
		UUID:      uuid.New(), // assigned once; immutable thereafter
		Name:      ns.Name,
		Code:      ns.Code,
		Address:   ns.Address,
		Lat:       ns.Lat,
		Lng:       ns.Lng,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateSchool(ctx, sch)
}

func (svc *Service) QueryAll(ctx context.Context) ([]School, error) {
	return svc.repo.QueryAllSchools(ctx)
}

func (svc *Service) GetByUUID(ctx context.Context, uid uuid.UUID) (School, error) {
	return svc.repo.GetSchoolByUUID(ctx, uid)
}

func (svc *Service) Update(ctx context.Context, orig School, us UpdateSchool) (School, error) {
	sch := School{
		ID:        orig.ID,
		UUID:      orig.UUID,
		Name:      us.Name,
		Code:      us.Code,
		Address:   us.Address,
		Lat:       us.Lat,
		Lng:       us.Lng,
		CreatedAt: orig.CreatedAt,
		UpdatedAt: time.Now().UTC(),
	}
	return svc.repo.UpdateSchool(ctx, sch)
}

func (svc *Service) Delete(ctx context.Context, id int) error {
	return svc.repo.DeleteSchool(ctx, id)
}
