package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/mobashi/surv/core/school"
)

type schoolRepository struct {
	db *schoolTable
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *DB) school.Repository {
	return &schoolRepository{db: db.school}
}

func (repo *schoolRepository) query() []school.School {
	schs := make([]school.School, 0, len(repo.db.table))
	for _, sch := range repo.db.table {
		schs = append(schs, *sch)
	}
	sort.Slice(schs, func(i, j int) bool { return schs[i].Name < schs[j].Name })
	return schs
}

func (repo *schoolRepository) CheckSchoolNameUniqueness(_ context.Context, name string, excluded ...school.School) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, sch := range repo.db.table {
		if strings.EqualFold(sch.Name, name) && !schoolExcluded(*sch, excluded) {
			return school.ErrNameExists
		}
	}
	return nil
}

func schoolExcluded(sch school.School, excluded []school.School) bool {
	for _, ex := range excluded {
		if ex.ID == sch.ID {
			return true
		}
	}
	return false
}

func (repo *schoolRepository) CreateSchool(_ context.Context, sch school.School) (school.School, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.pk++
	sch.ID = repo.db.pk
	repo.db.table[sch.ID] = &sch
	return sch, nil
}

func (repo *schoolRepository) QueryAllSchools(_ context.Context) ([]school.School, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.query(), nil
}

func (repo *schoolRepository) GetSchoolByID(_ context.Context, id int) (school.School, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if sch, ok := repo.db.table[id]; ok {
		return *sch, nil
	}
	return school.School{}, school.ErrNotFound
}

func (repo *schoolRepository) GetSchoolByUUID(_ context.Context, uid uuid.UUID) (school.School, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, sch := range repo.db.table {
		if sch.UUID == uid {
			return *sch, nil
		}
	}
	return school.School{}, school.ErrNotFound
}

func (repo *schoolRepository) UpdateSchool(_ context.Context, sch school.School) (school.School, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[sch.ID]; !ok {
		return school.School{}, school.ErrNotFound
	}
	repo.db.table[sch.ID] = &sch
	return sch, nil
}

func (repo *schoolRepository) DeleteSchool(_ context.Context, id int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	delete(repo.db.table, id)
	return nil
}
