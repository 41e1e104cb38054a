package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/mobashi/surv/core/school"
)

type schoolRepository struct {
	db *sqlx.DB
}

var _ school.Repository = (*schoolRepository)(nil)

func NewSchoolRepository(db *sqlx.DB) *schoolRepository {
	return &schoolRepository{db: db}
}

type schoolRow struct {
	ID        int          `db:"id"`
	UUID      uuid.UUID    `db:"uuid"`
	Name      string       `db:"name"`
	Code      null.String  `db:"code"`
	Address   null.String  `db:"address"`
	Lat       null.Float64 `db:"lat"`
	Lng       null.Float64 `db:"lng"`
	CreatedAt time.Time    `db:"created_at"`
	UpdatedAt time.Time    `db:"updated_at"`
}

func (r schoolRow) toSchool() school.School {
	return school.School{
		ID:        r.ID,
		UUID:      r.UUID,
		Name:      r.Name,
		Code:      r.Code,
		Address:   r.Address,
		Lat:       r.Lat,
		Lng:       r.Lng,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

func newSchoolRow(sch school.School) schoolRow {
	return schoolRow{
		ID:        sch.ID,
		UUID:      sch.UUID,
		Name:      sch.Name,
		Code:      sch.Code,
		Address:   sch.Address,
		Lat:       sch.Lat,
		Lng:       sch.Lng,
		CreatedAt: sch.CreatedAt,
		UpdatedAt: sch.UpdatedAt,
	}
}

func (repo schoolRepository) CheckSchoolNameUniqueness(ctx context.Context, name string, excluded ...school.School) error {
	query := `SELECT COUNT(*) FROM school WHERE lower(name) = lower($1)`
	args := []interface{}{name}
	if len(excluded) > 0 {
		ids := make([]int, 0, len(excluded))
		for _, sch := range excluded {
			ids = append(ids, sch.ID)
		}
		q, inArgs, err := sqlx.In(`SELECT COUNT(*) FROM school WHERE lower(name) = lower(?) AND id NOT IN (?)`, name, ids)
		if err != nil {
			return err
		}
		query = repo.db.Rebind(q)
		args = inArgs
	}

	var count int
	if err := repo.db.GetContext(ctx, &count, query, args...); err != nil {
		return err
	}
	if count > 0 {
		return school.ErrNameExists
	}
	return nil
}

func (repo schoolRepository) CreateSchool(ctx context.Context, sch school.School) (school.School, error) {
	row := newSchoolRow(sch)
	query := `
INSERT INTO school (uuid, name, code, address, lat, lng, created_at, updated_at)
VALUES (:uuid, :name, :code, :address, :lat, :lng, :created_at, :updated_at)
RETURNING id`
	stmt, err := repo.db.PrepareNamedContext(ctx, query)
	if err != nil {
		return school.School{}, err
	}
	defer func() { _ = stmt.Close() }()

	if err = stmt.GetContext(ctx, &row.ID, row); err != nil {
		return school.School{}, err
	}
	return row.toSchool(), nil
}

func (repo schoolRepository) QueryAllSchools(ctx context.Context) ([]school.School, error) {
	var rows []schoolRow
	query := `SELECT * FROM school ORDER BY name`
	if err := repo.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}
	schs := make([]school.School, 0, len(rows))
	for _, row := range rows {
		schs = append(schs, row.toSchool())
	}
	return schs, nil
}

func (repo schoolRepository) GetSchoolByID(ctx context.Context, id int) (school.School, error) {
	var row schoolRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM school WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return school.School{}, school.ErrNotFound
		}
		return school.School{}, err
	}
	return row.toSchool(), nil
}

func (repo schoolRepository) GetSchoolByUUID(ctx context.Context, uid uuid.UUID) (school.School, error) {
	var row schoolRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM school WHERE uuid = $1`, uid); err != nil {
		if err == sql.ErrNoRows {
			return school.School{}, school.ErrNotFound
		}
		return school.School{}, err
	}
	return row.toSchool(), nil
}

func (repo schoolRepository) UpdateSchool(ctx context.Context, sch school.School) (school.School, error) {
	row := newSchoolRow(sch)
	query := `
UPDATE school
SET name = :name, code = :code, address = :address, lat = :lat, lng = :lng, updated_at = :updated_at
WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, query, row)
	if err != nil {
		return school.School{}, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return school.School{}, school.ErrNotFound
	}
	return row.toSchool(), nil
}

func (repo schoolRepository) DeleteSchool(ctx context.Context, id int) error {
	_, err := repo.db.ExecContext(ctx, `DELETE FROM school WHERE id = $1`, id)
	return err
}
