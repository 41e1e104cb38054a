package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/mobashi/surv/core"
	"github.com/mobashi/surv/core/campaign"
)

type campaignRepository struct {
	db *sqlx.DB
}

var _ campaign.Repository = (*campaignRepository)(nil)

func NewCampaignRepository(db *sqlx.DB) *campaignRepository {
	return &campaignRepository{db: db}
}

type campaignRow struct {
	ID         int           `db:"id"`
	UUID       uuid.UUID     `db:"uuid"`
	Name       string        `db:"name"`
	StampStart null.Time     `db:"stamp_start"`
	StampEnd   null.Time     `db:"stamp_end"`
	Survey     core.Document `db:"survey"`
	CreatedAt  time.Time     `db:"created_at"`
	UpdatedAt  time.Time     `db:"updated_at"`
}

func (r campaignRow) toCampaign() campaign.Campaign {
	return campaign.Campaign{
		ID:         r.ID,
		UUID:       r.UUID,
		Name:       r.Name,
		StampStart: r.StampStart,
		StampEnd:   r.StampEnd,
		Survey:     r.Survey,
		CreatedAt:  r.CreatedAt.UTC(),
		UpdatedAt:  r.UpdatedAt.UTC(),
	}
}

func newCampaignRow(camp campaign.Campaign) campaignRow {
	if camp.Survey == nil {
		camp.Survey = core.Document{}
	}
	return campaignRow{
		ID:         camp.ID,
		UUID:       camp.UUID,
		Name:       camp.Name,
		StampStart: camp.StampStart,
		StampEnd:   camp.StampEnd,
		Survey:     camp.Survey,
		CreatedAt:  camp.CreatedAt,
		UpdatedAt:  camp.UpdatedAt,
	}
}

func (repo campaignRepository) CheckCampaignNameUniqueness(ctx context.Context, name string, excluded ...campaign.Campaign) error {
	query := `SELECT COUNT(*) FROM campaign WHERE lower(name) = lower($1)`
	args := []interface{}{name}
	if len(excluded) > 0 {
		ids := make([]int, 0, len(excluded))
		for _, camp := range excluded {
			ids = append(ids, camp.ID)
		}
		q, inArgs, err := sqlx.In(`SELECT COUNT(*) FROM campaign WHERE lower(name) = lower(?) AND id NOT IN (?)`, name, ids)
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
		return campaign.ErrNameExists
	}
	return nil
}

func (repo campaignRepository) CreateCampaign(ctx context.Context, camp campaign.Campaign) (campaign.Campaign, error) {
	row := newCampaignRow(camp)
	query := `
INSERT INTO campaign (uuid, name, stamp_start, stamp_end, survey, created_at, updated_at)
VALUES (:uuid, :name, :stamp_start, :stamp_end, :survey, :created_at, :updated_at)
RETURNING id`
	stmt, err := repo.db.PrepareNamedContext(ctx, query)
	if err != nil {
		return campaign.Campaign{}, err
	}
	defer func() { _ = stmt.Close() }()

	if err = stmt.GetContext(ctx, &row.ID, row); err != nil {
		return campaign.Campaign{}, err
	}
	return row.toCampaign(), nil
}

func (repo campaignRepository) QueryCampaigns(ctx context.Context) ([]campaign.Campaign, error) {
	var rows []campaignRow
	query := `
SELECT * FROM campaign
WHERE stamp_start IS NOT NULL AND stamp_end IS NOT NULL
ORDER BY stamp_start DESC`
	if err := repo.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}
	camps := make([]campaign.Campaign, 0, len(rows))
	for _, row := range rows {
		camps = append(camps, row.toCampaign())
	}
	return camps, nil
}

func (repo campaignRepository) GetCampaignByID(ctx context.Context, id int) (campaign.Campaign, error) {
	var row campaignRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM campaign WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return campaign.Campaign{}, campaign.ErrNotFound
		}
		return campaign.Campaign{}, err
	}
	return row.toCampaign(), nil
}

func (repo campaignRepository) GetCampaignByUUID(ctx context.Context, uid uuid.UUID) (campaign.Campaign, error) {
	var row campaignRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM campaign WHERE uuid = $1`, uid); err != nil {
		if err == sql.ErrNoRows {
			return campaign.Campaign{}, campaign.ErrNotFound
		}
		return campaign.Campaign{}, err
	}
	return row.toCampaign(), nil
}

func (repo campaignRepository) UpdateCampaign(ctx context.Context, camp campaign.Campaign) (campaign.Campaign, error) {
	row := newCampaignRow(camp)
	query := `
UPDATE campaign
SET name = :name, stamp_start = :stamp_start, stamp_end = :stamp_end, survey = :survey, updated_at = :updated_at
WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, query, row)
	if err != nil {
		return campaign.Campaign{}, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return campaign.Campaign{}, campaign.ErrNotFound
	}
	return row.toCampaign(), nil
}

func (repo campaignRepository) DeleteCampaign(ctx context.Context, id int) error {
	_, err := repo.db.ExecContext(ctx, `DELETE FROM campaign WHERE id = $1`, id)
	return err
}

// Caschos

func (repo campaignRepository) GetOrCreateCascho(ctx context.Context, campaignID, schoolID int) (campaign.Cascho, error) {
	var cas campaign.Cascho
	// the no-op DO UPDATE makes RETURNING yield the row on conflict too
	query := `
INSERT INTO cascho (campaign_id, school_id)
VALUES ($1, $2)
ON CONFLICT (campaign_id, school_id) DO UPDATE SET campaign_id = EXCLUDED.campaign_id
RETURNING id, campaign_id, school_id`
	err := repo.db.QueryRowxContext(ctx, query, campaignID, schoolID).Scan(&cas.ID, &cas.CampaignID, &cas.SchoolID)
	return cas, err
}

func (repo campaignRepository) GetCascho(ctx context.Context, campaignID, schoolID int) (campaign.Cascho, error) {
	var cas campaign.Cascho
	query := `SELECT id, campaign_id, school_id FROM cascho WHERE campaign_id = $1 AND school_id = $2`
	if err := repo.db.QueryRowxContext(ctx, query, campaignID, schoolID).Scan(&cas.ID, &cas.CampaignID, &cas.SchoolID); err != nil {
		if err == sql.ErrNoRows {
			return campaign.Cascho{}, campaign.ErrCaschoNotFound
		}
		return campaign.Cascho{}, err
	}
	return cas, nil
}

func (repo campaignRepository) QueryAllCaschos(ctx context.Context) ([]campaign.Cascho, error) {
	rows, err := repo.db.QueryxContext(ctx, `SELECT id, campaign_id, school_id FROM cascho ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	cass := make([]campaign.Cascho, 0)
	for rows.Next() {
		var cas campaign.Cascho
		if err = rows.Scan(&cas.ID, &cas.CampaignID, &cas.SchoolID); err != nil {
			return nil, err
		}
		cass = append(cass, cas)
	}
	return cass, rows.Err()
}

func (repo campaignRepository) GetCaschoByID(ctx context.Context, id int) (campaign.Cascho, error) {
	var cas campaign.Cascho
	query := `SELECT id, campaign_id, school_id FROM cascho WHERE id = $1`
	if err := repo.db.QueryRowxContext(ctx, query, id).Scan(&cas.ID, &cas.CampaignID, &cas.SchoolID); err != nil {
		if err == sql.ErrNoRows {
			return campaign.Cascho{}, campaign.ErrCaschoNotFound
		}
		return campaign.Cascho{}, err
	}
	return cas, nil
}

func (repo campaignRepository) DeleteCascho(ctx context.Context, id int) error {
	_, err := repo.db.ExecContext(ctx, `DELETE FROM cascho WHERE id = $1`, id)
	return err
}
