package sqlxrepos

import (
	"context"
	"database/sql"
	"strconv"

	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/mobashi/surv/core"
	"github.com/mobashi/surv/core/survey"
)

type surveyRepository struct {
	db *sqlx.DB
}

var _ survey.Repository = (*surveyRepository)(nil)

func NewSurveyRepository(db *sqlx.DB) *surveyRepository {
	return &surveyRepository{db: db}
}

type surveyRow struct {
	ID         int           `db:"id"`
	Kind       string        `db:"kind"`
	UserID     int           `db:"user_id"`
	CampaignID int           `db:"campaign_id"`
	SchoolID   int           `db:"school_id"`
	Status     int           `db:"status"`
	Stamp      null.Time     `db:"stamp"`
	Content    core.Document `db:"content"`

	Campaign campaignRow `db:"campaign"`
	School   schoolRow   `db:"school"`
}

// surveySelect joins the campaign and school each survey belongs to; their
// columns come back under the "campaign." and "school." prefixes.
const surveySelect = `
SELECT s.id, s.kind, s.user_id, s.campaign_id, s.school_id, s.status, s.stamp, s.content,
       c.id "campaign.id", c.uuid "campaign.uuid", c.name "campaign.name",
       c.stamp_start "campaign.stamp_start", c.stamp_end "campaign.stamp_end",
       c.survey "campaign.survey", c.created_at "campaign.created_at", c.updated_at "campaign.updated_at",
       h.id "school.id", h.uuid "school.uuid", h.name "school.name", h.code "school.code",
       h.address "school.address", h.lat "school.lat", h.lng "school.lng",
       h.created_at "school.created_at", h.updated_at "school.updated_at"
FROM survey s
JOIN campaign c ON c.id = s.campaign_id
JOIN school h ON h.id = s.school_id`

func (r surveyRow) toSurvey() survey.Survey {
	return survey.Survey{
		ID:         r.ID,
		Kind:       survey.Kind(r.Kind),
		UserID:     r.UserID,
		CampaignID: r.CampaignID,
		SchoolID:   r.SchoolID,
		Status:     survey.Status(r.Status),
		Stamp:      r.Stamp,
		Content:    r.Content,
		Campaign:   r.Campaign.toCampaign(),
		School:     r.School.toSchool(),
	}
}

func (repo surveyRepository) GetOrCreateSurvey(ctx context.Context, s survey.Survey) (survey.Survey, error) {
	if s.Content == nil {
		s.Content = core.Document{}
	}
	// the no-op DO UPDATE makes RETURNING yield the row on conflict too
	query := `
INSERT INTO survey (kind, user_id, campaign_id, school_id, status, stamp, content)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (kind, user_id, campaign_id, school_id) DO UPDATE SET kind = EXCLUDED.kind
RETURNING id`
	var id int
	err := repo.db.QueryRowxContext(ctx, query,
		string(s.Kind), s.UserID, s.CampaignID, s.SchoolID, int(s.Status), s.Stamp, s.Content,
	).Scan(&id)
	if err != nil {
		return survey.Survey{}, err
	}
	return repo.GetSurveyByID(ctx, id)
}

func (repo surveyRepository) GetSurveyByID(ctx context.Context, id int) (survey.Survey, error) {
	var row surveyRow
	if err := repo.db.GetContext(ctx, &row, surveySelect+` WHERE s.id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return survey.Survey{}, survey.ErrNotFound
		}
		return survey.Survey{}, err
	}
	return row.toSurvey(), nil
}

func (repo surveyRepository) QuerySurveys(ctx context.Context, filter survey.QueryFilter) ([]survey.Survey, error) {
	query := surveySelect
	var args []interface{}
	var conds []string

	if filter.UserID > 0 {
		args = append(args, filter.UserID)
		conds = append(conds, "s.user_id = $"+strconv.Itoa(len(args)))
	}
	if filter.Status != nil {
		args = append(args, int(*filter.Status))
		conds = append(conds, "s.status = $"+strconv.Itoa(len(args)))
	}
	for i, cond := range conds {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += " ORDER BY s.status, s.campaign_id, s.school_id, s.kind"

	var rows []surveyRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	svys := make([]survey.Survey, 0, len(rows))
	for _, row := range rows {
		svys = append(svys, row.toSurvey())
	}
	return svys, nil
}

func (repo surveyRepository) UpdateSurveyContent(ctx context.Context, s survey.Survey, contentWritable bool) (survey.Survey, error) {
	var err error
	if contentWritable {
		_, err = repo.db.ExecContext(ctx,
			`UPDATE survey SET content = $1, status = $2, stamp = $3 WHERE id = $4`,
			s.Content, int(s.Status), s.Stamp, s.ID)
	} else {
		_, err = repo.db.ExecContext(ctx,
			`UPDATE survey SET status = $1, stamp = $2 WHERE id = $3`,
			int(s.Status), s.Stamp, s.ID)
	}
	if err != nil {
		return survey.Survey{}, err
	}
	return repo.GetSurveyByID(ctx, s.ID)
}

func (repo surveyRepository) UpdateSurveyStatus(ctx context.Context, s survey.Survey) (survey.Survey, error) {
	_, err := repo.db.ExecContext(ctx,
		`UPDATE survey SET status = $1, stamp = $2 WHERE id = $3`,
		int(s.Status), s.Stamp, s.ID)
	if err != nil {
		return survey.Survey{}, err
	}
	return repo.GetSurveyByID(ctx, s.ID)
}

func (repo surveyRepository) DeleteSurvey(ctx context.Context, id int) error {
	_, err := repo.db.ExecContext(ctx, `DELETE FROM survey WHERE id = $1`, id)
	return err
}
