package dummydb

import (
	"context"
	"sort"

	"github.com/mobashi/surv/core/survey"
)

type surveyRepository struct {
	db       *surveyTable
	campaign *campaignTable
	school   *schoolTable
}

var _ survey.Repository = (*surveyRepository)(nil) // interface compliance check

func NewSurveyRepository(db *DB) survey.Repository {
	return &surveyRepository{db: db.survey, campaign: db.campaign, school: db.school}
}

// attach populates the joined campaign and school the SQL repo returns.
func (repo *surveyRepository) attach(s survey.Survey) survey.Survey {
	repo.campaign.RLock()
	if camp, ok := repo.campaign.table[s.CampaignID]; ok {
		s.Campaign = *camp
	}
	repo.campaign.RUnlock()

	repo.school.RLock()
	if sch, ok := repo.school.table[s.SchoolID]; ok {
		s.School = *sch
	}
	repo.school.RUnlock()
	return s
}

func (repo *surveyRepository) GetOrCreateSurvey(_ context.Context, s survey.Survey) (survey.Survey, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, existing := range repo.db.table {
		if existing.Kind == s.Kind && existing.UserID == s.UserID &&
			existing.CampaignID == s.CampaignID && existing.SchoolID == s.SchoolID {
			return repo.attach(*existing), nil
		}
	}
	repo.db.pk++
	s.ID = repo.db.pk
	repo.db.table[s.ID] = &s
	return repo.attach(s), nil
}

func (repo *surveyRepository) GetSurveyByID(_ context.Context, id int) (survey.Survey, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if s, ok := repo.db.table[id]; ok {
		return repo.attach(*s), nil
	}
	return survey.Survey{}, survey.ErrNotFound
}

func (repo *surveyRepository) QuerySurveys(_ context.Context, filter survey.QueryFilter) ([]survey.Survey, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	svys := make([]survey.Survey, 0)
	for _, s := range repo.db.table {
		if filter.UserID > 0 && s.UserID != filter.UserID {
			continue
		}
		if filter.Status != nil && s.Status != *filter.Status {
			continue
		}
		svys = append(svys, repo.attach(*s))
	}
	sort.Slice(svys, func(i, j int) bool {
		a, b := svys[i], svys[j]
		if a.Status != b.Status {
			return a.Status < b.Status
		}
		if a.CampaignID != b.CampaignID {
			return a.CampaignID < b.CampaignID
		}
		if a.SchoolID != b.SchoolID {
			return a.SchoolID < b.SchoolID
		}
		return a.Kind < b.Kind
	})
	return svys, nil
}

func (repo *surveyRepository) UpdateSurveyContent(_ context.Context, s survey.Survey, contentWritable bool) (survey.Survey, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	existing, ok := repo.db.table[s.ID]
	if !ok {
		return survey.Survey{}, survey.ErrNotFound
	}
	existing.Status = s.Status
	existing.Stamp = s.Stamp
	if contentWritable {
		existing.Content = s.Content
	}
	return repo.attach(*existing), nil
}

func (repo *surveyRepository) UpdateSurveyStatus(_ context.Context, s survey.Survey) (survey.Survey, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	existing, ok := repo.db.table[s.ID]
	if !ok {
		return survey.Survey{}, survey.ErrNotFound
	}
	existing.Status = s.Status
	existing.Stamp = s.Stamp
	return repo.attach(*existing), nil
}

func (repo *surveyRepository) DeleteSurvey(_ context.Context, id int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	delete(repo.db.table, id)
	return nil
}
