package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/mobashi/surv/core/campaign"
)

type campaignRepository struct {
	db     *campaignTable
	cascho *caschoTable
}

var _ campaign.Repository = (*campaignRepository)(nil) // interface compliance check

func NewCampaignRepository(db *DB) campaign.Repository {
	return &campaignRepository{db: db.campaign, cascho: db.cascho}
}

func (repo *campaignRepository) CheckCampaignNameUniqueness(_ context.Context, name string, excluded ...campaign.Campaign) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, camp := range repo.db.table {
		if strings.EqualFold(camp.Name, name) && !campaignExcluded(*camp, excluded) {
			return campaign.ErrNameExists
		}
	}
	return nil
}

func campaignExcluded(camp campaign.Campaign, excluded []campaign.Campaign) bool {
	for _, ex := range excluded {
		if ex.ID == camp.ID {
			return true
		}
	}
	return false
}

func (repo *campaignRepository) CreateCampaign(_ context.Context, camp campaign.Campaign) (campaign.Campaign, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.pk++
	camp.ID = repo.db.pk
	repo.db.table[camp.ID] = &camp
	return camp, nil
}

func (repo *campaignRepository) QueryCampaigns(_ context.Context) ([]campaign.Campaign, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	camps := make([]campaign.Campaign, 0, len(repo.db.table))
	for _, camp := range repo.db.table {
		if camp.StampStart.Valid && camp.StampEnd.Valid {
			camps = append(camps, *camp)
		}
	}
	sort.Slice(camps, func(i, j int) bool {
		return camps[i].StampStart.Time.After(camps[j].StampStart.Time)
	})
	return camps, nil
}

func (repo *campaignRepository) GetCampaignByID(_ context.Context, id int) (campaign.Campaign, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if camp, ok := repo.db.table[id]; ok {
		return *camp, nil
	}
	return campaign.Campaign{}, campaign.ErrNotFound
}

func (repo *campaignRepository) GetCampaignByUUID(_ context.Context, uid uuid.UUID) (campaign.Campaign, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, camp := range repo.db.table {
		if camp.UUID == uid {
			return *camp, nil
		}
	}
	return campaign.Campaign{}, campaign.ErrNotFound
}

func (repo *campaignRepository) UpdateCampaign(_ context.Context, camp campaign.Campaign) (campaign.Campaign, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[camp.ID]; !ok {
		return campaign.Campaign{}, campaign.ErrNotFound
	}
	repo.db.table[camp.ID] = &camp
	return camp, nil
}

func (repo *campaignRepository) DeleteCampaign(_ context.Context, id int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	delete(repo.db.table, id)
	return nil
}

// Caschos

func (repo *campaignRepository) GetOrCreateCascho(_ context.Context, campaignID, schoolID int) (campaign.Cascho, error) {
	repo.cascho.Lock()
	defer repo.cascho.Unlock()

	for _, cas := range repo.cascho.table {
		if cas.CampaignID == campaignID && cas.SchoolID == schoolID {
			return *cas, nil
		}
	}
	repo.cascho.pk++
	cas := campaign.Cascho{ID: repo.cascho.pk, CampaignID: campaignID, SchoolID: schoolID}
	repo.cascho.table[cas.ID] = &cas
	return cas, nil
}

func (repo *campaignRepository) GetCascho(_ context.Context, campaignID, schoolID int) (campaign.Cascho, error) {
	repo.cascho.RLock()
	defer repo.cascho.RUnlock()

	for _, cas := range repo.cascho.table {
		if cas.CampaignID == campaignID && cas.SchoolID == schoolID {
			return *cas, nil
		}
	}
	return campaign.Cascho{}, campaign.ErrCaschoNotFound
}

func (repo *campaignRepository) QueryAllCaschos(_ context.Context) ([]campaign.Cascho, error) {
	repo.cascho.RLock()
	defer repo.cascho.RUnlock()

	cass := make([]campaign.Cascho, 0, len(repo.cascho.table))
	for _, cas := range repo.cascho.table {
		cass = append(cass, *cas)
	}
	sort.Slice(cass, func(i, j int) bool { return cass[i].ID < cass[j].ID })
	return cass, nil
}

func (repo *campaignRepository) GetCaschoByID(_ context.Context, id int) (campaign.Cascho, error) {
	repo.cascho.RLock()
	defer repo.cascho.RUnlock()

	if cas, ok := repo.cascho.table[id]; ok {
		return *cas, nil
	}
	return campaign.Cascho{}, campaign.ErrCaschoNotFound
}

func (repo *campaignRepository) DeleteCascho(_ context.Context, id int) error {
	repo.cascho.Lock()
	defer repo.cascho.Unlock()

	delete(repo.cascho.table, id)
	return nil
}
