// Package dummydb provides in-memory repositories with the same semantics as
// the SQL ones, used by tests and local tinkering.
package dummydb

import (
	"sync"

	"github.com/mobashi/surv/core/campaign"
	"github.com/mobashi/surv/core/school"
	"github.com/mobashi/surv/core/survey"
	"github.com/mobashi/surv/core/user"
)

type (
	DB struct {
		school   *schoolTable
		campaign *campaignTable
		cascho   *caschoTable
		user     *userTable
		token    *tokenTable
		credOpts *credOptsTable
		survey   *surveyTable
	}

	schoolTable struct {
		sync.RWMutex
		table map[int]*school.School
		pk    int
	}

	campaignTable struct {
		sync.RWMutex
		table map[int]*campaign.Campaign
		pk    int
	}

	caschoTable struct {
		sync.RWMutex
		table map[int]*campaign.Cascho
		pk    int
	}

	userTable struct {
		sync.RWMutex
		table map[int]*user.User
		pk    int
	}

	tokenTable struct {
		sync.RWMutex
		table map[string]*user.Token // by key
	}

	credOptsTable struct {
		sync.RWMutex
		table map[int]*user.CredentialOptions
		pk    int
	}

	surveyTable struct {
		sync.RWMutex
		table map[int]*survey.Survey
		pk    int
	}
)

func Open() (*DB, error) {
	db := &DB{
		school:   &schoolTable{table: make(map[int]*school.School)},
		campaign: &campaignTable{table: make(map[int]*campaign.Campaign)},
		cascho:   &caschoTable{table: make(map[int]*campaign.Cascho)},
		user:     &userTable{table: make(map[int]*user.User)},
		token:    &tokenTable{table: make(map[string]*user.Token)},
		credOpts: &credOptsTable{table: make(map[int]*user.CredentialOptions)},
		survey:   &surveyTable{table: make(map[int]*survey.Survey)},
	}
	return db, nil
}
