package dummydb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/mobashi/surv/core/user"
)

type userRepository struct {
	db       *userTable
	token    *tokenTable
	credOpts *credOptsTable
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db.user, token: db.token, credOpts: db.credOpts}
}

func (repo *userRepository) query() []user.User {
	usrs := make([]user.User, 0, len(repo.db.table))
	for _, usr := range repo.db.table {
		usrs = append(usrs, *usr)
	}
	sort.Slice(usrs, func(i, j int) bool { return usrs[i].Username < usrs[j].Username })
	return usrs
}

func (repo *userRepository) CheckUsernameUniqueness(_ context.Context, username, email string, excluded ...user.User) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, usr := range repo.db.table {
		if userExcluded(*usr, excluded) {
			continue
		}
		if username != "" && strings.EqualFold(usr.Username, username) {
			return user.ErrUsernameExists
		}
		if email != "" && strings.EqualFold(usr.Email, email) {
			return user.ErrEmailExists
		}
	}
	return nil
}

func userExcluded(usr user.User, excluded []user.User) bool {
	for _, ex := range excluded {
		if ex.ID == usr.ID {
			return true
		}
	}
	return false
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.pk++
	usr.ID = repo.db.pk
	repo.db.table[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) QueryAllUsers(_ context.Context) ([]user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.query(), nil
}

func (repo *userRepository) GetUserByID(_ context.Context, id int) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if usr, ok := repo.db.table[id]; ok {
		return *usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByUsername(_ context.Context, username string) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, usr := range repo.db.table {
		if strings.EqualFold(usr.Username, username) {
			return *usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByUsernameOrEmail(_ context.Context, uname string) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, usr := range repo.db.table {
		if strings.EqualFold(usr.Username, uname) || (usr.Email != "" && strings.EqualFold(usr.Email, uname)) {
			return *usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User, isActive *bool) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	if isActive != nil {
		usr.IsActive = *isActive
	} else {
		usr.IsActive = orig.IsActive
	}
	usr.UpdatedAt = time.Now().UTC()
	repo.db.table[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User) (user.User, error) {
	if usr.ID > 0 {
		return repo.UpdateUser(ctx, usr, &usr.IsActive)
	}
	return repo.CreateUser(ctx, usr)
}

func (repo *userRepository) SetLastLogin(_ context.Context, id int, t time.Time) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if usr, ok := repo.db.table[id]; ok {
		usr.LastLogin = t
		return nil
	}
	return user.ErrNotFound
}

// Tokens

func (repo *userRepository) GetTokenByUser(_ context.Context, userID int) (user.Token, error) {
	repo.token.RLock()
	defer repo.token.RUnlock()

	for _, tok := range repo.token.table {
		if tok.UserID == userID {
			return *tok, nil
		}
	}
	return user.Token{}, user.ErrTokenNotFound
}

func (repo *userRepository) GetTokenByKey(_ context.Context, key string) (user.Token, error) {
	repo.token.RLock()
	defer repo.token.RUnlock()

	if tok, ok := repo.token.table[key]; ok {
		return *tok, nil
	}
	return user.Token{}, user.ErrTokenNotFound
}

func (repo *userRepository) CreateToken(_ context.Context, tok user.Token) (user.Token, error) {
	repo.token.Lock()
	defer repo.token.Unlock()

	repo.token.table[tok.Key] = &tok
	return tok, nil
}

// Credential options

func (repo *userRepository) CreateCredentialOptions(_ context.Context, co user.CredentialOptions) (user.CredentialOptions, error) {
	repo.credOpts.Lock()
	defer repo.credOpts.Unlock()

	repo.credOpts.pk++
	co.ID = repo.credOpts.pk
	repo.credOpts.table[co.ID] = &co
	return co, nil
}

func (repo *userRepository) GetCredentialOptionsByUkey(_ context.Context, ukey string) (user.CredentialOptions, error) {
	repo.credOpts.RLock()
	defer repo.credOpts.RUnlock()

	for _, co := range repo.credOpts.table {
		if co.Ukey == ukey {
			return *co, nil
		}
	}
	return user.CredentialOptions{}, user.ErrCredentialsNotFound
}

func (repo *userRepository) GetCredentialOptionsByUsername(_ context.Context, username string) (user.CredentialOptions, error) {
	repo.credOpts.RLock()
	defer repo.credOpts.RUnlock()

	for _, co := range repo.credOpts.table {
		if strings.EqualFold(co.Username, username) {
			return *co, nil
		}
	}
	return user.CredentialOptions{}, user.ErrCredentialsNotFound
}

func (repo *userRepository) UpdateCredentialOptions(_ context.Context, co user.CredentialOptions) (user.CredentialOptions, error) {
	repo.credOpts.Lock()
	defer repo.credOpts.Unlock()

	if _, ok := repo.credOpts.table[co.ID]; !ok {
		return user.CredentialOptions{}, user.ErrCredentialsNotFound
	}
	repo.credOpts.table[co.ID] = &co
	return co, nil
}
