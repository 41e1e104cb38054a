package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/volatiletech/null/v8"

	"github.com/mobashi/surv/core/user"
)

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

type userRow struct {
	ID           int            `db:"id"`
	Name         string         `db:"name"`
	Username     string         `db:"username"`
	Email        string         `db:"email"`
	IsActive     bool           `db:"is_active"`
	IsStaff      bool           `db:"is_staff"`
	IsSuperuser  bool           `db:"is_superuser"`
	Roles        pq.StringArray `db:"roles"`
	PasswordHash []byte         `db:"password_hash"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
	LastLogin    null.Time      `db:"last_login"`
}

func (r userRow) toUser() user.User {
	usr := user.User{
		ID:           r.ID,
		Name:         r.Name,
		Username:     r.Username,
		Email:        r.Email,
		IsActive:     r.IsActive,
		IsStaff:      r.IsStaff,
		IsSuperuser:  r.IsSuperuser,
		Roles:        r.Roles,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
	if r.LastLogin.Valid {
		usr.LastLogin = r.LastLogin.Time.UTC()
	}
	return usr
}

func newUserRow(usr user.User) userRow {
	row := userRow{
		ID:           usr.ID,
		Name:         usr.Name,
		Username:     usr.Username,
		Email:        usr.Email,
		IsActive:     usr.IsActive,
		IsStaff:      usr.IsStaff,
		IsSuperuser:  usr.IsSuperuser,
		Roles:        usr.Roles,
		PasswordHash: usr.PasswordHash,
		CreatedAt:    usr.CreatedAt,
		UpdatedAt:    usr.UpdatedAt,
	}
	if row.Roles == nil {
		row.Roles = pq.StringArray{}
	}
	if !usr.LastLogin.IsZero() {
		row.LastLogin = null.TimeFrom(usr.LastLogin)
	}
	return row
}

func (repo userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excluded ...user.User) error {
	for _, q := range []struct {
		col, val string
		err      error
	}{
		{"username", username, user.ErrUsernameExists},
		{"email", email, user.ErrEmailExists},
	} {
		if q.val == "" {
			continue
		}
		query := `SELECT COUNT(*) FROM app_user WHERE lower(` + q.col + `) = lower($1)`
		args := []interface{}{q.val}
		if len(excluded) > 0 {
			ids := make([]int, 0, len(excluded))
			for _, usr := range excluded {
				ids = append(ids, usr.ID)
			}
			in, inArgs, err := sqlx.In(`SELECT COUNT(*) FROM app_user WHERE lower(`+q.col+`) = lower(?) AND id NOT IN (?)`, q.val, ids)
			if err != nil {
				return err
			}
			query = repo.db.Rebind(in)
			args = inArgs
		}

		var count int
		if err := repo.db.GetContext(ctx, &count, query, args...); err != nil {
			return err
		}
		if count > 0 {
			return q.err
		}
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	row := newUserRow(usr)
	query := `
INSERT INTO app_user (name, username, email, is_active, is_staff, is_superuser, roles, password_hash, created_at, updated_at, last_login)
VALUES (:name, :username, :email, :is_active, :is_staff, :is_superuser, :roles, :password_hash, :created_at, :updated_at, :last_login)
RETURNING id`
	stmt, err := repo.db.PrepareNamedContext(ctx, query)
	if err != nil {
		return user.User{}, err
	}
	defer func() { _ = stmt.Close() }()

	if err = stmt.GetContext(ctx, &row.ID, row); err != nil {
		return user.User{}, err
	}
	return row.toUser(), nil
}

func (repo userRepository) QueryAllUsers(ctx context.Context) ([]user.User, error) {
	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM app_user ORDER BY username`); err != nil {
		return nil, err
	}
	usrs := make([]user.User, 0, len(rows))
	for _, row := range rows {
		usrs = append(usrs, row.toUser())
	}
	return usrs, nil
}

func (repo userRepository) getUser(ctx context.Context, query string, args ...interface{}) (user.User, error) {
	var row userRow
	if err := repo.db.GetContext(ctx, &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}
	return row.toUser(), nil
}

func (repo userRepository) GetUserByID(ctx context.Context, id int) (user.User, error) {
	return repo.getUser(ctx, `SELECT * FROM app_user WHERE id = $1`, id)
}

func (repo userRepository) GetUserByUsername(ctx context.Context, username string) (user.User, error) {
	return repo.getUser(ctx, `SELECT * FROM app_user WHERE lower(username) = lower($1)`, username)
}

func (repo userRepository) GetUserByUsernameOrEmail(ctx context.Context, uname string) (user.User, error) {
	return repo.getUser(ctx, `SELECT * FROM app_user WHERE lower(username) = lower($1) OR lower(email) = lower($1)`, uname)
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User, isActive *bool) (user.User, error) {
	if isActive != nil {
		usr.IsActive = *isActive
	}
	usr.UpdatedAt = time.Now().UTC()
	row := newUserRow(usr)
	query := `
UPDATE app_user
SET name = :name, username = :username, email = :email, is_active = :is_active,
    roles = :roles, password_hash = :password_hash, updated_at = :updated_at
WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, query, row)
	if err != nil {
		return user.User{}, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return row.toUser(), nil
}

func (repo userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User) (user.User, error) {
	if usr.ID > 0 {
		return repo.UpdateUser(ctx, usr, nil)
	}
	return repo.CreateUser(ctx, usr)
}

func (repo userRepository) SetLastLogin(ctx context.Context, id int, t time.Time) error {
	_, err := repo.db.ExecContext(ctx, `UPDATE app_user SET last_login = $1 WHERE id = $2`, t, id)
	return err
}

// Tokens

func (repo userRepository) GetTokenByUser(ctx context.Context, userID int) (user.Token, error) {
	var tok user.Token
	query := `SELECT key, user_id, created_at FROM auth_token WHERE user_id = $1`
	if err := repo.db.QueryRowxContext(ctx, query, userID).Scan(&tok.Key, &tok.UserID, &tok.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return user.Token{}, user.ErrTokenNotFound
		}
		return user.Token{}, err
	}
	return tok, nil
}

func (repo userRepository) GetTokenByKey(ctx context.Context, key string) (user.Token, error) {
	var tok user.Token
	query := `SELECT key, user_id, created_at FROM auth_token WHERE key = $1`
	if err := repo.db.QueryRowxContext(ctx, query, key).Scan(&tok.Key, &tok.UserID, &tok.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return user.Token{}, user.ErrTokenNotFound
		}
		return user.Token{}, err
	}
	return tok, nil
}

func (repo userRepository) CreateToken(ctx context.Context, tok user.Token) (user.Token, error) {
	query := `INSERT INTO auth_token (key, user_id, created_at) VALUES ($1, $2, $3)`
	if _, err := repo.db.ExecContext(ctx, query, tok.Key, tok.UserID, tok.CreatedAt); err != nil {
		return user.Token{}, err
	}
	return tok, nil
}

// Credential options

type credentialOptionsRow struct {
	ID           int       `db:"id"`
	Username     string    `db:"username"`
	DisplayName  string    `db:"display_name"`
	Email        string    `db:"email"`
	Challenge    string    `db:"challenge"`
	Ukey         string    `db:"ukey"`
	UserID       null.Int  `db:"user_id"`
	CredentialID string    `db:"credential_id"`
	PublicKey    string    `db:"public_key"`
	SignCount    int64     `db:"sign_count"`
	CreatedAt    time.Time `db:"created_at"`
}

func (r credentialOptionsRow) toCredentialOptions() user.CredentialOptions {
	return user.CredentialOptions{
		ID:           r.ID,
		Username:     r.Username,
		DisplayName:  r.DisplayName,
		Email:        r.Email,
		Challenge:    r.Challenge,
		Ukey:         r.Ukey,
		UserID:       r.UserID.Int,
		CredentialID: r.CredentialID,
		PublicKey:    r.PublicKey,
		SignCount:    uint32(r.SignCount),
		CreatedAt:    r.CreatedAt.UTC(),
	}
}

func newCredentialOptionsRow(co user.CredentialOptions) credentialOptionsRow {
	row := credentialOptionsRow{
		ID:           co.ID,
		Username:     co.Username,
		DisplayName:  co.DisplayName,
		Email:        co.Email,
		Challenge:    co.Challenge,
		Ukey:         co.Ukey,
		CredentialID: co.CredentialID,
		PublicKey:    co.PublicKey,
		SignCount:    int64(co.SignCount),
		CreatedAt:    co.CreatedAt,
	}
	if co.UserID > 0 {
		row.UserID = null.IntFrom(co.UserID)
	}
	return row
}

func (repo userRepository) CreateCredentialOptions(ctx context.Context, co user.CredentialOptions) (user.CredentialOptions, error) {
	row := newCredentialOptionsRow(co)
	query := `
INSERT INTO credential_options (username, display_name, email, challenge, ukey, user_id, credential_id, public_key, sign_count, created_at)
VALUES (:username, :display_name, :email, :challenge, :ukey, :user_id, :credential_id, :public_key, :sign_count, :created_at)
RETURNING id`
	stmt, err := repo.db.PrepareNamedContext(ctx, query)
	if err != nil {
		return user.CredentialOptions{}, err
	}
	defer func() { _ = stmt.Close() }()

	if err = stmt.GetContext(ctx, &row.ID, row); err != nil {
		return user.CredentialOptions{}, err
	}
	return row.toCredentialOptions(), nil
}

func (repo userRepository) getCredentialOptions(ctx context.Context, query string, args ...interface{}) (user.CredentialOptions, error) {
	var row credentialOptionsRow
	if err := repo.db.GetContext(ctx, &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return user.CredentialOptions{}, user.ErrCredentialsNotFound
		}
		return user.CredentialOptions{}, err
	}
	return row.toCredentialOptions(), nil
}

func (repo userRepository) GetCredentialOptionsByUkey(ctx context.Context, ukey string) (user.CredentialOptions, error) {
	return repo.getCredentialOptions(ctx, `SELECT * FROM credential_options WHERE ukey = $1`, ukey)
}

func (repo userRepository) GetCredentialOptionsByUsername(ctx context.Context, username string) (user.CredentialOptions, error) {
	return repo.getCredentialOptions(ctx, `SELECT * FROM credential_options WHERE lower(username) = lower($1)`, username)
}

func (repo userRepository) UpdateCredentialOptions(ctx context.Context, co user.CredentialOptions) (user.CredentialOptions, error) {
	row := newCredentialOptionsRow(co)
	query := `
UPDATE credential_options
SET challenge = :challenge, user_id = :user_id, credential_id = :credential_id,
    public_key = :public_key, sign_count = :sign_count
WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, query, row)
	if err != nil {
		return user.CredentialOptions{}, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.CredentialOptions{}, user.ErrCredentialsNotFound
	}
	return row.toCredentialOptions(), nil
}
