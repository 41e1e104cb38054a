package user

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/mobashi/surv/core"
)

var (
	ErrNotFound            = errors.New("user not found")
	ErrTokenNotFound       = errors.New("token not found")
	ErrCredentialsNotFound = errors.New("credential options not found")
	ErrUsernameExists      = errors.New("a user with this username already exists")
	ErrEmailExists         = errors.New("a user with this email already exists")
)

type (
	Repository interface {
		CheckUsernameUniqueness(ctx context.Context, username, email string, excluded ...User) error
		CreateUser(ctx context.Context, usr User) (User, error)
		QueryAllUsers(ctx context.Context) ([]User, error)
		GetUserByID(ctx context.Context, id int) (User, error)
		GetUserByUsername(ctx context.Context, username string) (User, error)
		GetUserByUsernameOrEmail(ctx context.Context, uname string) (User, error)
		UpdateUser(ctx context.Context, usr User, isActive *bool) (User, error)
		UpdateOrCreateUser(ctx context.Context, usr User) (User, error)
		SetLastLogin(ctx context.Context, id int, t time.Time) error

		GetTokenByUser(ctx context.Context, userID int) (Token, error)
		GetTokenByKey(ctx context.Context, key string) (Token, error)
		CreateToken(ctx context.Context, tok Token) (Token, error)

		CreateCredentialOptions(ctx context.Context, co CredentialOptions) (CredentialOptions, error)
		GetCredentialOptionsByUkey(ctx context.Context, ukey string) (CredentialOptions, error)
		GetCredentialOptionsByUsername(ctx context.Context, username string) (CredentialOptions, error)
		UpdateCredentialOptions(ctx context.Context, co CredentialOptions) (CredentialOptions, error)
	}

	ServiceInterface interface {
		CheckUniqueness(uname, email string, excluded ...User) error
		Create(ctx context.Context, nu NewUser) (User, error)
		CreateRespondent(ctx context.Context) (User, Token, error)
		QueryAll(ctx context.Context) ([]User, error)
		GetByID(ctx context.Context, id int) (User, error)
		GetByUsername(ctx context.Context, uname string) (User, error)
		Authenticate(ctx context.Context, uname, pwd string) (User, error)
		GetToken(ctx context.Context, usr User) (Token, error)
		GetOrCreateToken(ctx context.Context, usr User) (Token, error)
		GetByToken(ctx context.Context, key string) (User, error)

		CreateSignupOptions(ctx context.Context, username, displayName, email string) (CredentialOptions, error)
		GetCredentialOptionsByUkey(ctx context.Context, ukey string) (CredentialOptions, error)
		GetCredentialOptionsByUsername(ctx context.Context, username string) (CredentialOptions, error)
		SaveCredentialOptions(ctx context.Context, co CredentialOptions) (CredentialOptions, error)
		CompleteSignup(ctx context.Context, co CredentialOptions) (User, error)
		CompleteLogin(ctx context.Context, co CredentialOptions) (Token, error)
	}

	Service struct {
		repo Repository
		mail core.EmailService
		conf *core.Config
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config) *Service {
	return &Service{repo: repo, mail: mailSvc, conf: conf}
}

func (svc *Service) CheckUniqueness(uname, email string, excluded ...User) error {
	if err := svc.repo.CheckUsernameUniqueness(context.Background(), uname, email, excluded...); err != nil {
		var field string
		switch err {
		case ErrUsernameExists:
			field = "username"
		case ErrEmailExists:
			field = "email"
		default:
			return err
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	now := time.Now().UTC()
	usr := User{
		Name:      nu.Name,
		Username:  nu.Username,
		Email:     nu.Email,
		IsActive:  true,
		Roles:     nu.Roles,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if nu.Password != "" {
		if err := usr.SetPassword(nu.Password); err != nil {
			return User{}, err
		}
	}
	return svc.repo.CreateUser(ctx, usr)
}

// CreateRespondent synthesizes an ordinary active user with a random username
// and issues its credential token. Used by survey intake when no identity is
// supplied.
func (svc *Service) CreateRespondent(ctx context.Context) (User, Token, error) {
	now := time.Now().UTC()
	usr := User{
		Username:  uuid.NewString(),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	usr, err := svc.repo.CreateUser(ctx, usr)
	if err != nil {
		return User{}, Token{}, err
	}
	tok, err := svc.createToken(ctx, usr)
	if err != nil {
		return User{}, Token{}, err
	}
	return usr, tok, nil
}

func (svc *Service) QueryAll(ctx context.Context) ([]User, error) {
	return svc.repo.QueryAllUsers(ctx)
}

func (svc *Service) GetByID(ctx context.Context, id int) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByUsername(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUserByUsername(ctx, core.CleanString(uname, true /* lower */))
}

// Authenticate verifies a username/email + password pair. Inactive accounts
// do not authenticate.
func (svc *Service) Authenticate(ctx context.Context, uname, pwd string) (User, error) {
	usr, err := svc.repo.GetUserByUsernameOrEmail(ctx, core.CleanString(uname, true /* lower */))
	if err != nil {
		return User{}, err
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return User{}, ErrNotFound
	}
	if !usr.IsActive {
		return User{}, ErrNotFound
	}
	if err = svc.repo.SetLastLogin(ctx, usr.ID, time.Now().UTC()); err != nil {
		return User{}, err
	}
	return usr, nil
}

func (svc *Service) GetToken(ctx context.Context, usr User) (Token, error) {
	return svc.repo.GetTokenByUser(ctx, usr.ID)
}

func (svc *Service) GetOrCreateToken(ctx context.Context, usr User) (Token, error) {
	tok, err := svc.repo.GetTokenByUser(ctx, usr.ID)
	if err == nil {
		return tok, nil
	}
	if errors.Cause(err) != ErrTokenNotFound {
		return Token{}, err
	}
	return svc.createToken(ctx, usr)
}

// GetByToken resolves the user owning a token key. Used by the auth middleware.
func (svc *Service) GetByToken(ctx context.Context, key string) (User, error) {
	tok, err := svc.repo.GetTokenByKey(ctx, key)
	if err != nil {
		return User{}, err
	}
	return svc.repo.GetUserByID(ctx, tok.UserID)
}

func (svc *Service) createToken(ctx context.Context, usr User) (Token, error) {
	key := make([]byte, 20)
	if _, err := rand.Read(key); err != nil {
		return Token{}, errors.Wrap(err, "generating token key")
	}
	tok := Token{
		Key:       hex.EncodeToString(key),
		UserID:    usr.ID,
		CreatedAt: time.Now().UTC(),
	}
	return svc.repo.CreateToken(ctx, tok)
}

// WebAuthn ceremonies

// CreateSignupOptions stashes the registration intent for a username that must
// not be taken yet.
func (svc *Service) CreateSignupOptions(ctx context.Context, username, displayName, email string) (CredentialOptions, error) {
	username = core.CleanString(username, true /* lower */)
	email = core.CleanString(email, true /* lower */)
	if err := svc.CheckUniqueness(username, email); err != nil {
		return CredentialOptions{}, err
	}
	co := CredentialOptions{
		Username:    username,
		DisplayName: core.CleanString(displayName),
		Email:       email,
		Ukey:        uuid.NewString(),
		CreatedAt:   time.Now().UTC(),
	}
	return svc.repo.CreateCredentialOptions(ctx, co)
}

func (svc *Service) GetCredentialOptionsByUkey(ctx context.Context, ukey string) (CredentialOptions, error) {
	return svc.repo.GetCredentialOptionsByUkey(ctx, ukey)
}

func (svc *Service) GetCredentialOptionsByUsername(ctx context.Context, username string) (CredentialOptions, error) {
	return svc.repo.GetCredentialOptionsByUsername(ctx, core.CleanString(username, true /* lower */))
}

func (svc *Service) SaveCredentialOptions(ctx context.Context, co CredentialOptions) (CredentialOptions, error) {
	return svc.repo.UpdateCredentialOptions(ctx, co)
}

// CompleteSignup creates the active user behind verified credential options,
// attaches it and greets it by email.
func (svc *Service) CompleteSignup(ctx context.Context, co CredentialOptions) (User, error) {
	now := time.Now().UTC()
	usr := User{
		Name:      co.DisplayName,
		Username:  co.Username,
		Email:     co.Email,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	usr, err := svc.repo.CreateUser(ctx, usr)
	if err != nil {
		return User{}, err
	}

	co.UserID = usr.ID
	co.Challenge = ""
	if _, err = svc.repo.UpdateCredentialOptions(ctx, co); err != nil {
		return User{}, err
	}

	if usr.Email != "" {
		svc.mail.SendMessages(&core.EmailMessage{
			To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
			Subject:      "Welcome",
			TemplateName: "welcome",
			TemplateData: struct{ Username string }{usr.Username},
		})
	}
	return usr, nil
}

// CompleteLogin persists the post-assertion credential state and hands back
// the user's token.
func (svc *Service) CompleteLogin(ctx context.Context, co CredentialOptions) (Token, error) {
	co.Challenge = ""
	if _, err := svc.repo.UpdateCredentialOptions(ctx, co); err != nil {
		return Token{}, err
	}
	usr, err := svc.repo.GetUserByID(ctx, co.UserID)
	if err != nil {
		return Token{}, err
	}
	if err = svc.repo.SetLastLogin(ctx, usr.ID, time.Now().UTC()); err != nil {
		return Token{}, err
	}
	return svc.GetOrCreateToken(ctx, usr)
}
