package user

import (
	"strings"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/mobashi/surv/core"
)

// Roles. Membership in the survey-admin group is what gates School, Campaign
// and Cascho management and unrestricted Survey access.
const (
	RoleAdmin     = "admin:"
	RoleAdminSurv = "admin:mosurv"
)

var AdminRoles = []string{RoleAdmin, RoleAdminSurv}

type User struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	IsActive     bool      `json:"is_active"`
	IsStaff      bool      `json:"is_staff"`
	IsSuperuser  bool      `json:"is_superuser"`
	Roles        []string  `json:"roles"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
	LastLogin    time.Time `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) roleStartsWith(prefix string) bool {
	for _, role := range u.Roles {
		if strings.HasPrefix(role, prefix) {
			return true
		}
	}
	return false
}

// IsAdmin reports membership in the survey-admin group.
func (u *User) IsAdmin() bool {
	return u.roleStartsWith(RoleAdmin)
}

// Token is the opaque bearer credential issued to a user. At most one per
// user; its key is what intake and the WebAuthn login hand back to clients.
type Token struct {
	Key       string    `json:"key"`
	UserID    int       `json:"user"`
	CreatedAt time.Time `json:"created_at"`
}

// CredentialOptions holds one user's WebAuthn state: the pending challenge
// during a ceremony, and the verified credential afterwards.
type CredentialOptions struct {
	ID           int       `json:"id"`
	Username     string    `json:"username"`
	DisplayName  string    `json:"display_name"`
	Email        string    `json:"email"`
	Challenge    string    `json:"-"`
	Ukey         string    `json:"ukey"`
	UserID       int       `json:"-"` // 0 until registration completes
	CredentialID string    `json:"-"` // base64url
	PublicKey    string    `json:"-"` // base64url
	SignCount    uint32    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name            string   `json:"name"`
	Username        string   `json:"username" validate:"required,max=150,alphanum_"`
	Email           string   `json:"email" validate:"omitempty,email"`
	Password        string   `json:"password" validate:"omitempty"`
	PasswordConfirm string   `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
	Roles           []string `json:"roles"`
}

func (nu *NewUser) Validate(validate *validator.Validate, _ ut.Translator, svc ServiceInterface) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Email = core.CleanString(nu.Email, true /* lower */)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	if nu.Password != "" {
		if err := ValidatePassword(nu.Password, nu.Username, nu.Email); err != nil {
			return err
		}
	}
	return svc.CheckUniqueness(nu.Username, nu.Email)
}
