// Package webauthnsvc wraps the WebAuthn ceremonies around the user service:
// it runs registration and assertion against go-webauthn and persists the
// challenge and credential state through user.ServiceInterface.
package webauthnsvc

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/pkg/errors"

	"github.com/mobashi/surv/core"
	"github.com/mobashi/surv/core/user"
)

type Service struct {
	wa     *webauthn.WebAuthn
	usrSvc user.ServiceInterface
}

func NewService(conf *core.Config, usrSvc user.ServiceInterface) (*Service, error) {
	wa, err := webauthn.New(&webauthn.Config{
		RPID:          conf.Webauthn.RPID,
		RPDisplayName: conf.Webauthn.RPName,
		RPOrigins:     conf.Webauthn.RPOrigins,
	})
	if err != nil {
		return nil, errors.Wrap(err, "configuring webauthn")
	}
	return &Service{wa: wa, usrSvc: usrSvc}, nil
}

// BeginSignup reserves the username and returns the credential creation
// options to hand to the authenticator, along with the ukey identifying the
// pending registration.
func (svc *Service) BeginSignup(ctx context.Context, username, displayName, email string) (json.RawMessage, string, error) {
	co, err := svc.usrSvc.CreateSignupOptions(ctx, username, displayName, email)
	if err != nil {
		return nil, "", err
	}

	creation, session, err := svc.wa.BeginRegistration(waUser{co: co})
	if err != nil {
		return nil, "", errors.Wrap(err, "beginning registration")
	}

	co.Challenge = session.Challenge
	if _, err = svc.usrSvc.SaveCredentialOptions(ctx, co); err != nil {
		return nil, "", err
	}

	opts, err := json.Marshal(creation)
	if err != nil {
		return nil, "", errors.Wrap(err, "encoding creation options")
	}
	return opts, co.Ukey, nil
}

// FinishSignup verifies the authenticator's attestation against the pending
// challenge, stores the credential and promotes the registration to a user.
func (svc *Service) FinishSignup(ctx context.Context, ukey string, response []byte) (user.User, error) {
	co, err := svc.usrSvc.GetCredentialOptionsByUkey(ctx, ukey)
	if err != nil {
		return user.User{}, err
	}

	parsed, err := protocol.ParseCredentialCreationResponseBody(bytes.NewReader(response))
	if err != nil {
		return user.User{}, errors.Wrap(err, "parsing creation response")
	}

	cred, err := svc.wa.CreateCredential(waUser{co: co}, svc.session(co), parsed)
	if err != nil {
		return user.User{}, errors.Wrap(err, "verifying credential")
	}

	co.CredentialID = base64.RawURLEncoding.EncodeToString(cred.ID)
	co.PublicKey = base64.RawURLEncoding.EncodeToString(cred.PublicKey)
	co.SignCount = cred.Authenticator.SignCount
	return svc.usrSvc.CompleteSignup(ctx, co)
}

// BeginLogin returns the assertion options for a registered username. An
// unknown username surfaces as user.ErrCredentialsNotFound.
func (svc *Service) BeginLogin(ctx context.Context, username string) (json.RawMessage, error) {
	co, err := svc.usrSvc.GetCredentialOptionsByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	assertion, session, err := svc.wa.BeginLogin(waUser{co: co})
	if err != nil {
		return nil, errors.Wrap(err, "beginning login")
	}

	co.Challenge = session.Challenge
	if _, err = svc.usrSvc.SaveCredentialOptions(ctx, co); err != nil {
		return nil, err
	}

	opts, err := json.Marshal(assertion)
	if err != nil {
		return nil, errors.Wrap(err, "encoding assertion options")
	}
	return opts, nil
}

// FinishLogin verifies the assertion, persists the updated signature counter
// and returns the user's API token.
func (svc *Service) FinishLogin(ctx context.Context, username string, response []byte) (user.Token, error) {
	co, err := svc.usrSvc.GetCredentialOptionsByUsername(ctx, username)
	if err != nil {
		return user.Token{}, err
	}

	parsed, err := protocol.ParseCredentialRequestResponseBody(bytes.NewReader(response))
	if err != nil {
		return user.Token{}, errors.Wrap(err, "parsing assertion response")
	}

	cred, err := svc.wa.ValidateLogin(waUser{co: co}, svc.session(co), parsed)
	if err != nil {
		return user.Token{}, errors.Wrap(err, "verifying assertion")
	}

	co.SignCount = cred.Authenticator.SignCount
	return svc.usrSvc.CompleteLogin(ctx, co)
}

// session rebuilds the ceremony state around the stored challenge.
func (svc Service) session(co user.CredentialOptions) webauthn.SessionData {
	sd := webauthn.SessionData{
		Challenge: co.Challenge,
		UserID:    []byte(co.Ukey),
		Expires:   time.Now().Add(5 * time.Minute),
	}
	if co.CredentialID != "" {
		if id, err := base64.RawURLEncoding.DecodeString(co.CredentialID); err == nil {
			sd.AllowedCredentialIDs = [][]byte{id}
		}
	}
	return sd
}

// waUser adapts CredentialOptions to the webauthn.User interface.
type waUser struct {
	co user.CredentialOptions
}

var _ webauthn.User = waUser{}

func (u waUser) WebAuthnID() []byte { return []byte(u.co.Ukey) }

func (u waUser) WebAuthnName() string { return u.co.Username }

func (u waUser) WebAuthnDisplayName() string {
	if u.co.DisplayName != "" {
		return u.co.DisplayName
	}
	return u.co.Username
}

func (u waUser) WebAuthnIcon() string { return "" }

func (u waUser) WebAuthnCredentials() []webauthn.Credential {
	if u.co.CredentialID == "" {
		return nil
	}
	id, err := base64.RawURLEncoding.DecodeString(u.co.CredentialID)
	if err != nil {
		return nil
	}
	pub, err := base64.RawURLEncoding.DecodeString(u.co.PublicKey)
	if err != nil {
		return nil
	}
	return []webauthn.Credential{{
		ID:        id,
		PublicKey: pub,
		Authenticator: webauthn.Authenticator{
			SignCount: u.co.SignCount,
		},
	}}
}
