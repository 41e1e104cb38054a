package webauthnsvc_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mobashi/surv/core"
	"github.com/mobashi/surv/core/user"
	emailsvc "github.com/mobashi/surv/services/email"
	webauthnsvc "github.com/mobashi/surv/services/webauthn"
	dummydb "github.com/mobashi/surv/storage/database/dummy"
)

func setup(t *testing.T) *webauthnsvc.Service {
	t.Helper()
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	conf := &core.Config{
		TestMode: true,
		Webauthn: core.WebauthnConfig{
			RPID:      "localhost",
			RPName:    "Mobashi",
			RPOrigins: []string{"http://localhost"},
		},
	}
	usrSvc := user.NewService(dummydb.NewUserRepository(db), emailsvc.NewConsoleServiceMock(conf), conf)
	svc, err := webauthnsvc.NewService(conf, usrSvc)
	require.NoError(t, err)
	return svc
}

func TestBeginSignup(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	opts, ukey, err := svc.BeginSignup(ctx, "carol", "Carol", "carol@test.local")
	require.NoError(t, err)
	assert.NotEmpty(t, ukey)

	var creation struct {
		PublicKey struct {
			Challenge string `json:"challenge"`
			RP        struct {
				ID string `json:"id"`
			} `json:"rp"`
		} `json:"publicKey"`
	}
	require.NoError(t, json.Unmarshal(opts, &creation))
	assert.NotEmpty(t, creation.PublicKey.Challenge)
	assert.Equal(t, "localhost", creation.PublicKey.RP.ID)
}

func TestFinishSignup_malformedResponse(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	_, ukey, err := svc.BeginSignup(ctx, "carol", "Carol", "carol@test.local")
	require.NoError(t, err)

	for _, response := range [][]byte{
		[]byte("not json"),
		[]byte("{}"),
		nil,
	} {
		_, err = svc.FinishSignup(ctx, ukey, response)
		assert.Error(t, err)
	}

	// unknown ceremonies never reach parsing
	_, err = svc.FinishSignup(ctx, "no-such-ukey", []byte("{}"))
	assert.ErrorIs(t, err, user.ErrCredentialsNotFound)
}

func TestFinishLogin_malformedResponse(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	_, _, err := svc.BeginSignup(ctx, "carol", "Carol", "carol@test.local")
	require.NoError(t, err)

	_, err = svc.FinishLogin(ctx, "carol", []byte("not json"))
	assert.Error(t, err)

	_, err = svc.FinishLogin(ctx, "nobody", []byte("{}"))
	assert.ErrorIs(t, err, user.ErrCredentialsNotFound)
}
