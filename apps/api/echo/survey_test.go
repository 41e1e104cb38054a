package echoapi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/mobashi/surv/core"
	"github.com/mobashi/surv/core/campaign"
	"github.com/mobashi/surv/core/school"
	"github.com/mobashi/surv/core/survey"
	"github.com/mobashi/surv/core/user"
)

// seedLink provisions an active campaign linked to a school and returns the
// raw intake code.
func (a *testApp) seedLink(t *testing.T) (campaign.Campaign, school.School, string) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()

	camp, err := a.campaignRepo.CreateCampaign(ctx, campaign.Campaign{
		UUID:       uuid.New(),
		Name:       "Spring campaign",
		StampStart: null.TimeFrom(now.AddDate(0, 0, -1)),
		StampEnd:   null.TimeFrom(now.AddDate(0, 0, 7)),
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	require.NoError(t, err)

	sch, err := a.schoolRepo.CreateSchool(ctx, school.School{
		UUID:      uuid.New(),
		Name:      "Scuola Alpha",
		Lat:       null.Float64From(45.0),
		Lng:       null.Float64From(9.0),
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.NoError(t, err)

	_, err = a.campaignRepo.GetOrCreateCascho(ctx, camp.ID, sch.ID)
	require.NoError(t, err)

	return camp, sch, camp.UUID.String() + "@" + sch.UUID.String()
}

func Test_surveyApi_intake(t *testing.T) {
	app := newTestApp(t)
	_, _, code := app.seedLink(t)

	alice := app.createUser(t, "alice", nil, false, false, true)
	aliceToken := app.getToken(t, alice)

	genericError := marchallObj(t, GenericError)
	forbidden := marchallObj(t, map[string]string{"error": "permission denied"})

	tests := []httpTest{
		{
			name:     "empty body is masked",
			body:     []byte(`{}`),
			wantCode: http.StatusInternalServerError,
			wantData: genericError,
		},
		{
			name:     "garbage code is masked",
			body:     marchallObj(t, IntakeRequest{Code: "not-a-code"}),
			wantCode: http.StatusInternalServerError,
			wantData: genericError,
		},
		{
			name:     "unknown pair is masked",
			body:     marchallObj(t, IntakeRequest{Code: uuid.NewString() + "@" + uuid.NewString()}),
			wantCode: http.StatusInternalServerError,
			wantData: genericError,
		},
		{
			name:     "username mismatch is NOT masked",
			body:     marchallObj(t, IntakeRequest{Code: code, Username: "bob"}),
			token:    aliceToken,
			wantCode: http.StatusForbidden,
			wantData: forbidden,
		},
		{
			name:     "valid anonymous intake",
			body:     marchallObj(t, IntakeRequest{Code: code}),
			wantCode: http.StatusCreated,
		},
		{
			name:     "valid authenticated intake",
			body:     marchallObj(t, IntakeRequest{Code: code}),
			token:    aliceToken,
			wantCode: http.StatusCreated,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/surveys", tt.token, tt.body)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if tt.wantCode == http.StatusCreated {
				var resp IntakeResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				assert.Equal(t, survey.KindForth, resp.Forth.Kind)
				assert.Equal(t, survey.KindBack, resp.Back.Kind)
				assert.NotEmpty(t, resp.Token)
				assert.True(t, resp.Forth.MustFillout)
				assert.True(t, resp.Forth.CanEdit)
			}
		})
	}
}

func Test_surveyApi_intakeEncodedCode(t *testing.T) {
	app := newTestApp(t)
	_, _, code := app.seedLink(t)

	// clients send the code transport-encoded; stripped base64url padding must
	// still resolve
	encoded := base64.RawURLEncoding.EncodeToString([]byte(code))
	body := marchallObj(t, IntakeRequest{Code: encoded})
	req, rec := newRequest(http.MethodPost, "/v1/surveys", body)
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var first IntakeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))

	// re-intake with the issued token yields the same pair
	body = marchallObj(t, IntakeRequest{Code: code})
	req, rec = newAuthRequest(http.MethodPost, "/v1/surveys", first.Token, body)
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var second IntakeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
	assert.Equal(t, first.Forth.ID, second.Forth.ID)
	assert.Equal(t, first.Back.ID, second.Back.ID)
}

func Test_surveyApi_intakeEncodedUsername(t *testing.T) {
	app := newTestApp(t)
	_, _, code := app.seedLink(t)

	// synthesize a respondent through an anonymous intake
	body := marchallObj(t, IntakeRequest{Code: code})
	req, rec := newRequest(http.MethodPost, "/v1/surveys", body)
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)
	var first IntakeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))

	usr, err := app.usrSvc.GetByToken(context.Background(), first.Token)
	require.NoError(t, err)

	// the username goes through the same tolerant transport decoding as the
	// code; both the encoded and the plain form resolve the existing pair
	for _, uname := range []string{
		base64.RawURLEncoding.EncodeToString([]byte(usr.Username)),
		usr.Username,
	} {
		body = marchallObj(t, IntakeRequest{Code: code, Username: uname})
		req, rec = newRequest(http.MethodPost, "/v1/surveys", body)
		app.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code)

		var again IntakeResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &again))
		assert.Equal(t, first.Forth.ID, again.Forth.ID)
		assert.Equal(t, first.Back.ID, again.Back.ID)
	}
}

func Test_surveyApi_queryAuth(t *testing.T) {
	app := newTestApp(t)
	_, _, code := app.seedLink(t)

	body := marchallObj(t, IntakeRequest{Code: code})
	req, rec := newRequest(http.MethodPost, "/v1/surveys", body)
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var intake IntakeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &intake))

	// bogus token is rejected
	req, rec = newAuthRequest(http.MethodGet, "/v1/surveys", "bogus")
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// the respondent sees their own pair
	req, rec = newAuthRequest(http.MethodGet, "/v1/surveys", intake.Token)
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var svys []SurveyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &svys))
	assert.Len(t, svys, 2)

	// another respondent cannot retrieve it
	otherReq, otherRec := newRequest(http.MethodPost, "/v1/surveys", marchallObj(t, IntakeRequest{Code: code}))
	app.server.ServeHTTP(otherRec, otherReq)
	require.Equal(t, http.StatusCreated, otherRec.Code)
	var other IntakeResponse
	require.NoError(t, json.Unmarshal(otherRec.Body.Bytes(), &other))

	req, rec = newAuthRequest(http.MethodGet, "/v1/surveys/"+strconv.Itoa(intake.Forth.ID), other.Token)
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func Test_surveyApi_updateContent(t *testing.T) {
	app := newTestApp(t)
	_, _, code := app.seedLink(t)

	req, rec := newRequest(http.MethodPost, "/v1/surveys", marchallObj(t, IntakeRequest{Code: code}))
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)
	var intake IntakeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &intake))

	content := core.Document{"orig_stamp": "2024-01-01T08:00:00"}
	body := marchallObj(t, SurveyContentUpdate{Content: content})
	req, rec = newAuthRequest(http.MethodPatch, "/v1/surveys/"+strconv.Itoa(intake.Forth.ID), intake.Token, body)
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SurveyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int(survey.StatusFilled), resp.Status)
	assert.Equal(t, content, resp.Content)
	assert.False(t, resp.MustFillout)
}

func Test_surveyApi_destroyIsAdminOnly(t *testing.T) {
	app := newTestApp(t)
	_, _, code := app.seedLink(t)

	req, rec := newRequest(http.MethodPost, "/v1/surveys", marchallObj(t, IntakeRequest{Code: code}))
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)
	var intake IntakeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &intake))

	// owners cannot delete
	req, rec = newAuthRequest(http.MethodDelete, "/v1/surveys/"+strconv.Itoa(intake.Forth.ID), intake.Token)
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// admins can
	admin := app.createUser(t, "boss", user.AdminRoles, true, false, true)
	adminToken := app.getToken(t, admin)
	req, rec = newAuthRequest(http.MethodDelete, "/v1/surveys/"+strconv.Itoa(intake.Forth.ID), adminToken)
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
