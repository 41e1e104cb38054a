package echoapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mobashi/surv/core"
	"github.com/mobashi/surv/core/survey"
	"github.com/mobashi/surv/core/user"
)

// fillSurvey runs an intake and fills the forth survey with a one-stage trip,
// returning the survey id and the respondent token.
func fillSurvey(t *testing.T, app *testApp, code string) (int, string) {
	t.Helper()

	req, rec := newRequest(http.MethodPost, "/v1/surveys", marchallObj(t, IntakeRequest{Code: code}))
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)
	var intake IntakeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &intake))

	content := core.Document{
		"TZ":         "UTC",
		"orig":       map[string]interface{}{"lat": 1.0, "lng": 2.0},
		"orig_stamp": "2024-01-01T08:00:00",
		"stages": []interface{}{
			map[string]interface{}{"dest_stamp": "2024-01-01T08:30:00"},
		},
	}
	body := marchallObj(t, SurveyContentUpdate{Content: content})
	req, rec = newAuthRequest(http.MethodPatch, "/v1/surveys/"+strconv.Itoa(intake.Forth.ID), intake.Token, body)
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	return intake.Forth.ID, intake.Token
}

func Test_harvestApi_query(t *testing.T) {
	app := newTestApp(t)
	_, _, code := app.seedLink(t)
	id, _ := fillSurvey(t, app, code)

	admin := app.createUser(t, "boss", user.AdminRoles, true, false, true)
	adminToken := app.getToken(t, admin)

	req, rec := newAuthRequest(http.MethodGet, "/v1/harvests", adminToken)
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var trips []TripResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &trips))
	require.Len(t, trips, 1)
	assert.Equal(t, id, trips[0].ID)
	assert.Equal(t, survey.KindForth, trips[0].Kind)

	require.Len(t, trips[0].Stages, 1)
	leg := trips[0].Stages[0]
	assert.Equal(t, "2024-01-01T08:00:00+00:00", leg.OrigStamp)
	assert.Equal(t, "2024-01-01T08:30:00+00:00", leg.DestStamp)
	// destination defaults to the school geo
	assert.Equal(t, "Scuola Alpha", leg.Dest.Name)
}

func Test_harvestApi_retrieve(t *testing.T) {
	app := newTestApp(t)
	_, _, code := app.seedLink(t)
	id, token := fillSurvey(t, app, code)

	// the owner can read their own trip
	req, rec := newAuthRequest(http.MethodGet, "/v1/harvests/"+strconv.Itoa(id), token)
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var trip TripResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &trip))
	assert.Equal(t, id, trip.ID)
	require.Len(t, trip.Stages, 1)

	// unknown id reads as not found
	req, rec = newAuthRequest(http.MethodGet, "/v1/harvests/99999", token)
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func Test_harvestApi_onlyFilledHarvestable(t *testing.T) {
	app := newTestApp(t)
	_, _, code := app.seedLink(t)

	// an intake pair is still EMPTY: invisible to the harvest
	req, rec := newRequest(http.MethodPost, "/v1/surveys", marchallObj(t, IntakeRequest{Code: code}))
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)
	var intake IntakeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &intake))

	admin := app.createUser(t, "boss", user.AdminRoles, true, false, true)
	adminToken := app.getToken(t, admin)
	path := "/v1/harvests/" + strconv.Itoa(intake.Forth.ID)

	req, rec = newAuthRequest(http.MethodGet, path, adminToken)
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// and it cannot be finalized through the harvest either
	body := marchallObj(t, SurveyStatusUpdate{Status: survey.StatusUsed})
	req, rec = newAuthRequest(http.MethodPatch, path, adminToken, body)
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func Test_harvestApi_updateStatus(t *testing.T) {
	app := newTestApp(t)
	_, _, code := app.seedLink(t)
	id, _ := fillSurvey(t, app, code)

	admin := app.createUser(t, "boss", user.AdminRoles, true, false, true)
	adminToken := app.getToken(t, admin)
	path := "/v1/harvests/" + strconv.Itoa(id)

	// open statuses cannot be set explicitly
	body := marchallObj(t, SurveyStatusUpdate{Status: survey.StatusEmpty})
	req, rec := newAuthRequest(http.MethodPatch, path, adminToken, body)
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// marking it used freezes it
	body = marchallObj(t, SurveyStatusUpdate{Status: survey.StatusUsed})
	req, rec = newAuthRequest(http.MethodPatch, path, adminToken, body)
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SurveyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int(survey.StatusUsed), resp.Status)

	// once used, the harvest no longer lists it
	req, rec = newAuthRequest(http.MethodGet, "/v1/harvests", adminToken)
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var trips []TripResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &trips))
	assert.Empty(t, trips)
}
