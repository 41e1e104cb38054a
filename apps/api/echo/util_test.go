package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/go-playground/locales/en"

	"github.com/mobashi/surv/core"
	"github.com/mobashi/surv/core/campaign"
	"github.com/mobashi/surv/core/school"
	"github.com/mobashi/surv/core/survey"
	"github.com/mobashi/surv/core/user"
	emailsvc "github.com/mobashi/surv/services/email"
	logsvc "github.com/mobashi/surv/services/logger"
	webauthnsvc "github.com/mobashi/surv/services/webauthn"
	dummydb "github.com/mobashi/surv/storage/database/dummy"
)

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

type testApp struct {
	server       *Server
	schoolRepo   school.Repository
	campaignRepo campaign.Repository
	usrRepo      user.Repository
	schoolSvc    school.ServiceInterface
	campaignSvc  campaign.ServiceInterface
	surveySvc    survey.ServiceInterface
	usrSvc       user.ServiceInterface
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("newTestApp() failed: %v", err)
	}

	conf := &core.Config{
		AppName:  "Mobashi",
		Env:      "TEST",
		TestMode: true,
		Webauthn: core.WebauthnConfig{
			RPID:      "localhost",
			RPName:    "Mobashi",
			RPOrigins: []string{"http://localhost"},
		},
	}

	schoolRepo := dummydb.NewSchoolRepository(db)
	campaignRepo := dummydb.NewCampaignRepository(db)
	usrRepo := dummydb.NewUserRepository(db)
	surveyRepo := dummydb.NewSurveyRepository(db)

	usrSvc := user.NewService(usrRepo, emailsvc.NewConsoleServiceMock(conf), conf)
	schoolSvc := school.NewService(schoolRepo)
	campaignSvc := campaign.NewService(campaignRepo)
	surveySvc := survey.NewService(surveyRepo, campaignRepo, schoolRepo, usrSvc)
	waSvc, err := webauthnsvc.NewService(conf, usrSvc)
	if err != nil {
		t.Fatalf("newTestApp() failed: %v", err)
	}

	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
	logger.Enable(false)

	validate := validator.New()
	translator := newTestTranslator()
	core.InitValidators(validate, translator)

	server := NewServer(ServerDeps{
		Conf:           conf,
		Logger:         logger,
		SchoolSvc:      schoolSvc,
		CampaignSvc:    campaignSvc,
		SurveySvc:      surveySvc,
		UserSvc:        usrSvc,
		WebauthnSvc:    waSvc,
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
	})

	return &testApp{
		server:       server,
		schoolRepo:   schoolRepo,
		campaignRepo: campaignRepo,
		usrRepo:      usrRepo,
		schoolSvc:    schoolSvc,
		campaignSvc:  campaignSvc,
		surveySvc:    surveySvc,
		usrSvc:       usrSvc,
	}
}

func newTestTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func (a *testApp) createUser(t *testing.T, uname string, roles []string, isStaff, isSuperuser, isActive bool) user.User {
	t.Helper()
	now := time.Now().UTC()
	usr, err := a.usrRepo.CreateUser(context.Background(), user.User{
		Username:    uname,
		Roles:       roles,
		IsStaff:     isStaff,
		IsSuperuser: isSuperuser,
		IsActive:    isActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

func (a *testApp) getToken(t *testing.T, usr user.User) string {
	t.Helper()
	tok, err := a.usrSvc.GetOrCreateToken(context.Background(), usr)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return tok.Key
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Token "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
