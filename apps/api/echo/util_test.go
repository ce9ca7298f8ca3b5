package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/shulelabs/shule/core"
	"github.com/shulelabs/shule/core/auth"
	"github.com/shulelabs/shule/core/invite"
	"github.com/shulelabs/shule/core/school"
	"github.com/shulelabs/shule/core/user"
	mockauth "github.com/shulelabs/shule/services/auth/mock"
	emailsvc "github.com/shulelabs/shule/services/email"
	inmemdb "github.com/shulelabs/shule/storage/inmem"
)

type testLogger struct{}

func (testLogger) Debug(string, ...interface{}) {}
func (testLogger) Info(string, ...interface{})  {}
func (testLogger) Warn(string, ...interface{})  {}
func (testLogger) Error(string, ...interface{}) {}
func (testLogger) Fatal(string, ...interface{}) {}

type httpErr struct {
	Error string `json:"error"`
}

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
	server   Server
	conf     *core.Config
	provider *mockauth.Provider
	loader   *auth.PrincipalLoader

	userRepo   user.Repository
	schoolRepo school.Repository
	inviteSvc  *invite.Service
}

func newTestConfig() *core.Config {
	conf := &core.Config{
		TestMode:         true,
		AppName:          "Shule",
		SecretKey:        "secret",
		FrontendBaseURL:  "http://localhost:3000",
		DefaultFromEmail: mail.Address{Name: "Shule", Address: "noreply@localhost"},
	}
	conf.Auth = core.AuthConfig{
		Provider:            "mock",
		ResolveTimeout:      time.Second,
		SyncTimeout:         time.Second,
		SessionTTL:          time.Hour,
		PrincipalFreshFor:   30 * time.Second,
		PrincipalStaleBound: 5 * time.Minute,
		InvitationTimeout:   7 * 24 * time.Hour,
		LoginURL:            "/login",
		AdminLoginURL:       "/admin/login",
		SignOutURL:          "/login",
	}
	return conf
}

func setup(t *testing.T) *testApp {
	t.Helper()

	conf := newTestConfig()
	logger := testLogger{}

	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	userRepo := inmemdb.NewUserRepository(db)
	schoolRepo := inmemdb.NewSchoolRepository(db)
	inviteRepo := inmemdb.NewInvitationRepository(db)

	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	usrSvc := user.NewService(userRepo, logger)
	schSvc := school.NewService(schoolRepo)
	invSvc := invite.NewService(inviteRepo, mailSvc, conf, logger)

	provider := mockauth.NewProvider(conf)
	loader := auth.NewPrincipalLoader(usrSvc, auth.NewMemoryCache(), logger, conf)
	guard := auth.NewGuard(provider, loader, logger, conf)

	validate, translator := core.NewValidator()
	user.RegisterRoleValidation(validate)

	server := NewServer(&Options{
		Address:        "localhost:8000",
		DisableReqLogs: true,
		Conf:           conf,
		Logger:         logger,
		Guard:          guard,
		Loader:         loader,
		UserSvc:        usrSvc,
		SchoolSvc:      schSvc,
		InviteSvc:      invSvc,
		Validate:       validate,
		Translator:     translator,
	})

	return &testApp{
		server:     server,
		conf:       conf,
		provider:   provider,
		loader:     loader,
		userRepo:   userRepo,
		schoolRepo: schoolRepo,
		inviteSvc:  invSvc,
	}
}

func (app *testApp) createUser(
	t *testing.T,
	name, email, subjectID string,
	role auth.Role,
	schoolID int64,
	isActive, isApproved bool,
) user.User {
	t.Helper()
	now := time.Now().UTC()
	usr, err := app.userRepo.CreateUser(context.Background(), user.User{
		SubjectID:  subjectID,
		Name:       name,
		Email:      email,
		Role:       role,
		SchoolID:   schoolID,
		IsActive:   isActive,
		IsApproved: isApproved,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

func (app *testApp) createSchool(t *testing.T, name, code string) school.School {
	t.Helper()
	now := time.Now().UTC()
	sch, err := app.schoolRepo.CreateSchool(context.Background(), school.School{
		Name: name, Code: code, IsActive: true, CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("createSchool() failed: %v", err)
	}
	return sch
}

func (app *testApp) getToken(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := app.provider.IssueToken(auth.Identity{
		SubjectID: usr.SubjectID,
		Email:     usr.Email,
		Name:      usr.Name,
	})
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
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
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
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
