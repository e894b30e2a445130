package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/learnflow/backend/core"
	"github.com/learnflow/backend/core/account"
	"github.com/learnflow/backend/core/approval"
	"github.com/learnflow/backend/core/auth"
	"github.com/learnflow/backend/core/otp"
	emailsvc "github.com/learnflow/backend/services/email"
	dummydb "github.com/learnflow/backend/storage/database/dummy"
)

type testLogger struct{}

func (testLogger) Enable(bool)                  {}
func (testLogger) Debug(string, ...interface{}) {}
func (testLogger) Info(string, ...interface{})  {}
func (testLogger) Warn(string, ...interface{})  {}
func (testLogger) Error(string, ...interface{}) {}
func (testLogger) Fatal(string, ...interface{}) {}

type testApp struct {
	server      Server
	conf        *core.Config
	acctRepo    account.Repository
	otpRepo     otp.Repository
	acctSvc     account.Service
	otpSvc      otp.Service
	tokenSvc    auth.TokenService
	approvalSvc approval.Service
}

func newTestConfig() *core.Config {
	return &core.Config{
		TestMode:         true,
		Env:              "TEST",
		AppName:          "LearnFlow",
		SecretKey:        []byte("secret"),
		DefaultFromEmail: mail.Address{Name: "LearnFlow", Address: "noreply@learnflow.com"},
		Server: core.ServerConfig{
			JWTExpirationDelta: 10 * time.Minute,
		},
		OTP: core.OTPConfig{
			CodeLength:  6,
			ExpiryDelta: 5 * time.Minute,
			MaxAttempts: 5,
		},
	}
}

func setup(t *testing.T) *testApp {
	t.Helper()

	conf := newTestConfig()
	logger := testLogger{}
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	emailsvc.ClearSentMessages()

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}
	acctRepo := dummydb.NewAccountRepository(db)
	otpRepo := dummydb.NewOTPRepository(db)

	approvalSvc := approval.NewService(dummydb.NewNotificationRepository(db), acctRepo, mailSvc, logger)
	acctSvc := account.NewService(acctRepo, approvalSvc, logger)
	otpSvc := otp.NewService(otpRepo, mailSvc, logger, conf.OTP)
	tokenSvc := auth.NewTokenService(conf)

	validate := validator.New()
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	core.InitValidators(validate, translator)

	server := NewServer(ServerDeps{
		Conf:        conf,
		Logger:      logger,
		AccountSvc:  acctSvc,
		OTPSvc:      otpSvc,
		TokenSvc:    tokenSvc,
		ApprovalSvc: approvalSvc,
		Validate:    validate,
		Translator:  translator,
	})

	return &testApp{
		server:      server,
		conf:        conf,
		acctRepo:    acctRepo,
		otpRepo:     otpRepo,
		acctSvc:     acctSvc,
		otpSvc:      otpSvc,
		tokenSvc:    tokenSvc,
		approvalSvc: approvalSvc,
	}
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

func (app *testApp) do(req *http.Request, rec *httptest.ResponseRecorder) {
	app.server.ServeHTTP(rec, req)
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj() failed: %v", err)
	}
	return data
}

func decodeObj(t *testing.T, rec *httptest.ResponseRecorder, obj interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), obj); err != nil {
		t.Fatalf("decodeObj() failed: %v; body = %s", err, rec.Body.String())
	}
}

func checkCode(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("code = %d; want %d; body = %s", rec.Code, want, rec.Body.String())
	}
}

func (app *testApp) createStudent(t *testing.T, email, pwd string) account.Account {
	t.Helper()
	acct, err := app.acctSvc.Register(context.Background(), account.NewAccount{
		FirstName: "Stu",
		LastName:  "Dent",
		Email:     email,
		Password:  pwd,
		Role:      account.RoleStudent,
	})
	if err != nil {
		t.Fatalf("createStudent() failed: %v", err)
	}
	return acct
}

func (app *testApp) createTutor(t *testing.T, email, pwd string, approve bool) account.Account {
	t.Helper()
	ctx := context.Background()
	acct, err := app.acctSvc.Register(ctx, account.NewAccount{
		FirstName: "Tut",
		LastName:  "Or",
		Email:     email,
		Password:  pwd,
		Expertise: "Maths",
		Role:      account.RoleTutor,
	})
	if err != nil {
		t.Fatalf("createTutor() failed: %v", err)
	}
	if approve {
		if acct, err = app.acctRepo.UpdateStatus(ctx, acct.ID, account.StatusApproved); err != nil {
			t.Fatalf("createTutor() approve failed: %v", err)
		}
	}
	return acct
}

func (app *testApp) createAdmin(t *testing.T, email, pwd string) account.Account {
	t.Helper()
	acct := account.Account{
		FirstName: "Ad",
		LastName:  "Min",
		Email:     email,
		Role:      account.RoleAdmin,
		Verified:  true,
		Status:    account.StatusApproved,
	}
	if err := acct.SetPassword(pwd); err != nil {
		t.Fatalf("createAdmin() failed: %v", err)
	}
	acct, err := app.acctRepo.CreateAccount(context.Background(), acct)
	if err != nil {
		t.Fatalf("createAdmin() failed: %v", err)
	}
	return acct
}

func (app *testApp) getToken(t *testing.T, acct account.Account) string {
	t.Helper()
	token, err := app.tokenSvc.Issue(acct.ID, acct.Role)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}
