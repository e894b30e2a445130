package echoapi

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/learnflow/backend/core/account"
	"github.com/learnflow/backend/core/approval"
	emailsvc "github.com/learnflow/backend/services/email"
)

func Test_adminApi_accessControl(t *testing.T) {
	app := setup(t)
	stuToken := app.getToken(t, app.createStudent(t, "stu@test.cd", "secret1"))
	adminToken := app.getToken(t, app.createAdmin(t, "admin@test.cd", "secret1"))

	tests := []struct {
		name     string
		token    string
		wantCode int
	}{
		{name: "no token", token: "", wantCode: http.StatusUnauthorized},
		{name: "student token", token: stuToken, wantCode: http.StatusForbidden},
		{name: "admin token", token: adminToken, wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/v1/admin/notifications", tt.token)
			app.do(req, rec)
			checkCode(t, rec, tt.wantCode)
		})
	}
}

func Test_adminApi_approvalFlow(t *testing.T) {
	app := setup(t)
	adminToken := app.getToken(t, app.createAdmin(t, "admin@test.cd", "secret1"))
	tutor := app.createTutor(t, "tutor@test.cd", "secret1", false)

	// the registration shows up for review
	req, rec := newAuthRequest(http.MethodGet, "/v1/admin/notifications", adminToken)
	app.do(req, rec)
	checkCode(t, rec, http.StatusOK)

	var ns []approval.Notification
	decodeObj(t, rec, &ns)
	if len(ns) != 1 {
		t.Fatalf("got %d notifications; want 1", len(ns))
	}
	assert.Equal(t, tutor.ID, ns[0].AccountID)
	assert.Equal(t, approval.StatusPending, ns[0].Status)

	// tutor cannot log in yet
	req, rec = newRequest(http.MethodPost, "/v1/tutors/login",
		marshallObj(t, LoginRequest{Email: "tutor@test.cd", Password: "secret1"}))
	app.do(req, rec)
	checkCode(t, rec, http.StatusForbidden)

	emailsvc.ClearSentMessages()

	// approve
	req, rec = newAuthRequest(http.MethodPost, fmt.Sprintf("/v1/admin/notifications/%d/decide", ns[0].ID),
		adminToken, marshallObj(t, DecideRequest{Decision: approval.DecisionAccept}))
	app.do(req, rec)
	checkCode(t, rec, http.StatusOK)

	var decided approval.Notification
	decodeObj(t, rec, &decided)
	assert.Equal(t, approval.StatusAccepted, decided.Status)
	assert.True(t, decided.IsRead)

	// tutor was told
	sent := emailsvc.GetSentMessages()
	if len(sent) != 1 {
		t.Fatalf("sent %d emails; want 1", len(sent))
	}
	assert.Equal(t, "tutor@test.cd", sent[0].To[0].Address)

	// and can now log in
	req, rec = newRequest(http.MethodPost, "/v1/tutors/login",
		marshallObj(t, LoginRequest{Email: "tutor@test.cd", Password: "secret1"}))
	app.do(req, rec)
	checkCode(t, rec, http.StatusOK)

	// a second decision is refused and sends nothing
	req, rec = newAuthRequest(http.MethodPost, fmt.Sprintf("/v1/admin/notifications/%d/decide", ns[0].ID),
		adminToken, marshallObj(t, DecideRequest{Decision: approval.DecisionReject}))
	app.do(req, rec)
	checkCode(t, rec, http.StatusConflict)
	if sent := emailsvc.GetSentMessages(); len(sent) != 1 {
		t.Errorf("sent %d emails; want 1", len(sent))
	}
}

func Test_adminApi_decide_badRequests(t *testing.T) {
	app := setup(t)
	adminToken := app.getToken(t, app.createAdmin(t, "admin@test.cd", "secret1"))
	app.createTutor(t, "tutor@test.cd", "secret1", false)

	tests := []struct {
		name     string
		path     string
		body     interface{}
		wantCode int
	}{
		{name: "unknown notification", path: "/v1/admin/notifications/999/decide",
			body: DecideRequest{Decision: approval.DecisionAccept}, wantCode: http.StatusNotFound},
		{name: "non-numeric id", path: "/v1/admin/notifications/lol/decide",
			body: DecideRequest{Decision: approval.DecisionAccept}, wantCode: http.StatusNotFound},
		{name: "missing decision", path: "/v1/admin/notifications/1/decide",
			body: DecideRequest{}, wantCode: http.StatusBadRequest},
		{name: "unknown decision", path: "/v1/admin/notifications/1/decide",
			body: DecideRequest{Decision: approval.Decision("MAYBE")}, wantCode: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, tt.path, adminToken, marshallObj(t, tt.body))
			app.do(req, rec)
			checkCode(t, rec, tt.wantCode)
		})
	}
}

func Test_adminApi_queryTutors(t *testing.T) {
	app := setup(t)
	adminToken := app.getToken(t, app.createAdmin(t, "admin@test.cd", "secret1"))
	app.createStudent(t, "stu@test.cd", "secret1")
	pending := app.createTutor(t, "pending@test.cd", "secret1", false)
	app.createTutor(t, "approved@test.cd", "secret1", true)

	t.Run("all tutors", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/admin/tutors", adminToken)
		app.do(req, rec)
		checkCode(t, rec, http.StatusOK)

		var tutors []account.Account
		decodeObj(t, rec, &tutors)
		if len(tutors) != 2 {
			t.Fatalf("got %d tutors; want 2", len(tutors))
		}
		for _, tut := range tutors {
			assert.Equal(t, account.RoleTutor, tut.Role)
		}
	})

	t.Run("pending only", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/admin/tutors?status=PENDING", adminToken)
		app.do(req, rec)
		checkCode(t, rec, http.StatusOK)

		var tutors []account.Account
		decodeObj(t, rec, &tutors)
		if len(tutors) != 1 {
			t.Fatalf("got %d tutors; want 1", len(tutors))
		}
		assert.Equal(t, pending.ID, tutors[0].ID)
	})
}
