package account

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"
)

type fakeRepo struct {
	mu      sync.Mutex
	table   map[int]*Account
	pkCount int
}

var _ Repository = (*fakeRepo)(nil)

func newFakeRepo() *fakeRepo {
	return &fakeRepo{table: make(map[int]*Account)}
}

func (r *fakeRepo) CheckEmailUniqueness(_ context.Context, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, acct := range r.table {
		if acct.Email == email {
			return ErrEmailExists
		}
	}
	return nil
}

func (r *fakeRepo) CreateAccount(_ context.Context, acct Account) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.table {
		if existing.Email == acct.Email {
			return Account{}, ErrEmailExists
		}
	}
	r.pkCount++
	acct.ID = r.pkCount
	r.table[acct.ID] = &acct
	return acct, nil
}

func (r *fakeRepo) GetAccountByID(_ context.Context, id int) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if acct, ok := r.table[id]; ok {
		return *acct, nil
	}
	return Account{}, ErrNotFound
}

func (r *fakeRepo) GetAccountByEmail(_ context.Context, email string) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, acct := range r.table {
		if acct.Email == email {
			return *acct, nil
		}
	}
	return Account{}, ErrNotFound
}

func (r *fakeRepo) FilterAccounts(_ context.Context, filter QueryFilter) ([]Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var accts []Account
	for _, acct := range r.table {
		if filter.Role != "" && acct.Role != filter.Role {
			continue
		}
		if filter.Status != "" && acct.Status != filter.Status {
			continue
		}
		accts = append(accts, *acct)
	}
	return accts, nil
}

func (r *fakeRepo) UpdateStatus(_ context.Context, id int, status Status) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acct, ok := r.table[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	acct.Status = status
	return *acct, nil
}

func (r *fakeRepo) UpdateLastLogin(_ context.Context, id int, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	acct, ok := r.table[id]
	if !ok {
		return ErrNotFound
	}
	acct.LastLogin = at
	return nil
}

func (r *fakeRepo) UpdatePasswordHash(_ context.Context, id int, hash []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	acct, ok := r.table[id]
	if !ok {
		return ErrNotFound
	}
	acct.PasswordHash = hash
	return nil
}

type recorderApproval struct {
	mu    sync.Mutex
	calls []int // account IDs
}

var _ ApprovalRecorder = (*recorderApproval)(nil)

func (a *recorderApproval) RecordRegistration(_ context.Context, acct Account) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, acct.ID)
	return nil
}

type nopLogger struct{}

func (nopLogger) Enable(bool)                  {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func newTestService() (Service, *fakeRepo, *recorderApproval) {
	repo := newFakeRepo()
	approval := &recorderApproval{}
	return NewService(repo, approval, nopLogger{}), repo, approval
}

func TestService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("student", func(t *testing.T) {
		svc, _, approval := newTestService()

		acct, err := svc.Register(ctx, NewAccount{
			FirstName: "Awe",
			LastName:  "Some",
			Email:     "awe@test.cd",
			Password:  "secret1",
			Role:      RoleStudent,
		})
		if err != nil {
			t.Fatalf("Register() error = %v", err)
		}
		if !acct.Verified {
			t.Error("student should be verified on registration")
		}
		if acct.Status != StatusApproved {
			t.Errorf("status = %s; want APPROVED", acct.Status)
		}
		if err = acct.CheckPassword("secret1"); err != nil {
			t.Errorf("CheckPassword() error = %v", err)
		}
		if bytes.Contains(acct.PasswordHash, []byte("secret1")) {
			t.Error("password stored in clear")
		}
		if len(approval.calls) != 0 {
			t.Errorf("approval recorded for a student: %v", approval.calls)
		}
	})

	t.Run("tutor starts pending", func(t *testing.T) {
		svc, _, approval := newTestService()

		acct, err := svc.Register(ctx, NewAccount{
			FirstName: "Tut",
			LastName:  "Or",
			Email:     "tutor@test.cd",
			Password:  "secret1",
			Expertise: "Maths",
			Role:      RoleTutor,
		})
		if err != nil {
			t.Fatalf("Register() error = %v", err)
		}
		if acct.Status != StatusPending {
			t.Errorf("status = %s; want PENDING", acct.Status)
		}
		if len(approval.calls) != 1 || approval.calls[0] != acct.ID {
			t.Errorf("approval calls = %v; want [%d]", approval.calls, acct.ID)
		}
	})

	t.Run("salted hashes differ", func(t *testing.T) {
		svc, _, _ := newTestService()

		a1, err := svc.Register(ctx, NewAccount{
			FirstName: "A", LastName: "One", Email: "a1@test.cd", Password: "samepwd", Role: RoleStudent,
		})
		if err != nil {
			t.Fatalf("Register() error = %v", err)
		}
		a2, err := svc.Register(ctx, NewAccount{
			FirstName: "A", LastName: "Two", Email: "a2@test.cd", Password: "samepwd", Role: RoleStudent,
		})
		if err != nil {
			t.Fatalf("Register() error = %v", err)
		}
		if bytes.Equal(a1.PasswordHash, a2.PasswordHash) {
			t.Error("two accounts with the same password share a hash")
		}
	})

	t.Run("empty password", func(t *testing.T) {
		svc, _, _ := newTestService()

		_, err := svc.Register(ctx, NewAccount{
			FirstName: "A", LastName: "B", Email: "ab@test.cd", Role: RoleStudent,
		})
		if err != ErrEmptyPassword {
			t.Errorf("Register() error = %v, want ErrEmptyPassword", err)
		}
	})
}

func TestService_Authenticate(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newTestService()

	_, err := svc.Register(ctx, NewAccount{
		FirstName: "Stu", LastName: "Dent", Email: "stu@test.cd", Password: "secret1", Role: RoleStudent,
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	_, err = svc.Register(ctx, NewAccount{
		FirstName: "Tut", LastName: "Or", Email: "tutor@test.cd", Password: "secret1",
		Expertise: "Maths", Role: RoleTutor,
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	rejectedTutor, err := svc.Register(ctx, NewAccount{
		FirstName: "Rej", LastName: "Ect", Email: "rej@test.cd", Password: "secret1",
		Expertise: "Maths", Role: RoleTutor,
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if _, err = repo.UpdateStatus(ctx, rejectedTutor.ID, StatusRejected); err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}

	tests := []struct {
		name    string
		role    Role
		email   string
		pwd     string
		wantErr error
	}{
		{name: "ok", role: RoleStudent, email: "stu@test.cd", pwd: "secret1"},
		{name: "unknown email", role: RoleStudent, email: "nobody@test.cd", pwd: "secret1", wantErr: ErrBadCredentials},
		{name: "wrong password", role: RoleStudent, email: "stu@test.cd", pwd: "nope", wantErr: ErrBadCredentials},
		{name: "wrong portal", role: RoleAdmin, email: "stu@test.cd", pwd: "secret1", wantErr: ErrBadCredentials},
		{name: "pending tutor", role: RoleTutor, email: "tutor@test.cd", pwd: "secret1",
			wantErr: NotApprovedError{Status: StatusPending}},
		{name: "rejected tutor", role: RoleTutor, email: "rej@test.cd", pwd: "secret1",
			wantErr: NotApprovedError{Status: StatusRejected}},
		{name: "uppercase email ok", role: RoleStudent, email: "STU@Test.CD", pwd: "secret1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acct, err := svc.Authenticate(ctx, tt.role, tt.email, tt.pwd)
			if err != tt.wantErr {
				t.Fatalf("Authenticate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && acct.LastLogin.IsZero() {
				t.Error("lastLogin not stamped")
			}
		})
	}

	// approval gate is checked before the password, so a pending tutor with a bad
	// password still learns only the approval status
	if _, err = svc.Authenticate(ctx, RoleTutor, "tutor@test.cd", "nope"); err != (NotApprovedError{Status: StatusPending}) {
		t.Errorf("Authenticate() error = %v, want NotApprovedError", err)
	}
}

func TestService_Authenticate_notVerified(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newTestService()

	acct := Account{
		FirstName: "Un", LastName: "Verified", Email: "unv@test.cd",
		Role: RoleStudent, Verified: false, Status: StatusApproved,
	}
	if err := acct.SetPassword("secret1"); err != nil {
		t.Fatalf("SetPassword() error = %v", err)
	}
	if _, err := repo.CreateAccount(ctx, acct); err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}

	if _, err := svc.Authenticate(ctx, RoleStudent, "unv@test.cd", "secret1"); err != ErrNotVerified {
		t.Errorf("Authenticate() error = %v, want ErrNotVerified", err)
	}
}

func TestService_ChangePassword(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	acct, err := svc.Register(ctx, NewAccount{
		FirstName: "Awe", LastName: "Some", Email: "awe@test.cd", Password: "oldpwd1", Role: RoleStudent,
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if err = svc.ChangePassword(ctx, acct.ID, ChangePassword{
		CurrentPassword: "wrong", NewPassword: "newpwd1",
	}); err != ErrBadCredentials {
		t.Errorf("ChangePassword() error = %v, want ErrBadCredentials", err)
	}

	if err = svc.ChangePassword(ctx, acct.ID, ChangePassword{
		CurrentPassword: "oldpwd1", NewPassword: "newpwd1",
	}); err != nil {
		t.Fatalf("ChangePassword() error = %v", err)
	}

	if _, err = svc.Authenticate(ctx, RoleStudent, "awe@test.cd", "oldpwd1"); err != ErrBadCredentials {
		t.Errorf("old password still accepted; error = %v", err)
	}
	if _, err = svc.Authenticate(ctx, RoleStudent, "awe@test.cd", "newpwd1"); err != nil {
		t.Errorf("new password rejected; error = %v", err)
	}

	if err = svc.ChangePassword(ctx, 999, ChangePassword{
		CurrentPassword: "x", NewPassword: "newpwd1",
	}); err != ErrNotFound {
		t.Errorf("ChangePassword() error = %v, want ErrNotFound", err)
	}
}
