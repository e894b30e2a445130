package account

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/learnflow/backend/core"
)

var (
	// errors
	ErrNotFound       = errors.New("account not found")
	ErrEmailExists    = errors.New("an account with this email already exists")
	ErrBadCredentials = errors.New("invalid email or password")
	ErrNotVerified    = errors.New("email not verified")
	ErrEmptyPassword  = errors.New("password must not be empty")
)

// NotApprovedError denies login for a tutor whose application is not (or no longer) approved.
type NotApprovedError struct {
	Status Status
}

func (e NotApprovedError) Error() string {
	return "your account is " + strings.ToLower(string(e.Status)) + " and not yet approved for login"
}

type (
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string) error
		CreateAccount(ctx context.Context, acct Account) (Account, error)
		GetAccountByID(ctx context.Context, id int) (Account, error)
		GetAccountByEmail(ctx context.Context, email string) (Account, error)
		// FilterAccounts applies AND operation on available QueryFilter fields.
		FilterAccounts(ctx context.Context, filter QueryFilter) ([]Account, error)
		UpdateStatus(ctx context.Context, id int, status Status) (Account, error)
		UpdateLastLogin(ctx context.Context, id int, at time.Time) error
		UpdatePasswordHash(ctx context.Context, id int, hash []byte) error
	}

	// ApprovalRecorder records that a tutor registration awaits an admin decision.
	// Implemented by the approval workflow; account registration only depends on
	// this one capability.
	ApprovalRecorder interface {
		RecordRegistration(ctx context.Context, acct Account) error
	}

	Service interface {
		Register(ctx context.Context, na NewAccount) (Account, error)
		GetByID(ctx context.Context, id int) (Account, error)
		GetByEmail(ctx context.Context, email string) (Account, error)
		Filter(ctx context.Context, filter QueryFilter) ([]Account, error)
		Authenticate(ctx context.Context, role Role, email, pwd string) (Account, error)
		ChangePassword(ctx context.Context, id int, cp ChangePassword) error
		CheckEmailUniqueness(email string) error
	}

	service struct {
		repo     Repository
		approval ApprovalRecorder
		logger   core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, approval ApprovalRecorder, logger core.Logger) Service {
	return &service{
		repo:     repo,
		approval: approval,
		logger:   logger,
	}
}

func (svc *service) CheckEmailUniqueness(email string) error {
	if err := svc.repo.CheckEmailUniqueness(context.Background(), email); err != nil {
		if err == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

// Register persists a verified account. The OTP verification step precedes it on the
// registration path; tutors start PENDING and get exactly one approval notification.
func (svc *service) Register(ctx context.Context, na NewAccount) (Account, error) {
	now := time.Now().UTC()
	acct := Account{
		FirstName:     na.FirstName,
		LastName:      na.LastName,
		Email:         na.Email,
		PhoneNumber:   na.PhoneNumber,
		Role:          na.Role,
		Verified:      true,
		Status:        StatusApproved,
		Expertise:     na.Expertise,
		Bio:           na.Bio,
		Qualification: na.Qualification,
		Experience:    na.Experience,
		HourlyRate:    na.HourlyRate,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if acct.Role == RoleTutor {
		acct.Status = StatusPending
	}
	if err := acct.SetPassword(na.Password); err != nil {
		return Account{}, err
	}

	acct, err := svc.repo.CreateAccount(ctx, acct)
	if err != nil {
		return Account{}, err
	}

	if acct.IsTutor() {
		if err = svc.approval.RecordRegistration(ctx, acct); err != nil {
			return Account{}, errors.Wrap(err, "recording tutor registration")
		}
	}
	return acct, nil
}

func (svc *service) GetByID(ctx context.Context, id int) (Account, error) {
	return svc.repo.GetAccountByID(ctx, id)
}

func (svc *service) GetByEmail(ctx context.Context, email string) (Account, error) {
	return svc.repo.GetAccountByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *service) Filter(ctx context.Context, filter QueryFilter) ([]Account, error) {
	return svc.repo.FilterAccounts(ctx, filter)
}

// Authenticate checks the credential and the login gates in the order the platform
// presents them: unknown email and bad password are indistinguishable; verification
// and approval failures assume a known account and say so.
func (svc *service) Authenticate(ctx context.Context, role Role, email, pwd string) (Account, error) {
	acct, err := svc.GetByEmail(ctx, email)
	if err != nil {
		if err == ErrNotFound {
			return Account{}, ErrBadCredentials
		}
		return Account{}, errors.Wrap(err, "finding account by email")
	}
	if acct.Role != role {
		return Account{}, ErrBadCredentials
	}
	if !acct.Verified {
		return Account{}, ErrNotVerified
	}
	if acct.IsTutor() && acct.Status != StatusApproved {
		return Account{}, NotApprovedError{Status: acct.Status}
	}
	if err = acct.CheckPassword(pwd); err != nil {
		return Account{}, ErrBadCredentials
	}

	now := time.Now().UTC()
	if err = svc.repo.UpdateLastLogin(ctx, acct.ID, now); err != nil {
		return Account{}, errors.Wrap(err, "setting lastLogin")
	}
	acct.LastLogin = now
	return acct, nil
}

func (svc *service) ChangePassword(ctx context.Context, id int, cp ChangePassword) error {
	acct, err := svc.repo.GetAccountByID(ctx, id)
	if err != nil {
		return err
	}
	if err = acct.CheckPassword(cp.CurrentPassword); err != nil {
		return ErrBadCredentials
	}
	if err = acct.SetPassword(cp.NewPassword); err != nil {
		return err
	}
	return svc.repo.UpdatePasswordHash(ctx, acct.ID, acct.PasswordHash)
}
