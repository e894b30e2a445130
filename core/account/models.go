package account

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/learnflow/backend/core"
)

// Roles
type Role string

const (
	RoleStudent Role = "STUDENT"
	RoleTutor   Role = "TUTOR"
	RoleAdmin   Role = "ADMIN"
)

// Approval statuses. Students and admins are APPROVED from creation;
// tutors start PENDING and move exactly once on an admin decision.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

type Account struct {
	ID           int    `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Email        string `json:"email"`
	PasswordHash []byte `json:"-"`
	PhoneNumber  string `json:"phone_number,omitempty"`
	Role         Role   `json:"role"`
	Verified     bool   `json:"verified"`
	Status       Status `json:"status"`

	// tutor profile
	Expertise     string `json:"expertise,omitempty"`
	Bio           string `json:"bio,omitempty"`
	Qualification string `json:"qualification,omitempty"`
	Experience    string `json:"experience,omitempty"`
	HourlyRate    string `json:"hourly_rate,omitempty"`

	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
	LastLogin time.Time `json:"last_login"` // UTC
}

func (a *Account) SetPassword(pwd string) error {
	if pwd == "" {
		return ErrEmptyPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	a.PasswordHash = hash
	return nil
}

func (a *Account) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(a.PasswordHash, []byte(pwd))
}

func (a Account) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

func (a Account) IsStudent() bool { return a.Role == RoleStudent }
func (a Account) IsTutor() bool   { return a.Role == RoleTutor }
func (a Account) IsAdmin() bool   { return a.Role == RoleAdmin }

// NewAccount contains information needed to register a new Account.
// Role is set by the caller (registration endpoint), never bound from the payload.
type NewAccount struct {
	FirstName   string `json:"first_name" validate:"required"`
	LastName    string `json:"last_name" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=6"`
	PhoneNumber string `json:"phone_number" validate:"omitempty,min=6"`

	// tutor-only fields
	Expertise     string `json:"expertise"`
	Bio           string `json:"bio"`
	Qualification string `json:"qualification"`
	Experience    string `json:"experience"`
	HourlyRate    string `json:"hourly_rate"`

	Role Role `json:"-"`
}

func (na *NewAccount) Validate(validate *validator.Validate, svc Service) error {
	na.FirstName = core.CleanString(na.FirstName)
	na.LastName = core.CleanString(na.LastName)
	na.Email = core.CleanString(na.Email, true /* lower */)

	if err := validate.Struct(na); err != nil {
		return err
	}
	if na.Role == RoleTutor && core.CleanString(na.Expertise) == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "expertise", Error: "this field is required"})
	}
	return svc.CheckEmailUniqueness(na.Email)
}

// ChangePassword replaces the account's credential after re-verifying the current one.
type ChangePassword struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6"`
}

func (cp ChangePassword) Validate(validate *validator.Validate) error {
	return validate.Struct(cp)
}

type QueryFilter struct {
	Role   Role   `query:"role"`
	Status Status `query:"status"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Role == "" && qf.Status == ""
}
