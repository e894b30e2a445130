package approval

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/learnflow/backend/core"
	"github.com/learnflow/backend/core/account"
)

const KindTutorRegister = "TUTOR_REGISTER"

// Decision is an admin's verdict on a tutor application.
type Decision string

const (
	DecisionAccept Decision = "ACCEPT"
	DecisionReject Decision = "REJECT"
)

// DecisionStatus tracks where a notification stands in the approval workflow.
type DecisionStatus string

const (
	StatusPending  DecisionStatus = "PENDING"
	StatusAccepted DecisionStatus = "ACCEPTED"
	StatusRejected DecisionStatus = "REJECTED"
)

var (
	// errors
	ErrNotFound       = errors.New("notification not found")
	ErrAlreadyDecided = errors.New("this application has already been decided")
	ErrBadDecision    = errors.New("decision must be ACCEPT or REJECT")
)

// Notification is the admin-facing record of a tutor registration event.
// One exists per tutor registration; it is mutated exactly once, by Decide.
type Notification struct {
	ID        int            `json:"id"`
	Kind      string         `json:"kind"`
	Message   string         `json:"message"`
	AccountID int            `json:"account_id"`
	IsRead    bool           `json:"is_read"`
	Status    DecisionStatus `json:"status"`
	CreatedAt time.Time      `json:"created_at"` // UTC
}

type (
	Repository interface {
		// CreateIfAbsent inserts the notification unless one already exists for
		// (AccountID, Kind); reports whether a row was created.
		CreateIfAbsent(ctx context.Context, n Notification) (bool, error)
		GetNotification(ctx context.Context, id int) (Notification, error)
		RecentByKind(ctx context.Context, kind string) ([]Notification, error)
		// MarkDecided compare-and-sets the status from PENDING and marks the
		// notification read. A notification no longer PENDING yields ErrAlreadyDecided.
		MarkDecided(ctx context.Context, id int, status DecisionStatus) (Notification, error)
	}

	Service interface {
		RecordRegistration(ctx context.Context, acct account.Account) error
		Backfill(ctx context.Context) (int, error)
		Decide(ctx context.Context, notificationID int, decision Decision) (Notification, error)
		Recent(ctx context.Context) ([]Notification, error)
	}

	service struct {
		repo     Repository
		acctRepo account.Repository
		mailSvc  core.EmailService
		logger   core.Logger
	}
)

var (
	_ Service                  = (*service)(nil)
	_ account.ApprovalRecorder = (*service)(nil)
)

func NewService(repo Repository, acctRepo account.Repository, mailSvc core.EmailService, logger core.Logger) Service {
	return &service{
		repo:     repo,
		acctRepo: acctRepo,
		mailSvc:  mailSvc,
		logger:   logger,
	}
}

// RecordRegistration is idempotent: a tutor gets at most one registration
// notification no matter how often this runs (retries, restart backfills).
func (svc *service) RecordRegistration(ctx context.Context, acct account.Account) error {
	n := Notification{
		Kind:      KindTutorRegister,
		Message:   "New tutor registration: " + acct.FullName(),
		AccountID: acct.ID,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	_, err := svc.repo.CreateIfAbsent(ctx, n)
	return err
}

// Backfill scans for pending tutors missing a notification (e.g. after a restore)
// and records one for each. Returns the number of tutors scanned.
func (svc *service) Backfill(ctx context.Context) (int, error) {
	tutors, err := svc.acctRepo.FilterAccounts(ctx, account.QueryFilter{
		Role:   account.RoleTutor,
		Status: account.StatusPending,
	})
	if err != nil {
		return 0, errors.Wrap(err, "filtering pending tutors")
	}
	for _, tutor := range tutors {
		if err = svc.RecordRegistration(ctx, tutor); err != nil {
			return 0, errors.Wrapf(err, "backfilling notification for tutor %d", tutor.ID)
		}
	}
	return len(tutors), nil
}

func (svc *service) Recent(ctx context.Context) ([]Notification, error) {
	return svc.repo.RecentByKind(ctx, KindTutorRegister)
}

// Decide applies an admin decision. The notification is claimed first (compare-and-set
// from PENDING) so a repeated or concurrent decision cannot transition the account twice
// or double-send email; the account status change then commits before any mail goes out,
// and a mail failure never rolls it back.
func (svc *service) Decide(ctx context.Context, notificationID int, decision Decision) (Notification, error) {
	var nStatus DecisionStatus
	var acctStatus account.Status
	switch decision {
	case DecisionAccept:
		nStatus, acctStatus = StatusAccepted, account.StatusApproved
	case DecisionReject:
		nStatus, acctStatus = StatusRejected, account.StatusRejected
	default:
		return Notification{}, ErrBadDecision
	}

	n, err := svc.repo.GetNotification(ctx, notificationID)
	if err != nil {
		return Notification{}, err
	}
	tutor, err := svc.acctRepo.GetAccountByID(ctx, n.AccountID)
	if err != nil {
		if err == account.ErrNotFound {
			return Notification{}, ErrNotFound
		}
		return Notification{}, errors.Wrap(err, "finding tutor")
	}

	n, err = svc.repo.MarkDecided(ctx, notificationID, nStatus)
	if err != nil {
		return Notification{}, err
	}
	if tutor, err = svc.acctRepo.UpdateStatus(ctx, tutor.ID, acctStatus); err != nil {
		return Notification{}, errors.Wrap(err, "updating tutor status")
	}

	svc.sendDecisionMail(tutor, decision)
	return n, nil
}

func (svc *service) sendDecisionMail(tutor account.Account, decision Decision) {
	var subject, body string
	if decision == DecisionAccept {
		subject = "Your Tutor Application is Approved"
		body = fmt.Sprintf(
			"Hello %s,\n\nYour tutor application has been approved. "+
				"You can now log in and complete your profile.\n\nRegards,\nThe Team",
			tutor.FirstName,
		)
	} else {
		subject = "Your Tutor Application Status"
		body = fmt.Sprintf(
			"Hello %s,\n\nWe are sorry to inform you that your tutor application was rejected. "+
				"For more information, please contact support.\n\nRegards,\nThe Team",
			tutor.FirstName,
		)
	}

	msg := &core.EmailMessage{
		To:      []mail.Address{{Name: tutor.FullName(), Address: tutor.Email}},
		Subject: subject,
		BodyStr: body,
	}
	if err := svc.mailSvc.SendMessage(msg); err != nil {
		// advisory only; the status transition stands
		svc.logger.Error(fmt.Sprintf("sending decision email to %s: %v", tutor.Email, err), err)
	}
}
