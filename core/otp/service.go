package otp

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/learnflow/backend/core"
)

var (
	nowFunc = time.Now // mockable

	// errors
	ErrRateLimited      = errors.New("max OTP attempts exceeded, please try again later")
	ErrNoChallenge      = errors.New("no OTP found for this email")
	ErrChallengeExpired = errors.New("OTP has expired")
	ErrCodeMismatch     = errors.New("invalid OTP")
)

// Challenge is an outstanding email-verification secret. At most one lives per email;
// reissuing overwrites the code and window but keeps the attempt counter.
type Challenge struct {
	Email     string
	Code      string
	IssuedAt  time.Time // UTC
	ExpiresAt time.Time // UTC
	Attempts  int
}

func (c Challenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

type (
	// Repository is the durable challenge store. Implementations must make each
	// method atomic with respect to concurrent calls for the same email.
	Repository interface {
		GetChallenge(ctx context.Context, email string) (Challenge, error)
		// UpsertChallenge creates or overwrites the challenge keyed by email.
		// The attempt counter of an existing row is preserved.
		UpsertChallenge(ctx context.Context, ch Challenge) error
		// IncrementAttempts is a compare-and-increment; it returns the new count.
		IncrementAttempts(ctx context.Context, email string) (int, error)
		// ConsumeChallenge deletes the challenge only if its code still matches,
		// reporting whether a row was consumed. This is the single step that makes
		// verification safe against a concurrent reissue.
		ConsumeChallenge(ctx context.Context, email, code string) (bool, error)
		DeleteChallenge(ctx context.Context, email string) error
	}

	Service interface {
		Issue(ctx context.Context, email string) error
		Verify(ctx context.Context, email, code string) error
	}

	service struct {
		repo    Repository
		mailSvc core.EmailService
		logger  core.Logger
		conf    core.OTPConfig
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, mailSvc core.EmailService, logger core.Logger, conf core.OTPConfig) Service {
	return &service{
		repo:    repo,
		mailSvc: mailSvc,
		logger:  logger,
		conf:    conf,
	}
}

// Issue generates and stores a fresh challenge for email, then delivers the code.
// Delivery is the requested action here, so a mail failure surfaces to the caller;
// the stored challenge stays valid either way.
func (svc *service) Issue(ctx context.Context, email string) error {
	email = core.CleanString(email, true /* lower */)

	existing, err := svc.repo.GetChallenge(ctx, email)
	if err != nil && err != ErrNoChallenge {
		return errors.Wrap(err, "getting challenge")
	}
	if err == nil && existing.Attempts >= svc.conf.MaxAttempts {
		return ErrRateLimited
	}

	code, err := generateCode(svc.conf.CodeLength)
	if err != nil {
		return errors.Wrap(err, "generating code")
	}

	now := nowFunc().UTC()
	ch := Challenge{
		Email:     email,
		Code:      code,
		IssuedAt:  now,
		ExpiresAt: now.Add(svc.conf.ExpiryDelta),
	}
	if err = svc.repo.UpsertChallenge(ctx, ch); err != nil {
		return errors.Wrap(err, "saving challenge")
	}

	svc.logger.Info(fmt.Sprintf("OTP issued for %s", email))
	msg := &core.EmailMessage{
		To:      []mail.Address{{Address: email}},
		Subject: "Email Verification OTP",
		BodyStr: fmt.Sprintf(
			"Your OTP for email verification is: %s\n\n"+
				"This OTP is valid for %d minutes only.\n\nDo not share this OTP with anyone.",
			code, int(svc.conf.ExpiryDelta.Minutes()),
		),
	}
	if err = svc.mailSvc.SendMessage(msg); err != nil {
		return errors.Wrap(err, "sending OTP email")
	}
	return nil
}

// Verify consumes the challenge on a match. It never reports success while the
// record still exists: the delete is keyed on (email, code) so a concurrent reissue
// cannot have its new code accepted by a stale verify.
func (svc *service) Verify(ctx context.Context, email, code string) error {
	email = core.CleanString(email, true /* lower */)

	ch, err := svc.repo.GetChallenge(ctx, email)
	if err != nil {
		return err
	}

	if ch.Expired(nowFunc().UTC()) {
		if err = svc.repo.DeleteChallenge(ctx, email); err != nil {
			return errors.Wrap(err, "deleting expired challenge")
		}
		return ErrChallengeExpired
	}

	if ch.Code != code {
		if _, err = svc.repo.IncrementAttempts(ctx, email); err != nil {
			return errors.Wrap(err, "incrementing attempts")
		}
		return ErrCodeMismatch
	}

	consumed, err := svc.repo.ConsumeChallenge(ctx, email, code)
	if err != nil {
		return errors.Wrap(err, "consuming challenge")
	}
	if !consumed {
		// the challenge was reissued or consumed underneath us
		return ErrCodeMismatch
	}
	return nil
}

// generateCode returns a uniformly random all-numeric string of length n,
// each digit drawn independently.
func generateCode(n int) (string, error) {
	code := make([]byte, n)
	for i := range code {
		d, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		code[i] = byte('0' + d.Int64())
	}
	return string(code), nil
}
