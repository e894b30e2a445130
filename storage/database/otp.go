package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/learnflow/backend/core/otp"
)

type challengeRow struct {
	Email     string    `db:"email"`
	Code      string    `db:"code"`
	IssuedAt  time.Time `db:"issued_at"`
	ExpiresAt time.Time `db:"expires_at"`
	Attempts  int       `db:"attempts"`
}

// otpRepository stores OTP challenges keyed by email. Every mutation is a single
// statement so concurrent issue/verify calls for the same email serialize on the row.
type otpRepository struct {
	db *sqlx.DB
}

var _ otp.Repository = (*otpRepository)(nil)

func NewOTPRepository(db *sqlx.DB) otp.Repository {
	return &otpRepository{db: db}
}

func (repo *otpRepository) GetChallenge(ctx context.Context, email string) (otp.Challenge, error) {
	var row challengeRow
	err := repo.db.GetContext(ctx, &row,
		`SELECT email, code, issued_at, expires_at, attempts FROM otp_challenges WHERE email = $1`, email)
	if err != nil {
		if err == sql.ErrNoRows {
			return otp.Challenge{}, otp.ErrNoChallenge
		}
		return otp.Challenge{}, err
	}
	return otp.Challenge(row), nil
}

func (repo *otpRepository) UpsertChallenge(ctx context.Context, ch otp.Challenge) error {
	// attempts is deliberately left out of the update: reissuing a code must not
	// grant a fresh attempt budget
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO otp_challenges (email, code, issued_at, expires_at, attempts)
		VALUES ($1, $2, $3, $4, 0)
		ON CONFLICT (email)
		DO UPDATE SET code = EXCLUDED.code, issued_at = EXCLUDED.issued_at, expires_at = EXCLUDED.expires_at`,
		ch.Email, ch.Code, ch.IssuedAt, ch.ExpiresAt,
	)
	return err
}

func (repo *otpRepository) IncrementAttempts(ctx context.Context, email string) (int, error) {
	var attempts int
	err := repo.db.GetContext(ctx, &attempts,
		`UPDATE otp_challenges SET attempts = attempts + 1 WHERE email = $1 RETURNING attempts`, email)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, otp.ErrNoChallenge
		}
		return 0, err
	}
	return attempts, nil
}

func (repo *otpRepository) ConsumeChallenge(ctx context.Context, email, code string) (bool, error) {
	res, err := repo.db.ExecContext(ctx,
		`DELETE FROM otp_challenges WHERE email = $1 AND code = $2`, email, code)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (repo *otpRepository) DeleteChallenge(ctx context.Context, email string) error {
	_, err := repo.db.ExecContext(ctx, `DELETE FROM otp_challenges WHERE email = $1`, email)
	return err
}
