package dummydb

import (
	"context"

	"github.com/learnflow/backend/core/otp"
)

type otpRepository struct {
	db *otpTable
}

var _ otp.Repository = (*otpRepository)(nil) // interface compliance check

func NewOTPRepository(db *DB) otp.Repository {
	return &otpRepository{db: db.otp}
}

func (repo *otpRepository) GetChallenge(ctx context.Context, email string) (otp.Challenge, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if ch, ok := repo.db.table[email]; ok {
		return *ch, nil
	}
	return otp.Challenge{}, otp.ErrNoChallenge
}

func (repo *otpRepository) UpsertChallenge(ctx context.Context, ch otp.Challenge) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	// a reissue keeps the attempt count of the challenge it replaces
	if existing, ok := repo.db.table[ch.Email]; ok {
		ch.Attempts = existing.Attempts
	} else {
		ch.Attempts = 0
	}
	repo.db.table[ch.Email] = &ch
	return nil
}

func (repo *otpRepository) IncrementAttempts(ctx context.Context, email string) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	ch, ok := repo.db.table[email]
	if !ok {
		return 0, otp.ErrNoChallenge
	}
	ch.Attempts++
	return ch.Attempts, nil
}

func (repo *otpRepository) ConsumeChallenge(ctx context.Context, email, code string) (bool, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	ch, ok := repo.db.table[email]
	if !ok || ch.Code != code {
		return false, nil
	}
	delete(repo.db.table, email)
	return true, nil
}

func (repo *otpRepository) DeleteChallenge(ctx context.Context, email string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	delete(repo.db.table, email)
	return nil
}
