package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/learnflow/backend/core/account"
)

type accountRepository struct {
	db *accountTable
}

var _ account.Repository = (*accountRepository)(nil) // interface compliance check

func NewAccountRepository(db *DB) account.Repository {
	return &accountRepository{db: db.account}
}

func (repo *accountRepository) query() []account.Account {
	accts := make([]account.Account, 0, len(repo.db.table))
	for _, acct := range repo.db.table {
		accts = append(accts, *acct)
	}
	return accts
}

func (repo *accountRepository) CheckEmailUniqueness(ctx context.Context, email string) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, acct := range repo.query() {
		if acct.Email == email {
			return account.ErrEmailExists
		}
	}
	return nil
}

func (repo *accountRepository) CreateAccount(ctx context.Context, acct account.Account) (account.Account, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, existing := range repo.db.table {
		if existing.Email == acct.Email {
			return account.Account{}, account.ErrEmailExists
		}
	}
	repo.db.pkCount++
	acct.ID = repo.db.pkCount
	repo.db.table[acct.ID] = &acct
	return acct, nil
}

func (repo *accountRepository) GetAccountByID(ctx context.Context, id int) (account.Account, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if acct, ok := repo.db.table[id]; ok {
		return *acct, nil
	}
	return account.Account{}, account.ErrNotFound
}

func (repo *accountRepository) GetAccountByEmail(ctx context.Context, email string) (account.Account, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, acct := range repo.query() {
		if acct.Email == email {
			return acct, nil
		}
	}
	return account.Account{}, account.ErrNotFound
}

func (repo *accountRepository) FilterAccounts(ctx context.Context, filter account.QueryFilter) ([]account.Account, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	accts := repo.query()
	if filter.Role != "" {
		var filtered []account.Account
		for _, acct := range accts {
			if acct.Role == filter.Role {
				filtered = append(filtered, acct)
			}
		}
		accts = filtered
	}
	if accts != nil && filter.Status != "" {
		var filtered []account.Account
		for _, acct := range accts {
			if acct.Status == filter.Status {
				filtered = append(filtered, acct)
			}
		}
		accts = filtered
	}
	sort.Slice(accts, func(i, j int) bool { return accts[i].CreatedAt.After(accts[j].CreatedAt) })
	return accts, nil
}

func (repo *accountRepository) UpdateStatus(ctx context.Context, id int, status account.Status) (account.Account, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	acct, ok := repo.db.table[id]
	if !ok {
		return account.Account{}, account.ErrNotFound
	}
	acct.Status = status
	acct.UpdatedAt = time.Now().UTC()
	return *acct, nil
}

func (repo *accountRepository) UpdateLastLogin(ctx context.Context, id int, at time.Time) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	acct, ok := repo.db.table[id]
	if !ok {
		return account.ErrNotFound
	}
	acct.LastLogin = at
	acct.UpdatedAt = at
	return nil
}

func (repo *accountRepository) UpdatePasswordHash(ctx context.Context, id int, hash []byte) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	acct, ok := repo.db.table[id]
	if !ok {
		return account.ErrNotFound
	}
	acct.PasswordHash = hash
	acct.UpdatedAt = time.Now().UTC()
	return nil
}
