package database

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/learnflow/backend/core/account"
)

type accountRow struct {
	ID            int       `db:"id"`
	FirstName     string    `db:"first_name"`
	LastName      string    `db:"last_name"`
	Email         string    `db:"email"`
	PasswordHash  []byte    `db:"password_hash"`
	PhoneNumber   string    `db:"phone_number"`
	Role          string    `db:"role"`
	Verified      bool      `db:"verified"`
	Status        string    `db:"status"`
	Expertise     string    `db:"expertise"`
	Bio           string    `db:"bio"`
	Qualification string    `db:"qualification"`
	Experience    string    `db:"experience"`
	HourlyRate    string    `db:"hourly_rate"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
	LastLogin     time.Time `db:"last_login"`
}

func (r accountRow) toAccount() account.Account {
	return account.Account{
		ID:            r.ID,
		FirstName:     r.FirstName,
		LastName:      r.LastName,
		Email:         r.Email,
		PasswordHash:  r.PasswordHash,
		PhoneNumber:   r.PhoneNumber,
		Role:          account.Role(r.Role),
		Verified:      r.Verified,
		Status:        account.Status(r.Status),
		Expertise:     r.Expertise,
		Bio:           r.Bio,
		Qualification: r.Qualification,
		Experience:    r.Experience,
		HourlyRate:    r.HourlyRate,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
		LastLogin:     r.LastLogin,
	}
}

const accountColumns = `id, first_name, last_name, email, password_hash, phone_number, role,
verified, status, expertise, bio, qualification, experience, hourly_rate,
created_at, updated_at, last_login`

type accountRepository struct {
	db *sqlx.DB
}

var _ account.Repository = (*accountRepository)(nil)

func NewAccountRepository(db *sqlx.DB) account.Repository {
	return &accountRepository{db: db}
}

func (repo *accountRepository) CheckEmailUniqueness(ctx context.Context, email string) error {
	var exists bool
	err := repo.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM accounts WHERE email = $1)`, email)
	if err != nil {
		return err
	}
	if exists {
		return account.ErrEmailExists
	}
	return nil
}

func (repo *accountRepository) CreateAccount(ctx context.Context, acct account.Account) (account.Account, error) {
	err := repo.db.QueryRowxContext(ctx, `
		INSERT INTO accounts (first_name, last_name, email, password_hash, phone_number, role,
			verified, status, expertise, bio, qualification, experience, hourly_rate,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id`,
		acct.FirstName, acct.LastName, acct.Email, acct.PasswordHash, acct.PhoneNumber, acct.Role,
		acct.Verified, acct.Status, acct.Expertise, acct.Bio, acct.Qualification, acct.Experience,
		acct.HourlyRate, acct.CreatedAt, acct.UpdatedAt,
	).Scan(&acct.ID)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return account.Account{}, account.ErrEmailExists
		}
		return account.Account{}, err
	}
	return acct, nil
}

func (repo *accountRepository) GetAccountByID(ctx context.Context, id int) (account.Account, error) {
	var row accountRow
	err := repo.db.GetContext(ctx, &row, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return account.Account{}, account.ErrNotFound
		}
		return account.Account{}, err
	}
	return row.toAccount(), nil
}

func (repo *accountRepository) GetAccountByEmail(ctx context.Context, email string) (account.Account, error) {
	var row accountRow
	err := repo.db.GetContext(ctx, &row, `SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email)
	if err != nil {
		if err == sql.ErrNoRows {
			return account.Account{}, account.ErrNotFound
		}
		return account.Account{}, err
	}
	return row.toAccount(), nil
}

func (repo *accountRepository) FilterAccounts(ctx context.Context, filter account.QueryFilter) ([]account.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE 1=1`
	var args []interface{}
	if filter.Role != "" {
		args = append(args, filter.Role)
		query += ` AND role = $1`
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += ` AND status = $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY created_at DESC`

	var rows []accountRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	accts := make([]account.Account, 0, len(rows))
	for _, row := range rows {
		accts = append(accts, row.toAccount())
	}
	return accts, nil
}

func (repo *accountRepository) UpdateStatus(ctx context.Context, id int, status account.Status) (account.Account, error) {
	var row accountRow
	err := repo.db.GetContext(ctx, &row, `
		UPDATE accounts SET status = $2, updated_at = $3 WHERE id = $1
		RETURNING `+accountColumns,
		id, status, time.Now().UTC(),
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return account.Account{}, account.ErrNotFound
		}
		return account.Account{}, err
	}
	return row.toAccount(), nil
}

func (repo *accountRepository) UpdateLastLogin(ctx context.Context, id int, at time.Time) error {
	res, err := repo.db.ExecContext(ctx,
		`UPDATE accounts SET last_login = $2, updated_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

func (repo *accountRepository) UpdatePasswordHash(ctx context.Context, id int, hash []byte) error {
	res, err := repo.db.ExecContext(ctx,
		`UPDATE accounts SET password_hash = $2, updated_at = $3 WHERE id = $1`, id, hash, time.Now().UTC())
	if err != nil {
		return err
	}
	return checkAffected(res)
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return account.ErrNotFound
	}
	return nil
}
