package main

import (
	"context"
	"time"

	"github.com/learnflow/backend/core"
	"github.com/learnflow/backend/core/account"
)

// addAdmin creates a verified, approved admin account. If the email already
// belongs to an admin, its password is reset instead.
func (cli *commandLine) addAdmin(email, firstName, lastName, pwd string) error {
	ctx := context.Background()
	email = core.CleanString(email, true /* lower */)

	acct, err := cli.acctRepo.GetAccountByEmail(ctx, email)
	if err == nil {
		if !acct.IsAdmin() {
			return account.ErrEmailExists
		}
		if err = acct.SetPassword(pwd); err != nil {
			return err
		}
		return cli.acctRepo.UpdatePasswordHash(ctx, acct.ID, acct.PasswordHash)
	}
	if err != account.ErrNotFound {
		return err
	}

	now := time.Now().UTC()
	acct = account.Account{
		FirstName: core.CleanString(firstName),
		LastName:  core.CleanString(lastName),
		Email:     email,
		Role:      account.RoleAdmin,
		Verified:  true,
		Status:    account.StatusApproved,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err = acct.SetPassword(pwd); err != nil {
		return err
	}
	_, err = cli.acctRepo.CreateAccount(ctx, acct)
	return err
}
