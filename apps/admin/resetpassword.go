package main

import (
	"context"

	"github.com/learnflow/backend/core"
)

func (cli *commandLine) resetPassword(email, pwd string) error {
	ctx := context.Background()
	acct, err := cli.acctRepo.GetAccountByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		return err
	}
	if err = acct.SetPassword(pwd); err != nil {
		return err
	}
	return cli.acctRepo.UpdatePasswordHash(ctx, acct.ID, acct.PasswordHash)
}
