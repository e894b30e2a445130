package main

import (
	"errors"
	"flag"
	"fmt"
	"syscall"

	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/learnflow/backend/core"
	"github.com/learnflow/backend/core/account"
	"github.com/learnflow/backend/core/approval"
	"github.com/learnflow/backend/storage/database"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db          *sqlx.DB
	acctRepo    account.Repository
	approvalSvc approval.Service
}

func newCommandLine(db *sqlx.DB, logger core.Logger, mailSvc core.EmailService) *commandLine {
	acctRepo := database.NewAccountRepository(db)
	return &commandLine{
		db:          db,
		acctRepo:    acctRepo,
		approvalSvc: approval.NewService(database.NewNotificationRepository(db), acctRepo, mailSvc, logger),
	}
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate - apply pending database migrations")
	fmt.Println("  addadmin -email EMAIL - create an admin account; the password will be prompted")
	fmt.Println("  resetpassword -email EMAIL - reset an account's password; the password will be prompted")
	fmt.Println("  backfill-notifications - record missing tutor registration notifications")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addAdminCmd := flag.NewFlagSet("addadmin", flag.ExitOnError)
	addAdminEmail := addAdminCmd.String("email", "", "The admin's email. The password will be prompted next.")
	addAdminFirst := addAdminCmd.String("first", "Admin", "The admin's first name.")
	addAdminLast := addAdminCmd.String("last", "", "The admin's last name.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ExitOnError)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The account's email. The password will be prompted next.")

	switch args[1] {
	case "migrate":
		return cli.migrate()
	case "addadmin":
		if err := addAdminCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addAdminEmail == "" {
			addAdminCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addAdminCmd.Usage()
			return errHelp
		}
		return cli.addAdmin(*addAdminEmail, *addAdminFirst, *addAdminLast, pwd)
	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordEmail, pwd)
	case "backfill-notifications":
		return cli.backfillNotifications()
	default:
		cli.printUsage()
		return errHelp
	}
}

func promptPassword() (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(syscall.Stdin)
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}
