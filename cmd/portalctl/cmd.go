package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"cyberwise/portal/internal/service"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	out          io.Writer
	readPassword func() ([]byte, error)
	migrate      func(ctx context.Context) error
	accounts     func(ctx context.Context) (*service.AccountService, func(), error)
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate                                       - apply pending database migrations")
	fmt.Fprintln(cli.out, "  create-admin -number NUMBER -email EMAIL [-name NAME] - create an admin account; the password is prompted")
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	switch args[1] {
	case "migrate":
		if err := cli.migrate(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cli.out, "migrations up to date")
		return nil

	case "create-admin":
		createAdminCmd := flag.NewFlagSet("create-admin", flag.ContinueOnError)
		createAdminCmd.SetOutput(cli.out)
		number := createAdminCmd.String("number", "", "Admission number the admin logs in with.")
		email := createAdminCmd.String("email", "", "Admin email address.")
		name := createAdminCmd.String("name", "Cyberwise Administrator", "Admin full name.")
		if err := createAdminCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *number == "" || *email == "" {
			createAdminCmd.Usage()
			return errHelp
		}

		fmt.Fprint(cli.out, "Enter password:")
		pwd, err := cli.readPassword()
		fmt.Fprintln(cli.out)
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			createAdminCmd.Usage()
			return errHelp
		}
		return cli.createAdmin(ctx, service.AdminAccount{
			AdmissionNumber: *number,
			FullName:        *name,
			Email:           *email,
			Password:        string(pwd),
		})

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) createAdmin(ctx context.Context, admin service.AdminAccount) error {
	accounts, closeFn, err := cli.accounts(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	created, err := accounts.EnsureAdmin(ctx, admin)
	if err != nil {
		return err
	}
	if created {
		fmt.Fprintf(cli.out, "admin %s created\n", admin.AdmissionNumber)
	} else {
		fmt.Fprintf(cli.out, "admin %s already exists\n", admin.AdmissionNumber)
	}
	return nil
}
