package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/term"

	"cyberwise/portal/internal/app"
	"cyberwise/portal/internal/config"
	"cyberwise/portal/internal/log"
	"cyberwise/portal/internal/security"
	"cyberwise/portal/internal/service"
	"cyberwise/portal/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := log.New(cfg.Environment, "portalctl")
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cli := &commandLine{
		out:          os.Stdout,
		readPassword: func() ([]byte, error) { return term.ReadPassword(int(syscall.Stdin)) },
		migrate: func(ctx context.Context) error {
			pool, err := app.OpenPostgres(ctx, cfg.Postgres, logger)
			if err != nil {
				return err
			}
			pool.Close()
			return nil
		},
		accounts: func(ctx context.Context) (*service.AccountService, func(), error) {
			return openAccounts(ctx, cfg, logger)
		},
	}

	if err := cli.run(ctx, os.Args); err != nil {
		if !errors.Is(err, errHelp) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

func openAccounts(ctx context.Context, cfg *config.AppConfig, logger zerolog.Logger) (*service.AccountService, func(), error) {
	store, err := app.OpenStore(ctx, cfg.Store, cfg.Postgres, logger)
	if err != nil {
		return nil, nil, err
	}
	hasher, err := security.NewPasswordHasher(cfg.Admission.BcryptCost)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	// No sessions exist for a freshly created admin.
	accounts := service.NewAccountService(store, session.NewMemoryStore(), hasher, nil, cfg.Admission, logger)
	return accounts, store.Close, nil
}
