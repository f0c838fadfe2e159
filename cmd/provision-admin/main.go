// Command provision-admin creates an admin account, or promotes an existing
// account to admin. It is the only way to obtain the admin role.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/smartplate/smartplate/internal/config"
	"github.com/smartplate/smartplate/internal/database"
	"github.com/smartplate/smartplate/internal/model"
	"github.com/smartplate/smartplate/internal/repository"
	"github.com/smartplate/smartplate/internal/utils"
)

// adminStore is the part of the users repository provisioning needs.
type adminStore interface {
	GetByEmail(ctx context.Context, email string) (model.User, error)
	Create(ctx context.Context, u model.User) error
	PromoteToAdmin(ctx context.Context, email string) error
}

type options struct {
	email    string
	name     string
	password string
	promote  bool
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	opts, err := parseFlags(args, os.Getenv)
	if errors.Is(err, pflag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}

	cfg := config.Load()
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if cfg.Migrate {
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
	}
	hasher := utils.NewPasswordHasher(cfg.BcryptCost, 1)
	return provision(ctx, repository.NewUserRepo(db), hasher, opts, out)
}

func parseFlags(args []string, getenv func(string) string) (options, error) {
	var opts options
	fs := pflag.NewFlagSet("provision-admin", pflag.ContinueOnError)
	fs.StringVarP(&opts.email, "email", "e", "", "admin email (required)")
	fs.StringVarP(&opts.name, "name", "n", "Administrator", "display name for a new account")
	fs.StringVar(&opts.password, "password", "", "password for a new account (default $ADMIN_PASSWORD)")
	fs.BoolVar(&opts.promote, "promote", false, "promote an existing account instead of creating one")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}

	opts.email = strings.TrimSpace(opts.email)
	if opts.email == "" {
		return options{}, errors.New("--email is required")
	}
	if opts.password == "" {
		opts.password = getenv("ADMIN_PASSWORD")
	}
	if !opts.promote && opts.password == "" {
		return options{}, errors.New("--password or ADMIN_PASSWORD is required when creating an admin")
	}
	return opts, nil
}

type passwordHasher interface {
	Hash(ctx context.Context, plain string) (string, error)
}

func provision(ctx context.Context, users adminStore, hasher passwordHasher, opts options, out io.Writer) error {
	if opts.promote {
		if err := users.PromoteToAdmin(ctx, opts.email); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("no account with email %s", opts.email)
			}
			return err
		}
		fmt.Fprintf(out, "promoted %s to admin\n", opts.email)
		return nil
	}

	if _, err := users.GetByEmail(ctx, opts.email); err == nil {
		return fmt.Errorf("account %s already exists; use --promote", opts.email)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	hash, err := hasher.Hash(ctx, opts.password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u := model.User{
		ID:           uuid.NewString(),
		Email:        opts.email,
		Name:         opts.name,
		PasswordHash: hash,
		Role:         model.RoleAdmin,
		IsVerified:   true,
		CreatedAt:    time.Now().UTC(),
	}
	if err := users.Create(ctx, u); err != nil {
		return err
	}
	fmt.Fprintf(out, "created admin %s (%s)\n", u.Email, u.ID)
	return nil
}
