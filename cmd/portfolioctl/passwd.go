package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/subcommands"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/repository"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/service"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/validation"
)

type passwdCmd struct {
	username string
}

func (*passwdCmd) Name() string     { return "passwd" }
func (*passwdCmd) Synopsis() string { return "create the user or change its password" }
func (*passwdCmd) Usage() string {
	return `portfolioctl [-db <path>] passwd [-u <username>] < password.txt

  Reads the new password from the first line of standard input. The user is
  created when it does not exist yet.
`
}

func (p *passwdCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.username, "u", "admin", "Name of the user to create or update.")
}

func (p *passwdCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	password, err := readPassword(os.Stdin)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	db, err := openDatabase(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer db.Close()

	// The session key is irrelevant for changing passwords.
	authService := service.NewAuthService(
		repository.NewUserRepository(db),
		repository.NewSessionRepository(db),
		nil,
		cfg.Session.TTL,
	)

	created, err := authService.SetPassword(ctx, p.username, password)
	if err != nil {
		var vErr *validation.Error
		if errors.As(err, &vErr) {
			for field, msg := range vErr.Fields {
				fmt.Fprintf(os.Stderr, "%s: %s\n", field, msg)
			}
			return subcommands.ExitUsageError
		}
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	if created {
		fmt.Printf("Created user %s\n", p.username)
	} else {
		fmt.Printf("Updated password for %s\n", p.username)
	}
	return subcommands.ExitSuccess
}

// readPassword returns the first line of r without its line ending.
func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("no password on standard input")
	}
	return line, nil
}
