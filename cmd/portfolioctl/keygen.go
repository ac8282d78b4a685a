package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/service"
)

type keygenCmd struct{}

func (*keygenCmd) Name() string     { return "keygen" }
func (*keygenCmd) Synopsis() string { return "print a new session key" }
func (*keygenCmd) Usage() string {
	return `portfolioctl keygen

  Prints a random key suitable for SESSION_KEY. Changing the key logs out
  every session.
`
}

func (*keygenCmd) SetFlags(*flag.FlagSet) {}

func (*keygenCmd) Execute(context.Context, *flag.FlagSet, ...any) subcommands.ExitStatus {
	key, err := service.GenerateSessionKey()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	fmt.Println(key)
	return subcommands.ExitSuccess
}
