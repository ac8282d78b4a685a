// Command portfolioctl administers a portfolio tracker database.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")

	commander.Register(&migrateCmd{}, "database")
	commander.Register(&passwdCmd{}, "database")
	commander.Register(&positionsCmd{}, "portfolio")
	commander.Register(&importIbkrCmd{}, "portfolio")
	commander.Register(&keygenCmd{}, "sessions")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
