package cmd

import (
	"context"
	"flag"
	"fmt"

	"github.com/etnz/bdgt/renderer"
	"github.com/google/subcommands"
)

type addAccountCmd struct {
	name    string
	initial string
}

func (*addAccountCmd) Name() string     { return "add-account" }
func (*addAccountCmd) Synopsis() string { return "create an account" }
func (*addAccountCmd) Usage() string {
	return `bdgt add-account -name <name> [-initial <amount>]

  Creates an account holding money, with an optional opening amount.
`
}

func (c *addAccountCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "Name of the new account.")
	f.StringVar(&c.initial, "initial", "0", "Opening amount.")
}

func (c *addAccountCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.name == "" {
		fmt.Println(c.Usage())
		return subcommands.ExitUsageError
	}
	initial, err := parseAmount(c.initial)
	if err != nil {
		return fail(err)
	}

	b, err := openBudget()
	if err != nil {
		return fail(err)
	}
	defer b.Close()

	if _, err := b.AddAccount(c.name, initial); err != nil {
		return fail(err)
	}
	accounts, err := b.Accounts()
	if err != nil {
		return fail(err)
	}
	printMarkdown(renderer.AccountsMarkdown(accounts, *currency))
	return subcommands.ExitSuccess
}
