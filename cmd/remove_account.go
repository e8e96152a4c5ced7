package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/bdgt"
	"github.com/google/subcommands"
)

type removeAccountCmd struct {
	name  string
	force bool
}

func (*removeAccountCmd) Name() string     { return "remove-account" }
func (*removeAccountCmd) Synopsis() string { return "remove an account" }
func (*removeAccountCmd) Usage() string {
	return `bdgt remove-account -name <name> [-force]

  Removes an account. An account still referenced by transactions is kept
  unless -force is given, in which case its transactions are removed with
  it.
`
}

func (c *removeAccountCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "Account to remove.")
	f.BoolVar(&c.force, "force", false, "Also remove the transactions referencing the account.")
}

func (c *removeAccountCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.name == "" {
		fmt.Println(c.Usage())
		return subcommands.ExitUsageError
	}
	b, err := openBudget()
	if err != nil {
		return fail(err)
	}
	defer b.Close()

	account, err := accountByName(b, c.name)
	if err != nil {
		return fail(err)
	}
	if err := b.RemoveAccount(account.ID, c.force); err != nil {
		if errors.Is(err, bdgt.ErrReferentialConflict) {
			fmt.Fprintf(os.Stderr, "Error: %v. Retry with -force to remove them too.\n", err)
			return subcommands.ExitFailure
		}
		return fail(err)
	}
	fmt.Printf("Removed account %q\n", c.name)
	return subcommands.ExitSuccess
}
