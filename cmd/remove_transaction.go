package cmd

import (
	"context"
	"flag"
	"fmt"

	"github.com/etnz/bdgt/store"
	"github.com/google/subcommands"
)

type removeTransactionCmd struct {
	id string
}

func (*removeTransactionCmd) Name() string     { return "remove-transaction" }
func (*removeTransactionCmd) Synopsis() string { return "remove a transaction" }
func (*removeTransactionCmd) Usage() string {
	return `bdgt remove-transaction -id <id>

  Removes a transaction (ids are shown by tx) and adjusts the account
  balance. Removing one leg of a transfer removes both legs.
`
}

func (c *removeTransactionCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.id, "id", "", "Transaction to remove.")
}

func (c *removeTransactionCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.id == "" {
		fmt.Println(c.Usage())
		return subcommands.ExitUsageError
	}
	b, err := openBudget()
	if err != nil {
		return fail(err)
	}
	defer b.Close()

	if err := b.RemoveTransaction(store.ID(c.id)); err != nil {
		return fail(err)
	}
	fmt.Printf("Removed transaction %s\n", c.id)
	return subcommands.ExitSuccess
}
