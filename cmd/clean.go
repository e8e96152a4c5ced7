package cmd

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"
)

type cleanCmd struct{}

func (*cleanCmd) Name() string     { return "clean" }
func (*cleanCmd) Synopsis() string { return "purge removed entries for good" }
func (*cleanCmd) Usage() string {
	return `bdgt clean

  Permanently purges all removed entries from the ledger. Removals are kept
  as markers until then, so devices that sync later still learn about them;
  clean once every device has synchronized.
`
}

func (c *cleanCmd) SetFlags(f *flag.FlagSet) {}

func (c *cleanCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	b, err := openBudget()
	if err != nil {
		return fail(err)
	}
	defer b.Close()

	if err := b.CleanRemoved(); err != nil {
		return fail(err)
	}
	fmt.Println("Cleaned.")
	return subcommands.ExitSuccess
}
