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

type removeCategoryCmd struct {
	name  string
	force bool
}

func (*removeCategoryCmd) Name() string     { return "remove-category" }
func (*removeCategoryCmd) Synopsis() string { return "remove a category" }
func (*removeCategoryCmd) Usage() string {
	return `bdgt remove-category -name <name> [-force]

  Removes a category. A category still referenced by transactions or plans
  is kept unless -force is given, in which case they are removed with it.
`
}

func (c *removeCategoryCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "Category to remove.")
	f.BoolVar(&c.force, "force", false, "Also remove the transactions and plans referencing the category.")
}

func (c *removeCategoryCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.name == "" {
		fmt.Println(c.Usage())
		return subcommands.ExitUsageError
	}
	b, err := openBudget()
	if err != nil {
		return fail(err)
	}
	defer b.Close()

	category, err := categoryByName(b, c.name)
	if err != nil {
		return fail(err)
	}
	if err := b.RemoveCategory(category.ID, c.force); err != nil {
		if errors.Is(err, bdgt.ErrReferentialConflict) {
			fmt.Fprintf(os.Stderr, "Error: %v. Retry with -force to remove them too.\n", err)
			return subcommands.ExitFailure
		}
		return fail(err)
	}
	fmt.Printf("Removed category %q\n", c.name)
	return subcommands.ExitSuccess
}
