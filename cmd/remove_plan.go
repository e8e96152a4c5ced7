package cmd

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"
)

type removePlanCmd struct {
	name string
}

func (*removePlanCmd) Name() string     { return "remove-plan" }
func (*removePlanCmd) Synopsis() string { return "remove a plan" }
func (*removePlanCmd) Usage() string {
	return `bdgt remove-plan -name <name>

  Removes a spending plan. The category and its transactions are untouched.
`
}

func (c *removePlanCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "Plan to remove.")
}

func (c *removePlanCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.name == "" {
		fmt.Println(c.Usage())
		return subcommands.ExitUsageError
	}
	b, err := openBudget()
	if err != nil {
		return fail(err)
	}
	defer b.Close()

	plan, err := planByName(b, c.name)
	if err != nil {
		return fail(err)
	}
	if err := b.RemovePlan(plan.ID); err != nil {
		return fail(err)
	}
	fmt.Printf("Removed plan %q\n", c.name)
	return subcommands.ExitSuccess
}
