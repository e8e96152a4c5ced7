package cmd

import (
	"context"
	"flag"
	"fmt"

	"github.com/etnz/bdgt/renderer"
	"github.com/google/subcommands"
)

type addPlanCmd struct {
	category string
	name     string
	limit    string
}

func (*addPlanCmd) Name() string     { return "add-plan" }
func (*addPlanCmd) Synopsis() string { return "attach a spending limit to an outcome category" }
func (*addPlanCmd) Usage() string {
	return `bdgt add-plan -category <name> -name <name> -limit <amount>

  Attaches a spending plan to an outcome category. Reports compare the
  category's spending against the sum of its plan limits.
`
}

func (c *addPlanCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.category, "category", "", "Outcome category the plan applies to.")
	f.StringVar(&c.name, "name", "", "Name of the new plan.")
	f.StringVar(&c.limit, "limit", "", "Spending limit per report window.")
}

func (c *addPlanCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.category == "" || c.name == "" || c.limit == "" {
		fmt.Println(c.Usage())
		return subcommands.ExitUsageError
	}
	limit, err := parseAmount(c.limit)
	if err != nil {
		return fail(err)
	}

	b, err := openBudget()
	if err != nil {
		return fail(err)
	}
	defer b.Close()

	category, err := categoryByName(b, c.category)
	if err != nil {
		return fail(err)
	}
	if _, err := b.AddPlan(category.ID, c.name, limit); err != nil {
		return fail(err)
	}

	plans, err := b.Plans()
	if err != nil {
		return fail(err)
	}
	categories, err := b.Categories()
	if err != nil {
		return fail(err)
	}
	printMarkdown(renderer.PlansMarkdown(plans, categories, *currency))
	return subcommands.ExitSuccess
}
