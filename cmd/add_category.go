package cmd

import (
	"context"
	"flag"
	"fmt"

	"github.com/etnz/bdgt/renderer"
	"github.com/etnz/bdgt/store"
	"github.com/google/subcommands"
)

type addCategoryCmd struct {
	name  string
	ctype string
}

func (*addCategoryCmd) Name() string     { return "add-category" }
func (*addCategoryCmd) Synopsis() string { return "create an income or outcome category" }
func (*addCategoryCmd) Usage() string {
	return `bdgt add-category -name <name> -type <income|outcome>

  Creates a category classifying transactions. The type fixes the sign of
  the amounts recorded against it.
`
}

func (c *addCategoryCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "Name of the new category.")
	f.StringVar(&c.ctype, "type", "outcome", "Category type: income or outcome.")
}

func (c *addCategoryCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.name == "" {
		fmt.Println(c.Usage())
		return subcommands.ExitUsageError
	}
	t, err := store.ParseCategoryType(c.ctype)
	if err != nil {
		return fail(err)
	}

	b, err := openBudget()
	if err != nil {
		return fail(err)
	}
	defer b.Close()

	if _, err := b.AddCategory(c.name, t); err != nil {
		return fail(err)
	}
	categories, err := b.Categories()
	if err != nil {
		return fail(err)
	}
	printMarkdown(renderer.CategoriesMarkdown(categories))
	return subcommands.ExitSuccess
}
