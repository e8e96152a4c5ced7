package cmd

import (
	"context"
	"flag"
	"fmt"

	"github.com/etnz/bdgt/renderer"
	"github.com/google/subcommands"
)

type addCmd struct {
	account     string
	category    string
	amount      string
	description string
	date        string
}

func (*addCmd) Name() string     { return "add" }
func (*addCmd) Synopsis() string { return "record a transaction" }
func (*addCmd) Usage() string {
	return `bdgt add -account <name> -category <name> -amount <amount> [-description <text>] [-date <YYYY-MM-DD>]

  Records a movement on an account. The sign follows the category type:
  income is recorded positive, outcome negative, whatever sign is given.
`
}

func (c *addCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "account", "", "Account the movement applies to.")
	f.StringVar(&c.category, "category", "", "Category classifying the movement.")
	f.StringVar(&c.amount, "amount", "", "Amount of the movement.")
	f.StringVar(&c.description, "description", "", "Free-form description.")
	f.StringVar(&c.date, "date", "", "Date of the movement, today by default.")
}

func (c *addCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.account == "" || c.category == "" || c.amount == "" {
		fmt.Println(c.Usage())
		return subcommands.ExitUsageError
	}
	amount, err := parseAmount(c.amount)
	if err != nil {
		return fail(err)
	}
	date, err := parseDate(c.date)
	if err != nil {
		return fail(err)
	}

	b, err := openBudget()
	if err != nil {
		return fail(err)
	}
	defer b.Close()

	account, err := accountByName(b, c.account)
	if err != nil {
		return fail(err)
	}
	category, err := categoryByName(b, c.category)
	if err != nil {
		return fail(err)
	}
	x, err := b.AddTransaction(date, c.description, account.ID, category.ID, amount)
	if err != nil {
		return fail(err)
	}

	account, err = b.Account(account.ID)
	if err != nil {
		return fail(err)
	}
	fmt.Printf("Recorded %s on %s (balance %s)\n",
		renderer.SignedAmount(x.Amount, *currency), account.Name, renderer.Amount(account.Balance, *currency))
	return subcommands.ExitSuccess
}
