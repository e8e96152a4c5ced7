package cmd

import (
	"context"
	"flag"
	"fmt"

	"github.com/etnz/bdgt/renderer"
	"github.com/google/subcommands"
)

type transferCmd struct {
	from        string
	to          string
	amount      string
	description string
	date        string
}

func (*transferCmd) Name() string     { return "transfer" }
func (*transferCmd) Synopsis() string { return "move money between two accounts" }
func (*transferCmd) Usage() string {
	return `bdgt transfer -from <account> -to <account> -amount <amount> [-description <text>] [-date <YYYY-MM-DD>]

  Moves money between two of your accounts by recording two linked
  transactions. Transfers are volume, not income or outcome; reports keep
  them out of the totals.
`
}

func (c *transferCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.from, "from", "", "Source account.")
	f.StringVar(&c.to, "to", "", "Destination account.")
	f.StringVar(&c.amount, "amount", "", "Amount to move.")
	f.StringVar(&c.description, "description", "", "Free-form description.")
	f.StringVar(&c.date, "date", "", "Date of the transfer, today by default.")
}

func (c *transferCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.from == "" || c.to == "" || c.amount == "" {
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

	from, err := accountByName(b, c.from)
	if err != nil {
		return fail(err)
	}
	to, err := accountByName(b, c.to)
	if err != nil {
		return fail(err)
	}
	if _, err := b.AddTransfer(date, c.description, from.ID, to.ID, amount); err != nil {
		return fail(err)
	}

	accounts, err := b.Accounts()
	if err != nil {
		return fail(err)
	}
	printMarkdown(renderer.AccountsMarkdown(accounts, *currency))
	return subcommands.ExitSuccess
}
