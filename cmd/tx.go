package cmd

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/etnz/bdgt/interval"
	"github.com/etnz/bdgt/renderer"
	"github.com/etnz/bdgt/store"
	"github.com/google/subcommands"
)

type txCmd struct {
	month    int
	year     int
	account  string
	category string
}

func (*txCmd) Name() string     { return "tx" }
func (*txCmd) Synopsis() string { return "list transactions" }
func (*txCmd) Usage() string {
	return `bdgt tx [-month <m>] [-year <y>] [-account <name>] [-category <name>]

  Lists the transactions of a time window, current month by default.
  Month and year selectors can be relative; see "bdgt topic intervals".
`
}

func (c *txCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.month, "month", int(time.Now().Month()), "Month of the window, 0 for the whole year.")
	f.IntVar(&c.year, "year", 0, "Year of the window, this year by default.")
	f.StringVar(&c.account, "account", "", "Only transactions of this account.")
	f.StringVar(&c.category, "category", "", "Only transactions of this category.")
}

func (c *txCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	w, err := interval.Resolve(c.month, c.year)
	if err != nil {
		return fail(err)
	}

	b, err := openBudget()
	if err != nil {
		return fail(err)
	}
	defer b.Close()

	q := store.TransactionQuery{From: w.Start, To: w.End}
	if c.account != "" {
		account, err := accountByName(b, c.account)
		if err != nil {
			return fail(err)
		}
		q.Account = account.ID
	}
	if c.category != "" {
		category, err := categoryByName(b, c.category)
		if err != nil {
			return fail(err)
		}
		q.Category = category.ID
	}

	txs, err := b.Transactions(q)
	if err != nil {
		return fail(err)
	}
	accounts, err := b.Accounts()
	if err != nil {
		return fail(err)
	}
	categories, err := b.Categories()
	if err != nil {
		return fail(err)
	}

	fmt.Printf("Window %s to %s\n", w.Start.Format("2006-01-02"), w.End.AddDate(0, 0, -1).Format("2006-01-02"))
	printMarkdown(renderer.TransactionsMarkdown(txs, accounts, categories, *currency))
	return subcommands.ExitSuccess
}
