package cmd

import (
	"context"
	"flag"
	"time"

	"github.com/etnz/bdgt/renderer"
	"github.com/google/subcommands"
)

type reportCmd struct {
	month int
	year  int
}

func (*reportCmd) Name() string     { return "report" }
func (*reportCmd) Synopsis() string { return "summarize activity per category" }
func (*reportCmd) Usage() string {
	return `bdgt report [-month <m>] [-year <y>]

  Totals the activity of a time window per category, current month by
  default, with plan usage for outcome categories. Month and year selectors
  can be relative; see "bdgt topic intervals".
`
}

func (c *reportCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.month, "month", int(time.Now().Month()), "Month of the window, 0 for the whole year.")
	f.IntVar(&c.year, "year", 0, "Year of the window, this year by default.")
}

func (c *reportCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	b, err := openBudget()
	if err != nil {
		return fail(err)
	}
	defer b.Close()

	r, err := b.Report(c.month, c.year)
	if err != nil {
		return fail(err)
	}
	printMarkdown(renderer.ReportMarkdown(r, *currency))
	return subcommands.ExitSuccess
}
