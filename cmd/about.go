package cmd

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/google/subcommands"
)

type aboutCmd struct{}

func (*aboutCmd) Name() string     { return "about" }
func (*aboutCmd) Synopsis() string { return "show budget diagnostics" }
func (*aboutCmd) Usage() string {
	return `bdgt about

  Shows the key engine, the instance identity and the sync configuration of
  the budget.
`
}

func (c *aboutCmd) SetFlags(f *flag.FlagSet) {}

func (c *aboutCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	b, err := openBudget()
	if err != nil {
		return fail(err)
	}
	defer b.Close()

	var md strings.Builder
	fmt.Fprintf(&md, "# About this budget\n\n")
	fmt.Fprintf(&md, "| | |\n|:---|:---|\n")
	fmt.Fprintf(&md, "| Root | %s |\n", *rootDir)
	fmt.Fprintf(&md, "| Key engine | %s v%s |\n", b.EngineName(), b.EngineVersion())
	fmt.Fprintf(&md, "| Key | %s |\n", b.KeyID())
	fmt.Fprintf(&md, "| Instance | %s |\n", b.InstanceID())
	remote := b.RemoteURL()
	if remote == "" {
		remote = "not configured"
	}
	fmt.Fprintf(&md, "| Remote | %s |\n", remote)
	if last := b.LastSync(); !last.IsZero() {
		fmt.Fprintf(&md, "| Last sync | %s |\n", last.Local().Format("2006-01-02 15:04:05"))
	}
	printMarkdown(md.String())
	return subcommands.ExitSuccess
}
