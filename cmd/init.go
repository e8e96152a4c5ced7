package cmd

import (
	"context"
	"flag"
	"fmt"

	"github.com/etnz/bdgt"
	"github.com/google/subcommands"
)

type initCmd struct {
	key string
}

func (*initCmd) Name() string     { return "init" }
func (*initCmd) Synopsis() string { return "create a new budget" }
func (*initCmd) Usage() string {
	return `bdgt init -key <key-id>

  Creates a new encrypted budget in the budget directory. The ledger master
  key is generated and protected with the given identity key from the
  keyring (see keygen).
`
}

func (c *initCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.key, "key", "", "Identity key protecting the budget.")
}

func (c *initCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.key == "" {
		fmt.Println(c.Usage())
		return subcommands.ExitUsageError
	}
	b, err := bdgt.Initialize(*rootDir, c.key, keyring())
	if err != nil {
		return fail(err)
	}
	defer b.Close()

	fmt.Printf("Created budget in %s (instance %s)\n", *rootDir, b.InstanceID())
	return subcommands.ExitSuccess
}
