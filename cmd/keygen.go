package cmd

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"
)

type keygenCmd struct {
	id   string
	bits int
}

func (*keygenCmd) Name() string     { return "keygen" }
func (*keygenCmd) Synopsis() string { return "generate an identity key in the keyring" }
func (*keygenCmd) Usage() string {
	return `bdgt keygen -id <key-id> [-bits <n>]

  Generates a new RSA identity key in the keyring directory. The key can then
  be designated at init time to protect a budget.
`
}

func (c *keygenCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.id, "id", "", "Identifier of the new key.")
	f.IntVar(&c.bits, "bits", 3072, "RSA key size in bits.")
}

func (c *keygenCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.id == "" {
		fmt.Println(c.Usage())
		return subcommands.ExitUsageError
	}
	if err := keyring().Generate(c.id, c.bits); err != nil {
		return fail(err)
	}
	fmt.Printf("Generated key %q in %s\n", c.id, *keysDir)
	return subcommands.ExitSuccess
}
