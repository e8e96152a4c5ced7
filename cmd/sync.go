package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

type syncCmd struct {
	remote        string
	passphrase    string
	passphraseEnv string
}

func (*syncCmd) Name() string     { return "sync" }
func (*syncCmd) Synopsis() string { return "synchronize with the remote snapshot" }
func (*syncCmd) Usage() string {
	return `bdgt sync [-remote <url>] [-passphrase <text> | -passphrase-env <var>]

  Synchronizes the budget with the remote snapshot shared by all devices.
  -remote configures (or changes) the remote location first; the setting is
  remembered. The snapshot passphrase is taken from -passphrase or, better,
  from the environment variable named by -passphrase-env.
`
}

func (c *syncCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.remote, "remote", "", "Remote snapshot location: a path, file:// or http(s):// URL.")
	f.StringVar(&c.passphrase, "passphrase", "", "Snapshot passphrase.")
	f.StringVar(&c.passphraseEnv, "passphrase-env", "", "Environment variable holding the snapshot passphrase.")
}

func (c *syncCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	b, err := openBudget()
	if err != nil {
		return fail(err)
	}
	defer b.Close()

	if c.remote != "" {
		if err := b.SetRemoteURL(c.remote); err != nil {
			return fail(err)
		}
		fmt.Printf("Remote set to %s\n", c.remote)
	}

	passphrase := c.passphrase
	if passphrase == "" && c.passphraseEnv != "" {
		passphrase = os.Getenv(c.passphraseEnv)
	}
	if err := b.PerformSync(ctx, []byte(passphrase)); err != nil {
		return fail(err)
	}
	fmt.Println("Synchronized.")
	return subcommands.ExitSuccess
}
