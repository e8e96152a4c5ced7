// Package cmd implements the CLI application to manage an encrypted budget.
package cmd

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/etnz/bdgt"
	"github.com/etnz/bdgt/crypto"
	"github.com/etnz/bdgt/store"

	"github.com/charmbracelet/glamour"
	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
)

// Commands is the list of all subcommands; a main package registers them on
// its commander.
var Commands = []subcommands.Command{
	&initCmd{},
	&keygenCmd{},
	&aboutCmd{},
	&addAccountCmd{},
	&addCategoryCmd{},
	&addPlanCmd{},
	&addCmd{},
	&transferCmd{},
	&removeAccountCmd{},
	&removeCategoryCmd{},
	&removePlanCmd{},
	&removeTransactionCmd{},
	&txCmd{},
	&reportCmd{},
	&syncCmd{},
	&cleanCmd{},
	&topicCmd{},
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var rootDir = flag.String("root", bdgt.DefaultRoot(), "Path to the budget directory")
var keysDir = flag.String("keys", filepath.Join(bdgt.DefaultRoot(), "keys"), "Path to the keyring directory")
var currency = flag.String("currency", "EUR", "Currency used to display amounts")

// keyring returns the app keyring.
func keyring() *crypto.Keyring { return crypto.NewKeyring(*keysDir) }

// openBudget opens the budget at the app root.
func openBudget() (*bdgt.Budget, error) {
	b, err := bdgt.Open(*rootDir, keyring())
	if err != nil {
		return nil, fmt.Errorf("could not open budget at %q: %w", *rootDir, err)
	}
	return b, nil
}

// printMarkdown renders markdown to the terminal. It falls back to the raw
// text when rendering is not possible.
func printMarkdown(md string) {
	out, err := glamour.Render(md, "auto")
	if err != nil {
		fmt.Print(md)
		return
	}
	fmt.Print(out)
}

// fail prints an error and returns the failure status.
func fail(err error) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return subcommands.ExitFailure
}

// parseAmount parses a decimal amount from a flag value.
func parseAmount(s string) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid amount %q", s)
	}
	return v, nil
}

// parseDate parses a -date flag value, today when empty.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Now(), nil
	}
	d, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return d, nil
}

// accountByName resolves an account flag value.
func accountByName(b *bdgt.Budget, name string) (store.Account, error) {
	accounts, err := b.Accounts()
	if err != nil {
		return store.Account{}, err
	}
	for _, a := range accounts {
		if a.Name == name {
			return a, nil
		}
	}
	return store.Account{}, fmt.Errorf("account %q: %w", name, store.ErrNotFound)
}

// categoryByName resolves a category flag value.
func categoryByName(b *bdgt.Budget, name string) (store.Category, error) {
	categories, err := b.Categories()
	if err != nil {
		return store.Category{}, err
	}
	for _, c := range categories {
		if c.Name == name {
			return c, nil
		}
	}
	return store.Category{}, fmt.Errorf("category %q: %w", name, store.ErrNotFound)
}

// planByName resolves a plan flag value.
func planByName(b *bdgt.Budget, name string) (store.Plan, error) {
	plans, err := b.Plans()
	if err != nil {
		return store.Plan{}, err
	}
	for _, p := range plans {
		if p.Name == name {
			return p, nil
		}
	}
	return store.Plan{}, fmt.Errorf("plan %q: %w", name, store.ErrNotFound)
}
