package cmd

import (
	"errors"
	"testing"
	"time"

	"github.com/etnz/bdgt"
	"github.com/etnz/bdgt/crypto"
	"github.com/etnz/bdgt/store"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	v, err := parseAmount("12.50")
	if err != nil {
		t.Fatalf("parseAmount(12.50) failed: %v", err)
	}
	if !v.Equal(decimal.RequireFromString("12.5")) {
		t.Errorf("parseAmount(12.50) = %s", v)
	}
	if _, err := parseAmount("twelve"); err == nil {
		t.Error("parseAmount(twelve) should fail")
	}
}

func TestParseDate(t *testing.T) {
	d, err := parseDate("2024-03-05")
	if err != nil {
		t.Fatalf("parseDate failed: %v", err)
	}
	if d.Year() != 2024 || d.Month() != time.March || d.Day() != 5 {
		t.Errorf("parseDate(2024-03-05) = %v", d)
	}
	if _, err := parseDate("05/03/2024"); err == nil {
		t.Error("parseDate(05/03/2024) should fail")
	}
	// Empty means today.
	d, err = parseDate("")
	if err != nil || d.IsZero() {
		t.Errorf("parseDate(\"\") = %v, %v", d, err)
	}
}

func TestResolveByName(t *testing.T) {
	keys := crypto.NewKeyring(t.TempDir())
	if err := keys.Generate("tester", 1024); err != nil {
		t.Fatal(err)
	}
	b, err := bdgt.Initialize(t.TempDir(), "tester", keys)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	account, err := b.AddAccount("checking", decimal.Zero)
	if err != nil {
		t.Fatal(err)
	}

	got, err := accountByName(b, "checking")
	if err != nil {
		t.Fatalf("accountByName failed: %v", err)
	}
	if got.ID != account.ID {
		t.Errorf("accountByName resolved %s; want %s", got.ID, account.ID)
	}
	if _, err := accountByName(b, "nope"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("accountByName(nope) = %v; want ErrNotFound", err)
	}
	if _, err := categoryByName(b, "nope"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("categoryByName(nope) = %v; want ErrNotFound", err)
	}
}
