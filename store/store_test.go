package store

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func testKey() []byte { return bytes.Repeat([]byte{1}, 32) }

// newTestStore creates an encrypted store in a temporary root.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Create(t.TempDir(), "instance-a", testKey())
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func addAccount(t *testing.T, s *Store, name string) Account {
	t.Helper()
	a := Account{Name: name}
	if err := s.Update(func(tx *Tx) error { return tx.AddAccount(&a) }); err != nil {
		t.Fatalf("AddAccount(%s) failed: %v", name, err)
	}
	return a
}

func addCategory(t *testing.T, s *Store, name string, ct CategoryType) Category {
	t.Helper()
	c := Category{Name: name, Type: ct}
	if err := s.Update(func(tx *Tx) error { return tx.AddCategory(&c) }); err != nil {
		t.Fatalf("AddCategory(%s) failed: %v", name, err)
	}
	return c
}

func addTransaction(t *testing.T, s *Store, x Transaction) Transaction {
	t.Helper()
	if err := s.Update(func(tx *Tx) error { return tx.AddTransaction(&x) }); err != nil {
		t.Fatalf("AddTransaction failed: %v", err)
	}
	return x
}

func TestOpenWithWrongKey(t *testing.T) {
	root := t.TempDir()
	s, err := Create(root, "instance-a", testKey())
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	addAccount(t, s, "checking")
	s.Close()

	if _, err := Open(root, "instance-a", bytes.Repeat([]byte{2}, 32)); err == nil {
		t.Fatal("Open() with a different master key succeeded")
	}

	reopened, err := Open(root, "instance-a", testKey())
	if err != nil {
		t.Fatalf("Open() with the right key failed: %v", err)
	}
	defer reopened.Close()

	var accounts []Account
	if err := reopened.View(func(tx *Tx) error {
		accounts, err = tx.Accounts(false)
		return err
	}); err != nil {
		t.Fatal(err)
	}
	if len(accounts) != 1 || accounts[0].Name != "checking" {
		t.Errorf("reopened accounts = %v; want one named checking", accounts)
	}
}

func TestAccountRoundTrip(t *testing.T) {
	s := newTestStore(t)

	created := Account{Name: "savings", Initial: decimal.NewFromInt(100)}
	if err := s.Update(func(tx *Tx) error { return tx.AddAccount(&created) }); err != nil {
		t.Fatal(err)
	}
	if created.ID.IsZero() {
		t.Fatal("AddAccount did not assign an id")
	}
	if created.Meta.InstanceID != "instance-a" {
		t.Errorf("instance id = %q; want instance-a", created.Meta.InstanceID)
	}

	var got Account
	if err := s.View(func(tx *Tx) error {
		var err error
		got, err = tx.Account(created.ID)
		return err
	}); err != nil {
		t.Fatal(err)
	}
	if got.Name != "savings" || !got.Initial.Equal(decimal.NewFromInt(100)) {
		t.Errorf("round trip = %+v", got)
	}

	if err := s.View(func(tx *Tx) error {
		_, err := tx.Account("no-such-id")
		return err
	}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Account(unknown) = %v; want ErrNotFound", err)
	}
}

func TestAccountsSortedByName(t *testing.T) {
	s := newTestStore(t)
	addAccount(t, s, "wallet")
	addAccount(t, s, "checking")
	addAccount(t, s, "savings")

	var accounts []Account
	if err := s.View(func(tx *Tx) error {
		var err error
		accounts, err = tx.Accounts(false)
		return err
	}); err != nil {
		t.Fatal(err)
	}

	want := []string{"checking", "savings", "wallet"}
	if len(accounts) != len(want) {
		t.Fatalf("got %d accounts; want %d", len(accounts), len(want))
	}
	for i, name := range want {
		if accounts[i].Name != name {
			t.Errorf("accounts[%d].Name = %q; want %q", i, accounts[i].Name, name)
		}
	}
}

func TestModifiedAtStrictlyIncreases(t *testing.T) {
	s := newTestStore(t)
	a := addAccount(t, s, "checking")
	first := a.Meta.ModifiedAt

	a.Name = "main checking"
	if err := s.Update(func(tx *Tx) error { return tx.UpdateAccount(&a) }); err != nil {
		t.Fatal(err)
	}
	second := a.Meta.ModifiedAt
	if !second.After(first) {
		t.Errorf("modified_at after edit = %v; want after %v", second, first)
	}

	if err := s.Update(func(tx *Tx) error { return tx.DeleteAccount(a.ID) }); err != nil {
		t.Fatal(err)
	}
	var got Account
	if err := s.View(func(tx *Tx) error {
		var err error
		got, err = tx.Account(a.ID)
		return err
	}); err != nil {
		t.Fatal(err)
	}
	if !got.Meta.Deleted() {
		t.Error("account is not tombstoned after DeleteAccount")
	}
	if !got.Meta.ModifiedAt.After(second) {
		t.Errorf("modified_at after tombstone = %v; want after %v", got.Meta.ModifiedAt, second)
	}
}

func TestTombstonesExcludedByDefault(t *testing.T) {
	s := newTestStore(t)
	keep := addAccount(t, s, "keep")
	drop := addAccount(t, s, "drop")

	if err := s.Update(func(tx *Tx) error { return tx.DeleteAccount(drop.ID) }); err != nil {
		t.Fatal(err)
	}

	var live, all []Account
	if err := s.View(func(tx *Tx) error {
		var err error
		if live, err = tx.Accounts(false); err != nil {
			return err
		}
		all, err = tx.Accounts(true)
		return err
	}); err != nil {
		t.Fatal(err)
	}

	if len(live) != 1 || live[0].ID != keep.ID {
		t.Errorf("live accounts = %v; want only %s", live, keep.ID)
	}
	if len(all) != 2 {
		t.Errorf("all accounts = %d rows; want 2", len(all))
	}
}

func TestDeleteRejectsTombstones(t *testing.T) {
	s := newTestStore(t)
	a := addAccount(t, s, "checking")
	if err := s.Update(func(tx *Tx) error { return tx.DeleteAccount(a.ID) }); err != nil {
		t.Fatal(err)
	}

	var stamped Account
	if err := s.View(func(tx *Tx) error {
		var err error
		stamped, err = tx.Account(a.ID)
		return err
	}); err != nil {
		t.Fatal(err)
	}

	// Deleting again must not restamp the tombstone: a refreshed
	// modified_at would let a stale removal win over remote edits.
	if err := s.Update(func(tx *Tx) error { return tx.DeleteAccount(a.ID) }); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second DeleteAccount = %v; want ErrNotFound", err)
	}
	var after Account
	if err := s.View(func(tx *Tx) error {
		var err error
		after, err = tx.Account(a.ID)
		return err
	}); err != nil {
		t.Fatal(err)
	}
	if !after.Meta.ModifiedAt.Equal(stamped.Meta.ModifiedAt) {
		t.Errorf("modified_at moved from %v to %v on a rejected delete", stamped.Meta.ModifiedAt, after.Meta.ModifiedAt)
	}

	c := addCategory(t, s, "food", Outcome)
	x := addTransaction(t, s, Transaction{AccountID: a.ID, CategoryID: c.ID, Timestamp: time.Now(), Amount: decimal.NewFromInt(-5)})
	p := Plan{CategoryID: c.ID, Name: "groceries", Limit: decimal.NewFromInt(100)}
	if err := s.Update(func(tx *Tx) error { return tx.AddPlan(&p) }); err != nil {
		t.Fatal(err)
	}
	if err := s.Update(func(tx *Tx) error { return tx.DeleteCategory(c.ID) }); err != nil {
		t.Fatal(err)
	}
	if err := s.Update(func(tx *Tx) error { return tx.DeleteCategory(c.ID) }); !errors.Is(err, ErrNotFound) {
		t.Errorf("second DeleteCategory = %v; want ErrNotFound", err)
	}
	if err := s.Update(func(tx *Tx) error { return tx.DeletePlan(p.ID) }); err != nil {
		t.Fatal(err)
	}
	if err := s.Update(func(tx *Tx) error { return tx.DeletePlan(p.ID) }); !errors.Is(err, ErrNotFound) {
		t.Errorf("second DeletePlan = %v; want ErrNotFound", err)
	}
	if err := s.Update(func(tx *Tx) error { return tx.DeleteTransaction(x.ID) }); err != nil {
		t.Fatal(err)
	}
	if err := s.Update(func(tx *Tx) error { return tx.DeleteTransaction(x.ID) }); !errors.Is(err, ErrNotFound) {
		t.Errorf("second DeleteTransaction = %v; want ErrNotFound", err)
	}
}

func TestTransactionQueries(t *testing.T) {
	s := newTestStore(t)
	checking := addAccount(t, s, "checking")
	savings := addAccount(t, s, "savings")
	food := addCategory(t, s, "food", Outcome)
	salary := addCategory(t, s, "salary", Income)

	day := func(d int) time.Time {
		return time.Date(2024, time.March, d, 12, 0, 0, 0, time.UTC)
	}
	addTransaction(t, s, Transaction{AccountID: checking.ID, CategoryID: food.ID, Timestamp: day(1), Description: "groceries", Amount: decimal.NewFromInt(-40)})
	addTransaction(t, s, Transaction{AccountID: checking.ID, CategoryID: salary.ID, Timestamp: day(10), Description: "pay", Amount: decimal.NewFromInt(2000)})
	addTransaction(t, s, Transaction{AccountID: savings.ID, CategoryID: food.ID, Timestamp: day(20), Description: "restaurant", Amount: decimal.NewFromInt(-60)})

	testCases := []struct {
		name  string
		query TransactionQuery
		want  []string
	}{
		{name: "all", query: TransactionQuery{}, want: []string{"groceries", "pay", "restaurant"}},
		{name: "by account", query: TransactionQuery{Account: checking.ID}, want: []string{"groceries", "pay"}},
		{name: "by category", query: TransactionQuery{Category: food.ID}, want: []string{"groceries", "restaurant"}},
		{name: "by account and category", query: TransactionQuery{Account: checking.ID, Category: food.ID}, want: []string{"groceries"}},
		{name: "window start inclusive", query: TransactionQuery{From: day(10), To: day(20)}, want: []string{"pay"}},
		{name: "window end exclusive", query: TransactionQuery{From: day(1), To: day(10)}, want: []string{"groceries"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var txs []Transaction
			if err := s.View(func(tx *Tx) error {
				var err error
				txs, err = tx.Transactions(tc.query)
				return err
			}); err != nil {
				t.Fatal(err)
			}
			if len(txs) != len(tc.want) {
				t.Fatalf("got %d transactions; want %d", len(txs), len(tc.want))
			}
			for i, desc := range tc.want {
				if txs[i].Description != desc {
					t.Errorf("txs[%d] = %q; want %q", i, txs[i].Description, desc)
				}
			}
		})
	}
}

func TestChangedFeed(t *testing.T) {
	s := newTestStore(t)
	a := addAccount(t, s, "checking")
	checkpoint := a.Meta.ModifiedAt

	c := addCategory(t, s, "food", Outcome)
	x := addTransaction(t, s, Transaction{AccountID: a.ID, CategoryID: c.ID, Timestamp: time.Now(), Amount: decimal.NewFromInt(-5)})

	var cs *ChangeSet
	if err := s.View(func(tx *Tx) error {
		var err error
		cs, err = tx.Changed(checkpoint)
		return err
	}); err != nil {
		t.Fatal(err)
	}

	if len(cs.Accounts) != 0 {
		t.Errorf("accounts in feed = %d; want 0 (not modified after checkpoint)", len(cs.Accounts))
	}
	if len(cs.Categories) != 1 || cs.Categories[0].ID != c.ID {
		t.Errorf("categories in feed = %v; want %s", cs.Categories, c.ID)
	}
	if len(cs.Transactions) != 1 || cs.Transactions[0].ID != x.ID {
		t.Errorf("transactions in feed = %v; want %s", cs.Transactions, x.ID)
	}

	// A zero checkpoint yields the full state.
	if err := s.View(func(tx *Tx) error {
		var err error
		cs, err = tx.Changed(time.Time{})
		return err
	}); err != nil {
		t.Fatal(err)
	}
	if len(cs.Accounts) != 1 {
		t.Errorf("full feed accounts = %d; want 1", len(cs.Accounts))
	}
}

func TestPurgeIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	keep := addAccount(t, s, "keep")
	drop := addAccount(t, s, "drop")
	if err := s.Update(func(tx *Tx) error { return tx.DeleteAccount(drop.ID) }); err != nil {
		t.Fatal(err)
	}

	count := func() int {
		var all []Account
		if err := s.View(func(tx *Tx) error {
			var err error
			all, err = tx.Accounts(true)
			return err
		}); err != nil {
			t.Fatal(err)
		}
		return len(all)
	}

	if err := s.Purge(); err != nil {
		t.Fatalf("Purge() failed: %v", err)
	}
	if got := count(); got != 1 {
		t.Fatalf("rows after purge = %d; want 1", got)
	}
	if err := s.Purge(); err != nil {
		t.Fatalf("second Purge() failed: %v", err)
	}
	if got := count(); got != 1 {
		t.Errorf("rows after second purge = %d; want 1", got)
	}

	var a Account
	if err := s.View(func(tx *Tx) error {
		var err error
		a, err = tx.Account(keep.ID)
		return err
	}); err != nil {
		t.Fatal(err)
	}
	if a.Name != "keep" {
		t.Errorf("surviving account = %q; want keep", a.Name)
	}
}

func TestUpdateRollsBackOnError(t *testing.T) {
	s := newTestStore(t)
	boom := errors.New("boom")

	err := s.Update(func(tx *Tx) error {
		a := Account{Name: "phantom"}
		if err := tx.AddAccount(&a); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Update() = %v; want boom", err)
	}

	var accounts []Account
	if err := s.View(func(tx *Tx) error {
		var err error
		accounts, err = tx.Accounts(true)
		return err
	}); err != nil {
		t.Fatal(err)
	}
	if len(accounts) != 0 {
		t.Errorf("accounts after rollback = %v; want none", accounts)
	}
}
