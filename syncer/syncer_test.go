package syncer

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/etnz/bdgt/store"

	"github.com/shopspring/decimal"
)

func testKey(b byte) []byte { return bytes.Repeat([]byte{b}, 32) }

// instance bundles one device: its encrypted store and its sync engine.
type instance struct {
	store  *store.Store
	engine *Engine
}

// newInstance creates a device syncing against the shared remote path.
func newInstance(t *testing.T, id string, key byte, remotePath string) *instance {
	t.Helper()
	root := t.TempDir()
	s, err := store.Create(root, id, testKey(key))
	if err != nil {
		t.Fatalf("Create store for %s: %v", id, err)
	}
	t.Cleanup(func() { s.Close() })
	return &instance{store: s, engine: New(s, root, &fileRemote{path: remotePath})}
}

func (i *instance) addAccount(t *testing.T, name string) store.Account {
	t.Helper()
	a := store.Account{Name: name}
	if err := i.store.Update(func(tx *store.Tx) error { return tx.AddAccount(&a) }); err != nil {
		t.Fatal(err)
	}
	return a
}

func (i *instance) accounts(t *testing.T) []store.Account {
	t.Helper()
	var accounts []store.Account
	if err := i.store.View(func(tx *store.Tx) error {
		var err error
		accounts, err = tx.Accounts(true)
		return err
	}); err != nil {
		t.Fatal(err)
	}
	return accounts
}

func TestSyncRequiresPassphrase(t *testing.T) {
	a := newInstance(t, "a", 1, filepath.Join(t.TempDir(), "snapshot"))
	if err := a.engine.Sync(context.Background(), nil); !errors.Is(err, ErrPassphraseRequired) {
		t.Errorf("Sync(nil passphrase) = %v; want ErrPassphraseRequired", err)
	}
}

func TestSyncEmptyRemotePublishesLocal(t *testing.T) {
	remote := filepath.Join(t.TempDir(), "snapshot")
	a := newInstance(t, "a", 1, remote)
	a.addAccount(t, "checking")

	if err := a.engine.Sync(context.Background(), []byte("secret")); err != nil {
		t.Fatalf("Sync() failed: %v", err)
	}

	// A fresh instance with a different master key picks the state up.
	b := newInstance(t, "b", 2, remote)
	if err := b.engine.Sync(context.Background(), []byte("secret")); err != nil {
		t.Fatalf("Sync() on b failed: %v", err)
	}
	accounts := b.accounts(t)
	if len(accounts) != 1 || accounts[0].Name != "checking" {
		t.Errorf("b accounts after sync = %v; want one named checking", accounts)
	}

	if a.engine.LastSync().IsZero() {
		t.Error("LastSync() is zero after a successful sync")
	}
}

func TestSyncConvergesDisjointEdits(t *testing.T) {
	for _, firstSyncer := range []string{"a", "b"} {
		t.Run("first="+firstSyncer, func(t *testing.T) {
			remote := filepath.Join(t.TempDir(), "snapshot")
			a := newInstance(t, "a", 1, remote)
			b := newInstance(t, "b", 2, remote)

			a.addAccount(t, "cash")
			b.addAccount(t, "bank")

			order := []*instance{a, b, a}
			if firstSyncer == "b" {
				order = []*instance{b, a, b}
			}
			for _, i := range order {
				if err := i.engine.Sync(context.Background(), []byte("secret")); err != nil {
					t.Fatalf("Sync() failed: %v", err)
				}
			}

			got, want := a.accounts(t), b.accounts(t)
			if len(got) != 2 || len(want) != 2 {
				t.Fatalf("row counts after convergence: a=%d b=%d; want 2 and 2", len(got), len(want))
			}
			for i := range got {
				if got[i].ID != want[i].ID || got[i].Name != want[i].Name {
					t.Errorf("row %d differs: a=%+v b=%+v", i, got[i], want[i])
				}
			}
		})
	}
}

func TestMergeLastWriterWins(t *testing.T) {
	t1 := time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)

	older := store.Account{ID: "x", Name: "old name", Meta: store.MetaInfo{InstanceID: "a", CreatedAt: t1, ModifiedAt: t1}}
	newer := store.Account{ID: "x", Name: "new name", Meta: store.MetaInfo{InstanceID: "b", CreatedAt: t1, ModifiedAt: t2}}

	// Any merge order yields the newer version.
	for _, pair := range [][2][]store.Account{
		{{older}, {newer}},
		{{newer}, {older}},
	} {
		merged := mergeRecords(pair[0], pair[1])
		if len(merged) != 1 || merged[0].Name != "new name" {
			t.Errorf("mergeRecords(%v, %v) = %v; want the t2 version", pair[0], pair[1], merged)
		}
	}
}

func TestMergeTieBreaksOnInstance(t *testing.T) {
	ts := time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)
	va := store.Account{ID: "x", Name: "from a", Meta: store.MetaInfo{InstanceID: "a", ModifiedAt: ts}}
	vb := store.Account{ID: "x", Name: "from b", Meta: store.MetaInfo{InstanceID: "b", ModifiedAt: ts}}

	first := mergeRecords([]store.Account{va}, []store.Account{vb})
	second := mergeRecords([]store.Account{vb}, []store.Account{va})
	if first[0].Name != second[0].Name {
		t.Fatalf("tie-break is order dependent: %q vs %q", first[0].Name, second[0].Name)
	}
}

func TestMergeTombstoneIsAModification(t *testing.T) {
	t1 := time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)

	live := store.Account{ID: "x", Name: "kept", Meta: store.MetaInfo{InstanceID: "a", ModifiedAt: t2}}
	dead := store.Account{ID: "x", Name: "kept", Meta: store.MetaInfo{InstanceID: "b", ModifiedAt: t1, DeletedAt: &t1}}

	// A later edit resurrects the entity over an earlier tombstone.
	merged := mergeRecords([]store.Account{dead}, []store.Account{live})
	if merged[0].Meta.Deleted() {
		t.Error("later edit did not win over earlier tombstone")
	}

	// And a later tombstone deletes over an earlier edit.
	dead.Meta.ModifiedAt = t2.Add(time.Hour)
	deletedAt := dead.Meta.ModifiedAt
	dead.Meta.DeletedAt = &deletedAt
	merged = mergeRecords([]store.Account{dead}, []store.Account{live})
	if !merged[0].Meta.Deleted() {
		t.Error("later tombstone did not win over earlier edit")
	}
}

func TestSyncRecomputesBalances(t *testing.T) {
	remote := filepath.Join(t.TempDir(), "snapshot")
	a := newInstance(t, "a", 1, remote)
	b := newInstance(t, "b", 2, remote)

	account := a.addAccount(t, "checking")
	category := store.Category{Name: "food", Type: store.Outcome}
	if err := a.store.Update(func(tx *store.Tx) error { return tx.AddCategory(&category) }); err != nil {
		t.Fatal(err)
	}

	if err := a.engine.Sync(context.Background(), []byte("secret")); err != nil {
		t.Fatal(err)
	}
	if err := b.engine.Sync(context.Background(), []byte("secret")); err != nil {
		t.Fatal(err)
	}

	// Both devices spend from the same account while offline.
	spend := func(i *instance, amount int64) {
		x := store.Transaction{AccountID: account.ID, CategoryID: category.ID, Timestamp: time.Now(), Amount: decimal.NewFromInt(amount)}
		if err := i.store.Update(func(tx *store.Tx) error { return tx.AddTransaction(&x) }); err != nil {
			t.Fatal(err)
		}
	}
	spend(a, -30)
	spend(b, -20)

	for _, i := range []*instance{a, b, a} {
		if err := i.engine.Sync(context.Background(), []byte("secret")); err != nil {
			t.Fatal(err)
		}
	}

	for name, i := range map[string]*instance{"a": a, "b": b} {
		accounts := i.accounts(t)
		if len(accounts) != 1 {
			t.Fatalf("%s has %d accounts; want 1", name, len(accounts))
		}
		if want := decimal.NewFromInt(-50); !accounts[0].Balance.Equal(want) {
			t.Errorf("%s balance = %s; want %s", name, accounts[0].Balance, want)
		}
	}
}

func TestSyncWrongPassphraseLeavesLocalUntouched(t *testing.T) {
	remote := filepath.Join(t.TempDir(), "snapshot")
	a := newInstance(t, "a", 1, remote)
	a.addAccount(t, "checking")
	if err := a.engine.Sync(context.Background(), []byte("secret")); err != nil {
		t.Fatal(err)
	}

	b := newInstance(t, "b", 2, remote)
	b.addAccount(t, "bank")
	before := b.accounts(t)

	if err := b.engine.Sync(context.Background(), []byte("wrong")); !errors.Is(err, ErrPassphraseRejected) {
		t.Fatalf("Sync(wrong passphrase) = %v; want ErrPassphraseRejected", err)
	}

	after := b.accounts(t)
	if len(after) != len(before) {
		t.Fatalf("local store changed after failed sync: %d rows -> %d rows", len(before), len(after))
	}
	for i := range after {
		if after[i].ID != before[i].ID || !after[i].Meta.ModifiedAt.Equal(before[i].Meta.ModifiedAt) {
			t.Errorf("row %d changed after failed sync", i)
		}
	}
}

func TestOpenSnapshotRejectsGarbage(t *testing.T) {
	if _, err := openSnapshot([]byte("secret"), []byte("not a snapshot")); !errors.Is(err, ErrDecrypt) {
		t.Errorf("openSnapshot(garbage) = %v; want ErrDecrypt", err)
	}
}

func TestOpenRemote(t *testing.T) {
	testCases := []struct {
		url     string
		want    string
		wantErr bool
	}{
		{url: "https://example.com/budget/snapshot", want: "*syncer.httpRemote"},
		{url: "file:///var/shared/snapshot", want: "*syncer.fileRemote"},
		{url: "/var/shared/snapshot", want: "*syncer.fileRemote"},
		{url: "ftp://example.com/snapshot", wantErr: true},
	}
	for _, tc := range testCases {
		r, err := OpenRemote(tc.url)
		if tc.wantErr {
			if err == nil {
				t.Errorf("OpenRemote(%q) succeeded; want error", tc.url)
			}
			continue
		}
		if err != nil {
			t.Errorf("OpenRemote(%q) failed: %v", tc.url, err)
			continue
		}
		switch tc.want {
		case "*syncer.httpRemote":
			if _, ok := r.(*httpRemote); !ok {
				t.Errorf("OpenRemote(%q) = %T; want httpRemote", tc.url, r)
			}
		case "*syncer.fileRemote":
			if _, ok := r.(*fileRemote); !ok {
				t.Errorf("OpenRemote(%q) = %T; want fileRemote", tc.url, r)
			}
		}
	}
}
