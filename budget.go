// Package bdgt implements an encrypted, local-first personal budget: accounts,
// income/outcome categories, spending plans and transactions, kept in an
// encrypted on-disk ledger and synchronizable across devices through a shared
// remote snapshot.
//
// The Budget type is the single entry point. It composes the key engine
// (crypto), the encrypted store (store) and the synchronization engine
// (syncer), and serializes every operation so invariants such as derived
// account balances and referential integrity hold at all times.
package bdgt

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/etnz/bdgt/crypto"
	"github.com/etnz/bdgt/store"
	"github.com/etnz/bdgt/syncer"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultRoot returns the default budget directory, ~/.bdgt.
func DefaultRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".bdgt"
	}
	return filepath.Join(home, ".bdgt")
}

// Budget orchestrates all operations on one budget root. It is safe for
// concurrent use: a single mutex serializes operations, and a sync in
// progress blocks every other operation until it completes.
type Budget struct {
	mu sync.Mutex

	root   string
	cfg    config
	engine crypto.Engine
	store  *store.Store
	syncer *syncer.Engine
}

// Initialize creates a new budget under root: it verifies the identity key,
// generates and wraps the ledger master key, and creates the encrypted
// store. It fails with ErrAlreadyInitialized when root already holds a
// budget, and with crypto.ErrKeyInvalid when keyID is unusable.
func Initialize(root, keyID string, engine crypto.Engine) (*Budget, error) {
	if _, err := readConfig(root); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyInitialized, root)
	}
	if err := engine.Lookup(keyID); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(root, 0700); err != nil {
		return nil, fmt.Errorf("creating budget root: %w", err)
	}

	master, err := engine.Create(root, keyID)
	if err != nil {
		return nil, err
	}
	cfg := config{InstanceID: uuid.NewString(), KeyID: keyID}
	s, err := store.Create(root, cfg.InstanceID, master)
	if err != nil {
		crypto.DiscardMasterKey(root)
		return nil, err
	}
	if err := writeConfig(root, cfg); err != nil {
		// Without config.json the root is not a budget; leaving the ledger
		// and wrapped key behind would make every retry fail.
		s.Close()
		store.Remove(root)
		crypto.DiscardMasterKey(root)
		return nil, err
	}
	return &Budget{root: root, cfg: cfg, engine: engine, store: s, syncer: syncer.New(s, root, nil)}, nil
}

// Open opens an existing budget under root. It fails with ErrNotInitialized
// when root holds no budget, and with crypto.ErrKeyUnavailable when the
// master key cannot be unwrapped.
func Open(root string, engine crypto.Engine) (*Budget, error) {
	cfg, err := readConfig(root)
	if err != nil {
		return nil, err
	}
	master, err := engine.Open(root)
	if err != nil {
		return nil, err
	}
	s, err := store.Open(root, cfg.InstanceID, master)
	if err != nil {
		return nil, err
	}

	var remote syncer.Remote
	if cfg.RemoteURL != "" {
		remote, err = syncer.OpenRemote(cfg.RemoteURL)
		if err != nil {
			s.Close()
			return nil, err
		}
	}
	return &Budget{root: root, cfg: cfg, engine: engine, store: s, syncer: syncer.New(s, root, remote)}, nil
}

// Close releases the underlying store.
func (b *Budget) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.store.Close()
}

// InstanceID returns this device's identifier, stamped into every row it
// modifies.
func (b *Budget) InstanceID() string { return b.cfg.InstanceID }

// KeyID returns the identifier of the identity key protecting the budget.
func (b *Budget) KeyID() string { return b.cfg.KeyID }

// EngineName returns the key engine implementation name.
func (b *Budget) EngineName() string { return b.engine.Name() }

// EngineVersion returns the key engine version.
func (b *Budget) EngineVersion() string { return b.engine.Version() }

// RemoteURL returns the configured sync remote, empty when sync is not set
// up.
func (b *Budget) RemoteURL() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cfg.RemoteURL
}

// LastSync returns the time of the last successful sync, zero if none.
func (b *Budget) LastSync() time.Time { return b.syncer.LastSync() }

// AddAccount creates an account with an opening amount. The derived balance
// starts equal to the opening amount.
func (b *Budget) AddAccount(name string, initial decimal.Decimal) (store.Account, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	a := store.Account{Name: name, Initial: initial, Balance: initial}
	err := b.store.Update(func(tx *store.Tx) error { return tx.AddAccount(&a) })
	return a, err
}

// AddCategory creates an income or outcome category.
func (b *Budget) AddCategory(name string, t store.CategoryType) (store.Category, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c := store.Category{Name: name, Type: t}
	err := b.store.Update(func(tx *store.Tx) error { return tx.AddCategory(&c) })
	return c, err
}

// AddPlan attaches a spending limit to an outcome category. It fails with
// ErrNotOutcome for income categories and with ErrInvalidLimit for a limit
// that is not strictly positive.
func (b *Budget) AddPlan(categoryID store.ID, name string, limit decimal.Decimal) (store.Plan, error) {
	if !limit.IsPositive() {
		return store.Plan{}, fmt.Errorf("%w: %s", ErrInvalidLimit, limit)
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	p := store.Plan{CategoryID: categoryID, Name: name, Limit: limit}
	err := b.store.Update(func(tx *store.Tx) error {
		outcomes, err := tx.CategoriesOf(store.Outcome)
		if err != nil {
			return err
		}
		if len(outcomes) == 0 {
			return ErrNoCategories
		}
		c, err := liveCategory(tx, categoryID)
		if err != nil {
			return err
		}
		if c.Type != store.Outcome {
			return fmt.Errorf("%w: %s is %s", ErrNotOutcome, c.Name, c.Type)
		}
		return tx.AddPlan(&p)
	})
	return p, err
}

// AddTransaction records a movement on an account. The amount sign is
// normalized from the category type: income is recorded positive, outcome
// negative, whatever sign the caller passed. The owning account balance is
// adjusted in the same commit.
func (b *Budget) AddTransaction(timestamp time.Time, description string, accountID, categoryID store.ID, amount decimal.Decimal) (store.Transaction, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	x := store.Transaction{Timestamp: timestamp, Description: description, AccountID: accountID, CategoryID: categoryID}
	err := b.store.Update(func(tx *store.Tx) error {
		if err := requireEntities(tx); err != nil {
			return err
		}
		a, err := liveAccount(tx, accountID)
		if err != nil {
			return err
		}
		c, err := liveCategory(tx, categoryID)
		if err != nil {
			return err
		}
		x.Amount = normalize(amount, c.Type)
		if err := tx.AddTransaction(&x); err != nil {
			return err
		}
		a.Balance = a.Balance.Add(x.Amount)
		return tx.SetAccountBalance(a)
	})
	return x, err
}

// AddTransfer moves money between two accounts by recording two linked
// transactions, a negative leg on from and a positive leg on to, sharing
// one transfer id. Both legs and both balance adjustments commit
// atomically. It fails with ErrSameAccount when from and to coincide.
func (b *Budget) AddTransfer(timestamp time.Time, description string, from, to store.ID, amount decimal.Decimal) ([]store.Transaction, error) {
	if from == to {
		return nil, ErrSameAccount
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	amount = amount.Abs()
	transferID := store.ID(uuid.NewString())
	legs := []store.Transaction{
		{Timestamp: timestamp, Description: description, AccountID: from, TransferID: transferID, Amount: amount.Neg()},
		{Timestamp: timestamp, Description: description, AccountID: to, TransferID: transferID, Amount: amount},
	}
	err := b.store.Update(func(tx *store.Tx) error {
		accounts, err := tx.Accounts(false)
		if err != nil {
			return err
		}
		if len(accounts) == 0 {
			return ErrNoAccounts
		}
		for i := range legs {
			a, err := liveAccount(tx, legs[i].AccountID)
			if err != nil {
				return err
			}
			if err := tx.AddTransaction(&legs[i]); err != nil {
				return err
			}
			a.Balance = a.Balance.Add(legs[i].Amount)
			if err := tx.SetAccountBalance(a); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return legs, nil
}

// RemoveAccount soft-deletes an account. With live transactions still
// referencing it the removal fails with ErrReferentialConflict, unless
// force is set, in which case the transactions are soft-deleted in the
// same commit (transfer legs as a unit, adjusting the peer account).
func (b *Budget) RemoveAccount(id store.ID, force bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.store.Update(func(tx *store.Tx) error {
		refs, err := tx.Transactions(store.TransactionQuery{Account: id})
		if err != nil {
			return err
		}
		if len(refs) > 0 && !force {
			return fmt.Errorf("%w: account has %d transactions", ErrReferentialConflict, len(refs))
		}
		for _, x := range refs {
			if err := removeTransaction(tx, x); err != nil {
				return err
			}
		}
		return tx.DeleteAccount(id)
	})
}

// RemoveCategory soft-deletes a category. With live transactions or plans
// still referencing it the removal fails with ErrReferentialConflict,
// unless force is set, in which case they are soft-deleted in the same
// commit, adjusting the owning account balances.
func (b *Budget) RemoveCategory(id store.ID, force bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.store.Update(func(tx *store.Tx) error {
		refs, err := tx.Transactions(store.TransactionQuery{Category: id})
		if err != nil {
			return err
		}
		plans, err := tx.PlansOf(id)
		if err != nil {
			return err
		}
		if (len(refs) > 0 || len(plans) > 0) && !force {
			return fmt.Errorf("%w: category has %d transactions and %d plans", ErrReferentialConflict, len(refs), len(plans))
		}
		for _, x := range refs {
			if err := removeTransaction(tx, x); err != nil {
				return err
			}
		}
		for _, p := range plans {
			if err := tx.DeletePlan(p.ID); err != nil {
				return err
			}
		}
		return tx.DeleteCategory(id)
	})
}

// RemovePlan soft-deletes a plan.
func (b *Budget) RemovePlan(id store.ID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.store.Update(func(tx *store.Tx) error { return tx.DeletePlan(id) })
}

// RemoveTransaction soft-deletes a transaction, adjusting the owning
// account balance. Removing one leg of a transfer removes both legs.
func (b *Budget) RemoveTransaction(id store.ID) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.store.Update(func(tx *store.Tx) error {
		x, err := tx.Transaction(id)
		if err != nil {
			return err
		}
		if x.Meta.Deleted() {
			return fmt.Errorf("transaction %s: %w", id, store.ErrNotFound)
		}
		return removeTransaction(tx, x)
	})
}

// removeTransaction tombstones x and adjusts its account balance. A
// transfer leg brings its peer leg along.
func removeTransaction(tx *store.Tx, x store.Transaction) error {
	legs := []store.Transaction{x}
	if x.IsTransfer() {
		all, err := tx.TransferLegs(x.TransferID)
		if err != nil {
			return err
		}
		legs = all
	}
	for _, leg := range legs {
		if leg.Meta.Deleted() {
			continue
		}
		if err := tx.DeleteTransaction(leg.ID); err != nil {
			return err
		}
		a, err := tx.Account(leg.AccountID)
		if err != nil {
			return err
		}
		a.Balance = a.Balance.Sub(leg.Amount)
		if err := tx.SetAccountBalance(a); err != nil {
			return err
		}
	}
	return nil
}

// CleanRemoved permanently purges all tombstoned rows. Purged rows will not
// reach other devices through sync anymore; devices that already hold them
// keep their tombstones until they clean too.
func (b *Budget) CleanRemoved() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.store.Purge()
}

// SetRemoteURL configures (or reconfigures) the sync remote. It does not
// trigger a sync.
func (b *Budget) SetRemoteURL(rawURL string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	remote, err := syncer.OpenRemote(rawURL)
	if err != nil {
		return err
	}
	cfg := b.cfg
	cfg.RemoteURL = rawURL
	if err := writeConfig(b.root, cfg); err != nil {
		return err
	}
	b.cfg = cfg
	b.syncer.SetRemote(remote)
	return nil
}

// PerformSync runs the full synchronization protocol against the configured
// remote. No other budget operation can interleave with it. It fails with
// ErrNoRemote when sync is not set up.
func (b *Budget) PerformSync(ctx context.Context, passphrase []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cfg.RemoteURL == "" {
		return ErrNoRemote
	}
	return b.syncer.Sync(ctx, passphrase)
}

// Account returns one account, tombstoned or not.
func (b *Budget) Account(id store.ID) (store.Account, error) {
	return view(b, func(tx *store.Tx) (store.Account, error) { return tx.Account(id) })
}

// Accounts returns the live accounts sorted by name.
func (b *Budget) Accounts() ([]store.Account, error) {
	return view(b, func(tx *store.Tx) ([]store.Account, error) { return tx.Accounts(false) })
}

// Categories returns the live categories sorted by name.
func (b *Budget) Categories() ([]store.Category, error) {
	return view(b, func(tx *store.Tx) ([]store.Category, error) { return tx.Categories(false) })
}

// CategoriesOf returns the live categories of one type, sorted by name.
func (b *Budget) CategoriesOf(t store.CategoryType) ([]store.Category, error) {
	return view(b, func(tx *store.Tx) ([]store.Category, error) { return tx.CategoriesOf(t) })
}

// Plans returns the live plans sorted by name.
func (b *Budget) Plans() ([]store.Plan, error) {
	return view(b, func(tx *store.Tx) ([]store.Plan, error) { return tx.Plans(false) })
}

// Transactions returns the live transactions matching q in timestamp order.
func (b *Budget) Transactions(q store.TransactionQuery) ([]store.Transaction, error) {
	return view(b, func(tx *store.Tx) ([]store.Transaction, error) { return tx.Transactions(q) })
}

// view runs a single read query under the budget lock.
func view[T any](b *Budget, fn func(*store.Tx) (T, error)) (T, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var v T
	err := b.store.View(func(tx *store.Tx) error {
		var err error
		v, err = fn(tx)
		return err
	})
	return v, err
}

// liveAccount loads an account, rejecting tombstones.
func liveAccount(tx *store.Tx, id store.ID) (store.Account, error) {
	a, err := tx.Account(id)
	if err != nil || a.Meta.Deleted() {
		return store.Account{}, fmt.Errorf("account %s: %w", id, store.ErrNotFound)
	}
	return a, nil
}

// liveCategory loads a category, rejecting tombstones.
func liveCategory(tx *store.Tx, id store.ID) (store.Category, error) {
	c, err := tx.Category(id)
	if err != nil || c.Meta.Deleted() {
		return store.Category{}, fmt.Errorf("category %s: %w", id, store.ErrNotFound)
	}
	return c, nil
}

// normalize applies the sign convention: income amounts are positive,
// outcome amounts negative.
func normalize(amount decimal.Decimal, t store.CategoryType) decimal.Decimal {
	if t == store.Outcome {
		return amount.Abs().Neg()
	}
	return amount.Abs()
}

// requireEntities checks the preconditions of recording a transaction.
func requireEntities(tx *store.Tx) error {
	accounts, err := tx.Accounts(false)
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		return ErrNoAccounts
	}
	categories, err := tx.Categories(false)
	if err != nil {
		return err
	}
	if len(categories) == 0 {
		return ErrNoCategories
	}
	return nil
}
