package bdgt

import "errors"

// Errors surfaced by budget operations. Lower layers have their own
// sentinels (store.ErrNotFound, crypto.ErrKeyInvalid, syncer.ErrDecrypt,
// ...); these cover the budget-level business rules.
var (
	// ErrAlreadyInitialized reports an Initialize on a root that already
	// holds a budget.
	ErrAlreadyInitialized = errors.New("budget is already initialized")

	// ErrNotInitialized reports an Open on a root that holds no budget.
	ErrNotInitialized = errors.New("budget is not initialized")

	// ErrNoAccounts reports an operation that needs at least one account.
	ErrNoAccounts = errors.New("there are no accounts")

	// ErrNoCategories reports an operation that needs at least one category.
	ErrNoCategories = errors.New("there are no categories")

	// ErrReferentialConflict reports a removal blocked by live rows that
	// still reference the entity. Retrying with force cascades instead.
	ErrReferentialConflict = errors.New("entity is still referenced")

	// ErrSameAccount reports a transfer between an account and itself.
	ErrSameAccount = errors.New("transfer needs two distinct accounts")

	// ErrNotOutcome reports a plan attached to a non-outcome category.
	ErrNotOutcome = errors.New("plans apply to outcome categories only")

	// ErrInvalidLimit reports a plan limit that is zero or negative.
	ErrInvalidLimit = errors.New("plan limit must be positive")

	// ErrNoRemote reports a sync attempt with no remote configured.
	ErrNoRemote = errors.New("no remote is configured")
)
