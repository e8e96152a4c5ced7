package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sealed payload shapes. Everything a remote should not be able to read
// lives here; the remaining columns are merge metadata and foreign keys.

type accountPayload struct {
	Name    string          `json:"name"`
	Initial decimal.Decimal `json:"initial"`
	Balance decimal.Decimal `json:"balance"`
}

type categoryPayload struct {
	Name string `json:"name"`
}

type planPayload struct {
	Name  string          `json:"name"`
	Limit decimal.Decimal `json:"limit"`
}

type transactionPayload struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

func (t *Tx) seal(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return t.s.sealer.Seal(data)
}

func (t *Tx) unseal(sealed []byte, v any) error {
	data, err := t.s.sealer.Open(sealed)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func newID() ID { return ID(uuid.NewString()) }

// --- accounts ---

// AddAccount persists a new account, assigning its id and stamping its
// metadata.
func (t *Tx) AddAccount(a *Account) error {
	a.ID = newID()
	t.touch(&a.Meta)
	return t.writeAccount(*a, `INSERT INTO accounts (id, payload, instance_id, created_at, modified_at, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
}

// UpdateAccount rewrites an account edited locally, bumping its metadata.
func (t *Tx) UpdateAccount(a *Account) error {
	t.touch(&a.Meta)
	return t.updateAccount(*a)
}

// SetAccountBalance rewrites the cached balance without bumping the row
// metadata: the balance is derived, so recaching it is not a modification
// that should win a merge.
func (t *Tx) SetAccountBalance(a Account) error {
	return t.updateAccount(a)
}

// PutAccount upserts a merged account row exactly as given, preserving the
// metadata stamped by the instance that produced it.
func (t *Tx) PutAccount(a Account) error {
	payload, err := t.seal(accountPayload{Name: a.Name, Initial: a.Initial, Balance: a.Balance})
	if err != nil {
		return err
	}
	_, err = t.tx.Exec(`INSERT INTO accounts (id, payload, instance_id, created_at, modified_at, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET payload=excluded.payload, instance_id=excluded.instance_id,
			created_at=excluded.created_at, modified_at=excluded.modified_at, deleted_at=excluded.deleted_at`,
		string(a.ID), payload, a.Meta.InstanceID, toMillis(a.Meta.CreatedAt), toMillis(a.Meta.ModifiedAt), toMillisPtr(a.Meta.DeletedAt))
	return err
}

// DeleteAccount tombstones an account. Deleting a tombstone fails with
// ErrNotFound: re-stamping it would refresh modified_at and let a stale
// removal outrank concurrent remote edits.
func (t *Tx) DeleteAccount(id ID) error {
	a, err := t.Account(id)
	if err != nil {
		return err
	}
	if a.Meta.Deleted() {
		return fmt.Errorf("account %s: %w", id, ErrNotFound)
	}
	now := time.Now().UTC().Truncate(time.Millisecond)
	a.Meta.DeletedAt = &now
	t.touch(&a.Meta)
	return t.updateAccount(a)
}

func (t *Tx) writeAccount(a Account, query string) error {
	payload, err := t.seal(accountPayload{Name: a.Name, Initial: a.Initial, Balance: a.Balance})
	if err != nil {
		return err
	}
	_, err = t.tx.Exec(query, string(a.ID), payload, a.Meta.InstanceID,
		toMillis(a.Meta.CreatedAt), toMillis(a.Meta.ModifiedAt), toMillisPtr(a.Meta.DeletedAt))
	return err
}

func (t *Tx) updateAccount(a Account) error {
	payload, err := t.seal(accountPayload{Name: a.Name, Initial: a.Initial, Balance: a.Balance})
	if err != nil {
		return err
	}
	res, err := t.tx.Exec(`UPDATE accounts SET payload=?, instance_id=?, created_at=?, modified_at=?, deleted_at=? WHERE id=?`,
		payload, a.Meta.InstanceID, toMillis(a.Meta.CreatedAt), toMillis(a.Meta.ModifiedAt), toMillisPtr(a.Meta.DeletedAt), string(a.ID))
	if err != nil {
		return err
	}
	return ensureFound(res, a.ID)
}

// Account returns the account with the given id, tombstoned or not.
func (t *Tx) Account(id ID) (Account, error) {
	row := t.tx.QueryRow(`SELECT id, payload, instance_id, created_at, modified_at, deleted_at FROM accounts WHERE id=?`, string(id))
	return t.scanAccount(row)
}

// Accounts returns all accounts sorted by name. Tombstones are excluded
// unless requested.
func (t *Tx) Accounts(includeDeleted bool) ([]Account, error) {
	query := `SELECT id, payload, instance_id, created_at, modified_at, deleted_at FROM accounts`
	if !includeDeleted {
		query += ` WHERE deleted_at IS NULL`
	}
	rows, err := t.tx.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		a, err := t.scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Names live in the sealed payload, so ordering happens after decryption.
	slices.SortFunc(accounts, func(a, b Account) int { return strings.Compare(a.Name, b.Name) })
	return accounts, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (t *Tx) scanAccount(row scanner) (Account, error) {
	var (
		a        Account
		id       string
		payload  []byte
		created  int64
		modified int64
		deleted  sql.NullInt64
	)
	if err := row.Scan(&id, &payload, &a.Meta.InstanceID, &created, &modified, &deleted); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Account{}, fmt.Errorf("account: %w", ErrNotFound)
		}
		return Account{}, err
	}
	var p accountPayload
	if err := t.unseal(payload, &p); err != nil {
		return Account{}, fmt.Errorf("unseal account %s: %w", id, err)
	}
	a.ID = ID(id)
	a.Name = p.Name
	a.Initial = p.Initial
	a.Balance = p.Balance
	a.Meta.CreatedAt = fromMillis(created)
	a.Meta.ModifiedAt = fromMillis(modified)
	a.Meta.DeletedAt = fromMillisPtr(deleted)
	return a, nil
}

// --- categories ---

// AddCategory persists a new category, assigning its id and stamping its
// metadata.
func (t *Tx) AddCategory(c *Category) error {
	c.ID = newID()
	t.touch(&c.Meta)
	payload, err := t.seal(categoryPayload{Name: c.Name})
	if err != nil {
		return err
	}
	_, err = t.tx.Exec(`INSERT INTO categories (id, type, payload, instance_id, created_at, modified_at, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(c.ID), int(c.Type), payload, c.Meta.InstanceID,
		toMillis(c.Meta.CreatedAt), toMillis(c.Meta.ModifiedAt), toMillisPtr(c.Meta.DeletedAt))
	return err
}

// PutCategory upserts a merged category row exactly as given.
func (t *Tx) PutCategory(c Category) error {
	payload, err := t.seal(categoryPayload{Name: c.Name})
	if err != nil {
		return err
	}
	_, err = t.tx.Exec(`INSERT INTO categories (id, type, payload, instance_id, created_at, modified_at, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET type=excluded.type, payload=excluded.payload, instance_id=excluded.instance_id,
			created_at=excluded.created_at, modified_at=excluded.modified_at, deleted_at=excluded.deleted_at`,
		string(c.ID), int(c.Type), payload, c.Meta.InstanceID,
		toMillis(c.Meta.CreatedAt), toMillis(c.Meta.ModifiedAt), toMillisPtr(c.Meta.DeletedAt))
	return err
}

// DeleteCategory tombstones a category.
func (t *Tx) DeleteCategory(id ID) error {
	c, err := t.Category(id)
	if err != nil {
		return err
	}
	if c.Meta.Deleted() {
		return fmt.Errorf("category %s: %w", id, ErrNotFound)
	}
	now := time.Now().UTC().Truncate(time.Millisecond)
	c.Meta.DeletedAt = &now
	t.touch(&c.Meta)
	payload, err := t.seal(categoryPayload{Name: c.Name})
	if err != nil {
		return err
	}
	res, err := t.tx.Exec(`UPDATE categories SET type=?, payload=?, instance_id=?, created_at=?, modified_at=?, deleted_at=? WHERE id=?`,
		int(c.Type), payload, c.Meta.InstanceID,
		toMillis(c.Meta.CreatedAt), toMillis(c.Meta.ModifiedAt), toMillisPtr(c.Meta.DeletedAt), string(c.ID))
	if err != nil {
		return err
	}
	return ensureFound(res, c.ID)
}

// Category returns the category with the given id, tombstoned or not.
func (t *Tx) Category(id ID) (Category, error) {
	row := t.tx.QueryRow(`SELECT id, type, payload, instance_id, created_at, modified_at, deleted_at FROM categories WHERE id=?`, string(id))
	return t.scanCategory(row)
}

// Categories returns all categories sorted by name. Tombstones are excluded
// unless requested.
func (t *Tx) Categories(includeDeleted bool) ([]Category, error) {
	query := `SELECT id, type, payload, instance_id, created_at, modified_at, deleted_at FROM categories`
	if !includeDeleted {
		query += ` WHERE deleted_at IS NULL`
	}
	return t.queryCategories(query)
}

// CategoriesOf returns the live categories of one type, sorted by name.
func (t *Tx) CategoriesOf(ct CategoryType) ([]Category, error) {
	return t.queryCategories(`SELECT id, type, payload, instance_id, created_at, modified_at, deleted_at
		FROM categories WHERE deleted_at IS NULL AND type=?`, int(ct))
}

func (t *Tx) queryCategories(query string, args ...any) ([]Category, error) {
	rows, err := t.tx.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []Category
	for rows.Next() {
		c, err := t.scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	slices.SortFunc(categories, func(a, b Category) int { return strings.Compare(a.Name, b.Name) })
	return categories, nil
}

func (t *Tx) scanCategory(row scanner) (Category, error) {
	var (
		c        Category
		id       string
		ctype    int
		payload  []byte
		created  int64
		modified int64
		deleted  sql.NullInt64
	)
	if err := row.Scan(&id, &ctype, &payload, &c.Meta.InstanceID, &created, &modified, &deleted); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Category{}, fmt.Errorf("category: %w", ErrNotFound)
		}
		return Category{}, err
	}
	var p categoryPayload
	if err := t.unseal(payload, &p); err != nil {
		return Category{}, fmt.Errorf("unseal category %s: %w", id, err)
	}
	c.ID = ID(id)
	c.Name = p.Name
	c.Type = CategoryType(ctype)
	c.Meta.CreatedAt = fromMillis(created)
	c.Meta.ModifiedAt = fromMillis(modified)
	c.Meta.DeletedAt = fromMillisPtr(deleted)
	return c, nil
}

// --- plans ---

// AddPlan persists a new plan, assigning its id and stamping its metadata.
func (t *Tx) AddPlan(p *Plan) error {
	p.ID = newID()
	t.touch(&p.Meta)
	payload, err := t.seal(planPayload{Name: p.Name, Limit: p.Limit})
	if err != nil {
		return err
	}
	_, err = t.tx.Exec(`INSERT INTO plans (id, category_id, payload, instance_id, created_at, modified_at, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(p.ID), string(p.CategoryID), payload, p.Meta.InstanceID,
		toMillis(p.Meta.CreatedAt), toMillis(p.Meta.ModifiedAt), toMillisPtr(p.Meta.DeletedAt))
	return err
}

// PutPlan upserts a merged plan row exactly as given.
func (t *Tx) PutPlan(p Plan) error {
	payload, err := t.seal(planPayload{Name: p.Name, Limit: p.Limit})
	if err != nil {
		return err
	}
	_, err = t.tx.Exec(`INSERT INTO plans (id, category_id, payload, instance_id, created_at, modified_at, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET category_id=excluded.category_id, payload=excluded.payload, instance_id=excluded.instance_id,
			created_at=excluded.created_at, modified_at=excluded.modified_at, deleted_at=excluded.deleted_at`,
		string(p.ID), string(p.CategoryID), payload, p.Meta.InstanceID,
		toMillis(p.Meta.CreatedAt), toMillis(p.Meta.ModifiedAt), toMillisPtr(p.Meta.DeletedAt))
	return err
}

// DeletePlan tombstones a plan.
func (t *Tx) DeletePlan(id ID) error {
	p, err := t.Plan(id)
	if err != nil {
		return err
	}
	if p.Meta.Deleted() {
		return fmt.Errorf("plan %s: %w", id, ErrNotFound)
	}
	now := time.Now().UTC().Truncate(time.Millisecond)
	p.Meta.DeletedAt = &now
	t.touch(&p.Meta)
	payload, err := t.seal(planPayload{Name: p.Name, Limit: p.Limit})
	if err != nil {
		return err
	}
	res, err := t.tx.Exec(`UPDATE plans SET category_id=?, payload=?, instance_id=?, created_at=?, modified_at=?, deleted_at=? WHERE id=?`,
		string(p.CategoryID), payload, p.Meta.InstanceID,
		toMillis(p.Meta.CreatedAt), toMillis(p.Meta.ModifiedAt), toMillisPtr(p.Meta.DeletedAt), string(p.ID))
	if err != nil {
		return err
	}
	return ensureFound(res, p.ID)
}

// Plan returns the plan with the given id, tombstoned or not.
func (t *Tx) Plan(id ID) (Plan, error) {
	row := t.tx.QueryRow(`SELECT id, category_id, payload, instance_id, created_at, modified_at, deleted_at FROM plans WHERE id=?`, string(id))
	return t.scanPlan(row)
}

// Plans returns all plans sorted by name. Tombstones are excluded unless
// requested.
func (t *Tx) Plans(includeDeleted bool) ([]Plan, error) {
	query := `SELECT id, category_id, payload, instance_id, created_at, modified_at, deleted_at FROM plans`
	if !includeDeleted {
		query += ` WHERE deleted_at IS NULL`
	}
	return t.queryPlans(query)
}

// PlansOf returns the live plans attached to one category.
func (t *Tx) PlansOf(categoryID ID) ([]Plan, error) {
	return t.queryPlans(`SELECT id, category_id, payload, instance_id, created_at, modified_at, deleted_at
		FROM plans WHERE deleted_at IS NULL AND category_id=?`, string(categoryID))
}

func (t *Tx) queryPlans(query string, args ...any) ([]Plan, error) {
	rows, err := t.tx.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plans []Plan
	for rows.Next() {
		p, err := t.scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	slices.SortFunc(plans, func(a, b Plan) int { return strings.Compare(a.Name, b.Name) })
	return plans, nil
}

func (t *Tx) scanPlan(row scanner) (Plan, error) {
	var (
		p        Plan
		id       string
		category string
		payload  []byte
		created  int64
		modified int64
		deleted  sql.NullInt64
	)
	if err := row.Scan(&id, &category, &payload, &p.Meta.InstanceID, &created, &modified, &deleted); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Plan{}, fmt.Errorf("plan: %w", ErrNotFound)
		}
		return Plan{}, err
	}
	var pl planPayload
	if err := t.unseal(payload, &pl); err != nil {
		return Plan{}, fmt.Errorf("unseal plan %s: %w", id, err)
	}
	p.ID = ID(id)
	p.CategoryID = ID(category)
	p.Name = pl.Name
	p.Limit = pl.Limit
	p.Meta.CreatedAt = fromMillis(created)
	p.Meta.ModifiedAt = fromMillis(modified)
	p.Meta.DeletedAt = fromMillisPtr(deleted)
	return p, nil
}

// --- transactions ---

// TransactionQuery restricts a transaction listing. Zero fields do not
// filter. The time window is half-open: [From, To).
type TransactionQuery struct {
	Account        ID
	Category       ID
	From, To       time.Time
	IncludeDeleted bool
}

// AddTransaction persists a new transaction, assigning its id and stamping
// its metadata.
func (t *Tx) AddTransaction(x *Transaction) error {
	x.ID = newID()
	t.touch(&x.Meta)
	payload, err := t.seal(transactionPayload{Description: x.Description, Amount: x.Amount})
	if err != nil {
		return err
	}
	_, err = t.tx.Exec(`INSERT INTO transactions (id, account_id, category_id, transfer_id, timestamp, payload, instance_id, created_at, modified_at, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(x.ID), string(x.AccountID), string(x.CategoryID), string(x.TransferID), toMillis(x.Timestamp),
		payload, x.Meta.InstanceID, toMillis(x.Meta.CreatedAt), toMillis(x.Meta.ModifiedAt), toMillisPtr(x.Meta.DeletedAt))
	return err
}

// PutTransaction upserts a merged transaction row exactly as given.
func (t *Tx) PutTransaction(x Transaction) error {
	payload, err := t.seal(transactionPayload{Description: x.Description, Amount: x.Amount})
	if err != nil {
		return err
	}
	_, err = t.tx.Exec(`INSERT INTO transactions (id, account_id, category_id, transfer_id, timestamp, payload, instance_id, created_at, modified_at, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET account_id=excluded.account_id, category_id=excluded.category_id,
			transfer_id=excluded.transfer_id, timestamp=excluded.timestamp, payload=excluded.payload,
			instance_id=excluded.instance_id, created_at=excluded.created_at, modified_at=excluded.modified_at,
			deleted_at=excluded.deleted_at`,
		string(x.ID), string(x.AccountID), string(x.CategoryID), string(x.TransferID), toMillis(x.Timestamp),
		payload, x.Meta.InstanceID, toMillis(x.Meta.CreatedAt), toMillis(x.Meta.ModifiedAt), toMillisPtr(x.Meta.DeletedAt))
	return err
}

// DeleteTransaction tombstones a transaction.
func (t *Tx) DeleteTransaction(id ID) error {
	x, err := t.Transaction(id)
	if err != nil {
		return err
	}
	if x.Meta.Deleted() {
		return fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}
	now := time.Now().UTC().Truncate(time.Millisecond)
	x.Meta.DeletedAt = &now
	t.touch(&x.Meta)
	payload, err := t.seal(transactionPayload{Description: x.Description, Amount: x.Amount})
	if err != nil {
		return err
	}
	res, err := t.tx.Exec(`UPDATE transactions SET payload=?, instance_id=?, created_at=?, modified_at=?, deleted_at=? WHERE id=?`,
		payload, x.Meta.InstanceID, toMillis(x.Meta.CreatedAt), toMillis(x.Meta.ModifiedAt), toMillisPtr(x.Meta.DeletedAt), string(x.ID))
	if err != nil {
		return err
	}
	return ensureFound(res, x.ID)
}

// Transaction returns the transaction with the given id, tombstoned or not.
func (t *Tx) Transaction(id ID) (Transaction, error) {
	row := t.tx.QueryRow(`SELECT id, account_id, category_id, transfer_id, timestamp, payload, instance_id, created_at, modified_at, deleted_at
		FROM transactions WHERE id=?`, string(id))
	return t.scanTransaction(row)
}

// TransferLegs returns all transactions sharing a transfer id, tombstoned
// or not.
func (t *Tx) TransferLegs(transferID ID) ([]Transaction, error) {
	return t.queryTransactions(`SELECT id, account_id, category_id, transfer_id, timestamp, payload, instance_id, created_at, modified_at, deleted_at
		FROM transactions WHERE transfer_id=?`, string(transferID))
}

// Transactions lists transactions matching the query, in chronological
// order.
func (t *Tx) Transactions(q TransactionQuery) ([]Transaction, error) {
	query := `SELECT id, account_id, category_id, transfer_id, timestamp, payload, instance_id, created_at, modified_at, deleted_at
		FROM transactions WHERE 1=1`
	var args []any
	if !q.IncludeDeleted {
		query += ` AND deleted_at IS NULL`
	}
	if !q.Account.IsZero() {
		query += ` AND account_id=?`
		args = append(args, string(q.Account))
	}
	if !q.Category.IsZero() {
		query += ` AND category_id=?`
		args = append(args, string(q.Category))
	}
	if !q.From.IsZero() {
		query += ` AND timestamp >= ?`
		args = append(args, toMillis(q.From))
	}
	if !q.To.IsZero() {
		query += ` AND timestamp < ?`
		args = append(args, toMillis(q.To))
	}
	query += ` ORDER BY timestamp, created_at`
	return t.queryTransactions(query, args...)
}

func (t *Tx) queryTransactions(query string, args ...any) ([]Transaction, error) {
	rows, err := t.tx.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []Transaction
	for rows.Next() {
		x, err := t.scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, x)
	}
	return txs, rows.Err()
}

func (t *Tx) scanTransaction(row scanner) (Transaction, error) {
	var (
		x         Transaction
		id        string
		account   string
		category  sql.NullString
		transfer  sql.NullString
		timestamp int64
		payload   []byte
		created   int64
		modified  int64
		deleted   sql.NullInt64
	)
	if err := row.Scan(&id, &account, &category, &transfer, &timestamp, &payload, &x.Meta.InstanceID, &created, &modified, &deleted); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Transaction{}, fmt.Errorf("transaction: %w", ErrNotFound)
		}
		return Transaction{}, err
	}
	var p transactionPayload
	if err := t.unseal(payload, &p); err != nil {
		return Transaction{}, fmt.Errorf("unseal transaction %s: %w", id, err)
	}
	x.ID = ID(id)
	x.AccountID = ID(account)
	x.CategoryID = ID(category.String)
	x.TransferID = ID(transfer.String)
	x.Timestamp = fromMillis(timestamp)
	x.Description = p.Description
	x.Amount = p.Amount
	x.Meta.CreatedAt = fromMillis(created)
	x.Meta.ModifiedAt = fromMillis(modified)
	x.Meta.DeletedAt = fromMillisPtr(deleted)
	return x, nil
}

func ensureFound(res sql.Result, id ID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("id %s: %w", id, ErrNotFound)
	}
	return nil
}
