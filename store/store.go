// Package store persists the budget ledger in a SQLite database with
// row-level encryption at rest. Sensitive fields (names, descriptions,
// amounts) are sealed with AES-GCM under the ledger master key; merge
// metadata, foreign keys and timestamps stay in plain columns so range
// queries and the change feed work without decryption.
package store

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/etnz/bdgt/crypto"

	_ "modernc.org/sqlite"
)

// ErrNotFound reports a reference to an entity id that does not exist.
var ErrNotFound = errors.New("entity not found")

// ledgerFile is the database file name inside the budget root.
const ledgerFile = "ledger.db"

// canary is a known plaintext sealed into the database at creation, so that
// opening with the wrong master key fails immediately instead of producing
// garbage rows later.
var canary = []byte("bdgt")

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id          TEXT PRIMARY KEY,
	payload     BLOB NOT NULL,
	instance_id TEXT NOT NULL,
	created_at  INTEGER NOT NULL,
	modified_at INTEGER NOT NULL,
	deleted_at  INTEGER
);
CREATE TABLE IF NOT EXISTS categories (
	id          TEXT PRIMARY KEY,
	type        INTEGER NOT NULL,
	payload     BLOB NOT NULL,
	instance_id TEXT NOT NULL,
	created_at  INTEGER NOT NULL,
	modified_at INTEGER NOT NULL,
	deleted_at  INTEGER
);
CREATE TABLE IF NOT EXISTS plans (
	id          TEXT PRIMARY KEY,
	category_id TEXT NOT NULL,
	payload     BLOB NOT NULL,
	instance_id TEXT NOT NULL,
	created_at  INTEGER NOT NULL,
	modified_at INTEGER NOT NULL,
	deleted_at  INTEGER
);
CREATE TABLE IF NOT EXISTS transactions (
	id          TEXT PRIMARY KEY,
	account_id  TEXT NOT NULL,
	category_id TEXT,
	transfer_id TEXT,
	timestamp   INTEGER NOT NULL,
	payload     BLOB NOT NULL,
	instance_id TEXT NOT NULL,
	created_at  INTEGER NOT NULL,
	modified_at INTEGER NOT NULL,
	deleted_at  INTEGER
);
CREATE TABLE IF NOT EXISTS checks (
	name  TEXT PRIMARY KEY,
	value BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transactions_timestamp ON transactions(timestamp);
CREATE INDEX IF NOT EXISTS idx_transactions_account ON transactions(account_id);
CREATE INDEX IF NOT EXISTS idx_transactions_category ON transactions(category_id);
CREATE INDEX IF NOT EXISTS idx_transactions_modified ON transactions(modified_at);
`

// Store is the encrypted ledger database of one instance.
type Store struct {
	db         *sql.DB
	sealer     *crypto.Sealer
	instanceID string
}

// Create creates the ledger database inside root, sealed under masterKey.
func Create(root, instanceID string, masterKey []byte) (*Store, error) {
	path := filepath.Join(root, ledgerFile)
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("ledger database already exists at %q", path)
	}

	s, err := open(path, instanceID, masterKey)
	if err != nil {
		return nil, err
	}

	sealed, err := s.sealer.Seal(canary)
	if err != nil {
		s.Close()
		return nil, err
	}
	if _, err := s.db.Exec(`INSERT INTO checks (name, value) VALUES ('key', ?)`, sealed); err != nil {
		s.Close()
		return nil, fmt.Errorf("store key check: %w", err)
	}
	return s, nil
}

// Remove deletes the ledger database inside root, if any. The store must be
// closed first.
func Remove(root string) error {
	path := filepath.Join(root, ledgerFile)
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// Open opens an existing ledger database inside root and verifies that
// masterKey is the key it was sealed under.
func Open(root, instanceID string, masterKey []byte) (*Store, error) {
	path := filepath.Join(root, ledgerFile)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("no ledger database at %q: %w", path, err)
	}

	s, err := open(path, instanceID, masterKey)
	if err != nil {
		return nil, err
	}

	var sealed []byte
	if err := s.db.QueryRow(`SELECT value FROM checks WHERE name = 'key'`).Scan(&sealed); err != nil {
		s.Close()
		return nil, fmt.Errorf("read key check: %w", err)
	}
	plain, err := s.sealer.Open(sealed)
	if err != nil || !bytes.Equal(plain, canary) {
		s.Close()
		return nil, fmt.Errorf("master key does not match the ledger database")
	}
	return s, nil
}

func open(path, instanceID string, masterKey []byte) (*Store, error) {
	sealer, err := crypto.NewSealer(masterKey)
	if err != nil {
		return nil, err
	}

	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db, sealer: sealer, instanceID: instanceID}, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Update runs fn inside one database transaction. All rows written by fn
// are committed together or not at all.
func (s *Store) Update(fn func(*Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(&Tx{tx: tx, s: s}); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// View runs fn inside one read-only database transaction.
func (s *Store) View(fn func(*Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()
	return fn(&Tx{tx: tx, s: s})
}

// Purge physically removes every tombstoned row. It is irreversible and
// unsafe to call before all devices have converged: a purged tombstone can
// no longer outrank an older live row during a merge.
func (s *Store) Purge() error {
	return s.Update(func(t *Tx) error {
		for _, table := range []string{"accounts", "categories", "plans", "transactions"} {
			if _, err := t.tx.Exec(`DELETE FROM ` + table + ` WHERE deleted_at IS NOT NULL`); err != nil {
				return fmt.Errorf("purge %s: %w", table, err)
			}
		}
		return nil
	})
}

// Tx is one atomic unit of work against the store.
type Tx struct {
	tx *sql.Tx
	s  *Store
}

// touch stamps the row metadata for a local mutation: the current instance
// becomes the last writer, and modified_at strictly increases even when the
// wall clock does not.
func (t *Tx) touch(m *MetaInfo) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	if !now.After(m.ModifiedAt) {
		now = m.ModifiedAt.Add(time.Millisecond)
	}
	m.ModifiedAt = now
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.InstanceID = t.s.instanceID
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

func toMillisPtr(value *time.Time) any {
	if value == nil {
		return nil
	}
	return toMillis(*value)
}

func fromMillisPtr(value sql.NullInt64) *time.Time {
	if !value.Valid {
		return nil
	}
	t := fromMillis(value.Int64)
	return &t
}
