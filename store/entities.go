package store

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ID is an opaque entity identifier. It is assigned by the store on first
// persistence and is empty before that. IDs are unique across instances, so
// rows produced on different devices never collide during a merge.
type ID string

// IsZero reports whether the entity has not been persisted yet.
func (id ID) IsZero() bool { return id == "" }

// CategoryType tells whether a category collects income or outcome.
type CategoryType int

const (
	Income CategoryType = iota
	Outcome
)

func (t CategoryType) String() string {
	switch t {
	case Income:
		return "income"
	case Outcome:
		return "outcome"
	default:
		return "unknown"
	}
}

// ParseCategoryType parses a string into a CategoryType.
func ParseCategoryType(s string) (CategoryType, error) {
	switch s {
	case "income":
		return Income, nil
	case "outcome":
		return Outcome, nil
	default:
		return 0, fmt.Errorf("unknown category type: %q", s)
	}
}

// MetaInfo is the per-row provenance and versioning metadata used for merge
// ordering. Every mutable entity embeds it.
type MetaInfo struct {
	// InstanceID identifies the device that made the last modification.
	InstanceID string
	// CreatedAt is set once on first persistence.
	CreatedAt time.Time
	// ModifiedAt strictly increases on every edit of the same row,
	// tombstoning included.
	ModifiedAt time.Time
	// DeletedAt marks the row as a tombstone when non-nil.
	DeletedAt *time.Time
}

// Deleted reports whether the row is a tombstone.
func (m MetaInfo) Deleted() bool { return m.DeletedAt != nil }

// Account is a money holder. Balance is derived: it always equals Initial
// plus the sum of amounts over the live transactions referencing the
// account, and is recomputed transactionally on every mutation.
type Account struct {
	ID      ID
	Name    string
	Initial decimal.Decimal
	Balance decimal.Decimal
	Meta    MetaInfo
}

// Category classifies transactions as income or outcome.
type Category struct {
	ID   ID
	Name string
	Type CategoryType
	Meta MetaInfo
}

// Plan is a spending limit attached to an outcome category.
type Plan struct {
	ID         ID
	CategoryID ID
	Name       string
	Limit      decimal.Decimal
	Meta       MetaInfo
}

// Transaction is a single ledger movement. Its amount sign is normalized
// from the referenced category's type at creation and never re-derived.
// Transfer legs carry a shared TransferID and no category.
type Transaction struct {
	ID          ID
	Timestamp   time.Time
	Description string
	AccountID   ID
	CategoryID  ID
	TransferID  ID
	Amount      decimal.Decimal
	Meta        MetaInfo
}

// IsTransfer reports whether the transaction is one leg of a transfer.
func (t Transaction) IsTransfer() bool { return !t.TransferID.IsZero() }

// Record accessors give the synchronization engine a uniform view of every
// entity kind for merge ordering.

func (a Account) RecordID() ID           { return a.ID }
func (a Account) RecordMeta() MetaInfo   { return a.Meta }
func (c Category) RecordID() ID          { return c.ID }
func (c Category) RecordMeta() MetaInfo  { return c.Meta }
func (p Plan) RecordID() ID              { return p.ID }
func (p Plan) RecordMeta() MetaInfo      { return p.Meta }
func (t Transaction) RecordID() ID       { return t.ID }
func (t Transaction) RecordMeta() MetaInfo { return t.Meta }
