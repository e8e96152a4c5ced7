package store

import (
	"time"
)

// ChangeSet holds every row, tombstones included, whose modified_at is
// after a checkpoint. With a zero checkpoint it is the full ledger state,
// which is what the synchronization engine exchanges with the remote.
type ChangeSet struct {
	Accounts     []Account     `json:"accounts"`
	Categories   []Category    `json:"categories"`
	Plans        []Plan        `json:"plans"`
	Transactions []Transaction `json:"transactions"`
}

// Empty reports whether the change set carries no rows.
func (c *ChangeSet) Empty() bool {
	return len(c.Accounts) == 0 && len(c.Categories) == 0 && len(c.Plans) == 0 && len(c.Transactions) == 0
}

// Changed returns all rows modified after the checkpoint, tombstones
// included.
func (t *Tx) Changed(since time.Time) (*ChangeSet, error) {
	cs := &ChangeSet{}
	mark := toMillis(since)

	rows, err := t.tx.Query(`SELECT id, payload, instance_id, created_at, modified_at, deleted_at
		FROM accounts WHERE modified_at > ?`, mark)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		a, err := t.scanAccount(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		cs.Accounts = append(cs.Accounts, a)
	}
	if err := closeRows(rows.Err(), rows.Close()); err != nil {
		return nil, err
	}

	categories, err := t.queryCategories(`SELECT id, type, payload, instance_id, created_at, modified_at, deleted_at
		FROM categories WHERE modified_at > ?`, mark)
	if err != nil {
		return nil, err
	}
	cs.Categories = categories

	plans, err := t.queryPlans(`SELECT id, category_id, payload, instance_id, created_at, modified_at, deleted_at
		FROM plans WHERE modified_at > ?`, mark)
	if err != nil {
		return nil, err
	}
	cs.Plans = plans

	txs, err := t.queryTransactions(`SELECT id, account_id, category_id, transfer_id, timestamp, payload, instance_id, created_at, modified_at, deleted_at
		FROM transactions WHERE modified_at > ?`, mark)
	if err != nil {
		return nil, err
	}
	cs.Transactions = txs

	return cs, nil
}

// PutAll upserts every row of the change set as given, preserving metadata.
func (t *Tx) PutAll(cs *ChangeSet) error {
	for _, a := range cs.Accounts {
		if err := t.PutAccount(a); err != nil {
			return err
		}
	}
	for _, c := range cs.Categories {
		if err := t.PutCategory(c); err != nil {
			return err
		}
	}
	for _, p := range cs.Plans {
		if err := t.PutPlan(p); err != nil {
			return err
		}
	}
	for _, x := range cs.Transactions {
		if err := t.PutTransaction(x); err != nil {
			return err
		}
	}
	return nil
}

func closeRows(iterErr, closeErr error) error {
	if iterErr != nil {
		return iterErr
	}
	return closeErr
}
