package syncer

import (
	"slices"
	"strings"

	"github.com/etnz/bdgt/store"
)

// record is the uniform view the merge takes of every entity kind.
type record interface {
	RecordID() store.ID
	RecordMeta() store.MetaInfo
}

// newer reports whether a outranks b: last writer wins on modified_at,
// tie-broken by instance id ordering. A tombstone is an ordinary
// modification under this rule, so a later edit resurrects an entity over
// an earlier tombstone and vice versa.
func newer(a, b store.MetaInfo) bool {
	if !a.ModifiedAt.Equal(b.ModifiedAt) {
		return a.ModifiedAt.After(b.ModifiedAt)
	}
	return a.InstanceID > b.InstanceID
}

// mergeRecords combines the local and remote versions of one entity kind.
// For every id in either set, the winning version is kept. The result is
// sorted by id so merges are deterministic regardless of input order.
func mergeRecords[T record](local, remote []T) []T {
	byID := make(map[store.ID]T, len(local)+len(remote))
	for _, r := range local {
		byID[r.RecordID()] = r
	}
	for _, r := range remote {
		if held, ok := byID[r.RecordID()]; !ok || newer(r.RecordMeta(), held.RecordMeta()) {
			byID[r.RecordID()] = r
		}
	}

	merged := make([]T, 0, len(byID))
	for _, r := range byID {
		merged = append(merged, r)
	}
	slices.SortFunc(merged, func(a, b T) int {
		return strings.Compare(string(a.RecordID()), string(b.RecordID()))
	})
	return merged
}

// mergeSets reconciles two full ledger states into one convergent state.
func mergeSets(local, remote *store.ChangeSet) *store.ChangeSet {
	return &store.ChangeSet{
		Accounts:     mergeRecords(local.Accounts, remote.Accounts),
		Categories:   mergeRecords(local.Categories, remote.Categories),
		Plans:        mergeRecords(local.Plans, remote.Plans),
		Transactions: mergeRecords(local.Transactions, remote.Transactions),
	}
}

// recomputeBalances rederives every account balance from the merged
// transaction set: initial amount plus the sum over live transactions
// referencing the account. Only the cached balance changes; row metadata is
// left alone so the recomputation does not influence future merges.
func recomputeBalances(cs *store.ChangeSet) {
	sums := make(map[store.ID][]store.Transaction)
	for _, x := range cs.Transactions {
		if x.Meta.Deleted() {
			continue
		}
		sums[x.AccountID] = append(sums[x.AccountID], x)
	}
	for i := range cs.Accounts {
		a := &cs.Accounts[i]
		balance := a.Initial
		for _, x := range sums[a.ID] {
			balance = balance.Add(x.Amount)
		}
		a.Balance = balance
	}
}
