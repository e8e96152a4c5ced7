// Package syncer reconciles the local encrypted ledger with a remote
// snapshot. The remote holds a single sealed blob and never sees plaintext:
// the payload key is derived from a passphrase supplied per sync run.
package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/etnz/bdgt/store"
)

// ErrTransport reports a failure reaching or updating the remote.
var ErrTransport = errors.New("sync transport failed")

// ErrDecrypt reports a remote snapshot that is structurally broken.
var ErrDecrypt = errors.New("cannot decrypt snapshot")

// ErrPassphraseRequired reports a sync attempt without a passphrase.
var ErrPassphraseRequired = errors.New("passphrase is required")

// ErrPassphraseRejected reports a passphrase that does not open the remote
// snapshot.
var ErrPassphraseRejected = errors.New("passphrase rejected")

// stateFile records the engine's local working state inside the budget root.
const stateFile = "sync.state"

// Engine synchronizes one local store with one remote.
type Engine struct {
	store  *store.Store
	root   string
	mu     sync.Mutex
	remote Remote
}

// New returns an engine for the store rooted at root. remote may be nil
// until SetRemote is called.
func New(s *store.Store, root string, remote Remote) *Engine {
	return &Engine{store: s, root: root, remote: remote}
}

// SetRemote reconfigures the sync target. It does not trigger a sync.
func (e *Engine) SetRemote(r Remote) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.remote = r
}

// state is the engine's persisted working state.
type state struct {
	LastSync time.Time `json:"last_sync"`
}

// LastSync returns the time of the last successful sync, zero if none.
func (e *Engine) LastSync() time.Time {
	data, err := os.ReadFile(filepath.Join(e.root, stateFile))
	if err != nil {
		return time.Time{}
	}
	var st state
	if err := json.Unmarshal(data, &st); err != nil {
		return time.Time{}
	}
	return st.LastSync
}

// Sync runs one full reconciliation:
//
//  1. derive the payload key from the passphrase,
//  2. fetch and decrypt the remote snapshot (absence makes the local store
//     authoritative),
//  3. merge row-sets, last writer wins,
//  4. recompute derived balances,
//  5. persist the merged state locally in one atomic commit,
//  6. publish the re-encrypted merged state.
//
// A failure at any step leaves both sides as they were: the local store
// mutates only after a successful decrypt and merge, and the remote is
// rewritten only after a successful local commit. Concurrent calls are
// serialized.
func (e *Engine) Sync(ctx context.Context, passphrase []byte) error {
	if len(passphrase) == 0 {
		return ErrPassphraseRequired
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.remote == nil {
		return fmt.Errorf("no remote configured")
	}

	var local *store.ChangeSet
	err := e.store.View(func(tx *store.Tx) error {
		var err error
		local, err = tx.Changed(time.Time{})
		return err
	})
	if err != nil {
		return fmt.Errorf("read local state: %w", err)
	}

	merged := local
	data, err := e.remote.Fetch(ctx)
	switch {
	case errors.Is(err, ErrNoSnapshot):
		log.Printf("sync: remote is empty, local state is authoritative")
	case err != nil:
		return err
	default:
		remote, err := openSnapshot(passphrase, data)
		if err != nil {
			return err
		}
		merged = mergeSets(local, remote)
	}

	recomputeBalances(merged)

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := e.store.Update(func(tx *store.Tx) error { return tx.PutAll(merged) }); err != nil {
		return fmt.Errorf("persist merged state: %w", err)
	}

	sealed, err := sealSnapshot(passphrase, merged)
	if err != nil {
		return err
	}
	if err := e.remote.Publish(ctx, sealed); err != nil {
		return err
	}

	if err := e.saveState(state{LastSync: time.Now().UTC()}); err != nil {
		// The sync itself succeeded; a stale state file only affects
		// diagnostics.
		log.Printf("sync: could not save state: %v", err)
	}
	return nil
}

func (e *Engine) saveState(st state) error {
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(e.root, stateFile), data, 0600)
}
