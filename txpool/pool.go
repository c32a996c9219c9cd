// Package txpool implements C2: the staged transaction-pool lifecycle
// (spec.md §4.2), a thin state-machine wrapper over storage's
// transaction-pool CRUD.
package txpool

import (
	"github.com/tolelom/dancore/core"
	"github.com/tolelom/dancore/metrics"
	"github.com/tolelom/dancore/storage"
)

// Pool is C2: the transaction-pool state machine. It holds no state of its
// own beyond a storage handle; every method opens its own transaction.
type Pool struct {
	store *storage.Store
	m     *metrics.Metrics
}

// NewPool wraps store's transaction-pool operations. m may be nil.
func NewPool(store *storage.Store, m *metrics.Metrics) *Pool {
	return &Pool{store: store, m: m}
}

// Insert inserts atom as New, ready unless its decision is Deferred; it is
// a no-op if a record already exists for its tx_id (spec.md §4.2 insert).
func (p *Pool) Insert(atom core.TransactionAtom) error {
	var size int
	err := p.store.WithWriteTx(func(tx *storage.WriteTx) error {
		if err := tx.TransactionPoolInsert(atom); err != nil {
			return err
		}
		size = tx.TransactionPoolSize()
		return nil
	})
	if err == nil && p.m != nil {
		p.m.TransactionPoolSize.Set(float64(size))
	}
	return err
}

// Exists reports whether txId has a pool record.
func (p *Pool) Exists(txId core.TxId) (bool, error) {
	var exists bool
	err := p.store.WithReadTx(func(tx *storage.ReadTx) error {
		exists = tx.TransactionPoolExists(txId)
		return nil
	})
	return exists, err
}

// Get returns the effective record for txId along the chain ending at leaf
// (spec.md §4.2 get).
func (p *Pool) Get(txId core.TxId, leaf core.BlockId) (core.TransactionPoolRecord, error) {
	var rec core.TransactionPoolRecord
	err := p.store.WithReadTx(func(tx *storage.ReadTx) error {
		r, gerr := tx.TransactionPoolGet(txId, leaf)
		if gerr != nil {
			return gerr
		}
		rec = r
		return nil
	})
	return rec, err
}

// GetManyReady returns up to max effective-ready records ascending by
// tx_id (spec.md §4.2 get_many_ready).
func (p *Pool) GetManyReady(max int, leaf core.BlockId) ([]core.TransactionPoolRecord, error) {
	var out []core.TransactionPoolRecord
	err := p.store.WithReadTx(func(tx *storage.ReadTx) error {
		recs, gerr := tx.TransactionPoolGetManyReady(max, leaf)
		if gerr != nil {
			return gerr
		}
		out = recs
		return nil
	})
	return out, err
}

// UpdateLocalDecision writes a pool-state update keyed by (tx_id,
// block_id) recording decision (spec.md §4.2 update_local_decision).
func (p *Pool) UpdateLocalDecision(txId core.TxId, blockId core.BlockId, decision core.Decision) error {
	return p.store.WithWriteTx(func(tx *storage.WriteTx) error {
		return tx.TransactionPoolUpdateLocalDecision(txId, blockId, decision)
	})
}

// AdvanceStage writes a pool-state update moving txId to stage at blockId.
// Idempotent per (tx_id, block_id): re-advancing to an identical
// (stage, is_ready) pair is a no-op (spec.md §4.2 "Stage advance is
// idempotent").
func (p *Pool) AdvanceStage(txId core.TxId, blockId core.BlockId, stage core.PoolStage, isReady bool) error {
	return p.store.WithWriteTx(func(tx *storage.WriteTx) error {
		return tx.TransactionPoolAdvanceStage(txId, blockId, stage, isReady)
	})
}
