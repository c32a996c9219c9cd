package consensus

import (
	"github.com/tolelom/dancore/core"
	"github.com/tolelom/dancore/storage"
)

// ForeignCoordinator is C6: read-only query surface over foreign-proposal
// bookkeeping (spec.md §4.6). The mutating reconciliation logic itself
// lives in Handler.reconcileForeignProposals, since it must run inside the
// same write transaction as block persistence (spec.md §5 "the write
// transaction's scope encloses all reads and writes for one proposal").
type ForeignCoordinator struct {
	store *storage.Store
}

// NewForeignCoordinator wraps store's foreign-proposal query operations.
func NewForeignCoordinator(store *storage.Store) *ForeignCoordinator {
	return &ForeignCoordinator{store: store}
}

// AllNew returns every foreign proposal still in state New.
func (c *ForeignCoordinator) AllNew() ([]*core.ForeignProposal, error) {
	var out []*core.ForeignProposal
	err := c.store.WithReadTx(func(tx *storage.ReadTx) error {
		out = tx.ForeignProposalsGetAllNew()
		return nil
	})
	return out, err
}

// AllPending scans commands in the state-changing blocks from from to to
// (both included) for ForeignProposal commands still in state Proposed
// (spec.md §4.6).
func (c *ForeignCoordinator) AllPending(from, to core.BlockId) ([]*core.ForeignProposal, error) {
	var out []*core.ForeignProposal
	err := c.store.WithReadTx(func(tx *storage.ReadTx) error {
		pending, perr := tx.ForeignProposalsGetAllPending(from, to)
		if perr != nil {
			return perr
		}
		out = pending
		return nil
	})
	return out, err
}

// AllProposed returns every foreign proposal in state Proposed with
// ProposedHeight ≤ upToHeight.
func (c *ForeignCoordinator) AllProposed(upToHeight core.NodeHeight) ([]*core.ForeignProposal, error) {
	var out []*core.ForeignProposal
	err := c.store.WithReadTx(func(tx *storage.ReadTx) error {
		out = tx.ForeignProposalsGetAllProposed(upToHeight)
		return nil
	})
	return out, err
}

// HasUnresolvedTransactions reports whether fp still has a finalized
// transaction sitting in pool stage New or Prepared — the condition that
// prevents its deletion (spec.md §4.2 "Failure semantics").
func HasUnresolvedTransactions(tx *storage.ReadTx, fp *core.ForeignProposal) bool {
	for _, txId := range fp.Transactions {
		rec, err := tx.TransactionsGet(txId)
		if err != nil || !rec.IsFinalized() {
			continue
		}
		poolRec, err := tx.TransactionPoolGetRecord(txId)
		if err != nil {
			continue
		}
		if poolRec.Stage == core.StageNew || poolRec.Stage == core.StagePrepared {
			return true
		}
	}
	return false
}
