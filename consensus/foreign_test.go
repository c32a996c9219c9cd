package consensus_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tolelom/dancore/consensus"
	"github.com/tolelom/dancore/core"
	"github.com/tolelom/dancore/internal/testutil"
	"github.com/tolelom/dancore/storage"
)

func TestForeignCoordinatorAllNewAndAllProposed(t *testing.T) {
	store, err := testutil.NewStore()
	require.NoError(t, err)
	newFp := &core.ForeignProposal{Bucket: 1, BlockId: core.BlockIdFromHash([]byte("new")), State: core.ForeignProposalNew}
	proposedFp := &core.ForeignProposal{Bucket: 1, BlockId: core.BlockIdFromHash([]byte("proposed")), State: core.ForeignProposalProposed, ProposedHeight: 5}

	require.NoError(t, store.WithWriteTx(func(tx *storage.WriteTx) error {
		tx.ForeignProposalsInsert(newFp)
		tx.ForeignProposalsInsert(proposedFp)
		return nil
	}))

	coord := consensus.NewForeignCoordinator(store)
	all, err := coord.AllNew()
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, newFp.BlockId, all[0].BlockId)

	proposed, err := coord.AllProposed(10)
	require.NoError(t, err)
	require.Len(t, proposed, 1)
	require.Equal(t, proposedFp.BlockId, proposed[0].BlockId)

	tooEarly, err := coord.AllProposed(1)
	require.NoError(t, err)
	require.Empty(t, tooEarly)
}

func TestHasUnresolvedTransactionsReflectsPoolStage(t *testing.T) {
	store, err := testutil.NewStore()
	require.NoError(t, err)
	txId := core.TxId(core.QcIdFromHash([]byte("tx")))
	genesis := insertGenesis(t, store)
	fp := &core.ForeignProposal{Transactions: []core.TxId{txId}}

	require.NoError(t, store.WithWriteTx(func(tx *storage.WriteTx) error {
		tx.TransactionsInsert(&core.TransactionRecord{TxId: txId, Decision: core.DecisionCommit, IsExecuted: true})
		return tx.TransactionPoolInsert(core.TransactionAtom{TxId: txId})
	}))

	require.NoError(t, store.WithReadTx(func(tx *storage.ReadTx) error {
		require.True(t, consensus.HasUnresolvedTransactions(tx, fp))
		return nil
	}))

	require.NoError(t, store.WithWriteTx(func(tx *storage.WriteTx) error {
		return tx.TransactionPoolAdvanceStage(txId, genesis.Id, core.StageAllPrepared, true)
	}))

	require.NoError(t, store.WithReadTx(func(tx *storage.ReadTx) error {
		require.False(t, consensus.HasUnresolvedTransactions(tx, fp))
		return nil
	}))
}
