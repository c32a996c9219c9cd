package consensus_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tolelom/dancore/consensus"
	"github.com/tolelom/dancore/core"
	"github.com/tolelom/dancore/internal/testutil"
	"github.com/tolelom/dancore/storage"
)

const testEpoch core.Epoch = 0

func newHandler(t *testing.T, store *storage.Store, foreignTimeout core.NodeHeight, pacemaker consensus.Pacemaker) *consensus.Handler {
	t.Helper()
	committee, info := testCommittee()
	em := consensus.NewStaticEpochManager(testEpoch, committee, info)
	return consensus.NewHandler(store, em, consensus.RoundRobinLeaderStrategy{}, pacemaker, nil, foreignTimeout, nil, nil, nil)
}

func TestHandlerAcceptsDirectChildOfGenesis(t *testing.T) {
	store, err := testutil.NewStore()
	require.NoError(t, err)
	genesis := insertGenesis(t, store)
	pacemaker := &consensus.RecordingPacemaker{}
	h := newHandler(t, store, 1000, pacemaker)

	block := &core.Block{Network: "net", Epoch: testEpoch, ParentId: genesis.Id, ProposedBy: leaderKey, Height: 1}
	block.Id = block.ComputeId()
	justify := &core.QuorumCertificate{Id: core.GenesisQcId, BlockId: genesis.Id, Epoch: testEpoch}

	require.NoError(t, h.Handle(consensus.ProposalMessage{Block: block, Justify: justify}))
	require.Equal(t, 1, pacemaker.Calls)
	require.Equal(t, core.NodeHeight(1), pacemaker.LastHeight)

	require.NoError(t, store.WithReadTx(func(tx *storage.ReadTx) error {
		require.True(t, tx.BlockHasBeenProcessed(block.Id))
		return nil
	}))
}

func TestHandlerSynthesizesDummyChainAcrossLeaderGap(t *testing.T) {
	store, err := testutil.NewStore()
	require.NoError(t, err)
	genesis := insertGenesis(t, store)
	justifyQc := &core.QuorumCertificate{Id: core.QcIdFromHash([]byte("j")), BlockId: genesis.Id, BlockHeight: 0, Epoch: testEpoch}
	require.NoError(t, store.WithWriteTx(func(tx *storage.WriteTx) error {
		return tx.QuorumCertificatesInsert(justifyQc)
	}))

	_, info := testCommittee()
	dummy1 := core.NewDummyBlock("net", genesis.Id, leaderKey, 1, justifyQc.Id, testEpoch, info.Shard, "", 0, 0, "")
	dummy2 := core.NewDummyBlock("net", dummy1.Id, leaderKey, 2, justifyQc.Id, testEpoch, info.Shard, "", 0, 0, "")

	block := &core.Block{Network: "net", Epoch: testEpoch, ParentId: dummy2.Id, ProposedBy: leaderKey, Height: 3}
	block.Id = block.ComputeId()

	pacemaker := &consensus.RecordingPacemaker{}
	h := newHandler(t, store, 1000, pacemaker)
	require.NoError(t, h.Handle(consensus.ProposalMessage{Block: block, Justify: justifyQc}))

	require.NoError(t, store.WithReadTx(func(tx *storage.ReadTx) error {
		require.True(t, tx.BlockHasBeenProcessed(dummy1.Id))
		require.True(t, tx.BlockHasBeenProcessed(dummy2.Id))
		require.True(t, tx.BlockHasBeenProcessed(block.Id))
		return nil
	}))
}

func TestHandlerPropagatesJustifyNotFoundToTriggerSync(t *testing.T) {
	store, err := testutil.NewStore()
	require.NoError(t, err)
	insertGenesis(t, store)
	h := newHandler(t, store, 1000, nil)

	block := &core.Block{Network: "net", Epoch: testEpoch, ParentId: core.BlockIdFromHash([]byte("unknown-parent")), ProposedBy: leaderKey, Height: 5}
	block.Id = block.ComputeId()
	justify := &core.QuorumCertificate{Id: core.QcIdFromHash([]byte("missing")), BlockId: core.BlockIdFromHash([]byte("missing")), Epoch: testEpoch}

	err = h.Handle(consensus.ProposalMessage{Block: block, Justify: justify})
	require.Error(t, err)
	require.True(t, consensus.IsJustifyNotFound(err))
}

func TestHandlerIgnoresDuplicateDelivery(t *testing.T) {
	store, err := testutil.NewStore()
	require.NoError(t, err)
	genesis := insertGenesis(t, store)
	pacemaker := &consensus.RecordingPacemaker{}
	h := newHandler(t, store, 1000, pacemaker)

	block := &core.Block{Network: "net", Epoch: testEpoch, ParentId: genesis.Id, ProposedBy: leaderKey, Height: 1}
	block.Id = block.ComputeId()
	justify := &core.QuorumCertificate{Id: core.GenesisQcId, BlockId: genesis.Id, Epoch: testEpoch}
	msg := consensus.ProposalMessage{Block: block, Justify: justify}

	require.NoError(t, h.Handle(msg))
	require.Equal(t, 1, pacemaker.Calls)

	require.NoError(t, h.Handle(msg)) // redelivered
	require.Equal(t, 1, pacemaker.Calls, "duplicate delivery must not re-trigger pacemaker update")
}

func TestHandlerForcesAbortOnUnresolvedForeignProposalTimeout(t *testing.T) {
	store, err := testutil.NewStore()
	require.NoError(t, err)
	genesis := insertGenesis(t, store)
	txId := core.TxId(core.QcIdFromHash([]byte("stuck")))

	fp := core.ForeignProposal{Bucket: 1, BlockId: core.BlockIdFromHash([]byte("remote")), Transactions: []core.TxId{txId}, State: core.ForeignProposalProposed, ProposedHeight: 1}
	require.NoError(t, store.WithWriteTx(func(tx *storage.WriteTx) error {
		tx.TransactionsInsert(&core.TransactionRecord{TxId: txId, Decision: core.DecisionCommit, IsExecuted: true})
		require.NoError(t, tx.TransactionPoolInsert(core.TransactionAtom{TxId: txId}))
		tx.ForeignProposalsInsert(&fp)
		return nil
	}))

	h := newHandler(t, store, 1, nil) // foreignTimeout=1
	block := &core.Block{Network: "net", Epoch: testEpoch, ParentId: genesis.Id, ProposedBy: leaderKey, Height: 3}
	block.Id = block.ComputeId()
	justify := &core.QuorumCertificate{Id: core.GenesisQcId, BlockId: genesis.Id, Epoch: testEpoch}

	require.NoError(t, h.Handle(consensus.ProposalMessage{Block: block, Justify: justify}))

	require.NoError(t, store.WithReadTx(func(tx *storage.ReadTx) error {
		require.True(t, tx.ForeignProposalsExists(fp), "proposal with a freshly-forced abort stays until resolved")
		rec, err := tx.TransactionPoolGetRecord(txId)
		require.NoError(t, err)
		require.Equal(t, core.DecisionAbort, rec.LocalDecision)
		return nil
	}))
}

func TestHandlerDeletesForeignProposalOnceAllTransactionsResolved(t *testing.T) {
	store, err := testutil.NewStore()
	require.NoError(t, err)
	genesis := insertGenesis(t, store)
	txId := core.TxId(core.QcIdFromHash([]byte("resolved")))

	fp := core.ForeignProposal{Bucket: 1, BlockId: core.BlockIdFromHash([]byte("remote")), Transactions: []core.TxId{txId}, State: core.ForeignProposalProposed, ProposedHeight: 1}
	require.NoError(t, store.WithWriteTx(func(tx *storage.WriteTx) error {
		tx.TransactionsInsert(&core.TransactionRecord{TxId: txId, Decision: core.DecisionCommit, IsExecuted: true})
		require.NoError(t, tx.TransactionPoolInsert(core.TransactionAtom{TxId: txId}))
		require.NoError(t, tx.TransactionPoolAdvanceStage(txId, genesis.Id, core.StageAllPrepared, true))
		tx.ForeignProposalsInsert(&fp)
		return nil
	}))

	h := newHandler(t, store, 1, nil)
	block := &core.Block{Network: "net", Epoch: testEpoch, ParentId: genesis.Id, ProposedBy: leaderKey, Height: 3}
	block.Id = block.ComputeId()
	justify := &core.QuorumCertificate{Id: core.GenesisQcId, BlockId: genesis.Id, Epoch: testEpoch}

	require.NoError(t, h.Handle(consensus.ProposalMessage{Block: block, Justify: justify}))

	require.NoError(t, store.WithReadTx(func(tx *storage.ReadTx) error {
		require.False(t, tx.ForeignProposalsExists(fp), "proposal with no unresolved transactions must be deleted")
		return nil
	}))
}
