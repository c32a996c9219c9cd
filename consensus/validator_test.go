package consensus_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tolelom/dancore/consensus"
	"github.com/tolelom/dancore/core"
	"github.com/tolelom/dancore/crypto"
	"github.com/tolelom/dancore/internal/testutil"
	"github.com/tolelom/dancore/storage"
)

var leaderKey = crypto.PublicKey("leader")

func testCommittee() (consensus.Committee, consensus.CommitteeInfo) {
	return consensus.Committee{Members: []crypto.PublicKey{leaderKey}}, consensus.CommitteeInfo{Shard: 0, NumCommittees: 1}
}

func insertGenesis(t *testing.T, store *storage.Store) *core.Block {
	t.Helper()
	genesis := &core.Block{Id: core.GenesisBlockId, ParentId: core.GenesisBlockId, JustifyId: core.GenesisQcId}
	qc := &core.QuorumCertificate{Id: core.GenesisQcId, BlockId: core.GenesisBlockId, Decision: core.VoteAccept}
	require.NoError(t, store.WithWriteTx(func(tx *storage.WriteTx) error {
		require.NoError(t, tx.QuorumCertificatesInsert(qc))
		return tx.BlockInsert(genesis)
	}))
	return genesis
}

func TestValidateLocalProposedBlockRejectsAlreadyProcessed(t *testing.T) {
	store, err := testutil.NewStore()
	require.NoError(t, err)
	genesis := insertGenesis(t, store)
	committee, info := testCommittee()

	err = store.WithWriteTx(func(tx *storage.WriteTx) error {
		justify := &core.QuorumCertificate{Id: core.GenesisQcId, BlockId: genesis.Id}
		_, err := consensus.ValidateLocalProposedBlock(tx, genesis, justify, committee, info, consensus.RoundRobinLeaderStrategy{})
		return err
	})
	require.Error(t, err)
	var ve *consensus.ProposalValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, consensus.ErrBlockAlreadyProcessed, ve.Kind)
}

func TestValidateLocalProposedBlockRejectsMissingJustify(t *testing.T) {
	store, err := testutil.NewStore()
	require.NoError(t, err)
	insertGenesis(t, store)
	committee, info := testCommittee()
	candidate := &core.Block{ParentId: core.GenesisBlockId, Height: 1}
	candidate.Id = candidate.ComputeId()

	err = store.WithWriteTx(func(tx *storage.WriteTx) error {
		justify := &core.QuorumCertificate{Id: core.QcIdFromHash([]byte("missing")), BlockId: core.BlockIdFromHash([]byte("missing"))}
		_, err := consensus.ValidateLocalProposedBlock(tx, candidate, justify, committee, info, consensus.RoundRobinLeaderStrategy{})
		return err
	})
	require.Error(t, err)
	require.True(t, consensus.IsJustifyNotFound(err))
}

func TestValidateLocalProposedBlockPropagatesFatalStorageErrorFromJustifyLookup(t *testing.T) {
	store, err := testutil.NewStore()
	require.NoError(t, err)
	insertGenesis(t, store)
	committee, info := testCommittee()

	// A block whose JustifyId references no stored QC: BlockGet surfaces
	// this as StorageErrDbInconsistency, not StorageErrNotFound, and it
	// must propagate as fatal rather than be demoted to "go sync".
	corrupt := &core.Block{ParentId: core.GenesisBlockId, JustifyId: core.QcIdFromHash([]byte("dangling")), Height: 1}
	corrupt.Id = corrupt.ComputeId()
	candidate := &core.Block{ParentId: corrupt.Id, Height: 2}
	candidate.Id = candidate.ComputeId()

	err = store.WithWriteTx(func(tx *storage.WriteTx) error {
		require.NoError(t, tx.BlockInsert(corrupt))
		justify := &core.QuorumCertificate{Id: core.QcIdFromHash([]byte("j")), BlockId: corrupt.Id}
		_, err := consensus.ValidateLocalProposedBlock(tx, candidate, justify, committee, info, consensus.RoundRobinLeaderStrategy{})
		return err
	})
	require.Error(t, err)
	require.True(t, core.IsFatalStorageErr(err))
	require.False(t, consensus.IsJustifyNotFound(err))
	var ve *consensus.ProposalValidationError
	require.False(t, errors.As(err, &ve), "a fatal storage error must not be wrapped as a ProposalValidationError")
}

func TestValidateLocalProposedBlockRejectsJustifyHeightMismatch(t *testing.T) {
	store, err := testutil.NewStore()
	require.NoError(t, err)
	genesis := insertGenesis(t, store)
	committee, info := testCommittee()
	candidate := &core.Block{ParentId: genesis.Id, Height: 1}
	candidate.Id = candidate.ComputeId()

	err = store.WithWriteTx(func(tx *storage.WriteTx) error {
		justify := &core.QuorumCertificate{Id: core.GenesisQcId, BlockId: genesis.Id, BlockHeight: 99}
		_, err := consensus.ValidateLocalProposedBlock(tx, candidate, justify, committee, info, consensus.RoundRobinLeaderStrategy{})
		return err
	})
	require.Error(t, err)
	var ve *consensus.ProposalValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, consensus.ErrJustifyBlockInvalid, ve.Kind)
}

func TestValidateLocalProposedBlockAcceptsGenesisShortCircuit(t *testing.T) {
	store, err := testutil.NewStore()
	require.NoError(t, err)
	genesis := insertGenesis(t, store)
	committee, info := testCommittee()
	candidate := &core.Block{ParentId: genesis.Id, Height: 1}
	candidate.Id = candidate.ComputeId()

	var vb *consensus.ValidBlock
	err = store.WithWriteTx(func(tx *storage.WriteTx) error {
		justify := &core.QuorumCertificate{Id: core.GenesisQcId, BlockId: genesis.Id, BlockHeight: 0}
		v, err := consensus.ValidateLocalProposedBlock(tx, candidate, justify, committee, info, consensus.RoundRobinLeaderStrategy{})
		vb = v
		return err
	})
	require.NoError(t, err)
	require.NotNil(t, vb)
	require.Empty(t, vb.Dummies)
}

func TestValidateLocalProposedBlockRejectsNonMonotonicHeight(t *testing.T) {
	store, err := testutil.NewStore()
	require.NoError(t, err)
	genesis := insertGenesis(t, store)
	parentQc := &core.QuorumCertificate{Id: core.QcIdFromHash([]byte("p")), BlockId: genesis.Id, BlockHeight: 0}
	parent := &core.Block{ParentId: genesis.Id, JustifyId: parentQc.Id, Height: 5}
	parent.Id = parent.ComputeId()
	require.NoError(t, store.WithWriteTx(func(tx *storage.WriteTx) error {
		require.NoError(t, tx.QuorumCertificatesInsert(parentQc))
		return tx.BlockInsert(parent)
	}))

	committee, info := testCommittee()
	candidate := &core.Block{ParentId: parent.Id, Height: 1}
	candidate.Id = candidate.ComputeId()

	err = store.WithWriteTx(func(tx *storage.WriteTx) error {
		justify := &core.QuorumCertificate{Id: core.QcIdFromHash([]byte("j")), BlockId: parent.Id, BlockHeight: 5}
		_, err := consensus.ValidateLocalProposedBlock(tx, candidate, justify, committee, info, consensus.RoundRobinLeaderStrategy{})
		return err
	})
	require.Error(t, err)
	var ve *consensus.ProposalValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, consensus.ErrCandidateNotHigherThanJustify, ve.Kind)
}

func TestValidateLocalProposedBlockSynthesizesDummyChainAcrossGap(t *testing.T) {
	store, err := testutil.NewStore()
	require.NoError(t, err)
	genesis := insertGenesis(t, store)
	justifyQc := &core.QuorumCertificate{Id: core.QcIdFromHash([]byte("j")), BlockId: genesis.Id, BlockHeight: 0}
	require.NoError(t, store.WithWriteTx(func(tx *storage.WriteTx) error {
		return tx.QuorumCertificatesInsert(justifyQc)
	}))
	committee, info := testCommittee()

	dummy1 := core.NewDummyBlock("net", genesis.Id, leaderKey, 1, justifyQc.Id, 0, info.Shard, genesis.MerkleRoot, genesis.Timestamp, genesis.BaseLayerBlockHeight, genesis.BaseLayerBlockHash)
	dummy2 := core.NewDummyBlock("net", dummy1.Id, leaderKey, 2, justifyQc.Id, 0, info.Shard, dummy1.MerkleRoot, dummy1.Timestamp, dummy1.BaseLayerBlockHeight, dummy1.BaseLayerBlockHash)

	candidate := &core.Block{Network: "net", ParentId: dummy2.Id, Height: 3}
	candidate.Id = candidate.ComputeId()

	var vb *consensus.ValidBlock
	err = store.WithWriteTx(func(tx *storage.WriteTx) error {
		v, err := consensus.ValidateLocalProposedBlock(tx, candidate, justifyQc, committee, info, consensus.RoundRobinLeaderStrategy{})
		vb = v
		return err
	})
	require.NoError(t, err)
	require.NotNil(t, vb)
	require.Len(t, vb.Dummies, 2)
	require.Equal(t, dummy1.Id, vb.Dummies[0].Id)
	require.Equal(t, dummy2.Id, vb.Dummies[1].Id)
}

func TestValidateLocalProposedBlockSkipsSafetyCheckWithNoLockedBlockYet(t *testing.T) {
	store, err := testutil.NewStore()
	require.NoError(t, err)
	genesis := insertGenesis(t, store)
	committee, info := testCommittee()

	parentQc := &core.QuorumCertificate{Id: core.QcIdFromHash([]byte("p")), BlockId: genesis.Id, BlockHeight: 0}
	parent := &core.Block{Network: "net", ParentId: genesis.Id, JustifyId: parentQc.Id, Height: 1}
	parent.Id = parent.ComputeId()
	require.NoError(t, store.WithWriteTx(func(tx *storage.WriteTx) error {
		require.NoError(t, tx.QuorumCertificatesInsert(parentQc))
		return tx.BlockInsert(parent)
	}))

	candidate := &core.Block{Network: "net", ParentId: parent.Id, Height: 2}
	candidate.Id = candidate.ComputeId()

	var vb *consensus.ValidBlock
	err = store.WithWriteTx(func(tx *storage.WriteTx) error {
		justify := &core.QuorumCertificate{Id: parentQc.Id, BlockId: parent.Id, BlockHeight: parent.Height}
		v, err := consensus.ValidateLocalProposedBlock(tx, candidate, justify, committee, info, consensus.RoundRobinLeaderStrategy{})
		vb = v
		return err
	})
	require.NoError(t, err)
	require.NotNil(t, vb)
}

func TestValidateLocalProposedBlockRejectsUnsafeCandidate(t *testing.T) {
	store, err := testutil.NewStore()
	require.NoError(t, err)
	genesis := insertGenesis(t, store)
	committee, info := testCommittee()

	branchAQc := &core.QuorumCertificate{Id: core.QcIdFromHash([]byte("a")), BlockId: genesis.Id, BlockHeight: 0}
	branchA := &core.Block{Network: "net", ParentId: genesis.Id, JustifyId: branchAQc.Id, Height: 1}
	branchA.Id = branchA.ComputeId()

	branchBQc := &core.QuorumCertificate{Id: core.QcIdFromHash([]byte("b")), BlockId: genesis.Id, BlockHeight: 0}
	branchB := &core.Block{Network: "net", ParentId: genesis.Id, JustifyId: branchBQc.Id, Height: 1, Timestamp: 1}
	branchB.Id = branchB.ComputeId()

	require.NoError(t, store.WithWriteTx(func(tx *storage.WriteTx) error {
		require.NoError(t, tx.QuorumCertificatesInsert(branchAQc))
		require.NoError(t, tx.QuorumCertificatesInsert(branchBQc))
		require.NoError(t, tx.BlockInsert(branchA))
		require.NoError(t, tx.BlockInsert(branchB))
		tx.LockedBlockSet(branchA.Id, branchA.Height)
		return nil
	}))

	candidate := &core.Block{Network: "net", ParentId: branchB.Id, JustifyId: branchBQc.Id, Height: 2}
	candidate.Id = candidate.ComputeId()

	err = store.WithWriteTx(func(tx *storage.WriteTx) error {
		justify := &core.QuorumCertificate{Id: branchBQc.Id, BlockId: branchB.Id, BlockHeight: branchB.Height}
		_, err := consensus.ValidateLocalProposedBlock(tx, candidate, justify, committee, info, consensus.RoundRobinLeaderStrategy{})
		return err
	})
	require.Error(t, err)
	var ve *consensus.ProposalValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, consensus.ErrNotSafeBlock, ve.Kind)
}
