package storage_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tolelom/dancore/core"
	"github.com/tolelom/dancore/internal/testutil"
	"github.com/tolelom/dancore/storage"
)

// buildGenesis inserts a genesis block and QC into store within their own
// write transaction, returning the genesis block.
func buildGenesis(t *testing.T, store *storage.Store) *core.Block {
	t.Helper()
	genesis := &core.Block{Id: core.GenesisBlockId, ParentId: core.GenesisBlockId, JustifyId: core.GenesisQcId}
	qc := &core.QuorumCertificate{Id: core.GenesisQcId, BlockId: core.GenesisBlockId, Decision: core.VoteAccept}
	require.NoError(t, store.WithWriteTx(func(tx *storage.WriteTx) error {
		require.NoError(t, tx.QuorumCertificatesInsert(qc))
		return tx.BlockInsert(genesis)
	}))
	return genesis
}

// chainBlock builds and inserts a child of parent at height parent.Height+1,
// with its own freshly-minted justify QC pointing at parent.
func chainBlock(t *testing.T, store *storage.Store, parent *core.Block) *core.Block {
	t.Helper()
	qc := &core.QuorumCertificate{Id: core.QcIdFromHash(parent.Id[:], []byte("qc")), BlockId: parent.Id, BlockHeight: parent.Height}
	b := &core.Block{
		ParentId: parent.Id, JustifyId: qc.Id, Height: parent.Height + 1,
		Commands: []core.Command{core.PrepareCommand(core.TransactionAtom{TxId: core.TxId(parent.Id)})},
	}
	b.Id = b.ComputeId()
	require.NoError(t, store.WithWriteTx(func(tx *storage.WriteTx) error {
		require.NoError(t, tx.QuorumCertificatesInsert(qc))
		return tx.BlockInsert(b)
	}))
	return b
}

func TestBlockInsertIsIdempotent(t *testing.T) {
	store, err := testutil.NewStore()
	require.NoError(t, err)
	genesis := buildGenesis(t, store)
	b1 := chainBlock(t, store, genesis)

	require.NoError(t, store.WithWriteTx(func(tx *storage.WriteTx) error {
		return tx.BlockInsert(b1) // same id, second insert
	}))

	require.NoError(t, store.WithReadTx(func(tx *storage.ReadTx) error {
		require.Equal(t, 1, len(tx.BlockGetAllByParent(genesis.Id)))
		return nil
	}))
}

func TestBlockGetJoinsJustify(t *testing.T) {
	store, err := testutil.NewStore()
	require.NoError(t, err)
	genesis := buildGenesis(t, store)
	b1 := chainBlock(t, store, genesis)

	require.NoError(t, store.WithReadTx(func(tx *storage.ReadTx) error {
		bwj, err := tx.BlockGet(b1.Id)
		require.NoError(t, err)
		require.Equal(t, b1.Id, bwj.Block.Id)
		require.Equal(t, b1.JustifyId, bwj.Justify.Id)
		return nil
	}))
}

func TestBlockGetNotFound(t *testing.T) {
	store, err := testutil.NewStore()
	require.NoError(t, err)
	require.NoError(t, store.WithReadTx(func(tx *storage.ReadTx) error {
		_, err := tx.BlockGet(core.BlockIdFromHash([]byte("missing")))
		require.Error(t, err)
		var se *core.StorageError
		require.ErrorAs(t, err, &se)
		require.Equal(t, core.StorageErrNotFound, se.Kind)
		return nil
	}))
}

func TestBlockIdsBetweenOrderedAndBounded(t *testing.T) {
	store, err := testutil.NewStore()
	require.NoError(t, err)
	genesis := buildGenesis(t, store)
	b1 := chainBlock(t, store, genesis)
	b2 := chainBlock(t, store, b1)
	b3 := chainBlock(t, store, b2)

	require.NoError(t, store.WithReadTx(func(tx *storage.ReadTx) error {
		ids, err := tx.BlockIdsBetween(genesis.Id, b3.Id)
		require.NoError(t, err)
		require.Equal(t, []core.BlockId{b3.Id, b2.Id, b1.Id, genesis.Id}, ids)
		return nil
	}))
}

func TestBlockIdsThatChangeStateBetweenFiltersDummiesAndEmpty(t *testing.T) {
	store, err := testutil.NewStore()
	require.NoError(t, err)
	genesis := buildGenesis(t, store)
	b1 := chainBlock(t, store, genesis)

	dummy := core.NewDummyBlock("net", b1.Id, nil, b1.Height+1, b1.JustifyId, 0, 0, "", 0, 0, "")
	require.NoError(t, store.WithWriteTx(func(tx *storage.WriteTx) error { return tx.BlockInsert(dummy) }))

	require.NoError(t, store.WithReadTx(func(tx *storage.ReadTx) error {
		ids, err := tx.BlockIdsThatChangeStateBetween(genesis.Id, dummy.Id)
		require.NoError(t, err)
		require.Equal(t, []core.BlockId{b1.Id}, ids)
		return nil
	}))
}

func TestBlockIsAncestorTerminatesAtGenesis(t *testing.T) {
	store, err := testutil.NewStore()
	require.NoError(t, err)
	genesis := buildGenesis(t, store)
	b1 := chainBlock(t, store, genesis)
	b2 := chainBlock(t, store, b1)

	require.NoError(t, store.WithReadTx(func(tx *storage.ReadTx) error {
		require.True(t, tx.BlockIsAncestor(b2.Id, genesis.Id))
		require.True(t, tx.BlockIsAncestor(b2.Id, b1.Id))
		require.False(t, tx.BlockIsAncestor(genesis.Id, b2.Id))
		return nil
	}))
}

func TestBlockGetTipIsHighestHeight(t *testing.T) {
	store, err := testutil.NewStore()
	require.NoError(t, err)
	genesis := buildGenesis(t, store)
	b1 := chainBlock(t, store, genesis)
	b2 := chainBlock(t, store, b1)

	require.NoError(t, store.WithReadTx(func(tx *storage.ReadTx) error {
		tip, err := tx.BlockGetTip()
		require.NoError(t, err)
		require.Equal(t, b2.Id, tip.Id)
		return nil
	}))
}

func TestBlocksGetPaginatedOrdersByHeightThenId(t *testing.T) {
	store, err := testutil.NewStore()
	require.NoError(t, err)
	genesis := buildGenesis(t, store)
	b1 := chainBlock(t, store, genesis)
	b2 := chainBlock(t, store, b1)

	require.NoError(t, store.WithReadTx(func(tx *storage.ReadTx) error {
		page := tx.BlocksGetPaginated(0, 2)
		require.Len(t, page, 2)
		require.Equal(t, genesis.Id, page[0].Id)
		require.Equal(t, b1.Id, page[1].Id)

		rest := tx.BlocksGetPaginated(2, 10)
		require.Len(t, rest, 1)
		require.Equal(t, b2.Id, rest[0].Id)
		return nil
	}))
}
