package storage

import (
	"sort"

	"github.com/tolelom/dancore/core"
)

// poolUpdatesBetween returns the pool-state updates recorded against any
// of the state-changing blocks between locked and leaf, both included — the "transaction-pool view between two blocks" walk of
// spec.md §4.1.
func (t *ReadTx) poolUpdatesBetween(locked, leaf core.BlockId) ([]core.TransactionPoolStateUpdate, error) {
	changeBlocks, err := t.BlockIdsThatChangeStateBetween(locked, leaf)
	if err != nil {
		return nil, err
	}
	inRange := make(map[core.BlockId]bool, len(changeBlocks))
	for _, id := range changeBlocks {
		inRange[id] = true
	}
	out := make([]core.TransactionPoolStateUpdate, 0)
	for _, u := range t.s.state.PoolUpdates {
		if inRange[u.BlockId] {
			out = append(out, u)
		}
	}
	return out, nil
}

// TransactionPoolExists reports whether txId has a pool record.
func (t *ReadTx) TransactionPoolExists(txId core.TxId) bool {
	_, ok := t.s.state.PoolRecords[txId]
	return ok
}

// TransactionPoolSize returns the number of transactions currently tracked
// by the pool, for ambient gauge reporting.
func (t *ReadTx) TransactionPoolSize() int {
	return len(t.s.state.PoolRecords)
}

// TransactionPoolGetRecord returns the base (non-speculative) pool record
// for txId, without overlaying any per-block state update.
func (t *ReadTx) TransactionPoolGetRecord(txId core.TxId) (core.TransactionPoolRecord, error) {
	rec, ok := t.s.state.PoolRecords[txId]
	if !ok {
		return core.TransactionPoolRecord{}, core.NewStorageError(core.StorageErrNotFound, "transaction %s not in pool", txId)
	}
	return *rec, nil
}

// TransactionPoolGet returns the effective pool record for txId along the
// chain ending at leaf (spec.md §4.1/§4.2 get).
func (t *ReadTx) TransactionPoolGet(txId core.TxId, leaf core.BlockId) (core.TransactionPoolRecord, error) {
	rec, ok := t.s.state.PoolRecords[txId]
	if !ok {
		return core.TransactionPoolRecord{}, core.NewStorageError(core.StorageErrNotFound, "transaction %s not in pool", txId)
	}
	locked, err := t.LockedBlockGet()
	lockedId := core.GenesisBlockId
	if err == nil {
		lockedId = locked.BlockId
	} else if !isNotFound(err) {
		return core.TransactionPoolRecord{}, err
	}
	updates, err := t.poolUpdatesBetween(lockedId, leaf)
	if err != nil {
		return core.TransactionPoolRecord{}, err
	}
	latest := core.LatestUpdates(updates)
	effective := *rec
	if u, ok := latest[txId]; ok {
		effective = effective.Apply(u)
	}
	return effective, nil
}

// TransactionPoolGetForBlocks applies the latest pool-state update for
// txId along the chain between from and to (spec.md §4.1 get_for_blocks).
func (t *ReadTx) TransactionPoolGetForBlocks(from, to core.BlockId, txId core.TxId) (core.TransactionPoolRecord, error) {
	rec, ok := t.s.state.PoolRecords[txId]
	if !ok {
		return core.TransactionPoolRecord{}, core.NewStorageError(core.StorageErrNotFound, "transaction %s not in pool", txId)
	}
	updates, err := t.poolUpdatesBetween(from, to)
	if err != nil {
		return core.TransactionPoolRecord{}, err
	}
	latest := core.LatestUpdates(updates)
	effective := *rec
	if u, ok := latest[txId]; ok {
		effective = effective.Apply(u)
	}
	return effective, nil
}

// TransactionPoolInsert inserts atom as a New pool record, ready unless the
// atom's decision is Deferred; it is a no-op if a record already exists
// (spec.md §4.2 insert).
func (t *WriteTx) TransactionPoolInsert(atom core.TransactionAtom) error {
	if _, exists := t.s.state.PoolRecords[atom.TxId]; exists {
		return nil
	}
	t.s.state.PoolRecords[atom.TxId] = &core.TransactionPoolRecord{
		TxId:           atom.TxId,
		Stage:          core.StageNew,
		IsReady:        atom.Decision != core.DecisionDeferred,
		RemoteEvidence: atom.Evidence,
		TransactionFee: atom.Fee,
	}
	t.markDirty()
	return nil
}

// TransactionPoolGetManyReady returns up to max pool records whose
// effective is_ready is true between LockedBlock and leaf, ascending by
// tx_id (spec.md §4.1/§4.2 get_many_ready).
func (t *ReadTx) TransactionPoolGetManyReady(max int, leaf core.BlockId) ([]core.TransactionPoolRecord, error) {
	locked, err := t.LockedBlockGet()
	lockedId := core.GenesisBlockId
	if err == nil {
		lockedId = locked.BlockId
	} else if !isNotFound(err) {
		return nil, err
	}
	updates, err := t.poolUpdatesBetween(lockedId, leaf)
	if err != nil {
		return nil, err
	}
	latest := core.LatestUpdates(updates)

	ids := make([]core.TxId, 0, len(t.s.state.PoolRecords))
	for id := range t.s.state.PoolRecords {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	out := make([]core.TransactionPoolRecord, 0, max)
	for _, id := range ids {
		if max > 0 && len(out) >= max {
			break
		}
		rec := *t.s.state.PoolRecords[id]
		if u, ok := latest[id]; ok {
			rec = rec.Apply(u)
		}
		if rec.IsReady {
			out = append(out, rec)
		}
	}
	return out, nil
}

// TransactionPoolUpdateLocalDecision writes a pool-state update keyed by
// (tx_id, block_id) recording the local decision (spec.md §4.2
// update_local_decision).
func (t *WriteTx) TransactionPoolUpdateLocalDecision(txId core.TxId, blockId core.BlockId, decision core.Decision) error {
	block, ok := t.s.state.Blocks[blockId]
	if !ok {
		return core.NewStorageError(core.StorageErrNotFound, "block %s not found", blockId)
	}
	if _, ok := t.s.state.PoolRecords[txId]; !ok {
		return core.NewStorageError(core.StorageErrNotFound, "transaction %s not in pool", txId)
	}
	// Carry forward the effective stage/readiness as of blockId rather than
	// the never-mutated base record, so a decision update doesn't regress a
	// prior speculative stage advance recorded along the same chain.
	effective, err := t.TransactionPoolGet(txId, blockId)
	if err != nil {
		return err
	}
	t.s.state.NextUpdateID++
	t.s.state.PoolUpdates = append(t.s.state.PoolUpdates, core.TransactionPoolStateUpdate{
		Id: t.s.state.NextUpdateID, TxId: txId, BlockId: blockId, BlockHeight: block.Height,
		Stage: effective.Stage, IsReady: effective.IsReady, LocalDecision: decision,
	})
	t.markDirty()
	return nil
}

// TransactionPoolAdvanceStage writes a pool-state update moving txId to
// stage with the given readiness, keyed by (tx_id, block_id). Idempotent
// per (tx_id, block_id): re-advancing to the same stage with the same
// readiness is a no-op (spec.md
// §4.2 "Stage advance is idempotent").
func (t *WriteTx) TransactionPoolAdvanceStage(txId core.TxId, blockId core.BlockId, stage core.PoolStage, isReady bool) error {
	block, ok := t.s.state.Blocks[blockId]
	if !ok {
		return core.NewStorageError(core.StorageErrNotFound, "block %s not found", blockId)
	}
	for _, u := range t.s.state.PoolUpdates {
		if u.TxId == txId && u.BlockId == blockId && u.Stage == stage && u.IsReady == isReady {
			return nil
		}
	}
	t.s.state.NextUpdateID++
	t.s.state.PoolUpdates = append(t.s.state.PoolUpdates, core.TransactionPoolStateUpdate{
		Id: t.s.state.NextUpdateID, TxId: txId, BlockId: blockId, BlockHeight: block.Height,
		Stage: stage, IsReady: isReady,
	})
	t.markDirty()
	return nil
}

// TransactionsGet returns the executed/deferred transaction record, if
// one has been recorded.
func (t *ReadTx) TransactionsGet(txId core.TxId) (*core.TransactionRecord, error) {
	rec, ok := t.s.state.Transactions[txId]
	if !ok {
		return nil, core.NewStorageError(core.StorageErrNotFound, "transaction %s not found", txId)
	}
	return rec, nil
}

// TransactionsInsert persists or overwrites a transaction record.
func (t *WriteTx) TransactionsInsert(rec *core.TransactionRecord) {
	cp := *rec
	t.s.state.Transactions[rec.TxId] = &cp
	t.markDirty()
}
