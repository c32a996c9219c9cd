package storage

import (
	"sort"

	"github.com/tolelom/dancore/core"
)

// SubstatesGet returns a specific version of substateId.
func (t *ReadTx) SubstatesGet(id core.VersionedSubstateId) (*core.SubstateRecord, error) {
	versions, ok := t.s.state.Substates[id.SubstateId]
	if !ok {
		return nil, core.NewStorageError(core.StorageErrNotFound, "substate %s not found", id.SubstateId)
	}
	rec, ok := versions[id.Version]
	if !ok {
		return nil, core.NewStorageError(core.StorageErrNotFound, "substate %s version %d not found", id.SubstateId, id.Version)
	}
	return rec, nil
}

// SubstatesGetAnyMaxVersion returns the highest version recorded for
// substateId.
func (t *ReadTx) SubstatesGetAnyMaxVersion(id core.SubstateId) (*core.SubstateRecord, error) {
	versions, ok := t.s.state.Substates[id]
	if !ok || len(versions) == 0 {
		return nil, core.NewStorageError(core.StorageErrNotFound, "substate %s not found", id)
	}
	var best *core.SubstateRecord
	for v, rec := range versions {
		if best == nil || v > best.Version {
			best = rec
		}
	}
	return best, nil
}

// SubstatesGetAny resolves req to a specific version: the requested
// version if req.Version != 0, otherwise the highest known version
// (spec.md §4.1 get_any: "version = requested or MAX").
func (t *ReadTx) SubstatesGetAny(req core.VersionedSubstateId) (*core.SubstateRecord, error) {
	if req.Version != 0 {
		return t.SubstatesGet(req)
	}
	return t.SubstatesGetAnyMaxVersion(req.SubstateId)
}

// SubstatesGetManyWithinRange returns every non-destroyed substate version
// created within [start, end] of block height, excluding the ids in
// exclude.
func (t *ReadTx) SubstatesGetManyWithinRange(start, end core.NodeHeight, exclude map[core.SubstateId]bool) []*core.SubstateRecord {
	out := make([]*core.SubstateRecord, 0)
	for id, versions := range t.s.state.Substates {
		if exclude[id] {
			continue
		}
		for _, rec := range versions {
			if rec.IsDestroyed() {
				continue
			}
			block, ok := t.s.state.Blocks[rec.CreatedByBlock]
			if !ok || block.Height < start || block.Height > end {
				continue
			}
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SubstateId != out[j].SubstateId {
			return out[i].SubstateId < out[j].SubstateId
		}
		return out[i].Version < out[j].Version
	})
	return out
}

// SubstatesGetManyByCreatedTransaction returns every substate version
// created by txId.
func (t *ReadTx) SubstatesGetManyByCreatedTransaction(txId core.TxId) []*core.SubstateRecord {
	out := make([]*core.SubstateRecord, 0)
	for _, versions := range t.s.state.Substates {
		for _, rec := range versions {
			if rec.CreatedByTransaction == txId {
				out = append(out, rec)
			}
		}
	}
	return out
}

// SubstatesGetManyByDestroyedTransaction returns every substate version
// destroyed by txId.
func (t *ReadTx) SubstatesGetManyByDestroyedTransaction(txId core.TxId) []*core.SubstateRecord {
	out := make([]*core.SubstateRecord, 0)
	for _, versions := range t.s.state.Substates {
		for _, rec := range versions {
			if rec.DestroyedByTransaction != nil && *rec.DestroyedByTransaction == txId {
				out = append(out, rec)
			}
		}
	}
	return out
}

// SubstatesGetAllForBlock returns every substate version created by block.
func (t *ReadTx) SubstatesGetAllForBlock(block core.BlockId) []*core.SubstateRecord {
	out := make([]*core.SubstateRecord, 0)
	for _, versions := range t.s.state.Substates {
		for _, rec := range versions {
			if rec.CreatedByBlock == block {
				out = append(out, rec)
			}
		}
	}
	return out
}

// SubstatesGetAllForTransaction returns every substate version created or
// destroyed by txId.
func (t *ReadTx) SubstatesGetAllForTransaction(txId core.TxId) []*core.SubstateRecord {
	created := t.SubstatesGetManyByCreatedTransaction(txId)
	destroyed := t.SubstatesGetManyByDestroyedTransaction(txId)
	return append(created, destroyed...)
}

// SubstatesAnyExist reports whether any of ids is already recorded.
func (t *ReadTx) SubstatesAnyExist(ids []core.VersionedSubstateId) bool {
	for _, id := range ids {
		if versions, ok := t.s.state.Substates[id.SubstateId]; ok {
			if _, ok := versions[id.Version]; ok {
				return true
			}
		}
	}
	return false
}

// SubstatesExistsForTransaction reports whether txId created or destroyed
// any substate.
func (t *ReadTx) SubstatesExistsForTransaction(txId core.TxId) bool {
	return len(t.SubstatesGetAllForTransaction(txId)) > 0
}

// SubstatesInsert records a new substate version. At most one
// non-destroyed version per SubstateId is expected (spec.md §3 invariant);
// enforcement is the caller's (txpool/consensus's) responsibility.
func (t *WriteTx) SubstatesInsert(rec *core.SubstateRecord) {
	versions, ok := t.s.state.Substates[rec.SubstateId]
	if !ok {
		versions = make(map[uint32]*core.SubstateRecord)
		t.s.state.Substates[rec.SubstateId] = versions
	}
	cp := *rec
	versions[rec.Version] = &cp
	t.markDirty()
}

// SubstatesMarkDestroyed marks a substate version destroyed by txId/block.
func (t *WriteTx) SubstatesMarkDestroyed(id core.VersionedSubstateId, txId core.TxId, block core.BlockId) error {
	versions, ok := t.s.state.Substates[id.SubstateId]
	if !ok {
		return core.NewStorageError(core.StorageErrNotFound, "substate %s not found", id.SubstateId)
	}
	rec, ok := versions[id.Version]
	if !ok {
		return core.NewStorageError(core.StorageErrNotFound, "substate %s version %d not found", id.SubstateId, id.Version)
	}
	rec.DestroyedByTransaction = &txId
	rec.DestroyedByBlock = &block
	t.markDirty()
	return nil
}

// LocksGetAllForBlock walks the chain from genesis to blockId restricted
// to state-changing blocks, aggregating locks into an insertion-ordered
// map substate_id → [LockedSubstate] (spec.md §4.1 locks_get_all_for_block).
// This walks from genesis every call and is not optimised — spec.md §9
// Open Question (ii) leaves that optimisation explicitly out of scope.
func (t *ReadTx) LocksGetAllForBlock(blockId core.BlockId) ([]core.SubstateId, map[core.SubstateId][]core.LockedSubstate, error) {
	changeBlocks, err := t.BlockIdsThatChangeStateBetween(core.GenesisBlockId, blockId)
	if err != nil {
		return nil, nil, err
	}
	inRange := make(map[core.BlockId]bool, len(changeBlocks))
	for _, id := range changeBlocks {
		inRange[id] = true
	}
	order := make([]core.SubstateId, 0)
	out := make(map[core.SubstateId][]core.LockedSubstate)
	for _, lock := range t.s.state.Locks {
		if !inRange[lock.BlockId] {
			continue
		}
		if _, seen := out[lock.SubstateId]; !seen {
			order = append(order, lock.SubstateId)
		}
		out[lock.SubstateId] = append(out[lock.SubstateId], lock)
	}
	return order, out, nil
}

// LocksGetLatestForSubstate returns the most recently recorded lock on
// substateId, if any.
func (t *ReadTx) LocksGetLatestForSubstate(substateId core.SubstateId) (core.LockedSubstate, bool) {
	var latest core.LockedSubstate
	found := false
	for _, lock := range t.s.state.Locks {
		if lock.SubstateId == substateId {
			latest = lock
			found = true
		}
	}
	return latest, found
}

// LocksInsert records block's speculative lock on substateId.
func (t *WriteTx) LocksInsert(lock core.LockedSubstate) {
	t.s.state.Locks = append(t.s.state.Locks, lock)
	t.markDirty()
}
