package storage

import "github.com/tolelom/dancore/core"

// PendingStateTreeDiffsExistsForBlock reports whether blockId has a
// recorded speculative Merkle-tree delta.
func (t *ReadTx) PendingStateTreeDiffsExistsForBlock(blockId core.BlockId) bool {
	_, ok := t.s.state.PendingDiffs[blockId]
	return ok
}

// PendingStateTreeDiffsGetAllUpToCommitBlock walks from commitBlock up to
// (but excluding) blockId, returning the pending diffs recorded along the
// way (spec.md §4.1 get_all_up_to_commit_block).
func (t *ReadTx) PendingStateTreeDiffsGetAllUpToCommitBlock(commitBlock, blockId core.BlockId) ([]*core.PendingStateTreeDiff, error) {
	chain, err := t.blockAncestors(commitBlock, blockId)
	if err != nil {
		return nil, err
	}
	out := make([]*core.PendingStateTreeDiff, 0, len(chain))
	for _, b := range chain {
		if b.Id == commitBlock {
			continue
		}
		if diff, ok := t.s.state.PendingDiffs[b.Id]; ok {
			out = append(out, diff)
		}
	}
	return out, nil
}

// PendingStateTreeDiffsInsert records a speculative diff for blockId.
func (t *WriteTx) PendingStateTreeDiffsInsert(diff *core.PendingStateTreeDiff) {
	cp := *diff
	t.s.state.PendingDiffs[diff.BlockId] = &cp
	t.markDirty()
}

// PendingStateTreeDiffsRemove drops blockId's pending diff once it
// commits (spec.md §3 "Pending state-tree diffs live until their block
// commits").
func (t *WriteTx) PendingStateTreeDiffsRemove(blockId core.BlockId) {
	delete(t.s.state.PendingDiffs, blockId)
	t.markDirty()
}

// BlockDiffGet aggregates blockId's per-row diff records (spec.md §4.1
// block_diff_get).
func (t *ReadTx) BlockDiffGet(blockId core.BlockId) (*core.BlockDiff, error) {
	if diff, ok := t.s.state.BlockDiffs[blockId]; ok {
		return diff, nil
	}
	up := make([]core.BlockDiffRecord, 0)
	down := make([]core.BlockDiffRecord, 0)
	for _, versions := range t.s.state.Substates {
		for _, rec := range versions {
			if rec.CreatedByBlock == blockId {
				up = append(up, core.BlockDiffRecord{
					BlockId: blockId, SubstateId: rec.SubstateId, Version: rec.Version, Data: rec.Data,
				})
			}
			if rec.DestroyedByBlock != nil && *rec.DestroyedByBlock == blockId {
				down = append(down, core.BlockDiffRecord{
					BlockId: blockId, SubstateId: rec.SubstateId, Version: rec.Version, Destroyed: true,
				})
			}
		}
	}
	return &core.BlockDiff{BlockId: blockId, Up: up, Down: down}, nil
}

// BlockDiffsInsert caches a precomputed aggregation for blockId.
func (t *WriteTx) BlockDiffsInsert(diff *core.BlockDiff) {
	cp := *diff
	t.s.state.BlockDiffs[diff.BlockId] = &cp
	t.markDirty()
}
