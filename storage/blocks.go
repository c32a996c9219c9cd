package storage

import (
	"sort"

	"github.com/tolelom/dancore/core"
)

const maxAncestorWalk = 1000

// BlockGet joins a block with its justify QC (spec.md §4.1 block_get).
func (t *ReadTx) BlockGet(id core.BlockId) (core.BlockWithJustify, error) {
	b, ok := t.s.state.Blocks[id]
	if !ok {
		return core.BlockWithJustify{}, core.NewStorageError(core.StorageErrNotFound, "block %s not found", id)
	}
	qc, ok := t.s.state.QCs[b.JustifyId]
	if !ok {
		return core.BlockWithJustify{}, core.NewStorageError(core.StorageErrDbInconsistency,
			"block %s references missing justify qc %s", id, b.JustifyId)
	}
	return core.BlockWithJustify{Block: b, Justify: qc}, nil
}

// BlockExists reports whether id has been inserted.
func (t *ReadTx) BlockExists(id core.BlockId) bool {
	_, ok := t.s.state.Blocks[id]
	return ok
}

// BlockHasBeenProcessed is an alias for BlockExists: every inserted block
// has already been validated (spec.md §4.1).
func (t *ReadTx) BlockHasBeenProcessed(id core.BlockId) bool {
	return t.BlockExists(id)
}

// blockAncestors walks parent links from end down to (and including)
// start, bounded to maxAncestorWalk hops, returning blocks ordered from
// end to start.
func (t *ReadTx) blockAncestors(start, end core.BlockId) ([]*core.Block, error) {
	out := make([]*core.Block, 0, 16)
	cur := end
	for i := 0; i < maxAncestorWalk; i++ {
		b, ok := t.s.state.Blocks[cur]
		if !ok {
			return nil, core.NewStorageError(core.StorageErrDbInconsistency, "ancestor walk: block %s missing", cur)
		}
		out = append(out, b)
		if cur == start {
			return out, nil
		}
		if b.IsGenesis() {
			if start == core.GenesisBlockId {
				return out, nil
			}
			return nil, core.NewStorageError(core.StorageErrNotFound, "ancestor walk: start %s not reached before genesis", start)
		}
		cur = b.ParentId
	}
	return out, nil
}

// BlockIdsBetween returns ancestor ids of end down to start, ≤1000 hops,
// ordered end-to-start (spec.md §4.1 block_ids_between).
func (t *ReadTx) BlockIdsBetween(start, end core.BlockId) ([]core.BlockId, error) {
	blocks, err := t.blockAncestors(start, end)
	if err != nil {
		return nil, err
	}
	ids := make([]core.BlockId, len(blocks))
	for i, b := range blocks {
		ids[i] = b.Id
	}
	return ids, nil
}

// BlockIdsThatChangeStateBetween is BlockIdsBetween filtered to non-dummy
// blocks carrying at least one command (spec.md §4.1).
func (t *ReadTx) BlockIdsThatChangeStateBetween(start, end core.BlockId) ([]core.BlockId, error) {
	blocks, err := t.blockAncestors(start, end)
	if err != nil {
		return nil, err
	}
	ids := make([]core.BlockId, 0, len(blocks))
	for _, b := range blocks {
		if !b.IsDummy && b.CommandCount() > 0 {
			ids = append(ids, b.Id)
		}
	}
	return ids, nil
}

// BlockIsAncestor walks parent links from descendant toward genesis,
// terminating at the self-referencing genesis block (spec.md §4.1).
func (t *ReadTx) BlockIsAncestor(descendant, ancestor core.BlockId) bool {
	cur := descendant
	for i := 0; i < maxAncestorWalk; i++ {
		if cur == ancestor {
			return true
		}
		b, ok := t.s.state.Blocks[cur]
		if !ok {
			return false
		}
		if b.IsGenesis() {
			return ancestor == core.GenesisBlockId && cur == ancestor
		}
		cur = b.ParentId
	}
	return false
}

// BlockGetParentChain returns up to limit blocks starting at id and
// walking toward genesis, ordered height-descending (spec.md §4.1).
func (t *ReadTx) BlockGetParentChain(id core.BlockId, limit int) ([]*core.Block, error) {
	out := make([]*core.Block, 0, limit)
	cur := id
	for len(out) < limit {
		b, ok := t.s.state.Blocks[cur]
		if !ok {
			return nil, core.NewStorageError(core.StorageErrNotFound, "parent chain: block %s not found", cur)
		}
		out = append(out, b)
		if b.IsGenesis() {
			break
		}
		cur = b.ParentId
	}
	return out, nil
}

// BlockGetTip returns the block with the highest height (spec.md §4.1
// block_get_tip).
func (t *ReadTx) BlockGetTip() (*core.Block, error) {
	var tip *core.Block
	for _, b := range t.s.state.Blocks {
		if tip == nil || b.Height > tip.Height {
			tip = b
		}
	}
	if tip == nil {
		return nil, core.NewStorageError(core.StorageErrNotFound, "no blocks in store")
	}
	return tip, nil
}

// BlockGetAllByParent returns every block whose ParentId is parent.
func (t *ReadTx) BlockGetAllByParent(parent core.BlockId) []*core.Block {
	ids := t.s.state.ChildrenByParent[parent]
	out := make([]*core.Block, 0, len(ids))
	for _, id := range ids {
		out = append(out, t.s.state.Blocks[id])
	}
	return out
}

// BlockGetAllBetween returns blocks strictly after start (exclusive) up to
// and including end, optionally excluding dummy blocks (spec.md §4.1).
func (t *ReadTx) BlockGetAllBetween(startExclusive, endInclusive core.BlockId, includeDummy bool) ([]*core.Block, error) {
	blocks, err := t.blockAncestors(startExclusive, endInclusive)
	if err != nil {
		return nil, err
	}
	out := make([]*core.Block, 0, len(blocks))
	for _, b := range blocks {
		if b.Id == startExclusive {
			continue
		}
		if !includeDummy && b.IsDummy {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

// BlockMaxHeight returns the greatest height among stored blocks.
func (t *ReadTx) BlockMaxHeight() core.NodeHeight {
	var max core.NodeHeight
	for _, b := range t.s.state.Blocks {
		if b.Height > max {
			max = b.Height
		}
	}
	return max
}

// BlocksCount returns the total number of stored blocks.
func (t *ReadTx) BlocksCount() int { return len(t.s.state.Blocks) }

// FilteredBlocksCount returns the number of stored blocks matching pred
// (spec.md §4.1 filtered_blocks_count, an admin/diagnostics operation).
func (t *ReadTx) FilteredBlocksCount(pred func(*core.Block) bool) int {
	n := 0
	for _, b := range t.s.state.Blocks {
		if pred(b) {
			n++
		}
	}
	return n
}

// BlocksGetPaginated returns stored blocks ordered by height ascending,
// offset and bounded to limit (spec.md §4.1 blocks_get_paginated, an
// admin/diagnostics operation).
func (t *ReadTx) BlocksGetPaginated(offset, limit int) []*core.Block {
	all := make([]*core.Block, 0, len(t.s.state.Blocks))
	for _, b := range t.s.state.Blocks {
		all = append(all, b)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Height != all[j].Height {
			return all[i].Height < all[j].Height
		}
		return all[i].Id.String() < all[j].Id.String()
	})
	if offset >= len(all) {
		return nil
	}
	end := offset + limit
	if end > len(all) || limit <= 0 {
		end = len(all)
	}
	return all[offset:end]
}

// BlockInsert persists block once, idempotently: inserting the same id
// twice is a no-op (spec.md §8 idempotence property).
func (t *WriteTx) BlockInsert(block *core.Block) error {
	if _, exists := t.s.state.Blocks[block.Id]; exists {
		return nil
	}
	cp := *block
	t.s.state.Blocks[block.Id] = &cp
	t.s.state.ChildrenByParent[block.ParentId] = append(t.s.state.ChildrenByParent[block.ParentId], block.Id)
	t.s.state.BlockInsertOrder = append(t.s.state.BlockInsertOrder, block.Id)
	t.markDirty()
	return nil
}
