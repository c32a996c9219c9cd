package storage

import "github.com/tolelom/dancore/core"

// LeafBlockGet returns the current chain tip this validator extends.
func (t *ReadTx) LeafBlockGet() (core.LeafBlockRecord, error) {
	if len(t.s.state.LeafBlock) == 0 {
		return core.LeafBlockRecord{}, core.NewStorageError(core.StorageErrNotFound, "leaf block not set")
	}
	return t.s.state.LeafBlock[len(t.s.state.LeafBlock)-1], nil
}

// LeafBlockSet appends a new leaf-block pointer row.
func (t *WriteTx) LeafBlockSet(id core.BlockId, height core.NodeHeight) {
	t.s.state.LeafBlock = append(t.s.state.LeafBlock, core.LeafBlockRecord{
		Id: nextId(&t.s.state.LeafBlock), BlockId: id, Height: height,
	})
	t.markDirty()
}

// LockedBlockGet returns the block whose commit the two-chain rule
// guarantees.
func (t *ReadTx) LockedBlockGet() (core.LockedBlockRecord, error) {
	if len(t.s.state.LockedBlock) == 0 {
		return core.LockedBlockRecord{}, core.NewStorageError(core.StorageErrNotFound, "locked block not set")
	}
	return t.s.state.LockedBlock[len(t.s.state.LockedBlock)-1], nil
}

// LockedBlockSet appends a new locked-block pointer row.
func (t *WriteTx) LockedBlockSet(id core.BlockId, height core.NodeHeight) {
	t.s.state.LockedBlock = append(t.s.state.LockedBlock, core.LockedBlockRecord{
		Id: nextId(&t.s.state.LockedBlock), BlockId: id, Height: height,
	})
	t.markDirty()
}

// LastVotedGet returns the last block this validator voted on.
func (t *ReadTx) LastVotedGet() (core.LastVotedRecord, error) {
	if len(t.s.state.LastVoted) == 0 {
		return core.LastVotedRecord{}, core.NewStorageError(core.StorageErrNotFound, "last voted not set")
	}
	return t.s.state.LastVoted[len(t.s.state.LastVoted)-1], nil
}

// LastVotedSet appends a new last-voted pointer row.
func (t *WriteTx) LastVotedSet(id core.BlockId, height core.NodeHeight) {
	t.s.state.LastVoted = append(t.s.state.LastVoted, core.LastVotedRecord{
		Id: nextId(&t.s.state.LastVoted), BlockId: id, Height: height,
	})
	t.markDirty()
}

// LastExecutedGet returns the last block this validator executed.
func (t *ReadTx) LastExecutedGet() (core.LastExecutedRecord, error) {
	if len(t.s.state.LastExecuted) == 0 {
		return core.LastExecutedRecord{}, core.NewStorageError(core.StorageErrNotFound, "last executed not set")
	}
	return t.s.state.LastExecuted[len(t.s.state.LastExecuted)-1], nil
}

// LastExecutedSet appends a new last-executed pointer row.
func (t *WriteTx) LastExecutedSet(id core.BlockId) {
	t.s.state.LastExecuted = append(t.s.state.LastExecuted, core.LastExecutedRecord{
		Id: nextId(&t.s.state.LastExecuted), BlockId: id,
	})
	t.markDirty()
}

// LastProposedGet returns the last block this validator proposed.
func (t *ReadTx) LastProposedGet() (core.LastProposedRecord, error) {
	if len(t.s.state.LastProposed) == 0 {
		return core.LastProposedRecord{}, core.NewStorageError(core.StorageErrNotFound, "last proposed not set")
	}
	return t.s.state.LastProposed[len(t.s.state.LastProposed)-1], nil
}

// LastProposedSet appends a new last-proposed pointer row.
func (t *WriteTx) LastProposedSet(id core.BlockId, height core.NodeHeight) {
	t.s.state.LastProposed = append(t.s.state.LastProposed, core.LastProposedRecord{
		Id: nextId(&t.s.state.LastProposed), BlockId: id, Height: height,
	})
	t.markDirty()
}

// LastSentVoteGet returns the last vote this validator sent.
func (t *ReadTx) LastSentVoteGet() (core.LastSentVoteRecord, error) {
	if len(t.s.state.LastSentVote) == 0 {
		return core.LastSentVoteRecord{}, core.NewStorageError(core.StorageErrNotFound, "last sent vote not set")
	}
	return t.s.state.LastSentVote[len(t.s.state.LastSentVote)-1], nil
}

// LastSentVoteSet appends a new last-sent-vote pointer row.
func (t *WriteTx) LastSentVoteSet(vote core.Vote) {
	t.s.state.LastSentVote = append(t.s.state.LastSentVote, core.LastSentVoteRecord{
		Id: nextId(&t.s.state.LastSentVote), Vote: vote,
	})
	t.markDirty()
}

// ForeignReceiveCounterGet returns how many proposals this shard has
// received from bucket.
func (t *ReadTx) ForeignReceiveCounterGet(bucket core.Bucket) uint64 {
	return t.s.state.ForeignReceive[bucket]
}

// ForeignReceiveCounterIncrement bumps the receive counter for bucket.
func (t *WriteTx) ForeignReceiveCounterIncrement(bucket core.Bucket) {
	t.s.state.ForeignReceive[bucket]++
	t.markDirty()
}

// ForeignSendCounterGet returns how many proposals this shard has sent to
// bucket.
func (t *ReadTx) ForeignSendCounterGet(bucket core.Bucket) uint64 {
	return t.s.state.ForeignSend[bucket]
}

// ForeignSendCounterIncrement bumps the send counter for bucket.
func (t *WriteTx) ForeignSendCounterIncrement(bucket core.Bucket) {
	t.s.state.ForeignSend[bucket]++
	t.markDirty()
}
