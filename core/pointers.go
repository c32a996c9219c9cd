package core

// PendingStateTreeDiff is a per-block speculative Merkle-tree delta,
// flushed when its block commits (spec.md §3).
type PendingStateTreeDiff struct {
	BlockId BlockId `json:"block_id"`
	Height  NodeHeight `json:"height"`
	Diff    []byte  `json:"diff"`
}

// BlockDiffRecord is one row of a block's accumulated substate diff
// (created/destroyed substates), aggregated by block_diff_get (spec.md
// §4.1).
type BlockDiffRecord struct {
	BlockId     BlockId    `json:"block_id"`
	SubstateId  SubstateId `json:"substate_id"`
	Version     uint32     `json:"version"`
	Destroyed   bool       `json:"destroyed"`
	Data        []byte     `json:"data,omitempty"`
}

// BlockDiff is the full aggregation block_diff_get returns.
type BlockDiff struct {
	BlockId BlockId
	Up      []BlockDiffRecord // substates created by this block
	Down    []BlockDiffRecord // substates destroyed by this block
}

// LastVotedRecord, LastExecutedRecord and LastProposedRecord are the
// append-only "latest pointer" singletons of spec.md §3/§6: each new row
// is inserted rather than updated, and "current value" is the row with
// the greatest Id (ORDER BY id DESC LIMIT 1).
type LastVotedRecord struct {
	Id      uint64     `json:"id"`
	BlockId BlockId    `json:"block_id"`
	Height  NodeHeight `json:"height"`
}

type LastExecutedRecord struct {
	Id      uint64  `json:"id"`
	BlockId BlockId `json:"block_id"`
}

type LastProposedRecord struct {
	Id      uint64  `json:"id"`
	BlockId BlockId `json:"block_id"`
	Height  NodeHeight `json:"height"`
}

type LastSentVoteRecord struct {
	Id   uint64 `json:"id"`
	Vote Vote   `json:"vote"`
}

// LeafBlockRecord and LockedBlockRecord are the "highest id wins"
// pointers that track this validator's current chain tip and the block
// whose commit the two-chain rule guarantees (spec.md §GLOSSARY).
type LeafBlockRecord struct {
	Id      uint64     `json:"id"`
	BlockId BlockId    `json:"block_id"`
	Height  NodeHeight `json:"height"`
}

type LockedBlockRecord struct {
	Id      uint64     `json:"id"`
	BlockId BlockId    `json:"block_id"`
	Height  NodeHeight `json:"height"`
}

// HighQcRecord is the highest quorum certificate this validator has seen
// (spec.md §GLOSSARY). high_qc_update only replaces it when the new QC's
// block height exceeds the current one (spec.md §4.1).
type HighQcRecord struct {
	Id          uint64     `json:"id"`
	QcId        QcId       `json:"qc_id"`
	BlockId     BlockId    `json:"block_id"`
	BlockHeight NodeHeight `json:"block_height"`
}
