package consensus

import (
	"errors"

	"github.com/tolelom/dancore/core"
	"github.com/tolelom/dancore/storage"
)

// maxDummyChainLength bounds dummy-block synthesis, mirroring the
// maxAncestorWalk bound storage's ancestor walks use for the same reason:
// a malformed justify/candidate pair must not spin forever.
const maxDummyChainLength = 10000

// ValidBlock is the result of a successful C3 validation: the candidate
// block, plus any dummy blocks synthesised to bridge a leader-failure gap
// (spec.md §4.3).
type ValidBlock struct {
	Block   *core.Block
	Dummies []*core.Block
}

// AllTransactionIds delegates to the candidate block.
func (v *ValidBlock) AllTransactionIds() []core.TxId { return v.Block.AllTransactionIds() }

// ValidateLocalProposedBlock runs the seven-rule validation chain of
// spec.md §4.3 against an open write transaction. justify is the QC the
// candidate block carries (delivered alongside it, not yet necessarily
// persisted under its own id — rule 2 looks up the block it attests to).
func ValidateLocalProposedBlock(
	tx *storage.WriteTx,
	candidate *core.Block,
	justify *core.QuorumCertificate,
	committee Committee,
	committeeInfo CommitteeInfo,
	leader LeaderStrategy,
) (*ValidBlock, error) {
	// Rule 1: not already processed.
	if tx.BlockHasBeenProcessed(candidate.Id) {
		return nil, newValidationError(ErrBlockAlreadyProcessed, "block %s already processed", candidate.Id)
	}

	// Rule 2: justify block must exist. Only a genuine not-found is
	// demoted to the sync-triggering validation error; anything else
	// (e.g. a DbInconsistency from a row whose justify QC went missing)
	// is fatal and must propagate, not be mistaken for "go sync".
	justifyBlock, err := tx.BlockGet(justify.BlockId)
	if err != nil {
		if isStorageNotFound(err) {
			return nil, newValidationError(ErrJustifyBlockNotFound, "justify block %s: %v", justify.BlockId, err)
		}
		return nil, err
	}

	// Rule 3: justify height must match the stored block's height.
	if justifyBlock.Block.Height != justify.BlockHeight {
		return nil, newValidationError(ErrJustifyBlockInvalid,
			"justify block %s height %d != justify.block_height %d", justify.BlockId, justifyBlock.Block.Height, justify.BlockHeight)
	}

	// Rule 4: genesis short-circuit.
	if candidate.ParentId == core.GenesisBlockId && justify.BlockId == core.GenesisBlockId {
		return &ValidBlock{Block: candidate}, nil
	}

	// Rule 5: monotonic height.
	if candidate.Height < justifyBlock.Block.Height {
		return nil, newValidationError(ErrCandidateNotHigherThanJustify,
			"candidate height %d < justify block height %d", candidate.Height, justifyBlock.Block.Height)
	}

	// Rule 6: dummy-block synthesis across a leader-failure gap.
	if justifyBlock.Block.Id != candidate.ParentId {
		dummies, err := synthesizeDummyChain(candidate, justifyBlock.Block, justify.Id, committee, committeeInfo, leader)
		if err != nil {
			return nil, err
		}
		return &ValidBlock{Block: candidate, Dummies: dummies}, nil
	}

	// Rule 7: safety — candidate must extend the current LockedBlock. No
	// locked block yet (bootstrap) skips the check; any other error is
	// fatal and must propagate rather than be silently swallowed.
	locked, err := tx.LockedBlockGet()
	if err != nil && !isStorageNotFound(err) {
		return nil, err
	}
	if err == nil {
		if !isSafe(tx, candidate, locked.BlockId) {
			return nil, newValidationError(ErrNotSafeBlock,
				"candidate %s does not extend locked block %s", candidate.Id, locked.BlockId)
		}
	}

	return &ValidBlock{Block: candidate}, nil
}

// isStorageNotFound reports whether err is a core.StorageError of kind
// StorageErrNotFound, as opposed to a fatal corruption error.
func isStorageNotFound(err error) bool {
	var se *core.StorageError
	if errors.As(err, &se) {
		return se.Kind == core.StorageErrNotFound
	}
	return false
}

// isSafe reports whether candidate extends lockedBlockId through its
// parent chain (spec.md §4.3 rule 7).
func isSafe(tx *storage.WriteTx, candidate *core.Block, lockedBlockId core.BlockId) bool {
	if candidate.ParentId == lockedBlockId {
		return true
	}
	return tx.BlockIsAncestor(candidate.ParentId, lockedBlockId)
}

// synthesizeDummyChain builds the placeholder blocks bridging a
// leader-failure gap between justifyBlock and candidate (spec.md §4.3 rule
// 6). Each dummy inherits merkle root, timestamp, and base-layer fields
// from the prior block in the chain (justifyBlock for the first dummy).
func synthesizeDummyChain(
	candidate, justifyBlock *core.Block,
	justifyId core.QcId,
	committee Committee,
	committeeInfo CommitteeInfo,
	leader LeaderStrategy,
) ([]*core.Block, error) {
	dummies := make([]*core.Block, 0)
	last := justifyBlock
	for i := 0; i < maxDummyChainLength; i++ {
		nextHeight := last.Height + 1
		if nextHeight > candidate.Height {
			return nil, newValidationError(ErrCandidateDoesNotExtendJustify,
				"dummy chain exceeded candidate height %d before matching parent %s", candidate.Height, candidate.ParentId)
		}
		proposedBy := leader.LeaderPublicKey(committee, nextHeight)
		dummy := core.NewDummyBlock(
			candidate.Network, last.Id, proposedBy, nextHeight, justifyId, candidate.Epoch, committeeInfo.Shard,
			last.MerkleRoot, last.Timestamp, last.BaseLayerBlockHeight, last.BaseLayerBlockHash,
		)
		dummies = append(dummies, dummy)
		if dummy.Id == candidate.ParentId {
			return dummies, nil
		}
		last = dummy
	}
	return nil, newValidationError(ErrCandidateDoesNotExtendJustify, "dummy chain exceeded max length without matching candidate parent")
}

// SaveAllDummyBlocks inserts each dummy block with the candidate's justify
// reused as its own (spec.md §4.3 save_all_dummy_blocks), first storing a
// copy of that justify under each dummy's JustifyId (the justify's own id,
// so the insert is idempotent) so BlockGet's join (block, justify QC)
// always succeeds.
func SaveAllDummyBlocks(tx *storage.WriteTx, dummies []*core.Block, justify *core.QuorumCertificate) error {
	for _, d := range dummies {
		qc := &core.QuorumCertificate{
			Id: d.JustifyId, BlockId: justify.BlockId, BlockHeight: justify.BlockHeight,
			Epoch: justify.Epoch, Shard: justify.Shard, Decision: justify.Decision, Signatures: justify.Signatures,
		}
		if err := tx.QuorumCertificatesInsert(qc); err != nil {
			return err
		}
		if err := tx.BlockInsert(d); err != nil {
			return err
		}
	}
	return nil
}
