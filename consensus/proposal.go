package consensus

import (
	"go.uber.org/zap"

	"github.com/tolelom/dancore/core"
	"github.com/tolelom/dancore/metrics"
	"github.com/tolelom/dancore/storage"
)

// ProposalMessage is a received local block proposal, carrying the QC it
// is justified by (spec.md §4.4).
type ProposalMessage struct {
	Block   *core.Block
	Justify *core.QuorumCertificate
}

// ReadyToVote is the downstream step a successfully handled proposal is
// handed to (spec.md §4.4 step 4: "external"). It is invoked synchronously
// after commit, so Handle returns only once it has returned.
type ReadyToVote func(*ValidBlock)

// Handler is C4: the local-proposal handler that drives a received block
// through validation, persistence, pool reconciliation, and pacemaker
// update (spec.md §4.4).
type Handler struct {
	store          *storage.Store
	epochManager   EpochManager
	leader         LeaderStrategy
	pacemaker      Pacemaker
	hooks          Hooks
	foreignTimeout core.NodeHeight
	readyToVote    ReadyToVote
	log            *zap.SugaredLogger
	metrics        *metrics.Metrics
}

// NewHandler builds a Handler. hooks, pacemaker and m may be nil, defaulting
// to NoopHooks/NoopPacemaker/no instrumentation.
func NewHandler(
	store *storage.Store,
	epochManager EpochManager,
	leader LeaderStrategy,
	pacemaker Pacemaker,
	hooks Hooks,
	foreignTimeout core.NodeHeight,
	readyToVote ReadyToVote,
	log *zap.SugaredLogger,
	m *metrics.Metrics,
) *Handler {
	if pacemaker == nil {
		pacemaker = NoopPacemaker{}
	}
	if hooks == nil {
		hooks = NoopHooks{}
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Handler{
		store: store, epochManager: epochManager, leader: leader, pacemaker: pacemaker,
		hooks: hooks, foreignTimeout: foreignTimeout, readyToVote: readyToVote, log: log,
		metrics: m,
	}
}

// Handle drives msg through validation, persistence, pool reconciliation,
// foreign-proposal reconciliation, and pacemaker update (spec.md §4.4).
func (h *Handler) Handle(msg ProposalMessage) error {
	block := msg.Block

	// Step 1: epoch must be active.
	if !h.epochManager.IsEpochActive(block.Epoch) {
		return wrapHotStuff(ErrEpochNotActive)
	}

	// Step 2: resolve this shard's committee for the epoch.
	committee, err := h.epochManager.GetCommitteeByValidatorPublicKey(block.Epoch, block.ProposedBy)
	if err != nil {
		return wrapHotStuff(err)
	}
	committeeInfo, err := h.epochManager.GetCommitteeInfoByValidatorPublicKey(block.Epoch, block.ProposedBy)
	if err != nil {
		return wrapHotStuff(err)
	}

	var valid *ValidBlock
	var highQc core.HighQcRecord

	err = h.store.WithWriteTx(func(tx *storage.WriteTx) error {
		// Idempotent re-delivery: already-processed blocks are a silent
		// success, not an error (spec.md §4.4 step 3, §8 scenario 4).
		if tx.BlockHasBeenProcessed(block.Id) {
			h.log.Infow("duplicate proposal, ignoring", "block_id", block.Id)
			return nil
		}

		vb, verr := ValidateLocalProposedBlock(tx, block, msg.Justify, committee, committeeInfo, h.leader)
		if verr != nil {
			if IsJustifyNotFound(verr) {
				return verr
			}
			h.hooks.OnBlockValidationFailed(block, verr)
			h.log.Warnw("proposal rejected", "block_id", block.Id, "error", verr)
			if h.metrics != nil {
				h.metrics.BlocksRejected.Inc()
			}
			return nil
		}
		valid = vb
		if h.metrics != nil {
			h.metrics.BlocksProcessed.Inc()
			if n := len(vb.Dummies); n > 0 {
				h.metrics.DummyBlocksSynthesized.Add(float64(n))
			}
		}

		if err := h.reconcileTransactionPool(tx, vb); err != nil {
			return err
		}

		if err := tx.QuorumCertificatesInsert(msg.Justify); err != nil {
			return err
		}
		if len(vb.Dummies) > 0 {
			if err := SaveAllDummyBlocks(tx, vb.Dummies, msg.Justify); err != nil {
				return err
			}
		}
		if err := tx.BlockInsert(vb.Block); err != nil {
			return err
		}

		// Foreign-proposal reconciliation needs the candidate's height and
		// runs against the now-persisted block (spec.md §4.4 step 3).
		if err := h.reconcileForeignProposals(tx, vb.Block); err != nil {
			return err
		}

		h.updateForeignSendCounters(tx, vb.Block)
		if err := tx.HighQcUpdate(msg.Justify); err != nil {
			return err
		}

		hq, herr := tx.HighQcGet()
		if herr != nil {
			return herr
		}
		highQc = hq
		return nil
	})
	if err != nil {
		return wrapHotStuff(err)
	}
	if valid == nil {
		// Duplicate delivery or swallowed validation error: no further
		// action (spec.md §8 scenarios 3/4/6).
		return nil
	}

	if h.metrics != nil {
		h.metrics.HighQcHeight.Set(float64(highQc.BlockHeight))
		h.metrics.LeafBlockHeight.Set(float64(valid.Block.Height))
	}

	h.pacemaker.UpdateView(valid.Block.Height, highQc.BlockHeight)
	if h.readyToVote != nil {
		h.readyToVote(valid)
	}
	return nil
}

// reconcileTransactionPool inserts a pool record for every transaction the
// valid block references that the pool hasn't seen yet (spec.md §4.4 step
// 3). Executed transactions are inserted with their recorded decision;
// unexecuted ones are inserted Deferred — admitting a block whose
// transactions haven't reached the pool yet via mempool is a known race.
func (h *Handler) reconcileTransactionPool(tx *storage.WriteTx, vb *ValidBlock) error {
	for _, txId := range vb.AllTransactionIds() {
		if tx.TransactionPoolExists(txId) {
			continue
		}
		rec, err := tx.TransactionsGet(txId)
		atom := core.TransactionAtom{TxId: txId, Decision: core.DecisionDeferred}
		if err == nil && rec.IsExecuted {
			atom = rec.Atom()
		}
		if err := tx.TransactionPoolInsert(atom); err != nil {
			return err
		}
	}
	return nil
}

// reconcileForeignProposals ages out Proposed foreign proposals older than
// block.height - foreignTimeout: any still-unresolved, finalized
// transaction in pool stage New or Prepared has its local decision forced
// to Abort; a proposal with no remaining unresolved transactions is
// deleted (spec.md §4.4 step 3, §9 FOREIGN_PROPOSAL_TIMEOUT).
func (h *Handler) reconcileForeignProposals(tx *storage.WriteTx, block *core.Block) error {
	if block.Height <= h.foreignTimeout {
		return nil
	}
	cutoff := block.Height - h.foreignTimeout

	for _, fp := range tx.ForeignProposalsGetAllProposed(cutoff) {
		unresolved := false
		for _, txId := range fp.Transactions {
			rec, err := tx.TransactionsGet(txId)
			if err != nil || !rec.IsFinalized() {
				continue
			}
			poolRec, err := tx.TransactionPoolGetRecord(txId)
			if err != nil {
				continue
			}
			if poolRec.Stage != core.StageNew && poolRec.Stage != core.StagePrepared {
				continue
			}
			if err := tx.TransactionPoolUpdateLocalDecision(txId, block.Id, core.DecisionAbort); err != nil {
				return err
			}
			unresolved = true
			if h.metrics != nil {
				h.metrics.ForeignProposalsAborted.Inc()
			}
		}
		if !unresolved {
			tx.ForeignProposalsDelete(*fp)
			if h.metrics != nil {
				h.metrics.ForeignProposalsDeleted.Inc()
			}
		}
	}
	return nil
}

// updateForeignSendCounters increments the per-bucket send counter for
// every ForeignProposal command the block carries (spec.md §4.4 step 3
// "update foreign-send counters").
func (h *Handler) updateForeignSendCounters(tx *storage.WriteTx, block *core.Block) {
	for _, cmd := range block.Commands {
		if cmd.Kind == core.CommandForeignProposal && cmd.ForeignProposal != nil {
			tx.ForeignSendCounterIncrement(cmd.ForeignProposal.Bucket)
		}
	}
}
