package core

// Decision is the outcome a transaction atom carries through the pipeline.
type Decision string

const (
	DecisionCommit   Decision = "Commit"
	DecisionAbort    Decision = "Abort"
	DecisionDeferred Decision = "Deferred"
)

// LockKind is the kind of lock a shard holds on a substate while a
// transaction is in flight.
type LockKind string

const (
	LockRead   LockKind = "Read"
	LockWrite  LockKind = "Write"
	LockOutput LockKind = "Output"
)

// ConflictsWith reports whether two locks on the same substate conflict:
// write/output locks conflict with everything, read locks only with
// write/output. Per spec.md §9 / DESIGN.md Open Question 1, this helper
// exists for a future proposer-side conflict check that is NOT currently
// invoked by ValidateLocalProposedBlock — the upstream behavior this mirrors leaves
// the check disabled.
func (k LockKind) ConflictsWith(other LockKind) bool {
	if k == LockRead && other == LockRead {
		return false
	}
	return true
}

// PoolStage is a TransactionPoolRecord's position in the pipeline
// (spec.md §4.2).
type PoolStage string

const (
	StageNew           PoolStage = "New"
	StagePrepared      PoolStage = "Prepared"
	StageLocalPrepared  PoolStage = "LocalPrepared"
	StageAllPrepared   PoolStage = "AllPrepared"
	StageAllAccepted   PoolStage = "AllAccepted"
	StageSomePrepared  PoolStage = "SomePrepared"
)

// stageOrder gives the monotonic rank of each stage along a committed
// chain (spec.md §3 TransactionPoolRecord invariant). Rollback on fork
// switch is allowed and is not constrained by this ordering — it is only
// used to validate forward progress within a single chain.
var stageOrder = map[PoolStage]int{
	StageNew:          0,
	StageSomePrepared: 1,
	StagePrepared:     1,
	StageLocalPrepared: 2,
	StageAllPrepared:  3,
	StageAllAccepted:  4,
}

// Advances reports whether moving from s to next is forward progress
// (or a same-stage idempotent no-op).
func (s PoolStage) Advances(next PoolStage) bool {
	return stageOrder[next] >= stageOrder[s]
}

// ForeignProposalState is the lifecycle state of a ForeignProposal
// (spec.md §3).
type ForeignProposalState string

const (
	ForeignProposalNew      ForeignProposalState = "New"
	ForeignProposalProposed ForeignProposalState = "Proposed"
	ForeignProposalDeleted  ForeignProposalState = "Deleted"
)

// VoteDecision is the decision a validator casts for a block.
type VoteDecision string

const (
	VoteAccept VoteDecision = "Accept"
	VoteReject VoteDecision = "Reject"
)
