package consensus

import (
	"sync"

	"github.com/google/uuid"

	"github.com/tolelom/dancore/core"
	"github.com/tolelom/dancore/crypto"
)

// Committee is the validator set responsible for a shard in an epoch.
type Committee struct {
	Members []crypto.PublicKey
}

// CommitteeInfo describes a committee's place in the sharding scheme.
type CommitteeInfo struct {
	Shard         core.Shard
	NumCommittees uint32
}

// EpochManager is a read-only oracle over validator-set configuration
// (spec.md §6). The core never mutates epoch state; it only queries it.
type EpochManager interface {
	IsEpochActive(epoch core.Epoch) bool
	GetCommitteeByValidatorPublicKey(epoch core.Epoch, pk crypto.PublicKey) (Committee, error)
	GetCommitteeInfoByValidatorPublicKey(epoch core.Epoch, pk crypto.PublicKey) (CommitteeInfo, error)
}

// LeaderStrategy picks the deterministic, stable leader for a committee at
// a given height (spec.md §6).
type LeaderStrategy interface {
	LeaderPublicKey(committee Committee, height core.NodeHeight) crypto.PublicKey
}

// OutboundMessaging sends votes and proposals to peers. Delivery order is
// not required (spec.md §6).
type OutboundMessaging interface {
	SendVote(to crypto.PublicKey, vote core.Vote) error
	BroadcastProposal(block *core.Block) error
}

// BaseLayerTipInfo is the base-layer chain's current head.
type BaseLayerTipInfo struct {
	Height uint64
	Hash   string
}

// BaseLayerClient is a read-only oracle over the underlying base layer
// (spec.md §6).
type BaseLayerClient interface {
	GetTipInfo() (BaseLayerTipInfo, error)
	GetValidatorNodes(height uint64) ([]crypto.PublicKey, error)
	GetCommittee(height uint64, shardKey string) (Committee, error)
	GetShardKey(height uint64, pk crypto.PublicKey) (string, error)
}

// ExecutedTransaction is the result TransactionExecutor produces for a
// deferred transaction.
type ExecutedTransaction struct {
	TxId   core.TxId
	Result string
}

// TransactionExecutor executes deferred transactions (spec.md §6). The
// core never executes transactions itself; it only reconciles the
// resulting TransactionRecord into the pool.
type TransactionExecutor interface {
	Execute(txId core.TxId) (ExecutedTransaction, error)
}

// Hooks is a purely observational sink: on_block_validation_failed fires
// whenever a ProposalValidationError is demoted to a non-fatal rejection
// (spec.md §4.4, §6, §7). No Hooks call may influence control flow.
type Hooks interface {
	OnBlockValidationFailed(block *core.Block, err error)
}

// NoopHooks discards every callback; the default when no telemetry sink is
// wired in.
type NoopHooks struct{}

func (NoopHooks) OnBlockValidationFailed(*core.Block, error) {}

// StaticEpochManager is a test double returning one fixed, always-active
// epoch's committee. Grounded on the teacher's PoA.IsProposer's
// round-robin-over-a-fixed-validator-list pattern (consensus/poa.go in the
// teacher), generalised from a single validator list to a per-epoch map.
type StaticEpochManager struct {
	ActiveEpochs map[core.Epoch]bool
	Committees   map[core.Epoch]Committee
	Info         map[core.Epoch]CommitteeInfo
}

func NewStaticEpochManager(epoch core.Epoch, committee Committee, info CommitteeInfo) *StaticEpochManager {
	return &StaticEpochManager{
		ActiveEpochs: map[core.Epoch]bool{epoch: true},
		Committees:   map[core.Epoch]Committee{epoch: committee},
		Info:         map[core.Epoch]CommitteeInfo{epoch: info},
	}
}

func (m *StaticEpochManager) IsEpochActive(epoch core.Epoch) bool { return m.ActiveEpochs[epoch] }

func (m *StaticEpochManager) GetCommitteeByValidatorPublicKey(epoch core.Epoch, pk crypto.PublicKey) (Committee, error) {
	c, ok := m.Committees[epoch]
	if !ok {
		return Committee{}, core.NewStorageError(core.StorageErrNotFound, "no committee for epoch %d", epoch)
	}
	return c, nil
}

func (m *StaticEpochManager) GetCommitteeInfoByValidatorPublicKey(epoch core.Epoch, pk crypto.PublicKey) (CommitteeInfo, error) {
	info, ok := m.Info[epoch]
	if !ok {
		return CommitteeInfo{}, core.NewStorageError(core.StorageErrNotFound, "no committee info for epoch %d", epoch)
	}
	return info, nil
}

// RoundRobinLeaderStrategy picks leader = members[height % len(members)],
// the same modular round-robin the teacher's PoA.IsProposer used over
// cfg.Validators (consensus/poa.go), generalised to an injected committee.
type RoundRobinLeaderStrategy struct{}

func (RoundRobinLeaderStrategy) LeaderPublicKey(committee Committee, height core.NodeHeight) crypto.PublicKey {
	if len(committee.Members) == 0 {
		return nil
	}
	idx := int(uint64(height) % uint64(len(committee.Members)))
	return committee.Members[idx]
}

// StaticBaseLayerClient is a test double answering every query from a
// fixed tip and validator set.
type StaticBaseLayerClient struct {
	Tip        BaseLayerTipInfo
	Validators []crypto.PublicKey
	Committee  Committee
}

func (c *StaticBaseLayerClient) GetTipInfo() (BaseLayerTipInfo, error) { return c.Tip, nil }
func (c *StaticBaseLayerClient) GetValidatorNodes(uint64) ([]crypto.PublicKey, error) {
	return c.Validators, nil
}
func (c *StaticBaseLayerClient) GetCommittee(uint64, string) (Committee, error) { return c.Committee, nil }
func (c *StaticBaseLayerClient) GetShardKey(uint64, crypto.PublicKey) (string, error) { return "", nil }

// ChannelMessaging is an in-process OutboundMessaging double: proposals
// and votes are appended to slices under a mutex instead of hitting the
// network, for use in handler tests. Each send is tagged with an opaque
// correlation id so test traffic can be traced the way a real transport
// would tag it for logging/tracing.
type ChannelMessaging struct {
	mu        sync.Mutex
	Votes     []sentVote
	Proposals []sentProposal
}

type sentVote struct {
	To            crypto.PublicKey
	Vote          core.Vote
	CorrelationId string
}

type sentProposal struct {
	Block         *core.Block
	CorrelationId string
}

func (m *ChannelMessaging) SendVote(to crypto.PublicKey, vote core.Vote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Votes = append(m.Votes, sentVote{To: to, Vote: vote, CorrelationId: uuid.NewString()})
	return nil
}

func (m *ChannelMessaging) BroadcastProposal(block *core.Block) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Proposals = append(m.Proposals, sentProposal{Block: block, CorrelationId: uuid.NewString()})
	return nil
}

// DeterministicExecutor is a TransactionExecutor test double that resolves
// every transaction to a fixed, pre-registered result.
type DeterministicExecutor struct {
	Results map[core.TxId]string
}

func NewDeterministicExecutor() *DeterministicExecutor {
	return &DeterministicExecutor{Results: make(map[core.TxId]string)}
}

func (e *DeterministicExecutor) Execute(txId core.TxId) (ExecutedTransaction, error) {
	result, ok := e.Results[txId]
	if !ok {
		result = "ok"
	}
	return ExecutedTransaction{TxId: txId, Result: result}, nil
}
