package core

import (
	"encoding/binary"
	"encoding/json"
	"time"

	"github.com/tolelom/dancore/crypto"
)

// GenesisBlockId is the canonical all-zero id for the genesis block, the
// block that terminates every ancestor walk (spec.md §4.1 block_is_ancestor).
var GenesisBlockId BlockId

// GenesisQcId is the canonical all-zero id for the genesis QC.
var GenesisQcId QcId

// Block is the consensus unit committed to the chain. Dummy blocks
// (synthesized to bridge a leader-failure gap, spec.md §4.3 rule 6) carry
// IsDummy=true and CommandCount==0.
type Block struct {
	Id                   BlockId       `json:"id"`
	ParentId             BlockId       `json:"parent_id"`
	JustifyId            QcId          `json:"justify_qc_id"`
	Height               NodeHeight    `json:"height"`
	Epoch                Epoch         `json:"epoch"`
	ProposedBy           crypto.PublicKey `json:"proposed_by"`
	Shard                Shard         `json:"shard"`
	Network               string        `json:"network"`
	Commands             []Command     `json:"commands"`
	MerkleRoot           string        `json:"merkle_root"`
	Timestamp            int64         `json:"timestamp"`
	BaseLayerBlockHeight uint64        `json:"base_layer_block_height"`
	BaseLayerBlockHash   string        `json:"base_layer_block_hash"`
	IsDummy              bool          `json:"is_dummy"`
	TotalLeaderFee       uint64        `json:"total_leader_fee"`
	Signature            string        `json:"signature,omitempty"`

	// ExtraData is reserved, opaque leader annotation space. Always empty
	// in this implementation; present so the row shape matches the
	// original's dummy-block constructor (SPEC_FULL.md §3).
	ExtraData []byte `json:"extra_data,omitempty"`
}

// CommandCount returns the number of commands carried by the block.
func (b *Block) CommandCount() int { return len(b.Commands) }

// IsGenesis reports whether this block is the chain's genesis block.
func (b *Block) IsGenesis() bool {
	return b.Id == GenesisBlockId && b.ParentId == GenesisBlockId
}

// blockSigningBody holds everything the block id/signature covers.
type blockSigningBody struct {
	ParentId             BlockId    `json:"parent_id"`
	JustifyId            QcId       `json:"justify_qc_id"`
	Height               NodeHeight `json:"height"`
	Epoch                Epoch      `json:"epoch"`
	ProposedBy           crypto.PublicKey `json:"proposed_by"`
	Shard                Shard      `json:"shard"`
	Network              string     `json:"network"`
	Commands             []Command  `json:"commands"`
	MerkleRoot           string     `json:"merkle_root"`
	Timestamp            int64      `json:"timestamp"`
	BaseLayerBlockHeight uint64     `json:"base_layer_block_height"`
	BaseLayerBlockHash   string     `json:"base_layer_block_hash"`
	IsDummy              bool       `json:"is_dummy"`
}

// ComputeId returns the deterministic content-addressed id of the block,
// excluding Signature — mirroring core.Transaction's Hash()/signingBody
// split in the teacher repo.
func (b *Block) ComputeId() BlockId {
	body := blockSigningBody{
		ParentId: b.ParentId, JustifyId: b.JustifyId, Height: b.Height,
		Epoch: b.Epoch, ProposedBy: b.ProposedBy, Shard: b.Shard,
		Network: b.Network, Commands: b.Commands, MerkleRoot: b.MerkleRoot,
		Timestamp: b.Timestamp, BaseLayerBlockHeight: b.BaseLayerBlockHeight,
		BaseLayerBlockHash: b.BaseLayerBlockHash, IsDummy: b.IsDummy,
	}
	data, err := json.Marshal(body)
	if err != nil {
		// body contains only marshalable fields; json.Marshal cannot fail here.
		return BlockId{}
	}
	var lenBuf [8]byte
	binary.BigEndian.PutUint64(lenBuf[:], uint64(b.Height))
	return BlockIdFromHash(data, lenBuf[:])
}

// Sign computes Id and Signature using priv.
func (b *Block) Sign(priv crypto.PrivateKey) {
	b.Id = b.ComputeId()
	b.Signature = crypto.Sign(priv, b.Id[:])
}

// Verify checks Id matches the recomputed body hash and Signature is valid
// for ProposedBy.
func (b *Block) Verify() error {
	if computed := b.ComputeId(); computed != b.Id {
		return NewStorageError(StorageErrMalformedDbData, "block id mismatch: stored %s computed %s", b.Id, computed)
	}
	return crypto.Verify(b.ProposedBy, b.Id[:], b.Signature)
}

// AllTransactionIds returns the tx ids referenced by every command in the
// block that carries a TransactionAtom, in command order.
func (b *Block) AllTransactionIds() []TxId {
	ids := make([]TxId, 0, len(b.Commands))
	for _, c := range b.Commands {
		if atom := c.Atom(); atom != nil {
			ids = append(ids, atom.TxId)
		}
	}
	return ids
}

// NewDummyBlock builds the placeholder block synthesized to bridge a
// leader-failure gap (spec.md §4.3 rule 6). It inherits merkle root,
// timestamp, and base-layer fields from the prior block in the synthesized
// chain (or the justify block, for the first dummy).
func NewDummyBlock(network string, parent BlockId, proposedBy crypto.PublicKey, height NodeHeight, justify QcId, epoch Epoch, shard Shard, merkleRoot string, timestamp int64, baseLayerHeight uint64, baseLayerHash string) *Block {
	b := &Block{
		ParentId:             parent,
		JustifyId:            justify,
		Height:               height,
		Epoch:                epoch,
		ProposedBy:           proposedBy,
		Shard:                shard,
		Network:              network,
		Commands:             nil,
		MerkleRoot:           merkleRoot,
		Timestamp:            timestamp,
		BaseLayerBlockHeight: baseLayerHeight,
		BaseLayerBlockHash:   baseLayerHash,
		IsDummy:              true,
	}
	b.Id = b.ComputeId()
	return b
}

// NowUnix returns the current wall-clock time in Unix seconds. It is a
// plain function, not a variable, so tests cannot substitute it.
func NowUnix() int64 { return time.Now().Unix() }

// QuorumCertificate attests that a committee reached agreement on a block
// (spec.md §3).
type QuorumCertificate struct {
	Id            QcId         `json:"qc_id"`
	BlockId       BlockId      `json:"block_id"`
	BlockHeight   NodeHeight   `json:"block_height"`
	Epoch         Epoch        `json:"epoch"`
	Shard         Shard        `json:"shard"`
	Decision      VoteDecision `json:"decision"`
	Signatures    []ValidatorSignature `json:"signatures"`
}

// ValidatorSignature pairs a committee member's public key with its vote
// signature, aggregated into a QuorumCertificate.
type ValidatorSignature struct {
	PublicKey crypto.PublicKey `json:"public_key"`
	Signature string    `json:"signature"`
}

// ComputeId returns the deterministic content-addressed id of the QC.
func (qc *QuorumCertificate) ComputeId() QcId {
	data, err := json.Marshal(struct {
		BlockId     BlockId      `json:"block_id"`
		BlockHeight NodeHeight   `json:"block_height"`
		Epoch       Epoch        `json:"epoch"`
		Shard       Shard        `json:"shard"`
		Decision    VoteDecision `json:"decision"`
	}{qc.BlockId, qc.BlockHeight, qc.Epoch, qc.Shard, qc.Decision})
	if err != nil {
		return QcId{}
	}
	return QcIdFromHash(data)
}

// BlockWithJustify is the join spec.md §4.1 block_get returns: a block
// paired with the QC it carries as its justify.
type BlockWithJustify struct {
	Block   *Block
	Justify *QuorumCertificate
}
