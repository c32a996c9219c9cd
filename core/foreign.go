package core

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
)

// ForeignProposal is a cross-shard coordination record: a remote
// committee's proposal the local shard must observe (spec.md §3).
// Uniqueness is (Bucket, BlockId, Transactions, BaseLayerBlockHeight).
type ForeignProposal struct {
	Bucket               Bucket               `json:"bucket"`
	BlockId              BlockId              `json:"block_id"`
	Transactions         []TxId               `json:"transactions"`
	BaseLayerBlockHeight uint64               `json:"base_layer_block_height"`
	State                ForeignProposalState `json:"state"`
	ProposedHeight       NodeHeight           `json:"proposed_height,omitempty"`
}

// Key returns the uniqueness tuple as a comparable value, for dedup in
// in-memory indices.
func (f ForeignProposal) Key() ForeignProposalKey {
	return ForeignProposalKey{
		Bucket:               f.Bucket,
		BlockId:              f.BlockId,
		BaseLayerBlockHeight: f.BaseLayerBlockHeight,
		TxSetKey:             txSetKey(f.Transactions),
	}
}

// ForeignProposalKey is the flattened, comparable form of ForeignProposal's
// uniqueness tuple (spec.md §3); Go maps can't key on a slice field
// directly, so Transactions is folded into a string via txSetKey.
type ForeignProposalKey struct {
	Bucket               Bucket
	BlockId              BlockId
	BaseLayerBlockHeight uint64
	TxSetKey             string
}

func txSetKey(ids []TxId) string {
	b := make([]byte, 0, len(ids)*idSize)
	for _, id := range ids {
		b = append(b, id[:]...)
	}
	return string(b)
}

// MarshalText flattens the key to a single hex-delimited string so it can
// be used as a JSON object key (storage's snapshot encoding keys
// ForeignProposals by ForeignProposalKey).
func (k ForeignProposalKey) MarshalText() ([]byte, error) {
	var height [8]byte
	binary.BigEndian.PutUint64(height[:], k.BaseLayerBlockHeight)
	buf := make([]byte, 0, 8+8+8+len(k.TxSetKey)*2)
	var bucket [4]byte
	binary.BigEndian.PutUint32(bucket[:], uint32(k.Bucket))
	buf = append(buf, hex.EncodeToString(bucket[:])...)
	buf = append(buf, '.')
	buf = append(buf, k.BlockId.String()...)
	buf = append(buf, '.')
	buf = append(buf, hex.EncodeToString(height[:])...)
	buf = append(buf, '.')
	buf = append(buf, hex.EncodeToString([]byte(k.TxSetKey))...)
	return buf, nil
}

// UnmarshalText parses the form produced by MarshalText.
func (k *ForeignProposalKey) UnmarshalText(text []byte) error {
	parts := splitDotted(string(text))
	if len(parts) != 4 {
		return errors.New("core: malformed ForeignProposalKey")
	}
	bucket, err := hex.DecodeString(parts[0])
	if err != nil || len(bucket) != 4 {
		return errors.New("core: malformed ForeignProposalKey bucket")
	}
	k.Bucket = Bucket(binary.BigEndian.Uint32(bucket))
	if err := k.BlockId.UnmarshalText([]byte(parts[1])); err != nil {
		return err
	}
	height, err := hex.DecodeString(parts[2])
	if err != nil || len(height) != 8 {
		return errors.New("core: malformed ForeignProposalKey height")
	}
	k.BaseLayerBlockHeight = binary.BigEndian.Uint64(height)
	txSet, err := hex.DecodeString(parts[3])
	if err != nil {
		return errors.New("core: malformed ForeignProposalKey tx set")
	}
	k.TxSetKey = string(txSet)
	return nil
}

func splitDotted(s string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	parts = append(parts, s[start:])
	return parts
}

// ForeignSendCounters and ForeignReceiveCounters track, per shard, how many
// proposals this shard has sent to / received from a remote bucket — the
// ForeignReceiveCounters/foreign_send_counters singletons of spec.md §6.
type ForeignSendCounters map[Bucket]uint64

type ForeignReceiveCounters map[Bucket]uint64
