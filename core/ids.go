package core

import (
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

// idSize is the width of every content-addressed identifier in the model.
const idSize = 32

// hash32 is a 32-byte content-addressed identifier, shared by BlockId,
// QcId, and TxId so that ancestor/equality checks are plain value
// comparisons. It implements encoding.TextMarshaler/TextUnmarshaler (rather
// than the JSON interfaces directly) so that BlockId/QcId/TxId can also be
// used as JSON object keys, which storage's snapshot encoding relies on.
type hash32 [idSize]byte

func hashOf(parts ...[]byte) hash32 {
	h := sha3.New256()
	for _, p := range parts {
		h.Write(p)
	}
	var out hash32
	copy(out[:], h.Sum(nil))
	return out
}

func (h hash32) String() string { return hex.EncodeToString(h[:]) }

func (h hash32) IsZero() bool { return h == hash32{} }

func (h hash32) MarshalText() ([]byte, error) { return []byte(h.String()), nil }

func (h *hash32) UnmarshalText(text []byte) error {
	b, err := hex.DecodeString(string(text))
	if err != nil {
		return err
	}
	copy(h[:], b)
	return nil
}

// BlockId uniquely identifies a Block.
type BlockId hash32

func (id BlockId) String() string               { return hash32(id).String() }
func (id BlockId) IsZero() bool                  { return hash32(id).IsZero() }
func (id BlockId) MarshalText() ([]byte, error)  { return hash32(id).MarshalText() }
func (id *BlockId) UnmarshalText(text []byte) error {
	return (*hash32)(id).UnmarshalText(text)
}

// BlockIdFromHash derives a BlockId from the serialised block body.
func BlockIdFromHash(parts ...[]byte) BlockId { return BlockId(hashOf(parts...)) }

// QcId uniquely identifies a QuorumCertificate.
type QcId hash32

func (id QcId) String() string              { return hash32(id).String() }
func (id QcId) IsZero() bool                 { return hash32(id).IsZero() }
func (id QcId) MarshalText() ([]byte, error) { return hash32(id).MarshalText() }
func (id *QcId) UnmarshalText(text []byte) error {
	return (*hash32)(id).UnmarshalText(text)
}

// QcIdFromHash derives a QcId from the serialised certificate body.
func QcIdFromHash(parts ...[]byte) QcId { return QcId(hashOf(parts...)) }

// TxId uniquely identifies a transaction (atom, record, or pool record).
type TxId hash32

func (id TxId) String() string              { return hash32(id).String() }
func (id TxId) IsZero() bool                 { return hash32(id).IsZero() }
func (id TxId) MarshalText() ([]byte, error) { return hash32(id).MarshalText() }
func (id *TxId) UnmarshalText(text []byte) error {
	return (*hash32)(id).UnmarshalText(text)
}

// TxIdFromHex parses a hex-encoded transaction id, as used by test fixtures
// and RPC-adjacent callers that only ever see the wire representation.
func TxIdFromHex(s string) (TxId, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return TxId{}, err
	}
	var id TxId
	copy(id[:], b)
	return id, nil
}

// SubstateId identifies a versioned state entity (e.g. a UTXO-like output).
type SubstateId string

// VersionedSubstateId pins a SubstateId to a specific version.
type VersionedSubstateId struct {
	SubstateId SubstateId `json:"substate_id"`
	Version    uint32     `json:"version"`
}

// Shard identifies a committee partition within an epoch. Bucket is an
// alias used by the foreign-proposal bookkeeping, which refers to shards
// as "buckets" (spec.md §3/§GLOSSARY).
type Shard uint32

// Bucket is an alias for Shard used by ForeignProposal, matching the
// vocabulary spec.md §GLOSSARY uses for foreign-proposal partitioning.
type Bucket = Shard

// Epoch is a validator-set configuration period.
type Epoch uint64

// NodeHeight is a monotone non-negative block height.
type NodeHeight uint64
