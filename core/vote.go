package core

import (
	"encoding/binary"

	"github.com/tolelom/dancore/crypto"
)

// Vote is a validator's signed decision on a block (spec.md §3).
type Vote struct {
	BlockId        BlockId          `json:"block_id"`
	BlockHeight    NodeHeight       `json:"block_height"`
	Sender         crypto.PublicKey `json:"sender"`
	SenderLeafHash string           `json:"sender_leaf_hash"`
	Decision       VoteDecision     `json:"decision"`
	Signature      string           `json:"signature"`
}

// SigningBytes returns the bytes a signature over this vote must cover.
func (v *Vote) SigningBytes() []byte {
	buf := make([]byte, idSize, idSize+8+len(v.Decision))
	copy(buf, v.BlockId[:])
	var heightBuf [8]byte
	binary.BigEndian.PutUint64(heightBuf[:], uint64(v.BlockHeight))
	buf = append(buf, heightBuf[:]...)
	buf = append(buf, []byte(v.Decision)...)
	return buf
}
