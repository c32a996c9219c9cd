package storage

import (
	"github.com/tolelom/dancore/core"
	"github.com/tolelom/dancore/crypto"
)

// VotesGetByBlockAndSender returns the vote sender cast for blockId, if
// any.
func (t *ReadTx) VotesGetByBlockAndSender(blockId core.BlockId, sender crypto.PublicKey) (core.Vote, bool) {
	for _, v := range t.s.state.Votes {
		if v.BlockId == blockId && string(v.Sender) == string(sender) {
			return v, true
		}
	}
	return core.Vote{}, false
}

// VotesCountForBlock returns the number of votes recorded for blockId.
func (t *ReadTx) VotesCountForBlock(blockId core.BlockId) int {
	n := 0
	for _, v := range t.s.state.Votes {
		if v.BlockId == blockId {
			n++
		}
	}
	return n
}

// VotesGetForBlock returns every vote recorded for blockId.
func (t *ReadTx) VotesGetForBlock(blockId core.BlockId) []core.Vote {
	out := make([]core.Vote, 0)
	for _, v := range t.s.state.Votes {
		if v.BlockId == blockId {
			out = append(out, v)
		}
	}
	return out
}

// VotesInsert records a vote.
func (t *WriteTx) VotesInsert(vote core.Vote) {
	t.s.state.Votes = append(t.s.state.Votes, vote)
	t.markDirty()
}
