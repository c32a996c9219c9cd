package config

import (
	"github.com/tolelom/dancore/core"
	"github.com/tolelom/dancore/crypto"
)

// CreateGenesisBlock builds and signs the chain's block #0: the
// self-referencing block every ancestor walk terminates at (spec.md §3
// Block invariant, §GLOSSARY).
func CreateGenesisBlock(cfg *Config, proposerPriv crypto.PrivateKey) *core.Block {
	proposerPub := proposerPriv.Public()
	block := &core.Block{
		Id:         core.GenesisBlockId,
		ParentId:   core.GenesisBlockId,
		JustifyId:  core.GenesisQcId,
		Height:     0,
		Epoch:      cfg.Genesis.Epoch,
		ProposedBy: proposerPub,
		Shard:      cfg.Shard,
		Network:    cfg.Genesis.Network,
		Timestamp:  0,
	}
	block.Signature = crypto.Sign(proposerPriv, block.Id[:])
	return block
}

// CreateGenesisQc builds the QC the genesis block is justified by: it
// attests to itself, decided Accept, with no aggregated signatures.
func CreateGenesisQc(genesis *core.Block) *core.QuorumCertificate {
	qc := &core.QuorumCertificate{
		Id:          core.GenesisQcId,
		BlockId:     genesis.Id,
		BlockHeight: genesis.Height,
		Epoch:       genesis.Epoch,
		Shard:       genesis.Shard,
		Decision:    core.VoteAccept,
	}
	return qc
}
