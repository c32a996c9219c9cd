package config

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/tolelom/dancore/core"
)

// ValidatorConfig identifies one member of this shard's committee.
type ValidatorConfig struct {
	PublicKey string `json:"public_key"` // hex-encoded ed25519 public key
}

// GenesisConfig describes the chain's initial state.
type GenesisConfig struct {
	Network string `json:"network"`
	Epoch   core.Epoch `json:"epoch"`
}

// Config holds all node configuration.
type Config struct {
	NodeID  string `json:"node_id"`
	DataDir string `json:"data_dir"`

	Shard        core.Shard        `json:"shard"`
	Validators   []ValidatorConfig `json:"validators"` // this shard's committee
	Genesis      GenesisConfig     `json:"genesis"`

	// ForeignProposalTimeoutBlocks parameterises the FOREIGN_PROPOSAL_TIMEOUT
	// constant (spec.md §9 design note: "value 1000 is a constant; should be
	// parameterised in a config struct").
	ForeignProposalTimeoutBlocks core.NodeHeight `json:"foreign_proposal_timeout_blocks"`

	// MaxBlockCommands is the configured cap on commands per proposed block
	// (DefaultConfig sets 500). No code in this module reads or enforces
	// it, and an explicit 0 is kept as 0.
	MaxBlockCommands int `json:"max_block_commands"`
}

// DefaultConfig returns a single-shard development configuration.
func DefaultConfig() *Config {
	return &Config{
		NodeID:                       "validator0",
		DataDir:                      "./data",
		Shard:                        0,
		MaxBlockCommands:             500,
		ForeignProposalTimeoutBlocks: 1000,
		Genesis: GenesisConfig{
			Network: "dancore-dev",
			Epoch:   1,
		},
	}
}

// Load reads a JSON config file from path and validates required fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// Validate checks that all required fields are present and well-formed.
func (c *Config) Validate() error {
	if c.NodeID == "" {
		return fmt.Errorf("node_id must not be empty")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	if c.Genesis.Network == "" {
		return fmt.Errorf("genesis.network must not be empty")
	}
	if len(c.Validators) == 0 {
		return fmt.Errorf("validators list must not be empty")
	}
	for i, v := range c.Validators {
		b, err := hex.DecodeString(v.PublicKey)
		if err != nil || len(b) != 32 {
			return fmt.Errorf("validators[%d]: must be 64-char hex (32 bytes ed25519 pubkey), got %q", i, v.PublicKey)
		}
	}
	if c.ForeignProposalTimeoutBlocks == 0 {
		return fmt.Errorf("foreign_proposal_timeout_blocks must not be zero")
	}
	return nil
}

// Save writes the config to path as formatted JSON.
func Save(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
