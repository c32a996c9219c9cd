package storage

import "github.com/tolelom/dancore/core"

// ForeignProposalsExists reports whether fp's uniqueness tuple is already
// recorded.
func (t *ReadTx) ForeignProposalsExists(fp core.ForeignProposal) bool {
	_, ok := t.s.state.ForeignProposals[fp.Key()]
	return ok
}

// ForeignProposalsGetAllNew returns every foreign proposal in state New
// (spec.md §4.6 all_new).
func (t *ReadTx) ForeignProposalsGetAllNew() []*core.ForeignProposal {
	return t.foreignProposalsInState(core.ForeignProposalNew)
}

// ForeignProposalsGetAllProposed returns every foreign proposal in state
// Proposed whose ProposedHeight is ≤ upToHeight (spec.md §4.6 all_proposed).
func (t *ReadTx) ForeignProposalsGetAllProposed(upToHeight core.NodeHeight) []*core.ForeignProposal {
	out := make([]*core.ForeignProposal, 0)
	for _, fp := range t.s.state.ForeignProposals {
		if fp.State == core.ForeignProposalProposed && fp.ProposedHeight <= upToHeight {
			out = append(out, fp)
		}
	}
	return out
}

func (t *ReadTx) foreignProposalsInState(state core.ForeignProposalState) []*core.ForeignProposal {
	out := make([]*core.ForeignProposal, 0)
	for _, fp := range t.s.state.ForeignProposals {
		if fp.State == state {
			out = append(out, fp)
		}
	}
	return out
}

// ForeignProposalsGetAllPending scans commands in state-changing blocks
// from from to to (both included) for ForeignProposal commands still in
// state Proposed
// (spec.md §4.1/§4.6 get_all_pending/all_pending).
func (t *ReadTx) ForeignProposalsGetAllPending(from, to core.BlockId) ([]*core.ForeignProposal, error) {
	blockIds, err := t.BlockIdsThatChangeStateBetween(from, to)
	if err != nil {
		return nil, err
	}
	inRange := make(map[core.BlockId]bool, len(blockIds))
	for _, id := range blockIds {
		inRange[id] = true
	}
	seen := make(map[core.ForeignProposalKey]bool)
	out := make([]*core.ForeignProposal, 0)
	for _, b := range t.s.state.Blocks {
		if !inRange[b.Id] {
			continue
		}
		for _, cmd := range b.Commands {
			if cmd.Kind != core.CommandForeignProposal || cmd.ForeignProposal == nil {
				continue
			}
			key := cmd.ForeignProposal.Key()
			if seen[key] {
				continue
			}
			if stored, ok := t.s.state.ForeignProposals[key]; ok && stored.State == core.ForeignProposalProposed {
				seen[key] = true
				out = append(out, stored)
			}
		}
	}
	return out, nil
}

// ForeignProposalsInsert records fp with the state it carries,
// idempotently: inserting an already-recorded key is a no-op.
func (t *WriteTx) ForeignProposalsInsert(fp *core.ForeignProposal) {
	key := fp.Key()
	if _, exists := t.s.state.ForeignProposals[key]; exists {
		return
	}
	cp := *fp
	t.s.state.ForeignProposals[key] = &cp
	t.markDirty()
}

// ForeignProposalsSetState transitions fp to state.
func (t *WriteTx) ForeignProposalsSetState(fp core.ForeignProposal, state core.ForeignProposalState) error {
	stored, ok := t.s.state.ForeignProposals[fp.Key()]
	if !ok {
		return core.NewStorageError(core.StorageErrNotFound, "foreign proposal not found")
	}
	stored.State = state
	t.markDirty()
	return nil
}

// ForeignProposalsDelete removes fp (spec.md §3 explicit delete when all
// its transactions are resolved or timed out).
func (t *WriteTx) ForeignProposalsDelete(fp core.ForeignProposal) {
	delete(t.s.state.ForeignProposals, fp.Key())
	t.markDirty()
}
