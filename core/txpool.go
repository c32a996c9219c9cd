package core

// TransactionPoolRecord is a transaction's position in the staged pool
// lifecycle (spec.md §3/§4.2): New → Prepared → LocalPrepared →
// AllPrepared → Accept/AllAccepted, with SomePrepared covering a partial
// multi-shard prepare. The effective record for any chain tip is this base
// row overlaid with TransactionPoolStateUpdate rows along that chain
// (spec.md §9 "Speculative state").
type TransactionPoolRecord struct {
	TxId           TxId      `json:"tx_id"`
	Stage          PoolStage `json:"stage"`
	IsReady        bool      `json:"is_ready"`
	LocalDecision  Decision  `json:"local_decision"`
	RemoteEvidence Evidence  `json:"remote_evidence"`
	PendingStage   PoolStage `json:"pending_stage,omitempty"`
	TransactionFee uint64    `json:"transaction_fee"`
}

// TransactionPoolStateUpdate is a per-(block, tx) speculative stage/decision
// change. The latest update along the chain from locked to leaf determines
// the effective pool view for that tx (spec.md §3).
type TransactionPoolStateUpdate struct {
	Id            uint64     `json:"id"` // auto-increment row id; tie-breaks equal-height updates
	TxId          TxId       `json:"tx_id"`
	BlockId       BlockId    `json:"block_id"`
	BlockHeight   NodeHeight `json:"block_height"`
	Stage         PoolStage  `json:"stage"`
	IsReady       bool       `json:"is_ready"`
	LocalDecision Decision   `json:"local_decision,omitempty"`
}

// Apply overlays update onto rec, producing the effective record as of
// update's block. Only the fields an update actually carries change.
func (rec TransactionPoolRecord) Apply(update TransactionPoolStateUpdate) TransactionPoolRecord {
	rec.Stage = update.Stage
	rec.IsReady = update.IsReady
	if update.LocalDecision != "" {
		rec.LocalDecision = update.LocalDecision
	}
	return rec
}

// LatestUpdates picks, for each tx id present in updates, the update with
// the greatest BlockHeight (ties broken by the greater Id) — the
// "transaction-pool view between two blocks" algorithm of spec.md §4.1.
func LatestUpdates(updates []TransactionPoolStateUpdate) map[TxId]TransactionPoolStateUpdate {
	best := make(map[TxId]TransactionPoolStateUpdate, len(updates))
	for _, u := range updates {
		cur, ok := best[u.TxId]
		if !ok || u.BlockHeight > cur.BlockHeight || (u.BlockHeight == cur.BlockHeight && u.Id > cur.Id) {
			best[u.TxId] = u
		}
	}
	return best
}
