// Package metrics wires ambient Prometheus instrumentation for storage and
// consensus, grounded on the counter/gauge shape luxfi-consensus's
// protocol/nova/metrics.go builds around prometheus.Registerer. There is no
// HTTP exporter here: that would be a transport wrapper, out of scope.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics is the set of counters/gauges a Store and Handler report into.
type Metrics struct {
	BlocksProcessed         prometheus.Counter
	BlocksRejected          prometheus.Counter
	DummyBlocksSynthesized  prometheus.Counter
	HighQcHeight            prometheus.Gauge
	LeafBlockHeight         prometheus.Gauge
	ForeignProposalsAborted prometheus.Counter
	ForeignProposalsDeleted prometheus.Counter
	TransactionPoolSize     prometheus.Gauge
}

// New registers a fresh Metrics set with registerer.
func New(registerer prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		BlocksProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dancore_blocks_processed_total",
			Help: "Number of blocks successfully validated and persisted.",
		}),
		BlocksRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dancore_blocks_rejected_total",
			Help: "Number of candidate blocks that failed validation.",
		}),
		DummyBlocksSynthesized: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dancore_dummy_blocks_synthesized_total",
			Help: "Number of dummy blocks synthesised to bridge leader-failure gaps.",
		}),
		HighQcHeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dancore_high_qc_height",
			Help: "Block height of the highest quorum certificate seen.",
		}),
		LeafBlockHeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dancore_leaf_block_height",
			Help: "Height of the current chain tip.",
		}),
		ForeignProposalsAborted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dancore_foreign_proposals_aborted_transactions_total",
			Help: "Number of transactions forced to Abort by foreign-proposal timeout reconciliation.",
		}),
		ForeignProposalsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dancore_foreign_proposals_deleted_total",
			Help: "Number of foreign proposals deleted once fully resolved.",
		}),
		TransactionPoolSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dancore_transaction_pool_size",
			Help: "Number of transactions currently tracked by the pool.",
		}),
	}
	for _, c := range []prometheus.Collector{
		m.BlocksProcessed, m.BlocksRejected, m.DummyBlocksSynthesized,
		m.HighQcHeight, m.LeafBlockHeight, m.ForeignProposalsAborted,
		m.ForeignProposalsDeleted, m.TransactionPoolSize,
	} {
		if err := registerer.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}
