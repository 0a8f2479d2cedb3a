// Package metrics exposes the Prometheus counters/gauges this node emits,
// following degeri-dcrlnd's monitoring/PROM subsystem convention: a
// package-level set of collectors, registered once at start-up into the
// registry the caller passes to MustRegister.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// BlocksMined counts blocks this peer successfully mined and stored
	// (spec §4.5.6).
	BlocksMined = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "noobcash",
		Name:      "blocks_mined_total",
		Help:      "Blocks mined locally and accepted into this peer's chain.",
	})

	// BlocksAccepted counts blocks this peer accepted from another peer,
	// including chain switches (spec §4.5.8, §4.5.10).
	BlocksAccepted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "noobcash",
		Name:      "blocks_accepted_total",
		Help:      "Blocks accepted from peers, via normal extension or fork resolution.",
	})

	// TransactionsRejected counts transactions rejected at construction or
	// validation time (insufficient funds, bad signature, double-spend;
	// spec §7).
	TransactionsRejected = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "noobcash",
		Name:      "transactions_rejected_total",
		Help:      "Transactions rejected for insufficient funds or failed validation.",
	})

	// ForkResolutions counts how many times resolve_conflicts ran, labeled
	// by outcome (spec §4.5.10).
	ForkResolutions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "noobcash",
		Name:      "fork_resolutions_total",
		Help:      "Fork resolution runs, labeled by outcome (kept/switched).",
	}, []string{"outcome"})

	// MempoolDepth reports the current tx_queue length.
	MempoolDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "noobcash",
		Name:      "mempool_depth",
		Help:      "Current length of tx_queue.",
	})
)

// MustRegister registers every collector in this package with reg. Called
// once from cmd/noobcashd during start-up.
func MustRegister(reg *prometheus.Registry) {
	reg.MustRegister(BlocksMined, BlocksAccepted, TransactionsRejected, ForkResolutions, MempoolDepth)
}
