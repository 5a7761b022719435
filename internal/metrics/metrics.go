package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Sync progress metrics
	LastSyncedBlock = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chainsyncer_last_synced_block",
			Help: "The last block height whose events are fully synced",
		},
	)

	ChainHeadBlock = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chainsyncer_chain_head_block",
			Help: "The chain head height last reported by the node",
		},
	)

	SubRangesProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chainsyncer_subranges_processed_total",
			Help: "Total number of fully processed sub-ranges",
		},
	)

	LogsDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chainsyncer_logs_delivered_total",
			Help: "Total number of event logs handed to the persistence collaborator",
		},
		[]string{"contract"},
	)

	// Error metrics
	fetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chainsyncer_fetch_errors_total",
			Help: "Total number of event fetch failures",
		},
		[]string{"contract"},
	)

	oracleFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chainsyncer_oracle_failures_total",
			Help: "Total number of chain head query failures",
		},
	)

	clampEvents = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chainsyncer_checkpoint_clamps_total",
			Help: "Total number of checkpoint clamp-downs after a stale or reorged head",
		},
	)

	rpcRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chainsyncer_rpc_retries_total",
			Help: "Total number of RPC retries by operation",
		},
		[]string{"operation"},
	)

	// Scheduler state gauge (0=catching-up, 1=idle-wait, 2=fatal)
	SchedulerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chainsyncer_scheduler_state",
			Help: "Current scheduler state (0=catching-up, 1=idle-wait, 2=fatal)",
		},
	)
)

func RPCRetryInc(operation string) {
	rpcRetries.WithLabelValues(operation).Inc()
}

func FetchErrorInc(contract string) {
	fetchErrors.WithLabelValues(contract).Inc()
}

func OracleFailureInc() {
	oracleFailures.Inc()
}

func ClampInc() {
	clampEvents.Inc()
}

func LogsDeliveredAdd(contract string, count int) {
	LogsDelivered.WithLabelValues(contract).Add(float64(count))
}
