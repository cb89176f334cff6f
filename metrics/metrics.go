package metrics

import "github.com/prometheus/client_golang/prometheus"

// Key constants are exported primarily for documentation reasons. Typically,
// they will not be used programmatically outside of defining the collectors.

// Keys for bulk operator metrics.
const (
	QueuedTotalKey       = "sqlbulk_queued_total"
	StatementsTotalKey   = "sqlbulk_statements_total"
	AffectedRowsTotalKey = "sqlbulk_affected_rows_total"
	StatementSecondsKey  = "sqlbulk_statement_seconds"
)

// Label values of StatementsTotal.
const (
	Fail = "fail"
	Ok   = "ok"

	Full    = "full"
	Partial = "partial"
)

// Collectors for bulk.Operator metrics.
var (
	QueuedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: QueuedTotalKey,
		Help: "Cumulative number of row-operations queued, by table.",
	}, []string{"table"})
	StatementsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: StatementsTotalKey,
		Help: "Cumulative number of executed batch statements, by table, batch kind (full or partial) and status.",
	}, []string{"table", "kind", "status"})
	AffectedRowsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: AffectedRowsTotalKey,
		Help: "Cumulative number of rows reported affected by batch statements, by table.",
	}, []string{"table"})
	StatementSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name: StatementSecondsKey,
		Help: "Duration of batch statement executions, by table and batch kind.",
	}, []string{"table", "kind"})
)

// BulkCollectors returns bulk.Operator metrics.
func BulkCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		QueuedTotal,
		StatementsTotal,
		AffectedRowsTotal,
		StatementSeconds,
	}
}
