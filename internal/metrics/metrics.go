package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeNoop    = "noop"
)

var (
	invoiceTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settle_invoice_transitions_total",
			Help: "Invoice status transitions applied",
		},
		[]string{"from", "to"},
	)

	transactionSettlements = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settle_transaction_settlements_total",
			Help: "Tracked transactions moved to a terminal status",
		},
		[]string{"type", "status"},
	)

	relayRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settle_relay_requests_total",
			Help: "Paymaster and bundler requests by method and outcome",
		},
		[]string{"method", "outcome"},
	)

	relayRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "settle_relay_request_duration_seconds",
			Help:    "Latency of paymaster and bundler requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	webhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settle_webhook_events_total",
			Help: "Inbound webhook events by type and dispatch outcome",
		},
		[]string{"event_type", "outcome"},
	)

	reconciliationRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settle_reconciliation_runs_total",
			Help: "Scheduled reconciliation runs by job and outcome",
		},
		[]string{"job", "outcome"},
	)

	overdueInvoices = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "settle_overdue_invoices_total",
			Help: "Invoices aged into overdue by the sweep",
		},
	)

	opStatusCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settle_op_status_lookups_total",
			Help: "Operation status lookups by the source that answered",
		},
		[]string{"source"},
	)
)

func RecordInvoiceTransition(from, to string) {
	invoiceTransitions.WithLabelValues(from, to).Inc()
}

func RecordTransactionSettlement(txType, status string) {
	transactionSettlements.WithLabelValues(txType, status).Inc()
}

// ObserveRelayRequest records one relay call that started at start
func ObserveRelayRequest(method string, start time.Time, err error) {
	relayRequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	relayRequests.WithLabelValues(method, outcome).Inc()
}

func RecordWebhookEvent(eventType, outcome string) {
	webhookEvents.WithLabelValues(eventType, outcome).Inc()
}

func RecordReconciliationRun(job string, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	reconciliationRuns.WithLabelValues(job, outcome).Inc()
}

func AddOverdueInvoices(n int) {
	overdueInvoices.Add(float64(n))
}

// RecordOpStatusLookup counts which layer answered a status poll: cache, tracker or relay
func RecordOpStatusLookup(source string) {
	opStatusCache.WithLabelValues(source).Inc()
}

// Handler exposes the default registry for scraping
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
