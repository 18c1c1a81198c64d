// Package metrics registers the gateway's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TxSubmitted counts ledger transactions confirmed per contract method.
	TxSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "esgledger",
		Name:      "ledger_tx_submitted_total",
		Help:      "Ledger transactions submitted and confirmed, by contract method.",
	}, []string{"method"})

	// TxFailed counts failed ledger transactions per method and failure kind.
	TxFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "esgledger",
		Name:      "ledger_tx_failed_total",
		Help:      "Ledger transactions that failed, by contract method and failure kind.",
	}, []string{"method", "kind"})

	// FeeFallbacks counts degraded-mode fee estimations.
	FeeFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "esgledger",
		Name:      "fee_fallbacks_total",
		Help:      "Fee estimations that fell back to a fixed default.",
	}, []string{"kind"})

	// ReconAnomalies counts ledger/mirror divergences found by the scanner.
	ReconAnomalies = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "esgledger",
		Name:      "recon_anomalies_total",
		Help:      "Ledger vs mirror divergences detected, by anomaly type.",
	}, []string{"type"})

	// HTTPRequests counts API requests by route and status class.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "esgledger",
		Name:      "http_requests_total",
		Help:      "API requests served, by route pattern and status class.",
	}, []string{"route", "status"})
)

// Handler exposes the default Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
