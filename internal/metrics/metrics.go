// Package metrics exposes the orchestrator's Prometheus counters and
// histograms.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// Namespace is the Prometheus metric namespace prefix for this service.
	Namespace = "sarthi"
	// Path is where the registry is exposed over HTTP.
	Path = "/metrics"
)

var (
	AppInfo = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "info",
		Help:      "Application information",
	},
		[]string{"version", "log_level", "start_time"},
	)
	DeploymentsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "deployments_total",
		Help:      "Total number of Create requests processed, by outcome",
	}, []string{"outcome"})
	TeardownsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "teardowns_total",
		Help:      "Total number of Delete requests processed, by outcome",
	}, []string{"outcome"})
	DeployDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "deploy_duration_seconds",
		Help:      "Duration of the full Create pipeline in seconds",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
	})
	FreePortSearchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "free_port_search_duration_seconds",
		Help:      "Duration of the free-port probing loop in seconds",
		Buckets:   prometheus.DefBuckets,
	})
	ComposeUpRetries = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "compose_up_retries_total",
		Help:      "Number of bounded port-conflict retries of the compose-up sub-sequence",
	})
)

func init() {
	prometheus.MustRegister(
		AppInfo,
		DeploymentsTotal, TeardownsTotal,
		DeployDuration, FreePortSearchDuration,
		ComposeUpRetries,
	)
}

// Handler returns the HTTP handler that exposes the registry at Path.
func Handler() http.Handler {
	return promhttp.Handler()
}
