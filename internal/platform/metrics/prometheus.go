package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/adilet-k/bazarly/internal/platform/logger"
)

// Manager holds the service's Prometheus metrics.
type Manager struct {
	Registry *prometheus.Registry

	ListingsCreatedTotal   prometheus.Counter
	ListingUpdatesTotal    prometheus.Counter
	ListingDeletesTotal    prometheus.Counter
	SalesRecordedTotal     prometheus.Counter
	StatusTransitionsTotal *prometheus.CounterVec
	RecommendationsTotal   prometheus.Counter
	OperationErrorsTotal   *prometheus.CounterVec
	OperationLatency       *prometheus.HistogramVec
}

// NewManager initializes and registers the service metrics on a private
// registry so tests can construct managers without collisions.
func NewManager(serviceName string) *Manager {
	registry := prometheus.NewRegistry()

	m := &Manager{
		Registry: registry,
		ListingsCreatedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Name:      "listings_created_total",
			Help:      "Total number of listings created.",
		}),
		ListingUpdatesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Name:      "listing_updates_total",
			Help:      "Total number of listings updated.",
		}),
		ListingDeletesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Name:      "listing_deletes_total",
			Help:      "Total number of listings deleted.",
		}),
		SalesRecordedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Name:      "sales_recorded_total",
			Help:      "Total number of sale records created.",
		}),
		StatusTransitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Name:      "status_transitions_total",
			Help:      "Total number of successful listing status transitions.",
		}, []string{"from", "to"}),
		RecommendationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Name:      "recommendation_requests_total",
			Help:      "Total number of recommendation pages served.",
		}),
		OperationErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Name:      "operation_errors_total",
			Help:      "Total number of failed operations by method and error kind.",
		}, []string{"method", "kind"}),
		OperationLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: serviceName,
			Name:      "operation_latency_seconds",
			Help:      "Latency of core operations by method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}

	registry.MustRegister(
		m.ListingsCreatedTotal,
		m.ListingUpdatesTotal,
		m.ListingDeletesTotal,
		m.SalesRecordedTotal,
		m.StatusTransitionsTotal,
		m.RecommendationsTotal,
		m.OperationErrorsTotal,
		m.OperationLatency,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	return m
}

// StartServer exposes /metrics on the given port. Blocks until the listener
// fails, so callers run it in a goroutine.
func StartServer(port string, registry *prometheus.Registry, log *logger.Logger) error {
	if port == "" {
		log.Info("metrics server port not configured, server will not start")
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	log.Info("metrics server starting", zap.String("port", port), zap.String("path", "/metrics"))
	server := &http.Server{Addr: ":" + port, Handler: mux}
	return server.ListenAndServe()
}
