package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP
// surface and the two background tasks.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	syncTicks            prometheus.Counter
	syncSkipped          prometheus.Counter
	syncFetchFailures    prometheus.Counter
	transitions          *prometheus.CounterVec
	notificationFailures prometheus.Counter
	waitingListOps       *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	syncTicks := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "activity_sync_ticks_total",
		Help: "Completed activity sync ticks",
	})

	syncSkipped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "activity_sync_ticks_skipped_total",
		Help: "Sync ticks skipped because the lease was held",
	})

	syncFetchFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "activity_fetch_failures_total",
		Help: "Failed external activity fetches",
	})

	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "endorsement_transitions_total",
		Help: "Endorsement lifecycle transitions",
	}, []string{"transition"})

	notificationFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notification_failures_total",
		Help: "Notification dispatches that exhausted retries",
	})

	waitingListOps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "waiting_list_operations_total",
		Help: "Waiting-list state machine operations",
	}, []string{"operation", "outcome"})

	registry.MustRegister(requestDuration, requestTotal, syncTicks, syncSkipped, syncFetchFailures, transitions, notificationFailures, waitingListOps)

	return &MetricsService{
		registry:             registry,
		handler:              promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:      requestDuration,
		requestTotal:         requestTotal,
		syncTicks:            syncTicks,
		syncSkipped:          syncSkipped,
		syncFetchFailures:    syncFetchFailures,
		transitions:          transitions,
		notificationFailures: notificationFailures,
		waitingListOps:       waitingListOps,
	}
}

// Handler exposes the Prometheus scrape endpoint.
func (m *MetricsService) Handler() http.Handler {
	return m.handler
}

// ObserveRequest records one HTTP request.
func (m *MetricsService) ObserveRequest(method, path string, status int, duration time.Duration) {
	labels := []string{method, path, strconv.Itoa(status)}
	m.requestDuration.WithLabelValues(labels...).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(labels...).Inc()
}

// RecordSyncReport folds one sync tick into the counters.
func (m *MetricsService) RecordSyncReport(report *SyncReport) {
	if report == nil {
		return
	}
	if report.Skipped {
		m.syncSkipped.Inc()
		return
	}
	m.syncTicks.Inc()
	m.syncFetchFailures.Add(float64(report.FetchFailures))
	m.transitions.WithLabelValues("reactivated").Add(float64(report.Reactivated))
}

// RecordRemovalReport folds one removal pass into the counters.
func (m *MetricsService) RecordRemovalReport(report *RemovalReport) {
	if report == nil || report.Skipped {
		return
	}
	m.transitions.WithLabelValues("warned").Add(float64(report.Warned))
	m.transitions.WithLabelValues("removed").Add(float64(report.Removed))
}

// RecordNotificationFailure counts a dispatch that exhausted retries.
func (m *MetricsService) RecordNotificationFailure() {
	m.notificationFailures.Inc()
}

// RecordWaitingListOp counts one state machine operation.
func (m *MetricsService) RecordWaitingListOp(operation, outcome string) {
	m.waitingListOps.WithLabelValues(operation, outcome).Inc()
}
