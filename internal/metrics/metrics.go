package metrics

import (
	"encoding/json"
	"net/http"

	"github.com/ErlanBelekov/taskboard/internal/health"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Auth metrics

	LoginsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tracker",
		Name:      "logins_total",
		Help:      "Login attempts, by method and outcome.",
	}, []string{"method", "outcome"})

	TokenValidationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tracker",
		Name:      "persistent_login_validations_total",
		Help:      "Remember-me token validations, by outcome.",
	}, []string{"outcome"})

	TokensReapedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tracker",
		Name:      "persistent_logins_reaped_total",
		Help:      "Expired remember-me tokens removed by the reaper.",
	})

	ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "tracker",
		Name:      "active_sessions",
		Help:      "Sessions currently held in memory.",
	})

	// Notification metrics

	NotificationsCreatedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tracker",
		Name:      "notifications_created_total",
		Help:      "In-app notifications written, by category.",
	}, []string{"category"})

	NotificationStoreFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tracker",
		Name:      "notification_store_failures_total",
		Help:      "In-app notification writes that failed.",
	})

	EmailsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tracker",
		Name:      "emails_total",
		Help:      "Email delivery attempts, by outcome.",
	}, []string{"outcome"})

	// Scan metrics

	ScanDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "tracker",
		Name:      "scan_duration_seconds",
		Help:      "Time taken by one notification scan.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"scan"})

	ScanItemsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tracker",
		Name:      "scan_items_total",
		Help:      "Items matched by notification scans.",
	}, []string{"scan"})

	// Scheduler metrics

	JobRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tracker",
		Name:      "scheduled_job_runs_total",
		Help:      "Scheduled job runs, by job and outcome (ok, error, skipped).",
	}, []string{"job", "outcome"})

	JobLastSuccess = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "tracker",
		Name:      "scheduled_job_last_success_timestamp_seconds",
		Help:      "Unix time of the last successful run of each scheduled job.",
	}, []string{"job"})

	// HTTP metrics

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "tracker",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tracker",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests.",
	}, []string{"method", "path", "status"})
)

func Register() {
	prometheus.MustRegister(
		LoginsTotal,
		TokenValidationsTotal,
		TokensReapedTotal,
		ActiveSessions,
		NotificationsCreatedTotal,
		NotificationStoreFailuresTotal,
		EmailsTotal,
		ScanDuration,
		ScanItemsTotal,
		JobRunsTotal,
		JobLastSuccess,
		HTTPRequestDuration,
		HTTPRequestsTotal,
	)
}

// NewServer serves /metrics and the liveness and readiness checks on a separate port.
func NewServer(addr string, checker *health.Checker) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeHealth(w, checker.Liveness(r.Context()))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		writeHealth(w, checker.Readiness(r.Context()))
	})
	return &http.Server{Addr: addr, Handler: mux}
}

func writeHealth(w http.ResponseWriter, res health.HealthResult) {
	w.Header().Set("Content-Type", "application/json")
	if res.Status == health.StatusDown {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(res)
}
