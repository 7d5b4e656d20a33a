package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the assessment service.
type Metrics struct {
	// Assessment saves by mode ("full", "draft", "final")
	SavesTotal *prometheus.CounterVec

	// Save pipeline latency including child-table rewrites
	SaveLatency prometheus.Histogram

	// Review decisions by action ("Approved", "Rejected")
	DecisionsTotal *prometheus.CounterVec

	// Notifications created by action
	NotificationsTotal *prometheus.CounterVec

	// Audit trail entries recorded by field
	AuditEntriesTotal *prometheus.CounterVec

	// HTTP request latency by method and route pattern
	HTTPDuration *prometheus.HistogramVec
}

// New creates a Metrics instance with all service metrics registered.
func New() *Metrics {
	return &Metrics{
		SavesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "siterisk_assessment_saves_total",
			Help: "Total assessment save operations by mode",
		}, []string{"mode"}),

		SaveLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "siterisk_assessment_save_duration_seconds",
			Help:    "Duration of the full assessment save transaction",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),

		DecisionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "siterisk_review_decisions_total",
			Help: "Total review decisions by action",
		}, []string{"action"}),

		NotificationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "siterisk_notifications_created_total",
			Help: "Total notifications created by action",
		}, []string{"action"}),

		AuditEntriesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "siterisk_audit_entries_total",
			Help: "Total risk score audit entries recorded by field",
		}, []string{"field"}),

		HTTPDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "siterisk_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"method", "route"}),
	}
}

// IncrementSave records a completed save by mode.
func (m *Metrics) IncrementSave(mode string) {
	if m != nil {
		m.SavesTotal.WithLabelValues(mode).Inc()
	}
}

// ObserveSaveLatency records the duration of a save transaction.
func (m *Metrics) ObserveSaveLatency(d time.Duration) {
	if m != nil {
		m.SaveLatency.Observe(d.Seconds())
	}
}

// IncrementDecision records a review decision outcome.
func (m *Metrics) IncrementDecision(action string) {
	if m != nil {
		m.DecisionsTotal.WithLabelValues(action).Inc()
	}
}

// IncrementNotification records a created notification.
func (m *Metrics) IncrementNotification(action string) {
	if m != nil {
		m.NotificationsTotal.WithLabelValues(action).Inc()
	}
}

// IncrementAuditEntry records an audit trail entry for a field.
func (m *Metrics) IncrementAuditEntry(field string) {
	if m != nil {
		m.AuditEntriesTotal.WithLabelValues(field).Inc()
	}
}

// ObserveHTTPDuration records a completed HTTP request.
func (m *Metrics) ObserveHTTPDuration(method, route string, d time.Duration) {
	if m != nil {
		m.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
	}
}
