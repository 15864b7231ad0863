package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"auto-focus.app/updates/internal/entitlement"
)

type Metrics struct {
	SyncRequests     *prometheus.CounterVec
	UpstreamDuration *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SyncRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "maintenance_sync_requests_total",
			Help: "Maintenance sync requests by outcome.",
		}, []string{"outcome"}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "maintenance_upstream_request_duration_seconds",
			Help:    "Duration of calls to the licensing and order APIs.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		}, []string{"call", "result"}),
	}
	reg.MustRegister(m.SyncRequests, m.UpstreamDuration)
	return m
}

// OutcomeBadRequest counts bodies rejected before the service is called.
const OutcomeBadRequest = "bad_request"

// Outcome names the label a Sync result is counted under.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "active"
	case errors.Is(err, entitlement.ErrMissingLicenseKey):
		return "missing_key"
	case errors.Is(err, entitlement.ErrInvalidLicense):
		return "invalid_license"
	case errors.Is(err, entitlement.ErrConfiguration):
		return "configuration_error"
	case errors.Is(err, entitlement.ErrUpstreamUnavailable):
		return "upstream_unavailable"
	case errors.Is(err, entitlement.ErrMalformedUpstreamData):
		return "malformed_upstream_data"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}

func (m *Metrics) ObserveSync(err error) {
	m.SyncRequests.WithLabelValues(Outcome(err)).Inc()
}

func (m *Metrics) ObserveBadRequest() {
	m.SyncRequests.WithLabelValues(OutcomeBadRequest).Inc()
}

func (m *Metrics) ObserveUpstream(call string, took time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.UpstreamDuration.WithLabelValues(call, result).Observe(took.Seconds())
}
