package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes counters/histograms for dashboard, booking and loyalty flows.
type Metrics struct {
	statusUpdates *prometheus.CounterVec
	remoteLatency *prometheus.HistogramVec
	bookings      *prometheus.CounterVec
	redemptions   *prometheus.CounterVec
	otpDeliveries *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		statusUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "steammaster",
			Subsystem: "dashboard",
			Name:      "status_updates_total",
			Help:      "Appointment status updates by target status and outcome",
		}, []string{"status", "outcome"}),
		remoteLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "steammaster",
			Subsystem: "api",
			Name:      "remote_request_seconds",
			Help:      "Latency of calls to the external booking API",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "result"}),
		bookings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "steammaster",
			Subsystem: "booking",
			Name:      "submissions_total",
			Help:      "Booking submissions by result",
		}, []string{"result"}),
		redemptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "steammaster",
			Subsystem: "loyalty",
			Name:      "redemptions_total",
			Help:      "Reward redemption attempts",
		}, []string{"reward", "accepted"}),
		otpDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "steammaster",
			Subsystem: "auth",
			Name:      "otp_events_total",
			Help:      "OTP sends and verifications by result",
		}, []string{"event", "result"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.statusUpdates, m.remoteLatency, m.bookings, m.redemptions, m.otpDeliveries)
	return m
}

func (m *Metrics) ObserveStatusUpdate(status, outcome string) {
	if m == nil {
		return
	}
	m.statusUpdates.WithLabelValues(status, outcome).Inc()
}

func (m *Metrics) ObserveRemote(operation string, err error, seconds float64) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.remoteLatency.WithLabelValues(operation, result).Observe(seconds)
}

func (m *Metrics) ObserveBooking(result string) {
	if m == nil {
		return
	}
	m.bookings.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveRedemption(reward string, accepted bool) {
	if m == nil {
		return
	}
	m.redemptions.WithLabelValues(reward, strconv.FormatBool(accepted)).Inc()
}

func (m *Metrics) ObserveOTP(event, result string) {
	if m == nil {
		return
	}
	m.otpDeliveries.WithLabelValues(event, result).Inc()
}
