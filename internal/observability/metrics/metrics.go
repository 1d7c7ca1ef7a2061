package metrics

import "github.com/prometheus/client_golang/prometheus"

// DialogMetrics exposes counters/histograms for the booking assistant.
type DialogMetrics struct {
	turnsTotal     *prometheus.CounterVec
	bookingsTotal  *prometheus.CounterVec
	fallbackTotal  *prometheus.CounterVec
	notifyTotal    *prometheus.CounterVec
	turnLatency    *prometheus.HistogramVec
	slotsAvailable prometheus.Histogram
}

func NewDialogMetrics(reg prometheus.Registerer) *DialogMetrics {
	m := &DialogMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dental",
			Subsystem: "dialog",
			Name:      "turns_total",
			Help:      "Dialog turns by state transition",
		}, []string{"from", "to"}),
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dental",
			Subsystem: "dialog",
			Name:      "bookings_total",
			Help:      "Booking attempts by outcome",
		}, []string{"outcome"}),
		fallbackTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dental",
			Subsystem: "dialog",
			Name:      "fallback_responses_total",
			Help:      "Unmatched utterances answered by the fallback responder",
		}, []string{"status"}),
		notifyTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dental",
			Subsystem: "notify",
			Name:      "staff_emails_total",
			Help:      "Staff notification emails by status",
		}, []string{"status"}),
		turnLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dental",
			Subsystem: "dialog",
			Name:      "turn_latency_seconds",
			Help:      "Latency of a single dialog turn",
			Buckets:   prometheus.DefBuckets,
		}, []string{"channel"}),
		slotsAvailable: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "dental",
			Subsystem: "availability",
			Name:      "open_slots",
			Help:      "Open slots offered when a date is selected",
			Buckets:   []float64{0, 1, 2, 4, 8, 12, 18},
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.bookingsTotal, m.fallbackTotal, m.notifyTotal, m.turnLatency, m.slotsAvailable)
	return m
}

func (m *DialogMetrics) ObserveTurn(from, to string) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(from, to).Inc()
}

func (m *DialogMetrics) ObserveBooking(outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(outcome).Inc()
}

func (m *DialogMetrics) ObserveFallback(status string) {
	if m == nil {
		return
	}
	m.fallbackTotal.WithLabelValues(status).Inc()
}

func (m *DialogMetrics) ObserveNotification(status string) {
	if m == nil {
		return
	}
	m.notifyTotal.WithLabelValues(status).Inc()
}

func (m *DialogMetrics) ObserveTurnLatency(channel string, seconds float64) {
	if m == nil {
		return
	}
	m.turnLatency.WithLabelValues(channel).Observe(seconds)
}

func (m *DialogMetrics) ObserveOpenSlots(n int) {
	if m == nil {
		return
	}
	m.slotsAvailable.Observe(float64(n))
}
