package metrics

import "github.com/prometheus/client_golang/prometheus"

// LiveMetrics tracks live-update channel lifecycles per resource class.
type LiveMetrics struct {
	open     *prometheus.GaugeVec
	opened   *prometheus.CounterVec
	closed   *prometheus.CounterVec
	messages *prometheus.CounterVec
}

// NewLiveMetrics registers the live channel metrics on the provided registerer.
func NewLiveMetrics(reg prometheus.Registerer) *LiveMetrics {
	if reg == nil {
		return &LiveMetrics{}
	}
	open := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "live_channels_open",
		Help: "Live update channels currently open.",
	}, []string{"class"})
	opened := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "live_channels_opened_total",
		Help: "Live update channels opened.",
	}, []string{"class"})
	closed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "live_channels_closed_total",
		Help: "Live update channels closed.",
	}, []string{"class"})
	messages := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "live_messages_total",
		Help: "Live update snapshots applied.",
	}, []string{"class"})
	reg.MustRegister(open, opened, closed, messages)
	return &LiveMetrics{open: open, opened: opened, closed: closed, messages: messages}
}

// Opened records a channel open for class.
func (m *LiveMetrics) Opened(class string) {
	if m == nil || m.open == nil {
		return
	}
	class = normalizeLabel(class)
	m.open.WithLabelValues(class).Inc()
	m.opened.WithLabelValues(class).Inc()
}

// Closed records a channel close for class.
func (m *LiveMetrics) Closed(class string) {
	if m == nil || m.open == nil {
		return
	}
	class = normalizeLabel(class)
	m.open.WithLabelValues(class).Dec()
	m.closed.WithLabelValues(class).Inc()
}

// Message records one applied snapshot for class.
func (m *LiveMetrics) Message(class string) {
	if m == nil || m.messages == nil {
		return
	}
	m.messages.WithLabelValues(normalizeLabel(class)).Inc()
}
