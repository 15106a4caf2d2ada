package observability

import (
	"private-groups/domain"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "private_groups"

// Metrics counts what the dispatcher and the outbox relay do. A nil *Metrics
// records nothing, so components can run without a registry.
type Metrics struct {
	transitions *prometheus.CounterVec
	aborts      *prometheus.CounterVec
	received    *prometheus.CounterVec
	sent        *prometheus.CounterVec
	duplicates  prometheus.Counter
	conflicts   prometheus.Counter
	delivered   prometheus.Counter
	failures    prometheus.Counter
	outbox      prometheus.Gauge
	queueLength *prometheus.GaugeVec
	queueCap    *prometheus.GaugeVec
	rss         prometheus.Gauge
	cpu         prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_transitions_total",
			Help:      "Committed session transitions by role and states.",
		}, []string{"role", "from", "to"}),
		aborts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_aborts_total",
			Help:      "Sessions moved to ERROR by role.",
		}, []string{"role"}),
		received: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Remote messages handled by type.",
		}, []string{"type"}),
		sent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_sent_total",
			Help:      "Messages produced by transitions by type.",
		}, []string{"type"}),
		duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_duplicate_total",
			Help:      "Remote messages absorbed because already stored.",
		}),
		conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transaction_conflicts_total",
			Help:      "Transactions retried after a write conflict.",
		}),
		delivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_delivered_total",
			Help:      "Messages handed to the transport.",
		}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_failures_total",
			Help:      "Transport deliveries that failed and stay queued.",
		}),
		outbox: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "outbox_pending",
			Help:      "Messages read from the outbox on the last poll.",
		}),
		queueLength: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_length",
			Help:      "Buffered items of an in-process queue at the last sample.",
		}, []string{"queue"}),
		queueCap: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_capacity",
			Help:      "Capacity of an in-process queue.",
		}, []string{"queue"}),
		rss: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "process_resident_bytes",
			Help:      "Resident memory of the node process.",
		}),
		cpu: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "process_cpu_percent",
			Help:      "CPU usage of the node process since it started.",
		}),
	}
	reg.MustRegister(m.transitions, m.aborts, m.received, m.sent,
		m.duplicates, m.conflicts, m.delivered, m.failures, m.outbox,
		m.queueLength, m.queueCap, m.rss, m.cpu)
	return m
}

func (m *Metrics) Transition(role domain.Role, from, to domain.State) {
	if m == nil || from == to {
		return
	}
	m.transitions.WithLabelValues(role.String(), from.String(), to.String()).Inc()
	if to == domain.Error {
		m.aborts.WithLabelValues(role.String()).Inc()
	}
}

func (m *Metrics) Received(t domain.MessageType) {
	if m != nil {
		m.received.WithLabelValues(t.String()).Inc()
	}
}

func (m *Metrics) Sent(t domain.MessageType) {
	if m != nil {
		m.sent.WithLabelValues(t.String()).Inc()
	}
}

func (m *Metrics) Duplicate() {
	if m != nil {
		m.duplicates.Inc()
	}
}

func (m *Metrics) Conflict() {
	if m != nil {
		m.conflicts.Inc()
	}
}

func (m *Metrics) Delivered() {
	if m != nil {
		m.delivered.Inc()
	}
}

func (m *Metrics) DeliveryFailed() {
	if m != nil {
		m.failures.Inc()
	}
}

func (m *Metrics) Pending(n int) {
	if m != nil {
		m.outbox.Set(float64(n))
	}
}

func (m *Metrics) QueueUsage(name string, length, capacity int) {
	if m != nil {
		m.queueLength.WithLabelValues(name).Set(float64(length))
		m.queueCap.WithLabelValues(name).Set(float64(capacity))
	}
}

func (m *Metrics) Process(rss uint64, cpuPercent float64) {
	if m != nil {
		m.rss.Set(float64(rss))
		m.cpu.Set(cpuPercent)
	}
}
