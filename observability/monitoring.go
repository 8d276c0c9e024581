package observability

import (
	"chatterm/contract"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "chatterm"

var _ contract.Metrics = (*Monitoring)(nil)

// MonitoringStats is the plain view logged by the stats worker.
type MonitoringStats struct {
	ActiveSessions int64
	SessionsTotal  uint64
	MessagesTotal  uint64
	SendFailures   uint64
	NameConflicts  uint64
}

// Monitoring counts core events both in Prometheus collectors and in local
// atomics, so the numbers stay readable when no scraper is configured.
type Monitoring struct {
	activeSessions prometheus.Gauge
	sessionsTotal  prometheus.Counter
	messagesTotal  prometheus.Counter
	sendFailures   prometheus.Counter
	nameConflicts  prometheus.Counter
	processRSS     prometheus.Gauge

	active    int64
	sessions  uint64
	messages  uint64
	failures  uint64
	conflicts uint64
}

// NewMonitoring registers the collectors on reg.
// Tests pass prometheus.NewRegistry() to avoid clashing on the default one.
func NewMonitoring(reg prometheus.Registerer) *Monitoring {
	factory := promauto.With(reg)
	return &Monitoring{
		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of sessions currently registered",
		}),
		sessionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Sessions that completed the handshake",
		}),
		messagesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_broadcast_total",
			Help:      "Chat lines broadcast to the roster",
		}),
		sendFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "send_failures_total",
			Help:      "Writes that failed and terminated their session",
		}),
		nameConflicts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "name_conflicts_total",
			Help:      "Requested names that were already reserved",
		}),
		processRSS: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "process_rss_bytes",
			Help:      "Resident memory of the server process",
		}),
	}
}

func (m *Monitoring) SessionJoined() {
	atomic.AddInt64(&m.active, 1)
	atomic.AddUint64(&m.sessions, 1)
	m.activeSessions.Inc()
	m.sessionsTotal.Inc()
}

func (m *Monitoring) SessionLeft() {
	atomic.AddInt64(&m.active, -1)
	m.activeSessions.Dec()
}

func (m *Monitoring) MessageBroadcast() {
	atomic.AddUint64(&m.messages, 1)
	m.messagesTotal.Inc()
}

func (m *Monitoring) SendFailed() {
	atomic.AddUint64(&m.failures, 1)
	m.sendFailures.Inc()
}

func (m *Monitoring) NameConflict() {
	atomic.AddUint64(&m.conflicts, 1)
	m.nameConflicts.Inc()
}

func (m *Monitoring) SetProcessRSS(bytes uint64) {
	m.processRSS.Set(float64(bytes))
}

func (m *Monitoring) GetLatest() MonitoringStats {
	return MonitoringStats{
		ActiveSessions: atomic.LoadInt64(&m.active),
		SessionsTotal:  atomic.LoadUint64(&m.sessions),
		MessagesTotal:  atomic.LoadUint64(&m.messages),
		SendFailures:   atomic.LoadUint64(&m.failures),
		NameConflicts:  atomic.LoadUint64(&m.conflicts),
	}
}
