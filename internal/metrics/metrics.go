package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	reg             *prometheus.Registry
	messagesSent    prometheus.Counter
	readFlagsSet    *prometheus.CounterVec
	decryptFailures prometheus.Counter
	unreadCache     *prometheus.CounterVec
	eventFailures   prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		reg: reg,
		messagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "conversation_messages_sent_total",
			Help: "Messages appended to conversations.",
		}),
		readFlagsSet: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "conversation_read_flags_set_total",
			Help: "Read flags moved from false to true, by operation.",
		}, []string{"op"}),
		decryptFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "conversation_decrypt_failures_total",
			Help: "Messages that failed to decrypt on fetch.",
		}),
		unreadCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "conversation_unread_cache_total",
			Help: "Unread count cache lookups, by result.",
		}, []string{"result"}),
		eventFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "conversation_event_publish_failures_total",
			Help: "Domain events that could not be published.",
		}),
	}
	reg.MustRegister(
		m.messagesSent, m.readFlagsSet, m.decryptFailures, m.unreadCache, m.eventFailures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler returns an http.Handler for Prometheus scraping
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

func (m *Metrics) MessageSent() {
	if m != nil {
		m.messagesSent.Inc()
	}
}

func (m *Metrics) ReadFlagsSet(op string, n int) {
	if m != nil && n > 0 {
		m.readFlagsSet.WithLabelValues(op).Add(float64(n))
	}
}

func (m *Metrics) DecryptFailure() {
	if m != nil {
		m.decryptFailures.Inc()
	}
}

func (m *Metrics) UnreadCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.unreadCache.WithLabelValues("hit").Inc()
		return
	}
	m.unreadCache.WithLabelValues("miss").Inc()
}

func (m *Metrics) EventPublishFailed() {
	if m != nil {
		m.eventFailures.Inc()
	}
}
