package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	m := New()
	m.MessageSent()
	m.MessageSent()
	m.ReadFlagsSet("mark_all", 3)
	m.ReadFlagsSet("mark_all", 0)
	m.UnreadCache(true)
	m.UnreadCache(false)
	m.UnreadCache(false)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.messagesSent))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.readFlagsSet.WithLabelValues("mark_all")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.unreadCache.WithLabelValues("miss")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.MessageSent()
		m.ReadFlagsSet("x", 1)
		m.DecryptFailure()
		m.UnreadCache(true)
		m.EventPublishFailed()
	})
}

func TestHandlerExposesCounters(t *testing.T) {
	m := New()
	m.MessageSent()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "conversation_messages_sent_total 1")
}
