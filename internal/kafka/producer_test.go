package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProducerFlushesWithoutWaitingForBatch(t *testing.T) {
	p := NewProducer([]string{"localhost:9092"}, "conversation-events")
	t.Cleanup(func() { _ = p.Close() })

	assert.Equal(t, "conversation-events", p.writer.Topic)
	assert.Positive(t, p.writer.BatchTimeout)
	assert.LessOrEqual(t, p.writer.BatchTimeout, 10*time.Millisecond)
	assert.False(t, p.writer.Async)
}

func TestNewEvent(t *testing.T) {
	ev := NewEvent(EventMessageSent, "conv", "u1")
	require.NotEmpty(t, ev.ID)
	assert.Equal(t, EventMessageSent, ev.Type)
	assert.Equal(t, "conv", ev.ConversationID)
	assert.Equal(t, "u1", ev.ActorID)
	assert.WithinDuration(t, time.Now(), ev.OccurredAt, time.Minute)
	assert.NotEqual(t, ev.ID, NewEvent(EventMessageSent, "conv", "u1").ID)
}

func TestNopPublisher(t *testing.T) {
	assert.NoError(t, NopPublisher{}.Publish(context.Background(), NewEvent(EventMessageRead, "c", "u")))
}
