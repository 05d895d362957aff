package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
)

const (
	EventMessageSent = "message.sent"
	EventMessageRead = "message.read"

	// writes are synchronous and single-event; the library default of 1s
	// would hold every request open waiting for a fuller batch
	batchTimeout = 5 * time.Millisecond
)

// Event never carries message content.
type Event struct {
	ID             string    `json:"id"`
	Type           string    `json:"type"`
	ConversationID string    `json:"conversation_id"`
	ActorID        string    `json:"actor_id"`
	RecipientID    string    `json:"recipient_id,omitempty"`
	Address        string    `json:"address,omitempty"`
	Count          int       `json:"count,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

func NewEvent(typ, conversationID, actorID string) Event {
	return Event{
		ID:             uuid.NewString(),
		Type:           typ,
		ConversationID: conversationID,
		ActorID:        actorID,
		OccurredAt:     time.Now().UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

type Producer struct {
	writer *kafkago.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchTimeout: batchTimeout,
		Async:        false,
	}
	return &Producer{writer: w}
}

// Publish keys by conversation so events of one conversation stay ordered.
func (p *Producer) Publish(ctx context.Context, ev Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	msg := kafkago.Message{
		Key:   []byte(ev.ConversationID),
		Value: b,
		Time:  ev.OccurredAt,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(ev.Type)},
		},
	}
	return p.writer.WriteMessages(ctx, msg)
}

func (p *Producer) Close() error { return p.writer.Close() }

// NopPublisher drops events. Used when kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
