package domain

import (
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Conversation holds every message exchanged between exactly two users.
// Participants are stored sorted so a pair always maps to one document.
type Conversation struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Participants    []string           `bson:"participants" json:"participants"`
	ParticipantsKey string             `bson:"participants_key" json:"-"`
	Messages        []Message          `bson:"messages" json:"-"`
	MessageCount    int                `bson:"message_count" json:"message_count"`
	CreatedAt       time.Time          `bson:"created_at" json:"created_at"`
	LastUpdated     time.Time          `bson:"last_updated" json:"last_updated"`
}

// SortedPair returns the two ids in canonical order.
func SortedPair(a, b string) (string, string) {
	ids := []string{a, b}
	sort.Strings(ids)
	return ids[0], ids[1]
}

// PairKey is the unique lookup key for an unordered pair of users.
func PairKey(a, b string) string {
	lo, hi := SortedPair(a, b)
	return lo + "|" + hi
}

func (c *Conversation) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// Other returns the participant that is not userID.
func (c *Conversation) Other(userID string) string {
	for _, p := range c.Participants {
		if p != userID {
			return p
		}
	}
	return ""
}

// Recipient derives the receiving side of m. It is never stored.
func (c *Conversation) Recipient(m Message) string {
	return c.Other(m.Sender)
}

// FlagFor returns the read flag userID controls on m.
func (c *Conversation) FlagFor(userID string, m Message) ReadFlag {
	if m.Sender == userID {
		return ReadBySender
	}
	return ReadByRecipient
}

// IndexOf returns the position of the message with the given subdocument id, or -1.
func (c *Conversation) IndexOf(id primitive.ObjectID) int {
	for i := range c.Messages {
		if c.Messages[i].ID == id {
			return i
		}
	}
	return -1
}

// Last returns the most recent message, or nil for an empty conversation.
func (c *Conversation) Last() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return &c.Messages[len(c.Messages)-1]
}

// UnreadFor counts messages addressed to userID that are still unread.
func (c *Conversation) UnreadFor(userID string) int {
	n := 0
	for _, m := range c.Messages {
		if m.Sender != userID && !m.ReadByRecipient {
			n++
		}
	}
	return n
}
