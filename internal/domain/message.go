package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ReadFlag names one of the two per-message read markers. The value is the bson field name.
type ReadFlag string

const (
	ReadBySender    ReadFlag = "read_by_sender"
	ReadByRecipient ReadFlag = "read_by_recipient"
)

func (f ReadFlag) Valid() bool {
	return f == ReadBySender || f == ReadByRecipient
}

type Message struct {
	ID              primitive.ObjectID `bson:"_id"`
	Sender          string             `bson:"sender"`
	Ciphertext      []byte             `bson:"ciphertext"`
	IV              []byte             `bson:"iv"`
	ReadBySender    bool               `bson:"read_by_sender"`
	ReadByRecipient bool               `bson:"read_by_recipient"`
	CreatedAt       time.Time          `bson:"created_at"`
}

func (m Message) Flag(f ReadFlag) bool {
	if f == ReadBySender {
		return m.ReadBySender
	}
	return m.ReadByRecipient
}

func (m *Message) SetFlag(f ReadFlag) {
	if f == ReadBySender {
		m.ReadBySender = true
		return
	}
	m.ReadByRecipient = true
}
