package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPairKeyOrderIndependent(t *testing.T) {
	assert.Equal(t, PairKey("b", "a"), PairKey("a", "b"))
	assert.Equal(t, "a|b", PairKey("b", "a"))
}

func TestRecipientAndFlags(t *testing.T) {
	c := &Conversation{Participants: []string{"a1", "u1"}}
	m := Message{Sender: "u1", ReadBySender: true}

	assert.Equal(t, "a1", c.Recipient(m))
	assert.Equal(t, ReadBySender, c.FlagFor("u1", m))
	assert.Equal(t, ReadByRecipient, c.FlagFor("a1", m))
	assert.True(t, c.HasParticipant("a1"))
	assert.False(t, c.HasParticipant("x"))

	m.SetFlag(ReadByRecipient)
	assert.True(t, m.Flag(ReadByRecipient))
}

func TestUnreadFor(t *testing.T) {
	c := &Conversation{
		Participants: []string{"a1", "u1"},
		Messages: []Message{
			{Sender: "u1", ReadBySender: true},
			{Sender: "u1", ReadBySender: true, ReadByRecipient: true},
			{Sender: "a1", ReadBySender: true},
		},
	}
	assert.Equal(t, 1, c.UnreadFor("a1"))
	assert.Equal(t, 1, c.UnreadFor("u1"))
	assert.Equal(t, "a1", c.Last().Sender)
}
