package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Anishkbansal/quantumbalance-sub001/internal/apperr"
	"github.com/Anishkbansal/quantumbalance-sub001/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestFindOrCreateCanonicalPair(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	c1, err := s.FindOrCreate(ctx, "u1", "a1")
	require.NoError(t, err)
	c2, err := s.FindOrCreate(ctx, "a1", "u1")
	require.NoError(t, err)

	assert.Equal(t, c1.ID, c2.ID)
	assert.Equal(t, []string{"a1", "u1"}, c1.Participants)
	assert.Empty(t, c1.Messages)
}

func TestFindOrCreateConcurrent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	var wg sync.WaitGroup
	ids := make([]primitive.ObjectID, 50)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, b := "u1", "a1"
			if i%2 == 0 {
				a, b = b, a
			}
			c, err := s.FindOrCreate(ctx, a, b)
			if assert.NoError(t, err) {
				ids[i] = c.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	convs, err := s.FindByParticipant(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, convs, 1)
}

func TestAppendAndReadFlags(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	c, err := s.FindOrCreate(ctx, "u1", "a1")
	require.NoError(t, err)

	at := time.Now().UTC().Add(time.Minute)
	for i := 0; i < 3; i++ {
		idx, err := s.Append(ctx, c.ID, domain.Message{Sender: "u1", ReadBySender: true, CreatedAt: at})
		require.NoError(t, err)
		assert.Equal(t, i, idx)
	}

	changed, err := s.SetReadFlag(ctx, c.ID, 1, domain.ReadByRecipient, true)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = s.SetReadFlag(ctx, c.ID, 1, domain.ReadByRecipient, true)
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = s.SetReadFlag(ctx, c.ID, 1, domain.ReadByRecipient, false)
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)

	_, err = s.SetReadFlag(ctx, c.ID, 3, domain.ReadByRecipient, true)
	assert.ErrorIs(t, err, apperr.ErrMessageNotFound)

	n, err := s.SetReadFlags(ctx, c.ID, []FlagUpdate{
		{Index: 0, Flag: domain.ReadByRecipient},
		{Index: 1, Flag: domain.ReadByRecipient},
		{Index: 2, Flag: domain.ReadByRecipient},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := s.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.MessageCount)
	assert.Equal(t, at, got.LastUpdated)
	for _, m := range got.Messages {
		assert.True(t, m.ReadByRecipient)
		assert.False(t, m.ID.IsZero())
	}
}

func TestReturnedConversationsAreCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	c, err := s.FindOrCreate(ctx, "u1", "a1")
	require.NoError(t, err)
	_, err = s.Append(ctx, c.ID, domain.Message{Sender: "u1"})
	require.NoError(t, err)

	got, err := s.FindByID(ctx, c.ID)
	require.NoError(t, err)
	got.Messages[0].ReadByRecipient = true

	again, err := s.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.False(t, again.Messages[0].ReadByRecipient)
}

func TestFindByParticipantOrdering(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	base := time.Now().UTC()

	older, err := s.FindOrCreate(ctx, "a1", "u1")
	require.NoError(t, err)
	newer, err := s.FindOrCreate(ctx, "a1", "u2")
	require.NoError(t, err)
	_, err = s.FindOrCreate(ctx, "u3", "u4")
	require.NoError(t, err)

	_, err = s.Append(ctx, older.ID, domain.Message{Sender: "u1", CreatedAt: base.Add(time.Hour)})
	require.NoError(t, err)
	_, err = s.Append(ctx, newer.ID, domain.Message{Sender: "u2", CreatedAt: base.Add(2 * time.Hour)})
	require.NoError(t, err)

	convs, err := s.FindByParticipant(ctx, "a1")
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, newer.ID, convs[0].ID)
	assert.Equal(t, older.ID, convs[1].ID)
}

func TestNotFound(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.FindByID(ctx, primitive.NewObjectID())
	assert.ErrorIs(t, err, apperr.ErrConversationNotFound)
	_, err = s.FindByParticipants(ctx, "x", "y")
	assert.ErrorIs(t, err, apperr.ErrConversationNotFound)
	_, err = s.Append(ctx, primitive.NewObjectID(), domain.Message{})
	assert.ErrorIs(t, err, apperr.ErrConversationNotFound)
}
