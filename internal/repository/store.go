package repository

import (
	"context"

	"github.com/Anishkbansal/quantumbalance-sub001/internal/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FlagUpdate sets one read flag on the message at Index.
type FlagUpdate struct {
	Index int
	Flag  domain.ReadFlag
}

// Store persists conversations. Read flags only ever move from false to true.
type Store interface {
	// FindOrCreate returns the conversation for the unordered pair, creating an
	// empty one atomically on first use.
	FindOrCreate(ctx context.Context, userA, userB string) (*domain.Conversation, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*domain.Conversation, error)
	// FindByParticipants returns apperr.ErrConversationNotFound when the pair has never talked.
	FindByParticipants(ctx context.Context, userA, userB string) (*domain.Conversation, error)
	// Append adds m at the end of the conversation and returns its index.
	Append(ctx context.Context, conversationID primitive.ObjectID, m domain.Message) (int, error)
	// SetReadFlag reports whether the flag actually changed.
	SetReadFlag(ctx context.Context, conversationID primitive.ObjectID, index int, flag domain.ReadFlag, value bool) (bool, error)
	// SetReadFlags applies updates and returns how many flags actually changed.
	SetReadFlags(ctx context.Context, conversationID primitive.ObjectID, updates []FlagUpdate) (int, error)
	// FindByParticipant lists userID's conversations, most recently updated first.
	FindByParticipant(ctx context.Context, userID string) ([]*domain.Conversation, error)
}
