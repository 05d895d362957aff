package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Anishkbansal/quantumbalance-sub001/internal/apperr"
	"github.com/Anishkbansal/quantumbalance-sub001/internal/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryStore keeps conversations in process. Callers always receive copies.
type MemoryStore struct {
	mu    sync.RWMutex
	convs map[primitive.ObjectID]*domain.Conversation
	byKey map[string]primitive.ObjectID
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		convs: make(map[primitive.ObjectID]*domain.Conversation),
		byKey: make(map[string]primitive.ObjectID),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) FindOrCreate(_ context.Context, userA, userB string) (*domain.Conversation, error) {
	key := domain.PairKey(userA, userB)
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.byKey[key]; ok {
		return clone(s.convs[id]), nil
	}
	lo, hi := domain.SortedPair(userA, userB)
	now := s.now()
	c := &domain.Conversation{
		ID:              primitive.NewObjectID(),
		Participants:    []string{lo, hi},
		ParticipantsKey: key,
		Messages:        []domain.Message{},
		CreatedAt:       now,
		LastUpdated:     now,
	}
	s.convs[c.ID] = c
	s.byKey[key] = c.ID
	return clone(c), nil
}

func (s *MemoryStore) FindByID(_ context.Context, id primitive.ObjectID) (*domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.convs[id]
	if !ok {
		return nil, apperr.ErrConversationNotFound
	}
	return clone(c), nil
}

func (s *MemoryStore) FindByParticipants(_ context.Context, userA, userB string) (*domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byKey[domain.PairKey(userA, userB)]
	if !ok {
		return nil, apperr.ErrConversationNotFound
	}
	return clone(s.convs[id]), nil
}

func (s *MemoryStore) Append(_ context.Context, conversationID primitive.ObjectID, m domain.Message) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.convs[conversationID]
	if !ok {
		return 0, apperr.ErrConversationNotFound
	}
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	c.Messages = append(c.Messages, m)
	c.MessageCount = len(c.Messages)
	if m.CreatedAt.After(c.LastUpdated) {
		c.LastUpdated = m.CreatedAt
	}
	return len(c.Messages) - 1, nil
}

func (s *MemoryStore) SetReadFlag(ctx context.Context, conversationID primitive.ObjectID, index int, flag domain.ReadFlag, value bool) (bool, error) {
	if !value {
		return false, apperr.Invalid("read flags cannot be cleared")
	}
	n, err := s.SetReadFlags(ctx, conversationID, []FlagUpdate{{Index: index, Flag: flag}})
	return n > 0, err
}

func (s *MemoryStore) SetReadFlags(_ context.Context, conversationID primitive.ObjectID, updates []FlagUpdate) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.convs[conversationID]
	if !ok {
		return 0, apperr.ErrConversationNotFound
	}
	for _, u := range updates {
		if u.Index < 0 || u.Index >= len(c.Messages) {
			return 0, apperr.ErrMessageNotFound
		}
		if !u.Flag.Valid() {
			return 0, apperr.Invalid("unknown read flag %q", u.Flag)
		}
	}
	changed := 0
	for _, u := range updates {
		m := &c.Messages[u.Index]
		if !m.Flag(u.Flag) {
			m.SetFlag(u.Flag)
			changed++
		}
	}
	return changed, nil
}

func (s *MemoryStore) FindByParticipant(_ context.Context, userID string) ([]*domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*domain.Conversation{}
	for _, c := range s.convs {
		if c.HasParticipant(userID) {
			out = append(out, clone(c))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastUpdated.After(out[j].LastUpdated)
	})
	return out, nil
}

func clone(c *domain.Conversation) *domain.Conversation {
	cp := *c
	cp.Participants = append([]string(nil), c.Participants...)
	cp.Messages = make([]domain.Message, len(c.Messages))
	copy(cp.Messages, c.Messages)
	return &cp
}
