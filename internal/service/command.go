package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Anishkbansal/quantumbalance-sub001/internal/address"
	"github.com/Anishkbansal/quantumbalance-sub001/internal/apperr"
	"github.com/Anishkbansal/quantumbalance-sub001/internal/crypto"
	"github.com/Anishkbansal/quantumbalance-sub001/internal/domain"
	"github.com/Anishkbansal/quantumbalance-sub001/internal/kafka"
	"github.com/Anishkbansal/quantumbalance-sub001/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SendMessage encrypts content and appends it to the conversation between
// sender and recipient, creating the conversation on first contact.
func (s *Service) SendMessage(ctx context.Context, senderID, recipientID, content string) (*domain.MessageView, error) {
	if strings.TrimSpace(content) == "" {
		return nil, apperr.Invalid("message content is empty")
	}
	if senderID == recipientID {
		return nil, apperr.Invalid("cannot send a message to yourself")
	}
	sender, err := s.users.ResolveUser(ctx, senderID)
	if err != nil {
		return nil, err
	}
	if _, err := s.users.ResolveUser(ctx, recipientID); err != nil {
		return nil, err
	}
	if !sender.CanMessage() {
		return nil, apperr.ErrPackageRequired
	}

	key := crypto.DeriveKey(senderID, recipientID)
	ct, iv, err := crypto.Encrypt([]byte(content), key)
	if err != nil {
		return nil, err
	}

	conv, err := s.store.FindOrCreate(ctx, senderID, recipientID)
	if err != nil {
		return nil, err
	}
	msg := domain.Message{
		ID:           primitive.NewObjectID(),
		Sender:       senderID,
		Ciphertext:   ct,
		IV:           iv,
		ReadBySender: true,
		CreatedAt:    s.now(),
	}
	idx, err := s.store.Append(ctx, conv.ID, msg)
	if err != nil {
		return nil, err
	}

	s.metrics.MessageSent()
	s.invalidateUnread(ctx, senderID, recipientID)

	addr := address.Encode(conv.ID, idx)
	ev := kafka.NewEvent(kafka.EventMessageSent, conv.ID.Hex(), senderID)
	ev.RecipientID = recipientID
	ev.Address = addr
	s.publish(ctx, ev)

	return &domain.MessageView{
		Address:        addr,
		MessageID:      msg.ID.Hex(),
		ConversationID: conv.ID.Hex(),
		Sender:         senderID,
		Recipient:      recipientID,
		Content:        content,
		CreatedAt:      msg.CreatedAt,
		ReadBySender:   true,
	}, nil
}

// MarkMessageAsRead sets the requester's own read flag on the addressed
// message. Marking an already read message succeeds without change.
func (s *Service) MarkMessageAsRead(ctx context.Context, addr, userID string) error {
	a, err := address.Decode(addr)
	if err != nil {
		return err
	}
	conv, err := s.participantConversation(ctx, a.ConversationID, userID)
	if err != nil {
		return err
	}
	idx, err := resolveIndex(conv, a)
	if err != nil {
		return err
	}
	m := conv.Messages[idx]
	flag := conv.FlagFor(userID, m)
	if m.Flag(flag) {
		return nil
	}
	changed, err := s.store.SetReadFlag(ctx, conv.ID, idx, flag, true)
	if err != nil {
		return err
	}
	if changed {
		s.afterRead(ctx, conv, userID, "mark_one", 1, address.Encode(conv.ID, idx))
	}
	return nil
}

// MarkAllAsRead sets the requester's flag on every message of the
// conversation and returns how many flags changed.
func (s *Service) MarkAllAsRead(ctx context.Context, conversationID, userID string) (int, error) {
	id, err := parseConversationID(conversationID)
	if err != nil {
		return 0, err
	}
	conv, err := s.participantConversation(ctx, id, userID)
	if err != nil {
		return 0, err
	}
	updates := make([]repository.FlagUpdate, 0)
	for i, m := range conv.Messages {
		if flag := conv.FlagFor(userID, m); !m.Flag(flag) {
			updates = append(updates, repository.FlagUpdate{Index: i, Flag: flag})
		}
	}
	return s.applyFlags(ctx, conv, userID, "mark_all", updates)
}

// MarkMessagesAsRead marks only the listed messages. Every address must point
// into conversationID.
func (s *Service) MarkMessagesAsRead(ctx context.Context, conversationID string, addrs []string, userID string) (int, error) {
	id, err := parseConversationID(conversationID)
	if err != nil {
		return 0, err
	}
	decoded := make([]address.Address, 0, len(addrs))
	for _, raw := range addrs {
		a, err := address.Decode(raw)
		if err != nil {
			return 0, err
		}
		if a.ConversationID != id {
			return 0, fmt.Errorf("%w: %s does not belong to conversation %s", apperr.ErrInvalidAddress, raw, conversationID)
		}
		decoded = append(decoded, a)
	}
	conv, err := s.participantConversation(ctx, id, userID)
	if err != nil {
		return 0, err
	}

	seen := make(map[int]bool, len(decoded))
	updates := make([]repository.FlagUpdate, 0, len(decoded))
	for _, a := range decoded {
		idx, err := resolveIndex(conv, a)
		if err != nil {
			return 0, err
		}
		if seen[idx] {
			continue
		}
		seen[idx] = true
		m := conv.Messages[idx]
		if flag := conv.FlagFor(userID, m); !m.Flag(flag) {
			updates = append(updates, repository.FlagUpdate{Index: idx, Flag: flag})
		}
	}
	return s.applyFlags(ctx, conv, userID, "mark_batch", updates)
}

func (s *Service) applyFlags(ctx context.Context, conv *domain.Conversation, userID, op string, updates []repository.FlagUpdate) (int, error) {
	if len(updates) == 0 {
		return 0, nil
	}
	n, err := s.store.SetReadFlags(ctx, conv.ID, updates)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.afterRead(ctx, conv, userID, op, n, "")
	}
	return n, nil
}

func (s *Service) afterRead(ctx context.Context, conv *domain.Conversation, userID, op string, n int, addr string) {
	s.metrics.ReadFlagsSet(op, n)
	s.invalidateUnread(ctx, userID)
	ev := kafka.NewEvent(kafka.EventMessageRead, conv.ID.Hex(), userID)
	ev.Address = addr
	ev.Count = n
	s.publish(ctx, ev)
}

func (s *Service) participantConversation(ctx context.Context, id primitive.ObjectID, userID string) (*domain.Conversation, error) {
	conv, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(userID) {
		return nil, apperr.ErrUserNotParticipant
	}
	return conv, nil
}

func resolveIndex(conv *domain.Conversation, a address.Address) (int, error) {
	idx := a.Index
	if a.IsNative() {
		idx = conv.IndexOf(a.MessageID)
	}
	if idx < 0 || idx >= len(conv.Messages) {
		return 0, apperr.ErrMessageNotFound
	}
	return idx, nil
}

func parseConversationID(s string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return primitive.NilObjectID, apperr.Invalid("conversation id %q is not valid", s)
	}
	return id, nil
}

func addressFor(c *domain.Conversation, index int) string {
	return address.Encode(c.ID, index)
}
